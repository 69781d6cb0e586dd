// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hookSource = `//go:build dlhook

package main

//dlhook:hook origin="getuid"
func fake_root_uid(f _) uint32 {
	return 0
}
`

func TestParseSource(t *testing.T) {
	parser := NewAstParser()
	file, err := parser.ParseSource(hookSource)
	require.NoError(t, err)
	require.Len(t, file.Decls, 1)

	funcs := ListFuncDecls(file)
	require.Len(t, funcs, 1)
	fn := funcs[0]
	assert.Contains(t, fn.Decs.Start.All(), `//dlhook:hook origin="getuid"`)

	pos := parser.FindPosition(fn.Name)
	assert.Equal(t, "source.go", pos.Filename)
	assert.Equal(t, 6, pos.Line)
	assert.Equal(t, 6, pos.Column)
}

func TestParseSourceError(t *testing.T) {
	_, err := NewAstParser().ParseSource("package main\nfunc (")
	require.Error(t, err)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.go")
	require.NoError(t, os.WriteFile(path, []byte(hookSource), 0o644))

	parser := NewAstParser()
	file, err := parser.Parse(path, 0)
	require.NoError(t, err)
	funcs := ListFuncDecls(file)
	require.Len(t, funcs, 1)
	fn := funcs[0]
	assert.Equal(t, path, parser.FindPosition(fn.Name).Filename)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.go"))
	require.Error(t, err)
}

func TestFindPositionUnknownNode(t *testing.T) {
	pos := NewAstParser().FindPosition(Ident("detached"))
	assert.False(t, pos.IsValid())
}

func TestFormatRoundTrip(t *testing.T) {
	file, err := decorator.Parse(hookSource)
	require.NoError(t, err)
	out, err := Format(file)
	require.NoError(t, err)
	assert.Equal(t, hookSource, string(out))
}

func TestWriteFile(t *testing.T) {
	file := &dst.File{Name: Ident("main")}
	file.Decls = append(file.Decls, ImportDecl("_dlhookrt", "github.com/chlorodose/dlhook"))

	path := filepath.Join(t.TempDir(), "out.go")
	require.NoError(t, WriteFile(path, file))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nimport _dlhookrt \"github.com/chlorodose/dlhook\"\n", string(content))
}

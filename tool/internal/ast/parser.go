// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"bytes"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/util"
)

// AstParser parses Go sources into dst trees and remembers how to map the
// decorated nodes back to source positions, so diagnostics can point at the
// offending token.
type AstParser struct {
	fset *token.FileSet
	dec  *decorator.Decorator
}

func NewAstParser() *AstParser {
	return &AstParser{
		fset: token.NewFileSet(),
	}
}

func (ap *AstParser) decorate(name string, src any, mode parser.Mode) (*dst.File, error) {
	util.Assert(ap.fset != nil, "fset is not initialized")
	astFile, err := parser.ParseFile(ap.fset, name, src, mode)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to parse file %s", name)
	}
	ap.dec = decorator.NewDecorator(ap.fset)
	dstFile, err := ap.dec.DecorateFile(astFile)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to decorate file %s", name)
	}
	return dstFile, nil
}

// Parse parses the file at filePath. Positions reported by FindPosition carry
// the path exactly as given.
func (ap *AstParser) Parse(filePath string, mode parser.Mode) (*dst.File, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to read file %s", filePath)
	}
	return ap.decorate(filePath, content, mode)
}

// ParseSource parses an in-memory source, keeping comments.
func (ap *AstParser) ParseSource(source string) (*dst.File, error) {
	return ap.decorate("source.go", source, parser.ParseComments)
}

// FindPosition returns the source position of a node that came out of the
// last parse. Nodes created afterwards have no position.
func (ap *AstParser) FindPosition(node dst.Node) token.Position {
	if ap.dec == nil || node == nil {
		return token.Position{}
	}
	astNode, ok := ap.dec.Ast.Nodes[node]
	if !ok || astNode == nil {
		return token.Position{}
	}
	return ap.fset.Position(astNode.Pos())
}

// ParseFile is a shortcut that parses filePath with comments.
func ParseFile(filePath string) (*dst.File, error) {
	return NewAstParser().Parse(filePath, parser.ParseComments)
}

// Format prints root in gofmt style.
func Format(root *dst.File) ([]byte, error) {
	restorer := decorator.NewRestorer()
	astFile, err := restorer.RestoreFile(root)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to restore ast")
	}
	var buf bytes.Buffer
	err = format.Node(&buf, restorer.Fset, astFile)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to format ast")
	}
	return buf.Bytes(), nil
}

func WriteFile(filePath string, root *dst.File) error {
	content, err := Format(root)
	if err != nil {
		return err
	}
	err = util.WriteFileAtomic(filepath.Clean(filePath), content)
	if err != nil {
		return ex.Wrapf(err, "failed to write ast to file %s", filePath)
	}
	return nil
}

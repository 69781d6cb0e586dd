// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/chlorodose/dlhook/tool/internal/ast"
	"github.com/chlorodose/dlhook/tool/internal/hook"
	"github.com/chlorodose/dlhook/tool/util"
)

const hooksSource = `//go:build dlhook

package main

/*
void dlhook_set_errno(int);
*/
import "C"

import (
	"strings"
	"unsafe"
)

//dlhook:hook origin="open"
func open_hook(f _, path *C.char, flags C.int, mode C.uint) C.int {
	if strings.HasPrefix(C.GoString(path), "/home") {
		C.dlhook_set_errno(13)
		return -1
	}
	return f(path, flags, mode)
}

// fake_root_uid pretends to run as root.
//
//dlhook:hook origin="getuid"
func fake_root_uid(f _) C.uint {
	_ = unsafe.Pointer(nil)
	return 0
}

func helper() {}
`

const brokenSource = `//go:build dlhook

package main

import "C"

//dlhook:hook origin="getuid"
func good(f _) C.uint { return 0 }

//dlhook:hook origin="geteuid"
func bad() C.uint { return 0 }
`

type testEnv struct {
	dir      string
	logs     *bytes.Buffer
	spans    *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
	opts     Options
	ctx      context.Context
	gomodRaw string
}

func newTestEnv(t *testing.T, files map[string]string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	gomod := "module example.com/hooks\n\ngo 1.21\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"),
		[]byte("package main\n\nfunc main() {}\n"), 0o644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	logs := &bytes.Buffer{}
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	return &testEnv{
		dir:    dir,
		logs:   logs,
		spans:  spans,
		reader: reader,
		opts: Options{
			TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
			MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		},
		ctx:      util.ContextWithLogger(context.Background(), util.NewLogger(logs, slog.LevelDebug)),
		gomodRaw: gomod,
	}
}

func (e *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(e.dir, name))
	require.NoError(t, err)
	return string(content)
}

func (e *testEnv) trampolineCount(t *testing.T) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "dlhook.trampolines" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestGenerateDir(t *testing.T) {
	env := newTestEnv(t, map[string]string{"hooks.go": hooksSource})

	result, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Trampolines)
	assert.Equal(t, []string{
		filepath.Join(env.dir, "hooks_dlhook.go"),
		filepath.Join(env.dir, "hooks_dlhook.c"),
	}, result.Files)

	out := env.read(t, "hooks_dlhook.go")
	assert.True(t, strings.HasPrefix(out, util.GeneratedBy+"\n\npackage main\n"))
	assert.NotContains(t, out, "//go:build")
	assert.NotContains(t, out, hook.Directive)
	assert.Contains(t, out, "// fake_root_uid pretends to run as root.\n")
	assert.Contains(t, out, `import _dlhookrt "github.com/chlorodose/dlhook"`)
	assert.Contains(t, out, "void dlhook_set_errno(int);\n*/\nimport \"C\"")
	assert.Contains(t, out,
		"func open_hook(f func(*C.char, C.int, C.uint) C.int, path *C.char, flags C.int, mode C.uint) C.int {")
	assert.Contains(t, out, "func fake_root_uid(f func() C.uint) C.uint {")
	assert.Contains(t, out, "//export _dlhook_open_hook\nfunc _dlhook_open_hook(path *C.char, flags C.int, mode C.uint) C.int {")
	assert.Contains(t, out, `_dlhookrt.Bind(&_dlhook_next, _dlhookrt.Resolve(_dlhookrt.Next, "getuid"))`)
	assert.Contains(t, out, "func helper() {}")
	// Trampolines follow the hooks in declaration order.
	assert.Less(t, strings.Index(out, "func _dlhook_open_hook"), strings.Index(out, "func _dlhook_fake_root_uid"))
	assert.Less(t, strings.Index(out, "func helper"), strings.Index(out, "func _dlhook_open_hook"))

	stubs := env.read(t, "hooks_dlhook.c")
	assert.True(t, strings.HasPrefix(stubs, util.GeneratedBy+"\n"))
	assert.Contains(t, stubs, "DLHOOK_STUB(open, _dlhook_open_hook);\nDLHOOK_STUB(getuid, _dlhook_fake_root_uid);\n")

	// The source is left untouched and go.mod is unchanged without a known
	// runtime version.
	assert.Equal(t, hooksSource, env.read(t, "hooks.go"))
	assert.Equal(t, env.gomodRaw, env.read(t, "go.mod"))

	assert.Equal(t, int64(2), env.trampolineCount(t))
	names := make([]string, 0)
	for _, span := range env.spans.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "Generate")
	assert.Contains(t, names, "GenerateFile")
}

func TestGenerateDirIdempotent(t *testing.T) {
	env := newTestEnv(t, map[string]string{"hooks.go": hooksSource})

	_, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.NoError(t, err)
	firstGo, firstC := env.read(t, "hooks_dlhook.go"), env.read(t, "hooks_dlhook.c")

	_, err = GenerateDir(env.ctx, env.dir, env.opts)
	require.NoError(t, err)
	assert.Equal(t, firstGo, env.read(t, "hooks_dlhook.go"))
	assert.Equal(t, firstC, env.read(t, "hooks_dlhook.c"))
}

func TestGenerateDirNoPartialOutput(t *testing.T) {
	env := newTestEnv(t, map[string]string{"broken.go": brokenSource})

	_, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.Error(t, err)
	require.ErrorIs(t, err, hook.ErrArity)
	var diag *hook.Error
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, filepath.Join(env.dir, "broken.go"), diag.Pos.Filename)
	assert.Equal(t, 11, diag.Pos.Line)

	assert.NoFileExists(t, filepath.Join(env.dir, "broken_dlhook.go"))
	assert.NoFileExists(t, filepath.Join(env.dir, "broken_dlhook.c"))

	var failed bool
	for _, span := range env.spans.Ended() {
		if span.Name() == "GenerateFile" && span.Status().Code == codes.Error {
			failed = true
		}
	}
	assert.True(t, failed)
	assert.Equal(t, int64(0), env.trampolineCount(t))
}

func TestGenerateDirCollectsAllErrors(t *testing.T) {
	source := `//go:build dlhook

package main

//dlhook:hook origin="a"
func a() {}

//dlhook:hook origin="b"
func (s *S) b(f _) {}

//dlhook:hook name="c"
func c(f _) {}
`
	env := newTestEnv(t, map[string]string{"hooks.go": source})
	_, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, hook.ErrArity)
	assert.ErrorIs(t, err, hook.ErrReceiver)
	assert.ErrorIs(t, err, hook.ErrAttribute)
}

func TestGenerateDirRequiresTag(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"hooks.go": "package main\n\n//dlhook:hook origin=\"getuid\"\nfunc h(f _) uint32 { return 0 }\n",
	})
	_, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be constrained with //go:build dlhook")
	assert.NoFileExists(t, filepath.Join(env.dir, "hooks_dlhook.go"))
}

func TestGenerateDirRepeatedDirective(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"hooks.go": "//go:build dlhook\n\npackage main\n\n//dlhook:hook origin=\"a\"\n//dlhook:hook origin=\"b\"\nfunc h(f _) {}\n",
	})
	_, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.ErrorIs(t, err, hook.ErrAttribute)
	assert.Contains(t, err.Error(), "only one")
}

func TestGenerateDirWithRules(t *testing.T) {
	source := `//go:build dlhook

package main

func fake_root_uid(f _) uint32 { return 0 }
`
	rules := `
hooks:
  fake_root_uid:
    origin: getuid
  stale:
    func: gone
    origin: getgid
`
	env := newTestEnv(t, map[string]string{"hooks.go": source, util.ConfigFile: rules})

	result, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Trampolines)
	out := env.read(t, "hooks_dlhook.go")
	assert.Contains(t, out, "func _dlhook_fake_root_uid() uint32 {")
	assert.Contains(t, out, "import \"C\"")
	assert.Contains(t, env.read(t, "hooks_dlhook.c"), "DLHOOK_STUB(getuid, _dlhook_fake_root_uid);")
	assert.Contains(t, env.logs.String(), "Hook rule matched no function")
	assert.Contains(t, env.logs.String(), "rule=stale")
}

func TestGenerateDirRuleAndDirective(t *testing.T) {
	source := "//go:build dlhook\n\npackage main\n\n//dlhook:hook origin=\"getuid\"\nfunc h(f _) uint32 { return 0 }\n"
	env := newTestEnv(t, map[string]string{
		"hooks.go":      source,
		util.ConfigFile: "hooks:\n  h:\n    origin: geteuid\n",
	})
	_, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.ErrorIs(t, err, hook.ErrAttribute)
	assert.Contains(t, err.Error(), "both a directive and the rule")
}

func TestGenerateDirCustomTag(t *testing.T) {
	source := "//go:build preload\n\npackage main\n\n//dlhook:hook origin=\"getuid\"\nfunc h(f _) uint32 { return 0 }\n"
	env := newTestEnv(t, map[string]string{"hooks.go": source})
	configPath := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("tag: preload\n"), 0o644))
	env.opts.ConfigPath = configPath

	result, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Trampolines)
}

func TestGenerateDirRemovesStaleOutput(t *testing.T) {
	handwritten := "package main\n\nfunc extra() {}\n"
	env := newTestEnv(t, map[string]string{
		"hooks.go":         hooksSource,
		"manual_dlhook.go": handwritten,
	})
	goFile := filepath.Join(env.dir, "hooks_dlhook.go")
	cFile := filepath.Join(env.dir, "hooks_dlhook.c")

	_, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.NoError(t, err)
	require.FileExists(t, goFile)

	// A source that fails keeps its previous outputs.
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "hooks.go"), []byte(brokenSource), 0o644))
	result, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.Error(t, err)
	assert.Empty(t, result.Removed)
	assert.FileExists(t, goFile)
	assert.FileExists(t, cFile)

	// A source without hooks no longer owns generated files.
	plain := "//go:build dlhook\n\npackage main\n\nfunc helper() {}\n"
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "hooks.go"), []byte(plain), 0o644))
	result, err = GenerateDir(env.ctx, env.dir, env.opts)
	require.NoError(t, err)
	assert.Equal(t, []string{goFile, cFile}, result.Removed)
	assert.NoFileExists(t, goFile)
	assert.NoFileExists(t, cFile)
	assert.Equal(t, handwritten, env.read(t, "manual_dlhook.go"))
	assert.Contains(t, env.logs.String(), "Removed stale generated files")
}

func TestGenerateDirWithoutHooks(t *testing.T) {
	env := newTestEnv(t, nil)
	result, err := GenerateDir(env.ctx, env.dir, env.opts)
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	assert.NoFileExists(t, filepath.Join(env.dir, "main_dlhook.go"))
}

func TestGeneratePatterns(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
	env := newTestEnv(t, map[string]string{"hooks.go": hooksSource})
	t.Setenv(util.EnvWorkDir, env.dir)

	result, err := Generate(env.ctx, []string{"./..."}, env.opts)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Trampolines)
	assert.FileExists(t, filepath.Join(env.dir, "hooks_dlhook.go"))
	assert.FileExists(t, filepath.Join(env.dir, "hooks_dlhook.c"))
}

func TestRequiresTag(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{header: "//go:build dlhook", want: true},
		{header: "//go:build dlhook && linux", want: true},
		{header: "//go:build dlhook || linux", want: false},
		{header: "//go:build !windows", want: false},
		{header: "//go:build !dlhook", want: false},
		{header: "// just a comment", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			root, err := ast.NewAstParser().ParseSource(tt.header + "\n\npackage main\n")
			require.NoError(t, err)
			assert.Equal(t, tt.want, requiresTag(root, "dlhook"))
		})
	}
}

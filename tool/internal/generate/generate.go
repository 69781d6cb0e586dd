// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/internal/rule"
	"github.com/chlorodose/dlhook/tool/util"
)

const (
	instrumentationName = "github.com/chlorodose/dlhook/tool/internal/generate"
	outputSuffix        = "_dlhook"
)

// Options tunes a generation run. The zero value reads dlhook.yaml from every
// package directory and reports telemetry to the global providers.
type Options struct {
	// ConfigPath overrides the per-package rules file.
	ConfigPath     string
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Result lists what a generation run produced.
type Result struct {
	Files []string
	// Trampolines is the number of hooks turned into trampolines.
	Trampolines int
	// ModFiles lists the go.mod files that gained a requirement.
	ModFiles []string
	// Removed lists generated files whose source no longer declares a hook.
	Removed []string
}

type GeneratePhase struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	emitted metric.Int64Counter
	opts    Options
	// runtimeVersion is the version of the runtime module required by
	// generated code. It is empty when unknown.
	runtimeVersion string
}

func (gp *GeneratePhase) Info(msg string, args ...any)  { gp.logger.Info(msg, args...) }
func (gp *GeneratePhase) Error(msg string, args ...any) { gp.logger.Error(msg, args...) }
func (gp *GeneratePhase) Warn(msg string, args ...any)  { gp.logger.Warn(msg, args...) }
func (gp *GeneratePhase) Debug(msg string, args ...any) { gp.logger.Debug(msg, args...) }

func newGeneratePhase(ctx context.Context, opts Options) (*GeneratePhase, error) {
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	counter, err := mp.Meter(instrumentationName).Int64Counter("dlhook.trampolines",
		metric.WithDescription("Number of generated trampolines"),
		metric.WithUnit("{trampoline}"))
	if err != nil {
		return nil, ex.Wrapf(err, "failed to create trampoline counter")
	}
	return &GeneratePhase{
		logger:         util.LoggerFromContext(ctx),
		tracer:         tp.Tracer(instrumentationName),
		emitted:        counter,
		opts:           opts,
		runtimeVersion: runtimeVersion(),
	}, nil
}

// Generate expands the package patterns and generates trampolines for every
// hook source found in them.
func Generate(ctx context.Context, patterns []string, opts Options) (*Result, error) {
	gp, err := newGeneratePhase(ctx, opts)
	if err != nil {
		return nil, err
	}
	ctx, span := gp.tracer.Start(ctx, "Generate",
		trace.WithAttributes(attribute.StringSlice("dlhook.patterns", patterns)))
	defer span.End()

	dirs, err := gp.findPackageDirs(ctx, util.GetWorkDir(), patterns)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	result := &Result{}
	var errs []error
	for _, dir := range dirs {
		err = gp.generateDir(ctx, dir, result)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err = errors.Join(errs...); err != nil {
		recordError(span, err)
		return result, err
	}
	span.SetAttributes(attribute.Int("dlhook.trampolines", result.Trampolines))
	gp.Info("Generate completed", "files", len(result.Files), "trampolines", result.Trampolines)
	return result, nil
}

// GenerateDir generates trampolines for the hook sources directly inside dir.
// It needs no Go toolchain.
func GenerateDir(ctx context.Context, dir string, opts Options) (*Result, error) {
	gp, err := newGeneratePhase(ctx, opts)
	if err != nil {
		return nil, err
	}
	ctx, span := gp.tracer.Start(ctx, "Generate",
		trace.WithAttributes(attribute.String("dlhook.dir", dir)))
	defer span.End()

	result := &Result{}
	err = gp.generateDir(ctx, dir, result)
	if err != nil {
		recordError(span, err)
		return result, err
	}
	span.SetAttributes(attribute.Int("dlhook.trampolines", result.Trampolines))
	return result, nil
}

func (gp *GeneratePhase) loadConfig(dir string) (*rule.Config, error) {
	path := gp.opts.ConfigPath
	if path == "" {
		path = filepath.Join(dir, util.ConfigFile)
	}
	return rule.LoadConfig(path)
}

// listSources returns the candidate hook sources of dir in name order.
func listSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to read directory %s", dir)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !util.IsGoFile(name) || util.IsGoTestFile(name) {
			continue
		}
		if strings.HasSuffix(name, outputSuffix+".go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (gp *GeneratePhase) generateDir(ctx context.Context, dir string, result *Result) error {
	cfg, err := gp.loadConfig(dir)
	if err != nil {
		return err
	}
	files, err := listSources(dir)
	if err != nil {
		return err
	}
	used := make(map[string]bool)
	// Outputs of failed sources are kept until the source is fixed.
	live := make(map[string]bool)
	generated := 0
	var errs []error
	for _, file := range files {
		out, err1 := gp.generateFile(ctx, file, cfg)
		if err1 != nil {
			live[util.GeneratedName(file, outputSuffix, ".go")] = true
			errs = append(errs, err1)
			continue
		}
		if out == nil {
			continue
		}
		live[out.goFile] = true
		for _, r := range out.rules {
			used[r.Name] = true
		}
		generated++
		result.Files = append(result.Files, out.goFile, out.cFile)
		result.Trampolines += out.trampolines
	}
	for _, r := range cfg.Rules() {
		if !used[r.Name] {
			gp.Warn("Hook rule matched no function", "rule", r.Name, "func", r.GetFuncName(), "dir", dir)
		}
	}
	removed, err := gp.removeStale(dir, live)
	result.Removed = append(result.Removed, removed...)
	if err != nil {
		errs = append(errs, err)
	}
	if err = errors.Join(errs...); err != nil {
		return err
	}
	if generated == 0 {
		gp.Debug("No hook source found", "dir", dir)
		return nil
	}
	modFile, err := gp.syncGoMod(dir)
	if err != nil {
		return err
	}
	if modFile != "" {
		result.ModFiles = append(result.ModFiles, modFile)
	}
	return nil
}

// removeStale deletes the outputs in dir that no hook source produced in this
// run, for example after a source was deleted or lost its last hook. Files
// without the generated header are left alone.
func (gp *GeneratePhase) removeStale(dir string, live map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to read directory %s", dir)
	}
	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, outputSuffix+".go") {
			continue
		}
		goFile := filepath.Join(dir, name)
		if live[goFile] {
			continue
		}
		content, err1 := os.ReadFile(goFile)
		if err1 != nil {
			return removed, ex.Wrapf(err1, "failed to read %s", goFile)
		}
		if !bytes.HasPrefix(content, []byte(util.GeneratedBy)) {
			continue
		}
		cFile := strings.TrimSuffix(goFile, ".go") + ".c"
		for _, stale := range []string{goFile, cFile} {
			err1 = os.Remove(stale)
			if errors.Is(err1, fs.ErrNotExist) {
				continue
			}
			if err1 != nil {
				return removed, ex.Wrapf(err1, "failed to remove stale %s", stale)
			}
			removed = append(removed, stale)
		}
		gp.Info("Removed stale generated files", "go", goFile, "c", cFile)
	}
	return removed, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	"errors"
	"go/build/constraint"
	"go/parser"
	"path/filepath"
	"strconv"

	"github.com/dave/dst"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/internal/ast"
	"github.com/chlorodose/dlhook/tool/internal/hook"
	"github.com/chlorodose/dlhook/tool/internal/rule"
	"github.com/chlorodose/dlhook/tool/util"
)

// annotated is a top-level function marked as a hook, either by a directive
// or by a rule.
type annotated struct {
	index int
	fn    *dst.FuncDecl
	attr  hook.Attribute
	rule  *rule.HookRule
}

type fileOutput struct {
	goFile      string
	cFile       string
	trampolines int
	rules       []*rule.HookRule
}

// findAnnotated returns the hooks of root in declaration order.
func findAnnotated(root *dst.File, ap *ast.AstParser, cfg *rule.Config) ([]annotated, error) {
	var found []annotated
	var errs []error
	for i, decl := range root.Decls {
		fn, ok := decl.(*dst.FuncDecl)
		if !ok {
			continue
		}
		pos := ap.FindPosition(fn)
		var payloads []string
		for _, line := range fn.Decs.Start.All() {
			if payload, isDirective := hook.ParseDirective(line); isDirective {
				payloads = append(payloads, payload)
			}
		}
		var r *rule.HookRule
		if !ast.HasReceiver(fn) {
			r = cfg.RuleFor(fn.Name.Name)
		}
		switch {
		case len(payloads) > 1:
			errs = append(errs, &hook.Error{Kind: hook.AttributeError, Pos: pos,
				Msg: "only one " + hook.Directive + " directive is allowed per function"})
		case len(payloads) == 1 && r != nil:
			errs = append(errs, &hook.Error{Kind: hook.AttributeError, Pos: pos,
				Msg: fn.Name.Name + " has both a directive and the rule " + strconv.Quote(r.Name)})
		case len(payloads) == 1:
			found = append(found, annotated{index: i, fn: fn,
				attr: hook.Attribute{Payload: payloads[0], Pos: pos}})
		case r != nil:
			found = append(found, annotated{index: i, fn: fn,
				attr: hook.OriginAttribute(r.Origin, pos), rule: r})
		}
	}
	return found, errors.Join(errs...)
}

// requiresTag reports whether the build constraint of root only holds when tag
// is set.
func requiresTag(root *dst.File, tag string) bool {
	for _, line := range root.Decs.Start.All() {
		if !constraint.IsGoBuild(line) {
			continue
		}
		expr, err := constraint.Parse(line)
		if err != nil {
			return false
		}
		with := expr.Eval(func(string) bool { return true })
		without := expr.Eval(func(t string) bool { return t != tag })
		return with && !without
	}
	return false
}

// stripHeader removes build constraints and leading blank lines from the file
// header and marks the file as generated.
func stripHeader(root *dst.File) {
	kept := make([]string, 0, len(root.Decs.Start))
	for _, line := range root.Decs.Start.All() {
		if constraint.IsGoBuild(line) || constraint.IsPlusBuild(line) {
			continue
		}
		if line == "\n" && len(kept) == 0 {
			continue
		}
		kept = append(kept, line)
	}
	header := []string{util.GeneratedBy, "\n"}
	root.Decs.Start.Replace(append(header, kept...)...)
}

func stripDirectives(fn *dst.FuncDecl) {
	kept := make([]string, 0, len(fn.Decs.Start))
	for _, line := range fn.Decs.Start.All() {
		if _, isDirective := hook.ParseDirective(line); isDirective {
			continue
		}
		kept = append(kept, line)
	}
	// Drop the empty comment line that separated the doc from the directive
	for len(kept) > 0 && (kept[len(kept)-1] == "//" || kept[len(kept)-1] == "\n") {
		kept = kept[:len(kept)-1]
	}
	fn.Decs.Start.Replace(kept...)
}

func importsC(root *dst.File) bool {
	for _, i := range root.Imports {
		if ast.IsStringLit(i.Path, "C") {
			return true
		}
	}
	return false
}

// generateFile turns one hook source into <base>_dlhook.go and
// <base>_dlhook.c. It returns nil without error when the file contains no
// hook. Nothing is written unless every hook in the file is valid.
func (gp *GeneratePhase) generateFile(ctx context.Context, path string, cfg *rule.Config) (*fileOutput, error) {
	ctx, span := gp.tracer.Start(ctx, "GenerateFile",
		trace.WithAttributes(attribute.String("dlhook.file", path)))
	defer span.End()

	ap := ast.NewAstParser()
	root, err := ap.Parse(path, parser.ParseComments)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	hooks, err := findAnnotated(root, ap, cfg)
	if err != nil {
		err = ex.Wrapf(err, "failed to generate %s", path)
		recordError(span, err)
		return nil, err
	}
	if len(hooks) == 0 {
		return nil, nil
	}
	if !requiresTag(root, cfg.Tag) {
		err = ex.Newf("hook source %s must be constrained with //go:build %s", path, cfg.Tag)
		recordError(span, err)
		return nil, err
	}

	artifacts := make([]*hook.GeneratedArtifact, 0, len(hooks))
	var errs []error
	for _, h := range hooks {
		art, err1 := hook.Transform(h.attr, h.fn, ap)
		if err1 != nil {
			errs = append(errs, err1)
			continue
		}
		gp.Debug("Generated trampoline", "hook", h.fn.Name.Name,
			"origin", art.ExportName, "trampoline", art.InternalName)
		artifacts = append(artifacts, art)
	}
	if err = errors.Join(errs...); err != nil {
		err = ex.Wrapf(err, "failed to generate %s", path)
		recordError(span, err)
		return nil, err
	}

	out := &fileOutput{
		goFile:      util.GeneratedName(path, outputSuffix, ".go"),
		cFile:       util.GeneratedName(path, outputSuffix, ".c"),
		trampolines: len(artifacts),
	}
	for i, h := range hooks {
		filled := artifacts[i].Hook.Source
		stripDirectives(filled)
		root.Decls[h.index] = filled
		if h.rule != nil {
			out.rules = append(out.rules, h.rule)
		}
	}
	stripHeader(root)
	if !importsC(root) {
		ast.AddImportDecl(root, ast.ImportDecl("", "C"))
	}
	ast.AddImportDecl(root, ast.ImportDecl(hook.RuntimeAlias, hook.RuntimePath))
	for _, art := range artifacts {
		root.Decls = append(root.Decls, art.Trampoline)
	}

	if err = ast.WriteFile(out.goFile, root); err != nil {
		recordError(span, err)
		return nil, err
	}
	cContent := hook.RenderStubs(util.GeneratedBy, artifacts)
	if err = util.WriteFileAtomic(out.cFile, cContent); err != nil {
		recordError(span, err)
		return nil, err
	}

	gp.emitted.Add(ctx, int64(len(artifacts)),
		metric.WithAttributes(attribute.String("dlhook.file", filepath.Base(path))))
	span.SetAttributes(attribute.Int("dlhook.trampolines", len(artifacts)))
	gp.Info("Generated hook source", "source", path, "go", out.goFile, "c", out.cFile,
		"trampolines", len(artifacts))
	return out, nil
}

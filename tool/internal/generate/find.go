// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/tools/go/packages"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/util"
)

// findPackageDirs expands package patterns into the directories holding their
// sources. Hook sources are excluded by their build constraint, so files the
// build ignores count as well.
func (gp *GeneratePhase) findPackageDirs(ctx context.Context, dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedModule,
		Logf: func(format string, args ...any) {
			gp.logger.Debug(fmt.Sprintf("go/packages: "+format, args...))
		},
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to load packages %v", patterns)
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			gp.Debug("Package loaded with error", "package", pkg.PkgPath, "error", e)
		}
		files := make([]string, 0, len(pkg.GoFiles)+len(pkg.IgnoredFiles))
		files = append(files, pkg.GoFiles...)
		files = append(files, pkg.IgnoredFiles...)
		for _, file := range files {
			if !util.IsGoFile(file) {
				continue
			}
			d := filepath.Dir(file)
			if !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
		}
		if len(files) == 0 {
			gp.Warn("Package has no Go files", "package", pkg.PkgPath)
		}
	}
	sort.Strings(dirs)
	gp.Debug("Found package directories", "patterns", patterns, "dirs", dirs)
	return dirs, nil
}

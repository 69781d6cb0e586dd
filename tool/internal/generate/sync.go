// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/util"
)

// runtimeVersion is the version of the dlhook module this binary was built
// from, or "" for development builds.
func runtimeVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	if info.Main.Path == util.DlhookRoot && semver.IsValid(info.Main.Version) {
		return info.Main.Version
	}
	for _, dep := range info.Deps {
		if dep.Path == util.DlhookRoot && semver.IsValid(dep.Version) {
			return dep.Version
		}
	}
	return ""
}

// findGoMod walks up from dir to the closest go.mod.
func findGoMod(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", ex.Wrapf(err, "failed to get absolute path of %s", dir)
	}
	for {
		candidate := filepath.Join(dir, "go.mod")
		if _, err = os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", ex.Wrapf(err, "failed to stat %s", candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func parseGoMod(gomod string) (*modfile.File, error) {
	data, err := os.ReadFile(gomod)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to read go.mod file")
	}
	modFile, err := modfile.Parse(gomod, data, nil)
	if err != nil {
		return nil, ex.Wrapf(err, "failed to parse go.mod file")
	}
	return modFile, nil
}

func writeGoMod(gomod string, modFile *modfile.File) error {
	modFile.Cleanup()
	data, err := modFile.Format()
	if err != nil {
		return ex.Wrapf(err, "failed to format go.mod file")
	}
	return util.WriteFileAtomic(gomod, data)
}

// syncGoMod makes the module owning dir require the runtime package imported
// by generated code. It returns the go.mod it changed, if any.
func (gp *GeneratePhase) syncGoMod(dir string) (string, error) {
	gomod, err := findGoMod(dir)
	if err != nil {
		return "", err
	}
	if gomod == "" {
		gp.Warn("No go.mod found, skip adding runtime requirement", "dir", dir)
		return "", nil
	}
	modFile, err := parseGoMod(gomod)
	if err != nil {
		return "", err
	}
	if modFile.Module != nil && modFile.Module.Mod.Path == util.DlhookRoot {
		return "", nil
	}
	for _, r := range modFile.Require {
		if r.Mod.Path == util.DlhookRoot {
			gp.Debug("Runtime already required", "gomod", gomod, "version", r.Mod.Version)
			return "", nil
		}
	}
	if gp.runtimeVersion == "" {
		gp.Warn("Unknown runtime version, add the requirement manually",
			"gomod", gomod, "module", util.DlhookRoot)
		return "", nil
	}
	if err = modFile.AddRequire(util.DlhookRoot, gp.runtimeVersion); err != nil {
		return "", ex.Wrapf(err, "failed to add requirement to %s", gomod)
	}
	if err = writeGoMod(gomod, modFile); err != nil {
		return "", err
	}
	gp.Info("Added runtime requirement, run go mod tidy to update go.sum",
		"gomod", gomod, "version", gp.runtimeVersion)
	return gomod, nil
}

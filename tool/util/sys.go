// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/chlorodose/dlhook/tool/ex"
)

func runCmd(ctx context.Context, dir string, env []string, args ...string) error {
	path := args[0]
	args = args[1:]
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	err := cmd.Run()
	if err != nil {
		if dir != "" {
			return ex.Wrapf(err, "failed to run command %s in %s", path, dir)
		}
		return ex.Wrapf(err, "failed to run command %s", path)
	}
	return nil
}

func RunCmd(ctx context.Context, args ...string) error {
	return runCmd(ctx, "", nil, args...)
}

func RunCmdWithEnv(ctx context.Context, env []string, args ...string) error {
	return runCmd(ctx, "", env, args...)
}

func RunCmdInDir(ctx context.Context, dir string, args ...string) error {
	return runCmd(ctx, dir, nil, args...)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return ex.Wrapf(err, "failed to create temp file for %s", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return ex.Wrapf(err, "failed to write %s", tmp.Name())
	}
	if err = tmp.Close(); err != nil {
		return ex.Wrapf(err, "failed to close %s", tmp.Name())
	}
	//nolint:gosec // generated sources are meant to be world readable
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return ex.Wrapf(err, "failed to chmod %s", tmp.Name())
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return ex.Wrapf(err, "failed to rename %s to %s", tmp.Name(), path)
	}
	return nil
}

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/util"
)

//nolint:gochecknoglobals // Implementation of a CLI command
var commandRun = cli.Command{
	Name:        "run",
	Description: "Run a command with a hook library preloaded",
	ArgsUsage:   "-- <command> [args]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      "lib",
			Usage:     "Shared library built by dlhook build",
			Required:  true,
			TakesFile: true,
		},
	},
	Before: addLoggerPhaseAttribute,
	Action: func(ctx context.Context, cmd *cli.Command) error {
		args := cmd.Args().Slice()
		if len(args) == 0 {
			return ex.New("missing command to run")
		}
		lib, err := filepath.Abs(cmd.String("lib"))
		if err != nil {
			return ex.Wrapf(err, "failed to get absolute path of %s", cmd.String("lib"))
		}
		if _, err = os.Stat(lib); err != nil {
			return ex.Wrapf(err, "hook library %s is not available", lib)
		}
		key, err := util.PreloadEnv()
		if err != nil {
			return err
		}
		env := preloadEnviron(os.Environ(), key, lib, util.IsDarwin())
		util.LoggerFromContext(ctx).DebugContext(ctx, "Run with preload", "env", key, "lib", lib, "args", args)
		return util.RunCmdWithEnv(ctx, env, args...)
	},
}

// preloadEnviron returns environ with lib preloaded through key. With
// flatNamespace set, dyld also resolves symbols of two-level namespace images
// through the flat namespace, which lets the preloaded definitions win over
// the libraries those images were linked against.
func preloadEnviron(environ []string, key, lib string, flatNamespace bool) []string {
	existing := ""
	for _, kv := range environ {
		if value, ok := strings.CutPrefix(kv, key+"="); ok {
			existing = value
		}
	}
	env := util.AppendEnv(environ, key, preloadValue(lib, existing))
	if flatNamespace {
		env = util.AppendEnv(env, util.EnvFlatNamespace, "1")
	}
	return env
}

// preloadValue puts lib in front of the libraries already preloaded.
func preloadValue(lib, existing string) string {
	if existing == "" {
		return lib
	}
	return lib + ":" + existing
}

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/internal/hook"
	"github.com/chlorodose/dlhook/tool/util"
)

//nolint:gochecknoglobals // Implementation of a CLI command
var commandVersion = cli.Command{
	Name:        "version",
	Description: "Print the version of the tool",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Also print the toolchain, the platform and how hook libraries are preloaded",
		},
	},
	Before: addLoggerPhaseAttribute,
	Action: func(_ context.Context, cmd *cli.Command) error {
		report := versionString()
		if cmd.Bool("verbose") {
			report += verboseDetails()
		}
		if _, err := fmt.Fprintln(cmd.Root().Writer, report); err != nil {
			return ex.Wrapf(err, "failed to print version with exit code %d", exitCodeFailure)
		}
		return nil
	},
}

// versionString renders "dlhook version <v>[+<commit>][ (<time>)]".
func versionString() string {
	var sb strings.Builder
	sb.WriteString("dlhook version ")
	sb.WriteString(Version)
	if CommitHash != "unknown" {
		sb.WriteString("+" + CommitHash)
	}
	if BuildTime != "unknown" {
		sb.WriteString(" (" + BuildTime + ")")
	}
	return sb.String()
}

func verboseDetails() string {
	preload, err := util.PreloadEnv()
	if err != nil {
		preload = "unsupported"
	}
	return fmt.Sprintf("\n%s %s/%s\nruntime: %s\npreload: %s",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, hook.RuntimePath, preload)
}

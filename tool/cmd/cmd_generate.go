// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/internal/generate"
)

//nolint:gochecknoglobals // Implementation of a CLI command
var commandGenerate = cli.Command{
	Name:        "generate",
	Description: "Generate trampolines and export stubs for the hooks in the given packages",
	ArgsUsage:   "[packages]",
	Before:      addLoggerPhaseAttribute,
	Action: func(ctx context.Context, cmd *cli.Command) error {
		result, err := generate.Generate(ctx, cmd.Args().Slice(), generateOptions(cmd))
		if err != nil {
			return ex.Wrapf(err, "failed to generate with exit code %d", exitCodeFailure)
		}
		_, err = fmt.Fprintf(cmd.Root().Writer, "generated %d trampolines in %d files\n",
			result.Trampolines, len(result.Files))
		if err != nil {
			return ex.Wrap(err)
		}
		return nil
	},
}

func generateOptions(cmd *cli.Command) generate.Options {
	return generate.Options{ConfigPath: cmd.Root().String(flagConfig)}
}

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/util"
)

const (
	exitCodeFailure = 1

	flagDebug      = "debug"
	flagConfig     = "config"
	flagOtelStdout = "otel-stdout"
)

//nolint:gochecknoglobals // set up in Before, released in After
var shutdownTelemetry func(context.Context) error

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "dlhook",
		Usage: "Generate LD_PRELOAD hooks from Go functions",
		Description: "dlhook turns Go functions annotated with //dlhook:hook into C symbols " +
			"that override the ones of the same name in other shared libraries.",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "Enable debug logs",
			},
			&cli.StringFlag{
				Name:      flagConfig,
				Usage:     "Rules file used instead of " + util.ConfigFile + " in each package",
				TakesFile: true,
			},
			&cli.BoolFlag{
				Name:    flagOtelStdout,
				Usage:   "Print traces and metrics of the tool to stderr",
				Sources: cli.EnvVars("DLHOOK_OTEL_STDOUT"),
			},
		},
		Commands: []*cli.Command{
			&commandGenerate,
			&commandBuild,
			&commandRun,
			&commandVersion,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			if cmd.Bool(flagDebug) {
				level = slog.LevelDebug
			}
			logger := util.NewLogger(cmd.ErrWriter, level)
			ctx = util.ContextWithLogger(ctx, logger)

			if cmd.Bool(flagOtelStdout) {
				shutdown, err := setupTelemetry(ctx, cmd.ErrWriter)
				if err != nil {
					return ctx, err
				}
				shutdownTelemetry = shutdown
			}
			return ctx, nil
		},
		After: func(ctx context.Context, _ *cli.Command) error {
			if shutdownTelemetry == nil {
				return nil
			}
			err := shutdownTelemetry(ctx)
			shutdownTelemetry = nil
			return err
		},
	}
}

// addLoggerPhaseAttribute tags every log record of a command with its name.
func addLoggerPhaseAttribute(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logger := util.LoggerFromContext(ctx).With("phase", cmd.Name)
	return util.ContextWithLogger(ctx, logger), nil
}

func main() {
	app := newApp()
	app.ErrWriter = os.Stderr
	err := app.Run(context.Background(), os.Args)
	if err != nil {
		ex.Fatal(err)
	}
}

// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/chlorodose/dlhook/tool/ex"
	"github.com/chlorodose/dlhook/tool/internal/generate"
	"github.com/chlorodose/dlhook/tool/util"
)

const buildModeShared = "-buildmode=c-shared"

// goBuildValueFlags are the go build flags that consume the next argument
// when written without "=".
//
//nolint:gochecknoglobals // constant table
var goBuildValueFlags = []string{
	"-C", "-o", "-p", "-asmflags", "-buildmode", "-compiler", "-covermode",
	"-coverpkg", "-gccgoflags", "-gcflags", "-installsuffix", "-ldflags",
	"-mod", "-modfile", "-overlay", "-pgo", "-pkgdir", "-tags", "-toolexec",
}

//nolint:gochecknoglobals // Implementation of a CLI command
var commandBuild = cli.Command{
	Name:            "build",
	Description:     "Generate trampolines, then build the packages as a preloadable shared library",
	ArgsUsage:       "[go build flags] [packages]",
	SkipFlagParsing: true,
	Before:          addLoggerPhaseAttribute,
	Action: func(ctx context.Context, cmd *cli.Command) error {
		logger := util.LoggerFromContext(ctx)
		flags, patterns := splitBuildArgs(cmd.Args().Slice())

		result, err := generate.Generate(ctx, patterns, generateOptions(cmd))
		if err != nil {
			return ex.Wrapf(err, "failed to generate with exit code %d", exitCodeFailure)
		}
		for _, gomod := range result.ModFiles {
			err = util.RunCmdInDir(ctx, filepath.Dir(gomod), "go", "mod", "tidy")
			if err != nil {
				return ex.Wrapf(err, "failed to run go mod tidy")
			}
		}
		if hasTag(util.FindFlagValue(flags, "-tags"), util.DefaultTag) {
			logger.WarnContext(ctx, "Building with the hook source tag compiles the hook sources "+
				"next to the generated files", "tag", util.DefaultTag)
		}

		args := buildCommand(flags, patterns)
		logger.InfoContext(ctx, "Build shared library", "args", args)
		return util.RunCmd(ctx, args...)
	},
}

// splitBuildArgs separates go build flags from package patterns.
func splitBuildArgs(args []string) ([]string, []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return args[:i], args[i+1:]
		}
		if !strings.HasPrefix(arg, "-") {
			return args[:i], args[i:]
		}
		name := "-" + strings.TrimLeft(arg, "-")
		if !strings.Contains(name, "=") && slices.Contains(goBuildValueFlags, name) {
			i++
		}
	}
	return args, nil
}

func buildCommand(flags, patterns []string) []string {
	args := []string{"go", "build"}
	if !util.HasFlag(flags, "-buildmode") && !util.HasFlag(flags, "--buildmode") {
		args = append(args, buildModeShared)
	}
	args = append(args, flags...)
	return append(args, patterns...)
}

func hasTag(tags, tag string) bool {
	return slices.Contains(strings.FieldsFunc(tags, func(r rune) bool {
		return r == ',' || r == ' '
	}), tag)
}

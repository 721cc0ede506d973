// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Command pinset computes one set of Python dependency pins that is valid for every supported
// interpreter version.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/datawire/pinset/pkg/cliutil"
)

var logLevel string

var argparser = &cobra.Command{
	Use:   "pinset {[flags]|SUBCOMMAND...}",
	Short: "Pin Python dependencies across interpreter versions",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,

	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		ctx, err := cliutil.WithLogger(cmd.Context(), cmd.ErrOrStderr(), logLevel)
		if err != nil {
			return cliutil.FlagErrorFunc(cmd, err)
		}
		cmd.SetContext(ctx)
		return nil
	},

	SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
	SilenceUsage:  true, // FlagErrorFunc reports usage errors
}

func init() {
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log at `LEVEL`: debug, info, warning, or error")
}

func main() {
	ctx := context.Background()

	err := argparser.ExecuteContext(ctx)
	var usage *cliutil.UsageError
	if err != nil && !errors.As(err, &usage) {
		fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
	}
	os.Exit(cliutil.ExitCode(err))
}

// Copyright (C) 2020  Ambassador Labs (for Telepresence)
// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0
//
// Contains code from
// https://github.com/telepresenceio/telepresence/blob/3b63073ceafae6b548c664a83f7ac90497eab2ae/pkg/client/cli/command.go

package cliutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Process exit statuses.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// UsageError is a command-line mistake.  By the time one is returned from Execute, it has
// already been reported to the user along with a pointer to --help.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// ExitCode maps an error returned from (*cobra.Command).Execute to a process exit status.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsage
	default:
		return ExitFailure
	}
}

// OnlySubcommands is a cobra.PositionalArgs for commands that only dispatch to subcommands.  An
// unknown subcommand is a usage error, with suggestions if any subcommand is spelled similarly.
func OnlySubcommands(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	err := fmt.Errorf("invalid subcommand %q", args[0])
	if cmd.SuggestionsMinimumDistance <= 0 {
		cmd.SuggestionsMinimumDistance = 2
	}
	if suggestions := cmd.SuggestionsFor(args[0]); len(suggestions) > 0 {
		err = fmt.Errorf("%w\nDid you mean one of these?\n\t%s", err, strings.Join(suggestions, "\n\t"))
	}
	return cmd.FlagErrorFunc()(cmd, err)
}

// WrapPositionalArgs routes a cobra.PositionalArgs failure through FlagErrorFunc, so that a
// wrong argument count is reported like a bad flag.
func WrapPositionalArgs(inner cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return FlagErrorFunc(cmd, inner(cmd, args))
	}
}

// RunSubcommands is the RunE of a command that only has subcommands.  Running it bare prints the
// help to stderr and fails, rather than letting cobra count it as success.
func RunSubcommands(cmd *cobra.Command, args []string) error {
	cmd.SetOut(cmd.ErrOrStderr())
	cmd.HelpFunc()(cmd, args)
	return &UsageError{Err: fmt.Errorf("%s: a subcommand is required", cmd.CommandPath())}
}

// FlagErrorFunc is for (*cobra.Command).SetFlagErrorFunc.  It prints err GNU-style, followed by a
// pointer to --help, and returns it as a *UsageError.
func FlagErrorFunc(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}

	// A multi-line message gets a blank line before the "See --help" line.
	msg := strings.TrimRight(err.Error(), "\n")
	if strings.Contains(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\nSee '%s --help' for more information.\n",
		cmd.CommandPath(), msg, cmd.CommandPath())
	return &UsageError{Err: err}
}

// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil_test

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/datawire/pinset/pkg/cliutil"
)

// commandTree mirrors the shape of the pinset command line.
func commandTree() (root, compile *cobra.Command) {
	root = &cobra.Command{
		Use:   "pinset {[flags]|SUBCOMMAND...}",
		Short: "Pin Python dependencies across interpreter versions",
		Args:  cliutil.OnlySubcommands,
		RunE:  cliutil.RunSubcommands,

		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	root.SetHelpTemplate(cliutil.HelpTemplate)
	root.PersistentFlags().String("log-level", "info",
		"Log at `LEVEL`: debug, info, warning, or error")

	compile = &cobra.Command{
		Use:   "compile [flags]",
		Short: "Write a requirements.txt that works on every interpreter version",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		Long: "Resolve the project's dependencies separately for each interpreter version, " +
			"then merge the results into one set of pins." +
			"\n\n" +
			"LIMITATION: Checksums and signatures of the fetched distributions are not " +
			"recorded in the manifest.",
		Example: "  pinset compile --python-versions=3.10,3.11",
		RunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
	}
	compile.Flags().StringP("directory", "C", ".",
		"Pin the project in `DIR`, which has a pyproject.toml or PKG-INFO")
	compile.Flags().String("report", "",
		"Also write the pins and any conflicts to `FILE` as YAML")
	root.AddCommand(compile)
	return root, compile
}

func renderHelp(root, cmd *cobra.Command) string {
	var out strings.Builder
	root.SetOut(&out)
	cmd.HelpFunc()(cmd, nil)
	return out.String()
}

func assertFits(t *testing.T, width int, text string) {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		assert.LessOrEqual(t, len(line), width, "line too long: %q", line)
	}
}

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestHelpTemplate(t *testing.T) {
	t.Setenv("COLUMNS", "80")

	t.Run("compile", func(t *testing.T) {
		root, compile := commandTree()
		help := renderHelp(root, compile)

		assert.True(t, strings.HasPrefix(help, ""+
			// 0      1         2         3         4         5         6         7         8
			// 345678901234567890123456789012345678901234567890123456789012345678901234567890
			"Usage: pinset compile [flags]\n"+
			"Write a requirements.txt that works on every interpreter version\n"+
			"\n"+
			"Resolve the project's dependencies separately for each interpreter\n"+
			"version, then merge the results into one set of pins.\n"+
			"\n"+
			"LIMITATION: Checksums and signatures of the fetched distributions are not\n"+
			"recorded in the manifest.\n"+
			"\n"+
			"Examples:\n"+
			"  pinset compile --python-versions=3.10,3.11\n"+
			"\n"+
			"Flags:\n"), help)
		assert.Contains(t, help, "-C, --directory DIR")
		assert.Contains(t, help, "--report FILE")
		assert.Contains(t, help, "\nGlobal Flags:\n")
		assert.Contains(t, help, "--log-level LEVEL")
		assert.NotContains(t, help, "Available Commands:")
		assertFits(t, 80, help)
	})

	t.Run("root", func(t *testing.T) {
		root, _ := commandTree()
		help := renderHelp(root, root)

		assert.True(t, strings.HasPrefix(help, ""+
			"Usage: pinset {[flags]|SUBCOMMAND...}\n"+
			"Pin Python dependencies across interpreter versions\n"+
			"\n"+
			"Available Commands:\n"+
			"  compile       Write a requirements.txt that works on every interpreter\n"+
			"                version\n"+
			"\n"+
			"Flags:\n"), help)
		assert.True(t, strings.HasSuffix(help,
			"\nUse \"pinset [command] --help\" for more information about a command.\n"), help)
		assertFits(t, 80, help)
	})
}

//nolint:paralleltest // can't use .Parallel() with .Setenv()
func TestTerminalWidth(t *testing.T) {
	t.Setenv("COLUMNS", "123")
	assert.Equal(t, 123, cliutil.TerminalWidth())
}

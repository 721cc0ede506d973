// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/datawire/pinset/pkg/cliutil"
	"github.com/datawire/pinset/pkg/config"
	"github.com/datawire/pinset/pkg/pinset"
)

func init() {
	var cfg config.Config
	var pythonStrs []string
	cmd := &cobra.Command{
		Use:   "candidates [flags] NAME",
		Short: "List the releases of a package that the index offers",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pys, err := config.ParsePythons(pythonStrs)
			if err != nil {
				return cliutil.FlagErrorFunc(cmd, err)
			}
			source, err := newSource(&cfg)
			if err != nil {
				return err
			}
			candidates, err := source.Candidates(ctx, args[0])
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				return &pinset.ConfigurationError{Msg: args[0] + ": no releases found on the index"}
			}

			w := table.NewWriter()
			w.SetOutputMirror(cmd.OutOrStdout())
			w.SetStyle(table.StyleLight)
			header := table.Row{"version", "requires-python", "yanked"}
			for _, py := range pys {
				header = append(header, py.String())
			}
			w.AppendHeader(header)
			for _, c := range candidates {
				row := table.Row{c.Version, c.RequiresPython, yesNo(c.Yanked)}
				for _, py := range pys {
					row = append(row, yesNo(c.SupportsPython(py)))
				}
				w.AppendRow(row)
			}
			w.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.IndexURL, "index-url", "",
		"Read packages from the PEP 503 index at `URL` (default https://pypi.org/simple/)")
	cmd.Flags().StringSliceVar(&pythonStrs, "python-versions", nil,
		"Add a column saying whether each release supports the interpreter `VERSIONS`")

	argparser.AddCommand(cmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

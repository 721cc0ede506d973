// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datawire/pinset/pkg/cliutil"
	"github.com/datawire/pinset/pkg/python/endoflife"
	"github.com/datawire/pinset/pkg/reproducible"
)

func init() {
	var client endoflife.Client
	cmd := &cobra.Command{
		Use:   "pythons [flags]",
		Short: "List the Python 3 releases that are currently supported",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		Long: "List the Python 3 release cycles that have not reached their end of life, " +
			"according to endoflife.date.  These are the interpreter versions that compile " +
			"pins for when --python-versions is not given." +
			"\n\n" +
			"The current time is taken from SOURCE_DATE_EPOCH if it is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := client.ActivePython3(cmd.Context(), reproducible.Today())
			if err != nil {
				return err
			}
			for _, pair := range active {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d.%d\n", pair[0], pair[1]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&client.URL, "url", endoflife.DefaultURL,
		"Read release cycles from `URL`")

	argparser.AddCommand(cmd)
}

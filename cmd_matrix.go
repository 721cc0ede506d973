// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/datawire/pinset/pkg/cliutil"
	"github.com/datawire/pinset/pkg/pinset/matrix"
	"github.com/datawire/pinset/pkg/pinset/project"
)

func init() {
	var flags settingsFlags
	cmd := &cobra.Command{
		Use:   "matrix [flags]",
		Short: "List the environments that compile would resolve",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			proj, err := project.Load(flags.Directory)
			if err != nil {
				return err
			}
			pys, err := pythons(ctx, cfg)
			if err != nil {
				return err
			}
			envs, err := matrix.Build(proj, pys, cfg.ExtrasSelection())
			if err != nil {
				return err
			}
			for _, env := range envs {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), env); err != nil {
					return err
				}
			}
			return nil
		},
	}
	flags.addFlags(cmd)

	argparser.AddCommand(cmd)
}

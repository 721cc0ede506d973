// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/datawire/pinset/pkg/cliutil"
	"github.com/datawire/pinset/pkg/manifest"
	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/pinset/matrix"
	"github.com/datawire/pinset/pkg/pinset/pipeline"
	"github.com/datawire/pinset/pkg/pinset/project"
	"github.com/datawire/pinset/pkg/pinset/solver"
	"github.com/datawire/pinset/pkg/report"
)

func init() {
	argparser.AddCommand(newCompileCommand())
}

func newCompileCommand() *cobra.Command {
	var flags settingsFlags
	var reportFile string
	cmd := &cobra.Command{
		Use:   "compile [flags]",
		Short: "Write a requirements.txt that works on every interpreter version",
		Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		Long: "Resolve the project's dependencies separately for each interpreter version, " +
			"then merge the results into one set of pins.  Where the versions disagree, " +
			"the highest release that every interpreter accepts is used; a pin that only " +
			"some interpreters need is restricted to them with a python_version marker." +
			"\n\n" +
			"If no common set of pins exists, every conflict is printed, nothing is " +
			"written, and the exit status is 1." +
			"\n\n" +
			"LIMITATION: Checksums and signatures of the fetched distributions are not " +
			"recorded in the manifest.",
		Example: "  pinset compile --python-versions=3.10,3.11,3.12\n" +
			"  pinset compile -C ./myproject --extras=none --filename=constraints.txt --report=pins.yml",

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
			dest, err := manifest.Destination(flags.Directory, cfg.Filename)
			if err != nil {
				return err
			}
			source, err := newSource(cfg)
			if err != nil {
				return err
			}
			policy, err := cfg.PreReleasePolicy()
			if err != nil {
				return err
			}

			set, err := pipeline.Run(ctx, source, proj, envs, pipeline.Options{
				Concurrency: cfg.Concurrency,
				Solver: solver.Options{
					PreReleases: policy,
					MaxSteps:    cfg.MaxSteps,
					Platform:    cfg.Platform,
				},
			})
			stats := source.Stats()
			dlog.Debugf(ctx, "metadata cache: %d hits, %d fetches, %d shared", stats.Hits, stats.Fetches, stats.Shared)

			var conflicts *pinset.ConflictsError
			if err != nil && !errors.As(err, &conflicts) {
				return err
			}
			if reportFile != "" {
				if err := report.New(set, envs).WriteFile(reportFile); err != nil {
					return err
				}
				dlog.Infof(ctx, "wrote report to %s", reportFile)
			}
			if conflicts != nil {
				if err := report.PrintConflicts(cmd.OutOrStdout(), conflicts.Conflicts); err != nil {
					return err
				}
				return fmt.Errorf("no pin set works in every environment (%d conflicts); %s was not written",
					len(conflicts.Conflicts), dest)
			}

			changed, err := manifest.Write(dest, set, envs, cfg.Header)
			if err != nil {
				return err
			}
			if changed {
				dlog.Infof(ctx, "wrote %d pins to %s", len(set.Pins), dest)
			} else {
				dlog.Infof(ctx, "%s is up to date", dest)
			}
			return nil
		},
	}
	flags.addFlags(cmd)
	cmd.Flags().StringVar(&reportFile, "report", "",
		"Also write the pins and any conflicts to `FILE` as YAML")
	return cmd
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pipeline runs a whole pin computation: every environment is resolved on a bounded
// pool of workers sharing one metadata cache, and the results are merged.
package pipeline

import (
	"context"
	"errors"
	"runtime"

	"github.com/datawire/dlib/dlog"
	"golang.org/x/sync/errgroup"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/pinset/merge"
	"github.com/datawire/pinset/pkg/pinset/solver"
)

type Options struct {
	// Concurrency bounds how many environments are resolved at once; 0 means GOMAXPROCS.
	Concurrency int
	Solver      solver.Options
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// Run resolves project in each of envs and merges the results.
//
// An unsatisfiable environment does not stop the other environments; its trace is collected
// along with any merge conflicts.  If any conflicts were collected, Run returns the (partial) pin
// set together with a *pinset.ConflictsError.  Any other error (a *pinset.ConfigurationError, a
// *pinset.MetadataFetchError, or ctx being cancelled) cancels the outstanding workers and is
// returned without a pin set.
func Run(ctx context.Context, source solver.Source, project pinset.ProjectSpec, envs []pinset.Environment, opts Options) (*pinset.MergedPinSet, error) {
	if err := project.Validate(); err != nil {
		return nil, err
	}
	if len(envs) == 0 {
		return nil, &pinset.ConfigurationError{Msg: "no environments to resolve"}
	}

	dlog.Infof(ctx, "resolving %s in %d environments", project.Name, len(envs))
	resolver := solver.New(source, opts.Solver)
	results := make([]*pinset.EnvironmentResolution, len(envs))
	traces := make([]*pinset.ConflictTrace, len(envs))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.concurrency())
	for i, env := range envs {
		i, env := i, env
		grp.Go(func() error {
			dlog.Debugf(grpCtx, "resolving %s", env)
			res, err := resolver.Resolve(grpCtx, project, env)
			var unsat *pinset.UnsatisfiableEnvironmentError
			switch {
			case errors.As(err, &unsat):
				dlog.Warnf(grpCtx, "%s is unsatisfiable: %s", env, unsat.Trace.Reason)
				traces[i] = &unsat.Trace
				return nil
			case err != nil:
				return err
			}
			dlog.Infof(grpCtx, "resolved %s: %d packages", env, len(res.Pins))
			results[i] = res
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var resolved []*pinset.EnvironmentResolution
	var conflicts []pinset.ConflictTrace
	for i := range envs {
		if results[i] != nil {
			resolved = append(resolved, results[i])
		}
		if traces[i] != nil {
			conflicts = append(conflicts, *traces[i])
		}
	}

	set, err := merge.Merge(ctx, source, resolved, merge.Options{
		Concurrency: opts.Concurrency,
		Platform:    opts.Solver.Platform,
	})
	if err != nil {
		return nil, err
	}
	set.Conflicts = append(conflicts, set.Conflicts...)
	if !set.OK() {
		return set, &pinset.ConflictsError{Conflicts: set.Conflicts}
	}
	dlog.Infof(ctx, "merged %d pins", len(set.Pins))
	return set, nil
}

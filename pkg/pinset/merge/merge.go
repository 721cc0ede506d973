// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package merge combines per-environment resolutions into a single pin set.
package merge

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/datawire/dlib/dlog"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
	"github.com/datawire/pinset/pkg/python/pep592"
)

// Source is where reconciliation re-queries candidates; normally a *metacache.Cache.
type Source interface {
	Candidates(ctx context.Context, name string) ([]pinset.CandidateVersion, error)
	Requirements(ctx context.Context, name string, version pep440.Version) ([]pinset.Requirement, error)
}

type Options struct {
	// Concurrency bounds parallel re-queries; 0 means GOMAXPROCS.
	Concurrency int
	// Platform overrides marker variables other than the Python version.
	Platform map[string]string
}

// usage is one package as seen across environments.
type usage struct {
	name    string
	results []*pinset.EnvironmentResolution
}

func (u usage) environments() []string {
	ret := make([]string, 0, len(u.results))
	for _, res := range u.results {
		ret = append(ret, res.Environment.String())
	}
	return ret
}

func (u usage) agree() bool {
	first := u.results[0].Pins[u.name]
	for _, res := range u.results[1:] {
		if !res.Pins[u.name].Equal(first) {
			return false
		}
	}
	return true
}

func (u usage) choices() []pinset.EnvironmentChoice {
	ret := make([]pinset.EnvironmentChoice, 0, len(u.results))
	for _, res := range u.results {
		ret = append(ret, pinset.EnvironmentChoice{
			Environment: res.Environment.String(),
			Version:     res.Pins[u.name],
		})
	}
	return ret
}

// Merge produces a pin for every package that any environment needs.  Packages on which the
// environments disagree are reconciled to the newest version that every environment accepts;
// those for which there is no such version are reported as conflicts and left out of the pins.
// The returned error is only for failed index lookups.
func Merge(ctx context.Context, source Source, results []*pinset.EnvironmentResolution, opts Options) (*pinset.MergedPinSet, error) {
	usages := collect(results)

	var disputed []string
	for _, name := range sortedKeys(usages) {
		if !usages[name].agree() {
			disputed = append(disputed, name)
		}
	}
	candidates, err := requery(ctx, source, disputed, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	ret := &pinset.MergedPinSet{}
	final := make(map[string]pep440.Version, len(usages))
	for _, name := range sortedKeys(usages) {
		use := usages[name]
		pin := pinset.Pin{
			Name:         name,
			Environments: use.environments(),
		}
		if use.agree() {
			pin.Version = use.results[0].Pins[name]
		} else {
			ver, ok := reconcile(use, candidates[name])
			if !ok {
				ret.Conflicts = append(ret.Conflicts, conflict(use, candidates[name]))
				continue
			}
			pin.Version = ver
			pin.Superseded = true
			dlog.Infof(ctx, "merge: %s: environments chose different versions; reconciled to %s", name, ver)
		}
		final[name] = pin.Version
		ret.Pins = append(ret.Pins, pin)
	}

	verified, err := verify(ctx, source, usages, final, opts.Platform)
	if err != nil {
		return nil, err
	}
	ret.Conflicts = append(ret.Conflicts, verified...)
	return ret, nil
}

func collect(results []*pinset.EnvironmentResolution) map[string]*usage {
	ret := make(map[string]*usage)
	for _, res := range results {
		for _, name := range res.Names() {
			use, ok := ret[name]
			if !ok {
				use = &usage{name: name}
				ret[name] = use
			}
			use.results = append(use.results, res)
		}
	}
	return ret
}

func sortedKeys(usages map[string]*usage) []string {
	ret := make([]string, 0, len(usages))
	for name := range usages {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func requery(ctx context.Context, source Source, names []string, concurrency int) (map[string][]pinset.CandidateVersion, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	lists := make([][]pinset.CandidateVersion, len(names))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(concurrency)
	for i, name := range names {
		i, name := i, name
		grp.Go(func() error {
			cands, err := source.Candidates(grpCtx, name)
			if err != nil {
				return err
			}
			lists[i] = cands
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	ret := make(map[string][]pinset.CandidateVersion, len(names))
	for i, name := range names {
		ret[name] = lists[i]
	}
	return ret, nil
}

// reconcile returns the newest candidate that every environment's active requirements on the
// package accept, and that supports every environment's Python.  A pre-release is only chosen if
// some environment chose one or a requirement asks for one.
func reconcile(use *usage, cands []pinset.CandidateVersion) (pep440.Version, bool) {
	var spec pep440.Specifier
	allowPre := false
	for _, res := range use.results {
		for _, req := range res.ActiveFor(use.name) {
			spec = append(spec, req.Specifier...)
		}
		if res.Pins[use.name].IsPreRelease() {
			allowPre = true
		}
	}
	if spec.MentionsPreRelease() {
		allowPre = true
	}

	var vers, unselectable []pep440.Version
	for _, cand := range cands {
		supported := true
		for _, res := range use.results {
			if !cand.SupportsPython(res.Environment.Python) {
				supported = false
				break
			}
		}
		if !supported {
			continue
		}
		vers = append(vers, cand.Version)
		if !pep592.Selectable(spec, cand.Version, cand.Yanked) {
			unselectable = append(unselectable, cand.Version)
		}
	}
	excluded := pep440.MultiExcluder{pep592.ExcludeYanked(unselectable)}
	if !allowPre {
		excluded = append(excluded, pep440.ExcludePreReleases{})
	}
	// Select falls back to excluded versions when nothing else matches, but those are not
	// acceptable here.
	best := spec.Select(vers, excluded)
	if best == nil || !excluded.Allow(*best) {
		return pep440.Version{}, false
	}
	return *best, true
}

func conflict(use *usage, cands []pinset.CandidateVersion) pinset.ConflictTrace {
	trace := pinset.ConflictTrace{
		Kind:         pinset.ConflictMerge,
		Package:      use.name,
		Environments: use.environments(),
		Choices:      use.choices(),
	}
	var chosen []pep440.Version
	for _, choice := range trace.Choices {
		chosen = append(chosen, choice.Version)
	}
	for _, res := range use.results {
		for _, req := range res.ActiveFor(use.name) {
			trace.Links = append(trace.Links, pinset.ConflictLink{
				Environment: res.Environment.String(),
				Requirement: req,
				Rejecting:   rejecting(req.Specifier, chosen),
			})
		}
	}
	for _, cand := range cands {
		trace.Available = append(trace.Available, cand.Version)
	}
	return trace
}

// rejecting returns the clauses of spec that reject at least one of vers.
func rejecting(spec pep440.Specifier, vers []pep440.Version) pep440.Specifier {
	var ret pep440.Specifier
	seen := sets.New[string]()
	for _, ver := range vers {
		for _, clause := range spec.Rejecting(ver) {
			if !seen.Has(clause.String()) {
				seen.Insert(clause.String())
				ret = append(ret, clause)
			}
		}
	}
	return ret
}

// verify checks the dependencies of every reconciled pin against the final pins, in each
// environment that needs it.  A reconciled version may depend on things that the version an
// environment originally chose did not.
func verify(ctx context.Context, source Source, usages map[string]*usage, final map[string]pep440.Version, platform map[string]string) ([]pinset.ConflictTrace, error) {
	var ret []pinset.ConflictTrace
	reported := sets.New[string]()
	for _, name := range sortedKeys(usages) {
		use := usages[name]
		ver, ok := final[name]
		if !ok || use.agree() {
			continue
		}
		deps, err := source.Requirements(ctx, name, ver)
		if err != nil {
			return nil, err
		}
		for _, res := range use.results {
			env := markerEnvironment(res, name, platform)
			for _, dep := range deps {
				if !dep.Applies(env) {
					continue
				}
				trace := check(res, dep, final)
				if trace == nil || reported.Has(trace.Package+" "+trace.Reason) {
					continue
				}
				reported.Insert(trace.Package + " " + trace.Reason)
				dlog.Debugf(ctx, "merge: %s", trace)
				ret = append(ret, *trace)
			}
		}
	}
	return ret, nil
}

// markerEnvironment is the environment that name's dependencies are evaluated in: res's Python,
// with whatever extras of name were requested in res.
func markerEnvironment(res *pinset.EnvironmentResolution, name string, platform map[string]string) pep508.Environment {
	extras := sets.New[string]()
	for _, req := range res.ActiveFor(name) {
		extras.Insert(req.Extras...)
	}
	py := res.Environment.Python
	return pep508.PythonEnvironment(py.Major, py.Minor, platform).WithExtras(sets.List(extras)...)
}

func check(res *pinset.EnvironmentResolution, dep pinset.Requirement, final map[string]pep440.Version) *pinset.ConflictTrace {
	env := res.Environment.String()
	trace := &pinset.ConflictTrace{
		Kind:         pinset.ConflictMerge,
		Package:      dep.Name,
		Environments: []string{env},
	}
	ver, pinned := final[dep.Name]
	_, needed := res.Pins[dep.Name]
	switch {
	case needed && !pinned:
		// Already reported as a conflict of its own.
		return nil
	case !needed:
		trace.Reason = fmt.Sprintf("reconciled %s==%s requires %s, which %s did not resolve",
			dep.Origin.Parent, dep.Origin.ParentVersion, dep.Name, env)
		trace.Links = []pinset.ConflictLink{{Environment: env, Requirement: dep}}
		return trace
	}
	if dep.Specifier.Match(ver) {
		return nil
	}
	trace.Reason = fmt.Sprintf("reconciled %s==%s rejects the merged %s==%s",
		dep.Origin.Parent, dep.Origin.ParentVersion, dep.Name, ver)
	trace.Links = []pinset.ConflictLink{{
		Environment: env,
		Requirement: dep,
		Rejecting:   dep.Specifier.Rejecting(ver),
	}}
	trace.Choices = []pinset.EnvironmentChoice{{Environment: env, Version: ver}}
	return trace
}

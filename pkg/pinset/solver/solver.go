// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package solver resolves a project's requirements for a single environment.
//
// The search binds one package at a time, always picking the unbound package with the fewest
// remaining candidates (ties broken by name), and trying its candidates newest-first.  Choice
// points are kept on an explicit stack; when a package has no candidate left, the search resumes
// from the most recent choice point's next candidate.
package solver

import (
	"context"
	"fmt"

	"github.com/datawire/dlib/dlog"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
	"github.com/datawire/pinset/pkg/python/pep592"
)

// Source is where the solver gets package metadata; normally a *metacache.Cache.
type Source interface {
	Candidates(ctx context.Context, name string) ([]pinset.CandidateVersion, error)
	Requirements(ctx context.Context, name string, version pep440.Version) ([]pinset.Requirement, error)
}

const DefaultMaxSteps = 100000

type Options struct {
	PreReleases PreReleasePolicy
	// MaxSteps bounds the number of candidate bindings tried; 0 means DefaultMaxSteps.
	MaxSteps int
	// Platform overrides marker variables other than the Python version.
	Platform map[string]string
}

type Resolver struct {
	source Source
	opts   Options
}

func New(source Source, opts Options) *Resolver {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	return &Resolver{source: source, opts: opts}
}

type choicePoint struct {
	name       string
	candidates []pinset.CandidateVersion
	next       int
	base       *state
}

// run is the bookkeeping for one Resolve call.
type run struct {
	*Resolver
	project pinset.ProjectSpec
	env     pinset.Environment
	markers pep508.Environment
	steps   int
	trace   *pinset.ConflictTrace
}

// Resolve computes one version for every package that the project needs in env.  If there is no
// such assignment, the error is an *pinset.UnsatisfiableEnvironmentError; any other error is
// fatal (a failed index lookup, or ctx being cancelled).
func (r *Resolver) Resolve(ctx context.Context, project pinset.ProjectSpec, env pinset.Environment) (*pinset.EnvironmentResolution, error) {
	ctx = dlog.WithField(ctx, "environment", env.String())
	rn := &run{
		Resolver: r,
		project:  project,
		env:      env,
		markers:  pep508.PythonEnvironment(env.Python.Major, env.Python.Minor, r.opts.Platform),
	}

	st := newState()
	if trace, err := rn.addRequirements(ctx, st, rn.directRequirements()); err != nil {
		return nil, err
	} else if trace != nil {
		return nil, &pinset.UnsatisfiableEnvironmentError{Trace: *trace}
	}

	var stack []*choicePoint
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, cands, trace, err := rn.pick(ctx, st)
		if err != nil {
			return nil, err
		}
		switch {
		case name == "":
			dlog.Debugf(ctx, "resolved %d packages in %d steps", len(st.bound), rn.steps)
			return rn.resolution(st), nil
		case trace != nil:
			rn.record(trace)
		default:
			stack = append(stack, &choicePoint{name: name, candidates: cands, base: st})
		}
		var ok bool
		st, stack, ok, err = rn.advance(ctx, stack)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &pinset.UnsatisfiableEnvironmentError{Trace: *rn.trace}
		}
	}
}

// directRequirements is the project's requirements plus those of the environment's extras,
// following self-references ("myproject[other-extra]") to further extras.
func (rn *run) directRequirements() []pinset.Requirement {
	self := pep508.NormalizeName(rn.project.Name)
	extras := sets.New[string]()
	var ret []pinset.Requirement
	var add func(reqs []pinset.Requirement)
	addExtra := func(extra string) {
		if extras.Has(extra) {
			return
		}
		extras.Insert(extra)
		add(rn.project.Extras[extra])
	}
	add = func(reqs []pinset.Requirement) {
		for _, req := range reqs {
			if req.Name == self {
				for _, extra := range req.Extras {
					addExtra(extra)
				}
				continue
			}
			ret = append(ret, req)
		}
	}
	add(rn.project.Requirements)
	for _, extra := range rn.env.Extras {
		addExtra(extra)
	}
	return ret
}

// markerEnvFor returns the marker environment that a package's own dependencies are evaluated
// in.  An empty name is the project itself.
func (rn *run) markerEnvFor(st *state, name string) pep508.Environment {
	if name == "" {
		return rn.markers.WithExtras(rn.env.Extras...)
	}
	extras := st.extras[name]
	if extras == nil {
		return rn.markers.WithExtras()
	}
	return rn.markers.WithExtras(extras.UnsortedList()...)
}

func (rn *run) record(trace *pinset.ConflictTrace) {
	if rn.trace == nil {
		rn.trace = trace
	}
}

func (rn *run) resolution(st *state) *pinset.EnvironmentResolution {
	pins := make(map[string]pep440.Version, len(st.bound))
	for name, cand := range st.bound {
		pins[name] = cand.Version
	}
	return &pinset.EnvironmentResolution{
		Environment: rn.env,
		Pins:        pins,
		Active:      st.active,
	}
}

// advance binds the next untried candidate of the innermost choice point, popping exhausted
// choice points.  ok is false once the stack is empty.
func (rn *run) advance(ctx context.Context, stack []*choicePoint) (_ *state, _ []*choicePoint, ok bool, _ error) {
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		for top.next < len(top.candidates) {
			if err := ctx.Err(); err != nil {
				return nil, nil, false, err
			}
			rn.steps++
			if rn.steps > rn.opts.MaxSteps {
				rn.trace = &pinset.ConflictTrace{
					Kind:         pinset.ConflictUnsatisfiable,
					Package:      top.name,
					Environments: []string{rn.env.String()},
					Reason:       fmt.Sprintf("search limit exceeded (%d steps)", rn.opts.MaxSteps),
				}
				return nil, nil, false, nil
			}
			cand := top.candidates[top.next]
			top.next++
			st := top.base.clone()
			trace, err := rn.bind(ctx, st, cand)
			if err != nil {
				return nil, nil, false, err
			}
			if trace == nil {
				dlog.Debugf(ctx, "step %d: %s", rn.steps, cand)
				return st, stack, true, nil
			}
			dlog.Debugf(ctx, "step %d: %s rejected: %s", rn.steps, cand, trace.Reason)
			rn.record(trace)
		}
		stack = stack[:len(stack)-1]
	}
	return nil, nil, false, nil
}

// pick chooses the next package to bind.  It returns an empty name when every required package
// is bound, or a trace if some package has no candidates left.
func (rn *run) pick(ctx context.Context, st *state) (string, []pinset.CandidateVersion, *pinset.ConflictTrace, error) {
	var bestName string
	var bestCands []pinset.CandidateVersion
	for _, name := range st.unbound() {
		cands, trace, err := rn.candidates(ctx, st, name)
		if err != nil {
			return "", nil, nil, err
		}
		if trace != nil {
			return name, nil, trace, nil
		}
		if bestName == "" || len(cands) < len(bestCands) {
			bestName, bestCands = name, cands
		}
	}
	return bestName, bestCands, nil, nil
}

// candidates returns the releases of name that satisfy every requirement collected in st, in
// order of preference.
func (rn *run) candidates(ctx context.Context, st *state, name string) ([]pinset.CandidateVersion, *pinset.ConflictTrace, error) {
	all, err := rn.source.Candidates(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	spec := st.specifier(name)

	var forPython []pinset.CandidateVersion
	var unselectable []pep440.Version
	for _, cand := range all {
		if !cand.SupportsPython(rn.env.Python) {
			continue
		}
		forPython = append(forPython, cand)
		if !pep592.Selectable(spec, cand.Version, cand.Yanked) {
			unselectable = append(unselectable, cand.Version)
		}
	}
	vers := make([]pep440.Version, 0, len(forPython))
	for _, cand := range forPython {
		vers = append(vers, cand.Version)
	}

	// Filter only falls back to "soft" exclusions when nothing else matches; "hard" exclusions
	// are never candidates.
	unyanked := pep592.ExcludeYanked(unselectable)
	soft := pep440.MultiExcluder{unyanked}
	hard := pep440.MultiExcluder{unyanked}
	if !spec.MentionsPreRelease() {
		switch rn.opts.PreReleases {
		case PreReleasesIfNeeded:
			soft = append(soft, pep440.ExcludePreReleases{})
		case PreReleasesDeny:
			soft = append(soft, pep440.ExcludePreReleases{})
			hard = append(hard, pep440.ExcludePreReleases{})
		}
	}
	chosen := make(map[string]struct{})
	for _, ver := range spec.Filter(vers, soft) {
		if hard.Allow(ver) {
			chosen[ver.String()] = struct{}{}
		}
	}
	var ret []pinset.CandidateVersion
	for _, cand := range forPython {
		if _, ok := chosen[cand.Version.String()]; ok {
			ret = append(ret, cand)
		}
	}
	if len(ret) > 0 {
		return ret, nil, nil
	}

	matching := spec.Filter(vers, nil)
	selectable := 0
	for _, ver := range matching {
		if unyanked.Allow(ver) {
			selectable++
		}
	}

	var reason string
	switch {
	case len(all) == 0:
		reason = "no releases found on the index"
	case len(forPython) == 0:
		reason = fmt.Sprintf("no release supports Python %s", rn.env.Python)
	case selectable > 0:
		reason = "only pre-releases match, and pre-releases are denied"
	case len(matching) > 0:
		reason = "every matching release has been yanked"
	}
	return nil, rn.conflict(st, name, forPython, reason), nil
}

// conflict builds the trace for a package whose versions are all rejected.
func (rn *run) conflict(st *state, name string, available []pinset.CandidateVersion, reason string) *pinset.ConflictTrace {
	trace := &pinset.ConflictTrace{
		Kind:         pinset.ConflictUnsatisfiable,
		Package:      name,
		Environments: []string{rn.env.String()},
		Reason:       reason,
	}
	for _, cand := range available {
		trace.Available = append(trace.Available, cand.Version)
	}
	for _, req := range st.reqs[name] {
		trace.Links = append(trace.Links, pinset.ConflictLink{
			Environment: rn.env.String(),
			Requirement: req,
			Rejecting:   rejecting(req.Specifier, trace.Available),
		})
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

// bind binds a candidate in st and adds its dependencies.  It returns a trace if that
// contradicts an existing binding.
func (rn *run) bind(ctx context.Context, st *state, cand pinset.CandidateVersion) (*pinset.ConflictTrace, error) {
	st.bound[cand.Name] = cand
	deps, err := rn.dependencies(ctx, st, cand, nil)
	if err != nil {
		return nil, err
	}
	return rn.addRequirements(ctx, st, deps)
}

// dependencies returns the dependencies of a bound candidate that apply given the extras
// requested of it, excluding those that already applied given oldExtras.
func (rn *run) dependencies(ctx context.Context, st *state, cand pinset.CandidateVersion, oldExtras sets.Set[string]) ([]pinset.Requirement, error) {
	reqs, err := rn.source.Requirements(ctx, cand.Name, cand.Version)
	if err != nil {
		return nil, err
	}
	env := rn.markerEnvFor(st, cand.Name)
	var oldEnv *pep508.Environment
	if oldExtras != nil {
		e := rn.markers.WithExtras(oldExtras.UnsortedList()...)
		oldEnv = &e
	}
	var ret []pinset.Requirement
	for _, req := range reqs {
		if !req.Applies(env) {
			continue
		}
		if oldEnv != nil && req.Applies(*oldEnv) {
			continue
		}
		ret = append(ret, req)
	}
	return ret, nil
}

// addRequirements merges requirements into st.  Requirements that request new extras of an
// already-bound package pull in that package's extra dependencies too.
func (rn *run) addRequirements(ctx context.Context, st *state, reqs []pinset.Requirement) (*pinset.ConflictTrace, error) {
	queue := append([]pinset.Requirement(nil), reqs...)
	for len(queue) > 0 {
		req := queue[0]
		queue = queue[1:]

		var parentEnv pep508.Environment
		if req.Origin.Kind == pinset.OriginTransitive {
			parentEnv = rn.markerEnvFor(st, req.Origin.Parent)
		} else {
			parentEnv = rn.markerEnvFor(st, "")
		}
		if !req.Applies(parentEnv) {
			continue
		}

		st.reqs[req.Name] = append(st.reqs[req.Name], req)
		st.active = append(st.active, req)

		oldExtras := st.extras[req.Name]
		if oldExtras == nil {
			oldExtras = sets.New[string]()
		}
		newExtras := oldExtras.Clone().Insert(req.Extras...)
		addedExtras := newExtras.Len() > oldExtras.Len()
		st.extras[req.Name] = newExtras

		cand, isBound := st.bound[req.Name]
		if !isBound {
			continue
		}
		if !req.Specifier.Match(cand.Version) || !pep592.Selectable(st.specifier(req.Name), cand.Version, cand.Yanked) {
			trace := rn.conflict(st, req.Name, []pinset.CandidateVersion{cand}, "")
			trace.Reason = fmt.Sprintf("%s was already chosen", cand)
			return trace, nil
		}
		if addedExtras {
			more, err := rn.dependencies(ctx, st, cand, oldExtras)
			if err != nil {
				return nil, err
			}
			queue = append(queue, more...)
		}
	}
	return nil, nil
}

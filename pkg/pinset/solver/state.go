// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package solver

import (
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep440"
)

// state is the accumulated constraints and bindings at one node of the search tree.  A state is
// never modified once a choice point refers to it; each binding works on a clone.
type state struct {
	reqs   map[string][]pinset.Requirement
	extras map[string]sets.Set[string]
	bound  map[string]pinset.CandidateVersion
	active []pinset.Requirement
}

func newState() *state {
	return &state{
		reqs:   make(map[string][]pinset.Requirement),
		extras: make(map[string]sets.Set[string]),
		bound:  make(map[string]pinset.CandidateVersion),
	}
}

func (s *state) clone() *state {
	ret := &state{
		reqs:   make(map[string][]pinset.Requirement, len(s.reqs)),
		extras: make(map[string]sets.Set[string], len(s.extras)),
		bound:  make(map[string]pinset.CandidateVersion, len(s.bound)),
		active: append([]pinset.Requirement(nil), s.active...),
	}
	for name, reqs := range s.reqs {
		ret.reqs[name] = append([]pinset.Requirement(nil), reqs...)
	}
	for name, extras := range s.extras {
		ret.extras[name] = extras.Clone()
	}
	for name, cand := range s.bound {
		ret.bound[name] = cand
	}
	return ret
}

// unbound returns the required-but-unbound package names, sorted.
func (s *state) unbound() []string {
	var ret []string
	for name := range s.reqs {
		if _, ok := s.bound[name]; !ok {
			ret = append(ret, name)
		}
	}
	sort.Strings(ret)
	return ret
}

// specifier is the conjunction of every requirement on the package.
func (s *state) specifier(name string) pep440.Specifier {
	var ret pep440.Specifier
	for _, req := range s.reqs[name] {
		ret = append(ret, req.Specifier...)
	}
	return ret
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pinset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datawire/pinset/pkg/python/pep440"
)

// CandidateVersion is one release of a package that the index offers.
type CandidateVersion struct {
	Name           string
	Version        pep440.Version
	RequiresPython pep440.Specifier
	Yanked         bool
}

// SupportsPython reports whether the release can be installed on py.
func (c CandidateVersion) SupportsPython(py InterpreterVersion) bool {
	return c.RequiresPython.Match(py.FullVersion())
}

func (c CandidateVersion) String() string {
	return c.Name + "==" + c.Version.String()
}

// EnvironmentResolution is the outcome of resolving one environment: exactly one version per
// required package, and every requirement that was active while doing so.
type EnvironmentResolution struct {
	Environment Environment
	Pins        map[string]pep440.Version
	// Active is in the order the requirements were encountered.
	Active []Requirement
}

// Names returns the pinned package names, sorted.
func (r EnvironmentResolution) Names() []string {
	ret := make([]string, 0, len(r.Pins))
	for name := range r.Pins {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// ActiveFor returns the active requirements on the named package.
func (r EnvironmentResolution) ActiveFor(name string) []Requirement {
	var ret []Requirement
	for _, req := range r.Active {
		if req.Name == name {
			ret = append(ret, req)
		}
	}
	return ret
}

// String renders the pins one per line, sorted by name.
func (r EnvironmentResolution) String() string {
	var ret strings.Builder
	for _, name := range r.Names() {
		fmt.Fprintf(&ret, "%s==%s\n", name, r.Pins[name])
	}
	return ret.String()
}

// Pin is one entry of a MergedPinSet.
type Pin struct {
	Name    string         `json:"name"`
	Version pep440.Version `json:"version"`
	// Environments lists (by Environment.String) the environments that need the package.
	Environments []string `json:"environments"`
	// Superseded is set if at least one environment had resolved a different version, and the
	// version was chosen by reconciliation.
	Superseded bool `json:"superseded,omitempty"`
}

// MergedPinSet is the result of merging every environment's resolution.
type MergedPinSet struct {
	// Pins is sorted by name.
	Pins      []Pin
	Conflicts []ConflictTrace
}

func (m MergedPinSet) Lookup(name string) (Pin, bool) {
	i := sort.Search(len(m.Pins), func(i int) bool { return m.Pins[i].Name >= name })
	if i < len(m.Pins) && m.Pins[i].Name == name {
		return m.Pins[i], true
	}
	return Pin{}, false
}

// OK reports whether the pin set may be written out.
func (m MergedPinSet) OK() bool {
	return len(m.Conflicts) == 0
}

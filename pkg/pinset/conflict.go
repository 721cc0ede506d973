// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pinset

import (
	"fmt"
	"strings"

	"github.com/datawire/pinset/pkg/python/pep440"
)

type ConflictKind int

const (
	// ConflictUnsatisfiable is a single environment that has no solution.
	ConflictUnsatisfiable ConflictKind = iota
	// ConflictMerge is a package for which no one version works in every environment.
	ConflictMerge
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictUnsatisfiable:
		return "unsatisfiable"
	case ConflictMerge:
		return "merge"
	default:
		return fmt.Sprintf("ConflictKind(%d)", int(k))
	}
}

func (k ConflictKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ConflictLink is one requirement that contributed to a conflict.
type ConflictLink struct {
	Environment string      `json:"environment"`
	Requirement Requirement `json:"requirement"`
	// Rejecting is the part of the requirement's specifier that excluded the versions in
	// question; it is empty if the requirement did not exclude any of them.
	Rejecting pep440.Specifier `json:"rejecting,omitempty"`
}

// EnvironmentChoice is the version an environment resolved a package to on its own.
type EnvironmentChoice struct {
	Environment string         `json:"environment"`
	Version     pep440.Version `json:"version"`
}

// ConflictTrace explains why no version of Package works.
type ConflictTrace struct {
	Kind         ConflictKind        `json:"kind"`
	Package      string              `json:"package"`
	Environments []string            `json:"environments"`
	Links        []ConflictLink      `json:"links,omitempty"`
	Choices      []EnvironmentChoice `json:"choices,omitempty"`
	// Available lists the versions that were considered, newest first.
	Available []pep440.Version `json:"available,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

func (t ConflictTrace) String() string {
	var ret strings.Builder
	switch t.Kind {
	case ConflictUnsatisfiable:
		fmt.Fprintf(&ret, "%s: no version of %s satisfies every requirement",
			strings.Join(t.Environments, ","), t.Package)
	default:
		fmt.Fprintf(&ret, "no single version of %s works in every environment (%s)",
			t.Package, strings.Join(t.Environments, ", "))
	}
	if t.Reason != "" {
		fmt.Fprintf(&ret, ": %s", t.Reason)
	}
	for _, choice := range t.Choices {
		fmt.Fprintf(&ret, "\n  %s resolved %s==%s", choice.Environment, t.Package, choice.Version)
	}
	for _, link := range t.Links {
		fmt.Fprintf(&ret, "\n  %s requires %s (from %s)", link.Environment, link.Requirement, link.Requirement.Origin)
		if len(link.Rejecting) > 0 {
			fmt.Fprintf(&ret, ", which rejects with %s", link.Rejecting)
		}
	}
	if len(t.Available) > 0 {
		strs := make([]string, 0, len(t.Available))
		for _, ver := range t.Available {
			strs = append(strs, ver.String())
		}
		fmt.Fprintf(&ret, "\n  available: %s", strings.Join(strs, ", "))
	} else if t.Kind == ConflictUnsatisfiable && t.Reason == "" {
		ret.WriteString("\n  available: (none)")
	}
	return ret.String()
}

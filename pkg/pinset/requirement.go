// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pinset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
)

type OriginKind int

const (
	OriginDirect OriginKind = iota
	OriginExtra
	OriginTransitive
)

// Origin records where a requirement came from.
type Origin struct {
	Kind OriginKind
	// Extra is set for OriginExtra, and for OriginTransitive requirements that the parent
	// only has because of one of its extras.
	Extra string
	// Parent and ParentVersion are set for OriginTransitive.
	Parent        string
	ParentVersion string
}

func (o Origin) String() string {
	switch o.Kind {
	case OriginDirect:
		return "project"
	case OriginExtra:
		return fmt.Sprintf("project[%s]", o.Extra)
	case OriginTransitive:
		if o.Extra != "" {
			return fmt.Sprintf("%s[%s]==%s", o.Parent, o.Extra, o.ParentVersion)
		}
		return fmt.Sprintf("%s==%s", o.Parent, o.ParentVersion)
	default:
		return fmt.Sprintf("Origin(%d)", int(o.Kind))
	}
}

func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Requirement is a dependency on a package, with the package name normalized.
type Requirement struct {
	Name      string
	Specifier pep440.Specifier
	Marker    pep508.Marker
	// Extras of the required package that are requested, normalized and sorted.
	Extras []string
	Origin Origin
}

func NewRequirement(req pep508.Requirement, origin Origin) Requirement {
	return Requirement{
		Name:      pep508.NormalizeName(req.Name),
		Specifier: req.Specifier,
		Marker:    req.Marker,
		Extras:    req.Extras,
		Origin:    origin,
	}
}

// ParseRequirement parses a PEP 508 string into a Requirement.
func ParseRequirement(str string, origin Origin) (Requirement, error) {
	req, err := pep508.ParseRequirement(str)
	if err != nil {
		return Requirement{}, err
	}
	return NewRequirement(*req, origin), nil
}

// MustParseRequirement is like ParseRequirement but panics on error.
func MustParseRequirement(str string, origin Origin) Requirement {
	req, err := ParseRequirement(str, origin)
	if err != nil {
		panic(err)
	}
	return req
}

func (r Requirement) String() string {
	var ret strings.Builder
	ret.WriteString(r.Name)
	if len(r.Extras) > 0 {
		ret.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	ret.WriteString(r.Specifier.String())
	if r.Marker != nil {
		ret.WriteString("; " + r.Marker.String())
	}
	return ret.String()
}

func (r Requirement) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Applies reports whether the requirement's marker (if any) holds in env.
func (r Requirement) Applies(env pep508.Environment) bool {
	return r.Marker == nil || r.Marker.Evaluate(env)
}

// ProjectSpec is the project being pinned.
type ProjectSpec struct {
	Name         string
	Requirements []Requirement
	// Extras maps normalized extra names to the additional requirements they bring in.
	Extras map[string][]Requirement
}

// ExtraNames returns the declared extras, sorted.
func (p ProjectSpec) ExtraNames() []string {
	ret := make([]string, 0, len(p.Extras))
	for name := range p.Extras {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Validate checks that every requirement's specifier could be satisfied by some version.
func (p ProjectSpec) Validate() error {
	check := func(req Requirement) error {
		if !req.Specifier.Satisfiable() {
			return &ConfigurationError{
				Msg: fmt.Sprintf("%s: requirement %q can never be satisfied", req.Origin, req),
			}
		}
		return nil
	}
	for _, req := range p.Requirements {
		if err := check(req); err != nil {
			return err
		}
	}
	for _, name := range p.ExtraNames() {
		for _, req := range p.Extras[name] {
			if err := check(req); err != nil {
				return err
			}
		}
	}
	return nil
}

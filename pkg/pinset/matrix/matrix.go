// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package matrix expands the requested interpreter versions and extras into the list of
// environments that are resolved independently.
package matrix

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep508"
)

// AllExtras is the spelling of "every declared extra" in an extras list.
const AllExtras = "all"

// Extras is a selection of the project's extras.  The zero value selects none.
type Extras struct {
	All   bool
	Names []string
}

// ParseExtras parses a comma-separated extras list; "all" selects every declared extra and "" or
// "none" selects none.
func ParseExtras(str string) Extras {
	var ret Extras
	for _, name := range strings.Split(str, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "", "none":
		case AllExtras:
			ret.All = true
		default:
			ret.Names = append(ret.Names, name)
		}
	}
	return ret
}

func (e Extras) String() string {
	switch {
	case e.All:
		return AllExtras
	case len(e.Names) == 0:
		return "none"
	default:
		return strings.Join(e.Names, ",")
	}
}

// Build returns one environment per interpreter version, each with the selected extras; sorted by
// interpreter version.
func Build(project pinset.ProjectSpec, pythons []pinset.InterpreterVersion, extras Extras) ([]pinset.Environment, error) {
	if len(pythons) == 0 {
		return nil, &pinset.ConfigurationError{Msg: "no interpreter versions requested"}
	}

	declared := sets.New[string](project.ExtraNames()...)
	var selected []string
	if extras.All {
		selected = sets.List(declared)
	} else {
		for _, name := range extras.Names {
			norm := pep508.NormalizeName(name)
			if !declared.Has(norm) {
				return nil, &pinset.ConfigurationError{
					Msg: fmt.Sprintf("extra %q is not declared by %s (declared: %s)",
						name, project.Name, strings.Join(sets.List(declared), ", ")),
				}
			}
			selected = append(selected, norm)
		}
	}

	pythons = pinset.SortInterpreterVersions(pythons)
	ret := make([]pinset.Environment, 0, len(pythons))
	for _, py := range pythons {
		ret = append(ret, pinset.NewEnvironment(py, selected...))
	}
	return ret, nil
}

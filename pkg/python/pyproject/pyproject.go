// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pyproject reads the PEP 621 "[project]" table of a pyproject.toml file.
//
// https://peps.python.org/pep-0621/
package pyproject

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/datawire/pinset/pkg/python/pep508"
)

const Filename = "pyproject.toml"

type File struct {
	Project *Project `toml:"project"`
}

type Project struct {
	Name                 string              `toml:"name"`
	Version              string              `toml:"version"`
	RequiresPython       string              `toml:"requires-python"`
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	Dynamic              []string            `toml:"dynamic"`
}

// Parse decodes pyproject.toml content.  Tables other than [project] are ignored.
func Parse(content []byte) (*File, error) {
	var ret File
	if err := toml.Unmarshal(content, &ret); err != nil {
		return nil, fmt.Errorf("pyproject.Parse: %w", err)
	}
	if ret.Project == nil {
		return nil, fmt.Errorf("pyproject.Parse: no [project] table")
	}
	if ret.Project.Name == "" {
		return nil, fmt.Errorf("pyproject.Parse: [project] has no name")
	}
	return &ret, nil
}

// Load reads and parses dir/pyproject.toml.
func Load(dir string) (*File, error) {
	content, err := os.ReadFile(filepath.Join(dir, Filename))
	if err != nil {
		return nil, err
	}
	return Parse(content)
}

// Requirements parses the project's dependencies.
func (p Project) Requirements() ([]pep508.Requirement, error) {
	return parseRequirements(p.Dependencies)
}

// Extras returns the normalized names of the project's optional-dependency groups, sorted.
func (p Project) Extras() []string {
	ret := make([]string, 0, len(p.OptionalDependencies))
	for name := range p.OptionalDependencies {
		ret = append(ret, pep508.NormalizeName(name))
	}
	sort.Strings(ret)
	return ret
}

// ExtraRequirements parses each optional-dependency group, keyed by normalized extra name.
func (p Project) ExtraRequirements() (map[string][]pep508.Requirement, error) {
	ret := make(map[string][]pep508.Requirement, len(p.OptionalDependencies))
	for name, strs := range p.OptionalDependencies {
		reqs, err := parseRequirements(strs)
		if err != nil {
			return nil, fmt.Errorf("optional-dependencies.%s: %w", name, err)
		}
		key := pep508.NormalizeName(name)
		ret[key] = append(ret[key], reqs...)
	}
	return ret, nil
}

func parseRequirements(strs []string) ([]pep508.Requirement, error) {
	ret := make([]pep508.Requirement, 0, len(strs))
	for _, str := range strs {
		req, err := pep508.ParseRequirement(str)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *req)
	}
	return ret, nil
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package project reads the requirements of the project being pinned.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/coremeta"
	"github.com/datawire/pinset/pkg/python/pep508"
	"github.com/datawire/pinset/pkg/python/pyproject"
)

// PKGInfo is the core metadata file at the top of an unpacked sdist.
const PKGInfo = "PKG-INFO"

// Load reads the project in dir from its pyproject.toml or, failing that, its PKG-INFO.
func Load(dir string) (pinset.ProjectSpec, error) {
	file, err := pyproject.Load(dir)
	switch {
	case err == nil:
		return FromPyProject(*file.Project)
	case !errors.Is(err, fs.ErrNotExist):
		return pinset.ProjectSpec{}, &pinset.ConfigurationError{Msg: pyproject.Filename, Err: err}
	}

	content, err := os.ReadFile(filepath.Join(dir, PKGInfo))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pinset.ProjectSpec{}, &pinset.ConfigurationError{
				Msg: fmt.Sprintf("%s: neither %s nor %s found", dir, pyproject.Filename, PKGInfo),
			}
		}
		return pinset.ProjectSpec{}, err
	}
	md, err := coremeta.Parse(content)
	if err != nil {
		return pinset.ProjectSpec{}, &pinset.ConfigurationError{Msg: PKGInfo, Err: err}
	}
	return FromCoreMetadata(md)
}

// FromPyProject converts a pyproject.toml [project] table.
func FromPyProject(proj pyproject.Project) (pinset.ProjectSpec, error) {
	for _, field := range proj.Dynamic {
		if field == "dependencies" || field == "optional-dependencies" {
			return pinset.ProjectSpec{}, &pinset.ConfigurationError{
				Msg: fmt.Sprintf("%s: %s is dynamic; build the project and point at its PKG-INFO instead",
					pyproject.Filename, field),
			}
		}
	}
	ret := pinset.ProjectSpec{
		Name:   pep508.NormalizeName(proj.Name),
		Extras: make(map[string][]pinset.Requirement),
	}

	reqs, err := proj.Requirements()
	if err != nil {
		return pinset.ProjectSpec{}, &pinset.ConfigurationError{Msg: "dependencies", Err: err}
	}
	for _, req := range reqs {
		ret.Requirements = append(ret.Requirements, pinset.NewRequirement(req, pinset.Origin{Kind: pinset.OriginDirect}))
	}

	extras, err := proj.ExtraRequirements()
	if err != nil {
		return pinset.ProjectSpec{}, &pinset.ConfigurationError{Msg: "optional-dependencies", Err: err}
	}
	for extra, reqs := range extras {
		ret.Extras[extra] = make([]pinset.Requirement, 0, len(reqs))
		for _, req := range reqs {
			ret.Extras[extra] = append(ret.Extras[extra],
				pinset.NewRequirement(req, pinset.Origin{Kind: pinset.OriginExtra, Extra: extra}))
		}
	}

	if err := ret.Validate(); err != nil {
		return pinset.ProjectSpec{}, err
	}
	return ret, nil
}

// FromCoreMetadata converts built metadata, where a requirement belongs to an extra if its marker
// mentions it ("extra == 'dev'").  The marker is kept, and is evaluated with the environment's
// extras.
func FromCoreMetadata(md *coremeta.Metadata) (pinset.ProjectSpec, error) {
	ret := pinset.ProjectSpec{
		Name:   pep508.NormalizeName(md.Name),
		Extras: make(map[string][]pinset.Requirement),
	}
	for _, extra := range md.ProvidesExtra {
		ret.Extras[extra] = nil
	}
	for _, req := range md.RequiresDist {
		extras := pep508.ReferencedExtras(req.Marker)
		if extras.Len() == 0 {
			ret.Requirements = append(ret.Requirements, pinset.NewRequirement(req, pinset.Origin{Kind: pinset.OriginDirect}))
			continue
		}
		for _, extra := range sets.List(extras) {
			ret.Extras[extra] = append(ret.Extras[extra],
				pinset.NewRequirement(req, pinset.Origin{Kind: pinset.OriginExtra, Extra: extra}))
		}
	}

	if err := ret.Validate(); err != nil {
		return pinset.ProjectSpec{}, err
	}
	return ret, nil
}

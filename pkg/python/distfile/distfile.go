// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package distfile parses the filenames of Python distribution files (wheels and sdists) as they
// appear in a package index.
package distfile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/datawire/pinset/pkg/python/pep425"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
)

type Kind int

const (
	KindWheel Kind = iota
	KindSDist
)

func (k Kind) String() string {
	switch k {
	case KindWheel:
		return "wheel"
	case KindSDist:
		return "sdist"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type File struct {
	Filename string
	Kind     Kind
	// Name is the normalized distribution name.
	Name    string
	Version pep440.Version

	// wheels only
	BuildTag         *BuildTag
	CompatibilityTag pep425.Tag
}

type BuildTag struct {
	Int int
	Str string
}

func (t BuildTag) String() string {
	return fmt.Sprintf("%d%s", t.Int, t.Str)
}

var reWheel = regexp.MustCompile(regexp.MustCompile(`\s+`).ReplaceAllString(`
		^(?P<distribution>[^-]+)
		-(?P<version>[^-]+)
		(?:-(?P<build_n>[0-9]+)(?P<build_l>[^-0-9][^-]*)?)?
		-(?P<python>[^-]+)
		-(?P<abi>[^-]+)
		-(?P<platform>[^-]+)
		\.whl$`, ``))

//nolint:gochecknoglobals // Would be 'const'.
var sdistSuffixes = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".zip"}

// Parse parses a wheel or sdist filename.
func Parse(filename string) (*File, error) {
	if strings.HasSuffix(filename, ".whl") {
		return parseWheel(filename)
	}
	for _, suffix := range sdistSuffixes {
		if strings.HasSuffix(filename, suffix) {
			return parseSDist(filename, strings.TrimSuffix(filename, suffix))
		}
	}
	return nil, fmt.Errorf("distfile.Parse: unrecognized distribution filename: %q", filename)
}

func parseWheel(filename string) (*File, error) {
	match := reWheel.FindStringSubmatch(filename)
	if match == nil {
		return nil, fmt.Errorf("distfile.Parse: invalid wheel filename: %q", filename)
	}

	ret := File{
		Filename: filename,
		Kind:     KindWheel,
		Name:     pep508.NormalizeName(match[reWheel.SubexpIndex("distribution")]),
	}

	ver, err := pep440.ParseVersion(match[reWheel.SubexpIndex("version")])
	if err != nil {
		return nil, fmt.Errorf("distfile.Parse: invalid wheel filename: %q: %w", filename, err)
	}
	ret.Version = *ver

	if buildN := match[reWheel.SubexpIndex("build_n")]; buildN != "" {
		n, _ := strconv.Atoi(buildN)
		ret.BuildTag = &BuildTag{
			Int: n,
			Str: match[reWheel.SubexpIndex("build_l")],
		}
	}

	ret.CompatibilityTag = pep425.Tag{
		Python:   match[reWheel.SubexpIndex("python")],
		ABI:      match[reWheel.SubexpIndex("abi")],
		Platform: match[reWheel.SubexpIndex("platform")],
	}

	return &ret, nil
}

// parseSDist splits "{name}-{version}".  Legacy sdist names may themselves contain "-", so the
// version is the longest valid suffix after a "-".
func parseSDist(filename, stem string) (*File, error) {
	for i := strings.IndexByte(stem, '-'); i >= 0; {
		name, verStr := stem[:i], stem[i+1:]
		if ver, err := pep440.ParseVersion(verStr); err == nil && pep508.ValidName(name) {
			return &File{
				Filename: filename,
				Kind:     KindSDist,
				Name:     pep508.NormalizeName(name),
				Version:  *ver,
			}, nil
		}
		next := strings.IndexByte(stem[i+1:], '-')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, fmt.Errorf("distfile.Parse: invalid sdist filename: %q", filename)
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep508

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datawire/pinset/pkg/python/pep440"
)

// Requirement is a single dependency specification, such as
// `requests[socks]>=2.0,<3.0; python_version >= "3.8"`.
type Requirement struct {
	// Name is the distribution name as written; use NormalizeName to compare it.
	Name string
	// Extras are normalized and sorted.
	Extras    []string
	Specifier pep440.Specifier
	// URL is set for "name @ url" requirements, which have no Specifier.
	URL    string
	Marker Marker
}

// ParseRequirement parses a PEP 508 dependency specification.
func ParseRequirement(str string) (*Requirement, error) {
	req, err := parseRequirement(str)
	if err != nil {
		return nil, fmt.Errorf("pep508.ParseRequirement: %q: %w", str, err)
	}
	return req, nil
}

func parseRequirement(str string) (*Requirement, error) {
	var ret Requirement
	rest := strings.TrimSpace(str)

	// name
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !(('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') ||
			r == '.' || r == '-' || r == '_')
	})
	if end < 0 {
		end = len(rest)
	}
	ret.Name = rest[:end]
	if !ValidName(ret.Name) {
		return nil, fmt.Errorf("invalid distribution name: %q", ret.Name)
	}
	rest = strings.TrimSpace(rest[end:])

	// extras
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("unterminated extras list")
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !ValidName(extra) {
				return nil, fmt.Errorf("invalid extra name: %q", extra)
			}
			ret.Extras = append(ret.Extras, NormalizeName(extra))
		}
		sort.Strings(ret.Extras)
		rest = strings.TrimSpace(rest[end+1:])
	}

	// url or version specifier, then marker
	var markerStr string
	hasMarker := false
	if strings.HasPrefix(rest, "@") {
		rest = strings.TrimSpace(rest[1:])
		// The URL may itself contain ";", so the marker must be preceded by whitespace.
		if idx := strings.Index(rest, " ;"); idx >= 0 {
			markerStr, hasMarker = rest[idx+2:], true
			rest = rest[:idx]
		}
		ret.URL = strings.TrimSpace(rest)
		if ret.URL == "" {
			return nil, fmt.Errorf("empty URL")
		}
	} else {
		if idx := strings.IndexByte(rest, ';'); idx >= 0 {
			markerStr, hasMarker = rest[idx+1:], true
			rest = rest[:idx]
		}
		rest = strings.TrimSpace(rest)
		if strings.HasPrefix(rest, "(") {
			if !strings.HasSuffix(rest, ")") {
				return nil, fmt.Errorf("unterminated version specifier")
			}
			rest = rest[1 : len(rest)-1]
		}
		spec, err := pep440.ParseSpecifier(rest)
		if err != nil {
			return nil, err
		}
		if len(spec) > 0 {
			ret.Specifier = spec
		}
	}

	if hasMarker {
		marker, err := ParseMarker(strings.TrimSpace(markerStr))
		if err != nil {
			return nil, err
		}
		ret.Marker = marker
	}

	return &ret, nil
}

// MustParseRequirement is like ParseRequirement but panics on error.
func MustParseRequirement(str string) Requirement {
	req, err := ParseRequirement(str)
	if err != nil {
		panic(err)
	}
	return *req
}

func (req Requirement) String() string {
	var ret strings.Builder
	ret.WriteString(req.Name)
	if len(req.Extras) > 0 {
		ret.WriteString("[" + strings.Join(req.Extras, ",") + "]")
	}
	if req.URL != "" {
		ret.WriteString(" @ " + req.URL)
		if req.Marker != nil {
			ret.WriteString(" ")
		}
	} else {
		ret.WriteString(req.Specifier.String())
	}
	if req.Marker != nil {
		ret.WriteString("; " + req.Marker.String())
	}
	return ret.String()
}

// Applies reports whether the requirement's marker (if any) is true in env.
func (req Requirement) Applies(env Environment) bool {
	return req.Marker == nil || req.Marker.Evaluate(env)
}

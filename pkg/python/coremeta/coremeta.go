// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package coremeta parses Python core metadata; the METADATA file of a wheel, the PKG-INFO file
// of an sdist, or a PEP 658 ".metadata" file served by an index.
//
// https://packaging.python.org/en/latest/specifications/core-metadata/
package coremeta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"

	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
)

type Metadata struct {
	MetadataVersion string
	Name            string
	Version         pep440.Version
	RequiresPython  pep440.Specifier
	RequiresDist    []pep508.Requirement
	// ProvidesExtra holds normalized extra names.
	ProvidesExtra []string
}

// Parse parses a core metadata file.  Only the fields needed for dependency resolution are
// retained.
func Parse(content []byte) (*Metadata, error) {
	md, err := parse(content)
	if err != nil {
		return nil, fmt.Errorf("coremeta.Parse: %w", err)
	}
	return md, nil
}

func parse(content []byte) (*Metadata, error) {
	// Some generators emit a header block with no trailing blank line; ReadMIMEHeader wants one.
	if !bytes.Contains(content, []byte("\n\n")) {
		content = append(append([]byte(nil), content...), '\n', '\n')
	}
	header, err := textproto.NewReader(bufio.NewReader(bytes.NewReader(content))).ReadMIMEHeader()
	if err != nil && !(errors.Is(err, io.EOF) && len(header) > 0) {
		return nil, err
	}

	var ret Metadata
	ret.MetadataVersion = header.Get("Metadata-Version")
	ret.Name = strings.TrimSpace(header.Get("Name"))
	if ret.Name == "" {
		return nil, fmt.Errorf("missing required field %q", "Name")
	}
	verStr := strings.TrimSpace(header.Get("Version"))
	if verStr == "" {
		return nil, fmt.Errorf("missing required field %q", "Version")
	}
	ver, err := pep440.ParseVersion(verStr)
	if err != nil {
		return nil, err
	}
	ret.Version = *ver

	if reqPy := strings.TrimSpace(header.Get("Requires-Python")); reqPy != "" {
		spec, err := pep440.ParseSpecifier(reqPy)
		if err != nil {
			return nil, fmt.Errorf("Requires-Python: %w", err)
		}
		ret.RequiresPython = spec
	}

	for _, reqStr := range header.Values("Requires-Dist") {
		req, err := pep508.ParseRequirement(reqStr)
		if err != nil {
			return nil, fmt.Errorf("Requires-Dist: %w", err)
		}
		ret.RequiresDist = append(ret.RequiresDist, *req)
	}

	for _, extra := range header.Values("Provides-Extra") {
		ret.ProvidesExtra = append(ret.ProvidesExtra, pep508.NormalizeName(strings.TrimSpace(extra)))
	}

	return &ret, nil
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep508 implements PEP 508 -- Dependency specification for Python Software Packages.
//
// https://www.python.org/dev/peps/pep-0508/
package pep508

import (
	"regexp"
	"strings"
)

var (
	reName      = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)
	reNameRunes = regexp.MustCompile(`[-_.]+`)
)

// NormalizeName normalizes a distribution or extra name per PEP 503: lowercased, with runs of
// "-", "_", and "." collapsed to a single "-".
func NormalizeName(name string) string {
	return strings.ToLower(reNameRunes.ReplaceAllLiteralString(name, "-"))
}

// ValidName reports whether name is a valid distribution name.
func ValidName(name string) bool {
	return reName.MatchString(name)
}

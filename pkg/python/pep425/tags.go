// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep425 implements PEP 425 -- Compatibility Tags for Built Distributions.
//
// https://www.python.org/dev/peps/pep-0425/
package pep425

import (
	"strings"
)

type Tag struct {
	Python   string
	ABI      string
	Platform string
}

// Decompress expands a compressed tag set ("py2.py3-none-any") into the individual tags.
func (t Tag) Decompress() []Tag {
	var ret []Tag
	for _, x := range strings.Split(t.Python, ".") {
		for _, y := range strings.Split(t.ABI, ".") {
			for _, z := range strings.Split(t.Platform, ".") {
				ret = append(ret, Tag{x, y, z})
			}
		}
	}
	return ret
}

func (t Tag) String() string {
	return t.Python + "-" + t.ABI + "-" + t.Platform
}

// IsPure reports whether the tag set describes a pure-Python wheel for Python 3, one whose
// metadata is the same on every platform.
func (t Tag) IsPure() bool {
	for _, tag := range t.Decompress() {
		if tag.ABI == "none" && tag.Platform == "any" && strings.HasPrefix(tag.Python, "py3") {
			return true
		}
	}
	return false
}

// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep592 implements PEP 592 -- Adding "Yank" Support to the Simple API.
//
// https://www.python.org/dev/peps/pep-0592/
package pep592

import (
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep503"
)

func IsYanked(l pep503.FileLink) bool {
	_, yanked := l.DataAttrs["data-yanked"]
	return yanked
}

// Reason returns the reason given for yanking the file, which may be empty.
func Reason(l pep503.FileLink) string {
	return l.DataAttrs["data-yanked"]
}

// Selectable reports whether a release may be chosen to satisfy spec.  A yanked release is only
// selectable by a specifier that pins exactly that version with "==".
func Selectable(spec pep440.Specifier, ver pep440.Version, yanked bool) bool {
	if !yanked {
		return true
	}
	pin, ok := spec.ExactPin()
	return ok && pin.PublicVersion.Cmp(ver.PublicVersion) == 0
}

type excludeYanked struct {
	yankedVersions map[string]struct{}
}

// ExcludeYanked returns an ExclusionBehavior that excludes the given versions.
func ExcludeYanked(yanked []pep440.Version) pep440.ExclusionBehavior {
	ret := excludeYanked{
		yankedVersions: make(map[string]struct{}, len(yanked)),
	}
	for _, ver := range yanked {
		ret.yankedVersions[ver.String()] = struct{}{}
	}
	return ret
}

func (e excludeYanked) Allow(v pep440.Version) bool {
	_, yanked := e.yankedVersions[v.String()]
	return !yanked
}

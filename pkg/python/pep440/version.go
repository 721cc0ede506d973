// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// Version is a full version identifier, including any local version label.
type Version = LocalVersion

// ParseVersion parses and normalizes a version identifier.
func ParseVersion(str string) (*Version, error) {
	ver, err := parseVersion(str)
	if err != nil {
		return nil, fmt.Errorf("pep440.ParseVersion: %w", err)
	}
	return ver, nil
}

// MustParseVersion is like ParseVersion but panics on error.  It is intended for constants and
// tests.
func MustParseVersion(str string) Version {
	ver, err := ParseVersion(str)
	if err != nil {
		panic(err)
	}
	return *ver
}

// PublicVersion is the part of a version identifier that is shared with the package index;
// everything except the local version label.
type PublicVersion struct {
	Epoch   int         // N!
	Release []int       // N(.N)*
	Pre     *PreRelease // {a|b|rc}N
	Post    *int        // .postN
	Dev     *int        // .devN
}

// PreRelease is the pre-release segment of a version.  L is normalized to one of "a", "b", or
// "rc".
type PreRelease struct {
	L string
	N int
}

func (ver PublicVersion) GoString() string {
	pre := "nil"
	if ver.Pre != nil {
		pre = fmt.Sprintf("&%#v", *ver.Pre)
	}
	post := "nil"
	if ver.Post != nil {
		post = fmt.Sprintf("intPtr(%#v)", *ver.Post)
	}
	dev := "nil"
	if ver.Dev != nil {
		dev = fmt.Sprintf("intPtr(%#v)", *ver.Dev)
	}
	return fmt.Sprintf("pep440.PublicVersion{Epoch:%d, Release:%#v, Pre:%s, Post:%s, Dev:%s}",
		ver.Epoch, ver.Release, pre, post, dev)
}

func (ver PublicVersion) writeTo(ret *strings.Builder) {
	if ver.Epoch > 0 {
		fmt.Fprintf(ret, "%d!", ver.Epoch)
	}
	if len(ver.Release) == 0 {
		panic("invalid version: no release segments")
	}
	fmt.Fprintf(ret, "%d", ver.Release[0])
	for _, segment := range ver.Release[1:] {
		fmt.Fprintf(ret, ".%d", segment)
	}
	if ver.Pre != nil {
		fmt.Fprintf(ret, "%s%d", ver.Pre.L, ver.Pre.N)
	}
	if ver.Post != nil {
		fmt.Fprintf(ret, ".post%d", *ver.Post)
	}
	if ver.Dev != nil {
		fmt.Fprintf(ret, ".dev%d", *ver.Dev)
	}
}

// String returns the normalized form of the version.
func (ver PublicVersion) String() string {
	var ret strings.Builder
	ver.writeTo(&ret)
	return ret.String()
}

// LocalVersion is a public version plus an optional local version label ("+ubuntu.1").
type LocalVersion struct {
	PublicVersion
	Local []intstr.IntOrString
}

func (ver LocalVersion) GoString() string {
	return fmt.Sprintf("pep440.LocalVersion{PublicVersion:%#v, Local:%#v}",
		ver.PublicVersion, ver.Local)
}

// String returns the normalized form of the version.
func (ver LocalVersion) String() string {
	var ret strings.Builder
	ver.PublicVersion.writeTo(&ret)
	sep := "+"
	for _, local := range ver.Local {
		ret.WriteString(sep)
		ret.WriteString(local.String())
		sep = "."
	}
	return ret.String()
}

// MarshalText implements encoding.TextMarshaler, so that versions render as their normalized
// string in YAML and JSON reports.
func (ver LocalVersion) MarshalText() ([]byte, error) {
	return []byte(ver.String()), nil
}

// Local segments compare numerically if both are numbers, lexically if both are strings, and
// numbers sort after strings.
func cmpLocalSegment(a, b *intstr.IntOrString) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch {
	case a.Type == intstr.Int && b.Type == intstr.Int:
		return int(a.IntVal - b.IntVal)
	case a.Type == intstr.String && b.Type == intstr.String:
		return strings.Compare(a.StrVal, b.StrVal)
	case a.Type == intstr.Int:
		return 1
	default:
		return -1
	}
}

func cmpLocal(a, b LocalVersion) int {
	for i := 0; i < len(a.Local) || i < len(b.Local); i++ {
		var aSeg, bSeg *intstr.IntOrString
		if i < len(a.Local) {
			aSeg = &(a.Local[i])
		}
		if i < len(b.Local) {
			bSeg = &(b.Local[i])
		}
		if d := cmpLocalSegment(aSeg, bSeg); d != 0 {
			return d
		}
	}
	return 0
}

// Cmp returns <0 if a sorts before b, >0 if a sorts after b, and 0 if they are equivalent.
func (a LocalVersion) Cmp(b LocalVersion) int {
	if d := a.PublicVersion.Cmp(b.PublicVersion); d != 0 {
		return d
	}
	return cmpLocal(a, b)
}

// Equal reports whether a and b are equivalent (after zero-padding of the release segment).
func (a LocalVersion) Equal(b LocalVersion) bool {
	return a.Cmp(b) == 0
}

func (ver PublicVersion) IsFinal() bool {
	return ver.Pre == nil && ver.Post == nil && ver.Dev == nil
}

func (ver LocalVersion) IsFinal() bool {
	return ver.PublicVersion.IsFinal() && len(ver.Local) == 0
}

// IsPreRelease reports whether the version is a pre-release or a developmental release; which
// are excluded from version specifiers by default.
func (ver PublicVersion) IsPreRelease() bool {
	return ver.Pre != nil || ver.Dev != nil
}

func (ver PublicVersion) releaseSegment(n int) int {
	if n < len(ver.Release) {
		return ver.Release[n]
	}
	return 0
}

func (ver PublicVersion) Major() int { return ver.releaseSegment(0) }
func (ver PublicVersion) Minor() int { return ver.releaseSegment(1) }
func (ver PublicVersion) Micro() int { return ver.releaseSegment(2) }

func cmpEpoch(a, b PublicVersion) int {
	return a.Epoch - b.Epoch
}

func cmpRelease(a, b PublicVersion) int {
	for i := 0; i < len(a.Release) || i < len(b.Release); i++ {
		if diff := a.releaseSegment(i) - b.releaseSegment(i); diff != 0 {
			return diff
		}
	}
	return 0
}

var preReleaseOrder = map[string]int{
	"a":  -3,
	"b":  -2,
	"rc": -1,
	// absent: 0
}

// cmpPreRelease orders ".devN" (with no pre or post) before "aN" before "bN" before "rcN"
// before no suffix.
func cmpPreRelease(a, b PublicVersion) int {
	rank := func(ver PublicVersion) (int, int) {
		switch {
		case ver.Pre != nil:
			l, ok := preReleaseOrder[ver.Pre.L]
			if !ok {
				panic(fmt.Errorf("invalid pre-release string: %q", ver.Pre.L))
			}
			return l, ver.Pre.N
		case ver.Dev != nil && ver.Post == nil:
			return -4, 0
		default:
			return 0, 0
		}
	}
	aL, aN := rank(a)
	bL, bN := rank(b)
	if aL != bL {
		return aL - bL
	}
	return aN - bN
}

func cmpPostRelease(a, b PublicVersion) int {
	aPost := -1
	if a.Post != nil {
		aPost = *a.Post
	}
	bPost := -1
	if b.Post != nil {
		bPost = *b.Post
	}
	return aPost - bPost
}

func cmpDevRelease(a, b PublicVersion) int {
	switch {
	case a.Dev == nil && b.Dev == nil:
		return 0
	case a.Dev == nil:
		return 1
	case b.Dev == nil:
		return -1
	default:
		return *a.Dev - *b.Dev
	}
}

// Cmp returns <0 if a sorts before b, >0 if a sorts after b, and 0 if they are equivalent.
func (a PublicVersion) Cmp(b PublicVersion) int {
	if d := cmpEpoch(a, b); d != 0 {
		return d
	}
	if d := cmpRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPreRelease(a, b); d != 0 {
		return d
	}
	if d := cmpPostRelease(a, b); d != 0 {
		return d
	}
	return cmpDevRelease(a, b)
}

// SortDescending sorts versions newest-first.  Equivalent versions keep their relative order.
func SortDescending(vers []Version) {
	sort.SliceStable(vers, func(i, j int) bool {
		return vers[i].Cmp(vers[j]) > 0
	})
}

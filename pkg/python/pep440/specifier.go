// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	"fmt"
	"strings"
)

// Specifier is a comma-separated list of version clauses, all of which must match.  The empty
// Specifier matches every version.
type Specifier []SpecifierClause

func ParseSpecifier(str string) (Specifier, error) {
	clauseStrs := strings.FieldsFunc(str, func(r rune) bool { return r == ',' })
	ret := make(Specifier, 0, len(clauseStrs))
	for _, clauseStr := range clauseStrs {
		clauseStr = strings.TrimSpace(clauseStr)
		if clauseStr == "" {
			continue
		}
		clause, err := parseSpecifierClause(clauseStr)
		if err != nil {
			return nil, fmt.Errorf("pep440.ParseSpecifier: %w", err)
		}
		ret = append(ret, clause)
	}
	return ret, nil
}

// MustParseSpecifier is like ParseSpecifier but panics on error.
func MustParseSpecifier(str string) Specifier {
	spec, err := ParseSpecifier(str)
	if err != nil {
		panic(err)
	}
	return spec
}

func (spec Specifier) String() string {
	clauses := make([]string, 0, len(spec))
	for _, clause := range spec {
		clauses = append(clauses, clause.String())
	}
	return strings.Join(clauses, ",")
}

// MarshalText implements encoding.TextMarshaler.
func (spec Specifier) MarshalText() ([]byte, error) {
	return []byte(spec.String()), nil
}

func (spec Specifier) Match(ver Version) bool {
	for _, clause := range spec {
		if !clause.Match(ver) {
			return false
		}
	}
	return true
}

// Rejecting returns the clauses of spec that do not match ver.
func (spec Specifier) Rejecting(ver Version) Specifier {
	var ret Specifier
	for _, clause := range spec {
		if !clause.Match(ver) {
			ret = append(ret, clause)
		}
	}
	return ret
}

// MentionsPreRelease reports whether any clause names a pre-release or developmental version;
// which per PEP 440 is an explicit request to consider pre-releases.
func (spec Specifier) MentionsPreRelease() bool {
	for _, clause := range spec {
		if clause.Version.IsPreRelease() && clause.CmpOp != CmpOpStrictExclude && clause.CmpOp != CmpOpPrefixExclude {
			return true
		}
	}
	return false
}

// ExactPin returns the version named by a strict "==" clause, if the specifier has one.
func (spec Specifier) ExactPin() (Version, bool) {
	for _, clause := range spec {
		if clause.CmpOp == CmpOpStrictMatch {
			return clause.Version, true
		}
	}
	return Version{}, false
}

type CmpOp int

const (
	CmpOpCompatible CmpOp = iota
	CmpOpStrictMatch
	CmpOpPrefixMatch
	CmpOpStrictExclude
	CmpOpPrefixExclude
	CmpOpLE
	CmpOpGE
	CmpOpLT
	CmpOpGT
	_CmpOpEnd
)

var cmpOpNames = map[CmpOp]string{
	CmpOpCompatible:    "~=",
	CmpOpStrictMatch:   "strict ==",
	CmpOpPrefixMatch:   "prefix ==",
	CmpOpStrictExclude: "strict !=",
	CmpOpPrefixExclude: "prefix !=",
	CmpOpLE:            "<=",
	CmpOpGE:            ">=",
	CmpOpLT:            "<",
	CmpOpGT:            ">",
}

func (op CmpOp) String() string {
	str, ok := cmpOpNames[op]
	if !ok {
		panic(fmt.Errorf("invalid CmpOp: %d", op))
	}
	return str
}

// symbol is the operator as it is spelled in a specifier string.
func (op CmpOp) symbol() string {
	return strings.TrimPrefix(strings.TrimPrefix(op.String(), "strict "), "prefix ")
}

func (op CmpOp) match(spec, ver Version) bool {
	switch op {
	case CmpOpCompatible:
		return matchCompatible(spec, ver)
	case CmpOpStrictMatch:
		return matchStrictMatch(spec, ver)
	case CmpOpPrefixMatch:
		return matchPrefixMatch(spec, ver)
	case CmpOpStrictExclude:
		return !matchStrictMatch(spec, ver)
	case CmpOpPrefixExclude:
		return !matchPrefixMatch(spec, ver)
	case CmpOpLE:
		return spec.Cmp(ver) >= 0
	case CmpOpGE:
		return spec.Cmp(ver) <= 0
	case CmpOpLT:
		return matchLT(spec, ver)
	case CmpOpGT:
		return matchGT(spec, ver)
	default:
		panic(fmt.Errorf("invalid CmpOp: %d", op))
	}
}

type SpecifierClause struct {
	CmpOp   CmpOp
	Version Version
}

// operators is ordered so that no entry is a prefix of a later entry.
var operators = []struct {
	str string
	op  CmpOp
}{
	{"~=", CmpOpCompatible},
	{"==", CmpOpStrictMatch},
	{"!=", CmpOpStrictExclude},
	{"<=", CmpOpLE},
	{">=", CmpOpGE},
	{"<", CmpOpLT},
	{">", CmpOpGT},
}

func parseSpecifierClause(str string) (SpecifierClause, error) {
	var ret SpecifierClause
	str = strings.TrimSpace(str)
	if strings.HasPrefix(str, "===") {
		return ret, fmt.Errorf("specifiers with === are not supported; versions must be PEP 440 compliant")
	}
	found := false
	for _, candidate := range operators {
		if strings.HasPrefix(str, candidate.str) {
			ret.CmpOp = candidate.op
			str = strings.TrimSpace(str[len(candidate.str):])
			found = true
			break
		}
	}
	if !found {
		return ret, fmt.Errorf("invalid comparison operator: %q", str)
	}

	minSegments := 1
	devOK := true
	localOK := false
	switch ret.CmpOp {
	case CmpOpCompatible:
		minSegments = 2
	case CmpOpStrictMatch, CmpOpStrictExclude:
		localOK = true
		if strings.HasSuffix(str, ".*") {
			if ret.CmpOp == CmpOpStrictMatch {
				ret.CmpOp = CmpOpPrefixMatch
			} else {
				ret.CmpOp = CmpOpPrefixExclude
			}
			str = strings.TrimSuffix(str, ".*")
			devOK = false
			localOK = false
		}
	}

	ver, err := ParseVersion(str)
	if err != nil {
		return ret, err
	}
	if len(ver.Release) < minSegments {
		return ret, fmt.Errorf("at least %d release segments required in %s specifier clauses",
			minSegments, ret.CmpOp)
	}
	if ver.Dev != nil && !devOK {
		return ret, fmt.Errorf("dev-part not permitted in %s specifier clauses", ret.CmpOp)
	}
	if len(ver.Local) > 0 && !localOK {
		return ret, fmt.Errorf("local-part not permitted in %s specifier clauses", ret.CmpOp)
	}
	ret.Version = *ver
	return ret, nil
}

func (spec SpecifierClause) String() string {
	str := spec.CmpOp.symbol() + spec.Version.String()
	if spec.CmpOp == CmpOpPrefixMatch || spec.CmpOp == CmpOpPrefixExclude {
		str += ".*"
	}
	return str
}

func (spec SpecifierClause) Match(ver Version) bool {
	return spec.CmpOp.match(spec.Version, ver)
}

// "~= V.N" is ">= V.N, == V.*", with any pre/post/dev suffix ignored for the prefix.
func matchCompatible(spec, ver Version) bool {
	prefix := spec
	prefix.Release = prefix.Release[:len(prefix.Release)-1]
	prefix.Pre = nil
	prefix.Post = nil
	prefix.Dev = nil
	return spec.Cmp(ver) <= 0 && matchPrefixMatch(prefix, ver)
}

// Strict matching ignores the candidate's local label unless the specifier has one.
func matchStrictMatch(spec, ver Version) bool {
	if len(spec.Local) == 0 {
		return spec.PublicVersion.Cmp(ver.PublicVersion) == 0
	}
	return spec.Cmp(ver) == 0
}

func matchPrefixMatch(_spec, _ver Version) bool {
	spec, ver := _spec.PublicVersion, _ver.PublicVersion
	if cmpEpoch(spec, ver) != 0 {
		return false
	}
	if spec.Pre == nil && spec.Post == nil {
		// Only the release segment is significant; trailing candidate segments are ignored.
		if len(ver.Release) > len(spec.Release) {
			ver.Release = ver.Release[:len(spec.Release)]
		}
		return cmpRelease(spec, ver) == 0
	}
	if cmpRelease(spec, ver) != 0 {
		return false
	}
	if (ver.Pre == nil) != (spec.Pre == nil) {
		return false
	}
	if spec.Pre != nil && (preReleaseOrder[ver.Pre.L] != preReleaseOrder[spec.Pre.L] || ver.Pre.N != spec.Pre.N) {
		return false
	}
	if spec.Post == nil {
		return true
	}
	return cmpPostRelease(spec, ver) == 0
}

// "<V" must not match a pre-release of V unless V is itself a pre-release.
func matchLT(spec, ver Version) bool {
	if spec.Cmp(ver) <= 0 {
		return false
	}
	if !spec.IsPreRelease() && ver.IsPreRelease() {
		base := ver.PublicVersion
		base.Pre, base.Post, base.Dev = nil, nil, nil
		if cmpEpoch(base, spec.PublicVersion) == 0 && cmpRelease(base, spec.PublicVersion) == 0 {
			return false
		}
	}
	return true
}

// ">V" must not match a post-release of V unless V is itself a post-release, and must never
// match a local version of V.
func matchGT(spec, ver Version) bool {
	if spec.Cmp(ver) >= 0 {
		return false
	}
	sameRelease := cmpEpoch(spec.PublicVersion, ver.PublicVersion) == 0 &&
		cmpRelease(spec.PublicVersion, ver.PublicVersion) == 0
	if sameRelease && spec.Post == nil && ver.Post != nil {
		return false
	}
	if len(ver.Local) > 0 && spec.PublicVersion.Cmp(ver.PublicVersion) == 0 {
		return false
	}
	return true
}

// ExclusionBehavior decides which versions are considered by default, before falling back to
// otherwise-excluded versions.  A nil ExclusionBehavior allows everything.
type ExclusionBehavior interface {
	Allow(Version) bool
}

// ExcludePreReleases is an implementation of ExclusionBehavior.
type ExcludePreReleases struct{}

func (ExcludePreReleases) Allow(ver Version) bool {
	return !ver.IsPreRelease()
}

// MultiExcluder is an implementation of ExclusionBehavior that ANDs multiple other
// ExclusionBehaviors together; only allowing a version if all of the behaviors allow it.
type MultiExcluder []ExclusionBehavior

func (m MultiExcluder) Allow(ver Version) bool {
	for _, e := range m {
		if !e.Allow(ver) {
			return false
		}
	}
	return true
}

// Filter returns the choices that match spec, in their original order.  Versions rejected by
// exclusionBehavior are only returned if no allowed version matches.
func (spec Specifier) Filter(choices []Version, exclusionBehavior ExclusionBehavior) []Version {
	var allowed, excluded []Version
	for _, choice := range choices {
		if !spec.Match(choice) {
			continue
		}
		if exclusionBehavior == nil || exclusionBehavior.Allow(choice) {
			allowed = append(allowed, choice)
		} else {
			excluded = append(excluded, choice)
		}
	}
	if len(allowed) > 0 {
		return allowed
	}
	return excluded
}

// Select returns the highest of the choices that match spec, preferring versions allowed by
// exclusionBehavior.  It returns nil if nothing matches.
func (spec Specifier) Select(choices []Version, exclusionBehavior ExclusionBehavior) *Version {
	var best *Version
	for _, choice := range spec.Filter(choices, exclusionBehavior) {
		if best == nil || best.Cmp(choice) < 0 {
			val := choice
			best = &val
		}
	}
	return best
}

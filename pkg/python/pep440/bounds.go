// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

type bound struct {
	ver       *Version
	inclusive bool
}

// tighterLower reports whether b is a tighter lower bound than a.
func tighterLower(a, b bound) bool {
	if a.ver == nil {
		return true
	}
	d := b.ver.Cmp(*a.ver)
	return d > 0 || (d == 0 && !b.inclusive)
}

// tighterUpper reports whether b is a tighter upper bound than a.
func tighterUpper(a, b bound) bool {
	if a.ver == nil {
		return true
	}
	d := b.ver.Cmp(*a.ver)
	return d < 0 || (d == 0 && !b.inclusive)
}

// prefixCovers reports whether every version matched by "==inner.*" is also matched by
// "==outer.*".
func prefixCovers(outer, inner Version) bool {
	if outer.Pre != nil || outer.Post != nil || outer.Epoch != inner.Epoch || len(outer.Release) > len(inner.Release) {
		return false
	}
	for i, seg := range outer.Release {
		if inner.Release[i] != seg {
			return false
		}
	}
	return true
}

// bumpPrefix returns the smallest version that sorts after every version that has the release
// segment prefix as a prefix.
func bumpPrefix(prefix Version) Version {
	ret := Version{PublicVersion: PublicVersion{Epoch: prefix.Epoch}}
	ret.Release = append([]int(nil), prefix.Release...)
	ret.Release[len(ret.Release)-1]++
	zero := 0
	ret.Dev = &zero
	return ret
}

// Satisfiable reports whether the specifier could match at least one version in theory,
// independent of which versions actually exist.  It is conservative: it only returns false if
// the clauses provably contradict each other (">=2,<1", "==1.0,!=1.0", "==1.*,!=1.*").
func (spec Specifier) Satisfiable() bool {
	for _, clause := range spec {
		if clause.CmpOp == CmpOpStrictMatch {
			return spec.Match(clause.Version)
		}
	}
	for _, include := range spec {
		if include.CmpOp != CmpOpPrefixMatch {
			continue
		}
		for _, exclude := range spec {
			if exclude.CmpOp == CmpOpPrefixExclude && prefixCovers(exclude.Version, include.Version) {
				return false
			}
		}
	}

	var lower, upper bound
	constrainLower := func(b bound) {
		if tighterLower(lower, b) {
			lower = b
		}
	}
	constrainUpper := func(b bound) {
		if tighterUpper(upper, b) {
			upper = b
		}
	}
	for _, clause := range spec {
		ver := clause.Version
		switch clause.CmpOp {
		case CmpOpGE:
			constrainLower(bound{&ver, true})
		case CmpOpGT:
			constrainLower(bound{&ver, false})
		case CmpOpLE:
			constrainUpper(bound{&ver, true})
		case CmpOpLT:
			constrainUpper(bound{&ver, false})
		case CmpOpCompatible:
			constrainLower(bound{&ver, true})
			prefix := ver
			prefix.Release = prefix.Release[:len(prefix.Release)-1]
			top := bumpPrefix(prefix)
			constrainUpper(bound{&top, false})
		case CmpOpPrefixMatch:
			bottom := Version{PublicVersion: PublicVersion{Epoch: ver.Epoch, Release: ver.Release}}
			zero := 0
			bottom.Dev = &zero
			if ver.Pre != nil || ver.Post != nil {
				bottom = ver
			}
			constrainLower(bound{&bottom, true})
			top := bumpPrefix(ver)
			constrainUpper(bound{&top, false})
		}
	}
	if lower.ver == nil || upper.ver == nil {
		return true
	}
	d := lower.ver.Cmp(*upper.ver)
	switch {
	case d > 0:
		return false
	case d == 0:
		return lower.inclusive && upper.inclusive && spec.Match(*lower.ver)
	default:
		return true
	}
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep508

import (
	"fmt"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/datawire/pinset/pkg/python/pep440"
)

// A Marker is a boolean expression over an Environment.  The nil Marker is not valid; use a nil
// Marker interface value on a Requirement to mean "always".
type Marker interface {
	Evaluate(Environment) bool
	String() string
	walk(func(MarkerCompare))
}

// MarkerValue is one side of a comparison: either a variable name or a string literal.
type MarkerValue struct {
	Variable string
	Literal  string
}

func (v MarkerValue) IsVariable() bool {
	return v.Variable != ""
}

func (v MarkerValue) String() string {
	if v.IsVariable() {
		return v.Variable
	}
	return strconv.Quote(v.Literal)
}

func (v MarkerValue) resolve(env Environment) string {
	if v.IsVariable() {
		return env.Values[v.Variable]
	}
	return v.Literal
}

// MarkerCompare is "lhs op rhs".  Op is one of the version comparison operators, "===", "in",
// or "not in".
type MarkerCompare struct {
	Left  MarkerValue
	Op    string
	Right MarkerValue
}

// MarkerAnd is true if both sides are true.
type MarkerAnd struct {
	Left, Right Marker
}

// MarkerOr is true if either side is true.
type MarkerOr struct {
	Left, Right Marker
}

var (
	_ Marker = MarkerCompare{}
	_ Marker = MarkerAnd{}
	_ Marker = MarkerOr{}
)

func (m MarkerCompare) String() string {
	return fmt.Sprintf("%s %s %s", m.Left, m.Op, m.Right)
}

func (m MarkerCompare) walk(fn func(MarkerCompare)) {
	fn(m)
}

func (m MarkerCompare) Evaluate(env Environment) bool {
	if m.Left.Variable == "extra" || m.Right.Variable == "extra" {
		return m.evaluateExtra(env)
	}
	lhs, rhs := m.Left.resolve(env), m.Right.resolve(env)
	switch m.Op {
	case "in":
		return strings.Contains(rhs, lhs)
	case "not in":
		return !strings.Contains(rhs, lhs)
	case "===":
		return lhs == rhs
	}
	if spec, err := pep440.ParseSpecifier(m.Op + rhs); err == nil && len(spec) == 1 {
		if ver, err := pep440.ParseVersion(lhs); err == nil {
			return spec.Match(*ver)
		}
	}
	switch m.Op {
	case "==":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	default:
		return false
	}
}

func (m MarkerCompare) evaluateExtra(env Environment) bool {
	other := m.Right
	if m.Right.Variable == "extra" {
		other = m.Left
	}
	if other.IsVariable() {
		return false
	}
	has := env.Extras != nil && env.Extras.Has(NormalizeName(other.Literal))
	switch m.Op {
	case "==", "===":
		return has
	case "!=":
		return !has
	default:
		return false
	}
}

func (m MarkerAnd) Evaluate(env Environment) bool {
	return m.Left.Evaluate(env) && m.Right.Evaluate(env)
}

func (m MarkerAnd) String() string {
	return wrapOr(m.Left) + " and " + wrapOr(m.Right)
}

func (m MarkerAnd) walk(fn func(MarkerCompare)) {
	m.Left.walk(fn)
	m.Right.walk(fn)
}

func (m MarkerOr) Evaluate(env Environment) bool {
	return m.Left.Evaluate(env) || m.Right.Evaluate(env)
}

func (m MarkerOr) String() string {
	return m.Left.String() + " or " + m.Right.String()
}

func (m MarkerOr) walk(fn func(MarkerCompare)) {
	m.Left.walk(fn)
	m.Right.walk(fn)
}

func wrapOr(m Marker) string {
	if _, isOr := m.(MarkerOr); isOr {
		return "(" + m.String() + ")"
	}
	return m.String()
}

// ReferencedExtras returns the normalized names of the extras that m compares "extra" against.
func ReferencedExtras(m Marker) sets.Set[string] {
	ret := sets.New[string]()
	if m == nil {
		return ret
	}
	m.walk(func(cmp MarkerCompare) {
		switch {
		case cmp.Left.Variable == "extra" && !cmp.Right.IsVariable():
			ret.Insert(NormalizeName(cmp.Right.Literal))
		case cmp.Right.Variable == "extra" && !cmp.Left.IsVariable():
			ret.Insert(NormalizeName(cmp.Left.Literal))
		}
	})
	return ret
}

// Or joins markers with "or", skipping nils.  It returns nil if every marker is nil.
func Or(markers ...Marker) Marker {
	var ret Marker
	for _, m := range markers {
		switch {
		case m == nil:
		case ret == nil:
			ret = m
		default:
			ret = MarkerOr{Left: ret, Right: m}
		}
	}
	return ret
}

// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

//nolint:gochecknoglobals // Would be 'const'.
var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// Dump renders a value in a stable multi-line form that is suitable for diffing.
func Dump(v interface{}) string {
	return spewConfig.Sdump(v)
}

// AssertEqualText compares two multi-line strings, and reports a unified diff if they differ.
func AssertEqualText(t *testing.T, exp, act string) bool {
	t.Helper()
	if exp == act {
		return true
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(exp),
		B:        difflib.SplitLines(act),
		FromFile: "Expected",
		FromDate: "",
		ToFile:   "Actual",
		ToDate:   "",
		Context:  1,
	})
	t.Errorf("diff:\n%s", diff)
	return false
}

// AssertEqualDump compares the Dump of two values, and reports a unified diff if they differ.
func AssertEqualDump(t *testing.T, exp, act interface{}) bool {
	t.Helper()
	return AssertEqualText(t, Dump(exp), Dump(act))
}

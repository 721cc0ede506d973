// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pinset_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/testutil"
)

func TestConflictTraceString(t *testing.T) {
	t.Parallel()
	trace := pinset.ConflictTrace{
		Kind:         pinset.ConflictMerge,
		Package:      "lib",
		Environments: []string{"py3.10", "py3.11"},
		Choices: []pinset.EnvironmentChoice{
			{Environment: "py3.10", Version: pep440.MustParseVersion("1.5")},
			{Environment: "py3.11", Version: pep440.MustParseVersion("2.0")},
		},
		Links: []pinset.ConflictLink{
			{
				Environment: "py3.10",
				Requirement: pinset.MustParseRequirement("lib<2", pinset.Origin{Kind: pinset.OriginDirect}),
				Rejecting:   pep440.MustParseSpecifier("<2"),
			},
			{
				Environment: "py3.11",
				Requirement: pinset.MustParseRequirement("lib>=2", pinset.Origin{
					Kind:          pinset.OriginTransitive,
					Parent:        "app",
					ParentVersion: "1.0",
				}),
			},
		},
		Available: []pep440.Version{pep440.MustParseVersion("2.0"), pep440.MustParseVersion("1.5")},
	}
	testutil.AssertEqualText(t, ""+
		"no single version of lib works in every environment (py3.10, py3.11)\n"+
		"  py3.10 resolved lib==1.5\n"+
		"  py3.11 resolved lib==2.0\n"+
		"  py3.10 requires lib<2 (from project), which rejects with <2\n"+
		"  py3.11 requires lib>=2 (from app==1.0)\n"+
		"  available: 2.0, 1.5",
		trace.String())

	unsat := pinset.ConflictTrace{
		Kind:         pinset.ConflictUnsatisfiable,
		Package:      "ghost",
		Environments: []string{"py3.11"},
	}
	assert.Equal(t, "py3.11: no version of ghost satisfies every requirement\n  available: (none)", unsat.String())
}

func TestConflictsError(t *testing.T) {
	t.Parallel()
	one := &pinset.ConflictsError{Conflicts: []pinset.ConflictTrace{{
		Kind:         pinset.ConflictUnsatisfiable,
		Package:      "ghost",
		Environments: []string{"py3.11"},
		Reason:       "no releases found on the index",
	}}}
	assert.Equal(t, "py3.11: no version of ghost satisfies every requirement: no releases found on the index", one.Error())

	two := &pinset.ConflictsError{Conflicts: append(one.Conflicts, pinset.ConflictTrace{
		Kind:         pinset.ConflictMerge,
		Package:      "lib",
		Environments: []string{"py3.10", "py3.11"},
	})}
	errs := two.Errors()
	require.Len(t, errs, 2)
	var uerr *pinset.UnsatisfiableEnvironmentError
	var merr *pinset.MergeConflictError
	assert.True(t, errors.As(errs[0], &uerr))
	assert.True(t, errors.As(errs[1], &merr))
	assert.Contains(t, two.Error(), "ghost")
	assert.Contains(t, two.Error(), "lib")
}

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
)

func TestOriginString(t *testing.T) {
	t.Parallel()
	testcases := map[string]struct {
		Input pinset.Origin
		Exp   string
	}{
		"direct":           {pinset.Origin{Kind: pinset.OriginDirect}, "project"},
		"extra":            {pinset.Origin{Kind: pinset.OriginExtra, Extra: "dev"}, "project[dev]"},
		"transitive":       {pinset.Origin{Kind: pinset.OriginTransitive, Parent: "requests", ParentVersion: "2.31.0"}, "requests==2.31.0"},
		"transitive-extra": {pinset.Origin{Kind: pinset.OriginTransitive, Extra: "socks", Parent: "requests", ParentVersion: "2.31.0"}, "requests[socks]==2.31.0"},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.Exp, tc.Input.String())
		})
	}
}

func TestRequirement(t *testing.T) {
	t.Parallel()
	origin := pinset.Origin{Kind: pinset.OriginDirect}
	req, err := pinset.ParseRequirement("Foo.Bar[Socks] >=1.0, <2 ; python_version < '3.11'", origin)
	require.NoError(t, err)
	assert.Equal(t, "foo-bar", req.Name)
	assert.Equal(t, []string{"socks"}, req.Extras)
	assert.Equal(t, `foo-bar[socks]>=1.0,<2; python_version < "3.11"`, req.String())

	py310 := pinset.NewEnvironment(pinset.InterpreterVersion{Major: 3, Minor: 10})
	py311 := pinset.NewEnvironment(pinset.InterpreterVersion{Major: 3, Minor: 11})
	assert.True(t, req.Applies(py310.MarkerEnvironment(nil)))
	assert.False(t, req.Applies(py311.MarkerEnvironment(nil)))

	_, err = pinset.ParseRequirement("foo >>1", origin)
	assert.Error(t, err)
}

func TestProjectValidate(t *testing.T) {
	t.Parallel()
	direct := pinset.Origin{Kind: pinset.OriginDirect}
	dev := pinset.Origin{Kind: pinset.OriginExtra, Extra: "dev"}
	proj := pinset.ProjectSpec{
		Name:         "myproject",
		Requirements: []pinset.Requirement{pinset.MustParseRequirement("requests>=2", direct)},
		Extras: map[string][]pinset.Requirement{
			"dev":  {pinset.MustParseRequirement("pytest>=7", dev)},
			"docs": nil,
		},
	}
	assert.Equal(t, []string{"dev", "docs"}, proj.ExtraNames())
	assert.NoError(t, proj.Validate())

	proj.Extras["dev"] = append(proj.Extras["dev"], pinset.MustParseRequirement("pytest==1.0,!=1.0", dev))
	err := proj.Validate()
	var cfgErr *pinset.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "project[dev]")

	proj.Extras["dev"] = proj.Extras["dev"][:1]
	proj.Requirements = append(proj.Requirements, pinset.MustParseRequirement("idna==3.*,!=3.*", direct))
	err = proj.Validate()
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "can never be satisfied")
}

func TestMergedPinSetLookup(t *testing.T) {
	t.Parallel()
	set := pinset.MergedPinSet{
		Pins: []pinset.Pin{
			{Name: "a", Version: pep440.MustParseVersion("1")},
			{Name: "c", Version: pep440.MustParseVersion("3")},
		},
	}
	pin, ok := set.Lookup("c")
	require.True(t, ok)
	assert.Equal(t, "3", pin.Version.String())
	_, ok = set.Lookup("b")
	assert.False(t, ok)
	assert.True(t, set.OK())
}

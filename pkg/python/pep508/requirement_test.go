// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep508_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/pinset/pkg/python/pep508"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()
	for in, exp := range map[string]string{
		"requests":         "requests",
		"Django":           "django",
		"zope.interface":   "zope-interface",
		"typing_extensions": "typing-extensions",
		"Foo__Bar-.baz":    "foo-bar-baz",
	} {
		assert.Equal(t, exp, pep508.NormalizeName(in), in)
	}
}

func TestParseRequirement(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		Input  string
		Name   string
		Extras []string
		Spec   string
		URL    string
		Marker string
		Err    bool
	}
	testcases := map[string]TestCase{
		"bare":        {Input: "requests", Name: "requests"},
		"specifier":   {Input: "requests>=2.0,<3.0", Name: "requests", Spec: ">=2.0,<3.0"},
		"spaced":      {Input: "  requests >= 2.0 , < 3.0  ", Name: "requests", Spec: ">=2.0,<3.0"},
		"parens":      {Input: "requests (>=2.0)", Name: "requests", Spec: ">=2.0"},
		"extras":      {Input: "requests[socks, Security]==2.31.0", Name: "requests", Extras: []string{"security", "socks"}, Spec: "==2.31.0"},
		"marker":      {Input: `tomli>=1.1; python_version < "3.11"`, Name: "tomli", Spec: ">=1.1", Marker: `python_version < "3.11"`},
		"marker-only": {Input: `colorama ; sys_platform == 'win32'`, Name: "colorama", Marker: `sys_platform == "win32"`},
		"url":         {Input: "pip @ https://example.com/pip-1.0.tar.gz#sha256=ab;cd ; os_name == 'posix'", Name: "pip", URL: "https://example.com/pip-1.0.tar.gz#sha256=ab;cd", Marker: `os_name == "posix"`},
		"bad-name":    {Input: "-requests", Err: true},
		"bad-spec":    {Input: "requests 2.0", Err: true},
		"bad-extras":  {Input: "requests[socks", Err: true},
		"bad-marker":  {Input: "requests; python_version <", Err: true},
		"bad-var":     {Input: "requests; pyversion == '3'", Err: true},
		"empty-url":   {Input: "requests @ ", Err: true},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			req, err := pep508.ParseRequirement(tc.Input)
			if tc.Err {
				assert.Error(t, err)
				assert.Nil(t, req)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Name, req.Name)
			assert.Equal(t, tc.Extras, req.Extras)
			assert.Equal(t, tc.Spec, req.Specifier.String())
			assert.Equal(t, tc.URL, req.URL)
			if tc.Marker == "" {
				assert.Nil(t, req.Marker)
			} else {
				require.NotNil(t, req.Marker)
				assert.Equal(t, tc.Marker, req.Marker.String())
			}
		})
	}
}

func TestRequirementString(t *testing.T) {
	t.Parallel()
	for in, exp := range map[string]string{
		"requests":                            "requests",
		"requests [socks] >= 2.0":             "requests[socks]>=2.0",
		`tomli; python_version<"3.11"`:        `tomli; python_version < "3.11"`,
		"pip @ https://example.com/p.whl":     "pip @ https://example.com/p.whl",
		"pip@https://e.com/p.whl ; extra=='x'": `pip @ https://e.com/p.whl ; extra == "x"`,
	} {
		req, err := pep508.ParseRequirement(in)
		require.NoError(t, err, in)
		assert.Equal(t, exp, req.String())
		// The rendered form must parse back to the same thing.
		again, err := pep508.ParseRequirement(req.String())
		require.NoError(t, err, req.String())
		assert.Equal(t, req.String(), again.String())
	}
}

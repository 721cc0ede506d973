// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/pinset/pkg/manifest"
	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/testutil"
)

func envs(minors ...int) []pinset.Environment {
	ret := make([]pinset.Environment, 0, len(minors))
	for _, minor := range minors {
		ret = append(ret, pinset.NewEnvironment(pinset.InterpreterVersion{Major: 3, Minor: minor}, "dev"))
	}
	return ret
}

func pin(name, version string, envs ...string) pinset.Pin {
	return pinset.Pin{Name: name, Version: pep440.MustParseVersion(version), Environments: envs}
}

func TestRender(t *testing.T) {
	t.Parallel()
	set := &pinset.MergedPinSet{Pins: []pinset.Pin{
		pin("click", "8.1.7", "py3.9[dev]", "py3.10[dev]", "py3.11[dev]"),
		pin("exceptiongroup", "1.2.0", "py3.10[dev]", "py3.9[dev]"),
		pin("tomli", "2.0.1", "py3.9[dev]"),
	}}
	act, err := manifest.Render(set, envs(9, 10, 11), "# generated by pinset")
	require.NoError(t, err)
	testutil.AssertEqualText(t, ""+
		"# generated by pinset\n"+
		"click==8.1.7\n"+
		"exceptiongroup==1.2.0; python_version=='3.9' or python_version=='3.10'\n"+
		"tomli==2.0.1; python_version=='3.9'\n",
		string(act))

	act, err = manifest.Render(&pinset.MergedPinSet{}, envs(11), "")
	require.NoError(t, err)
	assert.Empty(t, act)

	_, err = manifest.Render(&pinset.MergedPinSet{Pins: []pinset.Pin{pin("a", "1", "py2.7")}}, envs(11), "")
	assert.Error(t, err)
}

func TestRenderRefusesConflicts(t *testing.T) {
	t.Parallel()
	set := &pinset.MergedPinSet{
		Pins:      []pinset.Pin{pin("click", "8.1.7", "py3.11[dev]")},
		Conflicts: []pinset.ConflictTrace{{Kind: pinset.ConflictMerge, Package: "lib"}},
	}
	_, err := manifest.Render(set, envs(11), "")
	var cerr *pinset.ConflictsError
	assert.True(t, errors.As(err, &cerr))

	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	_, err = manifest.Write(path, set, envs(11), "")
	assert.True(t, errors.As(err, &cerr))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	set := &pinset.MergedPinSet{Pins: []pinset.Pin{pin("click", "8.1.7", "py3.11[dev]")}}

	changed, err := manifest.Write(path, set, envs(11), "")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = manifest.Write(path, set, envs(11), "")
	require.NoError(t, err)
	assert.False(t, changed)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "click==8.1.7\n", string(content))

	_, err = manifest.Write(filepath.Join(dir, "nonexistent", "requirements.txt"), set, envs(11), "")
	var werr *pinset.WriteError
	assert.True(t, errors.As(err, &werr))
}

func TestDestination(t *testing.T) {
	t.Parallel()
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	testcases := map[string]struct {
		Filename string
		Exp      string
	}{
		"default":  {"", filepath.Join("/project", "requirements.txt")},
		"bare":     {"reqs.txt", filepath.Join("/project", "reqs.txt")},
		"relative": {"out/reqs.txt", "out/reqs.txt"},
		"absolute": {"/tmp/reqs.txt", "/tmp/reqs.txt"},
		"home":     {"~/reqs/requirements.txt", filepath.Join(home, "reqs", "requirements.txt")},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			act, err := manifest.Destination("/project", tc.Filename)
			require.NoError(t, err)
			assert.Equal(t, tc.Exp, act)
		})
	}
}

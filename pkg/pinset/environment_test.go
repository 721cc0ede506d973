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
)

func TestParseInterpreterVersion(t *testing.T) {
	t.Parallel()
	ver, err := pinset.ParseInterpreterVersion(" 3.11 ")
	require.NoError(t, err)
	assert.Equal(t, pinset.InterpreterVersion{Major: 3, Minor: 11}, ver)
	assert.Equal(t, "3.11", ver.String())
	assert.Equal(t, "3.11.0", ver.FullVersion().String())

	for _, bad := range []string{"", "3", "3.11.2", "three.eleven", "3.-1"} {
		_, err := pinset.ParseInterpreterVersion(bad)
		var cfgErr *pinset.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr), "%q", bad)
	}

	var unmarshaled pinset.InterpreterVersion
	require.NoError(t, unmarshaled.UnmarshalText([]byte("3.9")))
	assert.Equal(t, pinset.InterpreterVersion{Major: 3, Minor: 9}, unmarshaled)
}

func TestSortInterpreterVersions(t *testing.T) {
	t.Parallel()
	in := []pinset.InterpreterVersion{{3, 12}, {3, 9}, {3, 10}, {3, 12}, {2, 7}}
	out := pinset.SortInterpreterVersions(in)
	assert.Equal(t, []pinset.InterpreterVersion{{2, 7}, {3, 9}, {3, 10}, {3, 12}}, out)
	// The input is left alone.
	assert.Equal(t, pinset.InterpreterVersion{Major: 3, Minor: 12}, in[0])
}

func TestEnvironment(t *testing.T) {
	t.Parallel()
	py := pinset.InterpreterVersion{Major: 3, Minor: 11}

	env := pinset.NewEnvironment(py, "Docs", "dev", "docs")
	assert.Equal(t, []string{"dev", "docs"}, env.Extras)
	assert.Equal(t, "py3.11[dev,docs]", env.String())
	assert.True(t, env.Equal(pinset.NewEnvironment(py, "dev", "docs")))
	assert.False(t, env.Equal(pinset.NewEnvironment(py, "dev")))

	bare := pinset.NewEnvironment(py)
	assert.Nil(t, bare.Extras)
	assert.Equal(t, "py3.11", bare.String())

	markers := env.MarkerEnvironment(nil)
	assert.Equal(t, "3.11", markers.Values["python_version"])
	assert.Equal(t, "3.11.0", markers.Values["python_full_version"])
	assert.True(t, markers.Extras.Has("docs"))
}

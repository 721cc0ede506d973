// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package coremeta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/pinset/pkg/python/coremeta"
	"github.com/datawire/pinset/pkg/python/pep508"
)

const requestsMetadata = `Metadata-Version: 2.1
Name: requests
Version: 2.31.0
Summary: Python HTTP for Humans.
Requires-Python: >=3.7
License: Apache 2.0
Requires-Dist: charset-normalizer (<4,>=2)
Requires-Dist: idna (<4,>=2.5)
Requires-Dist: urllib3 (<3,>=1.21.1)
Requires-Dist: certifi (>=2017.4.17)
Provides-Extra: security
Provides-Extra: socks
Requires-Dist: PySocks (!=1.5.7,>=1.5.6) ; extra == 'socks'
Provides-Extra: use_chardet_on_py3
Requires-Dist: chardet (<6,>=3.0.2) ; extra == 'use_chardet_on_py3'

# Requests

**Requests** is a simple, yet elegant, HTTP library.
Requires-Dist: not-a-header
`

func TestParse(t *testing.T) {
	t.Parallel()
	md, err := coremeta.Parse([]byte(requestsMetadata))
	require.NoError(t, err)
	assert.Equal(t, "2.1", md.MetadataVersion)
	assert.Equal(t, "requests", md.Name)
	assert.Equal(t, "2.31.0", md.Version.String())
	assert.Equal(t, ">=3.7", md.RequiresPython.String())
	assert.Equal(t, []string{"security", "socks", "use-chardet-on-py3"}, md.ProvidesExtra)

	reqs := make([]string, 0, len(md.RequiresDist))
	for _, req := range md.RequiresDist {
		reqs = append(reqs, req.String())
	}
	assert.Equal(t, []string{
		"charset-normalizer<4,>=2",
		"idna<4,>=2.5",
		"urllib3<3,>=1.21.1",
		"certifi>=2017.4.17",
		`PySocks!=1.5.7,>=1.5.6; extra == "socks"`,
		`chardet<6,>=3.0.2; extra == "use_chardet_on_py3"`,
	}, reqs)

	socks := pep508.PythonEnvironment(3, 11, nil).WithExtras("socks")
	assert.True(t, md.RequiresDist[4].Applies(socks))
	assert.False(t, md.RequiresDist[5].Applies(socks))
}

func TestParseHeaderOnly(t *testing.T) {
	t.Parallel()
	md, err := coremeta.Parse([]byte("Metadata-Version: 2.1\nName: six\nVersion: 1.16.0\n"))
	require.NoError(t, err)
	assert.Equal(t, "six", md.Name)
	assert.Empty(t, md.RequiresDist)
	assert.Empty(t, md.RequiresPython)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	for name, content := range map[string]string{
		"no-name":      "Metadata-Version: 2.1\nVersion: 1.0\n\n",
		"no-version":   "Metadata-Version: 2.1\nName: foo\n\n",
		"bad-version":  "Metadata-Version: 2.1\nName: foo\nVersion: latest\n\n",
		"bad-requires": "Metadata-Version: 2.1\nName: foo\nVersion: 1.0\nRequires-Dist: bar (>=)\n\n",
		"bad-python":   "Metadata-Version: 2.1\nName: foo\nVersion: 1.0\nRequires-Python: 3\n\n",
	} {
		_, err := coremeta.Parse([]byte(content))
		assert.Error(t, err, name)
	}
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/report"
)

func envs() []pinset.Environment {
	return []pinset.Environment{
		pinset.NewEnvironment(pinset.InterpreterVersion{Major: 3, Minor: 11}),
		pinset.NewEnvironment(pinset.InterpreterVersion{Major: 3, Minor: 9}),
	}
}

func conflicted() *pinset.MergedPinSet {
	return &pinset.MergedPinSet{
		Pins: []pinset.Pin{
			{
				Name:         "requests",
				Version:      pep440.MustParseVersion("2.31.0"),
				Environments: []string{"py3.11", "py3.9"},
			},
		},
		Conflicts: []pinset.ConflictTrace{
			{
				Kind:         pinset.ConflictMerge,
				Package:      "numpy",
				Environments: []string{"py3.11", "py3.9"},
				Choices: []pinset.EnvironmentChoice{
					{Environment: "py3.11", Version: pep440.MustParseVersion("2.0")},
					{Environment: "py3.9", Version: pep440.MustParseVersion("1.26")},
				},
				Links: []pinset.ConflictLink{
					{
						Environment: "py3.9",
						Requirement: pinset.MustParseRequirement("numpy<2", pinset.Origin{Kind: pinset.OriginDirect}),
						Rejecting:   pep440.MustParseSpecifier("<2"),
					},
				},
				Reason: "no release supports every environment",
			},
		},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	rep := report.New(conflicted(), envs())
	assert.False(t, rep.OK)
	assert.Equal(t, []string{"3.9", "3.11"}, rep.Pythons)
	assert.Equal(t, []string{"py3.11", "py3.9"}, rep.Environments)
	require.Len(t, rep.Pins, 1)
	assert.Equal(t, report.Pin{
		Name:         "requests",
		Version:      "2.31.0",
		Environments: []string{"py3.11", "py3.9"},
	}, rep.Pins[0])
	require.Len(t, rep.Conflicts, 1)
	conflict := rep.Conflicts[0]
	assert.Equal(t, "merge", conflict.Kind)
	assert.Equal(t, []report.Choice{
		{Environment: "py3.11", Version: "2.0"},
		{Environment: "py3.9", Version: "1.26"},
	}, conflict.Choices)
	assert.Equal(t, []report.Link{
		{Environment: "py3.9", Requirement: "numpy<2", Origin: "project", Rejecting: "<2"},
	}, conflict.Links)
}

func TestYAML(t *testing.T) {
	t.Parallel()
	rep := report.New(conflicted(), envs())
	content, err := rep.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(content), "ok: false\n")
	assert.Contains(t, string(content), "kind: merge\n")

	var decoded report.Report
	require.NoError(t, yaml.Unmarshal(content, &decoded))
	assert.Equal(t, *rep, decoded)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "report.yml")
	set := &pinset.MergedPinSet{}
	require.NoError(t, report.New(set, envs()).WriteFile(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "ok: true\n")
	assert.NotContains(t, string(content), "conflicts:")

	err = report.New(set, envs()).WriteFile(filepath.Join(t.TempDir(), "missing", "report.yml"))
	var writeErr *pinset.WriteError
	assert.ErrorAs(t, err, &writeErr)
}

func TestConflictTable(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	require.NoError(t, report.PrintConflicts(&out, conflicted().Conflicts))
	text := out.String()
	for _, want := range []string{
		"PACKAGE",
		"numpy",
		"no release supports every environment",
		"resolved numpy==2.0",
		"resolved numpy==1.26",
		"numpy<2 (from project), rejects with <2",
	} {
		assert.Contains(t, text, want)
	}
}

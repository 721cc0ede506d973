// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package report renders the outcome of a run for people (a conflict table) and for machines (a
// YAML document).
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v2"

	"github.com/datawire/pinset/pkg/fsutil"
	"github.com/datawire/pinset/pkg/pinset"
)

type Report struct {
	OK           bool       `yaml:"ok"`
	Pythons      []string   `yaml:"pythons"`
	Environments []string   `yaml:"environments"`
	Pins         []Pin      `yaml:"pins"`
	Conflicts    []Conflict `yaml:"conflicts,omitempty"`
}

type Pin struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	Environments []string `yaml:"environments"`
	Superseded   bool     `yaml:"superseded,omitempty"`
}

type Conflict struct {
	Kind         string   `yaml:"kind"`
	Package      string   `yaml:"package"`
	Environments []string `yaml:"environments"`
	Reason       string   `yaml:"reason,omitempty"`
	Choices      []Choice `yaml:"choices,omitempty"`
	Links        []Link   `yaml:"links,omitempty"`
	Available    []string `yaml:"available,omitempty"`
}

type Choice struct {
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type Link struct {
	Environment string `yaml:"environment"`
	Requirement string `yaml:"requirement"`
	Origin      string `yaml:"origin"`
	Rejecting   string `yaml:"rejecting,omitempty"`
}

// New flattens a merged pin set into a Report.  Versions, requirements, and specifiers are
// stored in their normalized string forms.
func New(set *pinset.MergedPinSet, envs []pinset.Environment) *Report {
	ret := &Report{
		OK:           set.OK(),
		Pythons:      []string{},
		Environments: []string{},
		Pins:         []Pin{},
	}
	var pythons []pinset.InterpreterVersion
	for _, env := range envs {
		ret.Environments = append(ret.Environments, env.String())
		pythons = append(pythons, env.Python)
	}
	for _, py := range pinset.SortInterpreterVersions(pythons) {
		ret.Pythons = append(ret.Pythons, py.String())
	}
	for _, pin := range set.Pins {
		ret.Pins = append(ret.Pins, Pin{
			Name:         pin.Name,
			Version:      pin.Version.String(),
			Environments: pin.Environments,
			Superseded:   pin.Superseded,
		})
	}
	for _, trace := range set.Conflicts {
		ret.Conflicts = append(ret.Conflicts, newConflict(trace))
	}
	return ret
}

func newConflict(trace pinset.ConflictTrace) Conflict {
	ret := Conflict{
		Kind:         trace.Kind.String(),
		Package:      trace.Package,
		Environments: trace.Environments,
		Reason:       trace.Reason,
	}
	for _, choice := range trace.Choices {
		ret.Choices = append(ret.Choices, Choice{
			Environment: choice.Environment,
			Version:     choice.Version.String(),
		})
	}
	for _, link := range trace.Links {
		ret.Links = append(ret.Links, Link{
			Environment: link.Environment,
			Requirement: link.Requirement.String(),
			Origin:      link.Requirement.Origin.String(),
			Rejecting:   link.Rejecting.String(),
		})
	}
	for _, ver := range trace.Available {
		ret.Available = append(ret.Available, ver.String())
	}
	return ret
}

// YAML encodes the report.
func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// WriteFile atomically writes the report as YAML.
func (r *Report) WriteFile(path string) error {
	content, err := r.YAML()
	if err != nil {
		return err
	}
	if _, err := fsutil.WriteFileAtomic(path, content, 0o644); err != nil {
		return &pinset.WriteError{Path: path, Err: err}
	}
	return nil
}

// ConflictTable lays out the conflicts with one row per fact, grouped by package.
func ConflictTable(conflicts []pinset.ConflictTrace) table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"package", "kind", "environment", "detail"})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
		{Number: 2, AutoMerge: true},
	})
	for _, trace := range conflicts {
		envs := strings.Join(trace.Environments, ", ")
		if trace.Reason != "" {
			w.AppendRow(table.Row{trace.Package, trace.Kind, envs, trace.Reason})
		}
		for _, choice := range trace.Choices {
			w.AppendRow(table.Row{trace.Package, trace.Kind, choice.Environment,
				fmt.Sprintf("resolved %s==%s", trace.Package, choice.Version)})
		}
		for _, link := range trace.Links {
			detail := fmt.Sprintf("%s (from %s)", link.Requirement, link.Requirement.Origin)
			if len(link.Rejecting) > 0 {
				detail += fmt.Sprintf(", rejects with %s", link.Rejecting)
			}
			w.AppendRow(table.Row{trace.Package, trace.Kind, link.Environment, detail})
		}
		if len(trace.Available) > 0 {
			strs := make([]string, 0, len(trace.Available))
			for _, ver := range trace.Available {
				strs = append(strs, ver.String())
			}
			w.AppendRow(table.Row{trace.Package, trace.Kind, envs, "available: " + strings.Join(strs, ", ")})
		} else if trace.Reason == "" && len(trace.Links) == 0 && len(trace.Choices) == 0 {
			w.AppendRow(table.Row{trace.Package, trace.Kind, envs, "no candidates"})
		}
		w.AppendSeparator()
	}
	return w
}

// PrintConflicts writes the conflict table to w.
func PrintConflicts(w io.Writer, conflicts []pinset.ConflictTrace) error {
	_, err := io.WriteString(w, ConflictTable(conflicts).Render()+"\n")
	return err
}

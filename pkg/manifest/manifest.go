// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package manifest writes a merged pin set as a requirements.txt file.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datawire/pinset/pkg/fsutil"
	"github.com/datawire/pinset/pkg/pinset"
)

const DefaultFilename = "requirements.txt"

// Render formats the pins one per line, sorted by name.  A pin that only some of the requested
// interpreter versions need is restricted to them with a python_version marker.  It refuses to
// render a pin set that has conflicts.
func Render(set *pinset.MergedPinSet, envs []pinset.Environment, header string) ([]byte, error) {
	if !set.OK() {
		return nil, &pinset.ConflictsError{Conflicts: set.Conflicts}
	}
	pythonOf := make(map[string]pinset.InterpreterVersion, len(envs))
	var all []pinset.InterpreterVersion
	for _, env := range envs {
		pythonOf[env.String()] = env.Python
		all = append(all, env.Python)
	}
	all = pinset.SortInterpreterVersions(all)

	var ret strings.Builder
	if header != "" {
		ret.WriteString(header)
		if !strings.HasSuffix(header, "\n") {
			ret.WriteString("\n")
		}
	}
	for _, pin := range set.Pins {
		fmt.Fprintf(&ret, "%s==%s", pin.Name, pin.Version)
		var pythons []pinset.InterpreterVersion
		for _, env := range pin.Environments {
			py, ok := pythonOf[env]
			if !ok {
				return nil, fmt.Errorf("manifest: %s: unknown environment %q", pin.Name, env)
			}
			pythons = append(pythons, py)
		}
		pythons = pinset.SortInterpreterVersions(pythons)
		if len(pythons) < len(all) {
			clauses := make([]string, 0, len(pythons))
			for _, py := range pythons {
				clauses = append(clauses, fmt.Sprintf("python_version=='%s'", py))
			}
			ret.WriteString("; " + strings.Join(clauses, " or "))
		}
		ret.WriteString("\n")
	}
	return []byte(ret.String()), nil
}

// Destination resolves where the manifest goes: a bare filename is placed in the project
// directory, and anything with a directory part is used as is (with a leading "~/" expanded).
func Destination(projectDir, filename string) (string, error) {
	if filename == "" {
		filename = DefaultFilename
	}
	if filepath.Base(filename) == filename {
		return filepath.Join(projectDir, filename), nil
	}
	if strings.HasPrefix(filename, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, filename[2:]), nil
	}
	return filename, nil
}

// Write renders the pin set and atomically replaces path with it.  It reports whether the file
// changed.  Failure to write is a *pinset.WriteError.
func Write(path string, set *pinset.MergedPinSet, envs []pinset.Environment, header string) (bool, error) {
	content, err := Render(set, envs, header)
	if err != nil {
		return false, err
	}
	changed, err := fsutil.WriteFileAtomic(path, content, 0o644)
	if err != nil {
		return false, &pinset.WriteError{Path: path, Err: err}
	}
	return changed, nil
}

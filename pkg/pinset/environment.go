// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pinset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
)

// InterpreterVersion is a Python "major.minor" release.
type InterpreterVersion struct {
	Major int
	Minor int
}

func ParseInterpreterVersion(str string) (InterpreterVersion, error) {
	parts := strings.Split(strings.TrimSpace(str), ".")
	if len(parts) != 2 {
		return InterpreterVersion{}, &ConfigurationError{
			Msg: fmt.Sprintf("invalid interpreter version %q: must be MAJOR.MINOR", str),
		}
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || major < 0 || minor < 0 {
		return InterpreterVersion{}, &ConfigurationError{
			Msg: fmt.Sprintf("invalid interpreter version %q: must be MAJOR.MINOR", str),
		}
	}
	return InterpreterVersion{Major: major, Minor: minor}, nil
}

func (v InterpreterVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

func (v InterpreterVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *InterpreterVersion) UnmarshalText(text []byte) error {
	parsed, err := ParseInterpreterVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v InterpreterVersion) Cmp(o InterpreterVersion) int {
	if v.Major != o.Major {
		return v.Major - o.Major
	}
	return v.Minor - o.Minor
}

// FullVersion is the version that "Requires-Python" and "python_full_version" are evaluated
// against: "major.minor.0".
func (v InterpreterVersion) FullVersion() pep440.Version {
	return pep440.Version{PublicVersion: pep440.PublicVersion{Release: []int{v.Major, v.Minor, 0}}}
}

// SortInterpreterVersions sorts ascending and removes duplicates.
func SortInterpreterVersions(vers []InterpreterVersion) []InterpreterVersion {
	sorted := append([]InterpreterVersion(nil), vers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })
	ret := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			ret = append(ret, v)
		}
	}
	return ret
}

// Environment is one interpreter version with one selection of the project's extras.  It is a
// value type; use String as a map key.
type Environment struct {
	Python InterpreterVersion
	// Extras are normalized, sorted, and unique.
	Extras []string
}

func NewEnvironment(python InterpreterVersion, extras ...string) Environment {
	set := sets.New[string]()
	for _, extra := range extras {
		set.Insert(pep508.NormalizeName(extra))
	}
	ret := Environment{Python: python}
	if set.Len() > 0 {
		ret.Extras = sets.List(set)
	}
	return ret
}

// String is "py3.11" or "py3.11[dev,docs]".
func (e Environment) String() string {
	str := "py" + e.Python.String()
	if len(e.Extras) > 0 {
		str += "[" + strings.Join(e.Extras, ",") + "]"
	}
	return str
}

func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e Environment) Equal(o Environment) bool {
	return e.String() == o.String()
}

// MarkerEnvironment returns the values that the project's own requirement markers are evaluated
// against; "extra" is any of the environment's extras.
func (e Environment) MarkerEnvironment(platform map[string]string) pep508.Environment {
	return pep508.PythonEnvironment(e.Python.Major, e.Python.Minor, platform).WithExtras(e.Extras...)
}

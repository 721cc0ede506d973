// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep508

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Environment is the set of marker variables that markers are evaluated against.
type Environment struct {
	// Values maps marker variable names ("python_version", "sys_platform", ...) to their values.
	Values map[string]string
	// Extras is the set of normalized extra names that "extra" compares against.
	Extras sets.Set[string]
}

// DefaultPlatform is the marker environment of a typical CPython on Linux; it fills in every
// variable that is not derived from the interpreter version.
//
//nolint:gochecknoglobals // Would be 'const'.
var DefaultPlatform = map[string]string{
	"os_name":                        "posix",
	"sys_platform":                   "linux",
	"platform_machine":               "x86_64",
	"platform_python_implementation": "CPython",
	"platform_release":               "",
	"platform_system":                "Linux",
	"platform_version":               "",
	"implementation_name":            "cpython",
}

// PythonEnvironment returns the marker environment for CPython major.minor, with
// platform overriding DefaultPlatform.  The full version is taken to be "major.minor.0".
func PythonEnvironment(major, minor int, platform map[string]string) Environment {
	values := make(map[string]string, len(DefaultPlatform)+3)
	for k, v := range DefaultPlatform {
		values[k] = v
	}
	for k, v := range platform {
		values[k] = v
	}
	values["python_version"] = fmt.Sprintf("%d.%d", major, minor)
	values["python_full_version"] = fmt.Sprintf("%d.%d.0", major, minor)
	values["implementation_version"] = values["python_full_version"]
	return Environment{
		Values: values,
		Extras: sets.New[string](),
	}
}

// WithExtras returns a copy of env whose extras are exactly the given names.
func (env Environment) WithExtras(extras ...string) Environment {
	set := sets.New[string]()
	for _, extra := range extras {
		set.Insert(NormalizeName(extra))
	}
	return Environment{
		Values: env.Values,
		Extras: set,
	}
}

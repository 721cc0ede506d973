// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package config reads the optional pinset.yml file that supplies defaults for the command-line
// flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	yamlv2 "gopkg.in/yaml.v2"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/pinset/matrix"
	"github.com/datawire/pinset/pkg/pinset/solver"
)

// DefaultFilename is looked for in the project directory when no file is named explicitly.
const DefaultFilename = "pinset.yml"

// Config is the file format.  Every field is optional; a zero value means "not set".
type Config struct {
	IndexURL      string `json:"indexURL,omitempty"`
	Concurrency   int    `json:"concurrency,omitempty"`
	FetchAttempts int    `json:"fetchAttempts,omitempty"`
	// FetchTimeout bounds each request to the index ("30s", "2m").
	FetchTimeout metav1.Duration `json:"fetchTimeout,omitempty"`
	PreReleases  string          `json:"preReleases,omitempty"`
	MaxSteps     int             `json:"maxSteps,omitempty"`
	Header       string          `json:"header,omitempty"`
	Filename     string          `json:"filename,omitempty"`
	// PythonVersions must be quoted in YAML ("3.10"); Parse rejects numbers, which would read
	// 3.10 as 3.1.
	PythonVersions []string `json:"pythonVersions,omitempty"`
	// Extras is a comma-separated list, "all", or "none".
	Extras string `json:"extras,omitempty"`
	// Platform overrides marker variables such as sys_platform.
	Platform  map[string]string `json:"platform,omitempty"`
	CacheSize int               `json:"cacheSize,omitempty"`
}

// Parse decodes and validates a config file's content.  Unknown keys are an error.
func Parse(content []byte) (*Config, error) {
	if err := checkPythonsQuoted(content); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg, yaml.DisallowUnknownFields); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// checkPythonsQuoted looks at the raw YAML nodes of pythonVersions, before they are coerced to
// strings.
func checkPythonsQuoted(content []byte) error {
	var raw struct {
		PythonVersions []interface{} `yaml:"pythonVersions"`
	}
	if err := yamlv2.Unmarshal(content, &raw); err != nil {
		return err
	}
	for _, item := range raw.PythonVersions {
		if _, ok := item.(string); !ok {
			return fmt.Errorf("pythonVersions: %v is not a string; quote interpreter versions, as in \"3.10\"", item)
		}
	}
	return nil
}

// Load reads the named config file.  All failures are a *pinset.ConfigurationError.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &pinset.ConfigurationError{Msg: "reading config file", Err: err}
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, &pinset.ConfigurationError{Msg: path, Err: err}
	}
	return cfg, nil
}

// LoadDefault loads DefaultFilename from dir, or returns an empty Config if there is no such
// file.
func LoadDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, DefaultFilename)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	return Load(path)
}

// Validate checks the values that can be checked without the project.
func (c *Config) Validate() error {
	for _, check := range []struct {
		name string
		val  int
	}{
		{"concurrency", c.Concurrency},
		{"fetchAttempts", c.FetchAttempts},
		{"maxSteps", c.MaxSteps},
		{"cacheSize", c.CacheSize},
	} {
		if check.val < 0 {
			return fmt.Errorf("%s: must not be negative: %d", check.name, check.val)
		}
	}
	if c.FetchTimeout.Duration < 0 {
		return fmt.Errorf("fetchTimeout: must not be negative: %s", c.FetchTimeout.Duration)
	}
	if _, err := c.PreReleasePolicy(); err != nil {
		return fmt.Errorf("preReleases: %w", err)
	}
	if _, err := c.Pythons(); err != nil {
		return fmt.Errorf("pythonVersions: %w", err)
	}
	return nil
}

func (c *Config) PreReleasePolicy() (solver.PreReleasePolicy, error) {
	return solver.ParsePreReleasePolicy(c.PreReleases)
}

// Pythons parses PythonVersions; it returns nil if none are set.
func (c *Config) Pythons() ([]pinset.InterpreterVersion, error) {
	return ParsePythons(c.PythonVersions)
}

// ExtrasSelection parses Extras, treating an unset value as "all".
func (c *Config) ExtrasSelection() matrix.Extras {
	if c.Extras == "" {
		return matrix.ParseExtras(matrix.AllExtras)
	}
	return matrix.ParseExtras(c.Extras)
}

// ParsePythons parses interpreter versions, each of which may itself be a comma-separated list.
func ParsePythons(strs []string) ([]pinset.InterpreterVersion, error) {
	var ret []pinset.InterpreterVersion
	for _, str := range strs {
		for _, part := range strings.Split(str, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			ver, err := pinset.ParseInterpreterVersion(part)
			if err != nil {
				return nil, err
			}
			ret = append(ret, ver)
		}
	}
	if len(ret) == 0 {
		return nil, nil
	}
	return pinset.SortInterpreterVersions(ret), nil
}

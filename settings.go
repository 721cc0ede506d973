// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/cobra"

	"github.com/datawire/pinset/pkg/config"
	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/pinset/metacache"
	"github.com/datawire/pinset/pkg/pinset/pypi"
	"github.com/datawire/pinset/pkg/python/endoflife"
	"github.com/datawire/pinset/pkg/python/pep503"
	"github.com/datawire/pinset/pkg/python/pep629"
	"github.com/datawire/pinset/pkg/reproducible"
)

// settingsFlags are the flags shared by every command that reads the project and the index.
type settingsFlags struct {
	Directory  string
	ConfigFile string
	Config     config.Config
}

func (f *settingsFlags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Directory, "directory", "C", ".",
		"Pin the project in `DIR`, which has a pyproject.toml or PKG-INFO")
	cmd.Flags().StringVar(&f.ConfigFile, "config", "",
		"Read settings from `FILE` (default: "+config.DefaultFilename+" in the project directory, if present)")
	f.Config.AddFlags(cmd.Flags())
}

// load reads the config file and applies the command-line flags on top of it.
func (f *settingsFlags) load(cmd *cobra.Command) (*config.Config, error) {
	var file *config.Config
	var err error
	if f.ConfigFile != "" {
		file, err = config.Load(f.ConfigFile)
	} else {
		file, err = config.LoadDefault(f.Directory)
	}
	if err != nil {
		return nil, err
	}
	cfg := config.Overlay(file, cmd.Flags(), &f.Config)
	if err := cfg.Validate(); err != nil {
		return nil, &pinset.ConfigurationError{Msg: "invalid settings", Err: err}
	}
	return cfg, nil
}

// newSource returns the metadata cache in front of the configured package index.
func newSource(cfg *config.Config) (*metacache.Cache, error) {
	pages, err := pep503.NewPageCache(cfg.PageCacheSize())
	if err != nil {
		return nil, err
	}
	client := pep503.Client{
		BaseURL:    cfg.IndexURL,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout()},
		HTMLHook:   pep629.HTMLVersionCheck,
		Pages:      pages,
	}
	return metacache.New(pypi.New(client), metacache.WithAttempts(cfg.FetchAttempts)), nil
}

// pythons returns the configured interpreter versions, or asks endoflife.date for the Python 3
// releases that are currently supported.
func pythons(ctx context.Context, cfg *config.Config) ([]pinset.InterpreterVersion, error) {
	vers, err := cfg.Pythons()
	if err != nil {
		return nil, &pinset.ConfigurationError{Msg: "python versions", Err: err}
	}
	if len(vers) > 0 {
		return vers, nil
	}
	active, err := endoflife.Client{HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout()}}.ActivePython3(ctx, reproducible.Today())
	if err != nil {
		return nil, fmt.Errorf("looking up supported Python versions: %w", err)
	}
	for _, pair := range active {
		vers = append(vers, pinset.InterpreterVersion{Major: pair[0], Minor: pair[1]})
	}
	if len(vers) == 0 {
		return nil, &pinset.ConfigurationError{Msg: "endoflife.date lists no supported Python 3 release"}
	}
	dlog.Debugf(ctx, "supported Python versions: %v", vers)
	return vers, nil
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/spf13/pflag"
)

const (
	// DefaultCacheSize is the number of index pages kept in memory when cacheSize is not set.
	DefaultCacheSize = 256
	// DefaultFetchTimeout bounds one index request when fetchTimeout is not set.
	DefaultFetchTimeout = 30 * time.Second
)

// AddFlags registers a flag for each setting, storing into c.  Flags default to the zero value,
// so that Overlay can tell which ones the user set.
func (c *Config) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.IndexURL, "index-url", "",
		"Read packages from the PEP 503 index at `URL` (default https://pypi.org/simple/)")
	flags.IntVar(&c.Concurrency, "concurrency", 0,
		"Resolve at most `N` environments at once (default: number of CPUs)")
	flags.IntVar(&c.FetchAttempts, "fetch-attempts", 0,
		"Try each index lookup up to `N` times (default 3)")
	flags.DurationVar(&c.FetchTimeout.Duration, "fetch-timeout", 0,
		"Give up on an index request after `DURATION`, then retry it (default 30s)")
	flags.StringVar(&c.PreReleases, "pre", "",
		"Pre-release `POLICY`: allow, if-needed, or deny (default if-needed)")
	flags.IntVar(&c.MaxSteps, "max-steps", 0,
		"Give up on an environment after `N` search steps (default 100000)")
	flags.StringVar(&c.Header, "header", "",
		"Write `TEXT` at the top of the manifest")
	flags.StringVar(&c.Filename, "filename", "",
		"Write the manifest to `FILE`; a bare name is relative to the project directory "+
			"(default requirements.txt)")
	flags.StringSliceVar(&c.PythonVersions, "python-versions", nil,
		"Pin for the interpreter `VERSIONS` (default: every supported Python 3 release)")
	flags.StringVar(&c.Extras, "extras", "",
		"Comma-separated project `EXTRAS` to include, \"all\", or \"none\" (default all)")
	flags.StringToStringVar(&c.Platform, "platform", nil,
		"Marker `VARIABLE=VALUE` pairs describing the target platform (default Linux x86_64 CPython)")
	flags.IntVar(&c.CacheSize, "cache-size", 0,
		"Keep up to `N` index pages in memory (default 256)")
}

// Overlay returns a copy of base, with every setting whose flag was given on the command line
// taken from flagged.
func Overlay(base *Config, flags *pflag.FlagSet, flagged *Config) *Config {
	ret := *base
	set := func(name string, fn func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			fn()
		}
	}
	set("index-url", func() { ret.IndexURL = flagged.IndexURL })
	set("concurrency", func() { ret.Concurrency = flagged.Concurrency })
	set("fetch-attempts", func() { ret.FetchAttempts = flagged.FetchAttempts })
	set("fetch-timeout", func() { ret.FetchTimeout = flagged.FetchTimeout })
	set("pre", func() { ret.PreReleases = flagged.PreReleases })
	set("max-steps", func() { ret.MaxSteps = flagged.MaxSteps })
	set("header", func() { ret.Header = flagged.Header })
	set("filename", func() { ret.Filename = flagged.Filename })
	set("python-versions", func() { ret.PythonVersions = flagged.PythonVersions })
	set("extras", func() {
		ret.Extras = flagged.Extras
		if ret.Extras == "" {
			ret.Extras = "none"
		}
	})
	set("platform", func() { ret.Platform = flagged.Platform })
	set("cache-size", func() { ret.CacheSize = flagged.CacheSize })
	return &ret
}

// PageCacheSize returns CacheSize, or DefaultCacheSize if it is not set.
func (c *Config) PageCacheSize() int {
	if c.CacheSize > 0 {
		return c.CacheSize
	}
	return DefaultCacheSize
}

// HTTPTimeout returns FetchTimeout, or DefaultFetchTimeout if it is not set.
func (c *Config) HTTPTimeout() time.Duration {
	if c.FetchTimeout.Duration > 0 {
		return c.FetchTimeout.Duration
	}
	return DefaultFetchTimeout
}

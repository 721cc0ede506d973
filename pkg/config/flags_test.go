// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/datawire/pinset/pkg/config"
)

func TestOverlay(t *testing.T) {
	t.Parallel()
	base := &config.Config{
		IndexURL:       "https://file.example.com/simple/",
		Concurrency:    2,
		PythonVersions: []string{"3.8"},
		Extras:         "docs",
	}

	var flagged config.Config
	flags := pflag.NewFlagSet("compile", pflag.ContinueOnError)
	flagged.AddFlags(flags)
	require.NoError(t, flags.Parse([]string{
		"--concurrency=8",
		"--fetch-timeout=90s",
		"--python-versions=3.11,3.12",
		"--extras=",
		"--platform=sys_platform=win32",
	}))

	merged := config.Overlay(base, flags, &flagged)
	assert.Equal(t, &config.Config{
		IndexURL:       "https://file.example.com/simple/",
		Concurrency:    8,
		FetchTimeout:   metav1.Duration{Duration: 90 * time.Second},
		PythonVersions: []string{"3.11", "3.12"},
		Extras:         "none",
		Platform:       map[string]string{"sys_platform": "win32"},
	}, merged)
	assert.Equal(t, 2, base.Concurrency)
}

func TestPageCacheSize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, config.DefaultCacheSize, (&config.Config{}).PageCacheSize())
	assert.Equal(t, 10, (&config.Config{CacheSize: 10}).PageCacheSize())
}

func TestHTTPTimeout(t *testing.T) {
	t.Parallel()
	assert.Equal(t, config.DefaultFetchTimeout, (&config.Config{}).HTTPTimeout())
	cfg := &config.Config{FetchTimeout: metav1.Duration{Duration: time.Second}}
	assert.Equal(t, time.Second, cfg.HTTPTimeout())
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package endoflife_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/pinset/pkg/python/endoflife"
)

const pythonJSON = `[
  {"cycle":"3.12","releaseDate":"2023-10-02","eol":"2028-10-02","latest":"3.12.0"},
  {"cycle":"3.11","releaseDate":"2022-10-24","eol":"2027-10-24","latest":"3.11.6"},
  {"cycle":"3.8","releaseDate":"2019-10-14","eol":"2024-10-14","latest":"3.8.18"},
  {"cycle":"3.13","releaseDate":"2024-10-07","eol":false,"latest":"3.13.0"},
  {"cycle":"2.7","releaseDate":"2010-07-03","eol":"2030-01-01","latest":"2.7.18"},
  {"cycle":"3","releaseDate":"2008-12-03","eol":true,"latest":"3.0.1"}
]`

func TestActivePython3(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/python.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pythonJSON))
	}))
	t.Cleanup(srv.Close)

	client := endoflife.Client{URL: srv.URL + "/api/python.json"}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	active, err := client.ActivePython3(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{3, 8}, {3, 11}, {3, 12}, {3, 13}}, active)

	later := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	active, err = client.ActivePython3(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{3, 11}, {3, 12}, {3, 13}}, active)
}

func TestHTTPError(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := endoflife.Client{URL: srv.URL}.Cycles(ctx)
	assert.ErrorContains(t, err, "503")
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/pinset/pkg/pinset"
)

const pyprojectTOML = `[project]
name = "myproject"
version = "0.1"
dependencies = ["lib"]
`

// indexServer serves a PEP 503 index from a map of project name to page body.  An empty body is
// an HTTP 500.
func indexServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/simple/"), "/")
		body, ok := pages[name]
		switch {
		case !ok:
			http.NotFound(w, r)
		case body == "":
			http.Error(w, "index is down", http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body>\n" + body + "</body></html>\n"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func projectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(pyprojectTOML), 0o644))
	return dir
}

func runCompile(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newCompileCommand()
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(dlog.NewTestContext(t, false))
	return out.String(), err
}

func TestCompile(t *testing.T) {
	t.Parallel()
	srv := indexServer(t, map[string]string{
		"lib": `<a href="/files/lib-1.0.tar.gz">lib-1.0.tar.gz</a>` + "\n",
	})
	dir := projectDir(t)

	_, err := runCompile(t, "-C", dir, "--index-url", srv.URL+"/simple/",
		"--python-versions=3.10,3.11", "--header=# pinned")
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "requirements.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "# pinned\n"), string(content))
	assert.Contains(t, string(content), "lib==1.0\n")
}

func TestCompileConflictWritesNothing(t *testing.T) {
	t.Parallel()
	srv := indexServer(t, map[string]string{
		"lib": `<a href="/files/lib-1.0.tar.gz" data-requires-python="&lt;3.11">lib-1.0.tar.gz</a>` + "\n" +
			`<a href="/files/lib-2.0.tar.gz" data-requires-python="&gt;=3.11">lib-2.0.tar.gz</a>` + "\n",
	})
	dir := projectDir(t)
	reportFile := filepath.Join(t.TempDir(), "report.yml")

	out, err := runCompile(t, "-C", dir, "--index-url", srv.URL+"/simple/",
		"--python-versions=3.10,3.11", "--report", reportFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pin set works in every environment (1 conflicts)")
	assert.Contains(t, err.Error(), "was not written")
	assert.Contains(t, out, "lib")
	assert.Contains(t, out, "resolved lib==1.0")
	assert.Contains(t, out, "resolved lib==2.0")

	_, err = os.Stat(filepath.Join(dir, "requirements.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "manifest should not exist: %v", err)

	report, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.Contains(t, string(report), "ok: false")
	assert.Contains(t, string(report), "package: lib")
}

func TestCompileFetchFailureWritesNothing(t *testing.T) {
	t.Parallel()
	srv := indexServer(t, map[string]string{
		"lib": "",
	})
	dir := projectDir(t)

	_, err := runCompile(t, "-C", dir, "--index-url", srv.URL+"/simple/",
		"--python-versions=3.10,3.11", "--fetch-attempts=1")
	require.Error(t, err)
	var fetchErr *pinset.MetadataFetchError
	require.True(t, errors.As(err, &fetchErr), "%v", err)
	assert.Equal(t, "lib", fetchErr.Package)

	_, err = os.Stat(filepath.Join(dir, "requirements.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist), "manifest should not exist: %v", err)
}

func TestCompileConfigurationError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pinset.yml"), []byte("pythonVersions: [3.10]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(pyprojectTOML), 0o644))

	_, err := runCompile(t, "-C", dir)
	var cfgErr *pinset.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr), "%v", err)
}

// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep503_test

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawire/pinset/pkg/python/pep503"
	"github.com/datawire/pinset/pkg/python/pep592"
	"github.com/datawire/pinset/pkg/python/pep629"
)

const metadata = "Metadata-Version: 2.1\nName: demo\nVersion: 1.0\n\n"

func sha256hex(str string) string {
	sum := sha256.Sum256([]byte(str))
	return hex.EncodeToString(sum[:])
}

type server struct {
	*httptest.Server
	hits     int32
	repoVer  string
	metaHash string
}

func newServer(t *testing.T, repoVer, metaHash string) *server {
	t.Helper()
	srv := &server{repoVer: repoVer, metaHash: metaHash}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&srv.hits, 1)
		switch r.URL.Path {
		case "/simple/demo/":
			fmt.Fprintf(w, `<!DOCTYPE html>
<html><head><meta name="pypi:repository-version" content="%s"></head><body>
<a href="../../files/demo-1.0-py3-none-any.whl#sha256=%s" data-requires-python="&gt;=3.8" data-dist-info-metadata="sha256=%s">demo-1.0-py3-none-any.whl</a>
<a href="../../files/demo-0.9.tar.gz" data-yanked="broken">demo-0.9.tar.gz</a>
<a href="../../files/demo-0.8.tar.gz" data-core-metadata="false">demo-0.8.tar.gz</a>
</body></html>`, srv.repoVer, sha256hex("wheel"), srv.metaHash)
		case "/files/demo-1.0-py3-none-any.whl":
			_, _ = w.Write([]byte("wheel"))
		case "/files/demo-1.0-py3-none-any.whl.metadata":
			_, _ = w.Write([]byte(metadata))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestListPackageFiles(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	srv := newServer(t, "1.0", sha256hex(metadata))
	client := pep503.Client{
		BaseURL:  srv.URL + "/simple/",
		HTMLHook: pep629.HTMLVersionCheck,
	}

	links, err := client.ListPackageFiles(ctx, "Demo")
	require.NoError(t, err)
	require.Len(t, links, 3)

	whl := links[0]
	assert.Equal(t, "demo-1.0-py3-none-any.whl", whl.Text)
	assert.Equal(t, srv.URL+"/files/demo-1.0-py3-none-any.whl#sha256="+sha256hex("wheel"), whl.HRef)
	reqPy, err := whl.RequiresPython()
	require.NoError(t, err)
	assert.Equal(t, ">=3.8", reqPy.String())
	assert.False(t, pep592.IsYanked(whl))
	assert.True(t, whl.HasMetadata())

	content, err := whl.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wheel", string(content))

	md, err := whl.GetMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, metadata, string(md))

	assert.True(t, pep592.IsYanked(links[1]))
	assert.Equal(t, "broken", pep592.Reason(links[1]))
	assert.False(t, links[1].HasMetadata())
	assert.False(t, links[2].HasMetadata())
	_, err = links[2].GetMetadata(ctx)
	assert.Error(t, err)
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	srv := newServer(t, "1.0", sha256hex(metadata))
	client := pep503.Client{BaseURL: srv.URL + "/simple/"}

	_, err := client.ListPackageFiles(ctx, "nonexistent")
	require.Error(t, err)
	assert.True(t, pep503.IsNotFound(err))

	_, err = client.ListPackageFiles(ctx, "bad/name")
	require.Error(t, err)
	assert.False(t, pep503.IsNotFound(err))
}

func TestPageCache(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	srv := newServer(t, "1.0", sha256hex(metadata))
	pages, err := pep503.NewPageCache(16)
	require.NoError(t, err)
	client := pep503.Client{BaseURL: srv.URL + "/simple/", Pages: pages}

	for i := 0; i < 3; i++ {
		_, err := client.ListPackageFiles(ctx, "demo")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&srv.hits))
}

func TestRepositoryVersion(t *testing.T) {
	t.Parallel()
	ctx := dlog.NewTestContext(t, false)
	srv := newServer(t, "2.0", sha256hex(metadata))
	client := pep503.Client{BaseURL: srv.URL + "/simple/", HTMLHook: pep629.HTMLVersionCheck}

	_, err := client.ListPackageFiles(ctx, "demo")
	assert.ErrorContains(t, err, "not compatible")
}

func TestHTTPErrorTemporary(t *testing.T) {
	t.Parallel()
	assert.True(t, (&pep503.HTTPError{StatusCode: http.StatusServiceUnavailable}).Temporary())
	assert.True(t, (&pep503.HTTPError{StatusCode: http.StatusTooManyRequests}).Temporary())
	assert.False(t, (&pep503.HTTPError{StatusCode: http.StatusNotFound}).Temporary())
}

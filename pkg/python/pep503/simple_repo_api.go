// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep503 implements PEP 503 -- Simple Repository API.
//
// https://www.python.org/dev/peps/pep-0503/
package pep503

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/html"

	"github.com/datawire/pinset/pkg/htmlutil"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
	HTMLHook   func(context.Context, *html.Node) error
	// Pages, if set, caches fetched bodies by URL.
	Pages *lru.Cache[string, []byte]
}

const PyPIBaseURL = "https://pypi.org/simple/"

// NewPageCache returns a page cache suitable for Client.Pages.
func NewPageCache(size int) (*lru.Cache[string, []byte], error) {
	return lru.New[string, []byte](size)
}

func (c *Client) fillDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = PyPIBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.UserAgent == "" {
		c.UserAgent = "github.com/datawire/pinset/pkg/python/pep503"
	}
}

type HTTPError struct {
	Status     string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %s", e.Status)
}

// Temporary reports whether a retry could succeed: rate limiting and server errors.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is (or wraps) an HTTP 404 or 410.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) &&
		(httpErr.StatusCode == http.StatusNotFound || httpErr.StatusCode == http.StatusGone)
}

// get fetches a URL.  If cache is set and the client has a page cache, the body is cached.
func (c Client) get(ctx context.Context, requestURL string, cache bool) (_ *url.URL, _ []byte, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("GET %q => %w", requestURL, err)
		}
	}()
	c.fillDefaults()

	cache = cache && c.Pages != nil
	if cache {
		if content, ok := c.Pages.Get(requestURL); ok {
			u, err := url.Parse(requestURL)
			return u, content, err
		}
	}

	// 1. Build the request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	// 2. Do the networking
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		_ = resp.Body.Close()
		return nil, nil, err
	}
	if err := resp.Body.Close(); err != nil {
		return nil, nil, err
	}

	// 3. Validate the result
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &HTTPError{Status: resp.Status, StatusCode: resp.StatusCode}
	}

	if cache {
		c.Pages.Add(requestURL, content)
	}
	return resp.Request.URL, content, nil
}

type Link struct {
	Text      string
	HRef      string
	DataAttrs map[string]string
}

func (c Client) getHTML5Index(ctx context.Context, requestURL string) ([]Link, error) {
	location, content, err := c.get(ctx, requestURL, true)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	if c.HTMLHook != nil {
		if err := c.HTMLHook(ctx, doc); err != nil {
			return nil, err
		}
	}

	var links []Link
	if err := htmlutil.VisitHTML(doc, nil, func(node *html.Node) error {
		if node.Type != html.ElementNode || node.Data != "a" {
			return nil
		}
		link := Link{
			DataAttrs: make(map[string]string),
		}
		for _, attr := range node.Attr {
			switch {
			case attr.Namespace == "" && attr.Key == "href":
				href, err := location.Parse(attr.Val)
				if err != nil {
					return err
				}
				link.HRef = href.String()
			case attr.Namespace == "" && strings.HasPrefix(attr.Key, "data-"):
				link.DataAttrs[attr.Key] = attr.Val
			}
		}
		link.Text = strings.TrimSpace(htmlutil.Text(node))
		links = append(links, link)
		return nil
	}); err != nil {
		return nil, err
	}

	return links, nil
}

type FileLink struct {
	client Client
	Link
}

// ListPackageFiles lists the distribution files that the index has for a project.  A project
// that the index does not know about yields an error for which IsNotFound is true.
func (c Client) ListPackageFiles(ctx context.Context, pkgname string) ([]FileLink, error) {
	// "the only valid characters in a name are the ASCII alphabet, ASCII numbers, `.`, `-`, and
	// `_`."
	for _, char := range pkgname {
		if !(('a' <= char && char <= 'z') ||
			('A' <= char && char <= 'Z') ||
			('0' <= char && char <= '9') ||
			char == '.' ||
			char == '-' ||
			char == '_') {
			return nil, fmt.Errorf("illegal character in pkgname: %q: %s",
				pkgname, strconv.QuoteRuneToASCII(char))
		}
	}

	c.fillDefaults()
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	// The trailing slash is canonical, and avoids a redirect.
	u.Path = path.Join(u.Path, pep508.NormalizeName(pkgname)) + "/"
	rawLinks, err := c.getHTML5Index(ctx, u.String())
	if err != nil {
		return nil, err
	}
	links := make([]FileLink, 0, len(rawLinks))
	for _, link := range rawLinks {
		links = append(links, FileLink{
			client: c,
			Link:   link,
		})
	}
	return links, nil
}

// Get downloads the file.
func (l FileLink) Get(ctx context.Context) ([]byte, error) {
	_, content, err := l.client.get(ctx, l.HRef, false)
	return content, err
}

// RequiresPython parses the data-requires-python attribute; an absent attribute is the empty
// specifier.
func (l FileLink) RequiresPython() (pep440.Specifier, error) {
	str := strings.TrimSpace(l.DataAttrs["data-requires-python"])
	if str == "" {
		return nil, nil
	}
	return pep440.ParseSpecifier(str)
}

// metadataAttr returns the PEP 658 attribute, preferring the PEP 714 spelling.
func (l FileLink) metadataAttr() (string, bool) {
	if val, ok := l.DataAttrs["data-core-metadata"]; ok {
		return val, true
	}
	val, ok := l.DataAttrs["data-dist-info-metadata"]
	return val, ok
}

// HasMetadata reports whether the index serves the file's core metadata separately (PEP 658).
func (l FileLink) HasMetadata() bool {
	val, ok := l.metadataAttr()
	return ok && val != "false"
}

// GetMetadata fetches the file's core metadata via PEP 658.
func (l FileLink) GetMetadata(ctx context.Context) ([]byte, error) {
	val, ok := l.metadataAttr()
	if !ok || val == "false" {
		return nil, fmt.Errorf("%s: index does not serve metadata for this file", l.Text)
	}
	u, err := url.Parse(l.HRef)
	if err != nil {
		return nil, err
	}
	u.Path += ".metadata"
	u.RawPath = ""
	u.Fragment = ""
	_, content, err := l.client.get(ctx, u.String(), true)
	return content, err
}

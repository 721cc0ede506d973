// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package htmlutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/datawire/pinset/pkg/htmlutil"
)

func TestVisitHTML(t *testing.T) {
	t.Parallel()
	doc, err := html.Parse(strings.NewReader(
		`<html><body><a href="/a" data-x="1">one <b>two</b></a><a href="/b">three</a></body></html>`))
	require.NoError(t, err)

	var hrefs, texts []string
	require.NoError(t, htmlutil.VisitHTML(doc, nil, func(node *html.Node) error {
		if node.Type == html.ElementNode && node.Data == "a" {
			href, _ := htmlutil.GetAttr(node, "", "href")
			hrefs = append(hrefs, href)
			texts = append(texts, htmlutil.Text(node))
		}
		return nil
	}))
	assert.Equal(t, []string{"/a", "/b"}, hrefs)
	assert.Equal(t, []string{"one two", "three"}, texts)

	_, ok := htmlutil.GetAttr(nil, "", "href")
	assert.False(t, ok)
}

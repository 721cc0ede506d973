// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pypi serves package metadata from a PEP 503 simple index, such as PyPI.
package pypi

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/datawire/dlib/dlog"

	"github.com/datawire/pinset/pkg/pep427"
	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/coremeta"
	"github.com/datawire/pinset/pkg/python/distfile"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep503"
	"github.com/datawire/pinset/pkg/python/pep508"
	"github.com/datawire/pinset/pkg/python/pep592"
)

// release is the files that the index has for one version.
type release struct {
	candidate pinset.CandidateVersion
	files     []file
}

type file struct {
	link pep503.FileLink
	dist *distfile.File
}

// Index implements metacache.Index.
type Index struct {
	Client pep503.Client

	mu       sync.Mutex
	releases map[string]map[string]*release // name => version => release
}

func New(client pep503.Client) *Index {
	return &Index{
		Client:   client,
		releases: make(map[string]map[string]*release),
	}
}

// Versions lists the releases of a package.  A release is yanked only if every one of its files
// is yanked.  Files whose names cannot be parsed are ignored.
func (ix *Index) Versions(ctx context.Context, name string) ([]pinset.CandidateVersion, error) {
	name = pep508.NormalizeName(name)
	links, err := ix.Client.ListPackageFiles(ctx, name)
	if err != nil {
		if pep503.IsNotFound(err) {
			dlog.Debugf(ctx, "pypi: %s: not on the index", name)
			return nil, nil
		}
		return nil, err
	}

	byVersion := make(map[string]*release)
	for _, link := range links {
		dist, err := distfile.Parse(link.Text)
		if err != nil {
			dlog.Debugf(ctx, "pypi: %s: skipping file: %v", name, err)
			continue
		}
		if dist.Name != name {
			dlog.Debugf(ctx, "pypi: %s: skipping file for %s: %s", name, dist.Name, link.Text)
			continue
		}
		requiresPython, err := link.RequiresPython()
		if err != nil {
			dlog.Warnf(ctx, "pypi: %s: skipping file with bad data-requires-python: %v", link.Text, err)
			continue
		}
		key := dist.Version.String()
		rel, ok := byVersion[key]
		if !ok {
			rel = &release{candidate: pinset.CandidateVersion{
				Name:           name,
				Version:        dist.Version,
				RequiresPython: requiresPython,
				Yanked:         true,
			}}
			byVersion[key] = rel
		}
		if pep592.IsYanked(link) {
			if reason := pep592.Reason(link); reason != "" {
				dlog.Debugf(ctx, "pypi: %s is yanked: %s", link.Text, reason)
			}
		} else {
			rel.candidate.Yanked = false
		}
		if len(rel.candidate.RequiresPython) == 0 {
			rel.candidate.RequiresPython = requiresPython
		}
		rel.files = append(rel.files, file{link: link, dist: dist})
	}

	ix.mu.Lock()
	ix.releases[name] = byVersion
	ix.mu.Unlock()

	keys := make([]string, 0, len(byVersion))
	for key := range byVersion {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	ret := make([]pinset.CandidateVersion, 0, len(keys))
	for _, key := range keys {
		ret = append(ret, byVersion[key].candidate)
	}
	return ret, nil
}

func (ix *Index) release(ctx context.Context, name string, version pep440.Version) (*release, error) {
	ix.mu.Lock()
	byVersion, ok := ix.releases[name]
	ix.mu.Unlock()
	if !ok {
		if _, err := ix.Versions(ctx, name); err != nil {
			return nil, err
		}
		ix.mu.Lock()
		byVersion = ix.releases[name]
		ix.mu.Unlock()
	}
	rel, ok := byVersion[version.String()]
	if !ok {
		return nil, fmt.Errorf("pypi: %s==%s: no such release on the index", name, version)
	}
	return rel, nil
}

// preference orders a release's files by how to get their metadata: wheels the index serves
// metadata for, then other wheels, then source distributions.  Pure-Python wheels come first
// within each group.
func preference(f file) int {
	var rank int
	switch {
	case f.dist.Kind == distfile.KindWheel && f.link.HasMetadata():
		rank = 0
	case f.dist.Kind == distfile.KindWheel:
		rank = 2
	default:
		rank = 4
	}
	if !f.dist.CompatibilityTag.IsPure() {
		rank++
	}
	return rank
}

// Requirements returns the Requires-Dist of a release.  A release with only source distributions
// has no metadata that can be read without building it, and is taken to have no requirements.
func (ix *Index) Requirements(ctx context.Context, name string, version pep440.Version) ([]pep508.Requirement, error) {
	name = pep508.NormalizeName(name)
	rel, err := ix.release(ctx, name, version)
	if err != nil {
		return nil, err
	}
	files := append([]file(nil), rel.files...)
	sort.SliceStable(files, func(i, j int) bool {
		return preference(files[i]) < preference(files[j])
	})

	for _, f := range files {
		var content []byte
		switch {
		case f.dist.Kind == distfile.KindWheel && f.link.HasMetadata():
			content, err = f.link.GetMetadata(ctx)
		case f.dist.Kind == distfile.KindWheel:
			content, err = ix.wheelMetadata(ctx, f.link)
		default:
			dlog.Warnf(ctx, "pypi: %s==%s has no wheels; assuming it has no requirements", name, version)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.link.Text, err)
		}
		md, err := coremeta.Parse(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.link.Text, err)
		}
		return md.RequiresDist, nil
	}
	return nil, fmt.Errorf("pypi: %s==%s: release has no files", name, version)
}

func (ix *Index) wheelMetadata(ctx context.Context, link pep503.FileLink) ([]byte, error) {
	dlog.Debugf(ctx, "pypi: downloading %s for its metadata", link.Text)
	content, err := link.Get(ctx)
	if err != nil {
		return nil, err
	}
	wh, err := pep427.Read(content)
	if err != nil {
		return nil, err
	}
	if err := wh.CheckVersion(ctx); err != nil {
		return nil, err
	}
	return wh.Metadata()
}

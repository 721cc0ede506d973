// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
)

// FakeIndex is an in-memory package index for tests.  It counts calls per key ("name" for a
// version listing, "name==version" for a requirements lookup) and can be told to fail.
type FakeIndex struct {
	// Hook, if set, is called with the key at the start of every lookup.
	Hook func(key string)

	mu       sync.Mutex
	packages map[string][]fakeRelease
	calls    map[string]int
	failures map[string]int
}

type fakeRelease struct {
	candidate pinset.CandidateVersion
	requires  []pep508.Requirement
}

// FakeError is the error injected by FakeIndex.Fail; it is retryable.
type FakeError struct {
	Key string
}

func (e *FakeError) Error() string   { return fmt.Sprintf("fake index: injected failure for %s", e.Key) }
func (e *FakeError) Temporary() bool { return true }

// NotFoundError is returned for a release that the FakeIndex does not have; it is not retryable.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string   { return fmt.Sprintf("fake index: %s: not found", e.Key) }
func (e *NotFoundError) Temporary() bool { return false }

func NewFakeIndex() *FakeIndex {
	return &FakeIndex{
		packages: make(map[string][]fakeRelease),
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}
}

// Add adds a release that supports every Python and is not yanked.
func (f *FakeIndex) Add(name, version string, requires ...string) *FakeIndex {
	return f.AddRelease(name, version, "", false, requires...)
}

// AddRelease adds a release.  It panics on malformed input.
func (f *FakeIndex) AddRelease(name, version, requiresPython string, yanked bool, requires ...string) *FakeIndex {
	f.mu.Lock()
	defer f.mu.Unlock()
	name = pep508.NormalizeName(name)
	rel := fakeRelease{
		candidate: pinset.CandidateVersion{
			Name:           name,
			Version:        pep440.MustParseVersion(version),
			RequiresPython: pep440.MustParseSpecifier(requiresPython),
			Yanked:         yanked,
		},
	}
	for _, str := range requires {
		rel.requires = append(rel.requires, pep508.MustParseRequirement(str))
	}
	f.packages[name] = append(f.packages[name], rel)
	return f
}

// Fail makes the next n lookups of key fail with a *FakeError; n < 0 fails forever.
func (f *FakeIndex) Fail(key string, n int) *FakeIndex {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = n
	return f
}

// Calls returns how many lookups of key have been made.
func (f *FakeIndex) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *FakeIndex) enter(key string) error {
	if f.Hook != nil {
		f.Hook(key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	switch n := f.failures[key]; {
	case n < 0:
		return &FakeError{Key: key}
	case n > 0:
		f.failures[key] = n - 1
		return &FakeError{Key: key}
	}
	return nil
}

func (f *FakeIndex) Versions(ctx context.Context, name string) ([]pinset.CandidateVersion, error) {
	name = pep508.NormalizeName(name)
	if err := f.enter(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := make([]pinset.CandidateVersion, 0, len(f.packages[name]))
	for _, rel := range f.packages[name] {
		ret = append(ret, rel.candidate)
	}
	return ret, nil
}

func (f *FakeIndex) Requirements(ctx context.Context, name string, version pep440.Version) ([]pep508.Requirement, error) {
	name = pep508.NormalizeName(name)
	key := name + "==" + version.String()
	if err := f.enter(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rel := range f.packages[name] {
		if rel.candidate.Version.Equal(version) {
			return append([]pep508.Requirement(nil), rel.requires...), nil
		}
	}
	return nil, &NotFoundError{Key: key}
}

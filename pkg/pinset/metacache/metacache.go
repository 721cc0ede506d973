// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package metacache memoizes package index lookups for the duration of a run.  Each key is
// fetched at most once, even when many resolvers ask for it concurrently; a failed fetch is
// retried a bounded number of times and then leaves the key unpopulated.
package metacache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/datawire/dlib/dlog"
	"golang.org/x/sync/singleflight"

	"github.com/datawire/pinset/pkg/pinset"
	"github.com/datawire/pinset/pkg/python/pep440"
	"github.com/datawire/pinset/pkg/python/pep508"
)

// Index is the package index that the cache reads through to.
type Index interface {
	// Versions lists every release of the named package.  A package that the index does not
	// have is an empty list, not an error.
	Versions(ctx context.Context, name string) ([]pinset.CandidateVersion, error)
	// Requirements returns the Requires-Dist of one release.
	Requirements(ctx context.Context, name string, version pep440.Version) ([]pep508.Requirement, error)
}

const DefaultAttempts = 3

type Option func(*Cache)

// WithAttempts sets how many times a failing lookup is tried before giving up.
func WithAttempts(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackOff sets the delay policy between attempts.  The attempt limit is applied on top of
// it.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Cache) {
		c.newBackOff = fn
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return b
}

type Cache struct {
	index      Index
	attempts   int
	newBackOff func() backoff.BackOff

	group        singleflight.Group
	candidates   sync.Map // name => []pinset.CandidateVersion
	requirements sync.Map // "name==version" => []pinset.Requirement

	hits    int64
	fetches int64
	shared  int64
}

func New(index Index, opts ...Option) *Cache {
	c := &Cache{
		index:      index,
		attempts:   DefaultAttempts,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats counts cache activity.
type Stats struct {
	// Hits is lookups answered from a populated entry.
	Hits int64
	// Fetches is calls made to the underlying Index, including retries.
	Fetches int64
	// Shared is lookups that waited on another caller's in-flight fetch.
	Shared int64
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    atomic.LoadInt64(&c.hits),
		Fetches: atomic.LoadInt64(&c.fetches),
		Shared:  atomic.LoadInt64(&c.shared),
	}
}

// Candidates returns the releases of the named package, newest first.
func (c *Cache) Candidates(ctx context.Context, name string) ([]pinset.CandidateVersion, error) {
	name = pep508.NormalizeName(name)
	val, err := c.lookup(ctx, &c.candidates, name, name, "", func(ctx context.Context) (interface{}, error) {
		cands, err := c.index.Versions(ctx, name)
		if err != nil {
			return nil, err
		}
		sorted := append([]pinset.CandidateVersion(nil), cands...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Version.Cmp(sorted[j].Version) > 0
		})
		return sorted, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]pinset.CandidateVersion), nil
}

// Requirements returns the dependencies of one release, with their origin set to that release.
func (c *Cache) Requirements(ctx context.Context, name string, version pep440.Version) ([]pinset.Requirement, error) {
	name = pep508.NormalizeName(name)
	key := name + "==" + version.String()
	val, err := c.lookup(ctx, &c.requirements, key, name, version.String(), func(ctx context.Context) (interface{}, error) {
		raw, err := c.index.Requirements(ctx, name, version)
		if err != nil {
			return nil, err
		}
		reqs := make([]pinset.Requirement, 0, len(raw))
		for _, req := range raw {
			origin := pinset.Origin{
				Kind:          pinset.OriginTransitive,
				Parent:        name,
				ParentVersion: version.String(),
			}
			if extras := pep508.ReferencedExtras(req.Marker); extras.Len() > 0 {
				origin.Extra = sortedFirst(extras.UnsortedList())
			}
			reqs = append(reqs, pinset.NewRequirement(req, origin))
		}
		return reqs, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]pinset.Requirement), nil
}

func sortedFirst(strs []string) string {
	sort.Strings(strs)
	return strs[0]
}

func (c *Cache) lookup(
	ctx context.Context,
	entries *sync.Map,
	key, pkg, version string,
	fetch func(context.Context) (interface{}, error),
) (interface{}, error) {
	if val, ok := entries.Load(key); ok {
		atomic.AddInt64(&c.hits, 1)
		return val, nil
	}
	val, err, shared := c.group.Do(key, func() (interface{}, error) {
		// Another flight may have finished between the Load above and joining the group.
		if val, ok := entries.Load(key); ok {
			return val, nil
		}
		val, err := c.fetchWithRetry(ctx, pkg, version, fetch)
		if err != nil {
			return nil, err
		}
		entries.Store(key, val)
		return val, nil
	})
	if shared {
		atomic.AddInt64(&c.shared, 1)
	}
	return val, err
}

type temporary interface {
	Temporary() bool
}

// permanent reports whether err is not worth retrying: the run was cancelled, or the index
// answered with a definite refusal such as a 404.  Transport failures are always retried,
// whatever the net.Error says about itself.
func permanent(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return false
	}
	var tmp temporary
	return errors.As(err, &tmp) && !tmp.Temporary()
}

func (c *Cache) fetchWithRetry(
	ctx context.Context,
	pkg, version string,
	fetch func(context.Context) (interface{}, error),
) (interface{}, error) {
	var val interface{}
	attempts := 0
	operation := func() error {
		attempts++
		atomic.AddInt64(&c.fetches, 1)
		var err error
		val, err = fetch(ctx)
		if err != nil && permanent(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.attempts-1)), ctx)
	notify := func(err error, delay time.Duration) {
		dlog.Warnf(ctx, "metacache: %s: attempt %d/%d failed, retrying in %s: %v",
			describe(pkg, version), attempts, c.attempts, delay, err)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", describe(pkg, version), ctxErr)
		}
		return nil, &pinset.MetadataFetchError{
			Package:  pkg,
			Version:  version,
			Attempts: attempts,
			Err:      err,
		}
	}
	dlog.Debugf(ctx, "metacache: fetched %s", describe(pkg, version))
	return val, nil
}

func describe(pkg, version string) string {
	if version == "" {
		return pkg
	}
	return pkg + "==" + version
}

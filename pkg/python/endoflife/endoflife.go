// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package endoflife looks up which Python release cycles are still supported, using the
// endoflife.date API.
//
// https://endoflife.date/docs/api
package endoflife

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/datawire/dlib/dlog"
)

const DefaultURL = "https://endoflife.date/api/python.json"

type Client struct {
	URL        string
	HTTPClient *http.Client
	UserAgent  string
}

func (c *Client) fillDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.UserAgent == "" {
		c.UserAgent = "github.com/datawire/pinset/pkg/python/endoflife"
	}
}

// Cycle is one release cycle ("3.11") as reported by the API.
type Cycle struct {
	Cycle       string  `json:"cycle"`
	ReleaseDate string  `json:"releaseDate"`
	EOL         EOLDate `json:"eol"`
	Latest      string  `json:"latest"`
}

// EOLDate is either a date, or unset when the API reports `false` (no end-of-life yet).
type EOLDate struct {
	Time *time.Time
}

func (d *EOLDate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "false", "null":
		d.Time = nil
		return nil
	case "true":
		// End-of-life with no date given; treat it as long past.
		t := time.Time{}
		d.Time = &t
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	t, err := time.Parse("2006-01-02", str)
	if err != nil {
		return err
	}
	d.Time = &t
	return nil
}

// ActiveAt reports whether the cycle is still supported at the given time.
func (c Cycle) ActiveAt(now time.Time) bool {
	return c.EOL.Time == nil || c.EOL.Time.After(now)
}

// MajorMinor splits the cycle name.
func (c Cycle) MajorMinor() (major, minor int, err error) {
	parts := strings.Split(c.Cycle, ".")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid release cycle: %q", c.Cycle)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid release cycle: %q: %w", c.Cycle, err)
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid release cycle: %q: %w", c.Cycle, err)
	}
	return major, minor, nil
}

// Cycles fetches every known release cycle.
func (c Client) Cycles(ctx context.Context) (_ []Cycle, err error) {
	c.fillDefaults()
	defer func() {
		if err != nil {
			err = fmt.Errorf("GET %q => %w", c.URL, err)
		}
	}()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %s", resp.Status)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var cycles []Cycle
	if err := json.Unmarshal(content, &cycles); err != nil {
		return nil, err
	}
	return cycles, nil
}

// ActivePython3 returns the Python 3 cycles that are supported at the given time, as
// (major, minor) pairs sorted ascending.
func (c Client) ActivePython3(ctx context.Context, now time.Time) ([][2]int, error) {
	cycles, err := c.Cycles(ctx)
	if err != nil {
		return nil, err
	}
	var ret [][2]int
	for _, cycle := range cycles {
		major, minor, err := cycle.MajorMinor()
		if err != nil {
			dlog.Warnf(ctx, "endoflife: skipping: %v", err)
			continue
		}
		if major != 3 || !cycle.ActiveAt(now) {
			continue
		}
		ret = append(ret, [2]int{major, minor})
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i][0] != ret[j][0] {
			return ret[i][0] < ret[j][0]
		}
		return ret[i][1] < ret[j][1]
	})
	dlog.Debugf(ctx, "endoflife: %d active Python 3 cycles as of %s", len(ret), now.Format("2006-01-02"))
	return ret, nil
}

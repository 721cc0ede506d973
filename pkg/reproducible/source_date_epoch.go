// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package reproducible provides the current time in a way that honors SOURCE_DATE_EPOCH, so that
// date-dependent output (such as which Python versions are still supported) can be reproduced.
//
// https://reproducible-builds.org/docs/source-date-epoch/
package reproducible

import (
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	nowOnce sync.Once
	now     time.Time
)

func Now() time.Time {
	nowOnce.Do(func() {
		secs, err := strconv.ParseInt(os.Getenv("SOURCE_DATE_EPOCH"), 10, 64)
		if err == nil {
			now = time.Unix(secs, 0).UTC()
		} else {
			now = time.Now().UTC()
		}
	})
	return now
}

// Today is Now truncated to midnight UTC.
func Today() time.Time {
	y, m, d := Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

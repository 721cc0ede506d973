// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pinset holds the data model shared by the stages of a pin-set computation: a project's
// declared requirements, the environments (interpreter version plus extras) it must install
// under, the per-environment resolutions, and the merged set of pins that is valid in all of
// them.
//
// The stages themselves live in subpackages:
//
//   - metacache memoizes index lookups, fetching each key at most once.
//   - matrix expands interpreter versions and extras into environments.
//   - solver resolves one environment by backtracking search.
//   - merge reconciles resolutions into one MergedPinSet.
//   - pipeline runs the whole thing with a bounded worker pool.
package pinset

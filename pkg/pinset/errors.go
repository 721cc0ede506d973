// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pinset

import (
	"fmt"

	"github.com/datawire/dlib/derror"
)

// ConfigurationError is a problem with what was asked for; it is not retried.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// MetadataFetchError is an index lookup that failed even after retrying.  It aborts the run.
type MetadataFetchError struct {
	Package string
	// Version is empty for a lookup of the package's candidate list.
	Version  string
	Attempts int
	Err      error
}

func (e *MetadataFetchError) Error() string {
	what := e.Package
	if e.Version != "" {
		what += "==" + e.Version
	}
	return fmt.Sprintf("fetching metadata for %s (%d attempts): %v", what, e.Attempts, e.Err)
}

func (e *MetadataFetchError) Unwrap() error { return e.Err }

// UnsatisfiableEnvironmentError is an environment for which no assignment of versions exists.
type UnsatisfiableEnvironmentError struct {
	Trace ConflictTrace
}

func (e *UnsatisfiableEnvironmentError) Error() string {
	return e.Trace.String()
}

// MergeConflictError is a package for which per-environment resolutions could not be
// reconciled.
type MergeConflictError struct {
	Trace ConflictTrace
}

func (e *MergeConflictError) Error() string {
	return e.Trace.String()
}

// WriteError is a failure to persist the manifest.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ConflictsError is every conflict that a run collected.
type ConflictsError struct {
	Conflicts []ConflictTrace
}

// Errors returns each conflict as an *UnsatisfiableEnvironmentError or *MergeConflictError.
func (e *ConflictsError) Errors() derror.MultiError {
	errs := make(derror.MultiError, 0, len(e.Conflicts))
	for _, trace := range e.Conflicts {
		if trace.Kind == ConflictMerge {
			errs = append(errs, &MergeConflictError{Trace: trace})
		} else {
			errs = append(errs, &UnsatisfiableEnvironmentError{Trace: trace})
		}
	}
	return errs
}

func (e *ConflictsError) Error() string {
	if len(e.Conflicts) == 1 {
		return e.Errors()[0].Error()
	}
	return e.Errors().Error()
}

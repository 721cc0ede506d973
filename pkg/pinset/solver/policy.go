// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package solver

import (
	"fmt"
)

// PreReleasePolicy decides when pre-release and developmental versions are candidates.  A
// requirement whose specifier names a pre-release always admits pre-releases of that package.
type PreReleasePolicy int

const (
	// PreReleasesIfNeeded considers pre-releases only if no final release matches.
	PreReleasesIfNeeded PreReleasePolicy = iota
	// PreReleasesAllow treats pre-releases like any other release.
	PreReleasesAllow
	// PreReleasesDeny never considers pre-releases.
	PreReleasesDeny
)

//nolint:gochecknoglobals // Would be 'const'.
var preReleasePolicyNames = map[PreReleasePolicy]string{
	PreReleasesIfNeeded: "if-needed",
	PreReleasesAllow:    "allow",
	PreReleasesDeny:     "deny",
}

func (p PreReleasePolicy) String() string {
	if str, ok := preReleasePolicyNames[p]; ok {
		return str
	}
	return fmt.Sprintf("PreReleasePolicy(%d)", int(p))
}

func ParsePreReleasePolicy(str string) (PreReleasePolicy, error) {
	if str == "" {
		return PreReleasesIfNeeded, nil
	}
	for policy, name := range preReleasePolicyNames {
		if name == str {
			return policy, nil
		}
	}
	return 0, fmt.Errorf("invalid pre-release policy %q: must be one of if-needed, allow, deny", str)
}

func (p PreReleasePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PreReleasePolicy) UnmarshalText(text []byte) error {
	val, err := ParsePreReleasePolicy(string(text))
	if err != nil {
		return err
	}
	*p = val
	return nil
}

// Copyright (C) 2021  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package pep440

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// reVersion is the canonical regular expression from Appendix B of PEP 440, with the verbose-mode
// whitespace and comments stripped.
var reVersion = regexp.MustCompile(`(?i)^\s*` + regexp.MustCompile(`(?:\s+|#.*)`).ReplaceAllString(`
		v?
		(?:
		    (?:(?P<epoch>[0-9]+)!)?                           # epoch
		    (?P<release>[0-9]+(?:\.[0-9]+)*)                  # release segment
		    (?P<pre>                                          # pre-release
		        [-_\.]?
		        (?P<pre_l>(a|b|c|rc|alpha|beta|pre|preview))
		        [-_\.]?
		        (?P<pre_n>[0-9]+)?
		    )?
		    (?P<post>                                         # post release
		        (?:-(?P<post_n1>[0-9]+))
		        |
		        (?:
		            [-_\.]?
		            (?P<post_l>post|rev|r)
		            [-_\.]?
		            (?P<post_n2>[0-9]+)?
		        )
		    )?
		    (?P<dev>                                          # dev release
		        [-_\.]?
		        (?P<dev_l>dev)
		        [-_\.]?
		        (?P<dev_n>[0-9]+)?
		    )?
		)
		(?:\+(?P<local>[a-z0-9]+(?:[-_\.][a-z0-9]+)*))?       # local version
	`, ``) + `\s*$`)

// letterSpellings maps each alternate spelling of a suffix letter to its normalized form.
var letterSpellings = map[string]string{
	"a":       "a",
	"alpha":   "a",
	"b":       "b",
	"beta":    "b",
	"rc":      "rc",
	"c":       "rc",
	"pre":     "rc",
	"preview": "rc",
	"post":    "post",
	"rev":     "post",
	"r":       "post",
	"":        "post", // the "1.0-1" implicit post-release spelling
	"dev":     "dev",
}

// parseSuffix normalizes a letter+number suffix.  ok is false if neither part is present.
func parseSuffix(letter, number string) (l string, n int, ok bool, err error) {
	if letter == "" && number == "" {
		return "", 0, false, nil
	}
	l, known := letterSpellings[strings.ToLower(letter)]
	if !known {
		return "", 0, false, fmt.Errorf("invalid string-part: %q", letter)
	}
	if number != "" {
		n, err = strconv.Atoi(number)
		if err != nil {
			return "", 0, false, err
		}
	}
	return l, n, true, nil
}

func parseVersion(str string) (*Version, error) {
	match := reVersion.FindStringSubmatch(str)
	if match == nil {
		return nil, fmt.Errorf("invalid version: %q", str)
	}
	group := func(name string) string {
		return match[reVersion.SubexpIndex(name)]
	}

	var ver Version
	var err error

	if epoch := group("epoch"); epoch != "" {
		ver.Epoch, err = strconv.Atoi(epoch)
		if err != nil {
			return nil, err
		}
	}

	for _, segStr := range strings.Split(group("release"), ".") {
		segInt, err := strconv.Atoi(segStr)
		if err != nil {
			return nil, err
		}
		ver.Release = append(ver.Release, segInt)
	}

	if l, n, ok, err := parseSuffix(group("pre_l"), group("pre_n")); err != nil {
		return nil, fmt.Errorf("pre-release: %w", err)
	} else if ok {
		ver.Pre = &PreRelease{L: l, N: n}
	}

	if _, n, ok, err := parseSuffix(group("post_l"), group("post_n1")+group("post_n2")); err != nil {
		return nil, fmt.Errorf("post-release: %w", err)
	} else if ok {
		ver.Post = &n
	}

	if _, n, ok, err := parseSuffix(group("dev_l"), group("dev_n")); err != nil {
		return nil, fmt.Errorf("dev: %w", err)
	} else if ok {
		ver.Dev = &n
	}

	localParts := strings.FieldsFunc(group("local"), func(r rune) bool {
		return strings.ContainsRune("-_.", r)
	})
	for _, part := range localParts {
		ver.Local = append(ver.Local, intstr.Parse(strings.ToLower(part)))
	}

	return &ver, nil
}

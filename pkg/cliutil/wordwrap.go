// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"regexp"
	"strings"
)

// Wrap the string `s` to a maximum width `w`.  Pass `w` == 0 to do no wrapping.
//
// In order to have some room for slop to avoid things like a short word being on a line by itself,
// most lines are actually wrapped to `w - 5`.
func Wrap(w int, s string) string {
	return wrap(0, w, s)
}

// Wrap the string `s` to a maximum width `w` with leading indent `i`.  The first line is not
// indented (this is assumed to be done by caller).  Pass `w` == 0 to do no wrapping
//
// In order to have some room for slop to avoid things like a short word being on a line by itself,
// most lines are actually wrapped to `w - 5`.
func WrapIndent(i, w int, s string) string {
	return wrap(i, w, s)
}

// reWord matches a word along with the spacing before it, so that the double space after a
// sentence survives wrapping.
var reWord = regexp.MustCompile(`([ \t]*)(\S+)`)

func wrap(indent, width int, s string) string {
	if width <= 0 {
		return s
	}
	limit := width - 5
	var ret strings.Builder
	for n, line := range strings.Split(s, "\n") {
		if n > 0 {
			ret.WriteString("\n" + strings.Repeat(" ", indent))
		}
		col := indent
		atStart := true
		for _, match := range reWord.FindAllStringSubmatch(line, -1) {
			space, word := match[1], match[2]
			switch {
			case atStart:
				ret.WriteString(space)
				col += len(space)
			case col+len(space)+len(word) >= limit:
				ret.WriteString("\n" + strings.Repeat(" ", indent))
				col = indent
			default:
				ret.WriteString(space)
				col += len(space)
			}
			ret.WriteString(word)
			col += len(word)
			atStart = false
		}
	}
	return ret.String()
}

// Copyright (C) 2020  Ambassador Labs (for Telepresence)
// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0
//
// Based on
// https://github.com/telepresenceio/telepresence/blob/b6dfa04ff014915b47386191cc3d8b1352522fea/pkg/client/cli/command_group.go#L35-L63

package cliutil

import (
	"os"
	"strconv"

	"golang.org/x/term"
)

// TerminalWidth is the width that help text and tables are fitted to.  $COLUMNS wins if it is a
// number.  Otherwise it is the width of stdout, or 80 if stdout is a terminal of unknown size.  If
// stdout is not a terminal, it is 0, meaning "don't wrap".
func TerminalWidth() int {
	return terminalWidth(os.Getenv("COLUMNS"), int(os.Stdout.Fd()))
}

func terminalWidth(columns string, fd int) int {
	if cols, err := strconv.Atoi(columns); err == nil && cols >= 0 {
		return cols
	}
	if !term.IsTerminal(fd) {
		return 0
	}
	if cols, _, err := term.GetSize(fd); err == nil && cols > 0 {
		return cols
	}
	return 80
}

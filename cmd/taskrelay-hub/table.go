// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// terminalWidth returns the width of the attached terminal, or
// fallback when stdout isn't one (piped output, a log file).
func terminalWidth(fallback int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// printColumns lays entries out in as many fixed-width columns as fit
// the terminal, matching `ls`'s multi-column listing behavior, rather
// than one entry per line when the terminal is wide enough to do better.
func printColumns(entries []string) {
	if len(entries) == 0 {
		return
	}

	longest := 0
	for _, e := range entries {
		if len(e) > longest {
			longest = len(e)
		}
	}
	colWidth := longest + 2
	cols := terminalWidth(80) / colWidth
	if cols < 1 {
		cols = 1
	}

	for i, e := range entries {
		fmt.Print(e)
		if (i+1)%cols == 0 || i == len(entries)-1 {
			fmt.Println()
		} else {
			fmt.Print(strings.Repeat(" ", colWidth-len(e)))
		}
	}
}

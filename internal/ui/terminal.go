package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI color codes used by the CLI for verification and run reports.
const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
)

// ShouldUseColor returns true when ANSI colors should be used on stdout.
// It respects NO_COLOR, CLICOLOR_FORCE, CLICOLOR, and TTY detection.
func ShouldUseColor() bool {
	// https://no-color.org — any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	// CLICOLOR_FORCE=1 forces color even without a TTY.
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	// CLICOLOR=0 explicitly disables color.
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	// Default: color if stdout is a terminal.
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func paint(code, s string) string {
	if !ShouldUseColor() {
		return s
	}
	return code + s + reset
}

// Pass renders a passing status marker.
func Pass(s string) string { return paint(green, s) }

// Fail renders a failing status marker.
func Fail(s string) string { return paint(red, s) }

// Warn renders a warning status marker.
func Warn(s string) string { return paint(yellow, s) }

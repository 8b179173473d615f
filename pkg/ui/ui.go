package ui

import (
	"os"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/samber/lo"
)

// GetFangScheme returns the same light/dark-aware color scheme fang uses.
func GetFangScheme() fang.ColorScheme {
	// This mirrors fang.mustColorscheme(DefaultColorScheme)
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)
	return fang.DefaultColorScheme(lipgloss.LightDark(isDark))
}

// UI layout constants.
const (
	defaultMargin  = 2
	defaultPadding = 2
)

// GetBlockStyles generates reusable styles for titles and code block elements.
// Returns two lipgloss.Style objects: one for titles and one for blocks.
func GetBlockStyles() (lipgloss.Style, lipgloss.Style) {
	colorScheme := GetFangScheme()

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorScheme.QuotedString).
		Transform(strings.ToUpper).
		Padding(1, 0).
		Margin(0, defaultMargin)

	blockStyle := lipgloss.NewStyle().
		Background(colorScheme.Codeblock).
		Foreground(colorScheme.Base).
		MarginLeft(defaultMargin).
		Padding(1, defaultPadding)
	return titleStyle, blockStyle
}

// noColorTERMs defines terminals that do not support ANSI color output.
// Keep this list small and conservative.
//
//nolint:gochecknoglobals // lookup table
var noColorTERMs = lo.Keyify([]string{
	"dumb",
	"vt100",
	"cygwin",
	"xterm-mono",
})

// TerminalSupportsColor returns true if the given TERM value is not in the
// known-no-color blacklist. An empty term is treated as supporting colors
// (letting Lipgloss handle further TTY detection).
func TerminalSupportsColor(termName string) bool {
	if termName == "" {
		return true
	}
	_, blacklisted := noColorTERMs[termName]
	return !blacklisted
}

// ColorEnabled reports whether console output should be styled. It respects
// NO_COLOR, requires stdout to be a terminal and honours the TERM blacklist.
func ColorEnabled() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if !term.IsTerminal(os.Stdout.Fd()) {
		return false
	}
	return TerminalSupportsColor(os.Getenv("TERM"))
}

// taskStyle is computed once; detecting the background colour queries the terminal.
//
//nolint:gochecknoglobals // sync.OnceValue pattern
var taskStyle = sync.OnceValue(func() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(GetFangScheme().Program).Bold(true)
})

// TaskStyle returns the style used for task names in logs and listings.
func TaskStyle() lipgloss.Style {
	return taskStyle()
}

// TaskName renders a task name for console output.
func TaskName(name string) string {
	if !ColorEnabled() {
		return name
	}
	return TaskStyle().Render(name)
}

// Package ui owns the terminal color themes shared by every surface that
// prints styled text. Callers pull escape sequences from the active Theme
// instead of hardcoding ANSI codes, so swapping palettes or disabling
// color entirely is a single state change.
package ui

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Theme maps the application's styling roles to ANSI escape sequences.
// An empty sequence renders that role unstyled.
type Theme struct {
	Name string // identifier SetTheme accepts ("dark", "light", "none")

	Primary   string // headlines and the most prominent values
	Secondary string // supporting detail around primary content
	Success   string // confirmations and passing outcomes
	Warning   string // recoverable problems
	Error     string // failures
	Info      string // neutral annotations

	// Bold, Dim and Underline carry the standalone text attributes;
	// Reset returns the terminal to its default rendering.
	Bold      string
	Dim       string
	Underline string
	Reset     string
}

// fg renders a 256-color foreground escape sequence.
func fg(color int) string { return fmt.Sprintf("\033[38;5;%dm", color) }

const (
	styleBold      = "\033[1m"
	styleDim       = "\033[2m"
	styleUnderline = "\033[4m"
	styleReset     = "\033[0m"
)

// colorTheme assembles a theme from six 256-color palette slots. Both styled
// themes carry the identical attribute set, so only the palette varies.
func colorTheme(name string, primary, secondary, success, warning, failure, info int) Theme {
	return Theme{
		Name:      name,
		Primary:   fg(primary),
		Secondary: fg(secondary),
		Success:   fg(success),
		Warning:   fg(warning),
		Error:     fg(failure),
		Info:      fg(info),
		Bold:      styleBold,
		Dim:       styleDim,
		Underline: styleUnderline,
		Reset:     styleReset,
	}
}

var (
	// DarkTheme reads well on dark backgrounds and is the startup default.
	DarkTheme = colorTheme("dark", 39, 245, 82, 220, 196, 141)

	// LightTheme swaps in deeper shades for light terminal backgrounds.
	LightTheme = colorTheme("light", 27, 240, 28, 130, 124, 54)

	// NoColorTheme renders everything unstyled. Selected by -no-color or by
	// the NO_COLOR environment variable.
	NoColorTheme = Theme{Name: "none"}
)

var themesByName = map[string]Theme{
	"dark":  DarkTheme,
	"light": LightTheme,
	"none":  NoColorTheme,
}

// The active theme is swapped atomically so readers on the rendering path
// never block each other. A nil pointer means nothing was selected yet.
var active atomic.Pointer[Theme]

// CurrentTheme returns the active theme, or DarkTheme before any
// explicit selection.
func CurrentTheme() Theme {
	if p := active.Load(); p != nil {
		return *p
	}
	return DarkTheme
}

// SetCurrentTheme makes theme the active theme. Tests use it to restore
// state.
func SetCurrentTheme(theme Theme) {
	active.Store(&theme)
}

// SetTheme activates the named theme. Unknown names fall back to dark so a
// mistyped theme name never strips styling.
func SetTheme(name string) {
	theme, known := themesByName[name]
	if !known {
		theme = DarkTheme
	}
	SetCurrentTheme(theme)
}

// NoColorEnv reports whether NO_COLOR exists in the environment with any
// value, per https://no-color.org/.
func NoColorEnv() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// SelectTheme picks the startup theme. Styling is dropped when the noColor
// flag is set or when the NO_COLOR convention is active.
func SelectTheme(noColor bool) {
	if noColor || NoColorEnv() {
		SetCurrentTheme(NoColorTheme)
		return
	}
	SetCurrentTheme(DarkTheme)
}

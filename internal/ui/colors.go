package ui

// Accessors for the active theme's escape sequences, one per styling role.
// Each reads the live theme on every call, so swapping the theme at runtime
// recolors all later output.

func ColorReset() string { return CurrentTheme().Reset }

func ColorRed() string { return CurrentTheme().Error }

func ColorGreen() string { return CurrentTheme().Success }

func ColorYellow() string { return CurrentTheme().Warning }

func ColorBlue() string { return CurrentTheme().Primary }

func ColorMagenta() string { return CurrentTheme().Info }

func ColorCyan() string { return CurrentTheme().Secondary }

func ColorBold() string { return CurrentTheme().Bold }

func ColorDim() string { return CurrentTheme().Dim }

func ColorUnderline() string { return CurrentTheme().Underline }

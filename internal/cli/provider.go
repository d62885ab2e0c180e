package cli

import apperrors "github.com/fermatlab/gauss/internal/errors"

var _ apperrors.Palette = ThemePalette{}

// ThemePalette feeds the active terminal theme to the errors package, so
// error reports pick up the same highlighting as the rest of the output. The
// zero value is ready to use; orchestration and calibration hand it to
// apperrors.HandleComputeError directly.
type ThemePalette struct{}

func (ThemePalette) Accent() string { return ColorYellow() }
func (ThemePalette) Reset() string  { return ColorReset() }

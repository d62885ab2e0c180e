// Package testutil provides shared helpers for the package tests.
package testutil

import "regexp"

// csiSeq matches CSI escape sequences, including private-mode ones such as
// the cursor show/hide codes the progress spinner emits.
var csiSeq = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences from a string so tests can
// assert on terminal output without color and cursor control interfering.
func StripANSI(s string) string {
	return csiSeq.ReplaceAllString(s, "")
}

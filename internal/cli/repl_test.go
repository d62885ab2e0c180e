package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fermatlab/gauss/internal/mult"
	"github.com/fermatlab/gauss/internal/testutil"
)

// newTestREPL wires a session to an in-memory buffer so assertions can read
// the stripped transcript.
func newTestREPL(t *testing.T, backend string) (*REPL, *bytes.Buffer) {
	t.Helper()
	repl := NewREPL(mult.NewRegistry(), SessionConfig{DefaultBackend: backend, Timeout: time.Second})
	out := new(bytes.Buffer)
	repl.SetOutput(out)
	return repl, out
}

func TestNewREPLBackendSelection(t *testing.T) {
	t.Parallel()
	cases := map[string]struct{ configured, want string }{
		"explicit":          {configured: "fft", want: "fft"},
		"empty picks first": {configured: "", want: "big"},
		"all picks first":   {configured: "all", want: "big"},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			repl := NewREPL(mult.NewRegistry(), SessionConfig{DefaultBackend: tc.configured})
			if repl.currentBackend != tc.want {
				t.Errorf("currentBackend = %q, want %q", repl.currentBackend, tc.want)
			}
		})
	}
}

func TestParseProductExpr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		expr    string
		wantX   string
		wantY   string
		wantErr bool
	}{
		{"plain", "6*7", "6", "7", false},
		{"spaced", "123 * 456", "123", "456", false},
		{"negative operand", "-12*34", "-12", "34", false},
		{"missing star", "1234", "", "", true},
		{"two stars", "1*2*3", "", "", true},
		{"garbage left", "abc*12", "", "", true},
		{"garbage right", "12*xyz", "", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			x, y, err := parseProductExpr(tt.expr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseProductExpr(%q) expected error, got x=%v y=%v", tt.expr, x, y)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProductExpr(%q) unexpected error: %v", tt.expr, err)
			}
			if x.String() != tt.wantX || y.String() != tt.wantY {
				t.Errorf("parseProductExpr(%q) = (%s, %s), want (%s, %s)", tt.expr, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

// One session processes a scripted command sequence in order; each step
// names the line typed and a fragment its stripped output must contain.
// State carried between steps (the active backend, the hex toggle) is part
// of what the script exercises.
func TestProcessCommandScript(t *testing.T) {
	repl, out := newTestREPL(t, "big")

	steps := []struct {
		name  string
		line  string
		want  string
		check func(t *testing.T)
	}{
		{name: "calc", line: "calc 6*7", want: "Product = 42"},
		{name: "calc shorthand", line: "c 5*8", want: "Product = 40"},
		{name: "calc pair form", line: "calc 12 34", want: "Product = 408"},
		{name: "switch backend", line: "backend fft", want: "Backend changed to", check: func(t *testing.T) {
			if repl.currentBackend != "fft" {
				t.Errorf("currentBackend = %q, want fft", repl.currentBackend)
			}
		}},
		{name: "switch to unknown", line: "backend toomcook", want: "Unknown backend", check: func(t *testing.T) {
			if repl.currentBackend != "fft" {
				t.Errorf("failed switch moved currentBackend to %q", repl.currentBackend)
			}
		}},
		{name: "list", line: "list", want: "Available backends"},
		{name: "status", line: "status", want: "Current configuration"},
		{name: "hex on", line: "hex", want: "Hexadecimal display:", check: func(t *testing.T) {
			if !repl.config.Hex {
				t.Error("hex command should switch hex output on")
			}
		}},
		{name: "hex product", line: "calc 6*7", want: "Product = 0x2a"},
		{name: "hex off", line: "hex", want: "Hexadecimal display:", check: func(t *testing.T) {
			if repl.config.Hex {
				t.Error("second hex command should switch hex output back off")
			}
		}},
		{name: "compare", line: "compare 6*7", want: "Comparison for a 3-bit by 3-bit product"},
		{name: "help", line: "help", want: "Available commands"},
		{name: "unknown command", line: "frobnicate", want: "Unknown command"},
		{name: "bare expression", line: "12 * 12", want: "Product = 144"},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			out.Reset()
			if !repl.processCommand(step.line) {
				t.Fatalf("processCommand(%q) ended the session", step.line)
			}
			if got := testutil.StripANSI(out.String()); !strings.Contains(got, step.want) {
				t.Errorf("processCommand(%q) output %q, want a fragment %q", step.line, got, step.want)
			}
			if step.check != nil {
				step.check(t)
			}
		})
	}

	t.Run("exit ends the session", func(t *testing.T) {
		if repl.processCommand("exit") {
			t.Error("exit should report the session is over")
		}
	})
}

// Feeding scripted input through Start exercises the banner, one
// calculation and the exit path in a single transcript.
func TestStartScriptedSession(t *testing.T) {
	t.Parallel()
	repl, out := newTestREPL(t, "big")
	repl.SetInput(strings.NewReader("calc 3*4\nexit\n"))

	repl.Start()

	transcript := testutil.StripANSI(out.String())
	for _, want := range []string{"Gauss Multiplier - Interactive Mode", "Product = 12", "Goodbye!"} {
		if !strings.Contains(transcript, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
}

// Running out of input closes the session the same way an explicit exit
// does, even when the final line has no trailing newline.
func TestStartEOFEndsSession(t *testing.T) {
	t.Parallel()
	repl, out := newTestREPL(t, "big")
	repl.SetInput(strings.NewReader("list"))

	repl.Start()

	transcript := testutil.StripANSI(out.String())
	if !strings.Contains(transcript, "Available backends") {
		t.Error("final line without a newline should still be processed")
	}
	if !strings.Contains(transcript, "Goodbye!") {
		t.Error("EOF should close the session with a farewell")
	}
}

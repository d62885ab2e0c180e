package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/fermatlab/gauss/internal/ui"
)

// installUsage replaces the flag set's default usage text with a themed
// layout: a header, one aligned line per flag, and worked examples.
func installUsage(flags *flag.FlagSet) {
	flags.Usage = func() {
		// Usage can run before SelectTheme, so NO_COLOR is honored here too.
		t := ui.CurrentTheme()
		if ui.NoColorEnv() {
			t = ui.NoColorTheme
		}

		out := flags.Output()
		fmt.Fprintf(out, "\n%sGauss%s\n", t.Bold, t.Reset)
		fmt.Fprintf(out, "High-performance arbitrary-precision multiplication toolkit.\n\n")
		fmt.Fprintf(out, "%sUsage:%s\n  %s [flags]\n\n%sFlags:%s\n", t.Warning, t.Reset, flags.Name(), t.Warning, t.Reset)

		flags.VisitAll(func(f *flag.Flag) {
			printFlagUsage(out, t, f)
		})

		fmt.Fprintf(out, "\n%sExamples:%s\n", t.Warning, t.Reset)
		fmt.Fprintf(out, "  %s -bits 1000000                  two synthesized 1 Mbit operands, all backends\n", flags.Name())
		fmt.Fprintf(out, "  %s -x 123456789 -y 987654321 -c  explicit operands, single calculation\n", flags.Name())
		fmt.Fprintf(out, "  %s -backend karatsuba -bits 8192  force one backend\n", flags.Name())
		fmt.Fprintf(out, "  %s -calibrate                     measure thresholds for this machine\n", flags.Name())
		fmt.Fprintln(out)
	}
}

// printFlagUsage renders one flag line. Zero and false defaults are left off
// the line.
func printFlagUsage(out io.Writer, t ui.Theme, f *flag.Flag) {
	name, help := flag.UnquoteUsage(f)
	sig := "-" + f.Name
	if name != "" {
		sig += " " + name
	}
	fmt.Fprintf(out, "  %s%-25s%s %s", t.Primary, sig, t.Reset, help)
	if d := f.DefValue; d != "" && d != "0" && d != "false" {
		fmt.Fprintf(out, " %s(default %s)%s", t.Secondary, d, t.Reset)
	}
	fmt.Fprintln(out)
}

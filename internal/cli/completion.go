package cli

import (
	"fmt"
	"io"
	"strings"
)

// completionFlag is one row of the option table the script generators
// render. A non-empty meta means the flag takes an argument; values are
// suggested completions for it and paths marks it as a filesystem path.
type completionFlag struct {
	long   string   // primary spelling, dashes included
	short  string   // one-letter alias, when the binary accepts one
	desc   string   // menu description
	meta   string   // argument placeholder, empty for booleans
	values []string // suggested argument values
	paths  bool
}

// completionFlags describes the whole flag surface once; every shell script
// is rendered from this table. The registered backends are folded into the
// --backend suggestions next to the "all" pseudo-backend.
func completionFlags(backends []string) []completionFlag {
	withAll := make([]string, 0, len(backends)+1)
	withAll = append(withAll, backends...)
	withAll = append(withAll, "all")

	return []completionFlag{
		{long: "--help", short: "-h", desc: "Show usage and exit"},
		{long: "--version", short: "-V", desc: "Show build and version details"},
		{long: "-x", desc: "First operand as a decimal integer", meta: "integer"},
		{long: "-y", desc: "Second operand as a decimal integer", meta: "integer"},
		{long: "--bits", desc: "Bit length of synthesized operands", meta: "bits", values: []string{"65536", "1000000", "4000000", "10000000"}},
		{long: "--seed", desc: "Seed for deterministic operand synthesis", meta: "seed"},
		{long: "--fib", desc: "Compute the nth Fibonacci number by fast doubling", meta: "index"},
		{long: "-v", desc: "Display the full result value"},
		{long: "--details", short: "-d", desc: "Display performance details"},
		{long: "--timeout", desc: "Cap total execution time", meta: "duration", values: []string{"1m", "5m", "10m", "30m", "1h"}},
		{long: "--backend", desc: "Multiplication backend to run", meta: "backend", values: withAll},
		{long: "--threshold", desc: "Parallel execution threshold in bits", meta: "bits", values: []string{"1024", "2048", "4096", "8192", "16384"}},
		{long: "--fft-threshold", desc: "FFT crossover size in words", meta: "words", values: []string{"900", "1200", "1800", "2700", "3600"}},
		{long: "--karatsuba-threshold", desc: "Karatsuba crossover size in words", meta: "words", values: []string{"16", "24", "32", "48", "64"}},
		{long: "--parallel", desc: "Run independent products concurrently"},
		{long: "--cache", desc: "Cache FFT transforms between runs"},
		{long: "--cache-entries", desc: "Transform cache capacity", meta: "count"},
		{long: "--calibrate", desc: "Measure optimal thresholds and exit"},
		{long: "--auto-calibrate", desc: "Calibrate thresholds at startup"},
		{long: "--calibration-profile", desc: "Calibration profile path", meta: "file", paths: true},
		{long: "--json", desc: "Emit results as JSON"},
		{long: "--server", desc: "Serve the HTTP API"},
		{long: "--port", desc: "HTTP listen port", meta: "port", values: []string{"8080", "3000", "5000", "9000"}},
		{long: "--no-color", desc: "Disable ANSI colors"},
		{long: "--output", short: "-o", desc: "Write the result to a file", meta: "file", paths: true},
		{long: "--quiet", short: "-q", desc: "Minimal output for scripts"},
		{long: "--hex", desc: "Show the result in hexadecimal"},
		{long: "--interactive", desc: "Start the interactive REPL"},
		{long: "--calculate", short: "-c", desc: "Display the calculated value"},
		{long: "--completion", desc: "Write a completion script", meta: "shell", values: []string{"bash", "zsh", "fish", "powershell"}},
	}
}

// optionNames returns every accepted spelling, each short alias ahead of
// its long form, in table order.
func optionNames(flags []completionFlag) []string {
	names := make([]string, 0, 2*len(flags))
	for _, f := range flags {
		if f.short != "" {
			names = append(names, f.short)
		}
		names = append(names, f.long)
	}
	return names
}

// GenerateCompletion writes a completion script for the named shell to out.
// The registered backend names are folded into the script so --backend
// completes to what this build actually ships. "ps" is accepted as an
// alias for powershell. Nothing is written when the shell is unknown.
func GenerateCompletion(out io.Writer, shell string, backends []string) error {
	switch shell {
	case "bash":
		return writeBashCompletion(out, backends)
	case "zsh":
		return writeZshCompletion(out, backends)
	case "fish":
		return writeFishCompletion(out, backends)
	case "powershell", "ps":
		return writePowerShellCompletion(out, backends)
	default:
		return fmt.Errorf("unrecognized shell %q (want bash, zsh, fish or powershell)", shell)
	}
}

func writeBashCompletion(out io.Writer, backends []string) error {
	flags := completionFlags(backends)

	var b strings.Builder
	b.WriteString("# Bash completion script for gauss\n")
	b.WriteString("# Source from ~/.bashrc or drop into the bash-completion directory.\n\n")
	b.WriteString("_gauss_completions() {\n")
	b.WriteString("    local cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    local prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n")
	fmt.Fprintf(&b, "    local opts=%q\n", strings.Join(optionNames(flags), " "))
	fmt.Fprintf(&b, "    local backends=%q\n", strings.Join(backends, " ")+" all")
	b.WriteString("    COMPREPLY=()\n\n")

	b.WriteString("    case \"${prev}\" in\n")
	var pathNames []string
	for _, f := range flags {
		switch {
		case f.long == "--backend":
			fmt.Fprintf(&b, "    %s) COMPREPLY=( $(compgen -W \"${backends}\" -- \"${cur}\") ); return ;;\n", f.long)
		case len(f.values) > 0:
			fmt.Fprintf(&b, "    %s) COMPREPLY=( $(compgen -W %q -- \"${cur}\") ); return ;;\n", f.long, strings.Join(f.values, " "))
		case f.paths:
			if f.short != "" {
				pathNames = append(pathNames, f.short)
			}
			pathNames = append(pathNames, f.long)
		}
	}
	if len(pathNames) > 0 {
		fmt.Fprintf(&b, "    %s) COMPREPLY=( $(compgen -f -- \"${cur}\") ); return ;;\n", strings.Join(pathNames, "|"))
	}
	b.WriteString("    esac\n\n")

	b.WriteString("    [[ \"${cur}\" == -* ]] && COMPREPLY=( $(compgen -W \"${opts}\" -- \"${cur}\") )\n")
	b.WriteString("}\n\n")
	b.WriteString("complete -F _gauss_completions gauss\n")

	_, err := io.WriteString(out, b.String())
	return err
}

func writeZshCompletion(out io.Writer, backends []string) error {
	flags := completionFlags(backends)

	specs := make([]string, len(flags))
	for i, f := range flags {
		specs[i] = zshSpec(f)
	}

	var b strings.Builder
	b.WriteString("#compdef gauss\n\n")
	b.WriteString("# Zsh completion script for gauss\n")
	b.WriteString("# Place on $fpath as _gauss or source directly.\n\n")
	b.WriteString("_gauss() {\n")
	b.WriteString("    local -a backends\n")
	fmt.Fprintf(&b, "    backends=(%s all)\n\n", strings.Join(backends, " "))
	fmt.Fprintf(&b, "    _arguments -s \\\n        %s\n", strings.Join(specs, " \\\n        "))
	b.WriteString("}\n\n")
	b.WriteString("_gauss \"$@\"\n")

	_, err := io.WriteString(out, b.String())
	return err
}

// zshSpec renders one _arguments spec. Paired spellings exclude each other,
// and --backend draws its values from the script-local array so the list
// reads naturally when pasted or edited.
func zshSpec(f completionFlag) string {
	var spec strings.Builder
	if f.short != "" {
		fmt.Fprintf(&spec, "'(%s %s)'{%s,%s}'[%s]", f.short, f.long, f.short, f.long, f.desc)
	} else {
		fmt.Fprintf(&spec, "'%s[%s]", f.long, f.desc)
	}
	switch {
	case f.long == "--backend":
		fmt.Fprintf(&spec, ":%s:($backends)", f.meta)
	case f.paths:
		fmt.Fprintf(&spec, ":%s:_files", f.meta)
	case len(f.values) > 0:
		fmt.Fprintf(&spec, ":%s:(%s)", f.meta, strings.Join(f.values, " "))
	case f.meta != "":
		fmt.Fprintf(&spec, ":%s:", f.meta)
	}
	spec.WriteString("'")
	return spec.String()
}

func writeFishCompletion(out io.Writer, backends []string) error {
	flags := completionFlags(backends)

	var b strings.Builder
	b.WriteString("# Fish completion script for gauss\n")
	b.WriteString("# Install as ~/.config/fish/completions/gauss.fish\n\n")
	b.WriteString("# Offer flags only unless a value completion applies.\n")
	b.WriteString("complete -c gauss -f\n\n")
	for _, f := range flags {
		b.WriteString(fishSpec(f))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func fishSpec(f completionFlag) string {
	var spec strings.Builder
	spec.WriteString("complete -c gauss")
	if f.short != "" {
		fmt.Fprintf(&spec, " -s %s", strings.TrimPrefix(f.short, "-"))
	}
	if long, ok := strings.CutPrefix(f.long, "--"); ok {
		fmt.Fprintf(&spec, " -l %s", long)
	} else {
		fmt.Fprintf(&spec, " -s %s", strings.TrimPrefix(f.long, "-"))
	}
	fmt.Fprintf(&spec, " -d '%s'", f.desc)
	switch {
	case f.paths:
		spec.WriteString(" -rF")
	case len(f.values) > 0:
		fmt.Fprintf(&spec, " -xa '%s'", strings.Join(f.values, " "))
	case f.meta != "":
		spec.WriteString(" -x")
	}
	return spec.String()
}

func writePowerShellCompletion(out io.Writer, backends []string) error {
	flags := completionFlags(backends)

	quoted := make([]string, 0, len(backends)+1)
	for _, backend := range backends {
		quoted = append(quoted, "'"+backend+"'")
	}
	quoted = append(quoted, "'all'")

	var b strings.Builder
	b.WriteString("# PowerShell completion script for gauss\n")
	b.WriteString("# Add to your $PROFILE\n\n")
	fmt.Fprintf(&b, "$gaussBackends = @(%s)\n\n", strings.Join(quoted, ", "))
	b.WriteString("Register-ArgumentCompleter -CommandName 'gauss' -Native -ScriptBlock {\n")
	b.WriteString("    param($wordToComplete, $commandAst, $cursorPosition)\n\n")

	b.WriteString("    $options = @(\n")
	for _, f := range flags {
		if f.short != "" {
			fmt.Fprintf(&b, "        @{Name = '%s'; Description = '%s' }\n", f.short, f.desc)
		}
		fmt.Fprintf(&b, "        @{Name = '%s'; Description = '%s' }\n", f.long, f.desc)
	}
	b.WriteString("    )\n\n")

	b.WriteString("    $prev = ''\n")
	b.WriteString("    $elements = $commandAst.CommandElements\n")
	b.WriteString("    if ($elements.Count -gt 2) { $prev = $elements[-2].ToString() }\n\n")

	b.WriteString("    switch ($prev) {\n")
	for _, f := range flags {
		var list string
		switch {
		case f.long == "--backend":
			list = "$gaussBackends"
		case len(f.values) > 0:
			vals := make([]string, len(f.values))
			for i, v := range f.values {
				vals[i] = "'" + v + "'"
			}
			list = "@(" + strings.Join(vals, ", ") + ")"
		default:
			continue
		}
		fmt.Fprintf(&b, "        '%s' {\n", f.long)
		fmt.Fprintf(&b, "            return %s | Where-Object { $_ -like \"$wordToComplete*\" } | ForEach-Object {\n", list)
		b.WriteString("                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)\n")
		b.WriteString("            }\n")
		b.WriteString("        }\n")
	}
	b.WriteString("    }\n\n")

	b.WriteString("    $options | Where-Object { $_.Name -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("        [System.Management.Automation.CompletionResult]::new($_.Name, $_.Name, 'ParameterName', $_.Description)\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")

	_, err := io.WriteString(out, b.String())
	return err
}

// Package cmd implements the ifjc command-line front end: a cobra root
// command that reads IFJ21 source (from a file argument or stdin),
// compiles it to IFJ-code, and reports the spec §6 exit-code
// classification.
//
// Grounded on the teacher compiler's cmd/dwscript/cmd package layout (a
// package-level rootCmd, an Execute() entry point called from main, and
// version information set by build flags), trimmed to this front end's
// single operation rather than the teacher's run/compile/fmt/lex/parse
// subcommand family.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ifj21/ifjc/internal/compiler"
	"github.com/ifj21/ifjc/internal/diagnostics"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags).
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"

	warnEnabled bool
	colorOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "ifjc [file]",
	Short: "IFJ21 single-pass compiler front end",
	Long: `ifjc reads a program written in the IFJ21 source language and emits
IFJ-code, the instruction set of the target stack-based virtual machine,
on stdout.

With a file argument, ifjc reads that file. With no argument, it reads
source from stdin:

  ifjc program.ifj21 > program.ifjcode
  ifjc < program.ifj21 > program.ifjcode

Diagnostics are written to stderr in "(row:col)\t| category: message"
form. The process exit code is the classification from the language
specification's error taxonomy: 0 on success, 1 for a lexical error, 2
for a syntax error, 3-7 for the various semantic errors, 8 for a runtime
nil-operand error detected at compile time, 9 for a compile-time-provable
division by zero, and 99 for an internal error.`,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runCompile,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.Flags().BoolVar(&warnEnabled, "warnings", true, "emit non-fatal warnings to stderr")
	rootCmd.Flags().BoolVar(&colorOutput, "color", true, "colorize diagnostics written to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runCompile(cmd *cobra.Command, args []string) error {
	var src []byte
	var err error
	if len(args) == 1 {
		src, err = os.ReadFile(args[0])
	} else {
		src, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	result := compiler.Compile(string(src), warnEnabled)

	for _, w := range result.Warnings {
		fmt.Fprint(os.Stderr, w.Format(colorOutput))
	}

	if result.Err != nil {
		fmt.Fprint(os.Stderr, result.Err.Format(colorOutput))
		os.Exit(int(result.Code))
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Output)
	os.Exit(int(diagnostics.OK))
	return nil
}

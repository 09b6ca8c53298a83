// Package compiler wires the lexer, top-down parser, and diagnostics
// collector together into the single entry point spec §6 describes: IFJ21
// source text in, IFJ-code text out, plus the integer exit-code
// classification of spec §4.3/§6.
//
// Grounded on the teacher compiler's cmd/dwscript/cmd/compile.go
// orchestration (lex -> parse -> [analyze] -> codegen, stopping at the
// first stage to report an error), collapsed to a single pass since this
// front end's parser does its own semantic analysis and code generation
// inline rather than as separate AST-walking stages.
package compiler

import (
	"github.com/ifj21/ifjc/internal/diagnostics"
	"github.com/ifj21/ifjc/internal/lexer"
	"github.com/ifj21/ifjc/internal/parser"
)

// Result holds everything a caller needs to report the outcome of one
// compilation: the generated IFJ-code (empty on fatal error), the
// classified exit code, the fatal error (nil on success), and any
// warnings collected along the way.
type Result struct {
	Code     diagnostics.Code
	Output   string
	Err      *diagnostics.Error
	Warnings []diagnostics.Warning
}

// Compile runs the whole front end over src and returns the outcome.
// warnEnabled mirrors the CLI's --warnings flag (spec §7).
func Compile(src string, warnEnabled bool) Result {
	diag := diagnostics.NewCollector(warnEnabled)
	lx := lexer.New(src)
	p := parser.New(lx, diag)

	out, err := p.Run()
	if err != nil {
		diag.Report(err)
		return Result{Code: diag.Code(), Err: err, Warnings: diag.Warnings()}
	}

	return Result{Code: diagnostics.OK, Output: out, Warnings: diag.Warnings()}
}

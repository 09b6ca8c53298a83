// Package diagnostics implements the positioned, classified error/warning
// reporter from spec §4.3/§7: the integer classification returned by
// parse_program, the error taxonomy, and the colorized
// `(ROW:COL)\t| category: message` rendering.
//
// Grounded on the teacher compiler's internal/errors.CompilerError: a
// position-and-source-carrying error type with a Format(color bool)
// method, generalized here with a Code (spec §7's taxonomy) and an
// exit-code precedence rule (spec §4.3) the teacher doesn't need since
// DWScript reports all errors it finds rather than aborting on the first.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/ifj21/ifjc/internal/token"
)

// Code is the integer classification from spec §4.3.
type Code int

const (
	OK            Code = 0
	Lexical       Code = 1
	Syntax        Code = 2
	Definition    Code = 3
	Assignment    Code = 4
	ParamArg      Code = 5
	ExprSemantic  Code = 6
	OtherSemantic Code = 7
	NilUse        Code = 8
	DivByZero     Code = 9
	Internal      Code = 99
)

var categoryNames = map[Code]string{
	OK:            "ok",
	Lexical:       "lexical error",
	Syntax:        "syntax error",
	Definition:    "definition error",
	Assignment:    "assignment error",
	ParamArg:      "parameter error",
	ExprSemantic:  "expression-semantic error",
	OtherSemantic: "semantic error",
	NilUse:        "nil-use error",
	DivByZero:     "division-by-zero error",
	Internal:      "internal error",
}

// String renders the diagnostic category name for a Code.
func (c Code) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "error"
}

// rank orders codes by the precedence rule spec §4.3 states: internal (99)
// beats lexical (1) beats syntax (2) beats semantic (3-7) beats runtime
// (8-9) beats success (0).
func rank(c Code) int {
	switch {
	case c == Internal:
		return 6
	case c == Lexical:
		return 5
	case c == Syntax:
		return 4
	case c >= Definition && c <= OtherSemantic:
		return 3
	case c == NilUse || c == DivByZero:
		return 2
	default:
		return 0
	}
}

// Combine returns whichever of existing/new has higher precedence, keeping
// existing on a tie (first non-zero code propagates up, per spec §4.3).
func Combine(existing, next Code) Code {
	if existing == OK {
		return next
	}
	if next == OK {
		return existing
	}
	if rank(next) > rank(existing) {
		return next
	}
	return existing
}

// Error is a single positioned, classified diagnostic. It implements the
// error interface so it can propagate through normal Go error returns.
type Error struct {
	Code    Code
	Pos     token.Position
	Message string
}

// Newf builds an *Error at the given position and code.
func Newf(code Code, pos token.Position, format string, args ...any) *Error {
	return &Error{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("(%s)\t| %s: %s", e.Pos, e.Code, e.Message)
}

// Format renders the diagnostic line, optionally with ANSI coloring, per
// spec §7's `(ROW:COL)\t| category: message\n` format.
func (e *Error) Format(color bool) string {
	if !color {
		return e.Error() + "\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s)\t| ", e.Pos)
	sb.WriteString("\033[1;31m") // bold red
	sb.WriteString(e.Code.String())
	sb.WriteString("\033[0m")
	fmt.Fprintf(&sb, ": %s\n", e.Message)
	return sb.String()
}

// Warning is a non-fatal diagnostic: unused declared function, missing
// return, or uninitialized variable used in an expression (spec §7).
// Warnings share the error line format but never affect the exit code.
type Warning struct {
	Pos     token.Position
	Message string
}

// Format renders a warning line, optionally colorized, matching the same
// shape as Error.Format.
func (w Warning) Format(color bool) string {
	if !color {
		return fmt.Sprintf("(%s)\t| warning: %s\n", w.Pos, w.Message)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s)\t| ", w.Pos)
	sb.WriteString("\033[1;33m") // bold yellow
	sb.WriteString("warning")
	sb.WriteString("\033[0m")
	fmt.Fprintf(&sb, ": %s\n", w.Message)
	return sb.String()
}

// Collector accumulates warnings and reports the single fatal Error that
// aborts compilation, per spec §4.3's "no error recovery" design: the
// first unrecoverable error wins (per Combine's precedence rule) and
// further errors are ignored once the strongest-so-far has been recorded,
// but warnings keep accumulating since they never abort compilation.
type Collector struct {
	err         *Error
	warnings    []Warning
	warnEnabled bool
}

// NewCollector creates a Collector. warnEnabled mirrors spec §7's
// compile-time switch to disable warning output entirely.
func NewCollector(warnEnabled bool) *Collector {
	return &Collector{warnEnabled: warnEnabled}
}

// Report records a candidate fatal error, keeping whichever of the
// already-recorded and new error has higher precedence (Combine).
func (c *Collector) Report(e *Error) {
	if e == nil {
		return
	}
	if c.err == nil {
		c.err = e
		return
	}
	if Combine(c.err.Code, e.Code) == e.Code && e.Code != c.err.Code {
		c.err = e
	}
}

// Warn records a warning, a no-op if warnings are disabled.
func (c *Collector) Warn(pos token.Position, format string, args ...any) {
	if !c.warnEnabled {
		return
	}
	c.warnings = append(c.warnings, Warning{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Err returns the strongest recorded fatal error, or nil if none.
func (c *Collector) Err() *Error { return c.err }

// Warnings returns every recorded warning, in report order.
func (c *Collector) Warnings() []Warning { return c.warnings }

// Code returns OK if no fatal error was recorded, else the recorded
// error's Code — the process exit status per spec §6.
func (c *Collector) Code() Code {
	if c.err == nil {
		return OK
	}
	return c.err.Code
}

// FormatErrors renders the fatal error (if any) for stderr output.
func FormatErrors(errs []*Error, color bool) string {
	var sb strings.Builder
	for _, e := range errs {
		sb.WriteString(e.Format(color))
	}
	return sb.String()
}

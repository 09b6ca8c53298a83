package exprparser_test

import (
	"strings"
	"testing"

	"github.com/ifj21/ifjc/internal/codegen"
	"github.com/ifj21/ifjc/internal/diagnostics"
	"github.com/ifj21/ifjc/internal/exprparser"
	"github.com/ifj21/ifjc/internal/lexer"
	"github.com/ifj21/ifjc/internal/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T, src string) (*exprparser.Parser, *codegen.Program, *symtab.Stack, *diagnostics.Collector) {
	t.Helper()
	lx := lexer.New(src)
	syms := symtab.New()
	symtab.LoadBuiltins(syms.Global)
	prog := codegen.NewProgram()
	diag := diagnostics.NewCollector(true)
	return exprparser.New(lx, syms, prog, diag), prog, syms, diag
}

func TestParseArithmeticProducesNumType(t *testing.T) {
	p, prog, _, _ := newParser(t, "1 + 2.0")
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "n", res.Type)
	assert.Contains(t, prog.Lines(), "ADDS")
}

func TestParseIntAdditionStaysInt(t *testing.T) {
	p, _, _, _ := newParser(t, "1 + 2")
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "i", res.Type)
}

func TestDivisionByLiteralZeroIsDivByZeroError(t *testing.T) {
	p, _, _, _ := newParser(t, "10 / 0")
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.DivByZero, err.Code)
}

func TestDivisionByIntegerDivideLiteralZeroIsDivByZeroError(t *testing.T) {
	p, _, _, _ := newParser(t, "10 // 0")
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.DivByZero, err.Code)
}

func TestDivisionByNonZeroIsFine(t *testing.T) {
	p, _, _, _ := newParser(t, "10 / 3")
	_, err := p.Parse()
	assert.Nil(t, err)
}

func TestConcatRequiresStrings(t *testing.T) {
	p, _, _, _ := newParser(t, `"a" .. "b"`)
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "s", res.Type)
}

func TestConcatRejectsNumber(t *testing.T) {
	p, _, _, _ := newParser(t, `"a" .. 1`)
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.ExprSemantic, err.Code)
}

func TestRelationalProducesBool(t *testing.T) {
	p, _, _, _ := newParser(t, "1 < 2")
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "b", res.Type)
}

func TestRelationalOnStringsIsFine(t *testing.T) {
	p, _, _, _ := newParser(t, `"a" < "b"`)
	_, err := p.Parse()
	assert.Nil(t, err)
}

func TestRelationalMixedTypesFails(t *testing.T) {
	p, _, _, _ := newParser(t, `"a" < 1`)
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.ExprSemantic, err.Code)
}

func TestEqualityAllowsNilOnEitherSide(t *testing.T) {
	p, _, _, _ := newParser(t, "nil == nil")
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "b", res.Type)
}

func TestArithmeticOnNilIsNilUseError(t *testing.T) {
	p, _, _, _ := newParser(t, "nil + 1")
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.NilUse, err.Code)
}

func TestUndeclaredIdentifierIsDefinitionError(t *testing.T) {
	p, _, _, _ := newParser(t, "x + 1")
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.Definition, err.Code)
}

func TestDeclaredVariableUsable(t *testing.T) {
	p, prog, syms, _ := newParser(t, "x + 1")
	sym := &symtab.Symbol{Name: "x", Kind: symtab.KindVar, Type: symtab.Int, Status: symtab.Defined, UniqueName: "x$0"}
	syms.Local().Insert(sym)
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "i", res.Type)
	assert.Contains(t, prog.Lines(), "PUSHS LF@x$0")
}

func TestUnaryMinusOnString(t *testing.T) {
	p, _, _, _ := newParser(t, `-"a"`)
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.ExprSemantic, err.Code)
}

func TestLengthOfString(t *testing.T) {
	p, prog, _, _ := newParser(t, `#"hello"`)
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "i", res.Type)
	assert.Contains(t, prog.Lines(), "STRLEN")
}

func TestParenthesesGroupCorrectly(t *testing.T) {
	p, _, _, _ := newParser(t, "(1 + 2) * 3")
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "i", res.Type)
}

func TestBareFunctionCallReportsOnlyCallWithFullReturnTypes(t *testing.T) {
	p, prog, syms, _ := newParser(t, "f()")
	syms.Global.Insert(&symtab.Symbol{
		Name: "f", Kind: symtab.KindFunc, Status: symtab.Defined,
		ParamTypes: "", RetTypes: "is", UniqueName: "f",
	})
	res, err := p.Parse()
	require.Nil(t, err)
	assert.True(t, res.OnlyCall)
	assert.Equal(t, "is", res.Type)
	assert.Contains(t, prog.Lines(), "CALL f")
}

func TestMultiReturnCallUsedAsOperandIsClampedToFirstValue(t *testing.T) {
	p, prog, syms, _ := newParser(t, "f() + 1")
	syms.Global.Insert(&symtab.Symbol{
		Name: "f", Kind: symtab.KindFunc, Status: symtab.Defined,
		ParamTypes: "", RetTypes: "ii", UniqueName: "f",
	})
	res, err := p.Parse()
	require.Nil(t, err)
	assert.Equal(t, "i", res.Type)
	assert.False(t, res.OnlyCall)
	assert.Contains(t, prog.Lines(), "POPS GF@%dump")
}

func TestCallArgumentCountMismatch(t *testing.T) {
	p, _, syms, _ := newParser(t, "f(1)")
	syms.Global.Insert(&symtab.Symbol{
		Name: "f", Kind: symtab.KindFunc, Status: symtab.Defined,
		ParamTypes: "ii", RetTypes: "i", UniqueName: "f",
	})
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.ParamArg, err.Code)
}

func TestCallArgumentTypeMismatch(t *testing.T) {
	p, _, syms, _ := newParser(t, `f("x")`)
	syms.Global.Insert(&symtab.Symbol{
		Name: "f", Kind: symtab.KindFunc, Status: symtab.Defined,
		ParamTypes: "i", RetTypes: "i", UniqueName: "f",
	})
	_, err := p.Parse()
	require.NotNil(t, err)
	assert.Equal(t, diagnostics.ParamArg, err.Code)
}

func TestCallArgumentIntToNumCoercion(t *testing.T) {
	p, prog, syms, _ := newParser(t, "f(1)")
	syms.Global.Insert(&symtab.Symbol{
		Name: "f", Kind: symtab.KindFunc, Status: symtab.Defined,
		ParamTypes: "n", RetTypes: "n", UniqueName: "f",
	})
	_, err := p.Parse()
	require.Nil(t, err)
	assert.Contains(t, prog.Lines(), "INT2FLOATS")
}

func TestVariadicWriteAcceptsAnyArgCount(t *testing.T) {
	p, _, syms, _ := newParser(t, `write(1, "a", 2.0)`)
	symtab.LoadBuiltins(syms.Global)
	_, err := p.Parse()
	assert.Nil(t, err)
}

func TestBuiltinCalledOnDemandMarksWasUsed(t *testing.T) {
	p, _, syms, _ := newParser(t, `chr(65)`)
	_, err := p.Parse()
	require.Nil(t, err)
	sym, ok := syms.Global.Lookup("chr")
	require.True(t, ok)
	assert.True(t, sym.WasUsed)
}

func TestParseSingleValueClampsBareMultiReturnCall(t *testing.T) {
	p, prog, syms, _ := newParser(t, "f()")
	syms.Global.Insert(&symtab.Symbol{
		Name: "f", Kind: symtab.KindFunc, Status: symtab.Defined,
		ParamTypes: "", RetTypes: "ii", UniqueName: "f",
	})
	res, err := p.ParseSingleValue()
	require.Nil(t, err)
	assert.Equal(t, "i", res.Type)
	assert.Contains(t, prog.Lines(), "POPS GF@%dump")
}

func TestCanStartExpressionRecognizesOperandStarters(t *testing.T) {
	lx := lexer.New("- x")
	assert.True(t, exprparser.CanStartExpression(lx.Lookahead()))
}

func TestCanStartExpressionRejectsEnd(t *testing.T) {
	lx := lexer.New("end")
	tok := lx.Lookahead()
	assert.False(t, strings.Contains(tok.Literal, "(")) // sanity: lexed as KEYWORD "end"
	assert.False(t, exprparser.CanStartExpression(tok))
}

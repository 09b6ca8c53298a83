package codegen_test

import (
	"strings"
	"testing"

	"github.com/ifj21/ifjc/internal/codegen"
	"github.com/ifj21/ifjc/internal/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmitterWritesFixedHeader(t *testing.T) {
	e := codegen.NewEmitter()
	lines := e.Prog.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, ".IFJcode21", lines[0])
}

func TestAppendProgramPreservesOrderAndEmptiesSource(t *testing.T) {
	main := codegen.NewProgram()
	main.Append("A")

	sub := codegen.NewProgram()
	sub.Append("B")
	sub.Append("C")

	main.AppendProgram(sub)

	assert.Equal(t, []string{"A", "B", "C"}, main.Lines())
	assert.Equal(t, 0, sub.Len())
}

func TestProgramStackLIFOOrder(t *testing.T) {
	var stack codegen.ProgramStack
	p1 := codegen.NewProgram()
	p1.Append("first")
	p2 := codegen.NewProgram()
	p2.Append("second")

	stack.Push(p1)
	stack.Push(p2)

	assert.Equal(t, 2, stack.Len())
	top := stack.Pop()
	assert.Equal(t, []string{"second"}, top.Lines())
	assert.Equal(t, []string{"first"}, stack.Pop().Lines())
	assert.Nil(t, stack.Pop())
}

func TestBinaryOpAddition(t *testing.T) {
	e := codegen.NewEmitter()
	e.PushInt(1)
	e.PushInt(2)
	e.BinaryOp("+")

	lines := e.Prog.Lines()
	assert.Contains(t, lines, "PUSHS int@1")
	assert.Contains(t, lines, "PUSHS int@2")
	assert.Contains(t, lines, "ADDS")
}

func TestDivisionEmitsDIVS(t *testing.T) {
	e := codegen.NewEmitter()
	e.PushInt(4)
	e.PushInt(2)
	e.BinaryOp("/")
	assert.Contains(t, e.Prog.Lines(), "DIVS")
}

func TestLabelsAreUniquePerCall(t *testing.T) {
	e := codegen.NewEmitter()
	l1 := e.NextCondLabel()
	l2 := e.NextCondLabel()
	assert.NotEqual(t, l1, l2)
}

func TestEmitBuiltinTrailerOnlyEmitsUsedBuiltins(t *testing.T) {
	global := symtab.NewTable(-1)
	symtab.LoadBuiltins(global)

	write, ok := global.Lookup("write")
	require.True(t, ok)
	write.WasUsed = true

	e := codegen.NewEmitter()
	e.EmitBuiltinTrailer(global)

	text := e.Prog.String()
	assert.True(t, strings.Contains(text, "LABEL write"))
	assert.False(t, strings.Contains(text, "LABEL chr"))
}

func TestCoerceTopInt2FloatEmitsWidening(t *testing.T) {
	e := codegen.NewEmitter()
	e.PushInt(3)
	e.CoerceTopInt2Float()
	assert.Contains(t, e.Prog.Lines(), "INT2FLOATS")
}

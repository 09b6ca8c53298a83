package symtab_test

import (
	"testing"

	"github.com/ifj21/ifjc/internal/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndLookupLocal(t *testing.T) {
	s := symtab.New()
	s.Local().Insert(&symtab.Symbol{Name: "x", Kind: symtab.KindVar, Type: symtab.Int})

	sym, ok := s.LookupLocal("x")
	require.True(t, ok)
	assert.Equal(t, symtab.Int, sym.Type)

	_, ok = s.LookupLocal("y")
	assert.False(t, ok)
}

func TestEnterScopeCopiesButDoesNotShareFutureInserts(t *testing.T) {
	s := symtab.New()
	s.Local().Insert(&symtab.Symbol{Name: "outer", Kind: symtab.KindVar, Type: symtab.Int})

	s.EnterScope()
	_, ok := s.LookupDeep("outer")
	assert.True(t, ok, "inner scope should see outer binding present at entry")

	s.Local().Insert(&symtab.Symbol{Name: "inner", Kind: symtab.KindVar, Type: symtab.Str})
	s.LeaveScope()

	_, ok = s.LookupLocal("inner")
	assert.False(t, ok, "outer scope must not see bindings added after entry")
}

func TestLookupDeepWalksParentChainThenGlobal(t *testing.T) {
	s := symtab.New()
	s.Global.Insert(&symtab.Symbol{Name: "g", Kind: symtab.KindVar, Type: symtab.Str})

	s.EnterScope()
	s.Local().Insert(&symtab.Symbol{Name: "a", Kind: symtab.KindVar, Type: symtab.Int})
	s.EnterScope()
	s.Local().Insert(&symtab.Symbol{Name: "b", Kind: symtab.KindVar, Type: symtab.Num})

	sym, ok := s.LookupDeep("a")
	require.True(t, ok)
	assert.Equal(t, symtab.Int, sym.Type)

	sym, ok = s.LookupDeep("g")
	require.True(t, ok)
	assert.Equal(t, symtab.Str, sym.Type)

	_, ok = s.LookupDeep("nope")
	assert.False(t, ok)
}

func TestRemoveThenReinsertForInitializerShadowing(t *testing.T) {
	s := symtab.New()
	s.Local().Insert(&symtab.Symbol{Name: "a", Kind: symtab.KindVar, Type: symtab.Int, Status: symtab.Defined})

	s.EnterScope()
	// local a : integer = a + 1 -- the inner `a` must not be visible yet.
	inner := &symtab.Symbol{Name: "a", Kind: symtab.KindVar, Type: symtab.Int, Status: symtab.Declared}
	s.Local().Insert(inner)
	removed := s.Local().Remove("a")
	require.NotNil(t, removed)

	sym, ok := s.LookupDeep("a")
	require.True(t, ok)
	assert.Equal(t, symtab.Defined, sym.Status, "initializer must see the outer, already-defined binding")

	s.Local().Insert(removed)
	sym, ok = s.LookupLocal("a")
	require.True(t, ok)
	assert.Equal(t, symtab.Declared, sym.Status)
}

func TestDeclCounterMonotonic(t *testing.T) {
	s := symtab.New()
	a := s.NextDeclIndex()
	b := s.NextDeclIndex()
	c := s.NextDeclIndex()
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, c)
}

func TestLoadBuiltinsPopulatesFixedSet(t *testing.T) {
	tbl := symtab.NewTable(-1)
	symtab.LoadBuiltins(tbl)

	for _, name := range []string{"chr", "ord", "readi", "readn", "reads", "substr", "tointeger", "write"} {
		sym, ok := tbl.Lookup(name)
		require.Truef(t, ok, "builtin %q missing", name)
		assert.Equal(t, symtab.KindFunc, sym.Kind)
	}

	write, _ := tbl.Lookup("write")
	assert.True(t, write.IsVariadic())
}

func TestCheckBuiltinInsertsOnDemandOnlyForKnownNames(t *testing.T) {
	tbl := symtab.NewTable(-1)

	assert.True(t, symtab.CheckBuiltin("chr", tbl))
	_, ok := tbl.Lookup("chr")
	assert.True(t, ok)

	assert.False(t, symtab.CheckBuiltin("notabuiltin", tbl))
	_, ok = tbl.Lookup("notabuiltin")
	assert.False(t, ok)
}

func TestTypeCharRoundTrip(t *testing.T) {
	for _, dt := range []symtab.DataType{symtab.Int, symtab.Num, symtab.Str, symtab.Nil, symtab.Bool} {
		c := dt.TypeChar()
		assert.Equal(t, dt, symtab.CharToType(c))
	}
}

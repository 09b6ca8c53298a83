// Package symtab implements the symbol-table stack described in spec §3
// and §4.2: an ordered per-scope symbol table, a copy-on-push scope stack
// addressed by parent index (not by pointer, to avoid lifetime
// entanglement across shadowed scopes), a always-live global table, and
// the fixed builtin function set.
//
// The copy-on-push design is grounded in the teacher compiler's general
// approach to scope management (each block gets its own view of bindings
// visible at entry, never polluted by siblings or later additions to an
// enclosing scope) generalized to the arena-of-scopes-by-index scheme spec
// §9 calls out explicitly.
package symtab

import "sort"

// Kind distinguishes variable and function symbols.
type Kind int

const (
	KindVar Kind = iota
	KindFunc
)

// DataType is one of the source language's value types, or Undefined for a
// not-yet-resolved binding.
type DataType int

const (
	Undefined DataType = iota
	Int
	Num
	Str
	Nil
	Bool
)

// TypeChar returns the single-character type code used in parameter/return
// type strings (spec §3's "Type string").
func (d DataType) TypeChar() byte {
	switch d {
	case Int:
		return 'i'
	case Num:
		return 'n'
	case Str:
		return 's'
	case Nil:
		return 'z'
	case Bool:
		return 'b'
	default:
		return ' '
	}
}

// CharToType is the inverse of DataType.TypeChar, used when parsing a
// parameter/return type string back into concrete types.
func CharToType(c byte) DataType {
	switch c {
	case 'i':
		return Int
	case 'n':
		return Num
	case 's':
		return Str
	case 'z':
		return Nil
	case 'b':
		return Bool
	default:
		return Undefined
	}
}

// Status tracks a symbol's lifecycle: declared (forward reference exists)
// vs. defined (has a guaranteed initialized value) vs. used.
type Status int

const (
	Declared Status = iota
	Defined
	Used
)

// Symbol is a record in a symbol table: a variable or function binding.
type Symbol struct {
	Name       string // original source name
	Kind       Kind
	Type       DataType // for KindVar; meaningless for KindFunc
	Status     Status
	ParamTypes string // for KindFunc: concatenated type chars, or exactly "%" for variadic
	RetTypes   string // for KindFunc: concatenated type chars
	WasUsed    bool
	UniqueName string // generated emission name, e.g. "main$a$0"
}

// IsVariadic reports whether the function symbol accepts a variable number
// of arguments (ParamTypes == "%").
func (s *Symbol) IsVariadic() bool {
	return s.Kind == KindFunc && s.ParamTypes == "%"
}

// Table is an ordered name -> Symbol mapping for a single lexical scope.
// Insertion order is preserved because the emitter's builtin trailer and
// some diagnostics want deterministic iteration; a parallel slice of names
// is kept alongside the map for that purpose.
type Table struct {
	entries   map[string]*Symbol
	order     []string
	ParentInd int // index into Stack.scopes of the enclosing scope, or -1
}

// NewTable creates an empty table whose enclosing scope is at parentInd (-1
// for none).
func NewTable(parentInd int) *Table {
	return &Table{entries: make(map[string]*Symbol), ParentInd: parentInd}
}

// Insert creates or replaces the symbol for name in this table.
func (t *Table) Insert(sym *Symbol) {
	if _, exists := t.entries[sym.Name]; !exists {
		t.order = append(t.order, sym.Name)
	}
	t.entries[sym.Name] = sym
}

// Remove deletes name from this table, if present, and returns the removed
// symbol (nil if absent). It supports the delete-then-reinsert pattern
// around variable initializers; the parser itself gets the same effect by
// inserting a new binding only after its initializer has been parsed, and
// does not call Remove.
func (t *Table) Remove(name string) *Symbol {
	sym, ok := t.entries[name]
	if !ok {
		return nil
	}
	delete(t.entries, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return sym
}

// Lookup finds name directly in this table only.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.entries[name]
	return sym, ok
}

// Names returns the symbol names in insertion order.
func (t *Table) Names() []string {
	return t.order
}

// clone returns a shallow copy of t suitable for pushing onto the scope
// stack: the Symbol pointers are shared (symbols are never mutated after
// push except via the local table that owns them), but the entries map and
// order slice are independent so later local-scope inserts don't leak into
// the pushed copy.
func (t *Table) clone() *Table {
	c := &Table{
		entries:   make(map[string]*Symbol, len(t.entries)),
		order:     append([]string(nil), t.order...),
		ParentInd: t.ParentInd,
	}
	for k, v := range t.entries {
		c.entries[k] = v
	}
	return c
}

// Stack is the symbol-table stack: an indexable arena of pushed scopes plus
// the current local table on top, a global table, and a declaration
// counter for generating unique emission names.
type Stack struct {
	Global *Table
	scopes []*Table // arena of scopes, addressed by parent_ind; scopes[i].ParentInd chains outward
	local  *Table

	declCounter int

	// Pending holds function-declaration tokens (by function name) still
	// waiting for their definition, per spec §3's "declaration-pending
	// stack".
	Pending map[string]bool
}

// New creates a Stack with an empty global table and an empty top-level
// local table.
func New() *Stack {
	return &Stack{
		Global:  NewTable(-1),
		local:   NewTable(-1),
		Pending: make(map[string]bool),
	}
}

// Local returns the current local (innermost) scope.
func (s *Stack) Local() *Table { return s.local }

// EnterScope pushes a copy of the current local table onto the scope arena
// and starts a fresh local table whose ParentInd points at the pushed copy.
func (s *Stack) EnterScope() {
	pushed := s.local.clone()
	s.scopes = append(s.scopes, pushed)
	s.local = NewTable(len(s.scopes) - 1)
}

// LeaveScope discards the current local table and restores the local table
// to the scope it was pushed from.
func (s *Stack) LeaveScope() {
	if len(s.scopes) == 0 {
		s.local = NewTable(-1)
		return
	}
	parent := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	s.local = parent
}

// NextDeclIndex returns the next value of the compilation unit's
// monotonically increasing declaration counter, then increments it.
func (s *Stack) NextDeclIndex() int {
	i := s.declCounter
	s.declCounter++
	return i
}

// LookupLocal searches only the current local table.
func (s *Stack) LookupLocal(name string) (*Symbol, bool) {
	return s.local.Lookup(name)
}

// LookupGlobal searches only the global table.
func (s *Stack) LookupGlobal(name string) (*Symbol, bool) {
	return s.Global.Lookup(name)
}

// LookupDeep searches the local table, then walks ParentInd through the
// scope arena, then the global table. The first hit wins.
func (s *Stack) LookupDeep(name string) (*Symbol, bool) {
	if sym, ok := s.local.Lookup(name); ok {
		return sym, true
	}
	ind := s.local.ParentInd
	for ind >= 0 && ind < len(s.scopes) {
		t := s.scopes[ind]
		if sym, ok := t.Lookup(name); ok {
			return sym, true
		}
		ind = t.ParentInd
	}
	return s.Global.Lookup(name)
}

// builtinSignatures is the fixed builtin function set from spec §4.2.
// write is variadic, marked with the "%" parameter-type string. Signatures
// are grounded in original_source/symtable.c's builtin_functions table
// (ord takes a string and an index, substr's bounds are numbers, not
// integers — spec.md's distillation leaves these unspecified).
var builtinSignatures = map[string]struct{ params, rets string }{
	"chr":       {"i", "s"},
	"ord":       {"si", "i"},
	"readi":     {"", "i"},
	"readn":     {"", "n"},
	"reads":     {"", "s"},
	"substr":    {"snn", "s"},
	"tointeger": {"n", "i"},
	"write":     {"%", ""},
}

// LoadBuiltins populates dst with the fixed builtin function set, in
// name order.
func LoadBuiltins(dst *Table) {
	names := make([]string, 0, len(builtinSignatures))
	for name := range builtinSignatures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sig := builtinSignatures[name]
		dst.Insert(&Symbol{
			Name:       name,
			Kind:       KindFunc,
			Status:     Defined,
			ParamTypes: sig.params,
			RetTypes:   sig.rets,
			WasUsed:    false,
			UniqueName: name,
		})
	}
}

// CheckBuiltin inserts name into dst on demand if it names a builtin
// function, returning true iff it did. Used by the parser so that a
// program calling only `write` doesn't pay for the other seven builtin
// trailer definitions (see spec §4.5's final pass: only builtins actually
// marked WasUsed get emitted).
func CheckBuiltin(name string, dst *Table) bool {
	sig, ok := builtinSignatures[name]
	if !ok {
		return false
	}
	if _, exists := dst.Lookup(name); !exists {
		dst.Insert(&Symbol{
			Name:       name,
			Kind:       KindFunc,
			Status:     Defined,
			ParamTypes: sig.params,
			RetTypes:   sig.rets,
			UniqueName: name,
		})
	}
	return true
}

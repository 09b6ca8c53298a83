// Package codegen implements the IFJ-code instruction program: an
// append-only, splicable doubly-linked sequence of formatted instruction
// lines, plus the program-stack mechanism the top-down parser uses to
// defer and reorder emission for multi-assignment and multi-return.
//
// The separation between an "instruction list" type and a "generator" that
// formats concrete opcodes is grounded on skx-math-compiler's
// instructions/compiler split (a small, dependency-free reference for
// exactly this separation of concerns), generalized here to support the
// splicing operations spec §3 and §4.5 require.
package codegen

import "strings"

// node is one link in the instruction program's doubly-linked list.
type node struct {
	line       string
	prev, next *node
}

// Program is a doubly-linked sequence of opaque, already-formatted
// instruction lines. It supports appending a line and appending another
// entire program (consuming it); it has no insert-before/after or
// subrange-splice operation.
type Program struct {
	head, tail *node
	len        int
}

// NewProgram returns an empty instruction program.
func NewProgram() *Program {
	return &Program{}
}

// Len reports the number of instruction lines currently in the program.
func (p *Program) Len() int { return p.len }

// Append adds a line to the end of the program.
func (p *Program) Append(line string) {
	n := &node{line: line, prev: p.tail}
	if p.tail != nil {
		p.tail.next = n
	} else {
		p.head = n
	}
	p.tail = n
	p.len++
}

// Appendf formats and appends a line.
func (p *Program) Appendf(format string, args ...any) {
	p.Append(sprintf(format, args...))
}

// AppendProgram appends the entirety of other onto the end of p, in order.
// other is left empty afterward (its nodes are spliced into p directly,
// not copied, since neither program is retained once appended).
func (p *Program) AppendProgram(other *Program) {
	if other == nil || other.head == nil {
		return
	}
	if p.tail != nil {
		p.tail.next = other.head
		other.head.prev = p.tail
	} else {
		p.head = other.head
	}
	p.tail = other.tail
	p.len += other.len
	other.head, other.tail, other.len = nil, nil, 0
}

// Lines renders the program as a slice of formatted instruction lines, in
// order, for final output.
func (p *Program) Lines() []string {
	lines := make([]string, 0, p.len)
	for n := p.head; n != nil; n = n.next {
		lines = append(lines, n.line)
	}
	return lines
}

// String renders the program as newline-joined IFJ-code text.
func (p *Program) String() string {
	return strings.Join(p.Lines(), "\n")
}

// sprintf is a tiny indirection so this file only imports "strings"
// directly; fmt is pulled in by emit.go which does the actual formatting
// work.
func sprintf(format string, args ...any) string {
	return formatLine(format, args...)
}

// ProgramStack is a LIFO holder for deferred expression sub-programs. The
// parser does not use it: for a multi-assignment, multi-value declaration
// or multi-value return it keeps one Program per expression in a plain
// slice, appends them to the main program in parse order (left-to-right
// evaluation), and then emits the POPS sequence in reversed target order.
type ProgramStack struct {
	items []*Program
}

// Push adds a sub-program to the top of the stack.
func (s *ProgramStack) Push(p *Program) {
	s.items = append(s.items, p)
}

// Pop removes and returns the top sub-program, or nil if the stack is
// empty.
func (s *ProgramStack) Pop() *Program {
	if len(s.items) == 0 {
		return nil
	}
	n := len(s.items) - 1
	p := s.items[n]
	s.items = s.items[:n]
	return p
}

// Len reports how many sub-programs are currently held.
func (s *ProgramStack) Len() int { return len(s.items) }

// All returns every held sub-program, bottom to top, without removing
// them. Used to append in parse order (left-to-right).
func (s *ProgramStack) All() []*Program {
	return s.items
}

// Clear discards every sub-program on the stack. Since each Program is
// just a linked list with no external resources, clearing the slice is
// sufficient (Go's GC reclaims the rest).
func (s *ProgramStack) Clear() {
	s.items = nil
}

// CycleLabelStack is the code buffer's auxiliary stack of saved
// loop/conditional label counter values, used by
// Emitter.SaveLabelCounters/RestoreLabelCounters.
type CycleLabelStack struct {
	stack []int
}

// Push saves a label counter value.
func (c *CycleLabelStack) Push(v int) { c.stack = append(c.stack, v) }

// Pop restores and returns the most recently saved label counter value.
func (c *CycleLabelStack) Pop() int {
	if len(c.stack) == 0 {
		return 0
	}
	n := len(c.stack) - 1
	v := c.stack[n]
	c.stack = c.stack[:n]
	return v
}

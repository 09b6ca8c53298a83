package parser

import (
	"fmt"

	"github.com/ifj21/ifjc/internal/codegen"
	"github.com/ifj21/ifjc/internal/diagnostics"
	"github.com/ifj21/ifjc/internal/exprparser"
	"github.com/ifj21/ifjc/internal/symtab"
	"github.com/ifj21/ifjc/internal/token"
)

// frame returns the data-stack frame this Parser's current context
// writes variables into: the local frame inside a function body, the
// global frame for top-level (main) code.
func (p *Parser) frame() string {
	if p.curFunc != nil {
		return "LF"
	}
	return "GF"
}

// declPrefix returns the name fragment used to build a unique emission
// name, so `main$x$3` and `myFunc$x$7` never collide even when the
// source reuses the name `x`.
func (p *Parser) declPrefix() string {
	if p.curFunc != nil {
		return p.curFunc.Name
	}
	return "main"
}

func (p *Parser) parseStatement(out *codegen.Program) *diagnostics.Error {
	tok := p.lex.Lookahead()
	switch {
	case tok.Type == token.KEYWORD && tok.Literal == "local":
		return p.parseLocalDecl(out)
	case tok.Type == token.KEYWORD && tok.Literal == "if":
		return p.parseIf(out)
	case tok.Type == token.KEYWORD && tok.Literal == "while":
		return p.parseWhile(out)
	case tok.Type == token.KEYWORD && tok.Literal == "return":
		return p.parseReturn(out)
	case tok.Type == token.IDENT:
		return p.parseIdentStatement(out)
	default:
		return diagnostics.Newf(diagnostics.Syntax, tok.Pos, "unexpected token %s in statement position", tok)
	}
}

// --- local variable declaration --------------------------------------------------

// localSlot is one `NAME [: TYPE]` entry of a (possibly multi-target)
// `local` declaration, before its initializer (if any) is known.
type localSlot struct {
	nameTok      token.Token
	explicitType byte // 0 means "infer from initializer"
}

// parseLocalDecl parses `local NAME [: TYPE] [, NAME [: TYPE] ...] [=
// expr [, expr ...]]`. A single target with a single initializer is the
// common case; a comma-separated target list paired with either a
// matching comma-separated expression list or one bare multi-return call
// is the destructuring form (spec §4.3's multi-return consumption,
// extended to the declaration site the way an assignment consumes it).
func (p *Parser) parseLocalDecl(out *codegen.Program) *diagnostics.Error {
	p.lex.NextToken() // 'local'

	var slots []localSlot
	for {
		nameTok := p.lex.NextToken()
		if nameTok.Type != token.IDENT {
			return diagnostics.Newf(diagnostics.Syntax, nameTok.Pos, "expected variable name after 'local'")
		}
		var explicitType byte
		if sep := p.lex.Lookahead(); sep.Type == token.SEPARATOR && sep.Literal == ":" {
			p.lex.NextToken()
			c, err := p.parseTypeKeyword()
			if err != nil {
				return err
			}
			explicitType = c
		}
		slots = append(slots, localSlot{nameTok: nameTok, explicitType: explicitType})

		sep := p.lex.Lookahead()
		if sep.Type == token.SEPARATOR && sep.Literal == "," {
			p.lex.NextToken()
			continue
		}
		break
	}

	var subs []*codegen.Program
	var results []exprparser.Result
	haveInit := false
	if eq := p.lex.Lookahead(); eq.Type == token.OPERATOR && eq.Literal == "=" {
		p.lex.NextToken()
		haveInit = true
		for {
			sub := codegen.NewProgram()
			ep := p.newExprParser(sub)
			res, err := ep.Parse()
			if err != nil {
				return err
			}
			subs = append(subs, sub)
			results = append(results, res)

			sep := p.lex.Lookahead()
			if sep.Type == token.SEPARATOR && sep.Literal == "," {
				p.lex.NextToken()
				continue
			}
			break
		}
	}

	n := len(slots)
	var valTypes []byte
	if haveInit {
		if len(results) == n {
			valTypes = make([]byte, n)
			for i, r := range results {
				r = exprparser.ClampExcess(codegen.On(subs[i]), r)
				valTypes[i] = r.Char()
			}
		} else if len(results) == 1 && results[0].OnlyCall && len(results[0].Type) == n {
			valTypes = []byte(results[0].Type)
		} else {
			return diagnostics.Newf(diagnostics.Assignment, slots[0].nameTok.Pos,
				"'local' declares %d variable(s) but the initializer does not supply exactly that many values", n)
		}
	} else if n > 1 {
		return diagnostics.Newf(diagnostics.Syntax, slots[0].nameTok.Pos,
			"a multi-variable 'local' declaration requires an initializer")
	}

	syms := make([]*symtab.Symbol, n)
	for i, slot := range slots {
		declType := slot.explicitType
		if declType == 0 {
			if !haveInit {
				return diagnostics.Newf(diagnostics.Definition, slot.nameTok.Pos,
					"local %q needs a type annotation or an initializer", slot.nameTok.Literal)
			}
			declType = valTypes[i]
		} else if haveInit {
			got := valTypes[i]
			if !(got == declType || (declType == 'n' && got == 'i')) {
				return diagnostics.Newf(diagnostics.Assignment, slot.nameTok.Pos,
					"cannot initialize %q with a value of a different type", slot.nameTok.Literal)
			}
		}

		unique := fmt.Sprintf("%s$%s$%d", p.declPrefix(), slot.nameTok.Literal, p.syms.NextDeclIndex())
		status := symtab.Declared
		if haveInit {
			status = symtab.Defined
		}
		syms[i] = &symtab.Symbol{
			Name: slot.nameTok.Literal, Kind: symtab.KindVar, Type: symtab.CharToType(declType),
			Status: status, UniqueName: unique,
		}
		codegen.On(out).DeclareVar(p.frame(), unique)
	}

	if haveInit {
		// A per-expression value is coerced at the top of its own
		// sub-program; the values of a single multi-return call are coerced
		// one by one at the stack top just before each is popped, as in a
		// plain assignment.
		if len(subs) == n {
			for i, sub := range subs {
				if valTypes[i] == 'i' && syms[i].Type == symtab.Num {
					codegen.On(sub).CoerceTopInt2Float()
				}
				out.AppendProgram(sub)
			}
		} else {
			for _, sub := range subs {
				out.AppendProgram(sub)
			}
		}

		w := codegen.On(out)
		for i := n - 1; i >= 0; i-- {
			if len(subs) != n && valTypes[i] == 'i' && syms[i].Type == symtab.Num {
				w.CoerceTopInt2Float()
			}
			w.PopToVar(p.frame(), syms[i].UniqueName)
		}
	}

	// Each new binding is inserted only now that every initializer
	// expression has been parsed, so a same-named outer binding (not this
	// one) is what those initializers saw — the delete-then-reinsert
	// trick's observable effect, reached here simply by ordering the
	// inserts last.
	for _, sym := range syms {
		p.syms.Local().Insert(sym)
	}
	return nil
}

// --- assignment & call statements -------------------------------------------------

func (p *Parser) parseIdentStatement(out *codegen.Program) *diagnostics.Error {
	nameTok := p.lex.NextToken()
	next := p.lex.Lookahead()

	if next.Type == token.SEPARATOR && next.Literal == "(" {
		ep := p.newExprParser(out)
		res, err := ep.ParseCallAsStatement(nameTok)
		if err != nil {
			return err
		}
		if len(res.Type) > 0 {
			codegen.On(out).Dump(len(res.Type))
		}
		return nil
	}

	if next.Type == token.SEPARATOR && next.Literal == "," || (next.Type == token.OPERATOR && next.Literal == "=") {
		return p.parseAssignment(out, nameTok)
	}

	return diagnostics.Newf(diagnostics.Syntax, next.Pos,
		"expected '(' or '=' after identifier %q", nameTok.Literal)
}

// targetSlot resolves an assignment target name, or nil for the "_"
// discard target.
func (p *Parser) targetSlot(tok token.Token) (*symtab.Symbol, *diagnostics.Error) {
	if tok.Literal == "_" {
		return nil, nil
	}
	sym, found := p.syms.LookupDeep(tok.Literal)
	if !found {
		return nil, diagnostics.Newf(diagnostics.Definition, tok.Pos, "undeclared identifier %q", tok.Literal)
	}
	if sym.Kind != symtab.KindVar {
		return nil, diagnostics.Newf(diagnostics.Assignment, tok.Pos, "%q is not a variable", tok.Literal)
	}
	return sym, nil
}

func (p *Parser) parseAssignment(out *codegen.Program, firstName token.Token) *diagnostics.Error {
	targets := []token.Token{firstName}
	for {
		sep := p.lex.Lookahead()
		if sep.Type == token.SEPARATOR && sep.Literal == "," {
			p.lex.NextToken()
			nt := p.lex.NextToken()
			if nt.Type != token.IDENT {
				return diagnostics.Newf(diagnostics.Syntax, nt.Pos, "expected identifier in assignment target list")
			}
			targets = append(targets, nt)
			continue
		}
		break
	}
	eq := p.lex.NextToken()
	if !(eq.Type == token.OPERATOR && eq.Literal == "=") {
		return diagnostics.Newf(diagnostics.Syntax, eq.Pos, "expected '=' in assignment")
	}

	var subs []*codegen.Program
	var results []exprparser.Result
	for {
		sub := codegen.NewProgram()
		ep := p.newExprParser(sub)
		res, err := ep.Parse()
		if err != nil {
			return err
		}
		subs = append(subs, sub)
		results = append(results, res)

		sep := p.lex.Lookahead()
		if sep.Type == token.SEPARATOR && sep.Literal == "," {
			p.lex.NextToken()
			continue
		}
		break
	}

	n := len(targets)
	var valTypes []byte

	// callInChain mirrors assignment_expr/assignment_rside's f_called/f_call
	// flag: when a function call appears among the right-hand-side
	// expressions, an arity or type mismatch is a parameter error (code 5)
	// rather than a plain assignment error (code 4).
	callInChain := false
	for _, r := range results {
		if r.OnlyCall {
			callInChain = true
			break
		}
	}
	mismatchCode := diagnostics.Assignment
	if callInChain {
		mismatchCode = diagnostics.ParamArg
	}

	if len(results) == n {
		valTypes = make([]byte, n)
		for i, r := range results {
			r = exprparser.ClampExcess(codegen.On(subs[i]), r)
			valTypes[i] = r.Char()
		}
	} else if len(results) == 1 && results[0].OnlyCall && len(results[0].Type) == n {
		valTypes = []byte(results[0].Type)
	} else {
		return diagnostics.Newf(mismatchCode, eq.Pos,
			"assignment has %d target(s) but the right-hand side does not supply exactly that many values", n)
	}

	slots := make([]*symtab.Symbol, n)
	for i, tgt := range targets {
		sym, err := p.targetSlot(tgt)
		if err != nil {
			return err
		}
		slots[i] = sym
		if sym == nil {
			continue
		}
		got := valTypes[i]
		if sym.Type == symtab.Undefined {
			sym.Type = symtab.CharToType(got)
		} else if !(got == sym.Type.TypeChar() || (sym.Type == symtab.Num && got == 'i')) {
			return diagnostics.Newf(mismatchCode, tgt.Pos,
				"cannot assign a value of a different type to %q", tgt.Literal)
		}
		sym.Status = symtab.Defined
	}

	for _, sub := range subs {
		out.AppendProgram(sub)
	}

	w := codegen.On(out)
	for i := n - 1; i >= 0; i-- {
		sym := slots[i]
		if sym == nil {
			w.Dump(1)
			continue
		}
		if valTypes[i] == 'i' && sym.Type == symtab.Num {
			w.CoerceTopInt2Float()
		}
		w.PopToVar(p.frame(), sym.UniqueName)
	}
	return nil
}

// --- return -----------------------------------------------------------------------

func (p *Parser) parseReturn(out *codegen.Program) *diagnostics.Error {
	retTok := p.lex.NextToken()

	want := 0
	if p.curFunc != nil {
		want = len(p.curRetTypes)
	}

	var subs []*codegen.Program
	var results []exprparser.Result
	if exprparser.CanStartExpression(p.lex.Lookahead()) {
		for {
			sub := codegen.NewProgram()
			ep := p.newExprParser(sub)
			res, err := ep.Parse()
			if err != nil {
				return err
			}
			subs = append(subs, sub)
			results = append(results, res)

			sep := p.lex.Lookahead()
			if sep.Type == token.SEPARATOR && sep.Literal == "," {
				p.lex.NextToken()
				continue
			}
			break
		}
	}

	isBareMultiCall := len(results) == 1 && results[0].OnlyCall && len(results[0].Type) > 1

	var valTypes []byte
	padded := 0
	switch {
	case len(results) == want && want > 0 && !isBareMultiCall:
		valTypes = make([]byte, want)
		for i, r := range results {
			r = exprparser.ClampExcess(codegen.On(subs[i]), r)
			got := r.Char()
			wantChar := p.curRetTypes[i]
			if !(got == wantChar || (wantChar == 'n' && got == 'i')) {
				return diagnostics.Newf(diagnostics.ParamArg, retTok.Pos,
					"return value %d has the wrong type for this function's declared return type", i+1)
			}
			valTypes[i] = got
		}
	case len(results) == 1 && results[0].OnlyCall && len(results[0].Type) == want:
		if results[0].Type != p.curRetTypes {
			return diagnostics.Newf(diagnostics.ParamArg, retTok.Pos,
				"returned call's return types do not exactly match this function's declared return types")
		}
		valTypes = []byte(results[0].Type)
	case len(results) == 0 && want == 0:
		valTypes = nil
	case isBareMultiCall:
		// A single multi-return call supplying more or fewer values than
		// declared is always an arity error: its values land on the stack
		// atomically, so there is no per-slot position to pad with nil.
		return diagnostics.Newf(diagnostics.ParamArg, retTok.Pos,
			"function returns %d value(s) but 'return' supplies a different number", want)
	case len(results) < want:
		// Fewer expressions than declared return slots: the missing
		// trailing slots are padded with nil and a warning, per spec §4.3
		// ("Missing values are padded with implicit nil and a warning") and
		// the original's generate_additional_returns.
		valTypes = make([]byte, want)
		for i, r := range results {
			r = exprparser.ClampExcess(codegen.On(subs[i]), r)
			got := r.Char()
			wantChar := p.curRetTypes[i]
			if !(got == wantChar || (wantChar == 'n' && got == 'i')) {
				return diagnostics.Newf(diagnostics.ParamArg, retTok.Pos,
					"return value %d has the wrong type for this function's declared return type", i+1)
			}
			valTypes[i] = got
		}
		for i := len(results); i < want; i++ {
			valTypes[i] = 'z'
		}
		padded = want - len(results)
		p.diag.Warn(retTok.Pos,
			"function %q return is missing %d value(s); padded with nil", p.curFunc.Name, padded)
	default:
		return diagnostics.Newf(diagnostics.ParamArg, retTok.Pos,
			"function returns %d value(s) but 'return' supplies a different number", want)
	}

	// Per-expression coercion only makes sense when each sub holds exactly
	// one returned value at its own top (the one-expression-per-target
	// case); a single passthrough multi-return call instead leaves all of
	// its values stacked atomically, so coercing "position i" there would
	// touch the wrong stack depth. That passthrough path requires its
	// callee's return types to already match this function's declared
	// return types exactly — a deliberate restriction, noted in DESIGN.md.
	if len(subs)+padded == len(valTypes) {
		for i, sub := range subs {
			if valTypes[i] == 'i' && i < len(p.curRetTypes) && p.curRetTypes[i] == 'n' {
				codegen.On(sub).CoerceTopInt2Float()
			}
			out.AppendProgram(sub)
		}
		for i := 0; i < padded; i++ {
			codegen.On(out).PushNil()
		}
	} else {
		for _, sub := range subs {
			out.AppendProgram(sub)
		}
	}

	p.foundReturn = true

	if p.curFunc != nil {
		codegen.On(out).Return()
	} else {
		codegen.On(out).Jump("!program_end")
	}
	return nil
}

// --- if / while ---------------------------------------------------------------------

// parseCondition parses an `if`/`while` condition. It does not require the
// condition's static type to be boolean: parse_if (parser_topdown.c:1628)
// type-checks nothing on the condition either, leaving any type mismatch to
// the target VM's JUMPIFEQS at run time, and this front end matches that.
func (p *Parser) parseCondition(out *codegen.Program) *diagnostics.Error {
	sub := codegen.NewProgram()
	ep := p.newExprParser(sub)
	if _, err := ep.ParseSingleValue(); err != nil {
		return err
	}
	out.AppendProgram(sub)
	return nil
}

// parseIf parses `if <expr> then <statement-list> [else <statement-list>]
// end`. The `else` branch is optional (spec §4.3's grammar brackets it as
// such, and the original parser's parse_if accepts a bare
// `if ... then ... end` by generating the else-end label directly when
// the token after the then-branch is `end` rather than `else`). When no
// `else` branch is present, foundReturn cannot be AND-ed across both
// branches (there is no second branch), so it is left false.
func (p *Parser) parseIf(out *codegen.Program) *diagnostics.Error {
	ifTok := p.lex.NextToken()
	if err := p.parseCondition(out); err != nil {
		return err
	}
	if err := p.expectKeyword("then"); err != nil {
		return err
	}

	label := p.emitter.NextCondLabel()
	w := codegen.On(out)
	w.JumpIfFalse(label + "$else")

	p.syms.EnterScope()
	thenProg := codegen.NewProgram()
	err := p.parseStatements(thenProg, false)
	p.syms.LeaveScope()
	if err != nil {
		return err
	}
	out.AppendProgram(thenProg)
	thenReturn := p.foundReturn
	p.foundReturn = false

	closing := p.lex.NextToken()
	switch {
	case closing.Is(token.KEYWORD, "end"):
		codegen.On(out).Label(label + "$else")
		return nil

	case closing.Is(token.KEYWORD, "else"):
		w = codegen.On(out)
		w.Jump(label + "$end")
		w.Label(label + "$else")

		p.syms.EnterScope()
		elseProg := codegen.NewProgram()
		err = p.parseStatements(elseProg, false)
		p.syms.LeaveScope()
		if err != nil {
			return err
		}
		out.AppendProgram(elseProg)
		elseReturn := p.foundReturn
		p.foundReturn = thenReturn && elseReturn
		codegen.On(out).Label(label + "$end")

		return p.expectKeyword("end")

	default:
		return diagnostics.Newf(diagnostics.Syntax, closing.Pos,
			"expected 'else' or 'end' to close 'if' block starting at %s", ifTok.Pos)
	}
}

func (p *Parser) parseWhile(out *codegen.Program) *diagnostics.Error {
	p.lex.NextToken() // 'while'
	label := p.emitter.NextLoopLabel()

	w := codegen.On(out)
	w.Label(label + "$start")
	if err := p.parseCondition(out); err != nil {
		return err
	}
	w = codegen.On(out)
	w.JumpIfFalse(label + "$end")

	if err := p.expectKeyword("do"); err != nil {
		return err
	}

	p.syms.EnterScope()
	bodyProg := codegen.NewProgram()
	err := p.parseStatements(bodyProg, false)
	p.syms.LeaveScope()
	if err != nil {
		return err
	}
	out.AppendProgram(bodyProg)

	w = codegen.On(out)
	w.Jump(label + "$start")
	w.Label(label + "$end")

	return p.expectKeyword("end")
}

// Package parser implements the top-down recursive-descent parser with
// integrated semantic analysis from spec §4.3: the prolog check, global
// function declaration/definition consistency, local variable scoping
// with the delete-then-reinsert shadowing trick, multi-assignment and
// multi-return with right-to-left emission reordering, and the
// control-flow constructs (`if`/`while`) with their label bookkeeping.
//
// Grounded on the teacher compiler's recursive-descent statement parser
// (one method per grammar production, each consuming its own leading
// keyword and delegating to the next production), generalized from its
// Pascal-like statement grammar to IFJ21's smaller Lua-like one, and
// wired to this front end's own symtab/codegen/exprparser packages in
// place of the teacher's AST-building equivalents (this front end has no
// AST: each construct emits IFJ-code directly as it is recognized, per
// spec §3's single-pass design).
package parser

import (
	"fmt"

	"github.com/ifj21/ifjc/internal/codegen"
	"github.com/ifj21/ifjc/internal/diagnostics"
	"github.com/ifj21/ifjc/internal/exprparser"
	"github.com/ifj21/ifjc/internal/lexer"
	"github.com/ifj21/ifjc/internal/symtab"
	"github.com/ifj21/ifjc/internal/token"
)

// Parser drives the whole front end: lexing, symbol-table maintenance,
// expression parsing, and code emission, for one compilation unit.
type Parser struct {
	lex     *lexer.Lexer
	syms    *symtab.Stack
	emitter *codegen.Emitter
	diag    *diagnostics.Collector

	funcPrograms []*codegen.Program // function bodies, in definition order
	curFunc      *symtab.Symbol     // function currently being defined, nil at top level
	curRetTypes  string
	foundReturn  bool // whether every control path seen so far in curFunc ends in return
}

// New creates a Parser reading from lex, sharing diag for diagnostics.
func New(lex *lexer.Lexer, diag *diagnostics.Collector) *Parser {
	syms := symtab.New()
	symtab.LoadBuiltins(syms.Global)
	return &Parser{
		lex:     lex,
		syms:    syms,
		emitter: codegen.NewEmitter(),
		diag:    diag,
	}
}

// Run parses the whole compilation unit and returns the assembled
// IFJ-code text. On a fatal error it returns an empty string along with
// the error; the caller reports diag's Code either way (spec §4.3/§6).
func (p *Parser) Run() (string, *diagnostics.Error) {
	if err := p.parseProlog(); err != nil {
		return "", err
	}

	main := codegen.NewProgram()
	if err := p.parseStatements(main, true); err != nil {
		return "", err
	}

	if unresolved, called := p.firstPendingDeclaration(); unresolved != "" {
		if called {
			return "", diagnostics.Newf(diagnostics.Definition, token.Position{Row: 1, Col: 1},
				"function %q was declared, called but not defined", unresolved)
		}
		for name := range p.syms.Pending {
			p.diag.Warn(token.Position{Row: 1, Col: 1},
				"function %q was declared, but is not used nor defined", name)
		}
	}

	// Main falls through here unconditionally; an explicit top-level
	// `return` also jumps straight to !program_end. Every LABEL block that
	// follows (user function bodies, the builtin trailer) therefore only
	// ever runs when reached by CALL, never by fallthrough from main.
	p.emitter.Prog.AppendProgram(main)
	p.emitter.Jump("!program_end")
	for _, fp := range p.funcPrograms {
		p.emitter.Prog.AppendProgram(fp)
	}
	p.emitter.EmitBuiltinTrailer(p.syms.Global)
	p.emitter.Label("!program_end")

	return p.emitter.Prog.String(), nil
}

// firstPendingDeclaration reports a function left in Pending (still only
// forward-declared, never given a body) along with whether it was ever
// called; a called one is reported in preference to any uncalled one, so
// called is false only when no pending function was called. Grounded on the
// original's check_if_defined end-of-program pass: a
// declared-and-called-but-undefined function is a definition error, while
// a declared-but-never-called-or-defined function only warns.
func (p *Parser) firstPendingDeclaration() (name string, called bool) {
	for n := range p.syms.Pending {
		sym, _ := p.syms.Global.Lookup(n)
		if sym != nil && sym.WasUsed {
			return n, true
		}
		name = n
	}
	return name, false
}

// parseProlog consumes the mandatory `require "ifj21"` header (spec
// §4.3's prolog check).
func (p *Parser) parseProlog() *diagnostics.Error {
	tok := p.lex.NextToken()
	if !tok.Is(token.KEYWORD, "require") {
		return diagnostics.Newf(diagnostics.Syntax, tok.Pos, "expected 'require \"ifj21\"' prolog, found %s", tok)
	}
	lit := p.lex.NextToken()
	if lit.Type != token.STRING || lit.Literal != `"ifj21"` {
		return diagnostics.Newf(diagnostics.OtherSemantic, lit.Pos, "expected \"ifj21\" after 'require'")
	}
	return nil
}

// parseStatements parses a sequence of statements until it sees a
// terminator keyword (`end`, `else`) or, at top level, EOF. topLevel
// additionally permits `global` declarations and `function` definitions.
func (p *Parser) parseStatements(out *codegen.Program, topLevel bool) *diagnostics.Error {
	for {
		tok := p.lex.Lookahead()
		if tok.Type == token.ILLEGAL {
			return diagnostics.Newf(diagnostics.Lexical, tok.Pos, "invalid token %q", tok.Literal)
		}
		if tok.Type == token.EOF {
			if topLevel {
				return nil
			}
			return diagnostics.Newf(diagnostics.Syntax, tok.Pos, "unexpected end of input, expected 'end'")
		}
		if tok.Type == token.KEYWORD && (tok.Literal == "end" || tok.Literal == "else") {
			return nil
		}

		if topLevel && tok.Type == token.KEYWORD && tok.Literal == "global" {
			if err := p.parseGlobalDecl(); err != nil {
				return err
			}
			continue
		}
		if topLevel && tok.Type == token.KEYWORD && tok.Literal == "function" {
			if err := p.parseFunctionDef(); err != nil {
				return err
			}
			continue
		}

		if err := p.parseStatement(out); err != nil {
			return err
		}
	}
}

// --- global declarations & function definitions -----------------------------------

// parseGlobalDecl parses `global NAME : function ( types ) : ( types )`, a
// forward declaration (spec §4.3's declaration-pending mechanism).
func (p *Parser) parseGlobalDecl() *diagnostics.Error {
	p.lex.NextToken() // 'global'
	nameTok := p.lex.NextToken()
	if nameTok.Type != token.IDENT {
		return diagnostics.Newf(diagnostics.Syntax, nameTok.Pos, "expected function name after 'global'")
	}
	if _, exists := p.syms.Global.Lookup(nameTok.Literal); exists {
		return diagnostics.Newf(diagnostics.Definition, nameTok.Pos, "function %q already declared", nameTok.Literal)
	}
	if err := p.expectSeparator(":"); err != nil {
		return err
	}
	if err := p.expectKeyword("function"); err != nil {
		return err
	}
	params, err := p.parseTypeList()
	if err != nil {
		return err
	}
	if err := p.expectSeparator(":"); err != nil {
		return err
	}
	rets, err := p.parseTypeList()
	if err != nil {
		return err
	}

	p.syms.Global.Insert(&symtab.Symbol{
		Name: nameTok.Literal, Kind: symtab.KindFunc, Status: symtab.Declared,
		ParamTypes: params, RetTypes: rets, UniqueName: nameTok.Literal,
	})
	p.syms.Pending[nameTok.Literal] = true
	return nil
}

// parseTypeList parses a parenthesized comma-separated list of bare type
// keywords (no parameter names), as used by a `global` declaration's
// signature.
func (p *Parser) parseTypeList() (string, *diagnostics.Error) {
	if err := p.expectSeparator("("); err != nil {
		return "", err
	}
	var out []byte
	for {
		tok := p.lex.Lookahead()
		if tok.Type == token.SEPARATOR && tok.Literal == ")" {
			break
		}
		c, err := p.parseTypeKeyword()
		if err != nil {
			return "", err
		}
		out = append(out, c)
		sep := p.lex.Lookahead()
		if sep.Type == token.SEPARATOR && sep.Literal == "," {
			p.lex.NextToken()
			continue
		}
		break
	}
	if err := p.expectSeparator(")"); err != nil {
		return "", err
	}
	return string(out), nil
}

func (p *Parser) parseTypeKeyword() (byte, *diagnostics.Error) {
	tok := p.lex.NextToken()
	if tok.Type != token.KEYWORD {
		return 0, diagnostics.Newf(diagnostics.Syntax, tok.Pos, "expected a type name, found %s", tok)
	}
	switch tok.Literal {
	case "integer":
		return 'i', nil
	case "number":
		return 'n', nil
	case "string":
		return 's', nil
	case "boolean":
		return 'b', nil
	default:
		return 0, diagnostics.Newf(diagnostics.Syntax, tok.Pos, "unknown type %q", tok.Literal)
	}
}

// parseFunctionDef parses `function NAME ( params ) : ( rets ) body end`.
// If NAME was previously `global`-declared, its signature must match
// exactly (spec §4.3's declaration/definition consistency rule).
func (p *Parser) parseFunctionDef() *diagnostics.Error {
	p.lex.NextToken() // 'function'
	nameTok := p.lex.NextToken()
	if nameTok.Type != token.IDENT {
		return diagnostics.Newf(diagnostics.Syntax, nameTok.Pos, "expected function name")
	}

	existing, hadDecl := p.syms.Global.Lookup(nameTok.Literal)
	if hadDecl && existing.Status != symtab.Declared {
		return diagnostics.Newf(diagnostics.Definition, nameTok.Pos, "function %q already defined", nameTok.Literal)
	}

	if err := p.expectSeparator("("); err != nil {
		return err
	}
	var paramNames []string
	var paramTypes []byte
	for {
		tok := p.lex.Lookahead()
		if tok.Type == token.SEPARATOR && tok.Literal == ")" {
			break
		}
		pnTok := p.lex.NextToken()
		if pnTok.Type != token.IDENT {
			return diagnostics.Newf(diagnostics.Syntax, pnTok.Pos, "expected parameter name")
		}
		if err := p.expectSeparator(":"); err != nil {
			return err
		}
		c, err := p.parseTypeKeyword()
		if err != nil {
			return err
		}
		paramNames = append(paramNames, pnTok.Literal)
		paramTypes = append(paramTypes, c)

		sep := p.lex.Lookahead()
		if sep.Type == token.SEPARATOR && sep.Literal == "," {
			p.lex.NextToken()
			continue
		}
		break
	}
	if err := p.expectSeparator(")"); err != nil {
		return err
	}
	// Optional `: type, type, ...` return list: ':' before the first type,
	// ',' before each further one.
	rets := ""
	for sep := ":"; p.lex.Lookahead().Is(token.SEPARATOR, sep); sep = "," {
		p.lex.NextToken()
		c, err := p.parseTypeKeyword()
		if err != nil {
			return err
		}
		rets += string(c)
	}
	params := string(paramTypes)

	if hadDecl {
		if existing.ParamTypes != params || existing.RetTypes != rets {
			return diagnostics.Newf(diagnostics.Definition, nameTok.Pos,
				"function %q's definition does not match its declaration", nameTok.Literal)
		}
		existing.Status = symtab.Defined
		delete(p.syms.Pending, nameTok.Literal)
	} else {
		existing = &symtab.Symbol{
			Name: nameTok.Literal, Kind: symtab.KindFunc, Status: symtab.Defined,
			ParamTypes: params, RetTypes: rets, UniqueName: nameTok.Literal,
		}
		p.syms.Global.Insert(existing)
	}

	p.syms.EnterScope()
	for i, pn := range paramNames {
		unique := fmt.Sprintf("%s$%s$%d", nameTok.Literal, pn, p.syms.NextDeclIndex())
		p.syms.Local().Insert(&symtab.Symbol{
			Name: pn, Kind: symtab.KindVar, Type: symtab.CharToType(paramTypes[i]),
			Status: symtab.Defined, UniqueName: unique,
		})
	}

	body := codegen.NewProgram()
	w := codegen.On(body)
	w.FuncStart(nameTok.Literal)
	for i, pn := range paramNames {
		sym, _ := p.syms.LookupLocal(pn)
		w.DeclareVar("LF", sym.UniqueName)
		w.P.Appendf("MOVE LF@%s LF@%%%d", sym.UniqueName, i)
	}

	prevFunc, prevRet, prevFound := p.curFunc, p.curRetTypes, p.foundReturn
	p.curFunc, p.curRetTypes, p.foundReturn = existing, rets, false

	if err := p.parseStatements(body, false); err != nil {
		p.syms.LeaveScope()
		return err
	}
	if !p.foundReturn && rets != "" {
		p.diag.Warn(nameTok.Pos, "function %q may fall through without a return", nameTok.Literal)
	}
	w.FuncEnd()

	p.curFunc, p.curRetTypes, p.foundReturn = prevFunc, prevRet, prevFound
	p.syms.LeaveScope()

	endTok := p.lex.NextToken()
	if !endTok.Is(token.KEYWORD, "end") {
		return diagnostics.Newf(diagnostics.Syntax, endTok.Pos, "expected 'end' to close function %q", nameTok.Literal)
	}

	p.funcPrograms = append(p.funcPrograms, body)
	return nil
}

func (p *Parser) expectSeparator(lit string) *diagnostics.Error {
	tok := p.lex.NextToken()
	if !(tok.Type == token.SEPARATOR && tok.Literal == lit) {
		return diagnostics.Newf(diagnostics.Syntax, tok.Pos, "expected %q, found %s", lit, tok)
	}
	return nil
}

func (p *Parser) expectKeyword(lit string) *diagnostics.Error {
	tok := p.lex.NextToken()
	if !(tok.Type == token.KEYWORD && tok.Literal == lit) {
		return diagnostics.Newf(diagnostics.Syntax, tok.Pos, "expected %q, found %s", lit, tok)
	}
	return nil
}

// newExprParser opens an expression parser writing into out, sharing this
// Parser's lexer, symbol stack, and diagnostics collector.
func (p *Parser) newExprParser(out *codegen.Program) *exprparser.Parser {
	return exprparser.New(p.lex, p.syms, out, p.diag)
}

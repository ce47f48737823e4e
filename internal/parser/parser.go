// Package parser implements the Sable recursive-descent parser. It
// consumes the full token stream and produces an AST, recovering at
// statement boundaries so a single run reports several grammar errors.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/sable-lang/sable/internal/ast"
	"github.com/sable-lang/sable/internal/diag"
	"github.com/sable-lang/sable/internal/lexer"
	"github.com/sable-lang/sable/internal/types"
)

// Parser holds the token cursor and the accumulated parse errors. One
// instance parses one token stream.
type Parser struct {
	tokens []lexer.Token
	pos    int
	errs   *multierror.Error

	// noStructLit suppresses struct-literal parsing while scanning a
	// control-flow header, where `ident {` opens the body instead.
	noStructLit bool
}

// New creates a parser over a token stream. The stream must be
// EOF-terminated, as produced by the lexer.
func New(tokens []lexer.Token) *Parser {
	if len(tokens) == 0 {
		tokens = []lexer.Token{{Type: lexer.TokenEOF}}
	}
	return &Parser{tokens: tokens}
}

// Parse runs the parser over tokens and returns the program together
// with every grammar error found.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	return New(tokens).ParseProgram()
}

// ParseProgram parses the whole stream. The returned program contains
// every declaration that parsed cleanly even when err is non-nil.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(lexer.TokenEOF) {
		if p.accept(lexer.TokenSemicolon) {
			continue
		}
		var s ast.Statement
		switch p.cur().Type {
		case lexer.TokenFn:
			s = p.parseFuncDecl()
		case lexer.TokenStruct:
			s = p.parseStructDecl()
		default:
			p.errorExpected("declaration")
			p.sync()
		}
		if s != nil {
			prog.Stmts = append(prog.Stmts, s)
		}
	}
	return prog, p.errs.ErrorOrNil()
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(tt lexer.TokenType) bool { return p.cur().Type == tt }

// accept consumes the current token when it matches.
func (p *Parser) accept(tt lexer.TokenType) bool {
	if p.at(tt) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of the given type or records a parse error.
func (p *Parser) expect(tt lexer.TokenType, what string) (lexer.Token, bool) {
	if p.at(tt) {
		return p.advance(), true
	}
	p.errorExpected(what)
	return p.cur(), false
}

func (p *Parser) errorExpected(what string) {
	p.errs = multierror.Append(p.errs, &diag.ParseError{
		Expected: what,
		Found:    describe(p.cur()),
		Pos:      p.cur().Pos,
	})
}

func describe(t lexer.Token) string {
	switch t.Type {
	case lexer.TokenEOF:
		return "end of input"
	case lexer.TokenString:
		return fmt.Sprintf("string literal %q", t.Literal)
	}
	if t.Literal != "" {
		return fmt.Sprintf("%q", t.Literal)
	}
	return t.Type.String()
}

// sync discards tokens until a statement boundary so parsing can resume
// after an error. It always makes progress.
func (p *Parser) sync() {
	p.advance()
	for {
		switch p.cur().Type {
		case lexer.TokenEOF, lexer.TokenRBrace,
			lexer.TokenLet, lexer.TokenReturn, lexer.TokenIf,
			lexer.TokenWhile, lexer.TokenFor, lexer.TokenMatch,
			lexer.TokenFn, lexer.TokenStruct:
			return
		case lexer.TokenSemicolon:
			p.advance()
			return
		}
		p.advance()
	}
}

// parseType parses a type annotation: a built-in type keyword, a struct
// name, or a fixed-size array type.
func (p *Parser) parseType() (types.Type, bool) {
	tok := p.cur()
	switch {
	case tok.Type.IsTypeKeyword():
		p.advance()
		t, ok := types.Builtin(tok.Literal)
		if !ok {
			p.errorExpected("type")
			return nil, false
		}
		return t, true
	case tok.Type == lexer.TokenIdentifier:
		p.advance()
		return &types.Struct{Name: tok.Literal}, true
	case tok.Type == lexer.TokenLBracket:
		p.advance()
		elem, ok := p.parseType()
		if !ok {
			return nil, false
		}
		if _, ok := p.expect(lexer.TokenSemicolon, "';' in array type"); !ok {
			return nil, false
		}
		sizeTok, ok := p.expect(lexer.TokenInteger, "array size")
		if !ok {
			return nil, false
		}
		size, err := strconv.Atoi(sizeTok.Literal)
		if err != nil || size <= 0 {
			p.errs = multierror.Append(p.errs, &diag.ParseError{
				Expected: "positive array size",
				Found:    fmt.Sprintf("%q", sizeTok.Literal),
				Pos:      sizeTok.Pos,
			})
			return nil, false
		}
		if _, ok := p.expect(lexer.TokenRBracket, "']' in array type"); !ok {
			return nil, false
		}
		return &types.Array{Elem: elem, Size: size}, true
	}
	p.errorExpected("type")
	return nil, false
}

func (p *Parser) parseFuncDecl() ast.Statement {
	p.advance() // fn
	name, ok := p.expect(lexer.TokenIdentifier, "function name")
	if !ok {
		p.sync()
		return nil
	}
	if _, ok := p.expect(lexer.TokenLParen, "'('"); !ok {
		p.sync()
		return nil
	}

	var params []ast.Param
	for !p.at(lexer.TokenRParen) && !p.at(lexer.TokenEOF) {
		pname, ok := p.expect(lexer.TokenIdentifier, "parameter name")
		if !ok {
			p.sync()
			return nil
		}
		if _, ok := p.expect(lexer.TokenColon, "':' after parameter name"); !ok {
			p.sync()
			return nil
		}
		ptype, ok := p.parseType()
		if !ok {
			p.sync()
			return nil
		}
		params = append(params, ast.Param{Name: pname.Literal, DeclType: ptype, NamePos: pname.Pos})
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	if _, ok := p.expect(lexer.TokenRParen, "')' after parameters"); !ok {
		p.sync()
		return nil
	}

	ret := types.Type(types.VoidType)
	if p.accept(lexer.TokenArrow) {
		rt, ok := p.parseType()
		if !ok {
			p.sync()
			return nil
		}
		ret = rt
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.FuncDecl{Name: name.Literal, Params: params, Ret: ret, Body: body, NamePos: name.Pos}
}

func (p *Parser) parseStructDecl() ast.Statement {
	p.advance() // struct
	name, ok := p.expect(lexer.TokenIdentifier, "struct name")
	if !ok {
		p.sync()
		return nil
	}
	if _, ok := p.expect(lexer.TokenLBrace, "'{'"); !ok {
		p.sync()
		return nil
	}

	var fields []ast.StructField
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		fname, ok := p.expect(lexer.TokenIdentifier, "field name")
		if !ok {
			p.sync()
			return nil
		}
		if _, ok := p.expect(lexer.TokenColon, "':' after field name"); !ok {
			p.sync()
			return nil
		}
		ftype, ok := p.parseType()
		if !ok {
			p.sync()
			return nil
		}
		fields = append(fields, ast.StructField{Name: fname.Literal, DeclType: ftype, NamePos: fname.Pos})
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	if _, ok := p.expect(lexer.TokenRBrace, "'}' after struct fields"); !ok {
		p.sync()
		return nil
	}
	return &ast.StructDecl{Name: name.Literal, Fields: fields, NamePos: name.Pos}
}

// parseBlock parses a brace-delimited statement sequence. Statements are
// newline-separated; semicolons are accepted and discarded.
func (p *Parser) parseBlock() *ast.BlockStmt {
	brace, ok := p.expect(lexer.TokenLBrace, "'{'")
	if !ok {
		p.sync()
		return nil
	}
	block := &ast.BlockStmt{BracePos: brace.Pos}
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		if p.accept(lexer.TokenSemicolon) {
			continue
		}
		s := p.parseStatement()
		if s == nil {
			p.sync()
			continue
		}
		block.Stmts = append(block.Stmts, s)
	}
	p.expect(lexer.TokenRBrace, "'}'")
	return block
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur().Type {
	case lexer.TokenLet:
		return p.parseLet()
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenMatch:
		return p.parseMatch()
	case lexer.TokenLBrace:
		if b := p.parseBlock(); b != nil {
			return b
		}
		return nil
	default:
		return p.parseSimpleStmt()
	}
}

// parseSimpleStmt parses an assignment or a bare expression statement.
// A top-level assignment expression becomes an AssignStmt; any nested
// assignments stay expressions in its Value.
func (p *Parser) parseSimpleStmt() ast.Statement {
	e := p.parseExpr()
	if e == nil {
		return nil
	}
	if a, ok := e.(*ast.AssignExpr); ok {
		return &ast.AssignStmt{Target: a.Target, Value: a.Value, OpPos: a.OpPos}
	}
	return &ast.ExprStmt{X: e}
}

func (p *Parser) parseLet() ast.Statement {
	p.advance() // let
	mutable := p.accept(lexer.TokenMut)
	name, ok := p.expect(lexer.TokenIdentifier, "binding name")
	if !ok {
		return nil
	}
	var declType types.Type
	if p.accept(lexer.TokenColon) {
		t, ok := p.parseType()
		if !ok {
			return nil
		}
		declType = t
	}
	if _, ok := p.expect(lexer.TokenAssign, "'=' with initializer"); !ok {
		return nil
	}
	init := p.parseExpr()
	if init == nil {
		return nil
	}
	return &ast.VarDecl{
		Name:     name.Literal,
		Mutable:  mutable,
		DeclType: declType,
		Init:     init,
		NamePos:  name.Pos,
	}
}

func (p *Parser) parseReturn() ast.Statement {
	tok := p.advance() // return
	if !p.startsExpr() {
		return &ast.ReturnStmt{ReturnPos: tok.Pos}
	}
	v := p.parseExpr()
	if v == nil {
		return nil
	}
	return &ast.ReturnStmt{Value: v, ReturnPos: tok.Pos}
}

// startsExpr reports whether the current token can begin an expression,
// used to distinguish `return` from `return expr`.
func (p *Parser) startsExpr() bool {
	switch p.cur().Type {
	case lexer.TokenIdentifier, lexer.TokenInteger, lexer.TokenFloat,
		lexer.TokenString, lexer.TokenChar, lexer.TokenTrue, lexer.TokenFalse,
		lexer.TokenLParen, lexer.TokenMinus, lexer.TokenNot,
		lexer.TokenAmpersand, lexer.TokenMoveArrow:
		return true
	}
	return false
}

func (p *Parser) parseIf() ast.Statement {
	tok := p.advance() // if
	cond := p.parseHeaderExpr()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then, IfPos: tok.Pos}
	if p.accept(lexer.TokenElse) {
		if p.at(lexer.TokenIf) {
			alt := p.parseIf()
			if alt == nil {
				return nil
			}
			stmt.Else = alt
		} else {
			alt := p.parseBlock()
			if alt == nil {
				return nil
			}
			stmt.Else = alt
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Statement {
	tok := p.advance() // while
	cond := p.parseHeaderExpr()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{Cond: cond, Body: body, WhilePos: tok.Pos}
}

// parseFor parses the C-style loop: `for init; cond; step { body }`.
// Each header slot may be empty.
func (p *Parser) parseFor() ast.Statement {
	tok := p.advance() // for
	prev := p.noStructLit
	p.noStructLit = true

	var init ast.Statement
	if !p.at(lexer.TokenSemicolon) {
		if p.at(lexer.TokenLet) {
			init = p.parseLet()
		} else {
			init = p.parseSimpleStmt()
		}
		if init == nil {
			p.noStructLit = prev
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokenSemicolon, "';' after loop initializer"); !ok {
		p.noStructLit = prev
		return nil
	}

	var cond ast.Expression
	if !p.at(lexer.TokenSemicolon) {
		cond = p.parseExpr()
		if cond == nil {
			p.noStructLit = prev
			return nil
		}
	}
	if _, ok := p.expect(lexer.TokenSemicolon, "';' after loop condition"); !ok {
		p.noStructLit = prev
		return nil
	}

	var step ast.Statement
	if !p.at(lexer.TokenLBrace) {
		step = p.parseSimpleStmt()
		if step == nil {
			p.noStructLit = prev
			return nil
		}
	}
	p.noStructLit = prev

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.ForStmt{Init: init, Cond: cond, Step: step, Body: body, ForPos: tok.Pos}
}

func (p *Parser) parseMatch() ast.Statement {
	tok := p.advance() // match
	scrutinee := p.parseHeaderExpr()
	if scrutinee == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokenLBrace, "'{' after match scrutinee"); !ok {
		return nil
	}

	stmt := &ast.MatchStmt{Scrutinee: scrutinee, MatchPos: tok.Pos}
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		arm, ok := p.parseMatchArm()
		if !ok {
			p.sync()
			continue
		}
		stmt.Arms = append(stmt.Arms, arm)
		p.accept(lexer.TokenComma)
	}
	p.expect(lexer.TokenRBrace, "'}' after match arms")
	return stmt
}

// parseMatchArm parses `pattern => body`. The `_` pattern is recorded as
// a nil pattern; an expression body is wrapped in a single-statement
// block so later stages see one shape.
func (p *Parser) parseMatchArm() (ast.MatchArm, bool) {
	arm := ast.MatchArm{ArmPos: p.cur().Pos}
	if p.at(lexer.TokenIdentifier) && p.cur().Literal == "_" {
		p.advance()
	} else {
		pat := p.parseExpr()
		if pat == nil {
			return arm, false
		}
		arm.Pattern = pat
	}
	if _, ok := p.expect(lexer.TokenFatArrow, "'=>' after match pattern"); !ok {
		return arm, false
	}
	if p.at(lexer.TokenLBrace) {
		body := p.parseBlock()
		if body == nil {
			return arm, false
		}
		arm.Body = body
		return arm, true
	}
	e := p.parseExpr()
	if e == nil {
		return arm, false
	}
	arm.Body = &ast.BlockStmt{Stmts: []ast.Statement{&ast.ExprStmt{X: e}}, BracePos: e.Pos()}
	return arm, true
}

// parseHeaderExpr parses a control-flow header expression with
// struct-literal parsing suppressed.
func (p *Parser) parseHeaderExpr() ast.Expression {
	prev := p.noStructLit
	p.noStructLit = true
	e := p.parseExpr()
	p.noStructLit = prev
	return e
}

// Expression parsing: one method per precedence level, loosest first.

func (p *Parser) parseExpr() ast.Expression { return p.parseAssign() }

// parseAssign parses the loosest level: right-associative assignment to
// an identifier or field-access target.
func (p *Parser) parseAssign() ast.Expression {
	left := p.parseOr()
	if left == nil || !p.at(lexer.TokenAssign) {
		return left
	}
	op := p.advance()
	switch left.(type) {
	case *ast.Ident, *ast.FieldExpr:
	default:
		p.errs = multierror.Append(p.errs, &diag.ParseError{
			Expected: "assignable target",
			Found:    "expression",
			Pos:      left.Pos(),
		})
		return nil
	}
	v := p.parseAssign()
	if v == nil {
		return nil
	}
	return &ast.AssignExpr{Target: left, Value: v, OpPos: op.Pos}
}

func (p *Parser) parseOr() ast.Expression {
	return p.parseBinary(p.parseAnd, lexer.TokenOr)
}

func (p *Parser) parseAnd() ast.Expression {
	return p.parseBinary(p.parseEquality, lexer.TokenAnd)
}

func (p *Parser) parseEquality() ast.Expression {
	return p.parseBinary(p.parseRelational, lexer.TokenEq, lexer.TokenNe)
}

func (p *Parser) parseRelational() ast.Expression {
	return p.parseBinary(p.parseAdditive, lexer.TokenLt, lexer.TokenLe, lexer.TokenGt, lexer.TokenGe)
}

func (p *Parser) parseAdditive() ast.Expression {
	return p.parseBinary(p.parseMultiplicative, lexer.TokenPlus, lexer.TokenMinus)
}

func (p *Parser) parseMultiplicative() ast.Expression {
	return p.parseBinary(p.parseUnary, lexer.TokenMul, lexer.TokenDiv, lexer.TokenMod)
}

// parseBinary parses a left-associative run of the given operators over
// the next-tighter level.
func (p *Parser) parseBinary(next func() ast.Expression, ops ...lexer.TokenType) ast.Expression {
	left := next()
	if left == nil {
		return nil
	}
	for {
		matched := false
		for _, op := range ops {
			if p.at(op) {
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
		tok := p.advance()
		right := next()
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{Op: tok.Type, L: left, R: right, OpPos: tok.Pos}
	}
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur().Type {
	case lexer.TokenMinus, lexer.TokenNot:
		tok := p.advance()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		return &ast.UnaryExpr{Op: tok.Type, X: x, OpPos: tok.Pos}
	case lexer.TokenMoveArrow:
		tok := p.advance()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		return &ast.MoveExpr{X: x, OpPos: tok.Pos}
	case lexer.TokenAmpersand:
		tok := p.advance()
		mutable := p.accept(lexer.TokenMut)
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		return &ast.BorrowExpr{X: x, Mutable: mutable, OpPos: tok.Pos}
	}
	return p.parsePostfix()
}

// parsePostfix parses call and field-access chains.
func (p *Parser) parsePostfix() ast.Expression {
	e := p.parsePrimary()
	if e == nil {
		return nil
	}
	for {
		switch p.cur().Type {
		case lexer.TokenLParen:
			lp := p.advance()
			call := &ast.CallExpr{Callee: e, LParen: lp.Pos}
			prev := p.noStructLit
			p.noStructLit = false
			for !p.at(lexer.TokenRParen) && !p.at(lexer.TokenEOF) {
				arg := p.parseExpr()
				if arg == nil {
					p.noStructLit = prev
					return nil
				}
				call.Args = append(call.Args, arg)
				if !p.accept(lexer.TokenComma) {
					break
				}
			}
			p.noStructLit = prev
			if _, ok := p.expect(lexer.TokenRParen, "')' after arguments"); !ok {
				return nil
			}
			e = call
		case lexer.TokenDot:
			dot := p.advance()
			field, ok := p.expect(lexer.TokenIdentifier, "field name")
			if !ok {
				return nil
			}
			e = &ast.FieldExpr{X: e, Field: field.Literal, DotPos: dot.Pos}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.cur()
	switch tok.Type {
	case lexer.TokenInteger:
		p.advance()
		return p.intLit(tok)
	case lexer.TokenFloat:
		p.advance()
		return p.floatLit(tok)
	case lexer.TokenTrue, lexer.TokenFalse:
		p.advance()
		return &ast.BoolLit{Value: tok.Type == lexer.TokenTrue, LitPos: tok.Pos}
	case lexer.TokenString:
		p.advance()
		return &ast.StrLit{Value: tok.Literal, LitPos: tok.Pos}
	case lexer.TokenChar:
		p.advance()
		r := []rune(tok.Literal)
		var v rune
		if len(r) > 0 {
			v = r[0]
		}
		return &ast.CharLit{Value: v, LitPos: tok.Pos}
	case lexer.TokenIdentifier:
		if p.peek().Type == lexer.TokenLBrace && !p.noStructLit {
			return p.parseStructLit()
		}
		p.advance()
		return &ast.Ident{Name: tok.Literal, NamePos: tok.Pos}
	case lexer.TokenLParen:
		p.advance()
		prev := p.noStructLit
		p.noStructLit = false
		e := p.parseExpr()
		p.noStructLit = prev
		if e == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokenRParen, "')'"); !ok {
			return nil
		}
		return e
	}
	p.errorExpected("expression")
	return nil
}

func (p *Parser) parseStructLit() ast.Expression {
	name := p.advance()
	p.advance() // '{'
	lit := &ast.StructLit{Name: name.Literal, NamePos: name.Pos}
	prev := p.noStructLit
	p.noStructLit = false
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		fname, ok := p.expect(lexer.TokenIdentifier, "field name")
		if !ok {
			p.noStructLit = prev
			return nil
		}
		if _, ok := p.expect(lexer.TokenColon, "':' after field name"); !ok {
			p.noStructLit = prev
			return nil
		}
		v := p.parseExpr()
		if v == nil {
			p.noStructLit = prev
			return nil
		}
		lit.Fields = append(lit.Fields, ast.FieldInit{Name: fname.Literal, Value: v, NamePos: fname.Pos})
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	p.noStructLit = prev
	if _, ok := p.expect(lexer.TokenRBrace, "'}' after struct literal"); !ok {
		return nil
	}
	return lit
}

// intLit converts an integer token, splitting the optional width suffix
// from the digits. Prefixed literals (0x, 0o, 0b) parse with base
// detection.
func (p *Parser) intLit(tok lexer.Token) ast.Expression {
	text, suffix := splitSuffix(tok.Literal, "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64")
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		p.errs = multierror.Append(p.errs, &diag.ParseError{
			Expected: "integer literal in range",
			Found:    fmt.Sprintf("%q", tok.Literal),
			Pos:      tok.Pos,
		})
		return nil
	}
	return &ast.IntLit{Value: v, Text: text, Suffix: suffix, LitPos: tok.Pos}
}

func (p *Parser) floatLit(tok lexer.Token) ast.Expression {
	text, suffix := splitSuffix(tok.Literal, "f32", "f64")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.errs = multierror.Append(p.errs, &diag.ParseError{
			Expected: "float literal in range",
			Found:    fmt.Sprintf("%q", tok.Literal),
			Pos:      tok.Pos,
		})
		return nil
	}
	return &ast.FloatLit{Value: v, Suffix: suffix, LitPos: tok.Pos}
}

func splitSuffix(lit string, suffixes ...string) (text, suffix string) {
	for _, s := range suffixes {
		if strings.HasSuffix(lit, s) {
			return lit[:len(lit)-len(s)], s
		}
	}
	return lit, ""
}

package parser

import (
	"strconv"

	"verifier/internal/ast"
	"verifier/token"
)

// parsePred parses a predicate. The concrete syntax tree does not
// distinguish terms, predicates, and executable expressions; that
// split happens during lowering (SPEC_FULL.md §4.C), so parsePred is
// simply an entry point into the same grammar as parseExpr.
func (p *Parser) parsePred() ast.Expr { return p.parseExpr() }

func (p *Parser) parseExpr() ast.Expr { return p.parseIff() }

func (p *Parser) parseIff() ast.Expr {
	left := p.parseImplies()
	for p.check(token.IFF) {
		pos := p.here()
		p.advance()
		right := p.parseImplies()
		left = &ast.Binary{Position: pos, Op: "<==>", L: left, R: right}
	}
	return left
}

func (p *Parser) parseImplies() ast.Expr {
	left := p.parseOr()
	if p.check(token.IMPLIES) {
		pos := p.here()
		p.advance()
		right := p.parseImplies()
		return &ast.Binary{Position: pos, Op: "==>", L: left, R: right}
	}
	return left
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseXor()
	for p.check(token.PIPEPIPE) {
		pos := p.here()
		p.advance()
		right := p.parseXor()
		left = &ast.Binary{Position: pos, Op: "||", L: left, R: right}
	}
	return left
}

func (p *Parser) parseXor() ast.Expr {
	left := p.parseAnd()
	for p.check(token.CARET) {
		pos := p.here()
		p.advance()
		right := p.parseAnd()
		left = &ast.Binary{Position: pos, Op: "^", L: left, R: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseRel()
	for p.check(token.AMPAMP) {
		pos := p.here()
		p.advance()
		right := p.parseRel()
		left = &ast.Binary{Position: pos, Op: "&&", L: left, R: right}
	}
	return left
}

func isRelOp(t token.Type) bool {
	switch t {
	case token.EQ, token.NEQ, token.LT, token.LE, token.GT, token.GE:
		return true
	}
	return false
}

// parseRel parses a relational expression, detecting chained
// comparisons such as "a < b <= c" and producing an ast.ChainCompare
// so lowering can share the middle terms (spec.md's chained-comparison
// desugaring).
func (p *Parser) parseRel() ast.Expr {
	pos := p.here()
	first := p.parseAdd()
	if !isRelOp(p.peek().Type) {
		return first
	}
	terms := []ast.Expr{first}
	var ops []string
	for isRelOp(p.peek().Type) {
		op := string(p.advance().Type)
		ops = append(ops, op)
		terms = append(terms, p.parseAdd())
	}
	if len(ops) == 1 {
		return &ast.Binary{Position: pos, Op: ops[0], L: terms[0], R: terms[1]}
	}
	return &ast.ChainCompare{Position: pos, Terms: terms, Ops: ops}
}

func (p *Parser) parseAdd() ast.Expr {
	left := p.parseMul()
	for p.check(token.PLUS) || p.check(token.MINUS) {
		pos := p.here()
		op := string(p.advance().Type)
		right := p.parseMul()
		left = &ast.Binary{Position: pos, Op: op, L: left, R: right}
	}
	return left
}

func (p *Parser) parseMul() ast.Expr {
	left := p.parseUnary()
	for p.check(token.STAR) || p.check(token.SLASH) || p.check(token.PERCENT) {
		pos := p.here()
		op := string(p.advance().Type)
		right := p.parseUnary()
		left = &ast.Binary{Position: pos, Op: op, L: left, R: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if p.check(token.MINUS) || p.check(token.BANG) {
		pos := p.here()
		op := string(p.advance().Type)
		x := p.parseUnary()
		return &ast.Unary{Position: pos, Op: op, X: x}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	e := p.parsePrimary()
	for {
		switch {
		case p.check(token.LBRACKET):
			pos := p.here()
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBRACKET, "to close an index expression")
			e = &ast.Index{Position: pos, Base: e, Idx: idx}
		case p.check(token.DOT):
			pos := p.here()
			p.advance()
			field := p.expect(token.IDENT, "as a field name")
			e = &ast.Member{Position: pos, Base: e, Field: field.Lexeme}
		default:
			return e
		}
	}
}

// parseSort reads a quantifier binder's sort. "real" has no reserved
// keyword of its own; it is recognized contextually here as a plain
// identifier so the source language does not need a dedicated token
// for a sort that only ever appears inside a quantifier binder.
func (p *Parser) parseSort() string {
	switch {
	case p.check(token.KW_INT):
		p.advance()
		return "int"
	case p.check(token.KW_FLOAT):
		p.advance()
		return "real"
	case p.check(token.KW_BOOL):
		p.advance()
		return "bool"
	case p.check(token.IDENT) && p.peek().Lexeme == "real":
		p.advance()
		return "real"
	default:
		tok := p.peek()
		p.errors = append(p.errors, ParseError{
			Message:  "expected a quantifier sort (int, float, bool, real), got " + tok.Lexeme,
			Position: p.here(),
		})
		return "int"
	}
}

func (p *Parser) parseQuantBinders() []*ast.QuantBinder {
	var binders []*ast.QuantBinder
	for {
		pos := p.here()
		sort := p.parseSort()
		name := p.expect(token.IDENT, "as a quantified variable name")
		binders = append(binders, &ast.QuantBinder{Position: pos, Name: name.Lexeme, Sort: sort})
		if !p.match(token.COMMA) {
			break
		}
	}
	return binders
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.here()
	switch {
	case p.check(token.INT):
		lit := p.advance()
		v, _ := strconv.ParseInt(lit.Lexeme, 10, 64)
		return &ast.IntLit{Position: pos, Value: v}
	case p.check(token.FLOAT):
		lit := p.advance()
		v, _ := strconv.ParseFloat(lit.Lexeme, 64)
		return &ast.FloatLit{Position: pos, Value: v}
	case p.check(token.KW_TRUE):
		p.advance()
		return &ast.BoolLit{Position: pos, Value: true}
	case p.check(token.KW_FALSE):
		p.advance()
		return &ast.BoolLit{Position: pos, Value: false}
	case p.check(token.LPAREN):
		p.advance()
		e := p.parseExpr()
		p.expect(token.RPAREN, "to close a parenthesized expression")
		return &ast.Paren{Position: pos, X: e}
	case p.check(token.LBRACE):
		return p.parseUpdateExpr()
	case p.check(token.KW_FORALL), p.check(token.KW_EXISTS):
		return p.parseQuant()
	case p.check(token.BACKSLASH):
		return p.parseBackslashExpr()
	case p.check(token.IDENT):
		name := p.advance()
		if p.check(token.LPAREN) {
			p.advance()
			var args []ast.Expr
			if !p.check(token.RPAREN) {
				args = append(args, p.parseExpr())
				for p.match(token.COMMA) {
					args = append(args, p.parseExpr())
				}
			}
			p.expect(token.RPAREN, "to close a call's argument list")
			return &ast.Call{Position: pos, Callee: name.Lexeme, Args: args}
		}
		return &ast.Ident{Position: pos, Name: name.Lexeme}
	default:
		tok := p.peek()
		p.errors = append(p.errors, ParseError{
			Message:  "expected an expression, got " + string(tok.Type) + " " + tok.Lexeme,
			Position: pos,
		})
		p.advance()
		return &ast.Ident{Position: pos, Name: "<error>"}
	}
}

func (p *Parser) parseQuant() ast.Expr {
	pos := p.here()
	kind := "forall"
	if p.check(token.KW_EXISTS) {
		kind = "exists"
	}
	p.advance()
	binders := p.parseQuantBinders()
	p.expect(token.COLONCOLON, "to separate quantifier binders from their body")
	body := p.parseExpr()
	return &ast.Quant{Position: pos, Kind: kind, Binders: binders, Body: body}
}

// parseUpdateExpr parses the functional array update form
// "{ Base \with [ Idx ] = Value }".
func (p *Parser) parseUpdateExpr() ast.Expr {
	pos := p.here()
	p.expect(token.LBRACE, "to open an update expression")
	base := p.parseExpr()
	p.expectBackslash("with", "in an update expression")
	p.expect(token.LBRACKET, "to open the update index")
	idx := p.parseExpr()
	p.expect(token.RBRACKET, "to close the update index")
	p.expect(token.ASSIGN, "before the update value")
	value := p.parseExpr()
	p.expect(token.RBRACE, "to close an update expression")
	return &ast.UpdateExpr{Position: pos, Base: base, Idx: idx, Value: value}
}

// parseBackslashExpr parses \result[.field], \old(Expr), and \length(Expr).
func (p *Parser) parseBackslashExpr() ast.Expr {
	pos := p.here()
	tok := p.advance()
	switch tok.Lexeme {
	case "\\result":
		var e ast.Expr = &ast.ResultExpr{Position: pos}
		for p.check(token.DOT) {
			mpos := p.here()
			p.advance()
			field := p.expect(token.IDENT, "as a field name")
			e = &ast.Member{Position: mpos, Base: e, Field: field.Lexeme}
		}
		return e
	case "\\old":
		p.expect(token.LPAREN, "to open \\old(...)")
		x := p.parseExpr()
		p.expect(token.RPAREN, "to close \\old(...)")
		return &ast.OldExpr{Position: pos, X: x}
	case "\\length":
		p.expect(token.LPAREN, "to open \\length(...)")
		x := p.parseExpr()
		p.expect(token.RPAREN, "to close \\length(...)")
		return &ast.LengthExpr{Position: pos, X: x}
	default:
		p.errors = append(p.errors, ParseError{
			Message:  "unexpected annotation form " + tok.Lexeme,
			Position: pos,
		})
		return &ast.Ident{Position: pos, Name: "<error>"}
	}
}

func (p *Parser) expectBackslash(word, context string) {
	if p.check(token.BACKSLASH) && p.peek().Lexeme == "\\"+word {
		p.advance()
		return
	}
	tok := p.peek()
	p.errors = append(p.errors, ParseError{
		Message:  "expected \\" + word + " " + context + ", got " + tok.Lexeme,
		Position: p.here(),
	})
}

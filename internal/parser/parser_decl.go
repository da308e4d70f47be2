package parser

import (
	"verifier/internal/ast"
	"verifier/token"
)

// ParseProgram parses a sequence of struct, predicate, and function
// definitions until EOF, collecting errors instead of stopping at the
// first one. It does not resynchronize at top-level boundaries: a
// definition malformed badly enough can absorb the definitions after it.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.atEnd() {
		switch {
		case p.check(token.KW_STRUCT):
			if s := p.parseStruct(); s != nil {
				prog.Structs = append(prog.Structs, s)
			}
		case p.check(token.KW_PREDICATE):
			if pr := p.parsePredicate(); pr != nil {
				prog.Predicates = append(prog.Predicates, pr)
			}
		default:
			if f := p.parseFunction(); f != nil {
				prog.Functions = append(prog.Functions, f)
			}
		}
	}
	return prog
}

func (p *Parser) parseStruct() *ast.StructDecl {
	pos := p.here()
	p.expect(token.KW_STRUCT, "to start a struct declaration")
	name := p.expect(token.IDENT, "as the struct name")
	p.expect(token.LBRACE, "to open the struct body")
	d := &ast.StructDecl{Position: pos, Name: name.Lexeme}
	for !p.check(token.RBRACE) && !p.atEnd() {
		fpos := p.here()
		typ := p.parseType()
		fname := p.expect(token.IDENT, "as the field name")
		p.expect(token.SEMI, "after a struct field")
		d.Fields = append(d.Fields, &ast.FieldDecl{Position: fpos, Name: fname.Lexeme, Type: typ})
	}
	p.expect(token.RBRACE, "to close the struct body")
	return d
}

func (p *Parser) parsePredicate() *ast.PredicateDecl {
	pos := p.here()
	p.expect(token.KW_PREDICATE, "to start a predicate declaration")
	name := p.expect(token.IDENT, "as the predicate name")
	p.expect(token.LPAREN, "to open the predicate parameter list")
	params := p.parseParams()
	p.expect(token.RPAREN, "to close the predicate parameter list")
	p.expect(token.ASSIGN, "before the predicate body")
	body := p.parsePred()
	p.expect(token.SEMI, "after a predicate definition")
	return &ast.PredicateDecl{Position: pos, Name: name.Lexeme, Params: params, Body: body}
}

func (p *Parser) parseParams() []*ast.Param {
	var params []*ast.Param
	if p.check(token.RPAREN) {
		return params
	}
	for {
		pos := p.here()
		typ := p.parseType()
		name := p.expect(token.IDENT, "as a parameter name")
		if p.match(token.LBRACKET) {
			typ.IsArray = true
			p.expect(token.RBRACKET, "to close an array parameter")
		}
		params = append(params, &ast.Param{Position: pos, Name: name.Lexeme, Type: typ})
		if !p.match(token.COMMA) {
			break
		}
	}
	return params
}

func (p *Parser) parseType() *ast.TypeExpr {
	pos := p.here()
	name := p.advance().Lexeme
	t := &ast.TypeExpr{Position: pos, Name: name}
	if p.match(token.LBRACKET) {
		t.IsArray = true
		if p.check(token.INT) {
			lit := p.advance()
			n := 0
			for _, c := range lit.Lexeme {
				n = n*10 + int(c-'0')
			}
			t.Length = &n
		}
		p.expect(token.RBRACKET, "to close an array type")
	}
	return t
}

// parseContract parses the zero-or-more requires/decreases/ensures
// clauses that precede a function's signature (spec.md §6).
func (p *Parser) parseContract() *ast.Contract {
	c := &ast.Contract{}
	for {
		switch {
		case p.match(token.KW_REQUIRES):
			c.Requires = append(c.Requires, p.parsePred())
			p.expect(token.SEMI, "after a requires clause")
		case p.match(token.KW_DECREASES):
			c.Decreases = append(c.Decreases, p.parseTermList()...)
			p.expect(token.SEMI, "after a decreases clause")
		case p.match(token.KW_ENSURES):
			c.Ensures = append(c.Ensures, p.parsePred())
			p.expect(token.SEMI, "after an ensures clause")
		default:
			return c
		}
	}
}

func (p *Parser) parseTermList() []ast.Expr {
	terms := []ast.Expr{p.parseExpr()}
	for p.match(token.COMMA) {
		terms = append(terms, p.parseExpr())
	}
	return terms
}

func (p *Parser) parseFunction() *ast.FunctionDecl {
	contract := p.parseContract()
	pos := p.here()
	var returns []*ast.TypeExpr
	switch {
	case p.match(token.KW_VOID):
		// no return types
	case p.match(token.LPAREN):
		// multi-value return: "(T1, T2) name(params) { ... }"
		returns = append(returns, p.parseType())
		for p.match(token.COMMA) {
			returns = append(returns, p.parseType())
		}
		p.expect(token.RPAREN, "to close a multi-value return type list")
	default:
		returns = []*ast.TypeExpr{p.parseType()}
	}
	name := p.expect(token.IDENT, "as the function name")
	p.expect(token.LPAREN, "to open the parameter list")
	params := p.parseParams()
	p.expect(token.RPAREN, "to close the parameter list")
	body := p.parseBlock()
	return &ast.FunctionDecl{
		Position: pos, Name: name.Lexeme, Params: params,
		ReturnTypes: returns, Contract: contract, Body: body,
	}
}

package parser

import (
	"verifier/internal/ast"
	"verifier/token"
)

func (p *Parser) parseBlock() *ast.Block {
	pos := p.here()
	p.expect(token.LBRACE, "to open a block")
	b := &ast.Block{Position: pos}
	for !p.check(token.RBRACE) && !p.atEnd() {
		if s := p.parseStmt(); s != nil {
			b.Stmts = append(b.Stmts, s)
		} else {
			p.synchronizeStmt()
		}
	}
	p.expect(token.RBRACE, "to close a block")
	return b
}

func (p *Parser) isTypeStart() bool {
	switch p.peek().Type {
	case token.KW_INT, token.KW_FLOAT, token.KW_BOOL:
		return true
	case token.IDENT:
		return p.peekAt(1).Type == token.IDENT || p.peekAt(1).Type == token.LBRACKET
	}
	return false
}

func (p *Parser) parseLoopAnnot() *ast.LoopAnnot {
	a := &ast.LoopAnnot{}
	for p.check(token.KW_LOOP) {
		p.advance()
		switch {
		case p.match(token.KW_INVARIANT):
			a.Invariants = append(a.Invariants, p.parsePred())
			p.expect(token.SEMI, "after a loop invariant")
		case p.match(token.KW_VARIANT):
			a.Variant = append(a.Variant, p.parseTermList()...)
			p.expect(token.SEMI, "after a loop variant")
		default:
			p.errors = append(p.errors, ParseError{Message: "expected invariant or variant after loop", Position: p.here()})
			return a
		}
	}
	return a
}

func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.check(token.LBRACE):
		return p.parseBlock()
	case p.check(token.KW_ASSERT):
		return p.parseAssert()
	case p.check(token.KW_IF):
		return p.parseIf()
	case p.check(token.KW_LOOP), p.check(token.KW_WHILE):
		return p.parseWhile()
	case p.check(token.KW_DO):
		return p.parseDoWhile()
	case p.check(token.KW_FOR):
		return p.parseFor()
	case p.check(token.KW_BREAK):
		pos := p.here()
		p.advance()
		p.expect(token.SEMI, "after break")
		return &ast.BreakStmt{Position: pos}
	case p.check(token.KW_CONTINUE):
		pos := p.here()
		p.advance()
		p.expect(token.SEMI, "after continue")
		return &ast.ContinueStmt{Position: pos}
	case p.check(token.KW_RETURN):
		return p.parseReturn()
	case p.isTypeStart():
		return p.parseVarDecl()
	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *Parser) parseAssert() ast.Stmt {
	pos := p.here()
	p.advance()
	pred := p.parsePred()
	p.expect(token.SEMI, "after assert")
	return &ast.AssertStmt{Position: pos, Pred: pred}
}

func (p *Parser) parseVarDecl() ast.Stmt {
	pos := p.here()
	typ := p.parseType()
	name := p.expect(token.IDENT, "as a variable name")
	var init ast.Expr
	if p.match(token.ASSIGN) {
		init = p.parseExpr()
	}
	p.expect(token.SEMI, "after a variable declaration")
	return &ast.VarDecl{Position: pos, Name: name.Lexeme, Type: typ, Init: init}
}

func (p *Parser) parseAssignOrExprStmt() ast.Stmt {
	pos := p.here()
	e := p.parseExpr()
	if p.check(token.COMMA) {
		targets := []ast.Expr{e}
		for p.match(token.COMMA) {
			targets = append(targets, p.parseExpr())
		}
		p.expect(token.ASSIGN, "after a multi-value assignment's targets")
		call := p.parseMultiAssignCall()
		p.expect(token.SEMI, "after a multi-value assignment")
		return &ast.MultiAssignStmt{Position: pos, Targets: targets, Call: call}
	}
	if p.match(token.ASSIGN) {
		v := p.parseExpr()
		p.expect(token.SEMI, "after an assignment")
		return &ast.AssignStmt{Position: pos, Target: e, Value: v}
	}
	p.expect(token.SEMI, "after an expression statement")
	return &ast.ExprStmt{Position: pos, X: e}
}

// parseMultiAssignCall parses the right-hand side of a multi-value
// assignment, which must be a single call to a multi-return function.
func (p *Parser) parseMultiAssignCall() *ast.Call {
	e := p.parseExpr()
	call, ok := e.(*ast.Call)
	if !ok {
		p.errors = append(p.errors, ParseError{Message: "a multi-value assignment's right-hand side must be a function call", Position: e.Pos()})
		return &ast.Call{Position: e.Pos()}
	}
	return call
}

// parseSimpleStmt is used in a for-loop header, where the trailing
// ';' is consumed by the for-loop grammar, not the statement itself.
func (p *Parser) parseSimpleStmt() ast.Stmt {
	pos := p.here()
	if p.isTypeStart() {
		typ := p.parseType()
		name := p.expect(token.IDENT, "as a variable name")
		var init ast.Expr
		if p.match(token.ASSIGN) {
			init = p.parseExpr()
		}
		return &ast.VarDecl{Position: pos, Name: name.Lexeme, Type: typ, Init: init}
	}
	e := p.parseExpr()
	if p.match(token.ASSIGN) {
		v := p.parseExpr()
		return &ast.AssignStmt{Position: pos, Target: e, Value: v}
	}
	return &ast.ExprStmt{Position: pos, X: e}
}

func (p *Parser) parseIf() ast.Stmt {
	pos := p.here()
	p.expect(token.KW_IF, "to start an if statement")
	p.expect(token.LPAREN, "to open the if condition")
	cond := p.parseExpr()
	p.expect(token.RPAREN, "to close the if condition")
	then := p.parseBlock()
	s := &ast.IfStmt{Position: pos, Cond: cond, Then: then}
	if p.match(token.KW_ELSE) {
		if p.check(token.KW_IF) {
			elsePos := p.here()
			s.Else = &ast.Block{Position: elsePos, Stmts: []ast.Stmt{p.parseIf()}}
		} else {
			s.Else = p.parseBlock()
		}
	}
	return s
}

func (p *Parser) parseWhile() ast.Stmt {
	annot := p.parseLoopAnnot()
	pos := p.here()
	p.expect(token.KW_WHILE, "to start a while loop")
	p.expect(token.LPAREN, "to open the while condition")
	cond := p.parseExpr()
	p.expect(token.RPAREN, "to close the while condition")
	body := p.parseBlock()
	return &ast.WhileStmt{Position: pos, Annot: annot, Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	annot := &ast.LoopAnnot{}
	pos := p.here()
	p.expect(token.KW_DO, "to start a do-while loop")
	body := p.parseBlock()
	p.expect(token.KW_WHILE, "before the do-while condition")
	p.expect(token.LPAREN, "to open the do-while condition")
	cond := p.parseExpr()
	p.expect(token.RPAREN, "to close the do-while condition")
	p.expect(token.SEMI, "after a do-while loop")
	return &ast.DoWhileStmt{Position: pos, Annot: annot, Body: body, Cond: cond}
}

func (p *Parser) parseFor() ast.Stmt {
	annot := p.parseLoopAnnot()
	pos := p.here()
	p.expect(token.KW_FOR, "to start a for loop")
	p.expect(token.LPAREN, "to open the for header")
	var init ast.Stmt
	if !p.check(token.SEMI) {
		init = p.parseSimpleStmt()
	}
	p.expect(token.SEMI, "after a for-loop initializer")
	var cond ast.Expr
	if !p.check(token.SEMI) {
		cond = p.parseExpr()
	}
	p.expect(token.SEMI, "after a for-loop condition")
	var step ast.Stmt
	if !p.check(token.RPAREN) {
		step = p.parseSimpleStmt()
	}
	p.expect(token.RPAREN, "to close a for-loop header")
	body := p.parseBlock()
	return &ast.ForStmt{Position: pos, Annot: annot, Init: init, Cond: cond, Step: step, Body: body}
}

func (p *Parser) parseReturn() ast.Stmt {
	pos := p.here()
	p.advance()
	var values []ast.Expr
	if !p.check(token.SEMI) {
		values = p.parseTermList()
	}
	p.expect(token.SEMI, "after a return statement")
	return &ast.ReturnStmt{Position: pos, Values: values}
}

package lower

import (
	"verifier/internal/ast"
	"verifier/internal/ir"
	"verifier/internal/symbols"
	"verifier/internal/types"
	"verifier/internal/verrors"
)

// funcCtx is the cursor threaded through one function body's lowering:
// the live scope, the block currently being appended to, and the
// break/continue targets of the innermost enclosing loop. Saved and
// restored around each nested loop so cursors unwind correctly on
// return from recursion (spec.md §9 "cursor-based construction").
type funcCtx struct {
	fn             *ir.Function
	env            *symbols.Env
	cur            *ir.Block // nil once control has left the function (return/break/continue)
	breakTarget    *ir.Block
	continueTarget *ir.Block
	bundle         *FuncBundle
}

func (fx *funcCtx) emit(s ir.Stmt) {
	if fx.cur != nil {
		fx.cur.Stmts = append(fx.cur.Stmts, s)
	}
}

func sourceName(v symbols.Variable) string {
	if lv, ok := v.(*symbols.LocalVariable); ok {
		return lv.Display
	}
	return v.VarName()
}

// lowerFunctionBody builds fn's Entry/Exit blocks and its whole CFG
// from fd.Body, and lowers its contract clauses into a FuncBundle for
// internal/annotate to attach afterward (spec.md §4.D, §4.E).
func (l *Lowerer) lowerFunctionBody(fd *ast.FunctionDecl, fn *ir.Function) bool {
	before := len(l.Errors)

	fn.Entry = l.newBlock(fn, ir.Precondition, fd.Position)
	fn.Exit = l.newBlock(fn, ir.Postcondition, fd.Position)

	contractEnv := symbols.NewEnv()
	for _, p := range fn.Params {
		contractEnv.Declare(sourceName(p), p)
	}

	bundle := &FuncBundle{
		Fn:             fn,
		LoopInvariants: map[*ir.Block][]ir.Pred{},
		LoopVariants:   map[*ir.Block][]ir.Term{},
	}
	for _, req := range fd.Contract.Requires {
		p, err := l.lowerPred(req, contractEnv, ctxRequires, fn)
		if err != nil {
			l.Errors = append(l.Errors, err)
			continue
		}
		bundle.Requires = append(bundle.Requires, p)
	}
	for _, dec := range fd.Contract.Decreases {
		t, err := l.lowerTerm(dec, contractEnv, fn, ctxDecreases)
		if err != nil {
			l.Errors = append(l.Errors, err)
			continue
		}
		bundle.Decreases = append(bundle.Decreases, t)
	}
	for _, ens := range fd.Contract.Ensures {
		p, err := l.lowerPred(ens, contractEnv, ctxEnsures, fn)
		if err != nil {
			l.Errors = append(l.Errors, err)
			continue
		}
		bundle.Ensures = append(bundle.Ensures, p)
	}

	bodyEnv := symbols.NewEnv()
	for _, p := range fn.Params {
		bodyEnv.Declare(sourceName(p), p)
	}

	// The precondition block carries only assertions and (later) \old
	// ghost snapshots, never ordinary body statements — internal/paths
	// treats a cut block's own Stmts as a path's setup, not as part of
	// "interior basic blocks' statements" (spec.md §4.G), so the body's
	// first real statement needs a basic block of its own to land in.
	start := l.newBlock(fn, ir.Basic, fd.Position)
	addEdge(fn.Entry, start)

	fx := &funcCtx{fn: fn, env: bodyEnv, cur: start, bundle: bundle}
	l.lowerBlock(fx, fd.Body)

	if fx.cur != nil {
		if len(fn.Returns) != 0 {
			l.errf(verrors.MissingReturn, fd.Body.Position, "function %q is missing a return on some path", fd.Name)
		} else {
			addEdge(fx.cur, fn.Exit)
		}
	}

	ok := len(l.Errors) == before
	if ok {
		l.Bundles = append(l.Bundles, bundle)
	}
	return ok
}

func (l *Lowerer) lowerBlock(fx *funcCtx, b *ast.Block) {
	fx.env.Push()
	defer fx.env.Pop()
	for _, s := range b.Stmts {
		if fx.cur == nil {
			break
		}
		l.lowerStmt(fx, s)
	}
}

func (l *Lowerer) lowerStmt(fx *funcCtx, s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		l.lowerBlock(fx, n)
	case *ast.VarDecl:
		l.lowerVarDecl(fx, n)
	case *ast.ExprStmt:
		l.lowerExprStmt(fx, n)
	case *ast.AssignStmt:
		l.lowerAssign(fx, n)
	case *ast.MultiAssignStmt:
		l.lowerMultiAssign(fx, n)
	case *ast.IfStmt:
		l.lowerIf(fx, n)
	case *ast.WhileStmt:
		l.lowerWhile(fx, n)
	case *ast.DoWhileStmt:
		l.lowerDoWhile(fx, n)
	case *ast.ForStmt:
		l.lowerFor(fx, n)
	case *ast.BreakStmt:
		if fx.breakTarget == nil {
			l.errf(verrors.TypeMismatch, n.Position, "break outside of a loop")
			return
		}
		addEdge(fx.cur, fx.breakTarget)
		fx.cur = nil
	case *ast.ContinueStmt:
		if fx.continueTarget == nil {
			l.errf(verrors.TypeMismatch, n.Position, "continue outside of a loop")
			return
		}
		addEdge(fx.cur, fx.continueTarget)
		fx.cur = nil
	case *ast.ReturnStmt:
		l.lowerReturn(fx, n)
	case *ast.AssertStmt:
		p, err := l.lowerPred(n.Pred, fx.env, ctxAssertStmt, fx.fn)
		if err != nil {
			l.Errors = append(l.Errors, err)
			return
		}
		fx.emit(&ir.SAssert{P: p})
	default:
		l.errf(verrors.TypeMismatch, s.Pos(), "unsupported statement form")
	}
}

func (l *Lowerer) lowerVarDecl(fx *funcCtx, n *ast.VarDecl) {
	if _, exists := fx.env.ResolveLocal(n.Name); exists {
		l.errf(verrors.DuplicateName, n.Position, "duplicate local %q", n.Name)
		return
	}
	t, terr := l.resolveType(n.Type)
	if terr != nil {
		l.Errors = append(l.Errors, terr)
		return
	}
	fn := fx.fn
	v := l.declareVar(n.Name, t, func(field string) string {
		if field == "" {
			return l.freshName(fn, n.Name)
		}
		return l.freshName(fn, n.Name+"."+field)
	})
	fx.env.Declare(n.Name, v)

	if n.Init == nil {
		return
	}
	if sv, ok := v.(*symbols.StructVariable); ok {
		l.emitStructCopy(fx, sv, n.Init)
		return
	}
	val, err := l.lowerExpr(n.Init, fx.env)
	if err != nil {
		l.Errors = append(l.Errors, err)
		return
	}
	if !types.Equal(val.Type(), t) {
		l.errf(verrors.TypeMismatch, n.Init.Pos(), "expected %s, got %s", t, val.Type())
		return
	}
	fx.emit(&ir.SAssign{LHS: v, RHS: val})
}

// emitStructCopy lowers a whole-struct assignment/initialization
// (`p2 = p1;` or `Point p2 = p1;`) as N member-wise assignments, since
// a struct value never survives as a single runtime value (spec.md §4.F).
func (l *Lowerer) emitStructCopy(fx *funcCtx, dst *symbols.StructVariable, src ast.Expr) {
	ident, ok := src.(*ast.Ident)
	if !ok {
		l.errf(verrors.TypeMismatch, src.Pos(), "expected a struct-typed variable")
		return
	}
	rv, ok := fx.env.Resolve(ident.Name)
	if !ok {
		l.errf(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
		return
	}
	rsv, ok := rv.(*symbols.StructVariable)
	if !ok || rsv.Struct.Name != dst.Struct.Name {
		l.errf(verrors.TypeMismatch, ident.Position, "expected struct %q, got %s", dst.Struct.Name, rv.VarType())
		return
	}
	for _, f := range dst.Order {
		fx.emit(&ir.SAssign{LHS: dst.Members[f], RHS: &ir.EVar{V: rsv.Members[f]}})
	}
}

func (l *Lowerer) lowerExprStmt(fx *funcCtx, n *ast.ExprStmt) {
	call, ok := n.X.(*ast.Call)
	if !ok {
		if _, err := l.lowerExpr(n.X, fx.env); err != nil {
			l.Errors = append(l.Errors, err)
		}
		return
	}
	fn, err := l.resolveCallableFunction(call.Callee, call.Position)
	if err != nil {
		l.Errors = append(l.Errors, err)
		return
	}
	args, err := l.lowerCallArgs(fn.Params, call.Args, fx.env, call.Position)
	if err != nil {
		l.Errors = append(l.Errors, err)
		return
	}
	fx.emit(&ir.SCall{Fun: fn, Args: args})
}

// lowerMultiAssign lowers "a, b = f(x, y);", binding every return slot of
// a multi-return function to a plain variable each (SPEC_FULL.md's
// supplemented multi-value-return feature). Struct-typed targets and
// struct-typed return slots are rejected: a struct never survives as a
// single runtime value (spec.md §4.F), so this form only ever binds
// atomic/array results.
func (l *Lowerer) lowerMultiAssign(fx *funcCtx, n *ast.MultiAssignStmt) {
	fn, err := l.resolveCallableFunction(n.Call.Callee, n.Call.Position)
	if err != nil {
		l.Errors = append(l.Errors, err)
		return
	}
	if len(fn.Returns) != len(n.Targets) {
		l.errf(verrors.TypeMismatch, n.Position, "function %q returns %d value(s), but %d target(s) given", fn.Name, len(fn.Returns), len(n.Targets))
		return
	}
	args, err := l.lowerCallArgs(fn.Params, n.Call.Args, fx.env, n.Call.Position)
	if err != nil {
		l.Errors = append(l.Errors, err)
		return
	}

	binds := make([]symbols.Variable, len(n.Targets))
	for i, t := range n.Targets {
		ident, ok := t.(*ast.Ident)
		if !ok {
			l.errf(verrors.TypeMismatch, t.Pos(), "a multi-value assignment target must be a plain variable")
			return
		}
		v, ok := fx.env.Resolve(ident.Name)
		if !ok {
			l.errf(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
			return
		}
		if _, isStruct := v.(*symbols.StructVariable); isStruct {
			l.errf(verrors.TypeMismatch, ident.Position, "struct %q cannot be a multi-value assignment target", ident.Name)
			return
		}
		want := fn.Returns[i].Var.VarType()
		if !types.Equal(v.VarType(), want) {
			l.errf(verrors.TypeMismatch, ident.Position, "target %d: expected %s, got %s", i, want, v.VarType())
			return
		}
		binds[i] = v
	}

	fx.emit(&ir.SCall{Fun: fn, Args: args, Binds: binds})
}

func (l *Lowerer) lowerAssign(fx *funcCtx, n *ast.AssignStmt) {
	switch tgt := n.Target.(type) {
	case *ast.Ident:
		v, ok := fx.env.Resolve(tgt.Name)
		if !ok {
			l.errf(verrors.UnknownName, tgt.Position, "unknown name %q", tgt.Name)
			return
		}
		if sv, isStruct := v.(*symbols.StructVariable); isStruct {
			l.emitStructCopy(fx, sv, n.Value)
			return
		}
		rhs, err := l.lowerExpr(n.Value, fx.env)
		if err != nil {
			l.Errors = append(l.Errors, err)
			return
		}
		if !types.Equal(rhs.Type(), v.VarType()) {
			l.errf(verrors.TypeMismatch, n.Value.Pos(), "expected %s, got %s", v.VarType(), rhs.Type())
			return
		}
		fx.emit(&ir.SAssign{LHS: v, RHS: rhs})

	case *ast.Index:
		ident, ok := tgt.Base.(*ast.Ident)
		if !ok {
			l.errf(verrors.TypeMismatch, tgt.Position, "only a variable may be subscripted")
			return
		}
		v, ok := fx.env.Resolve(ident.Name)
		if !ok {
			l.errf(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
			return
		}
		arr, ok := v.VarType().(*types.ArrayType)
		if !ok {
			l.errf(verrors.TypeMismatch, tgt.Position, "expected array, got %s", v.VarType())
			return
		}
		idx, err := l.lowerExpr(tgt.Idx, fx.env)
		if err != nil {
			l.Errors = append(l.Errors, err)
			return
		}
		if idx.Type() != types.Int {
			l.errf(verrors.TypeMismatch, tgt.Idx.Pos(), "expected int, got %s", idx.Type())
			return
		}
		rhs, err := l.lowerExpr(n.Value, fx.env)
		if err != nil {
			l.Errors = append(l.Errors, err)
			return
		}
		if !types.Equal(rhs.Type(), arr.Elem) {
			l.errf(verrors.TypeMismatch, n.Value.Pos(), "expected %s, got %s", arr.Elem, rhs.Type())
			return
		}
		fx.emit(&ir.SArrayAssign{Arr: v, Idx: idx, RHS: rhs})

	case *ast.Member:
		ident, ok := tgt.Base.(*ast.Ident)
		if !ok {
			l.errf(verrors.TypeMismatch, tgt.Position, "only a struct variable may have a member access")
			return
		}
		v, ok := fx.env.Resolve(ident.Name)
		if !ok {
			l.errf(verrors.UnknownName, ident.Position, "unknown name %q", ident.Name)
			return
		}
		sv, ok := v.(*symbols.StructVariable)
		if !ok {
			l.errf(verrors.TypeMismatch, tgt.Position, "expected struct, got %s", v.VarType())
			return
		}
		member, ok := sv.Members[tgt.Field]
		if !ok {
			l.errf(verrors.UnknownName, tgt.Position, "struct %q has no field %q", sv.Struct.Name, tgt.Field)
			return
		}
		rhs, err := l.lowerExpr(n.Value, fx.env)
		if err != nil {
			l.Errors = append(l.Errors, err)
			return
		}
		if !types.Equal(rhs.Type(), member.Type) {
			l.errf(verrors.TypeMismatch, n.Value.Pos(), "expected %s, got %s", member.Type, rhs.Type())
			return
		}
		fx.emit(&ir.SMemberAssign{Struct: sv, Field: tgt.Field, RHS: rhs})

	default:
		l.errf(verrors.TypeMismatch, n.Position, "invalid assignment target")
	}
}

func (l *Lowerer) lowerReturn(fx *funcCtx, n *ast.ReturnStmt) {
	fn := fx.fn
	if len(fn.Returns) == 0 {
		if len(n.Values) != 0 {
			l.errf(verrors.ReturnInVoid, n.Position, "function %q is void; return must not have a value", fn.Name)
			return
		}
		addEdge(fx.cur, fn.Exit)
		fx.cur = nil
		return
	}
	if len(n.Values) == 0 {
		l.errf(verrors.ReturnMissingValue, n.Position, "function %q must return a value", fn.Name)
		return
	}
	if len(fn.Returns) == 1 {
		if sv, ok := fn.Returns[0].Var.(*symbols.StructVariable); ok {
			if len(n.Values) != 1 {
				l.errf(verrors.ReturnMissingValue, n.Position, "expected exactly one struct-typed return value")
				return
			}
			l.emitStructCopy(fx, sv, n.Values[0])
			addEdge(fx.cur, fn.Exit)
			fx.cur = nil
			return
		}
		if len(n.Values) != 1 {
			l.errf(verrors.ReturnMissingValue, n.Position, "expected exactly one return value")
			return
		}
		val, err := l.lowerExpr(n.Values[0], fx.env)
		if err != nil {
			l.Errors = append(l.Errors, err)
			return
		}
		if !types.Equal(val.Type(), fn.Returns[0].Var.VarType()) {
			l.errf(verrors.TypeMismatch, n.Values[0].Pos(), "expected %s, got %s", fn.Returns[0].Var.VarType(), val.Type())
			return
		}
		fx.emit(&ir.SAssign{LHS: fn.Returns[0].Var, RHS: val})
		addEdge(fx.cur, fn.Exit)
		fx.cur = nil
		return
	}
	if len(n.Values) != len(fn.Returns) {
		l.errf(verrors.ReturnMissingValue, n.Position, "expected %d return values, got %d", len(fn.Returns), len(n.Values))
		return
	}
	for i, ve := range n.Values {
		val, err := l.lowerExpr(ve, fx.env)
		if err != nil {
			l.Errors = append(l.Errors, err)
			return
		}
		if !types.Equal(val.Type(), fn.Returns[i].Var.VarType()) {
			l.errf(verrors.TypeMismatch, ve.Pos(), "expected %s, got %s", fn.Returns[i].Var.VarType(), val.Type())
			return
		}
		fx.emit(&ir.SAssign{LHS: fn.Returns[i].Var, RHS: val})
	}
	addEdge(fx.cur, fn.Exit)
	fx.cur = nil
}

func (l *Lowerer) conditionPred(fx *funcCtx, cond ast.Expr, what string) ir.Pred {
	condExpr, err := l.lowerExpr(cond, fx.env)
	if err != nil {
		l.Errors = append(l.Errors, err)
		return &ir.PFalse{}
	}
	if condExpr.Type() != types.Bool {
		l.errf(verrors.TypeMismatch, cond.Pos(), "%s condition must be bool, got %s", what, condExpr.Type())
		return &ir.PFalse{}
	}
	return exprToPred(condExpr)
}

func (l *Lowerer) attachLoopAnnot(fx *funcCtx, head *ir.Block, annot *ast.LoopAnnot) {
	if annot == nil {
		return
	}
	for _, inv := range annot.Invariants {
		p, err := l.lowerPred(inv, fx.env, ctxLoopInvariant, fx.fn)
		if err != nil {
			l.Errors = append(l.Errors, err)
			continue
		}
		fx.bundle.LoopInvariants[head] = append(fx.bundle.LoopInvariants[head], p)
	}
	for _, v := range annot.Variant {
		t, err := l.lowerTerm(v, fx.env, fx.fn, ctxLoopVariant)
		if err != nil {
			l.Errors = append(l.Errors, err)
			continue
		}
		fx.bundle.LoopVariants[head] = append(fx.bundle.LoopVariants[head], t)
	}
}

func (l *Lowerer) lowerIf(fx *funcCtx, n *ast.IfStmt) {
	condPred := l.conditionPred(fx, n.Cond, "if")
	start := fx.cur

	thenB := l.newBlock(fx.fn, ir.Basic, n.Then.Position)
	thenB.Stmts = append(thenB.Stmts, &ir.SAssume{P: condPred})
	addEdge(start, thenB)
	fx.cur = thenB
	l.lowerBlock(fx, n.Then)
	thenEnd := fx.cur

	elseB := l.newBlock(fx.fn, ir.Basic, n.Position)
	elseB.Stmts = append(elseB.Stmts, &ir.SAssume{P: negatePred(condPred)})
	addEdge(start, elseB)
	fx.cur = elseB
	if n.Else != nil {
		l.lowerBlock(fx, n.Else)
	}
	elseEnd := fx.cur

	if thenEnd == nil && elseEnd == nil {
		fx.cur = nil
		return
	}
	join := l.newBlock(fx.fn, ir.Basic, n.Position)
	if thenEnd != nil {
		addEdge(thenEnd, join)
	}
	if elseEnd != nil {
		addEdge(elseEnd, join)
	}
	fx.cur = join
}

func (l *Lowerer) lowerWhile(fx *funcCtx, n *ast.WhileStmt) {
	head := l.newBlock(fx.fn, ir.LoopHead, n.Position)
	addEdge(fx.cur, head)
	fx.cur = head
	l.attachLoopAnnot(fx, head, n.Annot)

	condPred := l.conditionPred(fx, n.Cond, "while")

	bodyB := l.newBlock(fx.fn, ir.Basic, n.Body.Position)
	bodyB.Stmts = append(bodyB.Stmts, &ir.SAssume{P: condPred})
	addEdge(head, bodyB)

	afterB := l.newBlock(fx.fn, ir.Basic, n.Position)
	afterB.Stmts = append(afterB.Stmts, &ir.SAssume{P: negatePred(condPred)})
	addEdge(head, afterB)

	savedBreak, savedContinue := fx.breakTarget, fx.continueTarget
	fx.breakTarget, fx.continueTarget = afterB, head

	fx.cur = bodyB
	l.lowerBlock(fx, n.Body)
	if fx.cur != nil {
		addEdge(fx.cur, head)
	}

	fx.breakTarget, fx.continueTarget = savedBreak, savedContinue
	fx.cur = afterB
}

// lowerDoWhile models `do body while(cond)`: the loop head falls through
// unconditionally into the body block; checkB is the post-body join from which two
// successor blocks decide whether to go back to head or fall through.
// continue jumps to checkB (the condition re-test), not straight to
// head, matching C-family do-while semantics.
func (l *Lowerer) lowerDoWhile(fx *funcCtx, n *ast.DoWhileStmt) {
	head := l.newBlock(fx.fn, ir.LoopHead, n.Position)
	addEdge(fx.cur, head)
	l.attachLoopAnnot(fx, head, n.Annot)

	checkB := l.newBlock(fx.fn, ir.Basic, n.Position)
	afterB := l.newBlock(fx.fn, ir.Basic, n.Position)

	savedBreak, savedContinue := fx.breakTarget, fx.continueTarget
	fx.breakTarget, fx.continueTarget = afterB, checkB

	bodyB := l.newBlock(fx.fn, ir.Basic, n.Body.Position)
	addEdge(head, bodyB)
	fx.cur = bodyB
	l.lowerBlock(fx, n.Body)
	if fx.cur != nil {
		addEdge(fx.cur, checkB)
	}

	fx.breakTarget, fx.continueTarget = savedBreak, savedContinue

	condPred := l.conditionPred(fx, n.Cond, "do-while")

	loopAgain := l.newBlock(fx.fn, ir.Basic, n.Position)
	loopAgain.Stmts = append(loopAgain.Stmts, &ir.SAssume{P: condPred})
	addEdge(checkB, loopAgain)
	addEdge(loopAgain, head)

	afterB.Stmts = append(afterB.Stmts, &ir.SAssume{P: negatePred(condPred)})
	addEdge(checkB, afterB)

	fx.cur = afterB
}

// lowerFor lowers a C-style for loop into the same block shape as a while loop:
// Init runs once before the loop head; Step runs at the end of every
// iteration, including one reached via continue, since continueTarget
// is the step block rather than the head itself.
func (l *Lowerer) lowerFor(fx *funcCtx, n *ast.ForStmt) {
	fx.env.Push()
	defer fx.env.Pop()

	if n.Init != nil {
		l.lowerStmt(fx, n.Init)
	}

	head := l.newBlock(fx.fn, ir.LoopHead, n.Position)
	addEdge(fx.cur, head)
	fx.cur = head
	l.attachLoopAnnot(fx, head, n.Annot)

	var condPred ir.Pred
	if n.Cond != nil {
		condPred = l.conditionPred(fx, n.Cond, "for")
	} else {
		condPred = &ir.PTrue{}
	}

	bodyB := l.newBlock(fx.fn, ir.Basic, n.Body.Position)
	bodyB.Stmts = append(bodyB.Stmts, &ir.SAssume{P: condPred})
	addEdge(head, bodyB)

	afterB := l.newBlock(fx.fn, ir.Basic, n.Position)
	afterB.Stmts = append(afterB.Stmts, &ir.SAssume{P: negatePred(condPred)})
	addEdge(head, afterB)

	stepB := l.newBlock(fx.fn, ir.Basic, n.Position)

	savedBreak, savedContinue := fx.breakTarget, fx.continueTarget
	fx.breakTarget, fx.continueTarget = afterB, stepB

	fx.cur = bodyB
	l.lowerBlock(fx, n.Body)
	if fx.cur != nil {
		addEdge(fx.cur, stepB)
	}

	fx.breakTarget, fx.continueTarget = savedBreak, savedContinue

	fx.cur = stepB
	if n.Step != nil {
		l.lowerStmt(fx, n.Step)
	}
	if fx.cur != nil {
		addEdge(fx.cur, head)
	}

	fx.cur = afterB
}

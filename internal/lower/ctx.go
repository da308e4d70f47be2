package lower

// clauseCtx identifies which kind of annotation clause a term or
// predicate is being lowered from, since \old and \result are legal
// only in specific clause kinds (spec.md §4.C).
type clauseCtx int

const (
	ctxRequires clauseCtx = iota
	ctxEnsures
	ctxDecreases
	ctxLoopInvariant
	ctxLoopVariant
	ctxAssertStmt
	ctxPredicateBody
)

func allowsOld(c clauseCtx) bool {
	return c == ctxEnsures || c == ctxLoopInvariant
}

func allowsResult(c clauseCtx) bool {
	return c == ctxEnsures
}

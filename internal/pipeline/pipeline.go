// Package pipeline wires the front end's stages into the single
// synchronous pass spec.md §2 describes: parse, then lower and build
// the CFG (interleaved, internal/lower), then bind annotations
// (internal/annotate), then flatten structs (internal/flatten), then
// run the global consistency gate (internal/check). Basic-path
// extraction (internal/paths) is left for the caller to pull lazily,
// since spec.md §4.G treats it as a stream the SMT backend drives, not
// a stage this pipeline runs eagerly.
//
// Grounded on kanso's own cmd/kanso-cli compile-then-check sequencing
// (scan → parse → typecheck → lower), adapted here into one function
// matching spec.md §7's recovery model: an InternalInvariant panic
// inside a single function's annotation binding, or a single function
// or predicate's flattening, is recovered at that definition's boundary
// so one bad definition doesn't take the rest of the run down with it.
// Lowering runs without such a guard.
package pipeline

import (
	"verifier/internal/annotate"
	"verifier/internal/check"
	"verifier/internal/flatten"
	"verifier/internal/ir"
	"verifier/internal/lower"
	"verifier/internal/parser"
	"verifier/internal/verrors"
)

// Options configures a Compile run. It is the teacher-style plain
// options struct SPEC_FULL.md's configuration section calls for (no
// env/flags framework in the core — cmd/verify is the only caller that
// ever builds one from the command line, via the stdlib flag package).
type Options struct {
	// HaltOnFirstError stops the run at the first error found in any
	// stage instead of collecting errors from every definition
	// (spec.md §7 allows either: "implementations may also fail
	// fast").
	HaltOnFirstError bool
}

// Compile runs the full front end over one source file with default
// Options and returns the finished IR plus every error collected along
// the way.
func Compile(filename, source string) (*ir.Program, verrors.List) {
	return CompileWithOptions(filename, source, Options{})
}

// CompileWithOptions is Compile with explicit Options. A nil Program
// is returned only when HaltOnFirstError is set and scanning or parsing
// reported an error; otherwise lowering still runs. A non-nil
// Program may still carry some functions/predicates that were dropped
// because of scoped errors, alongside the errors that explain why.
func CompileWithOptions(filename, source string, opts Options) (*ir.Program, verrors.List) {
	astProg, scanErrs, parseErrs := parser.ParseSource(filename, source)

	var errs verrors.List
	for _, e := range scanErrs {
		errs = append(errs, verrors.New(verrors.SyntaxError, e.Position, "%s", e.Message))
	}
	for _, e := range parseErrs {
		errs = append(errs, verrors.New(verrors.SyntaxError, e.Position, "%s", e.Message))
	}
	if astProg == nil || (opts.HaltOnFirstError && len(errs) > 0) {
		return nil, errs
	}

	l := lower.New()
	prog, lowerErrs := l.LowerProgram(astProg)
	errs = append(errs, lowerErrs...)
	if opts.HaltOnFirstError && len(errs) > 0 {
		return prog, errs
	}

	bindBundles(l.Bundles, &errs)
	if opts.HaltOnFirstError && len(errs) > 0 {
		return prog, errs
	}

	flattenProgram(prog, &errs)
	if opts.HaltOnFirstError && len(errs) > 0 {
		return prog, errs
	}

	errs = append(errs, check.Program(prog)...)

	return prog, errs
}

func bindBundles(bundles []*lower.FuncBundle, errs *verrors.List) {
	for _, bundle := range bundles {
		func() {
			defer func() {
				if r := recover(); r != nil {
					*errs = append(*errs, verrors.Recover(r))
				}
			}()
			annotate.Bind(bundle)
		}()
	}
}

func flattenProgram(prog *ir.Program, errs *verrors.List) {
	kept := prog.Functions[:0]
	for _, fn := range prog.Functions {
		ok := func() (ok bool) {
			ok = true
			defer func() {
				if r := recover(); r != nil {
					*errs = append(*errs, verrors.Recover(r))
					ok = false
				}
			}()
			flatten.Function(fn)
			return ok
		}()
		if ok {
			kept = append(kept, fn)
		}
	}
	prog.Functions = kept

	keptPreds := prog.Predicates[:0]
	for _, p := range prog.Predicates {
		ok := func() (ok bool) {
			ok = true
			defer func() {
				if r := recover(); r != nil {
					*errs = append(*errs, verrors.Recover(r))
					ok = false
				}
			}()
			flatten.PredicateParams(p)
			return ok
		}()
		if ok {
			keptPreds = append(keptPreds, p)
		}
	}
	prog.Predicates = keptPreds
}

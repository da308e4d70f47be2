// Command verify drives the front end over a single source file and
// prints its basic-path decomposition, matching kanso-cli's shape
// (read file, run the front end, color-coded success/failure) but
// swapping kanso's AST dump for this system's basic-path report.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"verifier/internal/ir"
	"verifier/internal/paths"
	"verifier/internal/pipeline"
)

func main() {
	haltOnFirstError := flag.Bool("fail-fast", false, "stop at the first error instead of collecting every definition's errors")
	showPaths := flag.Bool("paths", true, "print each function's basic-path decomposition")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: verify [flags] <file>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}

	prog, errs := pipeline.CompileWithOptions(path, string(source), pipeline.Options{HaltOnFirstError: *haltOnFirstError})
	for _, e := range errs {
		color.Red("✗ %s", e.Error())
	}
	if errs.HasErrors() {
		os.Exit(1)
	}

	if *showPaths {
		for _, fn := range prog.Functions {
			printFunction(fn)
		}
	}

	color.Green("✓ %s: %d function(s), %d predicate(s) verified structurally", path, len(prog.Functions), len(prog.Predicates))
}

func printFunction(fn *ir.Function) {
	fmt.Printf("function %s:\n", fn.Name)
	n := 0
	for p := range paths.Of(fn) {
		n++
		fmt.Printf("  path %d: %s -> %s (%d statement(s))\n", n, blockLabel(p.Head), blockLabel(p.Tail), len(p.Statements))
	}
	if n == 0 {
		fmt.Println("  (no basic paths — unreachable postcondition)")
	}
}

func blockLabel(b *ir.Block) string {
	return fmt.Sprintf("%s#%d", b.Kind, b.ID)
}

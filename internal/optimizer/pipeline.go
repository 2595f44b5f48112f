// Package optimizer implements Thorn's level-gated optimization pipeline
// (spec §4.7). It is an AST->AST transform: every pass walks the
// internal/parser tree produced by the parser and hands back an
// equivalent (but hopefully cheaper) tree before it reaches either
// backend (internal/eval or internal/compiler+internal/vm), so both
// backends see identical optimized programs (spec §8 property 3,
// "optimizer soundness": O0..O3 must agree on observable behavior).
//
// The pass/pipeline shape (a Pass interface plus an ordered Pipeline
// that runs each pass and reports whether it changed anything) follows
// the optimization-pipeline pattern used by IR-based compilers in the
// retrieved example pack; Thorn has no SSA IR, so each pass here walks
// the surface AST directly instead of a lowered form.
package optimizer

import "thorn/internal/parser"

// Level is an optimization level, O0 through O3 (spec §4.7).
type Level int

const (
	O0 Level = iota
	O1
	O2
	O3
)

// Pass is a single optimization transformation over a program's
// top-level statement list. Apply returns the (possibly rewritten)
// statements and whether it changed anything, mirroring the
// Name/Apply/Description shape used across the example pack's IR
// optimization passes.
type Pass interface {
	Name() string
	Description() string
	Apply(stmts []parser.Stmt) ([]parser.Stmt, bool)
}

// Pipeline runs an ordered list of passes to a fixed point (each pass
// runs repeatedly, in order, until a full round makes no changes, or a
// safety cap on rounds is hit).
type Pipeline struct {
	passes []Pass
}

const maxRounds = 8

// New builds the pipeline for a given optimization level. O0 runs no
// passes (the tree is used exactly as parsed). Each level includes all
// passes of the levels below it, per spec §4.7's pass table.
func New(level Level) *Pipeline {
	return NewFiltered(level, nil)
}

// NewFiltered builds the pipeline the same way New does, then drops any
// pass whose Name() appears in disabled (config.Config.DisabledPasses,
// spec §6's "disable/enable named passes" knob). A name that matches no
// pass at this level is silently ignored — disabling "licm" at O1 has
// nothing to remove.
func NewFiltered(level Level, disabled []string) *Pipeline {
	p := &Pipeline{}
	if level >= O1 {
		p.passes = append(p.passes,
			&ConstantFolding{},
			&BranchSimplification{},
			&CopyPropagation{},
			&DeadStoreElimination{},
			&DeadCodeElimination{},
		)
	}
	if level >= O2 {
		p.passes = append(p.passes,
			&StrengthReduction{},
			&CommonSubexpressionElimination{},
			&LoopInvariantCodeMotion{},
			&LoopUnrolling{},
			&FunctionInlining{},
		)
	}
	if level >= O3 {
		p.passes = append(p.passes, &TailCallToLoop{})
	}
	if len(disabled) == 0 {
		return p
	}
	skip := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		skip[name] = true
	}
	kept := p.passes[:0]
	for _, pass := range p.passes {
		if !skip[pass.Name()] {
			kept = append(kept, pass)
		}
	}
	p.passes = kept
	return p
}

// PassNames returns the Name() of every pass in the pipeline, in
// execution order — used by the CLI's disassembly/trace output to
// report which passes actually ran.
func (p *Pipeline) PassNames() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name()
	}
	return names
}

// Run applies every pass in the pipeline to stmts, repeating the whole
// sequence until no pass reports a change or maxRounds is reached, and
// returns the final program.
func (p *Pipeline) Run(stmts []parser.Stmt) []parser.Stmt {
	for round := 0; round < maxRounds; round++ {
		changedAny := false
		for _, pass := range p.passes {
			var changed bool
			stmts, changed = pass.Apply(stmts)
			changedAny = changedAny || changed
		}
		if !changedAny {
			break
		}
	}
	return stmts
}

package module

import (
	"thorn/internal/eval"
	thornerrors "thorn/internal/errors"
	"thorn/internal/native"
)

// modulePrinter discards a module's own top-level print() calls rather
// than letting a library module talk to the running program's stdout
// behind the importer's back; a module that wants to produce output
// should do so through its exported functions, called from the
// importing program's own Interpreter (which owns the real printer).
type modulePrinter struct{}

func (modulePrinter) Print(string) {}

// newModuleInterpreter builds an Interpreter for one module body: its
// own global scope (spec §9 "Global state" — modules never share a
// scope), the same native registry every Thorn program gets, and loader
// as its Importer so transitive imports resolve, cache, and cycle-check
// through the same Loader as the top-level program.
func newModuleInterpreter(file string, diags *thornerrors.Diagnostics, loader *Loader) *eval.Interpreter {
	interp := eval.New(file, diags)
	native.New(modulePrinter{}).InstallInto(interp.Globals)
	interp.Importer = loader
	return interp
}

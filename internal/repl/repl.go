// Package repl implements Thorn's line-at-a-time interactive loop (spec
// §6: "no path argument: read lines from stdin as a REPL"). It owns only
// REPL *semantics* — one persistent environment across lines, reporting
// each line's errors (a line's value is not echoed) — not argument parsing or flag wiring, which stays
// in cmd/thorn (spec §1 places the full command-line driver out of
// scope; this package is the part of it spec §6 actually describes).
//
// Grounded on the teacher's internal/repl/repl.go: a bufio.Scanner read
// loop over os.Stdin with a prompt and an "exit" sentinel, printing
// go-isatty-gated (no prompt text when stdin isn't a terminal, matching
// funvibe-funxy's builtins_term.go convention for distinguishing an
// interactive shell from a piped script).
package repl

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mattn/go-isatty"

	"thorn/internal/compiler"
	thornerrors "thorn/internal/errors"
	"thorn/internal/eval"
	"thorn/internal/lexer"
	"thorn/internal/module"
	"thorn/internal/native"
	"thorn/internal/optimizer"
	"thorn/internal/parser"
	"thorn/internal/value"
	"thorn/internal/vm"
)

// Printer is the sink for print() calls made from REPL-entered code;
// cmd/thorn supplies one writing to os.Stdout.
type Printer interface {
	Print(s string)
}

// Options configures one REPL session.
type Options struct {
	UseVM     bool
	Pipeline  *optimizer.Pipeline
	StdlibDir string
	ThornPath []string
	Printer   Printer
	IsTTY     bool // when false, the prompt and banner are suppressed (spec §6: piped stdin)
}

// IsTerminal reports whether fd (an *os.File's Fd()) is an interactive
// terminal, via go-isatty — cmd/thorn calls this once for stdin/stdout
// and threads the result into Options.IsTTY.
func IsTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run drives one REPL session, reading lines from in until EOF or a
// bare "exit" line, writing prompts and results to out.
func Run(in io.Reader, out io.Writer, opts Options) {
	if opts.IsTTY {
		fmt.Fprintln(out, "Thorn REPL | type 'exit' to quit")
	}

	loader := module.New(opts.StdlibDir, opts.ThornPath)
	diags := &thornerrors.Diagnostics{}

	treeInterp := eval.New("<repl>", diags)
	native.New(opts.Printer).InstallInto(treeInterp.Globals)
	treeInterp.Importer = loader

	vmGlobals := native.New(opts.Printer).Globals()

	scanner := bufio.NewScanner(in)
	for {
		if opts.IsTTY {
			fmt.Fprint(out, ">>> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "exit" {
			break
		}
		if line == "" {
			continue
		}

		stmts, perr := parseLine(line)
		if perr != nil {
			fmt.Fprintln(out, perr.Error())
			continue
		}
		if opts.Pipeline != nil {
			stmts = opts.Pipeline.Run(stmts)
		}

		if opts.UseVM {
			vmGlobals = runVMLine(out, stmts, vmGlobals)
		} else {
			runTreeLine(out, treeInterp, stmts)
		}
	}
}

func parseLine(line string) ([]parser.Stmt, *thornerrors.ThornError) {
	diags := &thornerrors.Diagnostics{}
	scan := lexer.NewScannerWithFile(line, "<repl>")
	tokens := scan.ScanTokens()
	p := parser.NewParserWithFile(tokens, "<repl>", diags)
	stmts := p.Parse()
	if diags.HasErrors() {
		return nil, thornerrors.New(thornerrors.ParseError, diags.Report(), thornerrors.Location{File: "<repl>"})
	}
	return stmts, nil
}

func runTreeLine(out io.Writer, interp *eval.Interpreter, stmts []parser.Stmt) {
	if err := interp.Interpret(stmts); err != nil {
		fmt.Fprintln(out, err.Error())
	}
}

// runVMLine compiles and runs one line against a fresh *vm.VM seeded
// with the previous line's globals, returning the updated globals so the
// next line sees every binding made so far — the REPL's only way to
// carry state between lines on the VM backend, since a *vm.VM has no
// exposed "reset bytecode, keep globals" entry point of its own.
func runVMLine(out io.Writer, stmts []parser.Stmt, globals map[string]value.Value) map[string]value.Value {
	prog, cerr := compiler.Compile(stmts, "<repl>")
	if cerr != nil {
		fmt.Fprintln(out, cerr.Error())
		return globals
	}
	machine := vm.New(prog, "<repl>", globals)
	if _, rerr := machine.Run(); rerr != nil {
		fmt.Fprintln(out, rerr.Error())
	}
	return machine.Globals()
}

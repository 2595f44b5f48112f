// Command thorn is the reference driver for the language packages under
// internal/ (spec §1 explicitly places "a full-featured command-line
// driver" out of scope, keeping only the REPL/flag *semantics* spec §6
// describes). It is intentionally thin: parse, optionally optimize,
// then hand off to one of the two backends.
//
// Grounded on the teacher's cmd/sentra/main.go and, for the flag/command
// shape, CWBudde-go-dws's cmd/dwscript/cmd (root.go + run.go): a cobra
// root command with run-time flags rather than the teacher's own
// hand-rolled alias/switch dispatcher, since spec §6's flag set ("no
// path: REPL", "--vm", "--ast") is a single command's flags, not a
// command tree.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"thorn/internal/compiler"
	"thorn/internal/config"
	thornerrors "thorn/internal/errors"
	"thorn/internal/eval"
	"thorn/internal/formatter"
	"thorn/internal/lexer"
	"thorn/internal/module"
	"thorn/internal/native"
	"thorn/internal/parser"
	"thorn/internal/repl"
	"thorn/internal/vm"
)

// version is overwritten at build time via -ldflags, matching the
// teacher's BuildDate/GitCommit package-global convention.
var version = "0.1.0-dev"

var (
	flagUseVM     bool
	flagDumpAST   bool
	flagOptLevel  string
	flagDisabled  []string
	flagDisasm    bool
	flagStdlibDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "thorn [path]",
	Short:   "Run Thorn programs with the tree evaluator or the bytecode VM",
	Version: version,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runMain,
}

func init() {
	rootCmd.Flags().BoolVar(&flagUseVM, "vm", false, "compile to bytecode and run on the register VM instead of the tree evaluator")
	rootCmd.Flags().BoolVar(&flagDumpAST, "ast", false, "pretty-print the parsed AST and exit, without running it")
	rootCmd.Flags().StringVar(&flagOptLevel, "opt", "", "optimizer level O0-O3 (overrides .thornrc.yaml/THORN_OPT_LEVEL)")
	rootCmd.Flags().StringSliceVar(&flagDisabled, "disable-pass", nil, "disable a named optimizer pass (repeatable)")
	rootCmd.Flags().BoolVar(&flagDisasm, "disassemble", false, "dump compiled bytecode to stderr before running (--vm only)")
	rootCmd.Flags().StringVar(&flagStdlibDir, "stdlib-dir", "", "directory searched for stdlib modules, beside the binary by default")
}

type stdoutPrinter struct{}

func (stdoutPrinter) Print(s string) { fmt.Print(s) }

func runMain(cmd *cobra.Command, args []string) error {
	cwd, _ := os.Getwd()
	cfg, err := config.Load(cwd, ".env")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyFlags(flagOptLevel, flagDisabled, flagDisasm)

	stdlibDir := flagStdlibDir
	if stdlibDir == "" {
		if exe, err := os.Executable(); err == nil {
			stdlibDir = filepath.Join(filepath.Dir(exe), "stdlib")
		}
	}

	if len(args) == 0 {
		isTTY := repl.IsTerminal(os.Stdin.Fd())
		repl.Run(os.Stdin, os.Stdout, repl.Options{
			UseVM:     flagUseVM,
			Pipeline:  cfg.Pipeline(),
			StdlibDir: stdlibDir,
			ThornPath: cfg.ThornPath,
			Printer:   stdoutPrinter{},
			IsTTY:     isTTY,
		})
		return nil
	}

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	diags := &thornerrors.Diagnostics{}
	scan := lexer.NewScannerWithFile(string(src), path)
	tokens := scan.ScanTokens()
	p := parser.NewParserWithFile(tokens, path, diags)
	stmts := p.Parse()
	if diags.HasErrors() {
		fmt.Fprint(os.Stderr, diags.Report())
		os.Exit(1)
	}

	stmts = cfg.Pipeline().Run(stmts)

	if flagDumpAST {
		fmt.Println(formatter.Format(stmts))
		return nil
	}

	loader := module.New(stdlibDir, cfg.ThornPath)
	registry := native.New(stdoutPrinter{})

	if flagUseVM {
		return runVM(stmts, path, registry, cfg)
	}
	return runTree(stmts, path, diags, registry, loader)
}

func runTree(stmts []parser.Stmt, path string, diags *thornerrors.Diagnostics, registry *native.Registry, loader *module.Loader) error {
	interp := eval.New(path, diags)
	registry.InstallInto(interp.Globals)
	interp.Importer = loader
	if rtErr := interp.Interpret(stmts); rtErr != nil {
		fmt.Fprintln(os.Stderr, rtErr.Error())
		os.Exit(1)
	}
	return nil
}

func runVM(stmts []parser.Stmt, path string, registry *native.Registry, cfg *config.Config) error {
	prog, cerr := compiler.Compile(stmts, path)
	if cerr != nil {
		fmt.Fprintln(os.Stderr, cerr.Error())
		os.Exit(1)
	}
	if cfg.Disassemble {
		compiler.Disassemble(os.Stderr, prog)
	}
	machine := vm.New(prog, path, registry.Globals())
	if _, rtErr := machine.Run(); rtErr != nil {
		fmt.Fprintln(os.Stderr, rtErr.Error())
		os.Exit(1)
	}
	return nil
}

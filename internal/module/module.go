// Package module resolves and runs `import { ... } from "path"` (spec
// §6): locating the source file, compiling+running it exactly once, and
// handing back its exported bindings. It implements eval.Importer so
// internal/eval stays decoupled from the filesystem.
//
// Grounded on the teacher's internal/module/module.go ModuleLoader: a
// search-path list, a name/path cache, and a set of
// find-then-load-then-cache methods. Thorn's resolution order (spec §6)
// differs from the teacher's ("."/"./lib"/"./modules"/stdlib) — relative
// to the importing file, then a stdlib directory beside the running
// binary, then THORN_PATH — so findModule is rewritten for that order,
// but the cache-by-canonical-path and search-directory shapes are kept.
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"

	thornerrors "thorn/internal/errors"
	"thorn/internal/lexer"
	"thorn/internal/parser"
	"thorn/internal/value"
)

// Loader resolves and caches Thorn modules (spec §6). The zero value is
// not usable; construct with New.
type Loader struct {
	stdlibDir string
	thornPath []string

	mu      sync.RWMutex
	cache   map[string]map[string]value.Value
	loading map[string]bool // canonical paths currently being loaded, for cycle detection
	group   singleflight.Group
}

// New builds a Loader. stdlibDir is searched after the importing file's
// own directory (spec §6: "the stdlib directory beside the binary");
// thornPath is THORN_PATH's already-split directory list (config.Config.ThornPath),
// searched last.
func New(stdlibDir string, thornPath []string) *Loader {
	return &Loader{
		stdlibDir: stdlibDir,
		thornPath: thornPath,
		cache:     make(map[string]map[string]value.Value),
		loading:   make(map[string]bool),
	}
}

// Import satisfies eval.Importer: it resolves path relative to the
// module that contains the import statement, then runs it (once —
// concurrent imports of the same canonical path are memoized with
// singleflight so two goroutines racing to load the same module don't
// duplicate the work) and returns its exported bindings.
func (l *Loader) Import(fromFile, path string) (map[string]value.Value, *thornerrors.ThornError) {
	resolved, err := l.resolve(fromFile, path)
	if err != nil {
		return nil, thornerrors.New(thornerrors.ImportError, err.Error(), thornerrors.Location{File: fromFile})
	}

	l.mu.RLock()
	if cached, ok := l.cache[resolved]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	if l.loading[resolved] {
		l.mu.Unlock()
		return nil, thornerrors.New(thornerrors.ImportError,
			fmt.Sprintf("import cycle detected: %q imports itself transitively", resolved),
			thornerrors.Location{File: fromFile})
	}
	l.loading[resolved] = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.loading, resolved)
		l.mu.Unlock()
	}()

	exportsAny, loadErr, _ := l.group.Do(resolved, func() (interface{}, error) {
		return l.loadAndRun(resolved)
	})
	if loadErr != nil {
		if te, ok := loadErr.(*thornerrors.ThornError); ok {
			return nil, te
		}
		return nil, thornerrors.New(thornerrors.ImportError, loadErr.Error(), thornerrors.Location{File: resolved})
	}

	exports := exportsAny.(map[string]value.Value)
	l.mu.Lock()
	l.cache[resolved] = exports
	l.mu.Unlock()
	return exports, nil
}

// resolve applies spec §6's search order: relative to fromFile's
// directory, then the stdlib directory beside the binary (recursively,
// via doublestar: the last path element plus ".thorn" is searched for at
// any depth, first match wins, then the plain candidate names), then
// each THORN_PATH entry.
func (l *Loader) resolve(fromFile, path string) (string, error) {
	candidates := candidateNames(path)

	if fromFile != "" {
		dir := filepath.Dir(fromFile)
		if found, ok := searchDir(dir, candidates); ok {
			return filepath.Abs(found)
		}
	}
	if l.stdlibDir != "" {
		if found, ok := searchDirGlob(l.stdlibDir, path); ok {
			return filepath.Abs(found)
		}
	}
	for _, dir := range l.thornPath {
		if found, ok := searchDir(dir, candidates); ok {
			return filepath.Abs(found)
		}
	}
	return "", fmt.Errorf("module not found: %q (searched %s)", path, describeSearchOrder(fromFile, l))
}

// candidateNames expands an import path into the filenames a plain
// directory search should try: the path as-is, with a .thorn suffix, and
// as a directory containing index.thorn.
func candidateNames(path string) []string {
	names := []string{path}
	if filepath.Ext(path) == "" {
		names = append(names, path+".thorn")
		names = append(names, filepath.Join(path, "index.thorn"))
	}
	return names
}

func searchDir(dir string, candidates []string) (string, bool) {
	for _, name := range candidates {
		full := filepath.Join(dir, name)
		if fileExists(full) {
			return full, true
		}
	}
	return "", false
}

// searchDirGlob is used for the stdlib directory only: doublestar lets
// the stdlib be nested arbitrarily deep ("net/http.thorn" resolving
// under a "net/" subdirectory) without this package hard-coding a fixed
// depth.
func searchDirGlob(root, path string) (string, bool) {
	pattern := filepath.ToSlash(filepath.Join(root, "**", filepath.Base(path)+".thorn"))
	matches, err := doublestar.FilepathGlob(pattern)
	if err == nil && len(matches) > 0 {
		return matches[0], true
	}
	for _, name := range candidateNames(path) {
		full := filepath.Join(root, name)
		if fileExists(full) {
			return full, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func describeSearchOrder(fromFile string, l *Loader) string {
	dirs := []string{}
	if fromFile != "" {
		dirs = append(dirs, filepath.Dir(fromFile))
	}
	if l.stdlibDir != "" {
		dirs = append(dirs, l.stdlibDir)
	}
	dirs = append(dirs, l.thornPath...)
	return fmt.Sprintf("%v", dirs)
}

// loadAndRun reads, parses, and evaluates the module at resolved,
// returning its Export-marked globals. Each module gets its own
// Interpreter/Environment (spec §9 "Global state": modules don't share
// one global scope) but shares this Loader so nested imports still get
// memoized and cycle-checked.
func (l *Loader) loadAndRun(resolved string) (map[string]value.Value, error) {
	src, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading module %q: %w", resolved, err)
	}

	scan := lexer.NewScannerWithFile(string(src), resolved)
	tokens := scan.ScanTokens()

	diags := &thornerrors.Diagnostics{}
	p := parser.NewParserWithFile(tokens, resolved, diags)
	stmts := p.Parse()
	if diags.HasErrors() {
		return nil, fmt.Errorf("module %q failed to parse:\n%s", resolved, diags.Report())
	}

	interp := newModuleInterpreter(resolved, diags, l)
	if rtErr := interp.Interpret(stmts); rtErr != nil {
		return nil, rtErr
	}

	exports := interp.Globals.Exports()
	return exports, nil
}

// ExportNames returns a module's exported names sorted for deterministic
// diagnostics, using golang.org/x/exp/maps+slices for the
// map-keys-then-sort idiom (spec §6 error messages should not depend on
// Go's randomized map iteration order).
func ExportNames(exports map[string]value.Value) []string {
	names := maps.Keys(exports)
	slices.Sort(names)
	return names
}

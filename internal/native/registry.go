// Package native is Thorn's native registry (spec §4.9 / component I of
// spec §2): a name->host-function table both the tree evaluator and the
// virtual machine consult for calls that never reach user-defined Thorn
// code. Spec §1 places "standard-library host functions (crypto, I/O,
// networking, concurrency, JSON, compression, random, system)" out of
// scope and treats them as an opaque registry; this package is that
// registry's *shape*, grounded on the teacher's internal/vmregister's
// registerGlobal/NativeFnObj convention (stdlib.go). Its *contents* stay
// deliberately small: the handful of natives every Thorn program needs
// (print, Ok/Error construction) plus one sample external-library native
// per SPEC_FULL.md's dependency table, rather than porting the teacher's
// entire crypto/network/database stdlib surface (explicitly out of scope).
package native

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"thorn/internal/environment"
	thornerrors "thorn/internal/errors"
	"thorn/internal/value"
)

// Printer receives the text `print` writes (spec §6: "print output goes
// to standard output"); the CLI driver supplies os.Stdout, tests supply a
// strings.Builder.
type Printer interface {
	Print(s string)
}

// Registry is a name->*environment.NativeFunction table. It is built once
// per CLI invocation (spec §9: "The optional native registry is passed in
// at construction") and installed into both backends' globals so they
// observe the identical set of native entry points (spec §8 property 2).
type Registry struct {
	printer Printer
	entries map[string]*environment.NativeFunction
	order   []string
}

func New(printer Printer) *Registry {
	r := &Registry{printer: printer, entries: make(map[string]*environment.NativeFunction)}
	r.registerCore()
	r.registerSamples()
	return r
}

func (r *Registry) register(name string, arity int, fn func(args []value.Value) (value.Value, *thornerrors.ThornError)) {
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = &environment.NativeFunction{FnName: name, Arity: arity, Fn: fn}
}

// Lookup resolves name, for either backend's global-miss path.
func (r *Registry) Lookup(name string) (*environment.NativeFunction, bool) {
	v, ok := r.entries[name]
	return v, ok
}

// Names lists every registered native, in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// InstallInto defines every native as a global binding in env, the shape
// spec §4.4's Environment already supports for any other value (natives
// are just another Value variant, spec §3: "native registry entry").
func (r *Registry) InstallInto(env *environment.Environment) {
	for _, name := range r.order {
		env.Define(name, r.entries[name], false)
	}
}

// Globals returns a plain name->Value map, the shape internal/vm's
// globals table wants (spec §4.9: "Module-scope definitions live in a
// globals map keyed by name").
func (r *Registry) Globals() map[string]value.Value {
	out := make(map[string]value.Value, len(r.entries))
	for name, fn := range r.entries {
		out[name] = fn
	}
	return out
}

func (r *Registry) registerCore() {
	r.register("print", -1, func(args []value.Value) (value.Value, *thornerrors.ThornError) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		if r.printer != nil {
			r.printer.Print(strings.Join(parts, "") + "\n")
		}
		return value.Null{}, nil
	})
	r.register("Ok", 1, func(args []value.Value) (value.Value, *thornerrors.ThornError) {
		return value.Ok(args[0]), nil
	})
	r.register("Error", 1, func(args []value.Value) (value.Value, *thornerrors.ThornError) {
		return value.ErrorVal(args[0]), nil
	})
	r.register("typeof", 1, func(args []value.Value) (value.Value, *thornerrors.ThornError) {
		return value.String(args[0].Kind().String()), nil
	})
}

// registerSamples wires the two out-of-core third-party libraries
// SPEC_FULL.md's dependency table assigns to this package: go-humanize
// for a human-friendly-formatting native, uuid for an identity-tagging
// native. Both are ordinary stdlib-shaped natives — ordinary Go functions
// wrapped as NativeFunction values — demonstrating the registry's shape
// without smuggling crypto/network/filesystem access back into scope.
func (r *Registry) registerSamples() {
	r.register("humanize_bytes", 1, func(args []value.Value) (value.Value, *thornerrors.ThornError) {
		n, ok := args[0].(value.Number)
		if !ok {
			return nil, thornerrors.New(thornerrors.TypeError, "humanize_bytes expects a number", thornerrors.Location{})
		}
		return value.String(humanize.Bytes(uint64(n))), nil
	})
	r.register("humanize_ordinal", 1, func(args []value.Value) (value.Value, *thornerrors.ThornError) {
		n, ok := args[0].(value.Number)
		if !ok {
			return nil, thornerrors.New(thornerrors.TypeError, "humanize_ordinal expects a number", thornerrors.Location{})
		}
		return value.String(humanize.Ordinal(int(n))), nil
	})
	r.register("uuid", 0, func(args []value.Value) (value.Value, *thornerrors.ThornError) {
		return value.String(uuid.NewString()), nil
	})
}

// DispatchError renders an unknown-native lookup miss in spec §7's shape,
// as a ResolveError naming name. Neither backend calls it.
func DispatchError(name string) *thornerrors.ThornError {
	return thornerrors.New(thornerrors.ResolveError, fmt.Sprintf("unbound name %q", name), thornerrors.Location{})
}

package analyzer

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/shibukawa/snaplisp/diagnostics"
)

// CoreNamespace is visible from every namespace without a require.
const CoreNamespace = "core"

// Definition is a value defined with def.
type Definition struct {
	Namespace string
	Name      string
	Loc       diagnostics.Span
}

// Namespace holds everything registered under one namespace name.
type Namespace struct {
	Name           string
	Definitions    map[string]*Definition
	Macros         map[string]*Macro
	UseAliases     map[string]string
	RequireAliases map[string]string
	// Refers maps an unqualified name to the namespace it was referred from.
	Refers map[string]string
}

func newNamespace(name string) *Namespace {
	return &Namespace{
		Name:           name,
		Definitions:    map[string]*Definition{},
		Macros:         map[string]*Macro{},
		UseAliases:     map[string]string{},
		RequireAliases: map[string]string{},
		Refers:         map[string]string{},
	}
}

// Registry is the session-wide table of namespaces. Mutations take the writer lock, so
// independent namespaces can be analyzed from several goroutines.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
	strict     bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStrictConflicts makes a def over a macro (or a macro over a def) in the same namespace an
// error instead of replacing the earlier entry.
func WithStrictConflicts(strict bool) RegistryOption {
	return func(r *Registry) {
		r.strict = strict
	}
}

// NewRegistry creates a registry with the core namespace installed.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{namespaces: map[string]*Namespace{}}
	for _, option := range options {
		option(r)
	}

	installCore(r)

	return r
}

func (r *Registry) ensure(name string) *Namespace {
	ns, ok := r.namespaces[name]
	if !ok {
		ns = newNamespace(name)
		r.namespaces[name] = ns
	}

	return ns
}

// EnsureNamespace creates the namespace if it does not exist yet.
func (r *Registry) EnsureNamespace(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensure(name)
}

// HasNamespace reports whether the namespace was created.
func (r *Registry) HasNamespace(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.namespaces[name]

	return ok
}

// Namespaces returns the sorted namespace names.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.namespaces))
}

// AddDefinition records a def. A later def of the same name replaces the earlier one.
func (r *Registry) AddDefinition(ns, name string, span diagnostics.Span) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.ensure(ns)
	if _, isMacro := n.Macros[name]; isMacro {
		if r.strict {
			return fmt.Errorf("%w: %s/%s is already a macro", ErrNameConflict, ns, name)
		}

		delete(n.Macros, name)
	}

	n.Definitions[name] = &Definition{Namespace: ns, Name: name, Loc: span}

	return nil
}

// AddMacro records a defmacro.
func (r *Registry) AddMacro(ns, name string, macro *Macro) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.ensure(ns)
	if _, isValue := n.Definitions[name]; isValue {
		if r.strict {
			return fmt.Errorf("%w: %s/%s is already defined as a value", ErrNameConflict, ns, name)
		}

		delete(n.Definitions, name)
	}

	n.Macros[name] = macro

	return nil
}

// AddUseAlias makes alias name target inside ns.
func (r *Registry) AddUseAlias(ns, alias, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensure(ns).UseAliases[alias] = target
}

// AddRequireAlias makes alias name target inside ns.
func (r *Registry) AddRequireAlias(ns, alias, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensure(ns).RequireAliases[alias] = target
}

// AddRefers makes names from target usable unqualified inside ns.
func (r *Registry) AddRefers(ns, target string, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.ensure(ns)
	for _, name := range names {
		n.Refers[name] = target
	}
}

// Definition looks up a value.
func (r *Registry) Definition(ns, name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.namespaces[ns]
	if !ok {
		return nil, false
	}

	d, ok := n.Definitions[name]

	return d, ok
}

// Macro looks up a macro.
func (r *Registry) Macro(ns, name string) (*Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.namespaces[ns]
	if !ok {
		return nil, false
	}

	m, ok := n.Macros[name]

	return m, ok
}

// aliasTarget resolves a namespace alias as seen from ns: use aliases, then require aliases,
// then the literal name of an existing namespace.
func (r *Registry) aliasTarget(ns, alias string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n, ok := r.namespaces[ns]; ok {
		if target, ok := n.UseAliases[alias]; ok {
			return target, true
		}

		if target, ok := n.RequireAliases[alias]; ok {
			return target, true
		}
	}

	if _, ok := r.namespaces[alias]; ok {
		return alias, true
	}

	return "", false
}

func (r *Registry) referTarget(ns, name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.namespaces[ns]
	if !ok {
		return "", false
	}

	target, ok := n.Refers[name]

	return target, ok
}

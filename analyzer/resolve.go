package analyzer

import (
	"github.com/shibukawa/snaplisp/form"
)

// HostNamespace qualifies symbols that name PHP functions, operators and variables.
const HostNamespace = "php"

// BindingKind is what a symbol refers to.
type BindingKind int

const (
	BindingUnresolved BindingKind = iota
	BindingLocal
	BindingValue
	BindingMacro
	BindingSpecialForm
	BindingHost
)

func (k BindingKind) String() string {
	switch k {
	case BindingLocal:
		return "local"
	case BindingValue:
		return "value"
	case BindingMacro:
		return "macro"
	case BindingSpecialForm:
		return "special-form"
	case BindingHost:
		return "host"
	default:
		return "unresolved"
	}
}

// Binding is the result of resolving a symbol.
type Binding struct {
	Kind      BindingKind
	Namespace string
	Name      string
	Local     *Local
	Macro     *Macro
}

var specialForms = map[string]bool{
	"def":              true,
	"defmacro":         true,
	"ns":               true,
	"fn":               true,
	"let":              true,
	"do":               true,
	"if":               true,
	"quote":            true,
	"quasiquote":       true,
	"unquote":          true,
	"unquote-splicing": true,
	"foreach":          true,
	"loop":             true,
	"recur":            true,
	"throw":            true,
}

// IsSpecialForm reports whether name is a special form.
func IsSpecialForm(name string) bool {
	return specialForms[name]
}

// Resolve finds what sym means inside currentNS and env. Unqualified symbols are looked up in
// the lexical chain, then special forms, refers, the current namespace and finally core.
// Qualified symbols go through the namespace's use and require aliases. List heads never get
// here when they name a special form; see Analyzer.Resolve.
func (r *Registry) Resolve(currentNS string, sym form.Symbol, env *NodeEnvironment) Binding {
	if sym.IsQualified() {
		if sym.Namespace == HostNamespace {
			return Binding{Kind: BindingHost, Namespace: HostNamespace, Name: sym.Name}
		}

		target, ok := r.aliasTarget(currentNS, sym.Namespace)
		if !ok {
			return Binding{Kind: BindingUnresolved, Namespace: sym.Namespace, Name: sym.Name}
		}

		return r.lookup(target, sym.Name)
	}

	if env != nil {
		if local, ok := env.Lookup(sym.Name); ok {
			return Binding{Kind: BindingLocal, Name: sym.Name, Local: local}
		}
	}

	if IsSpecialForm(sym.Name) {
		return Binding{Kind: BindingSpecialForm, Name: sym.Name}
	}

	if target, ok := r.referTarget(currentNS, sym.Name); ok {
		if b := r.lookup(target, sym.Name); b.Kind != BindingUnresolved {
			return b
		}
	}

	if b := r.lookup(currentNS, sym.Name); b.Kind != BindingUnresolved {
		return b
	}

	if currentNS != CoreNamespace {
		if b := r.lookup(CoreNamespace, sym.Name); b.Kind != BindingUnresolved {
			return b
		}
	}

	return Binding{Kind: BindingUnresolved, Name: sym.Name}
}

func (r *Registry) lookup(ns, name string) Binding {
	if m, ok := r.Macro(ns, name); ok {
		return Binding{Kind: BindingMacro, Namespace: ns, Name: name, Macro: m}
	}

	if _, ok := r.Definition(ns, name); ok {
		return Binding{Kind: BindingValue, Namespace: ns, Name: name}
	}

	return Binding{Kind: BindingUnresolved, Namespace: ns, Name: name}
}

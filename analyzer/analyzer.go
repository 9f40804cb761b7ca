// Package analyzer turns forms into typed nodes. It resolves every symbol against the lexical
// environment and the namespace registry, and expands macros until only special forms, calls
// and references remain.
package analyzer

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/shibukawa/snaplisp/form"
)

// DefaultNamespace is the namespace forms are analyzed in before any ns form.
const DefaultNamespace = "user"

// Analyzer analyzes forms of one compilation unit. It is not safe for concurrent use; the
// registry it writes to is.
type Analyzer struct {
	registry  *Registry
	gensym    *form.Gensym
	namespace string
	maxDepth  int
	depth     int
	logger    *slog.Logger
	onExpand  func(macro string)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxMacroDepth sets the expansion depth ceiling.
func WithMaxMacroDepth(depth int) Option {
	return func(a *Analyzer) {
		if depth > 0 {
			a.maxDepth = depth
		}
	}
}

// WithNamespace sets the namespace analysis starts in.
func WithNamespace(ns string) Option {
	return func(a *Analyzer) {
		if ns != "" {
			a.namespace = ns
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithExpansionHook registers a function called with "ns/name" before every macro expansion.
func WithExpansionHook(hook func(macro string)) Option {
	return func(a *Analyzer) {
		a.onExpand = hook
	}
}

// New creates an analyzer that registers definitions in registry and draws fresh symbols from
// gensym.
func New(registry *Registry, gensym *form.Gensym, options ...Option) *Analyzer {
	a := &Analyzer{
		registry:  registry,
		gensym:    gensym,
		namespace: DefaultNamespace,
		maxDepth:  DefaultMaxMacroDepth,
		logger:    slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(a)
	}

	registry.EnsureNamespace(a.namespace)

	return a
}

// Namespace returns the current namespace. It changes when an ns form is analyzed.
func (a *Analyzer) Namespace() string {
	return a.namespace
}

// Registry returns the registry the analyzer writes to.
func (a *Analyzer) Registry() *Registry {
	return a.registry
}

// Resolve resolves sym in the current namespace. Analyze checks the head of a list against the
// special forms before calling Resolve, so a local named if still means the special form there;
// Resolve itself prefers locals.
func (a *Analyzer) Resolve(sym form.Symbol, env *NodeEnvironment) Binding {
	return a.registry.Resolve(a.namespace, sym, env)
}

// Analyze analyzes f in env. A nil env is the top-level statement environment.
func (a *Analyzer) Analyze(f form.Form, env *NodeEnvironment) (Node, error) {
	if env == nil {
		env = NewEnvironment()
	}

	switch x := f.(type) {
	case form.Symbol:
		return a.analyzeSymbol(x, env)
	case form.List:
		return a.analyzeList(x, env)
	case form.Vector:
		items, err := a.analyzeArgs(x.Items, env)
		if err != nil {
			return nil, err
		}

		return VectorNode{Meta: meta(x, env), Items: items}, nil
	case form.Map:
		if len(x.Items)%2 != 0 {
			return nil, analyzerError(x.Span(), ErrMalformedForm, "map literal needs key/value pairs")
		}

		items, err := a.analyzeArgs(x.Items, env)
		if err != nil {
			return nil, err
		}

		return MapNode{Meta: meta(x, env), Items: items}, nil
	default:
		return Literal{Meta: meta(f, env), Value: f}, nil
	}
}

// AnalyzeMacro analyzes a macro body. It accepts what Analyze accepts except forms that would
// change the registry.
func (a *Analyzer) AnalyzeMacro(f form.Form, env *NodeEnvironment) (Node, error) {
	if env == nil {
		env = NewEnvironment()
	}

	return a.Analyze(f, env.withMacroBody())
}

func (a *Analyzer) analyzeSymbol(sym form.Symbol, env *NodeEnvironment) (Node, error) {
	b := a.Resolve(sym, env)

	switch b.Kind {
	case BindingLocal:
		env.reference(b.Local)
		return LocalRef{Meta: meta(sym, env), Local: b.Local}, nil
	case BindingValue:
		return GlobalRef{Meta: meta(sym, env), Namespace: b.Namespace, Name: b.Name}, nil
	case BindingHost:
		if name, ok := strings.CutPrefix(b.Name, "$"); ok {
			if !phpVariable.MatchString(b.Name) {
				return nil, analyzerError(sym.Span(), ErrMalformedForm, "%s is not a PHP variable", sym.FullName())
			}

			return HostRef{Meta: meta(sym, env), Name: name, Variable: true}, nil
		}

		if !phpFunction.MatchString(b.Name) {
			return nil, analyzerError(sym.Span(), ErrNotValue, "%s is not a PHP function", sym.FullName())
		}

		return HostRef{Meta: meta(sym, env), Name: b.Name}, nil
	case BindingMacro:
		return nil, analyzerError(sym.Span(), ErrNotValue, "%s is a macro", b.Macro.FullName())
	case BindingSpecialForm:
		return nil, analyzerError(sym.Span(), ErrNotValue, "%s is a special form", sym.Name)
	default:
		return nil, analyzerError(sym.Span(), ErrUnresolvedSymbol, "%s", sym.FullName())
	}
}

func (a *Analyzer) analyzeList(list form.List, env *NodeEnvironment) (Node, error) {
	if len(list.Items) == 0 {
		return Quote{Meta: meta(list, env), Value: list}, nil
	}

	if sym, ok := list.Items[0].(form.Symbol); ok {
		if !sym.IsQualified() && IsSpecialForm(sym.Name) {
			return a.analyzeSpecial(sym.Name, list, env)
		}

		b := a.Resolve(sym, env)

		switch b.Kind {
		case BindingMacro:
			return a.analyzeMacroCall(b.Macro, list, env)
		case BindingHost:
			return a.analyzeHostCall(b.Name, list, env)
		}
	}

	fn, err := a.Analyze(list.Items[0], env.WithContext(ContextExpression))
	if err != nil {
		return nil, err
	}

	args, err := a.analyzeArgs(list.Items[1:], env)
	if err != nil {
		return nil, err
	}

	return Call{Meta: meta(list, env), Fn: fn, Args: args}, nil
}

// analyzeArgs analyzes forms in expression context.
func (a *Analyzer) analyzeArgs(forms []form.Form, env *NodeEnvironment) ([]Node, error) {
	argEnv := env.WithContext(ContextExpression)
	nodes := make([]Node, 0, len(forms))

	for _, f := range forms {
		n, err := a.Analyze(f, argEnv)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, n)
	}

	return nodes, nil
}

func (a *Analyzer) analyzeMacroCall(m *Macro, list form.List, env *NodeEnvironment) (Node, error) {
	leave := a.enterMacro()
	defer leave()

	expanded, err := a.expand(m, list)
	if err != nil {
		return nil, err
	}

	node, err := a.Analyze(expanded, env)
	if err != nil {
		return nil, err
	}

	return MacroExpanded{Meta: meta(list, env), Call: list, Macro: m, Expanded: expanded, Expansion: node}, nil
}

var (
	phpVariable = regexp.MustCompile(`^\$[A-Za-z_][A-Za-z0-9_]*$`)
	phpFunction = regexp.MustCompile(`^\\?[A-Za-z_][A-Za-z0-9_]*(\\[A-Za-z_][A-Za-z0-9_]*)*(::[A-Za-z_][A-Za-z0-9_]*)?$`)
)

var infixOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true, ".": true,
	"==": true, "===": true, "!=": true, "!==": true, "<": true, ">": true, "<=": true, ">=": true,
	"<=>": true, "&&": true, "||": true, "??": true, "&": true, "|": true, "^": true,
	"<<": true, ">>": true, "instanceof": true,
}

// analyzeHostCall handles (php/name args...): operators, new, aget and plain PHP functions.
func (a *Analyzer) analyzeHostCall(name string, list form.List, env *NodeEnvironment) (Node, error) {
	node := HostCall{Meta: meta(list, env), Name: name}
	rest := list.Items[1:]

	switch {
	case name == "new":
		if len(rest) == 0 {
			return nil, analyzerError(list.Span(), ErrMalformedForm, "php/new needs a class name")
		}

		switch class := rest[0].(type) {
		case form.Symbol:
			node.Class = class.FullName()
		case form.String:
			node.Class = class.Value
		default:
			return nil, analyzerError(rest[0].Span(), ErrMalformedForm, "php/new class must be a symbol or a string")
		}

		if !phpFunction.MatchString(node.Class) {
			return nil, analyzerError(rest[0].Span(), ErrMalformedForm, "%s is not a PHP class name", node.Class)
		}

		node.Kind = HostNew
		rest = rest[1:]
	case name == "aget":
		if len(rest) != 2 {
			return nil, analyzerError(list.Span(), ErrMalformedForm, "php/aget takes a collection and a key")
		}

		node.Kind = HostIndex
	case name == "!" || name == "~":
		if len(rest) != 1 {
			return nil, analyzerError(list.Span(), ErrMalformedForm, "php/%s takes one operand", name)
		}

		node.Kind = HostPrefix
	case infixOperators[name]:
		switch {
		case len(rest) == 1 && (name == "-" || name == "+"):
			node.Kind = HostPrefix
		case len(rest) < 2:
			return nil, analyzerError(list.Span(), ErrMalformedForm, "php/%s needs at least two operands", name)
		default:
			node.Kind = HostInfix
		}
	case phpVariable.MatchString(name) || phpFunction.MatchString(name):
		node.Kind = HostFunction
	default:
		return nil, analyzerError(list.Items[0].Span(), ErrMalformedForm, "php/%s is not a PHP function", name)
	}

	args, err := a.analyzeArgs(rest, env)
	if err != nil {
		return nil, err
	}

	node.Args = args

	return node, nil
}

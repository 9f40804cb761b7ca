package analyzer

import (
	"fmt"

	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
)

// DefaultMaxMacroDepth bounds nested macro expansion.
const DefaultMaxMacroDepth = 512

// MacroFunc is a macro implemented in Go. It receives the whole call form.
type MacroFunc func(a *Analyzer, call form.List) (form.Form, error)

// Macro is either a builtin (Func set) or a user macro interpreted from its body forms.
type Macro struct {
	Namespace string
	Name      string
	Func      MacroFunc
	Params    []string
	Rest      string
	Body      []form.Form
	Loc       diagnostics.Span
}

// FullName returns "ns/name".
func (m *Macro) FullName() string {
	return m.Namespace + "/" + m.Name
}

// IsBuiltin reports whether the macro is implemented in Go.
func (m *Macro) IsBuiltin() bool {
	return m.Func != nil
}

// enterMacro raises the expansion depth. Callers must call the returned function when the
// expansion and the analysis of its result are done.
func (a *Analyzer) enterMacro() func() {
	a.depth++
	return func() { a.depth-- }
}

// expand calls the macro with the unevaluated arguments of call. The result gets the call's
// span wherever the expansion did not keep a location from the arguments.
func (a *Analyzer) expand(m *Macro, call form.List) (form.Form, error) {
	if a.depth > a.maxDepth {
		return nil, macroError(call.Span(), ErrMacroDepth, "%s nested deeper than %d", m.FullName(), a.maxDepth)
	}

	if a.onExpand != nil {
		a.onExpand(m.FullName())
	}

	a.logger.Debug("expanding macro", "macro", m.FullName(), "at", call.Span().Start.String(), "depth", a.depth)

	var (
		result form.Form
		err    error
	)

	if m.IsBuiltin() {
		result, err = m.Func(a, call)
	} else {
		result, err = a.expandUser(m, call)
	}

	if err != nil {
		if _, ok := diagnostics.AsError(err); ok {
			return nil, err
		}

		return nil, macroError(call.Span(), err, "in %s", m.FullName())
	}

	return form.FillSpan(result, call.Span()), nil
}

func (a *Analyzer) expandUser(m *Macro, call form.List) (form.Form, error) {
	args := call.Items[1:]

	if len(args) < len(m.Params) || (m.Rest == "" && len(args) > len(m.Params)) {
		return nil, fmt.Errorf("%w: %s takes %s, got %d", ErrMacroArity, m.FullName(), m.arity(), len(args))
	}

	env := newEvalEnv(nil)
	for i, param := range m.Params {
		env.set(param, args[i])
	}

	if m.Rest != "" {
		rest := append([]form.Form(nil), args[len(m.Params):]...)
		env.set(m.Rest, form.List{Items: rest})
	}

	ev := &evaluator{analyzer: a, namespace: m.Namespace}

	var result form.Form = form.Nil{}

	for _, body := range m.Body {
		value, err := ev.eval(body, env)
		if err != nil {
			return nil, err
		}

		result = value
	}

	return result, nil
}

func (m *Macro) arity() string {
	if m.Rest != "" {
		return fmt.Sprintf("at least %d arguments", len(m.Params))
	}

	return fmt.Sprintf("%d arguments", len(m.Params))
}

// MacroExpand1 expands f once if it is a macro call. The second result reports whether an
// expansion happened.
func (a *Analyzer) MacroExpand1(f form.Form, env *NodeEnvironment) (form.Form, bool, error) {
	call, ok := f.(form.List)
	if !ok || len(call.Items) == 0 {
		return f, false, nil
	}

	head, ok := call.Items[0].(form.Symbol)
	if !ok {
		return f, false, nil
	}

	if env == nil {
		env = NewEnvironment()
	}

	b := a.Resolve(head, env)
	if b.Kind != BindingMacro {
		return f, false, nil
	}

	leave := a.enterMacro()
	defer leave()

	expanded, err := a.expand(b.Macro, call)
	if err != nil {
		return nil, false, err
	}

	return expanded, true, nil
}

// MacroExpand expands f until its head is no longer a macro.
func (a *Analyzer) MacroExpand(f form.Form, env *NodeEnvironment) (form.Form, error) {
	for range a.maxDepth + 1 {
		expanded, ok, err := a.MacroExpand1(f, env)
		if err != nil {
			return nil, err
		}

		if !ok {
			return f, nil
		}

		f = expanded
	}

	return nil, macroError(f.Span(), ErrMacroDepth, "expansion did not settle after %d steps", a.maxDepth)
}

package analyzer

import (
	"fmt"
	"strings"

	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
)

// evalEnv binds names to forms while a user macro body runs.
type evalEnv struct {
	parent *evalEnv
	vars   map[string]form.Form
}

func newEvalEnv(parent *evalEnv) *evalEnv {
	return &evalEnv{parent: parent, vars: map[string]form.Form{}}
}

func (e *evalEnv) set(name string, value form.Form) {
	e.vars[name] = value
}

func (e *evalEnv) get(name string) (form.Form, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// evaluator interprets macro bodies at expansion time. Values are forms.
type evaluator struct {
	analyzer  *Analyzer
	namespace string
}

func (ev *evaluator) eval(f form.Form, env *evalEnv) (form.Form, error) {
	switch x := f.(type) {
	case form.Symbol:
		if !x.IsQualified() {
			if v, ok := env.get(x.Name); ok {
				return v, nil
			}
		}

		return nil, fmt.Errorf("%w: symbol %s has no value in a macro body", ErrEvaluation, x.FullName())
	case form.Vector:
		items, err := ev.evalAll(x.Items, env)
		if err != nil {
			return nil, err
		}

		return form.Vector{Items: items}, nil
	case form.Map:
		items, err := ev.evalAll(x.Items, env)
		if err != nil {
			return nil, err
		}

		return form.Map{Items: items}, nil
	case form.List:
		return ev.evalList(x, env)
	default:
		return form.WithSpan(f, diagnostics.Span{}), nil
	}
}

func (ev *evaluator) evalAll(items []form.Form, env *evalEnv) ([]form.Form, error) {
	result := make([]form.Form, 0, len(items))

	for _, item := range items {
		v, err := ev.eval(item, env)
		if err != nil {
			return nil, err
		}

		result = append(result, v)
	}

	return result, nil
}

func (ev *evaluator) evalList(list form.List, env *evalEnv) (form.Form, error) {
	if len(list.Items) == 0 {
		return form.List{}, nil
	}

	head, ok := list.Items[0].(form.Symbol)
	if !ok {
		return nil, fmt.Errorf("%w: cannot call %s", ErrEvaluation, form.TypeName(list.Items[0]))
	}

	args := list.Items[1:]

	if !head.IsQualified() {
		switch head.Name {
		case "quote":
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: quote takes one form", ErrMalformedForm)
			}

			return form.Respan(args[0], diagnostics.Span{}), nil
		case "quasiquote":
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: quasiquote takes one form", ErrMalformedForm)
			}

			return ev.quasi(args[0], env, 1, map[string]form.Symbol{})
		case "if":
			return ev.evalIf(args, env)
		case "do":
			return ev.evalDo(args, env)
		case "let":
			return ev.evalLet(args, env)
		}
	}

	if head.Namespace == "" || head.Namespace == CoreNamespace {
		if fn, ok := evalFunctions[head.Name]; ok {
			values, err := ev.evalAll(args, env)
			if err != nil {
				return nil, err
			}

			return fn(ev, values)
		}
	}

	b := ev.analyzer.registry.Resolve(ev.namespace, head, nil)
	if b.Kind == BindingMacro {
		leave := ev.analyzer.enterMacro()
		defer leave()

		expanded, err := ev.analyzer.expand(b.Macro, list)
		if err != nil {
			return nil, err
		}

		return ev.eval(expanded, env)
	}

	return nil, fmt.Errorf("%w: %s is not available in a macro body", ErrEvaluation, head.FullName())
}

func (ev *evaluator) evalIf(args []form.Form, env *evalEnv) (form.Form, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("%w: if takes 2 or 3 forms", ErrMalformedForm)
	}

	test, err := ev.eval(args[0], env)
	if err != nil {
		return nil, err
	}

	if form.Truthy(test) {
		return ev.eval(args[1], env)
	}

	if len(args) == 3 {
		return ev.eval(args[2], env)
	}

	return form.Nil{}, nil
}

func (ev *evaluator) evalDo(args []form.Form, env *evalEnv) (form.Form, error) {
	var result form.Form = form.Nil{}

	for _, arg := range args {
		v, err := ev.eval(arg, env)
		if err != nil {
			return nil, err
		}

		result = v
	}

	return result, nil
}

func (ev *evaluator) evalLet(args []form.Form, env *evalEnv) (form.Form, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: let needs a binding vector", ErrMalformedForm)
	}

	bindings, ok := args[0].(form.Vector)
	if !ok || len(bindings.Items)%2 != 0 {
		return nil, fmt.Errorf("%w: let needs a vector of name/value pairs", ErrInvalidBinding)
	}

	scope := newEvalEnv(env)

	for i := 0; i < len(bindings.Items); i += 2 {
		name, ok := bindings.Items[i].(form.Symbol)
		if !ok || name.IsQualified() {
			return nil, fmt.Errorf("%w: %s is not a local name", ErrInvalidBinding, bindings.Items[i])
		}

		v, err := ev.eval(bindings.Items[i+1], scope)
		if err != nil {
			return nil, err
		}

		scope.set(name.Name, v)
	}

	return ev.evalDo(args[1:], scope)
}

// quasi fills a quasiquote template. Symbols ending in "$" become the same gensym everywhere in
// one template.
func (ev *evaluator) quasi(template form.Form, env *evalEnv, level int, gensyms map[string]form.Symbol) (form.Form, error) {
	switch x := template.(type) {
	case form.Symbol:
		if sym, ok := autoGensym(ev.analyzer.gensym, x, gensyms); ok {
			return sym, nil
		}

		return form.WithSpan(x, diagnostics.Span{}), nil
	case form.List:
		if len(x.Items) == 2 {
			switch {
			case form.IsSymbol(x.Items[0], "unquote"):
				if level == 1 {
					return ev.eval(x.Items[1], env)
				}

				inner, err := ev.quasi(x.Items[1], env, level-1, gensyms)
				if err != nil {
					return nil, err
				}

				return form.List{Items: []form.Form{form.Sym("unquote"), inner}}, nil
			case form.IsSymbol(x.Items[0], "quasiquote"):
				inner, err := ev.quasi(x.Items[1], env, level+1, gensyms)
				if err != nil {
					return nil, err
				}

				return form.List{Items: []form.Form{form.Sym("quasiquote"), inner}}, nil
			}
		}

		items, err := ev.quasiItems(x.Items, env, level, gensyms)
		if err != nil {
			return nil, err
		}

		return form.List{Items: items}, nil
	case form.Vector:
		items, err := ev.quasiItems(x.Items, env, level, gensyms)
		if err != nil {
			return nil, err
		}

		return form.Vector{Items: items}, nil
	case form.Map:
		items, err := ev.quasiItems(x.Items, env, level, gensyms)
		if err != nil {
			return nil, err
		}

		return form.Map{Items: items}, nil
	default:
		return form.WithSpan(template, diagnostics.Span{}), nil
	}
}

func (ev *evaluator) quasiItems(items []form.Form, env *evalEnv, level int, gensyms map[string]form.Symbol) ([]form.Form, error) {
	result := make([]form.Form, 0, len(items))

	for _, item := range items {
		if inner, ok := splicedForm(item); ok && level == 1 {
			v, err := ev.eval(inner, env)
			if err != nil {
				return nil, err
			}

			seq, ok := form.Items(v)
			if !ok {
				return nil, fmt.Errorf("%w: unquote-splicing needs a list or vector, got %s", ErrEvaluation, form.TypeName(v))
			}

			result = append(result, seq...)

			continue
		}

		v, err := ev.quasi(item, env, level, gensyms)
		if err != nil {
			return nil, err
		}

		result = append(result, v)
	}

	return result, nil
}

func splicedForm(f form.Form) (form.Form, bool) {
	list, ok := f.(form.List)
	if ok && len(list.Items) == 2 && form.IsSymbol(list.Items[0], "unquote-splicing") {
		return list.Items[1], true
	}

	return nil, false
}

// autoGensym replaces name$ with a fresh symbol shared within one template.
func autoGensym(g *form.Gensym, sym form.Symbol, gensyms map[string]form.Symbol) (form.Symbol, bool) {
	if sym.IsQualified() || len(sym.Name) < 2 || !strings.HasSuffix(sym.Name, "$") {
		return form.Symbol{}, false
	}

	if existing, ok := gensyms[sym.Name]; ok {
		return existing, true
	}

	fresh := g.Next(strings.TrimSuffix(sym.Name, "$"))
	gensyms[sym.Name] = fresh

	return fresh, true
}

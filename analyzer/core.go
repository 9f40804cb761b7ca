package analyzer

import (
	"errors"
	"fmt"

	"github.com/shibukawa/snaplisp/form"
)

// CoreFunctions are the runtime functions every namespace can call without a require.
var CoreFunctions = []string{
	"+", "-", "*", "/", "=", "not=", "<", ">", "<=", ">=",
	"not", "str", "print", "println",
	"list", "vector", "hash-map", "concat", "cons",
	"first", "rest", "second", "nth", "count", "empty?", "nil?",
	"get", "inc", "dec", "apply", "symbol", "keyword", "gensym",
}

var errMacroSyntax = errors.New("invalid macro call")

var builtinMacros = map[string]MacroFunc{
	"defn":     macroDefn,
	"when":     macroWhen,
	"when-not": macroWhenNot,
	"if-not":   macroIfNot,
	"cond":     macroCond,
	"and":      macroAnd,
	"or":       macroOr,
	"->":       macroThreadFirst,
	"->>":      macroThreadLast,
	"comment":  macroComment,
}

func installCore(r *Registry) {
	core := r.ensure(CoreNamespace)

	for _, name := range CoreFunctions {
		core.Definitions[name] = &Definition{Namespace: CoreNamespace, Name: name}
	}

	for name, fn := range builtinMacros {
		core.Macros[name] = &Macro{Namespace: CoreNamespace, Name: name, Func: fn}
	}
}

func list(items ...form.Form) form.List {
	return form.List{Items: items}
}

func args(call form.List) []form.Form {
	return call.Items[1:]
}

func macroDefn(_ *Analyzer, call form.List) (form.Form, error) {
	rest := args(call)
	if len(rest) < 2 {
		return nil, fmt.Errorf("%w: defn needs a name and a parameter vector", errMacroSyntax)
	}

	name, ok := rest[0].(form.Symbol)
	if !ok {
		return nil, fmt.Errorf("%w: defn name must be a symbol", errMacroSyntax)
	}

	body := rest[1:]
	if _, isDoc := body[0].(form.String); isDoc && len(body) > 1 {
		body = body[1:]
	}

	if _, ok := body[0].(form.Vector); !ok {
		return nil, fmt.Errorf("%w: defn %s needs a parameter vector", errMacroSyntax, name.Name)
	}

	fn := form.List{Items: append([]form.Form{form.Sym("fn")}, body...)}

	return list(form.Sym("def"), name, fn), nil
}

func whenBody(body []form.Form) form.Form {
	return form.List{Items: append([]form.Form{form.Sym("do")}, body...)}
}

func macroWhen(_ *Analyzer, call form.List) (form.Form, error) {
	rest := args(call)
	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: when needs a test", errMacroSyntax)
	}

	return list(form.Sym("if"), rest[0], whenBody(rest[1:]), form.Nil{}), nil
}

func macroWhenNot(_ *Analyzer, call form.List) (form.Form, error) {
	rest := args(call)
	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: when-not needs a test", errMacroSyntax)
	}

	return list(form.Sym("if"), rest[0], form.Nil{}, whenBody(rest[1:])), nil
}

func macroIfNot(_ *Analyzer, call form.List) (form.Form, error) {
	rest := args(call)
	switch len(rest) {
	case 2:
		return list(form.Sym("if"), rest[0], form.Nil{}, rest[1]), nil
	case 3:
		return list(form.Sym("if"), rest[0], rest[2], rest[1]), nil
	default:
		return nil, fmt.Errorf("%w: if-not takes 2 or 3 forms", errMacroSyntax)
	}
}

func macroCond(_ *Analyzer, call form.List) (form.Form, error) {
	rest := args(call)
	if len(rest)%2 != 0 {
		return nil, fmt.Errorf("%w: cond needs test/expression pairs", errMacroSyntax)
	}

	var result form.Form = form.Nil{}

	for i := len(rest) - 2; i >= 0; i -= 2 {
		result = list(form.Sym("if"), rest[i], rest[i+1], result)
	}

	return result, nil
}

func macroAnd(a *Analyzer, call form.List) (form.Form, error) {
	rest := args(call)
	switch len(rest) {
	case 0:
		return form.Bool{Value: true}, nil
	case 1:
		return rest[0], nil
	}

	tmp := a.gensym.Next("and")
	next := form.List{Items: append([]form.Form{form.QualifiedSym(CoreNamespace, "and")}, rest[1:]...)}

	return list(form.Sym("let"), form.Vector{Items: []form.Form{tmp, rest[0]}},
		list(form.Sym("if"), tmp, next, tmp)), nil
}

func macroOr(a *Analyzer, call form.List) (form.Form, error) {
	rest := args(call)
	switch len(rest) {
	case 0:
		return form.Nil{}, nil
	case 1:
		return rest[0], nil
	}

	tmp := a.gensym.Next("or")
	next := form.List{Items: append([]form.Form{form.QualifiedSym(CoreNamespace, "or")}, rest[1:]...)}

	return list(form.Sym("let"), form.Vector{Items: []form.Form{tmp, rest[0]}},
		list(form.Sym("if"), tmp, tmp, next)), nil
}

func thread(call form.List, last bool) (form.Form, error) {
	rest := args(call)
	if len(rest) == 0 {
		return nil, fmt.Errorf("%w: threading needs an initial value", errMacroSyntax)
	}

	acc := rest[0]

	for _, step := range rest[1:] {
		var items []form.Form

		if l, ok := step.(form.List); ok && len(l.Items) > 0 {
			items = append(items, l.Items[0])
			if last {
				items = append(items, l.Items[1:]...)
				items = append(items, acc)
			} else {
				items = append(items, acc)
				items = append(items, l.Items[1:]...)
			}

			acc = form.List{Items: items, Loc: l.Loc}

			continue
		}

		acc = form.List{Items: []form.Form{step, acc}, Loc: step.Span()}
	}

	return acc, nil
}

func macroThreadFirst(_ *Analyzer, call form.List) (form.Form, error) {
	return thread(call, false)
}

func macroThreadLast(_ *Analyzer, call form.List) (form.Form, error) {
	return thread(call, true)
}

func macroComment(_ *Analyzer, _ form.List) (form.Form, error) {
	return form.Nil{}, nil
}

package analyzer

import (
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
)

// quasiquote rewrites a template into forms that build it at runtime:
//
//	`(a ,b ,@c)  =>  (core/apply core/list (core/concat (core/list 'a) (core/list b) c))
//
// Templates without splicing use the shorter (core/list 'a b).
func (a *Analyzer) quasiquote(template form.Form, level int, gensyms map[string]form.Symbol) (form.Form, error) {
	span := template.Span()

	switch x := template.(type) {
	case form.Symbol:
		if sym, ok := autoGensym(a.gensym, x, gensyms); ok {
			return quoted(form.WithSpan(sym, span), span), nil
		}

		return quoted(x, span), nil
	case form.List:
		if len(x.Items) == 0 {
			return quoted(x, span), nil
		}

		if len(x.Items) == 2 {
			switch {
			case form.IsSymbol(x.Items[0], "unquote"):
				if level == 1 {
					return x.Items[1], nil
				}

				inner, err := a.quasiquote(x.Items[1], level-1, gensyms)
				if err != nil {
					return nil, err
				}

				return coreCall(span, "list", quoted(x.Items[0], span), inner), nil
			case form.IsSymbol(x.Items[0], "quasiquote"):
				inner, err := a.quasiquote(x.Items[1], level+1, gensyms)
				if err != nil {
					return nil, err
				}

				return coreCall(span, "list", quoted(x.Items[0], span), inner), nil
			case form.IsSymbol(x.Items[0], "unquote-splicing") && level == 1:
				return nil, analyzerError(span, ErrMalformedForm, "unquote-splicing outside of a list")
			}
		}

		return a.quasiquoteSeq(x.Items, "list", span, level, gensyms)
	case form.Vector:
		return a.quasiquoteSeq(x.Items, "vector", span, level, gensyms)
	case form.Map:
		return a.quasiquoteSeq(x.Items, "hash-map", span, level, gensyms)
	default:
		return template, nil
	}
}

func (a *Analyzer) quasiquoteSeq(items []form.Form, ctor string, span diagnostics.Span, level int, gensyms map[string]form.Symbol) (form.Form, error) {
	splicing := false

	for _, item := range items {
		if _, ok := splicedForm(item); ok && level == 1 {
			splicing = true
			break
		}
	}

	parts := make([]form.Form, 0, len(items))

	for _, item := range items {
		if inner, ok := splicedForm(item); ok && level == 1 {
			parts = append(parts, inner)
			continue
		}

		part, err := a.quasiquote(item, level, gensyms)
		if err != nil {
			return nil, err
		}

		if splicing {
			part = coreCall(spanOf(item, span), "list", part)
		}

		parts = append(parts, part)
	}

	if !splicing {
		return coreCall(span, ctor, parts...), nil
	}

	return coreCall(span, "apply", form.QualifiedSym(CoreNamespace, ctor), coreCall(span, "concat", parts...)), nil
}

func quoted(f form.Form, span diagnostics.Span) form.Form {
	return form.List{Items: []form.Form{form.Symbol{Name: "quote", Loc: span}, f}, Loc: span}
}

func coreCall(span diagnostics.Span, name string, args ...form.Form) form.Form {
	head := form.QualifiedSym(CoreNamespace, name)
	head.Loc = span

	return form.List{Items: append([]form.Form{head}, args...), Loc: span}
}

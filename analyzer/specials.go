package analyzer

import (
	"fmt"
	"strings"

	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
)

func (a *Analyzer) analyzeSpecial(name string, list form.List, env *NodeEnvironment) (Node, error) {
	switch name {
	case "def":
		return a.analyzeDef(list, env)
	case "defmacro":
		return a.analyzeDefMacro(list, env)
	case "ns":
		return a.analyzeNs(list, env)
	case "fn":
		return a.analyzeFn(list, env)
	case "let":
		return a.analyzeLet(list, env)
	case "do":
		return a.analyzeBody(list, list.Items[1:], env)
	case "if":
		return a.analyzeIf(list, env)
	case "quote":
		if len(list.Items) != 2 {
			return nil, analyzerError(list.Span(), ErrMalformedForm, "quote takes one form")
		}

		return Quote{Meta: meta(list, env), Value: list.Items[1]}, nil
	case "quasiquote":
		return a.analyzeQuasiquote(list, env)
	case "unquote", "unquote-splicing":
		return nil, analyzerError(list.Span(), ErrMalformedForm, "%s outside of quasiquote", name)
	case "foreach":
		return a.analyzeForeach(list, env)
	case "loop":
		return a.analyzeLoop(list, env)
	case "recur":
		return a.analyzeRecur(list, env)
	case "throw":
		if len(list.Items) != 2 {
			return nil, analyzerError(list.Span(), ErrMalformedForm, "throw takes one exception")
		}

		exc, err := a.Analyze(list.Items[1], env.WithContext(ContextExpression))
		if err != nil {
			return nil, err
		}

		return Throw{Meta: meta(list, env), Exception: exc}, nil
	default:
		return nil, analyzerError(list.Span(), ErrMalformedForm, "unknown special form %s", name)
	}
}

// newLocal binds sym to a PHP variable name not used by any visible local.
func (a *Analyzer) newLocal(sym form.Symbol, env *NodeEnvironment) (*Local, error) {
	if sym.IsQualified() || sym.Name == "&" {
		return nil, analyzerError(sym.Span(), ErrInvalidBinding, "%s cannot be bound", sym.FullName())
	}

	slot := Munge(sym.Name)
	if env.slotVisible(slot) {
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s_%d", slot, i)
			if !env.slotVisible(candidate) {
				slot = candidate
				break
			}
		}
	}

	return &Local{Name: sym.Name, Slot: slot, Loc: sym.Span()}, nil
}

func bindingName(f form.Form) (form.Symbol, error) {
	sym, ok := f.(form.Symbol)
	if !ok {
		return form.Symbol{}, analyzerError(f.Span(), ErrInvalidBinding, "expected a symbol, got %s", form.TypeName(f))
	}

	return sym, nil
}

func (a *Analyzer) analyzeDef(list form.List, env *NodeEnvironment) (Node, error) {
	if env.inMacro {
		return nil, analyzerError(list.Span(), ErrDefInMacro, "def")
	}

	args := list.Items[1:]
	if len(args) == 0 || len(args) > 3 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "def takes a name, an optional docstring and a value")
	}

	name, err := bindingName(args[0])
	if err != nil {
		return nil, err
	}

	if name.IsQualified() {
		return nil, analyzerError(name.Span(), ErrInvalidBinding, "def name %s must not be qualified", name.FullName())
	}

	var init form.Form = form.Nil{Loc: list.Span()}

	switch len(args) {
	case 2:
		init = args[1]
	case 3:
		if _, ok := args[1].(form.String); !ok {
			return nil, analyzerError(args[1].Span(), ErrMalformedForm, "def docstring must be a string")
		}

		init = args[2]
	}

	// registered first so that the value can refer to itself
	if err := a.registry.AddDefinition(a.namespace, name.Name, name.Span()); err != nil {
		return nil, analyzerError(name.Span(), err, "")
	}

	value, err := a.Analyze(init, env.WithContext(ContextExpression))
	if err != nil {
		return nil, err
	}

	return Def{Meta: meta(list, env), Namespace: a.namespace, Name: name.Name, Init: value}, nil
}

// params splits a parameter vector into fixed parameters and the optional rest parameter.
func params(f form.Form) ([]form.Symbol, *form.Symbol, error) {
	vec, ok := f.(form.Vector)
	if !ok {
		return nil, nil, analyzerError(f.Span(), ErrInvalidBinding, "parameters must be a vector, got %s", form.TypeName(f))
	}

	var fixed []form.Symbol

	for i := 0; i < len(vec.Items); i++ {
		sym, err := bindingName(vec.Items[i])
		if err != nil {
			return nil, nil, err
		}

		if sym.IsQualified() {
			return nil, nil, analyzerError(sym.Span(), ErrInvalidBinding, "parameter %s must not be qualified", sym.FullName())
		}

		if sym.Name != "&" {
			fixed = append(fixed, sym)
			continue
		}

		if i != len(vec.Items)-2 {
			return nil, nil, analyzerError(sym.Span(), ErrInvalidBinding, "& must be followed by exactly one parameter")
		}

		rest, err := bindingName(vec.Items[i+1])
		if err != nil {
			return nil, nil, err
		}

		if rest.IsQualified() || rest.Name == "&" {
			return nil, nil, analyzerError(rest.Span(), ErrInvalidBinding, "invalid rest parameter %s", rest.FullName())
		}

		return fixed, &rest, nil
	}

	return fixed, nil, nil
}

func (a *Analyzer) analyzeDefMacro(list form.List, env *NodeEnvironment) (Node, error) {
	if env.inMacro {
		return nil, analyzerError(list.Span(), ErrDefInMacro, "defmacro")
	}

	args := list.Items[1:]
	if len(args) < 2 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "defmacro needs a name and a parameter vector")
	}

	name, err := bindingName(args[0])
	if err != nil {
		return nil, err
	}

	if name.IsQualified() {
		return nil, analyzerError(name.Span(), ErrInvalidBinding, "macro name %s must not be qualified", name.FullName())
	}

	rest := args[1:]
	if _, isDoc := rest[0].(form.String); isDoc && len(rest) > 1 {
		rest = rest[1:]
	}

	fixed, restParam, err := params(rest[0])
	if err != nil {
		return nil, err
	}

	body := rest[1:]

	macroEnv := env.withMacroBody().WithScope().WithContext(ContextReturn)
	m := &Macro{Namespace: a.namespace, Name: name.Name, Body: body, Loc: list.Span()}

	for _, p := range fixed {
		local, err := a.newLocal(p, macroEnv)
		if err != nil {
			return nil, err
		}

		macroEnv = macroEnv.WithLocals(local)
		m.Params = append(m.Params, p.Name)
	}

	if restParam != nil {
		local, err := a.newLocal(*restParam, macroEnv)
		if err != nil {
			return nil, err
		}

		macroEnv = macroEnv.WithLocals(local)
		m.Rest = restParam.Name
	}

	for _, f := range body {
		if _, err := a.Analyze(f, macroEnv); err != nil {
			return nil, err
		}
	}

	if err := a.registry.AddMacro(a.namespace, name.Name, m); err != nil {
		return nil, analyzerError(name.Span(), err, "")
	}

	a.logger.Debug("macro defined", "macro", m.FullName())

	return DefMacro{Meta: meta(list, env), Namespace: a.namespace, Name: name.Name, Macro: m}, nil
}

// analyzeNs switches namespaces. Clauses are (:require spec...) and (:use spec...), where a
// spec is "name [:as alias] [:refer [names...]]", optionally wrapped in a vector.
func (a *Analyzer) analyzeNs(list form.List, env *NodeEnvironment) (Node, error) {
	if env.inMacro {
		return nil, analyzerError(list.Span(), ErrDefInMacro, "ns")
	}

	if len(list.Items) < 2 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "ns needs a name")
	}

	name, err := bindingName(list.Items[1])
	if err != nil {
		return nil, err
	}

	if name.IsQualified() {
		return nil, analyzerError(name.Span(), ErrMalformedForm, "namespace name %s must not contain /", name.FullName())
	}

	ns := name.Name
	a.registry.EnsureNamespace(ns)
	a.namespace = ns

	node := Ns{Meta: meta(list, env), Name: ns}

	for _, clause := range list.Items[2:] {
		c, ok := clause.(form.List)
		if !ok || len(c.Items) == 0 {
			return nil, analyzerError(clause.Span(), ErrMalformedForm, "ns clause must be a list")
		}

		kw, ok := c.Items[0].(form.Keyword)
		if !ok || kw.Namespace != "" || (kw.Name != "require" && kw.Name != "use") {
			return nil, analyzerError(c.Items[0].Span(), ErrMalformedForm, "ns clause must start with :require or :use")
		}

		specs, err := nsSpecs(c.Items[1:])
		if err != nil {
			return nil, err
		}

		for _, spec := range specs {
			if kw.Name == "use" {
				alias := spec.alias
				if alias == "" {
					alias = lastSegment(spec.target)
				}

				a.registry.AddUseAlias(ns, alias, spec.target)

				continue
			}

			alias := spec.alias
			if alias == "" {
				alias = lastSegment(spec.target)
			}

			a.registry.AddRequireAlias(ns, alias, spec.target)

			if len(spec.refers) > 0 {
				a.registry.AddRefers(ns, spec.target, spec.refers...)
			}

			node.Requires = append(node.Requires, spec.target)
		}
	}

	a.logger.Debug("namespace", "ns", ns, "requires", node.Requires)

	return node, nil
}

type nsSpec struct {
	target string
	alias  string
	refers []string
}

func nsSpecs(items []form.Form) ([]nsSpec, error) {
	var specs []nsSpec

	for i := 0; i < len(items); {
		if vec, ok := items[i].(form.Vector); ok {
			inner, err := nsSpecs(vec.Items)
			if err != nil {
				return nil, err
			}

			if len(inner) != 1 {
				return nil, analyzerError(vec.Span(), ErrMalformedForm, "a vector spec names exactly one namespace")
			}

			specs = append(specs, inner[0])
			i++

			continue
		}

		target, ok := items[i].(form.Symbol)
		if !ok || target.IsQualified() {
			return nil, analyzerError(items[i].Span(), ErrMalformedForm, "expected a namespace name")
		}

		spec := nsSpec{target: target.Name}
		i++

		for i+1 < len(items) {
			opt, ok := items[i].(form.Keyword)
			if !ok {
				break
			}

			switch opt.Name {
			case "as":
				alias, ok := items[i+1].(form.Symbol)
				if !ok || alias.IsQualified() {
					return nil, analyzerError(items[i+1].Span(), ErrMalformedForm, ":as needs a symbol")
				}

				spec.alias = alias.Name
			case "refer":
				names, ok := items[i+1].(form.Vector)
				if !ok {
					return nil, analyzerError(items[i+1].Span(), ErrMalformedForm, ":refer needs a vector of symbols")
				}

				for _, n := range names.Items {
					sym, ok := n.(form.Symbol)
					if !ok || sym.IsQualified() {
						return nil, analyzerError(n.Span(), ErrMalformedForm, ":refer needs a vector of symbols")
					}

					spec.refers = append(spec.refers, sym.Name)
				}
			default:
				return nil, analyzerError(opt.Span(), ErrMalformedForm, "unknown ns option %s", opt)
			}

			i += 2
		}

		if i < len(items) {
			if _, dangling := items[i].(form.Keyword); dangling {
				return nil, analyzerError(items[i].Span(), ErrMalformedForm, "ns option %s needs a value", items[i])
			}
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func lastSegment(ns string) string {
	if i := strings.LastIndexAny(ns, `.\`); i >= 0 && i < len(ns)-1 {
		return ns[i+1:]
	}

	return ns
}

func (a *Analyzer) analyzeFn(list form.List, env *NodeEnvironment) (Node, error) {
	args := list.Items[1:]

	var self *form.Symbol

	if len(args) > 0 {
		if sym, ok := args[0].(form.Symbol); ok {
			self = &sym
			args = args[1:]
		}
	}

	if len(args) == 0 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "fn needs a parameter vector")
	}

	fixed, restParam, err := params(args[0])
	if err != nil {
		return nil, err
	}

	fnEnv := env.WithScope()
	node := Fn{Meta: meta(list, env)}

	if self != nil {
		local, err := a.newLocal(*self, fnEnv)
		if err != nil {
			return nil, err
		}

		fnEnv = fnEnv.WithLocals(local)
		node.Self = local
	}

	for _, p := range fixed {
		local, err := a.newLocal(p, fnEnv)
		if err != nil {
			return nil, err
		}

		fnEnv = fnEnv.WithLocals(local)
		node.Params = append(node.Params, local)
	}

	target := &RecurTarget{Locals: append([]*Local(nil), node.Params...)}

	if restParam != nil {
		local, err := a.newLocal(*restParam, fnEnv)
		if err != nil {
			return nil, err
		}

		fnEnv = fnEnv.WithLocals(local)
		node.Rest = local
		target.Locals = append(target.Locals, local)
	}

	body, err := a.analyzeBody(list, args[1:], fnEnv.WithRecurTarget(target).WithContext(ContextReturn))
	if err != nil {
		return nil, err
	}

	node.Body = body
	node.Captures = fnEnv.Scope().Captures()

	if target.Used() {
		node.Recur = target
	}

	return node, nil
}

// analyzeBody analyzes a sequence of forms whose last value is the result. In expression
// context a body with statements is wrapped into its own function scope.
func (a *Analyzer) analyzeBody(owner form.Form, forms []form.Form, env *NodeEnvironment) (Node, error) {
	node := Do{Meta: meta(owner, env)}

	if len(forms) == 0 {
		node.Result = Literal{Meta: meta(owner, env), Value: form.Nil{Loc: owner.Span()}}
		return node, nil
	}

	inner := env
	if env.Context() == ContextExpression && len(forms) > 1 {
		inner = env.WithScope().WithContext(ContextReturn)
		node.Wrapped = true
	}

	stmtEnv := inner.WithContext(ContextStatement)

	for _, f := range forms[:len(forms)-1] {
		stmt, err := a.Analyze(f, stmtEnv)
		if err != nil {
			return nil, err
		}

		node.Statements = append(node.Statements, stmt)
	}

	result, err := a.Analyze(forms[len(forms)-1], inner)
	if err != nil {
		return nil, err
	}

	node.Result = result

	if node.Wrapped {
		node.Captures = inner.Scope().Captures()
	}

	return node, nil
}

// bindingPairs checks a [name value ...] vector.
func bindingPairs(f form.Form, what string) ([][2]form.Form, error) {
	vec, ok := f.(form.Vector)
	if !ok {
		return nil, analyzerError(f.Span(), ErrInvalidBinding, "%s bindings must be a vector", what)
	}

	if len(vec.Items)%2 != 0 {
		return nil, analyzerError(vec.Span(), ErrInvalidBinding, "%s bindings need name/value pairs", what)
	}

	pairs := make([][2]form.Form, 0, len(vec.Items)/2)
	for i := 0; i < len(vec.Items); i += 2 {
		pairs = append(pairs, [2]form.Form{vec.Items[i], vec.Items[i+1]})
	}

	return pairs, nil
}

// bindSequentially analyzes each initializer with the previous bindings in scope.
func (a *Analyzer) bindSequentially(pairs [][2]form.Form, env *NodeEnvironment) ([]LetBinding, *NodeEnvironment, error) {
	bindings := make([]LetBinding, 0, len(pairs))

	for _, pair := range pairs {
		sym, err := bindingName(pair[0])
		if err != nil {
			return nil, nil, err
		}

		init, err := a.Analyze(pair[1], env.WithContext(ContextExpression))
		if err != nil {
			return nil, nil, err
		}

		local, err := a.newLocal(sym, env)
		if err != nil {
			return nil, nil, err
		}

		env = env.WithLocals(local)
		bindings = append(bindings, LetBinding{Local: local, Init: init})
	}

	return bindings, env, nil
}

func (a *Analyzer) analyzeLet(list form.List, env *NodeEnvironment) (Node, error) {
	if len(list.Items) < 2 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "let needs a binding vector")
	}

	pairs, err := bindingPairs(list.Items[1], "let")
	if err != nil {
		return nil, err
	}

	node := Let{Meta: meta(list, env)}

	inner := env
	if env.Context() == ContextExpression {
		inner = env.WithScope().WithContext(ContextReturn)
		node.Wrapped = true
	}

	bindings, inner, err := a.bindSequentially(pairs, inner)
	if err != nil {
		return nil, err
	}

	body, err := a.analyzeBody(list, list.Items[2:], inner)
	if err != nil {
		return nil, err
	}

	node.Bindings = bindings
	node.Body = body

	if node.Wrapped {
		node.Captures = inner.Scope().Captures()
	}

	return node, nil
}

func (a *Analyzer) analyzeIf(list form.List, env *NodeEnvironment) (Node, error) {
	if len(list.Items) < 3 || len(list.Items) > 4 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "if takes a test, a then branch and an optional else branch")
	}

	test, err := a.Analyze(list.Items[1], env.WithContext(ContextExpression))
	if err != nil {
		return nil, err
	}

	then, err := a.Analyze(list.Items[2], env)
	if err != nil {
		return nil, err
	}

	var elseForm form.Form = form.Nil{Loc: list.Span()}
	if len(list.Items) == 4 {
		elseForm = list.Items[3]
	}

	els, err := a.Analyze(elseForm, env)
	if err != nil {
		return nil, err
	}

	return If{Meta: meta(list, env), Test: test, Then: then, Else: els}, nil
}

func (a *Analyzer) analyzeForeach(list form.List, env *NodeEnvironment) (Node, error) {
	if len(list.Items) < 2 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "foreach needs a binding vector")
	}

	vec, ok := list.Items[1].(form.Vector)
	if !ok || len(vec.Items) < 2 || len(vec.Items) > 3 {
		return nil, analyzerError(list.Items[1].Span(), ErrInvalidBinding, "foreach takes [value coll] or [key value coll]")
	}

	node := Foreach{Meta: meta(list, env)}

	inner := env
	if env.Context() == ContextExpression {
		inner = env.WithScope()
		node.Wrapped = true
	}

	coll, err := a.Analyze(vec.Items[len(vec.Items)-1], inner.WithContext(ContextExpression))
	if err != nil {
		return nil, err
	}

	node.Coll = coll

	names := vec.Items[:len(vec.Items)-1]
	locals := make([]*Local, 0, len(names))

	for _, n := range names {
		sym, err := bindingName(n)
		if err != nil {
			return nil, err
		}

		local, err := a.newLocal(sym, inner)
		if err != nil {
			return nil, err
		}

		inner = inner.WithLocals(local)
		locals = append(locals, local)
	}

	if len(locals) == 2 {
		node.Key = locals[0]
	}

	node.Value = locals[len(locals)-1]

	body, err := a.analyzeBody(list, list.Items[2:], inner.WithContext(ContextStatement))
	if err != nil {
		return nil, err
	}

	node.Body = body

	if node.Wrapped {
		node.Captures = inner.Scope().Captures()
	}

	return node, nil
}

func (a *Analyzer) analyzeLoop(list form.List, env *NodeEnvironment) (Node, error) {
	if len(list.Items) < 2 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "loop needs a binding vector")
	}

	pairs, err := bindingPairs(list.Items[1], "loop")
	if err != nil {
		return nil, err
	}

	node := Loop{Meta: meta(list, env)}

	inner := env
	if env.Context() != ContextReturn {
		inner = env.WithScope()
		node.Wrapped = true
	}

	inner = inner.WithContext(ContextReturn)

	bindings, inner, err := a.bindSequentially(pairs, inner)
	if err != nil {
		return nil, err
	}

	target := &RecurTarget{}
	for _, b := range bindings {
		target.Locals = append(target.Locals, b.Local)
	}

	body, err := a.analyzeBody(list, list.Items[2:], inner.WithRecurTarget(target))
	if err != nil {
		return nil, err
	}

	node.Bindings = bindings
	node.Body = body
	node.Target = target

	if node.Wrapped {
		node.Captures = inner.Scope().Captures()
	}

	return node, nil
}

func (a *Analyzer) analyzeRecur(list form.List, env *NodeEnvironment) (Node, error) {
	if env.Context() != ContextReturn {
		return nil, analyzerError(list.Span(), ErrRecurPosition, "recur in %s position", env.Context())
	}

	target := env.RecurTarget()
	if target == nil {
		return nil, analyzerError(list.Span(), ErrRecurPosition, "no enclosing loop or fn")
	}

	args, err := a.analyzeArgs(list.Items[1:], env)
	if err != nil {
		return nil, err
	}

	if len(args) != len(target.Locals) {
		return nil, analyzerError(list.Span(), ErrRecurArity, "expected %d arguments, got %d", len(target.Locals), len(args))
	}

	target.used = true

	return Recur{Meta: meta(list, env), Target: target, Args: args}, nil
}

func (a *Analyzer) analyzeQuasiquote(list form.List, env *NodeEnvironment) (Node, error) {
	if len(list.Items) != 2 {
		return nil, analyzerError(list.Span(), ErrMalformedForm, "quasiquote takes one form")
	}

	expansion, err := a.quasiquote(list.Items[1], 1, map[string]form.Symbol{})
	if err != nil {
		return nil, err
	}

	node, err := a.Analyze(expansion, env)
	if err != nil {
		return nil, err
	}

	return Quasiquote{Meta: meta(list, env), Template: list.Items[1], Expansion: node}, nil
}

// spanOf falls back to the enclosing span for forms created without a location.
func spanOf(f form.Form, fallback diagnostics.Span) diagnostics.Span {
	if s := f.Span(); !s.IsZero() {
		return s
	}

	return fallback
}

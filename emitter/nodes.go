package emitter

import (
	"fmt"
	"strings"

	"github.com/shibukawa/snaplisp/analyzer"
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
)

// writer emits nodes into one output. Nodes in statement or return context are written as
// PHP statements; nodes in expression context are written inline.
type writer struct {
	emitter *Emitter
	out     *output
}

func emitError(n analyzer.Node, format string, args ...any) error {
	return diagnostics.Wrap(diagnostics.KindEmit, n.Span(), ErrUnsupportedNode, format, args...)
}

func (w *writer) runtime(method string) string {
	return w.emitter.runtimeClass + "::" + method
}

func (w *writer) emit(n analyzer.Node) error {
	if n.Env() != nil && n.Env().Context() == analyzer.ContextExpression {
		return w.expr(n)
	}

	return w.stmt(n)
}

// stmt writes n as one or more statements. In return context every path ends in a return or
// a continue.
func (w *writer) stmt(n analyzer.Node) error {
	ctx := analyzer.ContextStatement
	if n.Env() != nil {
		ctx = n.Env().Context()
	}

	switch x := n.(type) {
	case analyzer.MacroExpanded:
		return w.stmt(x.Expansion)
	case analyzer.Quasiquote:
		return w.stmt(x.Expansion)
	case analyzer.Do:
		if x.Wrapped {
			break
		}

		for _, s := range x.Statements {
			if err := w.emit(s); err != nil {
				return err
			}
		}

		return w.emit(x.Result)
	case analyzer.Let:
		if x.Wrapped {
			break
		}

		if err := w.bindings(x.Bindings); err != nil {
			return err
		}

		return w.emit(x.Body)
	case analyzer.If:
		return w.ifStatement(x, ctx)
	case analyzer.Foreach:
		if x.Wrapped {
			break
		}

		if err := w.foreach(x); err != nil {
			return err
		}

		if ctx == analyzer.ContextReturn {
			w.line("return null;")
		}

		return nil
	case analyzer.Loop:
		if x.Wrapped {
			break
		}

		return w.loop(x)
	case analyzer.Recur:
		return w.recur(x)
	case analyzer.Throw:
		w.out.mark(x.Span(), "")
		w.out.write("throw ")

		if err := w.expr(x.Exception); err != nil {
			return err
		}

		w.out.write(";")
		w.out.newline()

		return nil
	case analyzer.DefMacro:
		if ctx == analyzer.ContextReturn {
			w.line("return null;")
		}

		return nil
	}

	if ctx == analyzer.ContextReturn {
		w.out.mark(n.Span(), "")
		w.out.write("return ")
	}

	if err := w.expr(n); err != nil {
		return err
	}

	w.out.write(";")
	w.out.newline()

	return nil
}

func (w *writer) line(text string) {
	w.out.write(text)
	w.out.newline()
}

// block writes "{", the body indented, and "}" without a trailing newline.
func (w *writer) block(body func() error) error {
	w.out.write("{")
	w.out.newline()
	w.out.indent++

	if err := body(); err != nil {
		return err
	}

	w.out.indent--
	w.out.write("}")

	return nil
}

func (w *writer) truthy(test analyzer.Node) error {
	w.out.write(w.runtime("truthy"), "(")

	if err := w.expr(test); err != nil {
		return err
	}

	w.out.write(")")

	return nil
}

func (w *writer) ifStatement(x analyzer.If, ctx analyzer.Context) error {
	w.out.mark(x.Span(), "")
	w.out.write("if (")

	if err := w.truthy(x.Test); err != nil {
		return err
	}

	w.out.write(") ")

	if err := w.block(func() error { return w.emit(x.Then) }); err != nil {
		return err
	}

	if ctx == analyzer.ContextStatement && isNil(x.Else) {
		w.out.newline()
		return nil
	}

	w.out.write(" else ")

	if err := w.block(func() error { return w.emit(x.Else) }); err != nil {
		return err
	}

	w.out.newline()

	return nil
}

func isNil(n analyzer.Node) bool {
	lit, ok := n.(analyzer.Literal)
	if !ok {
		return false
	}

	_, isNil := lit.Value.(form.Nil)

	return isNil
}

func (w *writer) bindings(bindings []analyzer.LetBinding) error {
	for _, b := range bindings {
		w.out.mark(b.Local.Loc, b.Local.Name)
		w.out.write("$", b.Local.Slot, " = ")

		if err := w.expr(b.Init); err != nil {
			return err
		}

		w.out.write(";")
		w.out.newline()
	}

	return nil
}

func (w *writer) foreach(x analyzer.Foreach) error {
	w.out.mark(x.Span(), "")
	w.out.write("foreach (")

	if err := w.expr(x.Coll); err != nil {
		return err
	}

	w.out.write(" as ")

	if x.Key != nil {
		w.out.write("$", x.Key.Slot, " => ")
	}

	w.out.write("$", x.Value.Slot, ") ")

	if err := w.block(func() error { return w.emit(x.Body) }); err != nil {
		return err
	}

	w.out.newline()

	return nil
}

func (w *writer) loop(x analyzer.Loop) error {
	if err := w.bindings(x.Bindings); err != nil {
		return err
	}

	w.out.mark(x.Span(), "")
	w.out.write("while (true) ")

	if err := w.block(func() error { return w.emit(x.Body) }); err != nil {
		return err
	}

	w.out.newline()

	return nil
}

func (w *writer) recur(x analyzer.Recur) error {
	w.out.mark(x.Span(), "recur")

	locals := x.Target.Locals

	switch len(locals) {
	case 0:
	case 1:
		w.out.write("$", locals[0].Slot, " = ")

		if err := w.expr(x.Args[0]); err != nil {
			return err
		}

		w.out.write(";")
		w.out.newline()
	default:
		// the right side is evaluated completely before any local is rebound
		w.out.write("[")

		for i, l := range locals {
			if i > 0 {
				w.out.write(", ")
			}

			w.out.write("$", l.Slot)
		}

		w.out.write("] = [")

		if err := w.list(x.Args); err != nil {
			return err
		}

		w.out.write("];")
		w.out.newline()
	}

	w.line("continue;")

	return nil
}

// expr writes n inline.
func (w *writer) expr(n analyzer.Node) error {
	switch x := n.(type) {
	case analyzer.MacroExpanded:
		return w.expr(x.Expansion)
	case analyzer.Quasiquote:
		return w.expr(x.Expansion)
	case analyzer.Literal:
		w.out.mark(x.Span(), "")
		return w.literal(x.Value, false)
	case analyzer.Quote:
		w.out.mark(x.Span(), "")
		return w.literal(x.Value, true)
	case analyzer.LocalRef:
		w.out.mark(x.Span(), x.Local.Name)
		w.out.write("$", x.Local.Slot)
	case analyzer.GlobalRef:
		w.out.mark(x.Span(), x.Name)
		w.out.write(w.runtime("get"), "(", phpString(x.Namespace), ", ", phpString(x.Name), ")")
	case analyzer.HostRef:
		w.out.mark(x.Span(), x.Name)

		if x.Variable {
			w.out.write("$", x.Name)
		} else {
			w.out.write(phpString(x.Name))
		}
	case analyzer.HostCall:
		return w.hostCall(x)
	case analyzer.Call:
		return w.call(x)
	case analyzer.Def:
		w.out.mark(x.Span(), x.Name)
		w.out.write(w.runtime("def"), "(", phpString(x.Namespace), ", ", phpString(x.Name), ", ")

		if err := w.expr(x.Init); err != nil {
			return err
		}

		w.out.write(")")
	case analyzer.DefMacro:
		w.out.write("null")
	case analyzer.Ns:
		w.out.mark(x.Span(), x.Name)
		w.out.write(w.runtime("ns"), "(", phpString(x.Name))

		for _, r := range x.Requires {
			w.out.write(", ", phpString(r))
		}

		w.out.write(")")
	case analyzer.Fn:
		return w.fn(x)
	case analyzer.If:
		w.out.mark(x.Span(), "")
		w.out.write("(")

		if err := w.truthy(x.Test); err != nil {
			return err
		}

		w.out.write(" ? ")

		if err := w.expr(x.Then); err != nil {
			return err
		}

		w.out.write(" : ")

		if err := w.expr(x.Else); err != nil {
			return err
		}

		w.out.write(")")
	case analyzer.Do:
		if x.Wrapped {
			return w.closure(x.Span(), x.Captures, func() error {
				for _, s := range x.Statements {
					if err := w.emit(s); err != nil {
						return err
					}
				}

				return w.emit(x.Result)
			})
		}

		if len(x.Statements) > 0 {
			return emitError(n, "do with statements in expression position")
		}

		return w.expr(x.Result)
	case analyzer.Let:
		if !x.Wrapped {
			return emitError(n, "let in expression position")
		}

		return w.closure(x.Span(), x.Captures, func() error {
			if err := w.bindings(x.Bindings); err != nil {
				return err
			}

			return w.emit(x.Body)
		})
	case analyzer.Foreach:
		if !x.Wrapped {
			return emitError(n, "foreach in expression position")
		}

		return w.closure(x.Span(), x.Captures, func() error {
			if err := w.foreach(x); err != nil {
				return err
			}

			w.line("return null;")

			return nil
		})
	case analyzer.Loop:
		if !x.Wrapped {
			return emitError(n, "loop in expression position")
		}

		return w.closure(x.Span(), x.Captures, func() error { return w.loop(x) })
	case analyzer.Throw:
		w.out.mark(x.Span(), "")
		w.out.write("throw ")

		return w.expr(x.Exception)
	case analyzer.VectorNode:
		w.out.mark(x.Span(), "")
		w.out.write(w.runtime("vector"), "(")

		if err := w.list(x.Items); err != nil {
			return err
		}

		w.out.write(")")
	case analyzer.MapNode:
		w.out.mark(x.Span(), "")
		w.out.write(w.runtime("map"), "(")

		if err := w.list(x.Items); err != nil {
			return err
		}

		w.out.write(")")
	default:
		return emitError(n, "%T in expression position", n)
	}

	return nil
}

func (w *writer) list(nodes []analyzer.Node) error {
	for i, n := range nodes {
		if i > 0 {
			w.out.write(", ")
		}

		if err := w.expr(n); err != nil {
			return err
		}
	}

	return nil
}

// closure writes an immediately invoked closure around body.
func (w *writer) closure(span diagnostics.Span, captures []*analyzer.Local, body func() error) error {
	w.out.mark(span, "")
	w.out.write("(function () ")
	w.uses(captures, nil)

	if err := w.block(body); err != nil {
		return err
	}

	w.out.write(")()")

	return nil
}

// uses writes the use() clause followed by a space. self is captured by reference.
func (w *writer) uses(captures []*analyzer.Local, self *analyzer.Local) {
	if len(captures) == 0 && self == nil {
		return
	}

	parts := make([]string, 0, len(captures)+1)
	if self != nil {
		parts = append(parts, "&$"+self.Slot)
	}

	for _, c := range captures {
		if c == self {
			continue
		}

		parts = append(parts, "$"+c.Slot)
	}

	w.out.write("use (", strings.Join(parts, ", "), ") ")
}

func (w *writer) fn(x analyzer.Fn) error {
	if x.Self == nil {
		return w.fnLiteral(x)
	}

	// the closure is bound to a variable first so that its body can call itself
	return w.closure(x.Span(), x.Captures, func() error {
		w.out.write("$", x.Self.Slot, " = ")

		if err := w.fnLiteral(x); err != nil {
			return err
		}

		w.out.write(";")
		w.out.newline()
		w.line("return $" + x.Self.Slot + ";")

		return nil
	})
}

func (w *writer) fnLiteral(x analyzer.Fn) error {
	w.out.mark(x.Span(), "")
	w.out.write("function (")

	for i, p := range x.Params {
		if i > 0 {
			w.out.write(", ")
		}

		w.out.write("$", p.Slot)
	}

	if x.Rest != nil {
		if len(x.Params) > 0 {
			w.out.write(", ")
		}

		w.out.write("...$", x.Rest.Slot)
	}

	w.out.write(") ")
	w.uses(x.Captures, x.Self)

	return w.block(func() error {
		if x.Rest != nil {
			w.line(fmt.Sprintf("$%s = %s(...$%s);", x.Rest.Slot, w.runtime("list"), x.Rest.Slot))
		}

		if x.Recur == nil {
			return w.emit(x.Body)
		}

		w.out.write("while (true) ")

		if err := w.block(func() error { return w.emit(x.Body) }); err != nil {
			return err
		}

		w.out.newline()

		return nil
	})
}

func (w *writer) call(x analyzer.Call) error {
	switch fn := x.Fn.(type) {
	case analyzer.GlobalRef, analyzer.LocalRef:
		if err := w.expr(fn); err != nil {
			return err
		}
	default:
		w.out.write("(")

		if err := w.expr(fn); err != nil {
			return err
		}

		w.out.write(")")
	}

	w.out.write("(")

	if err := w.list(x.Args); err != nil {
		return err
	}

	w.out.write(")")

	return nil
}

func (w *writer) hostCall(x analyzer.HostCall) error {
	w.out.mark(x.Span(), x.Name)

	switch x.Kind {
	case analyzer.HostFunction:
		w.out.write(x.Name, "(")

		if err := w.list(x.Args); err != nil {
			return err
		}

		w.out.write(")")
	case analyzer.HostInfix:
		w.out.write("(")

		for i, arg := range x.Args {
			if i > 0 {
				w.out.write(" ", x.Name, " ")
			}

			if err := w.expr(arg); err != nil {
				return err
			}
		}

		w.out.write(")")
	case analyzer.HostPrefix:
		w.out.write("(", x.Name)

		if err := w.expr(x.Args[0]); err != nil {
			return err
		}

		w.out.write(")")
	case analyzer.HostNew:
		w.out.write("new ", x.Class, "(")

		if err := w.list(x.Args); err != nil {
			return err
		}

		w.out.write(")")
	case analyzer.HostIndex:
		if _, isLocal := x.Args[0].(analyzer.LocalRef); isLocal {
			if err := w.expr(x.Args[0]); err != nil {
				return err
			}
		} else {
			w.out.write("(")

			if err := w.expr(x.Args[0]); err != nil {
				return err
			}

			w.out.write(")")
		}

		w.out.write("[")

		if err := w.expr(x.Args[1]); err != nil {
			return err
		}

		w.out.write("]")
	default:
		return emitError(x, "host call kind %d", x.Kind)
	}

	return nil
}

// literal writes a form as a PHP value. Symbols and lists only appear as quoted data.
func (w *writer) literal(f form.Form, quoted bool) error {
	switch v := f.(type) {
	case form.Int:
		w.out.write(phpInt(v.Value))
	case form.Float:
		w.out.write(phpFloat(v.Value))
	case form.String:
		w.out.write(phpString(v.Value))
	case form.Bool:
		if v.Value {
			w.out.write("true")
		} else {
			w.out.write("false")
		}
	case form.Nil:
		w.out.write("null")
	case form.Keyword:
		w.out.write(w.runtime("keyword"), "(", phpString(v.Name))

		if v.Namespace != "" {
			w.out.write(", ", phpString(v.Namespace))
		}

		w.out.write(")")
	case form.Symbol:
		if !quoted {
			return diagnostics.Wrap(diagnostics.KindEmit, v.Span(), ErrUnsupportedNode, "unquoted symbol %s", v.FullName())
		}

		w.out.write(w.runtime("symbol"), "(", phpString(v.Name))

		if v.Namespace != "" {
			w.out.write(", ", phpString(v.Namespace))
		}

		w.out.write(")")
	case form.List:
		return w.literalSeq("list", v.Items, quoted)
	case form.Vector:
		return w.literalSeq("vector", v.Items, quoted)
	case form.Map:
		return w.literalSeq("map", v.Items, quoted)
	default:
		return diagnostics.Wrap(diagnostics.KindEmit, f.Span(), ErrUnsupportedNode, "literal %s", form.TypeName(f))
	}

	return nil
}

func (w *writer) literalSeq(ctor string, items []form.Form, quoted bool) error {
	w.out.write(w.runtime(ctor), "(")

	for i, item := range items {
		if i > 0 {
			w.out.write(", ")
		}

		if err := w.literal(item, quoted); err != nil {
			return err
		}
	}

	w.out.write(")")

	return nil
}

package analyzer

import (
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
)

// Node is an analyzed expression. The set of node types is closed; consumers switch on the
// concrete type.
type Node interface {
	Span() diagnostics.Span
	Env() *NodeEnvironment
	node()
}

// Meta carries the span and environment shared by all nodes.
type Meta struct {
	Loc         diagnostics.Span
	Environment *NodeEnvironment
}

// Span returns the source span of the node.
func (m Meta) Span() diagnostics.Span { return m.Loc }

// Env returns the environment the node was analyzed in.
func (m Meta) Env() *NodeEnvironment { return m.Environment }

// Context returns the emission context of the node.
func (m Meta) Context() Context { return m.Environment.Context() }

func meta(f form.Form, env *NodeEnvironment) Meta {
	return Meta{Loc: f.Span(), Environment: env}
}

type (
	// Literal is a self-evaluating value: number, string, boolean, nil or keyword.
	Literal struct {
		Meta
		Value form.Form
	}

	LocalRef struct {
		Meta
		Local *Local
	}

	// GlobalRef reads a namespace definition.
	GlobalRef struct {
		Meta
		Namespace string
		Name      string
	}

	// HostRef is a PHP function used as a value, or a PHP variable when Variable is set.
	HostRef struct {
		Meta
		Name     string
		Variable bool
	}

	// HostCall calls a PHP function or applies a PHP operator.
	HostCall struct {
		Meta
		Name  string
		Kind  HostCallKind
		Class string
		Args  []Node
	}

	Def struct {
		Meta
		Namespace string
		Name      string
		Init      Node
	}

	// DefMacro registers a macro. It has no runtime effect.
	DefMacro struct {
		Meta
		Namespace string
		Name      string
		Macro     *Macro
	}

	// Ns switches the current namespace and loads required namespaces.
	Ns struct {
		Meta
		Name     string
		Requires []string
	}

	Fn struct {
		Meta
		Self     *Local
		Params   []*Local
		Rest     *Local
		Body     Node
		Captures []*Local
		// Recur is set when a recur targets the fn itself.
		Recur *RecurTarget
	}

	// Let binds locals one pair at a time. Captures is set when the let is emitted as an
	// immediately invoked closure.
	Let struct {
		Meta
		Bindings []LetBinding
		Body     Node
		Captures []*Local
		Wrapped  bool
	}

	Do struct {
		Meta
		Statements []Node
		Result     Node
		Captures   []*Local
		Wrapped    bool
	}

	If struct {
		Meta
		Test Node
		Then Node
		Else Node
	}

	Quote struct {
		Meta
		Value form.Form
	}

	// Quasiquote keeps the template next to the code it expanded into.
	Quasiquote struct {
		Meta
		Template  form.Form
		Expansion Node
	}

	Foreach struct {
		Meta
		Key      *Local
		Value    *Local
		Coll     Node
		Body     Node
		Captures []*Local
		Wrapped  bool
	}

	Loop struct {
		Meta
		Bindings []LetBinding
		Body     Node
		Target   *RecurTarget
		Captures []*Local
		Wrapped  bool
	}

	Recur struct {
		Meta
		Target *RecurTarget
		Args   []Node
	}

	Throw struct {
		Meta
		Exception Node
	}

	// MacroExpanded records a macro call and the analyzed result of its expansion.
	MacroExpanded struct {
		Meta
		Call      form.Form
		Macro     *Macro
		Expanded  form.Form
		Expansion Node
	}

	Call struct {
		Meta
		Fn   Node
		Args []Node
	}

	VectorNode struct {
		Meta
		Items []Node
	}

	MapNode struct {
		Meta
		Items []Node
	}
)

// LetBinding is one local and its initializer.
type LetBinding struct {
	Local *Local
	Init  Node
}

// HostCallKind selects how a host call is emitted.
type HostCallKind int

const (
	HostFunction HostCallKind = iota
	HostInfix
	HostPrefix
	HostNew
	HostIndex
)

func (Literal) node()       {}
func (LocalRef) node()      {}
func (GlobalRef) node()     {}
func (HostRef) node()       {}
func (HostCall) node()      {}
func (Def) node()           {}
func (DefMacro) node()      {}
func (Ns) node()            {}
func (Fn) node()            {}
func (Let) node()           {}
func (Do) node()            {}
func (If) node()            {}
func (Quote) node()         {}
func (Quasiquote) node()    {}
func (Foreach) node()       {}
func (Loop) node()          {}
func (Recur) node()         {}
func (Throw) node()         {}
func (MacroExpanded) node() {}
func (Call) node()          {}
func (VectorNode) node()    {}
func (MapNode) node()       {}

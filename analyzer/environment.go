package analyzer

import (
	"github.com/shibukawa/snaplisp/diagnostics"
)

// Context is the position a node is emitted in.
type Context int

const (
	ContextStatement Context = iota
	ContextExpression
	ContextReturn
)

func (c Context) String() string {
	switch c {
	case ContextStatement:
		return "statement"
	case ContextExpression:
		return "expression"
	case ContextReturn:
		return "return"
	default:
		return "unknown"
	}
}

// Local is a lexical binding. Slot is the PHP variable name it is emitted as, without "$".
type Local struct {
	Name string
	Slot string
	Loc  diagnostics.Span

	scope *Scope
}

// Scope is a PHP function body: a fn or an immediately invoked closure. It collects the outer
// locals its body reads, which become the closure's use() list.
type Scope struct {
	parent   *Scope
	captures []*Local
	seen     map[*Local]bool
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, seen: map[*Local]bool{}}
}

// Captures returns the captured locals in first-use order.
func (s *Scope) Captures() []*Local {
	if s == nil {
		return nil
	}

	return s.captures
}

func (s *Scope) capture(l *Local) {
	if !s.seen[l] {
		s.seen[l] = true
		s.captures = append(s.captures, l)
	}
}

// RecurTarget is the loop or fn a recur jumps back to.
type RecurTarget struct {
	Locals []*Local
	used   bool
}

// Used reports whether any recur targets this loop.
func (t *RecurTarget) Used() bool {
	return t != nil && t.used
}

// NodeEnvironment is an immutable link in the lexical scope chain. Deriving an environment
// never modifies the receiver, so nodes can share their parents' chains.
type NodeEnvironment struct {
	parent  *NodeEnvironment
	locals  []*Local
	context Context
	scope   *Scope
	recur   *RecurTarget
	// inMacro is set while analyzing macro bodies at definition time
	inMacro bool
}

// NewEnvironment returns the root environment in statement context.
func NewEnvironment() *NodeEnvironment {
	return &NodeEnvironment{context: ContextStatement}
}

func (e *NodeEnvironment) derive() *NodeEnvironment {
	return &NodeEnvironment{
		parent:  e,
		context: e.context,
		scope:   e.scope,
		recur:   e.recur,
		inMacro: e.inMacro,
	}
}

// Context returns the emission context.
func (e *NodeEnvironment) Context() Context {
	return e.context
}

// WithContext returns a child environment with another context.
func (e *NodeEnvironment) WithContext(c Context) *NodeEnvironment {
	if e.context == c {
		return e
	}

	child := e.derive()
	child.context = c

	return child
}

// WithLocals returns a child environment with one more frame.
func (e *NodeEnvironment) WithLocals(locals ...*Local) *NodeEnvironment {
	child := e.derive()
	child.locals = locals

	for _, l := range locals {
		l.scope = e.scope
	}

	return child
}

// WithScope returns a child environment that starts a new PHP function body. Recur targets
// outside the new body are not reachable from it.
func (e *NodeEnvironment) WithScope() *NodeEnvironment {
	child := e.derive()
	child.scope = newScope(e.scope)
	child.recur = nil

	return child
}

// WithRecurTarget returns a child environment whose recur jumps to target.
func (e *NodeEnvironment) WithRecurTarget(target *RecurTarget) *NodeEnvironment {
	child := e.derive()
	child.recur = target

	return child
}

func (e *NodeEnvironment) withMacroBody() *NodeEnvironment {
	child := e.derive()
	child.inMacro = true

	return child
}

// Scope returns the innermost PHP function body, nil at top level.
func (e *NodeEnvironment) Scope() *Scope {
	return e.scope
}

// RecurTarget returns the innermost reachable recur target.
func (e *NodeEnvironment) RecurTarget() *RecurTarget {
	return e.recur
}

// Lookup finds the innermost local named name.
func (e *NodeEnvironment) Lookup(name string) (*Local, bool) {
	for env := e; env != nil; env = env.parent {
		for i := len(env.locals) - 1; i >= 0; i-- {
			if env.locals[i].Name == name {
				return env.locals[i], true
			}
		}
	}

	return nil, false
}

// slotVisible reports whether any visible local already uses slot.
func (e *NodeEnvironment) slotVisible(slot string) bool {
	for env := e; env != nil; env = env.parent {
		for _, l := range env.locals {
			if l.Slot == slot {
				return true
			}
		}
	}

	return false
}

// reference records that the body of e's scope reads l. Every function body between the
// reference and the binding captures it.
func (e *NodeEnvironment) reference(l *Local) {
	for s := e.scope; s != nil && s != l.scope; s = s.parent {
		s.capture(l)
	}
}

// Package compiler runs the whole pipeline: tokenizer, reader, analyzer and emitter.
package compiler

import (
	"sync"

	"github.com/shibukawa/snaplisp/analyzer"
	"github.com/shibukawa/snaplisp/form"
)

// Session is the state shared by every unit compiled in one process: the namespace registry and
// the gensym counter. Units compiled through the same session see each other's definitions and
// macros.
type Session struct {
	mu       sync.RWMutex
	strict   bool
	registry *analyzer.Registry
	gensym   *form.Gensym
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithStrictMacroConflicts makes redefining a macro as a value (or the reverse) an error.
func WithStrictMacroConflicts(strict bool) SessionOption {
	return func(s *Session) {
		s.strict = strict
	}
}

// NewSession creates a session with a fresh registry.
func NewSession(options ...SessionOption) *Session {
	s := &Session{gensym: &form.Gensym{}}
	for _, opt := range options {
		opt(s)
	}

	s.registry = analyzer.NewRegistry(analyzer.WithStrictConflicts(s.strict))

	return s
}

// Registry returns the current registry.
func (s *Session) Registry() *analyzer.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.registry
}

// Gensym returns the session's symbol generator.
func (s *Session) Gensym() *form.Gensym {
	return s.gensym
}

// Reset drops every namespace and restarts the gensym counter.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry = analyzer.NewRegistry(analyzer.WithStrictConflicts(s.strict))
	s.gensym.Reset()
}

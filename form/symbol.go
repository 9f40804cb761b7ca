package form

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/shibukawa/snaplisp/diagnostics"
)

// Symbol is an identifier, optionally qualified by a namespace.
type Symbol struct {
	Namespace string
	Name      string
	Loc       diagnostics.Span
}

// Keyword is a self-evaluating identifier such as :name or :ns/name.
type Keyword struct {
	Namespace string
	Name      string
	Loc       diagnostics.Span
}

// ParseSymbol splits "ns/name" text into a symbol. A lone "/" and names ending in "/" stay
// unqualified, so "php//" is the symbol "/" in namespace "php".
func ParseSymbol(text string, span diagnostics.Span) Symbol {
	ns, name := splitQualified(text)
	return Symbol{Namespace: ns, Name: name, Loc: span}
}

// ParseKeyword reads keyword text with or without its leading colon.
func ParseKeyword(text string, span diagnostics.Span) Keyword {
	ns, name := splitQualified(strings.TrimPrefix(text, ":"))
	return Keyword{Namespace: ns, Name: name, Loc: span}
}

func splitQualified(text string) (string, string) {
	i := strings.IndexByte(text, '/')
	if i <= 0 || i == len(text)-1 {
		return "", text
	}

	return text[:i], text[i+1:]
}

// Sym builds an unqualified symbol without location.
func Sym(name string) Symbol {
	return Symbol{Name: name}
}

// QualifiedSym builds a qualified symbol without location.
func QualifiedSym(ns, name string) Symbol {
	return Symbol{Namespace: ns, Name: name}
}

// IsQualified reports whether the symbol names a namespace.
func (s Symbol) IsQualified() bool {
	return s.Namespace != ""
}

// FullName returns "ns/name" or "name".
func (s Symbol) FullName() string {
	if s.Namespace == "" {
		return s.Name
	}

	return s.Namespace + "/" + s.Name
}

func (s Symbol) String() string {
	return s.FullName()
}

// Equal compares symbols by namespace and name only.
func (s Symbol) Equal(o Symbol) bool {
	return s.Namespace == o.Namespace && s.Name == o.Name
}

// Is reports whether s is the unqualified symbol name.
func (s Symbol) Is(name string) bool {
	return s.Namespace == "" && s.Name == name
}

// FullName returns "ns/name" or "name".
func (k Keyword) FullName() string {
	if k.Namespace == "" {
		return k.Name
	}

	return k.Namespace + "/" + k.Name
}

func (k Keyword) String() string {
	return ":" + k.FullName()
}

// Equal compares keywords by namespace and name only.
func (k Keyword) Equal(o Keyword) bool {
	return k.Namespace == o.Namespace && k.Name == o.Name
}

// IsSymbol reports whether f is the unqualified symbol name.
func IsSymbol(f Form, name string) bool {
	s, ok := f.(Symbol)
	return ok && s.Is(name)
}

// GensymSeparator joins a gensym prefix and its number. The reader treats ',' as unquote, so
// no source text can spell a generated name.
const GensymSeparator = ","

// Gensym produces symbols that cannot clash with user code. Names are unique per counter until
// Reset is called; after a reset the same sequence is produced again.
type Gensym struct {
	counter atomic.Int64
}

// Next returns a fresh unqualified symbol. prefix defaults to "G".
func (g *Gensym) Next(prefix string) Symbol {
	if prefix == "" {
		prefix = "G"
	}

	n := g.counter.Add(1)

	return Symbol{Name: prefix + GensymSeparator + strconv.FormatInt(n, 10)}
}

// Reset restarts numbering. Call it only when a new compilation begins.
func (g *Gensym) Reset() {
	g.counter.Store(0)
}

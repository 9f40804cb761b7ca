package parser

import (
	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/tokenizer"
)

// Delimiter tells which syntax produced an inner node.
type Delimiter int

const (
	DelimList            Delimiter = iota // ( ... )
	DelimVector                           // [ ... ]
	DelimMap                              // { ... }
	DelimQuote                            // 'x
	DelimQuasiquote                       // `x
	DelimUnquote                          // ,x
	DelimUnquoteSplicing                  // ,@x
)

func (d Delimiter) String() string {
	switch d {
	case DelimList:
		return "list"
	case DelimVector:
		return "vector"
	case DelimMap:
		return "map"
	case DelimQuote:
		return "quote"
	case DelimQuasiquote:
		return "quasiquote"
	case DelimUnquote:
		return "unquote"
	case DelimUnquoteSplicing:
		return "unquote-splicing"
	default:
		return "unknown"
	}
}

// IsQuote reports whether the delimiter is a quote-family prefix.
func (d Delimiter) IsQuote() bool {
	return d >= DelimQuote
}

func delimiterFor(tokenType tokenizer.TokenType) Delimiter {
	switch tokenType {
	case tokenizer.OPENED_BRACKET:
		return DelimVector
	case tokenizer.OPENED_BRACE:
		return DelimMap
	case tokenizer.QUOTE:
		return DelimQuote
	case tokenizer.QUASIQUOTE:
		return DelimQuasiquote
	case tokenizer.UNQUOTE:
		return DelimUnquote
	case tokenizer.UNQUOTE_SPLICING:
		return DelimUnquoteSplicing
	default:
		return DelimList
	}
}

// Node is a parse tree node. The tree keeps every token, so printing all leaves and trivia in
// order reproduces the source.
type Node interface {
	Span() diagnostics.Span
	node()
}

// Leaf is an atom token.
type Leaf struct {
	Token tokenizer.Token
}

// Inner is a delimited collection or a quote-family prefix with its target. For quote-family
// nodes Close is the zero token.
type Inner struct {
	Delim    Delimiter
	Open     tokenizer.Token
	Close    tokenizer.Token
	Children []Node
}

// Trivia is whitespace or a comment.
type Trivia struct {
	Token tokenizer.Token
}

func (Leaf) node()   {}
func (Inner) node()  {}
func (Trivia) node() {}

func (n Leaf) Span() diagnostics.Span   { return n.Token.Span() }
func (n Trivia) Span() diagnostics.Span { return n.Token.Span() }

func (n Inner) Span() diagnostics.Span {
	if n.Delim.IsQuote() {
		span := n.Open.Span()
		for _, child := range n.Children {
			span = span.Union(child.Span())
		}

		return span
	}

	return diagnostics.NewSpan(n.Open.Start, n.Close.End)
}

// Elements returns the children that are not trivia.
func (n Inner) Elements() []Node {
	result := make([]Node, 0, len(n.Children))
	for _, child := range n.Children {
		if _, ok := child.(Trivia); !ok {
			result = append(result, child)
		}
	}

	return result
}

// Tokens flattens a node back into its tokens in source order.
func Tokens(n Node) []tokenizer.Token {
	var result []tokenizer.Token
	appendTokens(&result, n)

	return result
}

func appendTokens(result *[]tokenizer.Token, n Node) {
	switch x := n.(type) {
	case Leaf:
		*result = append(*result, x.Token)
	case Trivia:
		*result = append(*result, x.Token)
	case Inner:
		*result = append(*result, x.Open)
		for _, child := range x.Children {
			appendTokens(result, child)
		}

		if !x.Delim.IsQuote() {
			*result = append(*result, x.Close)
		}
	}
}

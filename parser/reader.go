// Package parser reads tokens into parse trees and lowers them to forms, one top-level form at
// a time.
package parser

import (
	"io"
	"slices"

	pc "github.com/shibukawa/parsercombinator"

	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
	"github.com/shibukawa/snaplisp/tokenizer"
)

var (
	whitespace = primitiveType("whitespace", tokenizer.WHITESPACE)
	comment    = primitiveType("comment", tokenizer.COMMENT)
	// trivia consumes any run of whitespace and comments.
	trivia = pc.ZeroOrMore("comment or space", pc.Or(whitespace, comment))
	atom   = primitiveType("atom", tokenizer.SYMBOL, tokenizer.KEYWORD, tokenizer.STRING,
		tokenizer.NUMBER, tokenizer.BOOLEAN, tokenizer.NIL)
	opener = primitiveType("open", tokenizer.OPENED_PARENS, tokenizer.OPENED_BRACKET, tokenizer.OPENED_BRACE)
	closer = primitiveType("close", tokenizer.CLOSED_PARENS, tokenizer.CLOSED_BRACKET, tokenizer.CLOSED_BRACE)
	quote  = primitiveType("quote", tokenizer.QUOTE, tokenizer.QUASIQUOTE, tokenizer.UNQUOTE, tokenizer.UNQUOTE_SPLICING)
)

func primitiveType(typeName string, types ...tokenizer.TokenType) pc.Parser[tokenizer.Token] {
	return func(pctx *pc.ParseContext[tokenizer.Token], tokens []pc.Token[tokenizer.Token]) (int, []pc.Token[tokenizer.Token], error) {
		if len(tokens) > 0 && slices.Contains(types, tokens[0].Val.Type) {
			return 1, tokens[:1], nil
		}

		return 0, nil, pc.ErrNotMatch
	}
}

func toParserTokens(tokens []tokenizer.Token) []pc.Token[tokenizer.Token] {
	results := make([]pc.Token[tokenizer.Token], len(tokens))

	for i, token := range tokens {
		results[i] = pc.Token[tokenizer.Token]{
			Type: "raw",
			Pos: &pc.Pos{
				Line:  token.Start.Line,
				Col:   token.Start.Column,
				Index: token.Start.Offset,
			},
			Val: token,
			Raw: token.Value,
		}
	}

	return results
}

// ReadResult is one top-level form with the text it was read from.
type ReadResult struct {
	Node    Node
	Form    form.Form
	Snippet diagnostics.CodeSnippet
	// Leading holds the whitespace and comments consumed before the form.
	Leading []tokenizer.Token
}

// Reader reads top-level forms from a token stream.
type Reader struct {
	tokens []pc.Token[tokenizer.Token]
	pctx   *pc.ParseContext[tokenizer.Token]
	pos    int
	// start of the top-level form being read, for snippets
	formStart int
}

// NewReader creates a reader over tokens produced by the tokenizer. A trailing EOF token is
// optional.
func NewReader(tokens []tokenizer.Token) *Reader {
	if n := len(tokens); n > 0 && tokens[n-1].Type == tokenizer.EOF {
		tokens = tokens[:n-1]
	}

	return &Reader{
		tokens: toParserTokens(tokens),
		pctx:   pc.NewParseContext[tokenizer.Token](),
	}
}

// NewStringReader lexes input and returns a reader over it.
func NewStringReader(input, source string, startLine int) (*Reader, error) {
	tokens, err := tokenizer.Tokenize(input, source, startLine)
	if err != nil {
		return nil, err
	}

	return NewReader(tokens), nil
}

// ReadNext reads the next top-level form. It returns io.EOF when only trivia remains.
func (r *Reader) ReadNext() (*ReadResult, error) {
	leading := r.skipTrivia()

	if r.pos >= len(r.tokens) {
		return nil, io.EOF
	}

	r.formStart = r.pos

	node, err := r.readNode()
	if err != nil {
		return nil, err
	}

	snippet := r.snippet(r.formStart, r.pos)

	f, err := Lower(node)
	if err != nil {
		if located, ok := diagnostics.AsError(err); ok && located.Snippet == nil {
			located.WithSnippet(snippet)
		}

		return nil, err
	}

	return &ReadResult{
		Node:    node,
		Form:    f,
		Snippet: snippet,
		Leading: leading,
	}, nil
}

// ReadAll reads every remaining top-level form.
func (r *Reader) ReadAll() ([]*ReadResult, error) {
	var results []*ReadResult

	for {
		result, err := r.ReadNext()
		if err == io.EOF {
			return results, nil
		}

		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}
}

// ReadString lexes and reads every form in input.
func ReadString(input, source string, startLine int) ([]*ReadResult, error) {
	r, err := NewStringReader(input, source, startLine)
	if err != nil {
		return nil, err
	}

	return r.ReadAll()
}

// ParseFile parses a whole token stream into top-level nodes, keeping trivia between them.
func ParseFile(tokens []tokenizer.Token) ([]Node, error) {
	r := NewReader(tokens)

	var nodes []Node

	for {
		for _, token := range r.skipTrivia() {
			nodes = append(nodes, Trivia{Token: token})
		}

		if r.pos >= len(r.tokens) {
			return nodes, nil
		}

		r.formStart = r.pos

		node, err := r.readNode()
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}
}

func (r *Reader) skipTrivia() []tokenizer.Token {
	consumed, matched, err := trivia(r.pctx, r.tokens[r.pos:])
	if err != nil || consumed == 0 {
		return nil
	}

	r.pos += consumed

	result := make([]tokenizer.Token, 0, len(matched))
	for _, m := range matched {
		result = append(result, m.Val)
	}

	return result
}

func (r *Reader) match(p pc.Parser[tokenizer.Token]) bool {
	consumed, _, err := p(r.pctx, r.tokens[r.pos:])
	return err == nil && consumed > 0
}

func (r *Reader) current() tokenizer.Token {
	return r.tokens[r.pos].Val
}

// readNode reads one node starting at a non-trivia token.
func (r *Reader) readNode() (Node, error) {
	token := r.current()

	switch {
	case r.match(atom):
		r.pos++
		return Leaf{Token: token}, nil
	case r.match(opener):
		return r.readCollection()
	case r.match(quote):
		return r.readQuoted()
	case r.match(closer):
		r.pos++
		return nil, r.errorAt(diagnostics.KindUnexpectedToken, token.Span(), "unexpected '%s'", token.Value)
	default:
		r.pos++
		return nil, r.errorAt(diagnostics.KindUnexpectedToken, token.Span(), "unexpected %s", token.Type)
	}
}

func (r *Reader) readCollection() (Node, error) {
	open := r.current()
	r.pos++

	inner := Inner{
		Delim: delimiterFor(open.Type),
		Open:  open,
	}
	want := open.Type.Closer()

	for {
		for _, token := range r.skipTrivia() {
			inner.Children = append(inner.Children, Trivia{Token: token})
		}

		if r.pos >= len(r.tokens) {
			return nil, r.errorAt(diagnostics.KindUnfinishedParse, open.Span(), "'%s' is never closed", open.Value)
		}

		token := r.current()
		if token.Type == want {
			r.pos++
			inner.Close = token

			return inner, nil
		}

		if r.match(closer) {
			r.pos++
			return nil, r.errorAt(diagnostics.KindUnexpectedToken, token.Span(),
				"unexpected '%s' while reading %s opened at %s", token.Value, inner.Delim, open.Start)
		}

		child, err := r.readNode()
		if err != nil {
			return nil, err
		}

		inner.Children = append(inner.Children, child)
	}
}

func (r *Reader) readQuoted() (Node, error) {
	marker := r.current()
	r.pos++

	inner := Inner{
		Delim: delimiterFor(marker.Type),
		Open:  marker,
	}

	for _, token := range r.skipTrivia() {
		inner.Children = append(inner.Children, Trivia{Token: token})
	}

	if r.pos >= len(r.tokens) || r.match(closer) {
		return nil, r.errorAt(diagnostics.KindNotValidQuote, marker.Span(), "'%s' must be followed by a form", marker.Value)
	}

	child, err := r.readNode()
	if err != nil {
		return nil, err
	}

	inner.Children = append(inner.Children, child)

	return inner, nil
}

// errorAt builds a located error with the snippet of the enclosing top-level form read so far.
func (r *Reader) errorAt(kind diagnostics.Kind, span diagnostics.Span, format string, args ...any) error {
	end := min(max(r.pos, r.formStart+1), len(r.tokens))
	return diagnostics.New(kind, span, format, args...).WithSnippet(r.snippet(r.formStart, end))
}

func (r *Reader) snippet(from, to int) diagnostics.CodeSnippet {
	if from >= to || from >= len(r.tokens) {
		return diagnostics.CodeSnippet{}
	}

	raw := make([]byte, 0, 128)
	for _, token := range r.tokens[from:to] {
		raw = append(raw, token.Raw...)
	}

	return diagnostics.CodeSnippet{
		Start: r.tokens[from].Val.Start,
		End:   r.tokens[to-1].Val.End,
		Text:  string(raw),
	}
}

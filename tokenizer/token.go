package tokenizer

import (
	"errors"

	"github.com/shibukawa/snaplisp/diagnostics"
)

// Sentinel errors
var (
	ErrUnterminatedString  = errors.New("unterminated string literal")
	ErrUnterminatedComment = errors.New("unterminated block comment")
	ErrInvalidEscape       = errors.New("invalid escape sequence")
	ErrInvalidNumber       = errors.New("invalid number format")
	ErrEmptyKeyword        = errors.New("keyword without a name")
	ErrUnexpectedCharacter = errors.New("unexpected character")
)

// TokenType represents the type of a token
type TokenType int

const (
	EOF TokenType = iota
	WHITESPACE
	COMMENT

	OPENED_PARENS  // (
	CLOSED_PARENS  // )
	OPENED_BRACKET // [
	CLOSED_BRACKET // ]
	OPENED_BRACE   // {
	CLOSED_BRACE   // }

	QUOTE            // '
	QUASIQUOTE       // `
	UNQUOTE          // ,
	UNQUOTE_SPLICING // ,@

	SYMBOL
	KEYWORD // :name
	STRING  // "text"
	NUMBER
	BOOLEAN // true, false
	NIL     // nil
)

// String returns the string representation of TokenType
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case WHITESPACE:
		return "WHITESPACE"
	case COMMENT:
		return "COMMENT"
	case OPENED_PARENS:
		return "OPENED_PARENS"
	case CLOSED_PARENS:
		return "CLOSED_PARENS"
	case OPENED_BRACKET:
		return "OPENED_BRACKET"
	case CLOSED_BRACKET:
		return "CLOSED_BRACKET"
	case OPENED_BRACE:
		return "OPENED_BRACE"
	case CLOSED_BRACE:
		return "CLOSED_BRACE"
	case QUOTE:
		return "QUOTE"
	case QUASIQUOTE:
		return "QUASIQUOTE"
	case UNQUOTE:
		return "UNQUOTE"
	case UNQUOTE_SPLICING:
		return "UNQUOTE_SPLICING"
	case SYMBOL:
		return "SYMBOL"
	case KEYWORD:
		return "KEYWORD"
	case STRING:
		return "STRING"
	case NUMBER:
		return "NUMBER"
	case BOOLEAN:
		return "BOOLEAN"
	case NIL:
		return "NIL"
	default:
		return "UNKNOWN"
	}
}

// IsTrivia reports whether tokens of this type carry no meaning for the reader.
func (t TokenType) IsTrivia() bool {
	return t == WHITESPACE || t == COMMENT
}

// IsOpen reports whether the type opens a collection.
func (t TokenType) IsOpen() bool {
	return t == OPENED_PARENS || t == OPENED_BRACKET || t == OPENED_BRACE
}

// IsClose reports whether the type closes a collection.
func (t TokenType) IsClose() bool {
	return t == CLOSED_PARENS || t == CLOSED_BRACKET || t == CLOSED_BRACE
}

// IsQuoteMarker reports whether the type is one of the quote-family prefixes.
func (t TokenType) IsQuoteMarker() bool {
	return t == QUOTE || t == QUASIQUOTE || t == UNQUOTE || t == UNQUOTE_SPLICING
}

// IsAtom reports whether the type is a self-contained value token.
func (t TokenType) IsAtom() bool {
	switch t {
	case SYMBOL, KEYWORD, STRING, NUMBER, BOOLEAN, NIL:
		return true
	default:
		return false
	}
}

// Closer returns the closing type matching an opening type.
func (t TokenType) Closer() TokenType {
	switch t {
	case OPENED_PARENS:
		return CLOSED_PARENS
	case OPENED_BRACKET:
		return CLOSED_BRACKET
	case OPENED_BRACE:
		return CLOSED_BRACE
	default:
		return EOF
	}
}

// Token represents a token. Start is the location of the first character, End the location
// just after the last one.
type Token struct {
	Type  TokenType
	Value string
	Start diagnostics.Location
	End   diagnostics.Location
}

// Span returns the source range covered by the token.
func (t Token) Span() diagnostics.Span {
	return diagnostics.NewSpan(t.Start, t.End)
}

// String returns the string representation of Token
func (t Token) String() string {
	return t.Type.String() + ": " + t.Value
}

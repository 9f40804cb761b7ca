package tokenizer

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shibukawa/snaplisp/diagnostics"
)

// TokenIterator uses Go 1.24 iterator pattern
type TokenIterator iter.Seq2[Token, error]

// Tokenizer is a tokenizer that returns an iterator
type Tokenizer struct {
	input     string
	source    string
	startLine int
	options   TokenizerOptions
}

// TokenizerOptions are options for the tokenizer
type TokenizerOptions struct {
	SkipWhitespace bool
	SkipComments   bool
}

// NewTokenizer creates a new Tokenizer. startLine is the line number of the first line of input,
// used when the text is embedded in a larger file.
func NewTokenizer(input, source string, startLine int, options ...TokenizerOptions) *Tokenizer {
	opts := TokenizerOptions{}
	if len(options) > 0 {
		opts = options[0]
	}

	if startLine < 1 {
		startLine = 1
	}

	return &Tokenizer{
		input:     input,
		source:    source,
		startLine: startLine,
		options:   opts,
	}
}

// Tokens returns an iterator of tokens. The final token is EOF. Lexing stops after the first
// error; the error is yielded once and the iterator ends.
func (t *Tokenizer) Tokens() TokenIterator {
	return func(yield func(Token, error) bool) {
		s := newScanner(t.input, t.source, t.startLine)

		for {
			token, err := s.nextToken()
			if err != nil {
				yield(Token{}, err)
				return
			}

			if token.Type == EOF {
				yield(token, nil)
				return
			}

			// Filtering based on options
			if t.options.SkipWhitespace && token.Type == WHITESPACE {
				continue
			}

			if t.options.SkipComments && token.Type == COMMENT {
				continue
			}

			if !yield(token, nil) {
				return
			}
		}
	}
}

// AllTokens gets all tokens as a slice, including the trailing EOF.
func (t *Tokenizer) AllTokens() ([]Token, error) {
	tokens := make([]Token, 0, 64)

	for token, err := range t.Tokens() {
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, token)
	}

	return tokens, nil
}

// Tokenize lexes a whole unit, keeping whitespace and comments.
func Tokenize(input, source string, startLine int) ([]Token, error) {
	return NewTokenizer(input, source, startLine).AllTokens()
}

// Concat re-assembles the source text from tokens.
func Concat(tokens []Token) string {
	var b strings.Builder
	for _, token := range tokens {
		b.WriteString(token.Value)
	}

	return b.String()
}

var (
	decimalNumber = regexp.MustCompile(`^[+-]?[0-9](?:_?[0-9])*(?:\.[0-9](?:_?[0-9])*)?(?:[eE][+-]?[0-9]+)?$`)
	hexNumber     = regexp.MustCompile(`^[+-]?0x[0-9a-fA-F](?:_?[0-9a-fA-F])*$`)
	binaryNumber  = regexp.MustCompile(`^[+-]?0b[01](?:_?[01])*$`)
	octalNumber   = regexp.MustCompile(`^[+-]?0o[0-7](?:_?[0-7])*$`)
)

// Internal scanner implementation
type scanner struct {
	input   string
	source  string
	pos     int
	line    int
	column  int
	current rune
	width   int
}

func newScanner(input, source string, startLine int) *scanner {
	s := &scanner{
		input:  input,
		source: source,
		line:   startLine,
		column: 1,
	}
	s.decode()

	return s
}

func (s *scanner) atEOF() bool {
	return s.pos >= len(s.input)
}

func (s *scanner) decode() {
	if s.atEOF() {
		s.current, s.width = 0, 0
		return
	}

	s.current, s.width = utf8.DecodeRuneInString(s.input[s.pos:])
}

// readChar moves to the next character
func (s *scanner) readChar() {
	if s.atEOF() {
		return
	}

	if s.current == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}

	s.pos += s.width
	s.decode()
}

// peekChar looks ahead at the next character
func (s *scanner) peekChar() rune {
	next := s.pos + s.width
	if next >= len(s.input) {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(s.input[next:])

	return r
}

func (s *scanner) location() diagnostics.Location {
	return diagnostics.Location{
		Source: s.source,
		Line:   s.line,
		Column: s.column,
		Offset: s.pos,
	}
}

func (s *scanner) tokenFrom(tokenType TokenType, start diagnostics.Location) Token {
	return Token{
		Type:  tokenType,
		Value: s.input[start.Offset:s.pos],
		Start: start,
		End:   s.location(),
	}
}

func (s *scanner) errorAt(start diagnostics.Location, cause error, format string, args ...any) error {
	return diagnostics.Wrap(diagnostics.KindLex, diagnostics.NewSpan(start, s.location()), cause, format, args...)
}

// nextToken gets the next token
func (s *scanner) nextToken() (Token, error) {
	start := s.location()

	if s.atEOF() {
		return Token{Type: EOF, Start: start, End: start}, nil
	}

	switch s.current {
	case ' ', '\t', '\r', '\n':
		for !s.atEOF() && isWhitespace(s.current) {
			s.readChar()
		}

		return s.tokenFrom(WHITESPACE, start), nil
	case ';':
		s.skipLine()
		return s.tokenFrom(COMMENT, start), nil
	case '#':
		if s.peekChar() == '|' {
			return s.readBlockComment(start)
		}

		s.skipLine()

		return s.tokenFrom(COMMENT, start), nil
	case '(':
		return s.single(OPENED_PARENS, start), nil
	case ')':
		return s.single(CLOSED_PARENS, start), nil
	case '[':
		return s.single(OPENED_BRACKET, start), nil
	case ']':
		return s.single(CLOSED_BRACKET, start), nil
	case '{':
		return s.single(OPENED_BRACE, start), nil
	case '}':
		return s.single(CLOSED_BRACE, start), nil
	case '\'':
		return s.single(QUOTE, start), nil
	case '`':
		return s.single(QUASIQUOTE, start), nil
	case ',':
		if s.peekChar() == '@' {
			s.readChar()
			s.readChar()

			return s.tokenFrom(UNQUOTE_SPLICING, start), nil
		}

		return s.single(UNQUOTE, start), nil
	case '"':
		return s.readString(start)
	case ':':
		s.readChar()
		s.readSymbolRun()

		if s.pos-start.Offset == 1 {
			return Token{}, s.errorAt(start, ErrEmptyKeyword, "unexpected ':'")
		}

		return s.tokenFrom(KEYWORD, start), nil
	}

	if isDigit(s.current) || ((s.current == '+' || s.current == '-') && isDigit(s.peekChar())) {
		return s.readNumber(start)
	}

	s.readSymbolRun()

	if s.pos == start.Offset {
		bad := s.current
		s.readChar()

		return Token{}, s.errorAt(start, fmt.Errorf("%w %U", ErrUnexpectedCharacter, bad), "outside of a string")
	}

	token := s.tokenFrom(SYMBOL, start)

	switch token.Value {
	case "true", "false":
		token.Type = BOOLEAN
	case "nil":
		token.Type = NIL
	}

	return token, nil
}

func (s *scanner) single(tokenType TokenType, start diagnostics.Location) Token {
	s.readChar()
	return s.tokenFrom(tokenType, start)
}

func (s *scanner) skipLine() {
	for !s.atEOF() && s.current != '\n' {
		s.readChar()
	}
}

func (s *scanner) readSymbolRun() {
	for !s.atEOF() && isSymbolChar(s.current) {
		s.readChar()
	}
}

// readBlockComment reads #| ... |# comments
func (s *scanner) readBlockComment(start diagnostics.Location) (Token, error) {
	s.readChar()
	s.readChar()

	for !s.atEOF() {
		if s.current == '|' && s.peekChar() == '#' {
			s.readChar()
			s.readChar()

			return s.tokenFrom(COMMENT, start), nil
		}

		s.readChar()
	}

	return Token{}, s.errorAt(start, ErrUnterminatedComment, "comment opened here is never closed")
}

// readString reads string literals. The token value keeps the quotes and escapes verbatim.
func (s *scanner) readString(start diagnostics.Location) (Token, error) {
	s.readChar() // opening quote

	for !s.atEOF() && s.current != '"' {
		if s.current != '\\' {
			s.readChar()
			continue
		}

		escapeStart := s.location()
		s.readChar()

		if s.atEOF() {
			break
		}

		switch s.current {
		case '"', '\\', 'n', 't', 'r', '$', '0', 'e', 'f', 'v':
			s.readChar()
		case 'u':
			if err := s.readUnicodeEscape(escapeStart); err != nil {
				return Token{}, err
			}
		default:
			bad := s.current
			s.readChar()

			return Token{}, diagnostics.Wrap(diagnostics.KindLex, diagnostics.NewSpan(escapeStart, s.location()),
				fmt.Errorf("%w \\%c", ErrInvalidEscape, bad), "in string literal")
		}
	}

	if s.atEOF() {
		return Token{}, s.errorAt(start, ErrUnterminatedString, "string opened here is never closed")
	}

	s.readChar() // closing quote

	return s.tokenFrom(STRING, start), nil
}

// readUnicodeEscape reads the u{XXXX} part of a \u{XXXX} escape
func (s *scanner) readUnicodeEscape(escapeStart diagnostics.Location) error {
	s.readChar() // u

	if s.current != '{' {
		return diagnostics.Wrap(diagnostics.KindLex, diagnostics.NewSpan(escapeStart, s.location()),
			fmt.Errorf("%w \\u without '{'", ErrInvalidEscape), "in string literal")
	}

	s.readChar()
	digits := 0
	code := rune(0)

	for !s.atEOF() && isHexDigit(s.current) {
		digits++
		if digits <= 6 {
			code = code<<4 | hexValue(s.current)
		}
		s.readChar()
	}

	if digits == 0 || digits > 6 || s.current != '}' {
		return diagnostics.Wrap(diagnostics.KindLex, diagnostics.NewSpan(escapeStart, s.location()),
			fmt.Errorf("%w \\u{...}", ErrInvalidEscape), "in string literal")
	}

	s.readChar()

	// surrogates and values past U+10FFFF have no UTF-8 encoding
	if !utf8.ValidRune(code) {
		return diagnostics.Wrap(diagnostics.KindLex, diagnostics.NewSpan(escapeStart, s.location()),
			fmt.Errorf("%w \\u{%X}", ErrInvalidEscape, code), "code point outside of Unicode scalar values")
	}

	return nil
}

// readNumber reads numeric literals. The whole run of symbol characters is consumed so that
// inputs like 12abc are rejected instead of being split into two tokens.
func (s *scanner) readNumber(start diagnostics.Location) (Token, error) {
	s.readChar()

	for !s.atEOF() && (isSymbolChar(s.current) || s.current == '.') {
		s.readChar()
	}

	token := s.tokenFrom(NUMBER, start)
	if !IsValidNumber(token.Value) {
		return Token{}, s.errorAt(start, fmt.Errorf("%w: %q", ErrInvalidNumber, token.Value), "in numeric literal")
	}

	return token, nil
}

// IsValidNumber reports whether text is a well-formed numeric literal.
func IsValidNumber(text string) bool {
	return decimalNumber.MatchString(text) ||
		hexNumber.MatchString(text) ||
		binaryNumber.MatchString(text) ||
		octalNumber.MatchString(text)
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func hexValue(r rune) rune {
	switch {
	case r >= 'a':
		return r - 'a' + 10
	case r >= 'A':
		return r - 'A' + 10
	default:
		return r - '0'
	}
}

func isSymbolChar(r rune) bool {
	if isWhitespace(r) {
		return false
	}

	switch r {
	case '(', ')', '[', ']', '{', '}', '"', '\'', '`', ',', ';':
		return false
	}

	return r != 0
}

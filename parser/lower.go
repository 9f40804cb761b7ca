package parser

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shibukawa/snaplisp/diagnostics"
	"github.com/shibukawa/snaplisp/form"
	"github.com/shibukawa/snaplisp/tokenizer"
)

// Sentinel errors
var (
	ErrOddMap        = errors.New("map literal needs an even number of forms")
	ErrInvalidString = errors.New("invalid string literal")
	ErrInvalidNumber = errors.New("invalid number literal")
)

// Lower turns a parse tree into a form. Trivia is dropped.
func Lower(n Node) (form.Form, error) {
	switch x := n.(type) {
	case Leaf:
		return lowerAtom(x.Token)
	case Inner:
		return lowerInner(x)
	case Trivia:
		return nil, diagnostics.New(diagnostics.KindParse, x.Span(), "trivia has no form")
	default:
		return nil, fmt.Errorf("%w: unknown node %T", diagnostics.ErrParse, n)
	}
}

func lowerInner(n Inner) (form.Form, error) {
	elements := n.Elements()
	items := make([]form.Form, 0, len(elements))

	for _, element := range elements {
		f, err := Lower(element)
		if err != nil {
			return nil, err
		}

		items = append(items, f)
	}

	span := n.Span()

	switch n.Delim {
	case DelimList:
		return form.List{Items: items, Loc: span}, nil
	case DelimVector:
		return form.Vector{Items: items, Loc: span}, nil
	case DelimMap:
		if len(items)%2 != 0 {
			return nil, diagnostics.Wrap(diagnostics.KindParse, span, ErrOddMap, "got %d forms", len(items))
		}

		return form.Map{Items: items, Loc: span}, nil
	default:
		head := form.Symbol{Name: n.Delim.String(), Loc: n.Open.Span()}
		return form.List{Items: append([]form.Form{head}, items...), Loc: span}, nil
	}
}

func lowerAtom(token tokenizer.Token) (form.Form, error) {
	span := token.Span()

	switch token.Type {
	case tokenizer.SYMBOL:
		return form.ParseSymbol(token.Value, span), nil
	case tokenizer.KEYWORD:
		return form.ParseKeyword(token.Value, span), nil
	case tokenizer.BOOLEAN:
		return form.Bool{Value: token.Value == "true", Loc: span}, nil
	case tokenizer.NIL:
		return form.Nil{Loc: span}, nil
	case tokenizer.STRING:
		value, err := UnquoteString(token.Value)
		if err != nil {
			return nil, diagnostics.Wrap(diagnostics.KindParse, span, err, "in string literal")
		}

		return form.String{Value: value, Loc: span}, nil
	case tokenizer.NUMBER:
		f, err := ParseNumber(token.Value, span)
		if err != nil {
			return nil, diagnostics.Wrap(diagnostics.KindParse, span, err, "in number literal")
		}

		return f, nil
	default:
		return nil, diagnostics.New(diagnostics.KindUnexpectedToken, span, "unexpected %s", token.Type)
	}
}

// ParseNumber converts numeric literal text. Literals with a decimal point or exponent are floats,
// others integers; integers that do not fit in 64 bits become floats.
func ParseNumber(text string, span diagnostics.Span) (form.Form, error) {
	clean := strings.ReplaceAll(text, "_", "")

	sign := ""
	digits := clean

	if strings.HasPrefix(digits, "+") || strings.HasPrefix(digits, "-") {
		sign, digits = digits[:1], digits[1:]
	}

	base := 10

	switch {
	case strings.HasPrefix(digits, "0x"):
		base, digits = 16, digits[2:]
	case strings.HasPrefix(digits, "0b"):
		base, digits = 2, digits[2:]
	case strings.HasPrefix(digits, "0o"):
		base, digits = 8, digits[2:]
	case strings.ContainsAny(digits, ".eE"):
		d, err := decimal.NewFromString(sign + digits)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidNumber, text, err)
		}

		v, _ := d.Float64()

		return form.Float{Value: v, Loc: span}, nil
	}

	v, err := strconv.ParseInt(sign+digits, base, 64)
	if err == nil {
		return form.Int{Value: v, Loc: span}, nil
	}

	if !errors.Is(err, strconv.ErrRange) {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidNumber, text, err)
	}

	n, ok := new(big.Int).SetString(sign+digits, base)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrInvalidNumber, text)
	}

	f, _ := new(big.Float).SetInt(n).Float64()

	return form.Float{Value: f, Loc: span}, nil
}

// UnquoteString decodes a string token including its surrounding quotes.
func UnquoteString(raw string) (string, error) {
	if len(raw) < 2 || raw[0] != '"' || raw[len(raw)-1] != '"' {
		return "", fmt.Errorf("%w: %s", ErrInvalidString, raw)
	}

	body := raw[1 : len(raw)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}

	var b strings.Builder

	b.Grow(len(body))

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}

		i++
		if i >= len(body) {
			return "", fmt.Errorf("%w: trailing backslash", ErrInvalidString)
		}

		switch body[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '$':
			b.WriteByte('$')
		case '0':
			b.WriteByte(0)
		case 'e':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'u':
			end := strings.IndexByte(body[i:], '}')
			if end < 0 || i+1 >= len(body) || body[i+1] != '{' {
				return "", fmt.Errorf("%w: bad \\u escape", ErrInvalidString)
			}

			code, err := strconv.ParseUint(body[i+2:i+end], 16, 32)
			if err != nil {
				return "", fmt.Errorf("%w: bad \\u escape: %w", ErrInvalidString, err)
			}

			b.WriteRune(rune(code))
			i += end
		default:
			return "", fmt.Errorf("%w: unknown escape \\%c", ErrInvalidString, body[i])
		}
	}

	return b.String(), nil
}

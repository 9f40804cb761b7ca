package emitter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// phpString renders s as a double-quoted PHP string literal.
func phpString(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '$':
			b.WriteString(`\$`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\v':
			b.WriteString(`\v`)
		case '\f':
			b.WriteString(`\f`)
		case 0x1b:
			b.WriteString(`\e`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02X`, r)
				continue
			}

			b.WriteRune(r)
		}
	}

	b.WriteByte('"')

	return b.String()
}

func phpInt(v int64) string {
	if v == math.MinInt64 {
		return "PHP_INT_MIN"
	}

	return strconv.FormatInt(v, 10)
}

// phpFloat renders a float that PHP reads back as a float.
func phpFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "INF"
	case math.IsInf(v, -1):
		return "-INF"
	case math.IsNaN(v):
		return "NAN"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e21 || abs < 1e-7) {
		return strconv.FormatFloat(v, 'E', -1, 64)
	}

	s := decimal.NewFromFloat(v).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	if s == "0.0" && math.Signbit(v) {
		s = "-0.0"
	}

	return s
}

// phpNamespace maps a dotted namespace such as "app.http-util" to "App\HttpUtil", under prefix.
func phpNamespace(prefix, ns string) string {
	var segments []string

	title := cases.Title(language.Und)

	if prefix = strings.Trim(prefix, `\`); prefix != "" {
		segments = append(segments, prefix)
	}

	for _, segment := range strings.FieldsFunc(ns, func(r rune) bool { return r == '.' || r == '\\' }) {
		var b strings.Builder

		words := strings.FieldsFunc(segment, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			b.WriteString(title.String(word))
		}

		name := b.String()
		if name == "" {
			continue
		}

		if unicode.IsDigit(rune(name[0])) {
			name = "_" + name
		}

		segments = append(segments, name)
	}

	return strings.Join(segments, `\`)
}

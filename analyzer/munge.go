package analyzer

import (
	"strings"
)

var mungeTable = map[rune]string{
	'-':  "_",
	'?':  "_QMARK_",
	'!':  "_BANG_",
	'*':  "_STAR_",
	'+':  "_PLUS_",
	'>':  "_GT_",
	'<':  "_LT_",
	'=':  "_EQ_",
	'/':  "_SLASH_",
	'.':  "_DOT_",
	'&':  "_AMP_",
	'%':  "_PERCENT_",
	'$':  "_DOLLAR_",
	':':  "_COLON_",
	'#':  "_HASH_",
	'|':  "_BAR_",
	'@':  "_AT_",
	'^':  "_CARET_",
	'~':  "_TILDE_",
	'\\': "_BSLASH_",
	',':  "__",
}

var reservedVariables = map[string]bool{
	"this":     true,
	"GLOBALS":  true,
	"_SERVER":  true,
	"_GET":     true,
	"_POST":    true,
	"_FILES":   true,
	"_COOKIE":  true,
	"_SESSION": true,
	"_REQUEST": true,
	"_ENV":     true,
}

// Munge converts a symbol name into a valid PHP variable name (without the leading $).
// foo-bar? becomes foo_bar_QMARK_.
func Munge(name string) string {
	var b strings.Builder

	for i, r := range name {
		if replacement, ok := mungeTable[r]; ok {
			b.WriteString(replacement)
			continue
		}

		if i == 0 && r >= '0' && r <= '9' {
			b.WriteByte('_')
		}

		b.WriteRune(r)
	}

	munged := b.String()
	if munged == "" || reservedVariables[munged] {
		munged += "_"
	}

	return munged
}

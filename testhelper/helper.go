// Package testhelper holds helpers shared by package tests.
package testhelper

import (
	"regexp"
	"strings"
	"testing"
)

var leadingTabs = regexp.MustCompile(`^(\t+)`)

// TrimIndent lets test sources be written as raw strings indented along with the test code.
// It drops the leading newline, removes the indent of the first non-blank line from every
// line and turns remaining leading tabs into two spaces each.
func TrimIndent(t *testing.T, src string) string {
	t.Helper()

	lines := strings.Split(strings.TrimPrefix(src, "\n"), "\n")

	var indent string

	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			indent = line[:len(line)-len(strings.TrimLeft(line, " \t"))]
			break
		}
	}

	for i, line := range lines {
		line = strings.TrimPrefix(line, indent)
		lines[i] = leadingTabs.ReplaceAllStringFunc(line, func(match string) string {
			return strings.Repeat("  ", len(match))
		})
	}

	// the closing backtick sits on its own indented line
	if last := len(lines) - 1; strings.TrimSpace(lines[last]) == "" {
		lines[last] = ""
	}

	return strings.Join(lines, "\n")
}

package sourcemap

import (
	"errors"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name     string
		values   []int
		expected string
	}{
		{name: "zeros", values: []int{0, 0, 0, 0}, expected: "AAAA"},
		{name: "minus one", values: []int{-1}, expected: "D"},
		{name: "max int32", values: []int{math.MaxInt32}, expected: "+/////D"},
		{name: "small", values: []int{1, 15, 16}, expected: "CegB"},
		{name: "empty", values: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Encode(tt.values...))
		})
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	values := []int{0, 1, -1, 15, -16, 31, 1000, -1000, math.MaxInt32, math.MinInt32, math.MinInt32 + 1}

	for _, v := range values {
		decoded, err := Decode(Encode(v))
		assert.NoError(t, err)
		assert.Equal(t, []int{v}, decoded)
	}

	decoded, err := Decode(Encode(values...))
	assert.NoError(t, err)
	assert.Equal(t, values, decoded)

	empty, err := Decode("")
	assert.NoError(t, err)
	assert.Equal(t, 0, len(empty))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		input string
		err   error
	}{
		{input: "g", err: ErrUnterminatedVLQ},
		{input: "A!", err: ErrInvalidBase64},
		{input: "A=", err: ErrInvalidBase64},
		{input: "gggggggB", err: ErrVLQOverflow},
		{input: "ggggggE", err: ErrVLQOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Decode(tt.input)
			assert.True(t, errors.Is(err, tt.err), "got %v", err)
		})
	}
}

func TestBuilderAndConsumer(t *testing.T) {
	b := NewBuilder("main.php")
	b.AddMapping(Mapping{GeneratedLine: 0, GeneratedColumn: 0, Source: "main.lisp", OriginalLine: 0, OriginalColumn: 0})
	b.AddMapping(Mapping{GeneratedLine: 0, GeneratedColumn: 0, Source: "main.lisp", OriginalLine: 0, OriginalColumn: 0})
	b.AddMapping(Mapping{GeneratedLine: 0, GeneratedColumn: 8, Source: "main.lisp", OriginalLine: 0, OriginalColumn: 4, Name: "foo"})
	b.AddMapping(Mapping{GeneratedLine: 2, GeneratedColumn: 2, Source: "lib.lisp", OriginalLine: 9, OriginalColumn: 1})
	b.SetSourceContent("main.lisp", "(foo)")

	m := b.Build()
	assert.Equal(t, Version, m.Version)
	assert.Equal(t, []string{"main.lisp", "lib.lisp"}, m.Sources)
	assert.Equal(t, []string{"foo"}, m.Names)
	assert.Equal(t, []string{"(foo)", ""}, m.SourcesContent)
	assert.Equal(t, "AAAA,QAAIA;;ECSH", m.Mappings)

	data, err := m.Marshal()
	assert.NoError(t, err)

	c, err := ParseConsumer(data)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(c.Mappings()))

	tests := []struct {
		name   string
		line   int
		column int
		pos    Position
		found  bool
	}{
		{name: "exact", line: 1, column: 1, pos: Position{Source: "main.lisp", Line: 1, Column: 1}, found: true},
		{name: "between segments", line: 1, column: 5, pos: Position{Source: "main.lisp", Line: 1, Column: 1}, found: true},
		{name: "named", line: 1, column: 20, pos: Position{Source: "main.lisp", Line: 1, Column: 5, Name: "foo"}, found: true},
		{name: "empty line", line: 2, column: 1},
		{name: "before first segment", line: 3, column: 1},
		{name: "second source", line: 3, column: 3, pos: Position{Source: "lib.lisp", Line: 10, Column: 2}, found: true},
		{name: "past the end", line: 9, column: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, found := c.OriginalPositionFor(tt.line, tt.column)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.pos, pos)
		})
	}
}

func TestDecodeMappingsRoundTrip(t *testing.T) {
	sources := []string{"a.lisp", "b.lisp"}
	names := []string{"x", "y"}
	mappings := []Mapping{
		{GeneratedLine: 0, GeneratedColumn: 3, Source: "a.lisp", OriginalLine: 4, OriginalColumn: 2},
		{GeneratedLine: 0, GeneratedColumn: 10},
		{GeneratedLine: 1, GeneratedColumn: 0, Source: "b.lisp", OriginalLine: 0, OriginalColumn: 0, Name: "y"},
		{GeneratedLine: 4, GeneratedColumn: 1, Source: "a.lisp", OriginalLine: 1, OriginalColumn: 7, Name: "x"},
	}

	decoded, err := DecodeMappings(EncodeMappings(mappings, sources, names), sources, names)
	assert.NoError(t, err)
	assert.Equal(t, mappings, decoded)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"version":2,"sources":[],"names":[],"mappings":""}`))
	assert.True(t, errors.Is(err, ErrInvalidVersion))

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)

	_, err = NewConsumer(&SourceMap{Version: 3, Mappings: "AAAA"})
	assert.True(t, errors.Is(err, ErrInvalidMappings))

	_, err = NewConsumer(&SourceMap{Version: 3, Sources: []string{"a"}, Mappings: "AA"})
	assert.True(t, errors.Is(err, ErrInvalidMappings))
}

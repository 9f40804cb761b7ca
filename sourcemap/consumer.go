package sourcemap

import (
	"slices"
)

// Position is a 1-based location in an original source.
type Position struct {
	Source string
	Line   int
	Column int
	Name   string
}

// Consumer answers lookups against a decoded map.
type Consumer struct {
	mappings []Mapping
}

// NewConsumer decodes m.
func NewConsumer(m *SourceMap) (*Consumer, error) {
	mappings, err := DecodeMappings(m.Mappings, m.Sources, m.Names)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(mappings, compareGenerated)

	return &Consumer{mappings: mappings}, nil
}

// ParseConsumer parses JSON and decodes it.
func ParseConsumer(data []byte) (*Consumer, error) {
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return NewConsumer(m)
}

// OriginalPositionFor maps a 1-based generated line and column to the original position of the
// closest segment at or before it on the same line.
func (c *Consumer) OriginalPositionFor(line, column int) (Position, bool) {
	genLine, genColumn := line-1, column-1

	i, _ := slices.BinarySearchFunc(c.mappings, Mapping{GeneratedLine: genLine, GeneratedColumn: genColumn + 1}, compareGenerated)
	if i == 0 {
		return Position{}, false
	}

	m := c.mappings[i-1]
	if m.GeneratedLine != genLine || !m.HasOriginal() {
		return Position{}, false
	}

	return Position{
		Source: m.Source,
		Line:   m.OriginalLine + 1,
		Column: m.OriginalColumn + 1,
		Name:   m.Name,
	}, true
}

// Mappings returns the decoded mappings in generated order.
func (c *Consumer) Mappings() []Mapping {
	return c.mappings
}

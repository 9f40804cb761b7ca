package sourcemap

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Version is the only source map version this package reads and writes.
const Version = 3

// SourceMap is the JSON document.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Mapping ties a generated position to an original one. Lines and columns are 0-based, as in
// the encoded format. Source is empty for segments that map to nothing.
type Mapping struct {
	GeneratedLine   int
	GeneratedColumn int
	Source          string
	OriginalLine    int
	OriginalColumn  int
	Name            string
}

// HasOriginal reports whether the mapping points into a source.
func (m Mapping) HasOriginal() bool {
	return m.Source != ""
}

func compareGenerated(a, b Mapping) int {
	if a.GeneratedLine != b.GeneratedLine {
		return a.GeneratedLine - b.GeneratedLine
	}

	return a.GeneratedColumn - b.GeneratedColumn
}

// Marshal returns the JSON form.
func (m *SourceMap) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Parse reads a JSON source map.
func Parse(data []byte) (*SourceMap, error) {
	var m SourceMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse source map: %w", err)
	}

	if m.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, m.Version)
	}

	return &m, nil
}

// EncodeMappings serializes mappings. Source and name indexes refer to sources and names.
// Mappings must be sorted by generated position.
func EncodeMappings(mappings []Mapping, sources, names []string) string {
	sourceIndex := indexOf(sources)
	nameIndex := indexOf(names)

	var (
		b                                    strings.Builder
		line                                 int
		prevColumn, prevSource, prevOrigLine int
		prevOrigColumn, prevName             int
		firstInLine                          = true
	)

	for _, m := range mappings {
		for line < m.GeneratedLine {
			b.WriteByte(';')
			line++
			prevColumn = 0
			firstInLine = true
		}

		if !firstInLine {
			b.WriteByte(',')
		}

		firstInLine = false

		values := []int{m.GeneratedColumn - prevColumn}
		prevColumn = m.GeneratedColumn

		if m.HasOriginal() {
			src := sourceIndex[m.Source]
			values = append(values, src-prevSource, m.OriginalLine-prevOrigLine, m.OriginalColumn-prevOrigColumn)
			prevSource, prevOrigLine, prevOrigColumn = src, m.OriginalLine, m.OriginalColumn

			if m.Name != "" {
				n := nameIndex[m.Name]
				values = append(values, n-prevName)
				prevName = n
			}
		}

		b.WriteString(Encode(values...))
	}

	return b.String()
}

// DecodeMappings parses a mappings string.
func DecodeMappings(encoded string, sources, names []string) ([]Mapping, error) {
	var (
		result                   []Mapping
		prevSource, prevOrigLine int
		prevOrigColumn, prevName int
	)

	for line, group := range strings.Split(encoded, ";") {
		prevColumn := 0

		for _, segment := range strings.Split(group, ",") {
			if segment == "" {
				continue
			}

			values, err := Decode(segment)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidMappings, line, err)
			}

			m := Mapping{GeneratedLine: line, GeneratedColumn: prevColumn + values[0]}
			prevColumn = m.GeneratedColumn

			switch len(values) {
			case 1:
			case 4, 5:
				prevSource += values[1]
				prevOrigLine += values[2]
				prevOrigColumn += values[3]

				if prevSource < 0 || prevSource >= len(sources) {
					return nil, fmt.Errorf("%w: line %d: source index %d", ErrInvalidMappings, line, prevSource)
				}

				m.Source = sources[prevSource]
				m.OriginalLine = prevOrigLine
				m.OriginalColumn = prevOrigColumn

				if len(values) == 5 {
					prevName += values[4]
					if prevName < 0 || prevName >= len(names) {
						return nil, fmt.Errorf("%w: line %d: name index %d", ErrInvalidMappings, line, prevName)
					}

					m.Name = names[prevName]
				}
			default:
				return nil, fmt.Errorf("%w: line %d: segment with %d fields", ErrInvalidMappings, line, len(values))
			}

			result = append(result, m)
		}
	}

	return result, nil
}

func indexOf(values []string) map[string]int {
	index := make(map[string]int, len(values))
	for i, v := range values {
		if _, ok := index[v]; !ok {
			index[v] = i
		}
	}

	return index
}

// Builder collects mappings while code is generated.
type Builder struct {
	file     string
	sources  []string
	contents map[string]string
	names    []string
	mappings []Mapping
}

// NewBuilder creates a builder for the generated file name.
func NewBuilder(file string) *Builder {
	return &Builder{file: file, contents: map[string]string{}}
}

// AddMapping records a mapping. Consecutive duplicates are dropped.
func (b *Builder) AddMapping(m Mapping) {
	if n := len(b.mappings); n > 0 && b.mappings[n-1] == m {
		return
	}

	if m.HasOriginal() && !slices.Contains(b.sources, m.Source) {
		b.sources = append(b.sources, m.Source)
	}

	if m.Name != "" && !slices.Contains(b.names, m.Name) {
		b.names = append(b.names, m.Name)
	}

	b.mappings = append(b.mappings, m)
}

// SetSourceContent embeds the original text of source into the map.
func (b *Builder) SetSourceContent(source, content string) {
	if !slices.Contains(b.sources, source) {
		b.sources = append(b.sources, source)
	}

	b.contents[source] = content
}

// Mappings returns the recorded mappings sorted by generated position.
func (b *Builder) Mappings() []Mapping {
	sorted := slices.Clone(b.mappings)
	slices.SortStableFunc(sorted, compareGenerated)

	return sorted
}

// Reset drops everything recorded so far.
func (b *Builder) Reset() {
	b.sources = nil
	b.names = nil
	b.mappings = nil
	b.contents = map[string]string{}
}

// Build returns the source map.
func (b *Builder) Build() *SourceMap {
	m := &SourceMap{
		Version:  Version,
		File:     b.file,
		Sources:  append([]string{}, b.sources...),
		Names:    append([]string{}, b.names...),
		Mappings: EncodeMappings(b.Mappings(), b.sources, b.names),
	}

	if len(b.contents) > 0 {
		m.SourcesContent = make([]string, len(b.sources))
		for i, source := range b.sources {
			m.SourcesContent[i] = b.contents[source]
		}
	}

	return m
}

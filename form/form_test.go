package form

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shibukawa/snaplisp/diagnostics"
)

func span(line, column int) diagnostics.Span {
	start := diagnostics.Location{Source: "t.lisp", Line: line, Column: column}
	end := start
	end.Column++

	return diagnostics.NewSpan(start, end)
}

func TestSymbolEquality(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Symbol
		equal bool
	}{
		{"same name", Sym("a"), Sym("a"), true},
		{"different location", ParseSymbol("a", span(1, 1)), ParseSymbol("a", span(9, 9)), true},
		{"qualified vs unqualified", QualifiedSym("core", "a"), Sym("a"), false},
		{"different namespaces", QualifiedSym("x", "a"), QualifiedSym("y", "a"), false},
		{"same qualified", ParseSymbol("core/map", span(1, 1)), QualifiedSym("core", "map"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.equal, test.a.Equal(test.b))
			assert.Equal(t, test.equal, Equal(test.a, test.b))
		})
	}
}

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		text      string
		namespace string
		name      string
	}{
		{"foo", "", "foo"},
		{"app.core/foo", "app.core", "foo"},
		{"/", "", "/"},
		{"php//", "php", "/"},
		{"php/$_SERVER", "php", "$_SERVER"},
		{"foo/", "", "foo/"},
	}

	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			s := ParseSymbol(test.text, diagnostics.Span{})
			assert.Equal(t, test.namespace, s.Namespace)
			assert.Equal(t, test.name, s.Name)
			assert.Equal(t, test.text, s.FullName())
		})
	}
}

func TestKeyword(t *testing.T) {
	k := ParseKeyword(":app/id", span(1, 1))
	assert.Equal(t, "app", k.Namespace)
	assert.Equal(t, "id", k.Name)
	assert.Equal(t, ":app/id", k.String())
	assert.True(t, Equal(k, Keyword{Namespace: "app", Name: "id"}))
	assert.False(t, Equal(k, QualifiedSym("app", "id")))
}

func TestStructuralEquality(t *testing.T) {
	a := List{Items: []Form{Sym("+"), Int{Value: 1, Loc: span(1, 2)}, Vector{Items: []Form{String{Value: "x"}}}}}
	b := List{Items: []Form{Sym("+"), Int{Value: 1}, Vector{Items: []Form{String{Value: "x"}}}}, Loc: span(4, 4)}
	c := List{Items: []Form{Sym("+"), Float{Value: 1}, Vector{Items: []Form{String{Value: "x"}}}}}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(List{}, Vector{}))
	assert.True(t, Equal(Nil{}, Nil{Loc: span(1, 1)}))
}

func TestPrintedRepresentation(t *testing.T) {
	tests := []struct {
		form     Form
		expected string
	}{
		{Int{Value: -3}, "-3"},
		{Float{Value: 2}, "2.0"},
		{Float{Value: 1.5e300}, "1.5e+300"},
		{Float{Value: math.Inf(1)}, "##Inf"},
		{String{Value: "a \"q\"\n"}, `"a \"q\"\n"`},
		{Bool{Value: false}, "false"},
		{Nil{}, "nil"},
		{Keyword{Name: "k"}, ":k"},
		{List{Items: []Form{Sym("f"), Vector{Items: []Form{Int{Value: 1}}}, Map{Items: []Form{Keyword{Name: "a"}, Int{Value: 2}}}}}, "(f [1] {:a 2})"},
		{List{}, "()"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.form.String())
		})
	}
}

func TestMapPairs(t *testing.T) {
	m := Map{Items: []Form{Keyword{Name: "a"}, Int{Value: 1}, Keyword{Name: "b"}, Int{Value: 2}}}
	pairs := m.Pairs()
	assert.Equal(t, 2, len(pairs))
	assert.True(t, Equal(Keyword{Name: "b"}, pairs[1][0]))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(Nil{}))
	assert.False(t, Truthy(Bool{Value: false}))
	assert.True(t, Truthy(Int{Value: 0}))
	assert.True(t, Truthy(List{}))
}

func TestFillSpanKeepsExistingLocations(t *testing.T) {
	own := span(2, 3)
	call := span(7, 1)
	f := List{Items: []Form{Sym("do"), Int{Value: 1, Loc: own}}}

	filled := FillSpan(f, call).(List)
	assert.Equal(t, call, filled.Loc)
	assert.Equal(t, call, filled.Items[0].Span())
	assert.Equal(t, own, filled.Items[1].Span())
}

func TestGensym(t *testing.T) {
	var g Gensym

	seen := map[string]bool{}
	var first []string

	for i := 0; i < 100; i++ {
		s := g.Next("tmp")
		assert.False(t, seen[s.Name], "duplicate gensym %s", s.Name)
		seen[s.Name] = true

		if i < 3 {
			first = append(first, s.Name)
		}
	}

	g.Reset()

	var again []string
	for i := 0; i < 3; i++ {
		again = append(again, g.Next("tmp").Name)
	}

	assert.Equal(t, first, again)
	assert.Equal(t, []string{"tmp,1", "tmp,2", "tmp,3"}, again)
	assert.Equal(t, "G,4", g.Next("").Name)
}

package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shibukawa/snaplisp/form"
)

type evalFunc func(ev *evaluator, args []form.Form) (form.Form, error)

// evalFunctions are the core functions available to macro bodies at expansion time.
var evalFunctions map[string]evalFunc

func init() {
	evalFunctions = map[string]evalFunc{
		"list": func(_ *evaluator, args []form.Form) (form.Form, error) {
			return form.List{Items: args}, nil
		},
		"vector": func(_ *evaluator, args []form.Form) (form.Form, error) {
			return form.Vector{Items: args}, nil
		},
		"hash-map": func(_ *evaluator, args []form.Form) (form.Form, error) {
			if len(args)%2 != 0 {
				return nil, fmt.Errorf("%w: hash-map needs key/value pairs", ErrEvaluation)
			}

			return form.Map{Items: args}, nil
		},
		"concat":   evalConcat,
		"cons":     evalCons,
		"first":    func(_ *evaluator, args []form.Form) (form.Form, error) { return evalNth("first", args, 0, false) },
		"second":   func(_ *evaluator, args []form.Form) (form.Form, error) { return evalNth("second", args, 1, false) },
		"rest":     evalRest,
		"nth":      evalNthFunc,
		"count":    evalCount,
		"empty?":   evalEmpty,
		"nil?":     typePredicate(func(f form.Form) bool { _, ok := f.(form.Nil); return ok }),
		"symbol?":  typePredicate(func(f form.Form) bool { _, ok := f.(form.Symbol); return ok }),
		"keyword?": typePredicate(func(f form.Form) bool { _, ok := f.(form.Keyword); return ok }),
		"string?":  typePredicate(func(f form.Form) bool { _, ok := f.(form.String); return ok }),
		"list?":    typePredicate(func(f form.Form) bool { _, ok := f.(form.List); return ok }),
		"vector?":  typePredicate(func(f form.Form) bool { _, ok := f.(form.Vector); return ok }),
		"map?":     typePredicate(func(f form.Form) bool { _, ok := f.(form.Map); return ok }),
		"number?": typePredicate(func(f form.Form) bool {
			switch f.(type) {
			case form.Int, form.Float:
				return true
			default:
				return false
			}
		}),
		"=":       evalEquals,
		"not=":    evalNotEquals,
		"not":     evalNot,
		"symbol":  evalSymbol,
		"keyword": evalKeyword,
		"name":    evalName,
		"str":     evalStr,
		"gensym":  evalGensym,
		"inc":     func(_ *evaluator, args []form.Form) (form.Form, error) { return evalStep("inc", args, 1) },
		"dec":     func(_ *evaluator, args []form.Form) (form.Form, error) { return evalStep("dec", args, -1) },
		"+":       arithmetic("+", 0, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }),
		"*":       arithmetic("*", 1, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }),
		"-":       evalMinus,
		"<":       comparison("<", func(a, b float64) bool { return a < b }),
		">":       comparison(">", func(a, b float64) bool { return a > b }),
		"<=":      comparison("<=", func(a, b float64) bool { return a <= b }),
		">=":      comparison(">=", func(a, b float64) bool { return a >= b }),
	}
}

func arityError(name string, want string, got int) error {
	return fmt.Errorf("%w: %s takes %s, got %d", ErrEvaluation, name, want, got)
}

func seqOf(name string, f form.Form) ([]form.Form, error) {
	items, ok := form.Items(f)
	if !ok {
		return nil, fmt.Errorf("%w: %s needs a list or vector, got %s", ErrEvaluation, name, form.TypeName(f))
	}

	return items, nil
}

func evalConcat(_ *evaluator, args []form.Form) (form.Form, error) {
	var items []form.Form

	for _, arg := range args {
		seq, err := seqOf("concat", arg)
		if err != nil {
			return nil, err
		}

		items = append(items, seq...)
	}

	return form.List{Items: items}, nil
}

func evalCons(_ *evaluator, args []form.Form) (form.Form, error) {
	if len(args) != 2 {
		return nil, arityError("cons", "2 arguments", len(args))
	}

	seq, err := seqOf("cons", args[1])
	if err != nil {
		return nil, err
	}

	return form.List{Items: append([]form.Form{args[0]}, seq...)}, nil
}

func evalNth(name string, args []form.Form, index int, strict bool) (form.Form, error) {
	if len(args) != 1 {
		return nil, arityError(name, "1 argument", len(args))
	}

	seq, err := seqOf(name, args[0])
	if err != nil {
		return nil, err
	}

	if index >= len(seq) {
		if strict {
			return nil, fmt.Errorf("%w: index %d out of range", ErrEvaluation, index)
		}

		return form.Nil{}, nil
	}

	return seq[index], nil
}

func evalNthFunc(_ *evaluator, args []form.Form) (form.Form, error) {
	if len(args) != 2 {
		return nil, arityError("nth", "2 arguments", len(args))
	}

	index, ok := args[1].(form.Int)
	if !ok || index.Value < 0 {
		return nil, fmt.Errorf("%w: nth needs a non-negative integer index", ErrEvaluation)
	}

	return evalNth("nth", args[:1], int(index.Value), true)
}

func evalRest(_ *evaluator, args []form.Form) (form.Form, error) {
	if len(args) != 1 {
		return nil, arityError("rest", "1 argument", len(args))
	}

	seq, err := seqOf("rest", args[0])
	if err != nil {
		return nil, err
	}

	if len(seq) == 0 {
		return form.List{}, nil
	}

	return form.List{Items: append([]form.Form(nil), seq[1:]...)}, nil
}

func count(f form.Form) (int, error) {
	switch x := f.(type) {
	case form.String:
		return utf8.RuneCountInString(x.Value), nil
	case form.Map:
		return len(x.Items) / 2, nil
	default:
		seq, err := seqOf("count", f)
		return len(seq), err
	}
}

func evalCount(_ *evaluator, args []form.Form) (form.Form, error) {
	if len(args) != 1 {
		return nil, arityError("count", "1 argument", len(args))
	}

	n, err := count(args[0])
	if err != nil {
		return nil, err
	}

	return form.Int{Value: int64(n)}, nil
}

func evalEmpty(_ *evaluator, args []form.Form) (form.Form, error) {
	if len(args) != 1 {
		return nil, arityError("empty?", "1 argument", len(args))
	}

	n, err := count(args[0])
	if err != nil {
		return nil, err
	}

	return form.Bool{Value: n == 0}, nil
}

func typePredicate(test func(form.Form) bool) evalFunc {
	return func(_ *evaluator, args []form.Form) (form.Form, error) {
		if len(args) != 1 {
			return nil, arityError("predicate", "1 argument", len(args))
		}

		return form.Bool{Value: test(args[0])}, nil
	}
}

func evalEquals(_ *evaluator, args []form.Form) (form.Form, error) {
	for i := 1; i < len(args); i++ {
		if !form.Equal(args[0], args[i]) {
			return form.Bool{Value: false}, nil
		}
	}

	return form.Bool{Value: true}, nil
}

func evalNotEquals(ev *evaluator, args []form.Form) (form.Form, error) {
	eq, err := evalEquals(ev, args)
	if err != nil {
		return nil, err
	}

	return form.Bool{Value: !form.Truthy(eq)}, nil
}

func evalNot(_ *evaluator, args []form.Form) (form.Form, error) {
	if len(args) != 1 {
		return nil, arityError("not", "1 argument", len(args))
	}

	return form.Bool{Value: !form.Truthy(args[0])}, nil
}

func stringArg(name string, f form.Form) (string, error) {
	switch x := f.(type) {
	case form.String:
		return x.Value, nil
	case form.Symbol:
		return x.FullName(), nil
	case form.Keyword:
		return x.FullName(), nil
	default:
		return "", fmt.Errorf("%w: %s needs a string, got %s", ErrEvaluation, name, form.TypeName(f))
	}
}

func evalSymbol(_ *evaluator, args []form.Form) (form.Form, error) {
	switch len(args) {
	case 1:
		text, err := stringArg("symbol", args[0])
		if err != nil {
			return nil, err
		}

		return form.Sym(text), nil
	case 2:
		ns, err := stringArg("symbol", args[0])
		if err != nil {
			return nil, err
		}

		name, err := stringArg("symbol", args[1])
		if err != nil {
			return nil, err
		}

		return form.QualifiedSym(ns, name), nil
	default:
		return nil, arityError("symbol", "1 or 2 arguments", len(args))
	}
}

func evalKeyword(_ *evaluator, args []form.Form) (form.Form, error) {
	switch len(args) {
	case 1:
		text, err := stringArg("keyword", args[0])
		if err != nil {
			return nil, err
		}

		return form.Keyword{Name: text}, nil
	case 2:
		ns, err := stringArg("keyword", args[0])
		if err != nil {
			return nil, err
		}

		name, err := stringArg("keyword", args[1])
		if err != nil {
			return nil, err
		}

		return form.Keyword{Namespace: ns, Name: name}, nil
	default:
		return nil, arityError("keyword", "1 or 2 arguments", len(args))
	}
}

func evalName(_ *evaluator, args []form.Form) (form.Form, error) {
	if len(args) != 1 {
		return nil, arityError("name", "1 argument", len(args))
	}

	switch x := args[0].(type) {
	case form.Symbol:
		return form.String{Value: x.Name}, nil
	case form.Keyword:
		return form.String{Value: x.Name}, nil
	case form.String:
		return x, nil
	default:
		return nil, fmt.Errorf("%w: name needs a symbol, keyword or string", ErrEvaluation)
	}
}

func evalStr(_ *evaluator, args []form.Form) (form.Form, error) {
	var b strings.Builder

	for _, arg := range args {
		switch x := arg.(type) {
		case form.String:
			b.WriteString(x.Value)
		case form.Nil:
		default:
			b.WriteString(arg.String())
		}
	}

	return form.String{Value: b.String()}, nil
}

func evalGensym(ev *evaluator, args []form.Form) (form.Form, error) {
	prefix := ""

	if len(args) > 1 {
		return nil, arityError("gensym", "0 or 1 arguments", len(args))
	}

	if len(args) == 1 {
		p, err := stringArg("gensym", args[0])
		if err != nil {
			return nil, err
		}

		prefix = p
	}

	return ev.analyzer.gensym.Next(prefix), nil
}

func evalStep(name string, args []form.Form, delta int64) (form.Form, error) {
	if len(args) != 1 {
		return nil, arityError(name, "1 argument", len(args))
	}

	switch x := args[0].(type) {
	case form.Int:
		return form.Int{Value: x.Value + delta}, nil
	case form.Float:
		return form.Float{Value: x.Value + float64(delta)}, nil
	default:
		return nil, fmt.Errorf("%w: %s needs a number, got %s", ErrEvaluation, name, form.TypeName(args[0]))
	}
}

func numbers(name string, args []form.Form) ([]float64, bool, error) {
	floats := make([]float64, len(args))
	isFloat := false

	for i, arg := range args {
		switch x := arg.(type) {
		case form.Int:
			floats[i] = float64(x.Value)
		case form.Float:
			floats[i] = x.Value
			isFloat = true
		default:
			return nil, false, fmt.Errorf("%w: %s needs numbers, got %s", ErrEvaluation, name, form.TypeName(arg))
		}
	}

	return floats, isFloat, nil
}

func arithmetic(name string, identity int64, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) evalFunc {
	return func(_ *evaluator, args []form.Form) (form.Form, error) {
		floats, isFloat, err := numbers(name, args)
		if err != nil {
			return nil, err
		}

		if isFloat {
			acc := float64(identity)
			for _, f := range floats {
				acc = floatOp(acc, f)
			}

			return form.Float{Value: acc}, nil
		}

		acc := identity
		for _, arg := range args {
			acc = intOp(acc, arg.(form.Int).Value)
		}

		return form.Int{Value: acc}, nil
	}
}

func evalMinus(ev *evaluator, args []form.Form) (form.Form, error) {
	switch len(args) {
	case 0:
		return nil, arityError("-", "at least 1 argument", 0)
	case 1:
		return arithmetic("-", 0, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })(ev, args)
	}

	floats, isFloat, err := numbers("-", args)
	if err != nil {
		return nil, err
	}

	if isFloat {
		acc := floats[0]
		for _, f := range floats[1:] {
			acc -= f
		}

		return form.Float{Value: acc}, nil
	}

	acc := args[0].(form.Int).Value
	for _, arg := range args[1:] {
		acc -= arg.(form.Int).Value
	}

	return form.Int{Value: acc}, nil
}

func comparison(name string, cmp func(a, b float64) bool) evalFunc {
	return func(_ *evaluator, args []form.Form) (form.Form, error) {
		floats, _, err := numbers(name, args)
		if err != nil {
			return nil, err
		}

		for i := 1; i < len(floats); i++ {
			if !cmp(floats[i-1], floats[i]) {
				return form.Bool{Value: false}, nil
			}
		}

		return form.Bool{Value: true}, nil
	}
}

package stdlib

import (
	"fmt"
	"math"

	"mercator-hq/exceller/pkg/transform/value"
)

func unaryFloat(fn func(float64) any) func(args []any) (any, error) {
	return func(args []any) (any, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}
		x, err := float(args, 0)
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func toInt64(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	return int64(f)
}

// MathModule returns the math module.
func MathModule() *value.Namespace {
	return module("math", map[string]func(args []any) (any, error){
		"floor": unaryFloat(func(x float64) any { return toInt64(math.Floor(x)) }),
		"ceil":  unaryFloat(func(x float64) any { return toInt64(math.Ceil(x)) }),
		"trunc": unaryFloat(func(x float64) any { return toInt64(math.Trunc(x)) }),
		"fabs":  unaryFloat(func(x float64) any { return math.Abs(x) }),
		"exp":   unaryFloat(func(x float64) any { return math.Exp(x) }),
		"log10": unaryFloat(func(x float64) any { return math.Log10(x) }),
		"log2":  unaryFloat(func(x float64) any { return math.Log2(x) }),
		"isnan": unaryFloat(func(x float64) any { return math.IsNaN(x) }),
		"isinf": unaryFloat(func(x float64) any { return math.IsInf(x, 0) }),
		"sqrt": func(args []any) (any, error) {
			if err := arity(args, 1, 1); err != nil {
				return nil, err
			}
			x, err := float(args, 0)
			if err != nil {
				return nil, err
			}
			if x < 0 {
				return nil, fmt.Errorf("math domain error")
			}
			return math.Sqrt(x), nil
		},
		"log": func(args []any) (any, error) {
			if err := arity(args, 1, 2); err != nil {
				return nil, err
			}
			x, err := float(args, 0)
			if err != nil {
				return nil, err
			}
			if x <= 0 {
				return nil, fmt.Errorf("math domain error")
			}
			if len(args) == 1 {
				return math.Log(x), nil
			}
			base, err := float(args, 1)
			if err != nil {
				return nil, err
			}
			return math.Log(x) / math.Log(base), nil
		},
		"pow": func(args []any) (any, error) {
			if err := arity(args, 2, 2); err != nil {
				return nil, err
			}
			x, err := float(args, 0)
			if err != nil {
				return nil, err
			}
			y, err := float(args, 1)
			if err != nil {
				return nil, err
			}
			return math.Pow(x, y), nil
		},
	}, map[string]any{
		"pi":  math.Pi,
		"e":   math.E,
		"tau": 2 * math.Pi,
		"inf": math.Inf(1),
		"nan": math.NaN(),
	})
}

package engine

import (
	"fmt"

	zygo "github.com/glycerine/zygomys/zygo"
)

// litresPerCubicMillimetre converts mm³ to litres.
const litresPerCubicMillimetre = 1e-6

// registerBuiltins installs the helper functions available to column
// expressions.
func registerBuiltins(env *zygo.Zlisp) {
	// (ratio a b) divides and yields 0 when b is 0.
	env.AddFunction("ratio", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("ratio requires exactly 2 arguments, got %d", len(args))
		}
		a, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ratio: numerator: %w", err)
		}
		b, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ratio: denominator: %w", err)
		}
		if b == 0 {
			return &zygo.SexpFloat{Val: 0}, nil
		}
		return &zygo.SexpFloat{Val: a / b}, nil
	})

	// (litres v) converts a volume in mm³ to litres.
	env.AddFunction("litres", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("litres requires exactly 1 argument, got %d", len(args))
		}
		v, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("litres: %w", err)
		}
		return &zygo.SexpFloat{Val: v * litresPerCubicMillimetre}, nil
	})
}

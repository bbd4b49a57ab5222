package engine

import (
	"fmt"
	"strings"
)

// Column is a derived report column.
type Column struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	Expr string `yaml:"expr" toml:"expr" json:"expr"`
}

// ColumnError describes a column that failed to evaluate.
type ColumnError struct {
	Column string
	Errors []EvalError
	Err    error
}

func (e *ColumnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("column %s: %v", e.Column, e.Err)
	}
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return fmt.Sprintf("column %s: %s", e.Column, strings.Join(msgs, "; "))
}

// Columns evaluates every column against vars. Values of failed columns
// are omitted from the map and reported in the returned errors.
func (e *Engine) Columns(cols []Column, vars Vars) (map[string]float64, []error) {
	if len(cols) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(cols))
	var errs []error
	for _, c := range cols {
		v, evalErrs, err := e.Evaluate(c.Expr, vars)
		if err != nil || len(evalErrs) > 0 {
			errs = append(errs, &ColumnError{Column: c.Name, Errors: evalErrs, Err: err})
			continue
		}
		out[c.Name] = v
	}
	return out, errs
}

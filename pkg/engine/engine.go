// Package engine evaluates user supplied Lisp expressions that derive
// extra report columns from a measurement. It wraps zygomys in a fresh
// sandboxed environment per evaluation.
package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// ErrEmptyExpression is reported for blank column expressions.
var ErrEmptyExpression = errors.New("engine: empty expression")

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates expressions. It is safe for concurrent use; each call to
// Evaluate creates a fresh sandboxed environment for determinism.
type Engine struct {
	// Timeout bounds a single evaluation. Zero means EvalTimeout.
	Timeout time.Duration
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{Timeout: EvalTimeout}
}

// Evaluate runs source with vars bound as globals and returns the value of
// its last expression, which must be a number.
//
// Return semantics:
//   - On success: returns value + nil errors + nil error
//   - On parse/eval failure: returns 0 + eval errors + nil error
//   - On fatal failure (timeout, panic): returns 0 + nil + error
func (e *Engine) Evaluate(source string, vars Vars) (float64, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return 0, []EvalError{{Message: ErrEmptyExpression.Error()}}, nil
	}
	preamble, err := vars.preamble()
	if err != nil {
		return 0, []EvalError{{Message: err.Error()}}, nil
	}

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		v, evalErrs, err := e.evaluate(preamble, source)
		ch <- evalResult{value: v, errors: evalErrs, err: err}
	}()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return waitWithTimeout(ch, timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
// The variable preamble occupies the first line, so reported line numbers
// are shifted back by one.
func (e *Engine) evaluate(preamble, source string) (float64, []EvalError, error) {
	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env)

	if err := env.LoadString(preamble + "\n" + preprocessSource(source) + "\n"); err != nil {
		return 0, shiftLines(parseZygomysError(err), 1), nil
	}

	res, err := env.Run()
	if err != nil {
		return 0, shiftLines(parseZygomysError(err), 1), nil
	}

	v, err := toFloat64(res)
	if err != nil {
		return 0, []EvalError{{Message: err.Error()}}, nil
	}
	return v, nil, nil
}

func shiftLines(errs []EvalError, n int) []EvalError {
	for i := range errs {
		if errs[i].Line > n {
			errs[i].Line -= n
		}
	}
	return errs
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	if s == nil {
		return 0, fmt.Errorf("expected number, got nothing")
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

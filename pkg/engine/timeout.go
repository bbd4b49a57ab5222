package engine

import (
	"fmt"
	"time"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	value  float64
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the evaluation exceeds d. On timeout the goroutine may still be
// running; ch is buffered so it never blocks and its result is dropped.
func waitWithTimeout(ch <-chan evalResult, d time.Duration) (float64, []EvalError, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.value, res.errors, res.err
	case <-timer.C:
		return 0, nil, fmt.Errorf("evaluation timed out after %s", d)
	}
}

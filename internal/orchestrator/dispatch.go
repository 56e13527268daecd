package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"shipsense/internal/logging"
	"shipsense/internal/tools"
)

// ErrSkipped marks a step that never ran because an earlier step in
// the chain failed.
var ErrSkipped = errors.New("skipped after earlier step failed")

// Dispatcher executes plans against the tool registry. Independent
// steps in a batch fan out concurrently; dependent batches run in
// order. Each call gets its own timeout, and transient failures are
// retried with doubling backoff.
type Dispatcher struct {
	registry   *tools.Registry
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *tools.Registry, timeout time.Duration, maxRetries int, backoff time.Duration) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    backoff,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the plan and returns one result per step, in step
// order. When a step fails, later batches are skipped but every result
// already produced is kept; the first failure is returned as the error.
func (d *Dispatcher) Run(ctx context.Context, plan Plan) ([]tools.ToolResult, error) {
	results := make([]tools.ToolResult, len(plan.Steps))
	ran := make([]bool, len(plan.Steps))
	var firstErr error

	for _, batch := range plan.Batches() {
		if firstErr != nil {
			break
		}

		g := new(errgroup.Group)
		for _, idx := range batch {
			idx := idx
			g.Go(func() error {
				step := plan.Steps[idx]
				ran[idx] = true

				args, err := materializeArgs(step, results)
				if err != nil {
					results[idx] = skippedResult(step, err)
					return err
				}

				result, err := d.executeWithRetry(ctx, step, args)
				if result != nil {
					results[idx] = *result
				} else {
					results[idx] = skippedResult(step, err)
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			firstErr = err
		}
	}

	for i, step := range plan.Steps {
		if !ran[i] {
			results[i] = skippedResult(step, ErrSkipped)
		}
	}

	if firstErr != nil {
		logging.OrchestratorWarn("plan aborted: %v", firstErr)
	}
	return results, firstErr
}

// executeWithRetry runs one call, retrying transient failures up to
// maxRetries times with doubling backoff.
func (d *Dispatcher) executeWithRetry(ctx context.Context, step Step, args map[string]any) (*tools.ToolResult, error) {
	backoff := d.backoff
	var result *tools.ToolResult
	var err error

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			logging.OrchestratorDebug("retrying %s (attempt %d) after %s", step.Tool, attempt+1, backoff)
			if sleepErr := d.sleep(ctx, backoff); sleepErr != nil {
				return result, err
			}
			backoff *= 2
		}

		result, err = d.executeOnce(ctx, step, args)
		if err == nil || !retryable(err) {
			return result, err
		}
	}
	return result, err
}

// executeOnce runs one call under its own timeout. A deadline hit on
// the call context is reported as a TimeoutError.
func (d *Dispatcher) executeOnce(ctx context.Context, step Step, args map[string]any) (*tools.ToolResult, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if d.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	result, err := d.registry.Execute(callCtx, step.Tool, args)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		terr := &TimeoutError{Tool: step.Tool, Limit: d.timeout}
		if result == nil {
			failed := skippedResult(step, terr)
			result = &failed
		} else {
			result.Error = terr
			result.ErrMessage = terr.Error()
		}
		return result, terr
	}
	return result, err
}

// materializeArgs copies a step's literal args and fills its bindings
// from earlier results. Each binding takes the first series of the
// producing step's payload.
func materializeArgs(step Step, results []tools.ToolResult) (map[string]any, error) {
	args := make(map[string]any, len(step.Args)+len(step.Bindings))
	for k, v := range step.Args {
		args[k] = v
	}
	for _, b := range step.Bindings {
		if b.FromStep < 0 || b.FromStep >= len(results) {
			return nil, fmt.Errorf("binding %s references step %d out of range", b.Arg, b.FromStep)
		}
		src := results[b.FromStep]
		if !src.OK() || src.Payload == nil || len(src.Payload.Series) == 0 {
			return nil, fmt.Errorf("binding %s: step %d produced no series", b.Arg, b.FromStep)
		}
		args[b.Arg] = src.Payload.Series[0]
	}
	return args, nil
}

func skippedResult(step Step, err error) tools.ToolResult {
	return tools.ToolResult{
		Call:       tools.ToolCall{Tool: step.Tool},
		Error:      err,
		ErrMessage: err.Error(),
	}
}

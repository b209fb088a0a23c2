// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/innovationmech/atelier/pkg/logger"
)

// completionRecord pairs a completed step with the exact output its forward
// action returned. The output is what compensation receives, so an undo
// never re-queries the world to learn what to remove.
type completionRecord struct {
	step   Step
	output interface{}
}

// completionStack tracks the steps that have completed and not yet been
// compensated, in completion order. It is private to one invocation.
// Invariant: at any point during a run the stack exactly reflects the steps
// whose durable effects are currently observable.
type completionStack struct {
	records []completionRecord
}

func newCompletionStack() *completionStack {
	return &completionStack{}
}

// push appends a record after a step's forward action succeeds.
func (s *completionStack) push(step Step, output interface{}) {
	s.records = append(s.records, completionRecord{step: step, output: output})
}

// pop removes and returns the most recently completed record.
func (s *completionStack) pop() (completionRecord, bool) {
	if len(s.records) == 0 {
		return completionRecord{}, false
	}
	rec := s.records[len(s.records)-1]
	s.records = s.records[:len(s.records)-1]
	return rec, true
}

// len returns the number of un-compensated completed steps.
func (s *completionStack) len() int {
	return len(s.records)
}

// stepNames returns the completed step names in completion order.
func (s *completionStack) stepNames() []string {
	names := make([]string, len(s.records))
	for i, rec := range s.records {
		names[i] = rec.step.GetName()
	}
	return names
}

// rollbackExecutor undoes completed steps in strict reverse order.
type rollbackExecutor struct {
	metrics  MetricsCollector
	workflow string
}

// compensationOutcome records one compensation attempt. Outcomes are ordered
// the way the rollback actually ran, which is what the journal trail must
// reflect.
type compensationOutcome struct {
	stepName string

	// failure is nil when the undo succeeded.
	failure *CompensationFailure
}

// compensateAll pops the stack until empty, invoking each step's undo with
// the output recorded at completion time. A failing compensation is logged
// with the transaction id and collected as a diagnostic, but never stops the
// remaining stack from being compensated: a later failure must not leave
// earlier steps' effects in place. Steps that opted out are skipped and
// produce no outcome.
func (r *rollbackExecutor) compensateAll(ctx context.Context, execCtx *ExecutionContext, stack *completionStack) []compensationOutcome {
	log := logger.GetSugaredLogger()
	outcomes := make([]compensationOutcome, 0, stack.len())

	for {
		rec, ok := stack.pop()
		if !ok {
			break
		}
		name := rec.step.GetName()
		if !rec.step.HasCompensation() {
			continue
		}

		start := time.Now()
		err := r.compensateStep(ctx, execCtx, rec)
		duration := time.Since(start)
		r.metrics.RecordCompensationExecuted(r.workflow, name, err == nil, duration)

		if err != nil {
			log.Errorw("compensation failed, continuing with remaining steps",
				"workflow", r.workflow,
				"step", name,
				"transaction_id", execCtx.TransactionID(),
				"error", err,
			)
			outcomes = append(outcomes, compensationOutcome{
				stepName: name,
				failure: &CompensationFailure{
					StepName:      name,
					TransactionID: execCtx.TransactionID(),
					Message:       err.Error(),
					Cause:         NewCompensationFailedError(name, err),
					OccurredAt:    time.Now(),
				},
			})
			continue
		}

		outcomes = append(outcomes, compensationOutcome{stepName: name})
		log.Infow("step compensated",
			"workflow", r.workflow,
			"step", name,
			"transaction_id", execCtx.TransactionID(),
			"duration", duration,
		)
	}

	return outcomes
}

// compensateStep invokes one undo action, converting a panic into an error
// so a misbehaving compensation cannot abort the rest of the rollback.
func (r *rollbackExecutor) compensateStep(ctx context.Context, execCtx *ExecutionContext, rec completionRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("compensation panicked: %v", p)
		}
	}()
	return rec.step.Compensate(ctx, execCtx, rec.output)
}

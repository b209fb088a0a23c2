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
	"time"

	"github.com/innovationmech/atelier/pkg/logger"
	"github.com/innovationmech/atelier/pkg/workflow/journal"
)

// ComposerConfig configures a Composer. Every field is optional: a zero
// config yields the default hook registry, a no-op metrics collector,
// disabled tracing, and no journal.
type ComposerConfig struct {
	// Hooks is the registry consulted when a committed run fires hooks.
	Hooks *HookRegistry

	// Metrics receives execution signals.
	Metrics MetricsCollector

	// Tracing wraps execution in OpenTelemetry spans when enabled.
	Tracing *TracingManager

	// Journal, when set, receives a best-effort trail of every run keyed
	// by transaction id. Journal failures never fail a workflow.
	Journal journal.Journal
}

// Composer executes workflow definitions. One Composer is safe for
// concurrent use by any number of invocations; all per-run state lives in
// the ExecutionContext and completion stack created per call.
//
// Execution is strictly sequential within an invocation. On the first step
// failure the composer compensates every completed step in reverse order and
// returns the original error with any compensation failures attached as
// secondary diagnostics, so the caller observes either the effects of every
// step or of none.
type Composer struct {
	hooks   *HookRegistry
	metrics MetricsCollector
	tracing *TracingManager
	journal journal.Journal
}

// NewComposer creates a composer from the given configuration.
func NewComposer(config *ComposerConfig) *Composer {
	if config == nil {
		config = &ComposerConfig{}
	}
	hooks := config.Hooks
	if hooks == nil {
		hooks = DefaultRegistry()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = &noOpMetricsCollector{}
	}
	tracing := config.Tracing
	if tracing == nil {
		tracing = NewTracingManager(false)
	}
	return &Composer{
		hooks:   hooks,
		metrics: metrics,
		tracing: tracing,
		journal: config.Journal,
	}
}

// Execute runs one invocation of the definition with the given input.
//
// The input of the first step is the workflow input (after any leading
// transform); each subsequent step receives the previous step's output,
// optionally reshaped by an intervening transform. On full success the
// declared hooks fire synchronously in emission order and the final output
// is returned. On any failure the completed steps are compensated in strict
// reverse order and the triggering error is returned; no hooks fire.
//
// Cancellation is not honored between steps: once execution begins the run
// proceeds to full success or full attempted rollback, because partial
// completion with no defined disposition is the inconsistency this core
// exists to prevent. Deadlines apply inside individual step I/O.
func (c *Composer) Execute(ctx context.Context, def *Definition, input interface{}) (*RunResult, error) {
	if def == nil {
		return nil, NewError(ErrCodeDefinitionInvalid, "definition cannot be nil", KindValidation)
	}

	execCtx := NewExecutionContext(def.name)
	stack := newCompletionStack()
	log := logger.GetSugaredLogger()
	start := time.Now()

	ctx, span := c.tracing.StartWorkflowSpan(ctx, def.name, execCtx.TransactionID())

	c.metrics.RecordWorkflowStarted(def.name)
	c.appendJournal(ctx, execCtx, "", journal.PhaseStarted, nil)
	log.Infow("workflow started",
		"workflow", def.name,
		"transaction_id", execCtx.TransactionID(),
	)

	current := input
	for _, n := range def.nodes {
		if n.transform != nil {
			transformed, err := n.transform(current)
			if err != nil {
				werr := c.failRun(ctx, def, execCtx, stack, "", err, start)
				EndSpan(span, werr)
				return nil, werr
			}
			current = transformed
			continue
		}

		step := n.step
		execCtx.setCurrentStep(step.GetName())

		stepCtx, stepSpan := c.tracing.StartStepSpan(ctx, def.name, step.GetName(), execCtx.TransactionID())
		stepStart := time.Now()
		output, err := step.Execute(stepCtx, execCtx, current)
		stepDuration := time.Since(stepStart)
		c.metrics.RecordStepExecuted(def.name, step.GetName(), err == nil, stepDuration)
		EndSpan(stepSpan, err)

		if err != nil {
			werr := c.failRun(ctx, def, execCtx, stack, step.GetName(), err, start)
			EndSpan(span, werr)
			return nil, werr
		}

		stack.push(step, output)
		c.appendJournal(ctx, execCtx, step.GetName(), journal.PhaseStepCompleted, nil)
		if hook, ok := def.hooks[step.GetName()]; ok {
			execCtx.EmitHook(hook, output)
		}
		current = output
	}

	// Fully committed: compensation is moot, fire hooks.
	emissions := execCtx.Emissions()
	for i := range emissions {
		c.hooks.dispatch(ctx, &HookEvent{
			Hook:          emissions[i].Hook,
			Workflow:      def.name,
			Step:          emissions[i].Step,
			TransactionID: execCtx.TransactionID(),
			Payload:       emissions[i].Payload,
			EmittedAt:     emissions[i].EmittedAt,
		}, c.metrics)
	}

	duration := time.Since(start)
	c.metrics.RecordWorkflowCompleted(def.name, duration)
	c.appendJournal(ctx, execCtx, "", journal.PhaseCompleted, nil)
	log.Infow("workflow completed",
		"workflow", def.name,
		"transaction_id", execCtx.TransactionID(),
		"steps", stack.len(),
		"duration", duration,
	)
	EndSpan(span, nil)

	return &RunResult{
		TransactionID:  execCtx.TransactionID(),
		State:          RunStateCompleted,
		Output:         current,
		CompletedSteps: stack.stepNames(),
		Emissions:      emissions,
		Duration:       duration,
	}, nil
}

// failRun compensates the completed steps in reverse order and shapes the
// primary error. A typed WorkflowError from a step or transform is preserved
// so its kind reaches the caller; anything else is wrapped as a system-level
// step failure. Compensation failures are attached as diagnostics and each
// one is journaled for manual reconciliation.
func (c *Composer) failRun(
	ctx context.Context,
	def *Definition,
	execCtx *ExecutionContext,
	stack *completionStack,
	stepName string,
	cause error,
	start time.Time,
) *WorkflowError {
	log := logger.GetSugaredLogger()
	log.Errorw("workflow step failed, compensating completed steps",
		"workflow", def.name,
		"step", stepName,
		"transaction_id", execCtx.TransactionID(),
		"completed_steps", stack.len(),
		"error", cause,
	)
	c.appendJournal(ctx, execCtx, stepName, journal.PhaseStepFailed, map[string]interface{}{
		"error": cause.Error(),
	})

	compCtx, compSpan := c.tracing.StartCompensationSpan(ctx, def.name, execCtx.TransactionID(), stack.len())
	executor := &rollbackExecutor{metrics: c.metrics, workflow: def.name}
	outcomes := executor.compensateAll(compCtx, execCtx, stack)
	var failures []*CompensationFailure
	for _, outcome := range outcomes {
		if outcome.failure != nil {
			failures = append(failures, outcome.failure)
		}
	}
	var compErr error
	if len(failures) > 0 {
		compErr = failures[0].Cause
	}
	EndSpan(compSpan, compErr)

	// Journal the rollback in the order it actually ran, so the trail
	// records which undo happened when.
	for _, outcome := range outcomes {
		if outcome.failure != nil {
			c.appendJournal(ctx, execCtx, outcome.stepName, journal.PhaseCompensationFailed, map[string]interface{}{
				"error": outcome.failure.Message,
			})
			continue
		}
		c.appendJournal(ctx, execCtx, outcome.stepName, journal.PhaseCompensated, nil)
	}

	terminal := RunStateCompensated
	if len(failures) > 0 {
		terminal = RunStateFailed
	}

	var werr *WorkflowError
	if typed, ok := AsWorkflowError(cause); ok {
		werr = typed
	} else if stepName == "" {
		werr = WrapError(cause, ErrCodeTransformFailed, "transform failed", KindSystem)
	} else {
		werr = NewStepExecutionError(stepName, cause)
	}
	werr = werr.
		WithDetail("transaction_id", execCtx.TransactionID()).
		WithDetail("workflow", def.name).
		WithDetail("run_state", terminal.String()).
		WithCompensationFailures(failures)

	duration := time.Since(start)
	c.metrics.RecordWorkflowFailed(def.name, werr.Kind, duration)
	c.appendJournal(ctx, execCtx, "", journal.PhaseFailed, map[string]interface{}{
		"error":                 werr.Error(),
		"run_state":             terminal.String(),
		"compensation_failures": len(failures),
	})
	log.Errorw("workflow failed",
		"workflow", def.name,
		"transaction_id", execCtx.TransactionID(),
		"kind", werr.Kind,
		"run_state", terminal,
		"compensation_failures", len(failures),
		"duration", duration,
	)
	return werr
}

// appendJournal writes a journal entry best effort. The journal is a
// diagnostic aid; its failures are logged and swallowed.
func (c *Composer) appendJournal(ctx context.Context, execCtx *ExecutionContext, step string, phase journal.Phase, details map[string]interface{}) {
	if c.journal == nil {
		return
	}
	err := c.journal.Append(ctx, &journal.Entry{
		TransactionID: execCtx.TransactionID(),
		Workflow:      execCtx.WorkflowName(),
		Step:          step,
		Phase:         phase,
		Timestamp:     time.Now(),
		Details:       details,
	})
	if err != nil {
		logger.GetSugaredLogger().Warnw("failed to append journal entry",
			"transaction_id", execCtx.TransactionID(),
			"phase", phase,
			"error", err,
		)
	}
}

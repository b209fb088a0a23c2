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
	"time"

	"github.com/innovationmech/atelier/pkg/workflow/journal"
)

// RunState represents the overall state of a workflow invocation.
type RunState int

const (
	// RunStatePending indicates the run is created but not yet started.
	RunStatePending RunState = iota

	// RunStateRunning indicates forward execution is in progress.
	RunStateRunning

	// RunStateCompleted indicates all steps completed and hooks were fired.
	RunStateCompleted

	// RunStateCompensating indicates a step failed and completed steps are
	// being undone in reverse order.
	RunStateCompensating

	// RunStateCompensated indicates compensation finished for every
	// completed step.
	RunStateCompensated

	// RunStateFailed indicates the run failed; compensation has been
	// attempted for all completed steps.
	RunStateFailed
)

// String returns the string representation of the RunState.
func (s RunState) String() string {
	switch s {
	case RunStatePending:
		return "pending"
	case RunStateRunning:
		return "running"
	case RunStateCompleted:
		return "completed"
	case RunStateCompensating:
		return "compensating"
	case RunStateCompensated:
		return "compensated"
	case RunStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the state admits no further execution.
func (s RunState) IsTerminal() bool {
	return s == RunStateCompleted || s == RunStateCompensated || s == RunStateFailed
}

// StateOfTrail derives the run state a journal trail ends in. It serves the
// forensic read path: given the surviving trail of a transaction, report how
// far the run got before the trail stopped. A trail whose last entry is not
// terminal belongs to a run that crashed mid-flight.
func StateOfTrail(entries []*journal.Entry) RunState {
	if len(entries) == 0 {
		return RunStatePending
	}
	switch entries[len(entries)-1].Phase {
	case journal.PhaseCompleted:
		return RunStateCompleted
	case journal.PhaseFailed:
		for _, e := range entries {
			if e.Phase == journal.PhaseCompensationFailed {
				return RunStateFailed
			}
		}
		return RunStateCompensated
	case journal.PhaseStepFailed, journal.PhaseCompensated, journal.PhaseCompensationFailed:
		return RunStateCompensating
	default:
		return RunStateRunning
	}
}

// HookEmission records one hook fired during a run. Emissions accumulate on
// the execution context in order and are dispatched to registered handlers
// only after the entire workflow has committed.
type HookEmission struct {
	// Hook is the hook topic name, e.g. "inventory.linked".
	Hook string `json:"hook"`

	// Step is the name of the step whose completion produced the emission.
	Step string `json:"step"`

	// Payload is the typed payload declared by the workflow for this hook.
	Payload interface{} `json:"payload,omitempty"`

	// EmittedAt is when the emission was recorded (not when it fired).
	EmittedAt time.Time `json:"emitted_at"`
}

// RunResult is returned to the caller after a fully successful invocation.
type RunResult struct {
	// TransactionID identifies the run; it is propagated into every
	// side-effect payload written during the run.
	TransactionID string `json:"transaction_id"`

	// State is the terminal state of the run. A returned RunResult always
	// carries RunStateCompleted; failed runs report their terminal state
	// through the returned error's details instead.
	State RunState `json:"state"`

	// Output is the output of the final step (after any trailing transform).
	Output interface{} `json:"output,omitempty"`

	// CompletedSteps lists the step names in completion order.
	CompletedSteps []string `json:"completed_steps"`

	// Emissions lists the hooks that fired, in dispatch order.
	Emissions []HookEmission `json:"emissions,omitempty"`

	// Duration is the wall-clock time of the invocation.
	Duration time.Duration `json:"duration"`
}

// CompensationFailure describes one compensation that failed during
// rollback. Failures are secondary diagnostics: they are attached to the
// primary error and logged with the transaction id for manual
// reconciliation, but they never replace the error that triggered rollback.
type CompensationFailure struct {
	// StepName is the step whose compensation failed.
	StepName string `json:"step_name"`

	// TransactionID ties the failure to external records for forensics.
	TransactionID string `json:"transaction_id"`

	// Message is the compensation error text.
	Message string `json:"message"`

	// Cause is the undo error wrapped as a compensation-failed
	// WorkflowError, so errors.As reaches the typed kind. Not serialized.
	Cause error `json:"-"`

	// OccurredAt is when the compensation attempt failed.
	OccurredAt time.Time `json:"occurred_at"`
}

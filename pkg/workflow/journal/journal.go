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

// Package journal records an append-only trail of workflow execution keyed
// by transaction id. The journal is a forensic aid: when automated
// compensation itself fails, operators reconcile external records against
// the journaled phases for the offending transaction. It is not a durable
// checkpoint store and workflows never resume from it.
package journal

import (
	"context"
	"errors"
	"time"
)

// Phase identifies what a journal entry records.
type Phase string

const (
	// PhaseStarted marks the beginning of an invocation.
	PhaseStarted Phase = "started"

	// PhaseStepCompleted marks a step whose forward action succeeded.
	PhaseStepCompleted Phase = "step_completed"

	// PhaseStepFailed marks the step whose failure triggered rollback.
	PhaseStepFailed Phase = "step_failed"

	// PhaseCompensated marks a step whose undo succeeded.
	PhaseCompensated Phase = "compensated"

	// PhaseCompensationFailed marks a step whose undo failed; the external
	// record it created may still exist and needs manual attention.
	PhaseCompensationFailed Phase = "compensation_failed"

	// PhaseCompleted marks a fully committed invocation.
	PhaseCompleted Phase = "completed"

	// PhaseFailed marks the end of a failed (compensated) invocation.
	PhaseFailed Phase = "failed"
)

// Entry is one journal record.
type Entry struct {
	TransactionID string                 `json:"transaction_id"`
	Workflow      string                 `json:"workflow"`
	Step          string                 `json:"step,omitempty"`
	Phase         Phase                  `json:"phase"`
	Timestamp     time.Time              `json:"timestamp"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// Journal stores entries per transaction. Implementations must be safe for
// concurrent use; Append is called from the composer's hot path and must be
// cheap, since journal failures are swallowed (best effort) by the caller.
type Journal interface {
	// Append stores an entry under its transaction id, preserving order.
	Append(ctx context.Context, entry *Entry) error

	// List returns all entries for a transaction in append order.
	// A transaction with no entries yields an empty slice, not an error.
	List(ctx context.Context, transactionID string) ([]*Entry, error)

	// Close releases any resources held by the journal.
	Close() error
}

var (
	// ErrJournalClosed indicates the journal has been closed.
	ErrJournalClosed = errors.New("journal is closed")

	// ErrInvalidEntry indicates a nil entry or one without a transaction id.
	ErrInvalidEntry = errors.New("invalid journal entry")
)

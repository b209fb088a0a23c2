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
	"sync"
	"time"

	"github.com/google/uuid"
)

// ExecutionContext carries the per-run state of one workflow invocation:
// the transaction id, the workflow name, and the append-only list of hook
// emissions. It is exclusively owned by one invocation and never reused.
//
// Steps do not resolve services through the context; capability interfaces
// are injected at step construction time. The context exists so that every
// durable side effect a step writes can be tagged with the transaction id,
// which is the handle for tracing and manual reconciliation.
type ExecutionContext struct {
	transactionID string
	workflowName  string
	startedAt     time.Time

	mu          sync.Mutex
	currentStep string
	emissions   []HookEmission
	metadata    map[string]interface{}
}

// NewExecutionContext creates the context for a fresh invocation with a
// newly generated UUID transaction id.
func NewExecutionContext(workflowName string) *ExecutionContext {
	return &ExecutionContext{
		transactionID: uuid.NewString(),
		workflowName:  workflowName,
		startedAt:     time.Now(),
		metadata:      make(map[string]interface{}),
	}
}

// TransactionID returns the per-invocation identifier. Propagate it into any
// side-effect payloads so external records can be traced back to this run.
func (ec *ExecutionContext) TransactionID() string {
	return ec.transactionID
}

// WorkflowName returns the name of the definition being executed.
func (ec *ExecutionContext) WorkflowName() string {
	return ec.workflowName
}

// StartedAt returns when the invocation began.
func (ec *ExecutionContext) StartedAt() time.Time {
	return ec.startedAt
}

// EmitHook records a hook emission. Emissions accumulate in order and are
// dispatched by the composer only after the whole workflow has committed;
// a workflow that fails and rolls back fires nothing.
func (ec *ExecutionContext) EmitHook(hook string, payload interface{}) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.emissions = append(ec.emissions, HookEmission{
		Hook:      hook,
		Step:      ec.currentStep,
		Payload:   payload,
		EmittedAt: time.Now(),
	})
}

// Emissions returns a copy of the emissions recorded so far.
func (ec *ExecutionContext) Emissions() []HookEmission {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]HookEmission, len(ec.emissions))
	copy(out, ec.emissions)
	return out
}

// SetMetadata attaches a key/value pair to the run.
func (ec *ExecutionContext) SetMetadata(key string, value interface{}) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.metadata[key] = value
}

// Metadata returns a copy of the run metadata.
func (ec *ExecutionContext) Metadata() map[string]interface{} {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make(map[string]interface{}, len(ec.metadata))
	for k, v := range ec.metadata {
		out[k] = v
	}
	return out
}

// setCurrentStep records the step about to execute so emissions can be
// attributed. Called by the composer only.
func (ec *ExecutionContext) setCurrentStep(name string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.currentStep = name
}

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
	"sync"
	"time"

	"github.com/innovationmech/atelier/pkg/logger"
)

// HookEvent is the typed payload delivered to hook handlers. The payload
// shape for a given hook topic is declared by the emitting workflow; the
// registry only routes by topic name.
type HookEvent struct {
	// Hook is the topic name the handler was registered under.
	Hook string

	// Workflow and Step identify where the emission came from.
	Workflow string
	Step     string

	// TransactionID ties the event to the run that committed.
	TransactionID string

	// Payload is the value the workflow declared for this hook, typically
	// the emitting step's output.
	Payload interface{}

	// EmittedAt is when the emission was recorded during the run.
	EmittedAt time.Time
}

// HookHandler reacts to a committed workflow. A returned error is logged as
// a post-commit side-effect failure; it never retracts the workflow result.
type HookHandler func(ctx context.Context, event *HookEvent) error

// HookRegistry decouples "workflow succeeded" from the modules that care.
// Handlers register against a topic name at process start; the composer
// dispatches to them synchronously, in registration order, only after the
// entire workflow has committed. Handlers are isolated from each other: one
// failing or panicking handler does not prevent the rest from running.
type HookRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]HookHandler
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{handlers: make(map[string][]HookHandler)}
}

// On registers a handler for the given hook topic. Registration order is
// dispatch order.
func (r *HookRegistry) On(hook string, handler HookHandler) {
	if hook == "" || handler == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[hook] = append(r.handlers[hook], handler)
}

// HandlerCount returns the number of handlers registered for a topic.
func (r *HookRegistry) HandlerCount(hook string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[hook])
}

// dispatch invokes every handler registered for the event's topic. Handler
// errors and panics are logged with the transaction id and counted, never
// propagated: by the time hooks fire the workflow has already committed.
func (r *HookRegistry) dispatch(ctx context.Context, event *HookEvent, metrics MetricsCollector) {
	r.mu.RLock()
	handlers := make([]HookHandler, len(r.handlers[event.Hook]))
	copy(handlers, r.handlers[event.Hook])
	r.mu.RUnlock()

	log := logger.GetSugaredLogger()
	for _, handler := range handlers {
		err := invokeHandler(ctx, handler, event)
		metrics.RecordHookDispatched(event.Hook, err == nil)
		if err != nil {
			log.Errorw("hook handler failed after commit",
				"hook", event.Hook,
				"workflow", event.Workflow,
				"step", event.Step,
				"transaction_id", event.TransactionID,
				"error", err,
			)
		}
	}
}

func invokeHandler(ctx context.Context, handler HookHandler, event *HookEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hook handler panicked: %v", p)
		}
	}()
	return handler(ctx, event)
}

// defaultRegistry serves handlers registered through the package-level On,
// for modules that wire themselves up in init or at process start.
var defaultRegistry = NewHookRegistry()

// DefaultRegistry returns the process-wide hook registry used by composers
// that are not given an explicit one.
func DefaultRegistry() *HookRegistry {
	return defaultRegistry
}

// On registers a handler on the default registry.
func On(hook string, handler HookHandler) {
	defaultRegistry.On(hook, handler)
}

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/innovationmech/atelier/pkg/workflow"

// TracingManager wraps OpenTelemetry span creation for workflow, step, and
// compensation execution. When disabled (the default) it produces no-op
// spans, so the composer can trace unconditionally.
type TracingManager struct {
	tracer  oteltrace.Tracer
	enabled bool
}

// NewTracingManager creates a tracing manager. When enabled it uses the
// globally configured OpenTelemetry tracer provider; exporter setup belongs
// to the host application.
func NewTracingManager(enabled bool) *TracingManager {
	if !enabled {
		return &TracingManager{
			tracer:  noop.NewTracerProvider().Tracer(tracerName),
			enabled: false,
		}
	}
	return &TracingManager{
		tracer:  otel.Tracer(tracerName),
		enabled: true,
	}
}

// StartWorkflowSpan starts the top-level span for one invocation.
func (tm *TracingManager) StartWorkflowSpan(ctx context.Context, workflow, transactionID string) (context.Context, oteltrace.Span) {
	return tm.tracer.Start(ctx, "workflow.run",
		oteltrace.WithAttributes(
			attribute.String("workflow.name", workflow),
			attribute.String("workflow.transaction_id", transactionID),
		),
	)
}

// StartStepSpan starts a span for one step's forward action.
func (tm *TracingManager) StartStepSpan(ctx context.Context, workflow, step, transactionID string) (context.Context, oteltrace.Span) {
	return tm.tracer.Start(ctx, "workflow.step",
		oteltrace.WithAttributes(
			attribute.String("workflow.name", workflow),
			attribute.String("workflow.step", step),
			attribute.String("workflow.transaction_id", transactionID),
		),
	)
}

// StartCompensationSpan starts a span covering the whole rollback pass.
func (tm *TracingManager) StartCompensationSpan(ctx context.Context, workflow, transactionID string, stackDepth int) (context.Context, oteltrace.Span) {
	return tm.tracer.Start(ctx, "workflow.compensate",
		oteltrace.WithAttributes(
			attribute.String("workflow.name", workflow),
			attribute.String("workflow.transaction_id", transactionID),
			attribute.Int("workflow.steps_to_compensate", stackDepth),
		),
	)
}

// EndSpan finishes a span, marking it failed when err is non-nil.
func EndSpan(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

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
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewPrometheusCollector(reg)

	collector.RecordWorkflowStarted("wf")
	collector.RecordWorkflowStarted("wf")
	collector.RecordWorkflowCompleted("wf", 10*time.Millisecond)
	collector.RecordWorkflowFailed("wf", KindSystem, 5*time.Millisecond)
	collector.RecordStepExecuted("wf", "step-a", true, time.Millisecond)
	collector.RecordStepExecuted("wf", "step-a", false, time.Millisecond)
	collector.RecordCompensationExecuted("wf", "step-a", true, time.Millisecond)
	collector.RecordHookDispatched("thing.done", true)
	collector.RecordHookDispatched("thing.done", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.workflowsStarted.WithLabelValues("wf")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.workflowsCompleted.WithLabelValues("wf")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.workflowsFailed.WithLabelValues("wf", "system")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.stepsExecuted.WithLabelValues("wf", "step-a", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.stepsExecuted.WithLabelValues("wf", "step-a", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.compensations.WithLabelValues("wf", "step-a", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.hooksDispatched.WithLabelValues("thing.done", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.hooksDispatched.WithLabelValues("thing.done", "false")))
}

func TestPrometheusCollector_WiredThroughComposer(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewPrometheusCollector(reg)

	failing := NewStep("boom",
		func(ctx context.Context, execCtx *ExecutionContext, input interface{}) (interface{}, error) {
			return nil, errors.New("nope")
		}).
		WithoutCompensation().
		MustBuild()

	okStep := NewStep("fine",
		func(ctx context.Context, execCtx *ExecutionContext, input interface{}) (interface{}, error) {
			return input, nil
		}).
		WithCompensation(func(ctx context.Context, execCtx *ExecutionContext, output interface{}) error {
			return nil
		}).
		MustBuild()

	def, err := NewBuilder("metered").
		Step(okStep).
		Step(failing).
		Build()
	require.NoError(t, err)

	composer := NewComposer(&ComposerConfig{Hooks: NewHookRegistry(), Metrics: collector})
	_, err = composer.Execute(context.Background(), def, nil)
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.workflowsStarted.WithLabelValues("metered")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.workflowsFailed.WithLabelValues("metered", "system")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.stepsExecuted.WithLabelValues("metered", "fine", "true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.stepsExecuted.WithLabelValues("metered", "boom", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.compensations.WithLabelValues("metered", "fine", "true")))
}

func TestTracingManager_Disabled(t *testing.T) {
	tm := NewTracingManager(false)
	ctx, span := tm.StartWorkflowSpan(context.Background(), "wf", "tx-1")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	EndSpan(span, nil)

	_, stepSpan := tm.StartStepSpan(ctx, "wf", "step", "tx-1")
	EndSpan(stepSpan, errors.New("recorded but dropped"))

	_, compSpan := tm.StartCompensationSpan(ctx, "wf", "tx-1", 2)
	EndSpan(compSpan, nil)
}

func TestTracingManager_Enabled(t *testing.T) {
	tm := NewTracingManager(true)
	ctx, span := tm.StartWorkflowSpan(context.Background(), "wf", "tx-1")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	EndSpan(span, nil)
}

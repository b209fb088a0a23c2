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

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector receives execution signals from the composer.
// Implementations can forward them to Prometheus or any other monitoring
// system; a no-op collector is used when none is configured.
type MetricsCollector interface {
	// RecordWorkflowStarted increments the count of started invocations.
	RecordWorkflowStarted(workflow string)

	// RecordWorkflowCompleted records a fully committed invocation.
	RecordWorkflowCompleted(workflow string, duration time.Duration)

	// RecordWorkflowFailed records a failed (and compensated) invocation.
	RecordWorkflowFailed(workflow string, kind Kind, duration time.Duration)

	// RecordStepExecuted records one step's forward action.
	RecordStepExecuted(workflow, step string, success bool, duration time.Duration)

	// RecordCompensationExecuted records one undo attempt.
	RecordCompensationExecuted(workflow, step string, success bool, duration time.Duration)

	// RecordHookDispatched records one post-commit handler invocation.
	RecordHookDispatched(hook string, success bool)
}

// noOpMetricsCollector is used when no collector is configured.
type noOpMetricsCollector struct{}

func (n *noOpMetricsCollector) RecordWorkflowStarted(workflow string)                         {}
func (n *noOpMetricsCollector) RecordWorkflowCompleted(workflow string, duration time.Duration) {}
func (n *noOpMetricsCollector) RecordWorkflowFailed(workflow string, kind Kind, duration time.Duration) {
}
func (n *noOpMetricsCollector) RecordStepExecuted(workflow, step string, success bool, duration time.Duration) {
}
func (n *noOpMetricsCollector) RecordCompensationExecuted(workflow, step string, success bool, duration time.Duration) {
}
func (n *noOpMetricsCollector) RecordHookDispatched(hook string, success bool) {}

// PrometheusCollector implements MetricsCollector on top of
// prometheus/client_golang. All metrics are labeled by workflow name so
// concurrent definitions can be told apart on one registry.
type PrometheusCollector struct {
	workflowsStarted   *prometheus.CounterVec
	workflowsCompleted *prometheus.CounterVec
	workflowsFailed    *prometheus.CounterVec
	workflowDuration   *prometheus.HistogramVec
	stepsExecuted      *prometheus.CounterVec
	stepDuration       *prometheus.HistogramVec
	compensations      *prometheus.CounterVec
	hooksDispatched    *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector registered on the given
// registerer. Pass prometheus.DefaultRegisterer to use the default registry,
// or a private prometheus.NewRegistry() in tests.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		workflowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "workflow",
			Name:      "runs_started_total",
			Help:      "Number of workflow invocations started.",
		}, []string{"workflow"}),
		workflowsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "workflow",
			Name:      "runs_completed_total",
			Help:      "Number of workflow invocations that fully committed.",
		}, []string{"workflow"}),
		workflowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "workflow",
			Name:      "runs_failed_total",
			Help:      "Number of workflow invocations that failed and were compensated.",
		}, []string{"workflow", "kind"}),
		workflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "atelier",
			Subsystem: "workflow",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of workflow invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"workflow"}),
		stepsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "workflow",
			Name:      "steps_executed_total",
			Help:      "Number of step forward actions executed.",
		}, []string{"workflow", "step", "success"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "atelier",
			Subsystem: "workflow",
			Name:      "step_duration_seconds",
			Help:      "Duration of step forward actions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"workflow", "step"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "workflow",
			Name:      "compensations_total",
			Help:      "Number of compensation attempts.",
		}, []string{"workflow", "step", "success"}),
		hooksDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atelier",
			Subsystem: "workflow",
			Name:      "hooks_dispatched_total",
			Help:      "Number of post-commit hook handler invocations.",
		}, []string{"hook", "success"}),
	}

	reg.MustRegister(
		c.workflowsStarted,
		c.workflowsCompleted,
		c.workflowsFailed,
		c.workflowDuration,
		c.stepsExecuted,
		c.stepDuration,
		c.compensations,
		c.hooksDispatched,
	)
	return c
}

// RecordWorkflowStarted implements MetricsCollector.
func (c *PrometheusCollector) RecordWorkflowStarted(workflow string) {
	c.workflowsStarted.WithLabelValues(workflow).Inc()
}

// RecordWorkflowCompleted implements MetricsCollector.
func (c *PrometheusCollector) RecordWorkflowCompleted(workflow string, duration time.Duration) {
	c.workflowsCompleted.WithLabelValues(workflow).Inc()
	c.workflowDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordWorkflowFailed implements MetricsCollector.
func (c *PrometheusCollector) RecordWorkflowFailed(workflow string, kind Kind, duration time.Duration) {
	c.workflowsFailed.WithLabelValues(workflow, string(kind)).Inc()
	c.workflowDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordStepExecuted implements MetricsCollector.
func (c *PrometheusCollector) RecordStepExecuted(workflow, step string, success bool, duration time.Duration) {
	c.stepsExecuted.WithLabelValues(workflow, step, boolLabel(success)).Inc()
	c.stepDuration.WithLabelValues(workflow, step).Observe(duration.Seconds())
}

// RecordCompensationExecuted implements MetricsCollector.
func (c *PrometheusCollector) RecordCompensationExecuted(workflow, step string, success bool, duration time.Duration) {
	c.compensations.WithLabelValues(workflow, step, boolLabel(success)).Inc()
}

// RecordHookDispatched implements MetricsCollector.
func (c *PrometheusCollector) RecordHookDispatched(hook string, success bool) {
	c.hooksDispatched.WithLabelValues(hook, boolLabel(success)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

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

// Package workflow provides the transactional workflow orchestration core.
// It coordinates multi-step operations across independently owned data
// domains, with compensation (rollback) on failure and named hook points
// that fire only after a workflow has fully committed.
//
// A workflow is a bounded, ordered sequence of steps executed synchronously
// within one invocation. Each step pairs a forward action with an optional
// compensating action. When any step fails, all previously completed steps
// are compensated in strict reverse order and the original error is returned
// to the caller, so a failed workflow leaves no durable effects behind.
package workflow

import (
	"context"
	"errors"
	"fmt"
)

// ForwardFunc is the forward action of a step. It receives the step's input
// (the previous step's output, possibly reshaped by a transform) and returns
// the step's output, which is recorded for compensation and flows downstream.
type ForwardFunc func(ctx context.Context, execCtx *ExecutionContext, input interface{}) (interface{}, error)

// CompensateFunc undoes the durable effects of a completed step. It receives
// the exact output the forward action returned, so an undo never needs to
// re-derive what it created. Compensations must be idempotent.
type CompensateFunc func(ctx context.Context, execCtx *ExecutionContext, output interface{}) error

// TransformFunc reshapes data between steps. Transforms are pure: they never
// appear on the completion stack and are never compensated.
type TransformFunc func(input interface{}) (interface{}, error)

// Step is a single unit of work within a workflow definition.
// Implementations must either perform real compensation in Compensate or
// report false from HasCompensation; the definition builder rejects steps
// that leave the question open.
type Step interface {
	// GetName returns the step name, unique within a workflow definition.
	GetName() string

	// Execute runs the forward action. On success the output becomes the
	// step's entry on the completion stack and the input of the next step.
	Execute(ctx context.Context, execCtx *ExecutionContext, input interface{}) (interface{}, error)

	// Compensate undoes the forward action given its recorded output.
	// It is only invoked when HasCompensation reports true.
	Compensate(ctx context.Context, execCtx *ExecutionContext, output interface{}) error

	// HasCompensation reports whether this step has durable effects to undo.
	HasCompensation() bool
}

// funcStep adapts a forward/compensate function pair into a Step.
type funcStep struct {
	name       string
	forward    ForwardFunc
	compensate CompensateFunc
	optOut     bool
}

func (s *funcStep) GetName() string { return s.name }

func (s *funcStep) Execute(ctx context.Context, execCtx *ExecutionContext, input interface{}) (interface{}, error) {
	return s.forward(ctx, execCtx, input)
}

func (s *funcStep) Compensate(ctx context.Context, execCtx *ExecutionContext, output interface{}) error {
	if s.compensate == nil {
		return nil
	}
	return s.compensate(ctx, execCtx, output)
}

func (s *funcStep) HasCompensation() bool { return s.compensate != nil }

// StepBuilder assembles a function-based step. Every step built through it
// must either declare a compensation or explicitly opt out, making the
// "no side effects to undo" decision visible at the call site.
type StepBuilder struct {
	step *funcStep
}

// NewStep starts building a step with the given name and forward action.
func NewStep(name string, forward ForwardFunc) *StepBuilder {
	return &StepBuilder{step: &funcStep{name: name, forward: forward}}
}

// WithCompensation declares the undo action for the step.
func (b *StepBuilder) WithCompensation(compensate CompensateFunc) *StepBuilder {
	b.step.compensate = compensate
	return b
}

// WithoutCompensation declares that the step has no durable effects to undo,
// for example a pure validation or state-gate check.
func (b *StepBuilder) WithoutCompensation() *StepBuilder {
	b.step.optOut = true
	return b
}

// Build finalizes the step. It fails if the name or forward action is
// missing, or if neither a compensation nor an explicit opt-out was declared.
func (b *StepBuilder) Build() (Step, error) {
	if b.step.name == "" {
		return nil, errors.New("step name cannot be empty")
	}
	if b.step.forward == nil {
		return nil, fmt.Errorf("step %q has no forward action", b.step.name)
	}
	if b.step.compensate == nil && !b.step.optOut {
		return nil, fmt.Errorf("step %q must declare a compensation or opt out explicitly", b.step.name)
	}
	if b.step.compensate != nil && b.step.optOut {
		return nil, fmt.Errorf("step %q declares both a compensation and an opt-out", b.step.name)
	}
	return b.step, nil
}

// MustBuild is like Build but panics on error. Intended for definitions
// assembled at process start where a malformed step is a programming error.
func (b *StepBuilder) MustBuild() Step {
	step, err := b.Build()
	if err != nil {
		panic(err)
	}
	return step
}

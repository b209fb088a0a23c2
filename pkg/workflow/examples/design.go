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

package examples

import (
	"context"
	"fmt"

	"github.com/innovationmech/atelier/pkg/workflow"
)

// Hook topics emitted by the design workflows.
const (
	HookDesignCreated = "design.created"
)

// Step names in CreateDesignWorkflow.
const (
	StepCreateDesign   = "create-design"
	StepCreateVariants = "create-variants"
)

// DesignCreation is the state flowing through CreateDesignWorkflow. Each
// step fills in its slice of the state and returns the whole struct, so
// compensations find everything they need in their recorded output.
type DesignCreation struct {
	Input    *DesignInput     `json:"input"`
	Design   *DesignRecord    `json:"design,omitempty"`
	Variants []*VariantRecord `json:"variants,omitempty"`
}

// CreateDesignWorkflow builds the design-creation definition: validate and
// normalize the input, create the design record, fan out the color/size
// variants, and announce the new design via the design.created hook once
// everything has committed.
//
// If variant creation fails, the design record is deleted by compensation
// and the caller sees the original failure with no half-created design left
// behind.
func CreateDesignWorkflow(designs DesignServiceClient, variants VariantServiceClient) (*workflow.Definition, error) {
	createDesign := workflow.NewStep(StepCreateDesign,
		func(ctx context.Context, execCtx *workflow.ExecutionContext, input interface{}) (interface{}, error) {
			state, ok := input.(*DesignCreation)
			if !ok {
				return nil, workflow.NewValidationError(
					fmt.Sprintf("expected *DesignCreation input, got %T", input))
			}

			design, err := designs.CreateDesign(ctx, state.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to create design %q: %w", state.Input.Name, err)
			}
			state.Design = design
			execCtx.SetMetadata("design_id", design.ID)
			return state, nil
		}).
		WithCompensation(func(ctx context.Context, execCtx *workflow.ExecutionContext, output interface{}) error {
			state := output.(*DesignCreation)
			return designs.DeleteDesign(ctx, state.Design.ID)
		}).
		MustBuild()

	createVariants := workflow.NewStep(StepCreateVariants,
		func(ctx context.Context, execCtx *workflow.ExecutionContext, input interface{}) (interface{}, error) {
			state := input.(*DesignCreation)

			created, err := variants.CreateVariants(ctx, state.Design, state.Input.Colors, state.Input.Sizes)
			if err != nil {
				return nil, fmt.Errorf("failed to create variants for design %s: %w", state.Design.ID, err)
			}
			state.Variants = created
			return state, nil
		}).
		WithCompensation(func(ctx context.Context, execCtx *workflow.ExecutionContext, output interface{}) error {
			state := output.(*DesignCreation)
			ids := make([]string, 0, len(state.Variants))
			for _, v := range state.Variants {
				ids = append(ids, v.ID)
			}
			return variants.DeleteVariants(ctx, ids)
		}).
		MustBuild()

	return workflow.NewBuilder("create-design").
		Transform(func(input interface{}) (interface{}, error) {
			in, ok := input.(*DesignInput)
			if !ok {
				return nil, fmt.Errorf("expected *DesignInput, got %T", input)
			}
			normalized := in.Normalize()
			if err := normalized.Validate(); err != nil {
				return nil, workflow.NewValidationError(err.Error())
			}
			return &DesignCreation{Input: normalized}, nil
		}).
		Step(createDesign).
		Step(createVariants).
		EmitHook(StepCreateVariants, HookDesignCreated).
		Build()
}

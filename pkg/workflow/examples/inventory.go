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
	"errors"
	"fmt"
	"time"

	"github.com/innovationmech/atelier/pkg/workflow"
	"github.com/innovationmech/atelier/pkg/workflow/link"
)

// Hook topics emitted by the inventory workflows.
const (
	HookInventoryLinked   = "inventory.linked"
	HookInventoryDelinked = "inventory.delinked"
)

// Step names in the inventory workflows.
const (
	StepValidateLinkRequest = "validate-link-request"
	StepCreateLinks         = "create-links"
	StepRecordConsumption   = "record-consumption"
	StepCheckDetachable     = "check-detachable"
	StepDismissLinks        = "dismiss-links"
)

// LinkItemRequest names one inventory item to link and the quantity the
// design plans to consume from it.
type LinkItemRequest struct {
	ItemID          string  `json:"item_id" validate:"required"`
	PlannedQuantity float64 `json:"planned_quantity" validate:"gt=0"`
}

// LinkRequest asks to associate a design with a batch of inventory items.
type LinkRequest struct {
	DesignID string            `json:"design_id" validate:"required"`
	Items    []LinkItemRequest `json:"items" validate:"required,min=1,dive"`
}

// LinkResult is the committed outcome of LinkInventoryWorkflow and the
// payload of the inventory.linked hook.
type LinkResult struct {
	DesignID string     `json:"design_id"`
	Keys     []link.Key `json:"keys"`
}

// LinkInventoryWorkflow builds the definition that associates a design with
// inventory items. The link manager validates that the design and every item
// exist before it writes anything, so a request naming one unknown id fails
// with a not-found error naming that id and leaves no links behind. On
// success the inventory.linked hook fires with the created keys.
func LinkInventoryWorkflow(manager *link.Manager) (*workflow.Definition, error) {
	validateRequest := workflow.NewStep(StepValidateLinkRequest,
		func(ctx context.Context, execCtx *workflow.ExecutionContext, input interface{}) (interface{}, error) {
			req, ok := input.(*LinkRequest)
			if !ok {
				return nil, workflow.NewValidationError(
					fmt.Sprintf("expected *LinkRequest input, got %T", input))
			}
			if err := validate.Struct(req); err != nil {
				return nil, workflow.NewValidationError(err.Error())
			}
			return req, nil
		}).
		WithoutCompensation().
		MustBuild()

	createLinks := workflow.NewStep(StepCreateLinks,
		func(ctx context.Context, execCtx *workflow.ExecutionContext, input interface{}) (interface{}, error) {
			req := input.(*LinkRequest)

			specs := make([]link.Spec, 0, len(req.Items))
			for _, item := range req.Items {
				planned := item.PlannedQuantity
				specs = append(specs, link.Spec{
					LeftID:  req.DesignID,
					RightID: item.ItemID,
					Attributes: link.Attributes{
						PlannedQuantity: &planned,
					},
				})
			}

			keys, err := manager.Create(ctx, execCtx.TransactionID(), specs)
			if err != nil {
				return nil, err
			}
			return &LinkResult{DesignID: req.DesignID, Keys: keys}, nil
		}).
		WithCompensation(func(ctx context.Context, execCtx *workflow.ExecutionContext, output interface{}) error {
			result := output.(*LinkResult)
			return manager.Dismiss(ctx, result.Keys)
		}).
		MustBuild()

	return workflow.NewBuilder("link-inventory").
		Step(validateRequest).
		Step(createLinks).
		EmitHook(StepCreateLinks, HookInventoryLinked).
		Build()
}

// ConsumeRequest records that a design consumed part of a linked item.
type ConsumeRequest struct {
	DesignID string  `json:"design_id" validate:"required"`
	ItemID   string  `json:"item_id" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

// ConsumptionResult is the committed outcome of ConsumeInventoryWorkflow.
// Prior carries the full pre-update record so the compensating restore needs
// no re-query.
type ConsumptionResult struct {
	Updated *link.Record `json:"updated"`
	Prior   *link.Record `json:"prior"`
}

// ConsumeInventoryWorkflow builds the definition that stamps a consumed
// quantity and timestamp onto an existing design/inventory link. The update
// captures the prior record first; if a later step fails, compensation
// restores the link exactly as it was, not just the fields this run touched.
func ConsumeInventoryWorkflow(manager *link.Manager) (*workflow.Definition, error) {
	recordConsumption := workflow.NewStep(StepRecordConsumption,
		func(ctx context.Context, execCtx *workflow.ExecutionContext, input interface{}) (interface{}, error) {
			req, ok := input.(*ConsumeRequest)
			if !ok {
				return nil, workflow.NewValidationError(
					fmt.Sprintf("expected *ConsumeRequest input, got %T", input))
			}
			if err := validate.Struct(req); err != nil {
				return nil, workflow.NewValidationError(err.Error())
			}

			consumedAt := time.Now()
			quantity := req.Quantity
			prior, updated, err := manager.Update(ctx, execCtx.TransactionID(),
				link.Key{LeftID: req.DesignID, RightID: req.ItemID},
				link.Attributes{
					ConsumedQuantity: &quantity,
					ConsumedAt:       &consumedAt,
				})
			if err != nil {
				return nil, err
			}
			return &ConsumptionResult{Updated: updated, Prior: prior}, nil
		}).
		WithCompensation(func(ctx context.Context, execCtx *workflow.ExecutionContext, output interface{}) error {
			result := output.(*ConsumptionResult)
			return manager.Restore(ctx, execCtx.TransactionID(), result.Prior)
		}).
		MustBuild()

	return workflow.NewBuilder("consume-inventory").
		Step(recordConsumption).
		Build()
}

// DelinkRequest asks to remove the associations between a design and a set
// of inventory items.
type DelinkRequest struct {
	DesignID string   `json:"design_id" validate:"required"`
	ItemIDs  []string `json:"item_ids" validate:"required,min=1,dive,required"`
}

// DelinkResult is the committed outcome of DelinkInventoryWorkflow and the
// payload of the inventory.delinked hook. Dismissed holds the full records
// that were removed; items that were never linked do not appear.
type DelinkResult struct {
	DesignID  string         `json:"design_id"`
	Dismissed []*link.Record `json:"dismissed"`
}

// DelinkInventoryWorkflow builds the definition that removes design/
// inventory associations. A lifecycle gate runs first: commerce-ready
// designs refuse delinking, and because the gate writes nothing it opts out
// of compensation. Dismissal is idempotent per item, so delinking an item
// that was never linked is a successful no-op. Compensation recreates the
// dismissed records from their captured state.
func DelinkInventoryWorkflow(manager *link.Manager, designs DesignServiceClient) (*workflow.Definition, error) {
	checkDetachable := workflow.NewStep(StepCheckDetachable,
		func(ctx context.Context, execCtx *workflow.ExecutionContext, input interface{}) (interface{}, error) {
			req, ok := input.(*DelinkRequest)
			if !ok {
				return nil, workflow.NewValidationError(
					fmt.Sprintf("expected *DelinkRequest input, got %T", input))
			}
			if err := validate.Struct(req); err != nil {
				return nil, workflow.NewValidationError(err.Error())
			}

			design, err := designs.GetDesign(ctx, req.DesignID)
			if err != nil {
				if errors.Is(err, ErrDesignNotFound) {
					return nil, workflow.NewNotFoundError("design", req.DesignID)
				}
				return nil, fmt.Errorf("failed to load design %s: %w", req.DesignID, err)
			}
			if !design.State.Detachable() {
				return nil, workflow.NewStateConflictError(
					fmt.Sprintf("design %s is %s and its inventory links cannot be removed",
						design.ID, design.State))
			}
			return req, nil
		}).
		WithoutCompensation().
		MustBuild()

	dismissLinks := workflow.NewStep(StepDismissLinks,
		func(ctx context.Context, execCtx *workflow.ExecutionContext, input interface{}) (interface{}, error) {
			req := input.(*DelinkRequest)

			dismissed := make([]*link.Record, 0, len(req.ItemIDs))
			for _, itemID := range req.ItemIDs {
				key := link.Key{LeftID: req.DesignID, RightID: itemID}
				record, err := manager.Get(ctx, key)
				if err != nil {
					if errors.Is(err, link.ErrLinkNotFound) {
						continue
					}
					return nil, fmt.Errorf("failed to load link (%s, %s): %w", key.LeftID, key.RightID, err)
				}
				if err := manager.Dismiss(ctx, []link.Key{key}); err != nil {
					return nil, err
				}
				dismissed = append(dismissed, record)
			}
			return &DelinkResult{DesignID: req.DesignID, Dismissed: dismissed}, nil
		}).
		WithCompensation(func(ctx context.Context, execCtx *workflow.ExecutionContext, output interface{}) error {
			result := output.(*DelinkResult)
			for _, record := range result.Dismissed {
				if err := manager.Restore(ctx, execCtx.TransactionID(), record); err != nil {
					return err
				}
			}
			return nil
		}).
		MustBuild()

	return workflow.NewBuilder("delink-inventory").
		Step(checkDetachable).
		Step(dismissLinks).
		EmitHook(StepDismissLinks, HookInventoryDelinked).
		Build()
}

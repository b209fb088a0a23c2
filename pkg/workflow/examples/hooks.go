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

	"github.com/innovationmech/atelier/pkg/logger"
	"github.com/innovationmech/atelier/pkg/workflow"
)

// CostRecalculator recomputes a design's material cost from its current
// inventory links. The costing module owns the arithmetic; the workflows
// only tell it when the link set changed.
type CostRecalculator interface {
	Recalculate(ctx context.Context, designID string) error
}

// RegisterCostRecalculation subscribes the costing module to the hooks that
// change a design's inventory footprint. Costing knows nothing about the
// workflows and the workflows know nothing about costing; the hook topic is
// the only coupling between them. A failed recalculation is logged and does
// not disturb the committed workflow.
func RegisterCostRecalculation(registry *workflow.HookRegistry, recalc CostRecalculator) {
	recalculate := func(ctx context.Context, event *workflow.HookEvent) error {
		designID, err := designIDFromPayload(event.Payload)
		if err != nil {
			return fmt.Errorf("hook %s: %w", event.Hook, err)
		}
		if err := recalc.Recalculate(ctx, designID); err != nil {
			return fmt.Errorf("cost recalculation for design %s failed: %w", designID, err)
		}
		logger.GetSugaredLogger().Debugw("recalculated design cost",
			"design_id", designID,
			"hook", event.Hook,
			"transaction_id", event.TransactionID,
		)
		return nil
	}

	registry.On(HookInventoryLinked, recalculate)
	registry.On(HookInventoryDelinked, recalculate)
}

func designIDFromPayload(payload interface{}) (string, error) {
	switch p := payload.(type) {
	case *LinkResult:
		return p.DesignID, nil
	case *DelinkResult:
		return p.DesignID, nil
	default:
		return "", fmt.Errorf("unexpected payload type %T", payload)
	}
}

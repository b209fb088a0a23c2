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

// Package examples contains complete product-design workflows built on the
// workflow core: design creation with variant fan-out, inventory linking,
// consumption recording, and delinking with a lifecycle-state gate. They
// double as end-to-end exercises of the composer, link manager, and hook
// registry against realistic domain rules.
package examples

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DesignState is the lifecycle state of a design.
type DesignState string

const (
	// StateDraft is a freshly created, still editable design.
	StateDraft DesignState = "draft"

	// StateInReview is a design under review. Structural edits are allowed.
	StateInReview DesignState = "in_review"

	// StateApproved is a reviewed design awaiting commerce enablement.
	StateApproved DesignState = "approved"

	// StateCommerceReady is the terminal state: the design is sellable and
	// its inventory associations are frozen.
	StateCommerceReady DesignState = "commerce_ready"
)

// detachableStates is the allow-list of states in which inventory may be
// delinked from a design. Commerce-ready designs are deliberately absent.
var detachableStates = map[DesignState]bool{
	StateDraft:    true,
	StateInReview: true,
	StateApproved: true,
}

// Detachable reports whether inventory may be delinked in this state.
func (s DesignState) Detachable() bool {
	return detachableStates[s]
}

// DesignInput is the caller-supplied payload for creating a design.
type DesignInput struct {
	Name      string   `json:"name" validate:"required,min=1,max=120"`
	SKUPrefix string   `json:"sku_prefix" validate:"required,alphanum,max=16"`
	Colors    []string `json:"colors" validate:"required,min=1,dive,required"`
	Sizes     []string `json:"sizes" validate:"required,min=1,dive,required"`
	CreatedBy string   `json:"created_by" validate:"required"`
}

var validate = validator.New()

// Validate checks the input against its declared constraints.
func (in *DesignInput) Validate() error {
	return validate.Struct(in)
}

// Normalize trims whitespace and upper-cases the SKU prefix. Returns a copy;
// the caller's input is untouched.
func (in *DesignInput) Normalize() *DesignInput {
	out := &DesignInput{
		Name:      strings.TrimSpace(in.Name),
		SKUPrefix: strings.ToUpper(strings.TrimSpace(in.SKUPrefix)),
		CreatedBy: strings.TrimSpace(in.CreatedBy),
		Colors:    make([]string, 0, len(in.Colors)),
		Sizes:     make([]string, 0, len(in.Sizes)),
	}
	for _, c := range in.Colors {
		out.Colors = append(out.Colors, strings.TrimSpace(c))
	}
	for _, s := range in.Sizes {
		out.Sizes = append(out.Sizes, strings.TrimSpace(s))
	}
	return out
}

// DesignRecord is a persisted design.
type DesignRecord struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	SKUPrefix string      `json:"sku_prefix"`
	State     DesignState `json:"state"`
	CreatedBy string      `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// VariantRecord is a persisted color/size variant of a design.
type VariantRecord struct {
	ID       string `json:"id"`
	DesignID string `json:"design_id"`
	SKU      string `json:"sku"`
	Color    string `json:"color"`
	Size     string `json:"size"`
}

// InventoryItem is a raw material or component held in stock.
type InventoryItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	UnitCost   float64 `json:"unit_cost"`
	Quantity   float64 `json:"quantity"`
	LocationID string  `json:"location_id"`
}

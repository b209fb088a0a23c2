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

	"github.com/innovationmech/atelier/pkg/workflow/link"
)

// ErrDesignNotFound is returned by design clients for unknown ids.
var ErrDesignNotFound = errors.New("design not found")

// DesignServiceClient is the design domain's service interface as the
// workflows need it.
type DesignServiceClient interface {
	// CreateDesign persists a new design in the draft state.
	CreateDesign(ctx context.Context, input *DesignInput) (*DesignRecord, error)

	// DeleteDesign removes a design. Deleting an unknown id is a no-op so
	// compensation can run after a partially failed create.
	DeleteDesign(ctx context.Context, designID string) error

	// GetDesign returns the design, or ErrDesignNotFound.
	GetDesign(ctx context.Context, designID string) (*DesignRecord, error)
}

// VariantServiceClient manages the color/size variants of a design.
type VariantServiceClient interface {
	// CreateVariants persists one variant per color/size combination and
	// returns them in creation order.
	CreateVariants(ctx context.Context, design *DesignRecord, colors, sizes []string) ([]*VariantRecord, error)

	// DeleteVariants removes the given variants. Unknown ids are skipped.
	DeleteVariants(ctx context.Context, variantIDs []string) error
}

// InventoryServiceClient is the inventory domain's service interface.
type InventoryServiceClient interface {
	// GetItem returns the inventory item, or a nil item when the id is
	// unknown.
	GetItem(ctx context.Context, itemID string) (*InventoryItem, error)
}

// DesignResolver adapts a DesignServiceClient to the link manager's
// entity-resolver contract for the left side of design/inventory links.
type DesignResolver struct {
	Client DesignServiceClient
}

// Exists implements link.EntityResolver.
func (r *DesignResolver) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.Client.GetDesign(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDesignNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// InventoryResolver adapts an InventoryServiceClient to the link manager's
// entity-resolver contract for the right side.
type InventoryResolver struct {
	Client InventoryServiceClient
}

// Exists implements link.EntityResolver.
func (r *InventoryResolver) Exists(ctx context.Context, id string) (bool, error) {
	item, err := r.Client.GetItem(ctx, id)
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

// NewDesignInventoryLinkManager wires a link manager for design/inventory
// associations: designs on the left, inventory items on the right.
func NewDesignInventoryLinkManager(store link.Store, designs DesignServiceClient, inventory InventoryServiceClient) (*link.Manager, error) {
	return link.NewManager(&link.ManagerConfig{
		Store:         store,
		LeftResolver:  &DesignResolver{Client: designs},
		RightResolver: &InventoryResolver{Client: inventory},
		LeftEntity:    "design",
		RightEntity:   "inventory item",
	})
}

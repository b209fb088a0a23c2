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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/atelier/pkg/workflow"
	"github.com/innovationmech/atelier/pkg/workflow/link"
)

// fakeDesignService is an in-memory design domain.
type fakeDesignService struct {
	designs  map[string]*DesignRecord
	nextID   int
	deleted  []string
	failNext bool
}

func newFakeDesignService() *fakeDesignService {
	return &fakeDesignService{designs: make(map[string]*DesignRecord)}
}

func (f *fakeDesignService) addDesign(id string, state DesignState) {
	f.designs[id] = &DesignRecord{ID: id, Name: id, State: state, CreatedAt: time.Now()}
}

func (f *fakeDesignService) CreateDesign(ctx context.Context, input *DesignInput) (*DesignRecord, error) {
	if f.failNext {
		f.failNext = false
		return nil, errors.New("design storage unavailable")
	}
	f.nextID++
	record := &DesignRecord{
		ID:        fmt.Sprintf("design-%d", f.nextID),
		Name:      input.Name,
		SKUPrefix: input.SKUPrefix,
		State:     StateDraft,
		CreatedBy: input.CreatedBy,
		CreatedAt: time.Now(),
	}
	f.designs[record.ID] = record
	return record, nil
}

func (f *fakeDesignService) DeleteDesign(ctx context.Context, designID string) error {
	delete(f.designs, designID)
	f.deleted = append(f.deleted, designID)
	return nil
}

func (f *fakeDesignService) GetDesign(ctx context.Context, designID string) (*DesignRecord, error) {
	record, ok := f.designs[designID]
	if !ok {
		return nil, ErrDesignNotFound
	}
	return record, nil
}

// fakeVariantService is an in-memory variant domain.
type fakeVariantService struct {
	variants map[string]*VariantRecord
	nextID   int
	deleted  []string
	failNext bool
}

func newFakeVariantService() *fakeVariantService {
	return &fakeVariantService{variants: make(map[string]*VariantRecord)}
}

func (f *fakeVariantService) CreateVariants(ctx context.Context, design *DesignRecord, colors, sizes []string) ([]*VariantRecord, error) {
	if f.failNext {
		f.failNext = false
		return nil, errors.New("variant storage unavailable")
	}
	var created []*VariantRecord
	for _, color := range colors {
		for _, size := range sizes {
			f.nextID++
			v := &VariantRecord{
				ID:       fmt.Sprintf("variant-%d", f.nextID),
				DesignID: design.ID,
				SKU:      fmt.Sprintf("%s-%s-%s", design.SKUPrefix, color, size),
				Color:    color,
				Size:     size,
			}
			f.variants[v.ID] = v
			created = append(created, v)
		}
	}
	return created, nil
}

func (f *fakeVariantService) DeleteVariants(ctx context.Context, variantIDs []string) error {
	for _, id := range variantIDs {
		delete(f.variants, id)
		f.deleted = append(f.deleted, id)
	}
	return nil
}

// fakeInventoryService is an in-memory inventory domain.
type fakeInventoryService struct {
	items map[string]*InventoryItem
}

func newFakeInventoryService(ids ...string) *fakeInventoryService {
	items := make(map[string]*InventoryItem, len(ids))
	for _, id := range ids {
		items[id] = &InventoryItem{ID: id, Name: id, UnitCost: 1, Quantity: 100}
	}
	return &fakeInventoryService{items: items}
}

func (f *fakeInventoryService) GetItem(ctx context.Context, itemID string) (*InventoryItem, error) {
	return f.items[itemID], nil
}

// spyLinkStore records writes so tests can prove a rejected operation never
// touched storage.
type spyLinkStore struct {
	link.Store
	inserts []link.Key
	deletes []link.Key
}

func newSpyLinkStore() *spyLinkStore {
	return &spyLinkStore{Store: link.NewMemoryStore()}
}

func (s *spyLinkStore) Insert(ctx context.Context, record *link.Record) error {
	err := s.Store.Insert(ctx, record)
	if err == nil {
		s.inserts = append(s.inserts, record.Key())
	}
	return err
}

func (s *spyLinkStore) Delete(ctx context.Context, key link.Key) (bool, error) {
	s.deletes = append(s.deletes, key)
	return s.Store.Delete(ctx, key)
}

// fakeRecalculator records cost recalculation requests.
type fakeRecalculator struct {
	designIDs []string
	err       error
}

func (f *fakeRecalculator) Recalculate(ctx context.Context, designID string) error {
	f.designIDs = append(f.designIDs, designID)
	return f.err
}

func validDesignInput() *DesignInput {
	return &DesignInput{
		Name:      "  Varsity Jacket ",
		SKUPrefix: "vj24",
		Colors:    []string{"navy", "cream"},
		Sizes:     []string{"s", "m"},
		CreatedBy: "amelia",
	}
}

func TestCreateDesignWorkflow_Success(t *testing.T) {
	designs := newFakeDesignService()
	variants := newFakeVariantService()
	def, err := CreateDesignWorkflow(designs, variants)
	require.NoError(t, err)

	registry := workflow.NewHookRegistry()
	var hooked *DesignCreation
	registry.On(HookDesignCreated, func(ctx context.Context, event *workflow.HookEvent) error {
		hooked = event.Payload.(*DesignCreation)
		return nil
	})

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: registry})
	result, err := composer.Execute(context.Background(), def, validDesignInput())

	require.NoError(t, err)
	state := result.Output.(*DesignCreation)
	require.NotNil(t, state.Design)
	assert.Equal(t, "Varsity Jacket", state.Design.Name)
	assert.Equal(t, "VJ24", state.Design.SKUPrefix)
	assert.Equal(t, StateDraft, state.Design.State)
	assert.Len(t, state.Variants, 4) // 2 colors x 2 sizes
	assert.Len(t, designs.designs, 1)
	assert.Len(t, variants.variants, 4)

	require.NotNil(t, hooked)
	assert.Equal(t, state.Design.ID, hooked.Design.ID)
}

func TestCreateDesignWorkflow_InvalidInput(t *testing.T) {
	designs := newFakeDesignService()
	def, err := CreateDesignWorkflow(designs, newFakeVariantService())
	require.NoError(t, err)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: workflow.NewHookRegistry()})
	_, err = composer.Execute(context.Background(), def, &DesignInput{Name: "no sku"})

	require.Error(t, err)
	assert.True(t, workflow.IsValidation(err))
	assert.Empty(t, designs.designs)
}

func TestCreateDesignWorkflow_VariantFailureRollsBackDesign(t *testing.T) {
	designs := newFakeDesignService()
	variants := newFakeVariantService()
	variants.failNext = true
	def, err := CreateDesignWorkflow(designs, variants)
	require.NoError(t, err)

	registry := workflow.NewHookRegistry()
	hookFired := false
	registry.On(HookDesignCreated, func(ctx context.Context, event *workflow.HookEvent) error {
		hookFired = true
		return nil
	})

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: registry})
	_, err = composer.Execute(context.Background(), def, validDesignInput())

	require.Error(t, err)
	// The created design was deleted by compensation and no hook fired.
	assert.Empty(t, designs.designs)
	assert.Len(t, designs.deleted, 1)
	assert.False(t, hookFired)
}

func linkFixture(t *testing.T, itemIDs ...string) (*spyLinkStore, *fakeDesignService, *link.Manager) {
	t.Helper()
	store := newSpyLinkStore()
	designs := newFakeDesignService()
	designs.addDesign("design-1", StateDraft)
	manager, err := NewDesignInventoryLinkManager(store, designs, newFakeInventoryService(itemIDs...))
	require.NoError(t, err)
	return store, designs, manager
}

func TestLinkInventoryWorkflow_Success(t *testing.T) {
	store, _, manager := linkFixture(t, "item-1", "item-2")
	def, err := LinkInventoryWorkflow(manager)
	require.NoError(t, err)

	registry := workflow.NewHookRegistry()
	recalc := &fakeRecalculator{}
	RegisterCostRecalculation(registry, recalc)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: registry})
	result, err := composer.Execute(context.Background(), def, &LinkRequest{
		DesignID: "design-1",
		Items: []LinkItemRequest{
			{ItemID: "item-1", PlannedQuantity: 2},
			{ItemID: "item-2", PlannedQuantity: 1.5},
		},
	})

	require.NoError(t, err)
	linked := result.Output.(*LinkResult)
	assert.Len(t, linked.Keys, 2)
	assert.Len(t, store.inserts, 2)

	// The committed run told the costing module exactly once.
	assert.Equal(t, []string{"design-1"}, recalc.designIDs)

	// Links carry the planned quantity and the run's transaction id.
	record, err := manager.Get(context.Background(), link.Key{LeftID: "design-1", RightID: "item-1"})
	require.NoError(t, err)
	assert.Equal(t, result.TransactionID, record.TransactionID)
	assert.Equal(t, 2.0, *record.Attributes.PlannedQuantity)
}

func TestLinkInventoryWorkflow_MissingItemNamesTheID(t *testing.T) {
	store, _, manager := linkFixture(t, "item-1") // item-ghost does not exist
	def, err := LinkInventoryWorkflow(manager)
	require.NoError(t, err)

	registry := workflow.NewHookRegistry()
	recalc := &fakeRecalculator{}
	RegisterCostRecalculation(registry, recalc)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: registry})
	_, err = composer.Execute(context.Background(), def, &LinkRequest{
		DesignID: "design-1",
		Items: []LinkItemRequest{
			{ItemID: "item-1", PlannedQuantity: 2},
			{ItemID: "item-ghost", PlannedQuantity: 1},
		},
	})

	require.Error(t, err)
	assert.True(t, workflow.IsNotFound(err))
	assert.Contains(t, err.Error(), "item-ghost")
	// Whole-batch validation ran before any write, so even the resolvable
	// first item produced no link, and no hook fired.
	assert.Empty(t, store.inserts)
	assert.Empty(t, recalc.designIDs)
}

func TestLinkInventoryWorkflow_InvalidRequest(t *testing.T) {
	store, _, manager := linkFixture(t, "item-1")
	def, err := LinkInventoryWorkflow(manager)
	require.NoError(t, err)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: workflow.NewHookRegistry()})
	_, err = composer.Execute(context.Background(), def, &LinkRequest{
		DesignID: "design-1",
		Items:    []LinkItemRequest{{ItemID: "item-1", PlannedQuantity: -1}},
	})

	require.Error(t, err)
	assert.True(t, workflow.IsValidation(err))
	assert.Empty(t, store.inserts)
}

func TestConsumeInventoryWorkflow(t *testing.T) {
	_, _, manager := linkFixture(t, "item-1")
	ctx := context.Background()

	planned := 5.0
	_, err := manager.Create(ctx, "tx-seed", []link.Spec{{
		LeftID: "design-1", RightID: "item-1",
		Attributes: link.Attributes{PlannedQuantity: &planned},
	}})
	require.NoError(t, err)

	def, err := ConsumeInventoryWorkflow(manager)
	require.NoError(t, err)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: workflow.NewHookRegistry()})
	result, err := composer.Execute(ctx, def, &ConsumeRequest{
		DesignID: "design-1",
		ItemID:   "item-1",
		Quantity: 3.5,
	})

	require.NoError(t, err)
	outcome := result.Output.(*ConsumptionResult)
	assert.Equal(t, 3.5, *outcome.Updated.Attributes.ConsumedQuantity)
	assert.Equal(t, 5.0, *outcome.Updated.Attributes.PlannedQuantity)
	assert.Nil(t, outcome.Prior.Attributes.ConsumedQuantity)

	stored, err := manager.Get(ctx, link.Key{LeftID: "design-1", RightID: "item-1"})
	require.NoError(t, err)
	assert.Equal(t, result.TransactionID, stored.TransactionID)
	assert.NotNil(t, stored.Attributes.ConsumedAt)
}

func TestConsumeInventoryWorkflow_NeverLinked(t *testing.T) {
	_, _, manager := linkFixture(t, "item-1")
	def, err := ConsumeInventoryWorkflow(manager)
	require.NoError(t, err)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: workflow.NewHookRegistry()})
	_, err = composer.Execute(context.Background(), def, &ConsumeRequest{
		DesignID: "design-1",
		ItemID:   "item-1",
		Quantity: 1,
	})

	require.Error(t, err)
	assert.True(t, workflow.IsNotFound(err))
}

func TestDelinkInventoryWorkflow_Success(t *testing.T) {
	store, designs, manager := linkFixture(t, "item-1", "item-2")
	ctx := context.Background()

	_, err := manager.Create(ctx, "tx-seed", []link.Spec{
		{LeftID: "design-1", RightID: "item-1"},
		{LeftID: "design-1", RightID: "item-2"},
	})
	require.NoError(t, err)

	def, err := DelinkInventoryWorkflow(manager, designs)
	require.NoError(t, err)

	registry := workflow.NewHookRegistry()
	recalc := &fakeRecalculator{}
	RegisterCostRecalculation(registry, recalc)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: registry})
	result, err := composer.Execute(ctx, def, &DelinkRequest{
		DesignID: "design-1",
		ItemIDs:  []string{"item-1"},
	})

	require.NoError(t, err)
	outcome := result.Output.(*DelinkResult)
	require.Len(t, outcome.Dismissed, 1)
	assert.Equal(t, "item-1", outcome.Dismissed[0].RightID)
	assert.Equal(t, []string{"design-1"}, recalc.designIDs)

	_, err = manager.Get(ctx, link.Key{LeftID: "design-1", RightID: "item-1"})
	assert.ErrorIs(t, err, link.ErrLinkNotFound)
	// The other link is untouched.
	_, err = manager.Get(ctx, link.Key{LeftID: "design-1", RightID: "item-2"})
	assert.NoError(t, err)
	_ = store
}

func TestDelinkInventoryWorkflow_NeverLinkedIsNoOpSuccess(t *testing.T) {
	_, designs, manager := linkFixture(t, "item-1")
	def, err := DelinkInventoryWorkflow(manager, designs)
	require.NoError(t, err)

	registry := workflow.NewHookRegistry()
	recalc := &fakeRecalculator{}
	RegisterCostRecalculation(registry, recalc)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: registry})
	result, err := composer.Execute(context.Background(), def, &DelinkRequest{
		DesignID: "design-1",
		ItemIDs:  []string{"item-1"},
	})

	// Dismissing a link that never existed succeeds with nothing dismissed.
	require.NoError(t, err)
	outcome := result.Output.(*DelinkResult)
	assert.Empty(t, outcome.Dismissed)
	assert.Equal(t, []string{"design-1"}, recalc.designIDs)
}

func TestDelinkInventoryWorkflow_CommerceReadyRefuses(t *testing.T) {
	store, designs, manager := linkFixture(t, "item-1")
	ctx := context.Background()

	_, err := manager.Create(ctx, "tx-seed", []link.Spec{
		{LeftID: "design-1", RightID: "item-1"},
	})
	require.NoError(t, err)
	seedDeletes := len(store.deletes)

	designs.designs["design-1"].State = StateCommerceReady

	def, err := DelinkInventoryWorkflow(manager, designs)
	require.NoError(t, err)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: workflow.NewHookRegistry()})
	_, err = composer.Execute(ctx, def, &DelinkRequest{
		DesignID: "design-1",
		ItemIDs:  []string{"item-1"},
	})

	require.Error(t, err)
	assert.True(t, workflow.IsStateConflict(err))
	// The gate rejected the run before the dismiss step: storage saw no
	// delete at all.
	assert.Len(t, store.deletes, seedDeletes)
	_, err = manager.Get(ctx, link.Key{LeftID: "design-1", RightID: "item-1"})
	assert.NoError(t, err)
}

func TestDelinkInventoryWorkflow_UnknownDesign(t *testing.T) {
	_, designs, manager := linkFixture(t, "item-1")
	def, err := DelinkInventoryWorkflow(manager, designs)
	require.NoError(t, err)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: workflow.NewHookRegistry()})
	_, err = composer.Execute(context.Background(), def, &DelinkRequest{
		DesignID: "design-ghost",
		ItemIDs:  []string{"item-1"},
	})

	require.Error(t, err)
	assert.True(t, workflow.IsNotFound(err))
}

// wrappingDesignService decorates lookup errors with call-site context, the
// way a remote client wraps transport errors around the domain sentinel.
type wrappingDesignService struct {
	*fakeDesignService
}

func (w *wrappingDesignService) GetDesign(ctx context.Context, designID string) (*DesignRecord, error) {
	record, err := w.fakeDesignService.GetDesign(ctx, designID)
	if err != nil {
		return nil, fmt.Errorf("design service: %w", err)
	}
	return record, nil
}

// wrappingLinkStore wraps lookup misses the way a persistence layer adds
// context to driver errors.
type wrappingLinkStore struct {
	link.Store
}

func (s *wrappingLinkStore) Get(ctx context.Context, key link.Key) (*link.Record, error) {
	record, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("link lookup (%s, %s): %w", key.LeftID, key.RightID, err)
	}
	return record, nil
}

func TestDelinkInventoryWorkflow_WrappedClientErrors(t *testing.T) {
	designs := &wrappingDesignService{fakeDesignService: newFakeDesignService()}
	designs.addDesign("design-1", StateDraft)
	inventory := newFakeInventoryService("item-1")
	store := &wrappingLinkStore{Store: link.NewMemoryStore()}
	manager, err := NewDesignInventoryLinkManager(store, designs, inventory)
	require.NoError(t, err)

	def, err := DelinkInventoryWorkflow(manager, designs)
	require.NoError(t, err)
	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: workflow.NewHookRegistry()})

	// An unknown design stays a not-found even when the client wraps the
	// sentinel.
	_, err = composer.Execute(context.Background(), def, &DelinkRequest{
		DesignID: "design-ghost",
		ItemIDs:  []string{"item-1"},
	})
	require.Error(t, err)
	assert.True(t, workflow.IsNotFound(err))

	// A never-linked item stays a no-op success even when the store wraps
	// its miss.
	result, err := composer.Execute(context.Background(), def, &DelinkRequest{
		DesignID: "design-1",
		ItemIDs:  []string{"item-1"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Output.(*DelinkResult).Dismissed)
}

func TestDesignStateDetachable(t *testing.T) {
	assert.True(t, StateDraft.Detachable())
	assert.True(t, StateInReview.Detachable())
	assert.True(t, StateApproved.Detachable())
	assert.False(t, StateCommerceReady.Detachable())
	assert.False(t, DesignState("bogus").Detachable())
}

func TestDesignInput_NormalizeAndValidate(t *testing.T) {
	input := validDesignInput()
	normalized := input.Normalize()
	assert.Equal(t, "Varsity Jacket", normalized.Name)
	assert.Equal(t, "VJ24", normalized.SKUPrefix)
	// The original is untouched.
	assert.Equal(t, "  Varsity Jacket ", input.Name)

	require.NoError(t, normalized.Validate())
	assert.Error(t, (&DesignInput{}).Validate())
}

func TestRegisterCostRecalculation_FailureDoesNotDisturbCommit(t *testing.T) {
	_, _, manager := linkFixture(t, "item-1")
	def, err := LinkInventoryWorkflow(manager)
	require.NoError(t, err)

	registry := workflow.NewHookRegistry()
	recalc := &fakeRecalculator{err: errors.New("costing service down")}
	RegisterCostRecalculation(registry, recalc)

	composer := workflow.NewComposer(&workflow.ComposerConfig{Hooks: registry})
	result, err := composer.Execute(context.Background(), def, &LinkRequest{
		DesignID: "design-1",
		Items:    []LinkItemRequest{{ItemID: "item-1", PlannedQuantity: 1}},
	})

	// The workflow committed; the failed recalculation is a logged
	// post-commit side effect.
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, []string{"design-1"}, recalc.designIDs)
}

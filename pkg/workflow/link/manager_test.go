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

package link

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovationmech/atelier/pkg/workflow"
)

// setResolver resolves ids from a fixed set.
type setResolver struct {
	known map[string]bool
	calls []string
	err   error
}

func newSetResolver(ids ...string) *setResolver {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return &setResolver{known: known}
}

func (r *setResolver) Exists(ctx context.Context, id string) (bool, error) {
	r.calls = append(r.calls, id)
	if r.err != nil {
		return false, r.err
	}
	return r.known[id], nil
}

// spyStore wraps a MemoryStore and records every write, so tests can prove
// that a rejected operation never touched storage.
type spyStore struct {
	*MemoryStore
	inserts []Key
	deletes []Key

	failInsertAt int // 1-based index of the insert to fail; 0 disables
	insertCount  int
}

func newSpyStore() *spyStore {
	return &spyStore{MemoryStore: NewMemoryStore()}
}

func (s *spyStore) Insert(ctx context.Context, record *Record) error {
	s.insertCount++
	if s.failInsertAt > 0 && s.insertCount == s.failInsertAt {
		return fmt.Errorf("storage write failed")
	}
	s.inserts = append(s.inserts, record.Key())
	return s.MemoryStore.Insert(ctx, record)
}

func (s *spyStore) Delete(ctx context.Context, key Key) (bool, error) {
	s.deletes = append(s.deletes, key)
	return s.MemoryStore.Delete(ctx, key)
}

func newTestManager(t *testing.T, store Store, left, right EntityResolver) *Manager {
	t.Helper()
	manager, err := NewManager(&ManagerConfig{
		Store:         store,
		LeftResolver:  left,
		RightResolver: right,
		LeftEntity:    "design",
		RightEntity:   "inventory item",
	})
	require.NoError(t, err)
	return manager
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)

	_, err = NewManager(&ManagerConfig{})
	assert.Error(t, err)

	_, err = NewManager(&ManagerConfig{Store: NewMemoryStore()})
	assert.Error(t, err)

	manager, err := NewManager(&ManagerConfig{
		Store:         NewMemoryStore(),
		LeftResolver:  newSetResolver(),
		RightResolver: newSetResolver(),
	})
	require.NoError(t, err)
	assert.NotNil(t, manager)
}

func TestManagerCreate_Success(t *testing.T) {
	store := newSpyStore()
	manager := newTestManager(t, store,
		newSetResolver("design-1"),
		newSetResolver("item-1", "item-2"))

	planned := 4.0
	keys, err := manager.Create(context.Background(), "tx-1", []Spec{
		{LeftID: "design-1", RightID: "item-1", Attributes: Attributes{PlannedQuantity: &planned}},
		{LeftID: "design-1", RightID: "item-2"},
	})

	require.NoError(t, err)
	assert.Equal(t, []Key{
		{LeftID: "design-1", RightID: "item-1"},
		{LeftID: "design-1", RightID: "item-2"},
	}, keys)

	record, err := manager.Get(context.Background(), keys[0])
	require.NoError(t, err)
	assert.Equal(t, "tx-1", record.TransactionID)
	assert.Equal(t, 4.0, *record.Attributes.PlannedQuantity)
}

func TestManagerCreate_ValidatesBeforeAnyWrite(t *testing.T) {
	store := newSpyStore()
	manager := newTestManager(t, store,
		newSetResolver("design-1"),
		newSetResolver("item-1")) // item-missing is unknown

	_, err := manager.Create(context.Background(), "tx-1", []Spec{
		{LeftID: "design-1", RightID: "item-1"},
		{LeftID: "design-1", RightID: "item-missing"},
	})

	require.Error(t, err)
	assert.True(t, workflow.IsNotFound(err))
	assert.Contains(t, err.Error(), "item-missing")
	// The first spec's entities resolved fine, yet nothing was written:
	// validation for the whole batch runs strictly before the first insert.
	assert.Empty(t, store.inserts)
	assert.Equal(t, 0, store.Len())
}

func TestManagerCreate_InputValidation(t *testing.T) {
	manager := newTestManager(t, newSpyStore(), newSetResolver("d"), newSetResolver("i"))

	_, err := manager.Create(context.Background(), "tx-1", nil)
	assert.True(t, workflow.IsValidation(err))

	_, err = manager.Create(context.Background(), "tx-1", []Spec{{LeftID: "", RightID: "i"}})
	assert.True(t, workflow.IsValidation(err))

	_, err = manager.Create(context.Background(), "tx-1", []Spec{
		{LeftID: "d", RightID: "i"},
		{LeftID: "d", RightID: "i"},
	})
	assert.True(t, workflow.IsValidation(err))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestManagerCreate_ResolverErrorPropagates(t *testing.T) {
	left := newSetResolver("design-1")
	left.err = errors.New("design service timeout")
	manager := newTestManager(t, newSpyStore(), left, newSetResolver("item-1"))

	_, err := manager.Create(context.Background(), "tx-1", []Spec{
		{LeftID: "design-1", RightID: "item-1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "design service timeout")
}

func TestManagerCreate_PartialFailureDismissesOwnWrites(t *testing.T) {
	store := newSpyStore()
	store.failInsertAt = 2
	manager := newTestManager(t, store,
		newSetResolver("design-1"),
		newSetResolver("item-1", "item-2"))

	_, err := manager.Create(context.Background(), "tx-1", []Spec{
		{LeftID: "design-1", RightID: "item-1"},
		{LeftID: "design-1", RightID: "item-2"},
	})

	require.Error(t, err)
	// The first link was written, then dismissed when the second failed.
	assert.Equal(t, []Key{{LeftID: "design-1", RightID: "item-1"}}, store.inserts)
	assert.Equal(t, []Key{{LeftID: "design-1", RightID: "item-1"}}, store.deletes)
	assert.Equal(t, 0, store.Len())
}

func TestManagerCreate_DuplicateBecomesStateConflict(t *testing.T) {
	store := newSpyStore()
	manager := newTestManager(t, store,
		newSetResolver("design-1"),
		newSetResolver("item-1"))

	specs := []Spec{{LeftID: "design-1", RightID: "item-1"}}
	_, err := manager.Create(context.Background(), "tx-1", specs)
	require.NoError(t, err)

	_, err = manager.Create(context.Background(), "tx-2", specs)
	require.Error(t, err)
	assert.True(t, workflow.IsStateConflict(err))
	werr, ok := workflow.AsWorkflowError(err)
	require.True(t, ok)
	assert.Equal(t, workflow.ErrCodeDuplicateLink, werr.Code)
	assert.Equal(t, "item-1", werr.Details["right_id"])
}

func TestManagerDismiss_Idempotent(t *testing.T) {
	store := newSpyStore()
	manager := newTestManager(t, store, newSetResolver("d"), newSetResolver("i"))

	keys, err := manager.Create(context.Background(), "tx-1", []Spec{{LeftID: "d", RightID: "i"}})
	require.NoError(t, err)

	require.NoError(t, manager.Dismiss(context.Background(), keys))
	assert.Equal(t, 0, store.Len())

	// Dismissing the same keys again, or keys that never existed, succeeds.
	require.NoError(t, manager.Dismiss(context.Background(), keys))
	require.NoError(t, manager.Dismiss(context.Background(), []Key{{LeftID: "d", RightID: "never"}}))
}

func TestManagerUpdate(t *testing.T) {
	store := newSpyStore()
	manager := newTestManager(t, store, newSetResolver("d"), newSetResolver("i"))
	ctx := context.Background()
	key := Key{LeftID: "d", RightID: "i"}

	planned := 10.0
	location := "warehouse-1"
	_, err := manager.Create(ctx, "tx-1", []Spec{{
		LeftID:  "d",
		RightID: "i",
		Attributes: Attributes{
			PlannedQuantity: &planned,
			LocationID:      &location,
		},
	}})
	require.NoError(t, err)

	consumed := 6.5
	consumedAt := time.Now()
	prior, updated, err := manager.Update(ctx, "tx-2", key, Attributes{
		ConsumedQuantity: &consumed,
		ConsumedAt:       &consumedAt,
	})
	require.NoError(t, err)

	// Prior is the full pre-update record.
	require.NotNil(t, prior)
	assert.Equal(t, "tx-1", prior.TransactionID)
	assert.Equal(t, 10.0, *prior.Attributes.PlannedQuantity)
	assert.Nil(t, prior.Attributes.ConsumedQuantity)

	// Updated merges: explicit fields set, omitted fields preserved.
	assert.Equal(t, 10.0, *updated.Attributes.PlannedQuantity)
	assert.Equal(t, "warehouse-1", *updated.Attributes.LocationID)
	assert.Equal(t, 6.5, *updated.Attributes.ConsumedQuantity)
	assert.Equal(t, "tx-2", updated.TransactionID)

	stored, err := manager.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "tx-2", stored.TransactionID)
	assert.Equal(t, 6.5, *stored.Attributes.ConsumedQuantity)
}

func TestManagerUpdate_MissingLink(t *testing.T) {
	manager := newTestManager(t, newSpyStore(), newSetResolver("d"), newSetResolver("i"))

	_, _, err := manager.Update(context.Background(), "tx-1",
		Key{LeftID: "d", RightID: "never-linked"}, Attributes{})
	require.Error(t, err)
	assert.True(t, workflow.IsNotFound(err))
}

func TestManagerRestore(t *testing.T) {
	store := newSpyStore()
	manager := newTestManager(t, store, newSetResolver("d"), newSetResolver("i"))
	ctx := context.Background()
	key := Key{LeftID: "d", RightID: "i"}

	planned := 10.0
	_, err := manager.Create(ctx, "tx-1", []Spec{{
		LeftID: "d", RightID: "i",
		Attributes: Attributes{PlannedQuantity: &planned},
	}})
	require.NoError(t, err)

	consumed := 3.0
	prior, _, err := manager.Update(ctx, "tx-2", key, Attributes{ConsumedQuantity: &consumed})
	require.NoError(t, err)

	// Restore undoes the update: the full prior attribute set comes back.
	require.NoError(t, manager.Restore(ctx, "tx-2", prior))
	restored, err := manager.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10.0, *restored.Attributes.PlannedQuantity)
	assert.Nil(t, restored.Attributes.ConsumedQuantity)
	assert.Equal(t, "tx-2", restored.TransactionID)

	// Restoring a nil prior is a no-op.
	require.NoError(t, manager.Restore(ctx, "tx-2", nil))
}

func TestManagerListByLeft(t *testing.T) {
	manager := newTestManager(t, NewMemoryStore(),
		newSetResolver("d"), newSetResolver("i1", "i2"))
	ctx := context.Background()

	_, err := manager.Create(ctx, "tx-1", []Spec{
		{LeftID: "d", RightID: "i1"},
		{LeftID: "d", RightID: "i2"},
	})
	require.NoError(t, err)

	records, err := manager.ListByLeft(ctx, "d")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

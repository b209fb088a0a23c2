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
	"time"

	"github.com/innovationmech/atelier/pkg/logger"
	"github.com/innovationmech/atelier/pkg/workflow"
)

// EntityResolver answers whether an entity exists in its owning domain.
// Each side of a link gets its own resolver, injected at construction.
type EntityResolver interface {
	// Exists reports whether the entity with the given id exists.
	Exists(ctx context.Context, id string) (bool, error)
}

// Manager is the sole writer of link records. It validates that both
// referenced entities exist before any write, and keeps dismissal
// idempotent so compensation can always run it safely.
type Manager struct {
	store Store

	// leftResolver and rightResolver validate the respective sides of
	// every spec before any write.
	leftResolver  EntityResolver
	rightResolver EntityResolver

	// leftEntity and rightEntity name the domains for error messages,
	// e.g. "design" and "inventory item".
	leftEntity  string
	rightEntity string
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Store persists the link records. Required.
	Store Store

	// LeftResolver validates left-side entity ids. Required.
	LeftResolver EntityResolver

	// RightResolver validates right-side entity ids. Required.
	RightResolver EntityResolver

	// LeftEntity and RightEntity are the domain names used in errors.
	// They default to "left entity" and "right entity".
	LeftEntity  string
	RightEntity string
}

// Validate checks if the configuration is valid.
func (c *ManagerConfig) Validate() error {
	if c.Store == nil {
		return errors.New("link manager requires a store")
	}
	if c.LeftResolver == nil || c.RightResolver == nil {
		return errors.New("link manager requires resolvers for both sides")
	}
	return nil
}

// NewManager creates a link manager from the given configuration.
func NewManager(config *ManagerConfig) (*Manager, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid link manager configuration: %w", err)
	}

	leftEntity := config.LeftEntity
	if leftEntity == "" {
		leftEntity = "left entity"
	}
	rightEntity := config.RightEntity
	if rightEntity == "" {
		rightEntity = "right entity"
	}

	return &Manager{
		store:         config.Store,
		leftResolver:  config.LeftResolver,
		rightResolver: config.RightResolver,
		leftEntity:    leftEntity,
		rightEntity:   rightEntity,
	}, nil
}

// Create validates every spec's referenced entities, then writes the link
// records tagged with the transaction id. It returns the exact set of
// created keys so a compensating Dismiss can target them precisely.
//
// Validation runs for the whole batch before the first write. If a write
// fails partway through, the records this call already created are dismissed
// (best effort, idempotent) before the error is returned, so the caller
// never has to guess what a failed Create left behind.
func (m *Manager) Create(ctx context.Context, transactionID string, specs []Spec) ([]Key, error) {
	if len(specs) == 0 {
		return nil, workflow.NewValidationError("no links to create")
	}

	seen := make(map[Key]bool, len(specs))
	for _, spec := range specs {
		if spec.LeftID == "" || spec.RightID == "" {
			return nil, workflow.NewValidationError("link spec requires both entity ids")
		}
		if seen[spec.Key()] {
			return nil, workflow.NewValidationError(
				fmt.Sprintf("duplicate link spec for (%s, %s)", spec.LeftID, spec.RightID))
		}
		seen[spec.Key()] = true
	}

	if err := m.validateEntities(ctx, specs); err != nil {
		return nil, err
	}

	created := make([]Key, 0, len(specs))
	now := time.Now()
	for _, spec := range specs {
		record := &Record{
			LeftID:        spec.LeftID,
			RightID:       spec.RightID,
			Attributes:    spec.Attributes,
			TransactionID: transactionID,
			CreatedAt:     now,
		}
		if err := m.store.Insert(ctx, record); err != nil {
			m.rollbackPartialCreate(ctx, transactionID, created)
			if errors.Is(err, ErrDuplicateLink) {
				return nil, workflow.NewError(workflow.ErrCodeDuplicateLink,
					fmt.Sprintf("link (%s, %s) already exists", spec.LeftID, spec.RightID),
					workflow.KindStateConflict).
					WithDetail("left_id", spec.LeftID).
					WithDetail("right_id", spec.RightID)
			}
			return nil, workflow.WrapError(err, workflow.ErrCodeStepFailed,
				fmt.Sprintf("failed to create link (%s, %s)", spec.LeftID, spec.RightID),
				workflow.KindSystem)
		}
		created = append(created, spec.Key())
	}
	return created, nil
}

// validateEntities checks the whole batch before any write. The first
// missing entity fails the call with a not-found error naming it.
func (m *Manager) validateEntities(ctx context.Context, specs []Spec) error {
	checkedLeft := make(map[string]bool)
	checkedRight := make(map[string]bool)

	for _, spec := range specs {
		if !checkedLeft[spec.LeftID] {
			exists, err := m.leftResolver.Exists(ctx, spec.LeftID)
			if err != nil {
				return fmt.Errorf("failed to resolve %s %q: %w", m.leftEntity, spec.LeftID, err)
			}
			if !exists {
				return workflow.NewNotFoundError(m.leftEntity, spec.LeftID)
			}
			checkedLeft[spec.LeftID] = true
		}
		if !checkedRight[spec.RightID] {
			exists, err := m.rightResolver.Exists(ctx, spec.RightID)
			if err != nil {
				return fmt.Errorf("failed to resolve %s %q: %w", m.rightEntity, spec.RightID, err)
			}
			if !exists {
				return workflow.NewNotFoundError(m.rightEntity, spec.RightID)
			}
			checkedRight[spec.RightID] = true
		}
	}
	return nil
}

// rollbackPartialCreate dismisses the keys a failed Create already wrote.
// Failures here are logged with the transaction id; the original create
// error still propagates.
func (m *Manager) rollbackPartialCreate(ctx context.Context, transactionID string, created []Key) {
	if len(created) == 0 {
		return
	}
	if err := m.Dismiss(ctx, created); err != nil {
		logger.GetSugaredLogger().Errorw("failed to roll back partially created links",
			"transaction_id", transactionID,
			"keys", len(created),
			"error", err,
		)
	}
}

// Dismiss removes the records for the given keys. It is idempotent:
// dismissing a key with no record is a no-op, which matters because
// compensation may dismiss links whose creation failed partway.
func (m *Manager) Dismiss(ctx context.Context, keys []Key) error {
	for _, key := range keys {
		if _, err := m.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to dismiss link (%s, %s): %w", key.LeftID, key.RightID, err)
		}
	}
	return nil
}

// Get returns the record for the key, or ErrLinkNotFound.
func (m *Manager) Get(ctx context.Context, key Key) (*Record, error) {
	return m.store.Get(ctx, key)
}

// ListByLeft returns all records for the left-side entity.
func (m *Manager) ListByLeft(ctx context.Context, leftID string) ([]*Record, error) {
	return m.store.ListByLeft(ctx, leftID)
}

// Update replaces a link's attributes as an atomic-from-the-caller
// dismiss-then-create cycle; there is no in-place partial update. Explicit
// fields in newAttributes override the stored ones, omitted fields are
// preserved. The full prior record is returned so a compensating Restore
// can rebuild it without re-deriving anything.
//
// The cycle is not transactional at the storage layer: a crash between the
// dismiss and the create leaves the link missing. Both halves carry the
// transaction id and are journaled by the composer, which is the accepted
// reconciliation path.
func (m *Manager) Update(ctx context.Context, transactionID string, key Key, newAttributes Attributes) (prior *Record, updated *Record, err error) {
	prior, err = m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			return nil, nil, workflow.NewNotFoundError("link", fmt.Sprintf("(%s, %s)", key.LeftID, key.RightID))
		}
		return nil, nil, err
	}

	if _, err = m.store.Delete(ctx, key); err != nil {
		return nil, nil, fmt.Errorf("failed to dismiss link for update: %w", err)
	}

	updated = &Record{
		LeftID:        key.LeftID,
		RightID:       key.RightID,
		Attributes:    prior.Attributes.Merge(newAttributes),
		TransactionID: transactionID,
		CreatedAt:     time.Now(),
	}
	if err = m.store.Insert(ctx, updated); err != nil {
		return nil, nil, fmt.Errorf("failed to recreate link for update: %w", err)
	}
	return prior, updated.Clone(), nil
}

// Restore reinstates a previously captured record with its full attribute
// set, dismissing whatever currently occupies the key first. It is the
// compensation primitive for Update and for dismiss-style steps.
func (m *Manager) Restore(ctx context.Context, transactionID string, prior *Record) error {
	if prior == nil {
		return nil
	}
	if _, err := m.store.Delete(ctx, prior.Key()); err != nil {
		return fmt.Errorf("failed to clear link before restore: %w", err)
	}

	record := prior.Clone()
	record.TransactionID = transactionID
	if err := m.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to restore link (%s, %s): %w", prior.LeftID, prior.RightID, err)
	}
	return nil
}

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
)

var (
	// ErrDuplicateLink indicates a record already exists for the key.
	// The uniqueness invariant lives in the store (a unique constraint or
	// equivalent check-and-write), never in in-process locks.
	ErrDuplicateLink = errors.New("link already exists for this key")

	// ErrLinkNotFound indicates no record exists for the key.
	ErrLinkNotFound = errors.New("link not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("link store is closed")
)

// Store persists link records. Implementations must reject a second insert
// for an existing key with ErrDuplicateLink and must treat deletion of a
// missing key as a report, not an error, so callers can implement idempotent
// dismiss on top of it.
type Store interface {
	// Insert writes a new record. Returns ErrDuplicateLink if a record for
	// the same key already exists.
	Insert(ctx context.Context, record *Record) error

	// Delete removes the record for the key. The boolean reports whether a
	// record existed; deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) (bool, error)

	// Get returns the record for the key, or ErrLinkNotFound.
	Get(ctx context.Context, key Key) (*Record, error)

	// ListByLeft returns all records whose LeftID matches, in creation
	// order. An entity with no links yields an empty slice.
	ListByLeft(ctx context.Context, leftID string) ([]*Record, error)

	// Close releases resources held by the store.
	Close() error
}

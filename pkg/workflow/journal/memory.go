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

package journal

import (
	"context"
	"sync"
)

// MemoryJournal is an in-memory Journal suitable for development and tests.
// Entries are held in a map keyed by transaction id, protected by a
// read-write mutex; durability across restarts is explicitly not a goal.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string][]*Entry
	closed  bool
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string][]*Entry)}
}

// Append implements Journal.
func (m *MemoryJournal) Append(ctx context.Context, entry *Entry) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if entry == nil || entry.TransactionID == "" {
		return ErrInvalidEntry
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrJournalClosed
	}

	stored := *entry
	m.entries[entry.TransactionID] = append(m.entries[entry.TransactionID], &stored)
	return nil
}

// List implements Journal.
func (m *MemoryJournal) List(ctx context.Context, transactionID string) ([]*Entry, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrJournalClosed
	}

	stored := m.entries[transactionID]
	out := make([]*Entry, len(stored))
	for i, e := range stored {
		entry := *e
		out[i] = &entry
	}
	return out, nil
}

// Close implements Journal.
func (m *MemoryJournal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrJournalClosed
	}
	m.closed = true
	m.entries = nil
	return nil
}

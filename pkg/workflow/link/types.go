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

// Package link manages cross-domain association records. A link associates
// one entity from each of two independently owned domains (for example a
// design and an inventory item) and carries typed extra attributes. Neither
// domain owns the link; the Manager in this package is the sole writer and
// both domains may read it.
package link

import (
	"time"
)

// Key uniquely identifies a link. At most one link record may exist per
// (LeftID, RightID) pair at a time; the store enforces this, not in-process
// locking, because multiple process instances run concurrently.
type Key struct {
	LeftID  string `json:"left_id"`
	RightID string `json:"right_id"`
}

// Attributes are the typed extras carried by a link. Nil pointer fields mean
// "not set"; during an update, nil fields in the override are preserved from
// the prior record while non-nil fields win.
type Attributes struct {
	// PlannedQuantity is how much of the right-side entity the left side
	// intends to consume.
	PlannedQuantity *float64 `json:"planned_quantity,omitempty"`

	// ConsumedQuantity is how much has actually been consumed.
	ConsumedQuantity *float64 `json:"consumed_quantity,omitempty"`

	// ConsumedAt is when consumption was recorded.
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`

	// LocationID identifies where the right-side entity is held.
	LocationID *string `json:"location_id,omitempty"`

	// Metadata is free-form JSON data attached at creation time. It is
	// treated as a single field during merges: a non-nil override replaces
	// the whole map.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Merge applies override on top of a. Explicit (non-nil) override fields
// win; omitted fields are preserved. Neither receiver nor argument is
// mutated.
func (a Attributes) Merge(override Attributes) Attributes {
	merged := a.clone()
	if override.PlannedQuantity != nil {
		v := *override.PlannedQuantity
		merged.PlannedQuantity = &v
	}
	if override.ConsumedQuantity != nil {
		v := *override.ConsumedQuantity
		merged.ConsumedQuantity = &v
	}
	if override.ConsumedAt != nil {
		v := *override.ConsumedAt
		merged.ConsumedAt = &v
	}
	if override.LocationID != nil {
		v := *override.LocationID
		merged.LocationID = &v
	}
	if override.Metadata != nil {
		merged.Metadata = copyMetadata(override.Metadata)
	}
	return merged
}

func (a Attributes) clone() Attributes {
	out := Attributes{}
	if a.PlannedQuantity != nil {
		v := *a.PlannedQuantity
		out.PlannedQuantity = &v
	}
	if a.ConsumedQuantity != nil {
		v := *a.ConsumedQuantity
		out.ConsumedQuantity = &v
	}
	if a.ConsumedAt != nil {
		v := *a.ConsumedAt
		out.ConsumedAt = &v
	}
	if a.LocationID != nil {
		v := *a.LocationID
		out.LocationID = &v
	}
	if a.Metadata != nil {
		out.Metadata = copyMetadata(a.Metadata)
	}
	return out
}

func copyMetadata(metadata map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

// Spec describes a link to create.
type Spec struct {
	LeftID     string     `json:"left_id"`
	RightID    string     `json:"right_id"`
	Attributes Attributes `json:"attributes"`
}

// Key returns the spec's link key.
func (s Spec) Key() Key {
	return Key{LeftID: s.LeftID, RightID: s.RightID}
}

// Record is a stored link. TransactionID tags the workflow run that wrote
// the record so it can be traced and, if compensation ever fails, manually
// reconciled.
type Record struct {
	LeftID        string     `json:"left_id"`
	RightID       string     `json:"right_id"`
	Attributes    Attributes `json:"attributes"`
	TransactionID string     `json:"transaction_id"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Key returns the record's link key.
func (r *Record) Key() Key {
	return Key{LeftID: r.LeftID, RightID: r.RightID}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Attributes = r.Attributes.clone()
	return &out
}

// Spec converts the record back into a creatable spec, carrying its full
// attribute set. Used when compensation restores a prior record.
func (r *Record) Spec() Spec {
	return Spec{
		LeftID:     r.LeftID,
		RightID:    r.RightID,
		Attributes: r.Attributes.clone(),
	}
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv defines the backend-agnostic key/value storage contract the
// tree engine is built on. The tree never talks to a concrete database
// directly; it only ever sees a Store. This keeps the choice of on-disk
// engine (LevelDB, an in-memory map, anything else) out of scope for the
// tree itself, per the host-storage boundary described by the engine it
// sits under.
package kv

import "context"

// Getter wraps the basic Get/Has method of a key/value store.
type Getter interface {
	// Get returns the value for key. It returns an error satisfying
	// IsNotFound when the key does not exist.
	Get(key []byte) ([]byte, error)
	// Has reports whether key exists.
	Has(key []byte) (bool, error)
}

// Putter wraps the basic Put/Delete method of a key/value store.
type Putter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// GetPutter combines Getter and Putter.
type GetPutter interface {
	Getter
	Putter
}

// Range defines a half-open key range [Start, Limit).
type Range struct {
	Start []byte
	Limit []byte
}

// Iterator iterates over a Range in ascending key order.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Bulk buffers a batch of writes for atomic submission.
type Bulk interface {
	Putter
	// EnableAutoFlush lets the implementation flush internally-buffered
	// writes ahead of Write, for very large batches. It does not affect
	// atomicity as observed through Store reads.
	EnableAutoFlush()
	// Write commits the batch. Either all writes land or none do.
	Write() error
}

// Snapshot is a point-in-time, read-only view of a Store.
type Snapshot interface {
	Getter
	Release()
}

// Store is the full backend contract the tree is built on.
type Store interface {
	GetPutter
	// IsNotFound reports whether err is the not-found sentinel this
	// backend's Get returns.
	IsNotFound(err error) bool
	// Iterate returns an ascending iterator over r.
	Iterate(r Range) Iterator
	// DeleteRange deletes every key in r.
	DeleteRange(ctx context.Context, r Range) error
	// Bulk returns a new write batch.
	Bulk() Bulk
	// Snapshot pins a consistent read view.
	Snapshot() Snapshot
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rmt

import (
	"fmt"
	"sort"
)

// Op is a single write in a batch: either an Insert of (Key, Value) or a
// Delete of Key.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Insert builds an insert/overwrite operation.
func Insert(key, value []byte) Op {
	return Op{Key: key, Value: value}
}

// Del builds a delete operation.
func Del(key []byte) Op {
	return Op{Key: key, Delete: true}
}

// Batch is an ordered list of operations submitted to Apply. The caller's
// ordering never affects the result (§4.3, P1/P6): normalize reduces any
// batch to a canonical, duplicate-free, key-sorted form before the
// recursive rewrite runs.
type Batch []Op

// normalize sorts ops by key and resolves duplicate keys by last-occurrence-wins,
// so the final result depends only on the resulting (key -> op) set, not on
// the caller's ordering or on how many times a key appears. maxKeyLen of 0
// means unbounded (see Options.MaxKeyLen).
func normalize(batch Batch, maxKeyLen int) ([]Op, error) {
	// last-wins: iterate in original order, later entries overwrite earlier
	// ones for the same key, before sorting — this is what makes the
	// caller's explicit intent for duplicates ("last one in the batch
	// wins") independent of the sort that follows.
	lastByKey := make(map[string]Op, len(batch))
	order := make([]string, 0, len(batch))
	for _, op := range batch {
		if len(op.Key) == 0 {
			return nil, ErrEmptyKey
		}
		if maxKeyLen > 0 && len(op.Key) > maxKeyLen {
			return nil, fmt.Errorf("%w: %d > %d", ErrKeyTooLong, len(op.Key), maxKeyLen)
		}
		k := string(op.Key)
		if _, seen := lastByKey[k]; !seen {
			order = append(order, k)
		}
		lastByKey[k] = op
	}

	out := make([]Op, len(order))
	for i, k := range order {
		out[i] = lastByKey[k]
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Key) < string(out[j].Key)
	})
	return out, nil
}

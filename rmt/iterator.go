// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rmt

import (
	"bytes"

	inode "github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/nibble"
	"github.com/rmtree/rmt/store"
)

// frame is one level of the iterator's explicit descent stack: a Child
// slot not yet read (resolved false), or the node read from it together
// with a cursor over its own value and its 16 children.
type frame struct {
	ref      *inode.Child
	path     nibble.Path // path of the slot, before ref.Skip
	resolved bool

	node     *inode.Node
	realPath nibble.Path
	// slot is the next child index to try: counts up from 0 ascending,
	// down from 15 descending.
	slot      int
	valueDone bool
}

// Iterator is a lazy, depth-first walk over every live key in a bounded
// range at a fixed version. It reads one node at a time, only as the
// walk reaches it, and holds no more state than the path from the root
// to its current position — calling Tree.Iterate again starts a fresh,
// independent walk, which is what "restartable" means here: there is no
// external cursor to resume, only the tree itself to re-descend.
//
// This walk does not seek directly to lower — it descends the whole
// live subtree in key order and discards entries outside [lower,
// upper) as it emits them. A range-seeking walk that prunes whole
// subtrees against the bounds before reading them would avoid that
// waste for a narrow range over a wide tree.
type Iterator struct {
	st        *store.Store
	lower     []byte
	upper     []byte
	ascending bool

	stack []*frame

	curKey   []byte
	curValue []byte
	err      error
	done     bool
}

func newIterator(st *store.Store, v uint64, root *inode.Child, lower, upper []byte, ascending bool) *Iterator {
	it := &Iterator{st: st, lower: lower, upper: upper, ascending: ascending}
	_ = v // the version is already fixed by root's own Child.Version chain
	if root != nil {
		it.stack = []*frame{{ref: root, path: nibble.Path{}}}
	}
	return it
}

// Next advances to the next live entry in range and reports whether one
// was found. Callers must check Err after Next returns false.
func (it *Iterator) Next() bool {
	if it.err != nil || it.done {
		return false
	}

	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]

		if !top.resolved {
			realPath := append(top.path.Clone(), top.ref.Skip...)
			n, err := it.st.GetNode(top.ref.Version, realPath)
			if err != nil {
				it.err = classifyNodeErr(realPath, err)
				return false
			}
			top.node = n
			top.realPath = realPath
			top.resolved = true
			if it.ascending {
				top.slot = 0
			} else {
				top.slot = 15
			}
		}

		if it.ascending {
			if top.node.HasValue && !top.valueDone {
				top.valueDone = true
				if withinBounds(top.node.Key, it.lower, it.upper) {
					it.curKey = append([]byte(nil), top.node.Key...)
					it.curValue = append([]byte(nil), top.node.Value...)
					return true
				}
				continue
			}
			if it.descendNext(top) {
				continue
			}
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		if it.descendNext(top) {
			continue
		}
		if top.node.HasValue && !top.valueDone {
			top.valueDone = true
			if withinBounds(top.node.Key, it.lower, it.upper) {
				it.curKey = append([]byte(nil), top.node.Key...)
				it.curValue = append([]byte(nil), top.node.Value...)
				return true
			}
			continue
		}
		it.stack = it.stack[:len(it.stack)-1]
	}

	it.done = true
	return false
}

// descendNext pushes the next unvisited child of top, if any, advancing
// top's slot cursor in the iterator's direction. It reports whether it
// pushed a frame.
func (it *Iterator) descendNext(top *frame) bool {
	if it.ascending {
		for top.slot < 16 {
			c := top.node.Children[top.slot]
			slot := top.slot
			top.slot++
			if c != nil {
				it.stack = append(it.stack, &frame{ref: c, path: top.realPath.Append(byte(slot))})
				return true
			}
		}
		return false
	}
	for top.slot >= 0 {
		c := top.node.Children[top.slot]
		slot := top.slot
		top.slot--
		if c != nil {
			it.stack = append(it.stack, &frame{ref: c, path: top.realPath.Append(byte(slot))})
			return true
		}
	}
	return false
}

func withinBounds(key, lower, upper []byte) bool {
	if lower != nil && bytes.Compare(key, lower) < 0 {
		return false
	}
	if upper != nil && bytes.Compare(key, upper) >= 0 {
		return false
	}
	return true
}

// Key returns the key at the iterator's current position. Valid only
// after a call to Next returned true.
func (it *Iterator) Key() []byte { return it.curKey }

// Value returns the value at the iterator's current position. Valid
// only after a call to Next returned true.
func (it *Iterator) Value() []byte { return it.curValue }

// Err returns the first error Next encountered, if any.
func (it *Iterator) Err() error { return it.err }

// Release drops the iterator's remaining state. It is safe to call
// Release without exhausting the walk.
func (it *Iterator) Release() {
	it.stack = nil
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/kv"
	"github.com/rmtree/rmt/nibble"
)

func TestGetNodeNotFound(t *testing.T) {
	s := New(kv.NewMem())
	_, err := s.GetNode(1, nibble.FromKey([]byte("k")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBatchPutGetNode(t *testing.T) {
	s := New(kv.NewMem())
	n := &node.Node{HasValue: true, Key: []byte("k"), Value: []byte("v")}

	b := s.NewBatch()
	assert.NoError(t, b.PutNode(1, nibble.FromKey([]byte("k")), n))
	assert.NoError(t, b.Commit())

	got, err := s.GetNode(1, nibble.FromKey([]byte("k")))
	assert.NoError(t, err)
	assert.Equal(t, n, got)
}

func TestBatchNotVisibleBeforeCommit(t *testing.T) {
	s := New(kv.NewMem())
	n := &node.Node{HasValue: true, Key: []byte("k"), Value: []byte("v")}
	p := nibble.FromKey([]byte("k"))

	b := s.NewBatch()
	assert.NoError(t, b.PutNode(1, p, n))

	_, err := s.GetNode(1, p)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodesAtVersionOrdersByPath(t *testing.T) {
	s := New(kv.NewMem())
	b := s.NewBatch()
	keys := [][]byte{[]byte("z"), []byte("a"), []byte("m")}
	for _, k := range keys {
		assert.NoError(t, b.PutNode(3, nibble.FromKey(k), &node.Node{HasValue: true, Key: k, Value: k}))
	}
	// a node at a different version must not show up
	assert.NoError(t, b.PutNode(4, nibble.FromKey([]byte("q")), &node.Node{HasValue: true, Key: []byte("q"), Value: []byte("q")}))
	assert.NoError(t, b.Commit())

	entries, err := s.NodesAtVersion(3)
	assert.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, nibble.FromKey([]byte("a")), entries[0].Path)
	assert.Equal(t, nibble.FromKey([]byte("m")), entries[1].Path)
	assert.Equal(t, nibble.FromKey([]byte("z")), entries[2].Path)
}

func TestOrphansUpTo(t *testing.T) {
	s := New(kv.NewMem())
	b := s.NewBatch()
	assert.NoError(t, b.PutOrphan(5, 1, nibble.FromKey([]byte("a"))))
	assert.NoError(t, b.PutOrphan(8, 2, nibble.FromKey([]byte("b"))))
	assert.NoError(t, b.PutOrphan(10, 3, nibble.FromKey([]byte("c"))))
	assert.NoError(t, b.Commit())

	entries, err := s.OrphansUpTo(8)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, uint64(5), entries[0].OrphanedSince)
	assert.Equal(t, uint64(8), entries[1].OrphanedSince)
}

func TestDeleteNodeAndOrphan(t *testing.T) {
	s := New(kv.NewMem())
	p := nibble.FromKey([]byte("k"))
	b := s.NewBatch()
	assert.NoError(t, b.PutNode(1, p, &node.Node{HasValue: true, Key: []byte("k"), Value: []byte("v")}))
	assert.NoError(t, b.PutOrphan(2, 1, p))
	assert.NoError(t, b.Commit())

	b = s.NewBatch()
	assert.NoError(t, b.DeleteNode(1, p))
	assert.NoError(t, b.DeleteOrphan(2, 1, p))
	assert.NoError(t, b.Commit())

	_, err := s.GetNode(1, p)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := s.OrphansUpTo(10)
	assert.NoError(t, err)
	assert.Len(t, entries, 0)
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rmt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inode "github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/kv"
	"github.com/rmtree/rmt/rmt"
)

func newTree() *rmt.Tree {
	return rmt.New(kv.NewMem(), rmt.Options{})
}

func TestEmptyTreeRootIsSentinel(t *testing.T) {
	tr := newTree()
	assert.Equal(t, uint64(0), tr.Version())
	assert.Equal(t, inode.EmptyHash(inode.Keccak256{}), tr.Root())
}

func TestApplyInsertAndGet(t *testing.T) {
	tr := newTree()
	v, root, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("alpha"), []byte("1"))})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)
	assert.NotEqual(t, inode.EmptyHash(inode.Keccak256{}), root)

	val, ok, _, err := tr.Get(1, []byte("alpha"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), val)

	_, ok, _, err = tr.Get(1, []byte("missing"), false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyEmptyBatchIsNoOp(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("a"), []byte("1"))})
	require.NoError(t, err)
	v1, r1 := tr.Version(), tr.Root()

	v2, r2, err := tr.Apply(rmt.Batch{})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, r1, r2)
}

func TestApplyDuplicateKeyLastWriteWins(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("a"), []byte("first")),
		rmt.Insert([]byte("a"), []byte("second")),
	})
	require.NoError(t, err)

	val, ok, _, err := tr.Get(1, []byte("a"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), val)
}

func TestApplyDelete(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("a"), []byte("1")), rmt.Insert([]byte("b"), []byte("2"))})
	require.NoError(t, err)

	_, _, err = tr.Apply(rmt.Batch{rmt.Del([]byte("a"))})
	require.NoError(t, err)

	_, ok, _, err := tr.Get(2, []byte("a"), false)
	require.NoError(t, err)
	assert.False(t, ok)

	val, ok, _, err := tr.Get(2, []byte("b"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), val)
}

func TestApplyEmptyKeyRejected(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{rmt.Insert(nil, []byte("1"))})
	assert.ErrorIs(t, err, rmt.ErrEmptyKey)
}

func TestApplyKeyTooLongRejected(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{MaxKeyLen: 4})
	_, _, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("toolong"), []byte("1"))})
	assert.ErrorIs(t, err, rmt.ErrKeyTooLong)

	_, _, err = tr.Apply(rmt.Batch{rmt.Insert([]byte("ok"), []byte("1"))})
	require.NoError(t, err)

	_, _, _, err = tr.Get(tr.Version(), []byte("toolong"), false)
	assert.ErrorIs(t, err, rmt.ErrKeyTooLong)
}

func TestOldVersionUnaffectedByLaterApply(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("a"), []byte("1"))})
	require.NoError(t, err)

	_, _, err = tr.Apply(rmt.Batch{rmt.Insert([]byte("a"), []byte("2"))})
	require.NoError(t, err)

	val, ok, _, err := tr.Get(1, []byte("a"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), val)

	val, ok, _, err = tr.Get(2, []byte("a"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), val)
}

func TestDeterministicRootRegardlessOfBatchOrder(t *testing.T) {
	tr1 := newTree()
	_, root1, err := tr1.Apply(rmt.Batch{
		rmt.Insert([]byte("alpha"), []byte("1")),
		rmt.Insert([]byte("beta"), []byte("2")),
		rmt.Insert([]byte("gamma"), []byte("3")),
	})
	require.NoError(t, err)

	tr2 := newTree()
	_, root2, err := tr2.Apply(rmt.Batch{
		rmt.Insert([]byte("gamma"), []byte("3")),
		rmt.Insert([]byte("alpha"), []byte("1")),
		rmt.Insert([]byte("beta"), []byte("2")),
	})
	require.NoError(t, err)

	assert.Equal(t, root1, root2)
}

func TestPrefixKeysCoexist(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("ab"), []byte("short")),
		rmt.Insert([]byte("abc"), []byte("long")),
	})
	require.NoError(t, err)

	val, ok, _, err := tr.Get(1, []byte("ab"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("short"), val)

	val, ok, _, err = tr.Get(1, []byte("abc"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("long"), val)
}

func TestPruneRemovesOrphanedVersion(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("a"), []byte("1"))})
	require.NoError(t, err)
	_, _, err = tr.Apply(rmt.Batch{rmt.Insert([]byte("a"), []byte("2"))})
	require.NoError(t, err)

	// version 1's nodes were orphaned by version 2, so pruning up to 2
	// deletes them while version 2 stays intact.
	require.NoError(t, tr.Prune(2))

	_, ok, _, err := tr.Get(1, []byte("a"), false)
	require.NoError(t, err)
	assert.False(t, ok, "version 1's root was pruned away")

	val, ok, _, err := tr.Get(2, []byte("a"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), val)
}

func TestIterateAscendingOrder(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("banana"), []byte("2")),
		rmt.Insert([]byte("apple"), []byte("1")),
		rmt.Insert([]byte("cherry"), []byte("3")),
	})
	require.NoError(t, err)

	it, err := tr.Iterate(1, nil, nil, true)
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"apple", "banana", "cherry"}, keys)
}

func TestIterateDescendingOrder(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("banana"), []byte("2")),
		rmt.Insert([]byte("apple"), []byte("1")),
		rmt.Insert([]byte("cherry"), []byte("3")),
	})
	require.NoError(t, err)

	it, err := tr.Iterate(1, nil, nil, false)
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"cherry", "banana", "apple"}, keys)
}

func TestIterateBounds(t *testing.T) {
	tr := newTree()
	_, _, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("a"), []byte("1")),
		rmt.Insert([]byte("b"), []byte("2")),
		rmt.Insert([]byte("c"), []byte("3")),
		rmt.Insert([]byte("d"), []byte("4")),
	})
	require.NoError(t, err)

	it, err := tr.Iterate(1, []byte("b"), []byte("d"), true)
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestLoadResumesTree(t *testing.T) {
	backend := kv.NewMem()
	tr := rmt.New(backend, rmt.Options{})
	v, root, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("a"), []byte("1"))})
	require.NoError(t, err)

	loaded := rmt.Load(backend, v, root, rmt.Options{})
	assert.Equal(t, v, loaded.Version())
	assert.Equal(t, root, loaded.Root())

	val, ok, _, err := loaded.Get(v, []byte("a"), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), val)
}

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

func TestProofMembership(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{})
	_, root, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("alpha"), []byte("1")),
		rmt.Insert([]byte("beta"), []byte("2")),
		rmt.Insert([]byte("gamma"), []byte("3")),
	})
	require.NoError(t, err)

	val, ok, proof, err := tr.Get(1, []byte("beta"), true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), val)
	require.NotNil(t, proof)

	member, value, err := rmt.Verify(inode.Keccak256{}, root, []byte("beta"), proof)
	require.NoError(t, err)
	assert.True(t, member)
	assert.Equal(t, []byte("2"), value)
}

func TestProofMembershipRejectsWrongValue(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{})
	_, root, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("alpha"), []byte("1"))})
	require.NoError(t, err)

	_, _, proof, err := tr.Get(1, []byte("alpha"), true)
	require.NoError(t, err)

	proof.Value = []byte("tampered")
	_, _, err = rmt.Verify(inode.Keccak256{}, root, []byte("alpha"), proof)
	assert.ErrorIs(t, err, rmt.ErrProofInvalid)
}

func TestProofEmptyTree(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{})
	root := tr.Root()

	_, ok, proof, err := tr.Get(0, []byte("anything"), true)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, proof)

	member, _, err := rmt.Verify(inode.Keccak256{}, root, []byte("anything"), proof)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestProofDivergeInternalMissingChild(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{})
	_, root, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("alpha"), []byte("1")),
		rmt.Insert([]byte("beta"), []byte("2")),
	})
	require.NoError(t, err)

	_, ok, proof, err := tr.Get(1, []byte("zzzzz"), true)
	require.NoError(t, err)
	assert.False(t, ok)

	member, _, err := rmt.Verify(inode.Keccak256{}, root, []byte("zzzzz"), proof)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestProofDivergeLeafSharedPrefix(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{})
	_, root, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("alphabet"), []byte("1")),
	})
	require.NoError(t, err)

	_, ok, proof, err := tr.Get(1, []byte("alphanumeric"), true)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotNil(t, proof)

	member, _, err := rmt.Verify(inode.Keccak256{}, root, []byte("alphanumeric"), proof)
	require.NoError(t, err)
	assert.False(t, member)
}

func TestProofDivergeInternalNoValueAtPrefix(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{})
	_, root, err := tr.Apply(rmt.Batch{
		rmt.Insert([]byte("abc"), []byte("1")),
		rmt.Insert([]byte("abd"), []byte("2")),
	})
	require.NoError(t, err)

	// "ab" is a prefix of both keys but was never itself inserted; the
	// tree branches one nibble below it, so "ab" ends inside a collapsed
	// span.
	_, ok, proof, err := tr.Get(1, []byte("ab"), true)
	require.NoError(t, err)
	assert.False(t, ok)

	member, _, err := rmt.Verify(inode.Keccak256{}, root, []byte("ab"), proof)
	require.NoError(t, err)
	assert.False(t, member)
}

// TestVerifyRejectsNonMembershipProofThatOvershootsLiveKey guards against
// a forged claim that a genuinely live key is absent by relabeling a
// real, fully hash-chained membership proof for a *deeper* key as a
// non-membership proof for a shallower one it happens to pass through.
// k1 carries its own value and also branches into k2, so an honest Get
// of k2 walks straight through k1's own node on the way to k2's leaf;
// every step of that proof still verifies on its own, so the only thing
// that can catch the relabeling is noticing that the accumulated path
// keeps going past the depth at which k1's own value-bearing node sits.
func TestVerifyRejectsNonMembershipProofThatOvershootsLiveKey(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{})
	k1 := []byte{0xAB}
	k2 := []byte{0xAB, 0xCD}
	_, root, err := tr.Apply(rmt.Batch{
		rmt.Insert(k1, []byte("v1")),
		rmt.Insert(k2, []byte("v2")),
	})
	require.NoError(t, err)

	_, ok, _, err := tr.Get(1, k1, false)
	require.NoError(t, err)
	require.True(t, ok, "k1 must genuinely be live")

	_, ok, proof2, err := tr.Get(1, k2, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Greater(t, len(proof2.Steps), 1, "k2's proof should pass through k1's own node")

	forged := &rmt.Proof{Kind: rmt.KindNonMembership, Steps: proof2.Steps}
	member, _, err := rmt.Verify(inode.Keccak256{}, root, k1, forged)
	assert.ErrorIs(t, err, rmt.ErrProofInvalid)
	assert.False(t, member)
}

func TestVerifyRejectsMismatchedRoot(t *testing.T) {
	tr := rmt.New(kv.NewMem(), rmt.Options{})
	_, _, err := tr.Apply(rmt.Batch{rmt.Insert([]byte("alpha"), []byte("1"))})
	require.NoError(t, err)

	_, _, proof, err := tr.Get(1, []byte("alpha"), true)
	require.NoError(t, err)

	var wrongRoot inode.Digest
	wrongRoot[0] = 0xff
	_, _, err = rmt.Verify(inode.Keccak256{}, wrongRoot, []byte("alpha"), proof)
	assert.ErrorIs(t, err, rmt.ErrProofInvalid)
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rmt

import (
	inode "github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/proof"
)

// Proof, ProofKind and ProofStep re-export the proof package's types so
// callers of Tree.Get never need their own import of it, the same way
// muxdb re-exports its trie iterator types under its own package.
type (
	Proof     = proof.Proof
	ProofKind = proof.Kind
	ProofStep = proof.Step
)

const (
	KindEmptyTree     = proof.KindEmptyTree
	KindMembership    = proof.KindMembership
	KindNonMembership = proof.KindNonMembership
)

// Verify re-exports proof.Verify under the tree's own hasher type so
// callers don't need a separate import for the common case.
func Verify(hasher inode.Hasher, root inode.Digest, key []byte, p *Proof) (bool, []byte, error) {
	return proof.Verify(hasher, root, key, p)
}

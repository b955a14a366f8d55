// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package proof defines the membership and non-membership proof shapes
// the tree's Get emits (§4.5) and the store-free verifier that checks
// one against a root digest. Nothing here touches a kv.Store: a Proof
// is meant to travel to a party that only holds a root hash.
package proof

import (
	"bytes"
	"errors"

	inode "github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/nibble"
)

// ErrInvalid is the verifier's ordinary "rejected" outcome, not an
// internal error — it covers both a malformed proof and a well-formed
// proof that simply doesn't hold for the given (root, key).
var ErrInvalid = errors.New("proof: invalid")

// Kind distinguishes the shapes a proof can take (§4.5).
type Kind byte

const (
	// KindEmptyTree proves absence against the empty-tree sentinel: there
	// is nothing to walk.
	KindEmptyTree Kind = iota
	// KindMembership proves key maps to Value.
	KindMembership
	// KindNonMembership proves key's absence. Steps names the real node
	// the lookup actually ran into — either the node stored exactly at
	// key's own depth but holding no value there, a branch node with no
	// child in the direction key's next nibble needs, or an unrelated
	// leaf/branch the tree's structure led to through a compressed span
	// that key's nibbles diverge from or end inside (that node may sit
	// shallower or deeper than key's own depth). Verify tells these apart
	// from Steps's own shape;
	// the proof doesn't need to say which one it is.
	KindNonMembership
)

// Step carries one materialized node's digest inputs, plus the nibbles
// that lead to it from the previous step's node (empty for the first
// step's root, which sits at the tree's root slot). Steps run
// root-first: Steps[0] is the tree's actual root node, Steps[len-1] is
// the node the lookup terminated at.
//
// Edge's first byte (when non-empty) is the slot index the previous
// step's Children/ChildSkip entry is keyed by; any further bytes are the
// Skip span invariant N1 collapsed between that slot and this step's own
// node. Verify only trusts those further bytes once it has checked them
// against the previous step's own ChildSkip entry — itself bound into
// that step's digest (see ChildCommitment) — so a forged Skip span fails
// the hash chain rather than silently steering the verifier to the wrong
// conclusion.
type Step struct {
	Edge      []byte
	HasValue  bool
	ValueHash inode.Digest
	Children  [16]*inode.Digest
	ChildSkip [16][]byte
}

func (s Step) commitments() [16]*inode.ChildCommitment {
	var out [16]*inode.ChildCommitment
	for i, h := range s.Children {
		if h != nil {
			out[i] = &inode.ChildCommitment{Hash: *h, Skip: s.ChildSkip[i]}
		}
	}
	return out
}

// Proof is the self-contained evidence a lookup's outcome carries. Its
// shape depends on Kind; see the Kind* constants.
type Proof struct {
	Kind  Kind
	Steps []Step

	// Value is set only for KindMembership: the value stored at key.
	Value []byte
}

// Verify checks p against root and key, independent of any store — it
// only uses the digest formula in internal/node. It returns whether key
// is a member of the tree committed to by root and, if so, its value. A
// structurally inconsistent proof is reported as ErrInvalid, the same
// error a correctly-rejected non-membership claim for the wrong key
// would produce; callers should not distinguish the two.
//
// The soundness argument: Steps[0]'s digest must equal root, and every
// later step's digest must equal the hash its predecessor's own
// Children array claims for the slot Steps[i].Edge names — and that
// same predecessor commits to the exact Skip span following the slot
// (ChildCommitment), so Steps[i].Edge's bytes beyond the slot itself
// must match the predecessor's own ChildSkip entry or the chain breaks.
// Steps can therefore only describe nodes that genuinely exist in the
// tree root commits to, reached by genuinely following each Edge from
// one to the next; concatenating every Edge yields the one true nibble
// path from the root to Steps[len-1] — implied below.
func Verify(hasher inode.Hasher, root inode.Digest, key []byte, p *Proof) (bool, []byte, error) {
	if p == nil {
		return false, nil, ErrInvalid
	}
	target := nibble.FromKey(key)

	if p.Kind == KindEmptyTree {
		if len(p.Steps) != 0 {
			return false, nil, ErrInvalid
		}
		if root != inode.EmptyHash(hasher) {
			return false, nil, ErrInvalid
		}
		return false, nil, nil
	}

	if len(p.Steps) == 0 {
		return false, nil, ErrInvalid
	}
	// The root step has no parent slot to descend from; a non-empty
	// Edge here would be unchecked filler with nothing to bind it.
	if len(p.Steps[0].Edge) != 0 {
		return false, nil, ErrInvalid
	}

	implied := nibble.Path{}
	digests := make([]inode.Digest, len(p.Steps))
	reachedTargetAt := -1
	for i, s := range p.Steps {
		implied = append(implied, s.Edge...)
		digests[i] = inode.ComputeDigest(hasher, s.HasValue, s.ValueHash, s.commitments())
		if reachedTargetAt == -1 && implied.Len() >= target.Len() {
			reachedTargetAt = i
		}
	}

	if digests[0] != root {
		return false, nil, ErrInvalid
	}
	// Once the accumulated path has consumed target's own nibbles, no
	// further step may follow: an honest lookup always stops at the node
	// sitting at that depth (§4.4), so any step a prover tacks on beyond
	// it can only be there to smuggle an unrelated, genuinely-live deeper
	// node in as if it were the lookup's own termination point — exactly
	// the "real but mislabeled" chain a hash-chain check alone can't
	// catch, since every one of those extra steps still verifies.
	if reachedTargetAt != -1 && reachedTargetAt != len(p.Steps)-1 {
		return false, nil, ErrInvalid
	}
	for i := 1; i < len(p.Steps); i++ {
		edge := p.Steps[i].Edge
		if len(edge) == 0 {
			return false, nil, ErrInvalid
		}
		slot := edge[0]
		if slot >= 16 {
			return false, nil, ErrInvalid
		}
		prev := p.Steps[i-1]
		want := prev.Children[slot]
		if want == nil || *want != digests[i] {
			return false, nil, ErrInvalid
		}
		if !bytes.Equal(edge[1:], prev.ChildSkip[slot]) {
			return false, nil, ErrInvalid
		}
	}

	last := p.Steps[len(p.Steps)-1]
	exact := implied.Compare(target) == 0

	switch p.Kind {
	case KindMembership:
		if !exact || !last.HasValue {
			return false, nil, ErrInvalid
		}
		if last.ValueHash != inode.HashLeafValue(hasher, key, p.Value) {
			return false, nil, ErrInvalid
		}
		return true, append([]byte(nil), p.Value...), nil

	case KindNonMembership:
		if exact {
			if last.HasValue {
				// implied lands exactly on key's own path and the node
				// there does carry a value — that's membership, not
				// absence.
				return false, nil, ErrInvalid
			}
			return false, nil, nil
		}
		if implied.Len() < target.Len() && nibble.CommonPrefixLen(implied, target) == implied.Len() {
			// implied is a genuine prefix of target: the proof stopped
			// at a real node before consuming all of target's nibbles.
			// That is only sound non-membership if this node truly has
			// no child in the direction target needs next — a fact
			// last.Children commits to, so a prover can't claim "absent"
			// while secretly it continues.
			next := target.At(implied.Len())
			if last.Children[next] != nil {
				return false, nil, ErrInvalid
			}
		}
		// Otherwise implied diverges from target's own nibbles somewhere
		// within the compared prefix (or overruns it) — since every Skip
		// byte that fed implied is bound to the hash chain above, that
		// divergence is itself proof the real tree holds a different
		// key along this path.
		return false, nil, nil

	default:
		return false, nil, ErrInvalid
	}
}

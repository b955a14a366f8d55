// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Hasher is the pluggable collision-resistant 256-bit hash primitive the
// tree commits with. The choice of concrete hash is explicitly out of
// scope for the engine (§1); this interface is the seam, and Keccak256
// below is the shipped default so the module is usable out of the box.
type Hasher interface {
	Hash(data []byte) Digest
}

// Keccak256 is the default Hasher, matching the hash family the teacher
// lineage uses throughout (cry.VSha3 / go-ethereum's crypto.Keccak256).
type Keccak256 struct{}

func (Keccak256) Hash(data []byte) Digest {
	var d Digest
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	h.Sum(d[:0])
	return d
}

// EmptyHash returns the sentinel digest of the empty tree (§3.4).
func EmptyHash(h Hasher) Digest {
	return h.Hash([]byte{DomainEmpty})
}

// HashLeafValue computes H_leaf(key ‖ value), the inner digest a node's
// value_part encodes (§3.4). It is always nested inside an outer node
// digest, never compared against a top-level root digest on its own.
func HashLeafValue(h Hasher, key, value []byte) Digest {
	buf := make([]byte, 0, 1+len(key)+len(value))
	buf = append(buf, DomainLeaf)
	buf = append(buf, key...)
	buf = append(buf, value...)
	return h.Hash(buf)
}

// ChildCommitment is the part of a NodeChild descriptor that feeds the
// parent's digest: the referenced node's hash, plus the Skip span between
// the parent's slot and that node's real stored path. Skip MUST be
// included here even though §3.4 describes children_part as a bare list
// of child hashes: without it, a non-membership proof that diverges
// partway through a collapsed span (invariant N1) would rest on nibbles
// no hash ever commits to, and a verifier could be handed forged Skip
// bytes that steer it to a false "absent" conclusion for a key that is
// actually live deeper in the same subtree. Committing Skip closes that
// gap the same way go-ethereum's trie commits an extension node's key.
// Version and IsLeaf remain pure traversal metadata and stay out of the
// commitment.
type ChildCommitment struct {
	Hash Digest
	Skip []byte
}

// ComputeDigest implements the node digest formula of §3.4, extended per
// ChildCommitment's doc comment to also bind each child's Skip span:
//
//	H(domain_tag ‖ value_part ‖ children_part)
//
// domain_tag is DomainInternal whenever the node has at least one child
// (regardless of whether it also carries a value), DomainLeaf when it has
// no children but does carry a value, and DomainEmpty only applies to the
// sentinel root-less tree (callers use EmptyHash for that case directly,
// never this function).
func ComputeDigest(h Hasher, hasValue bool, valueHash Digest, children [16]*ChildCommitment) Digest {
	numChildren := 0
	for _, c := range children {
		if c != nil {
			numChildren++
		}
	}

	domain := DomainLeaf
	if numChildren > 0 {
		domain = DomainInternal
	}

	buf := make([]byte, 0, 1+1+33+2+16*34)
	buf = append(buf, domain)

	if hasValue {
		buf = append(buf, 0x01)
		buf = append(buf, valueHash[:]...)
	} else {
		buf = append(buf, 0x00)
	}

	childrenPart := encodeChildrenPart(children)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(childrenPart)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, childrenPart...)

	return h.Hash(buf)
}

func encodeChildrenPart(children [16]*ChildCommitment) []byte {
	buf := make([]byte, 0, 16*34)
	for _, c := range children {
		if c == nil {
			buf = append(buf, 0x00)
			continue
		}
		buf = append(buf, 0x01)
		buf = append(buf, byte(len(c.Skip)))
		buf = append(buf, c.Skip...)
		buf = append(buf, c.Hash[:]...)
	}
	return buf
}

// Digest computes n's own digest under h, per the formula above.
func (n *Node) Digest(h Hasher) Digest {
	var commitments [16]*ChildCommitment
	for i, c := range n.Children {
		if c != nil {
			commitments[i] = &ChildCommitment{Hash: c.Hash, Skip: c.Skip}
		}
	}

	var valueHash Digest
	if n.HasValue {
		valueHash = HashLeafValue(h, n.Key, n.Value)
	}

	return ComputeDigest(h, n.HasValue, valueHash, commitments)
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rmt

import (
	"errors"
	"fmt"

	inode "github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/nibble"
	"github.com/rmtree/rmt/store"
)

// get performs a point lookup for key against root — the resolved
// descriptor for version v's root slot, nil when the tree holds no keys
// at v — building the Merkle proof of the outcome alongside it when
// withProof is set. The walk follows exactly the Child descriptors a
// write left behind (§4.4): one store read per materialized node, with
// Skip spans peeled in memory between them.
func get(st *store.Store, hasher inode.Hasher, v uint64, root *inode.Child, key []byte, withProof bool) ([]byte, bool, *Proof, error) {
	target := nibble.FromKey(key)

	if root == nil {
		if !withProof {
			return nil, false, nil, nil
		}
		return nil, false, &Proof{Kind: KindEmptyTree}, nil
	}

	var steps []ProofStep
	absPath := nibble.Path{}
	cur := root
	edge := append([]byte(nil), cur.Skip...)

	for {
		realPath := append(absPath.Clone(), cur.Skip...)
		n, err := st.GetNode(cur.Version, realPath)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, false, nil, fmt.Errorf("%w: at path %x", ErrNodeNotFound, realPath.Bytes())
			}
			return nil, false, nil, classifyNodeErr(realPath, err)
		}

		skipMatches := true
		for i, nb := range cur.Skip {
			if target.Len() <= absPath.Len()+i || target.At(absPath.Len()+i) != nb {
				skipMatches = false
				break
			}
		}

		if withProof {
			steps = append(steps, buildProofStep(hasher, n, edge))
		}

		if !skipMatches {
			if !withProof {
				return nil, false, nil, nil
			}
			return nil, false, &Proof{Kind: KindNonMembership, Steps: steps}, nil
		}

		depth := realPath.Len()
		if depth == target.Len() {
			if n.HasValue {
				value := append([]byte(nil), n.Value...)
				if !withProof {
					return value, true, nil, nil
				}
				return value, true, &Proof{Kind: KindMembership, Steps: steps, Value: value}, nil
			}
			if !withProof {
				return nil, false, nil, nil
			}
			return nil, false, &Proof{Kind: KindNonMembership, Steps: steps}, nil
		}

		nib := target.At(depth)
		child := n.Children[nib]
		if child == nil {
			if !withProof {
				return nil, false, nil, nil
			}
			return nil, false, &Proof{Kind: KindNonMembership, Steps: steps}, nil
		}

		absPath = realPath.Append(nib)
		edge = append([]byte{nib}, child.Skip...)
		cur = child
	}
}

func buildProofStep(hasher inode.Hasher, n *inode.Node, edge []byte) ProofStep {
	var valueHash inode.Digest
	if n.HasValue {
		valueHash = inode.HashLeafValue(hasher, n.Key, n.Value)
	}
	var children [16]*inode.Digest
	var skips [16][]byte
	for i, c := range n.Children {
		if c != nil {
			h := c.Hash
			children[i] = &h
			skips[i] = append([]byte(nil), c.Skip...)
		}
	}
	return ProofStep{
		Edge:      append([]byte(nil), edge...),
		HasValue:  n.HasValue,
		ValueHash: valueHash,
		Children:  children,
		ChildSkip: skips,
	}
}

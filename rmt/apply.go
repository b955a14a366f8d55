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

// opWithPath pairs an Op with its key's pre-split nibble path, computed
// once and reused at every recursion level rather than re-derived.
type opWithPath struct {
	Path   nibble.Path
	Key    []byte
	Value  []byte
	Delete bool
}

func withPaths(ops []Op) []opWithPath {
	out := make([]opWithPath, len(ops))
	for i, op := range ops {
		out[i] = opWithPath{Path: nibble.FromKey(op.Key), Key: op.Key, Value: op.Value, Delete: op.Delete}
	}
	return out
}

// orphanRef names the (version, path) of a node that applyAtRealNode read
// and that assemble records as orphaned, whatever the rewrite at that path
// produces (even byte-identical content is re-stored at the new version).
type orphanRef struct {
	version uint64
	path    nibble.Path
}

// applyCtx threads the state one batched Apply call shares across every
// level of the recursive rewrite: the backing store, the hash primitive,
// the version boundary being crossed, and the write batch everything
// accumulates into for one atomic commit (§4.3, §4.7).
type applyCtx struct {
	st     *store.Store
	hasher inode.Hasher
	oldV   uint64
	newV   uint64
	batch  *store.Batch
}

// run computes the new root descriptor for ops (already normalized and
// non-empty), reading whatever of the old version's structure the
// rewrite actually touches and buffering every NODES/ORPHANS write into
// ctx.batch. It never commits the batch; the caller does that once,
// after run succeeds, so a failure here leaves the store untouched.
func (ctx *applyCtx) run(ops []opWithPath) (*inode.Child, error) {
	root := nibble.Path{}
	existingRoot, err := ctx.st.GetNode(ctx.oldV, root)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, classifyNodeErr(root, err)
		}
		existingRoot = nil
	}
	if existingRoot == nil {
		return ctx.buildFresh(root, ops, true)
	}
	return ctx.applyAtRealNode(root, ctx.oldV, existingRoot, ops, true)
}

// applySubtree is the entry point used for every non-root slot: baseline
// is the parent's existing Child descriptor for this slot (nil if the
// slot was empty before). Per §4.3 step 1, an empty ops slice is the
// common case and must cost nothing: no store read, just the baseline
// descriptor propagated straight through, preserving structural sharing
// with the old version.
func (ctx *applyCtx) applySubtree(absPath nibble.Path, baseline *inode.Child, ops []opWithPath) (*inode.Child, error) {
	if len(ops) == 0 {
		return baseline, nil
	}
	if baseline == nil {
		return ctx.buildFresh(absPath, ops, false)
	}

	realPath := absPath.Clone()
	realPath = append(realPath, baseline.Skip...)
	realNode, err := ctx.st.GetNode(baseline.Version, realPath)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: at path %x", ErrNodeNotFound, realPath.Bytes())
		}
		return nil, classifyNodeErr(realPath, err)
	}

	if len(baseline.Skip) == 0 {
		return ctx.applyAtRealNode(absPath, baseline.Version, realNode, ops, false)
	}
	return ctx.applyAlongSkip(absPath, baseline.Skip, baseline.Version, baseline.Hash, realNode, ops)
}

// applyAlongSkip walks the nibbles invariant N1 collapsed between a
// parent's child slot and the real node it references, one nibble at a
// time, entirely in memory (the single store read already happened in
// applySubtree). Most of the time ops continue matching the skip span
// exactly and this just peels one nibble per call; an op whose key
// diverges from the skip splits a brand-new branch off at that nibble,
// with the untouched continuation toward the real node carried forward
// unchanged.
func (ctx *applyCtx) applyAlongSkip(absPath nibble.Path, remainingSkip []byte, realVersion uint64, realHash inode.Digest, realNode *inode.Node, ops []opWithPath) (*inode.Child, error) {
	if len(remainingSkip) == 0 {
		return ctx.applyAtRealNode(absPath, realVersion, realNode, ops, false)
	}

	depth := absPath.Len()
	var local *opWithPath
	var continueOps []opWithPath
	diverge := make(map[byte][]opWithPath)
	for i := range ops {
		op := ops[i]
		if op.Path.Len() == depth {
			local = &op
			continue
		}
		nib := op.Path.At(depth)
		if nib == remainingSkip[0] {
			continueOps = append(continueOps, op)
		} else {
			diverge[nib] = append(diverge[nib], op)
		}
	}

	var hasValue bool
	var key, value []byte
	if local != nil && !local.Delete {
		hasValue, key, value = true, local.Key, local.Value
	}

	var children [16]*inode.Child
	for nib, divOps := range diverge {
		child, err := ctx.buildFresh(absPath.Append(nib), divOps, false)
		if err != nil {
			return nil, err
		}
		children[nib] = child
	}

	if len(continueOps) > 0 {
		child, err := ctx.applyAlongSkip(absPath.Append(remainingSkip[0]), remainingSkip[1:], realVersion, realHash, realNode, continueOps)
		if err != nil {
			return nil, err
		}
		children[remainingSkip[0]] = child
	} else {
		children[remainingSkip[0]] = &inode.Child{
			Version: realVersion,
			Hash:    realHash,
			IsLeaf:  realNode.IsLeaf(),
			Skip:    remainingSkip[1:],
		}
	}

	// Nothing was ever stored exactly at absPath before (it sat inside a
	// compressed span), so there is nothing to orphan at this level.
	return ctx.assemble(absPath, hasValue, key, value, children, nil, false)
}

// applyAtRealNode recurses over a node that genuinely exists in storage
// at (oldVersion, absPath): realNode was just read from there. It
// partitions ops into the local value-op (if any) and one bucket per
// nibble, recurses into each of the 16 slots via applySubtree, and lets
// assemble decide the outcome shape.
func (ctx *applyCtx) applyAtRealNode(absPath nibble.Path, oldVersion uint64, realNode *inode.Node, ops []opWithPath, isRoot bool) (*inode.Child, error) {
	depth := absPath.Len()
	var local *opWithPath
	buckets := make(map[byte][]opWithPath)
	for i := range ops {
		op := ops[i]
		if op.Path.Len() == depth {
			local = &op
			continue
		}
		buckets[op.Path.At(depth)] = append(buckets[op.Path.At(depth)], op)
	}

	hasValue, key, value := realNode.HasValue, realNode.Key, realNode.Value
	if local != nil {
		if local.Delete {
			hasValue, key, value = false, nil, nil
		} else {
			hasValue, key, value = true, local.Key, local.Value
		}
	}

	var children [16]*inode.Child
	for i := 0; i < 16; i++ {
		child, err := ctx.applySubtree(absPath.Append(byte(i)), realNode.Children[i], buckets[byte(i)])
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	return ctx.assemble(absPath, hasValue, key, value, children, &orphanRef{version: oldVersion, path: absPath}, isRoot)
}

// buildFresh constructs a brand-new subtree from a set of ops under a
// path that carried nothing before (either the whole tree was empty, or
// a prior recursion step just split a fresh branch off a compressed
// span). Deletes are no-ops here: there is nothing to delete.
func (ctx *applyCtx) buildFresh(absPath nibble.Path, ops []opWithPath, isRoot bool) (*inode.Child, error) {
	depth := absPath.Len()
	var local *opWithPath
	buckets := make(map[byte][]opWithPath)
	for i := range ops {
		op := ops[i]
		if op.Delete {
			continue
		}
		if op.Path.Len() == depth {
			local = &op
			continue
		}
		buckets[op.Path.At(depth)] = append(buckets[op.Path.At(depth)], op)
	}

	var hasValue bool
	var key, value []byte
	if local != nil {
		hasValue, key, value = true, local.Key, local.Value
	}

	var children [16]*inode.Child
	for nib, bOps := range buckets {
		child, err := ctx.buildFresh(absPath.Append(nib), bOps, false)
		if err != nil {
			return nil, err
		}
		children[nib] = child
	}

	return ctx.assemble(absPath, hasValue, key, value, children, nil, isRoot)
}

// assemble applies the outcome rule of §4.3 step 5 to a computed
// (value, children) pair at absPath: vacant if both are empty, a
// pass-through of the sole child if there is exactly one child, no
// value, and absPath isn't the root (invariant N1), otherwise a
// materialized node written to ctx.batch at ctx.newV. orphanOld, when
// non-nil, names a node that genuinely existed at this exact path before
// this call and must be recorded as superseded in every case except an
// unchanged pass-through chain that never had a node here to begin with.
func (ctx *applyCtx) assemble(absPath nibble.Path, hasValue bool, key, value []byte, children [16]*inode.Child, orphanOld *orphanRef, isRoot bool) (*inode.Child, error) {
	k, sole := 0, -1
	for i, c := range children {
		if c != nil {
			k++
			sole = i
		}
	}

	if err := ctx.orphanIfNeeded(orphanOld); err != nil {
		return nil, err
	}

	switch {
	case k == 0 && !hasValue:
		return nil, nil

	case !isRoot && k == 1 && !hasValue:
		child := children[sole]
		skip := make([]byte, 0, 1+len(child.Skip))
		skip = append(skip, byte(sole))
		skip = append(skip, child.Skip...)
		return &inode.Child{Version: child.Version, Hash: child.Hash, IsLeaf: child.IsLeaf, Skip: skip}, nil

	default:
		n := &inode.Node{HasValue: hasValue, Key: key, Value: value, Children: children}
		digest := n.Digest(ctx.hasher)
		if err := ctx.batch.PutNode(ctx.newV, absPath, n); err != nil {
			return nil, wrapBackend("put node", err)
		}
		return &inode.Child{Version: ctx.newV, Hash: digest, IsLeaf: n.IsLeaf()}, nil
	}
}

func (ctx *applyCtx) orphanIfNeeded(orphanOld *orphanRef) error {
	if orphanOld == nil {
		return nil
	}
	if err := ctx.batch.PutOrphan(ctx.newV, orphanOld.version, orphanOld.path); err != nil {
		return wrapBackend("put orphan", err)
	}
	return nil
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"errors"

	"github.com/rmtree/rmt/cache"
	"github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/kv"
	"github.com/rmtree/rmt/nibble"
)

// ErrNotFound is returned by GetNode when no node is stored at the given
// (version, path). It is not itself a fatal condition — whether absence
// is expected depends on what the caller already knows from a parent's
// child descriptor (invariant S2).
var ErrNotFound = errors.New("store: node not found")

// Store persists NODES and ORPHANS (§3.3) over a single kv.Store backend.
// An optional read cache sits in front of node decoding; it is purely an
// accelerator and is never consulted by any correctness-relevant check.
type Store struct {
	backend kv.Store
	cache   *cache.NodeCache
}

// New wraps backend as a node Store with no cache.
func New(backend kv.Store) *Store {
	return &Store{backend: backend}
}

// NewCached wraps backend as a node Store whose node reads are served
// through the given bounded cache.
func NewCached(backend kv.Store, c *cache.NodeCache) *Store {
	return &Store{backend: backend, cache: c}
}

// GetNode reads the node stored at (v, p).
func (s *Store) GetNode(v uint64, p nibble.Path) (*node.Node, error) {
	key := encodeNodeKey(v, p)
	return s.cache.GetOrLoad(string(key), func(string) (*node.Node, error) {
		blob, err := s.backend.Get(key)
		if err != nil {
			if s.backend.IsNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return node.Decode(blob)
	})
}

// NodeEntry is one (path, node) pair returned while scanning a version.
type NodeEntry struct {
	Path nibble.Path
	Node *node.Node
}

// NodesAtVersion returns every node stored at exactly version v, in
// storage-key order: by path length first, then by packed path bytes.
func (s *Store) NodesAtVersion(v uint64) ([]NodeEntry, error) {
	prefix := nodeVersionPrefix(v)
	limit := nodeVersionPrefix(v + 1)

	it := s.backend.Iterate(kv.Range{Start: prefix, Limit: limit})
	defer it.Release()

	var out []NodeEntry
	for it.Next() {
		_, p, err := decodeNodeKey(it.Key())
		if err != nil {
			return nil, err
		}
		n, err := node.Decode(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, NodeEntry{Path: p, Node: n})
	}
	return out, it.Error()
}

// OrphanEntry is one orphan-log record.
type OrphanEntry struct {
	OrphanedSince   uint64
	OriginalVersion uint64
	Path            nibble.Path
}

// OrphansUpTo returns every orphan record with orphaned-since <= upTo,
// ascending by (orphaned_since, original_version, path length, packed
// path bytes).
func (s *Store) OrphansUpTo(upTo uint64) ([]OrphanEntry, error) {
	limit := append(append([]byte(nil), orphansBucket...), encodeU64(upTo+1)...)
	it := s.backend.Iterate(kv.Range{Start: orphansBucket, Limit: limit})
	defer it.Release()

	var out []OrphanEntry
	for it.Next() {
		vOrph, vOrig, p, err := decodeOrphanKey(it.Key())
		if err != nil {
			return nil, err
		}
		out = append(out, OrphanEntry{OrphanedSince: vOrph, OriginalVersion: vOrig, Path: p})
	}
	return out, it.Error()
}

// Batch buffers NODES/ORPHANS writes for atomic submission, so apply and
// prune each commit at a single version boundary (§4.3, §4.7).
type Batch struct {
	bulk kv.Bulk
}

// NewBatch starts a new write batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{bulk: s.backend.Bulk()}
}

func (b *Batch) PutNode(v uint64, p nibble.Path, n *node.Node) error {
	return b.bulk.Put(encodeNodeKey(v, p), node.Encode(n))
}

func (b *Batch) DeleteNode(v uint64, p nibble.Path) error {
	return b.bulk.Delete(encodeNodeKey(v, p))
}

func (b *Batch) PutOrphan(orphanedSince, originalVersion uint64, p nibble.Path) error {
	return b.bulk.Put(encodeOrphanKey(orphanedSince, originalVersion, p), []byte{})
}

func (b *Batch) DeleteOrphan(orphanedSince, originalVersion uint64, p nibble.Path) error {
	return b.bulk.Delete(encodeOrphanKey(orphanedSince, originalVersion, p))
}

// Commit submits every buffered write atomically.
func (b *Batch) Commit() error {
	return b.bulk.Write()
}

// PurgeCache drops every cached node. Callers invoke this after a prune
// commits, since that is the only operation that ever deletes a NODES
// entry a cached read could otherwise keep serving.
func (s *Store) PurgeCache() {
	s.cache.Purge()
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rmt implements a versioned, Merkle-committed 16-ary radix tree
// over raw byte keys and values: batched apply, proof generation and
// verification, live-key iteration, and orphan-log pruning, all layered
// over a pluggable key/value backend (see the kv and store packages).
package rmt

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rmtree/rmt/cache"
	inode "github.com/rmtree/rmt/internal/node"
	"github.com/rmtree/rmt/kv"
	"github.com/rmtree/rmt/nibble"
	"github.com/rmtree/rmt/store"
)

var logger = log.New("pkg", "rmt")

// Options configures a Tree at construction time.
type Options struct {
	// Hasher is the digest primitive. Defaults to Keccak256 (§1, §3.4).
	Hasher inode.Hasher
	// NodeCacheSize bounds the number of decoded nodes kept in the read
	// cache. Zero disables caching entirely.
	NodeCacheSize int
	// MaxKeyLen rejects any operation whose key exceeds this many bytes
	// with ErrKeyTooLong instead of recursing arbitrarily deep. Zero
	// means unbounded — the default, since spec.md leaves this optional.
	MaxKeyLen int
}

// Tree is a versioned 16-ary radix tree committed with a Merkle digest
// at every version boundary. The zero value is not usable; construct one
// with New.
type Tree struct {
	st        *store.Store
	hasher    inode.Hasher
	version   uint64
	root      *inode.Child
	maxKeyLen int
}

// New opens a Tree over backend starting from the empty tree (version
// 0). Callers that are resuming an existing tree should use Load
// instead.
func New(backend kv.Store, opts Options) *Tree {
	return &Tree{
		st:        newStore(backend, opts),
		hasher:    defaultHasher(opts),
		maxKeyLen: opts.MaxKeyLen,
	}
}

// Load opens a Tree over backend, resuming at (version, root) — typically
// values a caller persisted alongside its own state after a previous
// Tree's last successful Apply.
func Load(backend kv.Store, version uint64, root inode.Digest, opts Options) *Tree {
	t := New(backend, opts)
	t.version = version
	if version > 0 {
		t.root = &inode.Child{Version: version, Hash: root, IsLeaf: false}
	}
	return t
}

func newStore(backend kv.Store, opts Options) *store.Store {
	if opts.NodeCacheSize <= 0 {
		return store.New(backend)
	}
	return store.NewCached(backend, cache.NewNodeCache(opts.NodeCacheSize))
}

func defaultHasher(opts Options) inode.Hasher {
	if opts.Hasher != nil {
		return opts.Hasher
	}
	return inode.Keccak256{}
}

// Version returns the current version number: the version the tree was
// created or loaded at, plus one for every Apply that committed a
// non-empty batch since.
func (t *Tree) Version() uint64 {
	return t.version
}

// Root returns the digest of the tree at its current version — the
// empty-tree sentinel (§3.4) if the tree holds no keys.
func (t *Tree) Root() inode.Digest {
	if t.root == nil {
		return inode.EmptyHash(t.hasher)
	}
	return t.root.Hash
}

// Apply normalizes batch (§4.3: last-write-wins per key, then sorted)
// and rewrites exactly the nodes its keys touch, leaving everything else
// structurally shared with the prior version. An empty batch is a true
// no-op: it returns the
// current version without writing anything or consuming a version
// number. Any error leaves the tree's on-disk state exactly as it was;
// Apply either commits every write in batch or none of them.
func (t *Tree) Apply(batch Batch) (uint64, inode.Digest, error) {
	ops, err := normalize(batch, t.maxKeyLen)
	if err != nil {
		return t.version, t.Root(), err
	}
	if len(ops) == 0 {
		return t.version, t.Root(), nil
	}

	newV := t.version + 1
	b := t.st.NewBatch()
	ctx := &applyCtx{st: t.st, hasher: t.hasher, oldV: t.version, newV: newV, batch: b}

	newRoot, err := ctx.run(withPaths(ops))
	if err != nil {
		return t.version, t.Root(), errors.Wrap(err, "apply")
	}
	if err := b.Commit(); err != nil {
		return t.version, t.Root(), errors.Wrap(err, "commit apply batch")
	}

	t.version = newV
	t.root = newRoot

	logger.Debug("applied batch", "version", newV, "root", t.Root(), "ops", len(ops))
	return t.version, t.Root(), nil
}

// Get looks up key as of version v. It returns (nil, false, nil, nil) if
// the key is absent. When withProof is true, it additionally builds the
// membership or non-membership proof for key against v's root.
func (t *Tree) Get(v uint64, key []byte, withProof bool) ([]byte, bool, *Proof, error) {
	if len(key) == 0 {
		return nil, false, nil, ErrEmptyKey
	}
	if t.maxKeyLen > 0 && len(key) > t.maxKeyLen {
		return nil, false, nil, fmt.Errorf("%w: %d > %d", ErrKeyTooLong, len(key), t.maxKeyLen)
	}
	root, err := t.rootAt(v)
	if err != nil {
		return nil, false, nil, err
	}
	return get(t.st, t.hasher, v, root, key, withProof)
}

// rootAt resolves the root descriptor recorded for version v. Only the
// CURRENT version's root is known without a store read (it's cached in
// t.root); historical versions re-derive it by reading the root node
// stored at (v, ε) directly, which always exists unless v addressed an
// empty tree.
func (t *Tree) rootAt(v uint64) (*inode.Child, error) {
	if v == t.version {
		return t.root, nil
	}
	n, err := t.st.GetNode(v, nibble.Path{})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, classifyNodeErr(nibble.Path{}, err)
	}
	return &inode.Child{Version: v, Hash: n.Digest(t.hasher), IsLeaf: n.IsLeaf()}, nil
}

// Prune deletes every NODES entry orphaned at or before upTo, along with
// the orphan records themselves, and drops the read cache afterward so
// no stale blob can be served for a path the store no longer has (§4.7).
func (t *Tree) Prune(upTo uint64) error {
	n, err := prune(t.st, upTo)
	if err != nil {
		return errors.Wrap(err, "prune")
	}
	t.st.PurgeCache()
	logger.Info("pruned orphans", "upTo", upTo, "count", n)
	return nil
}

// Iterate returns a lazy, restartable iterator over every live key in
// [lower, upper) at version v, ascending by key unless ascending is
// false. A nil lower or upper bound is open on that side.
func (t *Tree) Iterate(v uint64, lower, upper []byte, ascending bool) (*Iterator, error) {
	root, err := t.rootAt(v)
	if err != nil {
		return nil, err
	}
	return newIterator(t.st, v, root, lower, upper, ascending), nil
}

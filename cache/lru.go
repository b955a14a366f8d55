// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache provides the bounded read-through node cache the tree
// sits in front of its backing store with, extending golang-lru.
package cache

import (
	lru "github.com/hashicorp/golang-lru"

	inode "github.com/rmtree/rmt/internal/node"
)

// NodeCache is a fixed-capacity, thread-safe cache of decoded nodes,
// keyed by their packed (version, path) storage key. It never affects
// correctness: a miss always falls through to Loader, so it can be
// resized or disabled without changing any tree behavior.
type NodeCache struct {
	inner *lru.Cache
}

// NewNodeCache creates a cache instance. A maxSize below 16 is rounded
// up, since a smaller cache would thrash on the branch nodes near the
// root that almost every read and write revisits.
func NewNodeCache(maxSize int) *NodeCache {
	if maxSize < 16 {
		maxSize = 16
	}
	c, _ := lru.New(maxSize)
	return &NodeCache{inner: c}
}

// Loader fetches a node on a cache miss.
type Loader func(key string) (*inode.Node, error)

// GetOrLoad returns the cached node for key, loading and populating the
// cache on a miss.
func (c *NodeCache) GetOrLoad(key string, loader Loader) (*inode.Node, error) {
	if c == nil {
		return loader(key)
	}
	if v, ok := c.inner.Get(key); ok {
		return v.(*inode.Node), nil
	}
	n, err := loader(key)
	if err != nil {
		return nil, err
	}
	c.inner.Add(key, n)
	return n, nil
}

// Purge evicts every entry, used after a prune so stale-version lookups
// never surface cached blobs for paths the store no longer has.
func (c *NodeCache) Purge() {
	if c != nil {
		c.inner.Purge()
	}
}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import "context"

// Bucket is a key prefix that namespaces a logical table within a shared
// Store, so several collections (e.g. NODES and ORPHANS) can live side by
// side in one backend instance.
type Bucket string

// NewGetter returns a Getter that transparently prepends b to every key.
func (b Bucket) NewGetter(parent Getter) Getter {
	return &bucketGetter{string(b), parent}
}

// NewPutter returns a Putter that transparently prepends b to every key.
func (b Bucket) NewPutter(parent Putter) Putter {
	return &bucketPutter{string(b), parent}
}

// NewStore returns a Store scoped to b within parent.
func (b Bucket) NewStore(parent Store) Store {
	return &bucketStore{string(b), parent}
}

type bucketGetter struct {
	prefix string
	parent Getter
}

func (g *bucketGetter) Get(key []byte) ([]byte, error) { return g.parent.Get(g.key(key)) }
func (g *bucketGetter) Has(key []byte) (bool, error)   { return g.parent.Has(g.key(key)) }
func (g *bucketGetter) key(key []byte) []byte {
	return append([]byte(g.prefix), key...)
}

type bucketPutter struct {
	prefix string
	parent Putter
}

func (p *bucketPutter) Put(key, value []byte) error { return p.parent.Put(p.key(key), value) }
func (p *bucketPutter) Delete(key []byte) error     { return p.parent.Delete(p.key(key)) }
func (p *bucketPutter) key(key []byte) []byte {
	return append([]byte(p.prefix), key...)
}

type bucketStore struct {
	prefix string
	parent Store
}

func (s *bucketStore) key(key []byte) []byte { return append([]byte(s.prefix), key...) }

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.parent.Get(s.key(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)   { return s.parent.Has(s.key(key)) }
func (s *bucketStore) Put(key, value []byte) error    { return s.parent.Put(s.key(key), value) }
func (s *bucketStore) Delete(key []byte) error        { return s.parent.Delete(s.key(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.parent.IsNotFound(err) }

// scopedRange translates a caller's Range, expressed in the bucket's own
// unprefixed key space, into one over the parent's raw keys. An open
// (nil) Limit means "through the end of this bucket", not "through the
// end of the parent store" — so it maps to the lexicographic successor
// of the bucket's prefix, not to the bare prefix itself (which would
// collapse Start == Limit into an empty range).
func (s *bucketStore) scopedRange(r Range) Range {
	limit := s.key(r.Limit)
	if r.Limit == nil {
		limit = prefixUpperBound([]byte(s.prefix))
	}
	return Range{Start: s.key(r.Start), Limit: limit}
}

// prefixUpperBound returns the smallest key that sorts after every key
// beginning with prefix, or nil if prefix has no such bound (empty, or
// all 0xff bytes) — nil Limit means unbounded to Iterate/DeleteRange.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *bucketStore) Iterate(r Range) Iterator {
	return &bucketIterator{len(s.prefix), s.parent.Iterate(s.scopedRange(r))}
}

func (s *bucketStore) DeleteRange(ctx context.Context, r Range) error {
	return s.parent.DeleteRange(ctx, s.scopedRange(r))
}

func (s *bucketStore) Bulk() Bulk {
	return &bucketBulk{s.prefix, s.parent.Bulk()}
}

func (s *bucketStore) Snapshot() Snapshot {
	return &bucketSnapshot{s.prefix, s.parent.Snapshot()}
}

type bucketIterator struct {
	skip   int
	parent Iterator
}

func (it *bucketIterator) First() bool      { return it.parent.First() }
func (it *bucketIterator) Last() bool       { return it.parent.Last() }
func (it *bucketIterator) Next() bool       { return it.parent.Next() }
func (it *bucketIterator) Prev() bool       { return it.parent.Prev() }
func (it *bucketIterator) Key() []byte      { return it.parent.Key()[it.skip:] }
func (it *bucketIterator) Value() []byte    { return it.parent.Value() }
func (it *bucketIterator) Release()         { it.parent.Release() }
func (it *bucketIterator) Error() error     { return it.parent.Error() }

type bucketBulk struct {
	prefix string
	parent Bulk
}

func (b *bucketBulk) Put(key, value []byte) error { return b.parent.Put(b.key(key), value) }
func (b *bucketBulk) Delete(key []byte) error      { return b.parent.Delete(b.key(key)) }
func (b *bucketBulk) key(key []byte) []byte        { return append([]byte(b.prefix), key...) }
func (b *bucketBulk) EnableAutoFlush()              { b.parent.EnableAutoFlush() }
func (b *bucketBulk) Write() error                  { return b.parent.Write() }

type bucketSnapshot struct {
	prefix string
	parent Snapshot
}

func (s *bucketSnapshot) Get(key []byte) ([]byte, error) {
	return s.parent.Get(append([]byte(s.prefix), key...))
}
func (s *bucketSnapshot) Has(key []byte) (bool, error) {
	return s.parent.Has(append([]byte(s.prefix), key...))
}
func (s *bucketSnapshot) Release() { s.parent.Release() }

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"context"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a Store backed by goleveldb, the reference on-disk backend.
type LevelDB struct {
	db *leveldb.DB
}

// Options configures a LevelDB instance.
type Options struct {
	CacheSizeMB        int
	OpenFilesCacheSize int
}

// New opens (creating if necessary) a LevelDB store at path.
func New(path string, opts Options) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, toLevelDBOpts(opts))
	if err != nil {
		return nil, err
	}
	return &LevelDB{db}, nil
}

// NewMemLevelDB opens an in-memory-backed LevelDB instance (useful for
// tests that want LevelDB's exact semantics without touching disk).
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db}, nil
}

func toLevelDBOpts(opts Options) *opt.Options {
	o := &opt.Options{}
	if opts.CacheSizeMB > 0 {
		o.BlockCacheCapacity = opts.CacheSizeMB * opt.MiB
	}
	if opts.OpenFilesCacheSize > 0 {
		o.OpenFilesCacheCapacity = opts.OpenFilesCacheSize
	}
	return o
}

// Close releases the underlying database handle.
func (l *LevelDB) Close() error { return l.db.Close() }

func (l *LevelDB) Get(key []byte) ([]byte, error) { return l.db.Get(key, nil) }

func (l *LevelDB) Has(key []byte) (bool, error) { return l.db.Has(key, nil) }

func (l *LevelDB) Put(key, value []byte) error { return l.db.Put(key, value, nil) }

func (l *LevelDB) Delete(key []byte) error { return l.db.Delete(key, nil) }

func (l *LevelDB) IsNotFound(err error) bool { return errors.IsErrNotFound(err) }

func (l *LevelDB) Iterate(r Range) Iterator {
	return &levelIterator{l.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)}
}

func (l *LevelDB) DeleteRange(ctx context.Context, r Range) error {
	it := l.db.NewIterator(&util.Range{Start: r.Start, Limit: r.Limit}, nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	const flushEvery = 4096
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
		if batch.Len() >= flushEvery {
			if err := l.db.Write(batch, nil); err != nil {
				return err
			}
			batch.Reset()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	if batch.Len() > 0 {
		return l.db.Write(batch, nil)
	}
	return nil
}

func (l *LevelDB) Bulk() Bulk {
	return &levelBulk{db: l.db, batch: new(leveldb.Batch)}
}

func (l *LevelDB) Snapshot() Snapshot {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		// Mirrors the rest of this package: a failed snapshot still
		// satisfies the interface, just returns errors on use.
		return &errSnapshot{err}
	}
	return &levelSnapshot{snap}
}

type levelIterator struct {
	it iterator.Iterator
}

func (i *levelIterator) First() bool      { return i.it.First() }
func (i *levelIterator) Last() bool       { return i.it.Last() }
func (i *levelIterator) Next() bool       { return i.it.Next() }
func (i *levelIterator) Prev() bool       { return i.it.Prev() }
func (i *levelIterator) Key() []byte      { return i.it.Key() }
func (i *levelIterator) Value() []byte    { return i.it.Value() }
func (i *levelIterator) Release()         { i.it.Release() }
func (i *levelIterator) Error() error     { return i.it.Error() }

type levelBulk struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBulk) Put(key, value []byte) error {
	b.batch.Put(key, value)
	return nil
}

func (b *levelBulk) Delete(key []byte) error {
	b.batch.Delete(key)
	return nil
}

func (b *levelBulk) EnableAutoFlush() {}

func (b *levelBulk) Write() error { return b.db.Write(b.batch, nil) }

type levelSnapshot struct {
	snap *leveldb.Snapshot
}

func (s *levelSnapshot) Get(key []byte) ([]byte, error) { return s.snap.Get(key, nil) }
func (s *levelSnapshot) Has(key []byte) (bool, error)   { return s.snap.Has(key, nil) }
func (s *levelSnapshot) Release()                       { s.snap.Release() }

type errSnapshot struct{ err error }

func (s *errSnapshot) Get([]byte) ([]byte, error) { return nil, s.err }
func (s *errSnapshot) Has([]byte) (bool, error)   { return false, s.err }
func (s *errSnapshot) Release()                   {}

// Copyright (c) 2026 The RMT Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
)

// errNotFound is the not-found sentinel returned by the in-memory Store.
var errNotFound = errors.New("kv: not found")

// Mem is a Store backed by an in-memory map; Iterate sorts the matching
// keys on each call. It is meant for tests and for embedders who don't
// need durability, the same role NewMemLevelDB plays alongside the
// on-disk backend.
type Mem struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMem creates an empty in-memory Store.
func NewMem() *Mem {
	return &Mem{data: make(map[string][]byte)}
}

func (m *Mem) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, errNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Mem) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *Mem) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *Mem) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *Mem) IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func (m *Mem) DeleteRange(_ context.Context, r Range) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if inRange([]byte(k), r) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Mem) Iterate(r Range) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if inRange([]byte(k), r) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = m.data[k]
	}
	return &memIterator{keys: keys, vals: vals, pos: -1}
}

func (m *Mem) Bulk() Bulk {
	return &memBulk{store: m}
}

func (m *Mem) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		cp[k] = append([]byte(nil), v...)
	}
	return &memSnapshot{cp}
}

func inRange(key []byte, r Range) bool {
	if r.Start != nil && bytes.Compare(key, r.Start) < 0 {
		return false
	}
	if r.Limit != nil && bytes.Compare(key, r.Limit) >= 0 {
		return false
	}
	return true
}

type memIterator struct {
	keys []string
	vals [][]byte
	pos  int
}

func (it *memIterator) First() bool {
	if len(it.keys) == 0 {
		return false
	}
	it.pos = 0
	return true
}

func (it *memIterator) Last() bool {
	if len(it.keys) == 0 {
		return false
	}
	it.pos = len(it.keys) - 1
	return true
}

func (it *memIterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		it.pos = len(it.keys)
		return false
	}
	it.pos++
	return true
}

func (it *memIterator) Prev() bool {
	if it.pos <= 0 {
		it.pos = -1
		return false
	}
	it.pos--
	return true
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte { return it.vals[it.pos] }
func (it *memIterator) Release()      {}
func (it *memIterator) Error() error  { return nil }

// memBulk buffers writes and applies them to the parent store atomically
// (from the perspective of any reader, since Mem takes a single lock for
// the whole batch) on Write.
type memBulk struct {
	store *Mem
	puts  map[string][]byte
	dels  map[string]struct{}
}

func (b *memBulk) Put(key, value []byte) error {
	if b.puts == nil {
		b.puts = make(map[string][]byte)
	}
	b.puts[string(key)] = append([]byte(nil), value...)
	delete(b.dels, string(key))
	return nil
}

func (b *memBulk) Delete(key []byte) error {
	if b.dels == nil {
		b.dels = make(map[string]struct{})
	}
	b.dels[string(key)] = struct{}{}
	delete(b.puts, string(key))
	return nil
}

func (b *memBulk) EnableAutoFlush() {}

func (b *memBulk) Write() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for k := range b.dels {
		delete(b.store.data, k)
	}
	for k, v := range b.puts {
		b.store.data[k] = v
	}
	return nil
}

type memSnapshot struct {
	data map[string][]byte
}

func (s *memSnapshot) Get(key []byte) ([]byte, error) {
	v, ok := s.data[string(key)]
	if !ok {
		return nil, errNotFound
	}
	return v, nil
}

func (s *memSnapshot) Has(key []byte) (bool, error) {
	_, ok := s.data[string(key)]
	return ok, nil
}

func (s *memSnapshot) Release() {}

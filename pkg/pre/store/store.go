// Package store is the byte-level key/value layer under the policy and
// routing map stores. Keys are opaque; callers namespace them with
// WithPrefix.
package store

import (
	"bytes"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("store: key not found")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store: closed")

// Store is a key/value store. Implementations MUST be safe for concurrent
// use. Values passed to Put and returned from Get are never aliased.
type Store interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// Keys returns every key starting with prefix, in ascending order.
	Keys(prefix []byte) ([][]byte, error)
	Close() error
}

// Memory is a map-backed Store.
type Memory struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.items[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.items[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.items, string(key))
	return nil
}

func (m *Memory) Keys(prefix []byte) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var keys [][]byte
	for k := range m.items {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, []byte(k))
		}
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	return keys, nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// WithPrefix returns a view of s in which every key is prefixed. Keys
// returned by the view have the prefix stripped. Closing the view does not
// close s.
func WithPrefix(s Store, prefix string) Store {
	return &prefixed{s: s, prefix: []byte(prefix)}
}

type prefixed struct {
	s      Store
	prefix []byte
}

func (p *prefixed) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

func (p *prefixed) Put(key, value []byte) error { return p.s.Put(p.key(key), value) }

func (p *prefixed) Get(key []byte) ([]byte, error) { return p.s.Get(p.key(key)) }

func (p *prefixed) Delete(key []byte) error { return p.s.Delete(p.key(key)) }

func (p *prefixed) Keys(prefix []byte) ([][]byte, error) {
	keys, err := p.s.Keys(p.key(prefix))
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = k[len(p.prefix):]
	}
	return keys, nil
}

func (p *prefixed) Close() error { return nil }

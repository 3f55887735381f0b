// Package metadata attaches out-of-band key/value data to targets without
// changing them.
//
// A Store associates a record with each target pointer. A record carries
// target-level metadata plus metadata narrowed to a property, a method, or a
// method parameter. Records are created lazily on first write and are held
// weakly: a record never keeps its target alive and is dropped once the target
// has been collected.
//
// Lookups are inheritance-aware. Every target may have a statically known
// parent (set with SetParent, or derived from the Lineage option); when the
// target itself has no value for a key, its parent is consulted, and so on up
// the chain. The nearest match wins.
//
// Targets must not be zero-sized: distinct zero-sized allocations may share an
// address and would therefore share a record.
package metadata

import (
	"runtime"
	"sync"
	"weak"
)

// Key names a metadata entry.
type Key = string

// record is the per-target bundle.
type record struct {
	class      map[Key]any
	properties map[string]map[Key]any
	methods    map[string]map[Key]any
	parameters map[string]map[int]map[Key]any
}

func newRecord() *record {
	return &record{
		class:      make(map[Key]any),
		properties: make(map[string]map[Key]any),
		methods:    make(map[string]map[Key]any),
		parameters: make(map[string]map[int]map[Key]any),
	}
}

// entry pairs a record with the target's parent link.
type entry[T any] struct {
	rec    *record
	parent *T
}

// Store is a weak target → record association. The zero value is not usable;
// construct one with NewStore. A Store is safe for concurrent use.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[weak.Pointer[T]]*entry[T]
	lineage func(*T) *T
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// Lineage supplies the parent of a target when none was set explicitly.
func Lineage[T any](parent func(*T) *T) Option[T] {
	return func(s *Store[T]) { s.lineage = parent }
}

// NewStore creates an empty store.
func NewStore[T any](opts ...Option[T]) *Store[T] {
	s := &Store[T]{entries: make(map[weak.Pointer[T]]*entry[T])}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ── Class ────────────────────────────────────────────────────────────────────

// SetClassMetadata stores value under key for target.
func (s *Store[T]) SetClassMetadata(target *T, key Key, value any) {
	s.write(target, func(r *record) { r.class[key] = value })
}

// GetClassMetadata returns the nearest value for key along the parent chain.
func (s *Store[T]) GetClassMetadata(target *T, key Key) (any, bool) {
	return s.lookup(target, true, func(r *record) (any, bool) {
		v, ok := r.class[key]
		return v, ok
	})
}

// GetOwnClassMetadata is GetClassMetadata without the parent walk.
func (s *Store[T]) GetOwnClassMetadata(target *T, key Key) (any, bool) {
	return s.lookup(target, false, func(r *record) (any, bool) {
		v, ok := r.class[key]
		return v, ok
	})
}

// ── Properties ───────────────────────────────────────────────────────────────

// SetPropertyMetadata stores value under key for one property of target.
func (s *Store[T]) SetPropertyMetadata(target *T, property string, key Key, value any) {
	s.write(target, func(r *record) { nested(r.properties, property)[key] = value })
}

// GetPropertyMetadata returns the nearest value for (property, key).
func (s *Store[T]) GetPropertyMetadata(target *T, property string, key Key) (any, bool) {
	return s.lookup(target, true, func(r *record) (any, bool) {
		v, ok := r.properties[property][key]
		return v, ok
	})
}

// GetOwnPropertyMetadata is GetPropertyMetadata without the parent walk.
func (s *Store[T]) GetOwnPropertyMetadata(target *T, property string, key Key) (any, bool) {
	return s.lookup(target, false, func(r *record) (any, bool) {
		v, ok := r.properties[property][key]
		return v, ok
	})
}

// ── Methods ──────────────────────────────────────────────────────────────────

// SetMethodMetadata stores value under key for one method of target.
func (s *Store[T]) SetMethodMetadata(target *T, method string, key Key, value any) {
	s.write(target, func(r *record) { nested(r.methods, method)[key] = value })
}

// GetMethodMetadata returns the nearest value for (method, key).
func (s *Store[T]) GetMethodMetadata(target *T, method string, key Key) (any, bool) {
	return s.lookup(target, true, func(r *record) (any, bool) {
		v, ok := r.methods[method][key]
		return v, ok
	})
}

// GetOwnMethodMetadata is GetMethodMetadata without the parent walk.
func (s *Store[T]) GetOwnMethodMetadata(target *T, method string, key Key) (any, bool) {
	return s.lookup(target, false, func(r *record) (any, bool) {
		v, ok := r.methods[method][key]
		return v, ok
	})
}

// ── Parameters ───────────────────────────────────────────────────────────────

// SetParameterMetadata stores value under key for parameter index of method.
func (s *Store[T]) SetParameterMetadata(target *T, method string, index int, key Key, value any) {
	s.write(target, func(r *record) {
		byIndex, ok := r.parameters[method]
		if !ok {
			byIndex = make(map[int]map[Key]any)
			r.parameters[method] = byIndex
		}
		values, ok := byIndex[index]
		if !ok {
			values = make(map[Key]any)
			byIndex[index] = values
		}
		values[key] = value
	})
}

// GetParameterMetadata returns the nearest value for (method, index, key).
func (s *Store[T]) GetParameterMetadata(target *T, method string, index int, key Key) (any, bool) {
	return s.lookup(target, true, func(r *record) (any, bool) {
		v, ok := r.parameters[method][index][key]
		return v, ok
	})
}

// ── Lineage & housekeeping ───────────────────────────────────────────────────

// SetParent records parent as the target's parent for inherited lookups.
// A nil parent clears the link.
func (s *Store[T]) SetParent(target, parent *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(target).parent = parent
}

// Parent returns the parent consulted after target, or nil.
func (s *Store[T]) Parent(target *T) *T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parentOf(target)
}

// Has reports whether target owns a record.
func (s *Store[T]) Has(target *T) bool {
	if target == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[weak.Make(target)]
	return ok
}

// Delete drops the record of target. Parents are left untouched.
func (s *Store[T]) Delete(target *T) {
	if target == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, weak.Make(target))
}

// Len returns the number of live records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store[T]) write(target *T, fn func(*record)) {
	if target == nil {
		panic("metadata: nil target")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ensure(target).rec)
}

// ensure returns the entry for target, creating it (must hold mu.Lock).
func (s *Store[T]) ensure(target *T) *entry[T] {
	wp := weak.Make(target)
	if e, ok := s.entries[wp]; ok {
		return e
	}
	e := &entry[T]{rec: newRecord()}
	s.entries[wp] = e
	runtime.AddCleanup(target, s.forget, wp)
	return e
}

func (s *Store[T]) forget(wp weak.Pointer[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, wp)
}

// parentOf must hold mu.RLock.
func (s *Store[T]) parentOf(target *T) *T {
	if e, ok := s.entries[weak.Make(target)]; ok && e.parent != nil {
		return e.parent
	}
	if s.lineage != nil {
		return s.lineage(target)
	}
	return nil
}

func (s *Store[T]) lookup(target *T, inherit bool, read func(*record) (any, bool)) (any, bool) {
	if target == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var seen map[*T]struct{}
	for t := target; t != nil; t = s.parentOf(t) {
		if e, ok := s.entries[weak.Make(t)]; ok {
			if v, ok := read(e.rec); ok {
				return v, true
			}
		}
		if !inherit {
			break
		}
		if seen == nil {
			seen = make(map[*T]struct{})
		}
		if _, dup := seen[t]; dup {
			break
		}
		seen[t] = struct{}{}
	}
	return nil, false
}

func nested(m map[string]map[Key]any, name string) map[Key]any {
	values, ok := m[name]
	if !ok {
		values = make(map[Key]any)
		m[name] = values
	}
	return values
}

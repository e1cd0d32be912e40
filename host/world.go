// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package host provides a small in-memory element/component world.
//
// It stands in for an application's entity store: elements are numbered,
// carry at most one component per Go type, and can be queried by
// component type. World implements bind.ElementStore, so the readiness
// engine can read the asset.Handle components of elements and attach the
// resources it derives.
package host

import (
	"cmp"
	"reflect"
	"slices"
	"sync"

	"github.com/gogpu/planar/asset"
)

// Element identifies an element of a World. Zero is never allocated.
type Element = uint64

// World is a set of elements with typed components. It is safe for
// concurrent use.
type World struct {
	mu       sync.RWMutex
	next     Element
	elements map[Element]map[reflect.Type]any
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{elements: make(map[Element]map[reflect.Type]any)}
}

// Spawn creates an element with the given components.
func (w *World) Spawn(components ...any) Element {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next++
	e := w.next
	set := make(map[reflect.Type]any, len(components))
	for _, c := range components {
		if c != nil {
			set[reflect.TypeOf(c)] = c
		}
	}
	w.elements[e] = set
	return e
}

// Despawn removes an element and all its components. It reports whether
// the element existed.
func (w *World) Despawn(e Element) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.elements[e]; !ok {
		return false
	}
	delete(w.elements, e)
	return true
}

// Alive reports whether e exists.
func (w *World) Alive(e Element) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.elements[e]
	return ok
}

// Len returns the number of live elements.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.elements)
}

// Attach stores c on e, replacing any component of the same dynamic type.
// Attaching to a despawned element is a no-op.
func (w *World) Attach(e Element, c any) {
	if c == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if set, ok := w.elements[e]; ok {
		set[reflect.TypeOf(c)] = c
	}
}

// Detach removes the component of c's dynamic type from e. Only the type
// of c matters, so a typed nil pointer detaches that pointer type.
func (w *World) Detach(e Element, c any) {
	if c == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if set, ok := w.elements[e]; ok {
		delete(set, reflect.TypeOf(c))
	}
}

// Refs returns the asset references of every element holding an
// asset.Handle component, ordered by element.
func (w *World) Refs() []asset.Ref {
	entries := Query[asset.Handle](w)
	refs := make([]asset.Ref, len(entries))
	for i, en := range entries {
		refs[i] = asset.Ref{Element: en.Element, Handle: en.Value}
	}
	return refs
}

// Attach stores c on e.
func Attach[T any](w *World, e Element, c T) {
	w.Attach(e, c)
}

// Get returns the component of type T on e. T must be the concrete type
// the component was attached as.
func Get[T any](w *World, e Element) (T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var zero T
	set, ok := w.elements[e]
	if !ok {
		return zero, false
	}
	c, ok := set[reflect.TypeFor[T]()]
	if !ok {
		return zero, false
	}
	return c.(T), true
}

// Has reports whether e has a component of type T.
func Has[T any](w *World, e Element) bool {
	_, ok := Get[T](w, e)
	return ok
}

// Remove deletes the component of type T from e and reports whether it
// was present.
func Remove[T any](w *World, e Element) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	set, ok := w.elements[e]
	if !ok {
		return false
	}
	t := reflect.TypeFor[T]()
	if _, ok := set[t]; !ok {
		return false
	}
	delete(set, t)
	return true
}

// Entry is one result of Query.
type Entry[T any] struct {
	Element Element
	Value   T
}

// Query returns every element holding a component of type T, ordered by
// element.
func Query[T any](w *World) []Entry[T] {
	t := reflect.TypeFor[T]()
	w.mu.RLock()
	out := make([]Entry[T], 0, len(w.elements))
	for e, set := range w.elements {
		if c, ok := set[t]; ok {
			out = append(out, Entry[T]{Element: e, Value: c.(T)})
		}
	}
	w.mu.RUnlock()
	slices.SortFunc(out, func(a, b Entry[T]) int {
		return cmp.Compare(a.Element, b.Element)
	})
	return out
}

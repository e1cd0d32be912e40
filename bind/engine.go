// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bind assembles bind groups over prepared planar resources and
// drives every element through the readiness state machine.
//
// An Engine is ticked once per frame by the host. Each tick it walks the
// elements that reference a planar asset and advances them as far as
// their dependencies allow:
//
//	Unresolved -> Loaded       asset server reports the store as loaded
//	Loaded     -> DeviceReady  buffers or textures created from a snapshot
//	DeviceReady -> Bound       bind group created once uploads finished
//
// Anything not ready yet is retried on the next tick. Device failures are
// fatal and returned from Tick.
package bind

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/planar"
	"github.com/gogpu/planar/asset"
	"github.com/gogpu/planar/gpucore"
	"github.com/gogpu/planar/prepare"
)

// ElementStore is the host's element storage as seen by the engine. It
// lists the elements referencing planar assets and receives the derived
// components.
//
// Attach and Detach may be called concurrently from worker goroutines.
type ElementStore interface {
	// Refs returns every element holding an asset handle.
	Refs() []asset.Ref

	// Attach stores component c on element, replacing one of the same type.
	Attach(element uint64, c any)

	// Detach removes the component of c's type from element.
	Detach(element uint64, c any)
}

// Resources is attached to an element when it reaches DeviceReady.
type Resources struct {
	Handle asset.Handle
	Mode   Mode

	// Buffers is set in ModeStorage.
	Buffers *prepare.BufferSet

	// Textures is set in ModeTexture.
	Textures *prepare.TextureSet

	// Indirect holds the draw arguments {4, Len, 0, 0}.
	Indirect gpucore.BufferID

	// Len and Generation describe the store snapshot.
	Len        int
	Generation uint64

	store  *planar.Store
	device gpucore.Device
}

// Ready reports whether the resources can be bound.
func (r *Resources) Ready() bool {
	if r.Textures != nil {
		return r.Textures.Ready()
	}
	return r.Buffers != nil
}

// Release destroys the resources.
func (r *Resources) Release() {
	if r == nil {
		return
	}
	if r.Buffers != nil {
		r.Buffers.Release()
	}
	if r.Textures != nil {
		r.Textures.Release()
		if r.device != nil && r.Indirect != gpucore.InvalidID {
			r.device.DestroyBuffer(r.Indirect)
		}
	}
	r.Indirect, r.device = gpucore.InvalidID, nil
}

// Group is attached to an element when it reaches Bound.
type Group struct {
	ID       gpucore.BindGroupID
	Layout   gpucore.BindGroupLayoutID
	Mode     Mode
	Indirect gpucore.BufferID

	// Len and Generation describe the store snapshot the group was built from.
	Len        int
	Generation uint64
}

type element struct {
	handle asset.Handle
	state  State
	res    *Resources
	group  *Group
	missed bool // Missing already logged
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	mode     Mode
	readOnly bool
	workers  int
	metrics  *Metrics
	layouts  *LayoutCache
}

func defaultOptions() options {
	return options{
		mode:     ModeStorage,
		readOnly: true,
		workers:  runtime.GOMAXPROCS(0),
	}
}

// WithMode selects storage buffer (default) or texture binding.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithReadOnly selects read-only (default) or read-write storage bindings.
func WithReadOnly(readOnly bool) Option {
	return func(o *options) { o.readOnly = readOnly }
}

// WithWorkers limits how many elements are prepared in parallel.
// Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = max(n, 1) }
}

// WithMetrics makes the engine update m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLayoutCache shares a layout cache between engines on the same
// device. The engine does not release a cache it was given.
func WithLayoutCache(c *LayoutCache) Option {
	return func(o *options) { o.layouts = c }
}

// Engine drives elements from Unresolved to Bound.
//
// Tick, Invalidate and Close serialise on an internal mutex; within a
// tick, elements are advanced in parallel.
type Engine struct {
	device   gpucore.Device
	assets   asset.Server
	elements ElementStore
	opts     options

	layouts     *LayoutCache
	ownsLayouts bool

	mu      sync.Mutex
	tracked map[uint64]*element
	closed  bool
}

// NewEngine returns an engine preparing resources on device for the
// assets referenced by elements.
func NewEngine(device gpucore.Device, assets asset.Server, elements ElementStore, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{
		device:   device,
		assets:   assets,
		elements: elements,
		opts:     o,
		layouts:  o.layouts,
		tracked:  make(map[uint64]*element),
	}
	if e.layouts == nil {
		e.layouts = NewLayoutCache(device)
		e.ownsLayouts = true
	}
	return e
}

// Mode returns the binding mode.
func (e *Engine) Mode() Mode { return e.opts.mode }

// Layouts returns the engine's layout cache.
func (e *Engine) Layouts() *LayoutCache { return e.layouts }

// Tick advances every element as far as it can go. Elements already Bound
// are skipped. Elements whose handle disappeared from the store are
// forgotten and their resources released.
//
// The returned error is a fatal device or schema error; elements not
// affected by it keep their progress.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("bind: engine closed")
	}

	refs := e.elements.Refs()
	seen := make(map[uint64]struct{}, len(refs))
	var work []asset.Ref
	for _, ref := range refs {
		seen[ref.Element] = struct{}{}
		el, ok := e.tracked[ref.Element]
		if ok && el.handle != ref.Handle {
			e.drop(ref.Element, el)
			ok = false
		}
		if !ok {
			el = &element{handle: ref.Handle}
			e.tracked[ref.Element] = el
		}
		if el.state != Bound {
			work = append(work, ref)
		}
	}
	for id, el := range e.tracked {
		if _, ok := seen[id]; !ok {
			e.drop(id, el)
			delete(e.tracked, id)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.workers)
	for _, ref := range work {
		el := e.tracked[ref.Element]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return e.advance(ref.Element, el)
		})
	}
	err := g.Wait()

	var counts [numStates]int
	for _, el := range e.tracked {
		counts[el.state]++
	}
	e.opts.metrics.census(counts)
	return err
}

// advance runs the stages of one element. It only touches el, so elements
// can be advanced concurrently.
func (e *Engine) advance(id uint64, el *element) error {
	log := planar.Logger()

	if el.state == Unresolved {
		switch e.assets.LoadState(el.handle) {
		case asset.Loading:
			return nil
		case asset.Missing:
			if !el.missed {
				el.missed = true
				log.Debug("bind: asset missing", "element", id, "handle", el.handle)
			}
			return nil
		}
		if _, ok := e.assets.Resolve(el.handle); !ok {
			return nil
		}
		e.transition(id, el, Loaded)
	}

	if el.state == Loaded {
		store, ok := e.assets.Resolve(el.handle)
		if !ok {
			return nil
		}
		start := time.Now()
		res, err := e.prepare(store)
		if err != nil {
			e.opts.metrics.failed()
			return fmt.Errorf("bind: element %d: %w", id, err)
		}
		e.opts.metrics.prepared(start)
		res.Handle = el.handle
		el.res = res
		e.elements.Attach(id, res)
		e.transition(id, el, DeviceReady)
	}

	if el.state == DeviceReady {
		if !el.res.Ready() {
			return nil
		}
		group, err := e.bind(el.res)
		if err != nil {
			if gpucore.IsFatal(err) {
				e.opts.metrics.failed()
			}
			return fmt.Errorf("bind: element %d: %w", id, err)
		}
		el.group = group
		e.elements.Attach(id, group)
		e.transition(id, el, Bound)
	}
	return nil
}

func (e *Engine) transition(id uint64, el *element, to State) {
	planar.Logger().Debug("bind: transition", "element", id, "from", el.state, "to", to)
	el.state = to
	e.opts.metrics.transition(to)
}

func (e *Engine) prepare(store *planar.Store) (*Resources, error) {
	snap := store.Snapshot()
	res := &Resources{
		Mode:       e.opts.mode,
		Len:        snap.Len(),
		Generation: snap.Generation(),
		store:      store,
		device:     e.device,
	}
	switch e.opts.mode {
	case ModeTexture:
		set, err := prepare.ForTextures(e.device, planar.Bindable{Store: snap})
		if err != nil {
			return nil, err
		}
		indirect, err := prepare.IndirectBuffer(e.device, snap.Schema(), snap.Len())
		if err != nil {
			set.Release()
			return nil, err
		}
		res.Textures, res.Indirect = set, indirect
	default:
		set, err := prepare.Buffers(e.device, snap)
		if err != nil {
			return nil, err
		}
		res.Buffers, res.Indirect = set, set.Indirect
	}
	return res, nil
}

func (e *Engine) bind(res *Resources) (*Group, error) {
	var schema *planar.Schema
	if res.Buffers != nil {
		schema = res.Buffers.Schema
	} else {
		schema = res.Textures.Schema
	}
	layout, err := e.layouts.Get(schema, res.Mode, e.opts.readOnly)
	if err != nil {
		return nil, err
	}
	var id gpucore.BindGroupID
	if res.Buffers != nil {
		id, err = StorageGroup(e.device, layout, res.Buffers)
	} else {
		id, err = TextureGroup(e.device, layout, res.Textures)
	}
	if err != nil {
		return nil, err
	}
	return &Group{
		ID:         id,
		Layout:     layout,
		Mode:       res.Mode,
		Indirect:   res.Indirect,
		Len:        res.Len,
		Generation: res.Generation,
	}, nil
}

// drop releases the device resources of el and detaches its components.
// Called with mu held.
func (e *Engine) drop(id uint64, el *element) {
	if el.group != nil {
		e.device.DestroyBindGroup(el.group.ID)
		e.elements.Detach(id, el.group)
		el.group = nil
	}
	if el.res != nil {
		e.elements.Detach(id, el.res)
		el.res.Release()
		el.res = nil
	}
}

// State returns the readiness state of element. It reports false for
// elements the engine has not seen yet.
func (e *Engine) State(element uint64) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, ok := e.tracked[element]
	if !ok {
		return Unresolved, false
	}
	return el.state, true
}

// Stale reports whether the store behind element has changed since its
// resources were prepared.
func (e *Engine) Stale(element uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, ok := e.tracked[element]
	if !ok || el.res == nil {
		return false
	}
	if cur, ok := e.assets.Resolve(el.handle); ok && cur != el.res.store {
		return true
	}
	return el.res.store.Generation() != el.res.Generation
}

// Invalidate drops the element's bind group and device resources. The
// element re-enters the pipeline at Loaded on the next tick, where it is
// prepared from the current store. It reports whether the element had
// anything to drop.
func (e *Engine) Invalidate(element uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invalidate(element)
}

func (e *Engine) invalidate(id uint64) bool {
	el, ok := e.tracked[id]
	if !ok || el.state < DeviceReady {
		return false
	}
	e.drop(id, el)
	el.state = Loaded
	planar.Logger().Debug("bind: invalidated", "element", id)
	return true
}

// InvalidateHandle invalidates every element referencing h and returns
// how many were affected. It is meant for asset reload callbacks.
func (e *Engine) InvalidateHandle(h asset.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for id, el := range e.tracked {
		if el.handle == h && e.invalidate(id) {
			n++
		}
	}
	return n
}

// InvalidateStale invalidates every element whose store changed since it
// was prepared and returns how many were affected.
func (e *Engine) InvalidateStale() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for id, el := range e.tracked {
		if el.res == nil {
			continue
		}
		cur, ok := e.assets.Resolve(el.handle)
		if (ok && cur != el.res.store) || el.res.store.Generation() != el.res.Generation {
			if e.invalidate(id) {
				n++
			}
		}
	}
	return n
}

// Close releases every element's resources and, unless the cache was
// supplied with WithLayoutCache, the layouts. The engine cannot be ticked
// afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, el := range e.tracked {
		e.drop(id, el)
	}
	clear(e.tracked)
	if e.ownsLayouts {
		e.layouts.Release()
	}
}

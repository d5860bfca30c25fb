// Package swap steps a domain that does not fit in memory by streaming it, slice by slice,
// through at most two resident blocks backed by a ports.BlockStore.
package swap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/engine"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/rule"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
)

// Manager owns the resident blocks of a streamed run. Block a holds the slice being
// committed; block b, when set, holds the slices right after it. It is not safe for
// concurrent use.
type Manager[V grid.Value] struct {
	lat        *lattice.Lattice
	stepper    *engine.Stepper[V]
	store      ports.BlockStore
	maxBytes   int64
	background V
	settings   engine.Settings

	a, b   *Block[V]
	bound  int
	state  engine.State
	err    error
	warned bool
}

// New seeds a streamed run holding initial at the origin. The store must not hold blocks.
func New[V grid.Value](ctx context.Context, lat *lattice.Lattice, r rule.Rule[V], initial, background V, store ports.BlockStore, maxBytes int64, opts ...engine.Option) (*Manager[V], error) {
	keys, err := store.ListBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	if len(keys) > 0 {
		return nil, fmt.Errorf("%w: block store already holds %d blocks", domain.ErrIncompatibleRun, len(keys))
	}

	m := newManager(lat, r, background, store, maxBytes, engine.InitialBound, engine.State{Maxima: make([]int, lat.Dimension())}, opts)
	if m.a, err = BuildBlock(lat, 0, maxBytes, background); err != nil {
		return nil, err
	}
	m.a.Slice(0)[0] = initial
	for min := m.a.Max + 1; min <= m.bound; {
		blk, err := BuildBlock(lat, min, maxBytes, background)
		if err != nil {
			return nil, err
		}
		if m.b == nil {
			m.b = blk
		} else if err := m.flush(ctx, blk); err != nil {
			return nil, err
		}
		min = blk.Max + 1
	}
	return m, nil
}

// Restore resumes a streamed run whose blocks are already in store.
func Restore[V grid.Value](ctx context.Context, lat *lattice.Lattice, r rule.Rule[V], background V, store ports.BlockStore, maxBytes int64, bound int, state engine.State, opts ...engine.Option) (*Manager[V], error) {
	if state.Maxima == nil {
		state.Maxima = make([]int, lat.Dimension())
	}
	m := newManager(lat, r, background, store, maxBytes, bound, state, opts)
	a, err := m.load(ctx, 0)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: no block starts at slice 0", domain.ErrBlockNotFound)
	}
	m.a = a
	return m, nil
}

func newManager[V grid.Value](lat *lattice.Lattice, r rule.Rule[V], background V, store ports.BlockStore, maxBytes int64, bound int, state engine.State, opts []engine.Option) *Manager[V] {
	return &Manager[V]{
		lat:        lat,
		stepper:    engine.NewStepper(lat, r, background),
		store:      store,
		maxBytes:   maxBytes,
		background: background,
		settings:   engine.NewSettings(opts...),
		bound:      bound,
		state:      state,
	}
}

// Step computes the next step, streaming every block once. Cancellation is only honored
// before the step starts: once blocks are being replaced the step runs to the end. A store
// error in the middle of a step leaves the blocks half replaced; the manager then refuses
// further work. The byte limit is checked whenever a block is built, so a domain that grows
// past it fails the step with domain.ErrBlockTooSmall; a warning is logged a few slices
// before that happens.
func (m *Manager[V]) Step(ctx context.Context) (domain.StepResult, error) {
	if m.err != nil {
		return domain.StepResult{}, m.err
	}
	if err := ctx.Err(); err != nil {
		return domain.StepResult{}, err
	}
	start := time.Now()
	if h := m.settings.Hooks.OnStepStart; h != nil {
		h(ctx, &domain.StepEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventStepStart, RunID: m.settings.RunID},
			Step:      m.state.Step + 1,
			Bound:     m.bound,
		})
	}

	res, err := m.step(context.WithoutCancel(ctx))
	if err != nil {
		m.err = fmt.Errorf("step %d aborted: %w", m.state.Step+1, err)
		return domain.StepResult{}, m.err
	}

	oldBound := m.bound
	grow := m.state.BoundsReached
	if grow {
		m.bound++
	}
	m.state.Step++
	m.state.Changed = res.Changed
	m.state.BoundsReached = res.BoundsReached
	for i, v := range res.Maxima {
		m.state.Maxima[i] = max(m.state.Maxima[i], v)
	}

	if grow {
		m.settings.Logger.Debug("domain grown", "step", m.state.Step, "bound", m.bound)
		if h := m.settings.Hooks.OnGrow; h != nil {
			h(ctx, &domain.GrowEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventGrow, RunID: m.settings.RunID},
				Step:      m.state.Step,
				OldBound:  oldBound,
				NewBound:  m.bound,
			})
		}
	}
	if !m.warned && m.nearLimit() {
		m.warned = true
		m.settings.Logger.Warn("block size limit nearly exhausted, the run fails once two slices no longer fit in a block",
			"step", m.state.Step, "bound", m.bound, "block_size_bytes", m.maxBytes)
	}
	out := m.Result()
	if h := m.settings.Hooks.OnStepEnd; h != nil {
		h(ctx, &domain.StepEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnd, RunID: m.settings.RunID},
			Step:      out.Step,
			Bound:     out.Bound,
			Changed:   out.Changed,
			Duration:  time.Since(start),
		})
	}
	return out, nil
}

// nearLimit reports whether fewer than MinBlockLength+1 slices past the bound fit in a block.
func (m *Manager[V]) nearLimit() bool {
	var used int64
	for i := 1; i <= MinBlockLength+1; i++ {
		used += SliceBytes[V](m.lat, m.bound+i)
	}
	return used > m.maxBytes
}

func (m *Manager[V]) step(ctx context.Context) (engine.Result, error) {
	if err := m.ensureHead(ctx); err != nil {
		return engine.Result{}, err
	}
	bound := m.bound
	outBound := bound
	if m.state.BoundsReached {
		outBound++
	}
	newSlice := func(i int) []V {
		switch {
		case i > outBound:
			return nil
		case i > bound:
			return grid.NewSlice(m.lat, i, m.background)
		}
		return grid.NewSlice[V](m.lat, i, 0)
	}

	src := source[V]{m}
	w := &window[V]{base: -1}
	w.slices[1], w.slices[2] = newSlice(0), newSlice(1)
	res := engine.NewResult(m.lat.Dimension())
	for x := 0; x <= bound; x++ {
		if x > 0 {
			w.base = x - 1
			w.slices[0], w.slices[1], w.slices[2] = w.slices[1], w.slices[2], newSlice(x+1)
		}
		if x+1 <= outBound && !m.a.Contains(x+1) {
			if err := m.ensureNext(ctx); err != nil {
				return res, err
			}
		}
		m.stepper.ToppleSlice(src, x, w, &res)
		if x > 0 {
			// source slice x-1 is no longer read by anyone
			if err := m.commit(ctx, x-1, w.slices[0]); err != nil {
				return res, err
			}
		}
	}
	if err := m.commit(ctx, bound, w.slices[1]); err != nil {
		return res, err
	}
	if outBound > bound {
		if err := m.commit(ctx, outBound, w.slices[2]); err != nil {
			return res, err
		}
	}
	return res, nil
}

// commit stores a finished next-step slice in place of its source slice. Committing the last
// slice of a flushes it and promotes b.
func (m *Manager[V]) commit(ctx context.Context, x int, s []V) error {
	switch {
	case m.a.Contains(x):
		m.a.SetSlice(x, s)
	case m.b.Contains(x):
		m.b.SetSlice(x, s)
		return nil
	default:
		panic(fmt.Sprintf("swap: slice %d is not resident", x))
	}
	if x == m.a.Max && m.b != nil {
		if err := m.flush(ctx, m.a); err != nil {
			return err
		}
		m.a, m.b = m.b, nil
	}
	return nil
}

// ensureHead makes a the block starting at slice 0.
func (m *Manager[V]) ensureHead(ctx context.Context) error {
	if m.a.Min == 0 {
		return nil
	}
	if m.b != nil && m.b.Min == 0 {
		m.a, m.b = m.b, m.a
		return nil
	}
	if err := m.flush(ctx, m.a); err != nil {
		return err
	}
	head, err := m.load(ctx, 0)
	if err != nil {
		return err
	}
	if head == nil {
		return fmt.Errorf("%w: no block starts at slice 0", domain.ErrBlockNotFound)
	}
	m.a = head
	return nil
}

// ensureNext makes b the block right after a, loading it or building a fresh one.
func (m *Manager[V]) ensureNext(ctx context.Context) error {
	min := m.a.Max + 1
	if m.b != nil {
		if m.b.Min == min {
			return nil
		}
		if err := m.flush(ctx, m.b); err != nil {
			return err
		}
		m.b = nil
	}
	next, err := m.load(ctx, min)
	if err != nil {
		return err
	}
	if next == nil {
		if next, err = BuildBlock[V](m.lat, min, m.maxBytes, 0); err != nil {
			return err
		}
	}
	m.b = next
	return nil
}

// flush stores blk unless it is clean.
func (m *Manager[V]) flush(ctx context.Context, blk *Block[V]) error {
	if !blk.dirty {
		return nil
	}
	data, err := Encode(m.lat, blk)
	if err != nil {
		return err
	}
	if err := m.store.PutBlock(ctx, blk.Key(), data); err != nil {
		return fmt.Errorf("failed to flush block %d-%d: %w", blk.Min, blk.Max, err)
	}
	blk.dirty = false
	m.settings.Logger.Debug("block flushed", "min", blk.Min, "max", blk.Max, "bytes", len(data))
	if h := m.settings.Hooks.OnBlockFlush; h != nil {
		h(ctx, &domain.BlockEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventBlockFlush, RunID: m.settings.RunID},
			Key:       blk.Key(),
			Bytes:     len(data),
		})
	}
	return nil
}

// load reads the stored block starting at min, or returns nil if there is none.
func (m *Manager[V]) load(ctx context.Context, min int) (*Block[V], error) {
	return m.loadMatching(ctx, func(k domain.BlockKey) bool { return k.Min == min })
}

func (m *Manager[V]) loadMatching(ctx context.Context, match func(domain.BlockKey) bool) (*Block[V], error) {
	keys, err := m.store.ListBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	for _, k := range keys {
		if !match(k) {
			continue
		}
		data, err := m.store.GetBlock(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("failed to load block %d-%d: %w", k.Min, k.Max, err)
		}
		blk, err := Decode[V](m.lat, k, data)
		if err != nil {
			return nil, err
		}
		m.settings.Logger.Debug("block loaded", "min", k.Min, "max", k.Max, "bytes", len(data))
		if h := m.settings.Hooks.OnBlockLoad; h != nil {
			h(ctx, &domain.BlockEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventBlockLoad, RunID: m.settings.RunID},
				Key:       k,
				Bytes:     len(data),
			})
		}
		return blk, nil
	}
	return nil, nil
}

// ValueAt returns the value of any lattice cell. Reading a slice that is not resident
// loads the block holding it in place of block a, which is flushed first if it changed.
func (m *Manager[V]) ValueAt(ctx context.Context, coord []int) (V, error) {
	if m.err != nil {
		return 0, m.err
	}
	c, _ := lattice.Canonicalize(nil, coord)
	x := c[0]
	if x > m.bound {
		return m.background, nil
	}
	switch {
	case m.a.Contains(x):
		return m.a.Slice(x)[m.lat.Rank(c[1:])], nil
	case m.b.Contains(x):
		return m.b.Slice(x)[m.lat.Rank(c[1:])], nil
	}

	if err := m.flush(ctx, m.a); err != nil {
		return 0, err
	}
	blk, err := m.loadMatching(ctx, func(k domain.BlockKey) bool { return k.Contains(x) })
	if err != nil {
		return 0, err
	}
	if blk == nil {
		return 0, fmt.Errorf("%w: no block holds slice %d", domain.ErrBlockNotFound, x)
	}
	m.a = blk
	return blk.Slice(x)[m.lat.Rank(c[1:])], nil
}

// EachSlice calls fn with every slice of the domain, in order. Resident blocks are flushed
// first; the others are read from the store without becoming resident.
func (m *Manager[V]) EachSlice(ctx context.Context, fn func(x int, s []V) error) error {
	if err := m.Flush(ctx); err != nil {
		return err
	}
	keys, err := m.store.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blocks: %w", err)
	}
	next := 0
	for _, k := range keys {
		if next > m.bound {
			break
		}
		if k.Min != next {
			continue
		}
		var blk *Block[V]
		switch {
		case m.a.Min == k.Min:
			blk = m.a
		case m.b != nil && m.b.Min == k.Min:
			blk = m.b
		default:
			data, err := m.store.GetBlock(ctx, k)
			if err != nil {
				return fmt.Errorf("failed to load block %d-%d: %w", k.Min, k.Max, err)
			}
			if blk, err = Decode[V](m.lat, k, data); err != nil {
				return err
			}
		}
		for x := blk.Min; x <= blk.Max && x <= m.bound; x++ {
			if err := fn(x, blk.Slice(x)); err != nil {
				return err
			}
		}
		next = blk.Max + 1
	}
	if next <= m.bound {
		return fmt.Errorf("%w: no block starts at slice %d", domain.ErrBlockNotFound, next)
	}
	return nil
}

// Flush writes the resident blocks that changed to the store.
func (m *Manager[V]) Flush(ctx context.Context) error {
	if m.err != nil {
		return m.err
	}
	if err := m.flush(ctx, m.a); err != nil {
		return err
	}
	if m.b != nil {
		return m.flush(ctx, m.b)
	}
	return nil
}

// Backup flushes the resident blocks and copies every stored block to dst.
func (m *Manager[V]) Backup(ctx context.Context, dst ports.BlockStore) error {
	if err := m.Flush(ctx); err != nil {
		return err
	}
	if dst == m.store {
		return nil
	}
	return CopyBlocks(ctx, m.store, dst)
}

// CopyBlocks copies every block of src into dst, replacing dst's previous blocks.
func CopyBlocks(ctx context.Context, src, dst ports.BlockStore) error {
	keys, err := src.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blocks: %w", err)
	}
	stale, err := dst.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list backup blocks: %w", err)
	}
	written := make(map[domain.BlockKey]bool, len(keys))
	for _, k := range keys {
		data, err := src.GetBlock(ctx, k)
		if err != nil {
			return fmt.Errorf("failed to read block %d-%d: %w", k.Min, k.Max, err)
		}
		if err := dst.PutBlock(ctx, k, data); err != nil {
			return fmt.Errorf("failed to copy block %d-%d: %w", k.Min, k.Max, err)
		}
		written[k] = true
	}
	var errs []error
	for _, k := range stale {
		if !written[k] {
			errs = append(errs, dst.DeleteBlock(ctx, k))
		}
	}
	return errors.Join(errs...)
}

// Result reports the state after the last completed step.
func (m *Manager[V]) Result() domain.StepResult {
	return domain.StepResult{
		Step:          m.state.Step,
		Changed:       m.state.Changed,
		BoundsReached: m.state.BoundsReached,
		Bound:         m.bound,
		Maxima:        append([]int(nil), m.state.Maxima...),
	}
}

// State returns a copy of the step bookkeeping.
func (m *Manager[V]) State() engine.State {
	s := m.state
	s.Maxima = append([]int(nil), m.state.Maxima...)
	return s
}

// Bound returns the largest leading coordinate held by the domain.
func (m *Manager[V]) Bound() int {
	return m.bound
}

// source exposes the resident blocks as the previous step.
type source[V grid.Value] struct {
	m *Manager[V]
}

func (s source[V]) Bound() int {
	return s.m.bound
}

func (s source[V]) Slice(i int) []V {
	if s.m.a.Contains(i) {
		return s.m.a.Slice(i)
	}
	return s.m.b.Slice(i)
}

// window holds next-step slices base..base+2.
type window[V grid.Value] struct {
	base   int
	slices [3][]V
}

func (w *window[V]) Slice(i int) []V {
	j := i - w.base
	if j < 0 || j > 2 || w.slices[j] == nil {
		panic(fmt.Sprintf("swap: next-step slice %d outside window [%d, %d]", i, w.base, w.base+2))
	}
	return w.slices[j]
}

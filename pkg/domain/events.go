package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepStart  EventType = "step_start"
	EventStepEnd    EventType = "step_end"
	EventGrow       EventType = "grow"
	EventBlockFlush EventType = "block_flush"
	EventBlockLoad  EventType = "block_load"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// StepEvent represents the start or end of a step.
type StepEvent struct {
	EventBase
	Step     int64         `json:"step"`
	Bound    int           `json:"bound"`
	Changed  bool          `json:"changed,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// GrowEvent is emitted when a step computes into a domain grown by one slice.
type GrowEvent struct {
	EventBase
	Step     int64 `json:"step"`
	OldBound int   `json:"old_bound"`
	NewBound int   `json:"new_bound"`
}

// BlockEvent represents a block written to or read from a block store.
type BlockEvent struct {
	EventBase
	Key   BlockKey `json:"key"`
	Bytes int      `json:"bytes"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepStart  func(context.Context, *StepEvent)
	OnStepEnd    func(context.Context, *StepEvent)
	OnGrow       func(context.Context, *GrowEvent)
	OnBlockFlush func(context.Context, *BlockEvent)
	OnBlockLoad  func(context.Context, *BlockEvent)
}

// Merge returns hooks that call h first and then other for every event.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepStart:  chain(h.OnStepStart, other.OnStepStart),
		OnStepEnd:    chain(h.OnStepEnd, other.OnStepEnd),
		OnGrow:       chain(h.OnGrow, other.OnGrow),
		OnBlockFlush: chain(h.OnBlockFlush, other.OnBlockFlush),
		OnBlockLoad:  chain(h.OnBlockLoad, other.OnBlockLoad),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

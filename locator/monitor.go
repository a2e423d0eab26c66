package locator

import (
	"context"
	"time"
)

// Default monitor cadence.
const (
	// DefaultInterval is the poll period while no session is live
	DefaultInterval = 2 * time.Second

	// DefaultBusyInterval is the back-off period while the gate
	// reports a live session.
	DefaultBusyInterval = 5 * time.Second
)

// EventKind tags a monitor event.
type EventKind int

const (
	// EventAdded means a device port appeared
	EventAdded EventKind = iota + 1

	// EventRemoved means the device disappeared
	EventRemoved

	// EventChanged means the device moved to a different port
	EventChanged
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Event is a device presence change. Port is set for Added and
// Changed; Old is set for Changed and Removed.
type Event struct {
	Kind EventKind
	Port *PortDescriptor
	Old  *PortDescriptor
}

// Monitor polls the Locator in the background and reports presence
// changes. It uses only the passive strategies and skips polling
// entirely while the gate reports a live session: any enumeration
// during active I/O races the session and is forbidden.
type Monitor struct {
	loc    *Locator
	events chan<- Event

	interval     time.Duration
	busyInterval time.Duration
	gate         func() bool

	last *PortDescriptor
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the idle poll period.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithBusyInterval sets the back-off period used while the gate is
// closed.
func WithBusyInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.busyInterval = d
		}
	}
}

// WithGate sets the session-active check. While gate returns true the
// monitor emits zero device-probing I/O.
func WithGate(gate func() bool) MonitorOption {
	return func(m *Monitor) {
		m.gate = gate
	}
}

// NewMonitor returns a Monitor delivering events to the given channel.
// The monitor never drives protocol traffic; the owner reacts to the
// events.
func NewMonitor(loc *Locator, events chan<- Event, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		loc:          loc,
		events:       events,
		interval:     DefaultInterval,
		busyInterval: DefaultBusyInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		wait := m.interval
		if m.gate != nil && m.gate() {
			wait = m.busyInterval
		} else {
			m.tick(ctx)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tick runs one passive poll and emits at most one event.
func (m *Monitor) tick(ctx context.Context) {
	cur, err := m.loc.FindPassive()
	if err != nil {
		cur = nil
	}

	switch {
	case cur.Equal(m.last):
		return
	case m.last == nil:
		m.emit(ctx, Event{Kind: EventAdded, Port: cur})
	case cur == nil:
		m.emit(ctx, Event{Kind: EventRemoved, Old: m.last})
	default:
		m.emit(ctx, Event{Kind: EventChanged, Port: cur, Old: m.last})
	}
	m.last = cur
}

func (m *Monitor) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
	}
}

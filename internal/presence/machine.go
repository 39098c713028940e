// Package presence tracks live-feed connectivity and the "new activity"
// counters shown on activity-oriented widgets.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"opsdash/internal/domain"
)

// EventConnectionChanged is emitted after every state change.
const EventConnectionChanged = "connection:changed"

// Emitter receives state changes.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

// SignalKind is a transport-state signal or an observed event.
type SignalKind string

const (
	SignalOpen      SignalKind = "open"
	SignalClosed    SignalKind = "closed"
	SignalError     SignalKind = "error"
	SignalReconnect SignalKind = "reconnect"
	SignalEvent     SignalKind = "event"
)

// Signal is one input of the machine. Widget and Event are set for
// SignalEvent; Err for SignalError.
type Signal struct {
	Kind   SignalKind
	Widget string
	Event  *domain.LiveEvent
	Err    error
}

// allowed lists the legal transitions; SignalError is legal from anywhere.
var allowed = map[SignalKind]map[domain.ConnectionStatus]domain.ConnectionStatus{
	SignalOpen: {
		domain.StatusConnecting: domain.StatusConnected,
	},
	SignalClosed: {
		domain.StatusConnected:  domain.StatusDisconnected,
		domain.StatusConnecting: domain.StatusDisconnected,
	},
	SignalReconnect: {
		domain.StatusDisconnected: domain.StatusConnecting,
		domain.StatusError:        domain.StatusConnecting,
	},
}

// Machine is the connection/presence state machine of one session.
// Every method is atomic with respect to the others, so an event racing a
// transition is counted against the post-transition state.
type Machine struct {
	emitter Emitter
	log     *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	status    domain.ConnectionStatus
	perWidget map[string]int
	focused   map[string]bool
	lastEvent *time.Time
	lastErr   string
}

// New creates a machine in the initial {connecting, 0} state.
func New(emitter Emitter) *Machine {
	m := &Machine{
		emitter: emitter,
		log:     slog.Default().With("component", "presence"),
		now:     time.Now,
	}
	m.reset()
	return m
}

func (m *Machine) reset() {
	m.status = domain.StatusConnecting
	m.perWidget = make(map[string]int)
	m.focused = make(map[string]bool)
	m.lastEvent = nil
	m.lastErr = ""
}

// Reset returns to {connecting, 0}, as on session start.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	m.reset()
	st := m.stateLocked()
	m.mu.Unlock()
	m.emit(ctx, st)
}

// State returns a copy of the current state.
func (m *Machine) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Machine) stateLocked() domain.ConnectionState {
	st := domain.ConnectionState{
		Status:    m.status,
		PerWidget: maps.Clone(m.perWidget),
		LastError: m.lastErr,
	}
	for _, n := range m.perWidget {
		st.NewCount += n
	}
	if m.lastEvent != nil {
		t := *m.lastEvent
		st.LastEventAt = &t
	}
	return st
}

// Apply feeds one signal into the machine. Illegal transitions return
// ErrInvalidTransition and leave the state untouched.
func (m *Machine) Apply(ctx context.Context, sig Signal) (domain.ConnectionState, error) {
	m.mu.Lock()
	changed, err := m.applyLocked(sig)
	st := m.stateLocked()
	m.mu.Unlock()

	if err != nil {
		return st, err
	}
	if changed {
		m.emit(ctx, st)
	}
	return st, nil
}

func (m *Machine) applyLocked(sig Signal) (bool, error) {
	switch sig.Kind {
	case SignalEvent:
		return m.observeLocked(sig), nil
	case SignalError:
		m.status = domain.StatusError
		if sig.Err != nil {
			m.lastErr = sig.Err.Error()
		}
		return true, nil
	}

	table, ok := allowed[sig.Kind]
	if !ok {
		return false, fmt.Errorf("%w: unknown signal %q", domain.ErrInvalidTransition, sig.Kind)
	}
	next, ok := table[m.status]
	if !ok {
		return false, fmt.Errorf("%w: %s from %s", domain.ErrInvalidTransition, sig.Kind, m.status)
	}
	m.status = next
	if next == domain.StatusConnected {
		m.lastErr = ""
	}
	return true, nil
}

// observeLocked counts an event only while connected and only for widgets
// not in focus. Counts are frozen, not reset, while disconnected.
func (m *Machine) observeLocked(sig Signal) bool {
	widget := sig.Widget
	if widget == "" && sig.Event != nil {
		widget = sig.Event.Widget
	}
	if m.status != domain.StatusConnected || widget == "" {
		return false
	}
	at := m.now()
	if sig.Event != nil && !sig.Event.At.IsZero() {
		at = sig.Event.At
	}
	m.lastEvent = &at
	if m.focused[widget] {
		return false
	}
	m.perWidget[widget]++
	return true
}

// Open, Closed, Reconnect, Fail and Observe are shorthands for Apply.
func (m *Machine) Open(ctx context.Context) error {
	_, err := m.Apply(ctx, Signal{Kind: SignalOpen})
	return err
}

func (m *Machine) Closed(ctx context.Context) error {
	_, err := m.Apply(ctx, Signal{Kind: SignalClosed})
	return err
}

func (m *Machine) Reconnect(ctx context.Context) error {
	_, err := m.Apply(ctx, Signal{Kind: SignalReconnect})
	return err
}

func (m *Machine) Fail(ctx context.Context, cause error) {
	_, _ = m.Apply(ctx, Signal{Kind: SignalError, Err: cause})
}

func (m *Machine) Observe(ctx context.Context, widget string) {
	_, _ = m.Apply(ctx, Signal{Kind: SignalEvent, Widget: widget})
}

// Focus marks widget as viewed: its counter resets and stays at zero until
// Blur.
func (m *Machine) Focus(ctx context.Context, widget string) {
	m.mu.Lock()
	m.focused[widget] = true
	had := m.perWidget[widget] > 0
	delete(m.perWidget, widget)
	st := m.stateLocked()
	m.mu.Unlock()
	if had {
		m.emit(ctx, st)
	}
}

// View resets the counter of widget without keeping it focused.
func (m *Machine) View(ctx context.Context, widget string) {
	m.mu.Lock()
	had := m.perWidget[widget] > 0
	delete(m.perWidget, widget)
	st := m.stateLocked()
	m.mu.Unlock()
	if had {
		m.emit(ctx, st)
	}
}

// Blur takes widget out of focus so new events count again.
func (m *Machine) Blur(widget string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.focused, widget)
}

// Run applies signals until ctx is done or signals is closed. Invalid
// transitions are logged and skipped.
func (m *Machine) Run(ctx context.Context, signals <-chan Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if _, err := m.Apply(ctx, sig); err != nil {
				m.log.Debug("signal ignored", "signal", sig.Kind, "err", err)
			}
		}
	}
}

func (m *Machine) emit(ctx context.Context, st domain.ConnectionState) {
	if m.emitter != nil {
		m.emitter.Emit(ctx, EventConnectionChanged, st)
	}
}

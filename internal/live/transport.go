// Package live connects the presence machine to a push or poll feed of
// activity events.
package live

import (
	"context"

	"opsdash/internal/domain"
	"opsdash/internal/presence"
)

// Sink receives the signals a transport produces. *presence.Machine
// implements it.
type Sink interface {
	Apply(ctx context.Context, sig presence.Signal) (domain.ConnectionState, error)
}

// Transport feeds a Sink until ctx is done or it gives up.
type Transport interface {
	Run(ctx context.Context) error
}

// Frame types on the push channel.
const (
	FrameActivity     = "activity"
	FrameNotification = "notification"
	FramePing         = "ping"
)

// Frame is one JSON message of the push channel. Widget is optional; when
// empty it is derived from the frame type.
type Frame struct {
	Type     string                `json:"type"`
	Widget   string                `json:"widget,omitempty"`
	Activity *domain.ActivityEvent `json:"activity,omitempty"`
}

// widgetsFor returns the widgets an event counts against. Comments show up
// both in the activity feed and on the communication hub.
func widgetsFor(f Frame) []string {
	if f.Widget != "" {
		return []string{f.Widget}
	}
	switch f.Type {
	case FrameActivity:
		if f.Activity != nil && f.Activity.Kind == domain.ActivityComment {
			return []string{domain.WidgetRecentActivity, domain.WidgetCommunicationHub}
		}
		return []string{domain.WidgetRecentActivity}
	case FrameNotification:
		return []string{domain.WidgetCommunicationHub}
	}
	return nil
}

// deliver applies one event signal per widget of f.
func deliver(ctx context.Context, sink Sink, f Frame) {
	for _, w := range widgetsFor(f) {
		ev := &domain.LiveEvent{Widget: w, Activity: f.Activity}
		if f.Activity != nil {
			ev.At = f.Activity.OccurredAt
		}
		_, _ = sink.Apply(ctx, presence.Signal{Kind: presence.SignalEvent, Widget: w, Event: ev})
	}
}

// signal applies a transport-state signal; illegal transitions are
// ignored since the machine may already be past them.
func signal(ctx context.Context, sink Sink, kind presence.SignalKind, err error) {
	_, _ = sink.Apply(ctx, presence.Signal{Kind: kind, Err: err})
}

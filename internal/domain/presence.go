package domain

import "time"

// ConnectionStatus is the state of the live activity feed.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// ConnectionState is the observable state of the presence machine.
// NewCount is the sum of PerWidget.
type ConnectionState struct {
	Status      ConnectionStatus `json:"status"`
	NewCount    int              `json:"newCount"`
	PerWidget   map[string]int   `json:"perWidget,omitempty"`
	LastEventAt *time.Time       `json:"lastEventAt,omitempty"`
	LastError   string           `json:"lastError,omitempty"`
}

// LiveEvent is an activity or notification pushed by the live transport.
type LiveEvent struct {
	Widget   string         `json:"widget"` // widget type the event belongs to
	Activity *ActivityEvent `json:"activity,omitempty"`
	At       time.Time      `json:"at"`
}

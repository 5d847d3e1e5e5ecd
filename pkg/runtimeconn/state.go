package runtimeconn

import (
	"time"
)

// State is the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the connection.
type Status struct {
	// Address is the normalized target URL.
	Address string `json:"address"`

	State State `json:"state"`

	// Connected is true when State is StateReady.
	Connected bool `json:"connected"`

	// AttemptID identifies the most recent connection attempt.
	AttemptID string `json:"attemptId,omitempty"`

	// Since is when State last changed.
	Since time.Time `json:"since"`

	// Latency is the last measured one-way latency, or zero.
	Latency time.Duration `json:"latency"`
}

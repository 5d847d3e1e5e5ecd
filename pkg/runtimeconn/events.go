package runtimeconn

import (
	"time"

	"github.com/vango-dev/runtimelink/pkg/payload"
)

// EventType identifies what an Event reports.
type EventType int

const (
	// EventState reports a connection state change.
	EventState EventType = iota
	// EventDeviceData carries a decoded device snapshot.
	EventDeviceData
	// EventLog carries log lines printed on the Runtime.
	EventLog
	// EventLatency carries a new latency measurement.
	EventLatency
)

func (t EventType) String() string {
	switch t {
	case EventState:
		return "state"
	case EventDeviceData:
		return "device_data"
	case EventLog:
		return "log"
	case EventLatency:
		return "latency"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Event is something the manager observed. Status is always the
// connection snapshot at the time of the event; the other fields are set
// according to Type.
type Event struct {
	Type    EventType        `json:"type"`
	Time    time.Time        `json:"time"`
	Status  Status           `json:"status"`
	Devices []payload.Device `json:"devices,omitempty"`
	Lines   []string         `json:"lines,omitempty"`
	Latency time.Duration    `json:"latency,omitempty"`
}

// Observer receives manager events.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }

package status

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

// Bridge defaults.
const (
	DefaultMaxLogLines      = 200
	DefaultSubscriberBuffer = 64
)

// BridgeConfig configures a Bridge.
type BridgeConfig struct {
	// MaxLogLines bounds the log lines kept for the snapshot.
	// Default: 200.
	MaxLogLines int

	// SubscriberBuffer is the per-subscriber event queue length. Events
	// for a subscriber whose queue is full are dropped.
	// Default: 64.
	SubscriberBuffer int

	// Logger is the structured logger.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// LogLine is one line printed on the Runtime.
type LogLine struct {
	Time time.Time `json:"time"`
	Line string    `json:"line"`
}

// Snapshot is the console-facing view of the connection.
type Snapshot struct {
	runtimeconn.Status

	// LatencyMS is Status.Latency in milliseconds.
	LatencyMS float64 `json:"latencyMs"`

	Devices   []payload.Device `json:"devices"`
	Logs      []LogLine        `json:"logs"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Bridge turns manager events into state a UI can read: it keeps the
// latest snapshot and fans events out to subscribers.
//
// Bridge implements runtimeconn.Observer. OnEvent never blocks.
type Bridge struct {
	cfg    BridgeConfig
	logger *slog.Logger

	mu        sync.RWMutex
	status    runtimeconn.Status
	devices   []payload.Device
	logs      []LogLine
	updatedAt time.Time

	subMu   sync.Mutex
	subs    map[chan runtimeconn.Event]struct{}
	dropped int
}

var _ runtimeconn.Observer = (*Bridge)(nil)

// NewBridge creates a Bridge.
func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.MaxLogLines <= 0 {
		cfg.MaxLogLines = DefaultMaxLogLines
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Bridge{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "status"),
		status: runtimeconn.Status{State: runtimeconn.StateDisconnected},
		subs:   make(map[chan runtimeconn.Event]struct{}),
	}
}

// OnEvent implements runtimeconn.Observer.
func (b *Bridge) OnEvent(ev runtimeconn.Event) {
	b.mu.Lock()
	b.status = ev.Status
	b.updatedAt = ev.Time
	switch ev.Type {
	case runtimeconn.EventDeviceData:
		b.devices = ev.Devices
	case runtimeconn.EventLog:
		for _, line := range ev.Lines {
			b.logs = append(b.logs, LogLine{Time: ev.Time, Line: line})
		}
		if over := len(b.logs) - b.cfg.MaxLogLines; over > 0 {
			b.logs = append([]LogLine(nil), b.logs[over:]...)
		}
	case runtimeconn.EventState:
		if ev.Status.State != runtimeconn.StateReady {
			b.devices = nil
		}
	}
	b.mu.Unlock()

	b.broadcast(ev)
}

func (b *Bridge) broadcast(ev runtimeconn.Event) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped++
			b.logger.Debug("subscriber queue full, event dropped", "type", ev.Type)
		}
	}
}

// Snapshot returns the current view.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Snapshot{
		Status:    b.status,
		LatencyMS: float64(b.status.Latency) / float64(time.Millisecond),
		Devices:   append([]payload.Device(nil), b.devices...),
		Logs:      append([]LogLine(nil), b.logs...),
		UpdatedAt: b.updatedAt,
	}
}

// Subscribe returns a channel of future events and a function that
// unsubscribes and closes the channel.
func (b *Bridge) Subscribe() (<-chan runtimeconn.Event, func()) {
	ch := make(chan runtimeconn.Event, b.cfg.SubscriberBuffer)

	b.subMu.Lock()
	b.subs[ch] = struct{}{}
	b.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, ch)
			b.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (b *Bridge) SubscriberCount() int {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	return len(b.subs)
}

// Dropped returns how many events were dropped for slow subscribers.
func (b *Bridge) Dropped() int {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	return b.dropped
}

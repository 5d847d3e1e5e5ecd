package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

// Defaults for Config.
const (
	DefaultFlushInterval = time.Minute
	DefaultMaxBuffered   = 10000
)

// Record is one line of a session recording.
type Record struct {
	Time      time.Time        `json:"time"`
	Kind      string           `json:"kind"`
	Address   string           `json:"address,omitempty"`
	Devices   []payload.Device `json:"devices,omitempty"`
	Lines     []string         `json:"lines,omitempty"`
	LatencyMS float64          `json:"latencyMs,omitempty"`
}

// Config configures a Recorder.
type Config struct {
	// Sink receives flushed recordings. Required.
	Sink Sink

	// FlushInterval is how often Run flushes.
	// Default: 1m.
	FlushInterval time.Duration

	// MaxBuffered bounds the records held between flushes. When full, the
	// oldest record is dropped.
	// Default: 10000.
	MaxBuffered int

	// Logger is the structured logger.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Recorder buffers Runtime traffic and periodically writes it to a Sink as
// newline-delimited JSON.
//
// Recorder implements runtimeconn.Observer; OnEvent only appends to the
// buffer.
type Recorder struct {
	sink     Sink
	interval time.Duration
	max      int
	logger   *slog.Logger

	mu      sync.Mutex
	buf     []Record
	dropped int
}

var _ runtimeconn.Observer = (*Recorder)(nil)

// New creates a Recorder.
func New(cfg Config) (*Recorder, error) {
	if cfg.Sink == nil {
		return nil, fmt.Errorf("record: sink is required")
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = DefaultMaxBuffered
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Recorder{
		sink:     cfg.Sink,
		interval: cfg.FlushInterval,
		max:      cfg.MaxBuffered,
		logger:   cfg.Logger.With("component", "record"),
	}, nil
}

// OnEvent implements runtimeconn.Observer. Device data, log and latency
// events are recorded; state changes are not.
func (r *Recorder) OnEvent(ev runtimeconn.Event) {
	rec := Record{Time: ev.Time, Kind: ev.Type.String(), Address: ev.Status.Address}
	switch ev.Type {
	case runtimeconn.EventDeviceData:
		rec.Devices = ev.Devices
	case runtimeconn.EventLog:
		rec.Lines = ev.Lines
	case runtimeconn.EventLatency:
		rec.LatencyMS = float64(ev.Latency) / float64(time.Millisecond)
	default:
		return
	}
	r.Record(rec)
}

// Record appends rec to the buffer.
func (r *Recorder) Record(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, rec)
	if over := len(r.buf) - r.max; over > 0 {
		r.buf = r.buf[over:]
		r.dropped += over
	}
}

// Pending returns the number of buffered records.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// Dropped returns how many records were discarded because the buffer was
// full.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Flush writes buffered records to the sink. On failure the records are
// put back so the next flush retries them.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	recs := r.buf
	r.buf = nil
	r.mu.Unlock()

	if len(recs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i := range recs {
		if err := enc.Encode(&recs[i]); err != nil {
			return fmt.Errorf("record: encode: %w", err)
		}
	}

	location, err := r.sink.Write(ctx, body.Bytes())
	if err != nil {
		r.requeue(recs)
		return fmt.Errorf("record: flush: %w", err)
	}

	r.logger.Info("recording flushed", "records", len(recs), "bytes", body.Len(), "location", location)
	return nil
}

func (r *Recorder) requeue(recs []Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(recs, r.buf...)
	if over := len(r.buf) - r.max; over > 0 {
		r.buf = r.buf[over:]
		r.dropped += over
	}
}

// Run flushes every FlushInterval until ctx is done, then flushes once
// more with a fresh 10 second deadline.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.Warn("flush failed", "error", err, "pending", r.Pending())
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return r.Flush(final)
		}
	}
}

package record

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

type memorySink struct {
	mu     sync.Mutex
	bodies [][]byte
	err    error
}

func (s *memorySink) Write(ctx context.Context, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.bodies = append(s.bodies, append([]byte(nil), body...))
	return "memory", nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func newTestRecorder(t *testing.T, cfg Config) *Recorder {
	t.Helper()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func decodeLines(t *testing.T, body []byte) []Record {
	t.Helper()
	var recs []Record
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", sc.Text(), err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestNewRequiresSink(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() without sink should fail")
	}
}

func TestRecorderObservesEvents(t *testing.T) {
	sink := &memorySink{}
	r := newTestRecorder(t, Config{Sink: sink})

	st := runtimeconn.Status{Address: "ws://10.0.0.2:5000", State: runtimeconn.StateReady}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r.OnEvent(runtimeconn.Event{Type: runtimeconn.EventState, Time: now, Status: st})
	r.OnEvent(runtimeconn.Event{Type: runtimeconn.EventDeviceData, Time: now, Status: st,
		Devices: []payload.Device{{Name: "motor", UID: 9}}})
	r.OnEvent(runtimeconn.Event{Type: runtimeconn.EventLog, Time: now, Status: st,
		Lines: []string{"auto started"}})
	r.OnEvent(runtimeconn.Event{Type: runtimeconn.EventLatency, Time: now, Status: st,
		Latency: 2 * time.Millisecond})

	if r.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3 (state events are not recorded)", r.Pending())
	}
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() after flush = %d", r.Pending())
	}

	recs := decodeLines(t, sink.bodies[0])
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].Kind != "device_data" || recs[0].Devices[0].Name != "motor" || recs[0].Address != st.Address {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].Kind != "log" || recs[1].Lines[0] != "auto started" {
		t.Errorf("record 1 = %+v", recs[1])
	}
	if recs[2].Kind != "latency" || recs[2].LatencyMS != 2 {
		t.Errorf("record 2 = %+v", recs[2])
	}
}

func TestRecorderFlushEmptyIsNoop(t *testing.T) {
	sink := &memorySink{}
	r := newTestRecorder(t, Config{Sink: sink})
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if sink.count() != 0 {
		t.Errorf("sink written %d times, want 0", sink.count())
	}
}

func TestRecorderDropsOldest(t *testing.T) {
	sink := &memorySink{}
	r := newTestRecorder(t, Config{Sink: sink, MaxBuffered: 2})
	for _, kind := range []string{"a", "b", "c"} {
		r.Record(Record{Kind: kind})
	}
	if r.Pending() != 2 || r.Dropped() != 1 {
		t.Fatalf("Pending() = %d, Dropped() = %d", r.Pending(), r.Dropped())
	}

	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	recs := decodeLines(t, sink.bodies[0])
	if recs[0].Kind != "b" || recs[1].Kind != "c" {
		t.Errorf("records = %+v", recs)
	}
}

func TestRecorderFlushFailureRequeues(t *testing.T) {
	sink := &memorySink{err: errors.New("bucket gone")}
	r := newTestRecorder(t, Config{Sink: sink})
	r.Record(Record{Kind: "first"})

	if err := r.Flush(context.Background()); err == nil {
		t.Fatal("Flush() should fail")
	}
	r.Record(Record{Kind: "second"})
	if r.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", r.Pending())
	}

	sink.err = nil
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	recs := decodeLines(t, sink.bodies[0])
	if len(recs) != 2 || recs[0].Kind != "first" || recs[1].Kind != "second" {
		t.Errorf("records = %+v", recs)
	}
}

func TestRecorderRunFlushesOnInterval(t *testing.T) {
	sink := &memorySink{}
	r := newTestRecorder(t, Config{Sink: sink, FlushInterval: 10 * time.Millisecond})
	r.Record(Record{Kind: "tick"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for sink.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for interval flush")
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.Record(Record{Kind: "last"})
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() after Run = %d, want 0", r.Pending())
	}
}

func TestDiskSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	sink, err := NewDiskSink(dir)
	if err != nil {
		t.Fatalf("NewDiskSink() error = %v", err)
	}

	path, err := sink.Write(context.Background(), []byte("{}\n"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.HasSuffix(path, ".ndjson") || filepath.Dir(path) != dir {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{}\n" {
		t.Errorf("file = %q, %v", data, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := sink.Write(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Write() with cancelled ctx error = %v", err)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	client := &fakeS3{}
	sink := NewS3Sink(client, "robot-logs", "sessions/")
	sink.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 45, 0, time.FixedZone("X", 3600)) }
	sink.newID = func() string { return "abc" }

	loc, err := sink.Write(context.Background(), []byte("line\n"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	wantKey := "sessions/20260301T113045Z-abc.ndjson"
	if loc != "s3://robot-logs/"+wantKey {
		t.Errorf("location = %q", loc)
	}
	if got := *client.input.Key; got != wantKey {
		t.Errorf("Key = %q, want %q", got, wantKey)
	}
	if got := *client.input.Bucket; got != "robot-logs" {
		t.Errorf("Bucket = %q", got)
	}
	if got := *client.input.ContentType; got != "application/x-ndjson" {
		t.Errorf("ContentType = %q", got)
	}
	if string(client.body) != "line\n" {
		t.Errorf("body = %q", client.body)
	}
}

func TestS3SinkError(t *testing.T) {
	sink := NewS3Sink(&fakeS3{err: errors.New("denied")}, "b", "")
	if _, err := sink.Write(context.Background(), []byte("x")); err == nil || !strings.Contains(err.Error(), "denied") {
		t.Errorf("Write() error = %v", err)
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := envCredentials().Retrieve(context.Background()); err == nil {
		t.Error("Retrieve() without env should fail")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	creds, err := envCredentials().Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "secret" {
		t.Errorf("creds = %+v", creds)
	}

	if NewS3Client("us-east-1", "http://localhost:9000") == nil {
		t.Error("NewS3Client() returned nil")
	}
}

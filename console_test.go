package runtimelink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/runtimelink/internal/config"
	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/protocol"
	"github.com/vango-dev/runtimelink/pkg/record"
	"github.com/vango-dev/runtimelink/pkg/runtimeconn"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runtimePeer accepts console connections and records binary messages
// after the role byte.
type runtimePeer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
	msgs  chan []byte
}

func newRuntimePeer(t *testing.T) *runtimePeer {
	t.Helper()

	p := &runtimePeer{
		conns: make(chan *websocket.Conn, 4),
		msgs:  make(chan []byte, 256),
	}
	var upgrader websocket.Upgrader
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		p.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case p.msgs <- data:
			default:
			}
		}
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *runtimePeer) url() string {
	return "ws" + strings.TrimPrefix(p.srv.URL, "http")
}

func (p *runtimePeer) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-p.conns:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("console never connected")
		return nil
	}
}

type memorySink struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (s *memorySink) Write(ctx context.Context, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, append([]byte(nil), body...))
	return "memory://" + time.Now().Format(time.RFC3339Nano), nil
}

func (s *memorySink) all() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Join(s.bodies, nil)
}

func newTestConsole(t *testing.T, cfg Config) *Console {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.Runtime.PollInterval == 0 {
		cfg.Runtime.PollInterval = time.Hour
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// start runs c in the background and returns a stop func that cancels it and
// returns Run's error.
func start(t *testing.T, c *Console) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	var once sync.Once
	var runErr error
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case runErr = <-errCh:
			case <-time.After(15 * time.Second):
				t.Fatal("Run did not return")
			}
		})
		return runErr
	}
	t.Cleanup(func() { stop() })
	return stop
}

func waitReady(t *testing.T, c *Console) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Manager().Status().State == runtimeconn.StateReady {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("manager never became ready")
}

func TestConsoleStatusHandler(t *testing.T) {
	peer := newRuntimePeer(t)
	c := newTestConsole(t, Config{Runtime: runtimeconn.Config{Address: peer.url()}})
	stop := start(t, c)

	peer.conn(t)
	waitReady(t, c)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var snap struct {
		State     string `json:"state"`
		Connected bool   `json:"connected"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != "ready" || !snap.Connected {
		t.Errorf("status = %+v, want ready and connected", snap)
	}

	if err := stop(); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
	if st := c.Manager().Status().State; st != runtimeconn.StateDisconnected {
		t.Errorf("state after Run = %v, want disconnected", st)
	}
}

func TestConsoleListen(t *testing.T) {
	peer := newRuntimePeer(t)
	c := newTestConsole(t, Config{
		Runtime: runtimeconn.Config{Address: peer.url()},
		Listen:  "127.0.0.1:0",
	})
	start(t, c)

	var addr string
	deadline := time.Now().Add(5 * time.Second)
	for addr == "" && time.Now().Before(deadline) {
		if a := c.Addr(); a != nil {
			addr = a.String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("status server never listened")
	}

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{"runtimelink_connection_state", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestConsoleListenError(t *testing.T) {
	c := newTestConsole(t, Config{Listen: "256.0.0.1:bad"})

	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("Run() = nil, want listen error")
	}
	if err := c.Manager().SendRunMode(payload.ModeIdle); err != runtimeconn.ErrShutdown {
		t.Errorf("manager should be shut down, SendRunMode = %v", err)
	}
}

func TestConsoleKeepAlive(t *testing.T) {
	peer := newRuntimePeer(t)
	c := newTestConsole(t, Config{
		Runtime: runtimeconn.Config{Address: peer.url()},
		KeepAlive: KeepAliveConfig{
			Enabled:  true,
			Mode:     payload.ModeTeleop,
			Interval: 10 * time.Millisecond,
		},
	})
	start(t, c)
	peer.conn(t)

	want := []byte{byte(protocol.KindRunMode), 0x02, 0x00, 0x08, 0x02}
	for i := 0; i < 2; i++ {
		select {
		case got := <-peer.msgs:
			if !bytes.Equal(got, want) {
				t.Fatalf("keep-alive frame = % x, want % x", got, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("keep-alive %d never arrived", i)
		}
	}
}

func TestConsoleRecordsLogs(t *testing.T) {
	peer := newRuntimePeer(t)
	sink := &memorySink{}
	c := newTestConsole(t, Config{
		Runtime: runtimeconn.Config{Address: peer.url()},
		Record:  record.Config{Sink: sink, FlushInterval: time.Hour},
	})
	if c.Recorder() == nil {
		t.Fatal("Recorder() = nil with a sink configured")
	}
	stop := start(t, c)

	conn := peer.conn(t)
	waitReady(t, c)

	body := payload.Marshal(&payload.Text{Payload: []string{"motor ok"}})
	frame := protocol.NewFrame(protocol.KindLog, body).Encode()
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(c.Bridge().Snapshot().Logs) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if logs := c.Bridge().Snapshot().Logs; len(logs) != 1 || logs[0].Line != "motor ok" {
		t.Fatalf("bridge logs = %+v", logs)
	}

	if err := stop(); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if got := sink.all(); !bytes.Contains(got, []byte(`"motor ok"`)) {
		t.Errorf("final flush did not record the log line:\n%s", got)
	}
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()

	fc := config.New()
	fc.Runtime.Address = "10.0.0.9"
	fc.Runtime.KeepAlive.Enabled = true
	fc.Runtime.KeepAlive.Mode = "auto"
	fc.Record.Dir = filepath.Join(dir, "rec")

	cfg, err := FromConfig(fc, discardLogger())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if cfg.Runtime.Address != "10.0.0.9" || cfg.Runtime.PollInterval != 5*time.Second {
		t.Errorf("Runtime = %+v", cfg.Runtime)
	}
	if cfg.Listen != config.DefaultListen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, config.DefaultListen)
	}
	if !cfg.KeepAlive.Enabled || cfg.KeepAlive.Mode != payload.ModeAuto {
		t.Errorf("KeepAlive = %+v", cfg.KeepAlive)
	}
	if _, ok := cfg.Record.Sink.(*record.DiskSink); !ok {
		t.Errorf("Record.Sink = %T, want *record.DiskSink", cfg.Record.Sink)
	}
	if _, err := os.Stat(fc.Record.Dir); err != nil {
		t.Errorf("recording dir not created: %v", err)
	}

	fc.Record.Dir = ""
	fc.Record.Bucket = "sessions"
	fc.Status.Disabled = true
	cfg, err = FromConfig(fc, nil)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := cfg.Record.Sink.(*record.S3Sink); !ok {
		t.Errorf("Record.Sink = %T, want *record.S3Sink", cfg.Record.Sink)
	}
	if cfg.Listen != "" {
		t.Errorf("Listen = %q, want empty when status is disabled", cfg.Listen)
	}

	fc.Record.Bucket = ""
	cfg, _ = FromConfig(fc, nil)
	if cfg.Record.Sink != nil {
		t.Errorf("Record.Sink = %T, want nil", cfg.Record.Sink)
	}
}

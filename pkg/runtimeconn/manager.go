package runtimeconn

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/protocol"
)

// Manager errors.
var (
	// ErrNotReady is returned when a message is dropped because no
	// connection is ready.
	ErrNotReady = errors.New("runtimeconn: connection not ready")

	// ErrShutdown is returned by calls made after Shutdown.
	ErrShutdown = errors.New("runtimeconn: manager shut down")
)

const tracerName = "github.com/vango-dev/runtimelink/pkg/runtimeconn"

type dialResult struct {
	gen       uint64
	attemptID string
	conn      *websocket.Conn
	err       error
}

type inbound struct {
	gen  uint64
	data []byte
	err  error
}

// Manager keeps a connection to one Runtime open.
//
// All connection state is owned by a single goroutine started by New.
// Exported methods hand work to that goroutine and wait for it, so they are
// safe for concurrent use. Dials and socket reads run on their own
// goroutines and report back tagged with a generation number; results from
// a superseded generation are discarded, and a stale dial that still
// succeeds is closed without being adopted.
type Manager struct {
	cfg     Config
	logger  *slog.Logger
	codec   payload.Codec
	metrics *metrics
	tracer  trace.Tracer

	cmds     chan func()
	dials    chan dialResult
	inbound  chan inbound
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Owned by the loop goroutine.
	target     string
	state      State
	since      time.Time
	conn       *websocket.Conn
	gen        uint64
	attemptID  string
	cancelDial context.CancelFunc
	latency    time.Duration
	reasm      protocol.Reassembler
}

// New creates a Manager and starts its poll loop. The first connection
// attempt is made immediately; after that the loop retries every
// PollInterval while disconnected.
func New(cfg Config) (*Manager, error) {
	cfg.applyDefaults()

	target, err := NormalizeAddress(cfg.Address, cfg.DefaultPort)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "runtimeconn"),
		codec:   cfg.Codec,
		metrics: newMetrics(cfg.Registerer),
		tracer:  otel.Tracer(tracerName),
		cmds:    make(chan func()),
		dials:   make(chan dialResult),
		inbound: make(chan inbound),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		target:  target,
		state:   StateDisconnected,
		since:   cfg.Now(),
	}

	go m.loop()
	return m, nil
}

func (m *Manager) loop() {
	defer close(m.stopped)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.startDial()

	for {
		select {
		case fn := <-m.cmds:
			fn()
		case res := <-m.dials:
			m.handleDial(res)
		case in := <-m.inbound:
			m.handleInbound(in)
		case <-ticker.C:
			m.poll()
		case <-m.done:
			m.teardown()
			return
		}
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (m *Manager) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case m.cmds <- func() { fn(); close(ran) }:
	case <-m.done:
		return ErrShutdown
	}
	<-ran
	return nil
}

func (m *Manager) poll() {
	m.logger.Debug("poll",
		"ready", m.state == StateReady,
		"connecting", m.cancelDial != nil,
		"address", m.target,
	)
	if m.state == StateDisconnected && m.cancelDial == nil {
		m.startDial()
	}
}

func (m *Manager) teardown() {
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.dropConn(nil)
	m.gen++
	m.setState(StateDisconnected)
	m.logger.Info("connection manager stopped")
}

// =============================================================================
// Public API
// =============================================================================

// Connect points the manager at addr. If addr normalizes to the current
// target nothing happens. Otherwise the ready socket is closed, any attempt
// in flight is abandoned and a new attempt starts immediately.
func (m *Manager) Connect(addr string) error {
	target, err := NormalizeAddress(addr, m.cfg.DefaultPort)
	if err != nil {
		return err
	}

	return m.do(func() {
		if target == m.target {
			m.logger.Debug("connect to current address ignored", "address", target)
			return
		}

		m.logger.Info("switching runtime address", "from", m.target, "to", target)
		m.dropConn(nil)
		if m.cancelDial != nil {
			m.cancelDial()
			m.cancelDial = nil
		}
		m.target = target
		m.startDial()
	})
}

// Send encodes msg under kind and writes it to the Runtime. When no
// connection is ready the message is dropped and ErrNotReady returned.
func (m *Manager) Send(kind protocol.MessageKind, msg any) error {
	var sendErr error
	if err := m.do(func() { sendErr = m.send(kind, msg) }); err != nil {
		return err
	}
	return sendErr
}

// SendRunMode asks the Runtime to switch run mode.
func (m *Manager) SendRunMode(mode payload.Mode) error {
	return m.Send(protocol.KindRunMode, &payload.RunMode{Mode: mode})
}

// SendStartPos tells the Runtime which side the robot starts on.
func (m *Manager) SendStartPos(pos payload.Pos) error {
	return m.Send(protocol.KindStartPos, &payload.StartPos{Pos: pos})
}

// SendInputs sends the state of the input devices. An empty list is sent
// as a single disconnected record for source so the Runtime can tell that
// no device is attached.
func (m *Manager) SendInputs(inputs []payload.Input, source payload.Source) error {
	if len(inputs) == 0 {
		inputs = []payload.Input{{Connected: false, Source: source}}
	}
	return m.Send(protocol.KindInputs, &payload.UserInputs{Inputs: inputs})
}

// InitiateLatencyCheck sends a time stamp probe. The Runtime echoes it back
// and the manager reports the one-way latency as an EventLatency.
func (m *Manager) InitiateLatencyCheck() error {
	now := m.cfg.Now().UnixMilli()
	return m.Send(protocol.KindTimeStamps, &payload.TimeStamps{DawnTimestamp: uint64(now)})
}

// Close closes the current socket, if any. The poll loop keeps running and
// reconnects on its next tick.
func (m *Manager) Close() error {
	return m.do(func() {
		if m.conn != nil {
			m.logger.Info("closing runtime connection", "address", m.target)
		}
		m.dropConn(nil)
	})
}

// Status returns a snapshot of the connection. After Shutdown it returns
// the final state.
func (m *Manager) Status() Status {
	var st Status
	if err := m.do(func() { st = m.snapshot() }); err != nil {
		<-m.stopped
		return m.snapshot()
	}
	return st
}

// Shutdown stops the poll loop, closes the socket and waits for every
// goroutine the manager started, or for ctx to be done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.done) })

	select {
	case <-m.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	idle := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// Loop internals
// =============================================================================

func (m *Manager) snapshot() Status {
	return Status{
		Address:   m.target,
		State:     m.state,
		Connected: m.state == StateReady,
		AttemptID: m.attemptID,
		Since:     m.since,
		Latency:   m.latency,
	}
}

func (m *Manager) setState(s State) {
	if s == m.state {
		return
	}
	m.state = s
	m.since = m.cfg.Now()
	m.metrics.state.Set(float64(s))
	m.emit(Event{Type: EventState})
}

func (m *Manager) emit(ev Event) {
	ev.Time = m.cfg.Now()
	ev.Status = m.snapshot()
	for _, o := range m.cfg.Observers {
		o.OnEvent(ev)
	}
}

func (m *Manager) send(kind protocol.MessageKind, msg any) error {
	if m.state != StateReady || m.conn == nil {
		m.metrics.messagesDropped.WithLabelValues(kind.String()).Inc()
		m.logger.Debug("message dropped, not ready", "kind", kind, "state", m.state)
		return ErrNotReady
	}

	packet := BuildPacket(m.codec, msg, kind, m.logger)
	if err := m.write(m.conn, packet); err != nil {
		m.logger.Error("send failed", "kind", kind, "error", err)
		m.dropConn(err)
		return err
	}
	m.metrics.framesSent.WithLabelValues(kind.String()).Inc()
	return nil
}

func (m *Manager) write(conn *websocket.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	m.metrics.bytesSent.Add(float64(len(data)))
	return nil
}

// dropConn closes the ready socket and invalidates its reader.
// A nil err means the close was requested locally.
func (m *Manager) dropConn(err error) {
	if m.conn == nil {
		return
	}

	_ = m.conn.Close()
	m.conn = nil
	m.gen++
	m.reasm.Reset()
	m.metrics.disconnects.Inc()

	switch {
	case err == nil:
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		m.logger.Info("runtime closed connection", "address", m.target)
	default:
		m.logger.Warn("runtime connection lost", "address", m.target, "error", err)
	}
	m.setState(StateDisconnected)
}

func (m *Manager) startDial() {
	m.gen++
	gen := m.gen
	target := m.target
	attemptID := uuid.NewString()
	m.attemptID = attemptID

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
	m.cancelDial = cancel
	m.setState(StateConnecting)
	m.logger.Debug("connecting", "address", target, "attempt", attemptID)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()

		conn, err := m.dial(ctx, target, attemptID)
		select {
		case m.dials <- dialResult{gen: gen, attemptID: attemptID, conn: conn, err: err}:
		case <-m.done:
			if conn != nil {
				_ = conn.Close()
			}
		}
	}()
}

func (m *Manager) handleDial(res dialResult) {
	if res.gen != m.gen {
		m.metrics.connectAttempts.WithLabelValues("stale").Inc()
		if res.conn != nil {
			m.logger.Debug("discarding stale connection", "attempt", res.attemptID)
			_ = res.conn.Close()
		}
		return
	}
	m.cancelDial = nil

	if res.err != nil {
		m.metrics.connectAttempts.WithLabelValues("error").Inc()
		m.logger.Warn("runtime connection failed",
			"address", m.target,
			"attempt", res.attemptID,
			"error", res.err,
		)
		m.setState(StateDisconnected)
		return
	}

	if err := m.write(res.conn, protocol.RoleConsole.Bytes()); err != nil {
		m.metrics.connectAttempts.WithLabelValues("error").Inc()
		m.logger.Warn("send role failed", "address", m.target, "error", err)
		_ = res.conn.Close()
		m.setState(StateDisconnected)
		return
	}

	m.metrics.connectAttempts.WithLabelValues("success").Inc()
	m.conn = res.conn
	m.reasm.Reset()
	m.setState(StateReady)
	m.logger.Info("runtime connected", "address", m.target, "attempt", res.attemptID)

	m.wg.Add(1)
	go m.readLoop(res.conn, res.gen)
}

func (m *Manager) handleInbound(in inbound) {
	if in.gen != m.gen || m.conn == nil {
		return
	}
	if in.err != nil {
		m.dropConn(in.err)
		return
	}

	m.metrics.bytesReceived.Add(float64(len(in.data)))
	for _, f := range m.reasm.Feed(in.data) {
		m.dispatch(f)
	}
}

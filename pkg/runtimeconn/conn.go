package runtimeconn

import (
	"context"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// dial opens one connection to target. It runs on its own goroutine.
func (m *Manager) dial(ctx context.Context, target, attemptID string) (*websocket.Conn, error) {
	ctx, span := m.tracer.Start(ctx, "runtimeconn.dial",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("runtime.address", target),
			attribute.String("runtime.attempt_id", attemptID),
		),
	)
	defer span.End()

	conn, resp, err := m.cfg.Dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return conn, nil
}

// readLoop forwards every binary message on conn to the loop goroutine in
// arrival order. It exits after the first read error, which it also forwards.
func (m *Manager) readLoop(conn *websocket.Conn, gen uint64) {
	defer m.wg.Done()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			m.deliver(inbound{gen: gen, err: err})
			return
		}
		if typ != websocket.BinaryMessage {
			m.logger.Debug("ignoring non-binary message", "type", typ)
			continue
		}
		if !m.deliver(inbound{gen: gen, data: data}) {
			return
		}
	}
}

func (m *Manager) deliver(in inbound) bool {
	select {
	case m.inbound <- in:
		return true
	case <-m.done:
		return false
	}
}

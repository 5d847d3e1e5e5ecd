package runtimeconn

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/protocol"
)

// dispatch handles one complete inbound frame. Failures are logged and
// counted; they never reach the caller or affect the connection.
func (m *Manager) dispatch(f protocol.Frame) {
	_, span := m.tracer.Start(context.Background(), "runtimeconn.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("runtime.kind", f.Kind.String()),
			attribute.Int("runtime.payload_bytes", len(f.Payload)),
		),
	)
	defer span.End()

	m.metrics.framesReceived.WithLabelValues(f.Kind.String()).Inc()

	switch f.Kind {
	case protocol.KindTimeStamps:
		msg, ok := m.decode(span, f)
		if !ok {
			return
		}
		ts := msg.(*payload.TimeStamps)
		now := m.cfg.Now().UnixMilli()
		m.latency = time.Duration(now-int64(ts.DawnTimestamp)) * time.Millisecond / 2
		m.metrics.latency.Observe(m.latency.Seconds())
		m.logger.Info("runtime latency", "latency", m.latency)
		m.emit(Event{Type: EventLatency, Latency: m.latency})

	case protocol.KindDeviceData:
		msg, ok := m.decode(span, f)
		if !ok {
			return
		}
		devices := msg.(*payload.DevData).Devices
		m.logger.Debug("device data", "devices", len(devices))
		m.emit(Event{Type: EventDeviceData, Devices: devices})

	case protocol.KindLog:
		msg, ok := m.decode(span, f)
		if !ok {
			return
		}
		lines := msg.(*payload.Text).Payload
		for _, line := range lines {
			m.logger.Info("runtime log", "line", line)
		}
		m.emit(Event{Type: EventLog, Lines: lines})

	case protocol.KindChallengeData:
		m.logger.Debug("ignoring challenge data", "bytes", len(f.Payload))

	case protocol.KindRunMode, protocol.KindStartPos, protocol.KindInputs:
		m.unsupported(span, f)

	default:
		m.unsupported(span, f)
	}
}

func (m *Manager) decode(span trace.Span, f protocol.Frame) (payload.Message, bool) {
	msg, err := m.codec.Decode(f.Kind, f.Payload)
	if err != nil {
		m.metrics.decodeErrors.WithLabelValues(f.Kind.String()).Inc()
		m.logger.Error("decode failed", "kind", f.Kind, "bytes", len(f.Payload), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, false
	}
	return msg, true
}

func (m *Manager) unsupported(span trace.Span, f protocol.Frame) {
	m.metrics.framesUnsupported.Inc()
	m.logger.Warn("unsupported message kind", "kind", uint8(f.Kind), "bytes", len(f.Payload))
	span.SetAttributes(attribute.Bool("runtime.unsupported", true))
}

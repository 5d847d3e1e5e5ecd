package runtimeconn

import (
	"log/slog"

	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/protocol"
)

// BuildPacket encodes msg under kind and frames it for the wire.
//
// BuildPacket never fails. If the codec rejects msg (unsupported kind or a
// value of the wrong type) the error is logged and the frame is sent with an
// empty payload.
func BuildPacket(codec payload.Codec, msg any, kind protocol.MessageKind, logger *slog.Logger) []byte {
	if logger == nil {
		logger = slog.Default()
	}

	body, err := codec.Encode(kind, msg)
	if err != nil {
		logger.Error("encode payload failed", "kind", kind, "error", err)
		body = nil
	}

	packet, err := protocol.EncodeFrame(kind, body)
	if err != nil {
		logger.Error("frame payload failed", "kind", kind, "size", len(body), "error", err)
		packet = protocol.NewFrame(kind, nil).Encode()
	}
	return packet
}

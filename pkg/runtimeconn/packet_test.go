package runtimeconn

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/vango-dev/runtimelink/pkg/payload"
	"github.com/vango-dev/runtimelink/pkg/protocol"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildPacket(t *testing.T) {
	tests := []struct {
		name string
		kind protocol.MessageKind
		msg  any
		want []byte
	}{
		{
			name: "run_mode",
			kind: protocol.KindRunMode,
			msg:  &payload.RunMode{Mode: payload.ModeTeleop},
			want: []byte{0x00, 0x02, 0x00, 0x08, 0x02},
		},
		{
			name: "start_pos_left_is_empty",
			kind: protocol.KindStartPos,
			msg:  payload.StartPos{Pos: payload.PosLeft},
			want: []byte{0x01, 0x00, 0x00},
		},
		{
			name: "unsupported_kind_sends_empty_payload",
			kind: protocol.KindChallengeData,
			msg:  &payload.RunMode{Mode: payload.ModeAuto},
			want: []byte{0x04, 0x00, 0x00},
		},
		{
			name: "wrong_type_sends_empty_payload",
			kind: protocol.KindInputs,
			msg:  "not inputs",
			want: []byte{0x05, 0x00, 0x00},
		},
		{
			name: "nil_message",
			kind: protocol.KindRunMode,
			msg:  nil,
			want: []byte{0x00, 0x00, 0x00},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildPacket(payload.ProtoCodec{}, tc.msg, tc.kind, discardLogger())
			if !bytes.Equal(got, tc.want) {
				t.Errorf("BuildPacket() = %x, want %x", got, tc.want)
			}
		})
	}
}

func TestBuildPacketParses(t *testing.T) {
	msg := &payload.TimeStamps{DawnTimestamp: 1_700_000_000_123}
	packet := BuildPacket(payload.ProtoCodec{}, msg, protocol.KindTimeStamps, nil)

	frames, rest := protocol.ParseFrames(nil, packet)
	if rest != nil || len(frames) != 1 {
		t.Fatalf("ParseFrames() = %d frames, rest %v", len(frames), rest)
	}
	if frames[0].Kind != protocol.KindTimeStamps {
		t.Errorf("kind = %v", frames[0].Kind)
	}

	decoded, err := payload.ProtoCodec{}.Decode(frames[0].Kind, frames[0].Payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := decoded.(*payload.TimeStamps).DawnTimestamp; got != msg.DawnTimestamp {
		t.Errorf("DawnTimestamp = %d, want %d", got, msg.DawnTimestamp)
	}
}

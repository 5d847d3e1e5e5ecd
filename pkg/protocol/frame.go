package protocol

import (
	"errors"
	"io"
)

// Frame constants.
const (
	// HeaderSize is the size of the frame header in bytes.
	HeaderSize = 3

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535
)

// MessageKind identifies the schema and purpose of a frame's payload.
// The numeric values must match the Runtime.
type MessageKind uint8

const (
	KindRunMode       MessageKind = 0 // Console → Runtime run mode
	KindStartPos      MessageKind = 1 // Console → Runtime starting position
	KindLog           MessageKind = 2 // Runtime → Console log lines
	KindDeviceData    MessageKind = 3 // Runtime → Console sensor data
	KindChallengeData MessageKind = 4 // Reserved for the field-control peer
	KindInputs        MessageKind = 5 // Console → Runtime gamepad/keyboard state
	KindTimeStamps    MessageKind = 6 // Latency check, both directions
)

// String returns the string representation of the message kind.
func (k MessageKind) String() string {
	switch k {
	case KindRunMode:
		return "RunMode"
	case KindStartPos:
		return "StartPos"
	case KindLog:
		return "Log"
	case KindDeviceData:
		return "DeviceData"
	case KindChallengeData:
		return "ChallengeData"
	case KindInputs:
		return "Inputs"
	case KindTimeStamps:
		return "TimeStamps"
	default:
		return "Unknown"
	}
}

// Known reports whether k is one of the kinds defined by the protocol,
// including the reserved challenge-data kind.
func (k MessageKind) Known() bool {
	return k <= KindTimeStamps
}

// Frame errors.
var (
	ErrFrameTooLarge = errors.New("protocol: frame payload too large")
)

// Frame is one complete unit of the Runtime protocol.
//
// Wire format (3 bytes header + variable payload):
//
//	┌─────────────┬───────────────────────────────┐
//	│ Kind        │ Payload Length                │
//	│ (1 byte)    │ (2 bytes, little-endian)      │
//	└─────────────┴───────────────────────────────┘
//	│                                             │
//	│  Payload (Length bytes)                     │
//	│                                             │
//	└─────────────────────────────────────────────┘
type Frame struct {
	Kind    MessageKind
	Length  uint16
	Payload []byte
}

// NewFrame creates a frame for the given kind and payload.
// Payloads longer than MaxPayloadSize are outside the protocol; use
// EncodeFrame when the size is not known to fit.
func NewFrame(kind MessageKind, payload []byte) *Frame {
	return &Frame{
		Kind:    kind,
		Length:  uint16(len(payload)),
		Payload: payload,
	}
}

// Encode encodes the frame to bytes including the header.
// The length field is taken from the payload, not from f.Length.
func (f *Frame) Encode() []byte {
	length := len(f.Payload)
	buf := make([]byte, HeaderSize+length)
	buf[0] = byte(f.Kind)
	buf[1] = byte(length)
	buf[2] = byte(length >> 8)
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// EncodeFrame frames payload under kind, rejecting oversized payloads.
func EncodeFrame(kind MessageKind, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	return NewFrame(kind, payload).Encode(), nil
}

// DecodeHeader decodes a frame header, returning the kind and payload length.
func DecodeHeader(data []byte) (MessageKind, int, error) {
	if len(data) < HeaderSize {
		return 0, 0, io.ErrUnexpectedEOF
	}
	return MessageKind(data[0]), int(data[1]) | int(data[2])<<8, nil
}

// WriteFrame writes a complete frame to an io.Writer.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// ParseFrames reads as many complete frames as possible from leftover
// followed by data. Bytes that do not yet form a complete frame are returned
// as rest and must be passed back as leftover on the next call. When a header
// was read but its payload is incomplete, rest starts with that header.
//
// ParseFrames never fails: a malformed length only causes more bytes to be
// held back. Returned frames and rest never alias leftover or data.
func ParseFrames(leftover, data []byte) (frames []Frame, rest []byte) {
	buf := data
	if len(leftover) > 0 {
		buf = make([]byte, 0, len(leftover)+len(data))
		buf = append(buf, leftover...)
		buf = append(buf, data...)
	}

	pos := 0
	for pos < len(buf) {
		if len(buf)-pos < HeaderSize {
			return frames, cloneBytes(buf[pos:])
		}

		kind, length, _ := DecodeHeader(buf[pos:])
		if len(buf)-pos-HeaderSize < length {
			// Keep the header so the next pass re-derives kind and length.
			return frames, cloneBytes(buf[pos:])
		}

		start := pos + HeaderSize
		frames = append(frames, Frame{
			Kind:    kind,
			Length:  uint16(length),
			Payload: cloneBytes(buf[start : start+length]),
		})
		pos = start + length
	}

	return frames, nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

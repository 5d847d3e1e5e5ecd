package payload

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vango-dev/runtimelink/pkg/protocol"
)

// Codec errors.
var (
	// ErrUnsupportedKind is returned for kinds that have no payload schema.
	ErrUnsupportedKind = errors.New("payload: unsupported message kind")

	// ErrWrongType is returned when the value passed to Encode does not
	// match the schema of the requested kind.
	ErrWrongType = errors.New("payload: value does not match kind")
)

// SchemaError reports bytes that do not decode under a kind's schema.
type SchemaError struct {
	Kind protocol.MessageKind
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("payload: decode %s: %v", e.Kind, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Codec turns typed messages into payload bytes and back.
type Codec interface {
	// Encode serializes v under the schema of kind.
	Encode(kind protocol.MessageKind, v any) ([]byte, error)

	// Decode parses data under the schema of kind.
	Decode(kind protocol.MessageKind, data []byte) (Message, error)
}

// ProtoCodec encodes payloads in the protobuf wire format used by the
// Runtime. The zero value is ready to use.
type ProtoCodec struct{}

var _ Codec = ProtoCodec{}

// Encode implements Codec. v may be a message value or pointer; for
// KindInputs a []Input is also accepted.
func (ProtoCodec) Encode(kind protocol.MessageKind, v any) ([]byte, error) {
	msg, err := asMessage(kind, v)
	if err != nil {
		return nil, err
	}
	return Marshal(msg), nil
}

// Decode implements Codec.
func (ProtoCodec) Decode(kind protocol.MessageKind, data []byte) (Message, error) {
	msg, err := newMessage(kind)
	if err != nil {
		return nil, err
	}
	if err := msg.unmarshal(data); err != nil {
		return nil, &SchemaError{Kind: kind, Err: err}
	}
	return msg, nil
}

// Marshal returns the wire encoding of msg.
func Marshal(msg Message) []byte {
	b := msg.appendTo(nil)
	if b == nil {
		b = []byte{}
	}
	return b
}

// Unmarshal decodes data into msg. Repeated fields are appended to.
func Unmarshal(data []byte, msg Message) error {
	if err := msg.unmarshal(data); err != nil {
		return &SchemaError{Kind: msg.Kind(), Err: err}
	}
	return nil
}

func newMessage(kind protocol.MessageKind) (Message, error) {
	switch kind {
	case protocol.KindRunMode:
		return &RunMode{}, nil
	case protocol.KindStartPos:
		return &StartPos{}, nil
	case protocol.KindLog:
		return &Text{}, nil
	case protocol.KindDeviceData:
		return &DevData{}, nil
	case protocol.KindInputs:
		return &UserInputs{}, nil
	case protocol.KindTimeStamps:
		return &TimeStamps{}, nil
	default:
		return nil, fmt.Errorf("%w: %s (%d)", ErrUnsupportedKind, kind, uint8(kind))
	}
}

func asMessage(kind protocol.MessageKind, v any) (Message, error) {
	var msg Message
	switch t := v.(type) {
	case Message:
		msg = t
	case RunMode:
		msg = &t
	case StartPos:
		msg = &t
	case Text:
		msg = &t
	case DevData:
		msg = &t
	case UserInputs:
		msg = &t
	case TimeStamps:
		msg = &t
	case []Input:
		msg = &UserInputs{Inputs: t}
	default:
		if _, err := newMessage(kind); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %T for %s", ErrWrongType, v, kind)
	}

	if rv := reflect.ValueOf(msg); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, fmt.Errorf("%w: nil %T", ErrWrongType, v)
	}
	if msg.Kind() != kind {
		if _, err := newMessage(kind); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %T for %s", ErrWrongType, v, kind)
	}
	return msg, nil
}

package payload

import (
	"fmt"
	"strings"

	"github.com/vango-dev/runtimelink/pkg/protocol"
)

// Message is a decoded payload of one message kind.
// The set of implementations is closed; see the types in this file.
type Message interface {
	// Kind returns the message kind this payload travels under.
	Kind() protocol.MessageKind

	appendTo(b []byte) []byte
	unmarshal(b []byte) error
}

// =============================================================================
// Run mode
// =============================================================================

// Mode is the robot run mode.
type Mode int32

const (
	ModeIdle      Mode = 0
	ModeAuto      Mode = 1
	ModeTeleop    Mode = 2
	ModeEStop     Mode = 3
	ModeChallenge Mode = 4
)

var modeNames = map[Mode]string{
	ModeIdle:      "idle",
	ModeAuto:      "auto",
	ModeTeleop:    "teleop",
	ModeEStop:     "estop",
	ModeChallenge: "challenge",
}

// String returns the lower-case name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int32(m))
}

// ParseMode parses a mode name as printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("payload: unknown run mode %q", s)
}

// RunMode asks the Runtime to switch run mode.
type RunMode struct {
	Mode Mode `json:"mode"`
}

// Kind implements Message.
func (*RunMode) Kind() protocol.MessageKind { return protocol.KindRunMode }

// =============================================================================
// Start position
// =============================================================================

// Pos is the robot's starting side of the field.
type Pos int32

const (
	PosLeft  Pos = 0
	PosRight Pos = 1
)

// String returns the lower-case name of the position.
func (p Pos) String() string {
	switch p {
	case PosLeft:
		return "left"
	case PosRight:
		return "right"
	default:
		return fmt.Sprintf("pos(%d)", int32(p))
	}
}

// ParsePos parses a position name as printed by Pos.String.
func ParsePos(s string) (Pos, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return PosLeft, nil
	case "right":
		return PosRight, nil
	default:
		return 0, fmt.Errorf("payload: unknown start position %q", s)
	}
}

// StartPos tells the Runtime which side the robot starts on.
type StartPos struct {
	Pos Pos `json:"pos"`
}

// Kind implements Message.
func (*StartPos) Kind() protocol.MessageKind { return protocol.KindStartPos }

// =============================================================================
// Log text
// =============================================================================

// Text carries console log lines printed by student code on the Runtime.
type Text struct {
	Payload []string `json:"payload"`
}

// Kind implements Message.
func (*Text) Kind() protocol.MessageKind { return protocol.KindLog }

// =============================================================================
// Device data
// =============================================================================

// Param is one device parameter. At most one of Float, Int and Bool is set.
type Param struct {
	Name     string   `json:"name"`
	Float    *float32 `json:"fval,omitempty"`
	Int      *int32   `json:"ival,omitempty"`
	Bool     *bool    `json:"bval,omitempty"`
	ReadOnly bool     `json:"readonly,omitempty"`
}

// FloatParam returns a float-valued parameter.
func FloatParam(name string, v float32) Param { return Param{Name: name, Float: &v} }

// IntParam returns an int-valued parameter.
func IntParam(name string, v int32) Param { return Param{Name: name, Int: &v} }

// BoolParam returns a bool-valued parameter.
func BoolParam(name string, v bool) Param { return Param{Name: name, Bool: &v} }

// Value returns the parameter value as float32, int32 or bool, or nil when
// no value is set.
func (p Param) Value() any {
	switch {
	case p.Float != nil:
		return *p.Float
	case p.Int != nil:
		return *p.Int
	case p.Bool != nil:
		return *p.Bool
	default:
		return nil
	}
}

// Device is one connected sensor or actuator and its parameters.
type Device struct {
	Name   string  `json:"name"`
	UID    uint64  `json:"uid"`
	Type   uint32  `json:"type"`
	Params []Param `json:"params,omitempty"`
}

// DevData is a snapshot of all devices attached to the Runtime.
type DevData struct {
	Devices []Device `json:"devices"`
}

// Kind implements Message.
func (*DevData) Kind() protocol.MessageKind { return protocol.KindDeviceData }

// =============================================================================
// User inputs
// =============================================================================

// Source is the kind of physical input device.
type Source int32

const (
	SourceGamepad  Source = 0
	SourceKeyboard Source = 1
)

// String returns the lower-case name of the source.
func (s Source) String() string {
	switch s {
	case SourceGamepad:
		return "gamepad"
	case SourceKeyboard:
		return "keyboard"
	default:
		return fmt.Sprintf("source(%d)", int32(s))
	}
}

// Input is the state of one input device. Buttons is a bitmask.
type Input struct {
	Connected bool      `json:"connected"`
	Buttons   uint64    `json:"buttons"`
	Axes      []float32 `json:"axes,omitempty"`
	Source    Source    `json:"source"`
}

// UserInputs is the state of every input device for one tick.
type UserInputs struct {
	Inputs []Input `json:"inputs"`
}

// Kind implements Message.
func (*UserInputs) Kind() protocol.MessageKind { return protocol.KindInputs }

// =============================================================================
// Time stamps
// =============================================================================

// TimeStamps is the latency probe. The console fills DawnTimestamp
// (milliseconds since the Unix epoch), the Runtime adds RuntimeTimestamp and
// echoes the message back.
type TimeStamps struct {
	DawnTimestamp    uint64 `json:"dawnTimestamp"`
	RuntimeTimestamp uint64 `json:"runtimeTimestamp"`
}

// Kind implements Message.
func (*TimeStamps) Kind() protocol.MessageKind { return protocol.KindTimeStamps }

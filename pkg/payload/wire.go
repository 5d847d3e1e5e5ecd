package payload

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers follow the Runtime's .proto schemas. Scalars equal to their
// zero value are omitted on encode, as proto3 does.

// walkFields calls fn for each field in b. fn returns how many bytes of the
// value it consumed; unknown fields should be skipped with skipField.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) int {
	return protowire.ConsumeFieldValue(num, typ, b)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendFixed64Field(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, v)
}

func appendMessageField(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func consumeVarint(b []byte) (uint64, int) {
	return protowire.ConsumeVarint(b)
}

// enum and int32 values are sign-extended to 64 bits on the wire.
func int32Wire(v int32) uint64 { return uint64(int64(v)) }

// =============================================================================
// RunMode / StartPos
// =============================================================================

func (m *RunMode) appendTo(b []byte) []byte {
	return appendVarintField(b, 1, int32Wire(int32(m.Mode)))
}

func (m *RunMode) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.VarintType {
			x, n := consumeVarint(v)
			m.Mode = Mode(int32(x))
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

func (m *StartPos) appendTo(b []byte) []byte {
	return appendVarintField(b, 1, int32Wire(int32(m.Pos)))
}

func (m *StartPos) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.VarintType {
			x, n := consumeVarint(v)
			m.Pos = Pos(int32(x))
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

// =============================================================================
// Text
// =============================================================================

func (m *Text) appendTo(b []byte) []byte {
	for _, line := range m.Payload {
		// Repeated strings keep empty elements.
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, line)
	}
	return b
}

func (m *Text) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			s, n := protowire.ConsumeString(v)
			if n >= 0 {
				m.Payload = append(m.Payload, s)
			}
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

// =============================================================================
// DevData
// =============================================================================

func (p *Param) appendTo(b []byte) []byte {
	b = appendStringField(b, 1, p.Name)
	// Oneof members are written even when zero.
	switch {
	case p.Float != nil:
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(*p.Float))
	case p.Int != nil:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, int32Wire(*p.Int))
	case p.Bool != nil:
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(*p.Bool))
	}
	if p.ReadOnly {
		b = appendVarintField(b, 5, 1)
	}
	return b
}

func (p *Param) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(v)
			p.Name = s
			return n, nil
		case num == 2 && typ == protowire.Fixed32Type:
			x, n := protowire.ConsumeFixed32(v)
			f := math.Float32frombits(x)
			p.Float, p.Int, p.Bool = &f, nil, nil
			return n, nil
		case num == 3 && typ == protowire.VarintType:
			x, n := consumeVarint(v)
			i := int32(x)
			p.Float, p.Int, p.Bool = nil, &i, nil
			return n, nil
		case num == 4 && typ == protowire.VarintType:
			x, n := consumeVarint(v)
			bv := protowire.DecodeBool(x)
			p.Float, p.Int, p.Bool = nil, nil, &bv
			return n, nil
		case num == 5 && typ == protowire.VarintType:
			x, n := consumeVarint(v)
			p.ReadOnly = protowire.DecodeBool(x)
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

func (d *Device) appendTo(b []byte) []byte {
	b = appendStringField(b, 1, d.Name)
	b = appendVarintField(b, 2, d.UID)
	b = appendVarintField(b, 3, uint64(d.Type))
	for i := range d.Params {
		b = appendMessageField(b, 4, d.Params[i].appendTo(nil))
	}
	return b
}

func (d *Device) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(v)
			d.Name = s
			return n, nil
		case num == 2 && typ == protowire.VarintType:
			x, n := consumeVarint(v)
			d.UID = x
			return n, nil
		case num == 3 && typ == protowire.VarintType:
			x, n := consumeVarint(v)
			d.Type = uint32(x)
			return n, nil
		case num == 4 && typ == protowire.BytesType:
			body, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return n, nil
			}
			var p Param
			if err := p.unmarshal(body); err != nil {
				return 0, err
			}
			d.Params = append(d.Params, p)
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

func (m *DevData) appendTo(b []byte) []byte {
	for i := range m.Devices {
		b = appendMessageField(b, 1, m.Devices[i].appendTo(nil))
	}
	return b
}

func (m *DevData) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return n, nil
			}
			var d Device
			if err := d.unmarshal(body); err != nil {
				return 0, err
			}
			m.Devices = append(m.Devices, d)
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

// =============================================================================
// UserInputs
// =============================================================================

func (in *Input) appendTo(b []byte) []byte {
	if in.Connected {
		b = appendVarintField(b, 1, 1)
	}
	b = appendFixed64Field(b, 2, in.Buttons)
	if len(in.Axes) > 0 {
		// Packed repeated float.
		packed := make([]byte, 0, 4*len(in.Axes))
		for _, a := range in.Axes {
			packed = protowire.AppendFixed32(packed, math.Float32bits(a))
		}
		b = appendMessageField(b, 3, packed)
	}
	b = appendVarintField(b, 4, int32Wire(int32(in.Source)))
	return b
}

func (in *Input) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			x, n := consumeVarint(v)
			in.Connected = protowire.DecodeBool(x)
			return n, nil
		case num == 2 && typ == protowire.Fixed64Type:
			x, n := protowire.ConsumeFixed64(v)
			in.Buttons = x
			return n, nil
		case num == 3 && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return n, nil
			}
			for len(packed) > 0 {
				x, m := protowire.ConsumeFixed32(packed)
				if m < 0 {
					return m, nil
				}
				in.Axes = append(in.Axes, math.Float32frombits(x))
				packed = packed[m:]
			}
			return n, nil
		case num == 3 && typ == protowire.Fixed32Type:
			x, n := protowire.ConsumeFixed32(v)
			in.Axes = append(in.Axes, math.Float32frombits(x))
			return n, nil
		case num == 4 && typ == protowire.VarintType:
			x, n := consumeVarint(v)
			in.Source = Source(int32(x))
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

func (m *UserInputs) appendTo(b []byte) []byte {
	for i := range m.Inputs {
		b = appendMessageField(b, 1, m.Inputs[i].appendTo(nil))
	}
	return b
}

func (m *UserInputs) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			body, n := protowire.ConsumeBytes(v)
			if n < 0 {
				return n, nil
			}
			var in Input
			if err := in.unmarshal(body); err != nil {
				return 0, err
			}
			m.Inputs = append(m.Inputs, in)
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

// =============================================================================
// TimeStamps
// =============================================================================

func (m *TimeStamps) appendTo(b []byte) []byte {
	b = appendFixed64Field(b, 1, m.DawnTimestamp)
	b = appendFixed64Field(b, 2, m.RuntimeTimestamp)
	return b
}

func (m *TimeStamps) unmarshal(b []byte) error {
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			x, n := protowire.ConsumeFixed64(v)
			m.DawnTimestamp = x
			return n, nil
		case num == 2 && typ == protowire.Fixed64Type:
			x, n := protowire.ConsumeFixed64(v)
			m.RuntimeTimestamp = x
			return n, nil
		}
		return skipField(num, typ, v), nil
	})
}

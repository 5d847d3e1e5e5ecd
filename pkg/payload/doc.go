// Package payload encodes and decodes the typed bodies carried inside
// Runtime protocol frames.
//
// Each protocol.MessageKind has one schema. Bodies use the protobuf wire
// format and are mapped field by field with protowire, so unknown fields
// from newer Runtimes are skipped rather than rejected.
//
//	data, err := payload.ProtoCodec{}.Encode(protocol.KindRunMode,
//		payload.RunMode{Mode: payload.ModeTeleop})
//
//	msg, err := payload.ProtoCodec{}.Decode(protocol.KindDeviceData, frame.Payload)
//	if err != nil {
//		var se *payload.SchemaError
//		if errors.As(err, &se) { ... }
//	}
//	devices := msg.(*payload.DevData).Devices
//
// The kind ChallengeData has no schema here; it belongs to the other peer
// role and is reported as ErrUnsupportedKind.
package payload

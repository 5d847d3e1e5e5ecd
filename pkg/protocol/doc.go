// Package protocol implements the binary frame format spoken with the Runtime.
//
// The Runtime is the process on the robot that drives the hardware. A console
// talks to it over a single WebSocket carrying binary messages. Message
// boundaries on the socket are not frame boundaries: one delivery may hold
// several frames, part of a frame, or even part of a header.
//
// # Wire Format
//
// Every frame starts with a 3-byte header:
//
//	┌─────────────┬───────────────────────────────┐
//	│ Kind        │ Payload Length                │
//	│ (1 byte)    │ (2 bytes, little-endian)      │
//	└─────────────┴───────────────────────────────┘
//
// followed by exactly Length payload bytes. Zero-length payloads are valid.
//
// # Message Kinds
//
//   - KindRunMode (0): Console → Runtime
//   - KindStartPos (1): Console → Runtime
//   - KindLog (2): Runtime → Console
//   - KindDeviceData (3): Runtime → Console
//   - KindChallengeData (4): reserved for the field-control peer
//   - KindInputs (5): Console → Runtime
//   - KindTimeStamps (6): both directions
//
// The framing layer does not reject unknown kinds; that is left to dispatch.
//
// # Reassembly
//
// ParseFrames is a pure function taking the leftover of the previous call
// and the new bytes:
//
//	frames, rest := protocol.ParseFrames(leftover, data)
//	leftover = rest
//
// Reassembler wraps the same logic for callers that prefer to hold the
// leftover in a value:
//
//	var r protocol.Reassembler
//	for _, chunk := range chunks {
//	    for _, f := range r.Feed(chunk) {
//	        dispatch(f)
//	    }
//	}
//
// # Role Byte
//
// Right after the socket opens the console sends a single byte, RoleConsole,
// outside the frame format.
package protocol

package protocol

// PeerRole is the single identification byte a peer sends right after the
// WebSocket opens, outside the frame format. The Runtime serves consoles and
// the field-control peer on the same port and tells them apart by this byte.
type PeerRole byte

const (
	// RoleConsole identifies a driver console.
	RoleConsole PeerRole = 1
)

// String returns the string representation of the role.
func (r PeerRole) String() string {
	switch r {
	case RoleConsole:
		return "Console"
	default:
		return "Unknown"
	}
}

// Bytes returns the role as the one-byte message sent on open.
func (r PeerRole) Bytes() []byte {
	return []byte{byte(r)}
}

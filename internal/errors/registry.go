package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Connection Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryConnection,
		Message:  "Invalid Runtime address",
		Detail:   "The address must be a host, host:port, or a ws://, wss://, http:// or https:// URL.",
	},
	"E002": {
		Category: CategoryConnection,
		Message:  "Runtime not connected",
		Detail:   "The message was not sent because no connection to the Runtime is ready.",
	},
	"E003": {
		Category: CategoryConnection,
		Message:  "Timed out waiting for the Runtime",
		Detail:   "No connection to the Runtime became ready before the deadline. Check that the robot is powered on and reachable.",
	},
	"E004": {
		Category: CategoryConnection,
		Message:  "Connection manager shut down",
		Detail:   "The connection manager has stopped and no longer accepts commands.",
	},

	// ============================================
	// Protocol Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryProtocol,
		Message:  "Invalid hex input",
		Detail:   "The input could not be decoded as hexadecimal bytes.",
	},
	"E021": {
		Category: CategoryProtocol,
		Message:  "Payload decode failed",
		Detail:   "The frame payload does not match the schema of its message kind.",
	},
	"E022": {
		Category: CategoryProtocol,
		Message:  "Unsupported message kind",
		Detail:   "The message kind has no payload schema on this side of the link.",
	},

	// ============================================
	// Configuration Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryConfig,
		Message:  "Invalid runtimelink.json",
		Detail:   "The runtimelink.json configuration file is malformed.",
	},
	"E041": {
		Category: CategoryConfig,
		Message:  "runtimelink.json not found",
		Detail:   "No runtimelink.json was found at the given path.",
	},
	"E042": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations are strings such as \"500ms\", \"5s\" or \"1m\".",
	},
	"E043": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration field has a value outside its allowed range.",
	},
	"E044": {
		Category: CategoryConfig,
		Message:  "Failed to write runtimelink.json",
		Detail:   "The configuration could not be written to disk.",
	},

	// ============================================
	// CLI Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryCLI,
		Message:  "Unknown run mode",
		Detail:   "Valid run modes are idle, auto, teleop, estop and challenge.",
	},
	"E061": {
		Category: CategoryCLI,
		Message:  "Unknown start position",
		Detail:   "Valid start positions are left and right.",
	},
	"E062": {
		Category: CategoryCLI,
		Message:  "Status server failed",
		Detail:   "The status HTTP server could not listen on the configured address.",
	},

	// ============================================
	// Record Errors (E080-E099)
	// ============================================

	"E080": {
		Category: CategoryRecord,
		Message:  "Recording upload failed",
		Detail:   "The recording could not be written to its sink. Records stay buffered and are retried on the next flush.",
	},
	"E081": {
		Category: CategoryRecord,
		Message:  "Recording sink misconfigured",
		Detail:   "Recording needs either a bucket or a directory.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

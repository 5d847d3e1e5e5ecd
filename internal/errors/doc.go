// Package errors provides structured, actionable error messages for the
// runtimelink CLI.
//
// A LinkError carries a registered code, a category, a short message and a
// longer explanation. Errors that come from runtimelink.json also carry the
// file location and the surrounding lines, so the user sees exactly which
// field is wrong.
//
// # Error Categories
//
//   - connection: the Runtime could not be reached or is not ready
//   - protocol: frames or payloads that do not decode
//   - config: runtimelink.json problems
//   - cli: bad command-line arguments
//   - record: session recording sinks
//
// # Usage
//
//	err := errors.New("E042").
//	    WithOffset("runtimelink.json", data, offset).
//	    WithSuggestion(`Use a Go duration string such as "5s"`)
//
//	fmt.Print(err.Format())
//	// Output:
//	// ERROR E042: Invalid duration
//	//
//	//   runtimelink.json:4:21
//	//
//	//        2 │   "runtime": {
//	//        3 │     "address": "192.168.0.10",
//	//   →    4 │     "pollInterval": "five",
//	//          │                     ^
//	//        5 │     "writeTimeout": "5s"
//	//        6 │   },
//	//
//	//   Durations are strings such as "500ms", "5s" or "1m".
//	//
//	//   Hint: Use a Go duration string such as "5s"
package errors

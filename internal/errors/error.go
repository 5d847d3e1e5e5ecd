package errors

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryConnection Category = "connection"
	CategoryProtocol   Category = "protocol"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
	CategoryRecord     Category = "record"
)

// Location points into a file, usually runtimelink.json.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// LinkError is a structured error with a code, a location and a hint.
type LinkError struct {
	// Code is a unique error identifier (e.g., "E040").
	Code string

	// Category is the error type (connection, config, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is where the error occurred, if it came from a file.
	Location *Location

	// Context contains the lines of the file around Location.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows a correct value or command.
	Example string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *LinkError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file location and reads the surrounding lines.
func (e *LinkError) WithLocation(file string, line, column int) *LinkError {
	e.Location = &Location{File: file, Line: line, Column: column}
	if line > 0 {
		e.Context = readContextLines(file, line, contextRadius)
	}
	return e
}

// WithOffset sets the location from a byte offset into data, as reported by
// encoding/json syntax and type errors.
func (e *LinkError) WithOffset(file string, data []byte, offset int64) *LinkError {
	if offset < 0 || offset > int64(len(data)) {
		return e.WithLocation(file, 0, 0)
	}
	prefix := data[:offset]
	line := bytes.Count(prefix, []byte("\n")) + 1
	col := int(offset) - bytes.LastIndexByte(prefix, '\n')
	return e.WithLocation(file, line, col)
}

// WithSuggestion adds a fix suggestion to the error.
func (e *LinkError) WithSuggestion(s string) *LinkError {
	e.Suggestion = s
	return e
}

// WithExample adds an example to the error.
func (e *LinkError) WithExample(ex string) *LinkError {
	e.Example = ex
	return e
}

// WithDetail replaces the detailed explanation.
func (e *LinkError) WithDetail(d string) *LinkError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *LinkError) Wrap(err error) *LinkError {
	e.Wrapped = err
	return e
}

// contextRadius is how many lines on each side of Location are shown.
const contextRadius = 2

func readContextLines(filename string, targetLine, radius int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - radius
	endLine := targetLine + radius

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a LinkError from a registered error code.
func New(code string) *LinkError {
	template, ok := registry[code]
	if !ok {
		return &LinkError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &LinkError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a LinkError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *LinkError {
	return &LinkError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in a LinkError with code, unless err already
// carries one.
func FromError(err error, code string) *LinkError {
	if err == nil {
		return nil
	}
	var le *LinkError
	if errors.As(err, &le) {
		return le
	}
	return New(code).Wrap(err)
}

// internal/model/errors.go
package model

import (
	"errors"
	"fmt"
)

var (
	// ErrShortRead is returned when a single byte read yields nothing
	ErrShortRead = errors.New("short read")

	// ErrReadTimeout is returned when a read timeout is configured and expires
	ErrReadTimeout = errors.New("read timed out")
)

// UsageError indicates bad or missing command line arguments
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// IOError indicates a failure opening, reading or writing a device or file
type IOError struct {
	Device string
	Op     string
	Err    error
}

func (e *IOError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Device, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Device, e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ProtocolError indicates the device answered something other than expected.
// Command is empty for handshake and commit failures.
type ProtocolError struct {
	Message  string
	Command  string
	Response string
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Command != "":
		return fmt.Sprintf("%s: %s: %q", e.Message, e.Command, e.Response)
	case e.Response != "":
		return fmt.Sprintf("%s: %q", e.Message, e.Response)
	default:
		return e.Message
	}
}

// IsUsageError reports whether err is or wraps a UsageError
func IsUsageError(err error) bool {
	var usageErr *UsageError
	return errors.As(err, &usageErr)
}

package parser

import "errors"

var (
	// ErrShortLine is returned when a line has fewer than the minimum
	// field count.
	ErrShortLine = errors.New("parser: too few fields")

	// ErrInvalidTimestamp is returned when the timestamp prefix cannot
	// be parsed under either supported layout.
	ErrInvalidTimestamp = errors.New("parser: invalid timestamp format")

	// ErrNoEventToken is returned when the line carries no event token
	// after the timestamp prefix.
	ErrNoEventToken = errors.New("parser: missing event token")
)

// Package parser turns raw combat-log lines into typed events.
//
// The line grammar is a timestamp prefix followed by a comma-delimited
// field list:
//
//	<M>/<D>/<Y> <HH:MM:SS>[.<fff>][-<tz>]  <EVENT>,<field_1>,<field_2>,...
//
// Parsing is byte-level to keep the scan pass allocation-light; payload
// fields are only materialized once a line is known to matter.
package parser

import (
	"bytes"
	"time"

	"github.com/Phlares/arenaflow/internal/model"
)

// Conventional payload positions for identity fields. Position 0 is
// the source GUID, 1 the source name, 4 the destination GUID, 5 the
// destination name.
const (
	fieldSourceName = 1
	fieldDestName   = 5
)

// minFields is the minimum comma-delimited field count (timestamp
// head included) for a line to be usable.
const minFields = 3

// Tokenizer parses combat-log lines.
type Tokenizer struct{}

// NewTokenizer creates a tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// LineTimestamp parses only the timestamp prefix of a line. It is the
// fast path for window filtering: no payload fields are touched.
func LineTimestamp(line []byte) (time.Time, bool) {
	head, _, found := splitHead(trimLineEnding(line))
	if !found {
		return time.Time{}, false
	}
	tsBytes, _, ok := splitEventToken(head)
	if !ok {
		return time.Time{}, false
	}
	return ParseTimestamp(tsBytes)
}

// Tokenize parses one full line into an Event. Failures are
// line-level and recoverable; the caller skips the line.
func (t *Tokenizer) Tokenize(line []byte) (*model.Event, error) {
	line = trimLineEnding(line)

	head, rest, found := splitHead(line)
	if !found {
		return nil, ErrShortLine
	}

	tsBytes, eventTok, ok := splitEventToken(head)
	if !ok {
		return nil, ErrNoEventToken
	}

	stamp, ok := ParseTimestamp(tsBytes)
	if !ok {
		return nil, ErrInvalidTimestamp
	}

	fields := scanFields(rest)
	// Head counts as a field in the minimum-count rule.
	if len(fields)+1 < minFields {
		return nil, ErrShortLine
	}

	ev := &model.Event{
		Timestamp: stamp,
		Kind:      model.ParseEventKind(string(eventTok)),
		Fields:    fields,
	}
	if len(fields) > fieldSourceName {
		ev.ActorID = fields[fieldSourceName]
	}
	if len(fields) > fieldDestName {
		ev.TargetID = fields[fieldDestName]
	}
	return ev, nil
}

// splitHead splits a line at the first comma into the timestamp+event
// head and the payload remainder.
func splitHead(line []byte) (head, rest []byte, found bool) {
	idx := bytes.IndexByte(line, ',')
	if idx < 0 {
		return nil, nil, false
	}
	return line[:idx], line[idx+1:], true
}

// splitEventToken splits the head into timestamp bytes and the event
// token (the last whitespace-separated token).
func splitEventToken(head []byte) (tsBytes, event []byte, ok bool) {
	idx := bytes.LastIndexByte(head, ' ')
	if idx < 0 {
		return nil, nil, false
	}
	event = head[idx+1:]
	tsBytes = bytes.TrimRight(head[:idx], " ")
	if len(event) == 0 || len(tsBytes) == 0 {
		return nil, nil, false
	}
	return tsBytes, event, true
}

// scanFields splits the payload on commas, honoring quoted fields and
// stripping surrounding quotes.
func scanFields(rest []byte) []string {
	fields := make([]string, 0, 16)
	start := 0
	inQuotes := false

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if c == '"' {
			inQuotes = !inQuotes
		} else if c == ',' && !inQuotes {
			fields = append(fields, unquote(rest[start:i]))
			start = i + 1
		}
	}
	fields = append(fields, unquote(rest[start:]))
	return fields
}

// unquote strips one pair of surrounding double quotes.
func unquote(field []byte) string {
	if len(field) >= 2 && field[0] == '"' && field[len(field)-1] == '"' {
		field = field[1 : len(field)-1]
	}
	return string(field)
}

// trimLineEnding removes trailing \n and \r characters.
func trimLineEnding(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

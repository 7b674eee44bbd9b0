// Package storage locates and opens combat logs for resolution.
// Logs live either in a local directory or in an S3 bucket; both
// stores resolve a metadata record to the log most likely to contain
// it by the timestamp stamped into the log filename.
package storage

import (
	"context"
	"io"
	"regexp"
	"time"
)

// LogStore finds the combat log covering a metadata record's declared
// start time.
type LogStore interface {
	// Find returns a handle for the log most likely to contain a
	// session starting at start, or an error when none qualifies.
	Find(ctx context.Context, start time.Time) (*LogHandle, error)
}

// LogHandle is repeatable read access to one located combat log. It
// satisfies the resolver's log source contract.
type LogHandle struct {
	path  string
	start time.Time
	open  func(ctx context.Context) (io.ReadCloser, error)
}

// Path identifies the log for error reporting.
func (h *LogHandle) Path() string { return h.path }

// Start is the log's own start time, from its filename stamp.
func (h *LogHandle) Start() time.Time { return h.start }

// Open returns a fresh reader positioned at the start of the log.
func (h *LogHandle) Open(ctx context.Context) (io.ReadCloser, error) {
	return h.open(ctx)
}

// stampRe matches the MMDDYY_HHMMSS stamp logging clients put in log
// filenames.
var stampRe = regexp.MustCompile(`(\d{6})_(\d{6})`)

// parseStamp extracts the log start time from a log filename.
func parseStamp(name string) (time.Time, bool) {
	m := stampRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	d, t := m[1], m[2]
	month := int(d[0]-'0')*10 + int(d[1]-'0')
	day := int(d[2]-'0')*10 + int(d[3]-'0')
	year := 2000 + int(d[4]-'0')*10 + int(d[5]-'0')
	hour := int(t[0]-'0')*10 + int(t[1]-'0')
	min := int(t[2]-'0')*10 + int(t[3]-'0')
	sec := int(t[4]-'0')*10 + int(t[5]-'0')
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || min > 59 || sec > 59 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC), true
}

// Tolerance for a record that starts just before its log does (clock
// skew between the recorder and the logging client).
const maxStartSkew = 10 * time.Minute

// bestCandidate picks the log whose stamp is closest to start, among
// logs stamped within a day and not starting more than maxStartSkew
// after the record.
func bestCandidate(names []string, starts []time.Time, start time.Time) int {
	best := -1
	var bestDiff time.Duration
	for i := range names {
		logStart := starts[i]
		dayDiff := start.Sub(logStart)
		if dayDiff < 0 {
			dayDiff = -dayDiff
		}
		if dayDiff > 48*time.Hour {
			continue
		}
		diff := start.Sub(logStart)
		if diff < 0 && -diff > maxStartSkew {
			continue
		}
		if diff < 0 {
			diff = -diff
		}
		if best < 0 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

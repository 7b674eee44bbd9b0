// Package model defines core data structures for ArenaFlow.
package model

import "time"

// EventKind is the closed set of combat-log event categories the
// resolver cares about. Everything else lands in KindOther and is
// ignored downstream.
type EventKind uint8

const (
	KindOther EventKind = iota
	KindSessionStart
	KindSessionEnd
	KindCastSuccess
	KindInterrupt
	KindDispel
	KindAuraApplied
	KindActorEliminated
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case KindSessionStart:
		return "session_start"
	case KindSessionEnd:
		return "session_end"
	case KindCastSuccess:
		return "cast_success"
	case KindInterrupt:
		return "interrupt"
	case KindDispel:
		return "dispel"
	case KindAuraApplied:
		return "aura_applied"
	case KindActorEliminated:
		return "actor_eliminated"
	default:
		return "other"
	}
}

// ParseEventKind maps a raw combat-log event token to its kind.
func ParseEventKind(s string) EventKind {
	switch s {
	case "ARENA_MATCH_START":
		return KindSessionStart
	case "ARENA_MATCH_END":
		return KindSessionEnd
	case "SPELL_CAST_SUCCESS":
		return KindCastSuccess
	case "SPELL_INTERRUPT":
		return KindInterrupt
	case "SPELL_DISPEL":
		return KindDispel
	case "SPELL_AURA_APPLIED":
		return KindAuraApplied
	case "UNIT_DIED":
		return KindActorEliminated
	default:
		return KindOther
	}
}

// Event is a single parsed combat-log line. Immutable once parsed.
//
// Fields holds the comma-delimited payload after the event token, in
// file order, with surrounding quotes stripped. ActorID and TargetID
// are convenience views of the conventional source/destination field
// positions; either may be empty for events that carry fewer fields.
type Event struct {
	// Timestamp of the event.
	Timestamp time.Time

	// Kind classifies the event.
	Kind EventKind

	// ActorID is the source identity field (payload position 1),
	// unquoted but otherwise raw.
	ActorID string

	// TargetID is the destination identity field (payload position 5).
	TargetID string

	// Fields is the full ordered payload field list.
	Fields []string
}

// SessionType distinguishes the two session-boundary modes.
type SessionType uint8

const (
	// SessionStandard sessions carry an explicit end marker.
	SessionStandard SessionType = iota

	// SessionContinuous sessions span multiple rounds and have no
	// reliable end marker (Solo Shuffle brackets).
	SessionContinuous
)

// MarkerKind tells whether a SessionMarker opens or closes a session.
type MarkerKind uint8

const (
	MarkerStart MarkerKind = iota
	MarkerEnd
)

// SessionMarker is a session boundary event with its declared
// attributes. Only start markers carry attributes; end markers have
// zero values for everything but Marker and Timestamp.
type SessionMarker struct {
	Event

	// Marker is start or end.
	Marker MarkerKind

	// Type is the declared session mode, derived from Category.
	Type SessionType

	// ZoneID is the declared numeric location id (0 when absent).
	ZoneID int

	// Location is the resolved location name for ZoneID.
	Location string

	// Category is the declared bracket label, e.g. "2v2", "Rated Solo Shuffle".
	Category string
}

// GroundTruthEvent is one entry of the independent elimination list
// supplied with a metadata record. Offset is relative to the start of
// the candidate session being scored, not the record's declared start.
type GroundTruthEvent struct {
	ActorID string        `json:"actor_id"`
	Offset  time.Duration `json:"offset"`
}

// MetadataRecord is the external description of one match, read-only.
type MetadataRecord struct {
	// Filename is the record's identity in the index.
	Filename string

	// DeclaredStart is the approximate start time.
	DeclaredStart time.Time

	// DeclaredDuration is the expected session length.
	DeclaredDuration time.Duration

	// Category is the declared bracket label.
	Category string

	// Location is the declared arena name.
	Location string

	// ZoneID is an authoritative numeric location id from a
	// higher-trust side channel; 0 when unavailable.
	ZoneID int

	// PrimaryActor is the actor whose counters are extracted.
	PrimaryActor string

	// Reliability grades the trust in DeclaredStart: "high", "medium"
	// or "low". Controls the scan window padding.
	Reliability string

	// GroundTruth is the trusted elimination list used for
	// cross-source disambiguation. May be empty.
	GroundTruth []GroundTruthEvent
}

// ContinuousCategory reports whether a declared bracket label names a
// multi-round session mode without end markers.
func ContinuousCategory(category string) bool {
	return category == "Solo Shuffle" || category == "Rated Solo Shuffle"
}

// Interval is a resolved closed time interval of the log.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the closed interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Candidate is one possible session interval for a metadata record.
// Built fresh per resolution request, never persisted.
type Candidate struct {
	Start *SessionMarker

	// End is nil for open-ended candidates (no end marker before the
	// next start, or continuous sessions).
	End *SessionMarker

	// Scores filled in by the scorer and disambiguator.
	AttributeScore   float64
	ProximityScore   float64
	DurationScore    float64
	ZoneIDScore      float64
	CrossSourceScore float64
	Composite        float64
}

// Open reports whether the candidate lacks an explicit end marker.
func (c *Candidate) Open() bool {
	return c.End == nil
}

// Duration returns the marker-to-marker duration, or 0 when open.
func (c *Candidate) Duration() time.Duration {
	if c.End == nil {
		return 0
	}
	return c.End.Timestamp.Sub(c.Start.Timestamp)
}

package resolve

import (
	"math"
	"testing"
	"time"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/config"
)

func testRecord(start time.Time) *model.MetadataRecord {
	return &model.MetadataRecord{
		Filename:      "2025-05-08_21-00-00_-_Kaelys_-_3v3_Nagrand_(Win).mp4",
		DeclaredStart: start,
		Category:      "3v3",
		Location:      "Nagrand",
		PrimaryActor:  "Kaelys",
	}
}

func testCandidate(start, end time.Time, zoneID int, category string) *model.Candidate {
	s := marker(model.MarkerStart, start)
	s.ZoneID = zoneID
	s.Location = LocationName(zoneID)
	s.Category = category
	c := &model.Candidate{Start: s}
	if !end.IsZero() {
		c.End = marker(model.MarkerEnd, end)
	}
	return c
}

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestScorer_ExactMatch(t *testing.T) {
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)
	s := NewScorer(config.Default().Resolver)

	c := testCandidate(base, base.Add(5*time.Minute), 1505, "3v3")
	if !s.Score(c, testRecord(base)) {
		t.Fatal("exact candidate excluded")
	}

	if !approx(c.AttributeScore, 0.4) {
		t.Errorf("AttributeScore = %v, want 0.4", c.AttributeScore)
	}
	if !approx(c.ProximityScore, 0.3) {
		t.Errorf("ProximityScore = %v, want 0.3", c.ProximityScore)
	}
	if !approx(c.DurationScore, 0.1) {
		t.Errorf("DurationScore = %v, want 0.1", c.DurationScore)
	}
	if !approx(c.Composite, 0.8) {
		t.Errorf("Composite = %v, want 0.8", c.Composite)
	}
}

func TestScorer_PartialAttribute(t *testing.T) {
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)
	s := NewScorer(config.Default().Resolver)

	// Category agrees, arena name does not.
	c := testCandidate(base, base.Add(5*time.Minute), 2167, "3v3")
	if !s.Score(c, testRecord(base)) {
		t.Fatal("candidate excluded")
	}
	if !approx(c.AttributeScore, 0.3) {
		t.Errorf("AttributeScore = %v, want 0.3 (partial credit)", c.AttributeScore)
	}

	// Category disagrees: no attribute credit at all.
	c2 := testCandidate(base, base.Add(5*time.Minute), 1505, "2v2")
	s.Score(c2, testRecord(base))
	if c2.AttributeScore != 0 {
		t.Errorf("AttributeScore = %v, want 0 on category mismatch", c2.AttributeScore)
	}
}

func TestScorer_ZoneIDSupersedesNames(t *testing.T) {
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)
	s := NewScorer(config.Default().Resolver)

	rec := testRecord(base)
	rec.ZoneID = 1505
	rec.Location = "Totally Wrong Arena"

	c := testCandidate(base, base.Add(5*time.Minute), 1505, "3v3")
	if !s.Score(c, rec) {
		t.Fatal("candidate excluded")
	}
	if !approx(c.ZoneIDScore, 0.5) {
		t.Errorf("ZoneIDScore = %v, want 0.5", c.ZoneIDScore)
	}
	if c.AttributeScore != 0 {
		t.Errorf("AttributeScore = %v, want 0 when zone id is authoritative", c.AttributeScore)
	}
	if !approx(c.Composite, 0.9) {
		t.Errorf("Composite = %v, want 0.9", c.Composite)
	}

	rec.ZoneID = 2167
	c2 := testCandidate(base, base.Add(5*time.Minute), 1505, "3v3")
	s.Score(c2, rec)
	if c2.ZoneIDScore != 0 || c2.AttributeScore != 0 {
		t.Error("zone id mismatch should leave both location scores at zero")
	}
}

func TestScorer_ProximityDecay(t *testing.T) {
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)
	s := NewScorer(config.Default().Resolver)

	tests := []struct {
		offset   time.Duration
		expected float64
	}{
		{0, 0.3},
		{5 * time.Minute, 0.15},
		{-5 * time.Minute, 0.15},
		{10 * time.Minute, 0.0},
	}

	for _, tt := range tests {
		c := testCandidate(base.Add(tt.offset), base.Add(tt.offset).Add(5*time.Minute), 1505, "3v3")
		if !s.Score(c, testRecord(base)) {
			t.Fatalf("offset %v excluded", tt.offset)
		}
		if !approx(c.ProximityScore, tt.expected) {
			t.Errorf("offset %v: ProximityScore = %v, want %v", tt.offset, c.ProximityScore, tt.expected)
		}
	}
}

func TestScorer_ExcludesBeyondMaxOffset(t *testing.T) {
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)
	s := NewScorer(config.Default().Resolver)

	c := testCandidate(base.Add(10*time.Minute+time.Second), time.Time{}, 1505, "3v3")
	if s.Score(c, testRecord(base)) {
		t.Error("candidate beyond max start offset not excluded")
	}
}

func TestScorer_DurationBonus(t *testing.T) {
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)
	s := NewScorer(config.Default().Resolver)

	tests := []struct {
		length   time.Duration
		expected float64
	}{
		{5 * time.Minute, 0.1},
		{30 * time.Second, 0.1},
		{15 * time.Minute, 0.1},
		{10 * time.Second, 0.0},
		{20 * time.Minute, 0.0},
	}

	for _, tt := range tests {
		c := testCandidate(base, base.Add(tt.length), 1505, "3v3")
		s.Score(c, testRecord(base))
		if !approx(c.DurationScore, tt.expected) {
			t.Errorf("length %v: DurationScore = %v, want %v", tt.length, c.DurationScore, tt.expected)
		}
	}

	// Open candidates get no bonus.
	open := testCandidate(base, time.Time{}, 1505, "3v3")
	s.Score(open, testRecord(base))
	if open.DurationScore != 0 {
		t.Errorf("open candidate DurationScore = %v, want 0", open.DurationScore)
	}
}

func TestDurationAgreement(t *testing.T) {
	base := time.Date(2025, 5, 8, 21, 0, 0, 0, time.UTC)
	rec := testRecord(base)
	rec.DeclaredDuration = 3 * time.Minute

	tests := []struct {
		name     string
		length   time.Duration
		expected float64
	}{
		{"exact", 3 * time.Minute, 1.0},
		{"30s off", 3*time.Minute + 30*time.Second, 0.5},
		{"minute off", 4 * time.Minute, 0.0},
		{"way off", 10 * time.Minute, 0.0},
	}

	for _, tt := range tests {
		c := testCandidate(base, base.Add(tt.length), 1505, "3v3")
		got := durationAgreement(c, rec)
		if !approx(got, tt.expected) {
			t.Errorf("%s: durationAgreement = %v, want %v", tt.name, got, tt.expected)
		}
	}

	open := testCandidate(base, time.Time{}, 1505, "3v3")
	if got := durationAgreement(open, rec); got != -1 {
		t.Errorf("open candidate durationAgreement = %v, want -1", got)
	}

	noDur := testRecord(base)
	c := testCandidate(base, base.Add(3*time.Minute), 1505, "3v3")
	if got := durationAgreement(c, noDur); got != -1 {
		t.Errorf("no declared duration durationAgreement = %v, want -1", got)
	}
}

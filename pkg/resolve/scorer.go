package resolve

import (
	"time"

	"github.com/Phlares/arenaflow/internal/model"
	"github.com/Phlares/arenaflow/pkg/config"
)

// Plausible single-session duration bounds for the sanity bonus.
const (
	minPlausibleDuration = 30 * time.Second
	maxPlausibleDuration = 15 * time.Minute
)

// partialAttributeCredit is awarded for a category-only match when the
// declared location cannot be confirmed.
const partialAttributeCredit = 0.75

// Scorer computes composite match scores for candidates.
type Scorer struct {
	cfg config.ResolverConfig
}

// NewScorer creates a scorer with the given weights.
func NewScorer(cfg config.ResolverConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score fills in the candidate's component and composite scores
// against the record. It returns false when the candidate is excluded
// outright (start offset beyond the configured maximum).
func (s *Scorer) Score(c *model.Candidate, rec *model.MetadataRecord) bool {
	offset := c.Start.Timestamp.Sub(rec.DeclaredStart)
	if offset < 0 {
		offset = -offset
	}
	if offset > s.cfg.MaxStartOffset {
		return false
	}
	c.ProximityScore = s.cfg.ProximityWeight * (1 - float64(offset)/float64(s.cfg.MaxStartOffset))

	catOK := CategoryCompatible(rec.Category, c.Start.Category)
	if rec.ZoneID != 0 {
		// Authoritative id from the side channel beats fuzzy name
		// matching; the name-based attribute score is not computed.
		if rec.ZoneID == c.Start.ZoneID {
			c.ZoneIDScore = s.cfg.ZoneIDWeight
		}
	} else {
		switch {
		case catOK && LocationMatches(rec.Location, c.Start.Location):
			c.AttributeScore = s.cfg.AttributeWeight
		case catOK:
			c.AttributeScore = s.cfg.AttributeWeight * partialAttributeCredit
		}
	}

	if d := c.Duration(); d >= minPlausibleDuration && d <= maxPlausibleDuration {
		c.DurationScore = s.cfg.DurationWeight
	}

	c.Composite = c.AttributeScore + c.ZoneIDScore + c.ProximityScore + c.DurationScore
	if c.Composite > 1.0 {
		c.Composite = 1.0
	}
	return true
}

// durationAgreement normalizes how well a candidate's duration agrees
// with the record's declared duration, 1.0 at exact agreement falling
// linearly to 0.0 at a minute of divergence. Open candidates and
// records without a declared duration return -1 (no signal).
func durationAgreement(c *model.Candidate, rec *model.MetadataRecord) float64 {
	if c.Open() || rec.DeclaredDuration <= 0 {
		return -1
	}
	diff := c.Duration() - rec.DeclaredDuration
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Minute {
		return 0
	}
	return 1 - float64(diff)/float64(time.Minute)
}

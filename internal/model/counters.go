package model

// FeatureCounters is the per-match output of the feature extractor.
// Created empty per (record, interval) pair; every counter only ever
// increments; returned by value once the interval has been scanned.
type FeatureCounters struct {
	// CastSuccess counts successful casts by the primary actor.
	CastSuccess int

	// InterruptsDone counts interrupts landed by the primary actor or
	// its owned sub-agent.
	InterruptsDone int

	// TimesInterrupted counts interrupts suffered by the primary actor
	// or its owned sub-agent.
	TimesInterrupted int

	// BuffGainedSelf / BuffGainedOpponent count applications of the
	// tracked aura to the primary actor vs anyone else.
	BuffGainedSelf     int
	BuffGainedOpponent int

	// Purges counts recognized dispels performed by the primary
	// actor's owned sub-agent.
	Purges int

	// TimesDied counts eliminations of the primary actor.
	TimesDied int

	// Carried for output-schema compatibility with the historical
	// feature table; not populated by this extractor.
	DamageDone   int
	HealingDone  int
	DeathsCaused int

	// SpellsCast is the ordered list of cast names, one per
	// CastSuccess increment.
	SpellsCast []string

	// SpellsPurged is the ordered list of dispelled effect names, one
	// per Purges increment.
	SpellsPurged []string
}

// NewFeatureCounters returns empty counters with the spell lists
// allocated, so output serialization always sees non-nil slices.
func NewFeatureCounters() *FeatureCounters {
	return &FeatureCounters{
		SpellsCast:   []string{},
		SpellsPurged: []string{},
	}
}

// FeatureRow pairs counters with their record identity and resolved
// interval for sink output.
type FeatureRow struct {
	Filename string
	Interval Interval
	Counters FeatureCounters
}

package types

import "time"

// WorkUnit is the atomic piece of text processed by the ingest pipeline:
// one chunk or conversation produced by the upstream extraction pipeline.
type WorkUnit struct {
	ID           string         `json:"id"`
	Text         string         `json:"text"`
	ContentKind  string         `json:"content_kind,omitempty"`  // e.g. "transcript", "article"
	SourceBucket string         `json:"source_bucket,omitempty"` // corpus bucket, e.g. "primary"
	Tier         ExtractionTier `json:"tier,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Snippet returns the unit text bounded to the stored snippet length, for
// use as mention and relation evidence context.
func (u *WorkUnit) Snippet() string {
	return BoundSnippet(u.Text)
}

// UnitState tracks a work unit through the ingest state machine. Within a
// unit, states advance strictly in order; SKIPPED and FAILED are terminal
// side branches.
type UnitState string

const (
	UnitPending        UnitState = "PENDING"
	UnitQualityChecked UnitState = "QUALITY_CHECKED"
	UnitExtracted      UnitState = "EXTRACTED"
	UnitResolved       UnitState = "RESOLVED"
	UnitPersisted      UnitState = "PERSISTED"
	UnitDone           UnitState = "DONE"
	UnitSkipped        UnitState = "SKIPPED"
	UnitFailed         UnitState = "FAILED"
)

// SkipReason explains why a unit was skipped without extraction.
type SkipReason string

const (
	SkipAlreadyIndexed SkipReason = "already indexed"
	SkipKnownBad       SkipReason = "known bad unit"
	SkipLowQuality     SkipReason = "rejected by quality gate"
)

// UnitResult is the completion event a worker emits for each finished unit.
// Results flow over a single channel into the aggregator goroutine; workers
// never touch shared counters directly.
type UnitResult struct {
	UnitID             string
	State              UnitState
	SkipReason         SkipReason
	Err                error
	EntitiesCreated    int
	EntitiesDedup      int
	CandidatesRejected int
	RelationsCreated   int
	MentionsCreated    int
	QualityScore       float64
}

// IngestReport summarizes a completed or gracefully stopped run.
type IngestReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	UnitsTotal     int `json:"units_total"`
	UnitsProcessed int `json:"units_processed"`
	UnitsSkipped   int `json:"units_skipped"`
	UnitsFailed    int `json:"units_failed"`
	UnitsNotTried  int `json:"units_not_attempted"`

	EntitiesCreated    int `json:"entities_created"`
	EntitiesDedup      int `json:"entities_deduplicated"`
	CandidatesRejected int `json:"candidates_rejected"`
	RelationsCreated   int `json:"relations_created"`
	MentionsCreated    int `json:"mentions_created"`

	// StoppedEarly is set when a permanent service error halted dispatch.
	// The run is safely resumable: already-indexed units are skipped on the
	// next invocation.
	StoppedEarly bool   `json:"stopped_early"`
	StopCause    string `json:"stop_cause,omitempty"`
}

// Resumable reports whether re-running the same corpus will make progress
// without redoing completed work.
func (r *IngestReport) Resumable() bool {
	return r.StoppedEarly
}

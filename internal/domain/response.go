package domain

import "time"

// SearchResponse is the single output contract of the pipeline.
// Callers always receive a well-formed response, even on degraded runs;
// they distinguish "no matches" from "degraded execution" via Metadata.
type SearchResponse struct {
	Candidates []FusedCandidate
	Metadata   ResponseMetadata
}

// ResponseMetadata describes how the pipeline actually executed.
type ResponseMetadata struct {
	RequestID string
	// ExecutionPath lists visited states in order, including
	// degraded-<stage> sub-states.
	ExecutionPath  []string
	TimingsByStage map[string]time.Duration
	// DegradedStages lists stages (and unavailable spaces) that advanced
	// on fallback or partial data.
	DegradedStages   []string
	EntityStatistics []EntityStatistic
	Intent           IntentClassification
	Strategy         ProcessingStrategy
	// Partial is set when the caller deadline expired mid-search and
	// fusion ran on whatever space results had completed.
	Partial bool
}

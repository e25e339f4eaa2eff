package model

// ReviewItem surfaces a needs-review mention for an external decision. Key is
// the resumption reference accepted by the orchestrator's Resume entry point.
type ReviewItem struct {
	Key        string           `json:"key"`
	Mention    Mention          `json:"mention"`
	Candidates []CandidateMatch `json:"candidates"`
}

// PipelineResult is the full outcome of one pipeline run. A run yields either
// a PipelineResult (possibly carrying needs-review items and warnings) or a
// single explicit failure; never a silently incomplete plan.
type PipelineResult struct {
	RunID       string         `json:"run_id"`
	Resolved    []EntityRecord `json:"resolved_entities"`
	NeedsReview []ReviewItem   `json:"needs_review,omitempty"`
	Plan        []ActionItem   `json:"action_plan"`
	Warnings    []string       `json:"warnings,omitempty"`
	Partial     bool           `json:"partial,omitempty"`
}

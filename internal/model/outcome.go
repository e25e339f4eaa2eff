package model

// OutcomeStatus is the terminal disambiguation state of a mention.
type OutcomeStatus string

const (
	// OutcomeResolved means the top candidate cleared the threshold and
	// margin and was auto-selected.
	OutcomeResolved OutcomeStatus = "resolved"
	// OutcomeNeedsReview means at least one plausible candidate exists but
	// auto-selection is unsafe; an external decision is required.
	OutcomeNeedsReview OutcomeStatus = "needs_review"
	// OutcomeUnresolved means no candidate reached the minimum floor; the
	// mention is a candidate for new-record creation downstream.
	OutcomeUnresolved OutcomeStatus = "unresolved"
)

// ResolutionOutcome is the disambiguation gate's verdict for one mention.
// Exactly one outcome exists per mention. Candidates are ranked descending
// by score with ties broken ascending by record ID.
type ResolutionOutcome struct {
	Key        string           `json:"key"`
	Mention    Mention          `json:"mention"`
	Status     OutcomeStatus    `json:"status"`
	Chosen     *EntityRecord    `json:"chosen,omitempty"`
	Candidates []CandidateMatch `json:"candidates,omitempty"`
}

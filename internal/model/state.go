package model

import "time"

// PhaseStatus is the terminal state of one pipeline phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusDegraded PhaseStatus = "degraded"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// PhaseTrace records one phase execution for observability and replay.
type PhaseTrace struct {
	Name     string      `json:"name"`
	Status   PhaseStatus `json:"status"`
	Duration int64       `json:"duration_ms"`
	Error    string      `json:"error,omitempty"`
}

// AgentState is the single work record threaded through the pipeline. Each
// phase fills exactly its own section and never rewrites a prior phase's
// output, so the state doubles as an append-only history for replay and
// debugging. One state exists per meeting note; states are never shared or
// reused across notes.
type AgentState struct {
	RunID     string    `json:"run_id"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`

	// Phase 1: context augmentation.
	Events []CalendarEvent `json:"events,omitempty"`

	// Phase 2: information extraction.
	Extracted *ExtractedInfo `json:"extracted,omitempty"`

	// Phase 3: entity resolution.
	Resolutions []MentionCandidates `json:"resolutions,omitempty"`

	// Phase 4: disambiguation.
	Outcomes []ResolutionOutcome `json:"outcomes,omitempty"`

	// Phase 5: action planning.
	Plan []ActionItem `json:"plan,omitempty"`

	Warnings []string     `json:"warnings,omitempty"`
	Phases   []PhaseTrace `json:"phases,omitempty"`
}

// Warn appends a degradation warning to the state.
func (s *AgentState) Warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// Outcome returns the outcome with the given mention key, or nil.
func (s *AgentState) Outcome(key string) *ResolutionOutcome {
	for i := range s.Outcomes {
		if s.Outcomes[i].Key == key {
			return &s.Outcomes[i]
		}
	}
	return nil
}

package model

import "fmt"

// MentionHints carries contextual attributes extracted alongside a mention.
// Hints sharpen candidate scoring but never widen the candidate set.
type MentionHints struct {
	Role    string `json:"role,omitempty"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

// Mention is a raw extracted reference to a CRM entity. Mentions are created
// by the extraction phase and immutable afterward.
type Mention struct {
	Type  EntityType   `json:"type"`
	Text  string       `json:"text"`
	Hints MentionHints `json:"hints,omitempty"`
}

// MentionKey builds the stable key for the i-th mention of a type. Keys
// identify mentions across the resolution, disambiguation, and resumption
// surfaces.
func MentionKey(t EntityType, i int) string {
	return fmt.Sprintf("%s/%d", t, i)
}

// MentionCandidates pairs a mention with its ranked candidate matches.
// Produced by the resolver, consumed by the disambiguation gate.
type MentionCandidates struct {
	Key        string           `json:"key"`
	Mention    Mention          `json:"mention"`
	Candidates []CandidateMatch `json:"candidates"`
}

// CandidateMatch scores one CRM record against one mention.
// Score is a confidence in [0, 100].
type CandidateMatch struct {
	Record EntityRecord `json:"record"`
	Score  float64      `json:"score"`
}

// Package gate decides match outcomes from scored candidates: auto-resolve,
// queue for human review, or mark unresolved. Decisions are pure functions of
// the policy and the candidate list, so replaying a run yields identical
// outcomes.
package gate

import "github.com/sells-group/meeting-agent/internal/model"

// Policy holds the confidence gate tuning.
type Policy struct {
	// Thresholds is the per-type auto-resolve score. A type missing from the
	// map falls back to Default.
	Thresholds map[model.EntityType]float64 `mapstructure:"thresholds"`

	// Default is the auto-resolve score used when a type has no entry.
	Default float64 `mapstructure:"default"`

	// Margin is the minimum lead the top candidate needs over the runner-up
	// to auto-resolve.
	Margin float64 `mapstructure:"margin"`

	// Floor drops candidates scoring below it from review lists.
	Floor float64 `mapstructure:"floor"`

	// TopK caps the candidates surfaced for review.
	TopK int `mapstructure:"top_k"`
}

// DefaultPolicy mirrors production tuning: resolve at 85, require a 5-point
// lead, hide anything under 40, and surface at most 3 candidates.
func DefaultPolicy() Policy {
	return Policy{
		Thresholds: map[model.EntityType]float64{},
		Default:    85,
		Margin:     5,
		Floor:      40,
		TopK:       3,
	}
}

// Threshold returns the auto-resolve score for an entity type.
func (p Policy) Threshold(t model.EntityType) float64 {
	if v, ok := p.Thresholds[t]; ok {
		return v
	}
	return p.Default
}

// AutoSelect applies only the auto-resolve rule: the top candidate clears the
// type threshold and leads the runner-up by at least the margin. Candidates
// must already be sorted by descending score.
func (p Policy) AutoSelect(t model.EntityType, candidates []model.CandidateMatch) (*model.EntityRecord, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	top := candidates[0]
	if top.Score < p.Threshold(t) {
		return nil, false
	}
	if len(candidates) > 1 && top.Score-candidates[1].Score < p.Margin {
		return nil, false
	}
	rec := top.Record
	return &rec, true
}

// Decide produces the resolution outcome for one mention from its sorted
// candidate list.
func (p Policy) Decide(mc model.MentionCandidates) model.ResolutionOutcome {
	out := model.ResolutionOutcome{
		Key:     mc.Key,
		Mention: mc.Mention,
	}

	if chosen, ok := p.AutoSelect(mc.Mention.Type, mc.Candidates); ok {
		out.Status = model.OutcomeResolved
		out.Chosen = chosen
		out.Candidates = p.reviewList(mc.Candidates)
		return out
	}

	review := p.reviewList(mc.Candidates)
	if len(review) == 0 {
		out.Status = model.OutcomeUnresolved
		return out
	}

	out.Status = model.OutcomeNeedsReview
	out.Candidates = review
	return out
}

// reviewList keeps candidates at or above the floor, capped at TopK. The
// input is already sorted by descending score with ascending-ID tie-break.
func (p Policy) reviewList(candidates []model.CandidateMatch) []model.CandidateMatch {
	var out []model.CandidateMatch
	for _, c := range candidates {
		if c.Score < p.Floor {
			continue
		}
		out = append(out, c)
		if p.TopK > 0 && len(out) >= p.TopK {
			break
		}
	}
	return out
}

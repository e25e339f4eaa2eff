package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/model"
)

// Resume input validation errors.
var (
	ErrUnknownMention = errors.New("agent: unknown mention key")
	ErrNotReviewable  = errors.New("agent: mention is not pending review")
	ErrBadChoice      = errors.New("agent: record is not among the mention's candidates")
)

// Resume applies a human's candidate choice to a needs-review mention and
// re-runs planning. The input state is not mutated; the returned state is a
// copy with the updated outcome, a fresh plan, and a resume phase trace
// appended.
func (a *Agent) Resume(ctx context.Context, st *model.AgentState, key, recordID string) (*model.AgentState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prev := st.Outcome(key)
	if prev == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMention, key)
	}
	if prev.Status != model.OutcomeNeedsReview {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotReviewable, key, prev.Status)
	}

	var chosen *model.EntityRecord
	for _, c := range prev.Candidates {
		if c.Record.ID == recordID {
			rec := c.Record
			chosen = &rec
			break
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: %s for %s", ErrBadChoice, recordID, key)
	}

	next := cloneState(st)
	out := next.Outcome(key)
	out.Status = model.OutcomeResolved
	out.Chosen = chosen

	start := time.Now()
	next.Plan = a.planner.Plan(next.Extracted, next.Outcomes)
	next.Phases = append(next.Phases, model.PhaseTrace{
		Name:     "resume:" + key,
		Status:   model.PhaseStatusComplete,
		Duration: time.Since(start).Milliseconds(),
	})

	zap.L().Info("pipeline: resolution applied",
		zap.String("run_id", next.RunID),
		zap.String("key", key),
		zap.String("record_id", recordID),
		zap.Int("actions", len(next.Plan)))
	return next, nil
}

// cloneState copies the state deeply enough that replanning the clone never
// touches the original's outcomes or plan.
func cloneState(st *model.AgentState) *model.AgentState {
	next := *st
	next.Outcomes = make([]model.ResolutionOutcome, len(st.Outcomes))
	copy(next.Outcomes, st.Outcomes)
	next.Plan = nil
	next.Phases = make([]model.PhaseTrace, len(st.Phases))
	copy(next.Phases, st.Phases)
	next.Warnings = make([]string, len(st.Warnings))
	copy(next.Warnings, st.Warnings)
	return &next
}

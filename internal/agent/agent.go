// Package agent orchestrates the five-phase meeting-notes pipeline: context
// augmentation, extraction, entity resolution, disambiguation, and action
// planning.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/calendar"
	"github.com/sells-group/meeting-agent/internal/crm"
	"github.com/sells-group/meeting-agent/internal/extract"
	"github.com/sells-group/meeting-agent/internal/gate"
	"github.com/sells-group/meeting-agent/internal/model"
	"github.com/sells-group/meeting-agent/internal/planner"
	"github.com/sells-group/meeting-agent/internal/resolver"
)

// Failure is a fatal pipeline error carrying the phase that caused it.
type Failure struct {
	Phase string
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("pipeline failed in %s phase: %v", f.Phase, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Opts tunes the orchestrator.
type Opts struct {
	// CalendarWindowDays bounds the context-augmentation lookback. Default: 7.
	CalendarWindowDays int

	// CalendarTimeout bounds the calendar call. Default: 10s.
	CalendarTimeout time.Duration

	// Resolver tunes candidate scoring.
	Resolver resolver.Opts
}

// Agent runs meeting notes through the pipeline.
type Agent struct {
	store     crm.Store
	extractor extract.Service
	calendar  calendar.Provider // nil disables context augmentation
	resolver  *resolver.Resolver
	policy    gate.Policy
	planner   *planner.Planner
	opts      Opts
}

// New wires an agent from its collaborators. The calendar provider may be
// nil.
func New(store crm.Store, extractor extract.Service, cal calendar.Provider, policy gate.Policy, opts Opts) *Agent {
	if opts.CalendarWindowDays <= 0 {
		opts.CalendarWindowDays = 7
	}
	if opts.CalendarTimeout <= 0 {
		opts.CalendarTimeout = 10 * time.Second
	}
	return &Agent{
		store:     store,
		extractor: extractor,
		calendar:  cal,
		resolver:  resolver.New(store, policy, opts.Resolver),
		policy:    policy,
		planner:   planner.New(),
		opts:      opts,
	}
}

// Run executes the full pipeline for one meeting note. Degradable phases
// (calendar, partial extraction) record a warning and continue; a CRM store
// failure or an unrecoverable extraction error aborts the run with a
// *Failure.
func (a *Agent) Run(ctx context.Context, notes string) (*model.AgentState, error) {
	st := &model.AgentState{
		RunID:     uuid.NewString(),
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", st.RunID))
	log.Info("pipeline: starting run", zap.Int("notes_bytes", len(notes)))

	trackPhase := func(name string, fn func() (model.PhaseStatus, error)) error {
		start := time.Now()
		status, err := fn()
		trace := model.PhaseTrace{
			Name:     name,
			Status:   status,
			Duration: time.Since(start).Milliseconds(),
		}
		if err != nil {
			trace.Error = err.Error()
		}
		st.Phases = append(st.Phases, trace)

		switch status {
		case model.PhaseStatusFailed:
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", trace.Duration),
				zap.Error(err))
			return &Failure{Phase: name, Err: err}
		case model.PhaseStatusDegraded:
			log.Warn("pipeline: phase degraded",
				zap.String("phase", name),
				zap.Int64("duration_ms", trace.Duration),
				zap.Error(err))
		default:
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", trace.Duration))
		}
		return nil
	}

	// Phase 1: context augmentation. Calendar failure never fails the run.
	if err := trackPhase("context", func() (model.PhaseStatus, error) {
		if a.calendar == nil {
			return model.PhaseStatusComplete, nil
		}
		calCtx, cancel := context.WithTimeout(ctx, a.opts.CalendarTimeout)
		defer cancel()
		events, err := a.calendar.RecentEvents(calCtx, a.opts.CalendarWindowDays)
		if err != nil {
			st.Warn("calendar unavailable; proceeding without meeting context")
			return model.PhaseStatusDegraded, err
		}
		st.Events = events
		return model.PhaseStatusComplete, nil
	}); err != nil {
		return st, err
	}

	// Phase 2: information extraction.
	if err := trackPhase("extraction", func() (model.PhaseStatus, error) {
		info, status, err := a.extract(ctx, st)
		if err != nil {
			return model.PhaseStatusFailed, err
		}
		st.Extracted = info
		return status, nil
	}); err != nil {
		return st, err
	}

	// Phase 3: entity resolution. Store failure is fatal: guessed matches
	// would corrupt the CRM downstream.
	if err := trackPhase("resolution", func() (model.PhaseStatus, error) {
		resolutions, err := a.resolver.Resolve(ctx, st.Extracted.Mentions())
		if err != nil {
			if crm.IsUnavailable(err) {
				return model.PhaseStatusFailed, eris.Wrap(err, "agent: CRM store unavailable")
			}
			return model.PhaseStatusFailed, err
		}
		st.Resolutions = resolutions
		return model.PhaseStatusComplete, nil
	}); err != nil {
		return st, err
	}

	// Phase 4: disambiguation. Pure policy application.
	_ = trackPhase("disambiguation", func() (model.PhaseStatus, error) {
		st.Outcomes = make([]model.ResolutionOutcome, len(st.Resolutions))
		for i, mc := range st.Resolutions {
			st.Outcomes[i] = a.policy.Decide(mc)
		}
		return model.PhaseStatusComplete, nil
	})

	// Phase 5: action planning. Pure.
	_ = trackPhase("planning", func() (model.PhaseStatus, error) {
		st.Plan = a.planner.Plan(st.Extracted, st.Outcomes)
		return model.PhaseStatusComplete, nil
	})

	log.Info("pipeline: run complete",
		zap.Int("mentions", len(st.Resolutions)),
		zap.Int("actions", len(st.Plan)),
		zap.Int("warnings", len(st.Warnings)))
	return st, nil
}

// extract runs the extraction call with the schema-failure policy: one strict
// retry, then accept the partial bundle with a warning.
func (a *Agent) extract(ctx context.Context, st *model.AgentState) (*model.ExtractedInfo, model.PhaseStatus, error) {
	req := extract.Request{
		Notes:   st.Notes,
		Context: calendar.Format(st.Events),
	}

	info, err := a.extractor.Extract(ctx, req)
	if err == nil {
		return info, model.PhaseStatusComplete, nil
	}
	se, ok := extract.IsSchemaError(err)
	if !ok {
		return nil, model.PhaseStatusFailed, err
	}

	zap.L().Warn("extraction schema failure; retrying strict",
		zap.String("run_id", st.RunID),
		zap.Strings("fields", se.Fields))

	req.Strict = true
	info, err = a.extractor.Extract(ctx, req)
	if err == nil {
		return info, model.PhaseStatusComplete, nil
	}
	se, ok = extract.IsSchemaError(err)
	if !ok {
		return nil, model.PhaseStatusFailed, err
	}

	st.Warn(fmt.Sprintf("extraction incomplete: fields failed validation: %v", se.Fields))
	return se.Partial, model.PhaseStatusDegraded, nil
}

// BuildResult derives the externally visible result from a finished state.
// Derivation is pure, so replaying it on the same state is idempotent.
func BuildResult(st *model.AgentState) *model.PipelineResult {
	res := &model.PipelineResult{
		RunID:    st.RunID,
		Plan:     st.Plan,
		Warnings: st.Warnings,
	}
	if st.Extracted != nil {
		res.Partial = st.Extracted.Partial()
	}
	for _, o := range st.Outcomes {
		switch o.Status {
		case model.OutcomeResolved:
			if o.Chosen != nil {
				res.Resolved = append(res.Resolved, *o.Chosen)
			}
		case model.OutcomeNeedsReview:
			res.NeedsReview = append(res.NeedsReview, model.ReviewItem{
				Key:        o.Key,
				Mention:    o.Mention,
				Candidates: o.Candidates,
			})
		}
	}
	return res
}

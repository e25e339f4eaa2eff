package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meeting-agent/internal/crm"
	"github.com/sells-group/meeting-agent/internal/extract"
	"github.com/sells-group/meeting-agent/internal/gate"
	"github.com/sells-group/meeting-agent/internal/model"
)

// mockExtractor is a testify mock for the extraction service.
type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, req extract.Request) (*model.ExtractedInfo, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractedInfo), args.Error(1)
}

// stubCalendar returns canned events or a fixed error.
type stubCalendar struct {
	events []model.CalendarEvent
	err    error
}

func (s *stubCalendar) RecentEvents(ctx context.Context, windowDays int) ([]model.CalendarEvent, error) {
	return s.events, s.err
}

// failingStore simulates an unreachable CRM backend.
type failingStore struct{}

func (failingStore) FindCandidates(ctx context.Context, t model.EntityType, query string, hints crm.Hints) ([]model.EntityRecord, error) {
	return nil, crm.ErrUnavailable
}

func (failingStore) Get(ctx context.Context, t model.EntityType, id string) (*model.EntityRecord, error) {
	return nil, crm.ErrUnavailable
}

func goodInfo() *model.ExtractedInfo {
	return &model.ExtractedInfo{
		Participants: []model.Participant{
			{Name: "Patrick Dubois", Role: "Sales Director", Company: "Nextera"},
		},
		Companies: []model.CompanyMention{{Name: "Nextera"}},
		Opportunities: []model.OpportunityMention{
			{Title: "CRM Implementation", Stage: "negotiate", Company: "Nextera"},
		},
		FollowUps: []model.FollowUp{
			{Kind: "meeting", With: "Patrick Dubois", Timing: "next week"},
		},
		KeyPoints: []string{"Budget approved"},
	}
}

func newTestAgent(t *testing.T, extractor extract.Service, cal *stubCalendar) *Agent {
	t.Helper()
	mem := crm.NewMemory(crm.DefaultFixture())
	if cal == nil {
		return New(mem, extractor, nil, gate.DefaultPolicy(), Opts{})
	}
	return New(mem, extractor, cal, gate.DefaultPolicy(), Opts{})
}

func phaseByName(t *testing.T, st *model.AgentState, name string) model.PhaseTrace {
	t.Helper()
	for _, p := range st.Phases {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no %s phase trace", name)
	return model.PhaseTrace{}
}

func TestRun_HappyPath(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Return(goodInfo(), nil).Once()

	cal := &stubCalendar{events: crm.NewMemory(crm.DefaultFixture()).Events()}
	a := newTestAgent(t, ex, cal)

	st, err := a.Run(context.Background(), "Met with Patrick Dubois from Nextera.")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.NotEmpty(t, st.RunID)
	assert.Empty(t, st.Warnings)

	require.Len(t, st.Phases, 5)
	for _, p := range st.Phases {
		assert.Equal(t, model.PhaseStatusComplete, p.Status, p.Name)
	}
	assert.NotEmpty(t, st.Events)

	company := st.Outcome("company/0")
	require.NotNil(t, company)
	assert.Equal(t, model.OutcomeResolved, company.Status)
	assert.Equal(t, "comp_123", company.Chosen.ID)

	contact := st.Outcome("contact/0")
	require.NotNil(t, contact)
	assert.Equal(t, model.OutcomeResolved, contact.Status)
	assert.Equal(t, "cont_456", contact.Chosen.ID)

	opp := st.Outcome("opportunity/0")
	require.NotNil(t, opp)
	require.NotEmpty(t, opp.Candidates)
	assert.Equal(t, "opp_321", opp.Candidates[0].Record.ID)

	require.NotEmpty(t, st.Plan)
	assert.Equal(t, model.ActionLogMeeting, st.Plan[0].Kind)
	assert.Equal(t, model.ActionReady, st.Plan[0].Status)
	ex.AssertExpectations(t)
}

func TestRun_CalendarFailureDegradesAndContinues(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Return(goodInfo(), nil).Once()

	cal := &stubCalendar{err: errors.New("calendar timeout")}
	a := newTestAgent(t, ex, cal)

	st, err := a.Run(context.Background(), "notes")
	require.NoError(t, err)

	ctxPhase := phaseByName(t, st, "context")
	assert.Equal(t, model.PhaseStatusDegraded, ctxPhase.Status)
	assert.Empty(t, st.Events)
	require.Len(t, st.Warnings, 1)
	assert.Contains(t, st.Warnings[0], "calendar unavailable")
	assert.NotEmpty(t, st.Plan)
}

// blockingCalendar never answers until its context expires.
type blockingCalendar struct{}

func (blockingCalendar) RecentEvents(ctx context.Context, windowDays int) ([]model.CalendarEvent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRun_CalendarTimeoutDegradesAndContinues(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Return(goodInfo(), nil).Once()

	mem := crm.NewMemory(crm.DefaultFixture())
	a := New(mem, ex, blockingCalendar{}, gate.DefaultPolicy(), Opts{
		CalendarTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	st, err := a.Run(context.Background(), "notes")
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, model.PhaseStatusDegraded, phaseByName(t, st, "context").Status)
	require.Len(t, st.Warnings, 1)
	assert.Contains(t, st.Warnings[0], "calendar unavailable")
	assert.NotEmpty(t, st.Plan)
}

func TestRun_NilCalendarSkipsContext(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Return(goodInfo(), nil).Once()

	a := newTestAgent(t, ex, nil)

	st, err := a.Run(context.Background(), "notes")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseStatusComplete, phaseByName(t, st, "context").Status)
	assert.Empty(t, st.Events)
	assert.Empty(t, st.Warnings)
}

func TestRun_SchemaErrorRetriesStrict(t *testing.T) {
	partial := goodInfo()
	partial.FailedFields = []string{"participants"}
	partial.Participants = nil

	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.MatchedBy(func(req extract.Request) bool {
		return !req.Strict
	})).Return(nil, &extract.SchemaError{Fields: []string{"participants"}, Partial: partial}).Once()
	ex.On("Extract", mock.Anything, mock.MatchedBy(func(req extract.Request) bool {
		return req.Strict
	})).Return(goodInfo(), nil).Once()

	a := newTestAgent(t, ex, nil)

	st, err := a.Run(context.Background(), "notes")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseStatusComplete, phaseByName(t, st, "extraction").Status)
	assert.False(t, st.Extracted.Partial())
	assert.Empty(t, st.Warnings)
	ex.AssertExpectations(t)
}

func TestRun_SchemaErrorTwiceAcceptsPartial(t *testing.T) {
	partial := goodInfo()
	partial.FailedFields = []string{"follow_ups"}
	partial.FollowUps = nil
	se := &extract.SchemaError{Fields: []string{"follow_ups"}, Partial: partial}

	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Return(nil, se).Twice()

	a := newTestAgent(t, ex, nil)

	st, err := a.Run(context.Background(), "notes")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseStatusDegraded, phaseByName(t, st, "extraction").Status)
	require.NotNil(t, st.Extracted)
	assert.True(t, st.Extracted.Partial())
	require.Len(t, st.Warnings, 1)
	assert.Contains(t, st.Warnings[0], "follow_ups")
	// The pipeline still planned from what survived.
	assert.NotEmpty(t, st.Plan)
	ex.AssertExpectations(t)
}

func TestRun_PermanentExtractionFailureAborts(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key")).Once()

	a := newTestAgent(t, ex, nil)

	st, err := a.Run(context.Background(), "notes")
	require.Error(t, err)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "extraction", f.Phase)
	assert.Equal(t, model.PhaseStatusFailed, phaseByName(t, st, "extraction").Status)
	assert.Nil(t, st.Plan)
}

func TestRun_StoreUnavailableIsFatal(t *testing.T) {
	ex := &mockExtractor{}
	ex.On("Extract", mock.Anything, mock.Anything).Return(goodInfo(), nil).Once()

	a := New(failingStore{}, ex, nil, gate.DefaultPolicy(), Opts{})

	st, err := a.Run(context.Background(), "notes")
	require.Error(t, err)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "resolution", f.Phase)
	assert.True(t, crm.IsUnavailable(err))
	assert.Nil(t, st.Outcomes)
}

func TestBuildResult(t *testing.T) {
	st := &model.AgentState{
		RunID: "run-1",
		Extracted: &model.ExtractedInfo{
			FailedFields: []string{"key_points"},
		},
		Outcomes: []model.ResolutionOutcome{
			{
				Key:    "company/0",
				Status: model.OutcomeResolved,
				Chosen: &model.EntityRecord{ID: "comp_123", Type: model.EntityCompany, Name: "Nextera"},
			},
			{
				Key:     "contact/0",
				Mention: model.Mention{Type: model.EntityContact, Text: "Pierre"},
				Status:  model.OutcomeNeedsReview,
				Candidates: []model.CandidateMatch{
					{Record: model.EntityRecord{ID: "cont_789"}, Score: 88},
				},
			},
			{Key: "contact/1", Status: model.OutcomeUnresolved},
		},
		Plan:     []model.ActionItem{{ID: 1, Kind: model.ActionLogMeeting, Status: model.ActionReady}},
		Warnings: []string{"extraction incomplete"},
	}

	res := BuildResult(st)

	assert.Equal(t, "run-1", res.RunID)
	assert.True(t, res.Partial)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "comp_123", res.Resolved[0].ID)
	require.Len(t, res.NeedsReview, 1)
	assert.Equal(t, "contact/0", res.NeedsReview[0].Key)
	assert.Equal(t, st.Plan, res.Plan)
	assert.Equal(t, st.Warnings, res.Warnings)

	// Derivation is pure: replaying it yields the same result.
	assert.Equal(t, res, BuildResult(st))
}

func reviewState() *model.AgentState {
	return &model.AgentState{
		RunID: "run-2",
		Extracted: &model.ExtractedInfo{
			FollowUps: []model.FollowUp{{Kind: "meeting", With: "Pierre"}},
		},
		Outcomes: []model.ResolutionOutcome{
			{
				Key:     "contact/0",
				Mention: model.Mention{Type: model.EntityContact, Text: "Pierre"},
				Status:  model.OutcomeNeedsReview,
				Candidates: []model.CandidateMatch{
					{Record: model.EntityRecord{ID: "cont_789", Type: model.EntityContact, Name: "Pierre Lefevre"}, Score: 88},
					{Record: model.EntityRecord{ID: "cont_790", Type: model.EntityContact, Name: "Pierre Dubois"}, Score: 88},
				},
			},
		},
		Plan: []model.ActionItem{{ID: 1, Kind: model.ActionScheduleMeeting, Status: model.ActionBlocked}},
	}
}

func TestResume_AppliesChoiceAndReplans(t *testing.T) {
	ex := &mockExtractor{}
	a := newTestAgent(t, ex, nil)
	st := reviewState()

	next, err := a.Resume(context.Background(), st, "contact/0", "cont_790")
	require.NoError(t, err)
	require.NotSame(t, st, next)

	out := next.Outcome("contact/0")
	require.NotNil(t, out)
	assert.Equal(t, model.OutcomeResolved, out.Status)
	require.NotNil(t, out.Chosen)
	assert.Equal(t, "cont_790", out.Chosen.ID)

	// The follow-up now references the chosen contact and is unblocked.
	var meeting *model.ActionItem
	for i := range next.Plan {
		if next.Plan[i].Kind == model.ActionScheduleMeeting {
			meeting = &next.Plan[i]
		}
	}
	require.NotNil(t, meeting)
	assert.Equal(t, model.ActionReady, meeting.Status)

	last := next.Phases[len(next.Phases)-1]
	assert.Equal(t, "resume:contact/0", last.Name)
	assert.Equal(t, model.PhaseStatusComplete, last.Status)

	// The original state is untouched.
	assert.Equal(t, model.OutcomeNeedsReview, st.Outcome("contact/0").Status)
	assert.Equal(t, model.ActionBlocked, st.Plan[0].Status)
}

func TestResume_UnknownMention(t *testing.T) {
	a := newTestAgent(t, &mockExtractor{}, nil)

	_, err := a.Resume(context.Background(), reviewState(), "contact/9", "cont_790")
	assert.ErrorIs(t, err, ErrUnknownMention)
}

func TestResume_NotReviewable(t *testing.T) {
	a := newTestAgent(t, &mockExtractor{}, nil)
	st := reviewState()
	st.Outcomes[0].Status = model.OutcomeResolved
	st.Outcomes[0].Chosen = &st.Outcomes[0].Candidates[0].Record

	_, err := a.Resume(context.Background(), st, "contact/0", "cont_790")
	assert.ErrorIs(t, err, ErrNotReviewable)
}

func TestResume_BadChoice(t *testing.T) {
	a := newTestAgent(t, &mockExtractor{}, nil)

	_, err := a.Resume(context.Background(), reviewState(), "contact/0", "cont_999")
	assert.ErrorIs(t, err, ErrBadChoice)
}

func TestFormatReport(t *testing.T) {
	res := &model.PipelineResult{
		RunID: "run-3",
		Resolved: []model.EntityRecord{
			{ID: "comp_123", Type: model.EntityCompany, Name: "Nextera"},
		},
		NeedsReview: []model.ReviewItem{
			{
				Key:     "contact/0",
				Mention: model.Mention{Type: model.EntityContact, Text: "Pierre"},
				Candidates: []model.CandidateMatch{
					{Record: model.EntityRecord{ID: "cont_789", Name: "Pierre Lefevre"}, Score: 88},
				},
			},
		},
		Plan: []model.ActionItem{
			{ID: 1, Kind: model.ActionLogMeeting, Description: "Log meeting with Nextera", Status: model.ActionReady},
			{ID: 2, Kind: model.ActionScheduleMeeting, Description: "Schedule meeting with Pierre", Status: model.ActionBlocked},
		},
		Warnings: []string{"calendar unavailable; proceeding without meeting context"},
		Partial:  true,
	}

	out := FormatReport(res)

	assert.Contains(t, out, "Run run-3")
	assert.Contains(t, out, "extraction was partial")
	assert.Contains(t, out, "[company] Nextera (comp_123)")
	assert.Contains(t, out, `contact/0  "Pierre"`)
	assert.Contains(t, out, "cont_789 Pierre Lefevre (score 88)")
	assert.Contains(t, out, "!  2. [schedule_meeting]")
	assert.Contains(t, out, "calendar unavailable")
}

package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meeting-agent/internal/crm"
	"github.com/sells-group/meeting-agent/internal/gate"
	"github.com/sells-group/meeting-agent/internal/model"
)

func fixtureResolver(t *testing.T) *Resolver {
	t.Helper()
	store := crm.NewMemory(crm.DefaultFixture())
	return New(store, gate.DefaultPolicy(), Opts{})
}

func mentionOf(typ model.EntityType, idx int, text string, hints model.MentionHints) model.MentionCandidates {
	return model.MentionCandidates{
		Key:     model.MentionKey(typ, idx),
		Mention: model.Mention{Type: typ, Text: text, Hints: hints},
	}
}

func TestResolve_ExactContactTopsCandidates(t *testing.T) {
	r := fixtureResolver(t)

	out, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityContact, 0, "Patrick Dubois", model.MentionHints{}),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotEmpty(t, out[0].Candidates)

	assert.Equal(t, "cont_456", out[0].Candidates[0].Record.ID)
	assert.Equal(t, 100.0, out[0].Candidates[0].Score)
}

func TestResolve_AccentedMentionStillExact(t *testing.T) {
	r := fixtureResolver(t)

	out, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityContact, 0, "Pièrre Dubois", model.MentionHints{}),
	})
	require.NoError(t, err)
	require.NotEmpty(t, out[0].Candidates)

	assert.Equal(t, "cont_790", out[0].Candidates[0].Record.ID)
	assert.Equal(t, 100.0, out[0].Candidates[0].Score)
}

func TestResolve_BareFirstNameTiesBrokenByID(t *testing.T) {
	r := fixtureResolver(t)

	out, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityContact, 0, "Pierre", model.MentionHints{}),
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(out[0].Candidates), 2)

	// Pierre Lefevre (cont_789) and Pierre Dubois (cont_790) score equally;
	// the lower record ID ranks first.
	assert.Equal(t, out[0].Candidates[0].Score, out[0].Candidates[1].Score)
	assert.Equal(t, "cont_789", out[0].Candidates[0].Record.ID)
	assert.Equal(t, "cont_790", out[0].Candidates[1].Record.ID)
}

func TestResolve_EmailHintShortCircuits(t *testing.T) {
	r := fixtureResolver(t)

	out, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityContact, 0, "Pierre", model.MentionHints{
			Email: "pierre.dubois@nextera.com",
		}),
	})
	require.NoError(t, err)
	require.NotEmpty(t, out[0].Candidates)

	assert.Equal(t, "cont_790", out[0].Candidates[0].Record.ID)
	assert.Equal(t, 100.0, out[0].Candidates[0].Score)
}

func TestResolve_ResolvedCompanyBoostsContacts(t *testing.T) {
	r := fixtureResolver(t)

	// Slightly misspelled contact, alone.
	alone, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityContact, 0, "Pierre Dubo", model.MentionHints{}),
	})
	require.NoError(t, err)

	// Same contact after the company mention resolves; the resolved company
	// context adds the bonus.
	out, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityCompany, 0, "Nextera", model.MentionHints{}),
		mentionOf(model.EntityContact, 0, "Pierre Dubo", model.MentionHints{}),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotEmpty(t, out[0].Candidates)
	assert.Equal(t, "comp_123", out[0].Candidates[0].Record.ID)

	require.NotEmpty(t, alone[0].Candidates)
	require.NotEmpty(t, out[1].Candidates)
	assert.Equal(t, "cont_790", out[1].Candidates[0].Record.ID)
	assert.Greater(t, out[1].Candidates[0].Score, alone[0].Candidates[0].Score)
}

func TestResolve_CompanyHintBoostsNearMiss(t *testing.T) {
	r := fixtureResolver(t)

	// Slightly misspelled surname; the company hint adds the bonus.
	without, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityContact, 0, "Pierre Lefevr", model.MentionHints{}),
	})
	require.NoError(t, err)

	with, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityContact, 0, "Pierre Lefevr", model.MentionHints{
			Company: "Nextera",
		}),
	})
	require.NoError(t, err)

	require.NotEmpty(t, without[0].Candidates)
	require.NotEmpty(t, with[0].Candidates)
	assert.Equal(t, "cont_789", with[0].Candidates[0].Record.ID)
	assert.Greater(t, with[0].Candidates[0].Score, without[0].Candidates[0].Score)
}

func TestResolve_ScoreNeverExceeds100(t *testing.T) {
	r := fixtureResolver(t)

	out, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityCompany, 0, "Nextera", model.MentionHints{}),
		mentionOf(model.EntityContact, 0, "Patrick Dubois", model.MentionHints{
			Company: "Nextera",
		}),
	})
	require.NoError(t, err)

	for _, mc := range out {
		for _, c := range mc.Candidates {
			assert.LessOrEqual(t, c.Score, 100.0)
			assert.GreaterOrEqual(t, c.Score, 0.0)
		}
	}
}

func TestResolve_OpportunityByCompanyContext(t *testing.T) {
	r := fixtureResolver(t)

	out, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityCompany, 0, "Nextera", model.MentionHints{}),
		mentionOf(model.EntityOpportunity, 0, "CRM Implementation", model.MentionHints{
			Company: "Nextera",
		}),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotEmpty(t, out[1].Candidates)

	assert.Equal(t, "opp_321", out[1].Candidates[0].Record.ID)
}

func TestResolve_Idempotent(t *testing.T) {
	r := fixtureResolver(t)
	mentions := []model.MentionCandidates{
		mentionOf(model.EntityCompany, 0, "Nextera", model.MentionHints{}),
		mentionOf(model.EntityContact, 0, "Pierre", model.MentionHints{}),
	}

	first, err := r.Resolve(context.Background(), mentions)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), mentions)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// failingStore simulates an unreachable CRM backend.
type failingStore struct{}

func (failingStore) FindCandidates(ctx context.Context, t model.EntityType, query string, hints crm.Hints) ([]model.EntityRecord, error) {
	return nil, errors.Join(crm.ErrUnavailable, errors.New("connection refused"))
}

func (failingStore) Get(ctx context.Context, t model.EntityType, id string) (*model.EntityRecord, error) {
	return nil, errors.Join(crm.ErrUnavailable, errors.New("connection refused"))
}

func TestResolve_StoreFailurePropagates(t *testing.T) {
	r := New(failingStore{}, gate.DefaultPolicy(), Opts{})

	_, err := r.Resolve(context.Background(), []model.MentionCandidates{
		mentionOf(model.EntityContact, 0, "Patrick Dubois", model.MentionHints{}),
	})
	require.Error(t, err)
	assert.True(t, crm.IsUnavailable(err))
}

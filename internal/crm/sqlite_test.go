package crm

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meeting-agent/internal/model"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "crm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Load(context.Background(), DefaultFixture()))
	return st
}

func TestSQLite_LoadAndFind(t *testing.T) {
	st := openTestSQLite(t)

	recs, err := st.FindCandidates(context.Background(), model.EntityContact, "Dubois", Hints{})
	require.NoError(t, err)

	ids := recordIDs(recs)
	assert.Contains(t, ids, "cont_456")
	assert.Contains(t, ids, "cont_790")
	assert.NotContains(t, ids, "cont_791")
}

func TestSQLite_FindFoldsAccents(t *testing.T) {
	st := openTestSQLite(t)

	recs, err := st.FindCandidates(context.Background(), model.EntityContact, "Duboïs", Hints{})
	require.NoError(t, err)
	assert.Contains(t, recordIDs(recs), "cont_456")
}

func TestSQLite_FindMatchesAliases(t *testing.T) {
	st := openTestSQLite(t)

	recs, err := st.FindCandidates(context.Background(), model.EntityCompany, "TechCorp", Hints{})
	require.NoError(t, err)
	assert.Contains(t, recordIDs(recs), "comp_125")
}

func TestSQLite_FindRespectsType(t *testing.T) {
	st := openTestSQLite(t)

	recs, err := st.FindCandidates(context.Background(), model.EntityOpportunity, "Nextera", Hints{})
	require.NoError(t, err)

	for _, r := range recs {
		assert.Equal(t, model.EntityOpportunity, r.Type)
	}
	assert.Contains(t, recordIDs(recs), "opp_321")
}

func TestSQLite_Get(t *testing.T) {
	st := openTestSQLite(t)

	rec, err := st.Get(context.Background(), model.EntityContact, "cont_456")
	require.NoError(t, err)
	assert.Equal(t, "Patrick Dubois", rec.Name)
	assert.Equal(t, "patrick.dubois@nextera.com", rec.Attr(model.AttrEmail))
}

func TestSQLite_GetNotFound(t *testing.T) {
	st := openTestSQLite(t)

	_, err := st.Get(context.Background(), model.EntityContact, "cont_999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_LoadReplacesSnapshot(t *testing.T) {
	st := openTestSQLite(t)

	next := &Fixture{
		Companies: []model.EntityRecord{{ID: "comp_900", Name: "Initech"}},
	}
	next.stampTypes()
	require.NoError(t, st.Load(context.Background(), next))

	_, err := st.Get(context.Background(), model.EntityCompany, "comp_123")
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := st.Get(context.Background(), model.EntityCompany, "comp_900")
	require.NoError(t, err)
	assert.Equal(t, "Initech", rec.Name)
}

func TestSQLite_RecentEventsWindow(t *testing.T) {
	st := openTestSQLite(t)

	now := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)

	events, err := st.RecentEvents(context.Background(), now, 7)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Ordered by date ascending.
	assert.Equal(t, "evt_002", events[0].ID)
	assert.Equal(t, "evt_001", events[1].ID)

	events, err = st.RecentEvents(context.Background(), now, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt_001", events[0].ID)
}

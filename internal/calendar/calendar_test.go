package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meeting-agent/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testEvents() []model.CalendarEvent {
	return []model.CalendarEvent{
		{ID: "evt_001", Title: "Nextera - Proposal Discussion",
			Date: time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC), Notes: "Discussed pricing"},
		{ID: "evt_002", Title: "TechCorp Quarterly Review",
			Date: time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC)},
		{ID: "evt_003", Title: "Old planning session",
			Date: time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)},
	}
}

func TestFixture_RecentEventsWindow(t *testing.T) {
	now := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)
	f := NewFixture(testEvents(), WithClock(fixedClock(now)))

	events, err := f.RecentEvents(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt_001", events[0].ID)
	assert.Equal(t, "evt_002", events[1].ID)
}

func TestFixture_RecentEventsNarrowWindow(t *testing.T) {
	now := time.Date(2026, 1, 16, 12, 0, 0, 0, time.UTC)
	f := NewFixture(testEvents(), WithClock(fixedClock(now)))

	events, err := f.RecentEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt_001", events[0].ID)
}

func TestFixture_RecentEventsEmpty(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewFixture(testEvents(), WithClock(fixedClock(now)))

	events, err := f.RecentEvents(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFixture_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFixture(testEvents())
	_, err := f.RecentEvents(ctx, 7)
	assert.Error(t, err)
}

func TestFormat_RendersContextBlock(t *testing.T) {
	out := Format(testEvents()[:2])

	assert.Contains(t, out, "Recent calendar events:")
	assert.Contains(t, out, "2026-01-15: Nextera - Proposal Discussion (Discussed pricing)")
	assert.Contains(t, out, "2026-01-14: TechCorp Quarterly Review")
}

func TestFormat_EmptyIsEmptyString(t *testing.T) {
	assert.Equal(t, "", Format(nil))
}

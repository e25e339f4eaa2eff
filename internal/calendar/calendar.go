// Package calendar defines the context-augmentation collaborator: a read-only
// view of the user's recent meetings, used to anchor notes against known CRM
// activity. Calendar failure never fails a pipeline run.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/meeting-agent/internal/model"
)

// ErrUnavailable marks the calendar backend as unreachable. The orchestrator
// degrades to running without calendar context.
var ErrUnavailable = errors.New("calendar unavailable")

// Provider is the calendar read contract.
type Provider interface {
	// RecentEvents returns events within the trailing window of days.
	RecentEvents(ctx context.Context, windowDays int) ([]model.CalendarEvent, error)
}

// Fixture serves events from a static snapshot. The clock is injectable so
// tests can pin the window.
type Fixture struct {
	events []model.CalendarEvent
	now    func() time.Time
}

// FixtureOption configures a Fixture provider.
type FixtureOption func(*Fixture)

// WithClock overrides the provider's clock.
func WithClock(now func() time.Time) FixtureOption {
	return func(f *Fixture) { f.now = now }
}

// NewFixture builds a provider over a static event list.
func NewFixture(events []model.CalendarEvent, opts ...FixtureOption) *Fixture {
	f := &Fixture{events: events, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fixture) RecentEvents(ctx context.Context, windowDays int) ([]model.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := f.now()
	start := end.AddDate(0, 0, -windowDays)

	var out []model.CalendarEvent
	for _, e := range f.events {
		if !e.Date.Before(start) && !e.Date.After(end) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Format renders events as a context block for the extraction prompt.
// Returns "" when there are no events.
func Format(events []model.CalendarEvent) string {
	if len(events) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent calendar events:\n")
	for _, e := range events {
		fmt.Fprintf(&b, "- %s: %s", e.Date.Format("2006-01-02"), e.Title)
		if e.Notes != "" {
			b.WriteString(" (" + e.Notes + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

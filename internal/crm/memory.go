package crm

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/meeting-agent/internal/model"
)

// Memory is a fixture-backed in-memory store. It is the default driver, the
// test stub, and the demo dataset. All state is immutable after construction,
// so concurrent reads need no locking.
type Memory struct {
	byType map[model.EntityType][]model.EntityRecord
	byID   map[string]model.EntityRecord
	events []model.CalendarEvent
}

// NewMemory builds a Memory store from a fixture.
func NewMemory(f *Fixture) *Memory {
	m := &Memory{
		byType: make(map[model.EntityType][]model.EntityRecord),
		byID:   make(map[string]model.EntityRecord),
	}
	for _, r := range f.Records() {
		m.byType[r.Type] = append(m.byType[r.Type], r)
		m.byID[r.ID] = r
	}
	// Stable ID order within a type keeps candidate recall deterministic.
	for t := range m.byType {
		recs := m.byType[t]
		sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	}
	m.events = append(m.events, f.Events...)
	return m
}

// FindCandidates returns type-matching records whose name or alias shares a
// token with the query. Recall is intentionally broad.
func (m *Memory) FindCandidates(ctx context.Context, t model.EntityType, query string, hints Hints) ([]model.EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qTokens := foldTokens(query)
	if len(qTokens) == 0 {
		return nil, nil
	}

	var out []model.EntityRecord
	for _, r := range m.byType[t] {
		if recallMatch(qTokens, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Get fetches a record by ID, checking the type tag.
func (m *Memory) Get(ctx context.Context, t model.EntityType, id string) (*model.EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := m.byID[id]
	if !ok || r.Type != t {
		return nil, ErrNotFound
	}
	return &r, nil
}

// Events exposes the fixture's calendar entries for the calendar provider.
func (m *Memory) Events() []model.CalendarEvent {
	return m.events
}

// recallMatch reports whether any query token overlaps any name/alias token,
// by equality, containment, or shared 3-rune prefix.
func recallMatch(qTokens []string, r model.EntityRecord) bool {
	names := append([]string{r.Name}, r.Aliases...)
	for _, name := range names {
		for _, nt := range foldTokens(name) {
			for _, qt := range qTokens {
				if tokensOverlap(qt, nt) {
					return true
				}
			}
		}
	}
	return false
}

func tokensOverlap(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) >= 3 && len(b) >= 3 {
		if strings.Contains(a, b) || strings.Contains(b, a) {
			return true
		}
		if a[:3] == b[:3] {
			return true
		}
	}
	return false
}

var foldTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// fold lowercases and strips diacritics so "Dubois" matches "Duboïs".
func fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func foldTokens(s string) []string {
	return strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/meeting-agent/internal/model"
)

// SQLite is a snapshot store backed by modernc.org/sqlite. It serves the same
// read-query contract as Memory over a file-based snapshot, so repeated runs
// against a fixed CRM export do not need the fixture in memory.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a sqlite snapshot at dsn and applies the
// schema.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS crm_records (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	name        TEXT NOT NULL,
	name_folded TEXT NOT NULL,
	aliases     TEXT NOT NULL DEFAULT '[]',
	alias_folded TEXT NOT NULL DEFAULT '',
	attributes  TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS calendar_events (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	date           DATETIME NOT NULL,
	participants   TEXT NOT NULL DEFAULT '[]',
	company_id     TEXT,
	opportunity_id TEXT,
	notes          TEXT
);

CREATE INDEX IF NOT EXISTS idx_crm_records_type ON crm_records(type);
CREATE INDEX IF NOT EXISTS idx_crm_records_name_folded ON crm_records(name_folded);
CREATE INDEX IF NOT EXISTS idx_calendar_events_date ON calendar_events(date);
`

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load imports a fixture snapshot, replacing any existing records.
func (s *SQLite) Load(ctx context.Context, f *Fixture) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin load")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM crm_records`); err != nil {
		return eris.Wrap(err, "sqlite: clear records")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_events`); err != nil {
		return eris.Wrap(err, "sqlite: clear events")
	}

	for _, r := range f.Records() {
		aliases, err := json.Marshal(r.Aliases)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal aliases %s", r.ID)
		}
		attrs, err := json.Marshal(r.Attributes)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal attributes %s", r.ID)
		}
		aliasFolded := make([]string, len(r.Aliases))
		for i, a := range r.Aliases {
			aliasFolded[i] = fold(a)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO crm_records (id, type, name, name_folded, aliases, alias_folded, attributes)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, string(r.Type), r.Name, fold(r.Name), string(aliases),
			strings.Join(aliasFolded, "\n"), string(attrs),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert record %s", r.ID)
		}
	}

	for _, e := range f.Events {
		participants, err := json.Marshal(e.Participants)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal participants %s", e.ID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO calendar_events (id, title, date, participants, company_id, opportunity_id, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Title, e.Date.UTC(), string(participants),
			e.CompanyID, e.OpportunityID, e.Notes,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert event %s", e.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit load")
}

// FindCandidates recalls type-matching records whose folded name or aliases
// contain any query token.
func (s *SQLite) FindCandidates(ctx context.Context, t model.EntityType, query string, hints Hints) ([]model.EntityRecord, error) {
	tokens := foldTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	q := `SELECT id, type, name, aliases, attributes FROM crm_records WHERE type = ?`
	args := []any{string(t)}
	var clauses []string
	for _, tok := range tokens {
		clauses = append(clauses, `(name_folded LIKE ? OR alias_folded LIKE ?)`)
		pat := "%" + tok + "%"
		args = append(args, pat, pat)
	}
	q += ` AND (` + strings.Join(clauses, " OR ") + `) ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sqlite: find candidates")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.EntityRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sqlite: scan candidates")
	}
	return out, nil
}

// Get fetches a record by type and ID.
func (s *SQLite) Get(ctx context.Context, t model.EntityType, id string) (*model.EntityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, name, aliases, attributes FROM crm_records WHERE type = ? AND id = ?`,
		string(t), id,
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// RecentEvents returns calendar entries within the window ending at now.
func (s *SQLite) RecentEvents(ctx context.Context, now time.Time, windowDays int) ([]model.CalendarEvent, error) {
	since := now.AddDate(0, 0, -windowDays)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, date, participants, company_id, opportunity_id, notes
		 FROM calendar_events WHERE date >= ? AND date <= ? ORDER BY date`,
		since.UTC(), now.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent events")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CalendarEvent
	for rows.Next() {
		var e model.CalendarEvent
		var participants string
		var companyID, opportunityID, notes sql.NullString
		if err := rows.Scan(&e.ID, &e.Title, &e.Date, &participants, &companyID, &opportunityID, &notes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		if err := json.Unmarshal([]byte(participants), &e.Participants); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal participants %s", e.ID)
		}
		e.CompanyID = companyID.String
		e.OpportunityID = opportunityID.String
		e.Notes = notes.String
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: scan events")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.EntityRecord, error) {
	var r model.EntityRecord
	var typ, aliases, attrs string
	if err := row.Scan(&r.ID, &typ, &r.Name, &aliases, &attrs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "sqlite: scan record")
	}
	r.Type = model.EntityType(typ)
	if err := json.Unmarshal([]byte(aliases), &r.Aliases); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal aliases %s", r.ID)
	}
	if err := json.Unmarshal([]byte(attrs), &r.Attributes); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal attributes %s", r.ID)
	}
	return &r, nil
}

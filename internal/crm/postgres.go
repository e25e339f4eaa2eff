package crm

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/meeting-agent/internal/model"
)

// Pool is the subset of pgxpool.Pool the postgres store uses. pgxmock
// satisfies it in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres serves the read-query contract from a crm_records table kept in
// sync by an external export job.
type Postgres struct {
	pool Pool
}

// NewPostgres connects a pool to the given database URL.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "postgres: connect")
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// FindCandidates recalls type-matching records via case-insensitive token
// containment on name and aliases.
func (p *Postgres) FindCandidates(ctx context.Context, t model.EntityType, query string, hints Hints) ([]model.EntityRecord, error) {
	tokens := foldTokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	q := `SELECT id, type, name, aliases, attributes FROM crm_records WHERE type = $1 AND (`
	args := []any{string(t)}
	var clauses []string
	for _, tok := range tokens {
		args = append(args, "%"+tok+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses,
			`name ILIKE $`+n+` OR array_to_string(aliases, ' ') ILIKE $`+n)
	}
	q += strings.Join(clauses, " OR ") + `) ORDER BY id`

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "postgres: find candidates")
	}
	defer rows.Close()

	var out []model.EntityRecord
	for rows.Next() {
		r, err := scanPGRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "postgres: scan candidates")
	}
	return out, nil
}

// Get fetches a record by type and ID.
func (p *Postgres) Get(ctx context.Context, t model.EntityType, id string) (*model.EntityRecord, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, type, name, aliases, attributes FROM crm_records WHERE type = $1 AND id = $2`,
		string(t), id,
	)
	r, err := scanPGRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func scanPGRecord(row pgx.Row) (*model.EntityRecord, error) {
	var r model.EntityRecord
	var typ string
	var aliases []string
	var attrs []byte
	if err := row.Scan(&r.ID, &typ, &r.Name, &aliases, &attrs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(errors.Join(ErrUnavailable, err), "postgres: scan record")
	}
	r.Type = model.EntityType(typ)
	r.Aliases = aliases
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &r.Attributes); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal attributes %s", r.ID)
		}
	}
	return &r, nil
}

// Package crm defines the read-only CRM record store contract and its
// implementations. The pipeline never writes to the CRM; it only proposes
// actions for a human (or a downstream executor) to apply.
package crm

import (
	"context"
	"errors"

	"github.com/sells-group/meeting-agent/internal/model"
)

// ErrUnavailable marks the CRM store as unreachable. The orchestrator treats
// any error matching it as fatal for the run: proposing CRM actions against a
// possibly-stale store is unsafe.
var ErrUnavailable = errors.New("crm store unavailable")

// ErrNotFound is returned by Get for an unknown record ID.
var ErrNotFound = errors.New("crm record not found")

// Hints narrows candidate recall with context from the mention. All fields
// are optional; implementations may ignore hints they cannot use.
type Hints struct {
	Company string
	Role    string
	Stage   string
}

// Store is the read query interface over CRM records. Implementations must
// tolerate concurrent readers; no writes occur through this interface.
type Store interface {
	// FindCandidates returns records of the given type that plausibly match
	// the query name. Recall should be broad; precision is the resolver's
	// job. Zero candidates is a normal result, not an error.
	FindCandidates(ctx context.Context, t model.EntityType, query string, hints Hints) ([]model.EntityRecord, error)

	// Get fetches a single record by type and ID.
	Get(ctx context.Context, t model.EntityType, id string) (*model.EntityRecord, error)
}

// IsUnavailable reports whether err indicates store unavailability.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

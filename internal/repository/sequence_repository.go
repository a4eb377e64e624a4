package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SequenceRepository allocates monotonically increasing numbers per scope.
// Request numbers are scoped per (hostel, year, month); certificate numbers
// per (year, month). Allocation is a single atomic upsert so concurrent
// writers can never observe the same value.
type SequenceRepository struct {
	db *sqlx.DB
}

// NewSequenceRepository constructs the repository.
func NewSequenceRepository(db *sqlx.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments and returns the counter for the given scope key.
func (r *SequenceRepository) Next(ctx context.Context, scope string) (int, error) {
	const query = `INSERT INTO sequence_counters (scope, value) VALUES ($1, 1)
ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1
RETURNING value`
	var value int
	if err := r.db.GetContext(ctx, &value, query, scope); err != nil {
		return 0, fmt.Errorf("allocate sequence %s: %w", scope, err)
	}
	return value, nil
}

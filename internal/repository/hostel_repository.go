package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hostelhq/maintenance-api/internal/models"
)

const hostelColumns = `id, name, code, auto_approve_below, supervisor_limit, admin_required_above,
       auto_approve_enabled, is_active, created_at, updated_at`

// HostelRepository reads hostel threshold configuration.
type HostelRepository struct {
	db *sqlx.DB
}

// NewHostelRepository constructs the repository.
func NewHostelRepository(db *sqlx.DB) *HostelRepository {
	return &HostelRepository{db: db}
}

// GetByID fetches an active hostel by identifier.
func (r *HostelRepository) GetByID(ctx context.Context, id string) (*models.Hostel, error) {
	query := fmt.Sprintf(`SELECT %s FROM hostels WHERE id = $1 AND is_active = TRUE`, hostelColumns)
	var hostel models.Hostel
	if err := r.db.GetContext(ctx, &hostel, query, id); err != nil {
		return nil, err
	}
	return &hostel, nil
}

// List returns all active hostels.
func (r *HostelRepository) List(ctx context.Context) ([]models.Hostel, error) {
	query := fmt.Sprintf(`SELECT %s FROM hostels WHERE is_active = TRUE ORDER BY name ASC`, hostelColumns)
	var hostels []models.Hostel
	if err := r.db.SelectContext(ctx, &hostels, query); err != nil {
		return nil, fmt.Errorf("list hostels: %w", err)
	}
	return hostels, nil
}

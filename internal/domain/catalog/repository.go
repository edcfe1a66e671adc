package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines read-only catalog access. The booking engine validates
// against these snapshots but never mutates them.
type Repository interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (*Business, error)
	GetService(ctx context.Context, id uuid.UUID) (*Service, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates a new catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetBusiness(ctx context.Context, id uuid.UUID) (*Business, error) {
	query := `
		SELECT id, name, timezone, is_active, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`

	var business Business
	err := r.db.GetContext(ctx, &business, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &business, nil
}

func (r *repository) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	query := `
		SELECT id, business_id, name, duration_minutes, price, is_active, created_at, updated_at
		FROM services
		WHERE id = $1
	`

	var service Service
	err := r.db.GetContext(ctx, &service, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &service, nil
}

func (r *repository) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	query := `
		SELECT id, business_id, display_name, is_active, created_at, updated_at
		FROM staff
		WHERE id = $1
	`

	var staff Staff
	err := r.db.GetContext(ctx, &staff, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &staff, nil
}

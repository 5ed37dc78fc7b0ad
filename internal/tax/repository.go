package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads owner tax profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetTaxProfile loads the profile for an owner.
func (r *Repository) GetTaxProfile(ctx context.Context, ownerID int64) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `SELECT owner_id, gst_registered, name, email FROM tax_profiles WHERE owner_id = $1`, ownerID).
		Scan(&p.OwnerID, &p.GSTRegistered, &p.Name, &p.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: owner %d", ErrProfileNotFound, ownerID)
		}
		return nil, fmt.Errorf("tax: get profile: %w", err)
	}
	return &p, nil
}

// ListProfiles returns profiles of all active owners.
func (r *Repository) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT owner_id, gst_registered, name, email FROM tax_profiles WHERE is_active ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("tax: list profiles: %w", err)
	}
	profiles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Profile, error) {
		var p Profile
		err := row.Scan(&p.OwnerID, &p.GSTRegistered, &p.Name, &p.Email)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("tax: list profiles: %w", err)
	}
	return profiles, nil
}

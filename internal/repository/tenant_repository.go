// Package repository implements the persistent store over PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/rentbook/internal/database"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

// TenantRepository handles tenant database operations.
type TenantRepository struct {
	db database.PGXDB
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db database.PGXDB) *TenantRepository {
	return &TenantRepository{db: db}
}

// List returns all tenants ordered by room number.
func (r *TenantRepository) List(ctx context.Context) ([]models.Tenant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT room_number, name, rent, created_at, updated_at
		FROM tenants
		ORDER BY room_number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.RoomNumber, &t.Name, &t.Rent, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}
	return tenants, nil
}

// Insert adds a tenant, overwriting any existing tenant with the same room number.
func (r *TenantRepository) Insert(ctx context.Context, tenant *models.Tenant) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO tenants (room_number, name, rent)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_number) DO UPDATE SET
			name = EXCLUDED.name,
			rent = EXCLUDED.rent,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`, tenant.RoomNumber, tenant.Name, tenant.Rent).Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}
	return nil
}

// Delete removes a tenant and everything tied to its room: bills (details go
// with them via FK cascade) and meter name overrides. The bill and override
// references are soft, so the cascade lives here rather than in the schema.
func (r *TenantRepository) Delete(ctx context.Context, roomNumber string) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM bills WHERE tenant_room_number = $1
	`, roomNumber); err != nil {
		return fmt.Errorf("failed to delete bills for room: %w", err)
	}

	if _, err := r.db.Exec(ctx, `
		DELETE FROM meter_name_overrides WHERE tenant_room_number = $1
	`, roomNumber); err != nil {
		return fmt.Errorf("failed to delete meter overrides for room: %w", err)
	}

	if _, err := r.db.Exec(ctx, `
		DELETE FROM tenants WHERE room_number = $1
	`, roomNumber); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
//
// bills.tenant_room_number is deliberately not a foreign key: snapshots may
// legitimately carry bills for rooms that no longer exist, and restoring them
// must not fail at the constraint level. Cascade on tenant delete is handled
// in the tenant repository instead.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			room_number TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			rent DECIMAL(12, 2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS bills (
			id SERIAL PRIMARY KEY,
			tenant_room_number TEXT NOT NULL,
			month TEXT NOT NULL,
			total_amount DECIMAL(12, 2) NOT NULL,
			created_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (tenant_room_number, month)
		)`,

		`CREATE TABLE IF NOT EXISTS bill_details (
			id SERIAL PRIMARY KEY,
			bill_id INTEGER NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
			position INTEGER NOT NULL DEFAULT 0,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			amount DECIMAL(12, 2) NOT NULL,
			price_per_unit DECIMAL(12, 4),
			previous_reading DECIMAL(12, 2),
			current_reading DECIMAL(12, 2),
			usage_amount DECIMAL(12, 2)
		)`,

		`CREATE TABLE IF NOT EXISTS meter_name_overrides (
			id SERIAL PRIMARY KEY,
			meter_type TEXT NOT NULL,
			default_name TEXT NOT NULL,
			custom_name TEXT NOT NULL,
			tenant_room_number TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (meter_type, default_name, tenant_room_number)
		)`,

		`CREATE TABLE IF NOT EXISTS price_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			water_price_per_unit DECIMAL(12, 4) NOT NULL DEFAULT 0,
			electricity_price_per_unit DECIMAL(12, 4) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS privacy_keywords (
			id SERIAL PRIMARY KEY,
			keyword TEXT NOT NULL UNIQUE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bills_tenant_room_number ON bills(tenant_room_number)`,
		`CREATE INDEX IF NOT EXISTS idx_bill_details_bill_id ON bill_details(bill_id)`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_tenant_room_number ON meter_name_overrides(tenant_room_number)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

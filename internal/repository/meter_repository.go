package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/rentbook/internal/database"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

// ErrMainMeterImmutable is returned when a caller tries to override the name
// of a reserved main meter.
var ErrMainMeterImmutable = errors.New("main meter names cannot be overridden")

// ErrNotExtraMeter is returned when the default name does not denote an
// extra meter eligible for a custom name.
var ErrNotExtraMeter = errors.New("only extra meters may be renamed")

// MeterRepository handles meter name override database operations.
type MeterRepository struct {
	db database.PGXDB
}

// NewMeterRepository creates a new MeterRepository.
func NewMeterRepository(db database.PGXDB) *MeterRepository {
	return &MeterRepository{db: db}
}

// List returns all meter name overrides.
func (r *MeterRepository) List(ctx context.Context) ([]models.MeterNameOverride, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, meter_type, default_name, custom_name, tenant_room_number, is_active, created_date, updated_date
		FROM meter_name_overrides
		ORDER BY tenant_room_number, default_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query meter overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.MeterNameOverride
	for rows.Next() {
		var o models.MeterNameOverride
		if err := rows.Scan(
			&o.ID, &o.MeterType, &o.DefaultName, &o.CustomName,
			&o.TenantRoomNumber, &o.IsActive, &o.CreatedDate, &o.UpdatedDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan meter override: %w", err)
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meter overrides: %w", err)
	}
	return overrides, nil
}

// Save upserts a custom display name for an extra meter, keyed by
// (meterType, defaultName, tenantRoomNumber). Reserved main meter names are
// rejected unconditionally.
func (r *MeterRepository) Save(ctx context.Context, defaultName, customName, meterType, tenantRoomNumber string) error {
	switch models.ClassifyMeter(defaultName) {
	case models.MeterClassMain:
		return ErrMainMeterImmutable
	case models.MeterClassExtra:
		// eligible
	default:
		return ErrNotExtraMeter
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO meter_name_overrides (meter_type, default_name, custom_name, tenant_room_number, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (meter_type, default_name, tenant_room_number) DO UPDATE SET
			custom_name = EXCLUDED.custom_name,
			is_active = TRUE,
			updated_date = NOW()
	`, meterType, defaultName, customName, tenantRoomNumber)
	if err != nil {
		return fmt.Errorf("failed to save meter override: %w", err)
	}
	return nil
}

// ResolveDisplayName returns the active custom name for a meter, or the
// default name when no override exists.
func (r *MeterRepository) ResolveDisplayName(ctx context.Context, defaultName, tenantRoomNumber string) (string, error) {
	var customName string
	err := r.db.QueryRow(ctx, `
		SELECT custom_name FROM meter_name_overrides
		WHERE default_name = $1 AND tenant_room_number = $2 AND is_active
	`, defaultName, tenantRoomNumber).Scan(&customName)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultName, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve meter display name: %w", err)
	}
	return customName, nil
}

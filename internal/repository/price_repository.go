package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/rentbook/internal/database"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

// PriceRepository handles the price settings singleton and privacy keywords.
type PriceRepository struct {
	db database.PGXDB
}

// NewPriceRepository creates a new PriceRepository.
func NewPriceRepository(db database.PGXDB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Get returns the current price settings including privacy keywords.
// A store that has never been configured yields zero prices.
func (r *PriceRepository) Get(ctx context.Context) (*models.PriceSettings, error) {
	settings := &models.PriceSettings{
		WaterPricePerUnit:       decimal.Zero,
		ElectricityPricePerUnit: decimal.Zero,
	}

	err := r.db.QueryRow(ctx, `
		SELECT water_price_per_unit, electricity_price_per_unit
		FROM price_settings WHERE id = 1
	`).Scan(&settings.WaterPricePerUnit, &settings.ElectricityPricePerUnit)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get price settings: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT keyword FROM privacy_keywords ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query privacy keywords: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("failed to scan privacy keyword: %w", err)
		}
		settings.PrivacyKeywords = append(settings.PrivacyKeywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating privacy keywords: %w", err)
	}

	return settings, nil
}

// SavePrices updates the unit prices singleton.
func (r *PriceRepository) SavePrices(ctx context.Context, water, electricity decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO price_settings (id, water_price_per_unit, electricity_price_per_unit)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			water_price_per_unit = EXCLUDED.water_price_per_unit,
			electricity_price_per_unit = EXCLUDED.electricity_price_per_unit,
			updated_at = NOW()
	`, water, electricity)
	if err != nil {
		return fmt.Errorf("failed to save price settings: %w", err)
	}
	return nil
}

// SavePrivacyKeywords replaces the privacy keyword list wholesale.
func (r *PriceRepository) SavePrivacyKeywords(ctx context.Context, keywords []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM privacy_keywords`); err != nil {
		return fmt.Errorf("failed to clear privacy keywords: %w", err)
	}
	for _, kw := range keywords {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO privacy_keywords (keyword) VALUES ($1)
			ON CONFLICT (keyword) DO NOTHING
		`, kw); err != nil {
			return fmt.Errorf("failed to save privacy keyword %q: %w", kw, err)
		}
	}
	return nil
}

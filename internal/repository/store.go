package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/rentbook/internal/database"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

// Store aggregates the per-entity repositories into the single store surface
// the backup engine consumes.
type Store struct {
	Tenants *TenantRepository
	Bills   *BillRepository
	Prices  *PriceRepository
	Meters  *MeterRepository
}

// NewStore creates a Store over the given database handle.
func NewStore(db database.PGXDB) *Store {
	return &Store{
		Tenants: NewTenantRepository(db),
		Bills:   NewBillRepository(db),
		Prices:  NewPriceRepository(db),
		Meters:  NewMeterRepository(db),
	}
}

// ListTenants returns all tenants.
func (s *Store) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	return s.Tenants.List(ctx)
}

// InsertTenant adds or overwrites a tenant.
func (s *Store) InsertTenant(ctx context.Context, tenant *models.Tenant) error {
	return s.Tenants.Insert(ctx, tenant)
}

// DeleteTenant removes a tenant and cascades to its bills and overrides.
func (s *Store) DeleteTenant(ctx context.Context, roomNumber string) error {
	return s.Tenants.Delete(ctx, roomNumber)
}

// ListBillsWithDetails returns all bills with their details.
func (s *Store) ListBillsWithDetails(ctx context.Context) ([]models.Bill, error) {
	return s.Bills.ListWithDetails(ctx)
}

// SaveBill upserts a bill and its details.
func (s *Store) SaveBill(ctx context.Context, bill *models.Bill, details []models.BillDetail) error {
	return s.Bills.Save(ctx, bill, details)
}

// GetPriceSettings returns the price settings singleton.
func (s *Store) GetPriceSettings(ctx context.Context) (*models.PriceSettings, error) {
	return s.Prices.Get(ctx)
}

// SavePriceSettings updates the unit prices.
func (s *Store) SavePriceSettings(ctx context.Context, water, electricity decimal.Decimal) error {
	return s.Prices.SavePrices(ctx, water, electricity)
}

// SavePrivacyKeywords replaces the privacy keyword list.
func (s *Store) SavePrivacyKeywords(ctx context.Context, keywords []string) error {
	return s.Prices.SavePrivacyKeywords(ctx, keywords)
}

// ListMeterNameOverrides returns all meter name overrides.
func (s *Store) ListMeterNameOverrides(ctx context.Context) ([]models.MeterNameOverride, error) {
	return s.Meters.List(ctx)
}

// SaveMeterNameOverride upserts an extra-meter display name.
func (s *Store) SaveMeterNameOverride(ctx context.Context, defaultName, customName, meterType, tenantRoomNumber string) error {
	return s.Meters.Save(ctx, defaultName, customName, meterType, tenantRoomNumber)
}

// ResolveMeterDisplayName returns the live display name for a meter.
func (s *Store) ResolveMeterDisplayName(ctx context.Context, defaultName, tenantRoomNumber string) (string, error) {
	return s.Meters.ResolveDisplayName(ctx, defaultName, tenantRoomNumber)
}

// Package backuptest provides an in-memory store for backup engine tests.
package backuptest

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/rentbook/internal/models"
	"gitlab.com/yelinaung/rentbook/internal/repository"
)

// ErrInjected is returned by operations whose failure has been requested.
var ErrInjected = errors.New("injected store failure")

// MemStore is an in-memory implementation of the backup engine's store
// surface, mirroring the cascade and invariant semantics of the real
// PostgreSQL-backed store.
type MemStore struct {
	mu sync.Mutex

	tenants   map[string]models.Tenant
	bills     map[string]models.Bill
	overrides map[string]models.MeterNameOverride
	prices    models.PriceSettings
	keywords  []string

	nextBillID int

	// Error injection toggles, checked per call.
	FailInsertTenant bool
	FailSaveBill     bool
	FailListTenants  bool
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		tenants:   make(map[string]models.Tenant),
		bills:     make(map[string]models.Bill),
		overrides: make(map[string]models.MeterNameOverride),
	}
}

func billKey(room, month string) string {
	return room + "\x00" + month
}

func overrideKey(meterType, defaultName, room string) string {
	return meterType + "\x00" + defaultName + "\x00" + room
}

// ListTenants returns all tenants.
func (s *MemStore) ListTenants(_ context.Context) ([]models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailListTenants {
		return nil, ErrInjected
	}
	out := make([]models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, t)
	}
	return out, nil
}

// InsertTenant adds or overwrites a tenant.
func (s *MemStore) InsertTenant(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsertTenant {
		return ErrInjected
	}
	s.tenants[tenant.RoomNumber] = *tenant
	return nil
}

// DeleteTenant removes a tenant and cascades to its bills and overrides.
func (s *MemStore) DeleteTenant(_ context.Context, roomNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, roomNumber)
	for key, bill := range s.bills {
		if bill.TenantRoomNumber == roomNumber {
			delete(s.bills, key)
		}
	}
	for key, o := range s.overrides {
		if o.TenantRoomNumber == roomNumber {
			delete(s.overrides, key)
		}
	}
	return nil
}

// ListBillsWithDetails returns all bills with details.
func (s *MemStore) ListBillsWithDetails(_ context.Context) ([]models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, b)
	}
	return out, nil
}

// SaveBill upserts a bill keyed by (room, month) and replaces its details.
func (s *MemStore) SaveBill(_ context.Context, bill *models.Bill, details []models.BillDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaveBill {
		return ErrInjected
	}
	key := billKey(bill.TenantRoomNumber, bill.Month)
	if existing, ok := s.bills[key]; ok {
		bill.ID = existing.ID
	} else {
		s.nextBillID++
		bill.ID = s.nextBillID
	}
	bill.Details = details
	s.bills[key] = *bill
	return nil
}

// GetPriceSettings returns the current price settings.
func (s *MemStore) GetPriceSettings(_ context.Context) (*models.PriceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.prices
	settings.PrivacyKeywords = append([]string(nil), s.keywords...)
	return &settings, nil
}

// SavePriceSettings updates the unit prices.
func (s *MemStore) SavePriceSettings(_ context.Context, water, electricity decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices.WaterPricePerUnit = water
	s.prices.ElectricityPricePerUnit = electricity
	return nil
}

// SavePrivacyKeywords replaces the keyword list.
func (s *MemStore) SavePrivacyKeywords(_ context.Context, keywords []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = append([]string(nil), keywords...)
	return nil
}

// ListMeterNameOverrides returns all overrides.
func (s *MemStore) ListMeterNameOverrides(_ context.Context) ([]models.MeterNameOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MeterNameOverride, 0, len(s.overrides))
	for _, o := range s.overrides {
		out = append(out, o)
	}
	return out, nil
}

// SaveMeterNameOverride upserts an override, enforcing the extra-meter-only
// invariant the same way the real store does.
func (s *MemStore) SaveMeterNameOverride(_ context.Context, defaultName, customName, meterType, tenantRoomNumber string) error {
	switch models.ClassifyMeter(defaultName) {
	case models.MeterClassMain:
		return repository.ErrMainMeterImmutable
	case models.MeterClassExtra:
		// eligible
	default:
		return repository.ErrNotExtraMeter
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[overrideKey(meterType, defaultName, tenantRoomNumber)] = models.MeterNameOverride{
		MeterType:        meterType,
		DefaultName:      defaultName,
		CustomName:       customName,
		TenantRoomNumber: tenantRoomNumber,
		IsActive:         true,
	}
	return nil
}

// ResolveMeterDisplayName returns the active custom name or the default.
func (s *MemStore) ResolveMeterDisplayName(_ context.Context, defaultName, tenantRoomNumber string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.overrides {
		if o.DefaultName == defaultName && o.TenantRoomNumber == tenantRoomNumber && o.IsActive {
			return o.CustomName, nil
		}
	}
	return defaultName, nil
}

// SeedTenant inserts a tenant directly, bypassing error injection.
func (s *MemStore) SeedTenant(tenant models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[tenant.RoomNumber] = tenant
}

// SeedBill inserts a bill directly.
func (s *MemStore) SeedBill(bill models.Bill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBillID++
	bill.ID = s.nextBillID
	s.bills[billKey(bill.TenantRoomNumber, bill.Month)] = bill
}

// SeedPrices sets the price settings directly.
func (s *MemStore) SeedPrices(settings models.PriceSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = models.PriceSettings{
		WaterPricePerUnit:       settings.WaterPricePerUnit,
		ElectricityPricePerUnit: settings.ElectricityPricePerUnit,
	}
	s.keywords = append([]string(nil), settings.PrivacyKeywords...)
}

// SeedOverride inserts an override directly, without invariant checks.
func (s *MemStore) SeedOverride(o models.MeterNameOverride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[overrideKey(o.MeterType, o.DefaultName, o.TenantRoomNumber)] = o
}

// TenantCount returns the number of stored tenants.
func (s *MemStore) TenantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tenants)
}

// Tenant returns the stored tenant for a room, if any.
func (s *MemStore) Tenant(roomNumber string) (models.Tenant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[roomNumber]
	return t, ok
}

// Bill returns the stored bill for a room and month, if any.
func (s *MemStore) Bill(roomNumber, month string) (models.Bill, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[billKey(roomNumber, month)]
	return b, ok
}

// Override returns the stored override for a key, if any.
func (s *MemStore) Override(meterType, defaultName, roomNumber string) (models.MeterNameOverride, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.overrides[overrideKey(meterType, defaultName, roomNumber)]
	return o, ok
}

package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/rentbook/internal/models"
)

// Wire types for the exported snapshot. Export always writes the nested
// room→month bill shape so that older import code can still read it, even
// though import accepts the flat shape too.
type wireSnapshot struct {
	Metadata     Metadata                             `json:"metadata"`
	Tenants      []wireTenant                         `json:"tenants"`
	Bills        map[string]map[string]wireNestedBill `json:"bills"`
	Prices       wirePrices                           `json:"prices"`
	MeterConfigs []wireMeterConfig                    `json:"meterConfigs"`
}

type wireTenant struct {
	RoomNumber string          `json:"roomNumber"`
	Name       string          `json:"name"`
	Rent       decimal.Decimal `json:"rent"`
}

type wireNestedBill struct {
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	CreatedDate time.Time         `json:"createdDate"`
	Water       *wireMeterReading `json:"water,omitempty"`
	Electricity *wireMeterReading `json:"electricity,omitempty"`
	ExtraMeters []wireExtraMeter  `json:"extraMeters,omitempty"`
	ExtraFees   []wireExtraFee    `json:"extraFees,omitempty"`
	Rent        *decimal.Decimal  `json:"rent,omitempty"`
}

type wireMeterReading struct {
	Amount          decimal.Decimal  `json:"amount"`
	PricePerUnit    *decimal.Decimal `json:"pricePerUnit,omitempty"`
	PreviousReading *decimal.Decimal `json:"previousReading,omitempty"`
	CurrentReading  *decimal.Decimal `json:"currentReading,omitempty"`
	Usage           *decimal.Decimal `json:"usage,omitempty"`
}

type wireExtraMeter struct {
	Name            string           `json:"name"`
	Type            string           `json:"type"`
	Amount          decimal.Decimal  `json:"amount"`
	PricePerUnit    *decimal.Decimal `json:"pricePerUnit,omitempty"`
	PreviousReading *decimal.Decimal `json:"previousReading,omitempty"`
	CurrentReading  *decimal.Decimal `json:"currentReading,omitempty"`
	Usage           *decimal.Decimal `json:"usage,omitempty"`
}

type wireExtraFee struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type wirePrices struct {
	WaterPricePerUnit       decimal.Decimal `json:"waterPricePerUnit"`
	ElectricityPricePerUnit decimal.Decimal `json:"electricityPricePerUnit"`
	PrivacyKeywords         []string        `json:"privacyKeywords"`
}

type wireMeterConfig struct {
	MeterType        string    `json:"meterType"`
	DefaultName      string    `json:"defaultName"`
	CustomName       string    `json:"customName"`
	TenantRoomNumber string    `json:"tenantRoomNumber"`
	IsActive         bool      `json:"isActive"`
	CreatedDate      time.Time `json:"createdDate"`
	UpdatedDate      time.Time `json:"updatedDate"`
}

// Exporter serializes the store's four collections into a snapshot.
type Exporter struct {
	store      Store
	appVersion string
	tracer     trace.Tracer
}

// NewExporter creates an Exporter over the given store.
func NewExporter(store Store, appVersion string) *Exporter {
	return &Exporter{
		store:      store,
		appVersion: appVersion,
		tracer:     otel.Tracer("rentbook/backup"),
	}
}

// Export walks the store and produces snapshot bytes. Extra-meter detail
// names are resolved through the override lookup so the snapshot carries
// the live custom names forward.
func (e *Exporter) Export(ctx context.Context) ([]byte, error) {
	ctx, span := e.tracer.Start(ctx, "backup.export")
	defer span.End()

	tenants, err := e.store.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: failed to list tenants: %w", err)
	}
	bills, err := e.store.ListBillsWithDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: failed to list bills: %w", err)
	}
	prices, err := e.store.GetPriceSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: failed to get price settings: %w", err)
	}
	overrides, err := e.store.ListMeterNameOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: failed to list meter overrides: %w", err)
	}

	snapshot := buildWireSnapshot(tenants, bills, prices, overrides, e.appVersion, time.Now().UTC())

	span.SetAttributes(
		attribute.Int("backup.export.tenants", snapshot.Metadata.TenantCount),
		attribute.Int("backup.export.bills", snapshot.Metadata.BillCount),
	)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("export: failed to serialize snapshot: %w", err)
	}
	return data, nil
}

func buildWireSnapshot(tenants []models.Tenant, bills []models.Bill, prices *models.PriceSettings, overrides []models.MeterNameOverride, appVersion string, now time.Time) *wireSnapshot {
	snapshot := &wireSnapshot{
		Metadata: Metadata{
			DataStructureVersion: CurrentDataStructureVersion,
			ExportTimestamp:      now,
			AppVersion:           appVersion,
			TenantCount:          len(tenants),
			BillCount:            len(bills),
			MeterConfigCount:     len(overrides),
		},
		Tenants: make([]wireTenant, 0, len(tenants)),
		Bills:   make(map[string]map[string]wireNestedBill),
		Prices: wirePrices{
			WaterPricePerUnit:       prices.WaterPricePerUnit,
			ElectricityPricePerUnit: prices.ElectricityPricePerUnit,
			PrivacyKeywords:         prices.PrivacyKeywords,
		},
		MeterConfigs: make([]wireMeterConfig, 0, len(overrides)),
	}
	if snapshot.Prices.PrivacyKeywords == nil {
		snapshot.Prices.PrivacyKeywords = []string{}
	}

	for i := range tenants {
		snapshot.Tenants = append(snapshot.Tenants, wireTenant{
			RoomNumber: tenants[i].RoomNumber,
			Name:       tenants[i].Name,
			Rent:       tenants[i].Rent,
		})
	}

	names := newOverrideLookup(overrides)
	for i := range bills {
		bill := &bills[i]
		months, ok := snapshot.Bills[bill.TenantRoomNumber]
		if !ok {
			months = make(map[string]wireNestedBill)
			snapshot.Bills[bill.TenantRoomNumber] = months
		}
		months[bill.Month] = nestBill(bill, names)
	}

	for i := range overrides {
		o := &overrides[i]
		snapshot.MeterConfigs = append(snapshot.MeterConfigs, wireMeterConfig{
			MeterType:        o.MeterType,
			DefaultName:      o.DefaultName,
			CustomName:       o.CustomName,
			TenantRoomNumber: o.TenantRoomNumber,
			IsActive:         o.IsActive,
			CreatedDate:      o.CreatedDate,
			UpdatedDate:      o.UpdatedDate,
		})
	}

	return snapshot
}

// nestBill converts a flat bill into the nested month entry. Main meter
// details fill the water/electricity slots; other metered details become
// extraMeters with their override-resolved names; extra and non-zero other
// details become extraFees; rent details fold into the rent scalar.
func nestBill(bill *models.Bill, names *overrideLookup) wireNestedBill {
	nested := wireNestedBill{
		TotalAmount: bill.TotalAmount,
		CreatedDate: bill.CreatedDate,
	}

	for i := range bill.Details {
		d := &bill.Details[i]
		switch {
		case d.Type == models.DetailTypeWater && d.Name == models.MainWaterMeterName:
			nested.Water = readingFromDetail(d)
		case d.Type == models.DetailTypeElectricity && d.Name == models.MainElectricityMeterName:
			nested.Electricity = readingFromDetail(d)
		case d.Type == models.DetailTypeWater || d.Type == models.DetailTypeElectricity:
			nested.ExtraMeters = append(nested.ExtraMeters, wireExtraMeter{
				Name:            names.resolve(d.Name, bill.TenantRoomNumber),
				Type:            d.Type,
				Amount:          d.Amount,
				PricePerUnit:    d.PricePerUnit,
				PreviousReading: d.PreviousReading,
				CurrentReading:  d.CurrentReading,
				Usage:           d.Usage,
			})
		case d.Type == models.DetailTypeRent:
			if d.Amount.IsPositive() {
				rent := d.Amount
				if nested.Rent != nil {
					rent = nested.Rent.Add(d.Amount)
				}
				nested.Rent = &rent
			}
		case d.Type == models.DetailTypeOther && d.Amount.IsZero():
			// Synthesized placeholder; import recreates it for empty bills.
		default:
			nested.ExtraFees = append(nested.ExtraFees, wireExtraFee{
				Name:   d.Name,
				Amount: d.Amount,
			})
		}
	}

	return nested
}

func readingFromDetail(d *models.BillDetail) *wireMeterReading {
	return &wireMeterReading{
		Amount:          d.Amount,
		PricePerUnit:    d.PricePerUnit,
		PreviousReading: d.PreviousReading,
		CurrentReading:  d.CurrentReading,
		Usage:           d.Usage,
	}
}

// overrideLookup resolves a meter's live display name from the active
// overrides, mirroring the store's resolveMeterDisplayName without a
// per-detail query.
type overrideLookup struct {
	byKey map[string]string
}

func newOverrideLookup(overrides []models.MeterNameOverride) *overrideLookup {
	l := &overrideLookup{byKey: make(map[string]string, len(overrides))}
	for i := range overrides {
		if !overrides[i].IsActive || overrides[i].CustomName == "" {
			continue
		}
		l.byKey[overrideKey(overrides[i].DefaultName, overrides[i].TenantRoomNumber)] = overrides[i].CustomName
	}
	return l
}

func (l *overrideLookup) resolve(defaultName, tenantRoomNumber string) string {
	if custom, ok := l.byKey[overrideKey(defaultName, tenantRoomNumber)]; ok {
		return custom
	}
	return defaultName
}

func overrideKey(defaultName, tenantRoomNumber string) string {
	return tenantRoomNumber + "\x00" + defaultName
}

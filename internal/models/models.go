// Package models defines the domain entities for the rental manager.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillDetail types. Water and electricity details carry meter readings;
// the detail name doubles as the meter identity for those two types.
const (
	DetailTypeWater       = "water"
	DetailTypeElectricity = "electricity"
	DetailTypeExtra       = "extra"
	DetailTypeRent        = "rent"
	DetailTypeOther       = "other"
)

// Reserved names of the primary meters. These are immutable: they can never
// receive a custom display name.
const (
	MainWaterMeterName       = "Main Water Meter"
	MainElectricityMeterName = "Main Electricity Meter"
)

// Meter types for name overrides.
const (
	MeterTypeWater       = "water"
	MeterTypeElectricity = "electricity"
)

// MonthFormat is the canonical billing month layout (e.g. "2024-03").
const MonthFormat = "2006-01"

// Tenant represents one rented room. RoomNumber is the identity.
type Tenant struct {
	RoomNumber string
	Name       string
	Rent       decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Bill is one month's bill for a tenant. TenantRoomNumber is a soft
// reference; the store does not enforce it.
type Bill struct {
	ID               int
	TenantRoomNumber string
	Month            string
	TotalAmount      decimal.Decimal
	CreatedDate      time.Time
	Details          []BillDetail
}

// BillDetail is a single line item on a bill. The reading fields are only
// present for metered types.
type BillDetail struct {
	ID              int
	BillID          int
	Type            string
	Name            string
	Amount          decimal.Decimal
	PricePerUnit    *decimal.Decimal
	PreviousReading *decimal.Decimal
	CurrentReading  *decimal.Decimal
	Usage           *decimal.Decimal
}

// ResolvedUsage returns the explicit usage when present, otherwise
// current - previous when both readings exist.
func (d *BillDetail) ResolvedUsage() *decimal.Decimal {
	if d.Usage != nil {
		return d.Usage
	}
	if d.PreviousReading != nil && d.CurrentReading != nil {
		u := d.CurrentReading.Sub(*d.PreviousReading)
		return &u
	}
	return nil
}

// MeterNameOverride maps a (meterType, defaultName, tenantRoomNumber) triple
// to a custom display name. Only extra meters may be overridden.
type MeterNameOverride struct {
	ID               int
	MeterType        string
	DefaultName      string
	CustomName       string
	TenantRoomNumber string
	IsActive         bool
	CreatedDate      time.Time
	UpdatedDate      time.Time
}

// PriceSettings is the per-store singleton of unit prices plus the privacy
// keywords used to redact room numbers on generated receipts.
type PriceSettings struct {
	WaterPricePerUnit       decimal.Decimal
	ElectricityPricePerUnit decimal.Decimal
	PrivacyKeywords         []string
}

// MeterClass is the result of classifying a meter name.
type MeterClass int

const (
	// MeterClassMain is a reserved primary meter; its name is immutable.
	MeterClassMain MeterClass = iota
	// MeterClassExtra is a secondary meter eligible for a custom name.
	MeterClassExtra
	// MeterClassNone is anything that is not a meter at all.
	MeterClassNone
)

// ClassifyMeter decides whether a default meter name denotes a main meter,
// an extra meter, or no meter. The rule is a substring heuristic today; all
// call sites go through here so it can become an explicit type tag later.
func ClassifyMeter(defaultName string) MeterClass {
	if defaultName == MainWaterMeterName || defaultName == MainElectricityMeterName {
		return MeterClassMain
	}
	if containsMeterWord(defaultName) {
		return MeterClassExtra
	}
	return MeterClassNone
}

func containsMeterWord(name string) bool {
	return strings.Contains(name, "Water Meter") || strings.Contains(name, "Electricity Meter")
}

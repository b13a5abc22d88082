// Package backup implements the export/import data-migration engine.
//
// A snapshot is a UTF-8 JSON document carrying the application's entire
// persisted state: tenants, bills with details, price settings and meter
// name overrides, plus metadata. Export always writes the nested
// room→month bill shape for backward readability; import additionally
// accepts the flat bill list and several legacy field spellings.
package backup

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrentDataStructureVersion is the version written by the exporter.
const CurrentDataStructureVersion = 2

// knownDataStructureVersions are the versions the importer understands
// natively. Anything else is a warning, not an error.
var knownDataStructureVersions = map[int]bool{1: true, 2: true}

func init() {
	// Snapshot numbers are plain JSON numbers, matching what the historical
	// exporters wrote and what older import code expects to read back.
	decimal.MarshalJSONWithoutQuotes = true
}

// Metadata describes a snapshot: who wrote it, when, and how much it holds.
type Metadata struct {
	DataStructureVersion int       `json:"dataStructureVersion"`
	ExportTimestamp      time.Time `json:"exportTimestamp"`
	AppVersion           string    `json:"appVersion"`
	TenantCount          int       `json:"tenantCount"`
	BillCount            int       `json:"billCount"`
	MeterConfigCount     int       `json:"meterConfigCount"`
}

// flexTime is a timestamp that unmarshals from either an RFC 3339 string or
// a millisecond epoch number (the shape older exports used). It marshals as
// RFC 3339.
type flexTime struct {
	time.Time
}

func (t flexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time)
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, str)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	var millis int64
	if err := json.Unmarshal(b, &millis); err != nil {
		return err
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}

// rawSnapshot is the strict intermediate representation of an incoming
// snapshot. Polymorphic fields stay as json.RawMessage until the normalizer
// decides which historical shape they use; nothing downstream ever probes
// the raw document again.
type rawSnapshot struct {
	Metadata     *rawMetadata     `json:"metadata"`
	Tenants      json.RawMessage  `json:"tenants"`
	Bills        json.RawMessage  `json:"bills"`
	Prices       *rawPrices       `json:"prices"`
	PricesLegacy *rawPrices       `json:"price"`
	MeterConfigs []rawMeterConfig `json:"meterConfigs"`
}

// prices returns whichever of the current or legacy price keys is present,
// preferring the current one.
func (r *rawSnapshot) prices() *rawPrices {
	if r.Prices != nil {
		return r.Prices
	}
	return r.PricesLegacy
}

type rawMetadata struct {
	DataStructureVersion *int      `json:"dataStructureVersion"`
	ExportTimestamp      *flexTime `json:"exportTimestamp"`
	AppVersion           *string   `json:"appVersion"`
}

// rawTenant accepts both the current camelCase and the legacy snake_case
// spelling of the room number key.
type rawTenant struct {
	RoomNumber       *string          `json:"roomNumber"`
	RoomNumberLegacy *string          `json:"room_number"`
	Name             *string          `json:"name"`
	Rent             *decimal.Decimal `json:"rent"`
}

// roomNumber prefers the current key when both are present.
func (t *rawTenant) roomNumber() string {
	if t.RoomNumber != nil {
		return *t.RoomNumber
	}
	if t.RoomNumberLegacy != nil {
		return *t.RoomNumberLegacy
	}
	return ""
}

// rawBill is the canonical flat bill record. The normalizer flattens the
// nested room→month shape into this form, so validation only ever sees it.
type rawBill struct {
	TenantRoomNumber       *string          `json:"tenantRoomNumber"`
	TenantRoomNumberLegacy *string          `json:"tenant_room_number"`
	Month                  *string          `json:"month"`
	TotalAmount            *decimal.Decimal `json:"totalAmount"`
	CreatedDate            *flexTime        `json:"createdDate"`
	Details                []rawBillDetail  `json:"details"`
}

func (b *rawBill) roomNumber() string {
	if b.TenantRoomNumber != nil {
		return *b.TenantRoomNumber
	}
	if b.TenantRoomNumberLegacy != nil {
		return *b.TenantRoomNumberLegacy
	}
	return ""
}

type rawBillDetail struct {
	Type            *string          `json:"type"`
	Name            *string          `json:"name"`
	Amount          *decimal.Decimal `json:"amount"`
	PricePerUnit    *decimal.Decimal `json:"pricePerUnit"`
	PreviousReading *decimal.Decimal `json:"previousReading"`
	CurrentReading  *decimal.Decimal `json:"currentReading"`
	Usage           *decimal.Decimal `json:"usage"`
}

// rawNestedBill is one month's bill data inside the legacy room→month map.
type rawNestedBill struct {
	TotalAmount *decimal.Decimal `json:"totalAmount"`
	CreatedDate *flexTime        `json:"createdDate"`
	Water       *rawMeterReading `json:"water"`
	Electricity *rawMeterReading `json:"electricity"`
	ExtraMeters []rawExtraMeter  `json:"extraMeters"`
	ExtraFees   []rawExtraFee    `json:"extraFees"`
	Rent        *decimal.Decimal `json:"rent"`
}

type rawMeterReading struct {
	Amount          *decimal.Decimal `json:"amount"`
	PricePerUnit    *decimal.Decimal `json:"pricePerUnit"`
	PreviousReading *decimal.Decimal `json:"previousReading"`
	CurrentReading  *decimal.Decimal `json:"currentReading"`
	Usage           *decimal.Decimal `json:"usage"`
}

type rawExtraMeter struct {
	Name            *string          `json:"name"`
	Type            *string          `json:"type"`
	Amount          *decimal.Decimal `json:"amount"`
	PricePerUnit    *decimal.Decimal `json:"pricePerUnit"`
	PreviousReading *decimal.Decimal `json:"previousReading"`
	CurrentReading  *decimal.Decimal `json:"currentReading"`
	Usage           *decimal.Decimal `json:"usage"`
}

type rawExtraFee struct {
	Name   *string          `json:"name"`
	Amount *decimal.Decimal `json:"amount"`
}

// rawPrices accepts both the current and legacy unit price keys, and a
// privacyKeywords value that is either a JSON array or a JSON string
// containing a serialized array.
type rawPrices struct {
	WaterPricePerUnit       *decimal.Decimal `json:"waterPricePerUnit"`
	WaterPriceLegacy        *decimal.Decimal `json:"waterPrice"`
	ElectricityPricePerUnit *decimal.Decimal `json:"electricityPricePerUnit"`
	ElectricityPriceLegacy  *decimal.Decimal `json:"electricityPrice"`
	PrivacyKeywords         json.RawMessage  `json:"privacyKeywords"`
}

func (p *rawPrices) waterPrice() *decimal.Decimal {
	if p.WaterPricePerUnit != nil {
		return p.WaterPricePerUnit
	}
	return p.WaterPriceLegacy
}

func (p *rawPrices) electricityPrice() *decimal.Decimal {
	if p.ElectricityPricePerUnit != nil {
		return p.ElectricityPricePerUnit
	}
	return p.ElectricityPriceLegacy
}

type rawMeterConfig struct {
	MeterType        *string   `json:"meterType"`
	DefaultName      *string   `json:"defaultName"`
	CustomName       *string   `json:"customName"`
	TenantRoomNumber *string   `json:"tenantRoomNumber"`
	IsActive         *bool     `json:"isActive"`
	CreatedDate      *flexTime `json:"createdDate"`
	UpdatedDate      *flexTime `json:"updatedDate"`
}

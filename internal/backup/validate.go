package backup

import (
	"fmt"

	"gitlab.com/yelinaung/rentbook/internal/models"
)

// ValidationResult reports what a validator found. Errors reject the entity
// entirely; warnings are advisory and never mutate the value in question.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}

func (r *ValidationResult) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func newValidationResult() ValidationResult {
	return ValidationResult{IsValid: true}
}

// IsValidMonth reports whether s is a canonical "YYYY-MM" billing month.
func IsValidMonth(s string) bool {
	return monthCanonical.MatchString(s)
}

// ValidateSnapshot checks the top-level structure of a parsed snapshot.
// Missing collections are errors; an unknown data structure version is only
// a warning so newer or older exports still import.
func ValidateSnapshot(raw *rawSnapshot) ValidationResult {
	result := newValidationResult()

	if len(raw.Tenants) == 0 {
		result.addError("snapshot: missing required key %q", "tenants")
	}
	if len(raw.Bills) == 0 {
		result.addError("snapshot: missing required key %q", "bills")
	}
	if raw.prices() == nil {
		result.addError("snapshot: missing required key %q", "prices")
	}

	if raw.Metadata != nil && raw.Metadata.DataStructureVersion != nil {
		if !knownDataStructureVersions[*raw.Metadata.DataStructureVersion] {
			result.addWarning("snapshot: unknown dataStructureVersion %d, attempting import anyway",
				*raw.Metadata.DataStructureVersion)
		}
	}

	return result
}

// ValidateTenant checks a single tenant record.
func ValidateTenant(t *rawTenant) ValidationResult {
	result := newValidationResult()

	room := t.roomNumber()
	if room == "" {
		result.addError("tenant: roomNumber is blank")
	}
	if t.Name == nil || *t.Name == "" {
		result.addError("tenant %q: name is blank", room)
	}
	if t.Rent == nil {
		result.addError("tenant %q: rent is missing", room)
	} else if t.Rent.IsNegative() {
		result.addWarning("tenant %q: rent is negative", room)
	}

	return result
}

// ValidateBill checks a canonical flat bill record, including its details
// through the shared meter-detail rule.
func ValidateBill(b *rawBill) ValidationResult {
	result := newValidationResult()

	room := b.roomNumber()
	month := strValue(b.Month)
	if !IsValidMonth(month) {
		result.addError("bill %s/%s: month must match YYYY-MM", room, month)
	}
	if b.TotalAmount == nil {
		result.addError("bill %s/%s: totalAmount is missing", room, month)
	} else if b.TotalAmount.IsNegative() {
		result.addWarning("bill %s/%s: totalAmount is negative", room, month)
	}

	for i := range b.Details {
		validateMeterDetail(&b.Details[i], room, month, &result)
	}

	return result
}

// validateMeterDetail applies the shared rules for metered line items.
// Violations here are warnings: the record still imports as-is.
func validateMeterDetail(d *rawBillDetail, room, month string, result *ValidationResult) {
	name := strValue(d.Name)

	if d.Amount != nil && d.Amount.IsNegative() {
		result.addWarning("bill %s/%s detail %q: amount is negative", room, month, name)
	}

	typ := strValue(d.Type)
	if typ != models.DetailTypeWater && typ != models.DetailTypeElectricity {
		return
	}

	if d.PreviousReading != nil && d.CurrentReading != nil &&
		d.CurrentReading.LessThan(*d.PreviousReading) {
		result.addWarning("bill %s/%s detail %q: current reading is below previous", room, month, name)
	}
	if d.Usage != nil && d.Usage.IsNegative() {
		result.addWarning("bill %s/%s detail %q: usage is negative", room, month, name)
	}
}

// ValidatePrices checks the price settings record. A price of zero may be
// intentional, so non-positive values only warn.
func ValidatePrices(p *rawPrices) ValidationResult {
	result := newValidationResult()

	water := p.waterPrice()
	electricity := p.electricityPrice()

	if water == nil {
		result.addError("prices: waterPricePerUnit is missing")
	} else if !water.IsPositive() {
		result.addWarning("prices: waterPricePerUnit is not positive")
	}
	if electricity == nil {
		result.addError("prices: electricityPricePerUnit is missing")
	} else if !electricity.IsPositive() {
		result.addWarning("prices: electricityPricePerUnit is not positive")
	}

	return result
}

// ValidateMeterConfig checks a single meter name override record.
func ValidateMeterConfig(m *rawMeterConfig) ValidationResult {
	result := newValidationResult()

	name := strValue(m.DefaultName)
	if name == "" {
		result.addError("meterConfig: defaultName is blank")
	}

	typ := strValue(m.MeterType)
	if typ != models.MeterTypeWater && typ != models.MeterTypeElectricity {
		result.addWarning("meterConfig %q: unknown meterType %q", name, typ)
	}
	if m.CustomName == nil || *m.CustomName == "" {
		result.addWarning("meterConfig %q: customName is blank", name)
	}

	return result
}

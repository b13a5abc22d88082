package backup

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

var (
	monthCanonical = regexp.MustCompile(`^\d{4}-\d{2}$`)
	monthSlash     = regexp.MustCompile(`^(\d{4})/(\d{1,2})$`)
	monthCJK       = regexp.MustCompile(`^(\d{4})年(\d{1,2})月$`)
	monthCompact   = regexp.MustCompile(`^\d{6}$`)
	nonDigits      = regexp.MustCompile(`\D`)
)

// NormalizeMonth coerces the month formats historical exports used into the
// canonical "YYYY-MM". Strings it cannot make sense of pass through
// unchanged and fail bill validation downstream.
func NormalizeMonth(s string) string {
	trimmed := strings.TrimSpace(s)
	switch {
	case monthCanonical.MatchString(trimmed):
		return trimmed
	case monthSlash.MatchString(trimmed):
		m := monthSlash.FindStringSubmatch(trimmed)
		return m[1] + "-" + pad2(m[2])
	case monthCJK.MatchString(trimmed):
		m := monthCJK.FindStringSubmatch(trimmed)
		return m[1] + "-" + pad2(m[2])
	case monthCompact.MatchString(trimmed):
		return trimmed[:4] + "-" + trimmed[4:6]
	}

	// Last resort: strip everything that is not a digit and re-derive
	// year and month when enough digits remain.
	digits := nonDigits.ReplaceAllString(trimmed, "")
	if len(digits) >= 6 {
		return digits[:4] + "-" + digits[4:6]
	}
	return s
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// normalizedSnapshot is the output of the normalizer: every collection in
// its canonical raw form, field presence preserved for validation.
type normalizedSnapshot struct {
	Metadata     *rawMetadata
	Tenants      []rawTenant
	Bills        []rawBill
	Prices       *rawPrices
	MeterConfigs []rawMeterConfig
}

// normalize converts a parsed raw snapshot of unknown historical shape into
// the canonical form. It never fails outright; unrecognizable sections are
// reported through the returned problem list and skipped.
func normalize(raw *rawSnapshot) (*normalizedSnapshot, []string) {
	var problems []string
	out := &normalizedSnapshot{
		Metadata: raw.Metadata,
		Prices:   raw.prices(),
	}

	if len(raw.Tenants) > 0 {
		if err := json.Unmarshal(raw.Tenants, &out.Tenants); err != nil {
			problems = append(problems, fmt.Sprintf("tenants: unrecognized shape: %v", err))
		}
	}

	bills, billProblems := normalizeBills(raw.Bills)
	out.Bills = bills
	problems = append(problems, billProblems...)

	out.MeterConfigs = raw.MeterConfigs

	return out, problems
}

// normalizeBills detects which historical encoding the bills value uses.
// A JSON array is the current flat shape; a JSON object is the legacy
// room→month map and gets flattened.
func normalizeBills(raw json.RawMessage) ([]rawBill, []string) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var bills []rawBill
		if err := json.Unmarshal(raw, &bills); err != nil {
			return nil, []string{fmt.Sprintf("bills: malformed list: %v", err)}
		}
		for i := range bills {
			if bills[i].Month != nil {
				coerced := NormalizeMonth(*bills[i].Month)
				bills[i].Month = &coerced
			}
		}
		return bills, nil
	case '{':
		var nested map[string]map[string]rawNestedBill
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, []string{fmt.Sprintf("bills: malformed room/month map: %v", err)}
		}
		return flattenNestedBills(nested), nil
	default:
		return nil, []string{"bills: unrecognized shape, expected array or object"}
	}
}

// flattenNestedBills synthesizes canonical flat bills from the legacy
// room→month map.
func flattenNestedBills(nested map[string]map[string]rawNestedBill) []rawBill {
	var bills []rawBill
	for room, months := range nested {
		for month, data := range months {
			coerced := NormalizeMonth(month)
			bill := rawBill{
				TenantRoomNumber: &room,
				Month:            &coerced,
				TotalAmount:      data.TotalAmount,
				CreatedDate:      data.CreatedDate,
				Details:          synthesizeDetails(&data),
			}
			bills = append(bills, bill)
		}
	}
	return bills
}

// synthesizeDetails converts the nested bill sub-objects into detail line
// items. A bill is never left detail-less: an empty one gets a single
// zero-amount "other" entry.
func synthesizeDetails(data *rawNestedBill) []rawBillDetail {
	var details []rawBillDetail

	if data.Water != nil {
		details = append(details, meterDetail(models.DetailTypeWater, models.MainWaterMeterName, data.Water))
	}
	if data.Electricity != nil {
		details = append(details, meterDetail(models.DetailTypeElectricity, models.MainElectricityMeterName, data.Electricity))
	}

	for i := range data.ExtraMeters {
		m := &data.ExtraMeters[i]
		name := strValue(m.Name)
		typ := strValue(m.Type)
		if typ == "" {
			typ = models.DetailTypeWater
		}
		details = append(details, meterDetail(typ, name, &rawMeterReading{
			Amount:          m.Amount,
			PricePerUnit:    m.PricePerUnit,
			PreviousReading: m.PreviousReading,
			CurrentReading:  m.CurrentReading,
			Usage:           m.Usage,
		}))
	}

	for i := range data.ExtraFees {
		f := &data.ExtraFees[i]
		typ := models.DetailTypeExtra
		details = append(details, rawBillDetail{
			Type:   &typ,
			Name:   f.Name,
			Amount: f.Amount,
		})
	}

	if data.Rent != nil && data.Rent.IsPositive() {
		typ := models.DetailTypeRent
		name := "Rent"
		details = append(details, rawBillDetail{
			Type:   &typ,
			Name:   &name,
			Amount: data.Rent,
		})
	}

	if len(details) == 0 {
		typ := models.DetailTypeOther
		name := "Other"
		zero := decimal.Zero
		details = append(details, rawBillDetail{
			Type:   &typ,
			Name:   &name,
			Amount: &zero,
		})
	}

	return details
}

// meterDetail builds a metered detail line item from a meter reading.
func meterDetail(typ, name string, reading *rawMeterReading) rawBillDetail {
	return rawBillDetail{
		Type:            &typ,
		Name:            &name,
		Amount:          reading.Amount,
		PricePerUnit:    reading.PricePerUnit,
		PreviousReading: reading.PreviousReading,
		CurrentReading:  reading.CurrentReading,
		Usage:           reading.Usage,
	}
}

// normalizePrivacyKeywords accepts either a JSON array of strings or a JSON
// string holding a serialized array (an encoding quirk of older exports).
func normalizePrivacyKeywords(raw json.RawMessage) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var keywords []string
	if err := json.Unmarshal(raw, &keywords); err == nil {
		return keywords, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("privacyKeywords: expected array or string: %w", err)
	}
	if strings.TrimSpace(encoded) == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(encoded), &keywords); err != nil {
		return nil, fmt.Errorf("privacyKeywords: malformed embedded array: %w", err)
	}
	return keywords, nil
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

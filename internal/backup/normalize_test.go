package backup

import (
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gitlab.com/yelinaung/rentbook/internal/models"
)

func TestNormalizeMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "canonical", input: "2024-03", want: "2024-03"},
		{name: "slash", input: "2024/03", want: "2024-03"},
		{name: "slash single digit", input: "2024/3", want: "2024-03"},
		{name: "cjk", input: "2024年03月", want: "2024-03"},
		{name: "cjk single digit", input: "2024年3月", want: "2024-03"},
		{name: "compact", input: "202403", want: "2024-03"},
		{name: "dotted", input: "2024.03", want: "2024-03"},
		{name: "surrounding whitespace", input: " 2024-03 ", want: "2024-03"},
		{name: "garbage passes through", input: "not-a-month", want: "not-a-month"},
		{name: "too few digits passes through", input: "2024", want: "2024"},
		{name: "empty passes through", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, NormalizeMonth(tt.input))
		})
	}
}

func TestNormalizeMonth_LegacyFormatsAgree(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		year := rapid.IntRange(1990, 2099).Draw(t, "year")
		month := rapid.IntRange(1, 12).Draw(t, "month")
		want := fmt.Sprintf("%04d-%02d", year, month)

		variants := []string{
			fmt.Sprintf("%04d-%02d", year, month),
			fmt.Sprintf("%04d/%02d", year, month),
			fmt.Sprintf("%04d/%d", year, month),
			fmt.Sprintf("%04d年%02d月", year, month),
			fmt.Sprintf("%04d年%d月", year, month),
			fmt.Sprintf("%04d%02d", year, month),
		}
		for _, v := range variants {
			if got := NormalizeMonth(v); got != want {
				t.Fatalf("NormalizeMonth(%q) = %q, want %q", v, got, want)
			}
		}
	})
}

func TestNormalizeBills_ShapeDetection(t *testing.T) {
	t.Parallel()

	t.Run("flat list is passed through", func(t *testing.T) {
		t.Parallel()
		raw := json.RawMessage(`[
			{"tenantRoomNumber": "101", "month": "2024/03", "totalAmount": 120.5,
			 "details": [{"type": "water", "name": "Main Water Meter", "amount": 20}]}
		]`)
		bills, problems := normalizeBills(raw)
		require.Empty(t, problems)
		require.Len(t, bills, 1)
		require.Equal(t, "101", bills[0].roomNumber())
		require.Equal(t, "2024-03", *bills[0].Month)
		require.Len(t, bills[0].Details, 1)
	})

	t.Run("nested map is flattened", func(t *testing.T) {
		t.Parallel()
		raw := json.RawMessage(`{
			"101": {
				"2024-03": {
					"totalAmount": 120.5,
					"water": {"amount": 20, "previousReading": 10, "currentReading": 35},
					"rent": 100
				}
			}
		}`)
		bills, problems := normalizeBills(raw)
		require.Empty(t, problems)
		require.Len(t, bills, 1)
		require.Equal(t, "101", bills[0].roomNumber())
		require.Equal(t, "2024-03", *bills[0].Month)

		types := detailTypes(bills[0].Details)
		require.Equal(t, []string{models.DetailTypeRent, models.DetailTypeWater}, types)
	})

	t.Run("scalar bills value is a problem", func(t *testing.T) {
		t.Parallel()
		bills, problems := normalizeBills(json.RawMessage(`42`))
		require.Nil(t, bills)
		require.Len(t, problems, 1)
	})

	t.Run("null is empty", func(t *testing.T) {
		t.Parallel()
		bills, problems := normalizeBills(json.RawMessage(`null`))
		require.Nil(t, bills)
		require.Empty(t, problems)
	})
}

// The same logical bill encoded both ways must normalize identically.
func TestNormalizeBills_FormatEquivalence(t *testing.T) {
	t.Parallel()

	flat := json.RawMessage(`[{
		"tenantRoomNumber": "101",
		"month": "2024-03",
		"totalAmount": 155,
		"details": [
			{"type": "water", "name": "Main Water Meter", "amount": 20, "previousReading": 10, "currentReading": 35},
			{"type": "electricity", "name": "Main Electricity Meter", "amount": 35},
			{"type": "extra", "name": "Cleaning", "amount": 100}
		]
	}]`)

	nested := json.RawMessage(`{
		"101": {
			"2024-03": {
				"totalAmount": 155,
				"water": {"amount": 20, "previousReading": 10, "currentReading": 35},
				"electricity": {"amount": 35},
				"extraFees": [{"name": "Cleaning", "amount": 100}]
			}
		}
	}`)

	flatBills, problems := normalizeBills(flat)
	require.Empty(t, problems)
	nestedBills, problems := normalizeBills(nested)
	require.Empty(t, problems)

	require.Len(t, flatBills, 1)
	require.Len(t, nestedBills, 1)
	requireBillsEquivalent(t, &flatBills[0], &nestedBills[0])
}

func TestFlattenNestedBills_DetailSynthesis(t *testing.T) {
	t.Parallel()

	t.Run("extra meters are taken verbatim", func(t *testing.T) {
		t.Parallel()
		raw := json.RawMessage(`{"101": {"2024-03": {
			"totalAmount": 50,
			"extraMeters": [{"name": "Garden Water Meter", "type": "water", "amount": 50, "usage": 5}]
		}}}`)
		bills, _ := normalizeBills(raw)
		require.Len(t, bills, 1)
		require.Len(t, bills[0].Details, 1)
		d := bills[0].Details[0]
		require.Equal(t, "Garden Water Meter", *d.Name)
		require.Equal(t, models.DetailTypeWater, *d.Type)
		require.True(t, d.Usage.Equal(mustDecimal(t, "5")))
	})

	t.Run("zero rent is not synthesized", func(t *testing.T) {
		t.Parallel()
		raw := json.RawMessage(`{"101": {"2024-03": {"totalAmount": 0, "rent": 0}}}`)
		bills, _ := normalizeBills(raw)
		require.Len(t, bills, 1)
		require.Equal(t, []string{models.DetailTypeOther}, detailTypes(bills[0].Details))
	})

	t.Run("empty bill gets one zero other detail", func(t *testing.T) {
		t.Parallel()
		raw := json.RawMessage(`{"101": {"2024-03": {"totalAmount": 0}}}`)
		bills, _ := normalizeBills(raw)
		require.Len(t, bills, 1)
		require.Len(t, bills[0].Details, 1)
		d := bills[0].Details[0]
		require.Equal(t, models.DetailTypeOther, *d.Type)
		require.True(t, d.Amount.IsZero())
	})
}

func TestNormalizePrivacyKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "array", input: `["101", "102"]`, want: []string{"101", "102"}},
		{name: "embedded string", input: `"[\"101\", \"102\"]"`, want: []string{"101", "102"}},
		{name: "empty string", input: `""`, want: nil},
		{name: "null", input: `null`, want: nil},
		{name: "absent", input: ``, want: nil},
		{name: "number is an error", input: `42`, wantErr: true},
		{name: "malformed embedded array", input: `"[broken"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizePrivacyKeywords(json.RawMessage(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_TenantKeyCoercion(t *testing.T) {
	t.Parallel()

	var raw rawSnapshot
	require.NoError(t, json.Unmarshal([]byte(`{
		"tenants": [
			{"roomNumber": "101", "name": "A", "rent": 100},
			{"room_number": "102", "name": "B", "rent": 200},
			{"roomNumber": "103", "room_number": "999", "name": "C", "rent": 300}
		],
		"bills": [],
		"prices": {"waterPricePerUnit": 1, "electricityPricePerUnit": 2}
	}`), &raw))

	normalized, problems := normalize(&raw)
	require.Empty(t, problems)
	require.Len(t, normalized.Tenants, 3)
	require.Equal(t, "101", normalized.Tenants[0].roomNumber())
	require.Equal(t, "102", normalized.Tenants[1].roomNumber())
	// Current key wins when both are present.
	require.Equal(t, "103", normalized.Tenants[2].roomNumber())
}

func detailTypes(details []rawBillDetail) []string {
	types := make([]string, 0, len(details))
	for i := range details {
		types = append(types, strValue(details[i].Type))
	}
	sort.Strings(types)
	return types
}

func requireBillsEquivalent(t *testing.T, a, b *rawBill) {
	t.Helper()
	require.Equal(t, a.roomNumber(), b.roomNumber())
	require.Equal(t, strValue(a.Month), strValue(b.Month))
	require.True(t, a.TotalAmount.Equal(*b.TotalAmount))

	require.Len(t, b.Details, len(a.Details))
	byName := make(map[string]rawBillDetail, len(b.Details))
	for i := range b.Details {
		byName[strValue(b.Details[i].Name)] = b.Details[i]
	}
	for i := range a.Details {
		want := a.Details[i]
		got, ok := byName[strValue(want.Name)]
		require.True(t, ok, "missing detail %q", strValue(want.Name))
		require.Equal(t, strValue(want.Type), strValue(got.Type))
		require.True(t, want.Amount.Equal(*got.Amount))
	}
}

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/rentbook/internal/backup/backuptest"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

const minimalSnapshot = `{
	"metadata": {"dataStructureVersion": 2},
	"tenants": [{"roomNumber": "101", "name": "Aye", "rent": 100}],
	"bills": [{"tenantRoomNumber": "101", "month": "2024-03", "totalAmount": 155,
		"details": [{"type": "water", "name": "Main Water Meter", "amount": 20, "previousReading": 10, "currentReading": 35}]}],
	"prices": {"waterPricePerUnit": 1.5, "electricityPricePerUnit": 2, "privacyKeywords": ["Aye"]}
}`

func TestImport_MinimalSnapshot(t *testing.T) {
	t.Parallel()

	store := backuptest.NewMemStore()
	result := NewImporter(store).Import(context.Background(), []byte(minimalSnapshot))

	require.True(t, result.Success)
	require.Equal(t, StageDone, result.Stage)
	require.Empty(t, result.Errors)
	require.Equal(t, 1, result.Stats.TenantsImported)
	require.Equal(t, 1, result.Stats.BillsImported)
	require.Equal(t, 1, result.Stats.PricesImported)

	tenant, ok := store.Tenant("101")
	require.True(t, ok)
	require.Equal(t, "Aye", tenant.Name)

	bill, ok := store.Bill("101", "2024-03")
	require.True(t, ok)
	require.True(t, bill.TotalAmount.Equal(mustDecimal(t, "155")))
	require.Len(t, bill.Details, 1)

	prices, err := store.GetPriceSettings(context.Background())
	require.NoError(t, err)
	require.True(t, prices.WaterPricePerUnit.Equal(mustDecimal(t, "1.5")))
	require.Equal(t, []string{"Aye"}, prices.PrivacyKeywords)
}

func TestImport_EmptyAndMalformedInputAbort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "empty", input: nil},
		{name: "truncated json", input: []byte(`{"tenants": [`)},
		{name: "not json at all", input: []byte("room,month\n101,2024-03")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := backuptest.NewMemStore()
			store.SeedTenant(models.Tenant{RoomNumber: "901", Name: "Existing", Rent: mustDecimal(t, "50")})

			result := NewImporter(store).Import(context.Background(), tt.input)

			require.False(t, result.Success)
			require.Equal(t, StageFailed, result.Stage)
			require.Len(t, result.Errors, 1)
			require.Equal(t, ErrorKindFileFormat, result.Errors[0].Kind)
			// An aborted import must leave existing data untouched.
			require.Equal(t, 1, store.TenantCount())
		})
	}
}

func TestImport_MissingSectionsRejectedWithoutWriting(t *testing.T) {
	t.Parallel()

	store := backuptest.NewMemStore()
	store.SeedTenant(models.Tenant{RoomNumber: "901", Name: "Existing", Rent: mustDecimal(t, "50")})

	result := NewImporter(store).Import(context.Background(), []byte(`{"tenants": []}`))

	require.Equal(t, StageDone, result.Stage)
	require.NotEmpty(t, result.Errors)
	for _, e := range result.Errors {
		require.Equal(t, ErrorKindDataValidation, e.Kind)
	}
	require.Equal(t, 1, store.TenantCount())
}

func TestImport_InvalidRecordsAreIsolated(t *testing.T) {
	t.Parallel()

	tenants := `{"roomNumber": "", "name": "Broken", "rent": 100}`
	for i := 1; i <= 10; i++ {
		tenants += fmt.Sprintf(`, {"roomNumber": "%d", "name": "T%d", "rent": 100}`, 100+i, i)
	}
	snapshot := fmt.Sprintf(`{
		"tenants": [%s],
		"bills": [],
		"prices": {"waterPricePerUnit": 1, "electricityPricePerUnit": 2}
	}`, tenants)

	store := backuptest.NewMemStore()
	result := NewImporter(store).Import(context.Background(), []byte(snapshot))

	require.True(t, result.Success)
	require.Equal(t, 10, result.Stats.TenantsImported)
	require.Equal(t, 10, store.TenantCount())
	require.Len(t, result.Errors, 1)
	require.Equal(t, ErrorKindDataValidation, result.Errors[0].Kind)
}

func TestImport_FullReplace(t *testing.T) {
	t.Parallel()

	store := backuptest.NewMemStore()
	store.SeedTenant(models.Tenant{RoomNumber: "901", Name: "Old", Rent: mustDecimal(t, "50")})
	store.SeedBill(models.Bill{TenantRoomNumber: "901", Month: "2023-12", TotalAmount: mustDecimal(t, "75")})
	store.SeedOverride(models.MeterNameOverride{
		MeterType: models.MeterTypeWater, DefaultName: "Old Water Meter",
		CustomName: "Old", TenantRoomNumber: "901", IsActive: true,
	})

	result := NewImporter(store).Import(context.Background(), []byte(minimalSnapshot))

	require.True(t, result.Success)
	_, ok := store.Tenant("901")
	require.False(t, ok)
	_, ok = store.Bill("901", "2023-12")
	require.False(t, ok)
	_, ok = store.Override(models.MeterTypeWater, "Old Water Meter", "901")
	require.False(t, ok)

	_, ok = store.Tenant("101")
	require.True(t, ok)
}

func TestImport_OrphanedBillsReportedButImported(t *testing.T) {
	t.Parallel()

	snapshot := `{
		"tenants": [{"roomNumber": "101", "name": "Aye", "rent": 100}],
		"bills": [{"tenantRoomNumber": "404", "month": "2024-01", "totalAmount": 10}],
		"prices": {"waterPricePerUnit": 1, "electricityPricePerUnit": 2}
	}`

	store := backuptest.NewMemStore()
	result := NewImporter(store).Import(context.Background(), []byte(snapshot))

	require.True(t, result.Success)
	require.Len(t, result.OrphanedRecords, 1)
	require.Contains(t, result.OrphanedRecords[0], "404")
	require.Equal(t, 1, result.Stats.BillsImported)
	_, ok := store.Bill("404", "2024-01")
	require.True(t, ok)
}

func TestImport_DatabaseErrorsFlipSuccess(t *testing.T) {
	t.Parallel()

	t.Run("bill write failure", func(t *testing.T) {
		t.Parallel()
		store := backuptest.NewMemStore()
		store.FailSaveBill = true

		result := NewImporter(store).Import(context.Background(), []byte(minimalSnapshot))

		require.False(t, result.Success)
		require.Equal(t, StageDone, result.Stage)
		// Tenants and prices still land; only the bill write failed.
		require.Equal(t, 1, result.Stats.TenantsImported)
		require.Equal(t, 0, result.Stats.BillsImported)
		require.Len(t, result.Errors, 1)
		require.Equal(t, ErrorKindDatabase, result.Errors[0].Kind)
	})

	t.Run("tenant listing failure", func(t *testing.T) {
		t.Parallel()
		store := backuptest.NewMemStore()
		store.FailListTenants = true

		result := NewImporter(store).Import(context.Background(), []byte(minimalSnapshot))

		require.False(t, result.Success)
		require.Equal(t, 0, result.Stats.TenantsImported)
	})

	t.Run("tenant insert failure skips only tenants", func(t *testing.T) {
		t.Parallel()
		store := backuptest.NewMemStore()
		store.FailInsertTenant = true

		result := NewImporter(store).Import(context.Background(), []byte(minimalSnapshot))

		require.False(t, result.Success)
		require.Equal(t, 0, result.Stats.TenantsImported)
		require.Equal(t, 1, result.Stats.BillsImported)
	})
}

func TestImport_MainMeterOverrideRejected(t *testing.T) {
	t.Parallel()

	snapshot := `{
		"tenants": [{"roomNumber": "101", "name": "Aye", "rent": 100}],
		"bills": [],
		"prices": {"waterPricePerUnit": 1, "electricityPricePerUnit": 2},
		"meterConfigs": [
			{"meterType": "water", "defaultName": "Main Water Meter", "customName": "Hacked", "tenantRoomNumber": "101"},
			{"meterType": "water", "defaultName": "Garden Water Meter", "customName": "Garden", "tenantRoomNumber": "101"}
		]
	}`

	store := backuptest.NewMemStore()
	result := NewImporter(store).Import(context.Background(), []byte(snapshot))

	// Rejecting a main-meter rename is a data problem, not a database one.
	require.True(t, result.Success)
	require.Equal(t, 1, result.Stats.MeterConfigsImported)
	require.Len(t, result.Errors, 1)
	require.Equal(t, ErrorKindDataValidation, result.Errors[0].Kind)

	_, ok := store.Override(models.MeterTypeWater, "Main Water Meter", "101")
	require.False(t, ok)
	o, ok := store.Override(models.MeterTypeWater, "Garden Water Meter", "101")
	require.True(t, ok)
	require.Equal(t, "Garden", o.CustomName)
}

func TestImport_LegacyNestedSnapshot(t *testing.T) {
	t.Parallel()

	snapshot := `{
		"tenants": [{"room_number": "101", "name": "Aye", "rent": 100}],
		"bills": {
			"101": {
				"2024/3": {
					"totalAmount": 155,
					"water": {"amount": 20, "previousReading": 10, "currentReading": 35},
					"rent": 100
				}
			}
		},
		"price": {"waterPrice": 1.5, "electricityPrice": 2}
	}`

	store := backuptest.NewMemStore()
	result := NewImporter(store).Import(context.Background(), []byte(snapshot))

	require.True(t, result.Success)
	require.Empty(t, result.Errors)
	require.Equal(t, 1, result.Stats.BillsImported)

	bill, ok := store.Bill("101", "2024-03")
	require.True(t, ok)
	require.Len(t, bill.Details, 2)
}

func TestImport_UsageDefaultedFromReadings(t *testing.T) {
	t.Parallel()

	store := backuptest.NewMemStore()
	result := NewImporter(store).Import(context.Background(), []byte(minimalSnapshot))
	require.True(t, result.Success)

	bill, ok := store.Bill("101", "2024-03")
	require.True(t, ok)
	require.Len(t, bill.Details, 1)
	require.NotNil(t, bill.Details[0].Usage)
	require.True(t, bill.Details[0].Usage.Equal(mustDecimal(t, "25")))
}

func TestImportAutoBackup(t *testing.T) {
	t.Parallel()

	t.Run("reads the snapshot file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "auto_backup.json")
		require.NoError(t, os.WriteFile(path, []byte(minimalSnapshot), 0o644))

		store := backuptest.NewMemStore()
		result, err := NewImporter(store).ImportAutoBackup(context.Background(), path)
		require.NoError(t, err)
		require.True(t, result.Success)
		require.Equal(t, 1, result.Stats.TenantsImported)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		t.Parallel()
		store := backuptest.NewMemStore()
		_, err := NewImporter(store).ImportAutoBackup(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

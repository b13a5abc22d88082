package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/rentbook/internal/backup/backuptest"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

func TestAutoBackup_BillSaved(t *testing.T) {
	t.Parallel()

	store := backuptest.NewMemStore()
	store.SeedTenant(models.Tenant{RoomNumber: "101", Name: "Aye", Rent: mustDecimal(t, "100")})
	store.SeedPrices(models.PriceSettings{
		WaterPricePerUnit:       mustDecimal(t, "1"),
		ElectricityPricePerUnit: mustDecimal(t, "2"),
	})

	path := filepath.Join(t.TempDir(), "backups", "auto_backup.json")
	auto := NewAutoBackup(NewExporter(store, "test"), path)
	require.Equal(t, path, auto.Path())

	auto.BillSaved(context.Background())

	// The written file is itself a loadable snapshot.
	restored := backuptest.NewMemStore()
	result, err := NewImporter(restored).ImportAutoBackup(context.Background(), path)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.Stats.TenantsImported)
}

func TestAutoBackup_OverwritesPreviousFile(t *testing.T) {
	t.Parallel()

	store := backuptest.NewMemStore()
	store.SeedPrices(models.PriceSettings{
		WaterPricePerUnit:       mustDecimal(t, "1"),
		ElectricityPricePerUnit: mustDecimal(t, "2"),
	})
	store.SeedTenant(models.Tenant{RoomNumber: "101", Name: "Aye", Rent: mustDecimal(t, "100")})

	path := filepath.Join(t.TempDir(), "auto_backup.json")
	auto := NewAutoBackup(NewExporter(store, "test"), path)

	auto.BillSaved(context.Background())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	store.SeedTenant(models.Tenant{RoomNumber: "102", Name: "Nyein", Rent: mustDecimal(t, "120")})
	auto.BillSaved(context.Background())
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestAutoBackup_ExportFailureLeavesNoFile(t *testing.T) {
	t.Parallel()

	store := backuptest.NewMemStore()
	store.FailListTenants = true

	path := filepath.Join(t.TempDir(), "auto_backup.json")
	auto := NewAutoBackup(NewExporter(store, "test"), path)

	// Must not panic and must not leave a partial file behind.
	auto.BillSaved(context.Background())
	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

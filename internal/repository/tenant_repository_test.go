package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/rentbook/internal/database"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

func TestTenantRepository_InsertAndList(t *testing.T) {
	tx := database.TestTx(t)
	repo := NewTenantRepository(tx)
	ctx := context.Background()

	t.Run("insert sets timestamps", func(t *testing.T) {
		tenant := &models.Tenant{RoomNumber: "102", Name: "Nyein", Rent: decimal.NewFromInt(120)}
		err := repo.Insert(ctx, tenant)
		require.NoError(t, err)
		require.False(t, tenant.CreatedAt.IsZero())
		require.False(t, tenant.UpdatedAt.IsZero())
	})

	t.Run("list orders by room number", func(t *testing.T) {
		err := repo.Insert(ctx, &models.Tenant{RoomNumber: "101", Name: "Aye", Rent: decimal.NewFromInt(100)})
		require.NoError(t, err)

		tenants, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tenants, 2)
		require.Equal(t, "101", tenants[0].RoomNumber)
		require.Equal(t, "102", tenants[1].RoomNumber)
	})

	t.Run("insert on existing room overwrites", func(t *testing.T) {
		err := repo.Insert(ctx, &models.Tenant{RoomNumber: "101", Name: "Aye Aye", Rent: decimal.NewFromInt(110)})
		require.NoError(t, err)

		tenants, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tenants, 2)
		require.Equal(t, "Aye Aye", tenants[0].Name)
		require.True(t, tenants[0].Rent.Equal(decimal.NewFromInt(110)))
	})
}

func TestTenantRepository_DeleteCascades(t *testing.T) {
	tx := database.TestTx(t)
	tenantRepo := NewTenantRepository(tx)
	billRepo := NewBillRepository(tx)
	meterRepo := NewMeterRepository(tx)
	ctx := context.Background()

	err := tenantRepo.Insert(ctx, &models.Tenant{RoomNumber: "101", Name: "Aye", Rent: decimal.NewFromInt(100)})
	require.NoError(t, err)
	err = tenantRepo.Insert(ctx, &models.Tenant{RoomNumber: "102", Name: "Nyein", Rent: decimal.NewFromInt(120)})
	require.NoError(t, err)

	bill := &models.Bill{TenantRoomNumber: "101", Month: "2024-03", TotalAmount: decimal.NewFromInt(150)}
	err = billRepo.Save(ctx, bill, []models.BillDetail{
		{Type: models.DetailTypeRent, Name: "Rent", Amount: decimal.NewFromInt(100)},
	})
	require.NoError(t, err)

	keep := &models.Bill{TenantRoomNumber: "102", Month: "2024-03", TotalAmount: decimal.NewFromInt(120)}
	err = billRepo.Save(ctx, keep, nil)
	require.NoError(t, err)

	err = meterRepo.Save(ctx, "Garden Water Meter", "Garden", models.MeterTypeWater, "101")
	require.NoError(t, err)

	err = tenantRepo.Delete(ctx, "101")
	require.NoError(t, err)

	tenants, err := tenantRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	require.Equal(t, "102", tenants[0].RoomNumber)

	bills, err := billRepo.ListWithDetails(ctx)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	require.Equal(t, "102", bills[0].TenantRoomNumber)

	overrides, err := meterRepo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, overrides)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/rentbook/internal/database"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

// BillRepository handles bill and bill-detail database operations.
type BillRepository struct {
	db database.PGXDB
}

// NewBillRepository creates a new BillRepository.
func NewBillRepository(db database.PGXDB) *BillRepository {
	return &BillRepository{db: db}
}

// ListWithDetails returns all bills with their detail line items attached,
// details ordered as saved.
func (r *BillRepository) ListWithDetails(ctx context.Context) ([]models.Bill, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_room_number, month, total_amount, created_date
		FROM bills
		ORDER BY tenant_room_number, month
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	var bills []models.Bill
	index := make(map[int]int)
	for rows.Next() {
		var b models.Bill
		if err := rows.Scan(&b.ID, &b.TenantRoomNumber, &b.Month, &b.TotalAmount, &b.CreatedDate); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		index[b.ID] = len(bills)
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bills: %w", err)
	}

	detailRows, err := r.db.Query(ctx, `
		SELECT id, bill_id, type, name, amount, price_per_unit, previous_reading, current_reading, usage_amount
		FROM bill_details
		ORDER BY bill_id, position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bill details: %w", err)
	}
	defer detailRows.Close()

	for detailRows.Next() {
		var d models.BillDetail
		if err := detailRows.Scan(
			&d.ID, &d.BillID, &d.Type, &d.Name, &d.Amount,
			&d.PricePerUnit, &d.PreviousReading, &d.CurrentReading, &d.Usage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bill detail: %w", err)
		}
		if i, ok := index[d.BillID]; ok {
			bills[i].Details = append(bills[i].Details, d)
		}
	}
	if err := detailRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bill details: %w", err)
	}

	return bills, nil
}

// Save upserts a bill keyed by (tenant room, month) and replaces its details.
func (r *BillRepository) Save(ctx context.Context, bill *models.Bill, details []models.BillDetail) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO bills (tenant_room_number, month, total_amount, created_date)
		VALUES ($1, $2, $3, COALESCE($4, NOW()))
		ON CONFLICT (tenant_room_number, month) DO UPDATE SET
			total_amount = EXCLUDED.total_amount,
			created_date = EXCLUDED.created_date
		RETURNING id, created_date
	`, bill.TenantRoomNumber, bill.Month, bill.TotalAmount, nilIfZeroTime(bill.CreatedDate)).
		Scan(&bill.ID, &bill.CreatedDate)
	if err != nil {
		return fmt.Errorf("failed to save bill: %w", err)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM bill_details WHERE bill_id = $1`, bill.ID); err != nil {
		return fmt.Errorf("failed to clear bill details: %w", err)
	}

	for i := range details {
		details[i].BillID = bill.ID
		err := r.db.QueryRow(ctx, `
			INSERT INTO bill_details (bill_id, position, type, name, amount, price_per_unit, previous_reading, current_reading, usage_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, bill.ID, i, details[i].Type, details[i].Name, details[i].Amount,
			details[i].PricePerUnit, details[i].PreviousReading, details[i].CurrentReading, details[i].Usage,
		).Scan(&details[i].ID)
		if err != nil {
			return fmt.Errorf("failed to save bill detail %q: %w", details[i].Name, err)
		}
	}

	bill.Details = details
	return nil
}

func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

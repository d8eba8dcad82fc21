package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/balance/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) BillSums(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, int64, error) {
	var row struct {
		Billed int64 `gorm:"column:billed"`
		Paid   int64 `gorm:"column:paid"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_amount), 0) AS billed,
			COALESCE(SUM(amount_paid), 0) AS paid
		 FROM bills
		 WHERE customer_id = ?`,
		customerID,
	).Scan(&row).Error
	return row.Billed, row.Paid, err
}

func (r *repo) SavedToBalance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error) {
	var row struct {
		Saved int64 `gorm:"column:saved"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(saved_to_balance), 0) AS saved FROM payments WHERE customer_id = ?`,
		customerID,
	).Scan(&row).Error
	return row.Saved, err
}

func (r *repo) LegacyBalanceDescriptions(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]string, error) {
	var descriptions []string
	err := db.WithContext(ctx).Raw(
		`SELECT description FROM payments
		 WHERE customer_id = ? AND saved_to_balance = 0 AND LOWER(description) LIKE ?`,
		customerID,
		"%ke saldo%",
	).Scan(&descriptions).Error
	if err != nil {
		return nil, err
	}
	return descriptions, nil
}

func (r *repo) Stored(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*domain.CustomerTotals, error) {
	var row domain.CustomerTotals
	err := db.WithContext(ctx).Raw(
		`SELECT id, customer_number, name, total_bill, total_paid, outstanding_balance, balance
		 FROM customers
		 WHERE id = ?`,
		customerID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.CustomerID == 0 {
		return nil, nil
	}
	return &row, nil
}

// ListCustomers includes soft-deleted customers so their payment history
// keeps reconciling.
func (r *repo) ListCustomers(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM customers ORDER BY customer_number ASC`,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customerID snowflake.ID, totals domain.Totals, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET total_bill = ?, total_paid = ?, outstanding_balance = ?, balance = ?, updated_at = ?
		 WHERE id = ?`,
		totals.TotalBill,
		totals.TotalPaid,
		totals.OutstandingBalance,
		totals.Balance,
		at,
		customerID,
	).Error
}

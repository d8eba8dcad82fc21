package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// BillSums returns sum(total_amount) and sum(amount_paid) over the
	// customer's current bills. Penalties stay on the bill only.
	BillSums(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (billed int64, paid int64, err error)
	SavedToBalance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error)
	// LegacyBalanceDescriptions lists descriptions of payments that predate
	// the saved_to_balance column but mention a saved amount.
	LegacyBalanceDescriptions(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]string, error)
	Stored(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*CustomerTotals, error)
	ListCustomers(ctx context.Context, db *gorm.DB) ([]snowflake.ID, error)
	Update(ctx context.Context, db *gorm.DB, customerID snowflake.ID, totals Totals, at time.Time) error
}

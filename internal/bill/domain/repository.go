package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertReading(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	InsertBill(ctx context.Context, db *gorm.DB, bill *Bill) error
	InsertItems(ctx context.Context, db *gorm.DB, items []BillItem) error

	FindReading(ctx context.Context, db *gorm.DB, customerID snowflake.ID, period string) (*MeterReading, error)
	// LatestReadingBefore returns the most recent reading of a period strictly
	// earlier than period.
	LatestReadingBefore(ctx context.Context, db *gorm.DB, customerID snowflake.ID, period string) (*MeterReading, error)
	FindReadingByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MeterReading, error)

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	ListItems(ctx context.Context, db *gorm.DB, billID snowflake.ID) ([]BillItem, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*Bill, error)
	// ListUnpaid returns unsettled bills in FIFO order: period then id ascending.
	ListUnpaid(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*Bill, error)
	ListByPeriod(ctx context.Context, db *gorm.DB, period string) ([]*Bill, error)
	ReadingsByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (map[snowflake.ID]MeterReading, error)
	Summaries(ctx context.Context, db *gorm.DB, limit int) ([]PeriodSummary, error)

	UpdatePayment(ctx context.Context, db *gorm.DB, bill *Bill) error

	// Delete removes the bill, its items and its reading.
	Delete(ctx context.Context, db *gorm.DB, bill *Bill) error
	DeleteByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error)
}

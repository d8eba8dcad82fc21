package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is append-only: payments are never updated or deleted.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	InsertAllocations(ctx context.Context, db *gorm.DB, allocations []Allocation) error
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*Payment, error)
	ListAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]Allocation, error)
}

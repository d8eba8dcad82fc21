package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number int64) (*Customer, error)
	// LockByID reads the customer with a row lock held until the transaction ends.
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]*Customer, error)
	MaxNumber(ctx context.Context, db *gorm.DB) (int64, error)
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	MarkNotified(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

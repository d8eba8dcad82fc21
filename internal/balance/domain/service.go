package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// Refresh recomputes a customer's aggregates from bills and payments inside
	// tx and stores them. Every mutation of bills or payments ends with it.
	Refresh(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) (Totals, error)
	ReconcileAll(ctx context.Context) (ReconcileResult, error)
}

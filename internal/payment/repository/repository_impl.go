package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, reference, customer_id, bill_id, amount, allocated,
			change_amount, saved_to_balance, description, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.Reference,
		payment.CustomerID,
		payment.BillID,
		payment.Amount,
		payment.Allocated,
		payment.ChangeAmount,
		payment.SavedToBalance,
		payment.Description,
		payment.CreatedAt,
	).Error
}

func (r *repo) InsertAllocations(ctx context.Context, db *gorm.DB, allocations []domain.Allocation) error {
	for _, allocation := range allocations {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO payment_allocations (id, payment_id, bill_id, period, amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			allocation.ID,
			allocation.PaymentID,
			allocation.BillID,
			allocation.Period,
			allocation.Amount,
			allocation.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, reference, customer_id, bill_id, amount, allocated,
			change_amount, saved_to_balance, description, created_at
		 FROM payments
		 WHERE customer_id = ?
		 ORDER BY created_at DESC, id DESC`,
		customerID,
	).Scan(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) ListAllocations(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]domain.Allocation, error) {
	var allocations []domain.Allocation
	err := db.WithContext(ctx).Raw(
		`SELECT id, payment_id, bill_id, period, amount, created_at
		 FROM payment_allocations
		 WHERE payment_id = ?
		 ORDER BY id ASC`,
		paymentID,
	).Scan(&allocations).Error
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

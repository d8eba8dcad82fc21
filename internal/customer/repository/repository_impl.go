package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const customerColumns = `id, customer_number, name, phone, address, total_bill, total_paid,
	outstanding_balance, balance, last_notified_at, created_at, updated_at, deleted_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (
			id, customer_number, name, phone, address, total_bill, total_paid,
			outstanding_balance, balance, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.CustomerNumber,
		customer.Name,
		customer.Phone,
		customer.Address,
		customer.TotalBill,
		customer.TotalPaid,
		customer.OutstandingBalance,
		customer.Balance,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers SET name = ?, phone = ?, address = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		customer.Name,
		customer.Phone,
		customer.Address,
		customer.UpdatedAt,
		customer.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT `+customerColumns+` FROM customers WHERE id = ? AND deleted_at IS NULL`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number int64) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT `+customerColumns+` FROM customers WHERE customer_number = ? AND deleted_at IS NULL`,
		number,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		if number, err := strconv.ParseInt(search, 10, 64); err == nil {
			stmt = stmt.Where("customer_number = ?", number)
		} else {
			stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
	}
	if filter.After > 0 {
		stmt = stmt.Where("customer_number > ?", filter.After)
	}
	err := stmt.
		Order("customer_number asc").
		Limit(page.Limit() + 1).
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT ` + customerColumns + ` FROM customers
		 WHERE deleted_at IS NULL
		 ORDER BY customer_number ASC`,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// MaxNumber includes soft-deleted customers: their numbers stay reserved.
func (r *repo) MaxNumber(ctx context.Context, db *gorm.DB) (int64, error) {
	var row struct {
		Max int64 `gorm:"column:max_number"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(customer_number), 0) AS max_number FROM customers`,
	).Scan(&row).Error
	return row.Max, err
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at, at, id,
	).Error
}

func (r *repo) MarkNotified(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE customers SET last_notified_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at, at, id,
	).Error
}

package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/tirta/internal/audit/domain"
	"gorm.io/gorm"
)

var errNoHandle = errors.New("audit: nil db handle")

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert appends one entry. Rows are never updated or deleted.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	if db == nil {
		return errNoHandle
	}
	return db.WithContext(ctx).Create(entry).Error
}

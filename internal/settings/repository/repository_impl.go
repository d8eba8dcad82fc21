package repository

import (
	"context"

	"github.com/smallbiznis/tirta/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Setting, error) {
	var settings []domain.Setting
	err := db.WithContext(ctx).Raw(
		`SELECT name, value, updated_at FROM settings ORDER BY name ASC`,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, setting domain.Setting) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/smallbiznis/tirta/internal/apperror"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	"github.com/smallbiznis/tirta/internal/clock"
	"github.com/smallbiznis/tirta/internal/config"
	"github.com/smallbiznis/tirta/internal/settings/domain"
	"github.com/smallbiznis/tirta/internal/tariff"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	Tariff   *config.TariffConfigHolder
	Authz    authorization.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	tariff   *config.TariffConfigHolder
	authz    authorization.Service
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("settings.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		tariff:   p.Tariff,
		authz:    p.Authz,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Current(ctx context.Context) (tariff.Config, error) {
	return s.current(ctx, s.db)
}

func (s *Service) current(ctx context.Context, db *gorm.DB) (tariff.Config, error) {
	cfg := s.tariff.Get()
	rows, err := s.repo.List(ctx, db)
	if err != nil {
		return tariff.Config{}, err
	}
	for _, row := range rows {
		target := field(&cfg, row.Key)
		if target == nil {
			continue
		}
		value, err := strconv.ParseInt(row.Value, 10, 64)
		if err != nil {
			s.log.Warn("ignoring malformed setting", zap.String("key", row.Key), zap.String("value", row.Value))
			continue
		}
		*target = value
	}
	return cfg, nil
}

func (s *Service) UpdateTariff(ctx context.Context, req domain.UpdateTariffRequest) (tariff.Config, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectSettings, authorization.ActionSettingsUpdate); err != nil {
		return tariff.Config{}, err
	}

	changes := map[string]*int64{
		domain.KeyTier1Limit:      req.Tier1Limit,
		domain.KeyTier1Rate:       req.Tier1Rate,
		domain.KeyTier2Rate:       req.Tier2Rate,
		domain.KeyAdminFee:        req.AdminFee,
		domain.KeyPenaltyPerMonth: req.PenaltyPerMonth,
	}

	var updated tariff.Config
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.current(ctx, tx)
		if err != nil {
			return err
		}
		before := cfg

		now := s.clock.Now()
		metadata := map[string]any{}
		for key, value := range changes {
			if value == nil {
				continue
			}
			*field(&cfg, key) = *value
			metadata[key] = *value
		}
		if len(metadata) == 0 {
			updated = cfg
			return nil
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidSetting, err)
		}

		for key := range metadata {
			if err := s.repo.Upsert(ctx, tx, domain.Setting{
				Key:       key,
				Value:     strconv.FormatInt(*field(&cfg, key), 10),
				UpdatedAt: now,
			}); err != nil {
				return err
			}
		}

		if s.auditSvc != nil {
			metadata["before"] = before
			if err := s.auditSvc.AuditLog(ctx, tx, auditdomain.ActionSettingsUpdate, auditdomain.TargetSettings, nil, metadata); err != nil {
				return err
			}
		}
		updated = cfg
		return nil
	})
	if err != nil {
		return tariff.Config{}, apperror.Transaction(err)
	}
	return updated, nil
}

func field(cfg *tariff.Config, key string) *int64 {
	switch key {
	case domain.KeyTier1Limit:
		return &cfg.Tier1Limit
	case domain.KeyTier1Rate:
		return &cfg.Tier1Rate
	case domain.KeyTier2Rate:
		return &cfg.Tier2Rate
	case domain.KeyAdminFee:
		return &cfg.AdminFee
	case domain.KeyPenaltyPerMonth:
		return &cfg.PenaltyPerMonth
	}
	return nil
}

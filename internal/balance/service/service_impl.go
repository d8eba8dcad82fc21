package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/apperror"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	"github.com/smallbiznis/tirta/internal/balance/domain"
	"github.com/smallbiznis/tirta/internal/clock"
	obsmetrics "github.com/smallbiznis/tirta/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	Authz      authorization.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	authz      authorization.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("balance.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		authz:      p.Authz,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Refresh(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) (domain.Totals, error) {
	stored, err := s.repo.Stored(ctx, tx, customerID)
	if err != nil {
		return domain.Totals{}, err
	}
	if stored == nil {
		return domain.Totals{}, fmt.Errorf("refresh totals: customer %s missing", customerID)
	}

	totals, err := s.compute(ctx, tx, customerID)
	if err != nil {
		return domain.Totals{}, err
	}
	if totals == stored.Totals {
		return totals, nil
	}
	if err := s.repo.Update(ctx, tx, customerID, totals, s.clock.Now()); err != nil {
		return domain.Totals{}, err
	}
	return totals, nil
}

func (s *Service) ReconcileAll(ctx context.Context) (domain.ReconcileResult, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectBalance, authorization.ActionBalanceReconcile); err != nil {
		return domain.ReconcileResult{}, err
	}

	ids, err := s.repo.ListCustomers(ctx, s.db)
	if err != nil {
		return domain.ReconcileResult{}, apperror.Transaction(err)
	}

	result := domain.ReconcileResult{Results: []domain.Correction{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var correction *domain.Correction
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			stored, err := s.repo.Stored(ctx, tx, id)
			if err != nil || stored == nil {
				return err
			}
			totals, err := s.compute(ctx, tx, id)
			if err != nil {
				return err
			}
			if totals == stored.Totals {
				return nil
			}
			if err := s.repo.Update(ctx, tx, id, totals, s.clock.Now()); err != nil {
				return err
			}
			correction = &domain.Correction{
				CustomerID:     id.String(),
				CustomerNumber: stored.CustomerNumber,
				Name:           stored.Name,
				Before:         stored.Totals,
				After:          totals,
			}
			return nil
		})
		if err != nil {
			return result, apperror.Transaction(err)
		}

		result.Checked++
		if correction != nil {
			result.FixedCount++
			result.Results = append(result.Results, *correction)
			s.log.Info("customer totals corrected",
				zap.String("customer_id", correction.CustomerID),
				zap.Int64("total_bill_before", correction.Before.TotalBill),
				zap.Int64("total_bill_after", correction.After.TotalBill),
				zap.Int64("total_paid_before", correction.Before.TotalPaid),
				zap.Int64("total_paid_after", correction.After.TotalPaid),
			)
		}
	}

	s.obsMetrics.RecordReconcileCorrections(ctx, result.FixedCount)
	if s.auditSvc != nil {
		err := s.auditSvc.AuditLog(ctx, nil, auditdomain.ActionBalanceReconcile, auditdomain.TargetCustomer, nil, map[string]any{
			"checked":     result.Checked,
			"fixed_count": result.FixedCount,
		})
		if err != nil {
			s.log.Warn("audit log failed", zap.String("action", auditdomain.ActionBalanceReconcile), zap.Error(err))
		}
	}
	return result, nil
}

func (s *Service) compute(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) (domain.Totals, error) {
	billed, paid, err := s.repo.BillSums(ctx, tx, customerID)
	if err != nil {
		return domain.Totals{}, err
	}
	saved, err := s.repo.SavedToBalance(ctx, tx, customerID)
	if err != nil {
		return domain.Totals{}, err
	}
	legacy, err := s.repo.LegacyBalanceDescriptions(ctx, tx, customerID)
	if err != nil {
		return domain.Totals{}, err
	}
	for _, description := range legacy {
		saved += domain.ParseLegacySaved(description)
	}
	return domain.NewTotals(billed, paid, saved), nil
}

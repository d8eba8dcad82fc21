package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/tirta/internal/apperror"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	"github.com/smallbiznis/tirta/internal/bill/domain"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/internal/period"
	"github.com/smallbiznis/tirta/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	importOutcomeImported = "imported"
	importOutcomeRejected = "rejected"
)

// Import turns pre-parsed spreadsheet rows into bills for one period. Each row
// commits or fails on its own; failed rows are reported, never fatal.
func (s *Service) Import(ctx context.Context, req domain.ImportRequest) (domain.ImportResult, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectBill, authorization.ActionBillImport); err != nil {
		return domain.ImportResult{}, err
	}
	p, err := period.Parse(req.Period)
	if err != nil {
		return domain.ImportResult{}, err
	}
	if len(req.Rows) == 0 {
		return domain.ImportResult{}, domain.ErrEmptyImport
	}

	result := domain.ImportResult{Rejected: []domain.ImportRejection{}}
	for i, row := range req.Rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		total, err := s.importRow(ctx, p, row)
		if err != nil {
			rejection := domain.ImportRejection{
				Row:            i + 1,
				CustomerNumber: row.CustomerNumber,
				Reason:         rejectionReason(err),
				Message:        err.Error(),
			}
			result.Rejected = append(result.Rejected, rejection)
			s.obsMetrics.RecordImportRow(ctx, importOutcomeRejected)
			s.log.Info("import row rejected",
				zap.Int("row", rejection.Row),
				zap.Int64("customer_number", row.CustomerNumber),
				zap.String("reason", rejection.Reason),
			)
			continue
		}

		result.Imported++
		s.obsMetrics.RecordImportRow(ctx, importOutcomeImported)
		s.obsMetrics.RecordBillCreated(ctx, string(domain.SourceImport), total)
	}

	if s.auditSvc != nil {
		err := s.auditSvc.AuditLog(ctx, nil, auditdomain.ActionBillImport, auditdomain.TargetBill, nil, map[string]any{
			"period":   p.String(),
			"rows":     len(req.Rows),
			"imported": result.Imported,
			"rejected": len(result.Rejected),
		})
		if err != nil {
			s.log.Warn("audit log failed", zap.String("action", auditdomain.ActionBillImport), zap.Error(err))
		}
	}
	return result, nil
}

func (s *Service) importRow(ctx context.Context, p period.Period, row domain.ImportRow) (int64, error) {
	if err := domain.ValidateImportRow(row); err != nil {
		return 0, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByNumber(ctx, tx, row.CustomerNumber)
		if err != nil {
			return err
		}
		if customer == nil {
			customer, err = s.createImportedCustomer(ctx, tx, row)
			if err != nil {
				return err
			}
		}
		if _, err := s.customerRepo.LockByID(ctx, tx, customer.ID); err != nil {
			return err
		}

		existing, err := s.repo.FindReading(ctx, tx, customer.ID, p.String())
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrReadingExists
		}

		reading := domain.MeterReading{
			CustomerID: customer.ID,
			Period:     p.String(),
			MeterStart: row.MeterStart,
			MeterEnd:   row.MeterEnd,
			Usage:      row.Usage,
		}
		if _, err := s.persist(ctx, tx, reading, row.TotalAmount, row.Lines()); err != nil {
			return err
		}
		_, err = s.balance.Refresh(ctx, tx, customer.ID)
		return err
	})
	if err != nil {
		return 0, apperror.Transaction(err)
	}
	return row.TotalAmount, nil
}

func (s *Service) createImportedCustomer(ctx context.Context, tx *gorm.DB, row domain.ImportRow) (*customerdomain.Customer, error) {
	now := s.clock.Now()
	customer := &customerdomain.Customer{
		ID:             s.genID.Generate(),
		CustomerNumber: row.CustomerNumber,
		Name:           strings.TrimSpace(row.Name),
		Phone:          strings.TrimSpace(row.Phone),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.customerRepo.Insert(ctx, tx, customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, customerdomain.ErrCustomerNumberTaken
		}
		return nil, err
	}
	return customer, nil
}

func rejectionReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline_exceeded"
	}
	return apperror.CodeOf(err)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/apperror"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	balancedomain "github.com/smallbiznis/tirta/internal/balance/domain"
	"github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/smallbiznis/tirta/internal/clock"
	"github.com/smallbiznis/tirta/internal/config"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/internal/lock"
	obsmetrics "github.com/smallbiznis/tirta/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/tirta/internal/payment/domain"
	"github.com/smallbiznis/tirta/internal/period"
	settingsdomain "github.com/smallbiznis/tirta/internal/settings/domain"
	"github.com/smallbiznis/tirta/internal/tariff"
	"github.com/smallbiznis/tirta/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultLockTTL      = 30 * time.Second
	defaultSummaryLimit = 12
	maxSummaryLimit     = 120
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Cfg          config.Config `optional:"true"`
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	PaymentRepo  paymentdomain.Repository
	Balance      balancedomain.Service
	Settings     settingsdomain.Service
	Authz        authorization.Service
	AuditSvc     auditdomain.Service `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
	Locker       *lock.Locker        `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	paymentRepo  paymentdomain.Repository
	balance      balancedomain.Service
	settings     settingsdomain.Service
	authz        authorization.Service
	auditSvc     auditdomain.Service
	obsMetrics   *obsmetrics.Metrics
	locker       *lock.Locker
	lockTTL      time.Duration
}

func New(p Params) domain.Service {
	lockTTL := p.Cfg.PaymentLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("bill.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		paymentRepo:  p.PaymentRepo,
		balance:      p.Balance,
		settings:     p.Settings,
		authz:        p.Authz,
		auditSvc:     p.AuditSvc,
		obsMetrics:   p.ObsMetrics,
		locker:       p.Locker,
		lockTTL:      lockTTL,
	}
}

func (s *Service) CreateBill(ctx context.Context, req domain.CreateBillRequest) (domain.Detail, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectBill, authorization.ActionBillCreate); err != nil {
		return domain.Detail{}, err
	}

	customerID, err := parseID(req.CustomerID, domain.ErrInvalidCustomerID)
	if err != nil {
		return domain.Detail{}, err
	}
	p, err := period.Parse(req.Period)
	if err != nil {
		return domain.Detail{}, err
	}
	if req.MeterEnd < 0 {
		return domain.Detail{}, domain.ErrInvalidMeterEnd
	}
	if req.MeterStart != nil && *req.MeterStart < 0 {
		return domain.Detail{}, domain.ErrInvalidMeterStart
	}
	source := req.Source
	if source == "" {
		source = domain.SourceManual
	}

	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return domain.Detail{}, apperror.Transaction(err)
	}

	var detail domain.Detail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.LockByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrCustomerNotFound
		}

		reading, err := s.resolveReading(ctx, tx, customerID, p, req.MeterEnd, req.MeterStart)
		if err != nil {
			return err
		}
		breakdown := tariff.Compute(reading.Usage, cfg)
		detail, err = s.persist(ctx, tx, reading, breakdown.TotalAmount, breakdown.Lines())
		if err != nil {
			return err
		}
		if _, err := s.balance.Refresh(ctx, tx, customerID); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionBillCreate, detail.ID, map[string]any{
			"customer_id":  customerID.String(),
			"period":       p.String(),
			"usage":        reading.Usage,
			"total_amount": detail.TotalAmount,
			"source":       string(source),
		})
	})
	if err != nil {
		return domain.Detail{}, apperror.Transaction(err)
	}

	s.obsMetrics.RecordBillCreated(ctx, string(source), detail.TotalAmount)
	s.log.Debug("bill created",
		zap.String("bill_id", detail.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("period", p.String()),
		zap.Int64("total_amount", detail.TotalAmount),
	)
	return detail, nil
}

// resolveReading builds the reading for a new bill. The meter start comes from
// the latest earlier reading when one exists; only a first bill takes it from
// the caller.
func (s *Service) resolveReading(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, p period.Period, meterEnd int64, meterStart *int64) (domain.MeterReading, error) {
	existing, err := s.repo.FindReading(ctx, tx, customerID, p.String())
	if err != nil {
		return domain.MeterReading{}, err
	}
	if existing != nil {
		return domain.MeterReading{}, fmt.Errorf("%w: customer %s already has a reading for %s", domain.ErrReadingExists, customerID, p)
	}

	previous, err := s.repo.LatestReadingBefore(ctx, tx, customerID, p.String())
	if err != nil {
		return domain.MeterReading{}, err
	}

	var start int64
	switch {
	case previous != nil:
		start = previous.MeterEnd
	case meterStart != nil:
		start = *meterStart
	default:
		return domain.MeterReading{}, domain.ErrMissingMeterStart
	}

	return domain.MeterReading{
		CustomerID: customerID,
		Period:     p.String(),
		MeterStart: start,
		MeterEnd:   meterEnd,
		Usage:      tariff.Usage(start, meterEnd),
	}, nil
}

// persist writes reading, bill and items. Callers run it inside tx.
func (s *Service) persist(ctx context.Context, tx *gorm.DB, reading domain.MeterReading, total int64, lines []tariff.Line) (domain.Detail, error) {
	now := s.clock.Now()
	reading.ID = s.genID.Generate()
	reading.CreatedAt = now
	if err := s.repo.InsertReading(ctx, tx, &reading); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Detail{}, fmt.Errorf("%w: %s", domain.ErrReadingExists, reading.Period)
		}
		return domain.Detail{}, err
	}

	bill := domain.NewBill(s.genID.Generate(), reading.CustomerID, reading.ID, period.Period(reading.Period), total, now)
	if err := s.repo.InsertBill(ctx, tx, &bill); err != nil {
		return domain.Detail{}, err
	}

	items := make([]domain.BillItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.BillItem{
			ID:     s.genID.Generate(),
			BillID: bill.ID,
			Type:   line.Type,
			Usage:  line.Usage,
			Rate:   line.Rate,
			Amount: line.Amount,
		})
	}
	if err := s.repo.InsertItems(ctx, tx, items); err != nil {
		return domain.Detail{}, err
	}

	return domain.Detail{Bill: bill, Reading: reading, Items: items}, nil
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (domain.PaymentResult, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectPayment, authorization.ActionPaymentRecord); err != nil {
		return domain.PaymentResult{}, err
	}

	billID, err := parseID(req.BillID, domain.ErrInvalidID)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	if req.Amount <= 0 {
		return domain.PaymentResult{}, domain.ErrInvalidAmount
	}
	if req.Penalty < 0 {
		return domain.PaymentResult{}, domain.ErrInvalidPenalty
	}

	bill, err := s.repo.FindByID(ctx, s.db, billID)
	if err != nil {
		return domain.PaymentResult{}, apperror.Transaction(err)
	}
	if bill == nil {
		return domain.PaymentResult{}, domain.ErrNotFound
	}

	var result domain.PaymentResult
	err = s.locker.With(ctx, lock.CustomerKey(bill.CustomerID), s.lockTTL, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := s.customerRepo.LockByID(ctx, tx, bill.CustomerID); err != nil {
				return err
			}
			current, err := s.repo.FindByID(ctx, tx, billID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if current.IsPaid() {
				return fmt.Errorf("%w: %s", domain.ErrAlreadyPaid, current.Period)
			}

			now := s.clock.Now()
			applied, change := current.Apply(req.Amount, req.Penalty, now)
			if err := s.repo.UpdatePayment(ctx, tx, current); err != nil {
				return err
			}

			var settled []string
			if current.IsPaid() {
				settled = append(settled, period.Period(current.Period).Label())
			}
			payment := paymentdomain.Payment{
				ID:           s.genID.Generate(),
				Reference:    paymentdomain.NewReference(),
				CustomerID:   current.CustomerID,
				BillID:       &current.ID,
				Amount:       req.Amount,
				Allocated:    applied,
				ChangeAmount: change,
				Description:  paymentdomain.Describe(settled, 0),
				CreatedAt:    now,
			}
			if err := s.paymentRepo.Insert(ctx, tx, &payment); err != nil {
				return err
			}
			if applied > 0 {
				if err := s.paymentRepo.InsertAllocations(ctx, tx, []paymentdomain.Allocation{{
					ID:        s.genID.Generate(),
					PaymentID: payment.ID,
					BillID:    current.ID,
					Period:    current.Period,
					Amount:    applied,
					CreatedAt: now,
				}}); err != nil {
					return err
				}
			}

			if _, err := s.balance.Refresh(ctx, tx, current.CustomerID); err != nil {
				return err
			}

			result = domain.PaymentResult{
				BillID:    current.ID.String(),
				Reference: payment.Reference,
				Status:    current.PaymentStatus,
				Remaining: current.Remaining,
				Change:    change,
			}
			return s.audit(ctx, tx, auditdomain.ActionPaymentRecord, current.ID, map[string]any{
				"reference": payment.Reference,
				"amount":    req.Amount,
				"penalty":   req.Penalty,
				"applied":   applied,
				"change":    change,
				"status":    string(current.PaymentStatus),
			})
		})
	})
	if err != nil {
		return domain.PaymentResult{}, apperror.Transaction(err)
	}

	s.obsMetrics.RecordPayment(ctx, obsmetrics.PaymentKindBill, req.Amount)
	return result, nil
}

func (s *Service) DeleteBill(ctx context.Context, billID string) error {
	if err := s.authz.Authorize(ctx, authorization.ObjectBill, authorization.ActionBillDelete); err != nil {
		return err
	}
	id, err := parseID(billID, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrNotFound
		}
		if _, err := s.customerRepo.LockByID(ctx, tx, bill.CustomerID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, bill); err != nil {
			return err
		}
		if _, err := s.balance.Refresh(ctx, tx, bill.CustomerID); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionBillDelete, bill.ID, map[string]any{
			"customer_id":    bill.CustomerID.String(),
			"period":         bill.Period,
			"total_amount":   bill.TotalAmount,
			"amount_paid":    bill.AmountPaid,
			"payment_status": string(bill.PaymentStatus),
		})
	})
	if err != nil {
		return apperror.Transaction(err)
	}
	return nil
}

func (s *Service) DeleteByPeriod(ctx context.Context, rawPeriod string) (int64, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectBill, authorization.ActionBillDelete); err != nil {
		return 0, err
	}
	p, err := period.Parse(rawPeriod)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bills, err := s.repo.ListByPeriod(ctx, tx, p.String())
		if err != nil {
			return err
		}
		if len(bills) == 0 {
			return fmt.Errorf("%w: %s", domain.ErrPeriodNotFound, p)
		}

		customers := map[snowflake.ID]struct{}{}
		for _, bill := range bills {
			customers[bill.CustomerID] = struct{}{}
		}
		ids := make([]snowflake.ID, 0, len(customers))
		for id := range customers {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if _, err := s.customerRepo.LockByID(ctx, tx, id); err != nil {
				return err
			}
		}

		for _, bill := range bills {
			if err := s.repo.Delete(ctx, tx, bill); err != nil {
				return err
			}
		}
		for _, id := range ids {
			if _, err := s.balance.Refresh(ctx, tx, id); err != nil {
				return err
			}
		}
		deleted = int64(len(bills))

		if s.auditSvc == nil {
			return nil
		}
		target := p.String()
		return s.auditSvc.AuditLog(ctx, tx, auditdomain.ActionBillPeriodDelete, auditdomain.TargetPeriod, &target, map[string]any{
			"deleted":   deleted,
			"customers": len(ids),
		})
	})
	if err != nil {
		return 0, apperror.Transaction(err)
	}
	return deleted, nil
}

func (s *Service) Get(ctx context.Context, billID string) (domain.Detail, error) {
	id, err := parseID(billID, domain.ErrInvalidID)
	if err != nil {
		return domain.Detail{}, err
	}
	bill, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Detail{}, err
	}
	if bill == nil {
		return domain.Detail{}, domain.ErrNotFound
	}
	reading, err := s.repo.FindReadingByID(ctx, s.db, bill.MeterReadingID)
	if err != nil {
		return domain.Detail{}, err
	}
	items, err := s.repo.ListItems(ctx, s.db, bill.ID)
	if err != nil {
		return domain.Detail{}, err
	}

	detail := domain.Detail{Bill: *bill, Items: items}
	if reading != nil {
		detail.Reading = *reading
	}
	return detail, nil
}

func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]domain.Bill, error) {
	id, err := parseID(customerID, domain.ErrInvalidCustomerID)
	if err != nil {
		return nil, err
	}
	bills, err := s.repo.ListByCustomer(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return deref(bills), nil
}

func (s *Service) ListUnpaid(ctx context.Context, customerID string) ([]domain.Bill, error) {
	id, err := parseID(customerID, domain.ErrInvalidCustomerID)
	if err != nil {
		return nil, err
	}
	bills, err := s.repo.ListUnpaid(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return deref(bills), nil
}

func (s *Service) Summaries(ctx context.Context, limit int) ([]domain.PeriodSummary, error) {
	switch {
	case limit <= 0:
		limit = defaultSummaryLimit
	case limit > maxSummaryLimit:
		limit = maxSummaryLimit
	}
	rows, err := s.repo.Summaries(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.PeriodSummary{}
	}
	return rows, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, targetID snowflake.ID, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	target := targetID.String()
	return s.auditSvc.AuditLog(ctx, tx, action, auditdomain.TargetBill, &target, metadata)
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}

func deref(bills []*domain.Bill) []domain.Bill {
	out := make([]domain.Bill, 0, len(bills))
	for _, bill := range bills {
		if bill != nil {
			out = append(out, *bill)
		}
	}
	return out
}

package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/smallbiznis/tirta/internal/apperror"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/smallbiznis/tirta/internal/bulkbilling/domain"
	"github.com/smallbiznis/tirta/internal/config"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/internal/lock"
	"github.com/smallbiznis/tirta/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tirta/internal/observability/metrics"
	"github.com/smallbiznis/tirta/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultConcurrency     = 4
	defaultCustomerTimeout = 10 * time.Second
	runLockTTL             = 15 * time.Minute
	outcomeCreated         = "created"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config `optional:"true"`
	Bills        billdomain.Service
	BillRepo     billdomain.Repository
	CustomerRepo customerdomain.Repository
	Authz        authorization.Service
	Estimator    domain.UsageEstimator  `optional:"true"`
	AuditSvc     auditdomain.Service    `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics    `optional:"true"`
	BulkMetrics  *obsmetrics.BulkMetrics `optional:"true"`
	Locker       *lock.Locker           `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	bills           billdomain.Service
	billRepo        billdomain.Repository
	customerRepo    customerdomain.Repository
	authz           authorization.Service
	estimator       domain.UsageEstimator
	auditSvc        auditdomain.Service
	obsMetrics      *obsmetrics.Metrics
	bulkMetrics     *obsmetrics.BulkMetrics
	locker          *lock.Locker
	concurrency     int
	customerTimeout time.Duration
}

func New(p Params) domain.Service {
	concurrency := p.Cfg.Bulk.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	timeout := p.Cfg.Bulk.CustomerTimeout
	if timeout <= 0 {
		timeout = defaultCustomerTimeout
	}
	estimator := p.Estimator
	if estimator == nil {
		estimator = domain.EstimatorForPolicy(p.Cfg.Bulk.EstimationPolicy)
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("bulkbilling.service"),
		bills:           p.Bills,
		billRepo:        p.BillRepo,
		customerRepo:    p.CustomerRepo,
		authz:           p.Authz,
		estimator:       estimator,
		auditSvc:        p.AuditSvc,
		obsMetrics:      p.ObsMetrics,
		bulkMetrics:     p.BulkMetrics,
		locker:          p.Locker,
		concurrency:     concurrency,
		customerTimeout: timeout,
	}
}

// outcome is the result of one customer; exactly one of bill or skip is set.
type outcome struct {
	bill *domain.CreatedBill
	skip *domain.Skip
}

func (s *Service) GenerateForPeriod(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectBill, authorization.ActionBillBulkCreate); err != nil {
		return domain.GenerateResult{}, err
	}
	p, err := period.Parse(req.Period)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	var result domain.GenerateResult
	err = s.locker.WithTry(ctx, lock.PeriodKey(p.String()), runLockTTL, func(ctx context.Context) error {
		var err error
		result, err = s.run(ctx, p, req.Usage)
		return err
	})
	if err != nil {
		return domain.GenerateResult{}, err
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, p period.Period, supplied map[int64]int64) (domain.GenerateResult, error) {
	started := time.Now()
	log := logger.WithContext(ctx, s.log).With(zap.String("period", p.String()))

	customers, err := s.customerRepo.ListActive(ctx, s.db)
	if err != nil {
		s.bulkMetrics.ObserveRun(obsmetrics.BulkRunFailed, time.Since(started))
		return domain.GenerateResult{}, apperror.Transaction(err)
	}

	var (
		mu       sync.Mutex
		outcomes = make([]outcome, 0, len(customers))
	)
	record := func(o outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, customer := range customers {
		if gctx.Err() != nil {
			record(outcome{skip: skipFor(customer, domain.ReasonCancelled, nil)})
			continue
		}
		g.Go(func() error {
			record(s.generateOne(gctx, p, customer, supplied))
			return nil
		})
	}
	_ = g.Wait()

	result := fold(p, outcomes)
	result.Cancelled = ctx.Err() != nil

	runOutcome := obsmetrics.BulkRunCompleted
	if result.Cancelled {
		runOutcome = obsmetrics.BulkRunCancelled
	}
	s.bulkMetrics.ObserveRun(runOutcome, time.Since(started))
	log.Info("bulk generation finished",
		zap.Int("customers", len(customers)),
		zap.Int("created", result.Created),
		zap.Int("skipped", len(result.Skipped)),
		zap.Bool("cancelled", result.Cancelled),
	)

	if s.auditSvc != nil {
		err := s.auditSvc.AuditLog(context.WithoutCancel(ctx), nil, auditdomain.ActionBillBulkCreate, auditdomain.TargetBill, nil, map[string]any{
			"period":    p.String(),
			"created":   result.Created,
			"skipped":   len(result.Skipped),
			"cancelled": result.Cancelled,
		})
		if err != nil {
			log.Warn("audit log failed", zap.String("action", auditdomain.ActionBillBulkCreate), zap.Error(err))
		}
	}
	return result, nil
}

// generateOne runs a single customer under its own deadline. Errors never
// escape: they become a skip carrying the reason.
func (s *Service) generateOne(ctx context.Context, p period.Period, customer *customerdomain.Customer, supplied map[int64]int64) outcome {
	if ctx.Err() != nil {
		return s.skipped(ctx, customer, domain.ReasonCancelled, nil)
	}
	started := time.Now()
	defer func() { s.bulkMetrics.ObserveCustomer(time.Since(started)) }()

	cctx, cancel := context.WithTimeout(ctx, s.customerTimeout)
	defer cancel()

	existing, err := s.billRepo.FindReading(cctx, s.db, customer.ID, p.String())
	if err != nil {
		return s.failed(ctx, customer, err)
	}
	if existing != nil {
		return s.skipped(ctx, customer, domain.ReasonBillExists, nil)
	}

	previous, err := s.billRepo.FindReading(cctx, s.db, customer.ID, p.Previous().String())
	if err != nil {
		return s.failed(ctx, customer, err)
	}
	if previous == nil {
		return s.skipped(ctx, customer, domain.ReasonNoPreviousReading, nil)
	}

	usage, err := s.estimator.Estimate(cctx, domain.EstimateInput{
		CustomerNumber: customer.CustomerNumber,
		Previous:       *previous,
		Supplied:       supplied,
	})
	if err != nil {
		return s.skipped(ctx, customer, apperror.CodeOf(err), err)
	}

	meterStart := previous.MeterEnd
	detail, err := s.bills.CreateBill(cctx, billdomain.CreateBillRequest{
		CustomerID: customer.ID.String(),
		Period:     p.String(),
		MeterStart: &meterStart,
		MeterEnd:   meterStart + usage,
		Source:     billdomain.SourceBulk,
	})
	if err != nil {
		if errors.Is(err, billdomain.ErrReadingExists) {
			return s.skipped(ctx, customer, domain.ReasonBillExists, nil)
		}
		return s.failed(ctx, customer, err)
	}

	s.obsMetrics.RecordBulkOutcome(ctx, outcomeCreated)
	return outcome{bill: &domain.CreatedBill{
		CustomerID:     customer.ID.String(),
		CustomerNumber: customer.CustomerNumber,
		BillID:         detail.ID.String(),
		Usage:          detail.Reading.Usage,
		TotalAmount:    detail.TotalAmount,
	}}
}

func (s *Service) skipped(ctx context.Context, customer *customerdomain.Customer, reason string, err error) outcome {
	s.bulkMetrics.IncSkip(reason)
	s.obsMetrics.RecordBulkOutcome(ctx, reason)
	return outcome{skip: skipFor(customer, reason, err)}
}

func (s *Service) failed(ctx context.Context, customer *customerdomain.Customer, err error) outcome {
	reason := obsmetrics.ClassifyFailureReason(err)
	if reason == obsmetrics.FailureReasonBusinessRule {
		reason = apperror.CodeOf(err)
	}
	s.bulkMetrics.IncFailure(err)
	s.obsMetrics.RecordBulkOutcome(ctx, reason)
	logger.WithCustomer(logger.WithContext(ctx, s.log), customer.ID.String(), customer.CustomerNumber).
		Warn("bulk generation failed for customer", zap.String("reason", reason), zap.Error(err))
	return outcome{skip: skipFor(customer, reason, err)}
}

func skipFor(customer *customerdomain.Customer, reason string, err error) *domain.Skip {
	skip := &domain.Skip{
		CustomerID:     customer.ID.String(),
		CustomerNumber: customer.CustomerNumber,
		Name:           customer.Name,
		Reason:         reason,
	}
	if err != nil {
		skip.Error = err.Error()
	}
	return skip
}

func fold(p period.Period, outcomes []outcome) domain.GenerateResult {
	result := domain.GenerateResult{
		Period:  p.String(),
		Bills:   []domain.CreatedBill{},
		Skipped: []domain.Skip{},
	}
	for _, o := range outcomes {
		switch {
		case o.bill != nil:
			result.Bills = append(result.Bills, *o.bill)
		case o.skip != nil:
			result.Skipped = append(result.Skipped, *o.skip)
		}
	}
	sort.Slice(result.Bills, func(i, j int) bool {
		return result.Bills[i].CustomerNumber < result.Bills[j].CustomerNumber
	})
	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].CustomerNumber < result.Skipped[j].CustomerNumber
	})
	result.Created = len(result.Bills)
	return result
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/apperror"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	balancedomain "github.com/smallbiznis/tirta/internal/balance/domain"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/smallbiznis/tirta/internal/clock"
	"github.com/smallbiznis/tirta/internal/config"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/internal/lock"
	obsmetrics "github.com/smallbiznis/tirta/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/tirta/internal/payment/domain"
	"github.com/smallbiznis/tirta/internal/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultLockTTL = 30 * time.Second

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Cfg          config.Config `optional:"true"`
	Repo         paymentdomain.Repository
	BillRepo     billdomain.Repository
	CustomerRepo customerdomain.Repository
	Balance      balancedomain.Service
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
	repo         paymentdomain.Repository
	billRepo     billdomain.Repository
	customerRepo customerdomain.Repository
	balance      balancedomain.Service
	authz        authorization.Service
	auditSvc     auditdomain.Service
	obsMetrics   *obsmetrics.Metrics
	locker       *lock.Locker
	lockTTL      time.Duration
}

func NewService(p Params) paymentdomain.Service {
	lockTTL := p.Cfg.PaymentLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		billRepo:     p.BillRepo,
		customerRepo: p.CustomerRepo,
		balance:      p.Balance,
		authz:        p.Authz,
		auditSvc:     p.AuditSvc,
		obsMetrics:   p.ObsMetrics,
		locker:       p.Locker,
		lockTTL:      lockTTL,
	}
}

// Allocate spreads a cash amount over the customer's unsettled bills, oldest
// period first. Whatever is left after every bill is settled is change; the
// caller may keep part of it as customer balance through SaveToBalance.
func (s *Service) Allocate(ctx context.Context, req paymentdomain.AllocateRequest) (paymentdomain.AllocationResult, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectPayment, authorization.ActionPaymentRecord); err != nil {
		return paymentdomain.AllocationResult{}, err
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID <= 0 {
		return paymentdomain.AllocationResult{}, paymentdomain.ErrInvalidCustomerID
	}
	if req.Amount <= 0 {
		return paymentdomain.AllocationResult{}, paymentdomain.ErrInvalidAmount
	}
	if req.SaveToBalance < 0 || req.SaveToBalance > req.Amount {
		return paymentdomain.AllocationResult{}, paymentdomain.ErrInvalidSaveToBalance
	}

	var result paymentdomain.AllocationResult
	err = s.locker.With(ctx, lock.CustomerKey(customerID), s.lockTTL, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.allocate(ctx, tx, customerID, req)
			return err
		})
	})
	if err != nil {
		return paymentdomain.AllocationResult{}, apperror.Transaction(err)
	}

	s.obsMetrics.RecordPayment(ctx, obsmetrics.PaymentKindAllocation, req.Amount)
	s.log.Info("payment allocated",
		zap.String("customer_id", customerID.String()),
		zap.String("reference", result.Reference),
		zap.Int64("amount", req.Amount),
		zap.Int("bills_updated", len(result.BillsUpdated)),
		zap.Int64("change", result.Change),
	)
	return result, nil
}

func (s *Service) allocate(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, req paymentdomain.AllocateRequest) (paymentdomain.AllocationResult, error) {
	customer, err := s.customerRepo.LockByID(ctx, tx, customerID)
	if err != nil {
		return paymentdomain.AllocationResult{}, err
	}
	if customer == nil {
		return paymentdomain.AllocationResult{}, paymentdomain.ErrCustomerNotFound
	}

	bills, err := s.billRepo.ListUnpaid(ctx, tx, customerID)
	if err != nil {
		return paymentdomain.AllocationResult{}, err
	}

	now := s.clock.Now()
	paymentID := s.genID.Generate()
	left := req.Amount
	updates := make([]paymentdomain.BillUpdate, 0, len(bills))
	allocations := make([]paymentdomain.Allocation, 0, len(bills))
	var settled []string

	for _, bill := range bills {
		if left == 0 {
			break
		}
		portion := min(left, bill.Remaining)
		if portion <= 0 {
			continue
		}
		applied, _ := bill.Apply(portion, 0, now)
		left -= applied

		if err := s.billRepo.UpdatePayment(ctx, tx, bill); err != nil {
			return paymentdomain.AllocationResult{}, err
		}
		allocations = append(allocations, paymentdomain.Allocation{
			ID:        s.genID.Generate(),
			PaymentID: paymentID,
			BillID:    bill.ID,
			Period:    bill.Period,
			Amount:    applied,
			CreatedAt: now,
		})
		updates = append(updates, paymentdomain.BillUpdate{
			BillID:    bill.ID.String(),
			Period:    bill.Period,
			Applied:   applied,
			Remaining: bill.Remaining,
			Status:    string(bill.PaymentStatus),
		})
		if bill.IsPaid() {
			settled = append(settled, period.Period(bill.Period).Label())
		}
	}

	change := left
	if req.SaveToBalance > change {
		return paymentdomain.AllocationResult{}, fmt.Errorf("%w: change is %d", paymentdomain.ErrInvalidSaveToBalance, change)
	}

	payment := paymentdomain.Payment{
		ID:             paymentID,
		Reference:      paymentdomain.NewReference(),
		CustomerID:     customerID,
		Amount:         req.Amount,
		Allocated:      req.Amount - change,
		ChangeAmount:   change,
		SavedToBalance: req.SaveToBalance,
		Description:    paymentdomain.Describe(settled, req.SaveToBalance),
		CreatedAt:      now,
	}
	if err := s.repo.Insert(ctx, tx, &payment); err != nil {
		return paymentdomain.AllocationResult{}, err
	}
	if err := s.repo.InsertAllocations(ctx, tx, allocations); err != nil {
		return paymentdomain.AllocationResult{}, err
	}
	if _, err := s.balance.Refresh(ctx, tx, customerID); err != nil {
		return paymentdomain.AllocationResult{}, err
	}

	if s.auditSvc != nil {
		target := payment.ID.String()
		if err := s.auditSvc.AuditLog(ctx, tx, auditdomain.ActionPaymentAllocate, auditdomain.TargetPayment, &target, map[string]any{
			"customer_id":      customerID.String(),
			"reference":        payment.Reference,
			"amount":           payment.Amount,
			"allocated":        payment.Allocated,
			"change":           change,
			"saved_to_balance": req.SaveToBalance,
			"bills":            len(updates),
		}); err != nil {
			return paymentdomain.AllocationResult{}, err
		}
	}

	return paymentdomain.AllocationResult{
		PaymentID:      payment.ID.String(),
		Reference:      payment.Reference,
		BillsUpdated:   updates,
		Change:         change,
		SavedToBalance: req.SaveToBalance,
		CashChange:     change - req.SaveToBalance,
		Description:    payment.Description,
	}, nil
}

package testsupport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	balancedomain "github.com/smallbiznis/tirta/internal/balance/domain"
	balancerepo "github.com/smallbiznis/tirta/internal/balance/repository"
	balanceservice "github.com/smallbiznis/tirta/internal/balance/service"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	billrepo "github.com/smallbiznis/tirta/internal/bill/repository"
	billservice "github.com/smallbiznis/tirta/internal/bill/service"
	bulkdomain "github.com/smallbiznis/tirta/internal/bulkbilling/domain"
	bulkservice "github.com/smallbiznis/tirta/internal/bulkbilling/service"
	"github.com/smallbiznis/tirta/internal/clock"
	"github.com/smallbiznis/tirta/internal/config"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	customerrepo "github.com/smallbiznis/tirta/internal/customer/repository"
	customerservice "github.com/smallbiznis/tirta/internal/customer/service"
	"github.com/smallbiznis/tirta/internal/lock"
	notificationdomain "github.com/smallbiznis/tirta/internal/notification/domain"
	notificationservice "github.com/smallbiznis/tirta/internal/notification/service"
	obsmetrics "github.com/smallbiznis/tirta/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/tirta/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/tirta/internal/payment/repository"
	paymentservice "github.com/smallbiznis/tirta/internal/payment/service"
	settingsdomain "github.com/smallbiznis/tirta/internal/settings/domain"
	settingsrepo "github.com/smallbiznis/tirta/internal/settings/repository"
	settingsservice "github.com/smallbiznis/tirta/internal/settings/service"
	"github.com/smallbiznis/tirta/internal/tariff"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epoch is the fixed instant a Stack's clock starts at.
var Epoch = time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)

// Stack is every service wired against one in-memory database, the same way
// the fx graph wires them in the binaries.
type Stack struct {
	DB    *gorm.DB
	Node  *snowflake.Node
	Clock *clock.FakeClock
	Authz authorization.Service
	Audit auditdomain.Service

	CustomerRepo customerdomain.Repository
	BillRepo     billdomain.Repository
	PaymentRepo  paymentdomain.Repository

	Balance      balancedomain.Service
	Settings     settingsdomain.Service
	Customers    customerdomain.Service
	Bills        billdomain.Service
	Payments     paymentdomain.Service
	Bulk         bulkdomain.Service
	Notification notificationdomain.Service
}

type StackOption func(*stackOptions)

type stackOptions struct {
	cfg       config.Config
	billRepo  billdomain.Repository
	locker    *lock.Locker
	estimator bulkdomain.UsageEstimator
	log       *zap.Logger
	failAudit map[string]bool
	metrics   *obsmetrics.Metrics
}

// WithBillRepo swaps the bill repository, typically for a wrapper that fails
// on purpose.
func WithBillRepo(repo billdomain.Repository) StackOption {
	return func(o *stackOptions) { o.billRepo = repo }
}

func WithLocker(locker *lock.Locker) StackOption {
	return func(o *stackOptions) { o.locker = locker }
}

func WithConfig(cfg config.Config) StackOption {
	return func(o *stackOptions) { o.cfg = cfg }
}

func WithEstimator(estimator bulkdomain.UsageEstimator) StackOption {
	return func(o *stackOptions) { o.estimator = estimator }
}

// WithMetrics hands the instruments to every service that records them.
func WithMetrics(m *obsmetrics.Metrics) StackOption {
	return func(o *stackOptions) { o.metrics = m }
}

// WithLogger routes every service's logs to log instead of a no-op logger.
func WithLogger(log *zap.Logger) StackOption {
	return func(o *stackOptions) { o.log = log }
}

// WithAuditFailure makes audit writes for the given actions fail. Other
// actions are recorded normally.
func WithAuditFailure(actions ...string) StackOption {
	return func(o *stackOptions) {
		if o.failAudit == nil {
			o.failAudit = map[string]bool{}
		}
		for _, action := range actions {
			o.failAudit[action] = true
		}
	}
}

// ErrAuditUnavailable is returned for actions named by WithAuditFailure.
var ErrAuditUnavailable = errors.New("audit store unavailable")

type failingAudit struct {
	auditdomain.Service
	actions map[string]bool
}

func (a failingAudit) AuditLog(ctx context.Context, db *gorm.DB, action string, targetType string, targetID *string, metadata map[string]any) error {
	if a.actions[action] {
		return ErrAuditUnavailable
	}
	return a.Service.AuditLog(ctx, db, action, targetType, targetID, metadata)
}

func NewStack(t *testing.T, opts ...StackOption) *Stack {
	t.Helper()

	o := stackOptions{billRepo: billrepo.Provide()}
	for _, opt := range opts {
		opt(&o)
	}

	db := OpenDB(t)
	node := Node(t)
	log := o.log
	if log == nil {
		log = zap.NewNop()
	}
	clk := clock.NewFakeClock(Epoch)
	s := &Stack{
		DB:           db,
		Node:         node,
		Clock:        clk,
		Authz:        Authz(t),
		Audit:        Audit(db, node, clk),
		CustomerRepo: customerrepo.Provide(),
		BillRepo:     o.billRepo,
		PaymentRepo:  paymentrepo.Provide(),
	}
	if len(o.failAudit) > 0 {
		s.Audit = failingAudit{Service: s.Audit, actions: o.failAudit}
	}

	s.Balance = balanceservice.New(balanceservice.Params{
		DB:         db,
		Log:        log,
		Clock:      s.Clock,
		Repo:       balancerepo.Provide(),
		Authz:      s.Authz,
		AuditSvc:   s.Audit,
		ObsMetrics: o.metrics,
	})
	s.Settings = settingsservice.New(settingsservice.Params{
		DB:       db,
		Log:      log,
		Clock:    s.Clock,
		Repo:     settingsrepo.Provide(),
		Tariff:   config.NewStaticTariffConfigHolder(tariff.DefaultConfig()),
		Authz:    s.Authz,
		AuditSvc: s.Audit,
	})
	s.Customers = customerservice.New(customerservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       s.Clock,
		Repo:        s.CustomerRepo,
		BillRepo:    s.BillRepo,
		PaymentRepo: s.PaymentRepo,
		Balance:     s.Balance,
		Settings:    s.Settings,
		Authz:       s.Authz,
		AuditSvc:    s.Audit,
	})
	s.Bills = billservice.New(billservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        s.Clock,
		Cfg:          o.cfg,
		Repo:         s.BillRepo,
		CustomerRepo: s.CustomerRepo,
		PaymentRepo:  s.PaymentRepo,
		Balance:      s.Balance,
		Settings:     s.Settings,
		Authz:        s.Authz,
		AuditSvc:     s.Audit,
		Locker:       o.locker,
		ObsMetrics:   o.metrics,
	})
	s.Payments = paymentservice.NewService(paymentservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        s.Clock,
		Cfg:          o.cfg,
		Repo:         s.PaymentRepo,
		BillRepo:     s.BillRepo,
		CustomerRepo: s.CustomerRepo,
		Balance:      s.Balance,
		Authz:        s.Authz,
		AuditSvc:     s.Audit,
		Locker:       o.locker,
		ObsMetrics:   o.metrics,
	})
	s.Bulk = bulkservice.New(bulkservice.Params{
		DB:           db,
		Log:          log,
		Cfg:          o.cfg,
		Bills:        s.Bills,
		BillRepo:     s.BillRepo,
		CustomerRepo: s.CustomerRepo,
		Authz:        s.Authz,
		Estimator:    o.estimator,
		AuditSvc:     s.Audit,
		Locker:       o.locker,
		ObsMetrics:   o.metrics,
	})
	s.Notification = notificationservice.New(notificationservice.Params{
		DB:           db,
		Log:          log,
		Clock:        s.Clock,
		CustomerRepo: s.CustomerRepo,
		BillRepo:     s.BillRepo,
		Settings:     s.Settings,
	})
	return s
}

// Customer creates a customer with the next free number.
func (s *Stack) Customer(t *testing.T, name string) customerdomain.Customer {
	t.Helper()
	customer, err := s.Customers.Create(AdminContext(), customerdomain.CreateCustomerRequest{Name: name})
	require.NoError(t, err)
	return customer
}

// Bill records a reading for customer. meterStart only matters for the
// customer's first bill.
func (s *Stack) Bill(t *testing.T, customerID snowflake.ID, rawPeriod string, meterStart, meterEnd int64) billdomain.Detail {
	t.Helper()
	detail, err := s.Bills.CreateBill(AdminContext(), billdomain.CreateBillRequest{
		CustomerID: customerID.String(),
		Period:     rawPeriod,
		MeterStart: &meterStart,
		MeterEnd:   meterEnd,
	})
	require.NoError(t, err)
	return detail
}

// Reload reads the customer row back, totals included.
func (s *Stack) Reload(t *testing.T, customerID snowflake.ID) customerdomain.Customer {
	t.Helper()
	customer, err := s.CustomerRepo.FindByID(context.Background(), s.DB, customerID)
	require.NoError(t, err)
	require.NotNil(t, customer)
	return *customer
}

package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/apperror"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/authorization"
	balancedomain "github.com/smallbiznis/tirta/internal/balance/domain"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/smallbiznis/tirta/internal/clock"
	"github.com/smallbiznis/tirta/internal/customer/domain"
	paymentdomain "github.com/smallbiznis/tirta/internal/payment/domain"
	"github.com/smallbiznis/tirta/internal/period"
	settingsdomain "github.com/smallbiznis/tirta/internal/settings/domain"
	"github.com/smallbiznis/tirta/pkg/db"
	"github.com/smallbiznis/tirta/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	BillRepo    billdomain.Repository
	PaymentRepo paymentdomain.Repository
	Balance     balancedomain.Service
	Settings    settingsdomain.Service
	Authz       authorization.Service
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	billRepo    billdomain.Repository
	paymentRepo paymentdomain.Repository
	balance     balancedomain.Service
	settings    settingsdomain.Service
	authz       authorization.Service
	auditSvc    auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("customer.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		billRepo:    p.BillRepo,
		paymentRepo: p.PaymentRepo,
		balance:     p.Balance,
		settings:    p.Settings,
		authz:       p.Authz,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectCustomer, authorization.ActionCustomerCreate); err != nil {
		return domain.Customer{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}
	if req.CustomerNumber < 0 {
		return domain.Customer{}, domain.ErrInvalidNumber
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:             s.genID.Generate(),
		CustomerNumber: req.CustomerNumber,
		Name:           name,
		Phone:          strings.TrimSpace(req.Phone),
		Address:        strings.TrimSpace(req.Address),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if customer.CustomerNumber == 0 {
			last, err := s.repo.MaxNumber(ctx, tx)
			if err != nil {
				return err
			}
			customer.CustomerNumber = last + 1
		}
		if err := s.repo.Insert(ctx, tx, &customer); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrCustomerNumberTaken
			}
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionCustomerCreate, customer.ID, map[string]any{
			"customer_number": customer.CustomerNumber,
			"name":            customer.Name,
			"phone":           customer.Phone,
		})
	})
	if err != nil {
		return domain.Customer{}, apperror.Transaction(err)
	}
	return customer, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	if err := s.authz.Authorize(ctx, authorization.ObjectCustomer, authorization.ActionCustomerUpdate); err != nil {
		return domain.Customer{}, err
	}
	customerID, err := parseID(id)
	if err != nil {
		return domain.Customer{}, err
	}

	var customer domain.Customer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.LockByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			current.Name = name
		}
		if req.Phone != nil {
			current.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Address != nil {
			current.Address = strings.TrimSpace(*req.Address)
		}
		current.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, current); err != nil {
			return err
		}
		customer = *current
		return s.audit(ctx, tx, auditdomain.ActionCustomerUpdate, current.ID, map[string]any{
			"name":    current.Name,
			"phone":   current.Phone,
			"address": current.Address,
		})
	})
	if err != nil {
		return domain.Customer{}, apperror.Transaction(err)
	}
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	customerID, err := parseID(id)
	if err != nil {
		return domain.Customer{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	filter := domain.ListCustomerFilter{Search: strings.TrimSpace(req.Search)}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListCustomerResponse{}, domain.ErrInvalidPageToken
		}
		filter.After = cursor.After
	}

	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}
	items, pageInfo, err := pagination.Trim(items, page.Limit(), func(c *domain.Customer) int64 {
		return c.CustomerNumber
	})
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}
	return domain.ListCustomerResponse{PageInfo: pageInfo, Customers: customers}, nil
}

// Delete removes the customer's readings, bills and items and soft-deletes the
// customer row. Payments are kept and stay linked to the deleted customer.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.authz.Authorize(ctx, authorization.ObjectCustomer, authorization.ActionCustomerDelete); err != nil {
		return err
	}
	customerID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.LockByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrNotFound
		}
		bills, err := s.billRepo.DeleteByCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if _, err := s.balance.Refresh(ctx, tx, customerID); err != nil {
			return err
		}
		if err := s.repo.SoftDelete(ctx, tx, customerID, s.clock.Now()); err != nil {
			return err
		}
		return s.audit(ctx, tx, auditdomain.ActionCustomerDelete, customerID, map[string]any{
			"customer_number": customer.CustomerNumber,
			"bills_deleted":   bills,
		})
	})
	if err != nil {
		return apperror.Transaction(err)
	}
	return nil
}

func (s *Service) Statement(ctx context.Context, id string) (domain.Statement, error) {
	customer, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Statement{}, err
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return domain.Statement{}, err
	}

	bills, err := s.billRepo.ListByCustomer(ctx, s.db, customer.ID)
	if err != nil {
		return domain.Statement{}, err
	}
	readings, err := s.billRepo.ReadingsByCustomer(ctx, s.db, customer.ID)
	if err != nil {
		return domain.Statement{}, err
	}
	payments, err := s.paymentRepo.ListByCustomer(ctx, s.db, customer.ID)
	if err != nil {
		return domain.Statement{}, err
	}

	now := s.clock.Now()
	statement := domain.Statement{
		Customer: customer,
		Bills:    make([]domain.StatementBill, 0, len(bills)),
		Payments: make([]domain.StatementPayment, 0, len(payments)),
	}
	for _, bill := range bills {
		statement.Bills = append(statement.Bills, domain.StatementBill{
			ID:               bill.ID.String(),
			Period:           bill.Period,
			PeriodLabel:      period.Period(bill.Period).Label(),
			Usage:            readings[bill.MeterReadingID].Usage,
			TotalAmount:      bill.TotalAmount,
			Penalty:          bill.Penalty,
			AmountPaid:       bill.AmountPaid,
			Remaining:        bill.Remaining,
			PaymentStatus:    string(bill.PaymentStatus),
			PaidAt:           bill.PaidAt,
			SuggestedPenalty: bill.OverduePenalty(now, cfg.PenaltyPerMonth),
		})
	}
	for _, payment := range payments {
		statement.Payments = append(statement.Payments, domain.StatementPayment{
			ID:             payment.ID.String(),
			Reference:      payment.Reference,
			Amount:         payment.Amount,
			SavedToBalance: payment.SavedToBalance,
			Description:    payment.Description,
			CreatedAt:      payment.CreatedAt,
		})
	}
	return statement, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, action string, id snowflake.ID, metadata map[string]any) error {
	if s.auditSvc == nil {
		return nil
	}
	target := id.String()
	return s.auditSvc.AuditLog(ctx, tx, action, auditdomain.TargetCustomer, &target, metadata)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

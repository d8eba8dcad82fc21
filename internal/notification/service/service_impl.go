package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/smallbiznis/tirta/internal/clock"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/internal/notification/domain"
	"github.com/smallbiznis/tirta/internal/period"
	settingsdomain "github.com/smallbiznis/tirta/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	CustomerRepo customerdomain.Repository
	BillRepo     billdomain.Repository
	Settings     settingsdomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	customerRepo customerdomain.Repository
	billRepo     billdomain.Repository
	settings     settingsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("notification.service"),
		clock:        p.Clock,
		customerRepo: p.CustomerRepo,
		billRepo:     p.BillRepo,
		settings:     p.Settings,
	}
}

func (s *Service) Notice(ctx context.Context, customerID string) (domain.Notice, error) {
	id, err := parseID(customerID)
	if err != nil {
		return domain.Notice{}, err
	}
	customer, err := s.customerRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Notice{}, err
	}
	if customer == nil {
		return domain.Notice{}, domain.ErrCustomerNotFound
	}
	cfg, err := s.settings.Current(ctx)
	if err != nil {
		return domain.Notice{}, err
	}
	bills, err := s.billRepo.ListUnpaid(ctx, s.db, id)
	if err != nil {
		return domain.Notice{}, err
	}

	now := s.clock.Now()
	notice := domain.Notice{
		Customer:       *customer,
		UnpaidBills:    make([]domain.NoticeBill, 0, len(bills)),
		LastNotifiedAt: customer.LastNotifiedAt,
	}
	for _, bill := range bills {
		notice.TotalDue += bill.Remaining
		notice.UnpaidBills = append(notice.UnpaidBills, domain.NoticeBill{
			Bill:             *bill,
			PeriodLabel:      period.Period(bill.Period).Label(),
			SuggestedPenalty: bill.OverduePenalty(now, cfg.PenaltyPerMonth),
		})
	}
	return notice, nil
}

func (s *Service) Acknowledge(ctx context.Context, customerID string) (time.Time, error) {
	id, err := parseID(customerID)
	if err != nil {
		return time.Time{}, err
	}
	customer, err := s.customerRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return time.Time{}, err
	}
	if customer == nil {
		return time.Time{}, domain.ErrCustomerNotFound
	}

	now := s.clock.Now()
	if err := s.customerRepo.MarkNotified(ctx, s.db, id, now); err != nil {
		return time.Time{}, err
	}
	s.log.Debug("customer notified", zap.String("customer_id", id.String()))
	return now, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidCustomerID
	}
	return id, nil
}

package authorization

import (
	"context"
	_ "embed"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	"github.com/smallbiznis/tirta/internal/auditcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectBill     = "bill"
	ObjectCustomer = "customer"
	ObjectPayment  = "payment"
	ObjectSettings = "settings"
	ObjectBalance  = "balance"
)

const (
	ActionBillCreate       = "bill.create"
	ActionBillBulkCreate   = "bill.bulk_create"
	ActionBillImport       = "bill.import"
	ActionBillDelete       = "bill.delete"
	ActionCustomerCreate   = "customer.create"
	ActionCustomerUpdate   = "customer.update"
	ActionCustomerDelete   = "customer.delete"
	ActionPaymentRecord    = "payment.record"
	ActionSettingsUpdate   = "settings.update"
	ActionBalanceReconcile = "balance.reconcile"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleSystem   = "system"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service

	// mu serializes the grouping rewrite and the check that reads it, so a
	// subject seen under two roles at once is judged by the role it carried.
	mu sync.Mutex
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role grants.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return seeded(enforcer)
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	return seeded(enforcer)
}

func seeded(enforcer *casbin.SyncedEnforcer) (*casbin.SyncedEnforcer, error) {
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	actor, ok := auditcontext.ActorFromContext(ctx)
	if !ok || !actor.Valid() {
		return ErrUnauthenticated
	}

	subject := actor.Subject()
	roleName := "role:" + strings.ToLower(strings.TrimSpace(actor.Role))
	allowed, err := s.enforce(subject, roleName, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, subject, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) enforce(subject, roleName, object, action string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(subject, object, action)
}

// ensureGrouping keeps exactly one role link per subject so a role change
// at the gateway takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, subject string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := "capability"
	err := s.auditSvc.AuditLog(ctx, nil, auditdomain.ActionAuthzDenied, auditdomain.TargetAuthorization, &targetID, map[string]any{
		"object":  object,
		"action":  action,
		"subject": subject,
	})
	if err != nil {
		s.log.Warn("audit log failed", zap.String("action", auditdomain.ActionAuthzDenied), zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	operator := [][]string{
		{ObjectBill, ActionBillCreate},
		{ObjectPayment, ActionPaymentRecord},
		{ObjectCustomer, ActionCustomerCreate},
		{ObjectCustomer, ActionCustomerUpdate},
	}
	admin := append([][]string{
		{ObjectBill, ActionBillBulkCreate},
		{ObjectBill, ActionBillImport},
		{ObjectBill, ActionBillDelete},
		{ObjectCustomer, ActionCustomerDelete},
		{ObjectSettings, ActionSettingsUpdate},
		{ObjectBalance, ActionBalanceReconcile},
	}, operator...)
	system := [][]string{
		{ObjectBill, ActionBillBulkCreate},
		{ObjectBill, ActionBillCreate},
		{ObjectBalance, ActionBalanceReconcile},
	}

	grants := map[string][][]string{
		"role:" + RoleOperator: operator,
		"role:" + RoleAdmin:    admin,
		"role:" + RoleSystem:   system,
	}
	for role, rules := range grants {
		for _, rule := range rules {
			if _, err := enforcer.AddPolicy(role, rule[0], rule[1]); err != nil {
				return err
			}
		}
	}
	return nil
}

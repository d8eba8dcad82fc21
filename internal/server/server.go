package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tirta/internal/audit"
	"github.com/smallbiznis/tirta/internal/authorization"
	"github.com/smallbiznis/tirta/internal/balance"
	balancedomain "github.com/smallbiznis/tirta/internal/balance/domain"
	"github.com/smallbiznis/tirta/internal/bill"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	"github.com/smallbiznis/tirta/internal/bulkbilling"
	bulkdomain "github.com/smallbiznis/tirta/internal/bulkbilling/domain"
	"github.com/smallbiznis/tirta/internal/config"
	"github.com/smallbiznis/tirta/internal/customer"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	"github.com/smallbiznis/tirta/internal/jobs"
	"github.com/smallbiznis/tirta/internal/notification"
	notificationdomain "github.com/smallbiznis/tirta/internal/notification/domain"
	"github.com/smallbiznis/tirta/internal/observability"
	obsmiddleware "github.com/smallbiznis/tirta/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tirta/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tirta/internal/observability/tracing"
	"github.com/smallbiznis/tirta/internal/payment"
	paymentdomain "github.com/smallbiznis/tirta/internal/payment/domain"
	"github.com/smallbiznis/tirta/internal/settings"
	settingsdomain "github.com/smallbiznis/tirta/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(obsmetrics.NewHTTPMetrics),
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	balance.Module,
	settings.Module,
	customer.Module,
	bill.Module,
	payment.Module,
	bulkbilling.Module,
	notification.Module,
	jobs.ClientModule,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	authzSvc        authorization.Service
	customerSvc     customerdomain.Service
	billSvc         billdomain.Service
	paymentSvc      paymentdomain.Service
	balanceSvc      balancedomain.Service
	bulkSvc         bulkdomain.Service
	notificationSvc notificationdomain.Service
	settingsSvc     settingsdomain.Service
	jobs            jobs.Enqueuer
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	AuthzSvc        authorization.Service
	CustomerSvc     customerdomain.Service
	BillSvc         billdomain.Service
	PaymentSvc      paymentdomain.Service
	BalanceSvc      balancedomain.Service
	BulkSvc         bulkdomain.Service
	NotificationSvc notificationdomain.Service
	SettingsSvc     settingsdomain.Service
	Jobs            jobs.Enqueuer `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		authzSvc:        p.AuthzSvc,
		customerSvc:     p.CustomerSvc,
		billSvc:         p.BillSvc,
		paymentSvc:      p.PaymentSvc,
		balanceSvc:      p.BalanceSvc,
		bulkSvc:         p.BulkSvc,
		notificationSvc: p.NotificationSvc,
		settingsSvc:     p.SettingsSvc,
		jobs:            p.Jobs,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(ActorContext())

	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PUT("/customers/:id", s.UpdateCustomer)
	api.DELETE("/customers/:id", s.DeleteCustomer)
	api.GET("/customers/:id/statement", s.GetCustomerStatement)
	api.GET("/customers/:id/bills", s.ListCustomerBills)
	api.POST("/customers/:id/payments", s.AllocatePayment)
	api.GET("/customers/:id/notice", s.GetNotice)
	api.POST("/customers/:id/notice/ack", s.AcknowledgeNotice)

	api.POST("/bills", s.CreateBill)
	api.GET("/bills/:id", s.GetBillByID)
	api.DELETE("/bills/:id", s.DeleteBill)
	api.POST("/bills/:id/payments", s.RecordBillPayment)

	api.GET("/periods/summary", s.ListPeriodSummaries)
	api.DELETE("/periods/:period/bills", s.DeletePeriodBills)
	api.POST("/periods/:period/bills/generate", s.GeneratePeriodBills)
	api.POST("/periods/:period/import", s.ImportPeriod)

	api.POST("/balances/reconcile", s.ReconcileBalances)

	api.GET("/settings/tariff", s.GetTariff)
	api.PUT("/settings/tariff", s.UpdateTariff)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

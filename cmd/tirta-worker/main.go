package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/audit"
	"github.com/smallbiznis/tirta/internal/authorization"
	"github.com/smallbiznis/tirta/internal/balance"
	"github.com/smallbiznis/tirta/internal/bill"
	"github.com/smallbiznis/tirta/internal/bulkbilling"
	"github.com/smallbiznis/tirta/internal/clock"
	"github.com/smallbiznis/tirta/internal/config"
	"github.com/smallbiznis/tirta/internal/customer"
	"github.com/smallbiznis/tirta/internal/jobs"
	"github.com/smallbiznis/tirta/internal/lock"
	"github.com/smallbiznis/tirta/internal/observability"
	"github.com/smallbiznis/tirta/internal/payment"
	"github.com/smallbiznis/tirta/internal/settings"
	"github.com/smallbiznis/tirta/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,

		// Domain services the queued tasks run against.
		authorization.Module,
		audit.Module,
		balance.Module,
		settings.Module,
		customer.Module,
		bill.Module,
		payment.Module,
		bulkbilling.Module,

		// No http server; the API owns migrations.
		jobs.WorkerModule,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.WorkerNode)
}

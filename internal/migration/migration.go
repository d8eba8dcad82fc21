package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/tirta/internal/audit/domain"
	billdomain "github.com/smallbiznis/tirta/internal/bill/domain"
	customerdomain "github.com/smallbiznis/tirta/internal/customer/domain"
	paymentdomain "github.com/smallbiznis/tirta/internal/payment/domain"
	settingsdomain "github.com/smallbiznis/tirta/internal/settings/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every table of the schema in creation order.
func Models() []any {
	return []any{
		&customerdomain.Customer{},
		&billdomain.MeterReading{},
		&billdomain.Bill{},
		&billdomain.BillItem{},
		&paymentdomain.Payment{},
		&paymentdomain.Allocation{},
		&settingsdomain.Setting{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. Postgres gets the versioned SQL files;
// the embedded sqlite and mysql setups used for local runs are migrated from
// the models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

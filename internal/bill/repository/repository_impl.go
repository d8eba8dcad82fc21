package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tirta/internal/bill/domain"
	"gorm.io/gorm"
)

const billColumns = `id, customer_id, meter_reading_id, period, total_amount, amount_paid,
	penalty, remaining, change_amount, payment_status, paid_at, created_at, updated_at`

const readingColumns = `id, customer_id, period, meter_start, meter_end, usage_m3, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertReading(ctx context.Context, db *gorm.DB, reading *domain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meter_readings (`+readingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reading.ID,
		reading.CustomerID,
		reading.Period,
		reading.MeterStart,
		reading.MeterEnd,
		reading.Usage,
		reading.CreatedAt,
	).Error
}

func (r *repo) InsertBill(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID,
		bill.CustomerID,
		bill.MeterReadingID,
		bill.Period,
		bill.TotalAmount,
		bill.AmountPaid,
		bill.Penalty,
		bill.Remaining,
		bill.Change,
		bill.PaymentStatus,
		bill.PaidAt,
		bill.CreatedAt,
		bill.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.BillItem) error {
	for _, item := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO bill_items (id, bill_id, type, usage_m3, rate, amount) VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.BillID,
			item.Type,
			item.Usage,
			item.Rate,
			item.Amount,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindReading(ctx context.Context, db *gorm.DB, customerID snowflake.ID, period string) (*domain.MeterReading, error) {
	var reading domain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings WHERE customer_id = ? AND period = ?`,
		customerID,
		period,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) LatestReadingBefore(ctx context.Context, db *gorm.DB, customerID snowflake.ID, period string) (*domain.MeterReading, error) {
	var reading domain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings
		 WHERE customer_id = ? AND period < ?
		 ORDER BY period DESC
		 LIMIT 1`,
		customerID,
		period,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) FindReadingByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.MeterReading, error) {
	var reading domain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings WHERE id = ?`,
		id,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills WHERE id = ?`,
		id,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, billID snowflake.ID) ([]domain.BillItem, error) {
	var items []domain.BillItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, bill_id, type, usage_m3, rate, amount FROM bill_items
		 WHERE bill_id = ?
		 ORDER BY id ASC`,
		billID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills
		 WHERE customer_id = ?
		 ORDER BY period DESC, id DESC`,
		customerID,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListUnpaid(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills
		 WHERE customer_id = ? AND payment_status <> ?
		 ORDER BY period ASC, id ASC`,
		customerID,
		domain.StatusPaid,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListByPeriod(ctx context.Context, db *gorm.DB, period string) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT `+billColumns+` FROM bills
		 WHERE period = ?
		 ORDER BY id ASC`,
		period,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ReadingsByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (map[snowflake.ID]domain.MeterReading, error) {
	var readings []domain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM meter_readings WHERE customer_id = ?`,
		customerID,
	).Scan(&readings).Error
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.MeterReading, len(readings))
	for _, reading := range readings {
		out[reading.ID] = reading
	}
	return out, nil
}

func (r *repo) Summaries(ctx context.Context, db *gorm.DB, limit int) ([]domain.PeriodSummary, error) {
	var rows []domain.PeriodSummary
	err := db.WithContext(ctx).Raw(
		`SELECT period,
			COUNT(*) AS bills,
			SUM(CASE WHEN payment_status <> ? THEN 1 ELSE 0 END) AS unpaid_bills,
			COALESCE(SUM(total_amount), 0) AS total_amount,
			COALESCE(SUM(amount_paid), 0) AS amount_paid
		 FROM bills
		 GROUP BY period
		 ORDER BY period DESC
		 LIMIT ?`,
		domain.StatusPaid,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bills
		 SET amount_paid = ?, penalty = ?, remaining = ?, change_amount = ?,
			payment_status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ?`,
		bill.AmountPaid,
		bill.Penalty,
		bill.Remaining,
		bill.Change,
		bill.PaymentStatus,
		bill.PaidAt,
		bill.UpdatedAt,
		bill.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM bill_items WHERE bill_id = ?`, bill.ID).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM bills WHERE id = ?`, bill.ID).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM meter_readings WHERE id = ?`, bill.MeterReadingID).Error
}

func (r *repo) DeleteByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error) {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM bill_items WHERE bill_id IN (SELECT id FROM bills WHERE customer_id = ?)`,
		customerID,
	).Error; err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Exec(`DELETE FROM bills WHERE customer_id = ?`, customerID)
	if res.Error != nil {
		return 0, res.Error
	}
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM meter_readings WHERE customer_id = ?`,
		customerID,
	).Error; err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
)

// Payment is an immutable cash receipt. BillID is set when the payment was
// recorded against one bill rather than allocated FIFO.
type Payment struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	Reference      string        `gorm:"not null;uniqueIndex" json:"reference"`
	CustomerID     snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	BillID         *snowflake.ID `json:"bill_id,omitempty"`
	Amount         int64         `gorm:"not null" json:"amount"`
	Allocated      int64         `gorm:"not null" json:"allocated"`
	ChangeAmount   int64         `gorm:"not null;default:0" json:"change"`
	SavedToBalance int64         `gorm:"not null;default:0" json:"saved_to_balance"`
	Description    string        `gorm:"not null" json:"description"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// Allocation is the portion of a payment applied to one bill.
type Allocation struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	PaymentID snowflake.ID `gorm:"not null;index" json:"payment_id"`
	BillID    snowflake.ID `gorm:"not null;index" json:"bill_id"`
	Period    string       `gorm:"not null" json:"period"`
	Amount    int64        `gorm:"not null" json:"amount"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Allocation) TableName() string { return "payment_allocations" }

// NewReference returns a sortable receipt reference.
func NewReference() string {
	return ulid.Make().String()
}

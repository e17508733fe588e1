package model

import (
	"errors"
	"fmt"
	"time"

	"spicesense/internal/workflow"

	"github.com/shopspring/decimal"
)

// Invoice creation guards.
var (
	ErrOrderNotDelivered    = errors.New("order is not delivered")
	ErrDuplicateTransaction = errors.New("a transaction already exists for this order")
)

// Transaction statuses. No transition table is enforced for invoices; any
// known status is reachable and the client restricts the offered options.
const (
	TransactionStatusPending    workflow.Status = "pending"
	TransactionStatusProcessing workflow.Status = "processing"
	TransactionStatusPaid       workflow.Status = "paid"
	TransactionStatusCompleted  workflow.Status = "completed"
	TransactionStatusCancelled  workflow.Status = "cancelled"
	TransactionStatusRefunded   workflow.Status = "refunded"
)

// ValidTransactionStatus reports whether s is a known invoice status.
func ValidTransactionStatus(s workflow.Status) bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusPaid,
		TransactionStatusCompleted, TransactionStatusCancelled, TransactionStatusRefunded:
		return true
	}
	return false
}

// Transaction is the billing record for a delivered order, at most one per
// OrderDelivery. InvoiceNumber is INV-<YY><MM>-<NNNN>, strictly increasing
// within its year-month prefix.
type Transaction struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	InvoiceNumber    string          `json:"invoice_number" gorm:"type:varchar(20);uniqueIndex;not null"`
	OrderDeliveryID  uint            `json:"order_delivery_id" gorm:"uniqueIndex;not null"`
	SupplierID       uint            `json:"supplier_id" gorm:"index;not null"`
	AdminID          uint            `json:"admin_id" gorm:"index;not null"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	PaymentMethod    string          `json:"payment_method" gorm:"type:varchar(50)"`
	Status           workflow.Status `json:"status" gorm:"type:varchar(20);index;default:pending"`
	Notes            string          `json:"notes,omitempty" gorm:"type:text"`
	PaymentDate      *time.Time      `json:"payment_date,omitempty"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	CompletedDate    *time.Time      `json:"completed_date,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty" gorm:"type:varchar(100)"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CanInvoiceOrder validates that an order may receive its billing record:
// the order must be delivered and not already invoiced.
func CanInvoiceOrder(orderStatus workflow.Status, hasTransaction bool) error {
	if orderStatus != OrderStatusDelivered {
		return ErrOrderNotDelivered
	}
	if hasTransaction {
		return ErrDuplicateTransaction
	}
	return nil
}

// StampStatusDates applies the date side effects of entering a status:
// paid stamps PaymentDate, completed stamps CompletedDate, each only if the
// field is still unset.
func (t *Transaction) StampStatusDates(status workflow.Status, now time.Time) {
	switch status {
	case TransactionStatusPaid:
		if t.PaymentDate == nil {
			t.PaymentDate = &now
		}
	case TransactionStatusCompleted:
		if t.CompletedDate == nil {
			t.CompletedDate = &now
		}
	}
}

// InvoiceMonthKey returns the sequence key for the month of the given date.
func InvoiceMonthKey(now time.Time) string {
	return "invoice-" + now.Format("0601")
}

// FormatInvoiceNumber renders INV-<YY><MM>-<NNNN> for a month and sequence.
func FormatInvoiceNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("INV-%s-%04d", now.Format("0601"), seq)
}

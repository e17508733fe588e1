package model

import (
	"time"

	"spicesense/internal/workflow"

	"github.com/shopspring/decimal"
)

// Message statuses. A message is answered exactly once: pending is the only
// non-terminal status.
const (
	MessageStatusPending  workflow.Status = "pending"
	MessageStatusApproved workflow.Status = "approved"
	MessageStatusRejected workflow.Status = "rejected"
)

// MessageTransitions is the one-shot approval table.
var MessageTransitions = workflow.Table{
	MessageStatusPending: {MessageStatusApproved, MessageStatusRejected},
}

// Message is an admin-to-supplier restock request for one product.
type Message struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	ProductID         uint             `json:"product_id" gorm:"index;not null"`
	SupplierID        uint             `json:"supplier_id" gorm:"index;not null"`
	AdminID           uint             `json:"admin_id" gorm:"index;not null"`
	RequestedQuantity int              `json:"requested_quantity" gorm:"not null"`
	ApprovedQuantity  *int             `json:"approved_quantity,omitempty"`
	ApprovedPrice     *decimal.Decimal `json:"approved_price,omitempty" gorm:"type:numeric(14,2)"`
	Status            workflow.Status  `json:"status" gorm:"type:varchar(20);index;default:pending"`
	RejectReason      string           `json:"reject_reason,omitempty" gorm:"type:text"`
	Seen              bool             `json:"seen" gorm:"default:false"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ToggleSeen flips the read marker without touching the workflow status.
func (m *Message) ToggleSeen() {
	m.Seen = !m.Seen
}

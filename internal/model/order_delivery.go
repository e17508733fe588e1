package model

import (
	"errors"
	"time"

	"spicesense/internal/workflow"

	"github.com/shopspring/decimal"
)

// Order creation guards.
var (
	ErrMessageNotApproved  = errors.New("message is not approved")
	ErrMessageMissingTerms = errors.New("message has no approved quantity or price")
	ErrDuplicateOrder      = errors.New("an order already exists for this message")
)

// OrderDelivery statuses.
const (
	OrderStatusApproved         workflow.Status = "approved"
	OrderStatusReadyForShipment workflow.Status = "ready_for_shipment"
	OrderStatusShipped          workflow.Status = "shipped"
	OrderStatusDelivered        workflow.Status = "delivered"
	OrderStatusCancelled        workflow.Status = "cancelled"
)

// OrderTransitions allows skipping intermediate states: an order may go
// straight from approved to delivered. Cancellation is only possible before
// the order has shipped.
var OrderTransitions = workflow.Table{
	OrderStatusApproved:         {OrderStatusReadyForShipment, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusReadyForShipment: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:          {OrderStatusDelivered},
}

// OrderDelivery is the fulfillment record created from an approved Message,
// at most one per message.
type OrderDelivery struct {
	ID                   uint            `json:"id" gorm:"primaryKey"`
	MessageID            uint            `json:"message_id" gorm:"uniqueIndex;not null"`
	SupplierID           uint            `json:"supplier_id" gorm:"index;not null"`
	AdminID              uint            `json:"admin_id" gorm:"index;not null"`
	ProductID            uint            `json:"product_id" gorm:"index;not null"`
	Quantity             int             `json:"quantity" gorm:"not null"`
	Price                decimal.Decimal `json:"price" gorm:"type:numeric(14,2);not null"`
	TotalAmount          decimal.Decimal `json:"total_amount" gorm:"type:numeric(14,2);not null"`
	OrderStatus          workflow.Status `json:"order_status" gorm:"type:varchar(30);index;default:approved"`
	ReadyDate            *time.Time      `json:"ready_date,omitempty"`
	TrackingInfo         string          `json:"tracking_info,omitempty" gorm:"type:varchar(100)"`
	DeliveryNotes        string          `json:"delivery_notes,omitempty" gorm:"type:text"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time      `json:"actual_delivery_date,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// NewOrderFromMessage builds the order for an approved message. hasOrder
// reports whether an order already exists for the message; at most one is
// allowed. The total amount is the approved quantity times the approved
// price.
func NewOrderFromMessage(m *Message, hasOrder bool) (*OrderDelivery, error) {
	if m.Status != MessageStatusApproved {
		return nil, ErrMessageNotApproved
	}
	if m.ApprovedQuantity == nil || m.ApprovedPrice == nil {
		return nil, ErrMessageMissingTerms
	}
	if hasOrder {
		return nil, ErrDuplicateOrder
	}

	quantity := *m.ApprovedQuantity
	return &OrderDelivery{
		MessageID:   m.ID,
		SupplierID:  m.SupplierID,
		AdminID:     m.AdminID,
		ProductID:   m.ProductID,
		Quantity:    quantity,
		Price:       *m.ApprovedPrice,
		TotalAmount: m.ApprovedPrice.Mul(decimal.NewFromInt(int64(quantity))),
		OrderStatus: OrderStatusApproved,
	}, nil
}

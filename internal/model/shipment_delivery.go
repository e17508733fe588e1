package model

import (
	"errors"
	"time"

	"spicesense/internal/workflow"
)

// Shipment creation guards.
var (
	ErrOrderNotReady     = errors.New("order is not ready for shipment")
	ErrDuplicateShipment = errors.New("a shipment already exists for this order")
)

// ShipmentDelivery statuses. failed_delivery is recoverable: the shipment can
// re-enter transit or be retried for delivery.
const (
	ShipmentStatusPreparing      workflow.Status = "preparing"
	ShipmentStatusShipped        workflow.Status = "shipped"
	ShipmentStatusInTransit      workflow.Status = "in_transit"
	ShipmentStatusOutForDelivery workflow.Status = "out_for_delivery"
	ShipmentStatusDelivered      workflow.Status = "delivered"
	ShipmentStatusFailedDelivery workflow.Status = "failed_delivery"
)

// ShipmentTransitions is the carrier-tracking table. Entering delivered
// requires an explicit actual-delivery-date and back-propagates to the order.
var ShipmentTransitions = workflow.Table{
	ShipmentStatusPreparing:      {ShipmentStatusShipped},
	ShipmentStatusShipped:        {ShipmentStatusInTransit, ShipmentStatusDelivered},
	ShipmentStatusInTransit:      {ShipmentStatusOutForDelivery, ShipmentStatusDelivered, ShipmentStatusFailedDelivery},
	ShipmentStatusOutForDelivery: {ShipmentStatusDelivered, ShipmentStatusFailedDelivery},
	ShipmentStatusFailedDelivery: {ShipmentStatusInTransit, ShipmentStatusOutForDelivery, ShipmentStatusDelivered},
}

// ShipmentDelivery is the carrier-tracking record for an order, at most one
// per OrderDelivery, created only once the order is ready_for_shipment.
type ShipmentDelivery struct {
	ID                   uint            `json:"id" gorm:"primaryKey"`
	OrderDeliveryID      uint            `json:"order_delivery_id" gorm:"uniqueIndex;not null"`
	SupplierID           uint            `json:"supplier_id" gorm:"index;not null"`
	TrackingNumber       string          `json:"tracking_number" gorm:"type:varchar(100);not null"`
	Carrier              string          `json:"carrier" gorm:"type:varchar(100)"`
	Status               workflow.Status `json:"status" gorm:"type:varchar(30);index;default:preparing"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time      `json:"actual_delivery_date,omitempty"`
	DeliveryNotes        string          `json:"delivery_notes,omitempty" gorm:"type:text"`
	LastUpdated          time.Time       `json:"last_updated"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CanOpenShipment validates that an order may receive its shipment record:
// the order must be exactly ready_for_shipment and not already have one.
func CanOpenShipment(orderStatus workflow.Status, hasShipment bool) error {
	if orderStatus != OrderStatusReadyForShipment {
		return ErrOrderNotReady
	}
	if hasShipment {
		return ErrDuplicateShipment
	}
	return nil
}

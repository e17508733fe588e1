package model_test

import (
	"errors"
	"testing"

	"spicesense/internal/model"
	"spicesense/internal/workflow"

	"github.com/shopspring/decimal"
)

func approvedMessage() *model.Message {
	qty := 7
	price := decimal.RequireFromString("12.50")
	return &model.Message{
		ID:               3,
		ProductID:        4,
		SupplierID:       5,
		AdminID:          6,
		Status:           model.MessageStatusApproved,
		ApprovedQuantity: &qty,
		ApprovedPrice:    &price,
	}
}

func TestNewOrderFromMessage(t *testing.T) {
	order, err := model.NewOrderFromMessage(approvedMessage(), false)
	if err != nil {
		t.Fatalf("NewOrderFromMessage returned error: %v", err)
	}
	if order.MessageID != 3 || order.SupplierID != 5 || order.AdminID != 6 || order.ProductID != 4 {
		t.Errorf("order references = %+v, want copies of the message's", order)
	}
	if order.Quantity != 7 {
		t.Errorf("Quantity = %d, want 7", order.Quantity)
	}
	if want := decimal.RequireFromString("87.50"); !order.TotalAmount.Equal(want) {
		t.Errorf("TotalAmount = %s, want %s", order.TotalAmount, want)
	}
	if order.OrderStatus != model.OrderStatusApproved {
		t.Errorf("OrderStatus = %q, want approved", order.OrderStatus)
	}
}

func TestNewOrderFromMessageNotApproved(t *testing.T) {
	m := approvedMessage()
	m.Status = model.MessageStatusPending
	if _, err := model.NewOrderFromMessage(m, false); !errors.Is(err, model.ErrMessageNotApproved) {
		t.Errorf("pending message: err = %v, want ErrMessageNotApproved", err)
	}
	m.Status = model.MessageStatusRejected
	if _, err := model.NewOrderFromMessage(m, false); !errors.Is(err, model.ErrMessageNotApproved) {
		t.Errorf("rejected message: err = %v, want ErrMessageNotApproved", err)
	}
}

func TestNewOrderFromMessageMissingTerms(t *testing.T) {
	m := approvedMessage()
	m.ApprovedQuantity = nil
	if _, err := model.NewOrderFromMessage(m, false); !errors.Is(err, model.ErrMessageMissingTerms) {
		t.Errorf("nil quantity: err = %v, want ErrMessageMissingTerms", err)
	}
	m = approvedMessage()
	m.ApprovedPrice = nil
	if _, err := model.NewOrderFromMessage(m, false); !errors.Is(err, model.ErrMessageMissingTerms) {
		t.Errorf("nil price: err = %v, want ErrMessageMissingTerms", err)
	}
}

func TestNewOrderFromMessageDuplicate(t *testing.T) {
	if _, err := model.NewOrderFromMessage(approvedMessage(), true); !errors.Is(err, model.ErrDuplicateOrder) {
		t.Errorf("second order for message: err = %v, want ErrDuplicateOrder", err)
	}
}

func TestCanOpenShipment(t *testing.T) {
	if err := model.CanOpenShipment(model.OrderStatusReadyForShipment, false); err != nil {
		t.Fatalf("ready order without shipment rejected: %v", err)
	}
	if err := model.CanOpenShipment(model.OrderStatusReadyForShipment, true); !errors.Is(err, model.ErrDuplicateShipment) {
		t.Errorf("second shipment for order: err = %v, want ErrDuplicateShipment", err)
	}
	for _, status := range []workflow.Status{
		model.OrderStatusApproved,
		model.OrderStatusShipped,
		model.OrderStatusDelivered,
		model.OrderStatusCancelled,
	} {
		if err := model.CanOpenShipment(status, false); !errors.Is(err, model.ErrOrderNotReady) {
			t.Errorf("%s order shipped: err = %v, want ErrOrderNotReady", status, err)
		}
	}
}

func TestCanInvoiceOrder(t *testing.T) {
	if err := model.CanInvoiceOrder(model.OrderStatusDelivered, false); err != nil {
		t.Fatalf("delivered order without invoice rejected: %v", err)
	}
	if err := model.CanInvoiceOrder(model.OrderStatusDelivered, true); !errors.Is(err, model.ErrDuplicateTransaction) {
		t.Errorf("second invoice for order: err = %v, want ErrDuplicateTransaction", err)
	}
	for _, status := range []workflow.Status{
		model.OrderStatusApproved,
		model.OrderStatusReadyForShipment,
		model.OrderStatusShipped,
		model.OrderStatusCancelled,
	} {
		if err := model.CanInvoiceOrder(status, false); !errors.Is(err, model.ErrOrderNotDelivered) {
			t.Errorf("%s order invoiced: err = %v, want ErrOrderNotDelivered", status, err)
		}
	}
}

func TestRemovesLastActiveAdmin(t *testing.T) {
	cases := []struct {
		name   string
		user   model.User
		others int64
		want   bool
	}{
		{"last active admin", model.User{Role: model.RoleAdmin, IsActive: true}, 0, true},
		{"another admin remains", model.User{Role: model.RoleAdmin, IsActive: true}, 1, false},
		{"inactive admin", model.User{Role: model.RoleAdmin, IsActive: false}, 0, false},
		{"supplier", model.User{Role: model.RoleSupplier, IsActive: true}, 0, false},
		{"customer", model.User{Role: model.RoleCustomer, IsActive: true}, 0, false},
	}
	for _, tc := range cases {
		if got := model.RemovesLastActiveAdmin(&tc.user, tc.others); got != tc.want {
			t.Errorf("%s: RemovesLastActiveAdmin = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestToggleSeen(t *testing.T) {
	var m model.Message
	m.ToggleSeen()
	if !m.Seen {
		t.Fatal("first toggle did not set the flag")
	}
	m.ToggleSeen()
	if m.Seen {
		t.Fatal("second toggle did not clear the flag")
	}
}

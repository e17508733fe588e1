package model_test

import (
	"testing"

	"spicesense/internal/model"
	"spicesense/internal/workflow"
)

// allStatuses lists every status a table mentions so the tests can sweep the
// full from/to matrix against the allowed pairs.
func allStatuses(t workflow.Table) []workflow.Status {
	seen := map[workflow.Status]bool{}
	var out []workflow.Status
	add := func(s workflow.Status) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for from, targets := range t {
		add(from)
		for _, to := range targets {
			add(to)
		}
	}
	return out
}

func checkTable(t *testing.T, entity string, table workflow.Table, allowed map[workflow.Status][]workflow.Status) {
	t.Helper()
	allowedSet := map[[2]workflow.Status]bool{}
	for from, targets := range allowed {
		for _, to := range targets {
			allowedSet[[2]workflow.Status{from, to}] = true
		}
	}
	statuses := allStatuses(table)
	for _, from := range statuses {
		for _, to := range statuses {
			want := allowedSet[[2]workflow.Status{from, to}]
			if got := table.Can(from, to); got != want {
				t.Errorf("%s: Can(%q, %q) = %v, want %v", entity, from, to, got, want)
			}
		}
	}
}

func TestMessageTransitions(t *testing.T) {
	checkTable(t, "message", model.MessageTransitions, map[workflow.Status][]workflow.Status{
		model.MessageStatusPending: {model.MessageStatusApproved, model.MessageStatusRejected},
	})
}

func TestOrderTransitions(t *testing.T) {
	checkTable(t, "order", model.OrderTransitions, map[workflow.Status][]workflow.Status{
		model.OrderStatusApproved: {
			model.OrderStatusReadyForShipment, model.OrderStatusShipped,
			model.OrderStatusDelivered, model.OrderStatusCancelled,
		},
		model.OrderStatusReadyForShipment: {
			model.OrderStatusShipped, model.OrderStatusDelivered, model.OrderStatusCancelled,
		},
		model.OrderStatusShipped: {model.OrderStatusDelivered},
	})
}

func TestShipmentTransitions(t *testing.T) {
	checkTable(t, "shipment", model.ShipmentTransitions, map[workflow.Status][]workflow.Status{
		model.ShipmentStatusPreparing: {model.ShipmentStatusShipped},
		model.ShipmentStatusShipped:   {model.ShipmentStatusInTransit, model.ShipmentStatusDelivered},
		model.ShipmentStatusInTransit: {
			model.ShipmentStatusOutForDelivery, model.ShipmentStatusDelivered, model.ShipmentStatusFailedDelivery,
		},
		model.ShipmentStatusOutForDelivery: {
			model.ShipmentStatusDelivered, model.ShipmentStatusFailedDelivery,
		},
		model.ShipmentStatusFailedDelivery: {
			model.ShipmentStatusInTransit, model.ShipmentStatusOutForDelivery, model.ShipmentStatusDelivered,
		},
	})
}

func TestCancelledOrderIsTerminal(t *testing.T) {
	for _, to := range allStatuses(model.OrderTransitions) {
		if model.OrderTransitions.Can(model.OrderStatusCancelled, to) {
			t.Errorf("cancelled order may still move to %q", to)
		}
	}
}

func TestDeliveredShipmentIsTerminal(t *testing.T) {
	for _, to := range allStatuses(model.ShipmentTransitions) {
		if model.ShipmentTransitions.Can(model.ShipmentStatusDelivered, to) {
			t.Errorf("delivered shipment may still move to %q", to)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{model.RoleAdmin, model.RoleSupplier, model.RoleCustomer, model.RoleEmployee} {
		if !model.ValidRole(role) {
			t.Errorf("ValidRole(%q) = false, want true", role)
		}
	}
	for _, role := range []string{"", "root", "Admin", "suppliers"} {
		if model.ValidRole(role) {
			t.Errorf("ValidRole(%q) = true, want false", role)
		}
	}
}

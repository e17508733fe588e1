package workflow_test

import (
	"errors"
	"testing"

	"spicesense/internal/workflow"
)

var table = workflow.Table{
	"pending":  {"approved", "rejected"},
	"approved": {"shipped", "cancelled"},
	"shipped":  {"delivered"},
}

func TestCan(t *testing.T) {
	cases := []struct {
		from, to workflow.Status
		want     bool
	}{
		{"pending", "approved", true},
		{"pending", "rejected", true},
		{"approved", "shipped", true},
		{"shipped", "delivered", true},
		{"pending", "delivered", false},
		{"approved", "rejected", false},
		{"delivered", "shipped", false},
		{"rejected", "approved", false},
		{"unknown", "approved", false},
	}
	for _, tc := range cases {
		if got := table.Can(tc.from, tc.to); got != tc.want {
			t.Errorf("Can(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTransitionAllowed(t *testing.T) {
	if err := table.Transition("order", "pending", "approved"); err != nil {
		t.Fatalf("Transition returned error for allowed move: %v", err)
	}
}

func TestTransitionRejected(t *testing.T) {
	err := table.Transition("order", "shipped", "cancelled")
	if err == nil {
		t.Fatal("Transition allowed a move the table does not contain")
	}

	var invalid *workflow.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("error is %T, want *InvalidTransitionError", err)
	}
	if invalid.Entity != "order" || invalid.From != "shipped" || invalid.To != "cancelled" {
		t.Errorf("unexpected error fields: %+v", invalid)
	}
	want := `cannot change order status from "shipped" to "cancelled"`
	if invalid.Error() != want {
		t.Errorf("Error() = %q, want %q", invalid.Error(), want)
	}
}

func TestTransitionFromTerminalStatus(t *testing.T) {
	for _, from := range []workflow.Status{"delivered", "rejected", "cancelled"} {
		if err := table.Transition("order", from, "approved"); err == nil {
			t.Errorf("Transition from terminal status %q succeeded", from)
		}
	}
}

func TestKnown(t *testing.T) {
	for _, s := range []workflow.Status{"pending", "approved", "rejected", "shipped", "delivered", "cancelled"} {
		if !table.Known(s) {
			t.Errorf("Known(%q) = false, want true", s)
		}
	}
	if table.Known("bogus") {
		t.Error(`Known("bogus") = true, want false`)
	}
}

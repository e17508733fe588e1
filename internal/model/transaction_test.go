package model_test

import (
	"testing"
	"time"

	"spicesense/internal/model"
	"spicesense/internal/workflow"
)

func TestFormatInvoiceNumber(t *testing.T) {
	april := time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		seq  int64
		want string
	}{
		{1, "INV-2504-0001"},
		{2, "INV-2504-0002"},
		{42, "INV-2504-0042"},
		{9999, "INV-2504-9999"},
		{10000, "INV-2504-10000"},
	}
	for _, tc := range cases {
		if got := model.FormatInvoiceNumber(april, tc.seq); got != tc.want {
			t.Errorf("FormatInvoiceNumber(april, %d) = %q, want %q", tc.seq, got, tc.want)
		}
	}

	december := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	if got := model.FormatInvoiceNumber(december, 7); got != "INV-2612-0007" {
		t.Errorf("FormatInvoiceNumber(december, 7) = %q, want INV-2612-0007", got)
	}
}

func TestInvoiceMonthKey(t *testing.T) {
	april := time.Date(2025, 4, 30, 23, 59, 0, 0, time.UTC)
	may := time.Date(2025, 5, 1, 0, 1, 0, 0, time.UTC)

	if got := model.InvoiceMonthKey(april); got != "invoice-2504" {
		t.Errorf("InvoiceMonthKey(april) = %q, want invoice-2504", got)
	}
	if model.InvoiceMonthKey(april) == model.InvoiceMonthKey(may) {
		t.Error("adjacent months share a sequence key")
	}
}

func TestStampStatusDates(t *testing.T) {
	first := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	var tx model.Transaction
	tx.StampStatusDates(model.TransactionStatusPaid, first)
	if tx.PaymentDate == nil || !tx.PaymentDate.Equal(first) {
		t.Fatalf("PaymentDate = %v, want %v", tx.PaymentDate, first)
	}

	// Re-entering paid must not overwrite the original date.
	tx.StampStatusDates(model.TransactionStatusPaid, later)
	if !tx.PaymentDate.Equal(first) {
		t.Errorf("PaymentDate overwritten on re-entry: %v", tx.PaymentDate)
	}

	tx.StampStatusDates(model.TransactionStatusCompleted, later)
	if tx.CompletedDate == nil || !tx.CompletedDate.Equal(later) {
		t.Fatalf("CompletedDate = %v, want %v", tx.CompletedDate, later)
	}

	// Other statuses stamp nothing.
	var fresh model.Transaction
	for _, s := range []workflow.Status{
		model.TransactionStatusPending,
		model.TransactionStatusProcessing,
		model.TransactionStatusCancelled,
		model.TransactionStatusRefunded,
	} {
		fresh.StampStatusDates(s, first)
	}
	if fresh.PaymentDate != nil || fresh.CompletedDate != nil {
		t.Errorf("non-paid statuses stamped dates: %+v", fresh)
	}
}

func TestValidTransactionStatus(t *testing.T) {
	for _, s := range []workflow.Status{
		model.TransactionStatusPending,
		model.TransactionStatusProcessing,
		model.TransactionStatusPaid,
		model.TransactionStatusCompleted,
		model.TransactionStatusCancelled,
		model.TransactionStatusRefunded,
	} {
		if !model.ValidTransactionStatus(s) {
			t.Errorf("ValidTransactionStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []workflow.Status{"", "unknown", "PAID"} {
		if model.ValidTransactionStatus(s) {
			t.Errorf("ValidTransactionStatus(%q) = true, want false", s)
		}
	}
}

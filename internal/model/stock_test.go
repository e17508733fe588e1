package model_test

import (
	"errors"
	"testing"
	"time"

	"spicesense/internal/model"
)

func ledger(batches ...model.StockBatch) *model.Stock {
	s := &model.Stock{ProductID: 1, Batches: batches}
	s.RecomputeTotal()
	return s
}

func TestApplyStockOutFIFO(t *testing.T) {
	s := ledger(
		model.StockBatch{ID: 1, BatchNo: 1, BatchNumber: "B-1", Quantity: 5},
		model.StockBatch{ID: 2, BatchNo: 2, BatchNumber: "B-2", Quantity: 10},
	)

	draws, err := s.ApplyStockOut(7)
	if err != nil {
		t.Fatalf("ApplyStockOut(7) returned error: %v", err)
	}

	if len(draws) != 2 {
		t.Fatalf("got %d draws, want 2", len(draws))
	}
	if draws[0].BatchNumber != "B-1" || draws[0].Quantity != 5 || !draws[0].Drained {
		t.Errorf("first draw = %+v, want B-1 fully drained", draws[0])
	}
	if draws[1].BatchNumber != "B-2" || draws[1].Quantity != 2 || draws[1].Drained {
		t.Errorf("second draw = %+v, want 2 taken from B-2", draws[1])
	}

	if len(s.Batches) != 1 || s.Batches[0].BatchNumber != "B-2" {
		t.Fatalf("surviving batches = %+v, want only B-2", s.Batches)
	}
	if s.Batches[0].Quantity != 8 {
		t.Errorf("B-2 quantity = %d, want 8", s.Batches[0].Quantity)
	}
	if s.TotalQuantity != 8 {
		t.Errorf("TotalQuantity = %d, want 8", s.TotalQuantity)
	}
}

func TestApplyStockOutExactTotal(t *testing.T) {
	s := ledger(
		model.StockBatch{ID: 1, BatchNumber: "B-1", Quantity: 5},
		model.StockBatch{ID: 2, BatchNumber: "B-2", Quantity: 10},
	)

	draws, err := s.ApplyStockOut(15)
	if err != nil {
		t.Fatalf("ApplyStockOut(15) returned error: %v", err)
	}
	for _, d := range draws {
		if !d.Drained {
			t.Errorf("draw %+v not drained on exact-total depletion", d)
		}
	}
	if len(s.Batches) != 0 || s.TotalQuantity != 0 {
		t.Errorf("ledger not empty after exact-total depletion: %+v", s)
	}
}

func TestApplyStockOutInsufficient(t *testing.T) {
	s := ledger(
		model.StockBatch{ID: 1, BatchNumber: "B-1", Quantity: 5},
		model.StockBatch{ID: 2, BatchNumber: "B-2", Quantity: 10},
	)

	_, err := s.ApplyStockOut(16)
	if !errors.Is(err, model.ErrInsufficientStock) {
		t.Fatalf("ApplyStockOut(16) error = %v, want ErrInsufficientStock", err)
	}

	// Nothing may be mutated on failure.
	if len(s.Batches) != 2 || s.TotalQuantity != 15 {
		t.Errorf("ledger mutated on failed stock-out: %+v", s)
	}
	if s.Batches[0].Quantity != 5 || s.Batches[1].Quantity != 10 {
		t.Errorf("batch quantities mutated on failed stock-out: %+v", s.Batches)
	}
}

func TestApplyStockOutNonPositive(t *testing.T) {
	s := ledger(model.StockBatch{ID: 1, BatchNumber: "B-1", Quantity: 5})
	for _, q := range []int{0, -3} {
		if _, err := s.ApplyStockOut(q); err == nil {
			t.Errorf("ApplyStockOut(%d) succeeded, want error", q)
		}
	}
}

func TestBatchNumberRoundTrip(t *testing.T) {
	if got := model.FormatBatchNumber(17); got != "B-17" {
		t.Errorf("FormatBatchNumber(17) = %q, want B-17", got)
	}

	n, ok := model.ParseBatchNumber("B-17")
	if !ok || n != 17 {
		t.Errorf("ParseBatchNumber(B-17) = (%d, %v), want (17, true)", n, ok)
	}
	for _, bad := range []string{"17", "B-", "B-x", "C-17", ""} {
		if _, ok := model.ParseBatchNumber(bad); ok {
			t.Errorf("ParseBatchNumber(%q) succeeded, want failure", bad)
		}
	}
}

func TestExpiryStatus(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		expiry time.Time
		want   string
	}{
		{"already expired", now.AddDate(0, 0, -5), model.ExpiryStatusExpired},
		{"expires today", now, model.ExpiryStatusExpired},
		{"inside window", now.AddDate(0, 0, 15), model.ExpiryStatusNearing},
		{"window boundary", now.AddDate(0, 0, 30), model.ExpiryStatusNearing},
		{"well ahead", now.AddDate(0, 3, 0), model.ExpiryStatusSafe},
	}
	for _, tc := range cases {
		if got := model.ExpiryStatus(tc.expiry, now, 30); got != tc.want {
			t.Errorf("%s: ExpiryStatus = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRecomputeTotal(t *testing.T) {
	s := ledger(
		model.StockBatch{Quantity: 3},
		model.StockBatch{Quantity: 4},
		model.StockBatch{Quantity: 5},
	)
	if s.TotalQuantity != 12 {
		t.Errorf("TotalQuantity = %d, want 12", s.TotalQuantity)
	}

	s.Batches = s.Batches[:1]
	s.RecomputeTotal()
	if s.TotalQuantity != 3 {
		t.Errorf("TotalQuantity after trim = %d, want 3", s.TotalQuantity)
	}
}

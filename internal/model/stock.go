package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Expiry classification of a stock batch.
const (
	ExpiryStatusExpired = "Expired"
	ExpiryStatusNearing = "Nearing-expiry"
	ExpiryStatusSafe    = "Safe"
)

// ErrInsufficientStock is returned by stock-out when the requested quantity
// exceeds the stock total. The batch list is left untouched.
var ErrInsufficientStock = errors.New("insufficient stock for requested quantity")

// Stock is the per-product batch ledger. TotalQuantity is a derived cache and
// must equal the sum of batch quantities after every mutation.
type Stock struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	ProductID     uint         `json:"product_id" gorm:"uniqueIndex;not null"`
	TotalQuantity int          `json:"total_quantity" gorm:"default:0"`
	Batches       []StockBatch `json:"batches" gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// StockBatch is one received quantity of a product with its own expiry.
// BatchNo is the numeric suffix of BatchNumber; numbering is global across
// all products, not per product.
type StockBatch struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	StockID     uint      `json:"stock_id" gorm:"index;not null"`
	BatchNo     int       `json:"batch_no" gorm:"not null"`
	BatchNumber string    `json:"batch_number" gorm:"type:varchar(20);uniqueIndex;not null"`
	ExpiryDate  time.Time `json:"expiry_date"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// BatchDraw records how much a stock-out consumed from one batch. Drained
// reports that the batch hit zero and was removed from the ledger.
type BatchDraw struct {
	BatchID     uint   `json:"-"`
	BatchNumber string `json:"batch_number"`
	Quantity    int    `json:"quantity"`
	Drained     bool   `json:"drained"`
}

// FormatBatchNumber renders the canonical B-<n> batch identifier.
func FormatBatchNumber(n int) string {
	return fmt.Sprintf("B-%d", n)
}

// ParseBatchNumber extracts the numeric suffix of a B-<n> identifier.
func ParseBatchNumber(batchNumber string) (int, bool) {
	rest, ok := strings.CutPrefix(batchNumber, "B-")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// batchSequenceKey names the global batch counter shared by every product.
const batchSequenceKey = "batch"

// NextBatchNo allocates the next global batch number from the shared counter
// row, so concurrent stock-ins serialize instead of racing a max() read into
// the unique index. Numbers are never reused, even after batch deletion.
// Must run inside the transaction that creates the batch.
func NextBatchNo(tx *gorm.DB) (int, error) {
	seq, err := NextSequence(tx, batchSequenceKey)
	if err != nil {
		return 0, err
	}
	return int(seq), nil
}

// RecomputeTotal refreshes the cached total from the batch list.
func (s *Stock) RecomputeTotal() {
	total := 0
	for _, b := range s.Batches {
		total += b.Quantity
	}
	s.TotalQuantity = total
}

// ApplyStockOut depletes quantity from the batch list in FIFO order: the
// first batch is drained to zero before the next one is touched, and drained
// batches are dropped from the list. On ErrInsufficientStock nothing is
// mutated. The returned draws drive the batch-row updates and the audit log.
func (s *Stock) ApplyStockOut(quantity int) ([]BatchDraw, error) {
	if quantity <= 0 {
		return nil, errors.New("stock-out quantity must be positive")
	}
	if quantity > s.TotalQuantity {
		return nil, ErrInsufficientStock
	}

	remaining := quantity
	draws := make([]BatchDraw, 0, len(s.Batches))
	kept := s.Batches[:0]
	for _, batch := range s.Batches {
		if remaining == 0 {
			kept = append(kept, batch)
			continue
		}
		take := batch.Quantity
		if take > remaining {
			take = remaining
		}
		remaining -= take
		batch.Quantity -= take
		draws = append(draws, BatchDraw{
			BatchID:     batch.ID,
			BatchNumber: batch.BatchNumber,
			Quantity:    take,
			Drained:     batch.Quantity == 0,
		})
		if batch.Quantity > 0 {
			kept = append(kept, batch)
		}
	}
	s.Batches = kept
	s.RecomputeTotal()
	return draws, nil
}

// ExpiryStatus classifies a batch expiry date relative to now: Expired when
// the remaining days are zero or negative, Nearing-expiry within the
// configured window, Safe otherwise.
func ExpiryStatus(expiry, now time.Time, nearingDays int) string {
	days := int(expiry.Sub(now).Hours() / 24)
	switch {
	case days <= 0:
		return ExpiryStatusExpired
	case days <= nearingDays:
		return ExpiryStatusNearing
	default:
		return ExpiryStatusSafe
	}
}

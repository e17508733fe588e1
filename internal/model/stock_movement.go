package model

import "time"

// Stock movement types for the audit ledger.
const (
	MovementStockIn  = "Stock In"
	MovementStockOut = "Stock Out"
)

// StockMovement is the append-only audit record written alongside every
// stock mutation. Rows are never edited or deleted.
type StockMovement struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ProductID   uint      `json:"product_id" gorm:"index;not null"`
	Type        string    `json:"type" gorm:"type:varchar(20);index;not null"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	BatchNumber string    `json:"batch_number" gorm:"type:varchar(20)"`
	CreatedAt   time.Time `json:"created_at"`
}

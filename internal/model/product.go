package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a supplier-owned catalog entry. Deleting a product only
// flips IsActive so historical messages and orders keep a valid reference.
type Product struct {
	ID                   uint            `json:"id" gorm:"primaryKey"`
	ProductName          string          `json:"product_name" gorm:"type:varchar(255);index;not null"`
	ProductCategory      string          `json:"product_category" gorm:"type:varchar(100);index"`
	Price                decimal.Decimal `json:"price" gorm:"type:numeric(14,2);not null"`
	StockQuantity        int             `json:"stock_quantity" gorm:"default:0"`
	MinimumOrderQuantity int             `json:"minimum_order_quantity" gorm:"default:1"`
	SupplierID           uint            `json:"supplier_id" gorm:"index;not null"`
	IsActive             bool            `json:"is_active" gorm:"default:true"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	DeletedAt            gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"index"`
}

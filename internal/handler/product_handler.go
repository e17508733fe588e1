package handler

import (
	"net/http"
	"strconv"
	"time"

	"spicesense/internal/model"
	"spicesense/pkg/database"
	"spicesense/pkg/logger"
	"spicesense/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest carries a catalog create or update from a supplier.
type ProductRequest struct {
	ProductName          string          `json:"product_name" validate:"required"`
	ProductCategory      string          `json:"product_category"`
	Price                decimal.Decimal `json:"price" validate:"required"`
	StockQuantity        int             `json:"stock_quantity"`
	MinimumOrderQuantity int             `json:"minimum_order_quantity"`
}

// CreateProduct adds a catalog entry owned by the authenticated supplier.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "create")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse product request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "product name and price are required"})
	}
	if req.Price.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "price cannot be negative"})
	}
	if req.MinimumOrderQuantity <= 0 {
		req.MinimumOrderQuantity = 1
	}

	product := model.Product{
		ProductName:          req.ProductName,
		ProductCategory:      req.ProductCategory,
		Price:                req.Price,
		StockQuantity:        req.StockQuantity,
		MinimumOrderQuantity: req.MinimumOrderQuantity,
		SupplierID:           supplierID,
		IsActive:             true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&product); result.Error != nil {
		log.Error("Failed to create product", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create product"})
	}

	log.Info("Product created", zap.Uint("product_id", product.ID), zap.Uint("supplier_id", supplierID))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "product": product})
}

// GetMyProducts lists the authenticated supplier's active catalog.
func GetMyProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "list_own")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	result := database.GetDB().
		Where("supplier_id = ? AND is_active = ?", supplierID, true).
		Order("created_at desc").
		Find(&products)
	if result.Error != nil {
		log.Error("Failed to list supplier products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "products": products})
}

// GetAllProducts lists every active product, optionally filtered by category
// or supplierId. Used by admins to browse the combined catalog.
func GetAllProducts(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "list_all")

	query := database.GetDB().Where("is_active = ?", true)
	if category := c.QueryParam("category"); category != "" {
		query = query.Where("product_category = ?", category)
	}
	if supplierParam := c.QueryParam("supplierId"); supplierParam != "" {
		supplierID, err := strconv.ParseUint(supplierParam, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid supplier id"})
		}
		query = query.Where("supplier_id = ?", supplierID)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var products []model.Product
	if result := query.Order("created_at desc").Find(&products); result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve products"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "products": products})
}

// GetProduct returns a single active product by id.
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "get")

	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid product id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var product model.Product
	result := database.GetDB().Where("id = ? AND is_active = ?", productID, true).First(&product)
	if result.Error != nil {
		log.Warn("Product not found", zap.Uint64("product_id", productID))
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "product not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": product})
}

// UpdateProduct edits a catalog entry. Only the owning supplier may edit.
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "update")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}
	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid product id"})
	}

	var req struct {
		ProductName          string           `json:"product_name"`
		ProductCategory      string           `json:"product_category"`
		Price                *decimal.Decimal `json:"price"`
		StockQuantity        *int             `json:"stock_quantity"`
		MinimumOrderQuantity *int             `json:"minimum_order_quantity"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse product update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	var product model.Product
	result := database.GetDB().Where("id = ? AND is_active = ?", productID, true).First(&product)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "product not found"})
	}
	if product.SupplierID != supplierID {
		log.Warn("Product update by non-owner", zap.Uint64("product_id", productID), zap.Uint("supplier_id", supplierID))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "you do not own this product"})
	}

	if req.ProductName != "" {
		product.ProductName = req.ProductName
	}
	if req.ProductCategory != "" {
		product.ProductCategory = req.ProductCategory
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "price cannot be negative"})
		}
		product.Price = *req.Price
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.MinimumOrderQuantity != nil && *req.MinimumOrderQuantity > 0 {
		product.MinimumOrderQuantity = *req.MinimumOrderQuantity
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&product); result.Error != nil {
		log.Error("Failed to update product", zap.Uint("product_id", product.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update product"})
	}

	log.Info("Product updated", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": product})
}

// DeleteProduct deactivates a catalog entry so historical references stay
// valid. Only the owning supplier may delete.
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("product", "delete")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}
	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid product id"})
	}

	var product model.Product
	result := database.GetDB().Where("id = ? AND is_active = ?", productID, true).First(&product)
	if result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "product not found"})
	}
	if product.SupplierID != supplierID {
		log.Warn("Product delete by non-owner", zap.Uint64("product_id", productID), zap.Uint("supplier_id", supplierID))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "you do not own this product"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&product).Update("is_active", false); result.Error != nil {
		log.Error("Failed to deactivate product", zap.Uint("product_id", product.ID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to delete product"})
	}

	log.Info("Product deactivated", zap.Uint("product_id", product.ID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "product deleted successfully"})
}

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spicesense/internal/model"
	"spicesense/pkg/database"
	"spicesense/pkg/logger"
	"spicesense/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fifoBatches preloads the batch list in insertion order so depletion walks
// oldest batch first.
func fifoBatches(db *gorm.DB) *gorm.DB {
	return db.Order("stock_batches.id asc")
}

// stockView is the list/detail projection with derived expiry and low-stock
// fields.
type stockView struct {
	ID            uint        `json:"id"`
	ProductID     uint        `json:"product_id"`
	ProductName   string      `json:"product_name"`
	TotalQuantity int         `json:"total_quantity"`
	LowStock      bool        `json:"low_stock"`
	Batches       []batchView `json:"batches"`
}

type batchView struct {
	ID           uint      `json:"id"`
	BatchNumber  string    `json:"batch_number"`
	Quantity     int       `json:"quantity"`
	ExpiryDate   time.Time `json:"expiry_date"`
	ExpiryStatus string    `json:"expiry_status"`
}

func buildStockView(stock *model.Stock, productName string, now time.Time) stockView {
	view := stockView{
		ID:            stock.ID,
		ProductID:     stock.ProductID,
		ProductName:   productName,
		TotalQuantity: stock.TotalQuantity,
		LowStock:      stock.TotalQuantity < cfg.Inventory.LowStockThreshold,
		Batches:       make([]batchView, 0, len(stock.Batches)),
	}
	for _, b := range stock.Batches {
		view.Batches = append(view.Batches, batchView{
			ID:           b.ID,
			BatchNumber:  b.BatchNumber,
			Quantity:     b.Quantity,
			ExpiryDate:   b.ExpiryDate,
			ExpiryStatus: model.ExpiryStatus(b.ExpiryDate, now, cfg.Inventory.NearingExpiryDays),
		})
	}
	return view
}

// StockInRequest receives a new batch for a product.
type StockInRequest struct {
	ProductID  uint      `json:"product_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,gt=0"`
	ExpiryDate time.Time `json:"expiry_date" validate:"required"`
}

// StockIn appends a batch to the product's ledger. The batch number is global
// across all products, and the audit record is written in the same
// transaction as the ledger mutation.
func StockIn(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("stock", "stock_in")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	var req StockInRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse stock-in request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "product, positive quantity and expiry date are required"})
	}

	var product model.Product
	if result := database.GetDB().Where("id = ? AND is_active = ?", req.ProductID, true).First(&product); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "product not found"})
	}
	if !adminOrOwner(c, product.SupplierID) {
		log.Warn("Stock-in on foreign product", zap.Uint("product_id", product.ID), zap.Uint("user_id", supplierID))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "you do not own this product"})
	}

	var stock model.Stock
	var batch model.StockBatch

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Batches", fifoBatches).Where("product_id = ?", req.ProductID).First(&stock).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			stock = model.Stock{ProductID: req.ProductID}
			if err := tx.Create(&stock).Error; err != nil {
				return err
			}
		}

		nextNo, err := model.NextBatchNo(tx)
		if err != nil {
			return err
		}
		batch = model.StockBatch{
			StockID:     stock.ID,
			BatchNo:     nextNo,
			BatchNumber: model.FormatBatchNumber(nextNo),
			ExpiryDate:  req.ExpiryDate,
			Quantity:    req.Quantity,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}

		stock.Batches = append(stock.Batches, batch)
		stock.RecomputeTotal()
		if err := tx.Model(&stock).Update("total_quantity", stock.TotalQuantity).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Product{}).Where("id = ?", req.ProductID).
			Update("stock_quantity", stock.TotalQuantity).Error; err != nil {
			return err
		}

		movement := model.StockMovement{
			ProductID:   req.ProductID,
			Type:        model.MovementStockIn,
			Quantity:    req.Quantity,
			BatchNumber: batch.BatchNumber,
		}
		return tx.Create(&movement).Error
	})
	if err != nil {
		log.Error("Stock-in failed", zap.Uint("product_id", req.ProductID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "stock-in failed"})
	}

	prometheus.RecordStockMovement(model.MovementStockIn)
	log.Info("Stock received",
		zap.Uint("product_id", req.ProductID),
		zap.String("batch_number", batch.BatchNumber),
		zap.Int("quantity", req.Quantity))
	return c.JSON(http.StatusCreated, echo.Map{
		"success":        true,
		"batch":          batch,
		"total_quantity": stock.TotalQuantity,
	})
}

// StockOutRequest depletes stock for a product.
type StockOutRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

// StockOut depletes the requested quantity FIFO across the product's batches.
// Drained batches are removed. If the quantity exceeds the total nothing is
// mutated and the request fails with 400.
func StockOut(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("stock", "stock_out")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	var req StockOutRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse stock-out request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "product and positive quantity are required"})
	}

	var product model.Product
	if result := database.GetDB().Where("id = ? AND is_active = ?", req.ProductID, true).First(&product); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "product not found"})
	}
	if !adminOrOwner(c, product.SupplierID) {
		log.Warn("Stock-out on foreign product", zap.Uint("product_id", product.ID), zap.Uint("user_id", supplierID))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "you do not own this product"})
	}

	var stock model.Stock
	var draws []model.BatchDraw

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Batches", fifoBatches).Where("product_id = ?", req.ProductID).First(&stock).Error; err != nil {
			return err
		}

		var applyErr error
		draws, applyErr = stock.ApplyStockOut(req.Quantity)
		if applyErr != nil {
			return applyErr
		}

		for _, draw := range draws {
			if draw.Drained {
				if err := tx.Delete(&model.StockBatch{}, draw.BatchID).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Model(&model.StockBatch{}).Where("id = ?", draw.BatchID).
					Update("quantity", gorm.Expr("quantity - ?", draw.Quantity)).Error; err != nil {
					return err
				}
			}
			movement := model.StockMovement{
				ProductID:   req.ProductID,
				Type:        model.MovementStockOut,
				Quantity:    draw.Quantity,
				BatchNumber: draw.BatchNumber,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&stock).Update("total_quantity", stock.TotalQuantity).Error; err != nil {
			return err
		}
		return tx.Model(&model.Product{}).Where("id = ?", req.ProductID).
			Update("stock_quantity", stock.TotalQuantity).Error
	})
	if err != nil {
		if errors.Is(err, model.ErrInsufficientStock) {
			log.Warn("Stock-out exceeds available quantity",
				zap.Uint("product_id", req.ProductID), zap.Int("requested", req.Quantity))
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "no stock record for product"})
		}
		log.Error("Stock-out failed", zap.Uint("product_id", req.ProductID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "stock-out failed"})
	}

	prometheus.RecordStockMovement(model.MovementStockOut)
	log.Info("Stock depleted",
		zap.Uint("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity),
		zap.Int("batches_touched", len(draws)))
	return c.JSON(http.StatusOK, echo.Map{
		"success":        true,
		"draws":          draws,
		"total_quantity": stock.TotalQuantity,
	})
}

// GetStocks lists every stock ledger with derived expiry and low-stock views.
// `search` filters by product name; `lowStock=true` keeps only ledgers below
// the search threshold.
func GetStocks(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("stock", "list")

	defer prometheus.TrackDBOperation("query")(time.Now())
	var stocks []model.Stock
	if result := database.GetDB().Preload("Batches", fifoBatches).Order("id asc").Find(&stocks); result.Error != nil {
		log.Error("Failed to list stocks", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve stocks"})
	}

	productIDs := make([]uint, 0, len(stocks))
	for _, s := range stocks {
		productIDs = append(productIDs, s.ProductID)
	}
	names := map[uint]string{}
	if len(productIDs) > 0 {
		var products []model.Product
		database.GetDB().Unscoped().Where("id IN ?", productIDs).Find(&products)
		for _, p := range products {
			names[p.ID] = p.ProductName
		}
	}

	search := strings.ToLower(strings.TrimSpace(c.QueryParam("search")))
	lowStockOnly, _ := strconv.ParseBool(c.QueryParam("lowStock"))

	now := time.Now()
	views := make([]stockView, 0, len(stocks))
	for i := range stocks {
		name := names[stocks[i].ProductID]
		if search != "" && !strings.Contains(strings.ToLower(name), search) {
			continue
		}
		if lowStockOnly && stocks[i].TotalQuantity >= cfg.Inventory.SearchLowStockThreshold {
			continue
		}
		views = append(views, buildStockView(&stocks[i], name, now))
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "stocks": views})
}

// GetStock returns one ledger with its derived view.
func GetStock(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("stock", "get")

	stockID, err := strconv.ParseUint(c.Param("stockId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid stock id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var stock model.Stock
	if result := database.GetDB().Preload("Batches", fifoBatches).First(&stock, stockID); result.Error != nil {
		log.Warn("Stock not found", zap.Uint64("stock_id", stockID))
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "stock not found"})
	}

	var product model.Product
	database.GetDB().Unscoped().First(&product, stock.ProductID)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "stock": buildStockView(&stock, product.ProductName, time.Now())})
}

// UpdateBatch overwrites a batch's expiry and quantity, keeping the cached
// total in step inside one transaction.
func UpdateBatch(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("stock", "update_batch")

	stockID, err := strconv.ParseUint(c.Param("stockId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid stock id"})
	}
	batchID, err := strconv.ParseUint(c.Param("batchId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid batch id"})
	}

	var req struct {
		ExpiryDate *time.Time `json:"expiry_date"`
		Quantity   *int       `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse batch update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "quantity must be positive"})
	}
	if ok, err := checkStockOwner(c, uint(stockID)); !ok {
		return err
	}

	var batch model.StockBatch
	var total int

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	txErr := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND stock_id = ?", batchID, stockID).First(&batch).Error; err != nil {
			return err
		}
		if req.ExpiryDate != nil {
			batch.ExpiryDate = *req.ExpiryDate
		}
		if req.Quantity != nil {
			batch.Quantity = *req.Quantity
		}
		if err := tx.Save(&batch).Error; err != nil {
			return err
		}
		return syncStockTotal(tx, uint(stockID), &total)
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "batch not found"})
		}
		log.Error("Batch update failed", zap.Uint64("batch_id", batchID), zap.Error(txErr))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update batch"})
	}

	log.Info("Batch updated", zap.String("batch_number", batch.BatchNumber), zap.Int("quantity", batch.Quantity))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "batch": batch, "total_quantity": total})
}

// DeleteBatch removes a batch and recomputes the ledger total.
func DeleteBatch(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("stock", "delete_batch")

	stockID, err := strconv.ParseUint(c.Param("stockId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid stock id"})
	}
	batchID, err := strconv.ParseUint(c.Param("batchId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid batch id"})
	}
	if ok, err := checkStockOwner(c, uint(stockID)); !ok {
		return err
	}

	var total int

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	txErr := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var batch model.StockBatch
		if err := tx.Where("id = ? AND stock_id = ?", batchID, stockID).First(&batch).Error; err != nil {
			return err
		}
		if err := tx.Delete(&batch).Error; err != nil {
			return err
		}
		return syncStockTotal(tx, uint(stockID), &total)
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "batch not found"})
		}
		log.Error("Batch delete failed", zap.Uint64("batch_id", batchID), zap.Error(txErr))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to delete batch"})
	}

	log.Info("Batch deleted", zap.Uint64("batch_id", batchID))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "batch deleted successfully", "total_quantity": total})
}

// checkStockOwner loads the ledger's owning product and reports whether the
// caller may mutate it: admins always, suppliers only for their own product.
// When not allowed the rejection response has already been written and the
// returned error must be passed back.
func checkStockOwner(c echo.Context, stockID uint) (bool, error) {
	var stock model.Stock
	if result := database.GetDB().First(&stock, stockID); result.Error != nil {
		return false, c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "stock not found"})
	}
	var product model.Product
	if result := database.GetDB().Unscoped().First(&product, stock.ProductID); result.Error != nil {
		return false, c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "product not found"})
	}
	if !adminOrOwner(c, product.SupplierID) {
		return false, c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "you do not own this product"})
	}
	return true, nil
}

// syncStockTotal recomputes the cached total from the surviving batch rows
// and mirrors it onto the product.
func syncStockTotal(tx *gorm.DB, stockID uint, total *int) error {
	var stock model.Stock
	if err := tx.Preload("Batches", fifoBatches).First(&stock, stockID).Error; err != nil {
		return err
	}
	stock.RecomputeTotal()
	*total = stock.TotalQuantity
	if err := tx.Model(&stock).Update("total_quantity", stock.TotalQuantity).Error; err != nil {
		return err
	}
	return tx.Model(&model.Product{}).Where("id = ?", stock.ProductID).
		Update("stock_quantity", stock.TotalQuantity).Error
}

// GetStockMovements lists the audit ledger, newest first, optionally filtered
// by productId.
func GetStockMovements(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("stock", "list_movements")

	query := database.GetDB().Model(&model.StockMovement{})
	if productParam := c.QueryParam("productId"); productParam != "" {
		productID, err := strconv.ParseUint(productParam, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid product id"})
		}
		query = query.Where("product_id = ?", productID)
	}
	if batchNumber := c.QueryParam("batchNumber"); batchNumber != "" {
		if _, ok := model.ParseBatchNumber(batchNumber); !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid batch number"})
		}
		query = query.Where("batch_number = ?", batchNumber)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var movements []model.StockMovement
	if result := query.Order("created_at desc").Find(&movements); result.Error != nil {
		log.Error("Failed to list stock movements", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve movements"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "movements": movements})
}

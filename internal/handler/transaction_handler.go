package handler

import (
	"net/http"
	"strconv"
	"time"

	"spicesense/internal/model"
	"spicesense/internal/workflow"
	"spicesense/pkg/database"
	"spicesense/pkg/logger"
	"spicesense/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateTransactionRequest opens the invoice for a delivered order.
type CreateTransactionRequest struct {
	OrderDeliveryID uint       `json:"order_delivery_id" validate:"required"`
	PaymentMethod   string     `json:"payment_method"`
	DueDate         *time.Time `json:"due_date"`
	Notes           string     `json:"notes"`
}

// CreateTransaction creates the billing record for a delivered order, at most
// one per order. The invoice number is allocated from the month's sequence
// row inside the same transaction that persists the invoice.
func CreateTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("transaction", "create")

	adminID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse transaction request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "order is required"})
	}

	var order model.OrderDelivery
	if result := database.GetDB().First(&order, req.OrderDeliveryID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "order not found"})
	}
	var existing model.Transaction
	hasTransaction := database.GetDB().Where("order_delivery_id = ?", order.ID).First(&existing).Error == nil
	if err := model.CanInvoiceOrder(order.OrderStatus, hasTransaction); err != nil {
		log.Warn("Transaction creation rejected",
			zap.Uint("order_id", order.ID),
			zap.String("status", string(order.OrderStatus)),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}

	transaction := model.Transaction{
		OrderDeliveryID: order.ID,
		SupplierID:      order.SupplierID,
		AdminID:         adminID,
		Amount:          order.TotalAmount,
		PaymentMethod:   req.PaymentMethod,
		Status:          model.TransactionStatusPending,
		DueDate:         req.DueDate,
		Notes:           req.Notes,
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		invoiceNumber, err := model.NextInvoiceNumber(tx, time.Now())
		if err != nil {
			return err
		}
		transaction.InvoiceNumber = invoiceNumber
		return tx.Create(&transaction).Error
	})
	if err != nil {
		log.Error("Failed to create transaction", zap.Uint("order_id", order.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create transaction"})
	}

	log.Info("Invoice created",
		zap.Uint("transaction_id", transaction.ID),
		zap.String("invoice_number", transaction.InvoiceNumber),
		zap.String("amount", transaction.Amount.String()))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "transaction": transaction})
}

// GetSupplierTransactions lists the authenticated supplier's invoices.
func GetSupplierTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("transaction", "list_supplier")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var transactions []model.Transaction
	result := database.GetDB().
		Where("supplier_id = ?", supplierID).
		Order("created_at desc").
		Find(&transactions)
	if result.Error != nil {
		log.Error("Failed to list supplier transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "transactions": transactions})
}

// GetAdminTransactions lists every invoice, optionally filtered by status.
func GetAdminTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("transaction", "list_admin")

	query := database.GetDB().Model(&model.Transaction{})
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var transactions []model.Transaction
	if result := query.Order("created_at desc").Find(&transactions); result.Error != nil {
		log.Error("Failed to list transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "transactions": transactions})
}

// GetTransaction returns one invoice. Suppliers only see their own.
func GetTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("transaction", "get")

	transactionID, err := strconv.ParseUint(c.Param("transactionId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid transaction id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var transaction model.Transaction
	if result := database.GetDB().First(&transaction, transactionID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "transaction not found"})
	}

	if !adminOrOwner(c, transaction.SupplierID) {
		log.Warn("Transaction access denied",
			zap.Uint64("transaction_id", transactionID), zap.String("role", currentRole(c)))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "this transaction does not belong to you"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "transaction": transaction})
}

// UpdateTransactionStatusRequest moves an invoice to a new status.
type UpdateTransactionStatusRequest struct {
	Status           workflow.Status `json:"status" validate:"required"`
	PaymentReference string          `json:"payment_reference"`
	Notes            string          `json:"notes"`
}

// UpdateTransactionStatus sets any known invoice status; no transition table
// is enforced. Entering paid stamps the payment date, completed stamps the
// completed date, each only on first entry.
func UpdateTransactionStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("transaction", "update_status")

	transactionID, err := strconv.ParseUint(c.Param("transactionId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid transaction id"})
	}

	var req UpdateTransactionStatusRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse transaction status update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "status is required"})
	}
	if !model.ValidTransactionStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "unknown transaction status"})
	}

	var transaction model.Transaction
	if result := database.GetDB().First(&transaction, transactionID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "transaction not found"})
	}

	from := transaction.Status
	transaction.Status = req.Status
	transaction.StampStatusDates(req.Status, time.Now())
	if req.PaymentReference != "" {
		transaction.PaymentReference = req.PaymentReference
	}
	if req.Notes != "" {
		transaction.Notes = req.Notes
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&transaction); result.Error != nil {
		log.Error("Failed to update transaction status", zap.Uint64("transaction_id", transactionID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update transaction"})
	}

	prometheus.RecordTransition("transaction", string(from), string(req.Status), "applied")
	log.Info("Transaction status updated",
		zap.Uint("transaction_id", transaction.ID),
		zap.String("from", string(from)),
		zap.String("to", string(transaction.Status)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "transaction": transaction})
}

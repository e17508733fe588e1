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

// CreateMessageRequest is an admin restock request to a supplier.
type CreateMessageRequest struct {
	ProductID         uint `json:"product_id" validate:"required"`
	SupplierID        uint `json:"supplier_id" validate:"required"`
	RequestedQuantity int  `json:"requested_quantity" validate:"required,gt=0"`
}

// CreateMessage sends a restock request. The product must belong to the named
// supplier and the requested quantity must meet the product's minimum order
// quantity.
func CreateMessage(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("message", "create")

	adminID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	var req CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse message request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "product, supplier and positive quantity are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var product model.Product
	if result := database.GetDB().Where("id = ? AND is_active = ?", req.ProductID, true).First(&product); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "product not found"})
	}
	if product.SupplierID != req.SupplierID {
		log.Warn("Message product does not belong to supplier",
			zap.Uint("product_id", req.ProductID), zap.Uint("supplier_id", req.SupplierID))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "product does not belong to the given supplier"})
	}
	if req.RequestedQuantity < product.MinimumOrderQuantity {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"success": false,
			"message": "requested quantity is below the product's minimum order quantity",
		})
	}

	message := model.Message{
		ProductID:         req.ProductID,
		SupplierID:        req.SupplierID,
		AdminID:           adminID,
		RequestedQuantity: req.RequestedQuantity,
		Status:            model.MessageStatusPending,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&message); result.Error != nil {
		log.Error("Failed to create message", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create message"})
	}

	log.Info("Restock request sent",
		zap.Uint("message_id", message.ID),
		zap.Uint("product_id", message.ProductID),
		zap.Uint("supplier_id", message.SupplierID))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": message})
}

// GetSupplierMessages lists the authenticated supplier's inbox, newest first.
func GetSupplierMessages(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("message", "list_supplier")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var messages []model.Message
	result := database.GetDB().
		Where("supplier_id = ?", supplierID).
		Order("created_at desc").
		Find(&messages)
	if result.Error != nil {
		log.Error("Failed to list supplier messages", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve messages"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": messages})
}

// GetAdminMessages lists all restock requests, paginated and filterable by
// status and supplierId.
func GetAdminMessages(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("message", "list_admin")

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := database.GetDB().Model(&model.Message{})
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierParam := c.QueryParam("supplierId"); supplierParam != "" {
		supplierID, err := strconv.ParseUint(supplierParam, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid supplier id"})
		}
		query = query.Where("supplier_id = ?", supplierID)
	}

	var total int64
	query.Count(&total)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var messages []model.Message
	if result := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&messages); result.Error != nil {
		log.Error("Failed to list messages", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve messages"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    messages,
		"pagination": echo.Map{
			"current_page": page,
			"limit":        limit,
			"total":        total,
			"total_pages":  (int(total) + limit - 1) / limit,
		},
	})
}

// RespondMessageRequest answers a restock request. Approve carries quantity
// and price; reject carries a reason.
type RespondMessageRequest struct {
	Action           string           `json:"action" validate:"required,oneof=approve reject"`
	ApprovedQuantity *int             `json:"approved_quantity"`
	ApprovedPrice    *decimal.Decimal `json:"approved_price"`
	RejectReason     string           `json:"reject_reason"`
}

// RespondMessage lets the owning supplier approve or reject a pending
// request. A message is answered exactly once.
func RespondMessage(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("message", "respond")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}
	messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid message id"})
	}

	var req RespondMessageRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse message response", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "action must be approve or reject"})
	}

	var message model.Message
	if result := database.GetDB().First(&message, messageID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "message not found"})
	}
	if message.SupplierID != supplierID {
		log.Warn("Message response by non-owner", zap.Uint64("message_id", messageID), zap.Uint("supplier_id", supplierID))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "this message is not addressed to you"})
	}

	target := model.MessageStatusRejected
	if req.Action == "approve" {
		target = model.MessageStatusApproved
	}
	if err := model.MessageTransitions.Transition("message", message.Status, target); err != nil {
		prometheus.RecordTransition("message", string(message.Status), string(target), "rejected")
		log.Warn("Message already answered", zap.Uint64("message_id", messageID), zap.String("status", string(message.Status)))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}

	switch target {
	case model.MessageStatusApproved:
		if req.ApprovedQuantity == nil || *req.ApprovedQuantity <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "approved quantity must be positive"})
		}
		if req.ApprovedPrice == nil || req.ApprovedPrice.IsNegative() {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "approved price is required"})
		}
		message.ApprovedQuantity = req.ApprovedQuantity
		message.ApprovedPrice = req.ApprovedPrice
	case model.MessageStatusRejected:
		if req.RejectReason == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "reject reason is required"})
		}
		message.RejectReason = req.RejectReason
	}
	message.Status = target

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&message); result.Error != nil {
		log.Error("Failed to save message response", zap.Uint64("message_id", messageID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to respond to message"})
	}

	prometheus.RecordTransition("message", string(model.MessageStatusPending), string(target), "applied")
	log.Info("Message answered", zap.Uint("message_id", message.ID), zap.String("status", string(message.Status)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": message})
}

// MarkMessageSeen flips the seen flag without touching the status. Admins and
// the owning supplier may toggle it.
func MarkMessageSeen(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("message", "mark_seen")

	messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid message id"})
	}

	var message model.Message
	if result := database.GetDB().First(&message, messageID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "message not found"})
	}
	if !adminOrOwner(c, message.SupplierID) {
		log.Warn("Seen toggle denied", zap.Uint64("message_id", messageID), zap.String("role", currentRole(c)))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "this message is not addressed to you"})
	}

	message.ToggleSeen()

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&message).Update("seen", message.Seen); result.Error != nil {
		log.Error("Failed to toggle message seen flag", zap.Uint64("message_id", messageID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update message"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": message})
}

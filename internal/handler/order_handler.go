package handler

import (
	"errors"
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

// CreateOrderFromMessage turns an approved restock message into an order
// delivery. At most one order exists per message; the total amount is the
// approved quantity times the approved price.
func CreateOrderFromMessage(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "create")

	messageID, err := strconv.ParseUint(c.Param("messageId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid message id"})
	}

	var req struct {
		ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
		DeliveryNotes        string     `json:"delivery_notes"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse order request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}

	var message model.Message
	if result := database.GetDB().First(&message, messageID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "message not found"})
	}

	var existing model.OrderDelivery
	hasOrder := database.GetDB().Where("message_id = ?", messageID).First(&existing).Error == nil

	order, err := model.NewOrderFromMessage(&message, hasOrder)
	if err != nil {
		log.Warn("Order creation rejected",
			zap.Uint64("message_id", messageID),
			zap.String("status", string(message.Status)),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	order.ExpectedDeliveryDate = req.ExpectedDeliveryDate
	order.DeliveryNotes = req.DeliveryNotes

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(order); result.Error != nil {
		log.Error("Failed to create order", zap.Uint64("message_id", messageID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create order"})
	}

	log.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.Uint("message_id", message.ID),
		zap.String("total_amount", order.TotalAmount.String()))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "order": order})
}

// GetSupplierOrders lists the authenticated supplier's orders, newest first.
func GetSupplierOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "list_supplier")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var orders []model.OrderDelivery
	result := database.GetDB().
		Where("supplier_id = ?", supplierID).
		Order("created_at desc").
		Find(&orders)
	if result.Error != nil {
		log.Error("Failed to list supplier orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve orders"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "orders": orders})
}

// GetAdminOrders lists every order, optionally filtered by status.
func GetAdminOrders(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "list_admin")

	query := database.GetDB().Model(&model.OrderDelivery{})
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("order_status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var orders []model.OrderDelivery
	if result := query.Order("created_at desc").Find(&orders); result.Error != nil {
		log.Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve orders"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "orders": orders})
}

// GetOrder returns one order. Suppliers only see their own; admins see all.
func GetOrder(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "get")

	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid order id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var order model.OrderDelivery
	if result := database.GetDB().First(&order, orderID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "order not found"})
	}

	if !adminOrOwner(c, order.SupplierID) {
		log.Warn("Order access denied", zap.Uint64("order_id", orderID), zap.String("role", currentRole(c)))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "this order does not belong to you"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}

// UpdateOrderStatusRequest moves an order through its lifecycle.
type UpdateOrderStatusRequest struct {
	Status             workflow.Status `json:"status" validate:"required"`
	TrackingInfo       string          `json:"tracking_info"`
	DeliveryNotes      string          `json:"delivery_notes"`
	ActualDeliveryDate *time.Time      `json:"actual_delivery_date"`
}

// UpdateOrderStatus validates the requested move against the order transition
// table, then applies the date side effects: ready_for_shipment stamps the
// ready date, delivered stamps the actual delivery date.
func UpdateOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("order", "update_status")

	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid order id"})
	}

	var req UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse status update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "status is required"})
	}

	var order model.OrderDelivery
	if result := database.GetDB().First(&order, orderID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "order not found"})
	}

	if !adminOrOwner(c, order.SupplierID) {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "this order does not belong to you"})
	}

	if !model.OrderTransitions.Known(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "unknown order status"})
	}

	from := order.OrderStatus
	if err := model.OrderTransitions.Transition("order", from, req.Status); err != nil {
		prometheus.RecordTransition("order", string(from), string(req.Status), "rejected")
		var invalid *workflow.InvalidTransitionError
		if errors.As(err, &invalid) {
			log.Warn("Invalid order transition",
				zap.Uint64("order_id", orderID),
				zap.String("from", string(invalid.From)),
				zap.String("to", string(invalid.To)))
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}

	now := time.Now()
	order.OrderStatus = req.Status
	switch req.Status {
	case model.OrderStatusReadyForShipment:
		if order.ReadyDate == nil {
			order.ReadyDate = &now
		}
	case model.OrderStatusDelivered:
		if req.ActualDeliveryDate != nil {
			order.ActualDeliveryDate = req.ActualDeliveryDate
		} else if order.ActualDeliveryDate == nil {
			order.ActualDeliveryDate = &now
		}
	}
	if req.TrackingInfo != "" {
		order.TrackingInfo = req.TrackingInfo
	}
	if req.DeliveryNotes != "" {
		order.DeliveryNotes = req.DeliveryNotes
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Save(&order); result.Error != nil {
		log.Error("Failed to update order status", zap.Uint64("order_id", orderID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update order"})
	}

	prometheus.RecordTransition("order", string(from), string(req.Status), "applied")
	log.Info("Order status updated",
		zap.Uint("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(order.OrderStatus)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}

// propagateOrderDelivered marks the parent order delivered inside the caller's
// transaction, used when a shipment completes.
func propagateOrderDelivered(tx *gorm.DB, orderID uint, deliveredAt time.Time) error {
	return tx.Model(&model.OrderDelivery{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"order_status":         model.OrderStatusDelivered,
			"actual_delivery_date": deliveredAt,
		}).Error
}

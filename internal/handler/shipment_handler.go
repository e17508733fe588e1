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

// CreateShipmentRequest opens carrier tracking for a ready order.
type CreateShipmentRequest struct {
	OrderDeliveryID      uint       `json:"order_delivery_id" validate:"required"`
	TrackingNumber       string     `json:"tracking_number" validate:"required"`
	Carrier              string     `json:"carrier"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	DeliveryNotes        string     `json:"delivery_notes"`
}

// CreateShipment creates the shipment for an order the supplier owns. The
// order must be exactly ready_for_shipment and have no shipment yet; in the
// same transaction the order moves to shipped and the tracking fields are
// copied onto it.
func CreateShipment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("shipment", "create")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	var req CreateShipmentRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse shipment request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "order and tracking number are required"})
	}

	var order model.OrderDelivery
	if result := database.GetDB().First(&order, req.OrderDeliveryID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "order not found"})
	}
	if order.SupplierID != supplierID {
		log.Warn("Shipment for foreign order", zap.Uint("order_id", order.ID), zap.Uint("supplier_id", supplierID))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "this order does not belong to you"})
	}

	var existing model.ShipmentDelivery
	hasShipment := database.GetDB().Where("order_delivery_id = ?", order.ID).First(&existing).Error == nil
	if err := model.CanOpenShipment(order.OrderStatus, hasShipment); err != nil {
		log.Warn("Shipment creation rejected",
			zap.Uint("order_id", order.ID),
			zap.String("status", string(order.OrderStatus)),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}

	shipment := model.ShipmentDelivery{
		OrderDeliveryID:      order.ID,
		SupplierID:           supplierID,
		TrackingNumber:       req.TrackingNumber,
		Carrier:              req.Carrier,
		Status:               model.ShipmentStatusPreparing,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		DeliveryNotes:        req.DeliveryNotes,
		LastUpdated:          time.Now(),
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&shipment).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"order_status":  model.OrderStatusShipped,
			"tracking_info": req.TrackingNumber,
		}
		if req.ExpectedDeliveryDate != nil {
			updates["expected_delivery_date"] = *req.ExpectedDeliveryDate
		}
		return tx.Model(&model.OrderDelivery{}).Where("id = ?", order.ID).Updates(updates).Error
	})
	if err != nil {
		log.Error("Failed to create shipment", zap.Uint("order_id", order.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to create shipment"})
	}

	prometheus.RecordTransition("order", string(model.OrderStatusReadyForShipment), string(model.OrderStatusShipped), "applied")
	log.Info("Shipment created",
		zap.Uint("shipment_id", shipment.ID),
		zap.Uint("order_id", order.ID),
		zap.String("tracking_number", shipment.TrackingNumber))
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "shipment": shipment})
}

// GetSupplierShipments lists the authenticated supplier's shipments.
func GetSupplierShipments(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("shipment", "list_supplier")

	supplierID, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var shipments []model.ShipmentDelivery
	result := database.GetDB().
		Where("supplier_id = ?", supplierID).
		Order("created_at desc").
		Find(&shipments)
	if result.Error != nil {
		log.Error("Failed to list supplier shipments", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve shipments"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "shipments": shipments})
}

// GetAdminShipments lists every shipment, optionally filtered by status.
func GetAdminShipments(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("shipment", "list_admin")

	query := database.GetDB().Model(&model.ShipmentDelivery{})
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var shipments []model.ShipmentDelivery
	if result := query.Order("created_at desc").Find(&shipments); result.Error != nil {
		log.Error("Failed to list shipments", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to retrieve shipments"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "shipments": shipments})
}

// GetShipment returns one shipment. Suppliers only see their own.
func GetShipment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("shipment", "get")

	shipmentID, err := strconv.ParseUint(c.Param("shipmentId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid shipment id"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var shipment model.ShipmentDelivery
	if result := database.GetDB().First(&shipment, shipmentID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "shipment not found"})
	}

	if !adminOrOwner(c, shipment.SupplierID) {
		log.Warn("Shipment access denied", zap.Uint64("shipment_id", shipmentID), zap.String("role", currentRole(c)))
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "this shipment does not belong to you"})
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "shipment": shipment})
}

// UpdateShipmentStatusRequest moves a shipment along its tracking lifecycle.
type UpdateShipmentStatusRequest struct {
	Status               workflow.Status `json:"status" validate:"required"`
	ActualDeliveryDate   *time.Time      `json:"actual_delivery_date"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	DeliveryNotes        string          `json:"delivery_notes"`
}

// UpdateShipmentStatus validates the move against the shipment transition
// table. Marking delivered requires an explicit actual delivery date and, in
// the same transaction, marks the parent order delivered too.
func UpdateShipmentStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("shipment", "update_status")

	shipmentID, err := strconv.ParseUint(c.Param("shipmentId"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid shipment id"})
	}

	var req UpdateShipmentStatusRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse shipment status update", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "status is required"})
	}

	var shipment model.ShipmentDelivery
	if result := database.GetDB().First(&shipment, shipmentID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": "shipment not found"})
	}

	if !adminOrOwner(c, shipment.SupplierID) {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "this shipment does not belong to you"})
	}

	if !model.ShipmentTransitions.Known(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "unknown shipment status"})
	}

	from := shipment.Status
	if err := model.ShipmentTransitions.Transition("shipment", from, req.Status); err != nil {
		prometheus.RecordTransition("shipment", string(from), string(req.Status), "rejected")
		var invalid *workflow.InvalidTransitionError
		if errors.As(err, &invalid) {
			log.Warn("Invalid shipment transition",
				zap.Uint64("shipment_id", shipmentID),
				zap.String("from", string(invalid.From)),
				zap.String("to", string(invalid.To)))
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": err.Error()})
	}
	if req.Status == model.ShipmentStatusDelivered && req.ActualDeliveryDate == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "message": "actual delivery date is required to mark delivered"})
	}

	shipment.Status = req.Status
	shipment.LastUpdated = time.Now()
	if req.ActualDeliveryDate != nil {
		shipment.ActualDeliveryDate = req.ActualDeliveryDate
	}
	if req.ExpectedDeliveryDate != nil {
		shipment.ExpectedDeliveryDate = req.ExpectedDeliveryDate
	}
	if req.DeliveryNotes != "" {
		shipment.DeliveryNotes = req.DeliveryNotes
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	txErr := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&shipment).Error; err != nil {
			return err
		}
		if req.Status == model.ShipmentStatusDelivered {
			return propagateOrderDelivered(tx, shipment.OrderDeliveryID, *req.ActualDeliveryDate)
		}
		return nil
	})
	if txErr != nil {
		log.Error("Failed to update shipment status", zap.Uint64("shipment_id", shipmentID), zap.Error(txErr))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "failed to update shipment"})
	}

	prometheus.RecordTransition("shipment", string(from), string(req.Status), "applied")
	log.Info("Shipment status updated",
		zap.Uint("shipment_id", shipment.ID),
		zap.String("from", string(from)),
		zap.String("to", string(shipment.Status)))
	return c.JSON(http.StatusOK, echo.Map{"success": true, "shipment": shipment})
}

package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/service"
	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/batgear/batstore-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type OrderItemRequest struct {
	Product  uint `json:"product" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,min=1"`
}

type PaymentRequest struct {
	Method model.PaymentMethod `json:"method" binding:"required"`
}

// CreateOrderRequest carries the client's view of the totals. They are
// compared with the server figures and otherwise ignored.
type CreateOrderRequest struct {
	Items           []OrderItemRequest    `json:"items" binding:"omitempty,dive"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	Payment         PaymentRequest        `json:"payment"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	Tax             decimal.Decimal       `json:"tax"`
	Shipping        decimal.Decimal       `json:"shipping"`
	Total           decimal.Decimal       `json:"total"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus model.PaymentStatus `json:"paymentStatus" binding:"required"`
}

// CreateOrder finalizes a checkout
// POST /api/orders/create
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid order request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BindingError(c, err)
		return
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.OrderItemInput{ProductID: item.Product, Quantity: item.Quantity})
	}

	order, err := ctrl.orderService.CreateOrder(c.Request.Context(), userID, service.CreateOrderInput{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.Payment.Method,
		Subtotal:        req.Subtotal,
		Tax:             req.Tax,
		Shipping:        req.Shipping,
		Total:           req.Total,
	})
	if err != nil {
		respondServiceError(c, log, err, "create order")
		return
	}

	log.Info("Order created", map[string]interface{}{
		"user_id":      userID,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	respond(c, http.StatusCreated, "Order created successfully", gin.H{"order": order})
}

// GetOrders returns the caller's orders
// GET /api/orders
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	page, err := ctrl.orderService.GetUserOrders(c.Request.Context(), userID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, log, err, "fetch orders")
		return
	}

	respond(c, http.StatusOK, "", page)
}

// GetOrderByID
// GET /api/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(c.Request.Context(), userID, orderID)
	if err != nil {
		respondServiceError(c, log, err, "fetch order")
		return
	}

	respond(c, http.StatusOK, "", gin.H{"order": order})
}

// CancelOrder withdraws a pending order and returns its stock
// POST /api/orders/:id/cancel
func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.CancelOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondServiceError(c, log, err, "cancel order")
		return
	}

	respond(c, http.StatusOK, "Order cancelled", gin.H{"order": order})
}

// ListAllOrders (admin)
// GET /api/orders/admin/all
func (ctrl *OrderController) ListAllOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	page, err := ctrl.orderService.ListAllOrders(c.Request.Context(), service.AdminOrderQuery{
		Status: model.OrderStatus(c.Query("status")),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		respondServiceError(c, log, err, "list orders")
		return
	}

	respond(c, http.StatusOK, "", page)
}

// GetStats (admin)
// GET /api/orders/admin/stats
func (ctrl *OrderController) GetStats(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	stats, err := ctrl.orderService.GetStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, log, err, "fetch order stats")
		return
	}

	respond(c, http.StatusOK, "", stats)
}

// ExportOrders streams an xlsx workbook (admin)
// GET /api/orders/admin/export
func (ctrl *OrderController) ExportOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	buf, err := ctrl.orderService.ExportOrders(c.Request.Context(), model.OrderStatus(c.Query("status")))
	if err != nil {
		respondServiceError(c, log, err, "export orders")
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// UpdateOrderStatus (admin)
// PATCH /api/orders/update/:orderId
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actorID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status, actorID)
	if err != nil {
		respondServiceError(c, log, err, "update order status")
		return
	}

	respond(c, http.StatusOK, "Order status updated", gin.H{"order": order})
}

// UpdatePaymentStatus (admin)
// PATCH /api/orders/payment/:orderId
func (ctrl *OrderController) UpdatePaymentStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdatePaymentStatus(c.Request.Context(), orderID, req.PaymentStatus)
	if err != nil {
		respondServiceError(c, log, err, "update payment status")
		return
	}

	respond(c, http.StatusOK, "Payment status updated", gin.H{"order": order})
}

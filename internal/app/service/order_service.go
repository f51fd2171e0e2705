package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/repository"
	"github.com/batgear/batstore-backend/internal/pricing"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/batgear/batstore-backend/pkg/metrics"
	"github.com/batgear/batstore-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidPaymentStatus    = errors.New("invalid payment status")
	ErrInvalidShippingAddress  = errors.New("shipping address is incomplete")
	ErrInvalidOrderStatus      = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("order status cannot change that way")
)

// InsufficientStockError names the product that could not be reserved.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status_changed"
	OrderEventPaymentUpdate = "order.payment_updated"
)

// OrderEventPublisher receives committed order changes
type OrderEventPublisher interface {
	PublishOrderEvent(eventType string, order *model.Order)
}

type OrderItemInput struct {
	ProductID uint
	Quantity  int
}

// CreateOrderInput is a checkout request. The monetary fields are what the
// client computed and are only compared against the server figures.
type CreateOrderInput struct {
	Items           []OrderItemInput
	ShippingAddress model.ShippingAddress
	PaymentMethod   model.PaymentMethod
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
}

type OrderPagination struct {
	PageInfo
	TotalOrders int64 `json:"totalOrders"`
}

type OrderPage struct {
	Orders     []model.Order   `json:"orders"`
	Pagination OrderPagination `json:"pagination"`
}

type AdminOrderQuery struct {
	Status model.OrderStatus
	Page   int
	Limit  int
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID uint, input CreateOrderInput) (*model.Order, error)
	GetUserOrders(ctx context.Context, userID uint, page, limit int) (*OrderPage, error)
	GetOrderByID(ctx context.Context, userID, orderID uint) (*model.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uint) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus, actorID uint) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID uint, status model.PaymentStatus) (*model.Order, error)
	ListAllOrders(ctx context.Context, query AdminOrderQuery) (*OrderPage, error)
	GetStats(ctx context.Context) (*repository.OrderStats, error)
	ExportOrders(ctx context.Context, status model.OrderStatus) (*bytes.Buffer, error)
}

type orderService struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	cartRepo    repository.CartRepository
	metrics     *metrics.CheckoutMetrics
	publisher   OrderEventPublisher
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cartRepo repository.CartRepository,
	checkoutMetrics *metrics.CheckoutMetrics,
	publisher OrderEventPublisher,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		metrics:     checkoutMetrics,
		publisher:   publisher,
	}
}

// mergeItems sums quantities of repeated products, keeping first-seen order.
func mergeItems(items []OrderItemInput) ([]OrderItemInput, error) {
	merged := make([]OrderItemInput, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func (s *orderService) CreateOrder(ctx context.Context, userID uint, input CreateOrderInput) (*model.Order, error) {
	logger.Info("Creating order", map[string]interface{}{
		"user_id":        userID,
		"item_count":     len(input.Items),
		"payment_method": input.PaymentMethod,
	})

	if !input.PaymentMethod.Valid() {
		s.metrics.IncFailure("invalid_payment_method")
		return nil, ErrInvalidPaymentMethod
	}
	if !input.ShippingAddress.Complete() {
		s.metrics.IncFailure("invalid_address")
		return nil, ErrInvalidShippingAddress
	}

	items, err := mergeItems(input.Items)
	if err != nil {
		s.metrics.IncFailure("invalid_quantity")
		return nil, err
	}
	if len(items) == 0 {
		cartItems, err := s.cartRepo.FindByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, ci := range cartItems {
			items = append(items, OrderItemInput{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}
	}
	if len(items) == 0 {
		logger.Warn("Cannot create order: cart is empty", map[string]interface{}{
			"user_id": userID,
		})
		s.metrics.IncFailure("empty_cart")
		return nil, ErrEmptyCart
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	productRepo := s.productRepo.WithTx(tx)
	lines := make([]pricing.Line, 0, len(items))
	orderItems := make([]model.OrderItem, 0, len(items))

	for _, item := range items {
		product, err := productRepo.FindActiveByID(ctx, item.ProductID)
		if err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("Cannot create order: product not found", map[string]interface{}{
					"user_id":    userID,
					"product_id": item.ProductID,
				})
				s.metrics.IncFailure("product_not_found")
				return nil, ErrProductNotFound
			}
			s.metrics.IncFailure("internal")
			return nil, err
		}

		reserved, err := productRepo.DecrementStock(ctx, product.ID, item.Quantity)
		if err != nil {
			tx.Rollback()
			s.metrics.IncFailure("internal")
			return nil, err
		}
		if !reserved {
			tx.Rollback()
			logger.Warn("Cannot create order: insufficient stock", map[string]interface{}{
				"user_id":    userID,
				"product_id": product.ID,
				"requested":  item.Quantity,
			})
			s.metrics.IncFailure("insufficient_stock")
			return nil, &InsufficientStockError{ProductName: product.Name}
		}

		lines = append(lines, pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity})
		orderItems = append(orderItems, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Image:     product.PrimaryImage(),
		})
	}

	totals := pricing.Compute(lines)
	client := pricing.Totals{
		Subtotal: input.Subtotal,
		Tax:      input.Tax,
		Shipping: input.Shipping,
		Total:    input.Total,
	}
	if !totals.Matches(client) {
		logger.Warn("Client totals differ from server totals", map[string]interface{}{
			"user_id":         userID,
			"client_total":    input.Total.String(),
			"server_total":    totals.Total.String(),
			"client_subtotal": input.Subtotal.String(),
			"server_subtotal": totals.Subtotal.String(),
		})
	}

	actor := userID
	order := &model.Order{
		OrderNumber:     util.GenerateOrderNumber(),
		UserID:          userID,
		ShippingAddress: input.ShippingAddress,
		Payment: model.OrderPayment{
			Method: input.PaymentMethod,
			Status: model.PaymentStatusPending,
		},
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Shipping: totals.Shipping,
		Total:    totals.Total,
		Status:   model.OrderStatusPending,
		Items:    orderItems,
		History: []model.OrderStatusHistory{{
			Status:  model.OrderStatusPending,
			ActorID: &actor,
			Note:    "order placed",
		}},
	}

	if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
		tx.Rollback()
		s.metrics.IncFailure("internal")
		return nil, err
	}
	if err := s.cartRepo.WithTx(tx).DeleteByUserID(ctx, userID); err != nil {
		tx.Rollback()
		s.metrics.IncFailure("internal")
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order transaction", err, map[string]interface{}{
			"user_id":      userID,
			"order_number": order.OrderNumber,
		})
		s.metrics.IncFailure("internal")
		return nil, err
	}

	s.metrics.ObserveOrder(order.Total)
	logger.Info("Order created", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"total":        order.Total.String(),
	})

	created, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.publish(OrderEventCreated, created)
	return created, nil
}

func (s *orderService) GetUserOrders(ctx context.Context, userID uint, page, limit int) (*OrderPage, error) {
	page, limit = normalizePage(page, limit, DefaultOrderPageSize)

	orders, total, err := s.orderRepo.FindWithFilter(ctx, repository.OrderFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offsetFor(page, limit),
	})
	if err != nil {
		return nil, err
	}
	return newOrderPage(orders, page, limit, total), nil
}

func newOrderPage(orders []model.Order, page, limit int, total int64) *OrderPage {
	if orders == nil {
		orders = []model.Order{}
	}
	return &OrderPage{
		Orders: orders,
		Pagination: OrderPagination{
			PageInfo:    newPageInfo(page, limit, total),
			TotalOrders: total,
		},
	}
}

// GetOrderByID hides orders that belong to someone else
func (s *orderService) GetOrderByID(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		logger.Warn("Order access denied", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) findOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// CancelOrder lets a shopper withdraw an order that has not been confirmed yet.
func (s *orderService) CancelOrder(ctx context.Context, userID, orderID uint) (*model.Order, error) {
	order, err := s.GetOrderByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusPending {
		return nil, ErrInvalidStatusTransition
	}
	return s.transition(ctx, order, model.OrderStatusCancelled, userID, "cancelled by customer")
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus, actorID uint) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(status) {
		logger.Warn("Rejected order status transition", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       status,
		})
		return nil, ErrInvalidStatusTransition
	}
	return s.transition(ctx, order, status, actorID, "")
}

// transition moves order to next, restoring stock when it is cancelled.
func (s *orderService) transition(ctx context.Context, order *model.Order, next model.OrderStatus, actorID uint, note string) (*model.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		updated, err := orderRepo.UpdateStatus(ctx, order.ID, order.Status, next)
		if err != nil {
			return err
		}
		if !updated {
			return ErrInvalidStatusTransition
		}

		if next == model.OrderStatusCancelled {
			productRepo := s.productRepo.WithTx(tx)
			for _, item := range order.Items {
				if err := productRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		return orderRepo.AppendHistory(ctx, &model.OrderStatusHistory{
			OrderID: order.ID,
			Status:  next,
			ActorID: &actorID,
			Note:    note,
		})
	})
	if err != nil {
		logger.Error("Failed to change order status", err, map[string]interface{}{
			"order_id": order.ID,
			"from":     order.Status,
			"to":       next,
		})
		return nil, err
	}

	s.metrics.IncTransition(string(next))
	logger.Info("Order status changed", map[string]interface{}{
		"order_id": order.ID,
		"from":     order.Status,
		"to":       next,
		"actor_id": actorID,
	})

	updated, err := s.findOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.publish(OrderEventStatusChanged, updated)
	return updated, nil
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, orderID uint, status model.PaymentStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidPaymentStatus
	}
	if _, err := s.findOrder(ctx, orderID); err != nil {
		return nil, err
	}
	if err := s.orderRepo.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	updated, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(OrderEventPaymentUpdate, updated)
	return updated, nil
}

func (s *orderService) ListAllOrders(ctx context.Context, query AdminOrderQuery) (*OrderPage, error) {
	if query.Status != "" && !query.Status.Valid() {
		return nil, ErrInvalidOrderStatus
	}
	page, limit := normalizePage(query.Page, query.Limit, DefaultOrderPageSize)

	orders, total, err := s.orderRepo.FindWithFilter(ctx, repository.OrderFilter{
		Status: query.Status,
		Limit:  limit,
		Offset: offsetFor(page, limit),
	})
	if err != nil {
		return nil, err
	}
	return newOrderPage(orders, page, limit, total), nil
}

func (s *orderService) GetStats(ctx context.Context) (*repository.OrderStats, error) {
	return s.orderRepo.Stats(ctx)
}

var exportHeader = []interface{}{
	"Order Number", "Created At", "Customer", "Status", "Payment Method", "Payment Status",
	"Items", "Subtotal", "Tax", "Shipping", "Total", "Ship To",
}

// ExportOrders renders every order with the given status (all when empty) as an xlsx workbook.
func (s *orderService) ExportOrders(ctx context.Context, status model.OrderStatus) (*bytes.Buffer, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidOrderStatus
	}

	orders, _, err := s.orderRepo.FindWithFilter(ctx, repository.OrderFilter{Status: status})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	for i, order := range orders {
		customer := ""
		if order.User != nil {
			customer = order.User.Email
		}
		itemCount := 0
		for _, item := range order.Items {
			itemCount += item.Quantity
		}
		addr := order.ShippingAddress
		row := []interface{}{
			order.OrderNumber,
			order.CreatedAt.Format("2006-01-02 15:04:05"),
			customer,
			string(order.Status),
			string(order.Payment.Method),
			string(order.Payment.Status),
			itemCount,
			order.Subtotal.InexactFloat64(),
			order.Tax.InexactFloat64(),
			order.Shipping.InexactFloat64(),
			order.Total.InexactFloat64(),
			fmt.Sprintf("%s, %s, %s, %s %s", addr.Name, addr.Street, addr.City, addr.State, addr.ZipCode),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		logger.Error("Failed to render order export", err)
		return nil, err
	}

	logger.Info("Orders exported", map[string]interface{}{
		"status": status,
		"count":  len(orders),
	})
	return buf, nil
}

func (s *orderService) publish(eventType string, order *model.Order) {
	if s.publisher == nil || order == nil {
		return
	}
	s.publisher.PublishOrderEvent(eventType, order)
}

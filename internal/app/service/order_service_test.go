package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/repository"
	"github.com/batgear/batstore-backend/internal/db"
	"github.com/batgear/batstore-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type recordedEvent struct {
	eventType string
	orderID   uint
	status    model.OrderStatus
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishOrderEvent(eventType string, order *model.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType: eventType, orderID: order.ID, status: order.Status})
}

type orderFixture struct {
	db          *gorm.DB
	svc         OrderService
	cart        CartService
	productRepo repository.ProductRepository
	publisher   *recordingPublisher
	user        *model.User
	other       *model.User
	admin       *model.User
}

func setupOrderServiceTest(t *testing.T) *orderFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	publisher := &recordingPublisher{}

	f := &orderFixture{
		db:          testDB,
		svc:         NewOrderService(testDB, orderRepo, productRepo, cartRepo, metrics.NewCheckoutMetrics(nil), publisher),
		cart:        NewCartService(cartRepo, productRepo),
		productRepo: productRepo,
		publisher:   publisher,
	}

	newUser := func(email, name string, role model.UserRole) *model.User {
		u := &model.User{Email: email, PasswordHash: "hash", Name: name, Role: role}
		require.NoError(t, testDB.Create(u).Error)
		return u
	}
	f.user = newUser("bruce@wayne.enterprises", "Bruce Wayne", model.RoleUser)
	f.other = newUser("selina@kyle.net", "Selina Kyle", model.RoleUser)
	f.admin = newUser("alfred@wayne.enterprises", "Alfred", model.RoleAdmin)
	return f
}

func (f *orderFixture) product(t *testing.T, name, price string, stock int) *model.Product {
	p := &model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "gear",
		Stock:    stock,
		IsActive: true,
		Images:   []model.ProductImage{{URL: "https://cdn.batstore.test/" + name + ".jpg", Alt: name}},
		Tags:     []string{},
	}
	require.NoError(t, f.productRepo.Create(context.Background(), p))
	return p
}

func (f *orderFixture) stockOf(t *testing.T, id uint) int {
	p, err := f.productRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *orderFixture) orderCount(t *testing.T) int64 {
	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	return count
}

func gothamAddress() model.ShippingAddress {
	return model.ShippingAddress{
		Name:    "Bruce Wayne",
		Street:  "1007 Mountain Drive",
		City:    "Gotham",
		State:   "NJ",
		ZipCode: "07001",
		Phone:   "555-0100",
	}
}

func checkoutInput(items ...OrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		Items:           items,
		ShippingAddress: gothamAddress(),
		PaymentMethod:   model.PaymentMethodCreditCard,
	}
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()

	belt := f.product(t, "Utility Belt", "50.00", 5)
	_, err := f.cart.AddToCart(ctx, f.user.ID, belt.ID, 1)
	require.NoError(t, err)

	input := checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 2})
	// client totals are only a hint
	input.Total = decimal.RequireFromString("1.00")

	order, err := f.svc.CreateOrder(ctx, f.user.ID, input)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderNumber, "BAT-"))
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, model.PaymentStatusPending, order.Payment.Status)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, order.Tax.Equal(decimal.NewFromInt(10)))
	assert.True(t, order.Shipping.Equal(decimal.NewFromInt(10)))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(120)))

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Utility Belt", order.Items[0].Name)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "https://cdn.batstore.test/Utility Belt.jpg", order.Items[0].Image)
	require.Len(t, order.History, 1)
	assert.Equal(t, model.OrderStatusPending, order.History[0].Status)

	assert.Equal(t, 3, f.stockOf(t, belt.ID))

	cart, err := f.cart.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, OrderEventCreated, f.publisher.events[0].eventType)
}

func TestOrderService_CreateOrder_UniqueNumbers(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	cape := f.product(t, "Cape", "30.00", 50)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: cape.ID, Quantity: 1}))
		require.NoError(t, err)
		assert.False(t, seen[order.OrderNumber])
		seen[order.OrderNumber] = true
	}
	assert.Equal(t, 40, f.stockOf(t, cape.ID))
}

func TestOrderService_CreateOrder_InsufficientStock(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()

	belt := f.product(t, "Utility Belt", "50.00", 5)
	cowl := f.product(t, "Cowl", "80.00", 1)

	_, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(
		OrderItemInput{ProductID: belt.ID, Quantity: 2},
		OrderItemInput{ProductID: cowl.ID, Quantity: 2},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Cowl", stockErr.ProductName)
	assert.Equal(t, "insufficient stock for Cowl", err.Error())

	assert.Equal(t, int64(0), f.orderCount(t))
	assert.Equal(t, 5, f.stockOf(t, belt.ID))
	assert.Equal(t, 1, f.stockOf(t, cowl.ID))
	assert.Empty(t, f.publisher.events)
}

func TestOrderService_CreateOrder_MergesDuplicateItems(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	pellets := f.product(t, "Smoke Pellets", "12.50", 3)

	_, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(
		OrderItemInput{ProductID: pellets.ID, Quantity: 2},
		OrderItemInput{ProductID: pellets.ID, Quantity: 2},
	))
	assert.ErrorIs(t, err, ErrInsufficientStock)

	order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(
		OrderItemInput{ProductID: pellets.ID, Quantity: 1},
		OrderItemInput{ProductID: pellets.ID, Quantity: 2},
	))
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 0, f.stockOf(t, pellets.ID))
}

func TestOrderService_CreateOrder_FallsBackToServerCart(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()

	replica := f.product(t, "Batmobile Replica", "150.00", 2)
	_, err := f.cart.AddToCart(ctx, f.user.ID, replica.ID, 1)
	require.NoError(t, err)

	order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput())
	require.NoError(t, err)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(150)))
	assert.True(t, order.Tax.Equal(decimal.NewFromInt(15)))
	assert.True(t, order.Shipping.IsZero())
	assert.True(t, order.Total.Equal(decimal.NewFromInt(165)))

	_, err = f.svc.CreateOrder(ctx, f.user.ID, checkoutInput())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	belt := f.product(t, "Utility Belt", "50.00", 5)
	item := OrderItemInput{ProductID: belt.ID, Quantity: 1}

	t.Run("empty cart", func(t *testing.T) {
		_, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput())
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("bad payment method", func(t *testing.T) {
		input := checkoutInput(item)
		input.PaymentMethod = "bitcoin"
		_, err := f.svc.CreateOrder(ctx, f.user.ID, input)
		assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	})

	t.Run("incomplete address", func(t *testing.T) {
		input := checkoutInput(item)
		input.ShippingAddress.ZipCode = ""
		_, err := f.svc.CreateOrder(ctx, f.user.ID, input)
		assert.ErrorIs(t, err, ErrInvalidShippingAddress)
	})

	t.Run("zero quantity", func(t *testing.T) {
		_, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: belt.ID}))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: 999, Quantity: 1}))
		assert.ErrorIs(t, err, ErrProductNotFound)
	})

	t.Run("inactive product", func(t *testing.T) {
		gone := f.product(t, "Old Cowl", "10.00", 5)
		require.NoError(t, f.productRepo.Deactivate(ctx, gone.ID))
		_, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: gone.ID, Quantity: 1}))
		assert.ErrorIs(t, err, ErrProductNotFound)
		assert.Equal(t, 5, f.stockOf(t, gone.ID))
	})

	assert.Equal(t, int64(0), f.orderCount(t))
	assert.Equal(t, 5, f.stockOf(t, belt.ID))
}

func TestOrderService_GetOrders(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	cape := f.product(t, "Cape", "30.00", 50)

	var last *model.Order
	for i := 0; i < 3; i++ {
		order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: cape.ID, Quantity: 1}))
		require.NoError(t, err)
		last = order
	}
	_, err := f.svc.CreateOrder(ctx, f.other.ID, checkoutInput(OrderItemInput{ProductID: cape.ID, Quantity: 1}))
	require.NoError(t, err)

	page, err := f.svc.GetUserOrders(ctx, f.user.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, int64(3), page.Pagination.TotalOrders)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.Equal(t, last.ID, page.Orders[0].ID)

	found, err := f.svc.GetOrderByID(ctx, f.user.ID, last.ID)
	require.NoError(t, err)
	assert.Equal(t, last.OrderNumber, found.OrderNumber)

	_, err = f.svc.GetOrderByID(ctx, f.other.ID, last.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = f.svc.GetOrderByID(ctx, f.user.ID, 9999)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	all, err := f.svc.ListAllOrders(ctx, AdminOrderQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 4)
	require.NotNil(t, all.Orders[0].User)

	_, err = f.svc.ListAllOrders(ctx, AdminOrderQuery{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestOrderService_CancelOrder(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	belt := f.product(t, "Utility Belt", "50.00", 5)

	order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, 3, f.stockOf(t, belt.ID))

	_, err = f.svc.CancelOrder(ctx, f.other.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	cancelled, err := f.svc.CancelOrder(ctx, f.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.stockOf(t, belt.ID))
	require.Len(t, cancelled.History, 2)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.History[1].Status)
	require.NotNil(t, cancelled.History[1].ActorID)
	assert.Equal(t, f.user.ID, *cancelled.History[1].ActorID)

	_, err = f.svc.CancelOrder(ctx, f.user.ID, order.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, 5, f.stockOf(t, belt.ID))
}

func TestOrderService_CancelOrder_AfterConfirmation(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	belt := f.product(t, "Utility Belt", "50.00", 5)

	order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusConfirmed, f.admin.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, f.user.ID, order.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	// admins can still cancel a confirmed order
	cancelled, err := f.svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusCancelled, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.stockOf(t, belt.ID))
}

func TestOrderService_Transition_StaleOrderAppliesOnce(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	belt := f.product(t, "Utility Belt", "50.00", 5)

	order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, 3, f.stockOf(t, belt.ID))

	svc := f.svc.(*orderService)
	stale, err := svc.findOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPending, stale.Status)

	_, err = svc.transition(ctx, stale, model.OrderStatusCancelled, f.user.ID, "cancelled by customer")
	require.NoError(t, err)
	_, err = svc.transition(ctx, stale, model.OrderStatusCancelled, f.admin.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	assert.Equal(t, 5, f.stockOf(t, belt.ID))
	found, err := svc.findOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, found.Status)
	assert.Len(t, found.History, 2)
}

func TestOrderService_Transition_StaleForwardUpdate(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	belt := f.product(t, "Utility Belt", "50.00", 5)

	order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 1}))
	require.NoError(t, err)

	svc := f.svc.(*orderService)
	stale, err := svc.findOrder(ctx, order.ID)
	require.NoError(t, err)

	_, err = svc.transition(ctx, stale, model.OrderStatusConfirmed, f.admin.ID, "")
	require.NoError(t, err)
	_, err = svc.transition(ctx, stale, model.OrderStatusShipped, f.admin.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	found, err := svc.findOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, found.Status)
	assert.Len(t, found.History, 2)
	assert.Equal(t, 4, f.stockOf(t, belt.ID))
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	belt := f.product(t, "Utility Belt", "50.00", 5)

	order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, "teleported", f.admin.ID)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	_, err = f.svc.UpdateOrderStatus(ctx, 9999, model.OrderStatusShipped, f.admin.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	shipped, err := f.svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusShipped, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, shipped.Status)
	require.Len(t, shipped.History, 2)
	require.NotNil(t, shipped.History[1].ActorID)
	assert.Equal(t, f.admin.ID, *shipped.History[1].ActorID)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusConfirmed, f.admin.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusCancelled, f.admin.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusShipped, f.admin.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	delivered, err := f.svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusDelivered, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, delivered.Status)
	assert.Len(t, delivered.History, 3)
	assert.Equal(t, 4, f.stockOf(t, belt.ID))

	types := make([]string, 0, len(f.publisher.events))
	for _, e := range f.publisher.events {
		types = append(types, e.eventType)
	}
	assert.Equal(t, []string{OrderEventCreated, OrderEventStatusChanged, OrderEventStatusChanged}, types)
}

func TestOrderService_UpdatePaymentStatus(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	belt := f.product(t, "Utility Belt", "50.00", 5)

	order, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 1}))
	require.NoError(t, err)

	paid, err := f.svc.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, paid.Payment.Status)
	assert.Equal(t, model.OrderStatusPending, paid.Status)

	_, err = f.svc.UpdatePaymentStatus(ctx, order.ID, "refunded")
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
	_, err = f.svc.UpdatePaymentStatus(ctx, 9999, model.PaymentStatusPaid)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_StatsAndExport(t *testing.T) {
	f := setupOrderServiceTest(t)
	ctx := context.Background()
	belt := f.product(t, "Utility Belt", "50.00", 10)

	first, err := f.svc.CreateOrder(ctx, f.user.ID, checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 2}))
	require.NoError(t, err)
	second, err := f.svc.CreateOrder(ctx, f.other.ID, checkoutInput(OrderItemInput{ProductID: belt.ID, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.svc.CancelOrder(ctx, f.other.ID, second.ID)
	require.NoError(t, err)

	stats, err := f.svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.ByStatus[model.OrderStatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[model.OrderStatusCancelled])
	assert.True(t, stats.Revenue.Equal(first.Total), "revenue %s", stats.Revenue)

	buf, err := f.svc.ExportOrders(ctx, model.OrderStatusPending)
	require.NoError(t, err)

	book, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order Number", rows[0][0])
	assert.Equal(t, first.OrderNumber, rows[1][0])
	assert.Equal(t, "bruce@wayne.enterprises", rows[1][2])
	assert.Equal(t, "pending", rows[1][3])

	_, err = f.svc.ExportOrders(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

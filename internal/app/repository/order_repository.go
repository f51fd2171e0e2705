package repository

import (
	"context"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderFilter struct {
	UserID *uint
	Status model.OrderStatus
	Limit  int
	Offset int
}

// OrderStats summarises every order in the store
type OrderStats struct {
	TotalOrders int64                       `json:"totalOrders"`
	ByStatus    map[model.OrderStatus]int64 `json:"byStatus"`
	Revenue     decimal.Decimal             `json:"revenue"`
}

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error)
	FindWithFilter(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, from, to model.OrderStatus) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uint, status model.PaymentStatus) error
	AppendHistory(ctx context.Context, entry *model.OrderStatusHistory) error
	Stats(ctx context.Context) (*OrderStats, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":      order.UserID,
		"order_number": order.OrderNumber,
		"total":        order.Total.String(),
		"item_count":   len(order.Items),
	})

	if err := r.db.WithContext(ctx).Omit("User").Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":      order.UserID,
			"order_number": order.OrderNumber,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      order.UserID,
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder(ctx).First(&order, id).Error; err != nil {
		logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
			"order_id": id,
		})
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder(ctx).Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindWithFilter(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	logger.Debug("Finding orders with filter in database", map[string]interface{}{
		"user_id": filter.UserID,
		"status":  filter.Status,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Order{})
		if filter.UserID != nil {
			q = q.Where("user_id = ?", *filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		logger.Error("Failed to count orders in database", err)
		return nil, 0, err
	}

	query := base().
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC").
		Order("id DESC")
	if filter.UserID == nil {
		query = query.Preload("User")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders with filter in database", err)
		return nil, 0, err
	}

	logger.Debug("Orders found with filter in database", map[string]interface{}{
		"count": len(orders),
		"total": total,
	})
	return orders, total, nil
}

// UpdateStatus moves the order to "to" only while it is still in "from".
// It reports false when another writer changed the status first.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, from, to model.OrderStatus) (bool, error) {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"from":     from,
		"to":       to,
	})

	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
			"to":       to,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id uint, status model.PaymentStatus) error {
	logger.Debug("Updating order payment status in database", map[string]interface{}{
		"order_id":       id,
		"payment_status": status,
	})

	if err := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).
		Update("payment_status", status).Error; err != nil {
		logger.Error("Failed to update order payment status in database", err, map[string]interface{}{
			"order_id":       id,
			"payment_status": status,
		})
		return err
	}
	return nil
}

func (r *orderRepository) AppendHistory(ctx context.Context, entry *model.OrderStatusHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.Error("Failed to append order history in database", err, map[string]interface{}{
			"order_id": entry.OrderID,
			"status":   entry.Status,
		})
		return err
	}
	return nil
}

func (r *orderRepository) Stats(ctx context.Context) (*OrderStats, error) {
	var rows []struct {
		Status model.OrderStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to aggregate order counts", err)
		return nil, err
	}

	stats := &OrderStats{ByStatus: make(map[model.OrderStatus]int64)}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalOrders += row.Count
	}

	var revenue struct {
		Revenue decimal.NullDecimal
	}
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("SUM(total) AS revenue").
		Where("status <> ?", model.OrderStatusCancelled).
		Scan(&revenue).Error; err != nil {
		logger.Error("Failed to aggregate order revenue", err)
		return nil, err
	}
	stats.Revenue = decimal.Zero
	if revenue.Revenue.Valid {
		stats.Revenue = revenue.Revenue.Decimal.Round(2)
	}
	return stats, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/repository"
	"github.com/batgear/batstore-backend/internal/pricing"
	"github.com/batgear/batstore-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)

// CartView is the server cart with its derived totals
type CartView struct {
	Items      []model.CartItem `json:"items"`
	ItemsCount int              `json:"itemsCount"`
	pricing.Totals
}

type CartService interface {
	GetCart(ctx context.Context, userID uint) (*CartView, error)
	AddToCart(ctx context.Context, userID, productID uint, quantity int) (*model.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) error
	RemoveFromCart(ctx context.Context, userID, productID uint) error
	ClearCart(ctx context.Context, userID uint) error
	CleanupStale(ctx context.Context, ttl time.Duration) (int64, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	items, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	return newCartView(items), nil
}

func newCartView(items []model.CartItem) *CartView {
	if items == nil {
		items = []model.CartItem{}
	}
	lines := make([]pricing.Line, 0, len(items))
	count := 0
	for _, item := range items {
		lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
		count += item.Quantity
	}
	return &CartView{
		Items:      items,
		ItemsCount: count,
		Totals:     pricing.Compute(lines),
	}
}

func (s *cartService) AddToCart(ctx context.Context, userID, productID uint, quantity int) (*model.CartItem, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindActiveByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	existing, err := s.cartRepo.FindByUserAndProduct(ctx, userID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return nil, err
	}

	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if requested > product.Stock {
		logger.Warn("Cannot add to cart: insufficient product stock", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"requested":  requested,
			"available":  product.Stock,
		})
		return nil, &InsufficientStockError{ProductName: product.Name}
	}

	if existing != nil {
		existing.Quantity = requested
		if err := s.cartRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		existing.Product = *product
		return existing, nil
	}

	item := &model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: product.Price,
	}
	if err := s.cartRepo.Create(ctx, item); err != nil {
		return nil, err
	}
	item.Product = *product

	logger.Info("Cart item added", map[string]interface{}{
		"cart_item_id": item.ID,
		"user_id":      userID,
	})
	return item, nil
}

// UpdateQuantity sets the quantity of an existing line. Zero or less removes it.
func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) error {
	item, err := s.cartRepo.FindByUserAndProduct(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartItemNotFound
		}
		return err
	}

	if quantity <= 0 {
		return s.cartRepo.Delete(ctx, userID, productID)
	}

	product, err := s.productRepo.FindActiveByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	if quantity > product.Stock {
		logger.Warn("Cannot update cart: insufficient product stock", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"requested":  quantity,
			"available":  product.Stock,
		})
		return &InsufficientStockError{ProductName: product.Name}
	}

	item.Quantity = quantity
	return s.cartRepo.Update(ctx, item)
}

func (s *cartService) RemoveFromCart(ctx context.Context, userID, productID uint) error {
	if _, err := s.cartRepo.FindByUserAndProduct(ctx, userID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartItemNotFound
		}
		return err
	}
	return s.cartRepo.Delete(ctx, userID, productID)
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) error {
	logger.Info("Clearing cart", map[string]interface{}{
		"user_id": userID,
	})
	return s.cartRepo.DeleteByUserID(ctx, userID)
}

// CleanupStale drops cart lines untouched for longer than ttl
func (s *cartService) CleanupStale(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.cartRepo.DeleteStale(ctx, time.Now().Add(-ttl))
}

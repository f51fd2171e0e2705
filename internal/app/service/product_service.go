package service

import (
	"context"
	"errors"
	"strings"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/repository"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInvalidProductInput = errors.New("invalid product input")
	ErrInvalidPriceRange   = errors.New("minPrice cannot exceed maxPrice")
)

type ProductListQuery struct {
	Page     int
	Limit    int
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     repository.ProductSort
}

type ProductPagination struct {
	PageInfo
	TotalProducts int64 `json:"totalProducts"`
}

type ProductPage struct {
	Products   []model.Product   `json:"products"`
	Pagination ProductPagination `json:"pagination"`
}

// ProductInput carries every writable field. Nil pointers leave the current
// value alone on update.
type ProductInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	OriginalPrice *decimal.Decimal
	Category      *string
	Brand         *string
	Images        []model.ProductImage
	Stock         *int
	Rating        *model.ProductRating
	IsActive      *bool
	Tags          []string
}

type ProductService interface {
	ListProducts(ctx context.Context, query ProductListQuery) (*ProductPage, error)
	GetFeaturedProducts(ctx context.Context, limit int) ([]model.Product, error)
	GetCategories(ctx context.Context) ([]string, error)
	GetProductByID(ctx context.Context, id uint) (*model.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uint, input ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	GetLowStockProducts(ctx context.Context, threshold int) ([]model.Product, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) ListProducts(ctx context.Context, query ProductListQuery) (*ProductPage, error) {
	page, limit := normalizePage(query.Page, query.Limit, DefaultProductPageSize)

	if query.MinPrice != nil && query.MaxPrice != nil && query.MinPrice.GreaterThan(*query.MaxPrice) {
		return nil, ErrInvalidPriceRange
	}

	products, total, err := s.productRepo.FindWithFilter(ctx, repository.ProductFilter{
		Category: strings.TrimSpace(query.Category),
		Search:   strings.TrimSpace(query.Search),
		MinPrice: query.MinPrice,
		MaxPrice: query.MaxPrice,
		SortBy:   query.Sort,
		Limit:    limit,
		Offset:   offsetFor(page, limit),
	})
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, err
	}

	return &ProductPage{
		Products: products,
		Pagination: ProductPagination{
			PageInfo:      newPageInfo(page, limit, total),
			TotalProducts: total,
		},
	}, nil
}

func (s *productService) GetFeaturedProducts(ctx context.Context, limit int) ([]model.Product, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultFeaturedLimit
	}
	return s.productRepo.FindFeatured(ctx, limit)
}

func (s *productService) GetCategories(ctx context.Context) ([]string, error) {
	return s.productRepo.ListCategories(ctx)
}

func (s *productService) GetProductByID(ctx context.Context, id uint) (*model.Product, error) {
	product, err := s.productRepo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" ||
		input.Price == nil || input.Category == nil || strings.TrimSpace(*input.Category) == "" {
		return nil, ErrInvalidProductInput
	}

	product := &model.Product{
		IsActive: true,
		Images:   []model.ProductImage{},
		Tags:     []string{},
	}
	if err := applyProductInput(product, input); err != nil {
		return nil, err
	}
	// a new product is always listed; deactivate it with a follow-up update
	product.IsActive = true

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
		"stock":      product.Stock,
	})
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uint, input ProductInput) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if err := applyProductInput(product, input); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
		"is_active":  product.IsActive,
	})
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.productRepo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	logger.Info("Product deactivated", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

func (s *productService) GetLowStockProducts(ctx context.Context, threshold int) ([]model.Product, error) {
	return s.productRepo.FindLowStock(ctx, threshold)
}

func applyProductInput(product *model.Product, input ProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return ErrInvalidProductInput
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return ErrInvalidProductInput
		}
		product.Price = input.Price.Round(2)
	}
	if input.OriginalPrice != nil {
		if input.OriginalPrice.IsNegative() {
			return ErrInvalidProductInput
		}
		original := input.OriginalPrice.Round(2)
		product.OriginalPrice = &original
	}
	if input.Category != nil {
		product.Category = strings.ToLower(strings.TrimSpace(*input.Category))
	}
	if input.Brand != nil {
		product.Brand = *input.Brand
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return ErrInvalidProductInput
		}
		product.Stock = *input.Stock
	}
	if input.Rating != nil {
		if input.Rating.Average < 0 || input.Rating.Average > 5 || input.Rating.Count < 0 {
			return ErrInvalidProductInput
		}
		product.Rating = *input.Rating
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}
	product.InStock = product.Stock > 0
	return nil
}

package controller

import (
	"net/http"
	"strings"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/repository"
	"github.com/batgear/batstore-backend/internal/app/service"
	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/batgear/batstore-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ProductController struct {
	productService    service.ProductService
	lowStockThreshold int
}

func NewProductController(productService service.ProductService, lowStockThreshold int) *ProductController {
	return &ProductController{
		productService:    productService,
		lowStockThreshold: lowStockThreshold,
	}
}

// ProductRequest is shared by create and update. Absent fields are left alone
// on update.
type ProductRequest struct {
	Name          *string              `json:"name" binding:"omitempty,max=200"`
	Description   *string              `json:"description"`
	Price         *decimal.Decimal     `json:"price"`
	OriginalPrice *decimal.Decimal     `json:"originalPrice"`
	Category      *string              `json:"category" binding:"omitempty,max=50"`
	Brand         *string              `json:"brand" binding:"omitempty,max=100"`
	Images        []model.ProductImage `json:"images" binding:"omitempty,dive"`
	Stock         *int                 `json:"stock" binding:"omitempty,min=0"`
	Rating        *model.ProductRating `json:"rating"`
	IsActive      *bool                `json:"isActive"`
	Tags          []string             `json:"tags"`
}

func (r ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		Category:      r.Category,
		Brand:         r.Brand,
		Images:        r.Images,
		Stock:         r.Stock,
		Rating:        r.Rating,
		IsActive:      r.IsActive,
		Tags:          r.Tags,
	}
}

var productSorts = map[string]repository.ProductSort{
	string(repository.ProductSortNewest):    repository.ProductSortNewest,
	string(repository.ProductSortPriceLow):  repository.ProductSortPriceLow,
	string(repository.ProductSortPriceHigh): repository.ProductSortPriceHigh,
	string(repository.ProductSortRating):    repository.ProductSortRating,
}

func parseDecimalQuery(c *gin.Context, name string) (*decimal.Decimal, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, name+" must be a non-negative number")
		return nil, false
	}
	return &d, true
}

// ListProducts returns the active catalog
// GET /api/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	minPrice, ok := parseDecimalQuery(c, "minPrice")
	if !ok {
		return
	}
	maxPrice, ok := parseDecimalQuery(c, "maxPrice")
	if !ok {
		return
	}

	sort := repository.ProductSortNewest
	if raw := c.Query("sort"); raw != "" {
		s, known := productSorts[raw]
		if !known {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "sort must be one of: newest, price_low, price_high, rating")
			return
		}
		sort = s
	}

	page, err := ctrl.productService.ListProducts(c.Request.Context(), service.ProductListQuery{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Category: strings.ToLower(c.Query("category")),
		Search:   c.Query("search"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     sort,
	})
	if err != nil {
		respondServiceError(c, log, err, "list products")
		return
	}

	respond(c, http.StatusOK, "", page)
}

// GetFeaturedProducts returns the best rated products
// GET /api/products/featured/list
func (ctrl *ProductController) GetFeaturedProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	products, err := ctrl.productService.GetFeaturedProducts(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		respondServiceError(c, log, err, "fetch featured products")
		return
	}

	respond(c, http.StatusOK, "", gin.H{"products": products})
}

// GetCategories
// GET /api/products/categories
func (ctrl *ProductController) GetCategories(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	categories, err := ctrl.productService.GetCategories(c.Request.Context())
	if err != nil {
		respondServiceError(c, log, err, "fetch categories")
		return
	}

	respond(c, http.StatusOK, "", gin.H{"categories": categories})
}

// GetProductByID returns product detail including stock
// GET /api/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, log, err, "fetch product")
		return
	}

	respond(c, http.StatusOK, "", gin.H{"product": product})
}

// CreateProduct (admin)
// POST /api/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}

	fields := map[string]string{}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		fields["name"] = "name is required"
	}
	if req.Price == nil {
		fields["price"] = "price is required"
	}
	if req.Category == nil || strings.TrimSpace(*req.Category) == "" {
		fields["category"] = "category is required"
	}
	if len(fields) > 0 {
		apperrors.RespondWithValidationError(c, fields)
		return
	}

	product, err := ctrl.productService.CreateProduct(c.Request.Context(), req.toInput())
	if err != nil {
		respondServiceError(c, log, err, "create product")
		return
	}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
	})
	respond(c, http.StatusCreated, "Product created", gin.H{"product": product})
}

// UpdateProduct (admin)
// PUT /api/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}

	product, err := ctrl.productService.UpdateProduct(c.Request.Context(), id, req.toInput())
	if err != nil {
		respondServiceError(c, log, err, "update product")
		return
	}

	respond(c, http.StatusOK, "Product updated", gin.H{"product": product})
}

// DeleteProduct hides the product from the storefront (admin)
// DELETE /api/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, log, err, "delete product")
		return
	}

	log.Info("Product deactivated", map[string]interface{}{
		"product_id": id,
	})
	respond(c, http.StatusOK, "Product deleted", nil)
}

// GetLowStockProducts (admin)
// GET /api/products/admin/low-stock
func (ctrl *ProductController) GetLowStockProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	threshold := ctrl.lowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		threshold = queryInt(c, "threshold")
	}

	products, err := ctrl.productService.GetLowStockProducts(c.Request.Context(), threshold)
	if err != nil {
		respondServiceError(c, log, err, "fetch low stock products")
		return
	}

	respond(c, http.StatusOK, "", gin.H{"products": products, "threshold": threshold})
}

package controller

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/internal/app/repository"
	"github.com/batgear/batstore-backend/internal/app/service"
	"github.com/batgear/batstore-backend/internal/db"
	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductControllerTest(t *testing.T) (*gin.Engine, repository.ProductRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	ctrl := NewProductController(service.NewProductService(productRepo), 5)

	router := gin.New()
	router.GET("/products", ctrl.ListProducts)
	router.GET("/products/featured/list", ctrl.GetFeaturedProducts)
	router.GET("/products/categories", ctrl.GetCategories)
	router.GET("/products/admin/low-stock", ctrl.GetLowStockProducts)
	router.GET("/products/:id", ctrl.GetProductByID)
	router.POST("/products", ctrl.CreateProduct)
	router.PUT("/products/:id", ctrl.UpdateProduct)
	router.DELETE("/products/:id", ctrl.DeleteProduct)
	return router, productRepo
}

func seedProduct(t *testing.T, repo repository.ProductRepository, name, category, price string, stock int) *model.Product {
	p := &model.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: category,
		Stock:    stock,
		IsActive: true,
		Images:   []model.ProductImage{{URL: "https://cdn.batstore.test/" + name + ".jpg", Alt: name}},
		Tags:     []string{},
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestProductController_ListProducts(t *testing.T) {
	router, repo := setupProductControllerTest(t)
	seedProduct(t, repo, "Batarang", "gadgets", "24.99", 10)
	seedProduct(t, repo, "Grapple Gun", "gadgets", "149.99", 4)
	seedProduct(t, repo, "Cowl", "apparel", "89.00", 2)

	w := performJSON(router, http.MethodGet, "/products?category=gadgets&sort=price_high", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	products := data["products"].([]interface{})
	require.Len(t, products, 2)
	assert.Equal(t, "Grapple Gun", products[0].(map[string]interface{})["name"])

	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["totalProducts"])
	assert.Equal(t, float64(1), pagination["currentPage"])

	w = performJSON(router, http.MethodGet, "/products?minPrice=50&maxPrice=100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	products = dataOf(t, w)["products"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, "Cowl", products[0].(map[string]interface{})["name"])

	w = performJSON(router, http.MethodGet, "/products?search=grapple", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataOf(t, w)["products"], 1)
}

func TestProductController_ListProducts_BadQuery(t *testing.T) {
	router, _ := setupProductControllerTest(t)

	w := performJSON(router, http.MethodGet, "/products?sort=cheapest", nil)
	requireError(t, w, http.StatusBadRequest, apperrors.ValidationInvalidInput)

	w = performJSON(router, http.MethodGet, "/products?minPrice=abc", nil)
	requireError(t, w, http.StatusBadRequest, apperrors.ValidationInvalidFormat)

	w = performJSON(router, http.MethodGet, "/products?minPrice=100&maxPrice=10", nil)
	requireError(t, w, http.StatusBadRequest, apperrors.ValidationInvalidRange)
}

func TestProductController_GetProductByID(t *testing.T) {
	router, repo := setupProductControllerTest(t)
	belt := seedProduct(t, repo, "Utility Belt", "gear", "50.00", 7)

	w := performJSON(router, http.MethodGet, fmt.Sprintf("/products/%d", belt.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	product := dataOf(t, w)["product"].(map[string]interface{})
	assert.Equal(t, "Utility Belt", product["name"])
	assert.Equal(t, float64(7), product["stock"])
	assert.Equal(t, true, product["inStock"])
	assert.Equal(t, "50", product["price"])

	require.NoError(t, repo.Deactivate(context.Background(), belt.ID))
	w = performJSON(router, http.MethodGet, fmt.Sprintf("/products/%d", belt.ID), nil)
	requireError(t, w, http.StatusNotFound, apperrors.ProductNotFound)

	w = performJSON(router, http.MethodGet, "/products/not-a-number", nil)
	requireError(t, w, http.StatusBadRequest, apperrors.ValidationInvalidID)
}

func TestProductController_FeaturedAndCategories(t *testing.T) {
	router, repo := setupProductControllerTest(t)
	seedProduct(t, repo, "Batarang", "gadgets", "24.99", 10)
	seedProduct(t, repo, "Cowl", "apparel", "89.00", 2)

	w := performJSON(router, http.MethodGet, "/products/featured/list?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dataOf(t, w)["products"], 1)

	w = performJSON(router, http.MethodGet, "/products/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"apparel", "gadgets"}, dataOf(t, w)["categories"])

	w = performJSON(router, http.MethodGet, "/products/admin/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Len(t, data["products"], 1)
	assert.Equal(t, float64(5), data["threshold"])
}

func TestProductController_CreateUpdateDelete(t *testing.T) {
	router, _ := setupProductControllerTest(t)

	w := performJSON(router, http.MethodPost, "/products", gin.H{
		"name":        "Batsuit Replica",
		"description": "Full size",
		"price":       "499.00",
		"category":    "Apparel",
		"stock":       3,
		"images":      []gin.H{{"url": "https://cdn.batstore.test/suit.jpg", "alt": "suit"}},
		"tags":        []string{"collector"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := dataOf(t, w)["product"].(map[string]interface{})
	assert.Equal(t, "apparel", created["category"])
	assert.Equal(t, true, created["isActive"])
	id := created["id"]

	w = performJSON(router, http.MethodPut, fmt.Sprintf("/products/%v", id), gin.H{"stock": 0, "price": 450})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := dataOf(t, w)["product"].(map[string]interface{})
	assert.Equal(t, float64(0), updated["stock"])
	assert.Equal(t, false, updated["inStock"])
	assert.Equal(t, "450", updated["price"])
	assert.Equal(t, "Batsuit Replica", updated["name"])

	w = performJSON(router, http.MethodPut, fmt.Sprintf("/products/%v", id), gin.H{"stock": -1})
	requireError(t, w, http.StatusBadRequest, apperrors.ValidationInvalidInput)

	w = performJSON(router, http.MethodDelete, fmt.Sprintf("/products/%v", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(router, http.MethodGet, fmt.Sprintf("/products/%v", id), nil)
	requireError(t, w, http.StatusNotFound, apperrors.ProductNotFound)

	w = performJSON(router, http.MethodDelete, "/products/9999", nil)
	requireError(t, w, http.StatusNotFound, apperrors.ProductNotFound)
}

func TestProductController_CreateProduct_MissingFields(t *testing.T) {
	router, _ := setupProductControllerTest(t)

	w := performJSON(router, http.MethodPost, "/products", gin.H{"description": "no name"})
	body := requireError(t, w, http.StatusBadRequest, apperrors.ValidationInvalidInput)
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "category")
}

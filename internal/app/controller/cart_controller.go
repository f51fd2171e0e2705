package controller

import (
	"errors"
	"net/http"

	"github.com/batgear/batstore-backend/internal/app/service"
	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/batgear/batstore-backend/internal/middleware"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity" binding:"omitempty,min=1"`
}

type UpdateCartRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  *int `json:"quantity" binding:"required"`
}

func (ctrl *CartController) respondCartError(c *gin.Context, log *logger.Logger, err error, context string) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		apperrors.BadRequest(c, apperrors.CartInsufficientStock, stockErr.Error())
		return
	}
	respondServiceError(c, log, err, context)
}

// GetCart returns the user's server cart with totals
// GET /api/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "fetch cart")
		return
	}

	respond(c, http.StatusOK, "", cart)
}

// AddToCart
// POST /api/cart/add
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if _, err := ctrl.cartService.AddToCart(c.Request.Context(), userID, req.ProductID, req.Quantity); err != nil {
		ctrl.respondCartError(c, log, err, "add to cart")
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "fetch cart")
		return
	}
	respond(c, http.StatusOK, "Item added to cart", cart)
}

// UpdateCartItem sets a line quantity, removing it at zero
// PUT /api/cart/update
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BindingError(c, err)
		return
	}

	if err := ctrl.cartService.UpdateQuantity(c.Request.Context(), userID, req.ProductID, *req.Quantity); err != nil {
		ctrl.respondCartError(c, log, err, "update cart")
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "fetch cart")
		return
	}
	respond(c, http.StatusOK, "Cart updated", cart)
}

// RemoveFromCart
// DELETE /api/cart/remove/:productId
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	productID, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}

	if err := ctrl.cartService.RemoveFromCart(c.Request.Context(), userID, productID); err != nil {
		respondServiceError(c, log, err, "remove cart item")
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, log, err, "fetch cart")
		return
	}
	respond(c, http.StatusOK, "Item removed from cart", cart)
}

// ClearCart
// DELETE /api/cart/clear
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.cartService.ClearCart(c.Request.Context(), userID); err != nil {
		respondServiceError(c, log, err, "clear cart")
		return
	}

	log.Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
	})
	respond(c, http.StatusOK, "Cart cleared", nil)
}

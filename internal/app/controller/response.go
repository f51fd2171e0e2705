package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/batgear/batstore-backend/internal/app/service"
	apperrors "github.com/batgear/batstore-backend/internal/errors"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// SuccessResponse is the body of every successful request
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// parseIDParam reads a positive numeric path parameter and answers 400 when it
// is not one.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}

// respondServiceError maps service sentinels onto the error envelope. Anything
// unknown goes through the parser as a 500.
func respondServiceError(c *gin.Context, log *logger.Logger, err error, context string) {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		apperrors.BadRequest(c, apperrors.OrderInsufficientStock, stockErr.Error())
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case errors.Is(err, service.ErrOrderNotFound):
		apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
	case errors.Is(err, service.ErrCartItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "Item is not in the cart")
	case errors.Is(err, service.ErrContactNotFound):
		apperrors.NotFound(c, apperrors.ContactNotFound, "Message not found")
	case errors.Is(err, service.ErrUserNotFound):
		apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
	case errors.Is(err, service.ErrEmptyCart):
		apperrors.BadRequest(c, apperrors.CartEmpty, "Cart is empty")
	case errors.Is(err, service.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Quantity must be at least 1")
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		apperrors.BadRequest(c, apperrors.OrderInvalidPaymentMethod, "Payment method must be one of: credit_card, paypal, cod")
	case errors.Is(err, service.ErrInvalidPaymentStatus):
		apperrors.BadRequest(c, apperrors.OrderInvalidPaymentStatus, "Payment status must be one of: pending, paid, failed")
	case errors.Is(err, service.ErrInvalidShippingAddress):
		apperrors.BadRequest(c, apperrors.OrderInvalidAddress, "Shipping address requires name, street, city, state, zipCode and phone")
	case errors.Is(err, service.ErrInvalidOrderStatus):
		apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Status must be one of: pending, confirmed, shipped, delivered, cancelled")
	case errors.Is(err, service.ErrInvalidStatusTransition):
		apperrors.Conflict(c, apperrors.OrderInvalidTransition, "Order cannot move to that status")
	case errors.Is(err, service.ErrInvalidContactStatus):
		apperrors.BadRequest(c, apperrors.ContactInvalidStatus, "Status must be one of: pending, read, responded")
	case errors.Is(err, service.ErrInvalidProductInput):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Product fields are invalid")
	case errors.Is(err, service.ErrInvalidPriceRange):
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, err.Error())
	default:
		log.Error("Request failed", err, map[string]interface{}{
			"context": context,
		})
		info := apperrors.ParseError(err, context)
		apperrors.RespondWithError(c, http.StatusInternalServerError, info.Code, info.Message)
	}
}


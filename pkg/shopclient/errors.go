package shopclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/batgear/batstore-backend/internal/cartengine"
)

var (
	ErrInvalidConfig   = errors.New("invalid client config")
	ErrNetworkError    = errors.New("network error")
	ErrInvalidResponse = errors.New("invalid response from API")
	ErrBadRequest      = errors.New("request rejected")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrServer          = errors.New("server error")
)

// insufficientStockCode is the error code the order API uses for stock rejections
const insufficientStockCode = "ORDER_INSUFFICIENT_STOCK"

// APIError is a non-2xx API response
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap exposes the status class and, for stock rejections,
// cartengine.ErrInsufficientStock so callers can use errors.Is.
func (e *APIError) Unwrap() []error {
	var errs []error
	switch {
	case e.Status == http.StatusBadRequest:
		errs = append(errs, ErrBadRequest)
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		errs = append(errs, ErrUnauthorized)
	case e.Status == http.StatusNotFound:
		errs = append(errs, ErrNotFound)
	case e.Status == http.StatusConflict:
		errs = append(errs, ErrConflict)
	default:
		errs = append(errs, ErrServer)
	}
	if e.Code == insufficientStockCode {
		errs = append(errs, cartengine.ErrInsufficientStock)
	}
	return errs
}

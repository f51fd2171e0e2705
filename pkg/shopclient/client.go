package shopclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/batgear/batstore-backend/internal/cartengine"
	"github.com/batgear/batstore-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Client talks to the storefront API on behalf of one shopper
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new API client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GetProduct fetches product detail and converts it into the cart engine's DTO
func (c *Client) GetProduct(ctx context.Context, id uint) (*cartengine.ProductDTO, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/products/"+strconv.FormatUint(uint64(id), 10), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}

	var wrapped productEnvelope
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: product: %v", ErrInvalidResponse, err)
	}
	p := wrapped.Product

	dto := cartengine.ProductDTO{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Stock:     p.Stock,
	}
	for _, img := range p.Images {
		if img.URL != "" {
			dto.Images = append(dto.Images, img.URL)
		}
	}
	if err := validate.Struct(dto); err != nil {
		return nil, fmt.Errorf("%w: product: %v", ErrInvalidResponse, err)
	}
	if dto.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: product: negative price", ErrInvalidResponse)
	}
	return &dto, nil
}

// SubmitOrder posts a checkout request. Each call carries a fresh
// Idempotency-Key so a transport-level retry cannot double-order.
func (c *Client) SubmitOrder(ctx context.Context, req cartengine.OrderRequest) (*cartengine.OrderReceipt, error) {
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	body, err := c.doRequest(ctx, http.MethodPost, "/orders/create", req, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	var wrapped orderEnvelope
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: order: %v", ErrInvalidResponse, err)
	}
	o := wrapped.Order
	receipt := &cartengine.OrderReceipt{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Total:       o.Total,
	}
	if err := validate.Struct(receipt); err != nil {
		return nil, fmt.Errorf("%w: order: %v", ErrInvalidResponse, err)
	}
	return receipt, nil
}

// ListOrders returns one page of the shopper's orders
func (c *Client) ListOrders(ctx context.Context, page int) (*OrderList, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	path := "/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	var list OrderList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: orders: %v", ErrInvalidResponse, err)
	}
	if err := validate.Struct(list); err != nil {
		return nil, fmt.Errorf("%w: orders: %v", ErrInvalidResponse, err)
	}
	return &list, nil
}

// doRequest performs the call and returns the envelope's data field
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}, headers map[string]string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	endpoint := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("Calling storefront API", map[string]interface{}{
		"method": method,
		"url":    endpoint,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(body)}
		if decodeErr == nil {
			apiErr.Code = env.Error
			apiErr.Message = env.Message
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, decodeErr)
	}
	if !env.Success || len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidResponse)
	}
	return env.Data, nil
}

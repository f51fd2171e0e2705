package cartengine

import (
	"context"
	"fmt"

	"github.com/batgear/batstore-backend/internal/pricing"
)

// OrderSubmitter sends a checkout request to the order service.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error)
}

// BuildOrderRequest turns the current cart into a checkout submission.
func (e *Engine) BuildOrderRequest(address ShippingAddress, paymentMethod string) (OrderRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.items) == 0 {
		return OrderRequest{}, ErrEmptyCart
	}

	req := OrderRequest{
		Items:           make([]OrderLine, len(e.items)),
		ShippingAddress: address,
		Payment:         PaymentDetails{Method: paymentMethod},
	}
	for i, item := range e.items {
		req.Items[i] = OrderLine{Product: item.ProductID, Quantity: item.Quantity}
	}

	totals := pricing.Compute(e.lines())
	req.Subtotal = totals.Subtotal
	req.Tax = totals.Tax
	req.Shipping = totals.Shipping
	req.Total = totals.Total
	return req, nil
}

// Checkout submits the cart and clears it once the order is accepted. On
// failure the cart is left untouched so the shopper can retry.
func (e *Engine) Checkout(ctx context.Context, submitter OrderSubmitter, address ShippingAddress, paymentMethod string) (*OrderReceipt, error) {
	req, err := e.BuildOrderRequest(address, paymentMethod)
	if err != nil {
		return nil, err
	}

	receipt, err := submitter.SubmitOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	if err := e.ClearCart(ctx); err != nil {
		return receipt, fmt.Errorf("order %s placed but cart not cleared: %w", receipt.OrderNumber, err)
	}
	return receipt, nil
}

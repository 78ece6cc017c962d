package services

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang-storefront-backend/internal/models"

	"github.com/shopspring/decimal"
)

// CartBackend is the backend cart service as seen by the gateway. Every call
// returns the rotation token the response carried, or "".
type CartBackend interface {
	CreateCart(ctx context.Context, req CreateCartRequest) (*models.CreatedCart, error)
	ListItems(ctx context.Context, session models.CartSession) (*BackendCart, string, error)
	AddItem(ctx context.Context, session models.CartSession, req AddItemRequest) (*BackendCart, string, error)
	UpdateItem(ctx context.Context, session models.CartSession, lineID string, quantity int) (*BackendCart, string, error)
	RemoveItem(ctx context.Context, session models.CartSession, lineID string) (*BackendCart, string, error)
}

type CreateCartRequest struct {
	Channel    string `json:"channel"`
	Currency   string `json:"currency"`
	CustomerID string `json:"customerId,omitempty"`
}

type AddItemRequest struct {
	Slug      string `json:"slug"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type updateItemBody struct {
	Quantity int `json:"quantity"`
}

// BackendCart is the cart document the backend returns from item endpoints.
type BackendCart struct {
	ID       models.FlexibleID   `json:"id"`
	Items    []models.CartItem   `json:"items"`
	Subtotal decimal.NullDecimal `json:"subtotal"`
}

type HTTPCartBackend struct {
	client *upstreamClient
}

func NewHTTPCartBackend(baseURL string, timeout time.Duration) *HTTPCartBackend {
	return &HTTPCartBackend{client: newUpstreamClient(baseURL, timeout)}
}

// View converts the backend document to the browser cart. A missing subtotal
// is summed from the line totals.
func (c *BackendCart) View(fallbackID string) *models.Cart {
	id := c.ID.String()
	if id == "" {
		id = fallbackID
	}
	items := c.Items
	if items == nil {
		items = []models.CartItem{}
	}
	subtotal := decimal.Zero
	if c.Subtotal.Valid {
		subtotal = c.Subtotal.Decimal
	} else {
		for _, item := range items {
			subtotal = subtotal.Add(item.LineTotal)
		}
	}
	return &models.Cart{
		CartID:   &id,
		Items:    items,
		Subtotal: subtotal,
	}
}

func (b *HTTPCartBackend) CreateCart(ctx context.Context, req CreateCartRequest) (*models.CreatedCart, error) {
	resp, err := b.client.do(ctx, http.MethodPost, "/carts", nil, req)
	if err != nil {
		return nil, err
	}

	var result models.CreatedCart
	if err := b.client.decode(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *HTTPCartBackend) ListItems(ctx context.Context, session models.CartSession) (*BackendCart, string, error) {
	return b.cartCall(ctx, http.MethodGet, "/cart-items", session, nil)
}

func (b *HTTPCartBackend) AddItem(ctx context.Context, session models.CartSession, req AddItemRequest) (*BackendCart, string, error) {
	return b.cartCall(ctx, http.MethodPost, "/cart-items", session, req)
}

func (b *HTTPCartBackend) UpdateItem(ctx context.Context, session models.CartSession, lineID string, quantity int) (*BackendCart, string, error) {
	return b.cartCall(ctx, http.MethodPatch, "/cart-items/"+url.PathEscape(lineID), session, updateItemBody{Quantity: quantity})
}

func (b *HTTPCartBackend) RemoveItem(ctx context.Context, session models.CartSession, lineID string) (*BackendCart, string, error) {
	return b.cartCall(ctx, http.MethodDelete, "/cart-items/"+url.PathEscape(lineID), session, nil)
}

func (b *HTTPCartBackend) cartCall(ctx context.Context, method, path string, session models.CartSession, body interface{}) (*BackendCart, string, error) {
	resp, err := b.client.do(ctx, method, path, &session, body)
	if err != nil {
		rotation := ""
		if resp != nil {
			rotation = resp.Rotation
		}
		return nil, rotation, err
	}

	var result BackendCart
	if err := b.client.decode(resp, &result); err != nil {
		return nil, resp.Rotation, err
	}
	return &result, resp.Rotation, nil
}

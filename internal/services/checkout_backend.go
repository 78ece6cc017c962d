package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"golang-storefront-backend/internal/models"
)

// CheckoutBackend is the backend checkout service. Session may be nil for
// calls made outside a cart context.
type CheckoutBackend interface {
	GetCheckout(ctx context.Context, session *models.CartSession, id string) (*models.CheckoutState, error)
	SetShippingAddress(ctx context.Context, session *models.CartSession, id string, address models.Address) (*models.CheckoutState, error)
	SetPickup(ctx context.Context, session *models.CartSession, id, state, locationID string) (*models.CheckoutState, error)
	PickupLocations(ctx context.Context, session *models.CartSession, state string) ([]models.PickupLocation, error)
	PaymentMethods(ctx context.Context, session *models.CartSession) ([]models.AvailablePaymentMethod, error)
	Complete(ctx context.Context, session *models.CartSession, checkoutID, idempotencyKey string) (*models.CompletedOrder, error)
}

type HTTPCheckoutBackend struct {
	client *upstreamClient
}

func NewHTTPCheckoutBackend(baseURL string, timeout time.Duration) *HTTPCheckoutBackend {
	return &HTTPCheckoutBackend{client: newUpstreamClient(baseURL, timeout)}
}

type setShippingBody struct {
	ShippingAddress models.Address `json:"shippingAddress"`
}

type setPickupBody struct {
	PickupState      string `json:"pickupState"`
	PickupLocationID string `json:"pickupLocationId"`
}

type completeBody struct {
	CheckoutID string `json:"checkoutId"`
}

func (b *HTTPCheckoutBackend) GetCheckout(ctx context.Context, session *models.CartSession, id string) (*models.CheckoutState, error) {
	return b.checkoutCall(ctx, http.MethodGet, "/checkout/"+url.PathEscape(id), session, nil)
}

func (b *HTTPCheckoutBackend) SetShippingAddress(ctx context.Context, session *models.CartSession, id string, address models.Address) (*models.CheckoutState, error) {
	return b.checkoutCall(ctx, http.MethodPatch, "/checkout/"+url.PathEscape(id)+"/shipping", session, setShippingBody{ShippingAddress: address})
}

func (b *HTTPCheckoutBackend) SetPickup(ctx context.Context, session *models.CartSession, id, state, locationID string) (*models.CheckoutState, error) {
	return b.checkoutCall(ctx, http.MethodPatch, "/checkout/"+url.PathEscape(id)+"/pickup", session, setPickupBody{
		PickupState:      state,
		PickupLocationID: locationID,
	})
}

func (b *HTTPCheckoutBackend) PickupLocations(ctx context.Context, session *models.CartSession, state string) ([]models.PickupLocation, error) {
	resp, err := b.client.do(ctx, http.MethodGet, "/checkout/pickup?state="+url.QueryEscape(state), session, nil)
	if err != nil {
		return nil, err
	}

	var locations []models.PickupLocation
	if err := b.client.decode(resp, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// PaymentMethods accepts a bare list or one wrapped in {"paymentMethods": [...]}.
func (b *HTTPCheckoutBackend) PaymentMethods(ctx context.Context, session *models.CartSession) ([]models.AvailablePaymentMethod, error) {
	resp, err := b.client.do(ctx, http.MethodGet, "/payment-methods", session, nil)
	if err != nil {
		return nil, err
	}

	var methods []models.AvailablePaymentMethod
	if err := json.Unmarshal(resp.Body, &methods); err == nil {
		return methods, nil
	}

	var wrapped struct {
		PaymentMethods []models.AvailablePaymentMethod `json:"paymentMethods"`
	}
	if err := b.client.decode(resp, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.PaymentMethods, nil
}

func (b *HTTPCheckoutBackend) Complete(ctx context.Context, session *models.CartSession, checkoutID, idempotencyKey string) (*models.CompletedOrder, error) {
	resp, err := b.client.do(ctx, http.MethodPost, "/checkout/complete", session, completeBody{CheckoutID: checkoutID},
		header{key: "Idempotency-Key", value: idempotencyKey})
	if err != nil {
		return nil, err
	}

	var order models.CompletedOrder
	if err := b.client.decode(resp, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (b *HTTPCheckoutBackend) checkoutCall(ctx context.Context, method, path string, session *models.CartSession, body interface{}) (*models.CheckoutState, error) {
	resp, err := b.client.do(ctx, method, path, session, body)
	if err != nil {
		return nil, err
	}

	var state models.CheckoutState
	if err := b.client.decode(resp, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

package services

import "context"

// EventPublisher sends domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

const (
	EventCartCreated       = "cart.created"
	EventCartTokenRotated  = "cart.token_rotated"
	EventCheckoutCompleted = "checkout.completed"
)

type CartEvent struct {
	Type       string `json:"type"`
	CartID     string `json:"cart_id"`
	CustomerID string `json:"customer_id,omitempty"`
}

type CheckoutCompletedEvent struct {
	Type           string `json:"type"`
	CheckoutID     string `json:"checkout_id"`
	OrderID        string `json:"order_id"`
	PaymentMethod  string `json:"payment_method"`
	DeliveryMethod string `json:"delivery_method"`
	Destination    string `json:"destination"`
	Total          string `json:"total"`
}

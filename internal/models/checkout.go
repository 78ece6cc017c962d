package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

type DeliveryMethod string

const (
	DeliveryShipping DeliveryMethod = "shipping"
	DeliveryPickup   DeliveryMethod = "pickup"
)

// ParseDeliveryMethod accepts "shipping" or "pickup".
func ParseDeliveryMethod(s string) (DeliveryMethod, bool) {
	switch DeliveryMethod(strings.ToLower(strings.TrimSpace(s))) {
	case DeliveryShipping:
		return DeliveryShipping, true
	case DeliveryPickup:
		return DeliveryPickup, true
	}
	return "", false
}

type CheckoutStatus string

const (
	CheckoutDraft      CheckoutStatus = "draft"
	CheckoutSubmitting CheckoutStatus = "submitting"
	CheckoutCompleted  CheckoutStatus = "completed"
	CheckoutFailed     CheckoutStatus = "failed"
)

// Address is the shipping address entered on the checkout form.
type Address struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode,omitempty"`
}

// ReadyForShipping holds when every field needed to quote shipping is non-blank.
func (a *Address) ReadyForShipping() bool {
	if a == nil {
		return false
	}
	for _, v := range []string{a.Country, a.State, a.Address1, a.FirstName, a.LastName, a.Phone} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Signature is a deterministic hash of the fields that affect shipping cost.
func (a *Address) Signature() string {
	if a == nil {
		return ""
	}
	fields := []string{a.Country, a.State, a.City, a.PostalCode, a.Address1, a.Address2, a.FirstName, a.LastName, a.Phone}
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}

type PickupLocation struct {
	ID           FlexibleID `json:"id"`
	Name         string     `json:"name"`
	Address1     string     `json:"address1"`
	Address2     string     `json:"address2,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	State        string     `json:"state"`
}

// CheckoutState is the backend checkout resource as tracked by the orchestrator.
type CheckoutState struct {
	ID               string          `json:"id"`
	DeliveryMethod   DeliveryMethod  `json:"deliveryMethod"`
	ShippingAddress  *Address        `json:"shippingAddress,omitempty"`
	PickupState      string          `json:"pickupState,omitempty"`
	PickupLocationID string          `json:"pickupLocationId,omitempty"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	ShippingTotal    decimal.Decimal `json:"shippingTotal"`
	Total            decimal.Decimal `json:"total"`
	Status           CheckoutStatus  `json:"status"`
}

// NormalizeTotals enforces total == subtotal + shipping for shipping, and a
// zero, hidden shipping total for pickup.
func (c *CheckoutState) NormalizeTotals() {
	if c.DeliveryMethod == DeliveryPickup {
		c.ShippingTotal = decimal.Zero
		c.Total = c.Subtotal
		return
	}
	c.Total = c.Subtotal.Add(c.ShippingTotal)
}

// CompletedOrder is the backend response to checkout completion.
type CompletedOrder struct {
	OrderID     FlexibleID `json:"orderId"`
	OrderNumber string     `json:"orderNumber,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// Destination is where the storefront sends the shopper after completion.
type Destination string

const (
	DestinationPending Destination = "pending"
	DestinationSuccess Destination = "success"
)

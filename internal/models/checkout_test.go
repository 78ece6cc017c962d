package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAddress_ReadyForShipping(t *testing.T) {
	addr := &Address{FirstName: "A", LastName: "B", Phone: "1", Address1: "x", State: "CA", Country: "US"}
	assert.True(t, addr.ReadyForShipping())

	addr.Phone = "  "
	assert.False(t, addr.ReadyForShipping())

	var missing *Address
	assert.False(t, missing.ReadyForShipping())
}

func TestAddress_SignatureIgnoresEmailAndWhitespace(t *testing.T) {
	a := &Address{FirstName: "A", LastName: "B", Phone: "1", Address1: "x", State: "CA", Country: "US", Email: "a@example.com"}
	b := &Address{FirstName: " A", LastName: "B ", Phone: "1", Address1: "x", State: "CA", Country: "US"}
	assert.Equal(t, a.Signature(), b.Signature())

	b.Address1 = "y"
	assert.NotEqual(t, a.Signature(), b.Signature())
}

func TestCheckoutState_NormalizeTotals(t *testing.T) {
	c := CheckoutState{DeliveryMethod: DeliveryShipping, Subtotal: decimal.NewFromInt(50), ShippingTotal: decimal.NewFromInt(5)}
	c.NormalizeTotals()
	assert.Equal(t, "55", c.Total.String())

	c.DeliveryMethod = DeliveryPickup
	c.NormalizeTotals()
	assert.True(t, c.ShippingTotal.IsZero())
	assert.Equal(t, "50", c.Total.String())
}

func TestParseDeliveryMethod(t *testing.T) {
	m, ok := ParseDeliveryMethod(" Pickup ")
	assert.True(t, ok)
	assert.Equal(t, DeliveryPickup, m)

	_, ok = ParseDeliveryMethod("drone")
	assert.False(t, ok)
}

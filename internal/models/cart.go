package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CartSession is the triple identifying a shopper's cart to the backend.
// All three fields are present or the session does not exist.
type CartSession struct {
	CartID       string `json:"cartId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether every identifier is present.
func (s *CartSession) Complete() bool {
	return s != nil && s.CartID != "" && s.AccessToken != "" && s.RefreshToken != ""
}

// FlexibleID accepts both JSON strings and numbers. The backend is not
// consistent about which one it sends for ids.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) String() string {
	return string(f)
}

// Attributes holds the option selections of a cart line (color, size, ...).
// Values are stringified on decode.
type Attributes map[string]string

func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*a = nil
		return nil
	}
	out := make(Attributes, len(raw))
	for k, v := range raw {
		out[k] = stringify(v)
	}
	*a = out
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return decimal.NewFromFloat(t).String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(t)
		return strings.TrimSpace(string(b))
	}
}

// NestedProduct is the product reference some backend versions embed in a line.
type NestedProduct struct {
	ID   FlexibleID `json:"id"`
	Slug string     `json:"slug,omitempty"`
}

// CartItem is one line of a cart. Its identity for matching is
// (variant or product, attributes), not ID.
type CartItem struct {
	ID         FlexibleID      `json:"id"`
	ProductID  FlexibleID      `json:"productId,omitempty"`
	VariantID  FlexibleID      `json:"variantId,omitempty"`
	Product    *NestedProduct  `json:"product,omitempty"`
	Slug       string          `json:"slug,omitempty"`
	Name       string          `json:"name,omitempty"`
	Attributes Attributes      `json:"attributes,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	LineTotal  decimal.Decimal `json:"lineTotal"`
}

// EffectiveID is the identity a mutation target is compared against.
func (i CartItem) EffectiveID() string {
	if i.VariantID != "" {
		return i.VariantID.String()
	}
	if i.ProductID != "" {
		return i.ProductID.String()
	}
	if i.Product != nil && i.Product.ID != "" {
		return i.Product.ID.String()
	}
	return i.ID.String()
}

// Cart is the browser-facing view of the backend cart record.
// CartID is nil when the client has no session yet.
type Cart struct {
	CartID   *string         `json:"cartId"`
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// EmptyCart is returned to guests that never touched a cart.
func EmptyCart() *Cart {
	return &Cart{
		CartID:   nil,
		Items:    []CartItem{},
		Subtotal: decimal.Zero,
	}
}

// CreatedCart is the backend response to cart creation.
type CreatedCart struct {
	ID                FlexibleID `json:"id"`
	GuestToken        string     `json:"guestToken"`
	GuestRefreshToken string     `json:"guestRefreshToken"`
}

// Session converts the creation response to a session triple.
func (c CreatedCart) Session() CartSession {
	return CartSession{
		CartID:       c.ID.String(),
		AccessToken:  c.GuestToken,
		RefreshToken: c.GuestRefreshToken,
	}
}

package models

import (
	"encoding/json"
	"errors"
	"strings"
)

type PaymentKind string

const (
	PaymentNone    PaymentKind = ""
	PaymentBank    PaymentKind = "bank"
	PaymentCash    PaymentKind = "cash"
	PaymentGateway PaymentKind = "gateway"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// PaymentMethod is the selected way to pay. Gateway carries its provider.
// The zero value means nothing is selected.
type PaymentMethod struct {
	Kind     PaymentKind
	Provider string
}

func Bank() PaymentMethod { return PaymentMethod{Kind: PaymentBank} }

func Cash() PaymentMethod { return PaymentMethod{Kind: PaymentCash} }

func Gateway(provider string) PaymentMethod {
	return PaymentMethod{Kind: PaymentGateway, Provider: provider}
}

// ParsePaymentMethod reads "bank", "cash" or "gateway:<provider>".
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch {
	case s == string(PaymentBank):
		return Bank(), nil
	case s == string(PaymentCash):
		return Cash(), nil
	case strings.HasPrefix(s, "gateway:"):
		provider := strings.TrimPrefix(s, "gateway:")
		if provider == "" {
			return PaymentMethod{}, ErrInvalidPaymentMethod
		}
		return Gateway(provider), nil
	}
	return PaymentMethod{}, ErrInvalidPaymentMethod
}

// Valid reports whether the method is one of bank, cash or a gateway with a provider.
func (p PaymentMethod) Valid() bool {
	switch p.Kind {
	case PaymentBank, PaymentCash:
		return p.Provider == ""
	case PaymentGateway:
		return p.Provider != ""
	}
	return false
}

// DefersSettlement is true for methods where the order waits for the money
// to arrive out of band.
func (p PaymentMethod) DefersSettlement() bool {
	return p.Kind == PaymentBank
}

func (p PaymentMethod) String() string {
	if p.Kind == PaymentGateway {
		return "gateway:" + p.Provider
	}
	return string(p.Kind)
}

func (p PaymentMethod) MarshalJSON() ([]byte, error) {
	if p.Kind == PaymentNone {
		return []byte("null"), nil
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON keeps unparseable values as an invalid selection instead of
// failing the whole checkout payload.
func (p *PaymentMethod) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*p = PaymentMethod{}
		return nil
	}
	parsed, err := ParsePaymentMethod(*s)
	if err != nil {
		*p = PaymentMethod{}
		return nil
	}
	*p = parsed
	return nil
}

// AvailablePaymentMethod is one entry of the backend payment-methods list.
type AvailablePaymentMethod struct {
	Method   string `json:"method"` // gateway, bank_transfer, cash
	Provider string `json:"provider,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Selection converts a backend entry into a selectable method.
func (a AvailablePaymentMethod) Selection() (PaymentMethod, bool) {
	switch a.Method {
	case "gateway":
		if a.Provider == "" {
			return PaymentMethod{}, false
		}
		return Gateway(a.Provider), true
	case "bank_transfer", "bank":
		return Bank(), true
	case "cash":
		return Cash(), true
	}
	return PaymentMethod{}, false
}

// DefaultPaymentMethod picks the first gateway, else bank, else cash.
func DefaultPaymentMethod(available []AvailablePaymentMethod) (PaymentMethod, bool) {
	var bank, cash bool
	for _, a := range available {
		sel, ok := a.Selection()
		if !ok {
			continue
		}
		switch sel.Kind {
		case PaymentGateway:
			return sel, true
		case PaymentBank:
			bank = true
		case PaymentCash:
			cash = true
		}
	}
	if bank {
		return Bank(), true
	}
	if cash {
		return Cash(), true
	}
	return PaymentMethod{}, false
}

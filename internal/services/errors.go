package services

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindMissingSlug        ErrorKind = "missing_slug"
	KindValidation         ErrorKind = "validation"
	KindCartCreationFailed ErrorKind = "cart_creation_failed"
	KindNoCartSession      ErrorKind = "no_cart_session"
	KindItemNotFound       ErrorKind = "item_not_found"
	KindUpstream           ErrorKind = "upstream"
)

// GatewayError is the single error shape the cart gateway surfaces.
// Upstream envelopes are normalized into it at the edge.
type GatewayError struct {
	Kind    ErrorKind
	Status  int
	Message string
	// RotatedToken is set when the failed response still carried a rotation.
	RotatedToken string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
}

// Is matches on kind so callers can use errors.Is(err, ErrItemNotFound).
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrMissingSlug        = &GatewayError{Kind: KindMissingSlug, Status: http.StatusBadRequest, Message: "slug is required"}
	ErrCartCreationFailed = &GatewayError{Kind: KindCartCreationFailed, Status: http.StatusInternalServerError, Message: "failed to create cart"}
	ErrNoCartSession      = &GatewayError{Kind: KindNoCartSession, Status: http.StatusUnauthorized, Message: "No cart session"}
	ErrItemNotFound       = &GatewayError{Kind: KindItemNotFound, Status: http.StatusNotFound, Message: "item not found"}
	ErrUpstream           = &GatewayError{Kind: KindUpstream}
)

func validationError(message string) *GatewayError {
	return &GatewayError{Kind: KindValidation, Status: http.StatusBadRequest, Message: message}
}

func upstreamError(status int, message string) *GatewayError {
	return &GatewayError{Kind: KindUpstream, Status: status, Message: message}
}

// Checkout errors
var (
	ErrPickupLocationRequired = errors.New("a pickup location must be selected")
	ErrUnknownPickupLocation  = errors.New("pickup location is not offered for the selected state")
	ErrPickupStateRequired    = errors.New("a pickup state must be selected first")
	ErrCheckoutBusy           = errors.New("checkout is still updating")
	ErrAlreadySubmitted       = errors.New("checkout has already been submitted")
	ErrWrongDeliveryMethod    = errors.New("action does not apply to the current delivery method")
	ErrCheckoutNotLoaded      = errors.New("checkout is not loaded")
)

// CompletionError wraps a failed completion call. It is never retried.
type CompletionError struct {
	CheckoutID string
	Err        error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("failed to complete checkout %s: %v", e.CheckoutID, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

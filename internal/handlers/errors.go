package handlers

import (
	"errors"
	"net/http"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrAlreadySubmitted):
		return http.StatusConflict, "already_submitted"
	case errors.Is(err, services.ErrCheckoutBusy):
		return http.StatusConflict, "checkout_busy"
	case errors.Is(err, services.ErrCheckoutNotLoaded):
		return http.StatusConflict, "checkout_not_loaded"
	case errors.Is(err, services.ErrPickupLocationRequired),
		errors.Is(err, services.ErrUnknownPickupLocation),
		errors.Is(err, services.ErrPickupStateRequired),
		errors.Is(err, services.ErrWrongDeliveryMethod),
		errors.Is(err, models.ErrInvalidPaymentMethod):
		return http.StatusBadRequest, "invalid_checkout_action"
	}

	var gwErr *services.GatewayError
	if errors.As(err, &gwErr) {
		status := gwErr.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		return status, string(gwErr.Kind)
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	var gwErr *services.GatewayError
	if errors.As(err, &gwErr) {
		message = gwErr.Message
	}
	c.JSON(status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

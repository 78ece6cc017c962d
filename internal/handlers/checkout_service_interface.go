package handlers

import (
	"context"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/services"
)

// CheckoutServiceInterface hands out the orchestrator of a checkout
type CheckoutServiceInterface interface {
	Get(ctx context.Context, id string, session *models.CartSession) (*services.CheckoutOrchestrator, error)
}

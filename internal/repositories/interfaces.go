package repositories

import (
	"context"

	"golang-storefront-backend/internal/models"
)

// CompletionRepository interface for PostgreSQL checkout completion records
type CompletionRepository interface {
	Create(ctx context.Context, completion *models.CheckoutCompletion) error
	// FindByCheckoutID returns nil, nil when the checkout was never completed.
	FindByCheckoutID(ctx context.Context, checkoutID string) (*models.CheckoutCompletion, error)
}

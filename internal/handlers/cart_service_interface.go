package handlers

import (
	"context"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/services"
)

// CartServiceInterface defines the contract for the cart gateway
type CartServiceInterface interface {
	ListItems(ctx context.Context, store services.SessionStore) (*models.Cart, error)
	AddItem(ctx context.Context, store services.SessionStore, caller services.Caller, req services.AddToCartRequest) (*services.AddToCartResult, error)
	UpdateItem(ctx context.Context, store services.SessionStore, target string, quantity int, attributes map[string]string) (*models.Cart, error)
	RemoveItem(ctx context.Context, store services.SessionStore, target string, attributes map[string]string) (*models.Cart, error)
	ClearSession(store services.SessionStore)
}

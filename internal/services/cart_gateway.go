package services

import (
	"context"
	"errors"
	"strings"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/pkg/logging"
	"golang-storefront-backend/pkg/metrics"

	"github.com/sirupsen/logrus"
)

// CartGateway forwards cart mutations to the backend on behalf of one client
// session, creating the session lazily and relaying token rotations.
type CartGateway struct {
	backend  CartBackend
	sessions *SessionManager
	events   EventPublisher
	log      *logrus.Logger
}

func NewCartGateway(backend CartBackend, sessions *SessionManager, events EventPublisher) *CartGateway {
	return &CartGateway{
		backend:  backend,
		sessions: sessions,
		events:   events,
		log:      logging.Logger(),
	}
}

// Caller identifies who is mutating the cart.
type Caller struct {
	// ClientKey groups requests from one browser for the cart-creation guard.
	ClientKey  string
	CustomerID string
}

type AddToCartRequest struct {
	Slug      string `json:"slug"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type AddToCartResult struct {
	Cart *models.Cart     `json:"cart"`
	Item *models.CartItem `json:"item"`
}

// ListItems returns the current cart. Without a session it returns the empty
// cart and never creates one.
func (g *CartGateway) ListItems(ctx context.Context, store SessionStore) (*models.Cart, error) {
	session := store.Read()
	if session == nil {
		metrics.CartOperations.WithLabelValues("list", "empty").Inc()
		return models.EmptyCart(), nil
	}

	seq := store.Issue()
	cart, rotation, err := g.backend.ListItems(ctx, *session)
	g.applyRotation(ctx, store, seq, rotation)
	if err != nil {
		g.fail("list", err)
		return nil, err
	}

	metrics.CartOperations.WithLabelValues("list", "ok").Inc()
	return cart.View(session.CartID), nil
}

func (g *CartGateway) AddItem(ctx context.Context, store SessionStore, caller Caller, req AddToCartRequest) (*AddToCartResult, error) {
	req.Slug = strings.TrimSpace(req.Slug)
	req.VariantID = strings.TrimSpace(req.VariantID)
	if req.Slug == "" {
		return nil, ErrMissingSlug
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return nil, validationError("quantity must be at least 1")
	}

	session, err := g.sessions.Ensure(ctx, store, caller.ClientKey, caller.CustomerID)
	if err != nil {
		g.fail("add", err)
		return nil, err
	}

	seq := store.Issue()
	cart, rotation, err := g.backend.AddItem(ctx, session, AddItemRequest{
		Slug:      req.Slug,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	g.applyRotation(ctx, store, seq, rotation)
	if err != nil {
		g.fail("add", err)
		return nil, err
	}

	view := cart.View(session.CartID)
	metrics.CartOperations.WithLabelValues("add", "ok").Inc()
	return &AddToCartResult{
		Cart: view,
		Item: addedLine(view.Items, req),
	}, nil
}

// UpdateItem sets the quantity of the line matching target and attributes.
func (g *CartGateway) UpdateItem(ctx context.Context, store SessionStore, target string, quantity int, attributes map[string]string) (*models.Cart, error) {
	if quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}

	session, lineID, err := g.resolveLine(ctx, store, target, attributes)
	if err != nil {
		g.fail("update", err)
		return nil, err
	}

	seq := store.Issue()
	cart, rotation, err := g.backend.UpdateItem(ctx, *session, lineID, quantity)
	g.applyRotation(ctx, store, seq, rotation)
	if err != nil {
		g.fail("update", err)
		return nil, err
	}

	metrics.CartOperations.WithLabelValues("update", "ok").Inc()
	return cart.View(session.CartID), nil
}

func (g *CartGateway) RemoveItem(ctx context.Context, store SessionStore, target string, attributes map[string]string) (*models.Cart, error) {
	session, lineID, err := g.resolveLine(ctx, store, target, attributes)
	if err != nil {
		g.fail("remove", err)
		return nil, err
	}

	seq := store.Issue()
	cart, rotation, err := g.backend.RemoveItem(ctx, *session, lineID)
	g.applyRotation(ctx, store, seq, rotation)
	if err != nil {
		g.fail("remove", err)
		return nil, err
	}

	metrics.CartOperations.WithLabelValues("remove", "ok").Inc()
	return cart.View(session.CartID), nil
}

// ClearSession forgets the client's cart, e.g. once an authenticated
// customer has claimed it.
func (g *CartGateway) ClearSession(store SessionStore) {
	store.Clear()
	metrics.CartOperations.WithLabelValues("clear_session", "ok").Inc()
}

func (g *CartGateway) resolveLine(ctx context.Context, store SessionStore, target string, attributes map[string]string) (*models.CartSession, string, error) {
	session := store.Read()
	if session == nil {
		return nil, "", ErrNoCartSession
	}

	target = strings.TrimSpace(target)
	if target == "" {
		return nil, "", validationError("item id is required")
	}

	seq := store.Issue()
	cart, rotation, err := g.backend.ListItems(ctx, *session)
	g.applyRotation(ctx, store, seq, rotation)
	if err != nil {
		return nil, "", err
	}

	lineID, ok := FindCartLine(cart.Items, target, attributes)
	if !ok {
		return nil, "", ErrItemNotFound
	}

	// The list call may have rotated the token.
	return store.Read(), lineID, nil
}

func (g *CartGateway) applyRotation(ctx context.Context, store SessionStore, seq uint64, token string) {
	if token == "" {
		return
	}
	if !store.ApplyRotation(seq, token) {
		return
	}
	session := store.Read()
	if session == nil {
		return
	}
	g.log.WithField("cart_id", session.CartID).Info("cart token rotated")
	if g.events != nil {
		if err := g.events.Publish(ctx, session.CartID, CartEvent{Type: EventCartTokenRotated, CartID: session.CartID}); err != nil {
			g.log.WithError(err).Warn("failed to publish rotation event")
		}
	}
}

func (g *CartGateway) fail(operation string, err error) {
	var gwErr *GatewayError
	kind := "error"
	if errors.As(err, &gwErr) {
		kind = string(gwErr.Kind)
	}
	metrics.CartOperations.WithLabelValues(operation, kind).Inc()
	if kind == string(KindUpstream) || kind == string(KindCartCreationFailed) || kind == "error" {
		g.log.WithError(err).WithField("operation", operation).Warn("cart operation failed")
	}
}

// addedLine finds the line the add produced: by variant when one was given,
// else by slug.
func addedLine(items []models.CartItem, req AddToCartRequest) *models.CartItem {
	for i := range items {
		if req.VariantID != "" {
			if items[i].EffectiveID() == req.VariantID {
				return &items[i]
			}
			continue
		}
		if items[i].Slug == req.Slug || (items[i].Product != nil && items[i].Product.Slug == req.Slug) {
			return &items[i]
		}
	}
	return nil
}

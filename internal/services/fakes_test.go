package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang-storefront-backend/internal/models"

	"github.com/shopspring/decimal"
)

// fakeCartServer is an in-memory cart backend speaking the same HTTP API as
// the real one. It rejects requests carrying an outdated access token.
type fakeCartServer struct {
	mu       sync.Mutex
	created  int
	carts    map[string][]models.CartItem
	tokens   map[string]string
	lineSeq  int
	rotateTo string
	requests []string
	server   *httptest.Server
}

func newFakeCartServer(t *testing.T) *fakeCartServer {
	f := &fakeCartServer{
		carts:  make(map[string][]models.CartItem),
		tokens: make(map[string]string),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCartServer) backend() *HTTPCartBackend {
	return NewHTTPCartBackend(f.server.URL, 0)
}

// rotateNext makes the next authenticated response carry a new access token.
func (f *fakeCartServer) rotateNext(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotateTo = token
}

func (f *fakeCartServer) setLines(cartID string, lines []models.CartItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[cartID] = lines
}

func (f *fakeCartServer) lines(cartID string) []models.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CartItem(nil), f.carts[cartID]...)
}

func (f *fakeCartServer) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

func (f *fakeCartServer) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeCartServer) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if r.Method == http.MethodPost && r.URL.Path == "/carts" {
		f.created++
		id := fmt.Sprintf("cart-%d", f.created)
		token := fmt.Sprintf("tok-%d", f.created)
		f.tokens[id] = token
		f.carts[id] = nil
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"id":                id,
			"guestToken":        token,
			"guestRefreshToken": "refresh-" + id,
		})
		return
	}

	cartID := r.Header.Get(cartIDHeader)
	want, ok := f.tokens[cartID]
	if !ok || r.Header.Get("Authorization") != "Bearer "+want {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"error": map[string]string{"message": "invalid cart token"},
		})
		return
	}
	if f.rotateTo != "" {
		f.tokens[cartID] = f.rotateTo
		w.Header().Set(RotationHeader, f.rotateTo)
		f.rotateTo = ""
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/cart-items":
		f.writeCart(w, cartID)

	case r.Method == http.MethodPost && r.URL.Path == "/cart-items":
		var req AddItemRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Slug == "missing" {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"response": map[string]interface{}{
					"data": map[string]interface{}{
						"error": map[string]string{"message": "product not found"},
					},
				},
			})
			return
		}
		f.addLine(cartID, req)
		f.writeCart(w, cartID)

	case strings.HasPrefix(r.URL.Path, "/cart-items/"):
		lineID := strings.TrimPrefix(r.URL.Path, "/cart-items/")
		idx := -1
		for i, line := range f.carts[cartID] {
			if line.ID.String() == lineID {
				idx = i
			}
		}
		if idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "line not found"})
			return
		}
		if r.Method == http.MethodDelete {
			f.carts[cartID] = append(f.carts[cartID][:idx], f.carts[cartID][idx+1:]...)
		} else {
			var body updateItemBody
			json.NewDecoder(r.Body).Decode(&body)
			line := &f.carts[cartID][idx]
			line.Quantity = body.Quantity
			line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(body.Quantity)))
		}
		f.writeCart(w, cartID)

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no route"})
	}
}

func (f *fakeCartServer) addLine(cartID string, req AddItemRequest) {
	price := decimal.NewFromInt(10)
	for i, line := range f.carts[cartID] {
		if line.Slug == req.Slug && line.VariantID.String() == req.VariantID {
			f.carts[cartID][i].Quantity += req.Quantity
			f.carts[cartID][i].LineTotal = price.Mul(decimal.NewFromInt(int64(f.carts[cartID][i].Quantity)))
			return
		}
	}
	f.lineSeq++
	f.carts[cartID] = append(f.carts[cartID], models.CartItem{
		ID:        models.FlexibleID(fmt.Sprintf("line-%d", f.lineSeq)),
		ProductID: models.FlexibleID("prod-" + req.Slug),
		VariantID: models.FlexibleID(req.VariantID),
		Slug:      req.Slug,
		Quantity:  req.Quantity,
		UnitPrice: price,
		LineTotal: price.Mul(decimal.NewFromInt(int64(req.Quantity))),
	})
}

func (f *fakeCartServer) writeCart(w http.ResponseWriter, cartID string) {
	items := f.carts[cartID]
	if items == nil {
		items = []models.CartItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    cartID,
		"items": items,
	})
}

// recordingPublisher keeps published events in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *recordingPublisher) last() interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

// fakeCheckoutBackend records calls and answers from its fields.
type fakeCheckoutBackend struct {
	mu sync.Mutex

	checkout  models.CheckoutState
	methods   []models.AvailablePaymentMethod
	locations map[string][]models.PickupLocation
	shipping  decimal.Decimal

	shippingErr error
	pickupErr   error
	completeErr error

	shippingCalls []models.Address
	pickupCalls   int
	locationCalls int
	completeCalls int
	getCalls      int
}

func newFakeCheckoutBackend() *fakeCheckoutBackend {
	return &fakeCheckoutBackend{
		checkout: models.CheckoutState{
			ID:             "co-1",
			DeliveryMethod: models.DeliveryShipping,
			Subtotal:       decimal.NewFromInt(100),
			Status:         models.CheckoutDraft,
		},
		methods: []models.AvailablePaymentMethod{
			{Method: "bank_transfer"},
			{Method: "gateway", Provider: "stripe"},
		},
		locations: map[string][]models.PickupLocation{
			"CA": {{ID: "loc-1", Name: "Downtown"}, {ID: "loc-2", Name: "Harbor"}},
			"NY": {{ID: "loc-9", Name: "Midtown"}},
		},
		shipping: decimal.NewFromInt(15),
	}
}

func (b *fakeCheckoutBackend) GetCheckout(_ context.Context, _ *models.CartSession, id string) (*models.CheckoutState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getCalls++
	c := b.checkout
	c.ID = id
	return &c, nil
}

func (b *fakeCheckoutBackend) SetShippingAddress(_ context.Context, _ *models.CartSession, _ string, address models.Address) (*models.CheckoutState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shippingCalls = append(b.shippingCalls, address)
	if b.shippingErr != nil {
		return nil, b.shippingErr
	}
	c := b.checkout
	c.ShippingAddress = &address
	c.ShippingTotal = b.shipping
	c.Total = c.Subtotal.Add(b.shipping)
	return &c, nil
}

func (b *fakeCheckoutBackend) SetPickup(_ context.Context, _ *models.CartSession, _ string, state, locationID string) (*models.CheckoutState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pickupCalls++
	if b.pickupErr != nil {
		return nil, b.pickupErr
	}
	c := b.checkout
	c.DeliveryMethod = models.DeliveryPickup
	c.PickupState = state
	c.PickupLocationID = locationID
	return &c, nil
}

func (b *fakeCheckoutBackend) PickupLocations(_ context.Context, _ *models.CartSession, state string) ([]models.PickupLocation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locationCalls++
	return b.locations[state], nil
}

func (b *fakeCheckoutBackend) PaymentMethods(context.Context, *models.CartSession) ([]models.AvailablePaymentMethod, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.methods, nil
}

func (b *fakeCheckoutBackend) Complete(_ context.Context, _ *models.CartSession, _, _ string) (*models.CompletedOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.completeCalls++
	if b.completeErr != nil {
		return nil, b.completeErr
	}
	return &models.CompletedOrder{OrderID: "order-77", OrderNumber: "#1077"}, nil
}

func (b *fakeCheckoutBackend) shippingCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.shippingCalls)
}

func (b *fakeCheckoutBackend) lastShippingAddress() models.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shippingCalls[len(b.shippingCalls)-1]
}

func (b *fakeCheckoutBackend) completeCallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.completeCalls
}

// memoryLedger is a CompletionLedger backed by a map.
type memoryLedger struct {
	mu      sync.Mutex
	records map[string]*models.CheckoutCompletion
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[string]*models.CheckoutCompletion)}
}

func (l *memoryLedger) FindByCheckoutID(_ context.Context, checkoutID string) (*models.CheckoutCompletion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records[checkoutID], nil
}

func (l *memoryLedger) Create(_ context.Context, completion *models.CheckoutCompletion) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[completion.CheckoutID]; ok {
		return fmt.Errorf("duplicate completion for %s", completion.CheckoutID)
	}
	l.records[completion.CheckoutID] = completion
	return nil
}

func shippableAddress(line1 string) models.Address {
	return models.Address{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "555-0100",
		Address1:  line1,
		City:      "Springfield",
		State:     "CA",
		Country:   "US",
	}
}

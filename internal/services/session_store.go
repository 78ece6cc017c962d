package services

import (
	"context"
	"sync"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/pkg/logging"
	"golang-storefront-backend/pkg/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// SessionStore persists the cart session of one client. Read never touches
// the network. Issue hands out a sequence number for each outbound request so
// that a rotation answering an older request cannot overwrite a newer one.
type SessionStore interface {
	Read() *models.CartSession
	Persist(session models.CartSession)
	ApplyRotation(issued uint64, accessToken string) bool
	Issue() uint64
	Clear()
}

// MemorySessionStore keeps the session in memory. The cookie store builds on
// it; tests use it directly.
type MemorySessionStore struct {
	mu          sync.Mutex
	session     *models.CartSession
	nextSeq     uint64
	rotationSeq uint64
}

func NewMemorySessionStore(initial *models.CartSession) *MemorySessionStore {
	s := &MemorySessionStore{}
	if initial.Complete() {
		cp := *initial
		s.session = &cp
	}
	return s
}

func (s *MemorySessionStore) Read() *models.CartSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Complete() {
		return nil
	}
	cp := *s.session
	return &cp
}

func (s *MemorySessionStore) Persist(session models.CartSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := session
	s.session = &cp
}

func (s *MemorySessionStore) Issue() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// ApplyRotation replaces the access token unless a rotation from a later
// request was already applied. It returns whether the token changed.
func (s *MemorySessionStore) ApplyRotation(issued uint64, accessToken string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if accessToken == "" || s.session == nil {
		return false
	}
	if issued < s.rotationSeq {
		metrics.TokenRotations.WithLabelValues("stale").Inc()
		return false
	}
	s.rotationSeq = issued
	if s.session.AccessToken == accessToken {
		return false
	}
	s.session.AccessToken = accessToken
	metrics.TokenRotations.WithLabelValues("applied").Inc()
	return true
}

func (s *MemorySessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// SessionManager owns lazy cart creation.
type SessionManager struct {
	backend  CartBackend
	channel  string
	currency string
	events   EventPublisher
	inflight singleflight.Group
	log      *logrus.Logger
}

func NewSessionManager(backend CartBackend, channel, currency string, events EventPublisher) *SessionManager {
	return &SessionManager{
		backend:  backend,
		channel:  channel,
		currency: currency,
		events:   events,
		log:      logging.Logger(),
	}
}

// Ensure returns the stored session or creates a backend cart and persists
// it. Concurrent first requests from one browser and customer collapse into
// a single creation. Requests with no clientKey may still race, creating a
// spare backend cart.
func (m *SessionManager) Ensure(ctx context.Context, store SessionStore, clientKey, customerID string) (models.CartSession, error) {
	if existing := store.Read(); existing != nil {
		return *existing, nil
	}

	create := func() (interface{}, error) {
		created, err := m.backend.CreateCart(ctx, CreateCartRequest{
			Channel:    m.channel,
			Currency:   m.currency,
			CustomerID: customerID,
		})
		if err != nil {
			return nil, err
		}
		session := created.Session()
		if !session.Complete() {
			return nil, validationError("backend returned an incomplete cart session")
		}
		metrics.CartsCreated.Inc()
		m.log.WithFields(logrus.Fields{"cart_id": session.CartID, "customer": customerID != ""}).Info("cart created")
		m.publish(ctx, session.CartID, CartEvent{Type: EventCartCreated, CartID: session.CartID, CustomerID: customerID})
		return session, nil
	}

	var (
		v   interface{}
		err error
	)
	if clientKey == "" {
		v, err = create()
	} else {
		v, err, _ = m.inflight.Do(flightKey(clientKey, customerID), create)
	}
	if err != nil {
		m.log.WithError(err).Warn("cart creation failed")
		return models.CartSession{}, &GatewayError{
			Kind:    KindCartCreationFailed,
			Status:  ErrCartCreationFailed.Status,
			Message: ErrCartCreationFailed.Message + ": " + err.Error(),
		}
	}

	session := v.(models.CartSession)
	store.Persist(session)
	return session, nil
}

// flightKey scopes a creation flight to one browser and one customer, so a
// flight's cart is never handed to a different customer.
func flightKey(clientKey, customerID string) string {
	return clientKey + "\x00" + customerID
}

func (m *SessionManager) publish(ctx context.Context, key string, event interface{}) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, key, event); err != nil {
		m.log.WithError(err).Warn("failed to publish cart event")
	}
}

package services

import (
	"context"
	"sync"
	"time"

	"golang-storefront-backend/internal/models"
)

// CheckoutRegistry keeps one orchestrator per checkout id.
type CheckoutRegistry struct {
	mu            sync.Mutex
	orchestrators map[string]*CheckoutOrchestrator

	backend CheckoutBackend
	pickups *PickupLocationCache
	ledger  CompletionLedger
	events  EventPublisher
	cfg     OrchestratorConfig
}

func NewCheckoutRegistry(backend CheckoutBackend, pickups *PickupLocationCache, ledger CompletionLedger, events EventPublisher, cfg OrchestratorConfig) *CheckoutRegistry {
	return &CheckoutRegistry{
		orchestrators: make(map[string]*CheckoutOrchestrator),
		backend:       backend,
		pickups:       pickups,
		ledger:        ledger,
		events:        events,
		cfg:           cfg,
	}
}

// Get returns the orchestrator for id, creating and loading it on first use.
// The load runs outside the registry lock.
func (r *CheckoutRegistry) Get(ctx context.Context, id string, session *models.CartSession) (*CheckoutOrchestrator, error) {
	r.mu.Lock()
	o, ok := r.orchestrators[id]
	r.mu.Unlock()
	if ok {
		o.UseSession(session)
		return o, nil
	}

	o = NewCheckoutOrchestrator(id, r.backend, r.pickups, r.ledger, r.events, r.cfg)
	o.UseSession(session)
	if err := o.Load(ctx); err != nil {
		o.Close()
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.orchestrators[id]; ok {
		// another request loaded it first
		o.Close()
		existing.UseSession(session)
		return existing, nil
	}
	r.orchestrators[id] = o
	return o, nil
}

// Sweep drops orchestrators unused for longer than idle and returns how many
// were removed. Terminal orchestrators are kept until then so a repeated
// completion is still rejected.
func (r *CheckoutRegistry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	var stale []*CheckoutOrchestrator

	r.mu.Lock()
	for id, o := range r.orchestrators {
		if o.IdleSince().Before(cutoff) {
			stale = append(stale, o)
			delete(r.orchestrators, id)
		}
	}
	r.mu.Unlock()

	for _, o := range stale {
		o.Close()
	}
	return len(stale)
}

func (r *CheckoutRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orchestrators)
}

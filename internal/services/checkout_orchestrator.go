package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/pkg/logging"
	"golang-storefront-backend/pkg/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CompletionLedger remembers which checkouts were completed.
type CompletionLedger interface {
	FindByCheckoutID(ctx context.Context, checkoutID string) (*models.CheckoutCompletion, error)
	Create(ctx context.Context, completion *models.CheckoutCompletion) error
}

type OrchestratorConfig struct {
	DebounceDelay time.Duration
	// CallTimeout bounds backend calls started by the debouncer, which have
	// no request context.
	CallTimeout time.Duration
}

// CheckoutOrchestrator drives one CheckoutMachine. Events are applied one at
// a time; commands run outside the lock and feed their results back as events.
type CheckoutOrchestrator struct {
	mu      sync.Mutex
	machine CheckoutMachine
	session *models.CartSession
	touched time.Time

	backend   CheckoutBackend
	pickups   *PickupLocationCache
	ledger    CompletionLedger
	events    EventPublisher
	debouncer *Debouncer
	timeout   time.Duration
	log       *logrus.Entry
}

func NewCheckoutOrchestrator(
	checkoutID string,
	backend CheckoutBackend,
	pickups *PickupLocationCache,
	ledger CompletionLedger,
	events EventPublisher,
	cfg OrchestratorConfig,
) *CheckoutOrchestrator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	o := &CheckoutOrchestrator{
		machine: NewCheckoutMachine(checkoutID),
		touched: time.Now(),
		backend: backend,
		pickups: pickups,
		ledger:  ledger,
		events:  events,
		timeout: cfg.CallTimeout,
		log:     logging.Logger().WithField("checkout_id", checkoutID),
	}
	o.debouncer = NewDebouncer(cfg.DebounceDelay, o.onAddressSettled)
	return o
}

// CheckoutView is what the storefront renders.
type CheckoutView struct {
	State                    CheckoutPhase                   `json:"state"`
	Checkout                 models.CheckoutState            `json:"checkout"`
	Totals                   CheckoutTotals                  `json:"totals"`
	IsCalculatingShipping    bool                            `json:"isCalculatingShipping"`
	IsSettingPickup          bool                            `json:"isSettingPickup"`
	IsLoadingPickupLocations bool                            `json:"isLoadingPickupLocations"`
	PaymentMethods           []models.AvailablePaymentMethod `json:"paymentMethods"`
	PickupLocations          []models.PickupLocation         `json:"pickupLocations"`
	CanSubmit                bool                            `json:"canSubmit"`
	LastError                string                          `json:"lastError,omitempty"`
	OrderID                  string                          `json:"orderId,omitempty"`
	Destination              models.Destination              `json:"destination,omitempty"`
}

// CheckoutTotals hides the shipping line for pickup.
type CheckoutTotals struct {
	Subtotal      decimal.Decimal  `json:"subtotal"`
	ShippingTotal *decimal.Decimal `json:"shippingTotal,omitempty"`
	Total         decimal.Decimal  `json:"total"`
}

func viewOf(m CheckoutMachine) CheckoutView {
	totals := CheckoutTotals{Subtotal: m.Checkout.Subtotal, Total: m.Checkout.Total}
	if m.Checkout.DeliveryMethod == models.DeliveryShipping {
		shipping := m.Checkout.ShippingTotal
		totals.ShippingTotal = &shipping
	}
	methods := m.PaymentMethods
	if methods == nil {
		methods = []models.AvailablePaymentMethod{}
	}
	locations := m.PickupLocations
	if locations == nil {
		locations = []models.PickupLocation{}
	}
	return CheckoutView{
		State:                    m.Phase,
		Checkout:                 m.Checkout,
		Totals:                   totals,
		IsCalculatingShipping:    m.IsCalculatingShipping,
		IsSettingPickup:          m.IsSettingPickup,
		IsLoadingPickupLocations: m.IsLoadingPickupLocations,
		PaymentMethods:           methods,
		PickupLocations:          locations,
		CanSubmit:                m.CanSubmit(),
		LastError:                m.LastError,
		OrderID:                  m.OrderID,
		Destination:              m.Destination,
	}
}

// Snapshot returns the current view.
func (o *CheckoutOrchestrator) Snapshot() CheckoutView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return viewOf(o.machine)
}

// UseSession records the cart session later backend calls authenticate with.
func (o *CheckoutOrchestrator) UseSession(session *models.CartSession) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if session != nil {
		cp := *session
		o.session = &cp
	}
	o.touched = time.Now()
}

func (o *CheckoutOrchestrator) currentSession() *models.CartSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// IdleSince returns when the orchestrator was last used by a request.
func (o *CheckoutOrchestrator) IdleSince() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.touched
}

// Load fetches the checkout resource and the available payment methods.
func (o *CheckoutOrchestrator) Load(ctx context.Context) error {
	id := o.Snapshot().Checkout.ID
	checkout, err := o.backend.GetCheckout(ctx, o.currentSession(), id)
	if err != nil {
		return err
	}
	if _, err := o.Dispatch(ctx, CheckoutLoaded{Checkout: *checkout}); err != nil {
		return err
	}

	methods, err := o.backend.PaymentMethods(ctx, o.currentSession())
	if err != nil {
		return err
	}
	_, err = o.Dispatch(ctx, PaymentMethodsLoaded{Methods: methods})
	return err
}

// Dispatch applies ev and runs the resulting commands. The returned error is
// the transition's rejection or the first failed command.
func (o *CheckoutOrchestrator) Dispatch(ctx context.Context, ev MachineEvent) (CheckoutView, error) {
	o.mu.Lock()
	next, cmds, err := Transition(o.machine, ev)
	if err != nil {
		view := viewOf(o.machine)
		o.mu.Unlock()
		return view, err
	}
	prev := o.machine.Phase
	o.machine = next
	o.mu.Unlock()

	if prev != next.Phase {
		o.log.WithFields(logrus.Fields{"from": prev, "to": next.Phase}).Debug("checkout transition")
	}

	var firstErr error
	for _, cmd := range cmds {
		if cerr := o.execute(ctx, cmd); cerr != nil && firstErr == nil {
			firstErr = cerr
		}
	}
	return o.Snapshot(), firstErr
}

func (o *CheckoutOrchestrator) execute(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case ScheduleShippingQuote:
		o.debouncer.Schedule(c.Signature)
		return nil

	case CancelShippingQuote:
		o.debouncer.Cancel()
		return nil

	case SetShippingAddress:
		checkout, err := o.backend.SetShippingAddress(ctx, o.currentSession(), o.checkoutID(), c.Address)
		if err != nil {
			metrics.ShippingRecalculations.WithLabelValues("error").Inc()
			o.log.WithError(err).Warn("shipping recalculation failed")
		} else {
			metrics.ShippingRecalculations.WithLabelValues("ok").Inc()
		}
		_, derr := o.Dispatch(ctx, ShippingApplied{Seq: c.Seq, Method: c.Method, Checkout: checkout, Err: err})
		if err != nil {
			return err
		}
		return derr

	case FetchPickupLocations:
		locations, err := o.pickups.Locations(ctx, o.currentSession(), c.State)
		_, derr := o.Dispatch(ctx, PickupLocationsLoaded{State: c.State, Locations: locations, Err: err})
		if err != nil {
			return err
		}
		return derr

	case SetPickup:
		checkout, err := o.backend.SetPickup(ctx, o.currentSession(), o.checkoutID(), c.State, c.LocationID)
		if err != nil {
			o.log.WithError(err).Warn("setting pickup location failed")
		}
		_, derr := o.Dispatch(ctx, PickupApplied{Seq: c.Seq, Checkout: checkout, Err: err})
		if err != nil {
			return err
		}
		return derr

	case CompleteCheckout:
		return o.complete(ctx, c)
	}
	return nil
}

func (o *CheckoutOrchestrator) checkoutID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.machine.Checkout.ID
}

// onAddressSettled runs on the debouncer's goroutine.
func (o *CheckoutOrchestrator) onAddressSettled(signature string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if _, err := o.Dispatch(ctx, AddressSettled{Signature: signature}); err != nil {
		o.log.WithError(err).Debug("debounced shipping update not applied")
	}
}

// Complete submits the checkout once. A completion failure is terminal and
// is returned as *CompletionError.
func (o *CheckoutOrchestrator) Complete(ctx context.Context) (CheckoutView, error) {
	return o.Dispatch(ctx, SubmitRequested{})
}

func (o *CheckoutOrchestrator) complete(ctx context.Context, c CompleteCheckout) error {
	if o.ledger != nil {
		existing, err := o.ledger.FindByCheckoutID(ctx, c.CheckoutID)
		if err != nil {
			o.log.WithError(err).Warn("completion ledger lookup failed")
		} else if existing != nil {
			// Completed before this process saw it; show the recorded order.
			o.Dispatch(ctx, SubmitFinished{Order: &models.CompletedOrder{OrderID: models.FlexibleID(existing.OrderID)}})
			metrics.CheckoutCompletions.WithLabelValues("duplicate").Inc()
			return &CompletionError{CheckoutID: c.CheckoutID, Err: ErrAlreadySubmitted}
		}
	}

	key := uuid.New()
	order, err := o.backend.Complete(ctx, o.currentSession(), c.CheckoutID, key.String())
	if err != nil {
		cerr := &CompletionError{CheckoutID: c.CheckoutID, Err: err}
		o.Dispatch(ctx, SubmitFinished{Err: cerr})
		metrics.CheckoutCompletions.WithLabelValues("failed").Inc()
		o.log.WithError(err).Error("checkout completion failed")
		return cerr
	}

	view, _ := o.Dispatch(ctx, SubmitFinished{Order: order})
	metrics.CheckoutCompletions.WithLabelValues(string(view.Destination)).Inc()
	o.log.WithFields(logrus.Fields{"order_id": view.OrderID, "destination": view.Destination}).Info("checkout completed")

	if o.ledger != nil {
		record := &models.CheckoutCompletion{
			CheckoutID:     c.CheckoutID,
			OrderID:        view.OrderID,
			PaymentMethod:  c.PaymentMethod.String(),
			DeliveryMethod: string(c.DeliveryMethod),
			Destination:    string(view.Destination),
			Total:          view.Checkout.Total.String(),
			IdempotencyKey: key,
			Metadata:       models.JSONB{"order_number": order.OrderNumber},
			CreatedAt:      time.Now(),
		}
		if err := o.ledger.Create(ctx, record); err != nil {
			o.log.WithError(err).Error("failed to record checkout completion")
		}
	}

	if o.events != nil {
		event := CheckoutCompletedEvent{
			Type:           EventCheckoutCompleted,
			CheckoutID:     c.CheckoutID,
			OrderID:        view.OrderID,
			PaymentMethod:  c.PaymentMethod.String(),
			DeliveryMethod: string(c.DeliveryMethod),
			Destination:    string(view.Destination),
			Total:          view.Checkout.Total.String(),
		}
		if err := o.events.Publish(ctx, c.CheckoutID, event); err != nil {
			o.log.WithError(err).Warn("failed to publish checkout completion")
		}
	}
	return nil
}

// Close stops the debouncer. Pending address edits are dropped.
func (o *CheckoutOrchestrator) Close() {
	o.debouncer.Stop()
}

// IsCompletionError reports whether err came from the completion call.
func IsCompletionError(err error) bool {
	var cerr *CompletionError
	return errors.As(err, &cerr)
}

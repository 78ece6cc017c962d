package services

import (
	"strings"

	"golang-storefront-backend/internal/models"
)

type CheckoutPhase string

const (
	PhaseDraft               CheckoutPhase = "draft"
	PhaseAddressPending      CheckoutPhase = "address_pending"
	PhaseShippingCalculating CheckoutPhase = "shipping_calculating"
	// PhaseShippingReady means fulfillment is settled: a shipping quote for the
	// current address was applied, or a pickup location is bound.
	PhaseShippingReady CheckoutPhase = "shipping_ready"
	PhaseSubmitting    CheckoutPhase = "submitting"
	PhaseCompleted     CheckoutPhase = "completed"
	PhaseFailed        CheckoutPhase = "failed"
)

// CheckoutMachine is the full client-side state of one checkout attempt.
// It is a value; Transition returns a new one.
type CheckoutMachine struct {
	Phase           CheckoutPhase
	Checkout        models.CheckoutState
	PaymentMethods  []models.AvailablePaymentMethod
	PickupLocations []models.PickupLocation

	IsCalculatingShipping    bool
	IsSettingPickup          bool
	IsLoadingPickupLocations bool

	LastError   string
	OrderID     string
	Destination models.Destination

	loaded bool
	seq    uint64

	shippingSeq     uint64
	sentSignature   string
	quotedSignature string

	pickupSeq        uint64
	boundLocationID  string
	locationsFetched bool
}

func NewCheckoutMachine(checkoutID string) CheckoutMachine {
	return CheckoutMachine{
		Phase: PhaseDraft,
		Checkout: models.CheckoutState{
			ID:             checkoutID,
			DeliveryMethod: models.DeliveryShipping,
			Status:         models.CheckoutDraft,
		},
	}
}

// Terminal reports whether no further transitions are accepted.
func (m CheckoutMachine) Terminal() bool {
	return m.Phase == PhaseCompleted || m.Phase == PhaseFailed
}

// CanSubmit reports whether a SubmitRequested would pass the guard.
func (m CheckoutMachine) CanSubmit() bool {
	return m.submitGuard() == nil
}

// MachineEvent is anything the machine reacts to.
type MachineEvent interface {
	machineEvent()
}

type CheckoutLoaded struct{ Checkout models.CheckoutState }

type DeliveryMethodChanged struct{ Method models.DeliveryMethod }

type AddressEdited struct{ Address models.Address }

// AddressSettled is emitted by the debouncer once edits went quiet.
type AddressSettled struct{ Signature string }

type ShippingApplied struct {
	Seq      uint64
	Method   models.DeliveryMethod
	Checkout *models.CheckoutState
	Err      error
}

type PickupStateSelected struct{ State string }

type PickupLocationsLoaded struct {
	State     string
	Locations []models.PickupLocation
	Err       error
}

type PickupLocationSelected struct{ LocationID string }

type PickupApplied struct {
	Seq      uint64
	Checkout *models.CheckoutState
	Err      error
}

type PaymentMethodsLoaded struct{ Methods []models.AvailablePaymentMethod }

type PaymentMethodSelected struct{ Method models.PaymentMethod }

type SubmitRequested struct{}

type SubmitFinished struct {
	Order *models.CompletedOrder
	Err   error
}

func (CheckoutLoaded) machineEvent()         {}
func (DeliveryMethodChanged) machineEvent()  {}
func (AddressEdited) machineEvent()          {}
func (AddressSettled) machineEvent()         {}
func (ShippingApplied) machineEvent()        {}
func (PickupStateSelected) machineEvent()    {}
func (PickupLocationsLoaded) machineEvent()  {}
func (PickupLocationSelected) machineEvent() {}
func (PickupApplied) machineEvent()          {}
func (PaymentMethodsLoaded) machineEvent()   {}
func (PaymentMethodSelected) machineEvent()  {}
func (SubmitRequested) machineEvent()        {}
func (SubmitFinished) machineEvent()         {}

// Command is a side effect the orchestrator performs for the machine.
type Command interface {
	command()
}

type ScheduleShippingQuote struct{ Signature string }

type CancelShippingQuote struct{}

type SetShippingAddress struct {
	Seq     uint64
	Method  models.DeliveryMethod
	Address models.Address
}

type FetchPickupLocations struct{ State string }

type SetPickup struct {
	Seq        uint64
	State      string
	LocationID string
}

type CompleteCheckout struct {
	CheckoutID     string
	PaymentMethod  models.PaymentMethod
	DeliveryMethod models.DeliveryMethod
}

func (ScheduleShippingQuote) command() {}
func (CancelShippingQuote) command()   {}
func (SetShippingAddress) command()    {}
func (FetchPickupLocations) command()  {}
func (SetPickup) command()             {}
func (CompleteCheckout) command()      {}

// Transition applies ev to m. On error m is returned unchanged and no
// commands are issued.
func Transition(m CheckoutMachine, ev MachineEvent) (CheckoutMachine, []Command, error) {
	if m.Terminal() {
		if _, ok := ev.(SubmitRequested); ok {
			return m, nil, ErrAlreadySubmitted
		}
		return m, nil, nil
	}
	if m.Phase == PhaseSubmitting {
		switch ev.(type) {
		case SubmitFinished:
		case SubmitRequested:
			return m, nil, ErrAlreadySubmitted
		case ShippingApplied, PickupApplied, PickupLocationsLoaded, AddressSettled:
			// late responses are dropped while submitting
			return m, nil, nil
		default:
			return m, nil, ErrAlreadySubmitted
		}
	}

	var (
		cmds []Command
		err  error
	)
	switch e := ev.(type) {
	case CheckoutLoaded:
		cmds = m.onLoaded(e)
	case DeliveryMethodChanged:
		cmds, err = m.onDeliveryMethod(e)
	case AddressEdited:
		cmds = m.onAddressEdited(e)
	case AddressSettled:
		cmds = m.onAddressSettled(e)
	case ShippingApplied:
		m.onShippingApplied(e)
	case PickupStateSelected:
		cmds, err = m.onPickupState(e)
	case PickupLocationsLoaded:
		m.onPickupLocations(e)
	case PickupLocationSelected:
		cmds, err = m.onPickupLocation(e)
	case PickupApplied:
		m.onPickupApplied(e)
	case PaymentMethodsLoaded:
		m.onPaymentMethods(e)
	case PaymentMethodSelected:
		if !e.Method.Valid() {
			return m, nil, models.ErrInvalidPaymentMethod
		}
		m.Checkout.PaymentMethod = e.Method
	case SubmitRequested:
		if gerr := m.submitGuard(); gerr != nil {
			return m, nil, gerr
		}
		m.Phase = PhaseSubmitting
		m.Checkout.Status = models.CheckoutSubmitting
		m.LastError = ""
		return m, []Command{CompleteCheckout{
			CheckoutID:     m.Checkout.ID,
			PaymentMethod:  m.Checkout.PaymentMethod,
			DeliveryMethod: m.Checkout.DeliveryMethod,
		}}, nil
	case SubmitFinished:
		m.onSubmitFinished(e)
		return m, nil, nil
	}
	if err != nil {
		return m, nil, err
	}

	m.settle()
	return m, cmds, nil
}

func (m *CheckoutMachine) nextSeq() uint64 {
	m.seq++
	return m.seq
}

func (m *CheckoutMachine) onLoaded(e CheckoutLoaded) []Command {
	loaded := e.Checkout
	if loaded.ID == "" {
		loaded.ID = m.Checkout.ID
	}
	if loaded.DeliveryMethod == "" {
		loaded.DeliveryMethod = models.DeliveryShipping
	}
	if loaded.Status == "" {
		loaded.Status = models.CheckoutDraft
	}
	if !loaded.PaymentMethod.Valid() && m.Checkout.PaymentMethod.Valid() {
		loaded.PaymentMethod = m.Checkout.PaymentMethod
	}
	loaded.NormalizeTotals()
	m.Checkout = loaded
	m.loaded = true

	if loaded.Status == models.CheckoutCompleted {
		m.Phase = PhaseCompleted
		return nil
	}

	var cmds []Command
	switch loaded.DeliveryMethod {
	case models.DeliveryShipping:
		if !loaded.ShippingAddress.ReadyForShipping() {
			break
		}
		sig := loaded.ShippingAddress.Signature()
		// A checkout that comes back with a shipping total is already quoted
		// for its stored address.
		if !loaded.ShippingTotal.IsZero() {
			m.sentSignature = sig
			m.quotedSignature = sig
			break
		}
		cmds = append(cmds, ScheduleShippingQuote{Signature: sig})
	case models.DeliveryPickup:
		m.boundLocationID = loaded.PickupLocationID
		if loaded.PickupState != "" {
			m.IsLoadingPickupLocations = true
			cmds = append(cmds, FetchPickupLocations{State: loaded.PickupState})
		}
	}
	return cmds
}

func (m *CheckoutMachine) onDeliveryMethod(e DeliveryMethodChanged) ([]Command, error) {
	switch e.Method {
	case models.DeliveryShipping, models.DeliveryPickup:
	default:
		return nil, ErrWrongDeliveryMethod
	}
	if e.Method == m.Checkout.DeliveryMethod {
		return nil, nil
	}
	m.Checkout.DeliveryMethod = e.Method

	if e.Method == models.DeliveryPickup {
		// Locations are scoped to a state the shopper must pick again.
		m.Checkout.PickupLocationID = ""
		m.boundLocationID = ""
		m.IsCalculatingShipping = false
		m.shippingSeq = 0
		m.sentSignature = ""
		m.quotedSignature = ""
		m.Checkout.NormalizeTotals()

		cmds := []Command{CancelShippingQuote{}}
		if m.Checkout.PickupState != "" && !m.locationsFetched {
			m.IsLoadingPickupLocations = true
			cmds = append(cmds, FetchPickupLocations{State: m.Checkout.PickupState})
		}
		return cmds, nil
	}

	m.IsSettingPickup = false
	m.pickupSeq = 0
	m.Checkout.NormalizeTotals()
	if m.Checkout.ShippingAddress.ReadyForShipping() {
		return []Command{ScheduleShippingQuote{Signature: m.Checkout.ShippingAddress.Signature()}}, nil
	}
	return nil, nil
}

func (m *CheckoutMachine) onAddressEdited(e AddressEdited) []Command {
	addr := e.Address
	m.Checkout.ShippingAddress = &addr
	if m.Checkout.DeliveryMethod != models.DeliveryShipping {
		return nil
	}
	if !addr.ReadyForShipping() {
		return []Command{CancelShippingQuote{}}
	}
	return []Command{ScheduleShippingQuote{Signature: addr.Signature()}}
}

func (m *CheckoutMachine) onAddressSettled(e AddressSettled) []Command {
	if m.Checkout.DeliveryMethod != models.DeliveryShipping {
		return nil
	}
	addr := m.Checkout.ShippingAddress
	if !addr.ReadyForShipping() || addr.Signature() != e.Signature {
		return nil
	}
	if e.Signature == m.sentSignature {
		return nil
	}

	m.shippingSeq = m.nextSeq()
	m.sentSignature = e.Signature
	m.IsCalculatingShipping = true
	m.LastError = ""
	return []Command{SetShippingAddress{
		Seq:     m.shippingSeq,
		Method:  models.DeliveryShipping,
		Address: *addr,
	}}
}

func (m *CheckoutMachine) onShippingApplied(e ShippingApplied) {
	if e.Seq != m.shippingSeq || e.Method != m.Checkout.DeliveryMethod || !m.IsCalculatingShipping {
		return
	}
	m.IsCalculatingShipping = false
	if e.Err != nil {
		m.LastError = e.Err.Error()
		m.sentSignature = ""
		return
	}
	if e.Checkout != nil {
		m.Checkout.Subtotal = e.Checkout.Subtotal
		m.Checkout.ShippingTotal = e.Checkout.ShippingTotal
	}
	m.Checkout.NormalizeTotals()
	m.quotedSignature = m.sentSignature
}

func (m *CheckoutMachine) onPickupState(e PickupStateSelected) ([]Command, error) {
	if m.Checkout.DeliveryMethod != models.DeliveryPickup {
		return nil, ErrWrongDeliveryMethod
	}
	state := strings.TrimSpace(e.State)
	if state == "" {
		return nil, ErrPickupStateRequired
	}
	if state == m.Checkout.PickupState && m.locationsFetched {
		return nil, nil
	}

	m.Checkout.PickupState = state
	m.Checkout.PickupLocationID = ""
	m.boundLocationID = ""
	m.PickupLocations = nil
	m.locationsFetched = false
	m.IsLoadingPickupLocations = true
	m.IsSettingPickup = false
	m.pickupSeq = 0
	return []Command{FetchPickupLocations{State: state}}, nil
}

func (m *CheckoutMachine) onPickupLocations(e PickupLocationsLoaded) {
	if e.State != m.Checkout.PickupState {
		return
	}
	m.IsLoadingPickupLocations = false
	if e.Err != nil {
		m.LastError = e.Err.Error()
		return
	}
	m.PickupLocations = e.Locations
	m.locationsFetched = true
}

func (m *CheckoutMachine) onPickupLocation(e PickupLocationSelected) ([]Command, error) {
	if m.Checkout.DeliveryMethod != models.DeliveryPickup {
		return nil, ErrWrongDeliveryMethod
	}
	if m.Checkout.PickupState == "" {
		return nil, ErrPickupStateRequired
	}
	id := strings.TrimSpace(e.LocationID)
	if id == "" {
		return nil, ErrPickupLocationRequired
	}
	if m.locationsFetched && !m.offersLocation(id) {
		return nil, ErrUnknownPickupLocation
	}
	if id == m.boundLocationID && !m.IsSettingPickup {
		m.Checkout.PickupLocationID = id
		return nil, nil
	}

	m.Checkout.PickupLocationID = id
	m.pickupSeq = m.nextSeq()
	m.IsSettingPickup = true
	m.LastError = ""
	return []Command{SetPickup{
		Seq:        m.pickupSeq,
		State:      m.Checkout.PickupState,
		LocationID: id,
	}}, nil
}

func (m *CheckoutMachine) offersLocation(id string) bool {
	for _, loc := range m.PickupLocations {
		if loc.ID.String() == id {
			return true
		}
	}
	return false
}

func (m *CheckoutMachine) onPickupApplied(e PickupApplied) {
	if e.Seq != m.pickupSeq || m.Checkout.DeliveryMethod != models.DeliveryPickup || !m.IsSettingPickup {
		return
	}
	m.IsSettingPickup = false
	if e.Err != nil {
		m.LastError = e.Err.Error()
		m.Checkout.PickupLocationID = m.boundLocationID
		return
	}
	m.boundLocationID = m.Checkout.PickupLocationID
	if e.Checkout != nil {
		m.Checkout.Subtotal = e.Checkout.Subtotal
	}
	m.Checkout.NormalizeTotals()
}

func (m *CheckoutMachine) onPaymentMethods(e PaymentMethodsLoaded) {
	m.PaymentMethods = e.Methods
	if m.Checkout.PaymentMethod.Valid() {
		return
	}
	if def, ok := models.DefaultPaymentMethod(e.Methods); ok {
		m.Checkout.PaymentMethod = def
	}
}

func (m CheckoutMachine) submitGuard() error {
	switch m.Phase {
	case PhaseSubmitting, PhaseCompleted, PhaseFailed:
		return ErrAlreadySubmitted
	}
	if !m.loaded {
		return ErrCheckoutNotLoaded
	}
	if m.Checkout.DeliveryMethod == models.DeliveryPickup && m.Checkout.PickupLocationID == "" {
		return ErrPickupLocationRequired
	}
	if !m.Checkout.PaymentMethod.Valid() {
		return models.ErrInvalidPaymentMethod
	}
	if m.IsCalculatingShipping || m.IsSettingPickup {
		return ErrCheckoutBusy
	}
	return nil
}

func (m *CheckoutMachine) onSubmitFinished(e SubmitFinished) {
	if m.Phase != PhaseSubmitting {
		return
	}
	if e.Err != nil {
		m.Phase = PhaseFailed
		m.Checkout.Status = models.CheckoutFailed
		m.LastError = e.Err.Error()
		return
	}
	m.Phase = PhaseCompleted
	m.Checkout.Status = models.CheckoutCompleted
	if e.Order != nil {
		m.OrderID = e.Order.OrderID.String()
	}
	if m.Checkout.PaymentMethod.DefersSettlement() {
		m.Destination = models.DestinationPending
	} else {
		m.Destination = models.DestinationSuccess
	}
}

// settle derives the phase from the fulfillment data.
func (m *CheckoutMachine) settle() {
	if !m.loaded {
		m.Phase = PhaseDraft
		return
	}
	switch m.Checkout.DeliveryMethod {
	case models.DeliveryShipping:
		switch {
		case m.IsCalculatingShipping:
			m.Phase = PhaseShippingCalculating
		case m.Checkout.ShippingAddress.ReadyForShipping() &&
			m.quotedSignature != "" &&
			m.quotedSignature == m.Checkout.ShippingAddress.Signature():
			m.Phase = PhaseShippingReady
		default:
			m.Phase = PhaseAddressPending
		}
	case models.DeliveryPickup:
		if !m.IsSettingPickup && m.Checkout.PickupLocationID != "" && m.Checkout.PickupLocationID == m.boundLocationID {
			m.Phase = PhaseShippingReady
		} else {
			m.Phase = PhaseAddressPending
		}
	}
}

package handlers

import (
	"net/http"
	"strings"

	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkouts CheckoutServiceInterface
	cookies   middleware.CookieConfig
}

func NewCheckoutHandler(checkouts CheckoutServiceInterface, cookies middleware.CookieConfig) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		cookies:   cookies,
	}
}

type DeliveryMethodRequest struct {
	DeliveryMethod string `json:"deliveryMethod" binding:"required"`
}

type PickupStateRequest struct {
	State string `json:"state" binding:"required"`
}

type PickupLocationRequest struct {
	LocationID string `json:"locationId" binding:"required"`
}

type PaymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// RegisterRoutes registers the routes for the checkout flow
func (h *CheckoutHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	checkout := router.Group("/checkout/:checkout_id", authMiddleware.OptionalAuth())
	{
		checkout.GET("", h.GetCheckout)
		checkout.PUT("/delivery-method", h.SetDeliveryMethod)
		checkout.PUT("/address", h.SetAddress)
		checkout.PUT("/pickup-state", h.SetPickupState)
		checkout.PUT("/pickup-location", h.SetPickupLocation)
		checkout.GET("/pickup-locations", h.GetPickupLocations)
		checkout.PUT("/payment-method", h.SetPaymentMethod)
		checkout.POST("/complete", h.Complete)
	}
}

func (h *CheckoutHandler) orchestrator(c *gin.Context) (*services.CheckoutOrchestrator, bool) {
	id := strings.TrimSpace(c.Param("checkout_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Checkout ID is required",
			Message: "Please provide a checkout id",
		})
		return nil, false
	}

	store := middleware.ForRequest(c, h.cookies)
	o, err := h.checkouts.Get(c.Request.Context(), id, store.Read())
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return o, true
}

// dispatch feeds ev to the checkout and renders the resulting view.
func (h *CheckoutHandler) dispatch(c *gin.Context, ev services.MachineEvent) {
	o, ok := h.orchestrator(c)
	if !ok {
		return
	}
	view, err := o.Dispatch(c.Request.Context(), ev)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	o, ok := h.orchestrator(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o.Snapshot())
}

func (h *CheckoutHandler) SetDeliveryMethod(c *gin.Context) {
	var req DeliveryMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	method, ok := models.ParseDeliveryMethod(req.DeliveryMethod)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid delivery method",
			Message: "deliveryMethod must be shipping or pickup",
		})
		return
	}
	h.dispatch(c, services.DeliveryMethodChanged{Method: method})
}

// SetAddress records the edited shipping address. Shipping is recalculated
// once edits stop for the debounce window, so the response may still show
// the previous totals.
func (h *CheckoutHandler) SetAddress(c *gin.Context) {
	var req models.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	h.dispatch(c, services.AddressEdited{Address: req})
}

func (h *CheckoutHandler) SetPickupState(c *gin.Context) {
	var req PickupStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	h.dispatch(c, services.PickupStateSelected{State: req.State})
}

func (h *CheckoutHandler) SetPickupLocation(c *gin.Context) {
	var req PickupLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	h.dispatch(c, services.PickupLocationSelected{LocationID: req.LocationID})
}

// GetPickupLocations lists the locations of the selected state. A state query
// parameter selects that state first.
func (h *CheckoutHandler) GetPickupLocations(c *gin.Context) {
	o, ok := h.orchestrator(c)
	if !ok {
		return
	}

	view := o.Snapshot()
	if state := strings.TrimSpace(c.Query("state")); state != "" {
		var err error
		view, err = o.Dispatch(c.Request.Context(), services.PickupStateSelected{State: state})
		if err != nil {
			respondError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"state":     view.Checkout.PickupState,
		"locations": view.PickupLocations,
	})
}

func (h *CheckoutHandler) SetPaymentMethod(c *gin.Context) {
	var req PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}
	method, err := models.ParsePaymentMethod(strings.TrimSpace(req.PaymentMethod))
	if err != nil {
		respondError(c, err)
		return
	}
	h.dispatch(c, services.PaymentMethodSelected{Method: method})
}

// Complete submits the order. On success the cart cookies are cleared and the
// response names the page to send the shopper to.
func (h *CheckoutHandler) Complete(c *gin.Context) {
	o, ok := h.orchestrator(c)
	if !ok {
		return
	}

	view, err := o.Complete(c.Request.Context())
	if err != nil {
		if !services.IsCompletionError(err) {
			respondError(c, err)
			return
		}
		// The checkout is now terminal; send its state along with the error.
		status, code := statusFor(err)
		c.JSON(status, gin.H{
			"error":    code,
			"message":  err.Error(),
			"checkout": view,
		})
		return
	}

	store := middleware.ForRequest(c, h.cookies)
	store.Clear()
	store.Flush()
	c.JSON(http.StatusOK, view)
}

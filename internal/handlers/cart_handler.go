package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	cartService CartServiceInterface
	cookies     middleware.CookieConfig
}

func NewCartHandler(cartService CartServiceInterface, cookies middleware.CookieConfig) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		cookies:     cookies,
	}
}

type UpdateCartItemRequest struct {
	Quantity   int               `json:"quantity"`
	Attributes models.Attributes `json:"attributes"`
}

type RemoveCartItemRequest struct {
	Attributes models.Attributes `json:"attributes"`
}

// RegisterRoutes registers the routes for cart management
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	// Guests have carts too; a bearer token only attaches the customer
	cart := router.Group("/cart", authMiddleware.OptionalAuth(), middleware.ClientNonce(h.cookies))
	{
		cart.GET("", h.GetCart)
		cart.POST("/items", h.AddToCart)
		cart.PATCH("/items/:item_id", h.UpdateCartItem)
		cart.DELETE("/items/:item_id", h.RemoveFromCart)
		// Forget the cart cookies, e.g. after an authenticated customer claimed the cart
		cart.DELETE("/session", h.ClearSession)
	}
	router.GET("/cart-items", authMiddleware.OptionalAuth(), middleware.ClientNonce(h.cookies), h.GetCart)
}

// GetCart returns the current cart, or an empty one when the client has no session.
func (h *CartHandler) GetCart(c *gin.Context) {
	store := middleware.ForRequest(c, h.cookies)

	cart, err := h.cartService.ListItems(c.Request.Context(), store)
	store.Flush()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// AddToCart adds a product, creating the cart on first use.
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req services.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	store := middleware.ForRequest(c, h.cookies)
	caller := services.Caller{
		ClientKey:  middleware.ClientKey(c),
		CustomerID: middleware.GetCustomerID(c),
	}

	result, err := h.cartService.AddItem(c.Request.Context(), store, caller, req)
	store.Flush()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateCartItem sets the quantity of the line matching item_id and attributes.
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	store := middleware.ForRequest(c, h.cookies)
	cart, err := h.cartService.UpdateItem(c.Request.Context(), store, c.Param("item_id"), req.Quantity, req.Attributes)
	store.Flush()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// RemoveFromCart removes the line matching item_id. Attributes come from the
// JSON body or from attributes[key]=value query parameters.
func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	var req RemoveCartItemRequest
	// The body is optional and may be chunked.
	if body := c.Request.Body; body != nil && body != http.NoBody {
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid request body",
				Message: err.Error(),
			})
			return
		}
	}
	if len(req.Attributes) == 0 {
		req.Attributes = c.QueryMap("attributes")
	}

	store := middleware.ForRequest(c, h.cookies)
	cart, err := h.cartService.RemoveItem(c.Request.Context(), store, c.Param("item_id"), req.Attributes)
	store.Flush()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) ClearSession(c *gin.Context) {
	store := middleware.ForRequest(c, h.cookies)
	h.cartService.ClearSession(store)
	store.Flush()
	c.Status(http.StatusNoContent)
}

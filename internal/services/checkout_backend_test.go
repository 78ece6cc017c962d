package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang-storefront-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCheckoutBackend(t *testing.T) {
	var seen []string
	var idempotencyKey string
	var pickupBody setPickupBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/checkout/pickup":
			writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 3, "name": "Depot", "state": r.URL.Query().Get("state")}})
		case r.Method == http.MethodGet && r.URL.Path == "/checkout/co-1":
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": "co-1", "deliveryMethod": "shipping", "subtotal": 20, "paymentMethod": "gateway:stripe"})
		case r.Method == http.MethodPatch && r.URL.Path == "/checkout/co-1/pickup":
			json.NewDecoder(r.Body).Decode(&pickupBody)
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": "co-1", "deliveryMethod": "pickup", "subtotal": 20})
		case r.Method == http.MethodGet && r.URL.Path == "/payment-methods":
			writeJSON(w, http.StatusOK, map[string]interface{}{"paymentMethods": []map[string]string{{"method": "cash"}}})
		case r.Method == http.MethodPost && r.URL.Path == "/checkout/complete":
			idempotencyKey = r.Header.Get("Idempotency-Key")
			writeJSON(w, http.StatusOK, map[string]interface{}{"orderId": 991})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "no route"})
		}
	}))
	defer srv.Close()

	backend := NewHTTPCheckoutBackend(srv.URL+"/", 0)
	ctx := context.Background()

	checkout, err := backend.GetCheckout(ctx, nil, "co-1")
	require.NoError(t, err)
	assert.Equal(t, models.Gateway("stripe"), checkout.PaymentMethod)
	assert.Equal(t, "20", checkout.Subtotal.String())

	locations, err := backend.PickupLocations(ctx, nil, "New York")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, models.FlexibleID("3"), locations[0].ID)
	assert.Equal(t, "New York", locations[0].State)

	_, err = backend.SetPickup(ctx, nil, "co-1", "NY", "3")
	require.NoError(t, err)
	assert.Equal(t, setPickupBody{PickupState: "NY", PickupLocationID: "3"}, pickupBody)

	methods, err := backend.PaymentMethods(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.AvailablePaymentMethod{{Method: "cash"}}, methods)

	order, err := backend.Complete(ctx, nil, "co-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, models.FlexibleID("991"), order.OrderID)
	assert.Equal(t, "key-1", idempotencyKey)

	_, err = backend.SetShippingAddress(ctx, nil, "co-1", shippableAddress("1 Main"))
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusNotFound, gwErr.Status)
	assert.Equal(t, "no route", gwErr.Message)

	assert.Contains(t, seen, "GET /checkout/pickup?state=New+York")
}

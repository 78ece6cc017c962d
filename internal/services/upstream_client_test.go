package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang-storefront-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUpstreamMessage(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{name: "error object", body: `{"error":{"message":"out of stock"}}`, status: 409, want: "out of stock"},
		{name: "nested response envelope", body: `{"response":{"data":{"error":{"message":"cart locked"}}}}`, status: 423, want: "cart locked"},
		{name: "data envelope", body: `{"data":{"error":{"message":"bad variant"}}}`, status: 400, want: "bad variant"},
		{name: "errors list", body: `{"errors":[{"message":"first"},{"message":"second"}]}`, status: 400, want: "first"},
		{name: "top level message", body: `{"message":"nope"}`, status: 400, want: "nope"},
		{name: "error string", body: `{"error":"forbidden"}`, status: 403, want: "forbidden"},
		{name: "plain text", body: "gateway timeout", status: 504, want: "gateway timeout"},
		{name: "empty body falls back to status text", body: "", status: 503, want: "Service Unavailable"},
		{name: "unknown envelope", body: `{"detail":"x"}`, status: 500, want: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractUpstreamMessage([]byte(tt.body), tt.status))
		})
	}
}

func TestUpstreamClient_SendsSessionHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set(RotationHeader, " fresh ")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newUpstreamClient(srv.URL+"/", 0)
	resp, err := client.do(context.Background(), http.MethodGet, "/cart-items",
		&models.CartSession{CartID: "c1", AccessToken: "a1", RefreshToken: "r1"}, nil,
		header{key: "Idempotency-Key", value: "k1"})
	require.NoError(t, err)

	assert.Equal(t, "fresh", resp.Rotation)
	assert.Equal(t, "Bearer a1", got.Get("Authorization"))
	assert.Equal(t, "c1", got.Get(cartIDHeader))
	assert.Equal(t, "r1", got.Get(refreshTokenHeader))
	assert.Equal(t, "k1", got.Get("Idempotency-Key"))
}

func TestUpstreamClient_NormalizesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RotationHeader, "rotated")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"message":"quantity exceeds stock"}]}`))
	}))
	defer srv.Close()

	_, err := newUpstreamClient(srv.URL, 0).do(context.Background(), http.MethodPost, "/cart-items", nil, map[string]int{"quantity": 99})

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, KindUpstream, gwErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, gwErr.Status)
	assert.Equal(t, "quantity exceeds stock", gwErr.Message)
	assert.Equal(t, "rotated", gwErr.RotatedToken)
}

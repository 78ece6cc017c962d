package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHandler_ExposesStorefrontMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	CartsCreated.Inc()
	CheckoutCompletions.WithLabelValues("success").Inc()

	r := gin.New()
	r.GET("/metrics", Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storefront_carts_created_total")
	assert.Contains(t, w.Body.String(), `storefront_checkout_completions_total{result="success"}`)
}

func TestTokenRotations_CountsByResult(t *testing.T) {
	before := testutil.ToFloat64(TokenRotations.WithLabelValues("stale"))
	TokenRotations.WithLabelValues("stale").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(TokenRotations.WithLabelValues("stale")))
}

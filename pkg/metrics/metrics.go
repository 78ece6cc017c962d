package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CartOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "cart_operations_total",
		Help:      "Cart gateway operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	CartsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "carts_created_total",
		Help:      "Backend carts created lazily by the gateway.",
	})

	TokenRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "cart_token_rotations_total",
		Help:      "Access token rotations signalled by the backend.",
	}, []string{"result"}) // applied, stale

	ShippingRecalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "shipping_recalculations_total",
		Help:      "Shipping address mutations issued to the checkout backend.",
	}, []string{"outcome"})

	CheckoutCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "checkout_completions_total",
		Help:      "Checkout completion attempts by destination or failure.",
	}, []string{"result"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "upstream_request_seconds",
		Help:      "Latency of backend calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Handler exposes the default registry for gin.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

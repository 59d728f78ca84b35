package server

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tucanopay/tucano/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Port:                  "0",
		Env:                   "development",
		LogLevel:              "error",
		SecretsKey:            "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		TimestampSkew:         config.DefaultTimestampSkew,
		NonceTTL:              config.DefaultNonceTTL,
		VelocityLimit:         config.DefaultVelocityLimit,
		FailuresToBlock:       config.DefaultFailuresToBlock,
		AdaptiveBlockTime:     config.DefaultAdaptiveBlock,
		DeliveryInterval:      config.DefaultDeliveryPoll,
		ReconciliationHourUTC: config.DefaultReconcileHour,
		RateLimitPerMinute:    config.DefaultRateLimit,
	}

	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestLivenessAndReadiness(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, 200, w.Code)

	// Not ready until Run has started the workers.
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/readyz", nil))
	require.Equal(t, 503, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("POST", "/v1/payments", nil))
	require.Equal(t, 401, w.Code)
	require.Contains(t, w.Body.String(), "MISSING_HEADERS")
}

func TestWebhookEndpointIsPublicButValidated(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/v1/webhooks/psp", nil)
	req.Header.Set("X-Provider", "ghost")
	req.Header.Set("X-Signature", "sig")
	req.Header.Set("X-Timestamp", "1")
	req.Header.Set("X-Nonce", "n")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, 400, w.Code)
	require.Contains(t, w.Body.String(), "UNKNOWN_PROVIDER")
}

package merchants

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tucanopay/tucano/internal/secrets"
)

const testCipherKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestAPIKeyExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	require.False(t, (&APIKey{}).Expired(now))
	require.False(t, (&APIKey{ExpiresAt: &future}).Expired(now))
	require.True(t, (&APIKey{ExpiresAt: &past}).Expired(now))
}

func TestMemoryStoreEndpoints(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateEndpoint(ctx, &Endpoint{ID: "ep_1", MerchantID: "mer_1", URL: "https://a.example.com", Active: true}))
	require.NoError(t, s.CreateEndpoint(ctx, &Endpoint{ID: "ep_2", MerchantID: "mer_1", URL: "https://b.example.com", Active: false}))

	ep, err := s.GetActiveEndpoint(ctx, "mer_1")
	require.NoError(t, err)
	require.Equal(t, "ep_1", ep.ID)

	_, err = s.GetActiveEndpoint(ctx, "mer_2")
	require.ErrorIs(t, err, ErrNoActiveEndpoint)

	eps, err := s.ListEndpoints(ctx, "mer_1")
	require.NoError(t, err)
	require.Len(t, eps, 2)

	require.NoError(t, s.DeleteEndpoint(ctx, "ep_1"))
	_, err = s.GetActiveEndpoint(ctx, "mer_1")
	require.ErrorIs(t, err, ErrNoActiveEndpoint)
}

func newEndpointRouter(t *testing.T) (*gin.Engine, Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cipher, err := secrets.NewCipher(testCipherKey)
	require.NoError(t, err)

	store := NewMemoryStore()
	router := gin.New()
	group := router.Group("/v1")
	NewHandlers(store, cipher).RegisterRoutes(group, func(*gin.Context) string { return "mer_1" })
	return router, store
}

func TestCreateEndpointReturnsSecretOnce(t *testing.T) {
	router, store := newEndpointRouter(t)

	body := bytes.NewBufferString(`{"url":"https://loja.example.com/webhooks"}`)
	req := httptest.NewRequest("POST", "/v1/webhook-endpoints", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 201, w.Code)

	var resp struct {
		Endpoint Endpoint `json:"endpoint"`
		Secret   string   `json:"secret"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Secret)
	require.Contains(t, resp.Secret, "whsec_")
	require.Equal(t, "mer_1", resp.Endpoint.MerchantID)

	// The stored endpoint never exposes the raw secret.
	ep, err := store.GetActiveEndpoint(context.Background(), "mer_1")
	require.NoError(t, err)
	require.NotEqual(t, resp.Secret, ep.SecretEnc)

	// And the list response omits the encrypted form entirely.
	req = httptest.NewRequest("GET", "/v1/webhook-endpoints", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)
	require.NotContains(t, w.Body.String(), ep.SecretEnc)
}

func TestDeleteEndpointScopedToMerchant(t *testing.T) {
	router, store := newEndpointRouter(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEndpoint(ctx, &Endpoint{ID: "ep_other", MerchantID: "mer_2", URL: "https://x.example.com", Active: true}))

	req := httptest.NewRequest("DELETE", "/v1/webhook-endpoints/ep_other", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, 404, w.Code)

	_, err := store.GetActiveEndpoint(ctx, "mer_2")
	require.NoError(t, err)
}

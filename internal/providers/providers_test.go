package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tucanopay/tucano/internal/signature"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) ValidateWebhookSignature(string, []byte, int64) bool {
	return true
}
func (s *stubProvider) GetTransactionReport(context.Context, time.Time) ([]ReportEntry, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "pixnow"})
	r.Register(&stubProvider{name: "boletohub"})

	p, err := r.Get("pixnow")
	require.NoError(t, err)
	require.Equal(t, "pixnow", p.Name())

	_, err = r.Get("ghost")
	require.ErrorIs(t, err, ErrUnknownProvider)

	all := r.All()
	require.Len(t, all, 2)
	require.Equal(t, "boletohub", all[0].Name())
	require.Equal(t, "pixnow", all[1].Name())
}

func TestPixNowSignature(t *testing.T) {
	p := NewPixNowProvider("http://example.com", "tok", "whsec_pix")
	payload := []byte(`{"txid":"E123","status":"concluida"}`)
	ts := time.Now().Unix()

	sig, err := signature.Sign("whsec_pix", strconv.FormatInt(ts, 10)+"."+string(payload))
	require.NoError(t, err)

	require.True(t, p.ValidateWebhookSignature(sig, payload, ts))
	require.False(t, p.ValidateWebhookSignature(sig, []byte(`{"tampered":true}`), ts))
	require.False(t, p.ValidateWebhookSignature(sig, payload, ts+1))
}

func TestPixNowReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "2026-08-29", r.URL.Query().Get("date"))
		fmt.Fprint(w, `{"transactions":[
			{"txid":"E001","status":"concluida","valor_centavos":1500,"data":"2026-08-29"},
			{"txid":"E002","status":"devolvida","valor_centavos":900,"data":"2026-08-29"}
		]}`)
	}))
	defer srv.Close()

	p := NewPixNowProvider(srv.URL, "tok", "whsec_pix")
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	entries, err := p.GetTransactionReport(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "E001", entries[0].ProviderPaymentID)
	require.Equal(t, "concluida", entries[0].Status)
	require.Equal(t, int64(1500), entries[0].AmountCents)
}

func TestBoletoHubReportPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.Header.Get("X-Api-Key"))
		switch r.URL.Query().Get("page") {
		case "1":
			fmt.Fprint(w, `{"items":[{"nosso_numero":"B100","situacao":"liquidado","valor_centavos":5000,"data_movimento":"2026-08-29"}],"next_page":2}`)
		case "2":
			fmt.Fprint(w, `{"items":[{"nosso_numero":"B101","situacao":"baixado","valor_centavos":2000,"data_movimento":"2026-08-29"}],"next_page":0}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	p := NewBoletoHubProvider(srv.URL, "key", "whsec_bol")
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	entries, err := p.GetTransactionReport(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "B100", entries[0].ProviderPaymentID)
	require.Equal(t, "B101", entries[1].ProviderPaymentID)
}

func TestStripeSignature(t *testing.T) {
	p := NewStripeProvider("sk_test_x", "whsec_stripe")
	payload := []byte(`{"id":"evt_1","type":"charge.succeeded"}`)
	ts := time.Now().Unix()

	mac := hmac.New(sha256.New, []byte("whsec_stripe"))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	sig := hex.EncodeToString(mac.Sum(nil))

	require.True(t, p.ValidateWebhookSignature(sig, payload, ts))
	require.False(t, p.ValidateWebhookSignature(sig, payload, ts-1))
	require.False(t, p.ValidateWebhookSignature("deadbeef", payload, ts))
}

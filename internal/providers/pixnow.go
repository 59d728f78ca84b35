package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tucanopay/tucano/internal/signature"
)

// PixNowProvider integrates the PixNow instant-payment PSP.
//
// PixNow signs webhooks with HMAC-SHA256 (base64) over "<timestamp>.<body>"
// using the shared webhook secret, and exposes a daily transaction report
// as a plain JSON endpoint.
type PixNowProvider struct {
	baseURL       string
	apiToken      string
	webhookSecret string
	httpClient    *http.Client
}

// NewPixNowProvider builds the PixNow integration.
func NewPixNowProvider(baseURL, apiToken, webhookSecret string) *PixNowProvider {
	return &PixNowProvider{
		baseURL:       baseURL,
		apiToken:      apiToken,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *PixNowProvider) Name() string { return "pixnow" }

func (p *PixNowProvider) ValidateWebhookSignature(sig string, payload []byte, timestamp int64) bool {
	msg := strconv.FormatInt(timestamp, 10) + "." + string(payload)
	return signature.Verify(p.webhookSecret, msg, sig)
}

type pixNowTransaction struct {
	TxID          string `json:"txid"`
	Status        string `json:"status"`
	ValorCentavos int64  `json:"valor_centavos"`
	Data          string `json:"data"`
}

type pixNowReport struct {
	Transactions []pixNowTransaction `json:"transactions"`
}

func (p *PixNowProvider) GetTransactionReport(ctx context.Context, date time.Time) ([]ReportEntry, error) {
	day := date.UTC().Format("2006-01-02")
	endpoint := fmt.Sprintf("%s/v1/reports/transactions?date=%s", p.baseURL, url.QueryEscape(day))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pixnow: fetch report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixnow: report returned status %d", resp.StatusCode)
	}

	var report pixNowReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("pixnow: decode report: %w", err)
	}

	entries := make([]ReportEntry, 0, len(report.Transactions))
	for _, tx := range report.Transactions {
		d, err := time.Parse("2006-01-02", tx.Data)
		if err != nil {
			d = date.UTC()
		}
		entries = append(entries, ReportEntry{
			ProviderPaymentID: tx.TxID,
			Status:            tx.Status,
			AmountCents:       tx.ValorCentavos,
			Date:              d,
		})
	}
	return entries, nil
}

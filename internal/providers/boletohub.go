package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tucanopay/tucano/internal/signature"
)

// BoletoHubProvider integrates the BoletoHub bank-slip PSP.
//
// BoletoHub signs webhooks the same way PixNow does, HMAC-SHA256 over
// "<timestamp>.<body>", but with its own secret. Settlement reports come
// from a paginated liquidation endpoint.
type BoletoHubProvider struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	httpClient    *http.Client
}

// NewBoletoHubProvider builds the BoletoHub integration.
func NewBoletoHubProvider(baseURL, apiKey, webhookSecret string) *BoletoHubProvider {
	return &BoletoHubProvider{
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *BoletoHubProvider) Name() string { return "boletohub" }

func (p *BoletoHubProvider) ValidateWebhookSignature(sig string, payload []byte, timestamp int64) bool {
	msg := strconv.FormatInt(timestamp, 10) + "." + string(payload)
	return signature.Verify(p.webhookSecret, msg, sig)
}

type boletoHubItem struct {
	NossoNumero   string `json:"nosso_numero"`
	Situacao      string `json:"situacao"`
	ValorCentavos int64  `json:"valor_centavos"`
	DataMovimento string `json:"data_movimento"`
}

type boletoHubPage struct {
	Items    []boletoHubItem `json:"items"`
	NextPage int             `json:"next_page"`
}

func (p *BoletoHubProvider) GetTransactionReport(ctx context.Context, date time.Time) ([]ReportEntry, error) {
	day := date.UTC().Format("2006-01-02")

	var entries []ReportEntry
	for page := 1; page > 0; {
		endpoint := fmt.Sprintf("%s/api/v2/liquidacoes?data=%s&page=%d", p.baseURL, day, page)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Api-Key", p.apiKey)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("boletohub: fetch report page %d: %w", page, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("boletohub: report returned status %d", resp.StatusCode)
		}

		var body boletoHubPage
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("boletohub: decode report: %w", err)
		}

		for _, it := range body.Items {
			d, err := time.Parse("2006-01-02", it.DataMovimento)
			if err != nil {
				d = date.UTC()
			}
			entries = append(entries, ReportEntry{
				ProviderPaymentID: it.NossoNumero,
				Status:            it.Situacao,
				AmountCents:       it.ValorCentavos,
				Date:              d,
			})
		}
		page = body.NextPage
	}
	return entries, nil
}

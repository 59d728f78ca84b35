package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tucanopay/tucano/internal/idgen"
	"github.com/tucanopay/tucano/internal/merchants"
	"github.com/tucanopay/tucano/internal/secrets"
	"github.com/tucanopay/tucano/internal/signature"
)

// Headers set on outbound deliveries. Merchants verify X-Signature the
// same way the platform verifies their API requests.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderTraceID   = "X-Trace-Id"
)

// SendTimeout bounds one delivery attempt end to end.
const SendTimeout = 10 * time.Second

// Sender signs and posts delivery payloads to merchant endpoints.
type Sender struct {
	cipher     *secrets.Cipher
	httpClient *http.Client

	now func() time.Time
}

// NewSender builds a Sender.
func NewSender(cipher *secrets.Cipher) *Sender {
	return &Sender{
		cipher:     cipher,
		httpClient: &http.Client{Timeout: SendTimeout},
		now:        time.Now,
	}
}

// Send performs one delivery attempt against the endpoint. The HTTP call
// runs on a detached context so a shutting-down worker does not abandon a
// request the merchant may already be processing.
func (s *Sender) Send(endpoint *merchants.Endpoint, d *Delivery) error {
	secret, err := s.cipher.Decrypt(endpoint.SecretEnc)
	if err != nil {
		return fmt.Errorf("webhooks: decrypt endpoint secret: %w", err)
	}

	ts := s.now().Unix()
	nonce := idgen.Hex(16)
	sig, err := signature.Sign(secret, signature.CanonicalDelivery(ts, nonce, d.Payload))
	if err != nil {
		return fmt.Errorf("webhooks: sign delivery: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return fmt.Errorf("webhooks: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderTraceID, d.ID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhooks: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhooks: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

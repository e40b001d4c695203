package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const (
	SignatureHeader = "X-Birthday-Signature"
	MessageIDHeader = "X-Birthday-Message-ID"
)

// WebhookTransport hands messages to an HTTP mail relay as signed JSON.
type WebhookTransport struct {
	client  *http.Client
	url     string
	secret  string
	timeout time.Duration
}

func NewWebhookTransport(url, secret string, timeout time.Duration) *WebhookTransport {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &WebhookTransport{
		client:  &http.Client{},
		url:     url,
		secret:  secret,
		timeout: timeout,
	}
}

// Send posts msg with an HMAC-SHA256 signature of the body.
// Any non-2xx response is an error.
func (t *WebhookTransport) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal")
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(MessageIDHeader, uuid.NewString())
	req.Header.Set(SignatureHeader, computeSignature(t.secret, body))

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("relay responded %d", resp.StatusCode)
	}
	return nil
}

func computeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature is for relays to verify incoming messages.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := computeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

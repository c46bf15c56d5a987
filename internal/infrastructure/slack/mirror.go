package slack

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DevMirror re-delivers raw event bodies to a development instance.
// The body is re-signed with the shared signing secret so the mirror's
// own signature check passes as if Slack had posted directly.
type DevMirror struct {
	url      string
	verifier *SignatureVerifier
	client   *http.Client
}

// NewDevMirror creates a forwarder targeting the given events URL.
func NewDevMirror(url string, verifier *SignatureVerifier) *DevMirror {
	return &DevMirror{
		url:      url,
		verifier: verifier,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Forward posts the body to the mirror with fresh signature headers.
func (m *DevMirror) Forward(ctx context.Context, body []byte) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build mirror request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Slack-Request-Timestamp", timestamp)
	req.Header.Set("X-Slack-Signature", m.verifier.Sign(timestamp, body))

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mirror request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mirror returned status %d", resp.StatusCode)
	}

	return nil
}

package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/vibedev/vira/internal/infrastructure/slack"
)

// SlackAuth creates middleware that rejects requests without a valid
// Slack signature. The body is consumed for verification and restored
// so downstream handlers can read it again.
func SlackAuth(verifier *slack.SignatureVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("failed to read request body", "error", err)
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}
			r.Body.Close()

			timestamp := r.Header.Get("X-Slack-Request-Timestamp")
			signature := r.Header.Get("X-Slack-Signature")
			if err := verifier.Verify(timestamp, body, signature); err != nil {
				logger.Warn("invalid slack signature",
					"error", err,
					"remoteAddr", r.RemoteAddr,
				)
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			next.ServeHTTP(w, r)
		})
	}
}

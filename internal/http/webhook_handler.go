package http

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// WebhookHandler serves the WhatsApp Cloud API callback endpoint.
type WebhookHandler struct {
	verifyToken string
	logger      *zap.Logger
}

func NewWebhookHandler(verifyToken string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{verifyToken: verifyToken, logger: logger}
}

// Verify answers the subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token != "" && challenge != "" {
		if h.verifyToken != "" && token == h.verifyToken {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, challenge)
			return
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Receive logs delivery and status callbacks. Malformed bodies are still
// acknowledged so the provider does not retry them.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&payload); err != nil {
		payload = nil
	}
	h.logger.Info("whatsapp webhook", zap.ByteString("payload", payload))

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

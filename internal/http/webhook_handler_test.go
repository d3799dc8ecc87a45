package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookVerify(t *testing.T) {
	router := newTestRouter(&fakeSubmitter{}, &fakeRepo{}, nil)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"matching token echoes challenge", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token forbidden", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, "Forbidden"},
		{"plain probe", "", http.StatusOK, `{"ok":true}`},
		{"missing challenge", "hub.mode=subscribe&hub.verify_token=verify-me", http.StatusOK, `{"ok":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/webhooks/whatsapp?"+tt.query, nil)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(rr.Body.String()))
		})
	}
}

func TestWebhookVerify_NoTokenConfigured(t *testing.T) {
	h := NewWebhookHandler("", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=x&hub.challenge=1", nil)
	rr := httptest.NewRecorder()
	h.Verify(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestWebhookReceive(t *testing.T) {
	router := newTestRouter(&fakeSubmitter{}, &fakeRepo{}, nil)

	for _, body := range []string{`{"entry":[{"id":"1"}]}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/whatsapp", strings.NewReader(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"received":true}`, rr.Body.String())
	}
}

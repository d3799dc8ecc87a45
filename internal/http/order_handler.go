package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zimmart/storefront-go/internal/catalog"
	"github.com/zimmart/storefront-go/internal/idempotency"
	"github.com/zimmart/storefront-go/internal/order"
)

const maxOrderBody = 1 << 20

type OrderSubmitter interface {
	Submit(ctx context.Context, req order.Request) (*order.Order, error)
}

type OrderHandler struct {
	submitter OrderSubmitter
	repo      order.Repository
	replay    idempotency.Store // nil disables replay
	logger    *zap.Logger
}

func NewOrderHandler(submitter OrderSubmitter, repo order.Repository, replay idempotency.Store, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{submitter: submitter, repo: repo, replay: replay, logger: logger}
}

func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxOrderBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var req submitOrderRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotency.HeaderKey))
	fingerprint := idempotency.Fingerprint(raw)
	claimed := false
	if key != "" && h.replay != nil {
		rec, ok, err := h.replay.Claim(r.Context(), key, fingerprint)
		switch {
		case err != nil:
			h.logger.Warn("idempotency claim failed", zap.Error(err))
		case ok:
			claimed = true
		case rec.Fingerprint != fingerprint:
			writeError(w, http.StatusUnprocessableEntity, "Idempotency key reused with a different request")
			return
		case rec.Pending():
			writeError(w, http.StatusConflict, "Order with this idempotency key is in progress")
			return
		default:
			w.Header().Set("Idempotent-Replayed", "true")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	completed := false
	if claimed {
		defer func() {
			if !completed {
				h.releaseClaim(r.Context(), key)
			}
		}()
	}

	o, err := h.submitter.Submit(r.Context(), req.toDomain())
	if err != nil {
		switch {
		case errors.Is(err, order.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "Missing or invalid required fields")
		case errors.Is(err, catalog.ErrNotFound):
			writeError(w, http.StatusBadRequest, "Some products not found")
		default:
			h.logger.Error("submit order failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	body, err := json.Marshal(newSubmitOrderResponse(o))
	if err != nil {
		h.logger.Error("marshal order response", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	body = append(body, '\n')

	if claimed {
		h.completeClaim(r.Context(), key, fingerprint, body)
		completed = true
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing orderId")
		return
	}
	// Order ids are UUIDs; anything else cannot name a stored order.
	if _, err := uuid.Parse(orderID); err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.repo.GetByID(ctx, orderID)
	if err != nil {
		h.logger.Error("load order failed", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	writeJSON(w, http.StatusOK, newOrderView(o))
}

// Store failures are logged only; the order outcome is already decided.
func (h *OrderHandler) completeClaim(ctx context.Context, key, fingerprint string, body []byte) {
	if err := h.replay.Complete(context.WithoutCancel(ctx), key, fingerprint, body); err != nil {
		h.logger.Warn("idempotency complete failed", zap.Error(err))
	}
}

func (h *OrderHandler) releaseClaim(ctx context.Context, key string) {
	if err := h.replay.Release(context.WithoutCancel(ctx), key); err != nil {
		h.logger.Warn("idempotency release failed", zap.Error(err))
	}
}

// Package webhook receives Telegram updates over HTTP and hands them to a
// sharded work queue so the transport is acknowledged before any processing.
package webhook

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot/models"
)

// SecretHeader carries the secret token Telegram echoes on every delivery.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// HandlerFunc processes one update.
type HandlerFunc func(ctx context.Context, update *models.Update) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain applies mw so the first one in the slice is the outermost.
func Chain(handler HandlerFunc, mw ...Middleware) HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// Enqueuer accepts decoded updates for asynchronous processing.
type Enqueuer interface {
	Enqueue(update *models.Update) error
}

// Handler is the HTTP entry point for Telegram deliveries.
type Handler struct {
	secretSum    [sha256.Size]byte
	maxBodyBytes int64
	queue        Enqueuer
	log          *slog.Logger
}

// NewHandler creates a Handler that only accepts requests carrying secret.
func NewHandler(secret string, maxBodyBytes int64, queue Enqueuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		secretSum:    sha256.Sum256([]byte(secret)),
		maxBodyBytes: maxBodyBytes,
		queue:        queue,
		log:          logger.With("component", "webhook"),
	}
}

// ServeHTTP acknowledges every authenticated POST with 200, whether or not
// the update could be queued, so Telegram never redelivers it.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	got := sha256.Sum256([]byte(r.Header.Get(SecretHeader)))
	if subtle.ConstantTimeCompare(got[:], h.secretSum[:]) != 1 {
		h.log.WarnContext(r.Context(), "Rejected webhook call with invalid secret", "remote_addr", r.RemoteAddr)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	update := &models.Update{}
	if err := json.NewDecoder(r.Body).Decode(update); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.WarnContext(r.Context(), "Dropped oversized update", "limit", tooLarge.Limit)
		} else {
			h.log.WarnContext(r.Context(), "Dropped undecodable update", "error", err)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.queue.Enqueue(update); err != nil {
		h.log.WarnContext(r.Context(), "Dropped update", "update_id", update.ID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}

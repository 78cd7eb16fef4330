package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/campus-music/campus-music-sub001/internal/application"
	"github.com/go-chi/chi/v5"
)

const maxWebhookBodyBytes = 1 << 20

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			logHTTPOperationError(r.Context(), "readyz", http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", err)
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}

// stripeWebhook hands the raw body to the service untouched; the signature
// covers the exact bytes Stripe sent.
func (h *Handler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logHTTPOperationError(r.Context(), "stripe_webhook", http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "webhook body too large", err)
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "webhook body too large")
			return
		}
		writeValidationError(r.Context(), w, "stripe_webhook", err)
		return
	}

	res, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeMappedError(r.Context(), w, "stripe_webhook", err)
		return
	}
	logWebhookOutcome(r.Context(), res)
	writeWebhookAck(w, res)
}

func (h *Handler) createTipCheckout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "create_tip_checkout")
		return
	}
	var req application.TipCheckoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_tip_checkout", err)
		return
	}
	res, err := h.service.CreateTipCheckout(r.Context(), claims, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_tip_checkout", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listArtistSupports(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_artist_supports")
		return
	}
	query := application.SupportListQuery{
		Limit:  parseIntDefault(r.URL.Query().Get("limit"), 0),
		Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
	}
	items, err := h.service.ListArtistSupports(r.Context(), claims, chi.URLParam(r, "artist_id"), query)
	if err != nil {
		writeMappedError(r.Context(), w, "list_artist_supports", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"items":  items,
		"count":  len(items),
		"offset": max(query.Offset, 0),
	})
}

func (h *Handler) getArtistWallet(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "get_artist_wallet")
		return
	}
	wallet, err := h.service.GetArtistWallet(r.Context(), claims, chi.URLParam(r, "artist_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_artist_wallet", err)
		return
	}
	writeSuccess(w, http.StatusOK, wallet)
}

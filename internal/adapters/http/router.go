package http

import (
	"context"
	"net/http"

	"github.com/campus-music/campus-music-sub001/internal/application"
	"github.com/campus-music/campus-music-sub001/internal/ports"
	"github.com/go-chi/chi/v5"
)

// ReadinessProbe reports whether backing stores are reachable.
type ReadinessProbe func(ctx context.Context) error

// Handler is the HTTP adapter over the settlement service.
type Handler struct {
	service *application.Service
	tokens  ports.TokenVerifier
	ready   ReadinessProbe
}

// NewHandler binds the HTTP adapter. tokens may be nil, in which case every
// authenticated route answers 401.
func NewHandler(service *application.Service, tokens ports.TokenVerifier, ready ReadinessProbe) *Handler {
	return &Handler{service: service, tokens: tokens, ready: ready}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/payments/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", handler.stripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/tips/checkout", handler.createTipCheckout)
			r.Get("/artists/{artist_id}/supports", handler.listArtistSupports)
			r.Get("/artists/{artist_id}/wallet", handler.getArtistWallet)
		})
	})

	return r
}

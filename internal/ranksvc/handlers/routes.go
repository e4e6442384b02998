package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Get("/cards", h.ListCardsHandler)
		r.Post("/recommendations", h.RecommendHandler)
		r.Post("/cards/{id}/explain", h.ExplainHandler)
		if h.socket != nil {
			r.Get("/ws", h.socket.HandleWebSocket)
		}

		// Secure routes
		if h.tokenAuth == nil {
			return
		}
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Put("/cards", h.UpsertCardsHandler)
		})
	})
}

// InitAuth enables the catalog write routes, signed with HS256. Without a
// secret they are not mounted.
func (h *Handler) InitAuth(jwtKey string) {
	if jwtKey == "" {
		log.Warn("JWT_SECRET_KEY is empty, catalog write routes disabled")
		return
	}
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": "cardctl",
		"exp":        expirationTime,
	})
	if err != nil {
		log.Errorf("unable to sign operator token: %s", err)
		return
	}

	// For debugging only
	log.Debugf("DEBUG: operator JWT expires in 7 days: %s", tokenString)
}

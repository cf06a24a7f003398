package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/eventrelay/internal/repositories"
	"github.com/prudhvinik1/eventrelay/internal/services"
)

type contextKey string

const claimsKey contextKey = "claims"

// Handler carries the HTTP surface around the subsystem: the auth
// collaborator, the publish entry point used by the record-mutation layer,
// and presence for observability.
type Handler struct {
	auth      *services.AuthService
	publisher *services.Publisher
	cleanups  repositories.CleanupRepository
	devices   repositories.DeviceRepository
	presence  repositories.PresenceRepository
}

func NewHandler(
	auth *services.AuthService,
	publisher *services.Publisher,
	cleanups repositories.CleanupRepository,
	devices repositories.DeviceRepository,
	presence repositories.PresenceRepository,
) *Handler {
	return &Handler{
		auth:      auth,
		publisher: publisher,
		cleanups:  cleanups,
		devices:   devices,
		presence:  presence,
	}
}

func (h *Handler) Routes(router chi.Router) {
	router.Post("/auth/register", h.Register)
	router.Post("/auth/login", h.Login)
	router.Post("/auth/logout", h.Logout)
	router.Post("/auth/logout-all", h.LogoutAll)

	router.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/events", h.PublishEvent)
		r.Get("/presence", h.GetPresence)
	})
}

// requireAuth verifies the bearer token and stashes its claims in the
// request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := h.auth.VerifyToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func claimsFrom(r *http.Request) *services.TokenClaims {
	claims, _ := r.Context().Value(claimsKey).(*services.TokenClaims)
	return claims
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

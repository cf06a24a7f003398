package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/eventrelay/internal/services"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	DeviceID   *string `json:"device_id,omitempty"`
	DeviceName string  `json:"device_name"`
	DeviceType string  `json:"device_type"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	AccountID uuid.UUID `json:"account_id"`
	DeviceID  uuid.UUID `json:"device_id"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.auth.Register(r.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrEmailExists) {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loginReq := services.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		DeviceName: req.DeviceName,
		DeviceType: req.DeviceType,
	}
	if req.DeviceID != nil {
		deviceID, err := uuid.Parse(*req.DeviceID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid device_id")
			return
		}
		loginReq.DeviceID = &deviceID
	}

	resp, err := h.auth.Login(r.Context(), loginReq)
	if errors.Is(err, services.ErrInvalidCredentials) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		AccountID: resp.AccountID,
		DeviceID:  resp.DeviceID,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// LogoutAll revokes every session of the token's account, kicking all of its
// devices off at once.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	if err := h.auth.LogoutAll(r.Context(), token); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to logout")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out everywhere"})
}

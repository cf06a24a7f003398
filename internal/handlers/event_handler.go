package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/prudhvinik1/eventrelay/internal/models"
)

type publishRequest struct {
	Type       string          `json:"type"`
	EntityID   *string         `json:"entityId,omitempty"`
	EntityPath *string         `json:"entityPath,omitempty"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
	Patch      json.RawMessage `json:"patch,omitempty"`
}

type publishResponse struct {
	Accepted bool   `json:"accepted"`
	Position string `json:"position"`
}

// PublishEvent is the record-mutation layer's entry point. The append is
// durable before the response goes out; live delivery is best effort.
func (h *Handler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		respondError(w, http.StatusBadRequest, "type is required")
		return
	}

	event := models.Event{
		Type:       req.Type,
		EntityID:   req.EntityID,
		EntityPath: req.EntityPath,
		Snapshot:   req.Snapshot,
		Patch:      req.Patch,
	}

	// A remote-cleanup request opens its pending reconciliation record
	// before any device can hear about the event. A fast device may ack
	// the cleanup the moment it arrives; the record must already exist or
	// that ack hits nothing and the retry never clears. The record is
	// harmless on its own: if the publish below fails, the caller retries
	// and duplicate requests collapse onto the open record.
	if req.Type == models.EventCleanupRequested && req.EntityID != nil {
		rec := models.PendingCleanup{
			AccountID:  claims.AccountID,
			EntityID:   *req.EntityID,
			EntityPath: req.EntityPath,
		}
		if err := h.cleanups.Create(r.Context(), &rec); err != nil {
			respondError(w, http.StatusServiceUnavailable, "failed to record cleanup")
			return
		}
	}

	position, err := h.publisher.Publish(r.Context(), claims.AccountID, event)
	if err != nil {
		// The one failure that must reach the caller: the event was
		// never durably recorded.
		respondError(w, http.StatusServiceUnavailable, "failed to record event")
		return
	}

	respondJSON(w, http.StatusAccepted, publishResponse{Accepted: true, Position: position})
}

type devicePresence struct {
	DeviceID uuid.UUID       `json:"device_id"`
	Name     string          `json:"name"`
	Presence models.Presence `json:"presence"`
}

// GetPresence reports the liveness flag for every device on the account.
func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	devices, err := h.devices.GetDevicesByAccountID(r.Context(), claims.AccountID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}

	deviceIDs := make([]uuid.UUID, 0, len(devices))
	for _, device := range devices {
		deviceIDs = append(deviceIDs, device.ID)
	}

	presenceMap, err := h.presence.GetBulk(r.Context(), deviceIDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get presence")
		return
	}

	result := make([]devicePresence, 0, len(devices))
	for _, device := range devices {
		result = append(result, devicePresence{
			DeviceID: device.ID,
			Name:     device.Name,
			Presence: presenceMap[device.ID],
		})
	}

	respondJSON(w, http.StatusOK, result)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/middleware"
	"github.com/urbanfIare/dmt-app/internal/services"
)

type RestrictionHandler struct {
	restrict *services.RestrictionService
	clock    clock.Clock
}

func NewRestrictionHandler(restrict *services.RestrictionService, clk clock.Clock) *RestrictionHandler {
	return &RestrictionHandler{restrict: restrict, clock: clk}
}

type restrictionResponse struct {
	UserID     uuid.UUID  `json:"user_id"`
	SessionID  *uuid.UUID `json:"session_id,omitempty"`
	Restricted bool       `json:"restricted"`
	CheckedAt  time.Time  `json:"checked_at"`
}

// Me reports whether the caller's phone is restricted right now.
func (h *RestrictionHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.writeCurrent(w, r, middleware.GetUserID(r.Context()))
}

func (h *RestrictionHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	h.writeCurrent(w, r, userID)
}

func (h *RestrictionHandler) writeCurrent(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	restricted, err := h.restrict.IsCurrentlyRestricted(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restrictionResponse{
		UserID:     userID,
		Restricted: restricted,
		CheckedAt:  h.clock.Now(),
	})
}

func (h *RestrictionHandler) ForUserInSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	restricted, err := h.restrict.IsRestricted(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restrictionResponse{
		UserID:     userID,
		SessionID:  &sessionID,
		Restricted: restricted,
		CheckedAt:  h.clock.Now(),
	})
}

// RealtimeStatus returns the user's restriction flag with the sessions
// currently in progress for them.
func (h *RestrictionHandler) RealtimeStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	status, err := h.restrict.UserStatus(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

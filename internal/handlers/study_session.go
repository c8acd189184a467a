package handlers

import (
	"net/http"

	"github.com/urbanfIare/dmt-app/internal/middleware"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/services"
)

type StudySessionHandler struct {
	sessions *services.SessionService
	restrict *services.RestrictionService
}

func NewStudySessionHandler(sessions *services.SessionService, restrict *services.RestrictionService) *StudySessionHandler {
	return &StudySessionHandler{sessions: sessions, restrict: restrict}
}

func (h *StudySessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	session, err := h.sessions.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

func (h *StudySessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *StudySessionHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := uuidParam(w, r, "groupID")
	if !ok {
		return
	}
	sessions, err := h.sessions.ListByGroup(r.Context(), groupID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSessions(w, sessions)
}

func (h *StudySessionHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	groupID, ok := uuidParam(w, r, "groupID")
	if !ok {
		return
	}
	sessions, err := h.sessions.ListUpcoming(r.Context(), groupID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSessions(w, sessions)
}

// List serves GET /study-sessions with optional ?status= or ?from=&to= filters.
func (h *StudySessionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if status := q.Get("status"); status != "" {
		sessions, err := h.sessions.ListByStatus(r.Context(), models.SessionStatus(status))
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeSessions(w, sessions)
		return
	}

	from, err := timeQuery(r, "from")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "from must be an RFC 3339 timestamp", r))
		return
	}
	to, err := timeQuery(r, "to")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "to must be an RFC 3339 timestamp", r))
		return
	}
	sessions, err := h.sessions.ListByDateRange(r.Context(), from, to)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSessions(w, sessions)
}

func (h *StudySessionHandler) ListCurrent(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListCurrent(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSessions(w, sessions)
}

func (h *StudySessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	session, err := h.sessions.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *StudySessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req models.SessionStatusRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	session, err := h.sessions.UpdateStatus(r.Context(), middleware.GetUserID(r.Context()), id, req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *StudySessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.sessions.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StudySessionHandler) RestrictionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	status, err := h.restrict.SessionStatus(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *StudySessionHandler) RestrictionSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	summary, err := h.restrict.SessionSummary(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeSessions(w http.ResponseWriter, sessions []*models.StudySession) {
	if sessions == nil {
		sessions = []*models.StudySession{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

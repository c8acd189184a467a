package handlers

import (
	"net/http"

	"github.com/urbanfIare/dmt-app/internal/middleware"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/services"
)

type PhoneExceptionHandler struct {
	exceptions *services.ExceptionService
}

func NewPhoneExceptionHandler(exceptions *services.ExceptionService) *PhoneExceptionHandler {
	return &PhoneExceptionHandler{exceptions: exceptions}
}

func (h *PhoneExceptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateExceptionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	exc, err := h.exceptions.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"exception": exc})
}

func (h *PhoneExceptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	exc, err := h.exceptions.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exception": exc})
}

func (h *PhoneExceptionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	list, err := h.exceptions.ListByUser(r.Context(), userID)
	writeExceptions(w, r, list, err)
}

func (h *PhoneExceptionHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}
	list, err := h.exceptions.ListBySession(r.Context(), sessionID)
	writeExceptions(w, r, list, err)
}

func (h *PhoneExceptionHandler) ListPendingByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := uuidParam(w, r, "groupID")
	if !ok {
		return
	}
	list, err := h.exceptions.ListPendingByGroup(r.Context(), middleware.GetUserID(r.Context()), groupID)
	writeExceptions(w, r, list, err)
}

func (h *PhoneExceptionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.exceptions.ListActive(r.Context())
	writeExceptions(w, r, list, err)
}

// ListByStatus serves GET /phone-exceptions?status=...
func (h *PhoneExceptionHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := models.ExceptionStatus(r.URL.Query().Get("status"))
	switch status {
	case models.ExceptionPending, models.ExceptionApproved, models.ExceptionRejected, models.ExceptionExpired:
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "status must be PENDING, APPROVED, REJECTED or EXPIRED", r))
		return
	}
	list, err := h.exceptions.ListByStatus(r.Context(), status)
	writeExceptions(w, r, list, err)
}

func (h *PhoneExceptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateExceptionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	exc, err := h.exceptions.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exception": exc})
}

func (h *PhoneExceptionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req models.ExceptionDecisionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	exc, err := h.exceptions.Decide(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exception": exc})
}

func (h *PhoneExceptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.exceptions.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeExceptions(w http.ResponseWriter, r *http.Request, list []*models.PhoneRestrictionException, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.PhoneRestrictionException{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exceptions": list})
}

package handlers

import (
	"net/http"

	"github.com/urbanfIare/dmt-app/internal/middleware"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/services"
)

type AttendanceHandler struct {
	attendance *services.AttendanceService
}

func NewAttendanceHandler(attendance *services.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

func (h *AttendanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAttendanceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	a, err := h.attendance.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"attendance": a})
}

func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	a, err := h.attendance.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": a})
}

func (h *AttendanceHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	list, err := h.attendance.ListByUser(r.Context(), userID)
	writeAttendance(w, r, list, err)
}

func (h *AttendanceHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}
	list, err := h.attendance.ListBySession(r.Context(), sessionID)
	writeAttendance(w, r, list, err)
}

func (h *AttendanceHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := uuidParam(w, r, "groupID")
	if !ok {
		return
	}
	list, err := h.attendance.ListByGroup(r.Context(), groupID)
	writeAttendance(w, r, list, err)
}

func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateAttendanceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	a, err := h.attendance.Update(r.Context(), middleware.GetUserID(r.Context()), id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": a})
}

func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.attendance.Delete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userID")
	if !ok {
		return
	}
	groupID, ok := uuidParam(w, r, "groupID")
	if !ok {
		return
	}
	summary, err := h.attendance.Summary(r.Context(), userID, groupID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeAttendance(w http.ResponseWriter, r *http.Request, list []*models.Attendance, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Attendance{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendances": list})
}

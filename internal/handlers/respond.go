package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/middleware"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/services"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return errorRespWithFields(code, message, nil, r)
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &services.Error{Kind: services.KindValidationFailed, Message: "Invalid request body"}
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return &services.Error{Kind: services.KindValidationFailed, Message: "Validation failed"}
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return &services.Error{Kind: services.KindValidationFailed, Message: "Validation failed", Fields: fields}
	}
	return nil
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindDuplicateException,
		services.KindDuplicateAttendance,
		services.KindExceptionAlreadyProcessed,
		services.KindInvalidStateTransition,
		services.KindSessionNotEditable,
		services.KindConflict:
		return http.StatusConflict
	case services.KindInvalidSessionTime, services.KindInvalidExceptionTime:
		return http.StatusUnprocessableEntity
	case services.KindSessionNotYetStartable, services.KindValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *services.Error
	if !errors.As(err, &e) {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}
	writeJSON(w, statusFor(e.Kind), errorRespWithFields(string(e.Kind), e.Message, e.Fields, r))
}

// uuidParam parses a chi URL parameter, writing a 400 on failure.
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid "+name, r))
		return uuid.Nil, false
	}
	return id, true
}

// timeQuery parses an RFC 3339 query parameter.
func timeQuery(r *http.Request, name string) (time.Time, error) {
	return time.Parse(time.RFC3339, r.URL.Query().Get(name))
}

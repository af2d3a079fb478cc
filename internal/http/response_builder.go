package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fluxo/internal/analytics"
	"fluxo/internal/ledger"
	"fluxo/internal/log"
	"fluxo/internal/services"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps domain errors to status codes. Anything unrecognized is
// logged and reported as a bare 500 so internals do not leak.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cfgErr   *analytics.ConfigError
		reqErr   *requestError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: cfgErr.Field})
	case errors.As(err, &reqErr):
		writeError(w, http.StatusBadRequest, reqErr.Error())
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, services.ErrMissingOrganization):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrTransactionRejected), errors.Is(err, ledger.ErrInvalidTransaction):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrReportNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, errorType(err),
			log.FieldPath, r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func errorType(err error) string {
	if errors.Is(err, analytics.ErrInvariantViolation) {
		return log.ErrorTypeInvariant
	}
	return log.ErrorTypeInternal
}

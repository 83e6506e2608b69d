package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hzrede/studio/internal/entitlement"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps the entitlement error taxonomy onto HTTP
// statuses. NotFound and AccessDenied carry a remedy hint so the client
// can render the matching upsell overlay instead of a raw error.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entitlement.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entitlement.ErrTrialAlreadyUsed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, entitlement.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":  err.Error(),
			"remedy": "create_account",
		})
	case errors.Is(err, entitlement.ErrAccessDenied):
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":  err.Error(),
			"remedy": "buy_package",
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

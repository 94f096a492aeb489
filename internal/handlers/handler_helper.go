package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chefia-terminal-api/internal/gateway"
	"chefia-terminal-api/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeServiceError maps service failures onto HTTP statuses: local
// validation errors are the client's fault, backend errors keep their
// status, anything else is a bad upstream.
func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrNoOpenCashier) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.Status, apiErr.Message)
		return
	}

	writeError(w, http.StatusBadGateway, err.Error())
}

package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"coffee-backend/internal/apperrors"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error maps an error's kind to an HTTP status. Store errors hide the cause
// from the client; everything else passes its message through.
func Error(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindAccessDenied:
		status = http.StatusForbidden
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindStore:
		log.Printf("[HTTP] store error: %v", err)
		message = "internal server error"
	}

	JSON(w, status, map[string]string{"error": message})
}

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/chakravarthigit/law-backend/internal/core"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// respondFail writes a client error in the "fail" envelope.
func respondFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"status": "fail", "message": message})
}

// respondError maps service errors to HTTP statuses. Anything unrecognised
// is logged and reported as a 500 without details.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, status, envelope{"status": "error", "message": "Something went wrong"})
		return
	}
	respondFail(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondFail(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Skirja/tadsheen-quiz/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStoreError maps domain errors onto the HTTP taxonomy: per-field
// validation errors, a uniform "not found" for absent or unowned records,
// and a generic retryable notice for persistence failures.
func writeStoreError(w http.ResponseWriter, err error) {
	var verrs quiz.ValidationErrors
	switch {
	case errors.Is(err, quiz.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
	case errors.Is(err, quiz.ErrInvalidSubmission):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("store error: %v", err)
		http.Error(w, "temporary failure, please retry", http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

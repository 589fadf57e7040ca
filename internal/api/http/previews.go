package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Skirja/tadsheen-quiz/internal/quiz"
	"github.com/Skirja/tadsheen-quiz/internal/rbac"
)

// POST /previews  — park the in-progress quiz document so the creator can
// look at it the way a respondent would before saving. The body is stored
// verbatim; an "id" field updates an existing preview.
func UpsertPreviewHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ID       string          `json:"id"`
			QuizData json.RawMessage `json:"quiz_data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if len(body.QuizData) == 0 {
			http.Error(w, "quiz_data required", http.StatusBadRequest)
			return
		}
		p := quiz.Preview{
			ID:       body.ID,
			UserID:   rbac.SubjectFromContext(r.Context()),
			QuizData: body.QuizData,
		}
		if err := store.UpsertPreview(r.Context(), &p); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"preview_id": p.ID})
	}
}

// GET /previews/{previewID} — own previews only.
func GetPreviewHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.GetPreview(r.Context(), chi.URLParam(r, "previewID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(p.QuizData)
	}
}

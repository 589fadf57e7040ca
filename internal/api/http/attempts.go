package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Skirja/tadsheen-quiz/internal/auth"
	"github.com/Skirja/tadsheen-quiz/internal/quiz"
)

// POST /quizzes/{quizID}/attempts
// Public: respondents submit anonymously under a freeform name. A valid
// bearer token, if present, attaches the authenticated user id to the
// attempt.
func SubmitAttemptHandler(store quiz.Store, authSvc *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub quiz.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sub.UserFullName = strings.TrimSpace(sub.UserFullName)
		if claims := auth.Viewer(authSvc, r); claims != nil {
			sub.UserID = claims.Sub
			if sub.UserFullName == "" {
				sub.UserFullName = claims.FullName
			}
		}
		if sub.UserFullName == "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"errors": quiz.ValidationErrors{{Field: "user_full_name", Message: "name is required"}},
			})
			return
		}

		a, err := store.SubmitAttempt(r.Context(), chi.URLParam(r, "quizID"), sub)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"attempt_id": a.ID, "score": a.Score})
	}
}

// GET /attempts/{attemptID}
// Result review: stored aggregate score plus the per-question
// reconstruction, with correctness flags exposed for highlighting.
func GetAttemptHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, responses, err := store.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		q, err := store.GetQuiz(r.Context(), a.QuizID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quiz.BuildReview(q, a, responses))
	}
}

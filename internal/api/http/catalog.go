package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Skirja/tadsheen-quiz/internal/quiz"
)

func ListCategoriesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := store.ListCategories(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cats)
	}
}

// GET /quizzes?q=...&category_id=...&limit=50&offset=0
// Public catalog: published and active quizzes only, newest first.
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListQuizzes(r.Context(), quiz.ListOpts{
			Q:          strings.TrimSpace(r.URL.Query().Get("q")),
			CategoryID: strings.TrimSpace(r.URL.Query().Get("category_id")),
			PublicOnly: true,
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /quizzes/{quizID}
// Respondent view: correctness flags and reference answers are stripped by
// the store. Drafts and deactivated quizzes are indistinguishable from
// absent ones.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetPublishedQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

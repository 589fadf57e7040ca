package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Skirja/tadsheen-quiz/internal/quiz"
	"github.com/Skirja/tadsheen-quiz/internal/rbac"
)

type quizDocument struct {
	quiz.Quiz
	// PreviewID points at the parked preview this quiz was built from; it is
	// deleted once the quiz is saved.
	PreviewID string `json:"preview_id,omitempty"`
}

func CreateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc quizDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		doc.CreatorID = sub
		if err := quiz.Validate(&doc.Quiz); err != nil {
			writeStoreError(w, err)
			return
		}
		if err := store.CreateQuiz(r.Context(), &doc.Quiz); err != nil {
			writeStoreError(w, err)
			return
		}
		if doc.PreviewID != "" {
			_ = store.DeletePreview(r.Context(), doc.PreviewID, sub)
		}
		writeJSON(w, http.StatusCreated, doc.Quiz)
	}
}

func UpdateQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc quizDocument
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		doc.ID = chi.URLParam(r, "quizID")
		if err := quiz.Validate(&doc.Quiz); err != nil {
			writeStoreError(w, err)
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		if err := store.UpdateQuiz(r.Context(), &doc.Quiz, sub); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc.Quiz)
	}
}

func DeleteQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		if err := store.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID"), sub); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /me/quizzes — the creator's dashboard list, drafts included.
func ListMyQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListQuizzes(r.Context(), quiz.ListOpts{
			Q:         strings.TrimSpace(r.URL.Query().Get("q")),
			CreatorID: rbac.SubjectFromContext(r.Context()),
			Limit:     parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:    parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /me/quizzes/{quizID} — full definition for the edit form, correctness
// flags included.
func GetMyQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if q.CreatorID != rbac.SubjectFromContext(r.Context()) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func QuizStatsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.GetQuizStats(r.Context(), chi.URLParam(r, "quizID"), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Skirja/tadsheen-quiz/internal/auth"
	"github.com/Skirja/tadsheen-quiz/internal/quiz"
	"github.com/Skirja/tadsheen-quiz/internal/rbac"
	"github.com/Skirja/tadsheen-quiz/internal/storage"
)

type testEnv struct {
	srv   *httptest.Server
	store quiz.Store
	auth  *auth.AuthService
}

// newTestEnv stands up the full route tree over the in-memory store, same
// wiring as the server entrypoint.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := quiz.NewInMemoryStore(quiz.Category{ID: "cat-1", Name: "Geography"})
	authSvc := auth.NewAuthService("test-secret")
	bs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	r := chi.NewRouter()
	r.Get("/categories", ListCategoriesHandler(store))
	r.Get("/quizzes", ListQuizzesHandler(store))
	r.Get("/quizzes/{quizID}", GetQuizHandler(store))
	r.Post("/quizzes/{quizID}/attempts", SubmitAttemptHandler(store, authSvc))
	r.Get("/attempts/{attemptID}", GetAttemptHandler(store))
	r.Get("/assets/*", DownloadAssetHandler(bs))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.With(rbac.Require("quiz:create")).Post("/quizzes", CreateQuizHandler(store))
		pr.With(rbac.Require("quiz:edit-own")).Put("/quizzes/{quizID}", UpdateQuizHandler(store))
		pr.With(rbac.Require("quiz:delete-own")).Delete("/quizzes/{quizID}", DeleteQuizHandler(store))
		pr.With(rbac.Require("quiz:list-own")).Get("/me/quizzes", ListMyQuizzesHandler(store))
		pr.With(rbac.Require("quiz:list-own")).Get("/me/quizzes/{quizID}", GetMyQuizHandler(store))
		pr.With(rbac.Require("quiz:stats-own")).Get("/quizzes/{quizID}/stats", QuizStatsHandler(store))
		pr.With(rbac.Require("preview:write")).Post("/previews", UpsertPreviewHandler(store))
		pr.With(rbac.Require("preview:write")).Get("/previews/{previewID}", GetPreviewHandler(store))
		pr.With(rbac.Require("asset:upload")).Post("/assets", UploadAssetHandler(bs))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: store, auth: authSvc}
}

func (e *testEnv) token(t *testing.T, sub, role, fullName string) string {
	t.Helper()
	tok, err := e.auth.IssueJWT(sub, role, fullName)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// seedQuiz stores a published quiz directly and returns it with ids filled.
func seedQuiz(t *testing.T, store quiz.Store, creatorID string) quiz.Quiz {
	t.Helper()
	q := &quiz.Quiz{
		Title: "Capitals", Description: "European capitals", CategoryID: "cat-1",
		Status: quiz.StatusPublished, IsActive: true, CreatorID: creatorID,
		Questions: []quiz.Question{
			{Text: "Capital of France?", Type: quiz.TypeSingleChoice, Points: 10, OrderNumber: 1,
				Answers: []quiz.Answer{
					{Text: "Paris", IsCorrect: true, OrderNumber: 1},
					{Text: "Lyon", OrderNumber: 2},
				}},
			{Text: "Which are in Spain?", Type: quiz.TypeMultipleChoice, Points: 10, OrderNumber: 2,
				Answers: []quiz.Answer{
					{Text: "Madrid", IsCorrect: true, OrderNumber: 1},
					{Text: "Porto", OrderNumber: 2},
					{Text: "Seville", IsCorrect: true, OrderNumber: 3},
				}},
		},
	}
	if err := store.CreateQuiz(context.Background(), q); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	stored, err := store.GetQuiz(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("read back quiz: %v", err)
	}
	return stored
}

func TestListCategories(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, "GET", "/categories", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	cats := decode[[]quiz.Category](t, resp)
	if len(cats) != 1 || cats[0].Name != "Geography" {
		t.Fatalf("categories: %+v", cats)
	}
}

func TestPublicQuizView(t *testing.T) {
	e := newTestEnv(t)
	q := seedQuiz(t, e.store, "creator-1")

	resp := e.do(t, "GET", "/quizzes/"+q.ID, "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	got := decode[quiz.Quiz](t, resp)
	for _, qu := range got.Questions {
		for _, a := range qu.Answers {
			if a.IsCorrect {
				t.Fatalf("answer key leaked to respondents: %+v", a)
			}
		}
	}

	resp = e.do(t, "GET", "/quizzes/no-such-quiz", "", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("missing quiz: status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubmitAttempt(t *testing.T) {
	e := newTestEnv(t)
	q := seedQuiz(t, e.store, "creator-1")
	paris := q.Questions[0].Answers[0].ID
	madrid := q.Questions[1].Answers[0].ID
	seville := q.Questions[1].Answers[2].ID

	t.Run("anonymous without name", func(t *testing.T) {
		resp := e.do(t, "POST", "/quizzes/"+q.ID+"/attempts", "", map[string]any{
			"answers": map[string]any{},
		})
		if resp.StatusCode != 422 {
			t.Fatalf("status %d, want 422", resp.StatusCode)
		}
		body := decode[map[string][]quiz.FieldError](t, resp)
		if len(body["errors"]) != 1 || body["errors"][0].Field != "user_full_name" {
			t.Fatalf("errors: %+v", body)
		}
	})

	t.Run("anonymous with name", func(t *testing.T) {
		resp := e.do(t, "POST", "/quizzes/"+q.ID+"/attempts", "", map[string]any{
			"user_full_name": "Dana",
			"answers": map[string]any{
				q.Questions[0].ID: map[string]any{"answer_id": paris},
				q.Questions[1].ID: map[string]any{"answer_ids": []string{madrid, seville}},
			},
		})
		if resp.StatusCode != 201 {
			t.Fatalf("status %d, want 201", resp.StatusCode)
		}
		body := decode[map[string]any](t, resp)
		if body["score"].(float64) != 100 {
			t.Fatalf("score: %v", body["score"])
		}
		if body["attempt_id"].(string) == "" {
			t.Fatal("missing attempt_id")
		}
	})

	t.Run("authenticated user attached", func(t *testing.T) {
		tok := e.token(t, "user-7", "creator", "Signed In")
		resp := e.do(t, "POST", "/quizzes/"+q.ID+"/attempts", tok, map[string]any{
			"answers": map[string]any{
				q.Questions[0].ID: map[string]any{"answer_id": paris},
			},
		})
		if resp.StatusCode != 201 {
			t.Fatalf("status %d, want 201", resp.StatusCode)
		}
		body := decode[map[string]any](t, resp)
		a, _, err := e.store.GetAttempt(context.Background(), body["attempt_id"].(string))
		if err != nil {
			t.Fatalf("get attempt: %v", err)
		}
		if a.UserID != "user-7" || a.UserFullName != "Signed In" {
			t.Fatalf("identity not attached: %+v", a)
		}
	})

	t.Run("unknown question id", func(t *testing.T) {
		resp := e.do(t, "POST", "/quizzes/"+q.ID+"/attempts", "", map[string]any{
			"user_full_name": "Dana",
			"answers":        map[string]any{"bogus": map[string]any{"answer_id": paris}},
		})
		if resp.StatusCode != 422 {
			t.Fatalf("status %d, want 422", resp.StatusCode)
		}
		resp.Body.Close()
	})
}

func TestGetAttemptReview(t *testing.T) {
	e := newTestEnv(t)
	q := seedQuiz(t, e.store, "creator-1")
	paris := q.Questions[0].Answers[0].ID

	a, err := e.store.SubmitAttempt(context.Background(), q.ID, quiz.Submission{
		UserFullName: "Dana",
		Answers: map[string]quiz.SubmittedAnswer{
			q.Questions[0].ID: {AnswerID: paris},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	resp := e.do(t, "GET", "/attempts/"+a.ID, "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	rev := decode[quiz.AttemptReview](t, resp)
	if rev.Attempt.Score != 50 {
		t.Fatalf("score: %d", rev.Attempt.Score)
	}
	if len(rev.Questions) != 2 {
		t.Fatalf("questions: %d", len(rev.Questions))
	}
	if !rev.Questions[0].Answered || !rev.Questions[0].Correct {
		t.Fatalf("q1 review: %+v", rev.Questions[0])
	}
	if rev.Questions[1].Answered {
		t.Fatalf("q2 review: %+v", rev.Questions[1])
	}
	// The review exposes the answer key for highlighting.
	if !rev.Questions[0].Question.Answers[0].IsCorrect {
		t.Fatal("review must include correctness flags")
	}

	resp = e.do(t, "GET", "/attempts/nope", "", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("missing attempt: status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAuthoringRequiresToken(t *testing.T) {
	e := newTestEnv(t)
	doc := map[string]any{"title": "x"}

	resp := e.do(t, "POST", "/quizzes", "", doc)
	if resp.StatusCode != 401 {
		t.Fatalf("no token: status %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, "POST", "/quizzes", "garbage-token", doc)
	if resp.StatusCode != 401 {
		t.Fatalf("bad token: status %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAuthoringCRUD(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, "creator-1", "creator", "Alex")

	doc := map[string]any{
		"title": "Capitals", "description": "European capitals", "category_id": "cat-1",
		"status": "published", "is_active": true,
		"questions": []map[string]any{
			{"question_text": "Capital of France?", "question_type": "single_choice", "points": 10, "order_number": 1,
				"answers": []map[string]any{
					{"answer_text": "Paris", "is_correct": true, "order_number": 1},
					{"answer_text": "Lyon", "order_number": 2},
				}},
		},
	}

	resp := e.do(t, "POST", "/quizzes", tok, doc)
	if resp.StatusCode != 201 {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	created := decode[quiz.Quiz](t, resp)
	if created.ID == "" || created.CreatorID != "creator-1" {
		t.Fatalf("created: %+v", created)
	}

	// Dashboard list and full view.
	resp = e.do(t, "GET", "/me/quizzes", tok, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("list mine: status %d", resp.StatusCode)
	}
	mine := decode[[]quiz.QuizSummary](t, resp)
	if len(mine) != 1 || mine[0].ID != created.ID {
		t.Fatalf("mine: %+v", mine)
	}

	resp = e.do(t, "GET", "/me/quizzes/"+created.ID, tok, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("get mine: status %d", resp.StatusCode)
	}
	full := decode[quiz.Quiz](t, resp)
	if !full.Questions[0].Answers[0].IsCorrect {
		t.Fatal("edit view must keep correctness flags")
	}

	// Another creator cannot see, edit or delete it.
	other := e.token(t, "creator-2", "creator", "Sam")
	resp = e.do(t, "GET", "/me/quizzes/"+created.ID, other, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("foreign get: status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
	resp = e.do(t, "PUT", "/quizzes/"+created.ID, other, doc)
	if resp.StatusCode != 404 {
		t.Fatalf("foreign update: status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
	resp = e.do(t, "DELETE", "/quizzes/"+created.ID, other, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("foreign delete: status %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	// Owner update.
	doc["title"] = "Capitals v2"
	resp = e.do(t, "PUT", "/quizzes/"+created.ID, tok, doc)
	if resp.StatusCode != 200 {
		t.Fatalf("update: status %d", resp.StatusCode)
	}
	updated := decode[quiz.Quiz](t, resp)
	if updated.Title != "Capitals v2" {
		t.Fatalf("updated: %+v", updated)
	}

	// Stats.
	resp = e.do(t, "GET", "/quizzes/"+created.ID+"/stats", tok, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("stats: status %d", resp.StatusCode)
	}
	stats := decode[quiz.QuizStats](t, resp)
	if stats.QuizID != created.ID || stats.TotalAttempts != 0 {
		t.Fatalf("stats: %+v", stats)
	}

	// Owner delete.
	resp = e.do(t, "DELETE", "/quizzes/"+created.ID, tok, nil)
	if resp.StatusCode != 204 {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = e.do(t, "GET", "/me/quizzes/"+created.ID, tok, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("deleted quiz still served: status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateQuizValidation(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, "creator-1", "creator", "Alex")

	resp := e.do(t, "POST", "/quizzes", tok, map[string]any{
		"title": "", "description": "", "category_id": "", "status": "published",
	})
	if resp.StatusCode != 422 {
		t.Fatalf("status %d, want 422", resp.StatusCode)
	}
	body := decode[map[string][]quiz.FieldError](t, resp)
	fields := map[string]bool{}
	for _, fe := range body["errors"] {
		fields[fe.Field] = true
	}
	for _, f := range []string{"title", "description", "category_id"} {
		if !fields[f] {
			t.Errorf("missing %q in %+v", f, body["errors"])
		}
	}
}

func TestPreviewFlow(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, "creator-1", "creator", "Alex")

	resp := e.do(t, "POST", "/previews", tok, map[string]any{
		"quiz_data": map[string]any{"title": "wip"},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("upsert: status %d", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	pid := body["preview_id"]
	if pid == "" {
		t.Fatal("missing preview_id")
	}

	resp = e.do(t, "GET", "/previews/"+pid, tok, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("get: status %d", resp.StatusCode)
	}
	data := decode[map[string]string](t, resp)
	if data["title"] != "wip" {
		t.Fatalf("preview body: %+v", data)
	}

	// Other creators never see it.
	other := e.token(t, "creator-2", "creator", "Sam")
	resp = e.do(t, "GET", "/previews/"+pid, other, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("foreign preview read: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Saving the quiz consumes the preview.
	resp = e.do(t, "POST", "/quizzes", tok, map[string]any{
		"title": "Capitals", "description": "d", "category_id": "cat-1", "status": "draft",
		"preview_id": pid,
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create from preview: status %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = e.do(t, "GET", "/previews/"+pid, tok, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("preview survived save: status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAssetUploadAndDownload(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, "creator-1", "creator", "Alex")

	upload := func(filename string) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write([]byte("fake image bytes"))
		mw.Close()

		req, err := http.NewRequest("POST", e.srv.URL+"/assets", &buf)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		return resp
	}

	resp := upload("diagram.png")
	if resp.StatusCode != 201 {
		t.Fatalf("upload: status %d", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	key := body["key"]
	if !strings.HasPrefix(key, "uploads/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("key: %q", key)
	}

	resp = upload("malware.exe")
	if resp.StatusCode != 400 {
		t.Fatalf("bad extension: status %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = e.do(t, "GET", "/assets/"+key, "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("download: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type: %q", ct)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(b) != "fake image bytes" {
		t.Fatalf("blob round trip: %q", b)
	}

	resp = e.do(t, "GET", "/assets/uploads/missing.png", "", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("missing blob: status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	api "github.com/Skirja/tadsheen-quiz/internal/api/http"
	"github.com/Skirja/tadsheen-quiz/internal/auth"
	"github.com/Skirja/tadsheen-quiz/internal/config"
	"github.com/Skirja/tadsheen-quiz/internal/db"
	"github.com/Skirja/tadsheen-quiz/internal/quiz"
	"github.com/Skirja/tadsheen-quiz/internal/rbac"
	"github.com/Skirja/tadsheen-quiz/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if err := seed(ctx, dbh, cfg); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	store := quiz.NewSQLStore(dbh, cfg.DBDriver)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public surface: auth, catalog, quiz taking, results, images.
	r.Post("/auth/register", auth.RegisterHandler(dbh, authSvc))
	r.Post("/auth/login", auth.LoginHandler(dbh, authSvc))

	r.Get("/categories", api.ListCategoriesHandler(store))
	r.Get("/quizzes", api.ListQuizzesHandler(store))
	r.Get("/quizzes/{quizID}", api.GetQuizHandler(store))
	r.Post("/quizzes/{quizID}/attempts", api.SubmitAttemptHandler(store, authSvc))
	r.Get("/attempts/{attemptID}", api.GetAttemptHandler(store))
	r.Get("/assets/*", api.DownloadAssetHandler(bs))

	// Protected API (JWT → subject+role in context → RBAC).
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(store))
		pr.With(rbac.Require("quiz:edit-own")).
			Put("/quizzes/{quizID}", api.UpdateQuizHandler(store))
		pr.With(rbac.Require("quiz:delete-own")).
			Delete("/quizzes/{quizID}", api.DeleteQuizHandler(store))
		pr.With(rbac.Require("quiz:list-own")).
			Get("/me/quizzes", api.ListMyQuizzesHandler(store))
		pr.With(rbac.Require("quiz:list-own")).
			Get("/me/quizzes/{quizID}", api.GetMyQuizHandler(store))
		pr.With(rbac.Require("quiz:stats-own")).
			Get("/quizzes/{quizID}/stats", api.QuizStatsHandler(store))

		pr.With(rbac.Require("preview:write")).
			Post("/previews", api.UpsertPreviewHandler(store))
		pr.With(rbac.Require("preview:write")).
			Get("/previews/{previewID}", api.GetPreviewHandler(store))

		pr.With(rbac.Require("asset:upload")).
			Post("/assets", api.UploadAssetHandler(bs))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

// seed makes sure the default categories and the bootstrap admin exist.
// Both inserts are idempotent.
func seed(ctx context.Context, dbh *sql.DB, cfg config.Config) error {
	for _, name := range cfg.SeedCategories {
		_, err := dbh.ExecContext(ctx,
			`INSERT INTO categories (id, name) VALUES ($1,$2) ON CONFLICT (name) DO NOTHING`,
			uuid.NewString(), name)
		if err != nil {
			return err
		}
	}
	_, err := dbh.ExecContext(ctx,
		`INSERT INTO users (id, username, full_name, password_hash, role, created_at)
		 VALUES ($1,$2,'Administrator',$3,'admin',$4)
		 ON CONFLICT (username) DO NOTHING`,
		uuid.NewString(), cfg.AdminUser, cfg.AdminPassHash, time.Now().Unix())
	return err
}

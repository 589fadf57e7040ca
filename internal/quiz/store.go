package quiz

import (
	"context"
	"errors"
)

// ErrNotFound covers both a genuinely absent record and one the requesting
// actor does not own; callers cannot distinguish the two.
var ErrNotFound = errors.New("not found")

type ListOpts struct {
	Q          string // substring match on title
	CategoryID string
	CreatorID  string // dashboard listing: only this creator's quizzes
	PublicOnly bool   // published AND active only
	Limit      int
	Offset     int
}

type Store interface {
	// Catalog
	ListCategories(ctx context.Context) ([]Category, error)
	ListQuizzes(ctx context.Context, opts ListOpts) ([]QuizSummary, error)

	// GetQuiz returns the full definition including correctness flags and
	// reference answers. Callers serving respondents must use
	// GetPublishedQuiz instead.
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	// GetPublishedQuiz returns a published, active quiz with is_correct and
	// reference answers stripped.
	GetPublishedQuiz(ctx context.Context, id string) (Quiz, error)

	// Authoring. Create assigns fresh ids; Update replaces the question and
	// answer sets wholesale. Both reject a quiz not owned by creatorID with
	// ErrNotFound; Delete cascades to questions, answers, attempts and
	// responses.
	CreateQuiz(ctx context.Context, q *Quiz) error
	UpdateQuiz(ctx context.Context, q *Quiz, creatorID string) error
	DeleteQuiz(ctx context.Context, id, creatorID string) error
	GetQuizStats(ctx context.Context, id, creatorID string) (QuizStats, error)

	// SubmitAttempt grades the submission and persists the attempt, its
	// response rows and the computed score as one atomic unit.
	SubmitAttempt(ctx context.Context, quizID string, sub Submission) (Attempt, error)
	GetAttempt(ctx context.Context, attemptID string) (Attempt, []Response, error)

	// Previews
	UpsertPreview(ctx context.Context, p *Preview) error
	GetPreview(ctx context.Context, id, userID string) (Preview, error)
	DeletePreview(ctx context.Context, id, userID string) error
}

package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skirja/tadsheen-quiz/internal/grading"
)

// ErrInvalidSubmission marks respondent input the scoring engine rejected
// before any row was written (unknown question or answer id, wrong shape).
var ErrInvalidSubmission = errors.New("invalid submission")

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	grader grading.Grader
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, grader: grading.NewGrader()}
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]QuizSummary, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if opts.PublicOnly {
		where = append(where, "status = "+arg(StatusPublished))
		where = append(where, "is_active = "+arg(true))
	}
	if opts.CreatorID != "" {
		where = append(where, "creator_id = "+arg(opts.CreatorID))
	}
	if opts.CategoryID != "" {
		where = append(where, "category_id = "+arg(opts.CategoryID))
	}
	if q := strings.TrimSpace(opts.Q); q != "" {
		where = append(where, "LOWER(title) LIKE "+arg("%"+strings.ToLower(q)+"%"))
	}

	query := `SELECT id, title, description, category_id, thumbnail_url, is_active, status, total_attempts, created_at,
		(SELECT COUNT(*) FROM questions q WHERE q.quiz_id = quizzes.id) AS question_count
		FROM quizzes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += " LIMIT " + arg(limit) + " OFFSET " + arg(opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []QuizSummary{}
	for rows.Next() {
		var qs QuizSummary
		if err := rows.Scan(&qs.ID, &qs.Title, &qs.Description, &qs.CategoryID, &qs.ThumbnailURL,
			&qs.IsActive, &qs.Status, &qs.TotalAttempts, &qs.CreatedAt, &qs.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, qs)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	return s.getQuiz(ctx, s.db, id, false)
}

func (s *SQLStore) GetPublishedQuiz(ctx context.Context, id string) (Quiz, error) {
	q, err := s.getQuiz(ctx, s.db, id, true)
	if err != nil {
		return Quiz{}, err
	}
	// Strip correctness and reference answers when serving respondents.
	for i := range q.Questions {
		q.Questions[i].ReferenceAnswer = ""
		for a := range q.Questions[i].Answers {
			q.Questions[i].Answers[a].IsCorrect = false
		}
	}
	return q, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) getQuiz(ctx context.Context, db querier, id string, publishedOnly bool) (Quiz, error) {
	var q Quiz
	query := `SELECT id, title, description, category_id, thumbnail_url, is_active, status, creator_id, total_attempts, created_at
		FROM quizzes WHERE id = $1`
	if publishedOnly {
		query += ` AND status = 'published' AND is_active = ` + boolLit(s.driver, true)
	}
	err := db.QueryRowContext(ctx, query, id).Scan(&q.ID, &q.Title, &q.Description, &q.CategoryID,
		&q.ThumbnailURL, &q.IsActive, &q.Status, &q.CreatorID, &q.TotalAttempts, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrNotFound
	}
	if err != nil {
		return Quiz{}, err
	}

	qrows, err := db.QueryContext(ctx, `SELECT id, question_text, question_type, question_image_url, order_number, points, reference_answer
		FROM questions WHERE quiz_id = $1 ORDER BY order_number`, id)
	if err != nil {
		return Quiz{}, err
	}
	defer qrows.Close()
	byID := map[string]int{}
	for qrows.Next() {
		var qu Question
		if err := qrows.Scan(&qu.ID, &qu.Text, &qu.Type, &qu.ImageURL, &qu.OrderNumber, &qu.Points, &qu.ReferenceAnswer); err != nil {
			return Quiz{}, err
		}
		byID[qu.ID] = len(q.Questions)
		q.Questions = append(q.Questions, qu)
	}
	if err := qrows.Err(); err != nil {
		return Quiz{}, err
	}

	arows, err := db.QueryContext(ctx, `SELECT a.id, a.question_id, a.answer_text, a.answer_image_url, a.is_correct, a.order_number
		FROM answers a JOIN questions qu ON a.question_id = qu.id
		WHERE qu.quiz_id = $1 ORDER BY a.order_number`, id)
	if err != nil {
		return Quiz{}, err
	}
	defer arows.Close()
	for arows.Next() {
		var (
			a   Answer
			qid string
		)
		if err := arows.Scan(&a.ID, &qid, &a.Text, &a.ImageURL, &a.IsCorrect, &a.OrderNumber); err != nil {
			return Quiz{}, err
		}
		if i, ok := byID[qid]; ok {
			q.Questions[i].Answers = append(q.Questions[i].Answers, a)
		}
	}
	return q, arows.Err()
}

func (s *SQLStore) CreateQuiz(ctx context.Context, q *Quiz) error {
	NormalizeOrder(q)
	q.ID = uuid.NewString()
	q.CreatedAt = time.Now().Unix()
	// Drafts are never active in the public catalog.
	if q.Status == StatusDraft {
		q.IsActive = false
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO quizzes (id, title, description, category_id, thumbnail_url, is_active, status, creator_id, total_attempts, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,$9)`,
		q.ID, q.Title, q.Description, q.CategoryID, q.ThumbnailURL, q.IsActive, q.Status, q.CreatorID, q.CreatedAt)
	if err != nil {
		return err
	}
	if err := insertQuestions(ctx, tx, q); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, q *Quiz, creatorID string) error {
	NormalizeOrder(q)
	if q.Status == StatusDraft {
		q.IsActive = false
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE quizzes SET title=$1, description=$2, category_id=$3, thumbnail_url=$4, is_active=$5, status=$6
		WHERE id=$7 AND creator_id=$8`,
		q.Title, q.Description, q.CategoryID, q.ThumbnailURL, q.IsActive, q.Status, q.ID, creatorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	// Replace the question set wholesale; answers and stale responses cascade.
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id=$1`, q.ID); err != nil {
		return err
	}
	if err := insertQuestions(ctx, tx, q); err != nil {
		return err
	}
	return tx.Commit()
}

func insertQuestions(ctx context.Context, tx *sql.Tx, q *Quiz) error {
	for i := range q.Questions {
		qu := &q.Questions[i]
		qu.ID = uuid.NewString()
		_, err := tx.ExecContext(ctx, `INSERT INTO questions (id, quiz_id, question_text, question_type, question_image_url, order_number, points, reference_answer)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			qu.ID, q.ID, qu.Text, qu.Type, qu.ImageURL, qu.OrderNumber, qu.Points, qu.ReferenceAnswer)
		if err != nil {
			return err
		}
		for a := range qu.Answers {
			an := &qu.Answers[a]
			an.ID = uuid.NewString()
			_, err := tx.ExecContext(ctx, `INSERT INTO answers (id, question_id, answer_text, answer_image_url, is_correct, order_number)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				an.ID, qu.ID, an.Text, an.ImageURL, an.IsCorrect, an.OrderNumber)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id, creatorID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1 AND creator_id=$2`, id, creatorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) GetQuizStats(ctx context.Context, id, creatorID string) (QuizStats, error) {
	var st QuizStats
	err := s.db.QueryRowContext(ctx, `SELECT id, title, total_attempts FROM quizzes WHERE id=$1 AND creator_id=$2`,
		id, creatorID).Scan(&st.QuizID, &st.Title, &st.TotalAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return QuizStats{}, ErrNotFound
	}
	if err != nil {
		return QuizStats{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, user_full_name, score, created_at
		FROM quiz_attempts WHERE quiz_id=$1 AND status='completed' ORDER BY created_at DESC`, id)
	if err != nil {
		return QuizStats{}, err
	}
	defer rows.Close()
	st.Attempts = []AttemptStat{}
	for rows.Next() {
		var a AttemptStat
		if err := rows.Scan(&a.ID, &a.UserFullName, &a.Score, &a.CreatedAt); err != nil {
			return QuizStats{}, err
		}
		st.Attempts = append(st.Attempts, a)
	}
	return st, rows.Err()
}

// SubmitAttempt grades the submission and performs the attempt insert, the
// response fan-out and the score backfill inside one transaction, so a
// failure at any step leaves no partial attempt behind. Concurrent
// submissions never interfere: every write set is keyed by a fresh attempt
// id.
func (s *SQLStore) SubmitAttempt(ctx context.Context, quizID string, sub Submission) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	q, err := s.getQuiz(ctx, tx, quizID, true)
	if err != nil {
		return Attempt{}, err
	}

	known := map[string]bool{}
	for i := range q.Questions {
		known[q.Questions[i].ID] = true
	}
	for qid := range sub.Answers {
		if !known[qid] {
			return Attempt{}, fmt.Errorf("%w: unknown question %s", ErrInvalidSubmission, qid)
		}
	}

	var (
		total     int
		earned    int
		responses []Response
	)
	for i := range q.Questions {
		qu := &q.Questions[i]
		total += qu.Points

		ans, ok := sub.Answers[qu.ID]
		if !ok {
			continue // unanswered: no rows, nothing earned
		}
		res, err := s.grader.Grade(gradingQuestion(qu), grading.Submitted{
			AnswerID:  ans.AnswerID,
			AnswerIDs: ans.AnswerIDs,
			Text:      ans.Text,
		})
		if err != nil {
			return Attempt{}, fmt.Errorf("%w: question %s: %s", ErrInvalidSubmission, qu.ID, err)
		}
		earned += res.EarnedPoints
		for _, row := range res.Rows {
			responses = append(responses, Response{
				QuestionID:   qu.ID,
				AnswerID:     row.AnswerID,
				TextResponse: row.TextResponse,
				IsCorrect:    row.IsCorrect,
				PointsEarned: row.PointsEarned,
			})
		}
	}

	a := Attempt{
		ID:           uuid.NewString(),
		QuizID:       quizID,
		UserID:       sub.UserID,
		UserFullName: sub.UserFullName,
		Status:       "completed",
		CreatedAt:    time.Now().Unix(),
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO quiz_attempts (id, quiz_id, user_id, user_full_name, status, score, created_at)
		VALUES ($1,$2,$3,$4,$5,0,$6)`,
		a.ID, a.QuizID, a.UserID, a.UserFullName, a.Status, a.CreatedAt)
	if err != nil {
		return Attempt{}, err
	}
	for i := range responses {
		responses[i].AttemptID = a.ID
		r := &responses[i]
		_, err := tx.ExecContext(ctx, `INSERT INTO quiz_responses (attempt_id, question_id, answer_id, text_response, is_correct, points_earned)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			r.AttemptID, r.QuestionID, r.AnswerID, r.TextResponse, r.IsCorrect, r.PointsEarned)
		if err != nil {
			return Attempt{}, err
		}
	}

	a.Score = grading.Score(earned, total)
	if _, err := tx.ExecContext(ctx, `UPDATE quiz_attempts SET score=$1 WHERE id=$2`, a.Score, a.ID); err != nil {
		return Attempt{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE quizzes SET total_attempts = total_attempts + 1 WHERE id=$1`, quizID); err != nil {
		return Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func gradingQuestion(qu *Question) grading.Q {
	gq := grading.Q{ID: qu.ID, Type: qu.Type, Points: qu.Points}
	for _, a := range qu.Answers {
		gq.Options = append(gq.Options, grading.Option{ID: a.ID, Correct: a.IsCorrect})
	}
	return gq
}

func (s *SQLStore) GetAttempt(ctx context.Context, attemptID string) (Attempt, []Response, error) {
	var a Attempt
	err := s.db.QueryRowContext(ctx, `SELECT id, quiz_id, user_id, user_full_name, status, score, created_at
		FROM quiz_attempts WHERE id=$1`, attemptID).
		Scan(&a.ID, &a.QuizID, &a.UserID, &a.UserFullName, &a.Status, &a.Score, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, nil, ErrNotFound
	}
	if err != nil {
		return Attempt{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT attempt_id, question_id, answer_id, text_response, is_correct, points_earned
		FROM quiz_responses WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return Attempt{}, nil, err
	}
	defer rows.Close()
	var responses []Response
	for rows.Next() {
		var r Response
		if err := rows.Scan(&r.AttemptID, &r.QuestionID, &r.AnswerID, &r.TextResponse, &r.IsCorrect, &r.PointsEarned); err != nil {
			return Attempt{}, nil, err
		}
		responses = append(responses, r)
	}
	return a, responses, rows.Err()
}

func (s *SQLStore) UpsertPreview(ctx context.Context, p *Preview) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `INSERT INTO quiz_previews (id, user_id, quiz_data, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET quiz_data=EXCLUDED.quiz_data, created_at=EXCLUDED.created_at
		WHERE quiz_previews.user_id=EXCLUDED.user_id`,
		p.ID, p.UserID, string(p.QuizData), p.CreatedAt)
	return err
}

func (s *SQLStore) GetPreview(ctx context.Context, id, userID string) (Preview, error) {
	var (
		p    Preview
		data string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, quiz_data, created_at FROM quiz_previews WHERE id=$1 AND user_id=$2`,
		id, userID).Scan(&p.ID, &p.UserID, &data, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Preview{}, ErrNotFound
	}
	if err != nil {
		return Preview{}, err
	}
	p.QuizData = []byte(data)
	return p, nil
}

func (s *SQLStore) DeletePreview(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quiz_previews WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolLit(driver string, v bool) string {
	// sqlite stores booleans as integers; postgres wants TRUE/FALSE.
	if driver == "postgres" {
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	if v {
		return "1"
	}
	return "0"
}

package quiz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skirja/tadsheen-quiz/internal/grading"
)

type memoryStore struct {
	mu         sync.RWMutex
	grader     grading.Grader
	categories []Category
	quizzes    map[string]Quiz
	attempts   map[string]Attempt
	responses  map[string][]Response // attempt ID -> rows
	previews   map[string]Preview
}

// NewInMemoryStore backs the Store interface with maps; it mirrors the SQL
// store's semantics and exists for tests and local experiments.
func NewInMemoryStore(categories ...Category) Store {
	return &memoryStore{
		grader:     grading.NewGrader(),
		categories: categories,
		quizzes:    map[string]Quiz{},
		attempts:   map[string]Attempt{},
		responses:  map[string][]Response{},
		previews:   map[string]Preview{},
	}
}

func (m *memoryStore) ListCategories(ctx context.Context) ([]Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Category(nil), m.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]QuizSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []Quiz
	for _, q := range m.quizzes {
		if opts.PublicOnly && (q.Status != StatusPublished || !q.IsActive) {
			continue
		}
		if opts.CreatorID != "" && q.CreatorID != opts.CreatorID {
			continue
		}
		if opts.CategoryID != "" && q.CategoryID != opts.CategoryID {
			continue
		}
		if s := strings.TrimSpace(opts.Q); s != "" &&
			!strings.Contains(strings.ToLower(q.Title), strings.ToLower(s)) {
			continue
		}
		all = append(all, q)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt > all[j].CreatedAt })

	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out := []QuizSummary{}
	for i, q := range all {
		if i < opts.Offset {
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, QuizSummary{
			ID: q.ID, Title: q.Title, Description: q.Description,
			CategoryID: q.CategoryID, ThumbnailURL: q.ThumbnailURL,
			IsActive: q.IsActive, Status: q.Status,
			QuestionCount: len(q.Questions), TotalAttempts: q.TotalAttempts,
			CreatedAt: q.CreatedAt,
		})
	}
	return out, nil
}

func (m *memoryStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return cloneQuiz(q), nil
}

func (m *memoryStore) GetPublishedQuiz(ctx context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok || q.Status != StatusPublished || !q.IsActive {
		return Quiz{}, ErrNotFound
	}
	out := cloneQuiz(q)
	for i := range out.Questions {
		out.Questions[i].ReferenceAnswer = ""
		for a := range out.Questions[i].Answers {
			out.Questions[i].Answers[a].IsCorrect = false
		}
	}
	return out, nil
}

func (m *memoryStore) CreateQuiz(ctx context.Context, q *Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	NormalizeOrder(q)
	q.ID = uuid.NewString()
	q.CreatedAt = time.Now().Unix()
	if q.Status == StatusDraft {
		q.IsActive = false
	}
	assignIDs(q)
	m.quizzes[q.ID] = cloneQuiz(*q)
	return nil
}

func (m *memoryStore) UpdateQuiz(ctx context.Context, q *Quiz, creatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.quizzes[q.ID]
	if !ok || old.CreatorID != creatorID {
		return ErrNotFound
	}
	NormalizeOrder(q)
	if q.Status == StatusDraft {
		q.IsActive = false
	}
	assignIDs(q)
	q.CreatorID = old.CreatorID
	q.CreatedAt = old.CreatedAt
	q.TotalAttempts = old.TotalAttempts
	m.quizzes[q.ID] = cloneQuiz(*q)
	return nil
}

func (m *memoryStore) DeleteQuiz(ctx context.Context, id, creatorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok || q.CreatorID != creatorID {
		return ErrNotFound
	}
	delete(m.quizzes, id)
	for aid, a := range m.attempts {
		if a.QuizID == id {
			delete(m.attempts, aid)
			delete(m.responses, aid)
		}
	}
	return nil
}

func (m *memoryStore) GetQuizStats(ctx context.Context, id, creatorID string) (QuizStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok || q.CreatorID != creatorID {
		return QuizStats{}, ErrNotFound
	}
	st := QuizStats{QuizID: q.ID, Title: q.Title, TotalAttempts: q.TotalAttempts, Attempts: []AttemptStat{}}
	for _, a := range m.attempts {
		if a.QuizID == id && a.Status == "completed" {
			st.Attempts = append(st.Attempts, AttemptStat{
				ID: a.ID, UserFullName: a.UserFullName, Score: a.Score, CreatedAt: a.CreatedAt,
			})
		}
	}
	sort.Slice(st.Attempts, func(i, j int) bool { return st.Attempts[i].CreatedAt > st.Attempts[j].CreatedAt })
	return st, nil
}

func (m *memoryStore) SubmitAttempt(ctx context.Context, quizID string, sub Submission) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[quizID]
	if !ok || q.Status != StatusPublished || !q.IsActive {
		return Attempt{}, ErrNotFound
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

	a := Attempt{
		ID:           uuid.NewString(),
		QuizID:       quizID,
		UserID:       sub.UserID,
		UserFullName: sub.UserFullName,
		Status:       "completed",
		CreatedAt:    time.Now().Unix(),
	}
	var (
		total, earned int
		responses     []Response
	)
	for i := range q.Questions {
		qu := &q.Questions[i]
		total += qu.Points
		ans, ok := sub.Answers[qu.ID]
		if !ok {
			continue
		}
		res, err := m.grader.Grade(gradingQuestion(qu), grading.Submitted{
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
				AttemptID:    a.ID,
				QuestionID:   qu.ID,
				AnswerID:     row.AnswerID,
				TextResponse: row.TextResponse,
				IsCorrect:    row.IsCorrect,
				PointsEarned: row.PointsEarned,
			})
		}
	}
	a.Score = grading.Score(earned, total)
	m.attempts[a.ID] = a
	m.responses[a.ID] = responses
	q.TotalAttempts++
	m.quizzes[quizID] = q
	return a, nil
}

func (m *memoryStore) GetAttempt(ctx context.Context, attemptID string) (Attempt, []Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, nil, ErrNotFound
	}
	return a, append([]Response(nil), m.responses[attemptID]...), nil
}

func (m *memoryStore) UpsertPreview(ctx context.Context, p *Preview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if old, ok := m.previews[p.ID]; ok && old.UserID != p.UserID {
		return nil
	}
	p.CreatedAt = time.Now().Unix()
	m.previews[p.ID] = *p
	return nil
}

func (m *memoryStore) GetPreview(ctx context.Context, id, userID string) (Preview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.previews[id]
	if !ok || p.UserID != userID {
		return Preview{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) DeletePreview(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.previews[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(m.previews, id)
	return nil
}

func assignIDs(q *Quiz) {
	for i := range q.Questions {
		q.Questions[i].ID = uuid.NewString()
		for a := range q.Questions[i].Answers {
			q.Questions[i].Answers[a].ID = uuid.NewString()
		}
	}
}

func cloneQuiz(q Quiz) Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qu := range q.Questions {
		cq := qu
		cq.Answers = append([]Answer(nil), qu.Answers...)
		out.Questions[i] = cq
	}
	return out
}

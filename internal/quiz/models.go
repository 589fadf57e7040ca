package quiz

// Question types.
const (
	TypeSingleChoice   = "single_choice"
	TypeMultipleChoice = "multiple_choice"
	TypeLongAnswer     = "long_answer"
)

// Quiz statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Answer struct {
	ID          string `json:"id"`
	Text        string `json:"answer_text"`
	ImageURL    string `json:"answer_image_url,omitempty"`
	IsCorrect   bool   `json:"is_correct,omitempty"`
	OrderNumber int    `json:"order_number"`
}

type Question struct {
	ID          string `json:"id"`
	Text        string `json:"question_text"`
	Type        string `json:"question_type"` // single_choice|multiple_choice|long_answer
	ImageURL    string `json:"question_image_url,omitempty"`
	OrderNumber int    `json:"order_number"`
	Points      int    `json:"points"`

	// Choice types own an ordered sequence of answers; long_answer carries a
	// creator-supplied reference answer for manual grading instead.
	Answers         []Answer `json:"answers,omitempty"`
	ReferenceAnswer string   `json:"reference_answer,omitempty"`
}

type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CategoryID   string     `json:"category_id"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	IsActive     bool       `json:"is_active"`
	Status       string     `json:"status"` // draft|published
	CreatorID    string     `json:"creator_id,omitempty"`
	Questions    []Question `json:"questions"`

	TotalAttempts int   `json:"total_attempts"`
	CreatedAt     int64 `json:"created_at,omitempty"`
}

// QuizSummary is the catalog/dashboard projection of a quiz.
type QuizSummary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	CategoryID    string `json:"category_id"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	IsActive      bool   `json:"is_active"`
	Status        string `json:"status"`
	QuestionCount int    `json:"question_count"`
	TotalAttempts int    `json:"total_attempts"`
	CreatedAt     int64  `json:"created_at"`
}

// SubmittedAnswer is one respondent answer to one question, tagged by the
// question type it answers: AnswerID for single_choice, AnswerIDs for
// multiple_choice, Text for long_answer.
type SubmittedAnswer struct {
	AnswerID  string   `json:"answer_id,omitempty"`
	AnswerIDs []string `json:"answer_ids,omitempty"`
	Text      string   `json:"text,omitempty"`
}

// Submission is one respondent's full pass over a quiz.
type Submission struct {
	UserID       string                     // empty for anonymous respondents
	UserFullName string                     `json:"user_full_name"`
	Answers      map[string]SubmittedAnswer `json:"answers"` // question ID -> answer
}

type Attempt struct {
	ID           string `json:"id"`
	QuizID       string `json:"quiz_id"`
	UserID       string `json:"user_id,omitempty"`
	UserFullName string `json:"user_full_name"`
	Status       string `json:"status"` // always "completed"
	Score        int    `json:"score"`  // percentage, 0..100
	CreatedAt    int64  `json:"created_at"`
}

// Response is one persisted answer row. Multiple_choice questions fan out to
// one row per selected answer; single_choice and long_answer store one row.
type Response struct {
	AttemptID    string `json:"attempt_id"`
	QuestionID   string `json:"question_id"`
	AnswerID     string `json:"answer_id,omitempty"`
	TextResponse string `json:"text_response,omitempty"`
	IsCorrect    bool   `json:"is_correct"`
	PointsEarned int    `json:"points_earned"`
}

// Preview holds an unsaved quiz document a creator parked while editing.
type Preview struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	QuizData  []byte `json:"quiz_data"`
	CreatedAt int64  `json:"created_at"`
}

// AttemptStat is one row of a creator's per-quiz statistics table.
type AttemptStat struct {
	ID           string `json:"id"`
	UserFullName string `json:"user_full_name"`
	Score        int    `json:"score"`
	CreatedAt    int64  `json:"created_at"`
}

// QuizStats is the aggregate a creator sees for one quiz.
type QuizStats struct {
	QuizID        string        `json:"quiz_id"`
	Title         string        `json:"title"`
	TotalAttempts int           `json:"total_attempts"`
	Attempts      []AttemptStat `json:"attempts"`
}

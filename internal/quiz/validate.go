package quiz

import (
	"fmt"
	"sort"
	"strings"
)

// FieldError reports one authoring violation against a specific field so the
// UI can attach it to the right input instead of failing the submission as a
// whole.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every violation found in one pass.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v *ValidationErrors) add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// Validate checks a quiz definition before it is persisted, draft or
// published. It returns nil or a ValidationErrors listing every violation.
func Validate(q *Quiz) error {
	var errs ValidationErrors

	if strings.TrimSpace(q.Title) == "" {
		errs.add("title", "title is required")
	}
	if strings.TrimSpace(q.Description) == "" {
		errs.add("description", "description is required")
	}
	if strings.TrimSpace(q.CategoryID) == "" {
		errs.add("category_id", "category is required")
	}
	if q.Status != StatusDraft && q.Status != StatusPublished {
		errs.add("status", "status must be draft or published")
	}

	for i := range q.Questions {
		validateQuestion(&q.Questions[i], fmt.Sprintf("questions[%d]", i), &errs)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateQuestion(qu *Question, field string, errs *ValidationErrors) {
	if strings.TrimSpace(qu.Text) == "" {
		errs.add(field+".question_text", "question text is required")
	}
	if qu.Points < 0 {
		errs.add(field+".points", "points must not be negative")
	}

	switch qu.Type {
	case TypeSingleChoice, TypeMultipleChoice:
		if len(qu.Answers) == 0 {
			errs.add(field+".answers", "at least one answer option is required")
			return
		}
		correct := 0
		for i := range qu.Answers {
			if strings.TrimSpace(qu.Answers[i].Text) == "" {
				errs.add(fmt.Sprintf("%s.answers[%d].answer_text", field, i), "answer text is required")
			}
			if qu.Answers[i].IsCorrect {
				correct++
			}
		}
		if qu.Type == TypeSingleChoice && correct != 1 {
			errs.add(field+".answers", "single_choice requires exactly one correct answer")
		}
		if qu.Type == TypeMultipleChoice && correct == 0 {
			errs.add(field+".answers", "multiple_choice requires at least one correct answer")
		}
	case TypeLongAnswer:
		if len(qu.Answers) > 0 {
			errs.add(field+".answers", "long_answer questions carry a reference answer, not answer options")
		}
	default:
		errs.add(field+".question_type", "unknown question type")
	}
}

// NormalizeOrder re-derives dense ascending order numbers starting at 1 for
// the quiz's questions and each question's answers. Existing order numbers
// decide the relative sequence; gaps and duplicates never survive a write.
func NormalizeOrder(q *Quiz) {
	sort.SliceStable(q.Questions, func(i, j int) bool {
		return q.Questions[i].OrderNumber < q.Questions[j].OrderNumber
	})
	for i := range q.Questions {
		q.Questions[i].OrderNumber = i + 1
		answers := q.Questions[i].Answers
		sort.SliceStable(answers, func(a, b int) bool {
			return answers[a].OrderNumber < answers[b].OrderNumber
		})
		for a := range answers {
			answers[a].OrderNumber = a + 1
		}
	}
}

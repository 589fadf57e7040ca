package quiz

import (
	"github.com/Skirja/tadsheen-quiz/internal/grading"
)

// QuestionReview is one question of an attempt reconstructed for display:
// what the respondent submitted and whether it was correct. Correctness is
// re-derived with the same rules the scoring engine applied; the aggregate
// score shown stays the one stored on the attempt.
type QuestionReview struct {
	Question  Question        `json:"question"`
	Answered  bool            `json:"answered"`
	Submitted SubmittedAnswer `json:"submitted"`
	Correct   bool            `json:"correct"`
}

// AttemptReview is the full result page payload. Questions carry their
// correctness flags so selected and correct options can be highlighted.
type AttemptReview struct {
	Attempt   Attempt          `json:"attempt"`
	Quiz      Quiz             `json:"quiz"`
	Questions []QuestionReview `json:"questions"`
}

// BuildReview reassembles a respondent's answer set from its normalized
// response rows. Multiple_choice fan-out rows are grouped back into an id
// set by question; single_choice yields one id; long_answer yields the
// stored text.
func BuildReview(q Quiz, a Attempt, rows []Response) AttemptReview {
	byQuestion := map[string][]Response{}
	for _, r := range rows {
		byQuestion[r.QuestionID] = append(byQuestion[r.QuestionID], r)
	}

	review := AttemptReview{Attempt: a, Quiz: q}
	for i := range q.Questions {
		qu := &q.Questions[i]
		qr := QuestionReview{Question: *qu}

		rs := byQuestion[qu.ID]
		if len(rs) > 0 {
			qr.Answered = true
			switch qu.Type {
			case TypeSingleChoice:
				qr.Submitted.AnswerID = rs[0].AnswerID
				qr.Correct = rs[0].AnswerID == correctAnswerID(qu)
			case TypeMultipleChoice:
				for _, r := range rs {
					qr.Submitted.AnswerIDs = append(qr.Submitted.AnswerIDs, r.AnswerID)
				}
				qr.Correct = grading.SetEqual(qr.Submitted.AnswerIDs, correctAnswerIDs(qu))
			case TypeLongAnswer:
				// Never auto-marked correct; graded manually downstream.
				qr.Submitted.Text = rs[0].TextResponse
			}
		}
		review.Questions = append(review.Questions, qr)
	}
	return review
}

func correctAnswerID(qu *Question) string {
	for _, a := range qu.Answers {
		if a.IsCorrect {
			return a.ID
		}
	}
	return ""
}

func correctAnswerIDs(qu *Question) []string {
	var out []string
	for _, a := range qu.Answers {
		if a.IsCorrect {
			out = append(out, a.ID)
		}
	}
	return out
}

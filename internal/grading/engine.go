package grading

import (
	"errors"
	"fmt"
	"math"
)

// Q is the minimal view of a question needed for grading. The quiz package
// converts its own question type into this before calling the grader.
type Q struct {
	ID      string
	Type    string // single_choice|multiple_choice|long_answer
	Points  int
	Options []Option // choice answers; empty for long_answer
}

// Option is one selectable answer with its correctness flag.
type Option struct {
	ID      string
	Correct bool
}

// Submitted is a respondent's answer to one question, tagged by question
// type: AnswerID for single_choice, AnswerIDs for multiple_choice, Text for
// long_answer. Only the field matching the question type is consulted.
type Submitted struct {
	AnswerID  string
	AnswerIDs []string
	Text      string
}

// Row is one response record to be persisted for the graded question.
// Multiple_choice fans out to one row per selected answer.
type Row struct {
	AnswerID     string
	TextResponse string
	IsCorrect    bool
	PointsEarned int
}

// Result is the outcome of grading a single question response.
type Result struct {
	Rows         []Row
	MaxPoints    int
	EarnedPoints int  // counted once per question, never per fan-out row
	Correct      bool // fully correct per the question type's rule
	NeedsManual  bool // long_answer: requires manual review downstream
}

var ErrUnknownAnswer = errors.New("answer does not belong to question")

// Strategy grades a single question.
type Strategy interface {
	Grade(q Q, sub Submitted) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(q Q, sub Submitted) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(q Q, sub Submitted) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}, fmt.Errorf("no strategy for question type %q", q.Type)
	}
	return s.Grade(q, sub)
}

// NewGrader installs the built-in strategies.
func NewGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			"single_choice":   singleChoiceStrategy{},
			"multiple_choice": multipleChoiceStrategy{},
			"long_answer":     longAnswerStrategy{},
		},
	}
}

// Score computes the aggregate percentage, rounded to the nearest integer.
// A quiz with no point-bearing questions scores 0 rather than dividing by
// zero.
func Score(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(earned) / float64(total) * 100))
}

// --- Strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q Q, sub Submitted) (Result, error) {
	res := Result{MaxPoints: q.Points}
	if sub.AnswerID == "" {
		return res, errors.New("single_choice requires exactly one answer id")
	}
	opt, ok := findOption(q.Options, sub.AnswerID)
	if !ok {
		return res, ErrUnknownAnswer
	}
	row := Row{AnswerID: sub.AnswerID, IsCorrect: opt.Correct}
	if opt.Correct {
		row.PointsEarned = q.Points
		res.EarnedPoints = q.Points
		res.Correct = true
	}
	res.Rows = []Row{row}
	return res, nil
}

type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(q Q, sub Submitted) (Result, error) {
	res := Result{MaxPoints: q.Points}
	selected := dedupe(sub.AnswerIDs)

	correctCount := 0
	for _, o := range q.Options {
		if o.Correct {
			correctCount++
		}
	}

	fully := len(selected) == correctCount && correctCount > 0
	for _, id := range selected {
		opt, ok := findOption(q.Options, id)
		if !ok {
			return Result{MaxPoints: q.Points}, ErrUnknownAnswer
		}
		if !opt.Correct {
			fully = false
		}
	}

	// Partial credit is not supported: either the submitted set equals the
	// correct set and every row carries the full point value, or every row
	// earns zero and is_correct reflects that one option in isolation.
	for _, id := range selected {
		opt, _ := findOption(q.Options, id)
		row := Row{AnswerID: id}
		if fully {
			row.IsCorrect = true
			row.PointsEarned = q.Points
		} else {
			row.IsCorrect = opt.Correct
		}
		res.Rows = append(res.Rows, row)
	}
	if fully {
		res.EarnedPoints = q.Points
		res.Correct = true
	}
	return res, nil
}

type longAnswerStrategy struct{}

func (longAnswerStrategy) Grade(q Q, sub Submitted) (Result, error) {
	// Stored verbatim; never auto-graded.
	return Result{
		MaxPoints:   q.Points,
		Rows:        []Row{{TextResponse: sub.Text}},
		NeedsManual: true,
	}, nil
}

// helpers

func findOption(opts []Option, id string) (Option, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// SetEqual reports whether two id sets contain the same members. Used both
// at submission time and when re-deriving correctness for a stored attempt.
func SetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]int{}
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, v := range seen {
		if v != 0 {
			return false
		}
	}
	return true
}

// Package quiz defines module evaluations and scores submitted answers.
package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidQuiz marks an evaluation definition that cannot be graded as written.
	ErrInvalidQuiz = errors.New("invalid evaluation definition")
	// ErrNoGradableQuestions is returned for evaluations made only of text questions.
	ErrNoGradableQuestions = errors.New("evaluation has no gradable questions")
)

// QuestionType discriminates how a question is answered and graded.
type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	Text           QuestionType = "text"
)

// Gradable reports whether answers to this question type are checked automatically.
func (t QuestionType) Gradable() bool {
	return t == SingleChoice || t == MultipleChoice
}

// Answer is a submitted or expected answer: one string, or a set of strings
// for multiple-choice questions. On the wire it is a JSON string or array.
type Answer struct {
	Values   []string
	multiple bool
}

// Single returns a one-string answer.
func Single(v string) Answer {
	return Answer{Values: []string{v}}
}

// Multiple returns a set answer. An empty call yields an empty selection.
func Multiple(vs ...string) Answer {
	return Answer{Values: append([]string{}, vs...), multiple: true}
}

// IsMultiple reports whether the answer was given as a list.
func (a Answer) IsMultiple() bool { return a.multiple }

// Text returns the single string value, or "" for list answers.
func (a Answer) Text() string {
	if a.multiple || len(a.Values) == 0 {
		return ""
	}
	return a.Values[0]
}

// Equal reports whether two answers have the same shape and values in order.
func (a Answer) Equal(b Answer) bool {
	return a.multiple == b.multiple && slices.Equal(a.Values, b.Values)
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.multiple {
		if a.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Text())
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = Answer{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var vs []string
		if err := json.Unmarshal(data, &vs); err != nil {
			return fmt.Errorf("decode answer list: %w", err)
		}
		*a = Multiple(vs...)
		return nil
	default:
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode answer: %w", err)
		}
		*a = Single(v)
		return nil
	}
}

// Question is one entry of an evaluation.
type Question struct {
	ID            string       `json:"id"`
	Question      string       `json:"question"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *Answer      `json:"correctAnswer,omitempty"`
}

// Evaluation is the quiz definition served for evaluacion* items.
type Evaluation struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// GradableCount returns the number of non-text questions.
func (e Evaluation) GradableCount() int {
	n := 0
	for _, q := range e.Questions {
		if q.Type.Gradable() {
			n++
		}
	}
	return n
}

// Question returns the question with the given id.
func (e Evaluation) Question(id string) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks the definition can be graded. Evaluations without any
// gradable question are rejected with ErrNoGradableQuestions.
func (e Evaluation) Validate() error {
	seen := make(map[string]bool, len(e.Questions))
	for i, q := range e.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question %d has no id", ErrInvalidQuiz, i)
		}
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuiz, q.ID)
		}
		seen[q.ID] = true

		switch q.Type {
		case Text:
			continue
		case SingleChoice, MultipleChoice:
		default:
			return fmt.Errorf("%w: question %q has unknown type %q", ErrInvalidQuiz, q.ID, q.Type)
		}

		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %q needs options", ErrInvalidQuiz, q.ID)
		}
		if q.CorrectAnswer == nil {
			return fmt.Errorf("%w: question %q has no correct answer", ErrInvalidQuiz, q.ID)
		}
		if q.CorrectAnswer.IsMultiple() != (q.Type == MultipleChoice) {
			return fmt.Errorf("%w: question %q correct answer shape does not match %s", ErrInvalidQuiz, q.ID, q.Type)
		}
		if q.Type == MultipleChoice && len(q.CorrectAnswer.Values) == 0 {
			return fmt.Errorf("%w: question %q has an empty correct answer set", ErrInvalidQuiz, q.ID)
		}
		for _, v := range q.CorrectAnswer.Values {
			if !containsNormalized(q.Options, v) {
				return fmt.Errorf("%w: question %q correct answer %q is not an option", ErrInvalidQuiz, q.ID, v)
			}
		}
	}

	if e.GradableCount() == 0 {
		return ErrNoGradableQuestions
	}
	return nil
}

// Public returns a copy safe to show before submission: correct answers are removed.
func (e Evaluation) Public() Evaluation {
	out := Evaluation{Title: e.Title, Questions: make([]Question, len(e.Questions))}
	for i, q := range e.Questions {
		q.Options = append([]string(nil), q.Options...)
		q.CorrectAnswer = nil
		out.Questions[i] = q
	}
	return out
}

func containsNormalized(options []string, v string) bool {
	v = normalize(v)
	for _, o := range options {
		if normalize(o) == v {
			return true
		}
	}
	return false
}

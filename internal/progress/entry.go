// Package progress tracks per-user completion and evaluation results for
// every (module, item) pair of the course.
package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/p-n-ai/diplomado/internal/quiz"
)

// completedMarker is the stored form of a plain completion.
const completedMarker = "completed"

// EvaluationResult is a graded submission for an evaluacion* item.
type EvaluationResult struct {
	Score   float64                `json:"score"`
	Answers map[string]quiz.Answer `json:"answers"`
}

// Approved reports whether the result reaches the passing score.
func (r EvaluationResult) Approved() bool {
	return quiz.Approved(r.Score)
}

// Entry is the stored value for one (user, module, item) triple: either a
// plain completion or a graded result. Both count as completed.
// The zero value is a plain completion.
type Entry struct {
	result *EvaluationResult
}

// Completed returns a plain completion entry.
func Completed() Entry { return Entry{} }

// Graded returns an entry holding r.
func Graded(r EvaluationResult) Entry {
	if r.Answers == nil {
		r.Answers = map[string]quiz.Answer{}
	}
	return Entry{result: &r}
}

// Result returns the graded result, if the entry holds one.
func (e Entry) Result() (EvaluationResult, bool) {
	if e.result == nil {
		return EvaluationResult{}, false
	}
	return *e.result, true
}

// IsGraded reports whether the entry holds an evaluation result.
func (e Entry) IsGraded() bool { return e.result != nil }

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.result == nil {
		return json.Marshal(completedMarker)
	}
	return json.Marshal(e.result)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != completedMarker {
			return fmt.Errorf("unknown progress marker %q", s)
		}
		*e = Completed()
		return nil
	}

	var raw struct {
		Score   *float64               `json:"score"`
		Answers map[string]quiz.Answer `json:"answers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode evaluation result: %w", err)
	}
	if raw.Score == nil || raw.Answers == nil {
		return fmt.Errorf("evaluation result needs score and answers")
	}
	*e = Graded(EvaluationResult{Score: *raw.Score, Answers: raw.Answers})
	return nil
}

// FinalAIAnalysis is the outcome of the final AI-graded dilemma.
type FinalAIAnalysis struct {
	Analysis         string    `json:"analysis"`
	GeneratedDilemma string    `json:"generatedDilemma"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

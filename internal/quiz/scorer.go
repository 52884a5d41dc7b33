package quiz

import (
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// PassingScore is the minimum percentage that approves an evaluation.
const PassingScore = 70.0

// QuestionResult reports how one question was graded.
type QuestionResult struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Gradable      bool         `json:"gradable"`
	Correct       bool         `json:"correct"`
	Submitted     Answer       `json:"submitted"`
	CorrectAnswer *Answer      `json:"correctAnswer,omitempty"`
}

// Result is the outcome of scoring a submission.
type Result struct {
	Score     float64          `json:"score"`
	Correct   int              `json:"correct"`
	Gradable  int              `json:"gradable"`
	Approved  bool             `json:"approved"`
	Questions []QuestionResult `json:"questions"`
}

// Approved reports whether score reaches PassingScore.
func Approved(score float64) bool {
	return score >= PassingScore
}

// FormatScore renders a score with two decimals for display.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}

// Score grades answers against eval. Single-choice answers must match exactly
// after Unicode normalisation. Multiple-choice answers are compared as sets;
// duplicates in the submission are ignored and a non-list submission counts
// as an empty selection. Text questions are excluded from the score.
// The score is correct/gradable*100 and is not rounded.
func Score(eval Evaluation, answers map[string]Answer) (Result, error) {
	gradable := eval.GradableCount()
	if gradable == 0 {
		return Result{}, ErrNoGradableQuestions
	}

	res := Result{Gradable: gradable, Questions: make([]QuestionResult, 0, len(eval.Questions))}
	for _, q := range eval.Questions {
		submitted := answers[q.ID]
		qr := QuestionResult{
			ID:            q.ID,
			Type:          q.Type,
			Gradable:      q.Type.Gradable(),
			Submitted:     submitted,
			CorrectAnswer: q.CorrectAnswer,
		}

		switch q.Type {
		case SingleChoice:
			qr.Correct = q.CorrectAnswer != nil && !submitted.IsMultiple() &&
				normalize(submitted.Text()) == normalize(q.CorrectAnswer.Text())
		case MultipleChoice:
			var got []string
			if submitted.IsMultiple() {
				got = submitted.Values
			}
			var want []string
			if q.CorrectAnswer != nil {
				want = q.CorrectAnswer.Values
			}
			qr.Correct = slices.Equal(normalizedSet(got), normalizedSet(want))
		}

		if qr.Correct {
			res.Correct++
		}
		res.Questions = append(res.Questions, qr)
	}

	res.Score = float64(res.Correct) / float64(gradable) * 100
	res.Approved = Approved(res.Score)
	return res, nil
}

func normalize(s string) string {
	return norm.NFC.String(s)
}

// normalizedSet returns the sorted, deduplicated NFC forms of vs.
func normalizedSet(vs []string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, normalize(v))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

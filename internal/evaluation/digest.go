// Package evaluation assembles a learner's graded results into a digest and
// drives the final AI evaluation: dilemma generation and analysis.
package evaluation

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/p-n-ai/diplomado/internal/progress"
	"github.com/p-n-ai/diplomado/internal/quiz"
)

// MinFreeTextLength is the rune count above which a free-text answer is
// quoted verbatim in the digest.
const MinFreeTextLength = 30

// EvaluationLookup returns the quiz definition of a module. It lets the
// digest tell free-text answers apart from single-choice ones.
type EvaluationLookup func(moduleID string) (quiz.Evaluation, error)

// FreeTextAnswer is a long written answer quoted in the digest.
type FreeTextAnswer struct {
	QuestionID string `json:"questionId"`
	Question   string `json:"question,omitempty"`
	Answer     string `json:"answer"`
}

// ItemDigest summarises one graded item.
type ItemDigest struct {
	ModuleID string           `json:"moduleId"`
	ItemID   string           `json:"itemId"`
	Score    float64          `json:"score"`
	Approved bool             `json:"approved"`
	FreeText []FreeTextAnswer `json:"freeText,omitempty"`
}

// Digest is the cross-module summary handed to the analysis prompt.
type Digest struct {
	Items []ItemDigest `json:"items"`
}

// Empty reports whether the learner has no graded items.
func (d Digest) Empty() bool { return len(d.Items) == 0 }

// BuildDigest walks every module and item of doc in sorted order and keeps
// only graded entries. Plain completions are skipped. lookup may be nil;
// without it every non-list answer longer than MinFreeTextLength is quoted.
func BuildDigest(doc progress.UserProgress, lookup EvaluationLookup) Digest {
	d := Digest{Items: []ItemDigest{}}
	for _, moduleID := range doc.ModuleIDs() {
		var eval *quiz.Evaluation
		if lookup != nil {
			if e, err := lookup(moduleID); err == nil {
				eval = &e
			}
		}
		for _, itemID := range doc.ItemIDs(moduleID) {
			entry, _ := doc.Entry(moduleID, itemID)
			result, ok := entry.Result()
			if !ok {
				continue
			}
			d.Items = append(d.Items, ItemDigest{
				ModuleID: moduleID,
				ItemID:   itemID,
				Score:    result.Score,
				Approved: result.Approved(),
				FreeText: freeText(result.Answers, eval),
			})
		}
	}
	return d
}

func freeText(answers map[string]quiz.Answer, eval *quiz.Evaluation) []FreeTextAnswer {
	var out []FreeTextAnswer
	for _, id := range slices.Sorted(maps.Keys(answers)) {
		a := answers[id]
		if a.IsMultiple() {
			continue
		}
		var text string
		if eval != nil {
			q, ok := eval.Question(id)
			if !ok || q.Type != quiz.Text {
				continue
			}
			text = q.Question
		}
		answer := strings.TrimSpace(a.Text())
		if utf8.RuneCountInString(answer) <= MinFreeTextLength {
			continue
		}
		out = append(out, FreeTextAnswer{QuestionID: id, Question: text, Answer: answer})
	}
	return out
}

// String renders the digest as the plain-text block used in prompts.
func (d Digest) String() string {
	if d.Empty() {
		return "El participante no tiene evaluaciones modulares calificadas."
	}
	var b strings.Builder
	for _, item := range d.Items {
		status := "no aprobado"
		if item.Approved {
			status = "aprobado"
		}
		fmt.Fprintf(&b, "- Módulo %s, %s: %s%% (%s)\n", item.ModuleID, item.ItemID, quiz.FormatScore(item.Score), status)
		for _, ft := range item.FreeText {
			label := ft.QuestionID
			if ft.Question != "" {
				label = ft.Question
			}
			fmt.Fprintf(&b, "  * %s: %q\n", label, ft.Answer)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

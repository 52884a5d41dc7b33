package portal

import (
	"context"
	"errors"
	"strings"

	"github.com/p-n-ai/diplomado/internal/activity"
	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/evaluation"
	"github.com/p-n-ai/diplomado/internal/progress"
)

// ErrMissingDilemma is returned when a final response arrives without the
// dilemma it answers.
var ErrMissingDilemma = errors.New("dilemma is required")

// FinalEvaluationView is the state of the caller's final evaluation.
type FinalEvaluationView struct {
	Completed bool                      `json:"completed"`
	Dilemma   string                    `json:"dilemma"`
	Analysis  *progress.FinalAIAnalysis `json:"analysis,omitempty"`
}

// FinalEvaluation returns the stored analysis when the caller has one,
// otherwise a freshly generated dilemma.
func (p *Portal) FinalEvaluation(ctx context.Context, pr auth.Principal) (FinalEvaluationView, error) {
	existing, err := p.progress.GetFinalAIAnalysis(ctx, pr.ID)
	if err != nil {
		return FinalEvaluationView{}, err
	}
	if existing != nil {
		return FinalEvaluationView{Completed: true, Dilemma: existing.GeneratedDilemma, Analysis: existing}, nil
	}

	dilemma, err := p.evaluation.GenerateDilemma(ctx, pr.ID)
	if err != nil {
		return FinalEvaluationView{}, err
	}
	return FinalEvaluationView{Dilemma: dilemma}, nil
}

// SubmitFinalEvaluation analyses the caller's response to dilemma together
// with their modular results and stores the analysis. Nothing is stored
// when the gateway fails.
func (p *Portal) SubmitFinalEvaluation(ctx context.Context, pr auth.Principal, dilemma, response string) (progress.FinalAIAnalysis, error) {
	if strings.TrimSpace(response) == "" {
		return progress.FinalAIAnalysis{}, evaluation.ErrEmptyResponse
	}
	if strings.TrimSpace(dilemma) == "" {
		return progress.FinalAIAnalysis{}, ErrMissingDilemma
	}

	existing, err := p.progress.GetFinalAIAnalysis(ctx, pr.ID)
	if err != nil {
		return progress.FinalAIAnalysis{}, err
	}
	if existing != nil {
		return progress.FinalAIAnalysis{}, evaluation.ErrAlreadyCompleted
	}

	doc, err := p.progress.GetUserProgress(ctx, pr.ID)
	if err != nil {
		return progress.FinalAIAnalysis{}, err
	}
	digest := evaluation.BuildDigest(doc, p.content.Evaluation)

	analysis, err := p.evaluation.Analyze(ctx, pr.ID, digest, dilemma, response)
	if err != nil {
		return progress.FinalAIAnalysis{}, err
	}

	result := progress.FinalAIAnalysis{Analysis: analysis, GeneratedDilemma: dilemma}
	if err := p.progress.SaveFinalAIAnalysis(ctx, pr.ID, result); err != nil {
		return progress.FinalAIAnalysis{}, err
	}
	saved, err := p.progress.GetFinalAIAnalysis(ctx, pr.ID)
	if err != nil {
		return progress.FinalAIAnalysis{}, err
	}
	if saved != nil {
		result = *saved
	}

	p.emit(activity.Event{
		UserID:    pr.ID,
		EventType: activity.FinalAnalysisSaved,
		Data:      map[string]any{"graded_items": len(digest.Items)},
	})
	return result, nil
}

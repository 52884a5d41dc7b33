package portal

import (
	"context"
	"fmt"

	"github.com/p-n-ai/diplomado/internal/activity"
	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/content"
	"github.com/p-n-ai/diplomado/internal/curriculum"
	"github.com/p-n-ai/diplomado/internal/progress"
	"github.com/p-n-ai/diplomado/internal/quiz"
)

// ItemView is everything the viewer needs to render one course item.
type ItemView struct {
	Item      curriculum.MenuItem        `json:"item"`
	Content   content.Content            `json:"content"`
	Completed bool                       `json:"completed"`
	Result    *progress.EvaluationResult `json:"result,omitempty"`
	Approved  bool                       `json:"approved"`
	Previous  *curriculum.MenuItem       `json:"previous,omitempty"`
	Next      *curriculum.MenuItem       `json:"next,omitempty"`
}

func (p *Portal) lookup(pr auth.Principal, moduleID, itemID string) (curriculum.MenuItem, error) {
	item, err := p.outline.Lookup(moduleID, itemID)
	if err != nil {
		return curriculum.MenuItem{}, err
	}
	if !p.outline.Accessible(item, string(pr.Role)) {
		return curriculum.MenuItem{}, auth.ErrForbidden
	}
	return item, nil
}

// ViewItem resolves the content of an item along with the caller's progress
// on it. Quiz answer keys are withheld until the caller has a result.
func (p *Portal) ViewItem(ctx context.Context, pr auth.Principal, moduleID, itemID string) (ItemView, error) {
	item, err := p.lookup(pr, moduleID, itemID)
	if err != nil {
		return ItemView{}, err
	}
	c, err := p.content.Resolve(moduleID, itemID)
	if err != nil {
		return ItemView{}, err
	}

	completed, err := p.progress.IsCompleted(ctx, pr.ID, moduleID, itemID)
	if err != nil {
		return ItemView{}, err
	}
	result, err := p.progress.GetEvaluationResult(ctx, pr.ID, moduleID, itemID)
	if err != nil {
		return ItemView{}, err
	}
	if c.Evaluation != nil && result == nil {
		public := c.Evaluation.Public()
		c.Evaluation = &public
	}

	prev, next, err := p.outline.Neighbors(moduleID, itemID)
	if err != nil {
		return ItemView{}, err
	}

	view := ItemView{
		Item:      item,
		Content:   c,
		Completed: completed,
		Result:    result,
		Previous:  prev,
		Next:      next,
	}
	if result != nil {
		view.Approved = result.Approved()
	}
	return view, nil
}

// CompleteItem marks a non-evaluation item as completed for the caller.
func (p *Portal) CompleteItem(ctx context.Context, pr auth.Principal, moduleID, itemID string) error {
	if _, err := p.lookup(pr, moduleID, itemID); err != nil {
		return err
	}
	if content.IsEvaluationItem(itemID) {
		return progress.ErrEvaluationItem
	}
	if err := p.progress.MarkCompleted(ctx, pr.ID, moduleID, itemID); err != nil {
		return err
	}
	p.emit(activity.Event{UserID: pr.ID, ModuleID: moduleID, ItemID: itemID, EventType: activity.ItemCompleted})
	return nil
}

// Submission is the graded outcome of an evaluation.
type Submission struct {
	quiz.Result
	Evaluation quiz.Evaluation `json:"evaluation"`
}

// SubmitEvaluation grades the caller's answers and stores the result.
// A second submission for the same item is refused.
func (p *Portal) SubmitEvaluation(ctx context.Context, pr auth.Principal, moduleID, itemID string, answers map[string]quiz.Answer) (Submission, error) {
	if _, err := p.lookup(pr, moduleID, itemID); err != nil {
		return Submission{}, err
	}
	if !content.IsEvaluationItem(itemID) {
		return Submission{}, fmt.Errorf("%w: %s is not an evaluation", content.ErrUnknownContent, itemID)
	}

	existing, err := p.progress.GetEvaluationResult(ctx, pr.ID, moduleID, itemID)
	if err != nil {
		return Submission{}, err
	}
	if existing != nil {
		return Submission{}, ErrAlreadySubmitted
	}

	eval, err := p.content.Evaluation(moduleID)
	if err != nil {
		return Submission{}, err
	}
	res, err := quiz.Score(eval, answers)
	if err != nil {
		return Submission{}, err
	}

	stored := make(map[string]quiz.Answer, len(eval.Questions))
	for _, q := range eval.Questions {
		if a, ok := answers[q.ID]; ok {
			stored[q.ID] = a
		}
	}
	if err := p.progress.SaveEvaluationResult(ctx, pr.ID, moduleID, itemID, progress.EvaluationResult{
		Score:   res.Score,
		Answers: stored,
	}); err != nil {
		return Submission{}, err
	}

	p.emit(activity.Event{
		UserID:    pr.ID,
		ModuleID:  moduleID,
		ItemID:    itemID,
		EventType: activity.EvaluationSubmitted,
		Data:      map[string]any{"score": res.Score, "approved": res.Approved},
	})
	return Submission{Result: res, Evaluation: eval}, nil
}

package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/diplomado/internal/content"
)

// Tracker implements the progress operations over a Store. A corrupt
// document clears the whole store and the operation proceeds on empty state.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a tracker over store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// GetAll returns every user's progress.
func (t *Tracker) GetAll(ctx context.Context) (map[string]UserProgress, error) {
	all, err := t.store.List(ctx)
	if errors.Is(err, ErrCorrupt) {
		if err := t.recover(ctx, err); err != nil {
			return nil, err
		}
		return map[string]UserProgress{}, nil
	}
	if err != nil {
		return nil, err
	}
	return all, nil
}

// GetUserProgress returns the user's progress, empty when none is stored.
func (t *Tracker) GetUserProgress(ctx context.Context, userID string) (UserProgress, error) {
	u, _, err := t.store.Get(ctx, userID)
	if errors.Is(err, ErrCorrupt) {
		if err := t.recover(ctx, err); err != nil {
			return UserProgress{}, err
		}
		return NewUserProgress(), nil
	}
	if err != nil {
		return UserProgress{}, err
	}
	return u, nil
}

// IsCompleted reports whether the item has a completion or a graded result.
func (t *Tracker) IsCompleted(ctx context.Context, userID, moduleID, itemID string) (bool, error) {
	u, err := t.GetUserProgress(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := u.Entry(moduleID, itemID)
	return ok, nil
}

// GetEvaluationResult returns the graded result for the item, or nil.
func (t *Tracker) GetEvaluationResult(ctx context.Context, userID, moduleID, itemID string) (*EvaluationResult, error) {
	u, err := t.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	e, _ := u.Entry(moduleID, itemID)
	r, ok := e.Result()
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// MarkCompleted records a plain completion, replacing any stored entry.
func (t *Tracker) MarkCompleted(ctx context.Context, userID, moduleID, itemID string) error {
	err := t.update(ctx, userID, func(u *UserProgress) error {
		u.set(moduleID, itemID, Completed())
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	slog.Debug("item completed", "user_id", userID, "module_id", moduleID, "item_id", itemID)
	return nil
}

// SaveEvaluationResult records a graded result, replacing any stored entry.
func (t *Tracker) SaveEvaluationResult(ctx context.Context, userID, moduleID, itemID string, r EvaluationResult) error {
	err := t.update(ctx, userID, func(u *UserProgress) error {
		u.set(moduleID, itemID, Graded(r))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save evaluation result: %w", err)
	}
	slog.Debug("evaluation result saved",
		"user_id", userID, "module_id", moduleID, "item_id", itemID, "score", r.Score)
	return nil
}

// UnmarkCompleted removes the item entry. Emptied module maps are pruned,
// and the user's document is removed once nothing is left in it.
func (t *Tracker) UnmarkCompleted(ctx context.Context, userID, moduleID, itemID string) error {
	err := t.update(ctx, userID, func(u *UserProgress) error {
		u.remove(moduleID, itemID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("unmark completed: %w", err)
	}
	slog.Debug("item unmarked", "user_id", userID, "module_id", moduleID, "item_id", itemID)
	return nil
}

// ToggleCompletion flips the completion state and returns the new state.
// An incomplete evaluacion* item is never marked; the call returns
// ErrEvaluationItem and leaves the state unchanged.
func (t *Tracker) ToggleCompletion(ctx context.Context, userID, moduleID, itemID string) (bool, error) {
	var completed bool
	err := t.update(ctx, userID, func(u *UserProgress) error {
		if _, ok := u.Entry(moduleID, itemID); ok {
			u.remove(moduleID, itemID)
			completed = false
			return nil
		}
		if content.IsEvaluationItem(itemID) {
			return ErrEvaluationItem
		}
		u.set(moduleID, itemID, Completed())
		completed = true
		return nil
	})
	if errors.Is(err, ErrEvaluationItem) {
		slog.Warn("refused to complete evaluation item directly",
			"user_id", userID, "module_id", moduleID, "item_id", itemID)
		return false, err
	}
	if err != nil {
		return false, fmt.Errorf("toggle completion: %w", err)
	}
	return completed, nil
}

// ResetUserProgress removes all of the user's progress and AI analysis.
func (t *Tracker) ResetUserProgress(ctx context.Context, userID string) error {
	if err := t.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("reset user progress: %w", err)
	}
	slog.Info("user progress reset", "user_id", userID)
	return nil
}

// ResetFinalAIAnalysis removes only the final analysis.
func (t *Tracker) ResetFinalAIAnalysis(ctx context.Context, userID string) error {
	err := t.update(ctx, userID, func(u *UserProgress) error {
		u.FinalAIAnalysis = nil
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset final analysis: %w", err)
	}
	slog.Info("final AI analysis reset", "user_id", userID)
	return nil
}

// SaveFinalAIAnalysis stores the final analysis, replacing any prior one.
// A zero SubmittedAt is set to the current time.
func (t *Tracker) SaveFinalAIAnalysis(ctx context.Context, userID string, a FinalAIAnalysis) error {
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = t.now().UTC()
	}
	err := t.update(ctx, userID, func(u *UserProgress) error {
		u.FinalAIAnalysis = &a
		return nil
	})
	if err != nil {
		return fmt.Errorf("save final analysis: %w", err)
	}
	slog.Debug("final AI analysis saved", "user_id", userID)
	return nil
}

// GetFinalAIAnalysis returns the stored final analysis, or nil.
func (t *Tracker) GetFinalAIAnalysis(ctx context.Context, userID string) (*FinalAIAnalysis, error) {
	u, err := t.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.FinalAIAnalysis, nil
}

// Replace overwrites the user's whole document. Used by legacy import.
func (t *Tracker) Replace(ctx context.Context, userID string, doc UserProgress) error {
	doc = doc.clone()
	err := t.update(ctx, userID, func(u *UserProgress) error {
		*u = doc
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}

func (t *Tracker) update(ctx context.Context, userID string, fn func(*UserProgress) error) error {
	err := t.store.Update(ctx, userID, fn)
	if errors.Is(err, ErrCorrupt) {
		if err := t.recover(ctx, err); err != nil {
			return err
		}
		err = t.store.Update(ctx, userID, fn)
	}
	return err
}

func (t *Tracker) recover(ctx context.Context, cause error) error {
	slog.Error("progress store corrupt, clearing all progress", "error", cause)
	if err := t.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear corrupt progress store: %w", err)
	}
	return nil
}

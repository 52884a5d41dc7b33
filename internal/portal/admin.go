package portal

import (
	"context"
	"io"

	"github.com/p-n-ai/diplomado/internal/activity"
	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/progress"
	"github.com/p-n-ai/diplomado/internal/report"
)

// ListUsers returns every account.
func (p *Portal) ListUsers(ctx context.Context, pr auth.Principal) ([]auth.User, error) {
	if err := requireAdmin(pr); err != nil {
		return nil, err
	}
	return p.auth.ListUsers(ctx)
}

// CreateUser registers a new account.
func (p *Portal) CreateUser(ctx context.Context, pr auth.Principal, n auth.NewUser) (auth.User, error) {
	if err := requireAdmin(pr); err != nil {
		return auth.User{}, err
	}
	u, err := p.auth.CreateUser(ctx, n)
	if err != nil {
		return auth.User{}, err
	}
	p.emit(activity.Event{
		UserID:    u.ID,
		EventType: activity.UserCreated,
		Data:      map[string]any{"by": pr.ID, "role": string(u.Role)},
	})
	return u, nil
}

// ArchiveUser soft-deletes an account.
func (p *Portal) ArchiveUser(ctx context.Context, pr auth.Principal, userID string) error {
	if err := requireAdmin(pr); err != nil {
		return err
	}
	if err := p.auth.ArchiveUser(ctx, userID); err != nil {
		return err
	}
	p.emit(activity.Event{UserID: userID, EventType: activity.UserArchived, Data: map[string]any{"by": pr.ID}})
	return nil
}

// ReactivateUser restores an archived account.
func (p *Portal) ReactivateUser(ctx context.Context, pr auth.Principal, userID string) error {
	if err := requireAdmin(pr); err != nil {
		return err
	}
	if err := p.auth.ReactivateUser(ctx, userID); err != nil {
		return err
	}
	p.emit(activity.Event{UserID: userID, EventType: activity.UserReactivated, Data: map[string]any{"by": pr.ID}})
	return nil
}

// ProgressMatrix returns every user's progress across the course.
func (p *Portal) ProgressMatrix(ctx context.Context, pr auth.Principal) (report.Matrix, error) {
	if err := requireAdmin(pr); err != nil {
		return report.Matrix{}, err
	}
	users, err := p.auth.ListUsers(ctx)
	if err != nil {
		return report.Matrix{}, err
	}
	all, err := p.progress.GetAll(ctx)
	if err != nil {
		return report.Matrix{}, err
	}
	return report.Build(p.outline, users, all), nil
}

// ExportProgress writes the progress matrix as an XLSX workbook.
func (p *Portal) ExportProgress(ctx context.Context, pr auth.Principal, w io.Writer) error {
	m, err := p.ProgressMatrix(ctx, pr)
	if err != nil {
		return err
	}
	return report.WriteXLSX(w, m)
}

// UserProgress returns one user's progress document.
func (p *Portal) UserProgress(ctx context.Context, pr auth.Principal, userID string) (progress.UserProgress, error) {
	if err := requireAdmin(pr); err != nil {
		return progress.UserProgress{}, err
	}
	return p.progress.GetUserProgress(ctx, userID)
}

// ToggleItem flips an item's completion for userID and returns the new
// state. Incomplete evaluation items cannot be completed this way.
func (p *Portal) ToggleItem(ctx context.Context, pr auth.Principal, userID, moduleID, itemID string) (bool, error) {
	if err := requireAdmin(pr); err != nil {
		return false, err
	}
	if _, err := p.outline.Lookup(moduleID, itemID); err != nil {
		return false, err
	}
	completed, err := p.progress.ToggleCompletion(ctx, userID, moduleID, itemID)
	if err != nil {
		return false, err
	}
	eventType := activity.ItemUncompleted
	if completed {
		eventType = activity.ItemCompleted
	}
	p.emit(activity.Event{
		UserID:    userID,
		ModuleID:  moduleID,
		ItemID:    itemID,
		EventType: eventType,
		Data:      map[string]any{"by": pr.ID},
	})
	return completed, nil
}

// ResetProgress removes all of a user's progress and final analysis.
func (p *Portal) ResetProgress(ctx context.Context, pr auth.Principal, userID string) error {
	if err := requireAdmin(pr); err != nil {
		return err
	}
	if err := p.progress.ResetUserProgress(ctx, userID); err != nil {
		return err
	}
	p.emit(activity.Event{UserID: userID, EventType: activity.ProgressReset, Data: map[string]any{"by": pr.ID}})
	return nil
}

// ResetFinalAnalysis removes only a user's final analysis, allowing a new attempt.
func (p *Portal) ResetFinalAnalysis(ctx context.Context, pr auth.Principal, userID string) error {
	if err := requireAdmin(pr); err != nil {
		return err
	}
	if err := p.progress.ResetFinalAIAnalysis(ctx, userID); err != nil {
		return err
	}
	p.emit(activity.Event{UserID: userID, EventType: activity.FinalAnalysisReset, Data: map[string]any{"by": pr.ID}})
	return nil
}

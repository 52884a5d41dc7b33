// Package portal is the application service behind the HTTP API and the
// admin CLI. Every operation takes the caller's principal explicitly.
package portal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/diplomado/internal/activity"
	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/content"
	"github.com/p-n-ai/diplomado/internal/curriculum"
	"github.com/p-n-ai/diplomado/internal/evaluation"
	"github.com/p-n-ai/diplomado/internal/progress"
)

// ErrAlreadySubmitted is returned when an evaluation already has a result.
var ErrAlreadySubmitted = errors.New("evaluation already submitted")

// Config holds dependencies for the portal.
type Config struct {
	Outline    *curriculum.Outline
	Content    *content.Resolver
	Progress   *progress.Tracker
	Auth       *auth.Service
	Evaluation *evaluation.Service
	Events     activity.EventLogger // nil discards events
}

// Portal wires the course outline, content, progress and accounts together.
type Portal struct {
	outline    *curriculum.Outline
	content    *content.Resolver
	progress   *progress.Tracker
	auth       *auth.Service
	evaluation *evaluation.Service
	events     activity.EventLogger
}

// New creates a portal.
func New(cfg Config) (*Portal, error) {
	switch {
	case cfg.Outline == nil:
		return nil, fmt.Errorf("outline is required")
	case cfg.Content == nil:
		return nil, fmt.Errorf("content resolver is required")
	case cfg.Progress == nil:
		return nil, fmt.Errorf("progress tracker is required")
	case cfg.Auth == nil:
		return nil, fmt.Errorf("auth service is required")
	}
	ev := cfg.Evaluation
	if ev == nil {
		ev = evaluation.NewService(evaluation.ServiceConfig{})
	}
	events := cfg.Events
	if events == nil {
		events = activity.NopEventLogger{}
	}
	return &Portal{
		outline:    cfg.Outline,
		content:    cfg.Content,
		progress:   cfg.Progress,
		auth:       cfg.Auth,
		evaluation: ev,
		events:     events,
	}, nil
}

// Outline returns the course outline.
func (p *Portal) Outline() *curriculum.Outline { return p.outline }

// Auth returns the account service.
func (p *Portal) Auth() *auth.Service { return p.auth }

func (p *Portal) emit(e activity.Event) {
	if err := p.events.LogEvent(e); err != nil {
		slog.Warn("failed to log activity event", "type", e.EventType, "user_id", e.UserID, "error", err)
	}
}

func requireAdmin(pr auth.Principal) error {
	if !pr.IsAdmin() {
		return auth.ErrForbidden
	}
	return nil
}

// Menu returns the outline entries visible to the caller.
func (p *Portal) Menu(pr auth.Principal) []curriculum.MenuItem {
	return p.outline.MenuFor(string(pr.Role))
}

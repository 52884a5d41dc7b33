package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/diplomado/internal/ai"
)

var (
	// ErrGatewayUnavailable wraps every failure to obtain text from the AI gateway.
	ErrGatewayUnavailable = errors.New("AI gateway unavailable")
	// ErrEmptyResponse is returned when the learner submits a blank dilemma response.
	ErrEmptyResponse = errors.New("dilemma response is required")
	// ErrAlreadyCompleted is returned when a final analysis already exists.
	ErrAlreadyCompleted = errors.New("final evaluation already completed")
)

// DefaultTheme is the subject of generated dilemmas.
const DefaultTheme = "consultoría estratégica"

const (
	dilemmaMaxTokens  = 400
	analysisMaxTokens = 1024
)

// ServiceConfig holds dependencies for the evaluation service.
type ServiceConfig struct {
	AIRouter *ai.Router
	Budget   ai.BudgetChecker // nil means unlimited
	Theme    string           // default DefaultTheme
}

// Service generates dilemmas and analyses final responses.
type Service struct {
	aiRouter *ai.Router
	budget   ai.BudgetChecker
	theme    string
}

// NewService creates an evaluation service.
func NewService(cfg ServiceConfig) *Service {
	budget := cfg.Budget
	if budget == nil {
		budget = ai.UnlimitedBudget{}
	}
	theme := cfg.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	return &Service{aiRouter: cfg.AIRouter, budget: budget, theme: theme}
}

// Available reports whether a gateway provider is configured.
func (s *Service) Available() bool {
	return s.aiRouter != nil && s.aiRouter.HasProvider()
}

// GenerateDilemma asks the gateway for a new consulting dilemma.
func (s *Service) GenerateDilemma(ctx context.Context, userID string) (string, error) {
	text, err := s.complete(ctx, userID, ai.CompletionRequest{
		Messages:  []ai.Message{{Role: "user", Content: dilemmaPrompt(s.theme)}},
		Task:      ai.TaskDilemma,
		MaxTokens: dilemmaMaxTokens,
	})
	if err != nil {
		return "", err
	}
	slog.Info("dilemma generated", "user_id", userID, "length", len(text))
	return text, nil
}

// Analyze returns feedback on the learner's response to dilemma, informed by
// their modular results in digest.
func (s *Service) Analyze(ctx context.Context, userID string, digest Digest, dilemma, response string) (string, error) {
	if strings.TrimSpace(response) == "" {
		return "", ErrEmptyResponse
	}
	text, err := s.complete(ctx, userID, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: analysisPrompt(digest, dilemma, response)},
		},
		Task:      ai.TaskAnalysis,
		MaxTokens: analysisMaxTokens,
	})
	if err != nil {
		return "", err
	}
	slog.Info("final analysis generated",
		"user_id", userID,
		"graded_items", len(digest.Items),
		"length", len(text),
	)
	return text, nil
}

func (s *Service) complete(ctx context.Context, userID string, req ai.CompletionRequest) (string, error) {
	if !s.Available() {
		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, ai.ErrNoProvider)
	}

	ok, err := s.budget.Check(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: checking budget: %w", ErrGatewayUnavailable, err)
	}
	if !ok {
		slog.Warn("AI token budget exhausted", "user_id", userID, "task", req.Task.String())
		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, ai.ErrBudgetExceeded)
	}

	resp, err := s.aiRouter.Complete(ctx, req)
	if err != nil {
		slog.Error("AI completion failed", "user_id", userID, "task", req.Task.String(), "error", err)
		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	if err := s.budget.Record(ctx, userID, resp.TotalTokens()); err != nil {
		slog.Warn("failed to record AI token usage", "user_id", userID, "error", err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGatewayUnavailable)
	}
	return text, nil
}

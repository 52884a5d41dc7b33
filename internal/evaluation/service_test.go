package evaluation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/diplomado/internal/ai"
	"github.com/p-n-ai/diplomado/internal/evaluation"
)

func newService(provider ai.Provider, budget ai.BudgetChecker) *evaluation.Service {
	router := ai.NewRouter()
	if provider != nil {
		router.Register("mock", provider)
	}
	return evaluation.NewService(evaluation.ServiceConfig{AIRouter: router, Budget: budget})
}

func TestGenerateDilemma(t *testing.T) {
	mock := ai.NewMockProvider("  <p>Un cliente pide...</p>\n")
	svc := newService(mock, nil)

	dilemma, err := svc.GenerateDilemma(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GenerateDilemma() error = %v", err)
	}
	if dilemma != "<p>Un cliente pide...</p>" {
		t.Errorf("dilemma = %q", dilemma)
	}
	if mock.LastRequest.Task != ai.TaskDilemma {
		t.Errorf("task = %v, want dilemma", mock.LastRequest.Task)
	}
	if !strings.Contains(mock.LastRequest.Messages[0].Content, evaluation.DefaultTheme) {
		t.Errorf("prompt does not mention the theme: %q", mock.LastRequest.Messages[0].Content)
	}
}

func TestGenerateDilemma_NoProvider(t *testing.T) {
	svc := newService(nil, nil)
	if svc.Available() {
		t.Fatal("Available() = true without providers")
	}

	_, err := svc.GenerateDilemma(context.Background(), "u1")
	if !errors.Is(err, evaluation.ErrGatewayUnavailable) || !errors.Is(err, ai.ErrNoProvider) {
		t.Fatalf("error = %v, want ErrGatewayUnavailable wrapping ErrNoProvider", err)
	}
}

func TestGenerateDilemma_ProviderFailure(t *testing.T) {
	svc := newService(&ai.MockProvider{Err: errors.New("status 500")}, nil)

	if _, err := svc.GenerateDilemma(context.Background(), "u1"); !errors.Is(err, evaluation.ErrGatewayUnavailable) {
		t.Fatalf("error = %v, want ErrGatewayUnavailable", err)
	}
}

func TestGenerateDilemma_EmptyCompletion(t *testing.T) {
	svc := newService(ai.NewMockProvider("   "), nil)

	if _, err := svc.GenerateDilemma(context.Background(), "u1"); !errors.Is(err, evaluation.ErrGatewayUnavailable) {
		t.Fatalf("error = %v, want ErrGatewayUnavailable", err)
	}
}

func TestAnalyze(t *testing.T) {
	mock := ai.NewMockProvider("<p>Buen análisis</p>")
	svc := newService(mock, nil)
	digest := evaluation.BuildDigest(sampleProgress(t), nil)

	got, err := svc.Analyze(context.Background(), "u1", digest, "<p>Dilema</p>", "Mi propuesta")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got != "<p>Buen análisis</p>" {
		t.Errorf("analysis = %q", got)
	}

	req := mock.LastRequest
	if req.Task != ai.TaskAnalysis || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("request = %+v", req)
	}
	prompt := req.Messages[1].Content
	for _, want := range []string{"evaluacion0: 100.00%", "<p>Dilema</p>", "Mi propuesta"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnalyze_BlankResponse(t *testing.T) {
	mock := ai.NewMockProvider("ok")
	svc := newService(mock, nil)

	_, err := svc.Analyze(context.Background(), "u1", evaluation.Digest{}, "dilema", "  \n ")
	if !errors.Is(err, evaluation.ErrEmptyResponse) {
		t.Fatalf("error = %v, want ErrEmptyResponse", err)
	}
	if mock.Calls != 0 {
		t.Errorf("gateway called %d times for a blank response", mock.Calls)
	}
}

func TestBudget_RecordsAndRefuses(t *testing.T) {
	ctx := context.Background()
	budget := ai.NewInMemoryBudget(20)
	svc := newService(ai.NewMockProvider("<p>Dilema largo</p>"), budget)

	if _, err := svc.GenerateDilemma(ctx, "u1"); err != nil {
		t.Fatalf("first GenerateDilemma() error = %v", err)
	}
	used, _, err := budget.Usage(ctx, "u1")
	if err != nil || used == 0 {
		t.Fatalf("Usage() = %d, %v; want recorded tokens", used, err)
	}

	_, err = svc.GenerateDilemma(ctx, "u1")
	if !errors.Is(err, ai.ErrBudgetExceeded) || !errors.Is(err, evaluation.ErrGatewayUnavailable) {
		t.Fatalf("second GenerateDilemma() error = %v, want budget exhaustion", err)
	}

	if _, err := svc.GenerateDilemma(ctx, "u2"); err != nil {
		t.Fatalf("other user GenerateDilemma() error = %v", err)
	}
}

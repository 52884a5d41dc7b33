package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	var received openaiRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing or wrong authorization header")
		}
		json.NewDecoder(r.Body).Decode(&received)

		w.Write([]byte(`{"model":"gpt-4o-mini-2024","choices":[{"message":{"role":"assistant","content":"<p>Dilema</p>"}}],"usage":{"prompt_tokens":5,"completion_tokens":7}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithOpenAIBaseURL(server.URL+"/v1/"))

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{{Role: "system", Content: "Eres un evaluador."}, {Role: "user", Content: "hola"}},
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "<p>Dilema</p>" || resp.Model != "gpt-4o-mini-2024" || resp.TotalTokens() != 12 {
		t.Errorf("resp = %+v", resp)
	}
	if received.Model != defaultOpenAIModel {
		t.Errorf("model = %q", received.Model)
	}
	if len(received.Messages) != 2 || received.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", received.Messages)
	}
	if received.MaxTokens != 512 || received.Temperature == nil || *received.Temperature != 0.7 {
		t.Errorf("generation config = %d/%v", received.MaxTokens, received.Temperature)
	}
}

func TestOpenAIProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"malformed body", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := NewOpenAIProvider("k", WithOpenAIBaseURL(server.URL))
			if _, err := provider.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hola"}},
			}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := NewOpenAIProvider("k", WithOpenAIBaseURL(server.URL)).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
}

func TestRouter_FallsBackFromGoogleToOpenAI(t *testing.T) {
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer gemini.Close()
	openai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"respaldo"}}]}`))
	}))
	defer openai.Close()

	router := NewRouter()
	router.Register("google", NewGoogleProvider("g", WithGoogleBaseURL(gemini.URL)))
	router.Register("openai", NewOpenAIProvider("o", WithOpenAIBaseURL(openai.URL)))

	resp, err := router.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hola"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "respaldo" || resp.Model != defaultOpenAIModel {
		t.Errorf("resp = %+v", resp)
	}
}

package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-home/internal/application"
	"voice-home/internal/domain"
	"voice-home/internal/infra/anthropic"
)

type capturedRequest struct {
	Model    string `json:"model"`
	System   string `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestClaudeClient_Generate(t *testing.T) {
	var got capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("x-api-key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)

		response := map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "Sure, here is a recipe."},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "claude-test", server.URL)

	reply, err := client.Generate(context.Background(), application.Prompt{
		Instruction: "be brief",
		History: []domain.Turn{
			{Role: domain.RoleUser, Content: "hi"},
			{Role: domain.RoleAssistant, Content: "hello"},
		},
		Message: "give me a pasta recipe",
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if reply != "Sure, here is a recipe." {
		t.Errorf("reply: got %q", reply)
	}
	if got.System != "be brief" || got.Model != "claude-test" {
		t.Errorf("request: %+v", got)
	}
	if len(got.Messages) != 3 || got.Messages[2].Content != "give me a pasta recipe" || got.Messages[1].Role != "assistant" {
		t.Errorf("messages: %+v", got.Messages)
	}
}

func TestClaudeClient_HistoryStartsWithUser(t *testing.T) {
	var got capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("k", "m", server.URL)

	_, err := client.Generate(context.Background(), application.Prompt{
		History: []domain.Turn{{Role: domain.RoleAssistant, Content: "orphan"}},
		Message: "hello",
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("messages: %+v", got.Messages)
	}
}

func TestClaudeClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("k", "m", server.URL)

	if _, err := client.Generate(context.Background(), application.Prompt{Message: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestClaudeClient_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("k", "m", server.URL)

	if _, err := client.Generate(context.Background(), application.Prompt{Message: "x"}); err == nil {
		t.Fatal("expected error for empty content")
	}
}

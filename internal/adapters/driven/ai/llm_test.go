package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// fakeModel records the call options of the last request.
type fakeModel struct {
	reply   string
	err     error
	prompts []string
	options llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.options = llms.CallOptions{}
	for _, opt := range options {
		opt(&m.options)
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLLM_Generate(t *testing.T) {
	model := &fakeModel{reply: "Paris is the capital of France."}
	llm := NewLLM(model, "test-model", domain.AIProviderHuggingFace)

	got, err := llm.Generate(context.Background(), "Question: capital of France?", 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Paris is the capital of France." {
		t.Errorf("unexpected answer %q", got)
	}
	if len(model.prompts) != 1 || model.prompts[0] != "Question: capital of France?" {
		t.Errorf("unexpected prompts %v", model.prompts)
	}
	if model.options.MaxTokens != 200 || model.options.MaxLength != 200 {
		t.Errorf("expected max 200, got tokens=%d length=%d", model.options.MaxTokens, model.options.MaxLength)
	}
	if llm.Model() != "test-model" {
		t.Errorf("unexpected model %s", llm.Model())
	}
}

func TestLLM_Generate_NoLimit(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	llm := NewLLM(model, "m", domain.AIProviderOllama)

	if _, err := llm.Generate(context.Background(), "hi", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.options.MaxTokens != 0 || model.options.MaxLength != 0 {
		t.Errorf("expected no limits, got tokens=%d length=%d", model.options.MaxTokens, model.options.MaxLength)
	}
}

func TestLLM_Generate_Error(t *testing.T) {
	boom := errors.New("model overloaded")
	llm := NewLLM(&fakeModel{err: boom}, "m", domain.AIProviderHuggingFace)

	_, err := llm.Generate(context.Background(), "hi", 10)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped model error, got %v", err)
	}
	if err := llm.Ping(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected ping to fail with model error, got %v", err)
	}
}

func TestLLM_Ping(t *testing.T) {
	model := &fakeModel{reply: "pong"}
	llm := NewLLM(model, "m", domain.AIProviderOpenAI)

	if err := llm.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.options.MaxTokens != 1 {
		t.Errorf("expected a single token budget, got %d", model.options.MaxTokens)
	}
}

func TestOpenAILLM_ChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "Namespaces group vectors."},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 4, "total_tokens": 9},
		})
	}))
	defer server.Close()

	llm, err := NewOpenAILLM(&domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "gpt-4o-mini",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := llm.Generate(context.Background(), "What is a namespace?", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Namespaces group vectors." {
		t.Errorf("unexpected answer %q", got)
	}
}

func TestLLMConstructors_RequireModel(t *testing.T) {
	if _, err := NewOpenAILLM(&domain.LLMSettings{Provider: domain.AIProviderOpenAI}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("openai: expected ErrInvalidInput, got %v", err)
	}
	if _, err := NewOllamaLLM(&domain.LLMSettings{Provider: domain.AIProviderOllama}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("ollama: expected ErrInvalidInput, got %v", err)
	}
}

func TestNewHuggingFaceLLM_DefaultModel(t *testing.T) {
	llm, err := NewHuggingFaceLLM(&domain.LLMSettings{
		Provider: domain.AIProviderHuggingFace,
		APIKey:   "hf_test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.Model() != domain.DefaultLLMModel {
		t.Errorf("expected default model, got %s", llm.Model())
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

func textMatches(texts ...string) []*domain.RetrievalMatch {
	out := make([]*domain.RetrievalMatch, len(texts))
	for i, text := range texts {
		out[i] = &domain.RetrievalMatch{
			CollectionID: 1,
			DocumentID:   1,
			Match:        &domain.VectorMatch{ID: domain.VectorID(i), Score: 0.9, Text: text},
		}
	}
	return out
}

func TestBuildContext(t *testing.T) {
	matches := textMatches("first paragraph", "second paragraph", "first paragraph")
	matches = append(matches, nil, &domain.RetrievalMatch{})

	got := BuildContext(matches)
	want := "first paragraph\nsecond paragraph\nfirst paragraph\n"
	if got != want {
		t.Errorf("BuildContext() = %q, want %q", got, want)
	}
}

func TestStripPreamble(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"no preamble", "  Paris is the capital.  ", "Paris is the capital."},
		{"echoed prompt", "Context: x\nQuestion: y\nHelpful answer:\n Paris.", "Paris."},
		{"marker twice", "Helpful answer: a\nHelpful answer: b", "b"},
		{"marker only", "Helpful answer:", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripPreamble(tt.response); got != tt.want {
				t.Errorf("stripPreamble(%q) = %q, want %q", tt.response, got, tt.want)
			}
		})
	}
}

func TestKeywordOverlapGuard_Review(t *testing.T) {
	tests := []struct {
		name         string
		context      string
		answer       string
		want         string
		wantReplaced bool
	}{
		{
			name:    "shares a token",
			context: "Robel lives in Phoenix\n",
			answer:  "He lives in Phoenix.",
			want:    "He lives in Phoenix.",
		},
		{
			name:         "shares nothing",
			context:      "Robel lives in Phoenix\n",
			answer:       "Unknown.",
			want:         domain.NotAvailableAnswer,
			wantReplaced: true,
		},
		{
			name:    "says not available",
			context: "Robel lives in Phoenix\n",
			answer:  "That is not available.",
			want:    "That is not available.",
		},
		{
			name:    "substring counts as overlap",
			context: "cat\n",
			answer:  "concatenate",
			want:    "concatenate",
		},
		{
			name:         "empty answer",
			context:      "anything\n",
			answer:       "",
			want:         domain.NotAvailableAnswer,
			wantReplaced: true,
		},
		{
			name:         "empty context",
			context:      "",
			answer:       "Something",
			want:         domain.NotAvailableAnswer,
			wantReplaced: true,
		},
	}

	guard := KeywordOverlapGuard{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, replaced := guard.Review(tt.context, tt.answer)
			if got != tt.want {
				t.Errorf("Review() = %q, want %q", got, tt.want)
			}
			if replaced != tt.wantReplaced {
				t.Errorf("Review() replaced = %v, want %v", replaced, tt.wantReplaced)
			}
		})
	}
}

func newTestGenerator(llm *mocks.MockLLMService) *AnswerGenerator {
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	if llm != nil {
		services.SetLLMService(llm)
	}
	return NewAnswerGenerator(services, AnswerGeneratorConfig{}, nil)
}

func TestAnswerGenerator_Prompt(t *testing.T) {
	g := newTestGenerator(nil)

	prompt, err := g.Prompt("How old are you?", "I am 30 years old.\n")
	if err != nil {
		t.Fatalf("Prompt() error = %v", err)
	}

	for _, want := range []string{
		"answer the user's question.",
		"don't try to make up an answer.",
		"Context: I am 30 years old.\n",
		"Question: How old are you?",
		"Only return the helpful answer below and nothing else.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(prompt), "Helpful answer:") {
		t.Errorf("prompt should end with the answer marker:\n%s", prompt)
	}
}

func TestAnswerGenerator_Generate(t *testing.T) {
	llm := mocks.NewMockLLMService("")
	llm.GenerateFn = func(prompt string, maxLength int) (string, error) {
		if maxLength != DefaultMaxAnswerLength {
			t.Errorf("maxLength = %d, want %d", maxLength, DefaultMaxAnswerLength)
		}
		// Echo the prompt like a raw causal model does
		return prompt + " I have ten years of experience.", nil
	}
	g := newTestGenerator(llm)

	answer, err := g.Generate(context.Background(), "How experienced are you?",
		textMatches("I am a senior engineer with ten years of experience."))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer.Text != "I have ten years of experience." {
		t.Errorf("Text = %q", answer.Text)
	}
	if answer.Outcome != domain.AnswerGenerated {
		t.Errorf("Outcome = %q, want %q", answer.Outcome, domain.AnswerGenerated)
	}
	if llm.Calls() != 1 {
		t.Errorf("LLM calls = %d, want 1", llm.Calls())
	}
	if !strings.Contains(llm.LastPrompt(), "ten years of experience.\n") {
		t.Errorf("prompt missing context:\n%s", llm.LastPrompt())
	}
}

func TestAnswerGenerator_Generate_Fallback(t *testing.T) {
	llm := mocks.NewMockLLMService("Zzz.")
	g := newTestGenerator(llm)

	answer, err := g.Generate(context.Background(), "q", textMatches("alpha beta"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer.Text != domain.NotAvailableAnswer {
		t.Errorf("Text = %q, want %q", answer.Text, domain.NotAvailableAnswer)
	}
	if answer.Outcome != domain.AnswerFallback {
		t.Errorf("Outcome = %q, want %q", answer.Outcome, domain.AnswerFallback)
	}
}

func TestAnswerGenerator_Generate_LLMError(t *testing.T) {
	llm := mocks.NewMockLLMService("")
	llmErr := errors.New("model overloaded")
	llm.GenerateFn = func(prompt string, maxLength int) (string, error) {
		return "", llmErr
	}
	g := newTestGenerator(llm)

	_, err := g.Generate(context.Background(), "q", textMatches("alpha"))
	if !errors.Is(err, llmErr) {
		t.Errorf("Generate() error = %v, want %v", err, llmErr)
	}
}

func TestAnswerGenerator_Generate_NoLLM(t *testing.T) {
	g := newTestGenerator(nil)

	_, err := g.Generate(context.Background(), "q", textMatches("alpha"))
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("Generate() error = %v, want ErrServiceUnavailable", err)
	}
}

type rejectAllGuard struct{}

func (rejectAllGuard) Review(contextText, answer string) (string, bool) {
	return "rejected", true
}

func TestAnswerGenerator_CustomGuard(t *testing.T) {
	services := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	services.SetLLMService(mocks.NewMockLLMService("alpha"))
	g := NewAnswerGenerator(services, AnswerGeneratorConfig{Guard: rejectAllGuard{}}, nil)

	answer, err := g.Generate(context.Background(), "q", textMatches("alpha"))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if answer.Text != "rejected" || answer.Outcome != domain.AnswerFallback {
		t.Errorf("answer = %+v", answer)
	}
}

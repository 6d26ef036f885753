package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// DefaultMaxAnswerLength bounds the generated output.
const DefaultMaxAnswerLength = 200

// answerMarker ends the prompt; models often echo everything before it.
const answerMarker = "Helpful answer:"

const answerTemplate = `
Use the following pieces of information to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
Context: {{.context}}
Question: {{.query}}

Only return the helpful answer below and nothing else.
` + answerMarker + `
`

// AnswerGuard decides whether a generated answer may be returned as is.
type AnswerGuard interface {
	// Review returns the answer to send and whether it was replaced
	Review(contextText, answer string) (string, bool)
}

// KeywordOverlapGuard replaces answers that share no whitespace token with the context.
// Answers stating the information is not available pass unchanged.
type KeywordOverlapGuard struct{}

// Review implements AnswerGuard.
func (KeywordOverlapGuard) Review(contextText, answer string) (string, bool) {
	if strings.Contains(answer, "not available") {
		return answer, false
	}
	for _, token := range strings.Fields(contextText) {
		if strings.Contains(answer, token) {
			return answer, false
		}
	}
	return domain.NotAvailableAnswer, true
}

// Answer is a generated chat answer.
type Answer struct {
	Text    string
	Outcome domain.AnswerOutcome
}

// AnswerGeneratorConfig holds generator settings.
type AnswerGeneratorConfig struct {
	MaxLength int
	Guard     AnswerGuard
}

// AnswerGenerator turns retrieved paragraphs into an answer with one LLM call.
type AnswerGenerator struct {
	services  *runtime.Services
	template  prompts.PromptTemplate
	maxLength int
	guard     AnswerGuard
	logger    *zap.Logger
}

// NewAnswerGenerator creates an AnswerGenerator.
// The LLM is resolved per call through services.
func NewAnswerGenerator(services *runtime.Services, cfg AnswerGeneratorConfig, logger *zap.Logger) *AnswerGenerator {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxAnswerLength
	}
	if cfg.Guard == nil {
		cfg.Guard = KeywordOverlapGuard{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerGenerator{
		services:  services,
		template:  prompts.NewPromptTemplate(answerTemplate, []string{"context", "query"}),
		maxLength: cfg.MaxLength,
		guard:     cfg.Guard,
		logger:    logger,
	}
}

// BuildContext concatenates the text of each match, one per line, without dedup.
func BuildContext(matches []*domain.RetrievalMatch) string {
	var b strings.Builder
	for _, m := range matches {
		if m == nil || m.Match == nil {
			continue
		}
		b.WriteString(m.Match.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Prompt renders the answer prompt for a query and its context.
func (g *AnswerGenerator) Prompt(query, contextText string) (string, error) {
	prompt, err := g.template.Format(map[string]any{
		"context": contextText,
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return prompt, nil
}

// Generate answers the query from the given matches.
// Callers handle the zero-match case; an empty context is still sent to the model.
func (g *AnswerGenerator) Generate(ctx context.Context, query string, matches []*domain.RetrievalMatch) (*Answer, error) {
	llm, err := g.services.RequireLLM()
	if err != nil {
		return nil, err
	}

	contextText := BuildContext(matches)
	prompt, err := g.Prompt(query, contextText)
	if err != nil {
		return nil, err
	}

	raw, err := llm.Generate(ctx, prompt, g.maxLength)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	text := stripPreamble(raw)
	if reviewed, replaced := g.guard.Review(contextText, text); replaced {
		g.logger.Info("answer replaced by guard",
			zap.String("model", llm.Model()),
			zap.Int("matches", len(matches)),
		)
		return &Answer{Text: reviewed, Outcome: domain.AnswerFallback}, nil
	}
	return &Answer{Text: text, Outcome: domain.AnswerGenerated}, nil
}

// stripPreamble drops an echoed prompt, keeping the text after the last answer marker.
func stripPreamble(response string) string {
	if i := strings.LastIndex(response, answerMarker); i >= 0 {
		return strings.TrimSpace(response[i+len(answerMarker):])
	}
	return strings.TrimSpace(response)
}

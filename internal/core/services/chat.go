package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
)

// Ensure chatService implements ChatService
var _ driving.ChatService = (*chatService)(nil)

// ChatServiceConfig holds dependencies for the chat service
type ChatServiceConfig struct {
	CollectionStore driven.CollectionStore
	HistoryStore    driven.ChatHistoryStore
	Retriever       *Retriever
	Generator       *AnswerGenerator

	// DefaultAnswer is returned when nothing relevant was retrieved
	DefaultAnswer string

	Logger *zap.Logger
}

// chatService implements the ChatService interface
type chatService struct {
	collectionStore driven.CollectionStore
	historyStore    driven.ChatHistoryStore
	retriever       *Retriever
	generator       *AnswerGenerator
	defaultAnswer   string
	logger          *zap.Logger
}

// NewChatService creates a new ChatService
func NewChatService(cfg ChatServiceConfig) driving.ChatService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultAnswer := cfg.DefaultAnswer
	if defaultAnswer == "" {
		defaultAnswer = domain.NotAvailableAnswer
	}
	return &chatService{
		collectionStore: cfg.CollectionStore,
		historyStore:    cfg.HistoryStore,
		retriever:       cfg.Retriever,
		generator:       cfg.Generator,
		defaultAnswer:   defaultAnswer,
		logger:          logger,
	}
}

// Query retrieves context, answers and records the exchange
func (s *chatService) Query(ctx context.Context, userID int64, req domain.ChatRequest) (*domain.ChatResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidInput)
	}

	collectionIDs, err := resolveScope(ctx, s.collectionStore, userID, req.Scope())
	if err != nil {
		return nil, err
	}

	matches, err := s.retriever.Search(ctx, collectionIDs, query, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	answer := &Answer{Text: s.defaultAnswer, Outcome: domain.AnswerDefault}
	if len(matches) > 0 {
		answer, err = s.generator.Generate(ctx, query, matches)
		if err != nil {
			return nil, err
		}
	}

	entry := &domain.ChatHistory{
		UserID:        userID,
		Query:         query,
		CollectionIDs: collectionIDs,
		BotResponse:   answer.Text,
	}
	if err := s.historyStore.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}

	metrics.RecordAnswer(string(answer.Outcome))
	s.logger.Info("chat query answered",
		zap.Int64("user_id", userID),
		zap.Int64("history_id", entry.ID),
		zap.Int("collections", len(collectionIDs)),
		zap.Int("matches", len(matches)),
		zap.String("outcome", string(answer.Outcome)),
	)

	return &domain.ChatResponse{
		Query:            query,
		Answer:           answer.Text,
		SourceParagraphs: domain.SourceParagraphsFromMatches(matches),
	}, nil
}

// History returns the user's exchanges in insertion order
func (s *chatService) History(ctx context.Context, userID int64) ([]*domain.ChatHistory, error) {
	entries, err := s.historyStore.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.ChatHistory{}
	}
	return entries, nil
}

package domain

import "time"

// NotAvailableAnswer replaces generated answers that share nothing with the retrieved context.
const NotAvailableAnswer = "The information is not available in the context."

// ChatRequest is a user question scoped to some collections.
// AllCollections selects every collection the user owns.
type ChatRequest struct {
	Query          string  `json:"query"`
	CollectionIDs  []int64 `json:"collection_ids"`
	AllCollections bool    `json:"all_collections"`
}

// Scope returns the collection scope of the request.
func (r *ChatRequest) Scope() CollectionScope {
	return CollectionScope{All: r.AllCollections, IDs: r.CollectionIDs}
}

// SourceParagraph is one retrieved paragraph returned with an answer.
type SourceParagraph struct {
	CollectionID int64   `json:"collection_id"`
	DocumentID   int64   `json:"document_id"`
	ParagraphID  string  `json:"paragraph_id"`
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
}

// ChatResponse is returned by the chat endpoint.
type ChatResponse struct {
	Query            string             `json:"query"`
	Answer           string             `json:"answer"`
	SourceParagraphs []*SourceParagraph `json:"source_paragraphs"`
}

// ChatHistory is an append-only log entry of one chat exchange.
type ChatHistory struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Query         string    `json:"query"`
	CollectionIDs []int64   `json:"collection_ids"`
	BotResponse   string    `json:"bot_response"`
	CreatedAt     time.Time `json:"created_at"`
}

// AnswerOutcome classifies how a chat answer was produced.
type AnswerOutcome string

const (
	AnswerGenerated AnswerOutcome = "generated"
	AnswerDefault   AnswerOutcome = "default"
	AnswerFallback  AnswerOutcome = "fallback"
)

// SourceParagraphsFromMatches converts retrieval matches into response paragraphs.
func SourceParagraphsFromMatches(matches []*RetrievalMatch) []*SourceParagraph {
	out := make([]*SourceParagraph, 0, len(matches))
	for _, m := range matches {
		if m == nil || m.Match == nil {
			continue
		}
		out = append(out, &SourceParagraph{
			CollectionID: m.CollectionID,
			DocumentID:   m.DocumentID,
			ParagraphID:  m.Match.ID,
			Text:         m.Match.Text,
			Score:        m.Match.Score,
		})
	}
	return out
}

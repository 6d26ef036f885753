package services

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

const testDefaultAnswer = "Sorry, I could not find anything about that."

// ragFixture wires every RAG service over in-memory mocks.
type ragFixture struct {
	collections *mocks.MockCollectionStore
	documents   *mocks.MockDocumentStore
	history     *mocks.MockChatHistoryStore
	index       *mocks.MockVectorIndex
	embedder    *mocks.MockEmbeddingService
	llm         *mocks.MockLLMService
	lock        *mocks.MockDistributedLock
	services    *runtime.Services

	retriever *Retriever
	generator *AnswerGenerator
	indexer   *DocumentIndexer

	collectionSvc driving.CollectionService
	documentSvc   driving.DocumentService
	chatSvc       driving.ChatService
	searchSvc     driving.SearchService
}

func newRAGFixture(t *testing.T) *ragFixture {
	t.Helper()
	return buildRAGFixture()
}

func buildRAGFixture() *ragFixture {
	f := &ragFixture{
		collections: mocks.NewMockCollectionStore(),
		documents:   mocks.NewMockDocumentStore(),
		history:     mocks.NewMockChatHistoryStore(),
		index:       mocks.NewMockVectorIndex(),
		embedder:    mocks.NewMockEmbeddingService(),
		llm:         mocks.NewMockLLMService(""),
		lock:        mocks.NewMockDistributedLock(),
	}

	f.services = runtime.NewServices(domain.NewRuntimeConfig("memory", "memory"))
	f.services.SetEmbeddingService(f.embedder)
	f.services.SetLLMService(f.llm)
	f.services.SetVectorIndex(f.index)

	f.retriever = NewRetriever(f.services, DefaultRetrieverConfig(), nil)
	f.generator = NewAnswerGenerator(f.services, AnswerGeneratorConfig{}, nil)
	f.indexer = NewDocumentIndexer(DocumentIndexerConfig{
		Services: f.services,
		Pipeline: postprocessors.DefaultPipeline(),
		Lock:     f.lock,
		LockWait: 300 * time.Millisecond,
	})

	f.collectionSvc = NewCollectionService(f.collections, f.services, domain.IndexSpec{}, nil)
	f.documentSvc = NewDocumentService(f.collections, f.documents, f.indexer, nil)
	f.chatSvc = NewChatService(ChatServiceConfig{
		CollectionStore: f.collections,
		HistoryStore:    f.history,
		Retriever:       f.retriever,
		Generator:       f.generator,
		DefaultAnswer:   testDefaultAnswer,
	})
	f.searchSvc = NewSearchService(f.collections, f.retriever, nil)
	return f
}

// createCollection creates a collection through the service, provisioning its index.
func (f *ragFixture) createCollection(t *testing.T, userID int64, name string) *domain.Collection {
	t.Helper()
	c, err := f.collectionSvc.Create(context.Background(), userID, driving.CreateCollectionRequest{Name: name})
	if err != nil {
		t.Fatalf("create collection %q: %v", name, err)
	}
	return c
}

// putCollection stores a collection with a fixed ID and provisions its index.
func (f *ragFixture) putCollection(t *testing.T, id, userID int64) {
	t.Helper()
	f.collections.Put(&domain.Collection{ID: id, Name: "collection", UserID: userID})
	if err := f.index.CreateIndex(context.Background(), domain.IndexName(id), domain.DefaultIndexSpec()); err != nil {
		t.Fatalf("create index: %v", err)
	}
}

// createDocument adds a document through the service, indexing its paragraphs.
func (f *ragFixture) createDocument(t *testing.T, userID, collectionID int64, title, content string) *domain.Document {
	t.Helper()
	doc, err := f.documentSvc.Create(context.Background(), userID, collectionID, driving.CreateDocumentRequest{
		Title:   title,
		Content: content,
	})
	if err != nil {
		t.Fatalf("create document %q: %v", title, err)
	}
	return doc
}

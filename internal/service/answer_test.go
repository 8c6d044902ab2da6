package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/vectorstore"
)

func newAnswerFixture(embedder *MockEmbeddingClient, store *MockVectorStore, sessions *MockSessionRepository, api *scriptedCompletionAPI) *AnswerService {
	coordinator := NewRetrievalCoordinatorWithConfig(embedder, store, fastRetrievalConfig())
	synthesizer := NewSynthesizer(api)
	lifecycle := NewLifecycleManager(store, sessions, new(MockKBRepository), new(MockOwnerIndexRepository))
	return NewAnswerService(coordinator, synthesizer, lifecycle)
}

func TestAnswerService_AnswerFromKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	embedding := []float32{0.1, 0.2}

	t.Run("streams a grounded answer", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		api := &scriptedCompletionAPI{stream: &scriptedStream{fragments: []string{"Answer."}}}
		svc := newAnswerFixture(embedder, store, new(MockSessionRepository), api)

		embedder.On("GenerateEmbedding", mock.Anything, "what?").Return(embedding, nil)
		store.On("Query", mock.Anything, "owner:org-1", embedding, DefaultTopK).Return([]vectorstore.Match{
			{ID: "v1", Content: "fact one"},
			{ID: "v2", Content: "fact two"},
		}, nil)

		events, err := svc.AnswerFromKnowledgeBase(ctx, "org-1", "what?")

		require.NoError(t, err)
		collected := collectEvents(t, events)
		require.Len(t, collected, 2)
		assert.Equal(t, Event{Kind: EventFragment, Text: "Answer."}, collected[0])
		assert.Equal(t, EventEnd, collected[1].Kind)
		assert.Equal(t, "Relevant Document Content:\nfact one\n\nfact two", api.gotMessages[0])
	})

	t.Run("blank question is a validation error", func(t *testing.T) {
		svc := newAnswerFixture(new(MockEmbeddingClient), new(MockVectorStore), new(MockSessionRepository), &scriptedCompletionAPI{})

		_, err := svc.AnswerFromKnowledgeBase(ctx, "org-1", "   ")

		require.ErrorIs(t, err, domain.ErrMissingQuery)
	})

	t.Run("no matches streams the informational message", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		api := &scriptedCompletionAPI{}
		svc := newAnswerFixture(embedder, store, new(MockSessionRepository), api)

		embedder.On("GenerateEmbedding", mock.Anything, "what?").Return(embedding, nil)
		store.On("Query", mock.Anything, mock.Anything, embedding, DefaultTopK).Return([]vectorstore.Match{}, nil)

		events, err := svc.AnswerFromKnowledgeBase(ctx, "org-1", "what?")

		require.NoError(t, err)
		collected := collectEvents(t, events)
		require.Len(t, collected, 2)
		assert.Equal(t, NoRelevantContentMessage, collected[0].Text)
		assert.Equal(t, EventEnd, collected[1].Kind)
		// the provider is never consulted without context
		assert.Empty(t, api.gotMessages)
	})
}

func TestAnswerService_AttachSessionDocuments(t *testing.T) {
	ctx := context.Background()
	embedding := []float32{0.1, 0.2}

	t.Run("ingests into a fresh session scope and tracks it", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		sessions := new(MockSessionRepository)
		svc := newAnswerFixture(embedder, store, sessions, &scriptedCompletionAPI{})

		embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(embedding, nil)
		store.On("Upsert", mock.Anything, mock.MatchedBy(func(scope string) bool {
			return len(scope) > 8 && scope[:8] == "session:"
		}), mock.Anything).Return(nil)
		sessions.On("Create", mock.Anything, mock.Anything).Return(nil)

		result, err := svc.AttachSessionDocuments(ctx, "org-1", []Document{
			{FileName: "notes.txt", Text: "Some content here."},
		})

		require.NoError(t, err)
		assert.NotEmpty(t, result.SessionID)
		assert.NotEmpty(t, result.VectorIDs)
		sessions.AssertExpectations(t)
	})

	t.Run("no documents is a validation error", func(t *testing.T) {
		svc := newAnswerFixture(new(MockEmbeddingClient), new(MockVectorStore), new(MockSessionRepository), &scriptedCompletionAPI{})

		_, err := svc.AttachSessionDocuments(ctx, "org-1", nil)

		require.ErrorIs(t, err, domain.ErrMissingDocuments)
	})

	t.Run("all documents unusable is an error", func(t *testing.T) {
		svc := newAnswerFixture(new(MockEmbeddingClient), new(MockVectorStore), new(MockSessionRepository), &scriptedCompletionAPI{})

		result, err := svc.AttachSessionDocuments(ctx, "org-1", []Document{
			{FileName: "empty.txt", Text: "   "},
		})

		require.Error(t, err)
		assert.Len(t, result.Failures, 1)
	})
}

func TestAnswerService_AnswerFromSession(t *testing.T) {
	ctx := context.Background()
	embedding := []float32{0.1, 0.2}

	t.Run("cleans up after the stream ends", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		sessions := new(MockSessionRepository)
		api := &scriptedCompletionAPI{stream: &scriptedStream{fragments: []string{"Answer."}}}
		svc := newAnswerFixture(embedder, store, sessions, api)

		embedder.On("GenerateEmbedding", mock.Anything, "what?").Return(embedding, nil)
		store.On("Query", mock.Anything, "session:sess-1", embedding, DefaultTopK).Return([]vectorstore.Match{
			{ID: "v1", Content: "fact"},
		}, nil)

		purged := make(chan struct{})
		store.On("DeleteMany", mock.Anything, "session:sess-1", []string{"v1"}).Return(nil)
		sessions.On("MarkPurged", mock.Anything, "sess-1", mock.Anything).Return(nil).
			Run(func(mock.Arguments) { close(purged) })

		events, err := svc.AnswerFromSession(ctx, "sess-1", "what?", []string{"v1"})

		require.NoError(t, err)
		collected := collectEvents(t, events)
		assert.Equal(t, EventEnd, collected[len(collected)-1].Kind)

		<-purged
		store.AssertCalled(t, "DeleteMany", mock.Anything, "session:sess-1", []string{"v1"})
	})

	t.Run("cleans up even when retrieval finds nothing", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		sessions := new(MockSessionRepository)
		svc := newAnswerFixture(embedder, store, sessions, &scriptedCompletionAPI{})

		embedder.On("GenerateEmbedding", mock.Anything, "what?").Return(embedding, nil)
		store.On("Query", mock.Anything, "session:sess-1", embedding, DefaultTopK).Return([]vectorstore.Match{}, nil)
		store.On("DeleteMany", mock.Anything, "session:sess-1", []string{"v1"}).Return(nil)
		sessions.On("MarkPurged", mock.Anything, "sess-1", mock.Anything).Return(nil)

		events, err := svc.AnswerFromSession(ctx, "sess-1", "what?", []string{"v1"})

		require.NoError(t, err)
		collected := collectEvents(t, events)
		assert.Equal(t, NoRelevantContentMessage, collected[0].Text)
		store.AssertCalled(t, "DeleteMany", mock.Anything, "session:sess-1", []string{"v1"})
	})

	t.Run("cleans up on retrieval error", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		store := new(MockVectorStore)
		sessions := new(MockSessionRepository)
		svc := newAnswerFixture(embedder, store, sessions, &scriptedCompletionAPI{})

		embedder.On("GenerateEmbedding", mock.Anything, "what?").Return(embedding, nil)
		store.On("Query", mock.Anything, "session:sess-1", embedding, DefaultTopK).Return(nil, errors.New("db down"))
		store.On("DeleteMany", mock.Anything, "session:sess-1", []string{"v1"}).Return(nil)
		sessions.On("MarkPurged", mock.Anything, "sess-1", mock.Anything).Return(nil)

		_, err := svc.AnswerFromSession(ctx, "sess-1", "what?", []string{"v1"})

		require.Error(t, err)
		store.AssertCalled(t, "DeleteMany", mock.Anything, "session:sess-1", []string{"v1"})
	})

	t.Run("missing session id", func(t *testing.T) {
		svc := newAnswerFixture(new(MockEmbeddingClient), new(MockVectorStore), new(MockSessionRepository), &scriptedCompletionAPI{})

		_, err := svc.AnswerFromSession(ctx, "", "what?", nil)

		require.ErrorIs(t, err, domain.ErrMissingSessionID)
	})
}

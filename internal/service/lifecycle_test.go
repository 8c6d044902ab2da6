package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scaleworks/docquery/internal/domain"
)

// MockSessionRepository is a mock implementation of LifecycleSessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) MarkPurged(ctx context.Context, id string, purgedAt time.Time) error {
	args := m.Called(ctx, id, purgedAt)
	return args.Error(0)
}

// MockKBRepository is a mock implementation of LifecycleKnowledgeBaseRepository
type MockKBRepository struct {
	mock.Mock
}

func (m *MockKBRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBase), args.Error(1)
}

func (m *MockKBRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOwnerIndexRepository is a mock implementation of LifecycleOwnerRepository
type MockOwnerIndexRepository struct {
	mock.Mock
}

func (m *MockOwnerIndexRepository) RemoveKnowledgeBaseID(ctx context.Context, ownerID, kbID string) error {
	args := m.Called(ctx, ownerID, kbID)
	return args.Error(0)
}

func TestLifecycleManager_TrackSession(t *testing.T) {
	ctx := context.Background()

	sessions := new(MockSessionRepository)
	manager := NewLifecycleManager(new(MockVectorStore), sessions, new(MockKBRepository), new(MockOwnerIndexRepository))

	sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.Session) bool {
		return s.ID == "sess-1" && s.OwnerID == "org-1" && len(s.VectorIDs) == 2 && s.PurgedAt == nil
	})).Return(nil)

	err := manager.TrackSession(ctx, "org-1", "sess-1", []string{"v1", "v2"})

	require.NoError(t, err)
	sessions.AssertExpectations(t)
}

func TestLifecycleManager_CleanupSession(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes vectors and marks the session purged", func(t *testing.T) {
		store := new(MockVectorStore)
		sessions := new(MockSessionRepository)
		manager := NewLifecycleManager(store, sessions, new(MockKBRepository), new(MockOwnerIndexRepository))

		store.On("DeleteMany", mock.Anything, "session:sess-1", []string{"v1", "v2"}).Return(nil)
		sessions.On("MarkPurged", mock.Anything, "sess-1", mock.Anything).Return(nil)

		manager.CleanupSession(ctx, "sess-1", []string{"v1", "v2"})

		store.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("delete failure leaves the session unpurged for the reaper", func(t *testing.T) {
		store := new(MockVectorStore)
		sessions := new(MockSessionRepository)
		manager := NewLifecycleManager(store, sessions, new(MockKBRepository), new(MockOwnerIndexRepository))

		store.On("DeleteMany", mock.Anything, "session:sess-1", mock.Anything).Return(errors.New("db down"))

		manager.CleanupSession(ctx, "sess-1", []string{"v1"})

		sessions.AssertNotCalled(t, "MarkPurged", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no vector ids is a no-op", func(t *testing.T) {
		store := new(MockVectorStore)
		sessions := new(MockSessionRepository)
		manager := NewLifecycleManager(store, sessions, new(MockKBRepository), new(MockOwnerIndexRepository))

		manager.CleanupSession(ctx, "sess-1", nil)

		store.AssertNotCalled(t, "DeleteMany", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLifecycleManager_DeleteKnowledgeBase(t *testing.T) {
	ctx := context.Background()

	kb := &domain.KnowledgeBase{
		ID:        "kb-1",
		OwnerID:   "org-1",
		FileName:  "contract.txt",
		VectorIDs: []string{"v1", "v2"},
		CreatedAt: time.Now().UTC(),
	}

	t.Run("deletes vectors, index reference, then record", func(t *testing.T) {
		store := new(MockVectorStore)
		kbRepo := new(MockKBRepository)
		ownerRepo := new(MockOwnerIndexRepository)
		manager := NewLifecycleManager(store, new(MockSessionRepository), kbRepo, ownerRepo)

		kbRepo.On("GetByID", mock.Anything, "kb-1").Return(kb, nil)
		store.On("DeleteMany", mock.Anything, "owner:org-1", []string{"v1", "v2"}).Return(nil)
		ownerRepo.On("RemoveKnowledgeBaseID", mock.Anything, "org-1", "kb-1").Return(nil)
		kbRepo.On("Delete", mock.Anything, "kb-1").Return(nil)

		err := manager.DeleteKnowledgeBase(ctx, "kb-1", "org-1")

		require.NoError(t, err)
		store.AssertExpectations(t)
		kbRepo.AssertExpectations(t)
		ownerRepo.AssertExpectations(t)
	})

	t.Run("rejects deletion by a different owner", func(t *testing.T) {
		store := new(MockVectorStore)
		kbRepo := new(MockKBRepository)
		manager := NewLifecycleManager(store, new(MockSessionRepository), kbRepo, new(MockOwnerIndexRepository))

		kbRepo.On("GetByID", mock.Anything, "kb-1").Return(kb, nil)

		err := manager.DeleteKnowledgeBase(ctx, "kb-1", "org-2")

		require.ErrorIs(t, err, domain.ErrNotOwner)
		store.AssertNotCalled(t, "DeleteMany", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("vector deletion failure aborts with everything intact", func(t *testing.T) {
		store := new(MockVectorStore)
		kbRepo := new(MockKBRepository)
		ownerRepo := new(MockOwnerIndexRepository)
		manager := NewLifecycleManager(store, new(MockSessionRepository), kbRepo, ownerRepo)

		kbRepo.On("GetByID", mock.Anything, "kb-1").Return(kb, nil)
		store.On("DeleteMany", mock.Anything, "owner:org-1", mock.Anything).Return(errors.New("db down"))

		err := manager.DeleteKnowledgeBase(ctx, "kb-1", "org-1")

		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
		ownerRepo.AssertNotCalled(t, "RemoveKnowledgeBaseID", mock.Anything, mock.Anything, mock.Anything)
		kbRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("index failure after vector deletion is reported distinctly", func(t *testing.T) {
		store := new(MockVectorStore)
		kbRepo := new(MockKBRepository)
		ownerRepo := new(MockOwnerIndexRepository)
		manager := NewLifecycleManager(store, new(MockSessionRepository), kbRepo, ownerRepo)

		kbRepo.On("GetByID", mock.Anything, "kb-1").Return(kb, nil)
		store.On("DeleteMany", mock.Anything, "owner:org-1", mock.Anything).Return(nil)
		ownerRepo.On("RemoveKnowledgeBaseID", mock.Anything, "org-1", "kb-1").Return(errors.New("db down"))

		err := manager.DeleteKnowledgeBase(ctx, "kb-1", "org-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "index update failed")
		kbRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("record failure after vector deletion is reported distinctly", func(t *testing.T) {
		store := new(MockVectorStore)
		kbRepo := new(MockKBRepository)
		ownerRepo := new(MockOwnerIndexRepository)
		manager := NewLifecycleManager(store, new(MockSessionRepository), kbRepo, ownerRepo)

		kbRepo.On("GetByID", mock.Anything, "kb-1").Return(kb, nil)
		store.On("DeleteMany", mock.Anything, "owner:org-1", mock.Anything).Return(nil)
		ownerRepo.On("RemoveKnowledgeBaseID", mock.Anything, "org-1", "kb-1").Return(nil)
		kbRepo.On("Delete", mock.Anything, "kb-1").Return(errors.New("db down"))

		err := manager.DeleteKnowledgeBase(ctx, "kb-1", "org-1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "record deletion failed")
	})

	t.Run("missing knowledge base", func(t *testing.T) {
		kbRepo := new(MockKBRepository)
		manager := NewLifecycleManager(new(MockVectorStore), new(MockSessionRepository), kbRepo, new(MockOwnerIndexRepository))

		kbRepo.On("GetByID", mock.Anything, "kb-x").Return(nil, domain.ErrKnowledgeBaseNotFound)

		err := manager.DeleteKnowledgeBase(ctx, "kb-x", "org-1")

		require.ErrorIs(t, err, domain.ErrKnowledgeBaseNotFound)
	})
}

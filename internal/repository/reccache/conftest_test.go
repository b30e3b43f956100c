package reccache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfrank/internal/db"
	"github.com/kailas-cloud/shelfrank/internal/domain"
)

type mockRecommender struct {
	entries     []domain.RecommendationEntry
	err         error
	userCalls   int
	guestCalls  int
	lastSubject string
}

func (m *mockRecommender) FetchRecommendations(_ context.Context, subjectID string) ([]domain.RecommendationEntry, error) {
	m.userCalls++
	m.lastSubject = subjectID
	return m.entries, m.err
}

func (m *mockRecommender) FetchPopular(_ context.Context) ([]domain.RecommendationEntry, error) {
	m.guestCalls++
	return m.entries, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
	deleted []string
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func (m *mockKVStore) Del(_ context.Context, key string) error {
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func newTestCache(t *testing.T, inner *mockRecommender) (*CachedRecommender, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{data: map[string][]byte{}}
	return New(inner, ms, time.Minute, nil, zap.NewNop()), ms
}

package connections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	sessions map[string]*Session
	before   time.Time
	failSet  bool
}

func (m *memStore) Open(_ context.Context, s *Session) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) SetStatus(_ context.Context, id, status string, attemptID *int64) error {
	if m.failSet {
		return errors.New("db down")
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	s.Status = status
	s.AttemptID = attemptID
	return nil
}

func (m *memStore) PurgeStale(_ context.Context, before time.Time) (int64, error) {
	m.before = before
	return 3, nil
}

func TestTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := &memStore{sessions: make(map[string]*Session)}
	at := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	tr := NewTracker(store, 24*time.Hour)
	tr.now = func() time.Time { return at }

	tr.Opened(ctx, "c1", 5, "10.0.0.1", "fp")
	require.Contains(t, store.sessions, "c1")
	assert.Equal(t, StatusConnected, store.sessions["c1"].Status)
	assert.Equal(t, at, store.sessions["c1"].ConnectedAt)

	tr.InGame(ctx, "c1", 42)
	assert.Equal(t, StatusInGame, store.sessions["c1"].Status)
	assert.Equal(t, int64(42), *store.sessions["c1"].AttemptID)

	tr.Idle(ctx, "c1")
	assert.Equal(t, StatusConnected, store.sessions["c1"].Status)
	assert.Nil(t, store.sessions["c1"].AttemptID)

	tr.Closed(ctx, "c1")
	assert.Equal(t, StatusDisconnected, store.sessions["c1"].Status)

	store.failSet = true
	tr.Closed(ctx, "c1")

	n, err := tr.PurgeStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, at.Add(-24*time.Hour), store.before)
}

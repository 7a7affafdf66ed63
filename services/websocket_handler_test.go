package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diltak/mindtak-sub001/models"
)

// memorySessionStore counts coach session inserts so tests can detect
// duplicate rows.
type memorySessionStore struct {
	mu      sync.Mutex
	creates int
}

func (m *memorySessionStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, CompanyID: "c1", IsActive: true}, nil
}

func (m *memorySessionStore) CreateCoachSession(_ context.Context, session *models.CoachSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	return nil
}

func (m *memorySessionStore) UpdateCoachSession(_ context.Context, _ *models.CoachSession) error {
	return nil
}

func (m *memorySessionStore) CreateWellnessReport(_ context.Context, _ *models.WellnessReport) error {
	return nil
}

func TestEnsureSessionRecordConcurrentFirstTurns(t *testing.T) {
	store := &memorySessionStore{}
	h := &WebSocketHandler{repo: store, sessions: make(map[string]*liveSession)}

	session := &liveSession{
		userID:       "u1",
		mode:         models.SessionTypeText,
		startedAt:    time.Now(),
		lastActivity: time.Now(),
	}
	user := &models.User{ID: "u1", CompanyID: "c1", IsActive: true}

	// Frames are handled in their own goroutines, so several can race on a
	// fresh session's first turn.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ensureSessionRecord(context.Background(), "s1", session, user)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.creates, "racing first turns must not insert duplicate session rows")
	require.NotNil(t, session.record)
	assert.Equal(t, "active", session.record.Status)
	assert.Equal(t, models.SessionTypeText, session.record.Mode)
	assert.Equal(t, "u1", session.record.UserID)
}

func TestEnsureSessionRecordAdoptsExisting(t *testing.T) {
	store := &memorySessionStore{}
	h := &WebSocketHandler{repo: store, sessions: make(map[string]*liveSession)}

	existing := &models.CoachSession{UserID: "u1", Status: "active"}
	session := &liveSession{userID: "u1", record: existing}

	h.ensureSessionRecord(context.Background(), "s1", session, &models.User{ID: "u1"})

	assert.Zero(t, store.creates)
	assert.Same(t, existing, session.record)
}

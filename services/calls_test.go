package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diltak/mindtak-sub001/models"
)

// memoryCallStore keeps both ledger tables in maps. failSessionWrites lets
// tests simulate the second write of a transition failing.
type memoryCallStore struct {
	records           map[string]*models.CallRecord
	sessions          map[string]*models.CallSession
	failSessionWrites bool
}

func newMemoryCallStore() *memoryCallStore {
	return &memoryCallStore{
		records:  make(map[string]*models.CallRecord),
		sessions: make(map[string]*models.CallSession),
	}
}

func (m *memoryCallStore) CreateCallRecord(_ context.Context, record *models.CallRecord) error {
	clone := *record
	m.records[record.CallID] = &clone
	return nil
}

func (m *memoryCallStore) CreateCallSession(_ context.Context, session *models.CallSession) error {
	if m.failSessionWrites {
		return errors.New("session table unavailable")
	}
	clone := *session
	m.sessions[session.CallID] = &clone
	return nil
}

func (m *memoryCallStore) GetCallRecord(_ context.Context, callID string) (*models.CallRecord, error) {
	record, ok := m.records[callID]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (m *memoryCallStore) GetCallSession(_ context.Context, callID string) (*models.CallSession, error) {
	session, ok := m.sessions[callID]
	if !ok {
		return nil, nil
	}
	clone := *session
	return &clone, nil
}

func (m *memoryCallStore) UpdateCallRecord(_ context.Context, record *models.CallRecord) error {
	clone := *record
	m.records[record.CallID] = &clone
	return nil
}

func (m *memoryCallStore) UpdateCallSession(_ context.Context, session *models.CallSession) error {
	if m.failSessionWrites {
		return errors.New("session table unavailable")
	}
	clone := *session
	m.sessions[session.CallID] = &clone
	return nil
}

func TestInitiateCallWritesBothRows(t *testing.T) {
	store := newMemoryCallStore()
	svc := NewCallService(store)

	callID, err := svc.InitiateCall(context.Background(), "caller", "receiver", models.CallTypeVideo)
	require.NoError(t, err)
	require.NotEmpty(t, callID)

	record := store.records[callID]
	session := store.sessions[callID]
	require.NotNil(t, record)
	require.NotNil(t, session)

	assert.Equal(t, models.CallStatusInitiating, record.Status)
	assert.Equal(t, record.Status, session.Status)
	assert.Equal(t, record.CallerID, session.CallerID)
	assert.Equal(t, record.StartTime, session.StartTime)
}

func TestInitiateCallValidation(t *testing.T) {
	svc := NewCallService(newMemoryCallStore())
	ctx := context.Background()

	_, err := svc.InitiateCall(ctx, "", "receiver", models.CallTypeAudio)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.InitiateCall(ctx, "same", "same", models.CallTypeAudio)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.InitiateCall(ctx, "caller", "receiver", "hologram")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCallLifecycleKeepsCopiesInLockstep(t *testing.T) {
	store := newMemoryCallStore()
	svc := NewCallService(store)
	ctx := context.Background()

	callID, err := svc.InitiateCall(ctx, "caller", "receiver", models.CallTypeAudio)
	require.NoError(t, err)

	require.NoError(t, svc.AcceptCall(ctx, callID))
	assert.Equal(t, models.CallStatusActive, store.records[callID].Status)
	assert.Equal(t, models.CallStatusActive, store.sessions[callID].Status)

	require.NoError(t, svc.EndCall(ctx, callID, "receiver", "hangup"))

	record := store.records[callID]
	session := store.sessions[callID]
	assert.Equal(t, models.CallStatusEnded, record.Status)
	assert.Equal(t, models.CallStatusEnded, session.Status)
	assert.Equal(t, "receiver", record.EndedBy)
	assert.Equal(t, record.EndedBy, session.EndedBy)
	assert.Equal(t, "hangup", record.EndReason)
	assert.Equal(t, record.EndReason, session.EndReason)
	require.NotNil(t, record.EndTime)
	require.NotNil(t, session.EndTime)
	assert.Equal(t, *record.EndTime, *session.EndTime)
}

func TestRejectCall(t *testing.T) {
	store := newMemoryCallStore()
	svc := NewCallService(store)
	ctx := context.Background()

	callID, err := svc.InitiateCall(ctx, "caller", "receiver", models.CallTypeAudio)
	require.NoError(t, err)

	require.NoError(t, svc.RejectCall(ctx, callID, "receiver"))

	assert.Equal(t, models.CallStatusRejected, store.records[callID].Status)
	assert.Equal(t, models.CallStatusRejected, store.sessions[callID].Status)
	assert.Equal(t, "rejected", store.records[callID].EndReason)
	assert.NotNil(t, store.records[callID].EndTime)
}

func TestEndCallDefaultsReason(t *testing.T) {
	store := newMemoryCallStore()
	svc := NewCallService(store)
	ctx := context.Background()

	callID, err := svc.InitiateCall(ctx, "caller", "receiver", models.CallTypeAudio)
	require.NoError(t, err)
	require.NoError(t, svc.AcceptCall(ctx, callID))
	require.NoError(t, svc.EndCall(ctx, callID, "caller", ""))

	assert.Equal(t, "completed", store.records[callID].EndReason)
}

func TestTransitionUnknownCall(t *testing.T) {
	svc := NewCallService(newMemoryCallStore())
	err := svc.AcceptCall(context.Background(), "no-such-call")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateCallStatusRejectsUnknownStatus(t *testing.T) {
	store := newMemoryCallStore()
	svc := NewCallService(store)
	ctx := context.Background()

	callID, err := svc.InitiateCall(ctx, "caller", "receiver", models.CallTypeAudio)
	require.NoError(t, err)

	err = svc.UpdateCallStatus(ctx, callID, "paused")
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, svc.UpdateCallStatus(ctx, callID, models.CallStatusActive))
}

func TestFailedSecondWriteSurfacesError(t *testing.T) {
	store := newMemoryCallStore()
	svc := NewCallService(store)
	ctx := context.Background()

	callID, err := svc.InitiateCall(ctx, "caller", "receiver", models.CallTypeAudio)
	require.NoError(t, err)

	store.failSessionWrites = true
	err = svc.AcceptCall(ctx, callID)
	require.ErrorIs(t, err, ErrUpstream)

	// The durable row advanced, the projection did not; the error surfaced
	// instead of being swallowed.
	assert.Equal(t, models.CallStatusActive, store.records[callID].Status)
	assert.Equal(t, models.CallStatusInitiating, store.sessions[callID].Status)
}

func TestTransitionRepairsMissingProjection(t *testing.T) {
	store := newMemoryCallStore()
	svc := NewCallService(store)
	ctx := context.Background()

	callID, err := svc.InitiateCall(ctx, "caller", "receiver", models.CallTypeAudio)
	require.NoError(t, err)

	// Simulate a half-written initiate.
	delete(store.sessions, callID)

	require.NoError(t, svc.AcceptCall(ctx, callID))
	require.NotNil(t, store.sessions[callID])
	assert.Equal(t, models.CallStatusActive, store.sessions[callID].Status)
}

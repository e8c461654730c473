package onboarding

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inventory-sync-engine/internal/models"
)

type mockConnectionRepository struct {
	mock.Mock
}

var _ ConnectionRepository = (*mockConnectionRepository)(nil)

func (m *mockConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PlatformConnection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformConnection), args.Error(1)
}

func (m *mockConnectionRepository) Update(ctx context.Context, connection *models.PlatformConnection) error {
	args := m.Called(ctx, connection)
	return args.Error(0)
}

func (m *mockConnectionRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus models.ConnectionStatus) (bool, error) {
	args := m.Called(ctx, id, expectedStatus, newStatus)
	return args.Bool(0), args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Enqueue(ctx context.Context, jobType, connectionID string, payload map[string]interface{}) (string, error) {
	args := m.Called(ctx, jobType, connectionID, payload)
	return args.String(0), args.Error(1)
}

func TestStartScan_FromPending_EnqueuesAndTransitions(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1", Status: models.StatusPending}

	repo := &mockConnectionRepository{}
	repo.On("GetByID", mock.Anything, connectionID).Return(connection, nil)
	repo.On("CompareAndSetStatus", mock.Anything, connectionID, models.StatusPending, models.StatusScanning).Return(true, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	dispatcher := &mockDispatcher{}
	dispatcher.On("Enqueue", mock.Anything, "initial-scan", connectionID.String(), mock.Anything).Return("initial-scan-abc-123", nil)

	coordinator := NewCoordinator(repo, dispatcher)
	jobID, err := coordinator.StartScan(context.Background(), connectionID)

	require.NoError(t, err)
	assert.Equal(t, "initial-scan-abc-123", jobID)
	repo.AssertExpectations(t)
	dispatcher.AssertExpectations(t)
}

func TestStartScan_AlreadyScanning_ReturnsExistingJobIDWithoutEnqueue(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{
		ID:                   connectionID,
		Status:               models.StatusScanning,
		PlatformSpecificData: models.JSONB{models.MetaCurrentJobID: "initial-scan-existing-1"},
	}

	repo := &mockConnectionRepository{}
	repo.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	dispatcher := &mockDispatcher{}

	coordinator := NewCoordinator(repo, dispatcher)
	jobID, err := coordinator.StartScan(context.Background(), connectionID)

	require.NoError(t, err)
	assert.Equal(t, "initial-scan-existing-1", jobID)
	dispatcher.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStartScan_FromSyncing_IsRejected(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, Status: models.StatusSyncing}

	repo := &mockConnectionRepository{}
	repo.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	coordinator := NewCoordinator(repo, &mockDispatcher{})
	_, err := coordinator.StartScan(context.Background(), connectionID)

	require.Error(t, err)
}

func TestActivateSync_FromNeedsReview_EnqueuesInitialSync(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, Status: models.StatusNeedsReview}

	repo := &mockConnectionRepository{}
	repo.On("GetByID", mock.Anything, connectionID).Return(connection, nil)
	repo.On("CompareAndSetStatus", mock.Anything, connectionID, models.StatusNeedsReview, models.StatusSyncing).Return(true, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	dispatcher := &mockDispatcher{}
	dispatcher.On("Enqueue", mock.Anything, "initial-sync", connectionID.String(), mock.Anything).Return("initial-sync-xyz-1", nil)

	coordinator := NewCoordinator(repo, dispatcher)
	jobID, err := coordinator.ActivateSync(context.Background(), connectionID)

	require.NoError(t, err)
	assert.Equal(t, "initial-sync-xyz-1", jobID)
}

func TestSyncCompleted_WithFailures_TransitionsToError(t *testing.T) {
	connectionID := uuid.New()

	repo := &mockConnectionRepository{}
	repo.On("CompareAndSetStatus", mock.Anything, connectionID, models.StatusSyncing, models.StatusError).Return(true, nil)

	coordinator := NewCoordinator(repo, &mockDispatcher{})
	err := coordinator.SyncCompleted(context.Background(), connectionID, 3)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDisconnect_SetsInactiveAndDisabled(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, Status: models.StatusActive, IsEnabled: true}

	repo := &mockConnectionRepository{}
	repo.On("GetByID", mock.Anything, connectionID).Return(connection, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(c *models.PlatformConnection) bool {
		return c.Status == models.StatusInactive && !c.IsEnabled
	})).Return(nil)

	coordinator := NewCoordinator(repo, &mockDispatcher{})
	err := coordinator.Disconnect(context.Background(), connectionID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

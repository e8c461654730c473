package webhook

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

func TestHandle_ExplicitConnectionID_VerifiesAndRecordsReceipt(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	receipts := &mockReceipts{}
	receipts.On("ExistsWithWebhookID", mock.Anything, "shopify-gid://shopify/Product/123").Return(false, nil)
	receipts.On("Create", mock.Anything, mock.MatchedBy(func(r *models.WebhookReceipt) bool {
		return r.WebhookID == "shopify-gid://shopify/Product/123"
	})).Return(nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	apiClient := &mockAPIClient{}
	apiClient.On("VerifyWebhook", mock.Anything, mock.Anything).Return(nil)
	apiClient.On("ParseWebhook", mock.Anything, mock.Anything).Return(&clients.WebhookEvent{
		EventID: "gid://shopify/Product/123", EventType: "products/update", ResourceType: "product",
	}, nil)

	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}
	dispatcher := NewDispatcher(registry, connections, receipts, activity, decryptor)

	result, pending, err := dispatcher.Handle(context.Background(), models.PlatformShopify, &connectionID, []byte(`{}`), map[string]string{"X-Shopify-Hmac-SHA256": "sig"})

	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, pending)
	require.Equal(t, models.PlatformShopify, result.Platform)
	require.Equal(t, "shopify-gid://shopify/Product/123", result.WebhookID)
	receipts.AssertExpectations(t)
}

func TestHandle_RepeatDeliveryOfSameEvent_DerivesIdenticalKeyAndSkipsCreate(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify}
	event := &clients.WebhookEvent{EventID: "gid://shopify/Product/999", EventType: "products/update"}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	apiClient := &mockAPIClient{}
	apiClient.On("VerifyWebhook", mock.Anything, mock.Anything).Return(nil)
	apiClient.On("ParseWebhook", mock.Anything, mock.Anything).Return(event, nil)

	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	// First delivery: no existing receipt, so Create runs.
	firstReceipts := &mockReceipts{}
	firstReceipts.On("ExistsWithWebhookID", mock.Anything, "shopify-gid://shopify/Product/999").Return(false, nil)
	firstReceipts.On("Create", mock.Anything, mock.Anything).Return(nil)
	firstDispatcher := NewDispatcher(registry, connections, firstReceipts, activity, decryptor)

	firstResult, _, err := firstDispatcher.Handle(context.Background(), models.PlatformShopify, &connectionID, []byte(`{}`), map[string]string{})
	require.NoError(t, err)

	// Second, identical delivery: the store now reports the same key exists.
	secondReceipts := &mockReceipts{}
	secondReceipts.On("ExistsWithWebhookID", mock.Anything, "shopify-gid://shopify/Product/999").Return(true, nil)
	secondDispatcher := NewDispatcher(registry, connections, secondReceipts, activity, decryptor)

	secondResult, pending, err := secondDispatcher.Handle(context.Background(), models.PlatformShopify, &connectionID, []byte(`{}`), map[string]string{})
	require.NoError(t, err)
	require.Nil(t, pending)
	require.Equal(t, firstResult.WebhookID, secondResult.WebhookID)
	secondReceipts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIdempotencyKey_FallsBackToMintedIDWhenEventUnparseable(t *testing.T) {
	key := idempotencyKey(models.PlatformShopify, nil)
	require.NotEmpty(t, key)
	require.NotContains(t, key, "shopify-")
}

func TestHandle_DuplicateWebhook_SkipsCreateButStillReturnsResult(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	receipts := &mockReceipts{}
	receipts.On("ExistsWithWebhookID", mock.Anything, mock.Anything).Return(true, nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	apiClient := &mockAPIClient{}
	apiClient.On("VerifyWebhook", mock.Anything, mock.Anything).Return(nil)
	apiClient.On("ParseWebhook", mock.Anything, mock.Anything).Return(&clients.WebhookEvent{}, nil)

	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}
	dispatcher := NewDispatcher(registry, connections, receipts, activity, decryptor)

	result, pending, err := dispatcher.Handle(context.Background(), models.PlatformShopify, &connectionID, []byte(`{}`), map[string]string{})

	require.NoError(t, err)
	require.NotNil(t, result)
	require.Nil(t, pending)
	receipts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandle_InvalidSignature_ReturnsAuthError(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	apiClient := &mockAPIClient{}
	apiClient.On("VerifyWebhook", mock.Anything, mock.Anything).Return(errInvalidSignature())

	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}
	dispatcher := NewDispatcher(registry, connections, &mockReceipts{}, &mockActivity{}, decryptor)

	_, _, err := dispatcher.Handle(context.Background(), models.PlatformShopify, &connectionID, []byte(`{}`), map[string]string{})

	require.Error(t, err)
}

func TestHandle_EmptyBody_RejectedBeforeResolvingConnection(t *testing.T) {
	dispatcher := NewDispatcher(clients.Registry{}, &mockConnections{}, &mockReceipts{}, &mockActivity{}, &mockDecryptor{})

	_, _, err := dispatcher.Handle(context.Background(), models.PlatformShopify, nil, nil, map[string]string{})

	require.Error(t, err)
}

func errInvalidSignature() error { return invalidSignatureError{} }

type invalidSignatureError struct{}

func (invalidSignatureError) Error() string { return "hmac mismatch" }

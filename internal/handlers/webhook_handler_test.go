package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"inventory-sync-engine/internal/apperr"
	"inventory-sync-engine/internal/models"
	"inventory-sync-engine/internal/webhook"
)

type mockWebhookDispatcher struct{ mock.Mock }

func (m *mockWebhookDispatcher) Handle(ctx context.Context, platform models.PlatformKind, explicitConnectionID *uuid.UUID, payload []byte, headers map[string]string) (*webhook.Result, *webhook.PendingWork, error) {
	args := m.Called(ctx, platform, explicitConnectionID, payload, headers)
	var result *webhook.Result
	if args.Get(0) != nil {
		result = args.Get(0).(*webhook.Result)
	}
	var pending *webhook.PendingWork
	if args.Get(1) != nil {
		pending = args.Get(1).(*webhook.PendingWork)
	}
	return result, pending, args.Error(2)
}

func TestWebhookHandler_HandleShopify_Success(t *testing.T) {
	router := setupTestRouter()
	dispatcher := new(mockWebhookDispatcher)
	handler := NewWebhookHandler(dispatcher)

	result := &webhook.Result{WebhookID: "wh-1", Platform: models.PlatformShopify, Timestamp: time.Now()}
	dispatcher.On("Handle", mock.Anything, models.PlatformShopify, (*uuid.UUID)(nil), mock.Anything, mock.Anything).Return(result, nil, nil)

	router.POST("/webhook/shopify", handler.HandleShopify)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhook/shopify", bytes.NewReader([]byte(`{"id":1}`)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	dispatcher.AssertExpectations(t)
}

func TestWebhookHandler_HandleShopify_WithConnectionID(t *testing.T) {
	router := setupTestRouter()
	dispatcher := new(mockWebhookDispatcher)
	handler := NewWebhookHandler(dispatcher)

	connectionID := uuid.New()
	result := &webhook.Result{WebhookID: "wh-2", Platform: models.PlatformShopify, Timestamp: time.Now()}
	dispatcher.On("Handle", mock.Anything, models.PlatformShopify, &connectionID, mock.Anything, mock.Anything).Return(result, nil, nil)

	router.POST("/webhook/shopify/:connectionId", handler.HandleShopify)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhook/shopify/"+connectionID.String(), bytes.NewReader([]byte(`{}`)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookHandler_HandleShopify_InvalidConnectionID(t *testing.T) {
	router := setupTestRouter()
	dispatcher := new(mockWebhookDispatcher)
	handler := NewWebhookHandler(dispatcher)

	router.POST("/webhook/shopify/:connectionId", handler.HandleShopify)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhook/shopify/not-a-uuid", bytes.NewReader([]byte(`{}`)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	dispatcher.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_HandleSquare_DispatcherError(t *testing.T) {
	router := setupTestRouter()
	dispatcher := new(mockWebhookDispatcher)
	handler := NewWebhookHandler(dispatcher)

	dispatcher.On("Handle", mock.Anything, models.PlatformSquare, (*uuid.UUID)(nil), mock.Anything, mock.Anything).
		Return(nil, nil, apperr.Auth("missing signature", nil))

	router.POST("/webhook/square", handler.HandleSquare)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/webhook/square", bytes.NewReader([]byte(`{}`)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

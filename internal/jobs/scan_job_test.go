package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

func TestScanJob_Run_HappyPath_PersistsAndTransitionsToNeedsReview(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{
		ID: connectionID, UserID: "user-1", IsEnabled: true,
		PlatformKind: models.PlatformShopify, Status: models.StatusScanning,
	}

	existingVariantID := uuid.New()
	sku := "abc-1"
	draftVariantID := uuid.New()
	draftSKU := "abc-1"

	fetchResult := &clients.FetchResult{
		Products: []*models.CanonicalProduct{{ID: uuid.New(), UserID: "user-1"}},
		Variants: []*models.CanonicalProductVariant{{ID: draftVariantID, SKU: &draftSKU}},
		Inventory: []*models.CanonicalInventoryLevel{
			{ID: uuid.New(), VariantID: draftVariantID, ConnectionID: connectionID, PlatformLocationID: "loc-1"},
		},
		Mappings: []*models.PlatformProductMapping{
			{VariantID: draftVariantID, PlatformProductID: "shop-prod-1", SyncStatus: models.MappingPending},
		},
	}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)
	connections.On("Update", mock.Anything, mock.Anything).Return(nil)

	products := &mockProducts{}
	products.On("SaveProduct", mock.Anything, mock.Anything).Return(nil)
	products.On("SaveVariants", mock.Anything, fetchResult.Variants).Return(nil)
	products.On("FindVariantsByUser", mock.Anything, "user-1").Return([]models.CanonicalProductVariant{
		{ID: existingVariantID, SKU: &sku},
	}, nil)

	inventory := &mockInventory{}
	inventory.On("SaveBulkInventoryLevels", mock.Anything, fetchResult.Inventory).Return(nil)

	mappings := &mockMappings{}
	mappings.On("GetSnapshot", mock.Anything, connectionID, "shop-prod-1").Return(nil, errors.New("not found"))
	mappings.On("UpsertSnapshot", mock.Anything, mock.MatchedBy(func(s *models.RawSnapshot) bool {
		return s.ConnectionID == connectionID && s.ExternalID == "shop-prod-1"
	})).Return(nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{"token": "t"}, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("ScanSucceeded", mock.Anything, connectionID).Return(nil)

	apiClient := &mockAPIClient{}
	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)
	adapter.On("SyncFromPlatform", mock.Anything, apiClient, connection, "user-1").Return(fetchResult, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}

	job := NewScanJob(registry, connections, products, inventory, mappings, activity, decryptor, coordinator, nil)
	err := job.Run(context.Background(), "initial-scan-1", connectionID, "user-1")

	require.NoError(t, err)
	coordinator.AssertExpectations(t)
	mappings.AssertExpectations(t)

	suggestions, ok := connection.PlatformSpecificData[models.MetaMappingSuggestions].([]models.MappingSuggestion)
	require.True(t, ok)
	require.Len(t, suggestions, 1)
	require.Equal(t, models.MatchSKU, suggestions[0].MatchType)
	require.Equal(t, existingVariantID, *suggestions[0].SuggestedVariantID)
}

func TestScanJob_Run_UnchangedSnapshot_SkipsResurfacingSuggestion(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{
		ID: connectionID, UserID: "user-1", IsEnabled: true,
		PlatformKind: models.PlatformShopify, Status: models.StatusScanning,
	}

	draftVariantID := uuid.New()
	draftSKU := "abc-1"

	fetchResult := &clients.FetchResult{
		Products:  []*models.CanonicalProduct{{ID: uuid.New(), UserID: "user-1"}},
		Variants:  []*models.CanonicalProductVariant{{ID: draftVariantID, SKU: &draftSKU, Title: "Widget"}},
		Inventory: []*models.CanonicalInventoryLevel{},
		Mappings: []*models.PlatformProductMapping{
			{VariantID: draftVariantID, PlatformProductID: "shop-prod-1", SyncStatus: models.MappingPending},
		},
	}

	hash, rawData := fingerprintVariant(fetchResult.Variants[0])

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)
	connections.On("Update", mock.Anything, mock.Anything).Return(nil)

	products := &mockProducts{}
	products.On("SaveProduct", mock.Anything, mock.Anything).Return(nil)
	products.On("SaveVariants", mock.Anything, fetchResult.Variants).Return(nil)
	products.On("FindVariantsByUser", mock.Anything, "user-1").Return([]models.CanonicalProductVariant{}, nil)

	inventory := &mockInventory{}
	inventory.On("SaveBulkInventoryLevels", mock.Anything, fetchResult.Inventory).Return(nil)

	mappings := &mockMappings{}
	mappings.On("GetSnapshot", mock.Anything, connectionID, "shop-prod-1").Return(&models.RawSnapshot{
		ConnectionID: connectionID, ExternalID: "shop-prod-1", RawData: rawData, DataHash: hash,
	}, nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{"token": "t"}, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("ScanSucceeded", mock.Anything, connectionID).Return(nil)

	apiClient := &mockAPIClient{}
	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)
	adapter.On("SyncFromPlatform", mock.Anything, apiClient, connection, "user-1").Return(fetchResult, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}

	job := NewScanJob(registry, connections, products, inventory, mappings, activity, decryptor, coordinator, nil)
	err := job.Run(context.Background(), "initial-scan-2", connectionID, "user-1")

	require.NoError(t, err)
	mappings.AssertExpectations(t)
	mappings.AssertNotCalled(t, "UpsertSnapshot", mock.Anything, mock.Anything)

	suggestions, _ := connection.PlatformSpecificData[models.MetaMappingSuggestions].([]models.MappingSuggestion)
	require.Empty(t, suggestions)
}

func TestScanJob_Run_DisabledConnection_ReturnsValidationError(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, IsEnabled: false}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	job := NewScanJob(clients.Registry{}, connections, &mockProducts{}, &mockInventory{}, &mockMappings{}, &mockActivity{}, &mockDecryptor{}, &mockCoordinator{}, nil)
	err := job.Run(context.Background(), "job-1", connectionID, "user-1")

	require.Error(t, err)
}

func TestScanJob_Run_PlatformFetchFails_MarksErrorAndScanFailed(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1", IsEnabled: true, PlatformKind: models.PlatformShopify}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)
	connections.On("UpdateStatus", mock.Anything, connectionID, models.StatusError, mock.Anything).Return(nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("ScanFailed", mock.Anything, connectionID).Return(nil)

	apiClient := &mockAPIClient{}
	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)
	adapter.On("SyncFromPlatform", mock.Anything, apiClient, connection, "user-1").Return(nil, errors.New("platform unreachable"))

	registry := clients.Registry{models.PlatformShopify: adapter}

	job := NewScanJob(registry, connections, &mockProducts{}, &mockInventory{}, &mockMappings{}, activity, decryptor, coordinator, nil)
	err := job.Run(context.Background(), "job-1", connectionID, "user-1")

	require.Error(t, err)
	coordinator.AssertExpectations(t)
}

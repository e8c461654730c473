package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

func confirmationPayload(matches ...map[string]interface{}) []interface{} {
	raw := make([]interface{}, len(matches))
	for i, m := range matches {
		raw[i] = m
	}
	return raw
}

func TestSyncJob_Run_NoConfirmedMatches_CompletesImmediately(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1"}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("SyncCompleted", mock.Anything, connectionID, 0).Return(nil)

	job := NewSyncJob(clients.Registry{}, connections, &mockProducts{}, &mockInventory{}, &mockMappings{}, &mockActivity{}, &mockDecryptor{}, coordinator, nil)
	err := job.Run(context.Background(), "job-1", connectionID, "user-1")

	require.NoError(t, err)
	coordinator.AssertExpectations(t)
}

func TestSyncJob_Run_LinkAction_UpsertsMappingAndSyncs(t *testing.T) {
	connectionID := uuid.New()
	variantID := uuid.New()
	variant := &models.CanonicalProductVariant{ID: variantID, UserID: "user-1"}

	connection := &models.PlatformConnection{
		ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify,
		PlatformSpecificData: models.JSONB{
			models.MetaMappingConfirmations: confirmationPayload(map[string]interface{}{
				"platformProductId": "shop-prod-1",
				"action":            string(models.ActionLink),
				"matchedVariantId":  variantID.String(),
			}),
		},
	}
	connection.SetSyncRules(models.SyncRules{ProductDetailsSoT: "PLATFORM", InventorySoT: "PLATFORM", CreateNew: true})

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	products := &mockProducts{}
	products.On("GetVariant", mock.Anything, variantID).Return(variant, nil)
	products.On("SaveVariants", mock.Anything, mock.MatchedBy(func(vs []*models.CanonicalProductVariant) bool {
		return len(vs) == 1 && vs[0].ID == variantID
	})).Return(nil)

	mappings := &mockMappings{}
	mappings.On("Upsert", mock.Anything, mock.MatchedBy(func(m *models.PlatformProductMapping) bool {
		return m.VariantID == variantID && m.PlatformProductID == "shop-prod-1" && m.SyncStatus == models.MappingLinked
	})).Return(nil)
	mappings.On("Update", mock.Anything, mock.MatchedBy(func(m *models.PlatformProductMapping) bool {
		return m.SyncStatus == models.MappingSynced
	})).Return(nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("SyncCompleted", mock.Anything, connectionID, 0).Return(nil)

	apiClient := &mockAPIClient{}
	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}

	job := NewSyncJob(registry, connections, products, &mockInventory{}, mappings, activity, decryptor, coordinator, nil)
	err := job.Run(context.Background(), "job-1", connectionID, "user-1")

	require.NoError(t, err)
	mappings.AssertExpectations(t)
	coordinator.AssertExpectations(t)
}

func TestSyncJob_Run_LinkActionMissingVariant_CountsAsFailure(t *testing.T) {
	connectionID := uuid.New()
	connection := &models.PlatformConnection{
		ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify,
		PlatformSpecificData: models.JSONB{
			models.MetaMappingConfirmations: confirmationPayload(map[string]interface{}{
				"platformProductId": "shop-prod-1",
				"action":            string(models.ActionLink),
			}),
		},
	}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("SyncCompleted", mock.Anything, connectionID, 1).Return(nil)

	apiClient := &mockAPIClient{}
	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}

	job := NewSyncJob(registry, connections, &mockProducts{}, &mockInventory{}, &mockMappings{}, activity, decryptor, coordinator, nil)
	err := job.Run(context.Background(), "job-1", connectionID, "user-1")

	require.NoError(t, err)
	coordinator.AssertExpectations(t)
}

func TestSyncJob_Run_LinkAction_PlatformSoT_OverlaysFieldsWithoutClobberingAbsentOnes(t *testing.T) {
	connectionID := uuid.New()
	variantID := uuid.New()
	originalSKU := "orig-sku"
	variant := &models.CanonicalProductVariant{ID: variantID, UserID: "user-1", SKU: &originalSKU, Title: "Old Title", Description: "kept description"}
	platformVariantID := "shop-var-1"
	platformTitle := "New Platform Title"

	connection := &models.PlatformConnection{
		ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify,
		PlatformSpecificData: models.JSONB{
			models.MetaMappingConfirmations: confirmationPayload(map[string]interface{}{
				"platformProductId": "shop-prod-1",
				"platformVariantId": platformVariantID,
				"platformTitle":     platformTitle,
				"action":            string(models.ActionLink),
				"matchedVariantId":  variantID.String(),
			}),
		},
	}
	connection.SetSyncRules(models.SyncRules{ProductDetailsSoT: "PLATFORM", InventorySoT: "PLATFORM"})

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	products := &mockProducts{}
	products.On("GetVariant", mock.Anything, variantID).Return(variant, nil)
	products.On("SaveVariants", mock.Anything, mock.MatchedBy(func(vs []*models.CanonicalProductVariant) bool {
		v := vs[0]
		return v.Title == platformTitle && v.Description == "kept description"
	})).Return(nil)

	inventoryLevels := []clients.PlatformInventoryLevel{{PlatformVariantID: platformVariantID, PlatformLocationID: "loc-1", Quantity: 7}}
	inventory := &mockInventory{}
	inventory.On("SaveBulkInventoryLevels", mock.Anything, mock.MatchedBy(func(rows []*models.CanonicalInventoryLevel) bool {
		return len(rows) == 1 && rows[0].VariantID == variantID && rows[0].PlatformLocationID == "loc-1" && rows[0].Quantity == 7
	})).Return(nil)

	mappings := &mockMappings{}
	mappings.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	mappings.On("Update", mock.Anything, mock.Anything).Return(nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("SyncCompleted", mock.Anything, connectionID, 0).Return(nil)

	apiClient := &mockAPIClient{}
	apiClient.On("FetchInventoryLevels", mock.Anything, []string{platformVariantID}).Return(inventoryLevels, nil)
	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}

	job := NewSyncJob(registry, connections, products, inventory, mappings, activity, decryptor, coordinator, nil)
	err := job.Run(context.Background(), "job-1", connectionID, "user-1")

	require.NoError(t, err)
	products.AssertExpectations(t)
	inventory.AssertExpectations(t)
	coordinator.AssertExpectations(t)
}

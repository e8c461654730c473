package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/clients/shopify"
	"inventory-sync-engine/internal/models"
)

func TestReconcileJob_Run_FindsNewAndMissingProducts_RefreshesInventory(t *testing.T) {
	connectionID := uuid.New()
	mappedVariantID := uuid.New()
	platformVariantID := "shop-var-1"

	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	mappings := &mockMappings{}
	mappings.On("GetByConnection", mock.Anything, connectionID).Return([]models.PlatformProductMapping{
		{PlatformProductID: "shop-prod-mapped", VariantID: mappedVariantID, PlatformVariantID: &platformVariantID, IsEnabled: true},
		{PlatformProductID: "shop-prod-gone", IsEnabled: true},
	}, nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("ReconcileCompleted", mock.Anything, connectionID, true).Return(nil)

	apiClient := &mockAPIClient{}
	apiClient.On("FetchProductOverviews", mock.Anything).Return([]clients.ProductOverview{
		{PlatformProductID: "shop-prod-mapped", Title: "Mapped Product"},
		{PlatformProductID: "shop-prod-new", Title: "New Product"},
	}, nil)
	apiClient.On("FetchInventoryLevels", mock.Anything, []string{platformVariantID}).Return([]clients.PlatformInventoryLevel{
		{PlatformVariantID: platformVariantID, PlatformLocationID: "loc-1", Quantity: 7, UpdatedAt: time.Now()},
	}, nil)
	apiClient.On("FetchProduct", mock.Anything, "shop-prod-new").Return(&clients.PlatformProduct{
		ID:    "shop-prod-new",
		Title: "New Product",
		Variants: []clients.PlatformVariant{
			{ID: "shop-var-new", SKU: "new-sku", Title: "New Product", Price: 1500},
		},
	}, nil)

	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)
	adapter.On("GetMapper").Return(clients.Mapper(shopify.Mapper{}))

	products := &mockProducts{}
	products.On("SaveProduct", mock.Anything, mock.MatchedBy(func(p *models.CanonicalProduct) bool {
		return p.Title == "New Product"
	})).Return(nil)
	products.On("SaveVariants", mock.Anything, mock.MatchedBy(func(vs []*models.CanonicalProductVariant) bool {
		return len(vs) == 1 && *vs[0].SKU == "new-sku"
	})).Return(nil)

	inventory := &mockInventory{}
	inventory.On("UpdateLevel", mock.Anything, mappedVariantID, connectionID, "loc-1", 7, mock.Anything).Return(nil)
	inventory.On("SaveBulkInventoryLevels", mock.Anything, mock.Anything).Return(nil)

	mappings.On("Upsert", mock.Anything, mock.MatchedBy(func(m *models.PlatformProductMapping) bool {
		return m.PlatformProductID == "shop-prod-new" && m.SyncStatus == models.MappingSynced
	})).Return(nil)

	registry := clients.Registry{models.PlatformShopify: adapter}

	job := NewReconcileJob(registry, connections, products, inventory, mappings, activity, decryptor, coordinator, nil)
	err := job.Run(context.Background(), "job-1", connectionID, "user-1")

	require.NoError(t, err)
	mappings.AssertExpectations(t)
	products.AssertExpectations(t)
	inventory.AssertExpectations(t)
	coordinator.AssertExpectations(t)
}

func TestReconcileJob_Run_InventoryFetchFails_CompletesWithFailure(t *testing.T) {
	connectionID := uuid.New()
	platformVariantID := "shop-var-1"
	connection := &models.PlatformConnection{ID: connectionID, UserID: "user-1", PlatformKind: models.PlatformShopify}

	connections := &mockConnections{}
	connections.On("GetByID", mock.Anything, connectionID).Return(connection, nil)

	mappings := &mockMappings{}
	mappings.On("GetByConnection", mock.Anything, connectionID).Return([]models.PlatformProductMapping{
		{PlatformProductID: "shop-prod-1", PlatformVariantID: &platformVariantID, IsEnabled: true},
	}, nil)

	activity := &mockActivity{}
	activity.On("LogActivity", mock.Anything, mock.Anything).Return(nil)

	decryptor := &mockDecryptor{}
	decryptor.On("Decrypt", mock.Anything, "user-1", mock.Anything).Return(map[string]any{}, nil)

	coordinator := &mockCoordinator{}
	coordinator.On("ReconcileCompleted", mock.Anything, connectionID, false).Return(nil)

	apiClient := &mockAPIClient{}
	apiClient.On("FetchProductOverviews", mock.Anything).Return([]clients.ProductOverview{
		{PlatformProductID: "shop-prod-1", Title: "Product"},
	}, nil)
	apiClient.On("FetchInventoryLevels", mock.Anything, mock.Anything).Return(nil, errors.New("platform timeout"))

	adapter := &mockAdapter{}
	adapter.On("GetApiClient", connection, mock.Anything).Return(apiClient, nil)

	registry := clients.Registry{models.PlatformShopify: adapter}

	job := NewReconcileJob(registry, connections, &mockProducts{}, &mockInventory{}, mappings, activity, decryptor, coordinator, nil)
	err := job.Run(context.Background(), "job-1", connectionID, "user-1")

	require.NoError(t, err)
	coordinator.AssertExpectations(t)
}

package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

type mockConnections struct{ mock.Mock }

var _ ConnectionRepository = (*mockConnections)(nil)

func (m *mockConnections) GetByID(ctx context.Context, id uuid.UUID) (*models.PlatformConnection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformConnection), args.Error(1)
}

func (m *mockConnections) Update(ctx context.Context, connection *models.PlatformConnection) error {
	return m.Called(ctx, connection).Error(0)
}

func (m *mockConnections) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ConnectionStatus, lastError string) error {
	return m.Called(ctx, id, status, lastError).Error(0)
}

type mockProducts struct{ mock.Mock }

var _ ProductRepository = (*mockProducts)(nil)

func (m *mockProducts) SaveProduct(ctx context.Context, product *models.CanonicalProduct) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProducts) SaveVariants(ctx context.Context, variants []*models.CanonicalProductVariant) error {
	return m.Called(ctx, variants).Error(0)
}

func (m *mockProducts) SaveVariantImages(ctx context.Context, productID uuid.UUID, images []*models.ProductImage) error {
	return m.Called(ctx, productID, images).Error(0)
}

func (m *mockProducts) FindVariantsByUser(ctx context.Context, userID string) ([]models.CanonicalProductVariant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CanonicalProductVariant), args.Error(1)
}

func (m *mockProducts) GetVariant(ctx context.Context, id uuid.UUID) (*models.CanonicalProductVariant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CanonicalProductVariant), args.Error(1)
}

func (m *mockProducts) GetVariantBySKU(ctx context.Context, userID, sku string) (*models.CanonicalProductVariant, error) {
	args := m.Called(ctx, userID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CanonicalProductVariant), args.Error(1)
}

type mockInventory struct{ mock.Mock }

var _ InventoryRepository = (*mockInventory)(nil)

func (m *mockInventory) SaveBulkInventoryLevels(ctx context.Context, levels []*models.CanonicalInventoryLevel) error {
	return m.Called(ctx, levels).Error(0)
}

func (m *mockInventory) UpdateLevel(ctx context.Context, variantID, connectionID uuid.UUID, platformLocationID string, quantity int, platformUpdatedAt time.Time) error {
	return m.Called(ctx, variantID, connectionID, platformLocationID, quantity, platformUpdatedAt).Error(0)
}

func (m *mockInventory) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]models.CanonicalInventoryLevel, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CanonicalInventoryLevel), args.Error(1)
}

type mockMappings struct{ mock.Mock }

var _ MappingRepository = (*mockMappings)(nil)

func (m *mockMappings) GetByVariantAndPlatformProduct(ctx context.Context, connectionID, variantID uuid.UUID) (*models.PlatformProductMapping, error) {
	args := m.Called(ctx, connectionID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformProductMapping), args.Error(1)
}

func (m *mockMappings) GetByPlatformProduct(ctx context.Context, connectionID uuid.UUID, platformProductID string) (*models.PlatformProductMapping, error) {
	args := m.Called(ctx, connectionID, platformProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformProductMapping), args.Error(1)
}

func (m *mockMappings) GetByConnection(ctx context.Context, connectionID uuid.UUID) ([]models.PlatformProductMapping, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PlatformProductMapping), args.Error(1)
}

func (m *mockMappings) Upsert(ctx context.Context, mapping *models.PlatformProductMapping) error {
	return m.Called(ctx, mapping).Error(0)
}

func (m *mockMappings) Update(ctx context.Context, mapping *models.PlatformProductMapping) error {
	return m.Called(ctx, mapping).Error(0)
}

func (m *mockMappings) GetSnapshot(ctx context.Context, connectionID uuid.UUID, externalID string) (*models.RawSnapshot, error) {
	args := m.Called(ctx, connectionID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RawSnapshot), args.Error(1)
}

func (m *mockMappings) UpsertSnapshot(ctx context.Context, snapshot *models.RawSnapshot) error {
	return m.Called(ctx, snapshot).Error(0)
}

type mockActivity struct{ mock.Mock }

var _ ActivityRepository = (*mockActivity)(nil)

func (m *mockActivity) LogActivity(ctx context.Context, entry *models.ActivityLog) error {
	return m.Called(ctx, entry).Error(0)
}

type mockDecryptor struct{ mock.Mock }

var _ Decryptor = (*mockDecryptor)(nil)

func (m *mockDecryptor) Decrypt(ctx context.Context, userID string, blob []byte) (map[string]any, error) {
	args := m.Called(ctx, userID, blob)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

type mockCoordinator struct{ mock.Mock }

var _ StatusCoordinator = (*mockCoordinator)(nil)

func (m *mockCoordinator) ScanSucceeded(ctx context.Context, connectionID uuid.UUID) error {
	return m.Called(ctx, connectionID).Error(0)
}

func (m *mockCoordinator) ScanFailed(ctx context.Context, connectionID uuid.UUID) error {
	return m.Called(ctx, connectionID).Error(0)
}

func (m *mockCoordinator) SyncCompleted(ctx context.Context, connectionID uuid.UUID, itemFailures int) error {
	return m.Called(ctx, connectionID, itemFailures).Error(0)
}

func (m *mockCoordinator) ReconcileCompleted(ctx context.Context, connectionID uuid.UUID, succeeded bool) error {
	return m.Called(ctx, connectionID, succeeded).Error(0)
}

type mockAdapter struct{ mock.Mock }

var _ clients.Adapter = (*mockAdapter)(nil)

func (m *mockAdapter) GetApiClient(connection *models.PlatformConnection, credentials map[string]interface{}) (clients.ApiClient, error) {
	args := m.Called(connection, credentials)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(clients.ApiClient), args.Error(1)
}

func (m *mockAdapter) GetMapper() clients.Mapper {
	return m.Called().Get(0).(clients.Mapper)
}

func (m *mockAdapter) GetSyncLogic() clients.SyncPolicy {
	return m.Called().Get(0).(clients.SyncPolicy)
}

func (m *mockAdapter) SyncFromPlatform(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, userID string) (*clients.FetchResult, error) {
	args := m.Called(ctx, client, connection, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.FetchResult), args.Error(1)
}

func (m *mockAdapter) CreateProduct(ctx context.Context, client clients.ApiClient, product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) (*clients.CreateResult, error) {
	args := m.Called(ctx, client, product, variants, inventory)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.CreateResult), args.Error(1)
}

func (m *mockAdapter) UpdateProduct(ctx context.Context, client clients.ApiClient, mapping *models.PlatformProductMapping, product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) error {
	return m.Called(ctx, client, mapping, product, variants, inventory).Error(0)
}

func (m *mockAdapter) DeleteProduct(ctx context.Context, client clients.ApiClient, mapping *models.PlatformProductMapping) error {
	return m.Called(ctx, client, mapping).Error(0)
}

func (m *mockAdapter) UpdateInventoryLevels(ctx context.Context, client clients.ApiClient, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	args := m.Called(ctx, client, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.BatchResult), args.Error(1)
}

func (m *mockAdapter) ProcessWebhook(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, payload []byte, headers map[string]string, webhookID string) error {
	return m.Called(ctx, client, connection, payload, headers, webhookID).Error(0)
}

func (m *mockAdapter) SyncSingleProductFromPlatform(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, userID, platformProductID string) (*clients.FetchResult, error) {
	args := m.Called(ctx, client, connection, userID, platformProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.FetchResult), args.Error(1)
}

type mockAPIClient struct{ mock.Mock }

var _ clients.ApiClient = (*mockAPIClient)(nil)

func (m *mockAPIClient) TestConnection(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockAPIClient) FetchAllProducts(ctx context.Context, cursor string) (*clients.ProductPage, error) {
	args := m.Called(ctx, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.ProductPage), args.Error(1)
}

func (m *mockAPIClient) FetchProductOverviews(ctx context.Context) ([]clients.ProductOverview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clients.ProductOverview), args.Error(1)
}

func (m *mockAPIClient) FetchProduct(ctx context.Context, platformProductID string) (*clients.PlatformProduct, error) {
	args := m.Called(ctx, platformProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.PlatformProduct), args.Error(1)
}

func (m *mockAPIClient) FetchInventoryLevels(ctx context.Context, platformVariantIDs []string) ([]clients.PlatformInventoryLevel, error) {
	args := m.Called(ctx, platformVariantIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clients.PlatformInventoryLevel), args.Error(1)
}

func (m *mockAPIClient) CreateProduct(ctx context.Context, bundle *clients.PlatformProductBundle) (*clients.CreateResult, error) {
	args := m.Called(ctx, bundle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.CreateResult), args.Error(1)
}

func (m *mockAPIClient) UpdateProduct(ctx context.Context, platformProductID string, bundle *clients.PlatformProductBundle) error {
	return m.Called(ctx, platformProductID, bundle).Error(0)
}

func (m *mockAPIClient) DeleteProduct(ctx context.Context, platformProductID string) error {
	return m.Called(ctx, platformProductID).Error(0)
}

func (m *mockAPIClient) PushInventoryLevels(ctx context.Context, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	args := m.Called(ctx, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.BatchResult), args.Error(1)
}

func (m *mockAPIClient) VerifyWebhook(payload []byte, headers map[string]string) error {
	return m.Called(payload, headers).Error(0)
}

func (m *mockAPIClient) ParseWebhook(payload []byte, headers map[string]string) (*clients.WebhookEvent, error) {
	args := m.Called(payload, headers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*clients.WebhookEvent), args.Error(1)
}

func (m *mockAPIClient) IdentifyFromWebhookHeaders(headers map[string]string) string {
	return m.Called(headers).String(0)
}

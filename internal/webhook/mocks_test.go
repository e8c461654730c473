package webhook

import (
	"context"

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

func (m *mockConnections) FindByPlatformIdentity(ctx context.Context, platformKind models.PlatformKind, uniqueIdentifier string) (*models.PlatformConnection, error) {
	args := m.Called(ctx, platformKind, uniqueIdentifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformConnection), args.Error(1)
}

type mockReceipts struct{ mock.Mock }

var _ ReceiptRepository = (*mockReceipts)(nil)

func (m *mockReceipts) Create(ctx context.Context, receipt *models.WebhookReceipt) error {
	return m.Called(ctx, receipt).Error(0)
}

func (m *mockReceipts) ExistsWithWebhookID(ctx context.Context, webhookID string) (bool, error) {
	args := m.Called(ctx, webhookID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReceipts) MarkProcessed(ctx context.Context, id uuid.UUID, cause error) error {
	return m.Called(ctx, id, cause).Error(0)
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

type mockAdapter struct{ mock.Mock }

var _ clients.Adapter = (*mockAdapter)(nil)

func (m *mockAdapter) GetApiClient(connection *models.PlatformConnection, credentials map[string]interface{}) (clients.ApiClient, error) {
	args := m.Called(connection, credentials)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(clients.ApiClient), args.Error(1)
}

func (m *mockAdapter) GetMapper() clients.Mapper { return m.Called().Get(0).(clients.Mapper) }
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

func (m *mockAPIClient) TestConnection(ctx context.Context) error { return m.Called(ctx).Error(0) }

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

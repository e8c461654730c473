package whatnot

import (
	"context"
	"fmt"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

type stubMapper struct{}

func (stubMapper) MapPlatformDataToCanonical(raw *clients.PlatformProduct, userID string, connectionID string) (*clients.MappedDraft, error) {
	return nil, fmt.Errorf("whatnot: not implemented")
}

func (stubMapper) BuildBundle(product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) (*clients.PlatformProductBundle, error) {
	return nil, fmt.Errorf("whatnot: not implemented")
}

// Adapter is the Whatnot placeholder, registered under
// models.PlatformWhatnot.
type Adapter struct {
	mapper stubMapper
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) GetApiClient(connection *models.PlatformConnection, credentials map[string]interface{}) (clients.ApiClient, error) {
	client := NewClient()
	if err := client.Initialize(credentials); err != nil {
		return nil, fmt.Errorf("initializing whatnot client: %w", err)
	}
	return client, nil
}

func (a *Adapter) GetMapper() clients.Mapper { return a.mapper }

func (a *Adapter) GetSyncLogic() clients.SyncPolicy {
	return clients.DefaultSyncPolicy()
}

func (a *Adapter) SyncFromPlatform(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, userID string) (*clients.FetchResult, error) {
	return nil, fmt.Errorf("whatnot: not implemented")
}

func (a *Adapter) CreateProduct(ctx context.Context, client clients.ApiClient, product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) (*clients.CreateResult, error) {
	return nil, fmt.Errorf("whatnot: not implemented")
}

func (a *Adapter) UpdateProduct(ctx context.Context, client clients.ApiClient, mapping *models.PlatformProductMapping, product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) error {
	return fmt.Errorf("whatnot: not implemented")
}

func (a *Adapter) DeleteProduct(ctx context.Context, client clients.ApiClient, mapping *models.PlatformProductMapping) error {
	return fmt.Errorf("whatnot: not implemented")
}

func (a *Adapter) UpdateInventoryLevels(ctx context.Context, client clients.ApiClient, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	return client.PushInventoryLevels(ctx, updates)
}

func (a *Adapter) ProcessWebhook(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, payload []byte, headers map[string]string, webhookID string) error {
	return nil
}

func (a *Adapter) SyncSingleProductFromPlatform(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, userID, platformProductID string) (*clients.FetchResult, error) {
	return nil, fmt.Errorf("whatnot: not implemented")
}

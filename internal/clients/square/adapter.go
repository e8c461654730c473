package square

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

// Adapter is the Square clients.Adapter implementation, registered under
// models.PlatformSquare.
type Adapter struct {
	mapper Mapper
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) GetApiClient(connection *models.PlatformConnection, credentials map[string]interface{}) (clients.ApiClient, error) {
	client := NewClient()
	if err := client.Initialize(credentials); err != nil {
		return nil, fmt.Errorf("initializing square client: %w", err)
	}
	return client, nil
}

func (a *Adapter) GetMapper() clients.Mapper {
	return a.mapper
}

func (a *Adapter) GetSyncLogic() clients.SyncPolicy {
	return clients.DefaultSyncPolicy()
}

func (a *Adapter) SyncFromPlatform(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, userID string) (*clients.FetchResult, error) {
	result := &clients.FetchResult{}
	cursor := ""

	for {
		page, err := client.FetchAllProducts(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetching square catalog: %w", err)
		}

		for i := range page.Products {
			draft, err := a.mapper.MapPlatformDataToCanonical(&page.Products[i], userID, connection.ID.String())
			if err != nil {
				return nil, fmt.Errorf("mapping square item %s: %w", page.Products[i].ID, err)
			}

			result.Products = append(result.Products, draft.Product)
			result.Variants = append(result.Variants, draft.Variants...)
			result.Inventory = append(result.Inventory, draft.Inventory...)
			for pos, url := range draft.ImageURLs {
				result.Images = append(result.Images, &models.ProductImage{
					ID:        uuid.New(),
					ProductID: draft.Product.ID,
					URL:       url,
					Position:  pos,
				})
			}

			mapping := &models.PlatformProductMapping{
				ConnectionID:      connection.ID,
				PlatformProductID: page.Products[i].ID,
			}
			if len(draft.Variants) > 0 {
				mapping.VariantID = draft.Variants[0].ID
			}
			result.Mappings = append(result.Mappings, mapping)
		}

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	return result, nil
}

func (a *Adapter) CreateProduct(ctx context.Context, client clients.ApiClient, product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) (*clients.CreateResult, error) {
	bundle, err := a.mapper.BuildBundle(product, variants, inventory)
	if err != nil {
		return nil, err
	}
	return client.CreateProduct(ctx, bundle)
}

func (a *Adapter) UpdateProduct(ctx context.Context, client clients.ApiClient, mapping *models.PlatformProductMapping, product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) error {
	bundle, err := a.mapper.BuildBundle(product, variants, inventory)
	if err != nil {
		return err
	}
	return client.UpdateProduct(ctx, mapping.PlatformProductID, bundle)
}

func (a *Adapter) DeleteProduct(ctx context.Context, client clients.ApiClient, mapping *models.PlatformProductMapping) error {
	return client.DeleteProduct(ctx, mapping.PlatformProductID)
}

func (a *Adapter) UpdateInventoryLevels(ctx context.Context, client clients.ApiClient, updates []clients.InventoryUpdate) (*clients.BatchResult, error) {
	return client.PushInventoryLevels(ctx, updates)
}

func (a *Adapter) ProcessWebhook(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, payload []byte, headers map[string]string, webhookID string) error {
	event, err := client.ParseWebhook(payload, headers)
	if err != nil {
		return fmt.Errorf("parsing square webhook: %w", err)
	}
	if event.ResourceType != "product" && event.ResourceType != "inventory" {
		return nil
	}
	_, err = a.SyncSingleProductFromPlatform(ctx, client, connection, connection.UserID, event.ResourceID)
	return err
}

func (a *Adapter) SyncSingleProductFromPlatform(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, userID, platformProductID string) (*clients.FetchResult, error) {
	raw, err := client.FetchProduct(ctx, platformProductID)
	if err != nil {
		return nil, fmt.Errorf("fetching square item %s: %w", platformProductID, err)
	}

	draft, err := a.mapper.MapPlatformDataToCanonical(raw, userID, connection.ID.String())
	if err != nil {
		return nil, fmt.Errorf("mapping square item %s: %w", platformProductID, err)
	}

	result := &clients.FetchResult{
		Products:  []*models.CanonicalProduct{draft.Product},
		Variants:  draft.Variants,
		Inventory: draft.Inventory,
	}
	for pos, url := range draft.ImageURLs {
		result.Images = append(result.Images, &models.ProductImage{
			ID:        uuid.New(),
			ProductID: draft.Product.ID,
			URL:       url,
			Position:  pos,
		})
	}
	return result, nil
}

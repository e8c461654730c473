package square

import (
	"github.com/google/uuid"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

// Mapper converts Square catalog payloads to/from canonical rows, in the
// same shape as clients/shopify.Mapper.
type Mapper struct{}

func (Mapper) MapPlatformDataToCanonical(raw *clients.PlatformProduct, userID string, connectionID string) (*clients.MappedDraft, error) {
	productID := uuid.New()

	product := &models.CanonicalProduct{
		ID:     productID,
		UserID: userID,
		Title:  raw.Title,
	}

	connUUID, err := uuid.Parse(connectionID)
	if err != nil {
		return nil, err
	}

	variants := make([]*models.CanonicalProductVariant, 0, len(raw.Variants))
	inventory := make([]*models.CanonicalInventoryLevel, 0, len(raw.Variants))

	for _, v := range raw.Variants {
		variantID := uuid.New()
		variants = append(variants, &models.CanonicalProductVariant{
			ID:        variantID,
			ProductID: productID,
			UserID:    userID,
			SKU:       nonEmptyPtr(v.SKU),
			Title:     v.Title,
			Price:     v.Price,
		})

		for locationID, qty := range v.LocationQuantities {
			inventory = append(inventory, &models.CanonicalInventoryLevel{
				VariantID:          variantID,
				ConnectionID:       connUUID,
				PlatformLocationID: locationID,
				Quantity:           qty,
			})
		}
	}

	return &clients.MappedDraft{
		Product:   product,
		Variants:  variants,
		ImageURLs: raw.ImageURLs,
		Inventory: inventory,
	}, nil
}

func (Mapper) BuildBundle(product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) (*clients.PlatformProductBundle, error) {
	bundle := &clients.PlatformProductBundle{
		Title:       product.Title,
		Description: product.Description,
	}

	quantityByVariant := map[uuid.UUID]int{}
	for _, level := range inventory {
		quantityByVariant[level.VariantID] += level.Quantity
	}

	for _, v := range variants {
		bundle.Variants = append(bundle.Variants, clients.PlatformBundleVariant{
			SKU:      derefOr(v.SKU, ""),
			Title:    v.Title,
			Price:    v.Price,
			Quantity: quantityByVariant[v.ID],
		})
	}

	return bundle, nil
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

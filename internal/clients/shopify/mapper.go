package shopify

import (
	"fmt"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

// Mapper converts Shopify payloads to/from canonical rows.
type Mapper struct{}

// MapPlatformDataToCanonical builds draft canonical rows for one Shopify
// product, using temporary ids the caller replaces once persisted.
func (Mapper) MapPlatformDataToCanonical(raw *clients.PlatformProduct, userID string, connectionID string) (*clients.MappedDraft, error) {
	productID := uuid.New()

	product := &models.CanonicalProduct{
		ID:     productID,
		UserID: userID,
		Title:  raw.Title,
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
			Barcode:   nonEmptyPtr(v.Barcode),
			Title:     v.Title,
			Price:     v.Price,
			Options:   toJSONB(v.Options),
		})

		for locationID, qty := range v.LocationQuantities {
			inventory = append(inventory, &models.CanonicalInventoryLevel{
				VariantID:          variantID,
				ConnectionID:       mustParseUUID(connectionID),
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

// BuildBundle groups canonical rows into Shopify's create/update payload
// shape: one option set, variants carrying SKU/barcode/price/option values.
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
		options := map[string]string{}
		for k, val := range v.Options {
			if s, ok := val.(string); ok {
				options[k] = s
			}
		}
		bundle.Variants = append(bundle.Variants, clients.PlatformBundleVariant{
			SKU:      derefOr(v.SKU, ""),
			Barcode:  derefOr(v.Barcode, ""),
			Title:    v.Title,
			Price:    v.Price,
			Options:  options,
			Quantity: quantityByVariant[v.ID],
		})
	}

	return bundle, nil
}

func toJSONB(options map[string]string) models.JSONB {
	out := models.JSONB{}
	for k, v := range options {
		out[k] = v
	}
	return out
}

func mustParseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(fmt.Sprintf("shopify mapper: invalid connection id %q: %v", s, err))
	}
	return id
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

package clover

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

func TestMapper_MapPlatformDataToCanonical_OneVariantPerItem(t *testing.T) {
	connectionID := uuid.New().String()
	raw := &clients.PlatformProduct{
		Title:    "Blueberry Muffin",
		Variants: []clients.PlatformVariant{{SKU: "MUFFIN-BLU", Title: "Blueberry Muffin", Price: 350, Quantity: 40}},
	}

	draft, err := Mapper{}.MapPlatformDataToCanonical(raw, "user-1", connectionID)
	require.NoError(t, err)

	require.Len(t, draft.Variants, 1)
	require.Len(t, draft.Inventory, 1)
	assert.Equal(t, 40, draft.Inventory[0].Quantity)
	// Clover reports a single merchant-wide location, keyed by connection id.
	assert.Equal(t, connectionID, draft.Inventory[0].PlatformLocationID)
}

func TestMapper_MapPlatformDataToCanonical_InvalidConnectionIDReturnsError(t *testing.T) {
	raw := &clients.PlatformProduct{Title: "Bad", Variants: []clients.PlatformVariant{{}}}

	_, err := Mapper{}.MapPlatformDataToCanonical(raw, "user-1", "not-a-uuid")
	assert.Error(t, err)
}

func TestMapper_BuildBundle_OmitsBarcode(t *testing.T) {
	variantID := uuid.New()
	sku := "MUFFIN-BLU"
	product := &models.CanonicalProduct{Title: "Blueberry Muffin"}
	variants := []*models.CanonicalProductVariant{{ID: variantID, SKU: &sku, Title: "Only", Price: 350}}
	inventory := []*models.CanonicalInventoryLevel{{VariantID: variantID, PlatformLocationID: "conn-1", Quantity: 40}}

	bundle, err := Mapper{}.BuildBundle(product, variants, inventory)
	require.NoError(t, err)
	require.Len(t, bundle.Variants, 1)
	assert.Equal(t, "MUFFIN-BLU", bundle.Variants[0].SKU)
	assert.Equal(t, "", bundle.Variants[0].Barcode)
	assert.Equal(t, 40, bundle.Variants[0].Quantity)
}

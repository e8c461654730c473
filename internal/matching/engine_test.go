package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

func sku(s string) *string { return &s }

func TestBuildIndexAndSuggest_BarcodeWinsOverSKU(t *testing.T) {
	variantID := uuid.New()
	idx := BuildIndex([]models.CanonicalProductVariant{
		{ID: variantID, SKU: sku("ABC-1"), Barcode: sku("0123456789")},
	})

	suggestions := idx.Suggest("shop-prod-1", clients.PlatformVariant{SKU: "abc-1", Barcode: "0123456789"}, nil)

	require.Len(t, suggestions, 1)
	assert.Equal(t, models.MatchBarcode, suggestions[0].MatchType)
	assert.Equal(t, 0.95, suggestions[0].Confidence)
	assert.Equal(t, variantID, *suggestions[0].SuggestedVariantID)
}

func TestSuggest_SKUOnly(t *testing.T) {
	variantID := uuid.New()
	idx := BuildIndex([]models.CanonicalProductVariant{
		{ID: variantID, SKU: sku("sku-99")},
	})

	suggestions := idx.Suggest("shop-prod-1", clients.PlatformVariant{SKU: " SKU-99 "}, nil)

	require.Len(t, suggestions, 1)
	assert.Equal(t, models.MatchSKU, suggestions[0].MatchType)
	assert.Equal(t, 0.90, suggestions[0].Confidence)
	assert.Equal(t, variantID, *suggestions[0].SuggestedVariantID)
}

func TestSuggest_BarcodeAndSKUToDifferentVariants_EmitsTwo(t *testing.T) {
	barcodeVariant := uuid.New()
	skuVariant := uuid.New()
	idx := BuildIndex([]models.CanonicalProductVariant{
		{ID: barcodeVariant, Barcode: sku("999000111")},
		{ID: skuVariant, SKU: sku("legacy-sku")},
	})

	suggestions := idx.Suggest("shop-prod-1", clients.PlatformVariant{SKU: "legacy-sku", Barcode: "999000111"}, nil)

	require.Len(t, suggestions, 2)
	assert.Equal(t, models.MatchBarcode, suggestions[0].MatchType)
	assert.Equal(t, barcodeVariant, *suggestions[0].SuggestedVariantID)
	assert.Equal(t, models.MatchSKU, suggestions[1].MatchType)
	assert.Equal(t, skuVariant, *suggestions[1].SuggestedVariantID)
}

func TestSuggest_NoMatch(t *testing.T) {
	idx := BuildIndex(nil)

	suggestions := idx.Suggest("shop-prod-1", clients.PlatformVariant{SKU: "unknown"}, nil)

	require.Len(t, suggestions, 1)
	assert.Equal(t, models.MatchNone, suggestions[0].MatchType)
	assert.Equal(t, float64(0), suggestions[0].Confidence)
	assert.Nil(t, suggestions[0].SuggestedVariantID)
}

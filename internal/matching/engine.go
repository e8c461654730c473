// Package matching is the Mapping Engine (spec.md §4.4 step 6, §8). It
// builds an in-process lower(trim(sku))/lower(trim(barcode)) index over a
// user's canonical variants, the same index shape the teacher keys
// MarketplaceInventoryMapping lookups by — but built once per scan run
// instead of queried per item, since a scan compares a whole platform
// catalog against a whole user catalog in one pass.
package matching

import (
	"strings"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

// Index is the in-process sku/barcode lookup built from a user's existing
// canonical variants (spec.md §4.4 step 6).
type Index struct {
	bySKU     map[string]uuid.UUID
	byBarcode map[string]uuid.UUID
}

// BuildIndex indexes every variant by its normalized sku and barcode.
// Variants with no sku or no barcode simply have no entry under that key.
func BuildIndex(variants []models.CanonicalProductVariant) *Index {
	idx := &Index{
		bySKU:     make(map[string]uuid.UUID, len(variants)),
		byBarcode: make(map[string]uuid.UUID, len(variants)),
	}
	for _, v := range variants {
		if sku := v.NormalizedSKU(); sku != "" {
			idx.bySKU[sku] = v.ID
		}
		if barcode := v.NormalizedBarcode(); barcode != "" {
			idx.byBarcode[barcode] = v.ID
		}
	}
	return idx
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Suggest produces one or two MappingSuggestion values for a single
// platform variant, per spec.md §4.4 step 6:
//   - a barcode match always wins with confidence 0.95;
//   - a sku match alone yields confidence 0.90; when barcode and sku
//     point at the same canonical variant only the barcode suggestion
//     is emitted;
//   - if both match but point at different canonical variants, both are
//     emitted as distinct suggestions;
//   - if neither matches, a single NONE/0-confidence suggestion is emitted.
func (idx *Index) Suggest(platformProductID string, variant clients.PlatformVariant, snapshot models.JSONB) []models.MappingSuggestion {
	barcodeMatch, hasBarcode := idx.byBarcode[normalize(variant.Barcode)]
	skuMatch, hasSKU := idx.bySKU[normalize(variant.SKU)]

	var variantID *string
	if variant.ID != "" {
		id := variant.ID
		variantID = &id
	}

	base := models.MappingSuggestion{
		PlatformProductSnapshot: snapshot,
		PlatformProductID:       platformProductID,
		PlatformVariantID:       variantID,
	}

	switch {
	case hasBarcode && hasSKU && barcodeMatch != skuMatch:
		barcode := barcodeMatch
		sku := skuMatch
		bc := base
		bc.SuggestedVariantID = &barcode
		bc.MatchType = models.MatchBarcode
		bc.Confidence = models.ConfidenceFor(models.MatchBarcode)

		sc := base
		sc.SuggestedVariantID = &sku
		sc.MatchType = models.MatchSKU
		sc.Confidence = models.ConfidenceFor(models.MatchSKU)
		return []models.MappingSuggestion{bc, sc}

	case hasBarcode:
		barcode := barcodeMatch
		bc := base
		bc.SuggestedVariantID = &barcode
		bc.MatchType = models.MatchBarcode
		bc.Confidence = models.ConfidenceFor(models.MatchBarcode)
		return []models.MappingSuggestion{bc}

	case hasSKU:
		sku := skuMatch
		sc := base
		sc.SuggestedVariantID = &sku
		sc.MatchType = models.MatchSKU
		sc.Confidence = models.ConfidenceFor(models.MatchSKU)
		return []models.MappingSuggestion{sc}

	default:
		nc := base
		nc.MatchType = models.MatchNone
		nc.Confidence = 0
		return []models.MappingSuggestion{nc}
	}
}

// SuggestAll runs Suggest across every variant of every platform product in
// a scan page, returning the flat list a scan job persists as
// PlatformSpecificData.mappingSuggestions.
func (idx *Index) SuggestAll(products []clients.PlatformProduct) []models.MappingSuggestion {
	var suggestions []models.MappingSuggestion
	for _, p := range products {
		snapshot := models.JSONB(p.RawData)
		for _, v := range p.Variants {
			suggestions = append(suggestions, idx.Suggest(p.ID, v, snapshot)...)
		}
	}
	return suggestions
}

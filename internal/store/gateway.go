// Package store is the Canonical Store Gateway (spec.md §4.2): the single
// persistence boundary between the domain packages (onboarding, jobs,
// matching, webhook, dispatch) and Postgres. It generalizes the teacher's
// repository package (CatalogRepository, InventoryRepository,
// MappingRepository, ExternalMappingRepository, ConnectionRepository) from
// the teacher's CatalogItem/Offer/InventoryCurrent shape to this repo's
// canonical product/variant/inventory-level/mapping shape, keeping the same
// per-entity repository split and the same clause.OnConflict upsert idiom.
package store

import (
	"gorm.io/gorm"

	"inventory-sync-engine/internal/cache"
)

// Gateway bundles every entity store behind one handle so callers
// construct it once at startup and pass it down instead of wiring six
// separate repositories through every constructor.
type Gateway struct {
	Products    *ProductStore
	Inventory   *InventoryStore
	Mappings    *MappingStore
	Connections *ConnectionStore
	Activity    *ActivityStore
	Webhooks    *WebhookStore
}

// NewGateway wires every entity store against one *gorm.DB and one cache
// layer (a disabled Layer is fine — every Layer method is a no-op then).
func NewGateway(db *gorm.DB, cacheLayer *cache.Layer) *Gateway {
	return &Gateway{
		Products:    NewProductStore(db),
		Inventory:   NewInventoryStore(db),
		Mappings:    NewMappingStore(db),
		Connections: NewConnectionStore(db, cacheLayer),
		Activity:    NewActivityStore(db),
		Webhooks:    NewWebhookStore(db),
	}
}

// Package clients defines the per-platform Adapter contract (spec.md
// §4.1) and the platform-agnostic DTOs adapters exchange with the
// Initial-Scan, Initial-Sync, Reconciliation, and Webhook Dispatcher
// components. Concrete adapters live in sibling packages
// (clients/shopify, clients/square, ...); this package only fixes the
// shape every one of them must satisfy.
package clients

import (
	"context"
	"time"

	"inventory-sync-engine/internal/models"
)

// Adapter is the per-platform capability record of spec.md §4.1. One
// Adapter value exists per models.PlatformKind, registered in a map
// keyed by that platform kind (spec.md §9's "sum type plus capability
// record" design note).
type Adapter interface {
	// GetApiClient returns a stateful client initialized with the
	// connection's decrypted credentials.
	GetApiClient(connection *models.PlatformConnection, credentials map[string]interface{}) (ApiClient, error)

	// GetMapper returns the platform's payload ↔ canonical converter.
	GetMapper() Mapper

	// GetSyncLogic returns the platform's small sync-policy value object.
	GetSyncLogic() SyncPolicy

	// SyncFromPlatform performs a full pull, materializing canonical
	// products/variants/inventory for the connection's user. Used by the
	// Initial-Scan job.
	SyncFromPlatform(ctx context.Context, client ApiClient, connection *models.PlatformConnection, userID string) (*FetchResult, error)

	// CreateProduct performs an outbound create of a canonical product.
	CreateProduct(ctx context.Context, client ApiClient, product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) (*CreateResult, error)

	// UpdateProduct pushes canonical changes onto an already-mapped platform product.
	UpdateProduct(ctx context.Context, client ApiClient, mapping *models.PlatformProductMapping, product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) error

	// DeleteProduct removes or delists the platform product behind a mapping.
	DeleteProduct(ctx context.Context, client ApiClient, mapping *models.PlatformProductMapping) error

	// UpdateInventoryLevels is a batch push with partial-failure semantics.
	UpdateInventoryLevels(ctx context.Context, client ApiClient, updates []InventoryUpdate) (*BatchResult, error)

	// ProcessWebhook is the only place that mutates canonical state from
	// an inbound webhook; it must be idempotent on webhookID.
	ProcessWebhook(ctx context.Context, client ApiClient, connection *models.PlatformConnection, payload []byte, headers map[string]string, webhookID string) error

	// SyncSingleProductFromPlatform re-fetches and re-maps one platform
	// product, used from webhook handlers reacting to a single-item event.
	SyncSingleProductFromPlatform(ctx context.Context, client ApiClient, connection *models.PlatformConnection, userID, platformProductID string) (*FetchResult, error)
}

// ApiClient is a stateful, per-connection client capable of talking to
// one platform account.
type ApiClient interface {
	// TestConnection verifies the credentials are still valid.
	TestConnection(ctx context.Context) error

	// FetchAllProducts performs a paginated traversal of the full catalog.
	FetchAllProducts(ctx context.Context, cursor string) (*ProductPage, error)

	// FetchProductOverviews returns id + identifying fields only, used by
	// the Reconciliation job's set-difference step.
	FetchProductOverviews(ctx context.Context) ([]ProductOverview, error)

	// FetchProduct fetches one full product by platform id.
	FetchProduct(ctx context.Context, platformProductID string) (*PlatformProduct, error)

	// FetchInventoryLevels fetches current inventory for the given
	// platform variant ids.
	FetchInventoryLevels(ctx context.Context, platformVariantIDs []string) ([]PlatformInventoryLevel, error)

	// CreateProduct creates the product bundle on the platform and
	// returns the assigned platform ids.
	CreateProduct(ctx context.Context, bundle *PlatformProductBundle) (*CreateResult, error)

	// UpdateProduct applies a bundle onto an existing platform product.
	UpdateProduct(ctx context.Context, platformProductID string, bundle *PlatformProductBundle) error

	// DeleteProduct removes a platform product.
	DeleteProduct(ctx context.Context, platformProductID string) error

	// PushInventoryLevels pushes a batch of level updates, returning
	// per-item success/failure.
	PushInventoryLevels(ctx context.Context, updates []InventoryUpdate) (*BatchResult, error)

	// VerifyWebhook validates the platform-specific signature scheme.
	VerifyWebhook(payload []byte, headers map[string]string) error

	// ParseWebhook extracts a platform-agnostic event description.
	ParseWebhook(payload []byte, headers map[string]string) (*WebhookEvent, error)

	// IdentifyFromWebhookHeaders extracts the platform-specific unique
	// identifier (shop domain, merchant id) used to resolve a connection
	// when no connectionId path param is present.
	IdentifyFromWebhookHeaders(headers map[string]string) string
}

// Mapper converts platform payloads to/from canonical entities
// (spec.md §4.1).
type Mapper interface {
	// MapPlatformDataToCanonical produces draft canonical rows whose ids
	// are freshly generated UUIDs (spec.md §4.4 step 4); the ids carry no
	// platform prefix and are the ids the rows are saved under.
	MapPlatformDataToCanonical(raw *PlatformProduct, userID string, connectionID string) (*MappedDraft, error)

	// BuildBundle groups canonical rows into the platform-specific create
	// payload shape (options, option-values, images, variants).
	BuildBundle(product *models.CanonicalProduct, variants []*models.CanonicalProductVariant, inventory []*models.CanonicalInventoryLevel) (*PlatformProductBundle, error)
}

// SyncPolicy is the small value object of spec.md §4.1.
type SyncPolicy struct {
	// ShouldDelist reports whether a zero platform quantity should cause
	// the product to be delisted.
	ShouldDelist func(quantity int) bool
}

// DefaultSyncPolicy delists at zero or negative quantity, the common case
// across every platform adapter in this repo.
func DefaultSyncPolicy() SyncPolicy {
	return SyncPolicy{ShouldDelist: func(quantity int) bool { return quantity <= 0 }}
}

// PlatformProduct is the platform-agnostic shape every adapter's
// ApiClient.FetchProduct/FetchAllProducts returns.
type PlatformProduct struct {
	ID          string
	Title       string
	Description string
	ImageURLs   []string
	Variants    []PlatformVariant
	RawData     map[string]interface{}
	UpdatedAt   time.Time
}

// PlatformVariant is one sellable unit as the platform represents it.
type PlatformVariant struct {
	ID       string
	SKU      string
	Barcode  string
	Title    string
	Price    int64
	Options  map[string]string
	Quantity int
	LocationQuantities map[string]int
}

// ProductOverview is the minimal shape used by reconciliation's overview
// fetch (spec.md §4.6 step 2): id + identifying fields only.
type ProductOverview struct {
	PlatformProductID string
	Title              string
	UpdatedAt          time.Time
}

// PlatformInventoryLevel is a single (variant, location) quantity as
// reported by the platform.
type PlatformInventoryLevel struct {
	PlatformVariantID  string
	PlatformLocationID string
	Quantity           int
	UpdatedAt          time.Time
}

// InventoryUpdate is one item of a batch inventory push.
type InventoryUpdate struct {
	Mapping *models.PlatformProductMapping
	Level   *models.CanonicalInventoryLevel
}

// ProductPage is one page of a paginated product traversal.
type ProductPage struct {
	Products   []PlatformProduct
	NextCursor string
	HasMore    bool
}

// FetchResult is the outcome of a full or single-product platform sync:
// the draft rows a job must persist in products → variants → images →
// inventory order (spec.md §5).
type FetchResult struct {
	Products  []*models.CanonicalProduct
	Variants  []*models.CanonicalProductVariant
	Images    []*models.ProductImage
	Inventory []*models.CanonicalInventoryLevel
	Mappings  []*models.PlatformProductMapping
}

// MappedDraft is what Mapper.MapPlatformDataToCanonical returns for one
// platform product: draft rows keyed by freshly generated UUIDs.
type MappedDraft struct {
	Product   *models.CanonicalProduct
	Variants  []*models.CanonicalProductVariant
	ImageURLs []string
	Inventory []*models.CanonicalInventoryLevel
}

// PlatformProductBundle is the platform-specific create/update payload a
// Mapper.BuildBundle assembles — images, options, and variants grouped
// the way the target platform's API expects.
type PlatformProductBundle struct {
	Title       string
	Description string
	ImageURLs   []string
	Options     []string
	Variants    []PlatformBundleVariant
}

// PlatformBundleVariant is one variant inside a create/update bundle.
type PlatformBundleVariant struct {
	SKU      string
	Barcode  string
	Title    string
	Price    int64
	Options  map[string]string
	Quantity int
}

// CreateResult is the outcome of an outbound create.
type CreateResult struct {
	PlatformProductID  string
	PlatformVariantIDs map[string]string // bundle variant SKU -> platform variant id
}

// BatchResult is the outcome of a batch inventory push (spec.md §4.1).
type BatchResult struct {
	Success int
	Failure int
	Errors  []error
}

// WebhookEvent is the platform-agnostic shape ApiClient.ParseWebhook
// returns.
type WebhookEvent struct {
	EventID      string
	EventType    string
	ResourceID   string
	ResourceType string // "product" | "order" | "inventory"
	Payload      map[string]interface{}
	Timestamp    time.Time
}

// UnsupportedPlatformError is returned when a platform kind has no
// registered adapter.
type UnsupportedPlatformError struct {
	PlatformKind models.PlatformKind
}

func (e *UnsupportedPlatformError) Error() string {
	return "unsupported platform: " + string(e.PlatformKind)
}

// Registry maps platform kind to its adapter, satisfying spec.md §9's
// "capability record... registry is a map keyed by platform kind string."
type Registry map[models.PlatformKind]Adapter

// Get looks up the adapter for a platform kind.
func (r Registry) Get(kind models.PlatformKind) (Adapter, error) {
	adapter, ok := r[kind]
	if !ok {
		return nil, &UnsupportedPlatformError{PlatformKind: kind}
	}
	return adapter, nil
}

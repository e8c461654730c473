// Package jobs implements the Initial-Scan, Initial-Sync, and
// Reconciliation job bodies (spec.md §4.4-§4.6). Reconciliation is
// grounded directly on the teacher's ReconciliationService
// (reconcileProducts/reconcileInventory/discrepancy persistence),
// generalized from its three-entity-type job to this repo's
// NewOnPlatform/MissingOnPlatform set-difference algorithm against
// PlatformProductMapping. Initial-Scan and Initial-Sync are new job
// bodies — the teacher's SyncService only has one undifferentiated
// CreateJob/sync-type dispatch with no confirm/link/create/ignore
// decision tree.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/models"
)

// ConnectionRepository is the subset of store.ConnectionStore every job
// body depends on.
type ConnectionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PlatformConnection, error)
	Update(ctx context.Context, connection *models.PlatformConnection) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ConnectionStatus, lastError string) error
}

// ProductRepository is the subset of store.ProductStore every job body depends on.
type ProductRepository interface {
	SaveProduct(ctx context.Context, product *models.CanonicalProduct) error
	SaveVariants(ctx context.Context, variants []*models.CanonicalProductVariant) error
	SaveVariantImages(ctx context.Context, productID uuid.UUID, images []*models.ProductImage) error
	FindVariantsByUser(ctx context.Context, userID string) ([]models.CanonicalProductVariant, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*models.CanonicalProductVariant, error)
	GetVariantBySKU(ctx context.Context, userID, sku string) (*models.CanonicalProductVariant, error)
}

// InventoryRepository is the subset of store.InventoryStore every job body depends on.
type InventoryRepository interface {
	SaveBulkInventoryLevels(ctx context.Context, levels []*models.CanonicalInventoryLevel) error
	UpdateLevel(ctx context.Context, variantID, connectionID uuid.UUID, platformLocationID string, quantity int, platformUpdatedAt time.Time) error
	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]models.CanonicalInventoryLevel, error)
}

// MappingRepository is the subset of store.MappingStore every job body depends on.
type MappingRepository interface {
	GetByVariantAndPlatformProduct(ctx context.Context, connectionID, variantID uuid.UUID) (*models.PlatformProductMapping, error)
	GetByPlatformProduct(ctx context.Context, connectionID uuid.UUID, platformProductID string) (*models.PlatformProductMapping, error)
	GetByConnection(ctx context.Context, connectionID uuid.UUID) ([]models.PlatformProductMapping, error)
	Upsert(ctx context.Context, mapping *models.PlatformProductMapping) error
	Update(ctx context.Context, mapping *models.PlatformProductMapping) error

	// GetSnapshot/UpsertSnapshot back the Initial-Scan job's change-detection
	// cache, letting a rerun skip re-surfacing a mapping suggestion for a
	// platform product whose identifying fields haven't changed since the
	// last scan.
	GetSnapshot(ctx context.Context, connectionID uuid.UUID, externalID string) (*models.RawSnapshot, error)
	UpsertSnapshot(ctx context.Context, snapshot *models.RawSnapshot) error
}

// ActivityRepository is the subset of store.ActivityStore every job body depends on.
type ActivityRepository interface {
	LogActivity(ctx context.Context, entry *models.ActivityLog) error
}

// Decryptor turns a connection's opaque credential blob into the
// credentials map an adapter's ApiClient.Initialize expects.
type Decryptor interface {
	Decrypt(ctx context.Context, userID string, blob []byte) (map[string]any, error)
}

// StatusCoordinator is the subset of onboarding.Coordinator the job
// bodies call into on completion, to drive the connection's state
// machine (spec.md §4.3).
type StatusCoordinator interface {
	ScanSucceeded(ctx context.Context, connectionID uuid.UUID) error
	ScanFailed(ctx context.Context, connectionID uuid.UUID) error
	SyncCompleted(ctx context.Context, connectionID uuid.UUID, itemFailures int) error
	ReconcileCompleted(ctx context.Context, connectionID uuid.UUID, succeeded bool) error
}

// ProgressReporter lets a job body publish (processed, total) as it works
// through a batch, per spec.md §5's "long-running jobs must periodically
// publish progress" requirement. The Adaptive Dispatcher supplies the
// concrete implementation backing GetJobProgress.
type ProgressReporter interface {
	Report(jobID string, processed, total int)
}

// noopProgress discards progress reports, used when a caller has no
// dispatcher wired in (e.g. unit tests exercising one job body in
// isolation).
type noopProgress struct{}

func (noopProgress) Report(string, int, int) {}

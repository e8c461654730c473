package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/apperr"
	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/models"
)

// ReconcileJob runs the periodic reconciliation pass of spec.md §4.6,
// generalizing the teacher's ReconciliationService.reconcileProducts set
// comparison: it diffs the platform's current product overview list
// against this connection's active mappings to find products created or
// deleted on the platform since the last pass, then refreshes every
// mapped variant's inventory levels.
type ReconcileJob struct {
	registry    clients.Registry
	connections ConnectionRepository
	products    ProductRepository
	inventory   InventoryRepository
	mappings    MappingRepository
	activity    ActivityRepository
	decryptor   Decryptor
	coordinator StatusCoordinator
	progress    ProgressReporter
}

func NewReconcileJob(
	registry clients.Registry,
	connections ConnectionRepository,
	products ProductRepository,
	inventory InventoryRepository,
	mappings MappingRepository,
	activity ActivityRepository,
	decryptor Decryptor,
	coordinator StatusCoordinator,
	progress ProgressReporter,
) *ReconcileJob {
	if progress == nil {
		progress = noopProgress{}
	}
	return &ReconcileJob{
		registry: registry, connections: connections, products: products,
		inventory: inventory, mappings: mappings, activity: activity,
		decryptor: decryptor, coordinator: coordinator, progress: progress,
	}
}

// SetCoordinator wires the status coordinator after construction, for the
// startup sequence where the coordinator itself is built from the
// dispatcher that wraps this job (cmd/main.go).
func (j *ReconcileJob) SetCoordinator(coordinator StatusCoordinator) {
	j.coordinator = coordinator
}

// Run executes one reconciliation pass: NewOnPlatform / MissingOnPlatform
// set-difference against active mappings, plus an inventory refresh for
// every mapped variant (spec.md §4.6).
func (j *ReconcileJob) Run(ctx context.Context, jobID string, connectionID uuid.UUID, userID string) error {
	connection, err := j.connections.GetByID(ctx, connectionID)
	if err != nil {
		return apperr.NotFound("connection not found")
	}

	adapter, err := j.registry.Get(connection.PlatformKind)
	if err != nil {
		_ = j.coordinator.ReconcileCompleted(ctx, connectionID, false)
		return err
	}
	credentials, err := j.decryptor.Decrypt(ctx, userID, connection.CredentialBlob)
	if err != nil {
		_ = j.coordinator.ReconcileCompleted(ctx, connectionID, false)
		return err
	}
	client, err := adapter.GetApiClient(connection, credentials)
	if err != nil {
		_ = j.coordinator.ReconcileCompleted(ctx, connectionID, false)
		return err
	}

	activeMappings, err := j.mappings.GetByConnection(ctx, connectionID)
	if err != nil {
		_ = j.coordinator.ReconcileCompleted(ctx, connectionID, false)
		return apperr.DataIntegrity("loading active mappings", err)
	}
	mappedByPlatformProduct := make(map[string]*models.PlatformProductMapping, len(activeMappings))
	for i := range activeMappings {
		if activeMappings[i].IsEnabled {
			mappedByPlatformProduct[activeMappings[i].PlatformProductID] = &activeMappings[i]
		}
	}

	overviews, err := client.FetchProductOverviews(ctx)
	if err != nil {
		_ = j.coordinator.ReconcileCompleted(ctx, connectionID, false)
		return apperr.PlatformTransient("fetching product overviews", err)
	}

	seenOnPlatform := make(map[string]bool, len(overviews))
	var newOnPlatform []clients.ProductOverview
	for _, overview := range overviews {
		seenOnPlatform[overview.PlatformProductID] = true
		if _, mapped := mappedByPlatformProduct[overview.PlatformProductID]; !mapped {
			newOnPlatform = append(newOnPlatform, overview)
		}
	}

	var missingOnPlatform []*models.PlatformProductMapping
	for platformProductID, mapping := range mappedByPlatformProduct {
		if !seenOnPlatform[platformProductID] {
			missingOnPlatform = append(missingOnPlatform, mapping)
		}
	}

	for _, overview := range newOnPlatform {
		if err := j.materializeNewProduct(ctx, adapter, client, connection, overview, userID); err != nil {
			j.logActivity(ctx, connection, models.EventSyncItemMissingData, models.ActivityWarning,
				fmt.Sprintf("platform product %s (%s) could not be materialized: %s", overview.PlatformProductID, overview.Title, err.Error()))
			continue
		}
		j.logActivity(ctx, connection, models.EventReconcileNewProduct, models.ActivityInfo,
			fmt.Sprintf("platform product %s (%s) had no local mapping and was materialized", overview.PlatformProductID, overview.Title))
	}
	for _, mapping := range missingOnPlatform {
		// Left enabled deliberately: operator review decides whether the
		// platform-side deletion should propagate locally (spec.md §4.6, §9).
		j.logActivity(ctx, connection, models.EventReconcileMissingProduct, models.ActivityWarning,
			fmt.Sprintf("platform product %s no longer exists on platform", mapping.PlatformProductID))
	}

	failures := j.refreshInventory(ctx, client, connectionID, activeMappings)

	j.progress.Report(jobID, len(overviews), len(overviews))

	succeeded := failures == 0
	if err := j.coordinator.ReconcileCompleted(ctx, connectionID, succeeded); err != nil {
		return err
	}

	event := models.EventReconcileCompleted
	status := models.ActivityInfo
	if !succeeded {
		event = models.EventReconcileFailed
		status = models.ActivityWarning
	}
	j.logActivity(ctx, connection, event, status, fmt.Sprintf(
		"reconciled %d platform products: %d new, %d missing, %d inventory failures",
		len(overviews), len(newOnPlatform), len(missingOnPlatform), failures))
	return nil
}

// refreshInventory re-fetches platform inventory for every mapped variant
// and applies it through the last-writer-wins level update, returning the
// count of variants that could not be refreshed.
func (j *ReconcileJob) refreshInventory(ctx context.Context, client clients.ApiClient, connectionID uuid.UUID, mappings []models.PlatformProductMapping) int {
	platformVariantIDs := make([]string, 0, len(mappings))
	byPlatformVariantID := make(map[string]*models.PlatformProductMapping, len(mappings))
	for i := range mappings {
		if mappings[i].PlatformVariantID == nil || !mappings[i].IsEnabled {
			continue
		}
		platformVariantIDs = append(platformVariantIDs, *mappings[i].PlatformVariantID)
		byPlatformVariantID[*mappings[i].PlatformVariantID] = &mappings[i]
	}
	if len(platformVariantIDs) == 0 {
		return 0
	}

	levels, err := client.FetchInventoryLevels(ctx, platformVariantIDs)
	if err != nil {
		return len(platformVariantIDs)
	}

	failures := 0
	now := time.Now()
	for _, level := range levels {
		mapping, ok := byPlatformVariantID[level.PlatformVariantID]
		if !ok {
			continue
		}
		updatedAt := level.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		if err := j.inventory.UpdateLevel(ctx, mapping.VariantID, connectionID, level.PlatformLocationID, level.Quantity, updatedAt); err != nil {
			failures++
		}
	}
	return failures
}

// materializeNewProduct fetches full details for a platform product found
// with no local mapping and persists it the same way ScanJob does: product
// before variants, variants before images and inventory, inventory before
// the mapping that ties it back to the platform (spec.md §4.6 step 3,
// §5's product-before-variant-before-inventory ordering guarantee).
func (j *ReconcileJob) materializeNewProduct(ctx context.Context, adapter clients.Adapter, client clients.ApiClient, connection *models.PlatformConnection, overview clients.ProductOverview, userID string) error {
	raw, err := client.FetchProduct(ctx, overview.PlatformProductID)
	if err != nil {
		return apperr.PlatformTransient("fetching new platform product details", err)
	}

	draft, err := adapter.GetMapper().MapPlatformDataToCanonical(raw, userID, connection.ID.String())
	if err != nil {
		return apperr.DataIntegrity("mapping new platform product to canonical shape", err)
	}

	if err := j.products.SaveProduct(ctx, draft.Product); err != nil {
		return apperr.DataIntegrity("saving new product", err)
	}
	if err := j.products.SaveVariants(ctx, draft.Variants); err != nil {
		return apperr.DataIntegrity("saving new variants", err)
	}
	if len(draft.ImageURLs) > 0 {
		images := make([]*models.ProductImage, 0, len(draft.ImageURLs))
		for _, url := range draft.ImageURLs {
			images = append(images, &models.ProductImage{ProductID: draft.Product.ID, URL: url})
		}
		if err := j.products.SaveVariantImages(ctx, draft.Product.ID, images); err != nil {
			return apperr.DataIntegrity("saving new product images", err)
		}
	}
	if err := j.inventory.SaveBulkInventoryLevels(ctx, draft.Inventory); err != nil {
		return apperr.DataIntegrity("saving new inventory", err)
	}

	for _, variant := range draft.Variants {
		mapping := &models.PlatformProductMapping{
			ID:                uuid.New(),
			ConnectionID:      connection.ID,
			VariantID:         variant.ID,
			PlatformProductID: overview.PlatformProductID,
			SyncStatus:        models.MappingSynced,
			IsEnabled:         true,
		}
		if err := j.mappings.Upsert(ctx, mapping); err != nil {
			return apperr.DataIntegrity("persisting mapping for new platform product", err)
		}
	}
	return nil
}

func (j *ReconcileJob) logActivity(ctx context.Context, connection *models.PlatformConnection, event models.ActivityEventType, status models.ActivityStatus, message string) {
	entry := models.NewActivityEntry(connection.UserID, models.EntityConnection, connection.ID.String(), event).
		WithConnection(connection.ID).
		WithStatus(status).
		WithMessage(message).
		Build()
	_ = j.activity.LogActivity(ctx, entry)
}

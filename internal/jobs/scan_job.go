package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"inventory-sync-engine/internal/apperr"
	"inventory-sync-engine/internal/clients"
	"inventory-sync-engine/internal/matching"
	"inventory-sync-engine/internal/models"
)

// ScanJob runs the Initial-Scan algorithm of spec.md §4.4.
type ScanJob struct {
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

func NewScanJob(
	registry clients.Registry,
	connections ConnectionRepository,
	products ProductRepository,
	inventory InventoryRepository,
	mappings MappingRepository,
	activity ActivityRepository,
	decryptor Decryptor,
	coordinator StatusCoordinator,
	progress ProgressReporter,
) *ScanJob {
	if progress == nil {
		progress = noopProgress{}
	}
	return &ScanJob{
		registry: registry, connections: connections, products: products,
		inventory: inventory, mappings: mappings, activity: activity,
		decryptor: decryptor, coordinator: coordinator, progress: progress,
	}
}

// SetCoordinator wires the status coordinator after construction, for the
// startup sequence where the coordinator itself is built from the
// dispatcher that wraps this job (cmd/main.go).
func (j *ScanJob) SetCoordinator(coordinator StatusCoordinator) {
	j.coordinator = coordinator
}

// Run executes steps 1-8 of spec.md §4.4 against one connection.
func (j *ScanJob) Run(ctx context.Context, jobID string, connectionID uuid.UUID, userID string) error {
	connection, err := j.connections.GetByID(ctx, connectionID)
	if err != nil {
		return apperr.NotFound("connection not found")
	}
	if !connection.IsEnabled {
		return apperr.Validation("connection is disabled")
	}

	adapter, err := j.registry.Get(connection.PlatformKind)
	if err != nil {
		j.failScan(ctx, connection, err)
		return err
	}

	credentials, err := j.decryptor.Decrypt(ctx, userID, connection.CredentialBlob)
	if err != nil {
		j.failScan(ctx, connection, apperr.Auth("decrypting credentials", err))
		return err
	}

	client, err := adapter.GetApiClient(connection, credentials)
	if err != nil {
		j.failScan(ctx, connection, err)
		return err
	}

	result, err := adapter.SyncFromPlatform(ctx, client, connection, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindAuth) {
			j.failScan(ctx, connection, err)
			return err
		}
		j.failScan(ctx, connection, apperr.PlatformTransient("fetching platform catalog", err))
		return err
	}

	// Persist products -> variants -> images -> inventory, in that order
	// (spec.md §5's ordering guarantee).
	for _, product := range result.Products {
		if err := j.products.SaveProduct(ctx, product); err != nil {
			j.failScan(ctx, connection, apperr.DataIntegrity("saving scanned product", err))
			return err
		}
	}
	if err := j.products.SaveVariants(ctx, result.Variants); err != nil {
		j.failScan(ctx, connection, apperr.DataIntegrity("saving scanned variants", err))
		return err
	}
	imagesByProduct := make(map[uuid.UUID][]*models.ProductImage)
	for _, img := range result.Images {
		imagesByProduct[img.ProductID] = append(imagesByProduct[img.ProductID], img)
	}
	for productID, images := range imagesByProduct {
		if err := j.products.SaveVariantImages(ctx, productID, images); err != nil {
			j.failScan(ctx, connection, apperr.DataIntegrity("saving scanned images", err))
			return err
		}
	}
	if err := j.inventory.SaveBulkInventoryLevels(ctx, result.Inventory); err != nil {
		j.failScan(ctx, connection, apperr.DataIntegrity("saving scanned inventory", err))
		return err
	}

	// Step 6: build mapping suggestions against this user's existing catalog.
	existingVariants, err := j.products.FindVariantsByUser(ctx, userID)
	if err != nil {
		j.failScan(ctx, connection, apperr.DataIntegrity("loading existing variants for matching", err))
		return err
	}
	index := matching.BuildIndex(existingVariants)

	mappingByVariant := make(map[uuid.UUID]*models.PlatformProductMapping, len(result.Mappings))
	for _, m := range result.Mappings {
		mappingByVariant[m.VariantID] = m
	}

	var suggestions []models.MappingSuggestion
	for _, draftVariant := range result.Variants {
		mapping, ok := mappingByVariant[draftVariant.ID]
		if !ok {
			continue
		}

		hash, rawData := fingerprintVariant(draftVariant)
		if previous, err := j.mappings.GetSnapshot(ctx, connection.ID, mapping.PlatformProductID); err == nil && !previous.HasChanged(hash) {
			continue // unchanged since the last scan; don't re-surface a suggestion for it
		}
		_ = j.mappings.UpsertSnapshot(ctx, &models.RawSnapshot{
			ConnectionID: connection.ID,
			ExternalID:   mapping.PlatformProductID,
			RawData:      rawData,
			DataHash:     hash,
		})

		pv := clients.PlatformVariant{SKU: stringValue(draftVariant.SKU), Barcode: stringValue(draftVariant.Barcode)}
		if mapping.PlatformVariantID != nil {
			pv.ID = *mapping.PlatformVariantID
		}
		suggestions = append(suggestions, index.Suggest(mapping.PlatformProductID, pv, mapping.PlatformSpecificData)...)
	}

	locations := make(map[string]struct{})
	for _, level := range result.Inventory {
		locations[level.PlatformLocationID] = struct{}{}
	}

	j.progress.Report(jobID, len(result.Products), len(result.Products))

	if connection.PlatformSpecificData == nil {
		connection.PlatformSpecificData = models.JSONB{}
	}
	connection.PlatformSpecificData[models.MetaMappingSuggestions] = suggestions
	connection.PlatformSpecificData[models.MetaScanSummary] = map[string]interface{}{
		"countProducts":  len(result.Products),
		"countVariants":  len(result.Variants),
		"countLocations": len(locations),
	}
	if err := j.connections.Update(ctx, connection); err != nil {
		j.failScan(ctx, connection, apperr.DataIntegrity("persisting scan summary", err))
		return err
	}

	if err := j.coordinator.ScanSucceeded(ctx, connectionID); err != nil {
		return err
	}
	j.logActivity(ctx, connection, models.EventScanCompleted, models.ActivityInfo, fmt.Sprintf("scanned %d products", len(result.Products)))
	return nil
}

func (j *ScanJob) failScan(ctx context.Context, connection *models.PlatformConnection, cause error) {
	_ = j.connections.UpdateStatus(ctx, connection.ID, models.StatusError, cause.Error())
	_ = j.coordinator.ScanFailed(ctx, connection.ID)
	j.logActivity(ctx, connection, models.EventScanFailed, models.ActivityError, cause.Error())
}

func (j *ScanJob) logActivity(ctx context.Context, connection *models.PlatformConnection, event models.ActivityEventType, status models.ActivityStatus, message string) {
	entry := models.NewActivityEntry(connection.UserID, models.EntityConnection, connection.ID.String(), event).
		WithConnection(connection.ID).
		WithStatus(status).
		WithMessage(message).
		Build()
	_ = j.activity.LogActivity(ctx, entry)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// fingerprintVariant hashes the identifying fields of a scanned platform
// variant, so a rerun can tell whether the platform's copy changed since
// the last scan without re-fetching the original raw payload.
func fingerprintVariant(variant *models.CanonicalProductVariant) (string, models.JSONB) {
	rawData := models.JSONB{
		"sku":     stringValue(variant.SKU),
		"barcode": stringValue(variant.Barcode),
		"title":   variant.Title,
		"price":   variant.Price,
	}
	encoded, _ := json.Marshal(rawData)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), rawData
}

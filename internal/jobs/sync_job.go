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

// SyncJob runs the Initial-Sync algorithm of spec.md §4.5: it walks the
// user's confirmed mapping decisions (link/create/ignore) and applies
// them locally: mappings are recorded and, where SyncRules name the
// platform as source of truth, platform values are copied onto the
// canonical side. Nothing is pushed to the platform.
type SyncJob struct {
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

func NewSyncJob(
	registry clients.Registry,
	connections ConnectionRepository,
	products ProductRepository,
	inventory InventoryRepository,
	mappings MappingRepository,
	activity ActivityRepository,
	decryptor Decryptor,
	coordinator StatusCoordinator,
	progress ProgressReporter,
) *SyncJob {
	if progress == nil {
		progress = noopProgress{}
	}
	return &SyncJob{
		registry: registry, connections: connections, products: products,
		inventory: inventory, mappings: mappings, activity: activity,
		decryptor: decryptor, coordinator: coordinator, progress: progress,
	}
}

// SetCoordinator wires the status coordinator after construction, for the
// startup sequence where the coordinator itself is built from the
// dispatcher that wraps this job (cmd/main.go).
func (j *SyncJob) SetCoordinator(coordinator StatusCoordinator) {
	j.coordinator = coordinator
}

// Run applies every models.ConfirmedMatch recorded under
// PlatformSpecificData.mappingConfirmations against the connection's
// catalog, per spec.md §4.5.
func (j *SyncJob) Run(ctx context.Context, jobID string, connectionID uuid.UUID, userID string) error {
	connection, err := j.connections.GetByID(ctx, connectionID)
	if err != nil {
		return apperr.NotFound("connection not found")
	}

	confirmed := readConfirmedMatches(connection)
	if len(confirmed) == 0 {
		_ = j.coordinator.SyncCompleted(ctx, connectionID, 0)
		return nil
	}

	adapter, err := j.registry.Get(connection.PlatformKind)
	if err != nil {
		_ = j.coordinator.SyncCompleted(ctx, connectionID, len(confirmed))
		return err
	}
	credentials, err := j.decryptor.Decrypt(ctx, userID, connection.CredentialBlob)
	if err != nil {
		_ = j.connections.UpdateStatus(ctx, connectionID, models.StatusError, err.Error())
		_ = j.coordinator.SyncCompleted(ctx, connectionID, len(confirmed))
		return err
	}
	client, err := adapter.GetApiClient(connection, credentials)
	if err != nil {
		_ = j.coordinator.SyncCompleted(ctx, connectionID, len(confirmed))
		return err
	}

	rules := connection.SyncRules()
	failures := 0

	for i, match := range confirmed {
		switch match.Action {
		case models.ActionIgnore:
			continue

		case models.ActionLink:
			if err := j.applyLink(ctx, client, connection, match, rules); err != nil {
				failures++
				j.logItemFailure(ctx, connection, match, err)
			}

		case models.ActionCreate:
			if !rules.CreateNew {
				j.logMissingData(ctx, connection, match, "createNew disabled by sync rules")
				continue
			}
			if err := j.applyCreate(ctx, adapter, client, connection, match, userID); err != nil {
				failures++
				j.logItemFailure(ctx, connection, match, err)
			}

		default:
			failures++
			j.logMissingData(ctx, connection, match, fmt.Sprintf("unknown mapping action %q", match.Action))
		}

		j.progress.Report(jobID, i+1, len(confirmed))
	}

	if err := j.coordinator.SyncCompleted(ctx, connectionID, failures); err != nil {
		return err
	}
	event := models.EventSyncCompleted
	status := models.ActivityInfo
	if failures > 0 {
		event = models.EventSyncFailed
		status = models.ActivityWarning
	}
	j.logActivity(ctx, connection, event, status, fmt.Sprintf("synced %d items, %d failures", len(confirmed), failures))
	return nil
}

// applyLink connects an existing canonical variant to a platform product,
// then overlays or refreshes per-field data according to SyncRules source
// of truth: a "PLATFORM" source overlays the platform's values onto the
// canonical side, field by field, never clobbering a field the platform
// didn't report with a null.
func (j *SyncJob) applyLink(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, match models.ConfirmedMatch, rules models.SyncRules) error {
	if match.MatchedVariantID == nil {
		return apperr.Validation("link action missing matchedVariantId")
	}
	variant, err := j.products.GetVariant(ctx, *match.MatchedVariantID)
	if err != nil {
		return apperr.NotFound("matched variant not found")
	}

	mapping := &models.PlatformProductMapping{
		ID:                uuid.New(),
		ConnectionID:      connection.ID,
		VariantID:         variant.ID,
		PlatformProductID: match.PlatformProductID,
		PlatformVariantID: match.PlatformVariantID,
		PlatformSKU:       match.PlatformSKU,
		SyncStatus:        models.MappingLinked,
		IsEnabled:         true,
	}
	if err := j.mappings.Upsert(ctx, mapping); err != nil {
		return apperr.DataIntegrity("persisting mapping", err)
	}

	if rules.ProductDetailsSoT == "PLATFORM" {
		overlayPlatformFields(variant, match)
		if err := j.products.SaveVariants(ctx, []*models.CanonicalProductVariant{variant}); err != nil {
			return apperr.DataIntegrity("overlaying platform product details onto canonical variant", err)
		}
	}

	if rules.InventorySoT == "PLATFORM" && match.PlatformVariantID != nil {
		if err := j.overlayPlatformInventory(ctx, client, connection, variant.ID, *match.PlatformVariantID); err != nil {
			return err
		}
	}

	now := time.Now()
	mapping.SyncStatus = models.MappingSynced
	mapping.LastSyncedAt = &now
	return j.mappings.Update(ctx, mapping)
}

// overlayPlatformFields merges the platform's known values onto variant,
// field by field, leaving any field the platform didn't report untouched
// rather than clobbering it with a zero value (spec.md §4.5 "link").
func overlayPlatformFields(variant *models.CanonicalProductVariant, match models.ConfirmedMatch) {
	if match.PlatformTitle != nil && *match.PlatformTitle != "" {
		variant.Title = *match.PlatformTitle
	}
	if match.PlatformSKU != nil && *match.PlatformSKU != "" {
		sku := *match.PlatformSKU
		variant.SKU = &sku
	}
	snapshot := match.PlatformProductSnapshot
	if snapshot == nil {
		return
	}
	if description, ok := snapshot["description"].(string); ok && description != "" {
		variant.Description = description
	}
	if barcode, ok := snapshot["barcode"].(string); ok && barcode != "" {
		variant.Barcode = &barcode
	}
	if price, ok := snapshot["price"].(float64); ok && price != 0 {
		variant.Price = int64(price)
	}
	if compareAt, ok := snapshot["compareAtPrice"].(float64); ok && compareAt != 0 {
		cents := int64(compareAt)
		variant.CompareAtPrice = &cents
	}
}

// overlayPlatformInventory bulk-saves the linked platform variant's
// current inventory rows onto the canonical variant (spec.md §4.5
// "link": "bulk-save the inventory rows mapped from the linked platform
// variant only").
func (j *SyncJob) overlayPlatformInventory(ctx context.Context, client clients.ApiClient, connection *models.PlatformConnection, variantID uuid.UUID, platformVariantID string) error {
	levels, err := client.FetchInventoryLevels(ctx, []string{platformVariantID})
	if err != nil {
		return apperr.PlatformTransient("fetching linked variant's platform inventory", err)
	}
	if len(levels) == 0 {
		return nil
	}

	rows := make([]*models.CanonicalInventoryLevel, 0, len(levels))
	for _, level := range levels {
		row := &models.CanonicalInventoryLevel{
			VariantID:          variantID,
			ConnectionID:       connection.ID,
			PlatformLocationID: level.PlatformLocationID,
			Quantity:           level.Quantity,
		}
		if !level.UpdatedAt.IsZero() {
			updatedAt := level.UpdatedAt
			row.LastPlatformUpdateAt = &updatedAt
		}
		rows = append(rows, row)
	}
	if err := j.inventory.SaveBulkInventoryLevels(ctx, rows); err != nil {
		return apperr.DataIntegrity("saving linked variant's platform inventory", err)
	}
	return nil
}

// applyCreate materializes a brand-new canonical product/variant from the
// platform snapshot recorded on the suggestion and records the mapping to
// the existing platform product. It makes no platform call, whatever the
// SyncRules source of truth is.
func (j *SyncJob) applyCreate(ctx context.Context, adapter clients.Adapter, client clients.ApiClient, connection *models.PlatformConnection, match models.ConfirmedMatch, userID string) error {
	raw := &clients.PlatformProduct{
		ID:      match.PlatformProductID,
		Title:   stringValue(match.PlatformTitle),
		RawData: map[string]interface{}(match.PlatformProductSnapshot),
	}
	draft, err := adapter.GetMapper().MapPlatformDataToCanonical(raw, userID, connection.ID.String())
	if err != nil {
		return apperr.DataIntegrity("mapping create action to canonical shape", err)
	}

	if err := j.products.SaveProduct(ctx, draft.Product); err != nil {
		return apperr.DataIntegrity("saving created product", err)
	}
	if err := j.products.SaveVariants(ctx, draft.Variants); err != nil {
		return apperr.DataIntegrity("saving created variants", err)
	}
	if err := j.inventory.SaveBulkInventoryLevels(ctx, draft.Inventory); err != nil {
		return apperr.DataIntegrity("saving created inventory", err)
	}

	for _, variant := range draft.Variants {
		mapping := &models.PlatformProductMapping{
			ID:                uuid.New(),
			ConnectionID:      connection.ID,
			VariantID:         variant.ID,
			PlatformProductID: match.PlatformProductID,
			PlatformVariantID: match.PlatformVariantID,
			PlatformSKU:       match.PlatformSKU,
			SyncStatus:        models.MappingSynced,
			IsEnabled:         true,
		}
		if err := j.mappings.Upsert(ctx, mapping); err != nil {
			return apperr.DataIntegrity("persisting mapping for created product", err)
		}
	}
	return nil
}

func (j *SyncJob) logItemFailure(ctx context.Context, connection *models.PlatformConnection, match models.ConfirmedMatch, cause error) {
	if apperr.Is(cause, apperr.KindMissingPlatformData) {
		j.logMissingData(ctx, connection, match, cause.Error())
		return
	}
	entry := models.NewActivityEntry(connection.UserID, models.EntityMapping, match.PlatformProductID, models.EventSyncFailed).
		WithConnection(connection.ID).
		WithStatus(models.ActivityError).
		WithMessage(cause.Error()).
		Build()
	_ = j.activity.LogActivity(ctx, entry)
}

func (j *SyncJob) logMissingData(ctx context.Context, connection *models.PlatformConnection, match models.ConfirmedMatch, message string) {
	entry := models.NewActivityEntry(connection.UserID, models.EntityMapping, match.PlatformProductID, models.EventSyncItemMissingData).
		WithConnection(connection.ID).
		WithStatus(models.ActivityWarning).
		WithMessage(message).
		Build()
	_ = j.activity.LogActivity(ctx, entry)
}

func (j *SyncJob) logActivity(ctx context.Context, connection *models.PlatformConnection, event models.ActivityEventType, status models.ActivityStatus, message string) {
	entry := models.NewActivityEntry(connection.UserID, models.EntityConnection, connection.ID.String(), event).
		WithConnection(connection.ID).
		WithStatus(status).
		WithMessage(message).
		Build()
	_ = j.activity.LogActivity(ctx, entry)
}

// readConfirmedMatches decodes PlatformSpecificData.mappingConfirmations,
// tolerating an absent or malformed envelope by returning no work.
func readConfirmedMatches(connection *models.PlatformConnection) []models.ConfirmedMatch {
	if connection.PlatformSpecificData == nil {
		return nil
	}
	raw, ok := connection.PlatformSpecificData[models.MetaMappingConfirmations]
	if !ok {
		return nil
	}
	entries, ok := raw.([]interface{})
	if !ok {
		if set, ok := raw.(models.MappingConfirmationSet); ok {
			return set.ConfirmedMatches
		}
		envelope, isMap := raw.(map[string]interface{})
		if !isMap {
			return nil
		}
		if entries, ok = envelope["confirmedMatches"].([]interface{}); !ok {
			return nil
		}
	}
	matches := make([]models.ConfirmedMatch, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		match := models.ConfirmedMatch{}
		if v, ok := m["platformProductId"].(string); ok {
			match.PlatformProductID = v
		}
		if v, ok := m["action"].(string); ok {
			match.Action = models.MappingAction(v)
		}
		if v, ok := m["platformVariantId"].(string); ok {
			match.PlatformVariantID = &v
		}
		if v, ok := m["platformSku"].(string); ok {
			match.PlatformSKU = &v
		}
		if v, ok := m["platformTitle"].(string); ok {
			match.PlatformTitle = &v
		}
		if v, ok := m["matchedVariantId"].(string); ok {
			if id, err := uuid.Parse(v); err == nil {
				match.MatchedVariantID = &id
			}
		}
		if v, ok := m["platformProductSnapshot"].(map[string]interface{}); ok {
			match.PlatformProductSnapshot = models.JSONB(v)
		}
		matches = append(matches, match)
	}
	return matches
}

package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventory-sync-engine/internal/models"
)

// MappingStore persists the canonical <-> platform product links and the
// raw-snapshot change-detection cache (spec.md §3, §4.2).
type MappingStore struct {
	db *gorm.DB
}

func NewMappingStore(db *gorm.DB) *MappingStore {
	return &MappingStore{db: db}
}

// Get retrieves a mapping by its own ID.
func (s *MappingStore) Get(ctx context.Context, id uuid.UUID) (*models.PlatformProductMapping, error) {
	var mapping models.PlatformProductMapping
	if err := s.db.WithContext(ctx).First(&mapping, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &mapping, nil
}

// GetByVariantAndPlatformProduct looks up the mapping for a specific
// (connection, variant) pair, used before creating a duplicate link.
func (s *MappingStore) GetByVariantAndPlatformProduct(ctx context.Context, connectionID, variantID uuid.UUID) (*models.PlatformProductMapping, error) {
	var mapping models.PlatformProductMapping
	err := s.db.WithContext(ctx).
		Where("connection_id = ? AND variant_id = ?", connectionID, variantID).
		First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// GetByPlatformProduct looks up the mapping for a connection and the
// platform's own product id, used when a webhook arrives.
func (s *MappingStore) GetByPlatformProduct(ctx context.Context, connectionID uuid.UUID, platformProductID string) (*models.PlatformProductMapping, error) {
	var mapping models.PlatformProductMapping
	err := s.db.WithContext(ctx).
		Where("connection_id = ? AND platform_product_id = ?", connectionID, platformProductID).
		First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// GetByConnection lists every mapping belonging to a connection, used by
// reconciliation to walk the full known set (spec.md §4.6).
func (s *MappingStore) GetByConnection(ctx context.Context, connectionID uuid.UUID) ([]models.PlatformProductMapping, error) {
	var mappings []models.PlatformProductMapping
	err := s.db.WithContext(ctx).Where("connection_id = ?", connectionID).Find(&mappings).Error
	return mappings, err
}

// Upsert creates or updates a mapping keyed on (connectionId, variantId).
func (s *MappingStore) Upsert(ctx context.Context, mapping *models.PlatformProductMapping) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "connection_id"}, {Name: "variant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"platform_product_id", "platform_variant_id", "platform_sku",
			"sync_status", "is_enabled", "last_synced_at", "platform_specific_data", "updated_at",
		}),
	}).Create(mapping).Error
}

// Update saves an already-loaded mapping in place (e.g. after a status
// transition triggered by a sync result).
func (s *MappingStore) Update(ctx context.Context, mapping *models.PlatformProductMapping) error {
	return s.db.WithContext(ctx).Save(mapping).Error
}

// UpdateStatus flips a mapping's sync status without a full read-modify-write.
func (s *MappingStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.MappingSyncStatus) error {
	return s.db.WithContext(ctx).
		Model(&models.PlatformProductMapping{}).
		Where("id = ?", id).
		Update("sync_status", status).Error
}

// Delete removes a mapping, called when a platform product is deleted.
func (s *MappingStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.PlatformProductMapping{}, "id = ?", id).Error
}

// GetSnapshot retrieves the cached raw snapshot for a connection's external
// product id, used to short-circuit re-mapping of unchanged items.
func (s *MappingStore) GetSnapshot(ctx context.Context, connectionID uuid.UUID, externalID string) (*models.RawSnapshot, error) {
	var snapshot models.RawSnapshot
	err := s.db.WithContext(ctx).
		Where("connection_id = ? AND external_id = ?", connectionID, externalID).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// UpsertSnapshot stores the latest raw payload and its hash for a platform
// product.
func (s *MappingStore) UpsertSnapshot(ctx context.Context, snapshot *models.RawSnapshot) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "connection_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"raw_data", "data_hash", "updated_at"}),
	}).Create(snapshot).Error
}

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventory-sync-engine/internal/models"
)

// InventoryStore persists per (variant, connection, platformLocation)
// quantity rows (spec.md §3, §4.2).
type InventoryStore struct {
	db *gorm.DB
}

func NewInventoryStore(db *gorm.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

// SaveBulkInventoryLevels upserts a batch of inventory levels keyed by
// (variantId, connectionId, platformLocationId), the same unique index the
// continuous sync path relies on for idempotent re-application.
func (s *InventoryStore) SaveBulkInventoryLevels(ctx context.Context, levels []*models.CanonicalInventoryLevel) error {
	if len(levels) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "connection_id"}, {Name: "platform_location_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "last_platform_update_at", "updated_at"}),
	}).CreateInBatches(levels, 100).Error
}

// UpdateLevel sets one inventory level's quantity, guarding against an
// out-of-order platform update overwriting a newer one (spec.md §5).
func (s *InventoryStore) UpdateLevel(ctx context.Context, variantID, connectionID uuid.UUID, platformLocationID string, quantity int, platformUpdatedAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var level models.CanonicalInventoryLevel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("variant_id = ? AND connection_id = ? AND platform_location_id = ?", variantID, connectionID, platformLocationID).
			First(&level).Error

		if err == gorm.ErrRecordNotFound {
			level = models.CanonicalInventoryLevel{
				VariantID:            variantID,
				ConnectionID:         connectionID,
				PlatformLocationID:   platformLocationID,
				Quantity:             quantity,
				LastPlatformUpdateAt: &platformUpdatedAt,
			}
			return tx.Create(&level).Error
		}
		if err != nil {
			return err
		}

		if level.IsStaleAgainst(platformUpdatedAt) {
			return nil
		}

		level.Quantity = quantity
		level.LastPlatformUpdateAt = &platformUpdatedAt
		level.UpdatedAt = time.Now()
		return tx.Save(&level).Error
	})
}

// ListByVariant returns every connection-scoped level for a variant.
func (s *InventoryStore) ListByVariant(ctx context.Context, variantID uuid.UUID) ([]models.CanonicalInventoryLevel, error) {
	var levels []models.CanonicalInventoryLevel
	err := s.db.WithContext(ctx).Where("variant_id = ?", variantID).Find(&levels).Error
	return levels, err
}

// ListByConnection returns every level a connection has reported, used by
// reconciliation to detect products the platform dropped (spec.md §4.6).
func (s *InventoryStore) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]models.CanonicalInventoryLevel, error) {
	var levels []models.CanonicalInventoryLevel
	err := s.db.WithContext(ctx).Where("connection_id = ?", connectionID).Find(&levels).Error
	return levels, err
}

// GetLevel retrieves one inventory level row, if present.
func (s *InventoryStore) GetLevel(ctx context.Context, variantID, connectionID uuid.UUID, platformLocationID string) (*models.CanonicalInventoryLevel, error) {
	var level models.CanonicalInventoryLevel
	err := s.db.WithContext(ctx).
		Where("variant_id = ? AND connection_id = ? AND platform_location_id = ?", variantID, connectionID, platformLocationID).
		First(&level).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}

// DeleteByConnection removes every level a connection owns, called when a
// connection is disconnected.
func (s *InventoryStore) DeleteByConnection(ctx context.Context, connectionID uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.CanonicalInventoryLevel{}, "connection_id = ?", connectionID).Error
}

package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-sync-engine/internal/models"
)

// ActivityStore is the append-only audit trail writer (spec.md §3).
type ActivityStore struct {
	db *gorm.DB
}

func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// LogActivity appends one entry. Failures here are never allowed to roll
// back the operation they describe; callers log and continue.
func (s *ActivityStore) LogActivity(ctx context.Context, entry *models.ActivityLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *ActivityStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.ActivityLog, int64, error) {
	var entries []models.ActivityLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.ActivityLog{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *ActivityStore) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *ActivityStore) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := s.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

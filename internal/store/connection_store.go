package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-sync-engine/internal/cache"
	"inventory-sync-engine/internal/models"
)

// ConnectionStore persists platform connections (spec.md §3, §4.1, §4.3).
type ConnectionStore struct {
	db    *gorm.DB
	cache *cache.Layer
}

func NewConnectionStore(db *gorm.DB, cacheLayer *cache.Layer) *ConnectionStore {
	return &ConnectionStore{db: db, cache: cacheLayer}
}

func (s *ConnectionStore) Create(ctx context.Context, connection *models.PlatformConnection) error {
	return s.db.WithContext(ctx).Create(connection).Error
}

// GetByID reads through the L1/L2 cache layer before hitting Postgres; a
// cache miss or disabled cache falls straight back to the query.
func (s *ConnectionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PlatformConnection, error) {
	key := cache.ConnectionKey(id.String())
	var connection models.PlatformConnection
	if s.cache.Get(ctx, key, &connection) {
		return &connection, nil
	}
	if err := s.db.WithContext(ctx).First(&connection, "id = ?", id).Error; err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, &connection, cache.ConnectionCacheTTL)
	return &connection, nil
}

// GetByIdentity looks up a connection by the (userId, platformKind,
// uniqueIdentifier) tuple, the natural key onboarding uses to detect an
// already-linked account before creating a duplicate row.
func (s *ConnectionStore) GetByIdentity(ctx context.Context, userID string, platformKind models.PlatformKind, uniqueIdentifier string) (*models.PlatformConnection, error) {
	var connection models.PlatformConnection
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND platform_kind = ? AND unique_identifier = ?", userID, platformKind, uniqueIdentifier).
		First(&connection).Error
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

// FindByPlatformIdentity looks up a connection by (platformKind,
// uniqueIdentifier) alone, with no userId — the lookup the Webhook
// Dispatcher needs, since an inbound platform webhook carries no
// authenticated user context (spec.md §4.7 step 5).
func (s *ConnectionStore) FindByPlatformIdentity(ctx context.Context, platformKind models.PlatformKind, uniqueIdentifier string) (*models.PlatformConnection, error) {
	var connection models.PlatformConnection
	err := s.db.WithContext(ctx).
		Where("platform_kind = ? AND unique_identifier = ?", platformKind, uniqueIdentifier).
		First(&connection).Error
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

func (s *ConnectionStore) ListByUser(ctx context.Context, userID string) ([]models.PlatformConnection, error) {
	var connections []models.PlatformConnection
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&connections).Error
	return connections, err
}

func (s *ConnectionStore) Update(ctx context.Context, connection *models.PlatformConnection) error {
	if err := s.db.WithContext(ctx).Save(connection).Error; err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ConnectionKey(connection.ID.String()))
	return nil
}

// UpdateStatus transitions a connection's status and, when lastError is
// non-empty, stores it as LastError, replacing any earlier message
// (spec.md §4.3).
func (s *ConnectionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ConnectionStatus, lastError string) error {
	updates := map[string]interface{}{"status": status}
	if lastError != "" {
		updates["last_error"] = lastError
	}
	if err := s.db.WithContext(ctx).
		Model(&models.PlatformConnection{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ConnectionKey(id.String()))
	return nil
}

// CompareAndSetStatus transitions a connection only if it is currently in
// expectedStatus, the compare-and-set primitive the onboarding coordinator
// uses to make idempotent start-scan/activate-sync calls safe under
// concurrent requests (spec.md §4.3).
func (s *ConnectionStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus models.ConnectionStatus) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.PlatformConnection{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Update("status", newStatus)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		s.cache.Invalidate(ctx, cache.ConnectionKey(id.String()))
	}
	return result.RowsAffected > 0, nil
}

func (s *ConnectionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&models.PlatformConnection{}, "id = ?", id).Error; err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.ConnectionKey(id.String()))
	return nil
}

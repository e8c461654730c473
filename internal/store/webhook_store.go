package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-sync-engine/internal/models"
)

// WebhookStore persists the idempotency/audit trail of inbound webhook
// deliveries, grounded on the teacher's WebhookRepository
// (Create/ExistsWithIdempotencyKey/MarkProcessed).
type WebhookStore struct {
	db *gorm.DB
}

func NewWebhookStore(db *gorm.DB) *WebhookStore {
	return &WebhookStore{db: db}
}

func (s *WebhookStore) Create(ctx context.Context, receipt *models.WebhookReceipt) error {
	return s.db.WithContext(ctx).Create(receipt).Error
}

func (s *WebhookStore) ExistsWithWebhookID(ctx context.Context, webhookID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.WebhookReceipt{}).
		Where("webhook_id = ?", webhookID).
		Count(&count).Error
	return count > 0, err
}

func (s *WebhookStore) MarkProcessed(ctx context.Context, id uuid.UUID, cause error) error {
	updates := map[string]interface{}{
		"processed":    true,
		"processed_at": gorm.Expr("CURRENT_TIMESTAMP"),
	}
	if cause != nil {
		updates["processing_error"] = cause.Error()
	}
	return s.db.WithContext(ctx).
		Model(&models.WebhookReceipt{}).
		Where("id = ?", id).
		Updates(updates).Error
}

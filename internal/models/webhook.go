package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookReceipt is the idempotency and audit record for one inbound
// webhook delivery (spec.md §4.7), grounded on the teacher's
// MarketplaceWebhookEvent row shape.
type WebhookReceipt struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	WebhookID    string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_webhook_id" json:"webhookId"`
	PlatformKind PlatformKind `gorm:"type:varchar(50);not null" json:"platformKind"`
	ConnectionID *uuid.UUID   `gorm:"type:uuid;index:idx_webhook_connection" json:"connectionId,omitempty"`

	EventType    string `gorm:"type:varchar(100)" json:"eventType,omitempty"`
	ResourceID   string `gorm:"type:varchar(255)" json:"resourceId,omitempty"`
	ResourceType string `gorm:"type:varchar(50)" json:"resourceType,omitempty"`

	Payload JSONB `gorm:"type:jsonb" json:"payload,omitempty"`
	Headers JSONB `gorm:"type:jsonb" json:"headers,omitempty"`

	Processed       bool   `gorm:"default:false" json:"processed"`
	ProcessingError string `gorm:"type:text" json:"processingError,omitempty"`

	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

func (WebhookReceipt) TableName() string { return "webhook_receipts" }

package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the kind of object an ActivityLog entry describes.
type EntityType string

const (
	EntityConnection EntityType = "CONNECTION"
	EntityProduct    EntityType = "PRODUCT"
	EntityVariant    EntityType = "VARIANT"
	EntityInventory  EntityType = "INVENTORY"
	EntityMapping    EntityType = "MAPPING"
	EntityWebhook    EntityType = "WEBHOOK"
	EntityJob        EntityType = "JOB"
)

// ActivityEventType enumerates the event names ActivityLog entries carry,
// matching spec.md's RECONCILE_NEW_PRODUCT / WEBHOOK_RECEIVED family.
type ActivityEventType string

const (
	EventScanStarted              ActivityEventType = "SCAN_STARTED"
	EventScanCompleted            ActivityEventType = "SCAN_COMPLETED"
	EventScanFailed               ActivityEventType = "SCAN_FAILED"
	EventMappingsConfirmed        ActivityEventType = "MAPPINGS_CONFIRMED"
	EventSyncStarted              ActivityEventType = "SYNC_STARTED"
	EventSyncCompleted            ActivityEventType = "SYNC_COMPLETED"
	EventSyncFailed               ActivityEventType = "SYNC_FAILED"
	EventSyncItemMissingData      ActivityEventType = "MISSING_PLATFORM_DATA"
	EventReconcileStarted         ActivityEventType = "RECONCILE_STARTED"
	EventReconcileNewProduct      ActivityEventType = "RECONCILE_NEW_PRODUCT"
	EventReconcileMissingProduct  ActivityEventType = "RECONCILE_MISSING_PRODUCT"
	EventReconcileCompleted       ActivityEventType = "RECONCILE_COMPLETED"
	EventReconcileFailed          ActivityEventType = "RECONCILE_FAILED"
	EventWebhookReceived          ActivityEventType = "WEBHOOK_RECEIVED"
	EventWebhookProcessed         ActivityEventType = "WEBHOOK_PROCESSED"
	EventWebhookProcessingFailed  ActivityEventType = "WEBHOOK_PROCESSING_FAILED"
	EventWebhookDuplicate         ActivityEventType = "WEBHOOK_DUPLICATE"
	EventConnectionDisconnected   ActivityEventType = "CONNECTION_DISCONNECTED"
)

// ActivityStatus is the outcome recorded alongside an ActivityEventType.
type ActivityStatus string

const (
	ActivityInfo    ActivityStatus = "INFO"
	ActivityWarning ActivityStatus = "WARNING"
	ActivityError   ActivityStatus = "ERROR"
)

// ActivityLog is the append-only audit trail of spec.md §3: one row per
// (userId, entityType, entityId, eventType) occurrence.
type ActivityLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`

	UserID       string     `gorm:"type:varchar(255);not null;index:idx_activity_user" json:"userId"`
	EntityType   EntityType `gorm:"type:varchar(50);not null" json:"entityType"`
	EntityID     string     `gorm:"type:varchar(255);not null;index:idx_activity_entity" json:"entityId"`
	ConnectionID *uuid.UUID `gorm:"type:uuid;index:idx_activity_connection" json:"connectionId,omitempty"`

	EventType ActivityEventType `gorm:"type:varchar(100);not null;index:idx_activity_event" json:"eventType"`
	Status    ActivityStatus    `gorm:"type:varchar(20);not null;default:'INFO'" json:"status"`
	Message   string            `gorm:"type:text" json:"message,omitempty"`
	Details   JSONB             `gorm:"type:jsonb;default:'{}'" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_activity_created" json:"createdAt"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

// ActivityEntryBuilder assembles an ActivityLog entry field by field,
// kept in the teacher's AuditLogBuilder shape.
type ActivityEntryBuilder struct {
	entry *ActivityLog
}

// NewActivityEntry starts a builder for the given actor-scoped entity event.
func NewActivityEntry(userID string, entityType EntityType, entityID string, eventType ActivityEventType) *ActivityEntryBuilder {
	return &ActivityEntryBuilder{
		entry: &ActivityLog{
			ID:         uuid.New(),
			UserID:     userID,
			EntityType: entityType,
			EntityID:   entityID,
			EventType:  eventType,
			Status:     ActivityInfo,
			CreatedAt:  time.Now(),
		},
	}
}

func (b *ActivityEntryBuilder) WithConnection(connectionID uuid.UUID) *ActivityEntryBuilder {
	b.entry.ConnectionID = &connectionID
	return b
}

func (b *ActivityEntryBuilder) WithStatus(status ActivityStatus) *ActivityEntryBuilder {
	b.entry.Status = status
	return b
}

func (b *ActivityEntryBuilder) WithMessage(message string) *ActivityEntryBuilder {
	b.entry.Message = message
	return b
}

func (b *ActivityEntryBuilder) WithDetails(details JSONB) *ActivityEntryBuilder {
	b.entry.Details = details
	return b
}

func (b *ActivityEntryBuilder) Build() *ActivityLog {
	return b.entry
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// CanonicalInventoryLevel is a per (variant, connection, platformLocation)
// quantity row (spec.md §3).
type CanonicalInventoryLevel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	VariantID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_unique,priority:1" json:"variantId"`
	ConnectionID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_unique,priority:2" json:"connectionId"`
	PlatformLocationID   string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_inventory_unique,priority:3" json:"platformLocationId"`
	Quantity             int        `gorm:"not null;default:0" json:"quantity"`
	LastPlatformUpdateAt *time.Time `json:"lastPlatformUpdateAt,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (CanonicalInventoryLevel) TableName() string { return "inventory_levels" }

// IsStaleAgainst reports whether an incoming platform update should be
// discarded in favor of a row already newer than it (last-writer-wins
// per spec.md §5's ordering guarantees).
func (l *CanonicalInventoryLevel) IsStaleAgainst(incoming time.Time) bool {
	if l.LastPlatformUpdateAt == nil {
		return false
	}
	return l.LastPlatformUpdateAt.After(incoming)
}

// InventorySource distinguishes where a level update originated, kept for
// activity-log detail even though the engine has no separate ledger table.
type InventorySource string

const (
	SourcePlatform InventorySource = "PLATFORM"
	SourceManual   InventorySource = "MANUAL"
	SourceSync     InventorySource = "SYNC"
	SourceWebhook  InventorySource = "WEBHOOK"
)

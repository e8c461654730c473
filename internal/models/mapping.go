package models

import (
	"time"

	"github.com/google/uuid"
)

// MappingSyncStatus is the status of a PlatformProductMapping (spec.md §3).
type MappingSyncStatus string

const (
	MappingLinked  MappingSyncStatus = "Linked"
	MappingSynced  MappingSyncStatus = "Synced"
	MappingPending MappingSyncStatus = "Pending"
	MappingIgnored MappingSyncStatus = "Ignored"
	MappingError   MappingSyncStatus = "Error"
)

// PlatformProductMapping is the canonical ↔ platform link (spec.md §3).
type PlatformProductMapping struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConnectionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_connection_variant,priority:1;uniqueIndex:idx_mapping_connection_platform_variant,priority:1" json:"connectionId"`
	VariantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_connection_variant,priority:2" json:"variantId"`

	PlatformProductID string  `gorm:"type:varchar(255);not null;index:idx_mapping_platform_product" json:"platformProductId"`
	PlatformVariantID *string `gorm:"type:varchar(255);uniqueIndex:idx_mapping_connection_platform_variant,priority:2" json:"platformVariantId,omitempty"`
	PlatformSKU       *string `gorm:"type:varchar(255)" json:"platformSku,omitempty"`

	SyncStatus MappingSyncStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"syncStatus"`
	IsEnabled  bool              `gorm:"default:true" json:"isEnabled"`

	LastSyncedAt *time.Time `json:"lastSyncedAt,omitempty"`

	PlatformSpecificData JSONB `gorm:"type:jsonb;default:'{}'" json:"platformSpecificData,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (PlatformProductMapping) TableName() string { return "platform_product_mappings" }

// MatchType is how a MappingSuggestion was derived (spec.md §3, §4.4 step 6).
type MatchType string

const (
	MatchSKU     MatchType = "SKU"
	MatchBarcode MatchType = "BARCODE"
	MatchNone    MatchType = "NONE"
)

// ConfidenceFor returns the fixed confidence spec.md §4.4 assigns each match type.
func ConfidenceFor(t MatchType) float64 {
	switch t {
	case MatchBarcode:
		return 0.95
	case MatchSKU:
		return 0.90
	default:
		return 0
	}
}

// MappingSuggestion is a transient proposal stored on the connection's
// PlatformSpecificData.mappingSuggestions array (spec.md §3).
type MappingSuggestion struct {
	PlatformProductSnapshot JSONB      `json:"platformProductSnapshot"`
	PlatformProductID       string     `json:"platformProductId"`
	PlatformVariantID       *string    `json:"platformVariantId,omitempty"`
	SuggestedVariantID      *uuid.UUID `json:"suggestedVariantId,omitempty"`
	MatchType               MatchType  `json:"matchType"`
	Confidence              float64    `json:"confidence"`
}

// MappingAction is the user decision attached to a ConfirmedMatch.
type MappingAction string

const (
	ActionLink   MappingAction = "link"
	ActionCreate MappingAction = "create"
	ActionIgnore MappingAction = "ignore"
)

// ConfirmedMatch is a user decision on a suggestion (spec.md §3), stored
// as `mappingConfirmations` (with a timestamp) or `mappingDrafts` on the
// connection's PlatformSpecificData.
type ConfirmedMatch struct {
	PlatformProductID       string        `json:"platformProductId"`
	PlatformVariantID       *string       `json:"platformVariantId,omitempty"`
	PlatformSKU             *string       `json:"platformSku,omitempty"`
	PlatformTitle           *string       `json:"platformTitle,omitempty"`
	MatchedVariantID        *uuid.UUID    `json:"matchedVariantId,omitempty"`
	Action                  MappingAction `json:"action"`
	PlatformProductSnapshot JSONB         `json:"platformProductSnapshot,omitempty"`
}

// MappingConfirmationSet is the envelope stored at
// PlatformSpecificData["mappingConfirmations"].
type MappingConfirmationSet struct {
	ConfirmedMatches []ConfirmedMatch `json:"confirmedMatches"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// RawSnapshot stores a hashed copy of a fetched platform product so a scan
// rerun can short-circuit re-mapping of unchanged items (§4 supplemented
// feature, change-detection carried over from the teacher's model).
type RawSnapshot struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConnectionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_connection_external,priority:1" json:"connectionId"`
	ExternalID   string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_snapshot_connection_external,priority:2" json:"externalId"`

	RawData  JSONB  `gorm:"type:jsonb;not null" json:"rawData"`
	DataHash string `gorm:"type:varchar(64);not null" json:"dataHash"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (RawSnapshot) TableName() string { return "raw_snapshots" }

// HasChanged reports whether newHash differs from the stored snapshot hash.
func (s *RawSnapshot) HasChanged(newHash string) bool {
	return s.DataHash != newHash
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PlatformKind identifies a supported commerce platform.
type PlatformKind string

const (
	PlatformShopify  PlatformKind = "shopify"
	PlatformSquare   PlatformKind = "square"
	PlatformClover   PlatformKind = "clover"
	PlatformEbay     PlatformKind = "ebay"
	PlatformFacebook PlatformKind = "facebook"
	PlatformWhatnot  PlatformKind = "whatnot"
	PlatformCSV      PlatformKind = "csv"
)

// ConnectionStatus is the onboarding/continuous-sync state of a connection (spec.md §4.3).
type ConnectionStatus string

const (
	StatusPending     ConnectionStatus = "pending"
	StatusScanning    ConnectionStatus = "scanning"
	StatusNeedsReview ConnectionStatus = "needs_review"
	StatusSyncing     ConnectionStatus = "syncing"
	StatusActive      ConnectionStatus = "active"
	StatusReconciling ConnectionStatus = "reconciling"
	StatusError       ConnectionStatus = "error"
	StatusInactive    ConnectionStatus = "inactive"
)

// JSONB is a schemaless metadata bag stored as PostgreSQL jsonb.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(j))
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*j = JSONB(m)
	return nil
}

// Reserved keys inside PlatformConnection.PlatformSpecificData (spec.md §6).
const (
	MetaShop                = "shop"
	MetaMerchantID          = "merchantId"
	MetaScanSummary         = "scanSummary"
	MetaMappingSuggestions  = "mappingSuggestions"
	MetaMappingConfirmations = "mappingConfirmations"
	MetaMappingDrafts       = "mappingDrafts"
	MetaCurrentJobID        = "currentJobId"
	MetaJobStartedAt        = "jobStartedAt"
	MetaJobType             = "jobType"
)

// SyncRules controls per-field Source-of-Truth policy for initial-sync (spec.md §4.5).
type SyncRules struct {
	ProductDetailsSoT string `json:"productDetailsSoT"` // "PLATFORM" | "INTERNAL"
	InventorySoT      string `json:"inventorySoT"`      // "PLATFORM" | "INTERNAL"
	CreateNew         bool   `json:"createNew"`
	DelistWhenZero    bool   `json:"delistWhenZero"`
}

// DefaultSyncRules mirrors the teacher's DefaultConcurrencyConfig-style "production ready defaults" idiom.
func DefaultSyncRules() SyncRules {
	return SyncRules{
		ProductDetailsSoT: "PLATFORM",
		InventorySoT:      "PLATFORM",
		CreateNew:         true,
		DelistWhenZero:    true,
	}
}

// PlatformConnection is a user's linked account on one platform (spec.md §3).
type PlatformConnection struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      string           `gorm:"type:varchar(255);not null;index:idx_conn_user;uniqueIndex:idx_conn_identity,priority:1" json:"userId"`
	PlatformKind PlatformKind    `gorm:"type:varchar(50);not null;index:idx_conn_platform;uniqueIndex:idx_conn_identity,priority:2" json:"platformKind"`
	DisplayName string           `gorm:"type:varchar(255);not null" json:"displayName"`

	Status    ConnectionStatus `gorm:"type:varchar(50);not null;default:'pending';index:idx_conn_status" json:"status"`
	IsEnabled bool             `gorm:"default:true" json:"isEnabled"`

	// UniqueIdentifier is the platform-specific key used for (userId, platformKind, uniqueIdentifier)
	// uniqueness — the shop domain for Shopify, the merchant id for Square/Clover, etc.
	UniqueIdentifier string `gorm:"type:varchar(255);not null;uniqueIndex:idx_conn_identity,priority:3" json:"uniqueIdentifier"`

	// CredentialBlob is opaque ciphertext; only internal/encryption ever reads it.
	CredentialBlob []byte `gorm:"type:bytea" json:"-"`

	PlatformSpecificData JSONB `gorm:"type:jsonb;default:'{}'" json:"platformSpecificData,omitempty"`
	SyncRulesData         JSONB `gorm:"type:jsonb" json:"syncRules,omitempty"`

	LastSyncAttemptAt *time.Time `json:"lastSyncAttemptAt,omitempty"`
	LastSyncSuccessAt *time.Time `json:"lastSyncSuccessAt,omitempty"`
	LastError         string     `gorm:"type:text" json:"lastError,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (PlatformConnection) TableName() string { return "platform_connections" }

// SyncRules decodes the stored sync rules, falling back to defaults.
func (c *PlatformConnection) SyncRules() SyncRules {
	rules := DefaultSyncRules()
	if c.SyncRulesData == nil {
		return rules
	}
	raw, err := json.Marshal(map[string]interface{}(c.SyncRulesData))
	if err != nil {
		return rules
	}
	_ = json.Unmarshal(raw, &rules)
	return rules
}

// SetSyncRules persists sync rules into SyncRulesData.
func (c *PlatformConnection) SetSyncRules(rules SyncRules) {
	raw, _ := json.Marshal(rules)
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	c.SyncRulesData = m
}

// MetaString reads a string field out of PlatformSpecificData.
func (c *PlatformConnection) MetaString(key string) string {
	if c.PlatformSpecificData == nil {
		return ""
	}
	if v, ok := c.PlatformSpecificData[key].(string); ok {
		return v
	}
	return ""
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CanonicalProduct is an owner-scoped grouping for variants sharing
// title/description/images (spec.md §3).
type CanonicalProduct struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      string    `gorm:"type:varchar(255);not null;index:idx_product_user" json:"userId"`
	Title       string    `gorm:"type:varchar(500)" json:"title,omitempty"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Archived    bool      `gorm:"default:false" json:"archived"`

	ImageURLs datatypesJSONList `gorm:"type:jsonb" json:"imageUrls,omitempty"`

	PlatformSpecificData JSONB `gorm:"type:jsonb;default:'{}'" json:"platformSpecificData,omitempty"`

	Variants []CanonicalProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (CanonicalProduct) TableName() string { return "products" }

// datatypesJSONList stores a string slice as jsonb, reusing the JSONB
// Value/Scan idiom rather than introducing a second codec for one field.
type datatypesJSONList []string

func (l datatypesJSONList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal([]string(l))
}

func (l *datatypesJSONList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// WeightUnit enumerates the units a variant's weight may be expressed in.
type WeightUnit string

const (
	WeightUnitKg WeightUnit = "kg"
	WeightUnitLb WeightUnit = "lb"
	WeightUnitOz WeightUnit = "oz"
	WeightUnitG  WeightUnit = "g"
)

// CanonicalProductVariant is the atomic sellable unit (spec.md §3).
type CanonicalProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_variant_product" json:"productId"`
	UserID    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_variant_user_sku,priority:1" json:"userId"`

	SKU     *string `gorm:"type:varchar(255);uniqueIndex:idx_variant_user_sku,priority:2" json:"sku,omitempty"`
	Barcode *string `gorm:"type:varchar(255);index:idx_variant_barcode" json:"barcode,omitempty"`

	Title       string `gorm:"type:varchar(500);not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Price          int64  `gorm:"not null;default:0" json:"price"` // minor units
	CompareAtPrice *int64 `json:"compareAtPrice,omitempty"`
	Cost           *int64 `json:"cost,omitempty"`

	Weight     *float64   `json:"weight,omitempty"`
	WeightUnit WeightUnit `gorm:"type:varchar(10)" json:"weightUnit,omitempty"`

	Options JSONB `gorm:"type:jsonb;default:'{}'" json:"options,omitempty"`

	RequiresShipping bool   `gorm:"default:true" json:"requiresShipping"`
	Taxable          bool   `gorm:"default:true" json:"taxable"`
	TaxCode          string `gorm:"type:varchar(100)" json:"taxCode,omitempty"`

	ImageID  *uuid.UUID `gorm:"type:uuid" json:"imageId,omitempty"`
	Archived bool       `gorm:"default:false" json:"archived"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (CanonicalProductVariant) TableName() string { return "product_variants" }

// NormalizedSKU lower-trims the SKU for index lookups in the mapping engine.
func (v *CanonicalProductVariant) NormalizedSKU() string {
	if v.SKU == nil {
		return ""
	}
	return normalizeKey(*v.SKU)
}

// NormalizedBarcode lower-trims the barcode for index lookups in the mapping engine.
func (v *CanonicalProductVariant) NormalizedBarcode() string {
	if v.Barcode == nil {
		return ""
	}
	return normalizeKey(*v.Barcode)
}

// ProductImage is the owning record for a canonical product's gallery;
// variants reference one by ImageID.
type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_image_product" json:"productId"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	Position  int       `gorm:"default:0" json:"position"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (ProductImage) TableName() string { return "product_images" }

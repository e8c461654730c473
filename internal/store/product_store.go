package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"inventory-sync-engine/internal/models"
)

// ProductStore persists canonical products, variants and their images
// (spec.md §4.2). Writes follow the products -> variants -> inventory ->
// mappings ordering the onboarding and sync jobs depend on.
type ProductStore struct {
	db *gorm.DB
}

func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db}
}

// SaveProduct creates or updates a canonical product row.
func (s *ProductStore) SaveProduct(ctx context.Context, product *models.CanonicalProduct) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "archived", "image_urls", "platform_specific_data", "updated_at"}),
	}).Create(product).Error
}

// GetProduct retrieves a canonical product with its variants preloaded.
func (s *ProductStore) GetProduct(ctx context.Context, id uuid.UUID) (*models.CanonicalProduct, error) {
	var product models.CanonicalProduct
	if err := s.db.WithContext(ctx).Preload("Variants").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetVariant retrieves a single canonical variant by ID.
func (s *ProductStore) GetVariant(ctx context.Context, id uuid.UUID) (*models.CanonicalProductVariant, error) {
	var variant models.CanonicalProductVariant
	if err := s.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantsByUser lists every variant owned by a user, for building the
// mapping engine's in-process sku/barcode index (spec.md §4.4 step 6).
func (s *ProductStore) FindVariantsByUser(ctx context.Context, userID string) ([]models.CanonicalProductVariant, error) {
	var variants []models.CanonicalProductVariant
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&variants).Error
	return variants, err
}

// GetVariantBySKU looks up a variant by its owner-scoped unique SKU.
func (s *ProductStore) GetVariantBySKU(ctx context.Context, userID, sku string) (*models.CanonicalProductVariant, error) {
	var variant models.CanonicalProductVariant
	err := s.db.WithContext(ctx).Where("user_id = ? AND sku = ?", userID, sku).First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// SaveVariants batch-upserts variants on the (userId, sku) uniqueness
// constraint. Variants without a SKU always insert as new rows since NULL
// never conflicts with NULL under Postgres unique indexes.
func (s *ProductStore) SaveVariants(ctx context.Context, variants []*models.CanonicalProductVariant) error {
	if len(variants) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "price", "compare_at_price", "cost",
			"weight", "weight_unit", "options", "barcode", "image_id", "updated_at",
		}),
	}).CreateInBatches(variants, 100).Error
}

// SaveVariantImages replaces a product's gallery with the given image set.
func (s *ProductStore) SaveVariantImages(ctx context.Context, productID uuid.UUID, images []*models.ProductImage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		return tx.CreateInBatches(images, 100).Error
	})
}

// ListProductsByUser returns a page of canonical products for a user.
func (s *ProductStore) ListProductsByUser(ctx context.Context, userID string, limit, offset int) ([]models.CanonicalProduct, int64, error) {
	var products []models.CanonicalProduct
	var total int64

	query := s.db.WithContext(ctx).Model(&models.CanonicalProduct{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// DeleteProduct removes a canonical product and its variants.
func (s *ProductStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CanonicalProductVariant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.CanonicalProduct{}, "id = ?", id).Error
	})
}

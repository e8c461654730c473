package middleware

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// UserContextKey is the context key for the authenticated user id.
type UserContextKey struct{}

// SetUserContext sets app.user_id in the database session for a
// Postgres row-level-security policy keyed on userId, generalized from
// the teacher's tenant/vendor SET LOCAL pattern to this repo's
// single-user scoping (spec.md §3: every PlatformConnection belongs to
// exactly one userId, with no tenant/vendor concept above it).
func SetUserContext(db *gorm.DB, userID string) *gorm.DB {
	return db.Exec("SET LOCAL app.user_id = ?", userID)
}

// WithUserContext returns a new context carrying the user id.
func WithUserContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// GetUserFromContext extracts the user id from context.
func GetUserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserContextKey{}).(string)
	return userID, ok
}

// UserDBContext wraps database operations with RLS context.
type UserDBContext struct {
	db *gorm.DB
}

func NewUserDBContext(db *gorm.DB) *UserDBContext {
	return &UserDBContext{db: db}
}

// WithUser returns a transaction with the user context set; must run
// within a transaction for SET LOCAL to take effect.
func (u *UserDBContext) WithUser(ctx context.Context, userID string) (*gorm.DB, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required for RLS")
	}

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	if err := tx.Exec("SET LOCAL app.user_id = ?", userID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to set user context: %w", err)
	}
	return tx, nil
}

// ExecuteWithUser runs fn inside a user-scoped transaction, committing on success.
func (u *UserDBContext) ExecuteWithUser(ctx context.Context, userID string, fn func(tx *gorm.DB) error) error {
	tx, err := u.WithUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

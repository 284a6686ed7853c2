package auth

import (
	"context"
	"time"

	"github.com/sahilchouksey/course-catalog/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blacklist persists revoked token ids in jwt_token_blacklist
type Blacklist struct {
	db *gorm.DB
}

// NewBlacklist creates a new blacklist backed by db
func NewBlacklist(db *gorm.DB) *Blacklist {
	return &Blacklist{db: db}
}

// Revoke stores jti until expiresAt; revoking twice is a no-op
func (b *Blacklist) Revoke(ctx context.Context, claims *Claims, reason string) error {
	entry := model.JWTTokenBlacklist{
		Token:     claims.ID,
		UserID:    claims.UserID,
		Reason:    reason,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, DoNothing: true}).
		Create(&entry).Error
}

// IsRevoked checks if a token id is in the blacklist
func (b *Blacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := b.db.WithContext(ctx).
		Model(&model.JWTTokenBlacklist{}).
		Where("token = ? AND expires_at > ?", jti, time.Now()).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RevokeAllForUser bumps the user's token version so every issued token stops validating
func (b *Blacklist) RevokeAllForUser(ctx context.Context, userID uint) error {
	return b.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1)).
		Error
}

// PurgeExpired removes rows whose token would be rejected for expiry anyway
func (b *Blacklist) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := b.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.JWTTokenBlacklist{})
	return result.RowsAffected, result.Error
}

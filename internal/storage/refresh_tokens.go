package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tyemirov/chirpy/internal/authkit"
	"gorm.io/gorm"
)

type refreshTokenRecord struct {
	Token     string     `gorm:"column:token;primaryKey"`
	UserID    string     `gorm:"column:user_id;index;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

func (refreshTokenRecord) TableName() string {
	return "refresh_tokens"
}

// InsertRefreshToken persists a new refresh token for userID.
func (database *Database) InsertRefreshToken(ctx context.Context, token string, userID string, expiresAt time.Time) error {
	now := time.Now().UTC()
	record := refreshTokenRecord{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := database.db.WithContext(ctx).Create(&record).Error; err != nil {
		return database.wrap("insert_refresh_token", err)
	}
	return nil
}

// FindRefreshToken loads token joined to its owning user.
func (database *Database) FindRefreshToken(ctx context.Context, token string) (authkit.RefreshTokenRecord, error) {
	var record refreshTokenRecord
	err := database.db.WithContext(ctx).
		Model(&refreshTokenRecord{}).
		Select("refresh_tokens.*").
		Joins("INNER JOIN users ON users.id = refresh_tokens.user_id").
		Where("refresh_tokens.token = ?", token).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authkit.RefreshTokenRecord{}, database.wrap("find_refresh_token", authkit.ErrRefreshTokenNotFound)
		}
		return authkit.RefreshTokenRecord{}, database.wrap("find_refresh_token", err)
	}
	return authkit.RefreshTokenRecord{
		Token:     record.Token,
		UserID:    record.UserID,
		ExpiresAt: record.ExpiresAt,
		RevokedAt: record.RevokedAt,
	}, nil
}

// MarkRefreshTokenRevoked stamps revoked_at and updated_at in a single-row update.
func (database *Database) MarkRefreshTokenRevoked(ctx context.Context, token string, revokedAt time.Time) error {
	stamp := revokedAt.UTC()
	result := database.db.WithContext(ctx).Model(&refreshTokenRecord{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"revoked_at": stamp,
			"updated_at": stamp,
		})
	if result.Error != nil {
		return database.wrap("revoke_refresh_token", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.wrap("revoke_refresh_token", authkit.ErrRefreshTokenNotFound)
	}
	return nil
}

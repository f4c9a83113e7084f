package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tyemirov/chirpy/internal/authkit"
	"gorm.io/gorm"
)

// ErrEmailTaken indicates another user already owns the email.
var ErrEmailTaken = errors.New("user_store.email_taken")

type userRecord struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Email          string    `gorm:"column:email;uniqueIndex;not null"`
	HashedPassword string    `gorm:"column:hashed_password;not null"`
	IsChirpyRed    bool      `gorm:"column:is_chirpy_red;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
}

func (userRecord) TableName() string {
	return "users"
}

func (record userRecord) identity() authkit.Identity {
	return authkit.Identity{
		ID:             record.ID,
		Email:          record.Email,
		HashedPassword: record.HashedPassword,
		IsChirpyRed:    record.IsChirpyRed,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

// CreateUser inserts a user with a fresh UUID.
func (database *Database) CreateUser(ctx context.Context, email string, hashedPassword string) (authkit.Identity, error) {
	now := time.Now().UTC()
	record := userRecord{
		ID:             uuid.NewString(),
		Email:          strings.TrimSpace(email),
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := database.db.WithContext(ctx).Create(&record).Error; err != nil {
		if database.isDuplicateEmail(ctx, err, record.Email, "") {
			return authkit.Identity{}, database.wrap("create_user", ErrEmailTaken)
		}
		return authkit.Identity{}, database.wrap("create_user", err)
	}
	return record.identity(), nil
}

// FindUserByEmail returns authkit.ErrUserNotFound when no user owns email.
func (database *Database) FindUserByEmail(ctx context.Context, email string) (authkit.Identity, error) {
	var record userRecord
	err := database.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authkit.Identity{}, database.wrap("find_user", authkit.ErrUserNotFound)
		}
		return authkit.Identity{}, database.wrap("find_user", err)
	}
	return record.identity(), nil
}

// UpdateUser replaces the email and password hash of userID.
func (database *Database) UpdateUser(ctx context.Context, userID string, email string, hashedPassword string) (authkit.Identity, error) {
	trimmedEmail := strings.TrimSpace(email)
	result := database.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"email":           trimmedEmail,
			"hashed_password": hashedPassword,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		if database.isDuplicateEmail(ctx, result.Error, trimmedEmail, userID) {
			return authkit.Identity{}, database.wrap("update_user", ErrEmailTaken)
		}
		return authkit.Identity{}, database.wrap("update_user", result.Error)
	}
	if result.RowsAffected == 0 {
		return authkit.Identity{}, database.wrap("update_user", authkit.ErrUserNotFound)
	}
	return database.findUserByID(ctx, "update_user", userID)
}

// UpgradeUser marks userID as a Chirpy Red member.
func (database *Database) UpgradeUser(ctx context.Context, userID string) error {
	result := database.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_chirpy_red": true,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return database.wrap("upgrade_user", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.wrap("upgrade_user", authkit.ErrUserNotFound)
	}
	return nil
}

// DeleteAllUsers removes every user together with their chirps and refresh tokens.
func (database *Database) DeleteAllUsers(ctx context.Context) error {
	err := database.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := global.Delete(&refreshTokenRecord{}).Error; err != nil {
			return err
		}
		if err := global.Delete(&chirpRecord{}).Error; err != nil {
			return err
		}
		return global.Delete(&userRecord{}).Error
	})
	if err != nil {
		return database.wrap("delete_users", err)
	}
	return nil
}

func (database *Database) findUserByID(ctx context.Context, operation string, userID string) (authkit.Identity, error) {
	var record userRecord
	err := database.db.WithContext(ctx).Where("id = ?", userID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authkit.Identity{}, database.wrap(operation, authkit.ErrUserNotFound)
		}
		return authkit.Identity{}, database.wrap(operation, err)
	}
	return record.identity(), nil
}

// isDuplicateEmail reports whether writeErr came from the unique email index.
// Dialects that do not translate constraint errors fall back to a lookup.
func (database *Database) isDuplicateEmail(ctx context.Context, writeErr error, email string, excludeUserID string) bool {
	if errors.Is(writeErr, gorm.ErrDuplicatedKey) {
		return true
	}
	var count int64
	query := database.db.WithContext(ctx).Model(&userRecord{}).Where("email = ?", email)
	if excludeUserID != "" {
		query = query.Where("id <> ?", excludeUserID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

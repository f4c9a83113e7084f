package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrChirpNotFound indicates no chirp matched the id.
var ErrChirpNotFound = errors.New("chirp_store.not_found")

// Chirp is a short post owned by a user.
type Chirp struct {
	ID        string
	Body      string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type chirpRecord struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Body      string    `gorm:"column:body;not null"`
	UserID    string    `gorm:"column:user_id;index;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (chirpRecord) TableName() string {
	return "chirps"
}

func (record chirpRecord) chirp() Chirp {
	return Chirp{
		ID:        record.ID,
		Body:      record.Body,
		UserID:    record.UserID,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

// CreateChirp stores body under userID.
func (database *Database) CreateChirp(ctx context.Context, userID string, body string) (Chirp, error) {
	now := time.Now().UTC()
	record := chirpRecord{
		ID:        uuid.NewString(),
		Body:      body,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := database.db.WithContext(ctx).Create(&record).Error; err != nil {
		return Chirp{}, database.wrap("create_chirp", err)
	}
	return record.chirp(), nil
}

// ListChirps returns every chirp, oldest first.
func (database *Database) ListChirps(ctx context.Context) ([]Chirp, error) {
	var records []chirpRecord
	if err := database.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, database.wrap("list_chirps", err)
	}
	chirps := make([]Chirp, 0, len(records))
	for _, record := range records {
		chirps = append(chirps, record.chirp())
	}
	return chirps, nil
}

// GetChirp returns ErrChirpNotFound when chirpID is unknown.
func (database *Database) GetChirp(ctx context.Context, chirpID string) (Chirp, error) {
	var record chirpRecord
	err := database.db.WithContext(ctx).Where("id = ?", chirpID).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Chirp{}, database.wrap("get_chirp", ErrChirpNotFound)
		}
		return Chirp{}, database.wrap("get_chirp", err)
	}
	return record.chirp(), nil
}

// DeleteChirp removes chirpID.
func (database *Database) DeleteChirp(ctx context.Context, chirpID string) error {
	result := database.db.WithContext(ctx).Where("id = ?", chirpID).Delete(&chirpRecord{})
	if result.Error != nil {
		return database.wrap("delete_chirp", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.wrap("delete_chirp", ErrChirpNotFound)
	}
	return nil
}

package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type controllableClock struct {
	mutex   sync.Mutex
	current time.Time
}

func newControllableClock() *controllableClock {
	return &controllableClock{current: time.Unix(1700000000, 0).UTC()}
}

func (clock *controllableClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.current
}

func (clock *controllableClock) Advance(duration time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.current = clock.current.Add(duration)
}

type testRefreshStore struct {
	mutex   sync.Mutex
	records map[string]RefreshTokenRecord
	// owners lists user ids that still exist; tokens of missing owners do not resolve.
	owners map[string]bool
}

func newTestRefreshStore() *testRefreshStore {
	return &testRefreshStore{
		records: make(map[string]RefreshTokenRecord),
		owners:  make(map[string]bool),
	}
}

func (store *testRefreshStore) InsertRefreshToken(ctx context.Context, token string, userID string, expiresAt time.Time) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.records[token] = RefreshTokenRecord{Token: token, UserID: userID, ExpiresAt: expiresAt}
	store.owners[userID] = true
	return nil
}

func (store *testRefreshStore) FindRefreshToken(ctx context.Context, token string) (RefreshTokenRecord, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, ok := store.records[token]
	if !ok || !store.owners[record.UserID] {
		return RefreshTokenRecord{}, ErrRefreshTokenNotFound
	}
	return record, nil
}

func (store *testRefreshStore) MarkRefreshTokenRevoked(ctx context.Context, token string, revokedAt time.Time) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	record, ok := store.records[token]
	if !ok {
		return ErrRefreshTokenNotFound
	}
	stamped := revokedAt
	record.RevokedAt = &stamped
	store.records[token] = record
	return nil
}

func (store *testRefreshStore) dropOwner(userID string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.owners, userID)
}

type stubRefreshStore struct {
	insertFunc func(ctx context.Context, token string, userID string, expiresAt time.Time) error
	findFunc   func(ctx context.Context, token string) (RefreshTokenRecord, error)
	revokeFunc func(ctx context.Context, token string, revokedAt time.Time) error
}

func (store *stubRefreshStore) InsertRefreshToken(ctx context.Context, token string, userID string, expiresAt time.Time) error {
	if store.insertFunc != nil {
		return store.insertFunc(ctx, token, userID, expiresAt)
	}
	return nil
}

func (store *stubRefreshStore) FindRefreshToken(ctx context.Context, token string) (RefreshTokenRecord, error) {
	if store.findFunc != nil {
		return store.findFunc(ctx, token)
	}
	return RefreshTokenRecord{}, errors.New("find_not_configured")
}

func (store *stubRefreshStore) MarkRefreshTokenRevoked(ctx context.Context, token string, revokedAt time.Time) error {
	if store.revokeFunc != nil {
		return store.revokeFunc(ctx, token, revokedAt)
	}
	return nil
}

type testUserStore struct {
	users map[string]Identity
	err   error
}

func newTestUserStore() *testUserStore {
	return &testUserStore{users: make(map[string]Identity)}
}

func (store *testUserStore) FindUserByEmail(ctx context.Context, email string) (Identity, error) {
	if store.err != nil {
		return Identity{}, store.err
	}
	identity, ok := store.users[email]
	if !ok {
		return Identity{}, ErrUserNotFound
	}
	return identity, nil
}

func (store *testUserStore) addUser(t *testing.T, id string, email string, password string) Identity {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	identity := Identity{
		ID:             id,
		Email:          email,
		HashedPassword: hash,
		CreatedAt:      time.Unix(1700000000, 0).UTC(),
		UpdatedAt:      time.Unix(1700000000, 0).UTC(),
	}
	store.users[email] = identity
	return identity
}

func newTestServerConfig() ServerConfig {
	return ServerConfig{
		JWTSigningKey:   []byte("s3cr3t"),
		JWTIssuer:       "chirpy",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 60 * 24 * time.Hour,
		PolkaAPIKey:     "f271c81ff7084ee5b99a5091b42d486e",
		Platform:        DevPlatform,
	}
}

package authkit

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

const refreshTokenByteLength = 32

var refreshTokenRandomSource io.Reader = rand.Reader

// generateRefreshToken returns 32 random bytes as 64 lowercase hex characters.
func generateRefreshToken() (string, error) {
	randomBytes := make([]byte, refreshTokenByteLength)
	if _, err := io.ReadFull(refreshTokenRandomSource, randomBytes); err != nil {
		return "", fmt.Errorf("refresh_store.random: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

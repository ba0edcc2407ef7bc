// Package apikey defines programmatic credentials scoped to a wallet.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/types"
)

// Key is a wallet-scoped API credential. The secret is returned exactly once
// at creation; only its SHA-256 digest is persisted.
type Key struct {
	types.Entity
	ID         id.APIKeyID `json:"id"`
	WalletID   id.WalletID `json:"wallet_id"`
	Name       string      `json:"name"`
	Digest     string      `json:"-"`
	IsActive   bool        `json:"is_active"`
	LastUsedAt *time.Time  `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time  `json:"revoked_at,omitempty"`
}

// NewSecret generates a fresh key secret with the "sk-" prefix.
func NewSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "sk-" + hex.EncodeToString(buf), nil
}

// DigestSecret returns the hex SHA-256 digest stored in place of the secret.
func DigestSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ListOpts controls key listing.
type ListOpts struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Package account defines the pooled wallet account and its balance model.
package account

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/types"
)

// Status is the soft lifecycle state of a wallet account.
// Accounts are never hard-deleted.
type Status string

const (
	StatusActive Status = "active"
	StatusFrozen Status = "frozen"
)

// Wallet is a pooled monetary balance exclusively owned by one user and
// optionally shared with members through per-member credit allocations.
//
// Balance is mutated only through credit/debit operations guarded by the
// Version field: every successful mutation carries the version the caller
// read and increments it by one. Concurrent writers that lose the race get
// a version conflict and re-read.
type Wallet struct {
	types.Entity
	ID      id.WalletID     `json:"id"`
	UID     string          `json:"uid"`
	OwnerID string          `json:"owner_id"`
	Balance decimal.Decimal `json:"balance"`
	Version int64           `json:"version"`
	Status  Status          `json:"status"`
}

// IsActive reports whether the wallet accepts balance mutations.
func (w *Wallet) IsActive() bool {
	return w.Status == StatusActive
}

// NewUID generates a public wallet identifier: 16 lowercase hex characters.
// Unlike the internal TypeID it carries no type prefix and is safe to expose
// in payment descriptions and external references.
func NewUID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("account: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// ListOpts controls wallet listing.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}

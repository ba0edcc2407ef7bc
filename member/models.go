// Package member defines the per-user credit sub-ledger inside a shared wallet.
package member

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/types"
)

// Member is one user's credit allocation inside a shared wallet.
//
// The (WalletID, UserID) pair is unique. Bookkeeping invariant, held before
// and after every mutation:
//
//	CreditUsed + CreditAvailable == CreditLimit
//	0 <= CreditUsed <= CreditLimit
//
// The sub-ledger is independent of the pooled wallet balance: a caller
// decides per debit whether it targets the pool or a member allowance.
//
// Members are soft-removed: leaving sets IsActive=false and LeftAt, the row
// is never deleted. Re-inviting the same user reactivates the existing row.
type Member struct {
	types.Entity
	ID              id.MemberID     `json:"id"`
	WalletID        id.WalletID     `json:"wallet_id"`
	UserID          string          `json:"user_id"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	CreditAvailable decimal.Decimal `json:"credit_available"`
	CreditUsed      decimal.Decimal `json:"credit_used"`
	Version         int64           `json:"version"`
	IsActive        bool            `json:"is_active"`
	JoinedAt        time.Time       `json:"joined_at"`
	LeftAt          *time.Time      `json:"left_at,omitempty"`
}

// CheckInvariant returns false if the credit bookkeeping equation is broken.
func (m *Member) CheckInvariant() bool {
	if m.CreditUsed.IsNegative() || m.CreditAvailable.IsNegative() {
		return false
	}
	return m.CreditUsed.Add(m.CreditAvailable).Equal(m.CreditLimit)
}

// ListOpts controls member listing.
type ListOpts struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

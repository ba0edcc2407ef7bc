// Package usage defines metered consumption records and billing requests.
package usage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/types"
)

// Record is a single billed consumption event. Records are buffered in
// memory and flushed to the store in batches; the wallet debit itself is
// synchronous, so a lost record never means a lost charge.
type Record struct {
	types.Entity
	ID         id.UsageRecordID `json:"id"`
	WalletID   id.WalletID      `json:"wallet_id"`
	MemberID   id.MemberID      `json:"member_id,omitempty"`
	UserID     string           `json:"user_id"`
	Resource   string           `json:"resource"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Rate       decimal.Decimal  `json:"rate"`
	Amount     decimal.Decimal  `json:"amount"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// BillRequest describes one metered call to charge and record.
type BillRequest struct {
	WalletID id.WalletID
	UserID   string
	Resource string
	Quantity decimal.Decimal
	// Rate is the unit price applied; retained for attribution only.
	Rate decimal.Decimal
	// Cost is the amount to charge, computed upstream by the metering
	// pipeline. Must be positive.
	Cost decimal.Decimal
	// MemberID, when set, charges the member's credit allowance instead
	// of the pooled wallet balance.
	MemberID id.MemberID
	// APIKeyID, when set, stamps the key's last-used time as part of the
	// billing call.
	APIKeyID id.APIKeyID
}

// QueryOpts controls usage history queries.
type QueryOpts struct {
	WalletID id.WalletID
	UserID   string
	Resource string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

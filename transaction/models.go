// Package transaction defines balance-affecting intents and their lifecycle.
package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/types"
)

// Status is the transaction lifecycle state.
//
// PENDING is initial; COMPLETED and FAILED are terminal. The only settlement
// transition is PENDING→COMPLETED, executed as a single guarded update keyed
// by (businessID, status=PENDING). A zero-row match means the transaction was
// already handled (or never existed) and the settlement is a benign no-op;
// this is the idempotency mechanism for at-least-once gateway callbacks.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Type classifies the balance-affecting intent.
type Type string

const (
	// TypeRecharge is a top-up settled through the payment gateway.
	TypeRecharge Type = "recharge"
)

// Transaction records a balance-affecting intent with a globally unique
// external idempotency key (BusinessID, the gateway's out_trade_no).
// Transactions are created PENDING at top-up initiation, mutated exactly
// once by settlement (or failure), and never deleted.
type Transaction struct {
	types.Entity
	ID          id.TransactionID `json:"id"`
	BusinessID  string           `json:"business_id"`
	WalletID    id.WalletID      `json:"wallet_id"`
	UserID      string           `json:"user_id"`
	Type        Type             `json:"type"`
	Amount      decimal.Decimal  `json:"amount"`
	Status      Status           `json:"status"`
	Description string           `json:"description"`
	SettledAt   *time.Time       `json:"settled_at,omitempty"`
	FailReason  string           `json:"fail_reason,omitempty"`
}

// IsTerminal reports whether the transaction has reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// ListOpts controls transaction listing.
type ListOpts struct {
	Status Status
	Type   Type
	Limit  int
	Offset int
}

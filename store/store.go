package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/account"
	"github.com/kadxy/wallet/apikey"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/member"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/usage"
)

// Store is the unified storage interface for all ledger entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Conditional updates carry an expectedVersion parameter: the mutation
// applies only when the stored version still matches, and the stored version
// is incremented in the same statement. A mismatch returns
// wallet.ErrVersionConflict; callers run the bounded retry loop, not the
// store.
type Store interface {
	// Wallet methods
	CreateWallet(ctx context.Context, w *account.Wallet) error
	GetWallet(ctx context.Context, walletID id.WalletID) (*account.Wallet, error)
	GetWalletByUID(ctx context.Context, uid string) (*account.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerID string) (*account.Wallet, error)
	ListWallets(ctx context.Context, opts account.ListOpts) ([]*account.Wallet, error)
	// UpdateWalletBalance conditionally sets the balance and status.
	UpdateWalletBalance(ctx context.Context, walletID id.WalletID, expectedVersion int64, balance decimal.Decimal, status account.Status) error

	// Member methods
	CreateMember(ctx context.Context, m *member.Member) error
	GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error)
	GetMemberByUser(ctx context.Context, walletID id.WalletID, userID string) (*member.Member, error)
	ListMembers(ctx context.Context, walletID id.WalletID, opts member.ListOpts) ([]*member.Member, error)
	// UpdateMemberCredit conditionally sets the three credit columns.
	UpdateMemberCredit(ctx context.Context, memberID id.MemberID, expectedVersion int64, limit, available, used decimal.Decimal) error
	DeactivateMember(ctx context.Context, memberID id.MemberID, leftAt time.Time) error
	ReactivateMember(ctx context.Context, memberID id.MemberID) error

	// Transaction methods
	CreateTransaction(ctx context.Context, t *transaction.Transaction) error
	GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error)
	GetTransactionByBusinessID(ctx context.Context, businessID string) (*transaction.Transaction, error)
	ListTransactions(ctx context.Context, walletID id.WalletID, opts transaction.ListOpts) ([]*transaction.Transaction, error)
	// SettleRecharge atomically flips the transaction PENDING→COMPLETED and
	// credits its wallet. Returns (false, nil) when zero rows matched the
	// guard, meaning the settlement was already handled.
	SettleRecharge(ctx context.Context, businessID string, settledAt time.Time) (bool, error)
	// MarkTransactionFailed flips PENDING→FAILED under the same guard.
	MarkTransactionFailed(ctx context.Context, businessID string, reason string) (bool, error)
	// RecoverSettlements re-applies wallet credits for transactions left
	// COMPLETED but uncredited by a crash between flip and credit. Backends
	// whose SettleRecharge is single-statement atomic return (0, nil).
	RecoverSettlements(ctx context.Context) (int, error)

	// API key methods
	CreateAPIKey(ctx context.Context, k *apikey.Key) error
	GetAPIKey(ctx context.Context, keyID id.APIKeyID) (*apikey.Key, error)
	GetAPIKeyByDigest(ctx context.Context, digest string) (*apikey.Key, error)
	ListAPIKeys(ctx context.Context, walletID id.WalletID, opts apikey.ListOpts) ([]*apikey.Key, error)
	TouchAPIKey(ctx context.Context, keyID id.APIKeyID, usedAt time.Time) error
	RevokeAPIKey(ctx context.Context, keyID id.APIKeyID, revokedAt time.Time) error

	// Usage methods
	InsertUsageBatch(ctx context.Context, records []*usage.Record) error
	QueryUsage(ctx context.Context, opts usage.QueryOpts) ([]*usage.Record, error)
	PurgeUsage(ctx context.Context, before time.Time) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

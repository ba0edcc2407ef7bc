// Package plugin provides an extensible plugin system for the wallet ledger.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Wallet lifecycle hooks
// ──────────────────────────────────────────────────

// OnWalletCreated is called when a new wallet account is created.
type OnWalletCreated interface {
	Plugin
	OnWalletCreated(ctx context.Context, wallet interface{}) error
}

// OnWalletCredited is called after a balance credit lands.
type OnWalletCredited interface {
	Plugin
	OnWalletCredited(ctx context.Context, wallet interface{}, amount string) error
}

// OnWalletDebited is called after a balance debit lands.
type OnWalletDebited interface {
	Plugin
	OnWalletDebited(ctx context.Context, wallet interface{}, amount string) error
}

// OnWalletFrozen is called when a wallet is frozen or unfrozen.
type OnWalletFrozen interface {
	Plugin
	OnWalletFrozen(ctx context.Context, walletID string, frozen bool) error
}

// ──────────────────────────────────────────────────
// Member credit hooks
// ──────────────────────────────────────────────────

// OnMemberJoined is called when a user joins a shared wallet.
type OnMemberJoined interface {
	Plugin
	OnMemberJoined(ctx context.Context, member interface{}) error
}

// OnMemberLeft is called when a member is removed from a wallet.
type OnMemberLeft interface {
	Plugin
	OnMemberLeft(ctx context.Context, member interface{}) error
}

// OnCreditAllocated is called after a member allowance allocation.
type OnCreditAllocated interface {
	Plugin
	OnCreditAllocated(ctx context.Context, member interface{}, amount string) error
}

// OnCreditReleased is called after a member allowance release.
type OnCreditReleased interface {
	Plugin
	OnCreditReleased(ctx context.Context, member interface{}, amount string) error
}

// ──────────────────────────────────────────────────
// Recharge / settlement hooks
// ──────────────────────────────────────────────────

// OnRechargeCreated is called when a pending top-up transaction is created.
type OnRechargeCreated interface {
	Plugin
	OnRechargeCreated(ctx context.Context, txn interface{}) error
}

// OnRechargeSettled is called when a settlement credits a wallet.
type OnRechargeSettled interface {
	Plugin
	OnRechargeSettled(ctx context.Context, txn interface{}) error
}

// OnRechargeFailed is called when a pending top-up is marked failed.
type OnRechargeFailed interface {
	Plugin
	OnRechargeFailed(ctx context.Context, txn interface{}, reason string) error
}

// OnSettlementReplayed is called for duplicate settlement deliveries that
// matched nothing pending. Distinct from a settlement: no money moved.
type OnSettlementReplayed interface {
	Plugin
	OnSettlementReplayed(ctx context.Context, businessID string) error
}

// OnSignatureRejected is called when an inbound callback fails verification.
type OnSignatureRejected interface {
	Plugin
	OnSignatureRejected(ctx context.Context, businessID string, signType string) error
}

// ──────────────────────────────────────────────────
// Concurrency / usage hooks
// ──────────────────────────────────────────────────

// OnContention is called when a CAS retry loop exhausts its attempts.
type OnContention interface {
	Plugin
	OnContention(ctx context.Context, entityID string, attempts int) error
}

// OnUsageFlushed is called when buffered usage records are flushed to the store.
type OnUsageFlushed interface {
	Plugin
	OnUsageFlushed(ctx context.Context, count int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Pricing strategies
// ──────────────────────────────────────────────────

// RateProvider supplies a custom exchange-rate table by name, overriding
// the built-in tier schedule.
type RateProvider interface {
	Plugin
	StrategyName() string
	RateFor(quota string) (rate string, ok bool)
}

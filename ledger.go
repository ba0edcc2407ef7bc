package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kadxy/wallet/account"
	"github.com/kadxy/wallet/gateway"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/member"
	"github.com/kadxy/wallet/plugin"
	"github.com/kadxy/wallet/pricing"
	"github.com/kadxy/wallet/store"
	"github.com/kadxy/wallet/types"
	"github.com/kadxy/wallet/usage"
)

// Ledger is the wallet and settlement engine.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	gateway *gateway.Client
	pricing *pricing.Engine

	// Background workers
	usageBuffer chan *usage.Record
	stopChan    chan struct{}
	wg          sync.WaitGroup

	// Configuration
	balanceFloor       decimal.Decimal
	maxRetries         int
	retryBackoff       time.Duration
	rateStrategy       string
	usageBatchSize     int
	usageFlushInterval time.Duration
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:              s,
		plugins:            plugin.NewRegistry(),
		logger:             slog.Default(),
		pricing:            pricing.Default(),
		usageBuffer:        make(chan *usage.Record, 10000),
		stopChan:           make(chan struct{}),
		balanceFloor:       decimal.Zero,
		maxRetries:         5,
		retryBackoff:       10 * time.Millisecond,
		usageBatchSize:     100,
		usageFlushInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithGateway sets the payment gateway client used for recharges.
func WithGateway(c *gateway.Client) Option {
	return func(l *Ledger) {
		l.gateway = c
	}
}

// WithPricing replaces the default tier table.
func WithPricing(e *pricing.Engine) Option {
	return func(l *Ledger) {
		l.pricing = e
	}
}

// WithBalanceFloor allows balances down to floor instead of zero.
// A negative floor grants an overdraft allowance.
func WithBalanceFloor(floor decimal.Decimal) Option {
	return func(l *Ledger) {
		l.balanceFloor = floor
	}
}

// WithRetry configures the CAS retry loop: attempt count and base backoff.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(l *Ledger) {
		l.maxRetries = maxRetries
		l.retryBackoff = backoff
	}
}

// WithRateStrategy selects a registered RateProvider plugin by strategy
// name; quotas it declines fall through to the tier table.
func WithRateStrategy(name string) Option {
	return func(l *Ledger) {
		l.rateStrategy = name
	}
}

// WithUsageConfig configures usage-record flushing.
func WithUsageConfig(batchSize int, flushInterval time.Duration) Option {
	return func(l *Ledger) {
		l.usageBatchSize = batchSize
		l.usageFlushInterval = flushInterval
	}
}

// Start migrates storage, recovers interrupted settlements and begins
// background workers.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	// Re-apply credits for settlements interrupted between the status
	// flip and the balance credit.
	recovered, err := l.store.RecoverSettlements(ctx)
	if err != nil {
		return fmt.Errorf("wallet: settlement recovery: %w", err)
	}
	if recovered > 0 {
		l.logger.Warn("recovered interrupted settlements", "count", recovered)
	}

	l.plugins.EmitInit(ctx, l)

	l.wg.Add(1)
	go l.usageFlushWorker(ctx)

	l.logger.Info("wallet ledger started",
		"balance_floor", l.balanceFloor.String(),
		"max_retries", l.maxRetries,
		"usage_batch_size", l.usageBatchSize,
		"usage_flush_interval", l.usageFlushInterval,
	)

	return nil
}

// Stop shuts down the Ledger, flushing buffered usage records first.
func (l *Ledger) Stop() error {
	close(l.stopChan)
	l.wg.Wait()

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Wallet Accounts
// ──────────────────────────────────────────────────

// CreateWallet opens a zero-balance wallet for ownerID. Each user owns at
// most one wallet.
func (l *Ledger) CreateWallet(ctx context.Context, ownerID string) (*account.Wallet, error) {
	if ownerID == "" {
		return nil, ValidationError{Field: "owner_id", Message: "must not be empty"}
	}

	w := &account.Wallet{
		Entity:  types.NewEntity(),
		ID:      id.NewWalletID(),
		UID:     account.NewUID(),
		OwnerID: ownerID,
		Balance: decimal.Zero,
		Version: 1,
		Status:  account.StatusActive,
	}

	if err := l.store.CreateWallet(ctx, w); err != nil {
		return nil, err
	}

	l.plugins.EmitWalletCreated(ctx, w)
	l.logger.Info("wallet created", "wallet_id", w.ID, "owner_id", ownerID)
	return w, nil
}

// GetWallet retrieves a wallet by ID.
func (l *Ledger) GetWallet(ctx context.Context, walletID id.WalletID) (*account.Wallet, error) {
	return l.store.GetWallet(ctx, walletID)
}

// GetWalletByUID retrieves a wallet by its public identifier.
func (l *Ledger) GetWalletByUID(ctx context.Context, uid string) (*account.Wallet, error) {
	return l.store.GetWalletByUID(ctx, uid)
}

// GetWalletByOwner retrieves the wallet owned by a user.
func (l *Ledger) GetWalletByOwner(ctx context.Context, ownerID string) (*account.Wallet, error) {
	return l.store.GetWalletByOwner(ctx, ownerID)
}

// Credit increases a wallet's balance. Credits land even on frozen wallets:
// settlements and refunds must never bounce.
func (l *Ledger) Credit(ctx context.Context, walletID id.WalletID, amount decimal.Decimal) (*account.Wallet, error) {
	if !types.IsPositiveAmount(amount) {
		return nil, ErrInvalidAmount
	}

	var result *account.Wallet
	err := l.retryCAS(ctx, walletID.String(), func() error {
		w, err := l.store.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		newBalance := w.Balance.Add(amount)
		if err := l.store.UpdateWalletBalance(ctx, walletID, w.Version, newBalance, w.Status); err != nil {
			return err
		}
		w.Balance = newBalance
		w.Version++
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitWalletCredited(ctx, result, types.FormatAmount(amount))
	l.logger.Debug("wallet credited",
		"wallet_id", walletID, "amount", amount.String(), "balance", result.Balance.String())
	return result, nil
}

// Debit decreases a wallet's balance, refusing to cross the configured
// floor. Frozen wallets reject debits.
func (l *Ledger) Debit(ctx context.Context, walletID id.WalletID, amount decimal.Decimal) (*account.Wallet, error) {
	if !types.IsPositiveAmount(amount) {
		return nil, ErrInvalidAmount
	}

	var result *account.Wallet
	err := l.retryCAS(ctx, walletID.String(), func() error {
		w, err := l.store.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return ErrWalletFrozen
		}
		newBalance := w.Balance.Sub(amount)
		if newBalance.LessThan(l.balanceFloor) {
			return fmt.Errorf("%w: balance %s, debit %s, floor %s",
				ErrInsufficientFunds, w.Balance, amount, l.balanceFloor)
		}
		if err := l.store.UpdateWalletBalance(ctx, walletID, w.Version, newBalance, w.Status); err != nil {
			return err
		}
		w.Balance = newBalance
		w.Version++
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitWalletDebited(ctx, result, types.FormatAmount(amount))
	l.logger.Debug("wallet debited",
		"wallet_id", walletID, "amount", amount.String(), "balance", result.Balance.String())
	return result, nil
}

// SetFrozen freezes or unfreezes a wallet. Frozen wallets keep accepting
// credits but reject debits and member allocations.
func (l *Ledger) SetFrozen(ctx context.Context, walletID id.WalletID, frozen bool) error {
	status := account.StatusActive
	if frozen {
		status = account.StatusFrozen
	}

	changed := false
	err := l.retryCAS(ctx, walletID.String(), func() error {
		w, err := l.store.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		if w.Status == status {
			return nil
		}
		if err := l.store.UpdateWalletBalance(ctx, walletID, w.Version, w.Balance, status); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	l.plugins.EmitWalletFrozen(ctx, walletID.String(), frozen)
	l.logger.Info("wallet freeze state changed", "wallet_id", walletID, "frozen", frozen)
	return nil
}

// ──────────────────────────────────────────────────
// Wallet Members
// ──────────────────────────────────────────────────

// AddMember invites a user into a shared wallet with a credit allowance.
// Re-inviting a user who previously left reactivates the existing row with
// the new limit.
func (l *Ledger) AddMember(ctx context.Context, walletID id.WalletID, userID string, creditLimit decimal.Decimal) (*member.Member, error) {
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if creditLimit.IsNegative() {
		return nil, ValidationError{Field: "credit_limit", Message: "must not be negative"}
	}
	if _, err := l.store.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}

	existing, err := l.store.GetMemberByUser(ctx, walletID, userID)
	switch {
	case err == nil && existing.IsActive:
		return nil, ErrMemberExists
	case err == nil:
		// Former member: reactivate and reset the allowance.
		if err := l.store.ReactivateMember(ctx, existing.ID); err != nil {
			return nil, err
		}
		m, err := l.setCreditLimit(ctx, existing.ID, creditLimit)
		if err != nil {
			return nil, err
		}
		l.plugins.EmitMemberJoined(ctx, m)
		l.logger.Info("wallet member rejoined", "wallet_id", walletID, "user_id", userID)
		return m, nil
	case !errors.Is(err, ErrMemberNotFound):
		return nil, err
	}

	m := &member.Member{
		Entity:          types.NewEntity(),
		ID:              id.NewMemberID(),
		WalletID:        walletID,
		UserID:          userID,
		CreditLimit:     creditLimit,
		CreditAvailable: creditLimit,
		CreditUsed:      decimal.Zero,
		Version:         1,
		IsActive:        true,
		JoinedAt:        time.Now(),
	}
	if err := l.store.CreateMember(ctx, m); err != nil {
		return nil, err
	}

	l.plugins.EmitMemberJoined(ctx, m)
	l.logger.Info("wallet member added",
		"wallet_id", walletID, "user_id", userID, "credit_limit", creditLimit.String())
	return m, nil
}

// RemoveMember soft-removes a member. The row and its bookkeeping survive
// for history and possible reactivation.
func (l *Ledger) RemoveMember(ctx context.Context, memberID id.MemberID) error {
	m, err := l.store.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if !m.IsActive {
		return ErrMemberInactive
	}

	if err := l.store.DeactivateMember(ctx, memberID, time.Now()); err != nil {
		return err
	}

	l.plugins.EmitMemberLeft(ctx, m)
	l.logger.Info("wallet member removed", "wallet_id", m.WalletID, "user_id", m.UserID)
	return nil
}

// GetMember retrieves a member by ID.
func (l *Ledger) GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	return l.store.GetMember(ctx, memberID)
}

// GetMemberByUser retrieves a member row by wallet and user.
func (l *Ledger) GetMemberByUser(ctx context.Context, walletID id.WalletID, userID string) (*member.Member, error) {
	return l.store.GetMemberByUser(ctx, walletID, userID)
}

// ListMembers lists a wallet's members.
func (l *Ledger) ListMembers(ctx context.Context, walletID id.WalletID, opts member.ListOpts) ([]*member.Member, error) {
	return l.store.ListMembers(ctx, walletID, opts)
}

// SetCreditLimit changes a member's allowance. The new limit must cover the
// credit already used; available adjusts to keep the books balanced.
func (l *Ledger) SetCreditLimit(ctx context.Context, memberID id.MemberID, limit decimal.Decimal) (*member.Member, error) {
	if limit.IsNegative() {
		return nil, ValidationError{Field: "credit_limit", Message: "must not be negative"}
	}
	return l.setCreditLimit(ctx, memberID, limit)
}

func (l *Ledger) setCreditLimit(ctx context.Context, memberID id.MemberID, limit decimal.Decimal) (*member.Member, error) {
	var result *member.Member
	err := l.retryCAS(ctx, memberID.String(), func() error {
		m, err := l.store.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		if limit.LessThan(m.CreditUsed) {
			return fmt.Errorf("%w: new limit %s below used %s",
				ErrCreditLimitExceeded, limit, m.CreditUsed)
		}
		available := limit.Sub(m.CreditUsed)
		if err := l.store.UpdateMemberCredit(ctx, memberID, m.Version, limit, available, m.CreditUsed); err != nil {
			return err
		}
		m.CreditLimit = limit
		m.CreditAvailable = available
		m.Version++
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AllocateCredit moves amount from a member's available allowance to used.
func (l *Ledger) AllocateCredit(ctx context.Context, memberID id.MemberID, amount decimal.Decimal) (*member.Member, error) {
	if !types.IsPositiveAmount(amount) {
		return nil, ErrInvalidAmount
	}

	var result *member.Member
	err := l.retryCAS(ctx, memberID.String(), func() error {
		m, err := l.store.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		if !m.IsActive {
			return ErrMemberInactive
		}
		if amount.GreaterThan(m.CreditAvailable) {
			return fmt.Errorf("%w: available %s, requested %s",
				ErrCreditLimitExceeded, m.CreditAvailable, amount)
		}
		available := m.CreditAvailable.Sub(amount)
		used := m.CreditUsed.Add(amount)
		if err := l.store.UpdateMemberCredit(ctx, memberID, m.Version, m.CreditLimit, available, used); err != nil {
			return err
		}
		m.CreditAvailable = available
		m.CreditUsed = used
		m.Version++
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitCreditAllocated(ctx, result, types.FormatAmount(amount))
	return result, nil
}

// ReleaseCredit returns amount from used back to available, clamped so
// used never goes negative.
func (l *Ledger) ReleaseCredit(ctx context.Context, memberID id.MemberID, amount decimal.Decimal) (*member.Member, error) {
	if !types.IsPositiveAmount(amount) {
		return nil, ErrInvalidAmount
	}

	var result *member.Member
	err := l.retryCAS(ctx, memberID.String(), func() error {
		m, err := l.store.GetMember(ctx, memberID)
		if err != nil {
			return err
		}
		release := decimal.Min(amount, m.CreditUsed)
		available := m.CreditAvailable.Add(release)
		used := m.CreditUsed.Sub(release)
		if err := l.store.UpdateMemberCredit(ctx, memberID, m.Version, m.CreditLimit, available, used); err != nil {
			return err
		}
		m.CreditAvailable = available
		m.CreditUsed = used
		m.Version++
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.plugins.EmitCreditReleased(ctx, result, types.FormatAmount(amount))
	return result, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// retryCAS runs attempt until it succeeds, fails with a non-conflict error,
// or exhausts the retry budget. Each attempt re-reads current state; backoff
// grows linearly between attempts.
func (l *Ledger) retryCAS(ctx context.Context, entityID string, attempt func() error) error {
	var err error
	for i := 0; i < l.maxRetries; i++ {
		err = attempt()
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retryBackoff * time.Duration(i+1)):
		}
	}

	l.plugins.EmitContention(ctx, entityID, l.maxRetries)
	l.logger.Warn("retries exhausted under contention",
		"entity_id", entityID, "attempts", l.maxRetries)
	return fmt.Errorf("%w: %s after %d attempts", ErrContention, entityID, l.maxRetries)
}

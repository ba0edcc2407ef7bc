package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kadxy/wallet/gateway"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/pricing"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/types"
)

// SettleOutcome tells an at-least-once delivery mechanism what to do with a
// settlement attempt.
type SettleOutcome int

const (
	// SettleRetry means a transient failure; the gateway should redeliver.
	SettleRetry SettleOutcome = iota
	// Settled means the wallet was credited by this delivery.
	Settled
	// SettleReplayed means the transaction was already handled; ack,
	// nothing changed.
	SettleReplayed
	// SettleRejected means the payload failed verification; ack so the
	// gateway stops redelivering, change nothing.
	SettleRejected
)

// ShouldRetry reports whether the delivery should be retried.
func (o SettleOutcome) ShouldRetry() bool { return o == SettleRetry }

// Acked reports whether the caller should answer "accepted, do not retry".
func (o SettleOutcome) Acked() bool { return !o.ShouldRetry() }

// Recharge is a created top-up: the pending transaction plus the payment
// handle to present to the payer.
type Recharge struct {
	Transaction *transaction.Transaction
	Quote       pricing.Quote
	Order       *gateway.Order
}

// ──────────────────────────────────────────────────
// Recharge Creation
// ──────────────────────────────────────────────────

// CreateRecharge prices a quota, records a PENDING transaction and, when a
// gateway is configured, creates the payment order. The transaction's
// business id doubles as the gateway's out_trade_no.
func (l *Ledger) CreateRecharge(ctx context.Context, walletID id.WalletID, userID, quota, payType, clientIP string) (*Recharge, error) {
	w, err := l.store.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive() {
		return nil, ErrWalletFrozen
	}

	quote, err := l.price(quota)
	if err != nil {
		return nil, err
	}

	txn := &transaction.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		WalletID:    walletID,
		UserID:      userID,
		Type:        transaction.TypeRecharge,
		Amount:      quote.Amount,
		Status:      transaction.StatusPending,
		Description: fmt.Sprintf("wallet top-up, quota %s", quote.Quota),
	}
	txn.BusinessID = txn.ID.String()

	if err := l.store.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	rec := &Recharge{Transaction: txn, Quote: quote}
	if l.gateway != nil {
		order, err := l.gateway.CreateOrder(ctx, gateway.OrderRequest{
			BusinessID: txn.BusinessID,
			PayType:    payType,
			Subject:    txn.Description,
			Amount:     txn.Amount,
			ClientIP:   clientIP,
		})
		if err != nil {
			// The transaction never left PENDING; close it out so the
			// business id is not left dangling.
			if _, ferr := l.store.MarkTransactionFailed(ctx, txn.BusinessID, err.Error()); ferr != nil {
				l.logger.Error("failed to mark transaction failed",
					"business_id", txn.BusinessID, "error", ferr)
			}
			return nil, err
		}
		rec.Order = order
	}

	l.plugins.EmitRechargeCreated(ctx, txn)
	l.logger.Info("recharge created",
		"business_id", txn.BusinessID,
		"wallet_id", walletID,
		"amount", types.FormatAmount(txn.Amount),
		"rate", quote.Rate.String(),
	)
	return rec, nil
}

// price runs the configured rate strategy, falling back to the tier table.
func (l *Ledger) price(quota string) (pricing.Quote, error) {
	if l.rateStrategy != "" {
		if provider := l.plugins.GetRateProvider(l.rateStrategy); provider != nil {
			if rate, ok := provider.RateFor(quota); ok {
				q, err := types.ParseAmount(quota)
				if err != nil {
					return pricing.Quote{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, quota)
				}
				r, err := types.ParseAmount(rate)
				if err != nil {
					return pricing.Quote{}, fmt.Errorf("wallet: rate strategy %q returned bad rate %q", l.rateStrategy, rate)
				}
				return pricing.Quote{Quota: q, Rate: r, Amount: types.RoundUpAmount(r.Mul(q))}, nil
			}
		}
	}
	return l.pricing.Price(quota)
}

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// HandleNotification is the settlement entry point for inbound gateway
// callbacks. It verifies the signature and business status, cross-checks
// the claimed merchant id and amount against local state, then runs the
// guarded PENDING→COMPLETED transition with the wallet credit.
//
// The returned outcome, not the error, decides the webhook response:
// rejected and replayed deliveries are acked so the gateway stops retrying,
// while transient failures ask for redelivery. The error carries the
// log-differentiated cause.
func (l *Ledger) HandleNotification(ctx context.Context, params url.Values) (SettleOutcome, error) {
	if l.gateway == nil {
		return SettleRetry, errors.New("wallet: no gateway configured")
	}

	n, err := gateway.ParseNotification(params)
	if err != nil {
		l.logger.Warn("malformed settlement notification", "error", err)
		return SettleRejected, err
	}

	if err := n.Verify(l.gateway.Signer()); err != nil {
		l.plugins.EmitSignatureRejected(ctx, n.OutTradeNo, string(n.SignType))
		l.logger.Warn("settlement signature rejected",
			"business_id", n.OutTradeNo, "sign_type", n.SignType)
		return SettleRejected, err
	}

	if n.PID != "" && n.PID != l.gateway.PID() {
		l.logger.Warn("settlement merchant id mismatch",
			"business_id", n.OutTradeNo, "pid", n.PID)
		return SettleRejected, fmt.Errorf("%w: merchant id %q", ErrSignatureInvalid, n.PID)
	}

	if !n.Succeeded() {
		l.logger.Info("settlement notification without success status",
			"business_id", n.OutTradeNo, "trade_status", n.TradeStatus)
		return SettleRejected, fmt.Errorf("%w: trade_status %q", ErrGatewayDeclined, n.TradeStatus)
	}

	// Cross-check the paid amount against the recorded transaction. A
	// replay for an already-settled transaction still passes this check.
	txn, err := l.store.GetTransactionByBusinessID(ctx, n.OutTradeNo)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			// Never ours; indistinguishable from already-handled.
			l.plugins.EmitSettlementReplayed(ctx, n.OutTradeNo)
			l.logger.Info("settlement for unknown transaction acked",
				"business_id", n.OutTradeNo)
			return SettleReplayed, nil
		}
		return SettleRetry, err
	}
	if !n.Money.IsZero() && !n.Money.Equal(txn.Amount) {
		l.logger.Warn("settlement amount mismatch",
			"business_id", n.OutTradeNo,
			"notified", types.FormatAmount(n.Money),
			"recorded", types.FormatAmount(txn.Amount))
		return SettleRejected, fmt.Errorf("%w: notified %s, recorded %s",
			ErrAmountMismatch, types.FormatAmount(n.Money), types.FormatAmount(txn.Amount))
	}

	return l.Settle(ctx, n.OutTradeNo)
}

// Settle runs the exactly-once settlement for a business id: flip the
// transaction PENDING→COMPLETED and credit its wallet atomically. Duplicate
// calls are benign.
func (l *Ledger) Settle(ctx context.Context, businessID string) (SettleOutcome, error) {
	settled, err := l.store.SettleRecharge(ctx, businessID, time.Now())
	if err != nil {
		l.logger.Error("settlement failed", "business_id", businessID, "error", err)
		return SettleRetry, err
	}
	if !settled {
		l.plugins.EmitSettlementReplayed(ctx, businessID)
		l.logger.Info("settlement replay acked", "business_id", businessID)
		return SettleReplayed, nil
	}

	txn, err := l.store.GetTransactionByBusinessID(ctx, businessID)
	if err == nil {
		l.plugins.EmitRechargeSettled(ctx, txn)
		l.logger.Info("recharge settled",
			"business_id", businessID,
			"wallet_id", txn.WalletID,
			"amount", types.FormatAmount(txn.Amount),
		)
	}
	return Settled, nil
}

// FailRecharge marks a pending transaction FAILED, e.g. after a gateway
// query shows the order expired. Returns false if it was not pending.
func (l *Ledger) FailRecharge(ctx context.Context, businessID, reason string) (bool, error) {
	failed, err := l.store.MarkTransactionFailed(ctx, businessID, reason)
	if err != nil || !failed {
		return failed, err
	}

	txn, err := l.store.GetTransactionByBusinessID(ctx, businessID)
	if err == nil {
		l.plugins.EmitRechargeFailed(ctx, txn, reason)
	}
	l.logger.Info("recharge failed", "business_id", businessID, "reason", reason)
	return true, nil
}

// ──────────────────────────────────────────────────
// Transaction Queries
// ──────────────────────────────────────────────────

// GetTransaction retrieves a transaction by ID.
func (l *Ledger) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	return l.store.GetTransaction(ctx, txnID)
}

// GetTransactionByBusinessID retrieves a transaction by its business id.
func (l *Ledger) GetTransactionByBusinessID(ctx context.Context, businessID string) (*transaction.Transaction, error) {
	return l.store.GetTransactionByBusinessID(ctx, businessID)
}

// ListTransactions lists a wallet's transactions.
func (l *Ledger) ListTransactions(ctx context.Context, walletID id.WalletID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	return l.store.ListTransactions(ctx, walletID, opts)
}

// QueryRemoteOrder asks the gateway for its view of an order, for manual
// reconciliation of stuck PENDING transactions.
func (l *Ledger) QueryRemoteOrder(ctx context.Context, businessID string) (*gateway.OrderStatus, error) {
	if l.gateway == nil {
		return nil, errors.New("wallet: no gateway configured")
	}
	return l.gateway.QueryOrder(ctx, businessID)
}

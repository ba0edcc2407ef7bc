package wallet

import (
	"context"
	"time"

	"github.com/kadxy/wallet/apikey"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/types"
	"github.com/kadxy/wallet/usage"
)

// ──────────────────────────────────────────────────
// Usage Billing
// ──────────────────────────────────────────────────

// BillUsage charges one metered call. The debit is synchronous: it targets
// the member allowance when req.MemberID is set, otherwise the pooled
// balance, and its ledger rejections (insufficient funds, credit limit)
// surface unchanged. Only the attribution record is deferred to the flush
// worker.
func (l *Ledger) BillUsage(ctx context.Context, req usage.BillRequest) (*usage.Record, error) {
	if !types.IsPositiveAmount(req.Cost) {
		return nil, ErrInvalidAmount
	}
	if req.Quantity.IsNegative() {
		return nil, ErrInvalidAmount
	}

	if !req.MemberID.IsNil() {
		if _, err := l.AllocateCredit(ctx, req.MemberID, req.Cost); err != nil {
			return nil, err
		}
	} else {
		if _, err := l.Debit(ctx, req.WalletID, req.Cost); err != nil {
			return nil, err
		}
	}

	// Billing attribution: the key stamp is part of the debit path, not a
	// fire-and-forget event.
	if !req.APIKeyID.IsNil() {
		if err := l.store.TouchAPIKey(ctx, req.APIKeyID, time.Now()); err != nil {
			l.logger.Warn("failed to stamp api key usage",
				"api_key_id", req.APIKeyID, "error", err)
		}
	}

	rec := &usage.Record{
		Entity:     types.NewEntity(),
		ID:         id.NewUsageRecordID(),
		WalletID:   req.WalletID,
		MemberID:   req.MemberID,
		UserID:     req.UserID,
		Resource:   req.Resource,
		Quantity:   req.Quantity,
		Rate:       req.Rate,
		Amount:     req.Cost,
		OccurredAt: time.Now(),
	}

	select {
	case l.usageBuffer <- rec:
	default:
		// The charge already landed; never drop its record. Write through
		// synchronously when the buffer is saturated.
		if err := l.store.InsertUsageBatch(ctx, []*usage.Record{rec}); err != nil {
			l.logger.Error("failed to persist usage record synchronously",
				"record_id", rec.ID, "error", err)
		}
	}

	return rec, nil
}

// QueryUsage returns usage history.
func (l *Ledger) QueryUsage(ctx context.Context, opts usage.QueryOpts) ([]*usage.Record, error) {
	return l.store.QueryUsage(ctx, opts)
}

// usageFlushWorker batches buffered usage records into the store.
func (l *Ledger) usageFlushWorker(ctx context.Context) {
	defer l.wg.Done()

	batch := make([]*usage.Record, 0, l.usageBatchSize)
	ticker := time.NewTicker(l.usageFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			// Drain whatever is still buffered, then final flush.
			for {
				select {
				case rec := <-l.usageBuffer:
					batch = append(batch, rec)
					continue
				default:
				}
				break
			}
			if len(batch) > 0 {
				l.flushUsageBatch(ctx, batch)
			}
			return

		case rec := <-l.usageBuffer:
			batch = append(batch, rec)
			if len(batch) >= l.usageBatchSize {
				l.flushUsageBatch(ctx, batch)
				batch = make([]*usage.Record, 0, l.usageBatchSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flushUsageBatch(ctx, batch)
				batch = make([]*usage.Record, 0, l.usageBatchSize)
			}
		}
	}
}

func (l *Ledger) flushUsageBatch(ctx context.Context, batch []*usage.Record) {
	start := time.Now()

	if err := l.store.InsertUsageBatch(ctx, batch); err != nil {
		l.logger.Error("failed to flush usage batch",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	elapsed := time.Since(start)
	l.plugins.EmitUsageFlushed(ctx, len(batch), elapsed)

	l.logger.Debug("flushed usage batch",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// API Keys
// ──────────────────────────────────────────────────

// CreateAPIKey mints a wallet-scoped key. The plaintext secret is returned
// exactly once; only its digest is stored.
func (l *Ledger) CreateAPIKey(ctx context.Context, walletID id.WalletID, name string) (*apikey.Key, string, error) {
	if _, err := l.store.GetWallet(ctx, walletID); err != nil {
		return nil, "", err
	}

	secret, err := apikey.NewSecret()
	if err != nil {
		return nil, "", err
	}

	k := &apikey.Key{
		Entity:   types.NewEntity(),
		ID:       id.NewAPIKeyID(),
		WalletID: walletID,
		Name:     name,
		Digest:   apikey.DigestSecret(secret),
		IsActive: true,
	}
	if err := l.store.CreateAPIKey(ctx, k); err != nil {
		return nil, "", err
	}

	l.logger.Info("api key created", "api_key_id", k.ID, "wallet_id", walletID, "name", name)
	return k, secret, nil
}

// AuthenticateAPIKey resolves a presented secret to its key. Revoked keys
// fail with ErrAPIKeyRevoked.
func (l *Ledger) AuthenticateAPIKey(ctx context.Context, secret string) (*apikey.Key, error) {
	k, err := l.store.GetAPIKeyByDigest(ctx, apikey.DigestSecret(secret))
	if err != nil {
		return nil, err
	}
	if !k.IsActive {
		return nil, ErrAPIKeyRevoked
	}
	return k, nil
}

// ListAPIKeys lists a wallet's keys.
func (l *Ledger) ListAPIKeys(ctx context.Context, walletID id.WalletID, opts apikey.ListOpts) ([]*apikey.Key, error) {
	return l.store.ListAPIKeys(ctx, walletID, opts)
}

// RevokeAPIKey permanently deactivates a key.
func (l *Ledger) RevokeAPIKey(ctx context.Context, keyID id.APIKeyID) error {
	k, err := l.store.GetAPIKey(ctx, keyID)
	if err != nil {
		return err
	}
	if !k.IsActive {
		return ErrAPIKeyRevoked
	}

	if err := l.store.RevokeAPIKey(ctx, keyID, time.Now()); err != nil {
		return err
	}
	l.logger.Info("api key revoked", "api_key_id", keyID, "wallet_id", k.WalletID)
	return nil
}

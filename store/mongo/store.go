// Package mongo implements the wallet store on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	wallet "github.com/kadxy/wallet"
	"github.com/kadxy/wallet/account"
	"github.com/kadxy/wallet/apikey"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/member"
	walletstore "github.com/kadxy/wallet/store"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/usage"
)

// Collection name constants.
const (
	colWallets      = "wallet_accounts"
	colMembers      = "wallet_members"
	colTransactions = "wallet_transactions"
	colAPIKeys      = "wallet_api_keys"
	colUsageRecords = "wallet_usage_records"
)

// compile-time interface check
var _ walletstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all wallet collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("wallet/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Wallet Store ====================

func (s *Store) CreateWallet(ctx context.Context, w *account.Wallet) error {
	m := toWalletModel(w)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return wallet.ErrAlreadyExists
		}
		return fmt.Errorf("wallet/mongo: create wallet: %w", err)
	}
	return nil
}

func (s *Store) GetWallet(ctx context.Context, walletID id.WalletID) (*account.Wallet, error) {
	var m walletModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": walletID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get wallet: %w", err)
	}
	return fromWalletModel(&m)
}

func (s *Store) GetWalletByUID(ctx context.Context, uid string) (*account.Wallet, error) {
	var m walletModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"uid": uid}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get wallet by uid: %w", err)
	}
	return fromWalletModel(&m)
}

func (s *Store) GetWalletByOwner(ctx context.Context, ownerID string) (*account.Wallet, error) {
	var m walletModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"owner_id": ownerID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get wallet by owner: %w", err)
	}
	return fromWalletModel(&m)
}

func (s *Store) ListWallets(ctx context.Context, opts account.ListOpts) ([]*account.Wallet, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	var models []walletModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("wallet/mongo: list wallets: %w", err)
	}

	result := make([]*account.Wallet, len(models))
	for i := range models {
		w, err := fromWalletModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = w
	}
	return result, nil
}

// UpdateWalletBalance filters on the expected version, so the write is a
// compare-and-swap. The new version is written explicitly since the filter
// pins the old one.
func (s *Store) UpdateWalletBalance(ctx context.Context, walletID id.WalletID, expectedVersion int64, balance decimal.Decimal, status account.Status) error {
	res, err := s.mdb.NewUpdate((*walletModel)(nil)).
		Filter(bson.M{"_id": walletID.String(), "version": expectedVersion}).
		Set("balance", balance.String()).
		Set("status", string(status)).
		Set("version", expectedVersion+1).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("wallet/mongo: update wallet balance: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, gerr := s.GetWallet(ctx, walletID); gerr != nil {
			return gerr
		}
		return wallet.ErrVersionConflict
	}
	return nil
}

// ==================== Member Store ====================

func (s *Store) CreateMember(ctx context.Context, m *member.Member) error {
	mo := toMemberModel(m)
	_, err := s.mdb.NewInsert(mo).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return wallet.ErrMemberExists
		}
		return fmt.Errorf("wallet/mongo: create member: %w", err)
	}
	return nil
}

func (s *Store) GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	var mo memberModel
	err := s.mdb.NewFind(&mo).
		Filter(bson.M{"_id": memberID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrMemberNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get member: %w", err)
	}
	return fromMemberModel(&mo)
}

func (s *Store) GetMemberByUser(ctx context.Context, walletID id.WalletID, userID string) (*member.Member, error) {
	var mo memberModel
	err := s.mdb.NewFind(&mo).
		Filter(bson.M{"wallet_id": walletID.String(), "user_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrMemberNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get member by user: %w", err)
	}
	return fromMemberModel(&mo)
}

func (s *Store) ListMembers(ctx context.Context, walletID id.WalletID, opts member.ListOpts) ([]*member.Member, error) {
	filter := bson.M{"wallet_id": walletID.String()}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}

	var models []memberModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "joined_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("wallet/mongo: list members: %w", err)
	}

	result := make([]*member.Member, len(models))
	for i := range models {
		m, err := fromMemberModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = m
	}
	return result, nil
}

func (s *Store) UpdateMemberCredit(ctx context.Context, memberID id.MemberID, expectedVersion int64, limit, available, used decimal.Decimal) error {
	res, err := s.mdb.NewUpdate((*memberModel)(nil)).
		Filter(bson.M{"_id": memberID.String(), "version": expectedVersion}).
		Set("credit_limit", limit.String()).
		Set("credit_available", available.String()).
		Set("credit_used", used.String()).
		Set("version", expectedVersion+1).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("wallet/mongo: update member credit: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, gerr := s.GetMember(ctx, memberID); gerr != nil {
			return gerr
		}
		return wallet.ErrVersionConflict
	}
	return nil
}

func (s *Store) DeactivateMember(ctx context.Context, memberID id.MemberID, leftAt time.Time) error {
	res, err := s.mdb.NewUpdate((*memberModel)(nil)).
		Filter(bson.M{"_id": memberID.String()}).
		Set("is_active", false).
		Set("left_at", leftAt).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("wallet/mongo: deactivate member: %w", err)
	}
	if res.MatchedCount() == 0 {
		return wallet.ErrMemberNotFound
	}
	return nil
}

func (s *Store) ReactivateMember(ctx context.Context, memberID id.MemberID) error {
	res, err := s.mdb.NewUpdate((*memberModel)(nil)).
		Filter(bson.M{"_id": memberID.String()}).
		Set("is_active", true).
		Set("left_at", nil).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("wallet/mongo: reactivate member: %w", err)
	}
	if res.MatchedCount() == 0 {
		return wallet.ErrMemberNotFound
	}
	return nil
}

// ==================== Transaction Store ====================

func (s *Store) CreateTransaction(ctx context.Context, t *transaction.Transaction) error {
	m := toTransactionModel(t)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return wallet.ErrDuplicateBusinessID
		}
		return fmt.Errorf("wallet/mongo: create transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": txnID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get transaction: %w", err)
	}
	return fromTransactionModel(&m)
}

func (s *Store) GetTransactionByBusinessID(ctx context.Context, businessID string) (*transaction.Transaction, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"business_id": businessID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get transaction by business id: %w", err)
	}
	return fromTransactionModel(&m)
}

func (s *Store) ListTransactions(ctx context.Context, walletID id.WalletID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	filter := bson.M{"wallet_id": walletID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}

	var models []transactionModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("wallet/mongo: list transactions: %w", err)
	}

	result := make([]*transaction.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

// SettleRecharge flips the pending transaction first and credits the wallet
// after. The guarded flip is the exactly-once commit point. A crash between
// the two writes leaves the row completed with credited=false, and
// RecoverSettlements finishes the job on the next Start.
func (s *Store) SettleRecharge(ctx context.Context, businessID string, settledAt time.Time) (bool, error) {
	res, err := s.mdb.NewUpdate((*transactionModel)(nil)).
		Filter(bson.M{"business_id": businessID, "status": string(transaction.StatusPending)}).
		Set("status", string(transaction.StatusCompleted)).
		Set("settled_at", settledAt.UTC()).
		Set("updated_at", settledAt.UTC()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("wallet/mongo: settle recharge: %w", err)
	}
	if res.MatchedCount() == 0 {
		// A redelivery can land after the flip committed but before the
		// credit did. Finish that credit now instead of acking an
		// uncredited wallet.
		return false, s.finishInterruptedCredit(ctx, businessID)
	}

	txn, err := s.GetTransactionByBusinessID(ctx, businessID)
	if err != nil {
		return true, err
	}
	if err := s.creditWallet(ctx, txn.WalletID, txn.Amount); err != nil {
		return true, err
	}
	return true, s.markCredited(ctx, businessID)
}

// finishInterruptedCredit credits the wallet for a completed transaction
// whose credit never landed. No-op when the transaction is pending, failed,
// already credited or unknown.
func (s *Store) finishInterruptedCredit(ctx context.Context, businessID string) error {
	var models []transactionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"business_id": businessID,
			"status":      string(transaction.StatusCompleted),
			"credited":    false,
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("wallet/mongo: finish interrupted credit: %w", err)
	}
	if len(models) == 0 {
		return nil
	}
	txn, err := fromTransactionModel(&models[0])
	if err != nil {
		return err
	}
	if err := s.creditWallet(ctx, txn.WalletID, txn.Amount); err != nil {
		return err
	}
	return s.markCredited(ctx, businessID)
}

func (s *Store) MarkTransactionFailed(ctx context.Context, businessID string, reason string) (bool, error) {
	res, err := s.mdb.NewUpdate((*transactionModel)(nil)).
		Filter(bson.M{"business_id": businessID, "status": string(transaction.StatusPending)}).
		Set("status", string(transaction.StatusFailed)).
		Set("fail_reason", reason).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("wallet/mongo: mark transaction failed: %w", err)
	}
	return res.MatchedCount() > 0, nil
}

// RecoverSettlements credits wallets for transactions whose flip committed
// but whose credit did not land before a crash.
func (s *Store) RecoverSettlements(ctx context.Context) (int, error) {
	var models []transactionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"status": string(transaction.StatusCompleted), "credited": false}).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("wallet/mongo: recover settlements: %w", err)
	}

	recovered := 0
	for i := range models {
		txn, err := fromTransactionModel(&models[i])
		if err != nil {
			return recovered, err
		}
		if err := s.creditWallet(ctx, txn.WalletID, txn.Amount); err != nil {
			return recovered, err
		}
		if err := s.markCredited(ctx, txn.BusinessID); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

// creditWallet adds amount to the wallet balance under the version filter,
// retrying on conflict. Settlement credits land regardless of wallet status.
func (s *Store) creditWallet(ctx context.Context, walletID id.WalletID, amount decimal.Decimal) error {
	const attempts = 10
	for i := 0; i < attempts; i++ {
		w, err := s.GetWallet(ctx, walletID)
		if err != nil {
			return err
		}
		err = s.UpdateWalletBalance(ctx, walletID, w.Version, w.Balance.Add(amount), w.Status)
		if err == nil {
			return nil
		}
		if !errors.Is(err, wallet.ErrVersionConflict) {
			return err
		}
	}
	return wallet.ErrContention
}

func (s *Store) markCredited(ctx context.Context, businessID string) error {
	_, err := s.mdb.NewUpdate((*transactionModel)(nil)).
		Filter(bson.M{"business_id": businessID}).
		Set("credited", true).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("wallet/mongo: mark credited: %w", err)
	}
	return nil
}

// ==================== API Key Store ====================

func (s *Store) CreateAPIKey(ctx context.Context, k *apikey.Key) error {
	m := toAPIKeyModel(k)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return wallet.ErrAlreadyExists
		}
		return fmt.Errorf("wallet/mongo: create api key: %w", err)
	}
	return nil
}

func (s *Store) GetAPIKey(ctx context.Context, keyID id.APIKeyID) (*apikey.Key, error) {
	var m apiKeyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": keyID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get api key: %w", err)
	}
	return fromAPIKeyModel(&m)
}

func (s *Store) GetAPIKeyByDigest(ctx context.Context, digest string) (*apikey.Key, error) {
	var m apiKeyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"digest": digest}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, wallet.ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("wallet/mongo: get api key by digest: %w", err)
	}
	return fromAPIKeyModel(&m)
}

func (s *Store) ListAPIKeys(ctx context.Context, walletID id.WalletID, opts apikey.ListOpts) ([]*apikey.Key, error) {
	filter := bson.M{"wallet_id": walletID.String()}
	if opts.ActiveOnly {
		filter["is_active"] = true
	}

	var models []apiKeyModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("wallet/mongo: list api keys: %w", err)
	}

	result := make([]*apikey.Key, len(models))
	for i := range models {
		k, err := fromAPIKeyModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = k
	}
	return result, nil
}

func (s *Store) TouchAPIKey(ctx context.Context, keyID id.APIKeyID, usedAt time.Time) error {
	res, err := s.mdb.NewUpdate((*apiKeyModel)(nil)).
		Filter(bson.M{"_id": keyID.String()}).
		Set("last_used_at", usedAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("wallet/mongo: touch api key: %w", err)
	}
	if res.MatchedCount() == 0 {
		return wallet.ErrAPIKeyNotFound
	}
	return nil
}

func (s *Store) RevokeAPIKey(ctx context.Context, keyID id.APIKeyID, revokedAt time.Time) error {
	res, err := s.mdb.NewUpdate((*apiKeyModel)(nil)).
		Filter(bson.M{"_id": keyID.String()}).
		Set("is_active", false).
		Set("revoked_at", revokedAt).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("wallet/mongo: revoke api key: %w", err)
	}
	if res.MatchedCount() == 0 {
		return wallet.ErrAPIKeyNotFound
	}
	return nil
}

// ==================== Usage Store ====================

func (s *Store) InsertUsageBatch(ctx context.Context, records []*usage.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		m := toUsageRecordModel(r)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("wallet/mongo: insert usage record: %w", err)
		}
	}
	return nil
}

func (s *Store) QueryUsage(ctx context.Context, opts usage.QueryOpts) ([]*usage.Record, error) {
	filter := bson.M{}
	if !opts.WalletID.IsNil() {
		filter["wallet_id"] = opts.WalletID.String()
	}
	if opts.UserID != "" {
		filter["user_id"] = opts.UserID
	}
	if opts.Resource != "" {
		filter["resource"] = opts.Resource
	}
	occurred := bson.M{}
	if !opts.Since.IsZero() {
		occurred["$gte"] = opts.Since
	}
	if !opts.Until.IsZero() {
		occurred["$lt"] = opts.Until
	}
	if len(occurred) > 0 {
		filter["occurred_at"] = occurred
	}

	var models []usageRecordModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "occurred_at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("wallet/mongo: query usage: %w", err)
	}

	result := make([]*usage.Record, len(models))
	for i := range models {
		r, err := fromUsageRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) PurgeUsage(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*usageRecordModel)(nil)).
		Filter(bson.M{"occurred_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("wallet/mongo: purge usage: %w", err)
	}
	return res.DeletedCount(), nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all wallet collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colWallets: {
			{
				Keys:    bson.D{{Key: "uid", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colMembers: {
			{
				Keys:    bson.D{{Key: "wallet_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "is_active", Value: 1}}},
		},
		colTransactions: {
			{
				Keys:    bson.D{{Key: "business_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "credited", Value: 1}}},
		},
		colAPIKeys: {
			{
				Keys:    bson.D{{Key: "digest", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "is_active", Value: 1}}},
		},
		colUsageRecords: {
			{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		},
	}
}

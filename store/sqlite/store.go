// Package sqlite implements the wallet store on SQLite via Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	wallet "github.com/kadxy/wallet"
	"github.com/kadxy/wallet/account"
	"github.com/kadxy/wallet/apikey"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/member"
	walletstore "github.com/kadxy/wallet/store"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/usage"
)

// compile-time interface check
var _ walletstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("wallet/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("wallet/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	if isUniqueViolation(err) {
		return wallet.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetWallet(ctx context.Context, walletID id.WalletID) (*account.Wallet, error) {
	m := new(walletModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", walletID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, err
	}
	return fromWalletModel(m)
}

func (s *Store) GetWalletByUID(ctx context.Context, uid string) (*account.Wallet, error) {
	m := new(walletModel)
	err := s.sdb.NewSelect(m).
		Where("uid = ?", uid).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, err
	}
	return fromWalletModel(m)
}

func (s *Store) GetWalletByOwner(ctx context.Context, ownerID string) (*account.Wallet, error) {
	m := new(walletModel)
	err := s.sdb.NewSelect(m).
		Where("owner_id = ?", ownerID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrWalletNotFound
		}
		return nil, err
	}
	return fromWalletModel(m)
}

func (s *Store) ListWallets(ctx context.Context, opts account.ListOpts) ([]*account.Wallet, error) {
	var models []walletModel
	q := s.sdb.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

func (s *Store) UpdateWalletBalance(ctx context.Context, walletID id.WalletID, expectedVersion int64, balance decimal.Decimal, status account.Status) error {
	res, err := s.sdb.NewUpdate((*walletModel)(nil)).
		Set("balance = ?", balance.String()).
		Set("status = ?", string(status)).
		Set("version = version + 1").
		Set("updated_at = ?", now()).
		Where("id = ?", walletID.String()).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
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
	_, err := s.sdb.NewInsert(mo).Exec(ctx)
	if isUniqueViolation(err) {
		return wallet.ErrMemberExists
	}
	return err
}

func (s *Store) GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	mo := new(memberModel)
	err := s.sdb.NewSelect(mo).
		Where("id = ?", memberID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrMemberNotFound
		}
		return nil, err
	}
	return fromMemberModel(mo)
}

func (s *Store) GetMemberByUser(ctx context.Context, walletID id.WalletID, userID string) (*member.Member, error) {
	mo := new(memberModel)
	err := s.sdb.NewSelect(mo).
		Where("wallet_id = ?", walletID.String()).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrMemberNotFound
		}
		return nil, err
	}
	return fromMemberModel(mo)
}

func (s *Store) ListMembers(ctx context.Context, walletID id.WalletID, opts member.ListOpts) ([]*member.Member, error) {
	var models []memberModel
	q := s.sdb.NewSelect(&models).Where("wallet_id = ?", walletID.String())

	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("joined_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate((*memberModel)(nil)).
		Set("credit_limit = ?", limit.String()).
		Set("credit_available = ?", available.String()).
		Set("credit_used = ?", used.String()).
		Set("version = version + 1").
		Set("updated_at = ?", now()).
		Where("id = ?", memberID.String()).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, gerr := s.GetMember(ctx, memberID); gerr != nil {
			return gerr
		}
		return wallet.ErrVersionConflict
	}
	return nil
}

func (s *Store) DeactivateMember(ctx context.Context, memberID id.MemberID, leftAt time.Time) error {
	res, err := s.sdb.NewUpdate((*memberModel)(nil)).
		Set("is_active = ?", false).
		Set("left_at = ?", leftAt).
		Set("updated_at = ?", now()).
		Where("id = ?", memberID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, wallet.ErrMemberNotFound)
}

func (s *Store) ReactivateMember(ctx context.Context, memberID id.MemberID) error {
	res, err := s.sdb.NewUpdate((*memberModel)(nil)).
		Set("is_active = ?", true).
		Set("left_at = NULL").
		Set("updated_at = ?", now()).
		Where("id = ?", memberID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, wallet.ErrMemberNotFound)
}

// ==================== Transaction Store ====================

func (s *Store) CreateTransaction(ctx context.Context, t *transaction.Transaction) error {
	m := toTransactionModel(t)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	if isUniqueViolation(err) {
		return wallet.ErrDuplicateBusinessID
	}
	return err
}

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", txnID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromTransactionModel(m)
}

func (s *Store) GetTransactionByBusinessID(ctx context.Context, businessID string) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := s.sdb.NewSelect(m).
		Where("business_id = ?", businessID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromTransactionModel(m)
}

func (s *Store) ListTransactions(ctx context.Context, walletID id.WalletID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	var models []transactionModel
	q := s.sdb.NewSelect(&models).Where("wallet_id = ?", walletID.String())

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
// after. The guarded flip is the exactly-once commit point: whoever wins it
// owns the credit. If the process dies between the two writes, the row stays
// completed with credited=0 and RecoverSettlements finishes the job on the
// next Start.
func (s *Store) SettleRecharge(ctx context.Context, businessID string, settledAt time.Time) (bool, error) {
	res, err := s.sdb.NewUpdate((*transactionModel)(nil)).
		Set("status = ?", string(transaction.StatusCompleted)).
		Set("settled_at = ?", settledAt.UTC()).
		Set("updated_at = ?", settledAt.UTC()).
		Where("business_id = ?", businessID).
		Where("status = ?", string(transaction.StatusPending)).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
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
	m := new(transactionModel)
	err := s.sdb.NewSelect(m).
		Where("business_id = ?", businessID).
		Where("status = ?", string(transaction.StatusCompleted)).
		Where("credited = ?", false).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil
		}
		return err
	}
	txn, err := fromTransactionModel(m)
	if err != nil {
		return err
	}
	if err := s.creditWallet(ctx, txn.WalletID, txn.Amount); err != nil {
		return err
	}
	return s.markCredited(ctx, businessID)
}

func (s *Store) MarkTransactionFailed(ctx context.Context, businessID string, reason string) (bool, error) {
	res, err := s.sdb.NewUpdate((*transactionModel)(nil)).
		Set("status = ?", string(transaction.StatusFailed)).
		Set("fail_reason = ?", reason).
		Set("updated_at = ?", now()).
		Where("business_id = ?", businessID).
		Where("status = ?", string(transaction.StatusPending)).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// RecoverSettlements credits wallets for transactions whose flip committed
// but whose credit did not land before a crash.
func (s *Store) RecoverSettlements(ctx context.Context) (int, error) {
	var models []transactionModel
	err := s.sdb.NewSelect(&models).
		Where("status = ?", string(transaction.StatusCompleted)).
		Where("credited = ?", false).
		Scan(ctx)
	if err != nil {
		return 0, err
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

// creditWallet adds amount to the wallet balance under the version predicate,
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
	_, err := s.sdb.NewUpdate((*transactionModel)(nil)).
		Set("credited = ?", true).
		Where("business_id = ?", businessID).
		Exec(ctx)
	return err
}

// ==================== API Key Store ====================

func (s *Store) CreateAPIKey(ctx context.Context, k *apikey.Key) error {
	m := toAPIKeyModel(k)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	if isUniqueViolation(err) {
		return wallet.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetAPIKey(ctx context.Context, keyID id.APIKeyID) (*apikey.Key, error) {
	m := new(apiKeyModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", keyID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return fromAPIKeyModel(m)
}

func (s *Store) GetAPIKeyByDigest(ctx context.Context, digest string) (*apikey.Key, error) {
	m := new(apiKeyModel)
	err := s.sdb.NewSelect(m).
		Where("digest = ?", digest).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, wallet.ErrAPIKeyNotFound
		}
		return nil, err
	}
	return fromAPIKeyModel(m)
}

func (s *Store) ListAPIKeys(ctx context.Context, walletID id.WalletID, opts apikey.ListOpts) ([]*apikey.Key, error) {
	var models []apiKeyModel
	q := s.sdb.NewSelect(&models).Where("wallet_id = ?", walletID.String())

	if opts.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate((*apiKeyModel)(nil)).
		Set("last_used_at = ?", usedAt).
		Where("id = ?", keyID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, wallet.ErrAPIKeyNotFound)
}

func (s *Store) RevokeAPIKey(ctx context.Context, keyID id.APIKeyID, revokedAt time.Time) error {
	res, err := s.sdb.NewUpdate((*apiKeyModel)(nil)).
		Set("is_active = ?", false).
		Set("revoked_at = ?", revokedAt).
		Set("updated_at = ?", now()).
		Where("id = ?", keyID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, wallet.ErrAPIKeyNotFound)
}

// ==================== Usage Store ====================

func (s *Store) InsertUsageBatch(ctx context.Context, records []*usage.Record) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]usageRecordModel, len(records))
	for i, r := range records {
		models[i] = *toUsageRecordModel(r)
	}
	_, err := s.sdb.NewInsert(&models).Exec(ctx)
	return err
}

func (s *Store) QueryUsage(ctx context.Context, opts usage.QueryOpts) ([]*usage.Record, error) {
	var models []usageRecordModel
	q := s.sdb.NewSelect(&models)

	if !opts.WalletID.IsNil() {
		q = q.Where("wallet_id = ?", opts.WalletID.String())
	}
	if opts.UserID != "" {
		q = q.Where("user_id = ?", opts.UserID)
	}
	if opts.Resource != "" {
		q = q.Where("resource = ?", opts.Resource)
	}
	if !opts.Since.IsZero() {
		q = q.Where("occurred_at >= ?", opts.Since)
	}
	if !opts.Until.IsZero() {
		q = q.Where("occurred_at < ?", opts.Until)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("occurred_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewDelete((*usageRecordModel)(nil)).
		Where("occurred_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches the SQLite unique constraint error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func requireRow(res interface{ RowsAffected() (int64, error) }, missing error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return missing
	}
	return nil
}

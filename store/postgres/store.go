// Package postgres implements the wallet store on PostgreSQL via Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
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

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("wallet/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("wallet/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if isUniqueViolation(err) {
		return wallet.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetWallet(ctx context.Context, walletID id.WalletID) (*account.Wallet, error) {
	m := new(walletModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", walletID.String()).
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
	err := s.pg.NewSelect(m).
		Where("uid = $1", uid).
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
	err := s.pg.NewSelect(m).
		Where("owner_id = $1", ownerID).
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
	q := s.pg.NewSelect(&models)

	if opts.Status != "" {
		q = q.Where("status = $1", string(opts.Status))
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

// UpdateWalletBalance is the conditional update: the version predicate makes
// the write a compare-and-swap, and the version bump happens in the same
// statement.
func (s *Store) UpdateWalletBalance(ctx context.Context, walletID id.WalletID, expectedVersion int64, balance decimal.Decimal, status account.Status) error {
	res, err := s.pg.NewUpdate((*walletModel)(nil)).
		Set("balance = $1", balance.String()).
		Set("status = $2", string(status)).
		Set("version = version + 1").
		Set("updated_at = $3", now()).
		Where("id = $4", walletID.String()).
		Where("version = $5", expectedVersion).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Zero rows: either the wallet is gone or someone else won the race.
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
	_, err := s.pg.NewInsert(mo).Exec(ctx)
	if isUniqueViolation(err) {
		return wallet.ErrMemberExists
	}
	return err
}

func (s *Store) GetMember(ctx context.Context, memberID id.MemberID) (*member.Member, error) {
	mo := new(memberModel)
	err := s.pg.NewSelect(mo).
		Where("id = $1", memberID.String()).
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
	err := s.pg.NewSelect(mo).
		Where("wallet_id = $1", walletID.String()).
		Where("user_id = $2", userID).
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
	q := s.pg.NewSelect(&models).Where("wallet_id = $1", walletID.String())

	if opts.ActiveOnly {
		q = q.Where("is_active = $2", true)
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
	res, err := s.pg.NewUpdate((*memberModel)(nil)).
		Set("credit_limit = $1", limit.String()).
		Set("credit_available = $2", available.String()).
		Set("credit_used = $3", used.String()).
		Set("version = version + 1").
		Set("updated_at = $4", now()).
		Where("id = $5", memberID.String()).
		Where("version = $6", expectedVersion).
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
	res, err := s.pg.NewUpdate((*memberModel)(nil)).
		Set("is_active = $1", false).
		Set("left_at = $2", leftAt).
		Set("updated_at = $3", now()).
		Where("id = $4", memberID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, wallet.ErrMemberNotFound)
}

func (s *Store) ReactivateMember(ctx context.Context, memberID id.MemberID) error {
	res, err := s.pg.NewUpdate((*memberModel)(nil)).
		Set("is_active = $1", true).
		Set("left_at = NULL").
		Set("updated_at = $2", now()).
		Where("id = $3", memberID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, wallet.ErrMemberNotFound)
}

// ==================== Transaction Store ====================

func (s *Store) CreateTransaction(ctx context.Context, t *transaction.Transaction) error {
	m := toTransactionModel(t)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if isUniqueViolation(err) {
		return wallet.ErrDuplicateBusinessID
	}
	return err
}

func (s *Store) GetTransaction(ctx context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", txnID.String()).
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
	err := s.pg.NewSelect(m).
		Where("business_id = $1", businessID).
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
	q := s.pg.NewSelect(&models).Where("wallet_id = $1", walletID.String())

	arg := 2
	if opts.Status != "" {
		q = q.Where(fmt.Sprintf("status = $%d", arg), string(opts.Status))
		arg++
	}
	if opts.Type != "" {
		q = q.Where(fmt.Sprintf("type = $%d", arg), string(opts.Type))
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

// SettleRecharge runs the guarded PENDING→COMPLETED flip and the wallet
// credit as one data-modifying CTE: one statement, one transaction. Zero
// rows back means nothing was pending under that business id.
func (s *Store) SettleRecharge(ctx context.Context, businessID string, settledAt time.Time) (bool, error) {
	var settledWalletID string
	err := s.pg.NewRaw(`
		WITH flipped AS (
			UPDATE wallet_transactions
			SET status = 'completed', settled_at = $2, updated_at = $2
			WHERE business_id = $1 AND status = 'pending'
			RETURNING wallet_id, amount
		)
		UPDATE wallet_accounts w
		SET balance = w.balance + f.amount,
		    version = w.version + 1,
		    updated_at = $2
		FROM flipped f
		WHERE w.id = f.wallet_id
		RETURNING w.id
	`, businessID, settledAt.UTC()).Scan(ctx, &settledWalletID)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) MarkTransactionFailed(ctx context.Context, businessID string, reason string) (bool, error) {
	res, err := s.pg.NewUpdate((*transactionModel)(nil)).
		Set("status = $1", string(transaction.StatusFailed)).
		Set("fail_reason = $2", reason).
		Set("updated_at = $3", now()).
		Where("business_id = $4", businessID).
		Where("status = $5", string(transaction.StatusPending)).
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

// RecoverSettlements is a no-op on PostgreSQL: the flip and the credit
// commit atomically in SettleRecharge, so no partial settlement exists.
func (s *Store) RecoverSettlements(_ context.Context) (int, error) {
	return 0, nil
}

// ==================== API Key Store ====================

func (s *Store) CreateAPIKey(ctx context.Context, k *apikey.Key) error {
	m := toAPIKeyModel(k)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if isUniqueViolation(err) {
		return wallet.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetAPIKey(ctx context.Context, keyID id.APIKeyID) (*apikey.Key, error) {
	m := new(apiKeyModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", keyID.String()).
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
	err := s.pg.NewSelect(m).
		Where("digest = $1", digest).
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
	q := s.pg.NewSelect(&models).Where("wallet_id = $1", walletID.String())

	if opts.ActiveOnly {
		q = q.Where("is_active = $2", true)
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
	res, err := s.pg.NewUpdate((*apiKeyModel)(nil)).
		Set("last_used_at = $1", usedAt).
		Where("id = $2", keyID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, wallet.ErrAPIKeyNotFound)
}

func (s *Store) RevokeAPIKey(ctx context.Context, keyID id.APIKeyID, revokedAt time.Time) error {
	res, err := s.pg.NewUpdate((*apiKeyModel)(nil)).
		Set("is_active = $1", false).
		Set("revoked_at = $2", revokedAt).
		Set("updated_at = $3", now()).
		Where("id = $4", keyID.String()).
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
	_, err := s.pg.NewInsert(&models).Exec(ctx)
	return err
}

func (s *Store) QueryUsage(ctx context.Context, opts usage.QueryOpts) ([]*usage.Record, error) {
	var models []usageRecordModel
	q := s.pg.NewSelect(&models)

	arg := 1
	where := func(cond string, v any) {
		q = q.Where(fmt.Sprintf(cond, arg), v)
		arg++
	}
	if !opts.WalletID.IsNil() {
		where("wallet_id = $%d", opts.WalletID.String())
	}
	if opts.UserID != "" {
		where("user_id = $%d", opts.UserID)
	}
	if opts.Resource != "" {
		where("resource = $%d", opts.Resource)
	}
	if !opts.Since.IsZero() {
		where("occurred_at >= $%d", opts.Since)
	}
	if !opts.Until.IsZero() {
		where("occurred_at < $%d", opts.Until)
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
	res, err := s.pg.NewDelete((*usageRecordModel)(nil)).
		Where("occurred_at < $1", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation matches the postgres unique_violation SQLSTATE (23505).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
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

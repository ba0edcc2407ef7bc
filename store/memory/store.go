// Package memory provides an in-memory Store for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	wallet "github.com/kadxy/wallet"
	"github.com/kadxy/wallet/account"
	"github.com/kadxy/wallet/apikey"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/member"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/usage"
)

type Store struct {
	mu sync.RWMutex

	// Wallet storage
	wallets map[string]*account.Wallet

	// Member storage
	members map[string]*member.Member

	// Transaction storage, indexed by id and by business id
	transactions map[string]*transaction.Transaction
	byBusinessID map[string]string

	// API key storage
	apiKeys map[string]*apikey.Key

	// Usage records
	usageRecords []usage.Record
}

func New() *Store {
	return &Store{
		wallets:      make(map[string]*account.Wallet),
		members:      make(map[string]*member.Member),
		transactions: make(map[string]*transaction.Transaction),
		byBusinessID: make(map[string]string),
		apiKeys:      make(map[string]*apikey.Key),
		usageRecords: make([]usage.Record, 0),
	}
}

// Every read hands out a copy: callers hold balance/version snapshots across
// their CAS retry loops and must never alias live store state.
func cloneWallet(w *account.Wallet) *account.Wallet {
	c := *w
	return &c
}

func cloneMember(m *member.Member) *member.Member {
	c := *m
	return &c
}

func cloneTransaction(t *transaction.Transaction) *transaction.Transaction {
	c := *t
	return &c
}

func cloneKey(k *apikey.Key) *apikey.Key {
	c := *k
	return &c
}

// Wallet Store implementation

func (s *Store) CreateWallet(_ context.Context, w *account.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wallets[w.ID.String()]; exists {
		return wallet.ErrAlreadyExists
	}
	for _, existing := range s.wallets {
		if existing.UID == w.UID || existing.OwnerID == w.OwnerID {
			return wallet.ErrAlreadyExists
		}
	}
	s.wallets[w.ID.String()] = cloneWallet(w)
	return nil
}

func (s *Store) GetWallet(_ context.Context, walletID id.WalletID) (*account.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.wallets[walletID.String()]; ok {
		return cloneWallet(w), nil
	}
	return nil, wallet.ErrWalletNotFound
}

func (s *Store) GetWalletByUID(_ context.Context, uid string) (*account.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.wallets {
		if w.UID == uid {
			return cloneWallet(w), nil
		}
	}
	return nil, wallet.ErrWalletNotFound
}

func (s *Store) GetWalletByOwner(_ context.Context, ownerID string) (*account.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.wallets {
		if w.OwnerID == ownerID {
			return cloneWallet(w), nil
		}
	}
	return nil, wallet.ErrWalletNotFound
}

func (s *Store) ListWallets(_ context.Context, opts account.ListOpts) ([]*account.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Wallet, 0)
	for _, w := range s.wallets {
		if opts.Status != "" && w.Status != opts.Status {
			continue
		}
		result = append(result, cloneWallet(w))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateWalletBalance(_ context.Context, walletID id.WalletID, expectedVersion int64, balance decimal.Decimal, status account.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[walletID.String()]
	if !ok {
		return wallet.ErrWalletNotFound
	}
	if w.Version != expectedVersion {
		return wallet.ErrVersionConflict
	}
	w.Balance = balance
	w.Status = status
	w.Version++
	w.Touch()
	return nil
}

// Member Store implementation

func (s *Store) CreateMember(_ context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.members[m.ID.String()]; exists {
		return wallet.ErrAlreadyExists
	}
	for _, existing := range s.members {
		if existing.WalletID == m.WalletID && existing.UserID == m.UserID {
			return wallet.ErrMemberExists
		}
	}
	s.members[m.ID.String()] = cloneMember(m)
	return nil
}

func (s *Store) GetMember(_ context.Context, memberID id.MemberID) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.members[memberID.String()]; ok {
		return cloneMember(m), nil
	}
	return nil, wallet.ErrMemberNotFound
}

func (s *Store) GetMemberByUser(_ context.Context, walletID id.WalletID, userID string) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if m.WalletID == walletID && m.UserID == userID {
			return cloneMember(m), nil
		}
	}
	return nil, wallet.ErrMemberNotFound
}

func (s *Store) ListMembers(_ context.Context, walletID id.WalletID, opts member.ListOpts) ([]*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*member.Member, 0)
	for _, m := range s.members {
		if m.WalletID != walletID {
			continue
		}
		if opts.ActiveOnly && !m.IsActive {
			continue
		}
		result = append(result, cloneMember(m))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) UpdateMemberCredit(_ context.Context, memberID id.MemberID, expectedVersion int64, limit, available, used decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[memberID.String()]
	if !ok {
		return wallet.ErrMemberNotFound
	}
	if m.Version != expectedVersion {
		return wallet.ErrVersionConflict
	}
	m.CreditLimit = limit
	m.CreditAvailable = available
	m.CreditUsed = used
	m.Version++
	m.Touch()
	return nil
}

func (s *Store) DeactivateMember(_ context.Context, memberID id.MemberID, leftAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[memberID.String()]
	if !ok {
		return wallet.ErrMemberNotFound
	}
	m.IsActive = false
	m.LeftAt = &leftAt
	m.Touch()
	return nil
}

func (s *Store) ReactivateMember(_ context.Context, memberID id.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[memberID.String()]
	if !ok {
		return wallet.ErrMemberNotFound
	}
	m.IsActive = true
	m.LeftAt = nil
	m.Touch()
	return nil
}

// Transaction Store implementation

func (s *Store) CreateTransaction(_ context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[t.ID.String()]; exists {
		return wallet.ErrAlreadyExists
	}
	if _, exists := s.byBusinessID[t.BusinessID]; exists {
		return wallet.ErrDuplicateBusinessID
	}
	s.transactions[t.ID.String()] = cloneTransaction(t)
	s.byBusinessID[t.BusinessID] = t.ID.String()
	return nil
}

func (s *Store) GetTransaction(_ context.Context, txnID id.TransactionID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.transactions[txnID.String()]; ok {
		return cloneTransaction(t), nil
	}
	return nil, wallet.ErrTransactionNotFound
}

func (s *Store) GetTransactionByBusinessID(_ context.Context, businessID string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tid, ok := s.byBusinessID[businessID]; ok {
		return cloneTransaction(s.transactions[tid]), nil
	}
	return nil, wallet.ErrTransactionNotFound
}

func (s *Store) ListTransactions(_ context.Context, walletID id.WalletID, opts transaction.ListOpts) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*transaction.Transaction, 0)
	for _, t := range s.transactions {
		if t.WalletID != walletID {
			continue
		}
		if opts.Status != "" && t.Status != opts.Status {
			continue
		}
		if opts.Type != "" && t.Type != opts.Type {
			continue
		}
		result = append(result, cloneTransaction(t))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) SettleRecharge(_ context.Context, businessID string, settledAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tid, ok := s.byBusinessID[businessID]
	if !ok {
		return false, nil
	}
	t := s.transactions[tid]
	if t.Status != transaction.StatusPending {
		return false, nil
	}
	w, ok := s.wallets[t.WalletID.String()]
	if !ok {
		return false, wallet.ErrWalletNotFound
	}

	t.Status = transaction.StatusCompleted
	t.SettledAt = &settledAt
	t.Touch()
	w.Balance = w.Balance.Add(t.Amount)
	w.Version++
	w.Touch()
	return true, nil
}

func (s *Store) MarkTransactionFailed(_ context.Context, businessID string, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tid, ok := s.byBusinessID[businessID]
	if !ok {
		return false, nil
	}
	t := s.transactions[tid]
	if t.Status != transaction.StatusPending {
		return false, nil
	}
	t.Status = transaction.StatusFailed
	t.FailReason = reason
	t.Touch()
	return true, nil
}

// RecoverSettlements is a no-op: SettleRecharge holds the store lock across
// both the flip and the credit, so no partial settlement can survive.
func (s *Store) RecoverSettlements(_ context.Context) (int, error) {
	return 0, nil
}

// API key Store implementation

func (s *Store) CreateAPIKey(_ context.Context, k *apikey.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apiKeys[k.ID.String()]; exists {
		return wallet.ErrAlreadyExists
	}
	s.apiKeys[k.ID.String()] = cloneKey(k)
	return nil
}

func (s *Store) GetAPIKey(_ context.Context, keyID id.APIKeyID) (*apikey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k, ok := s.apiKeys[keyID.String()]; ok {
		return cloneKey(k), nil
	}
	return nil, wallet.ErrAPIKeyNotFound
}

func (s *Store) GetAPIKeyByDigest(_ context.Context, digest string) (*apikey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.apiKeys {
		if k.Digest == digest {
			return cloneKey(k), nil
		}
	}
	return nil, wallet.ErrAPIKeyNotFound
}

func (s *Store) ListAPIKeys(_ context.Context, walletID id.WalletID, opts apikey.ListOpts) ([]*apikey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*apikey.Key, 0)
	for _, k := range s.apiKeys {
		if k.WalletID != walletID {
			continue
		}
		if opts.ActiveOnly && !k.IsActive {
			continue
		}
		result = append(result, cloneKey(k))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) TouchAPIKey(_ context.Context, keyID id.APIKeyID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.apiKeys[keyID.String()]
	if !ok {
		return wallet.ErrAPIKeyNotFound
	}
	k.LastUsedAt = &usedAt
	return nil
}

func (s *Store) RevokeAPIKey(_ context.Context, keyID id.APIKeyID, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.apiKeys[keyID.String()]
	if !ok {
		return wallet.ErrAPIKeyNotFound
	}
	k.IsActive = false
	k.RevokedAt = &revokedAt
	k.Touch()
	return nil
}

// Usage Store implementation

func (s *Store) InsertUsageBatch(_ context.Context, records []*usage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.usageRecords = append(s.usageRecords, *r)
	}
	return nil
}

func (s *Store) QueryUsage(_ context.Context, opts usage.QueryOpts) ([]*usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*usage.Record, 0)
	for i := range s.usageRecords {
		r := s.usageRecords[i]
		if !opts.WalletID.IsNil() && r.WalletID != opts.WalletID {
			continue
		}
		if opts.UserID != "" && r.UserID != opts.UserID {
			continue
		}
		if opts.Resource != "" && r.Resource != opts.Resource {
			continue
		}
		if !opts.Since.IsZero() && r.OccurredAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && !r.OccurredAt.Before(opts.Until) {
			continue
		}
		result = append(result, &r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) PurgeUsage(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.usageRecords[:0]
	var purged int64
	for _, r := range s.usageRecords {
		if r.OccurredAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	s.usageRecords = kept
	return purged, nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(items) {
			return []*T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

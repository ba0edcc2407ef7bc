package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	wallet "github.com/kadxy/wallet"
	"github.com/kadxy/wallet/account"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/types"
	"github.com/kadxy/wallet/usage"
)

func newWallet(owner string) *account.Wallet {
	return &account.Wallet{
		Entity:  types.NewEntity(),
		ID:      id.NewWalletID(),
		UID:     account.NewUID(),
		OwnerID: owner,
		Balance: decimal.Zero,
		Version: 1,
		Status:  account.StatusActive,
	}
}

func newTxn(walletID id.WalletID, amount string) *transaction.Transaction {
	t := &transaction.Transaction{
		Entity:   types.NewEntity(),
		ID:       id.NewTransactionID(),
		WalletID: walletID,
		UserID:   "u1",
		Type:     transaction.TypeRecharge,
		Amount:   types.MustAmount(amount),
		Status:   transaction.StatusPending,
	}
	t.BusinessID = t.ID.String()
	return t
}

func TestWalletCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	w := newWallet("owner-1")
	if err := s.CreateWallet(ctx, w); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateWallet(ctx, w); !errors.Is(err, wallet.ErrAlreadyExists) {
		t.Fatalf("duplicate create = %v, want ErrAlreadyExists", err)
	}
	// One wallet per owner.
	other := newWallet("owner-1")
	if err := s.CreateWallet(ctx, other); !errors.Is(err, wallet.ErrAlreadyExists) {
		t.Fatalf("second wallet for owner = %v, want ErrAlreadyExists", err)
	}

	for _, get := range []func() (*account.Wallet, error){
		func() (*account.Wallet, error) { return s.GetWallet(ctx, w.ID) },
		func() (*account.Wallet, error) { return s.GetWalletByUID(ctx, w.UID) },
		func() (*account.Wallet, error) { return s.GetWalletByOwner(ctx, "owner-1") },
	} {
		got, err := get()
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != w.ID {
			t.Fatalf("got wallet %s, want %s", got.ID, w.ID)
		}
	}

	if _, err := s.GetWallet(ctx, id.NewWalletID()); !errors.Is(err, wallet.ErrWalletNotFound) {
		t.Fatalf("missing wallet = %v, want ErrWalletNotFound", err)
	}
}

func TestConditionalBalanceUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	w := newWallet("owner-1")
	if err := s.CreateWallet(ctx, w); err != nil {
		t.Fatal(err)
	}

	ten := types.MustAmount("10")
	if err := s.UpdateWalletBalance(ctx, w.ID, 1, ten, account.StatusActive); err != nil {
		t.Fatal(err)
	}

	// Stale version is refused and changes nothing.
	err := s.UpdateWalletBalance(ctx, w.ID, 1, types.MustAmount("99"), account.StatusActive)
	if !errors.Is(err, wallet.ErrVersionConflict) {
		t.Fatalf("stale update = %v, want ErrVersionConflict", err)
	}

	got, _ := s.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(ten) || got.Version != 2 {
		t.Fatalf("wallet = balance %s version %d, want 10 / 2", got.Balance, got.Version)
	}
}

func TestReadsDoNotAliasStoreState(t *testing.T) {
	s := New()
	ctx := context.Background()

	w := newWallet("owner-1")
	if err := s.CreateWallet(ctx, w); err != nil {
		t.Fatal(err)
	}

	snapshot, _ := s.GetWallet(ctx, w.ID)
	snapshot.Balance = types.MustAmount("1000000")

	got, _ := s.GetWallet(ctx, w.ID)
	if !got.Balance.IsZero() {
		t.Fatal("mutating a read snapshot leaked into the store")
	}
}

func TestSettleRechargeGuard(t *testing.T) {
	s := New()
	ctx := context.Background()

	w := newWallet("owner-1")
	if err := s.CreateWallet(ctx, w); err != nil {
		t.Fatal(err)
	}
	txn := newTxn(w.ID, "650.00")
	if err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatal(err)
	}

	settled, err := s.SettleRecharge(ctx, txn.BusinessID, time.Now())
	if err != nil || !settled {
		t.Fatalf("first settle = (%v, %v), want (true, nil)", settled, err)
	}
	gotW, _ := s.GetWallet(ctx, w.ID)
	if !gotW.Balance.Equal(types.MustAmount("650.00")) {
		t.Fatalf("balance = %s, want 650.00", gotW.Balance)
	}

	// Replay and unknown business ids both report not-settled, no error.
	settled, err = s.SettleRecharge(ctx, txn.BusinessID, time.Now())
	if err != nil || settled {
		t.Fatalf("replay = (%v, %v), want (false, nil)", settled, err)
	}
	settled, err = s.SettleRecharge(ctx, "nope", time.Now())
	if err != nil || settled {
		t.Fatalf("unknown = (%v, %v), want (false, nil)", settled, err)
	}

	gotW, _ = s.GetWallet(ctx, w.ID)
	if !gotW.Balance.Equal(types.MustAmount("650.00")) {
		t.Fatalf("balance after replay = %s, want 650.00", gotW.Balance)
	}
}

func TestMarkTransactionFailed(t *testing.T) {
	s := New()
	ctx := context.Background()

	w := newWallet("owner-1")
	if err := s.CreateWallet(ctx, w); err != nil {
		t.Fatal(err)
	}
	txn := newTxn(w.ID, "10.00")
	if err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatal(err)
	}

	failed, err := s.MarkTransactionFailed(ctx, txn.BusinessID, "expired")
	if err != nil || !failed {
		t.Fatalf("fail = (%v, %v), want (true, nil)", failed, err)
	}

	// The terminal state wins all subsequent races.
	if settled, _ := s.SettleRecharge(ctx, txn.BusinessID, time.Now()); settled {
		t.Fatal("settled a FAILED transaction")
	}
	if failed, _ := s.MarkTransactionFailed(ctx, txn.BusinessID, "again"); failed {
		t.Fatal("failed a FAILED transaction twice")
	}

	got, _ := s.GetTransactionByBusinessID(ctx, txn.BusinessID)
	if got.Status != transaction.StatusFailed || got.FailReason != "expired" {
		t.Fatalf("transaction = %+v", got)
	}
}

func TestDuplicateBusinessID(t *testing.T) {
	s := New()
	ctx := context.Background()

	w := newWallet("owner-1")
	if err := s.CreateWallet(ctx, w); err != nil {
		t.Fatal(err)
	}
	txn := newTxn(w.ID, "1.00")
	if err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatal(err)
	}

	dup := newTxn(w.ID, "1.00")
	dup.BusinessID = txn.BusinessID
	if err := s.CreateTransaction(ctx, dup); !errors.Is(err, wallet.ErrDuplicateBusinessID) {
		t.Fatalf("duplicate business id = %v, want ErrDuplicateBusinessID", err)
	}
}

func TestUsageQuery(t *testing.T) {
	s := New()
	ctx := context.Background()

	wid := id.NewWalletID()
	now := time.Now()
	batch := []*usage.Record{
		{ID: id.NewUsageRecordID(), WalletID: wid, UserID: "u1", Resource: "tokens", OccurredAt: now.Add(-2 * time.Hour)},
		{ID: id.NewUsageRecordID(), WalletID: wid, UserID: "u2", Resource: "images", OccurredAt: now.Add(-time.Hour)},
		{ID: id.NewUsageRecordID(), WalletID: id.NewWalletID(), UserID: "u1", Resource: "tokens", OccurredAt: now},
	}
	if err := s.InsertUsageBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}

	records, err := s.QueryUsage(ctx, usage.QueryOpts{WalletID: wid})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("wallet filter: got %d records, want 2", len(records))
	}

	records, _ = s.QueryUsage(ctx, usage.QueryOpts{WalletID: wid, Resource: "tokens"})
	if len(records) != 1 || records[0].UserID != "u1" {
		t.Fatalf("resource filter: %+v", records)
	}

	records, _ = s.QueryUsage(ctx, usage.QueryOpts{WalletID: wid, Since: now.Add(-90 * time.Minute)})
	if len(records) != 1 || records[0].Resource != "images" {
		t.Fatalf("since filter: %+v", records)
	}

	purged, err := s.PurgeUsage(ctx, now.Add(-90*time.Minute))
	if err != nil || purged != 1 {
		t.Fatalf("purge = (%d, %v), want (1, nil)", purged, err)
	}
}

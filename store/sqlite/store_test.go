package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	"github.com/kadxy/wallet/account"
	"github.com/kadxy/wallet/id"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/types"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	drv := sqlitedriver.New()
	if err := drv.Open(context.Background(), filepath.Join(t.TempDir(), "wallet.db")); err != nil {
		t.Fatal(err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func seedRecharge(t *testing.T, s *Store, amount string) (*account.Wallet, *transaction.Transaction) {
	t.Helper()
	ctx := context.Background()

	w := &account.Wallet{
		Entity:  types.NewEntity(),
		ID:      id.NewWalletID(),
		UID:     account.NewUID(),
		Balance: decimal.Zero,
		Version: 1,
		Status:  account.StatusActive,
	}
	w.OwnerID = w.ID.String()
	if err := s.CreateWallet(ctx, w); err != nil {
		t.Fatal(err)
	}

	txn := &transaction.Transaction{
		Entity:   types.NewEntity(),
		ID:       id.NewTransactionID(),
		WalletID: w.ID,
		UserID:   "u1",
		Type:     transaction.TypeRecharge,
		Amount:   types.MustAmount(amount),
		Status:   transaction.StatusPending,
	}
	txn.BusinessID = txn.ID.String()
	if err := s.CreateTransaction(ctx, txn); err != nil {
		t.Fatal(err)
	}
	return w, txn
}

// flipWithoutCredit commits the status flip but not the wallet credit, the
// state a transient failure between the two writes leaves behind.
func flipWithoutCredit(t *testing.T, s *Store, businessID string) {
	t.Helper()
	_, err := s.sdb.NewUpdate((*transactionModel)(nil)).
		Set("status = ?", string(transaction.StatusCompleted)).
		Set("settled_at = ?", time.Now().UTC()).
		Where("business_id = ?", businessID).
		Where("status = ?", string(transaction.StatusPending)).
		Exec(context.Background())
	if err != nil {
		t.Fatal(err)
	}
}

func TestSettleRecharge(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	w, txn := seedRecharge(t, s, "25.00")

	settled, err := s.SettleRecharge(ctx, txn.BusinessID, time.Now())
	if err != nil || !settled {
		t.Fatalf("SettleRecharge = (%v, %v), want (true, nil)", settled, err)
	}
	got, err := s.GetWallet(ctx, w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Balance.Equal(types.MustAmount("25.00")) {
		t.Fatalf("balance = %s, want 25.00", got.Balance)
	}

	// Redelivery is a benign no-op.
	settled, err = s.SettleRecharge(ctx, txn.BusinessID, time.Now())
	if err != nil || settled {
		t.Fatalf("replayed SettleRecharge = (%v, %v), want (false, nil)", settled, err)
	}
	got, _ = s.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(types.MustAmount("25.00")) {
		t.Fatalf("balance after replay = %s, want 25.00", got.Balance)
	}

	// Unknown business ids are indistinguishable from replays.
	settled, err = s.SettleRecharge(ctx, "never-created", time.Now())
	if err != nil || settled {
		t.Fatalf("unknown SettleRecharge = (%v, %v), want (false, nil)", settled, err)
	}
}

func TestSettleRechargeFinishesInterruptedCredit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	w, txn := seedRecharge(t, s, "40.00")

	flipWithoutCredit(t, s, txn.BusinessID)

	// The redelivered notification must land the missing credit, not ack
	// an uncredited wallet.
	settled, err := s.SettleRecharge(ctx, txn.BusinessID, time.Now())
	if err != nil || settled {
		t.Fatalf("redelivered SettleRecharge = (%v, %v), want (false, nil)", settled, err)
	}
	got, err := s.GetWallet(ctx, w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Balance.Equal(types.MustAmount("40.00")) {
		t.Fatalf("balance = %s, want 40.00", got.Balance)
	}

	// The credit landed exactly once.
	settled, err = s.SettleRecharge(ctx, txn.BusinessID, time.Now())
	if err != nil || settled {
		t.Fatalf("second redelivery = (%v, %v), want (false, nil)", settled, err)
	}
	got, _ = s.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(types.MustAmount("40.00")) {
		t.Fatalf("balance after second redelivery = %s, want 40.00", got.Balance)
	}
}

func TestRecoverSettlements(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	w, txn := seedRecharge(t, s, "15.50")

	flipWithoutCredit(t, s, txn.BusinessID)

	recovered, err := s.RecoverSettlements(ctx)
	if err != nil || recovered != 1 {
		t.Fatalf("RecoverSettlements = (%d, %v), want (1, nil)", recovered, err)
	}
	got, err := s.GetWallet(ctx, w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Balance.Equal(types.MustAmount("15.50")) {
		t.Fatalf("balance = %s, want 15.50", got.Balance)
	}

	recovered, err = s.RecoverSettlements(ctx)
	if err != nil || recovered != 0 {
		t.Fatalf("second RecoverSettlements = (%d, %v), want (0, nil)", recovered, err)
	}
}

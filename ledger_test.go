package wallet_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	wallet "github.com/kadxy/wallet"
	"github.com/kadxy/wallet/gateway"
	"github.com/kadxy/wallet/store/memory"
	"github.com/kadxy/wallet/transaction"
	"github.com/kadxy/wallet/usage"
)

func newTestLedger(t *testing.T, opts ...wallet.Option) *wallet.Ledger {
	t.Helper()
	l := wallet.New(memory.New(), opts...)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return l
}

func testGateway(t *testing.T) *gateway.Client {
	t.Helper()
	c, err := gateway.NewClient(gateway.Config{
		Endpoint: "https://pay.example.com",
		PID:      "1001",
		Secret:   "s3cret",
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCreditDebitRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, err := l.CreateWallet(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := l.Credit(ctx, w.ID, wallet.MustAmount("100")); err != nil {
		t.Fatal(err)
	}
	for _, amount := range []string{"0.01", "10", "34.56"} {
		before, _ := l.GetWallet(ctx, w.ID)

		a := wallet.MustAmount(amount)
		if _, err := l.Credit(ctx, w.ID, a); err != nil {
			t.Fatalf("Credit(%s): %v", amount, err)
		}
		if _, err := l.Debit(ctx, w.ID, a); err != nil {
			t.Fatalf("Debit(%s): %v", amount, err)
		}

		after, _ := l.GetWallet(ctx, w.ID)
		if !after.Balance.Equal(before.Balance) {
			t.Errorf("round trip of %s: balance %s, want %s", amount, after.Balance, before.Balance)
		}
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	if _, err := l.Credit(ctx, w.ID, wallet.MustAmount("10")); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Debit(ctx, w.ID, wallet.MustAmount("10.01")); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("overdraft debit = %v, want ErrInsufficientFunds", err)
	}

	// Exact drain to zero is allowed.
	got, err := l.Debit(ctx, w.ID, wallet.MustAmount("10"))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Balance.IsZero() {
		t.Errorf("balance = %s, want 0", got.Balance)
	}
}

func TestBalanceFloorOverdraft(t *testing.T) {
	l := newTestLedger(t, wallet.WithBalanceFloor(wallet.MustAmount("-5")))
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	if _, err := l.Debit(ctx, w.ID, wallet.MustAmount("5")); err != nil {
		t.Fatalf("debit within overdraft: %v", err)
	}
	if _, err := l.Debit(ctx, w.ID, wallet.MustAmount("0.01")); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("debit past floor = %v, want ErrInsufficientFunds", err)
	}
}

func TestInvalidAmounts(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	for _, amount := range []string{"0", "-1"} {
		if _, err := l.Credit(ctx, w.ID, wallet.MustAmount(amount)); !errors.Is(err, wallet.ErrInvalidAmount) {
			t.Errorf("Credit(%s) = %v, want ErrInvalidAmount", amount, err)
		}
		if _, err := l.Debit(ctx, w.ID, wallet.MustAmount(amount)); !errors.Is(err, wallet.ErrInvalidAmount) {
			t.Errorf("Debit(%s) = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestFrozenWallet(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	if _, err := l.Credit(ctx, w.ID, wallet.MustAmount("10")); err != nil {
		t.Fatal(err)
	}
	if err := l.SetFrozen(ctx, w.ID, true); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Debit(ctx, w.ID, wallet.MustAmount("1")); !errors.Is(err, wallet.ErrWalletFrozen) {
		t.Fatalf("debit on frozen wallet = %v, want ErrWalletFrozen", err)
	}
	// Credits still land: settlements must not bounce.
	if _, err := l.Credit(ctx, w.ID, wallet.MustAmount("1")); err != nil {
		t.Fatalf("credit on frozen wallet: %v", err)
	}

	if err := l.SetFrozen(ctx, w.ID, false); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Debit(ctx, w.ID, wallet.MustAmount("1")); err != nil {
		t.Fatalf("debit after unfreeze: %v", err)
	}
}

type freezeCounter struct {
	mu    sync.Mutex
	calls int
}

func (p *freezeCounter) Name() string { return "freeze-counter" }

func (p *freezeCounter) OnWalletFrozen(ctx context.Context, walletID string, frozen bool) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return nil
}

func TestSetFrozenNoOpEmitsNothing(t *testing.T) {
	counter := &freezeCounter{}
	l := newTestLedger(t, wallet.WithPlugin(counter))
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	if err := l.SetFrozen(ctx, w.ID, true); err != nil {
		t.Fatal(err)
	}
	// Re-requesting the current state changes nothing and emits nothing.
	if err := l.SetFrozen(ctx, w.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := l.SetFrozen(ctx, w.ID, false); err != nil {
		t.Fatal(err)
	}

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if counter.calls != 2 {
		t.Fatalf("freeze events = %d, want 2", counter.calls)
	}
}

func TestConcurrentCredits(t *testing.T) {
	l := newTestLedger(t, wallet.WithRetry(50, time.Millisecond))
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")

	const n = 50
	one := decimal.NewFromInt(1)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Credit(ctx, w.ID, one); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent credit: %v", err)
	}

	got, _ := l.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(decimal.NewFromInt(n)) {
		t.Fatalf("balance after %d concurrent credits = %s, want %d", n, got.Balance, n)
	}
}

func TestContentionSurfaces(t *testing.T) {
	// A hot wallet hammered harder than the retry budget tolerates must
	// surface ErrContention eventually, not lose updates.
	l := newTestLedger(t, wallet.WithRetry(1, time.Microsecond))
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")

	const n = 100
	one := decimal.NewFromInt(1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	contended := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Credit(ctx, w.ID, one)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, wallet.ErrContention):
				contended++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := l.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(decimal.NewFromInt(int64(succeeded))) {
		t.Fatalf("balance = %s but %d credits reported success", got.Balance, succeeded)
	}
	if succeeded+contended != n {
		t.Fatalf("accounted %d of %d calls", succeeded+contended, n)
	}
}

func TestMemberInvariant(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	m, err := l.AddMember(ctx, w.ID, "user-2", wallet.MustAmount("100"))
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		op     string
		amount string
	}{
		{"alloc", "30"},
		{"alloc", "50"},
		{"release", "20"},
		{"alloc", "40"},
		{"release", "100"}, // clamped: only 100-... used remains
	}
	for _, s := range steps {
		var err error
		switch s.op {
		case "alloc":
			m, err = l.AllocateCredit(ctx, m.ID, wallet.MustAmount(s.amount))
		case "release":
			m, err = l.ReleaseCredit(ctx, m.ID, wallet.MustAmount(s.amount))
		}
		if err != nil {
			t.Fatalf("%s %s: %v", s.op, s.amount, err)
		}
		if !m.CheckInvariant() {
			t.Fatalf("after %s %s: used %s + available %s != limit %s",
				s.op, s.amount, m.CreditUsed, m.CreditAvailable, m.CreditLimit)
		}
	}
	if !m.CreditUsed.IsZero() {
		t.Errorf("over-release not clamped: used = %s", m.CreditUsed)
	}
}

func TestAllocateOverLimit(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	m, _ := l.AddMember(ctx, w.ID, "user-2", wallet.MustAmount("10"))

	if _, err := l.AllocateCredit(ctx, m.ID, wallet.MustAmount("10.01")); !errors.Is(err, wallet.ErrCreditLimitExceeded) {
		t.Fatalf("over-limit allocation = %v, want ErrCreditLimitExceeded", err)
	}
	// The failed allocation must not have moved anything.
	m, _ = l.GetMember(ctx, m.ID)
	if !m.CreditUsed.IsZero() || !m.CreditAvailable.Equal(wallet.MustAmount("10")) {
		t.Fatalf("rejected allocation mutated the sub-ledger: %+v", m)
	}
}

func TestMemberLifecycle(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	m, _ := l.AddMember(ctx, w.ID, "user-2", wallet.MustAmount("100"))

	// Duplicate active membership is rejected.
	if _, err := l.AddMember(ctx, w.ID, "user-2", wallet.MustAmount("5")); !errors.Is(err, wallet.ErrMemberExists) {
		t.Fatalf("duplicate AddMember = %v, want ErrMemberExists", err)
	}

	if err := l.RemoveMember(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AllocateCredit(ctx, m.ID, wallet.MustAmount("1")); !errors.Is(err, wallet.ErrMemberInactive) {
		t.Fatalf("allocation for removed member = %v, want ErrMemberInactive", err)
	}

	// Re-inviting reactivates the same row with a fresh allowance.
	again, err := l.AddMember(ctx, w.ID, "user-2", wallet.MustAmount("25"))
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != m.ID {
		t.Errorf("rejoin created a new row: %s vs %s", again.ID, m.ID)
	}
	if !again.CreditLimit.Equal(wallet.MustAmount("25")) || !again.IsActive {
		t.Errorf("rejoined member = %+v", again)
	}
}

func TestSetCreditLimit(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	m, _ := l.AddMember(ctx, w.ID, "user-2", wallet.MustAmount("100"))
	m, _ = l.AllocateCredit(ctx, m.ID, wallet.MustAmount("60"))

	// Shrinking below used is rejected.
	if _, err := l.SetCreditLimit(ctx, m.ID, wallet.MustAmount("50")); !errors.Is(err, wallet.ErrCreditLimitExceeded) {
		t.Fatalf("limit below used = %v, want ErrCreditLimitExceeded", err)
	}

	m, err := l.SetCreditLimit(ctx, m.ID, wallet.MustAmount("80"))
	if err != nil {
		t.Fatal(err)
	}
	if !m.CheckInvariant() || !m.CreditAvailable.Equal(wallet.MustAmount("20")) {
		t.Fatalf("after limit change: %+v", m)
	}
}

func TestCreateRecharge(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	rec, err := l.CreateRecharge(ctx, w.ID, "owner-1", "100", "alipay", "203.0.113.9")
	if err != nil {
		t.Fatal(err)
	}

	txn := rec.Transaction
	if txn.Status != transaction.StatusPending {
		t.Errorf("status = %s, want pending", txn.Status)
	}
	if !txn.Amount.Equal(wallet.MustAmount("650.00")) {
		t.Errorf("amount = %s, want 650.00 (rate 6.5 x 100)", txn.Amount)
	}
	if txn.BusinessID == "" {
		t.Error("business id not assigned")
	}

	if _, err := l.CreateRecharge(ctx, w.ID, "owner-1", "0.001", "alipay", ""); !errors.Is(err, wallet.ErrInvalidQuantity) {
		t.Errorf("quota 0.001 = %v, want ErrInvalidQuantity", err)
	}
	if _, err := l.CreateRecharge(ctx, w.ID, "owner-1", "100001", "alipay", ""); !errors.Is(err, wallet.ErrInvalidQuantity) {
		t.Errorf("quota 100001 = %v, want ErrInvalidQuantity", err)
	}
}

func TestSettleExactlyOnce(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	rec, err := l.CreateRecharge(ctx, w.ID, "owner-1", "100", "alipay", "")
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := l.Settle(ctx, rec.Transaction.BusinessID)
	if err != nil || outcome != wallet.Settled {
		t.Fatalf("first settle = (%v, %v), want (Settled, nil)", outcome, err)
	}

	got, _ := l.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(wallet.MustAmount("650.00")) {
		t.Fatalf("balance after settle = %s, want 650.00", got.Balance)
	}

	// The duplicate delivery is benign: acked, no second credit.
	outcome, err = l.Settle(ctx, rec.Transaction.BusinessID)
	if err != nil || outcome != wallet.SettleReplayed {
		t.Fatalf("second settle = (%v, %v), want (SettleReplayed, nil)", outcome, err)
	}
	if !outcome.Acked() {
		t.Error("replay outcome must ack")
	}

	got, _ = l.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(wallet.MustAmount("650.00")) {
		t.Fatalf("balance after replay = %s, want 650.00", got.Balance)
	}

	txn, _ := l.GetTransactionByBusinessID(ctx, rec.Transaction.BusinessID)
	if txn.Status != transaction.StatusCompleted || txn.SettledAt == nil {
		t.Errorf("settled transaction = %+v", txn)
	}
}

func signedNotification(t *testing.T, gw *gateway.Client, businessID, money string) url.Values {
	t.Helper()
	params := url.Values{}
	params.Set("pid", "1001")
	params.Set("trade_no", "20260829000001")
	params.Set("out_trade_no", businessID)
	params.Set("type", "alipay")
	params.Set("trade_status", "TRADE_SUCCESS")
	params.Set("name", "wallet top-up")
	params.Set("money", money)

	sign, err := gw.Signer().Sign(params)
	if err != nil {
		t.Fatal(err)
	}
	params.Set("sign", sign)
	params.Set("sign_type", "MD5")
	return params
}

func TestHandleNotification(t *testing.T) {
	gw := testGateway(t)
	st := memory.New()

	// Recharge creation goes through a gateway-less ledger on the same
	// store, so no outbound HTTP order is attempted.
	offline := wallet.New(st)
	l := wallet.New(st, wallet.WithGateway(gw))
	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer l.Stop() //nolint:errcheck
	ctx := context.Background()

	w, err := offline.CreateWallet(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	rec, err := offline.CreateRecharge(ctx, w.ID, "owner-1", "100", "alipay", "")
	if err != nil {
		t.Fatal(err)
	}
	businessID := rec.Transaction.BusinessID
	if _, err := offline.Credit(ctx, w.ID, wallet.MustAmount("0.50")); err != nil {
		t.Fatal(err)
	}

	// Valid delivery settles and credits.
	outcome, err := l.HandleNotification(ctx, signedNotification(t, gw, businessID, "650.00"))
	if err != nil || outcome != wallet.Settled {
		t.Fatalf("valid notification = (%v, %v), want (Settled, nil)", outcome, err)
	}
	got, _ := l.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(wallet.MustAmount("650.50")) {
		t.Fatalf("balance = %s, want 650.50", got.Balance)
	}

	// Duplicate delivery is acked without crediting again.
	outcome, err = l.HandleNotification(ctx, signedNotification(t, gw, businessID, "650.00"))
	if outcome != wallet.SettleReplayed || err != nil {
		t.Fatalf("duplicate notification = (%v, %v), want (SettleReplayed, nil)", outcome, err)
	}
	got, _ = l.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(wallet.MustAmount("650.50")) {
		t.Fatalf("balance after duplicate = %s, want 650.50", got.Balance)
	}
}

func TestHandleNotificationRejections(t *testing.T) {
	gw := testGateway(t)
	st := memory.New()
	offline := wallet.New(st)
	l := wallet.New(st, wallet.WithGateway(gw))
	ctx := context.Background()

	w, err := offline.CreateWallet(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	rec, err := offline.CreateRecharge(ctx, w.ID, "owner-1", "100", "alipay", "")
	if err != nil {
		t.Fatal(err)
	}
	businessID := rec.Transaction.BusinessID

	t.Run("tampered signature", func(t *testing.T) {
		params := signedNotification(t, gw, businessID, "650.00")
		params.Set("money", "0.01")
		outcome, err := l.HandleNotification(ctx, params)
		if outcome != wallet.SettleRejected || !errors.Is(err, wallet.ErrSignatureInvalid) {
			t.Fatalf("= (%v, %v), want (SettleRejected, ErrSignatureInvalid)", outcome, err)
		}
	})

	t.Run("unsuccessful status", func(t *testing.T) {
		params := url.Values{}
		params.Set("pid", "1001")
		params.Set("out_trade_no", businessID)
		params.Set("trade_status", "WAIT_BUYER_PAY")
		params.Set("money", "650.00")
		sign, _ := gw.Signer().Sign(params)
		params.Set("sign", sign)
		params.Set("sign_type", "MD5")

		outcome, err := l.HandleNotification(ctx, params)
		if outcome != wallet.SettleRejected || !errors.Is(err, wallet.ErrGatewayDeclined) {
			t.Fatalf("= (%v, %v), want (SettleRejected, ErrGatewayDeclined)", outcome, err)
		}
	})

	t.Run("amount mismatch", func(t *testing.T) {
		params := signedNotification(t, gw, businessID, "1.00")
		outcome, err := l.HandleNotification(ctx, params)
		if outcome != wallet.SettleRejected || !errors.Is(err, wallet.ErrAmountMismatch) {
			t.Fatalf("= (%v, %v), want (SettleRejected, ErrAmountMismatch)", outcome, err)
		}
	})

	t.Run("unknown business id acked", func(t *testing.T) {
		params := signedNotification(t, gw, "txn_00000000000000000000000000", "1.00")
		outcome, err := l.HandleNotification(ctx, params)
		if outcome != wallet.SettleReplayed || err != nil {
			t.Fatalf("= (%v, %v), want (SettleReplayed, nil)", outcome, err)
		}
	})

	// Nothing above may have credited the wallet.
	got, _ := l.GetWallet(ctx, w.ID)
	if !got.Balance.IsZero() {
		t.Fatalf("rejected notifications credited the wallet: %s", got.Balance)
	}
}

func TestFailRecharge(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	rec, _ := l.CreateRecharge(ctx, w.ID, "owner-1", "10", "alipay", "")

	failed, err := l.FailRecharge(ctx, rec.Transaction.BusinessID, "order expired")
	if err != nil || !failed {
		t.Fatalf("FailRecharge = (%v, %v)", failed, err)
	}

	// A settlement arriving after the failure is a no-op.
	outcome, err := l.Settle(ctx, rec.Transaction.BusinessID)
	if outcome != wallet.SettleReplayed || err != nil {
		t.Fatalf("settle after fail = (%v, %v), want (SettleReplayed, nil)", outcome, err)
	}
	got, _ := l.GetWallet(ctx, w.ID)
	if !got.Balance.IsZero() {
		t.Fatalf("failed transaction credited the wallet: %s", got.Balance)
	}
}

func TestBillUsage(t *testing.T) {
	l := newTestLedger(t, wallet.WithUsageConfig(10, 10*time.Millisecond))
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	if _, err := l.Credit(ctx, w.ID, wallet.MustAmount("10")); err != nil {
		t.Fatal(err)
	}

	rec, err := l.BillUsage(ctx, usage.BillRequest{
		WalletID: w.ID,
		UserID:   "owner-1",
		Resource: "tokens",
		Quantity: wallet.MustAmount("1200"),
		Rate:     wallet.MustAmount("0.002"),
		Cost:     wallet.MustAmount("2.40"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.ID.IsNil() {
		t.Error("usage record without id")
	}

	got, _ := l.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(wallet.MustAmount("7.60")) {
		t.Fatalf("balance = %s, want 7.60", got.Balance)
	}

	// Billing against a member allowance leaves the pool untouched.
	m, _ := l.AddMember(ctx, w.ID, "user-2", wallet.MustAmount("5"))
	if _, err := l.BillUsage(ctx, usage.BillRequest{
		WalletID: w.ID,
		MemberID: m.ID,
		UserID:   "user-2",
		Resource: "tokens",
		Quantity: wallet.MustAmount("500"),
		Cost:     wallet.MustAmount("1"),
	}); err != nil {
		t.Fatal(err)
	}
	got, _ = l.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(wallet.MustAmount("7.60")) {
		t.Fatalf("member billing touched the pool: %s", got.Balance)
	}
	m, _ = l.GetMember(ctx, m.ID)
	if !m.CreditUsed.Equal(wallet.MustAmount("1")) {
		t.Fatalf("member used = %s, want 1", m.CreditUsed)
	}

	// Records become queryable after a flush interval.
	deadline := time.Now().Add(2 * time.Second)
	for {
		records, err := l.QueryUsage(ctx, usage.QueryOpts{WalletID: w.ID})
		if err != nil {
			t.Fatal(err)
		}
		if len(records) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("usage records not flushed: got %d, want 2", len(records))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBillUsageRejectionLeavesNoTrace(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	_, err := l.BillUsage(ctx, usage.BillRequest{
		WalletID: w.ID,
		UserID:   "owner-1",
		Resource: "tokens",
		Quantity: wallet.MustAmount("1"),
		Cost:     wallet.MustAmount("1"),
	})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("billing an empty wallet = %v, want ErrInsufficientFunds", err)
	}
}

func TestAPIKeys(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	w, _ := l.CreateWallet(ctx, "owner-1")
	k, secret, err := l.CreateAPIKey(ctx, w.ID, "ci")
	if err != nil {
		t.Fatal(err)
	}
	if secret == "" || k.Digest == secret {
		t.Fatal("secret must be returned once and never stored verbatim")
	}

	got, err := l.AuthenticateAPIKey(ctx, secret)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != k.ID {
		t.Errorf("authenticated key %s, want %s", got.ID, k.ID)
	}

	if _, err := l.AuthenticateAPIKey(ctx, "sk-wrong"); !errors.Is(err, wallet.ErrAPIKeyNotFound) {
		t.Errorf("bad secret = %v, want ErrAPIKeyNotFound", err)
	}

	if err := l.RevokeAPIKey(ctx, k.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.AuthenticateAPIKey(ctx, secret); !errors.Is(err, wallet.ErrAPIKeyRevoked) {
		t.Errorf("revoked key = %v, want ErrAPIKeyRevoked", err)
	}
	if err := l.RevokeAPIKey(ctx, k.ID); !errors.Is(err, wallet.ErrAPIKeyRevoked) {
		t.Errorf("double revoke = %v, want ErrAPIKeyRevoked", err)
	}
}

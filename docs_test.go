package wallet_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	wallet "github.com/kadxy/wallet"
	"github.com/kadxy/wallet/store/memory"
	"github.com/kadxy/wallet/types"
	"github.com/kadxy/wallet/usage"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize the ledger
		l := wallet.New(store,
			wallet.WithLogger(slog.Default()),
			wallet.WithUsageConfig(100, 5*time.Second),
		)

		// Start the engine
		ctx := context.Background()
		if err := l.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer l.Stop()

		// Create a wallet for an owner
		w, err := l.CreateWallet(ctx, "user-42")
		if err != nil {
			t.Fatal(err)
		}

		// Credit and debit the pooled balance
		w, err = l.Credit(ctx, w.ID, wallet.MustAmount("100"))
		if err != nil {
			t.Fatal(err)
		}
		w, err = l.Debit(ctx, w.ID, wallet.MustAmount("0.35"))
		if err != nil {
			t.Fatal(err)
		}

		// Add a member with an individual allowance
		m, err := l.AddMember(ctx, w.ID, "user-43", wallet.MustAmount("50"))
		if err != nil {
			t.Fatal(err)
		}
		m, err = l.AllocateCredit(ctx, m.ID, wallet.MustAmount("1.20"))
		if err != nil {
			t.Fatal(err)
		}

		// Bill metered usage against the pool (non-blocking, batched)
		_, err = l.BillUsage(ctx, usage.BillRequest{
			WalletID: w.ID,
			UserID:   "user-42",
			Resource: "api_calls",
			Quantity: wallet.MustAmount("100"),
			Rate:     wallet.MustAmount("0.0035"),
			Cost:     wallet.MustAmount("0.35"),
		})
		if err != nil {
			t.Fatal(err)
		}

		log.Printf("balance %s, member available %s\n",
			wallet.FormatAmount(w.Balance), m.CreditAvailable.String())
	})

	// Test amount helper examples
	t.Run("AmountExamples", func(t *testing.T) {
		// Constructors
		a, err := wallet.ParseAmount("12.345")
		if err != nil {
			t.Fatal(err)
		}
		b := wallet.MustAmount("4.5")

		// Round-up money arithmetic: 12.345 * 4.5 = 55.5525 -> 55.56
		rounded := wallet.RoundUpAmount(a.Mul(b))
		if got := wallet.FormatAmount(rounded); got != "55.56" {
			t.Fatalf("FormatAmount = %q, want %q", got, "55.56")
		}

		if types.AmountScale != 2 {
			t.Fatalf("AmountScale = %d, want 2", types.AmountScale)
		}
	})
}

// Package wallet provides a composable wallet ledger and payment-settlement
// engine for Go applications.
//
// Wallet is designed as a library, not a service. Import it directly into
// your Go application and wire it to your persistence layer. It provides:
//
//   - Pooled wallet balances with optimistic-concurrency credit/debit
//   - Per-member credit sub-ledgers inside shared wallets
//   - Tiered volume-discount pricing with round-up money arithmetic
//   - A recharge transaction state machine with exactly-once settlement
//     of at-least-once payment-gateway callbacks
//   - High-throughput usage billing with batched record flushing
//   - Wallet-scoped API keys with usage attribution
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/grove"
//	    "github.com/xraph/grove/drivers/pgdriver"
//
//	    wallet "github.com/kadxy/wallet"
//	    "github.com/kadxy/wallet/store/postgres"
//	)
//
//	// Initialize store
//	drv := pgdriver.New()
//	if err := drv.Open(ctx, databaseURL); err != nil {
//	    log.Fatal(err)
//	}
//	db, err := grove.Open(drv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := postgres.New(db)
//
//	// Create ledger
//	l := wallet.New(store)
//
//	// Start the ledger (runs migrations, settlement recovery and workers)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Core Concepts
//
// Wallets hold a pooled balance owned by exactly one user:
//
//	w, err := l.CreateWallet(ctx, "user-42")
//	w, err = l.Credit(ctx, w.ID, wallet.MustAmount("100"))
//	w, err = l.Debit(ctx, w.ID, wallet.MustAmount("0.35"))
//
// Members get an individual allowance inside a shared wallet, tracked as an
// independent sub-ledger (used + available == limit):
//
//	m, err := l.AddMember(ctx, w.ID, "user-43", wallet.MustAmount("50"))
//	m, err = l.AllocateCredit(ctx, m.ID, wallet.MustAmount("1.20"))
//
// Recharges create a PENDING transaction and a signed gateway order; the
// gateway's asynchronous callback settles it exactly once no matter how
// many times it is delivered:
//
//	rec, err := l.CreateRecharge(ctx, w.ID, "user-42", "100", "alipay", ip)
//	// payer completes rec.Order.PayURL, then the gateway calls back:
//	outcome, err := l.HandleNotification(ctx, r.URL.Query())
//	if outcome.Acked() {
//	    w.Write([]byte("success"))
//	}
//
// # Concurrency
//
// Balance and allowance mutations run a bounded compare-and-swap retry loop
// keyed on each row's version field: concurrent writers re-read and retry on
// conflict, and pathological contention surfaces as ErrContention rather
// than lost updates. N concurrent credits of 1 against a fresh wallet always
// leave balance N.
//
// All monetary values are arbitrary-precision decimals. Customer-facing
// amounts carry two decimal places and round up, never down.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	wlt_01h2xcejqtf2nbrexx3vqjhp41  // Wallet ID
//	wmb_01h2xcejqtf2nbrexx3vqjhp41  // Member ID
//	txn_01h455vb4pex5vsknk084sn02q  // Transaction ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package wallet

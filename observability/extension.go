// Package observability provides a metrics extension for the wallet ledger
// that records lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/kadxy/wallet/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnWalletCreated      = (*MetricsExtension)(nil)
	_ plugin.OnWalletCredited     = (*MetricsExtension)(nil)
	_ plugin.OnWalletDebited      = (*MetricsExtension)(nil)
	_ plugin.OnWalletFrozen       = (*MetricsExtension)(nil)
	_ plugin.OnMemberJoined       = (*MetricsExtension)(nil)
	_ plugin.OnMemberLeft         = (*MetricsExtension)(nil)
	_ plugin.OnCreditAllocated    = (*MetricsExtension)(nil)
	_ plugin.OnCreditReleased     = (*MetricsExtension)(nil)
	_ plugin.OnRechargeCreated    = (*MetricsExtension)(nil)
	_ plugin.OnRechargeSettled    = (*MetricsExtension)(nil)
	_ plugin.OnRechargeFailed     = (*MetricsExtension)(nil)
	_ plugin.OnSettlementReplayed = (*MetricsExtension)(nil)
	_ plugin.OnSignatureRejected  = (*MetricsExtension)(nil)
	_ plugin.OnContention         = (*MetricsExtension)(nil)
	_ plugin.OnUsageFlushed       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a wallet plugin to automatically track ledger metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Wallet metrics
	WalletCreated  Counter
	WalletCredited Counter
	WalletDebited  Counter
	WalletFrozen   Counter
	WalletUnfrozen Counter

	// Member metrics
	MemberJoined    Counter
	MemberLeft      Counter
	CreditAllocated Counter
	CreditReleased  Counter

	// Recharge metrics
	RechargeCreated    Counter
	RechargeSettled    Counter
	RechargeFailed     Counter
	SettlementReplayed Counter
	SignatureRejected  Counter

	// Concurrency metrics
	ContentionExhausted Counter
	ContentionAttempts  Histogram

	// Usage metrics
	UsageRecordsFlushed Counter
	UsageBatchSize      Histogram
	UsageFlushLatency   Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Wallet metrics
		WalletCreated:  factory.Counter("wallet.account.created"),
		WalletCredited: factory.Counter("wallet.account.credited"),
		WalletDebited:  factory.Counter("wallet.account.debited"),
		WalletFrozen:   factory.Counter("wallet.account.frozen"),
		WalletUnfrozen: factory.Counter("wallet.account.unfrozen"),

		// Member metrics
		MemberJoined:    factory.Counter("wallet.member.joined"),
		MemberLeft:      factory.Counter("wallet.member.left"),
		CreditAllocated: factory.Counter("wallet.credit.allocated"),
		CreditReleased:  factory.Counter("wallet.credit.released"),

		// Recharge metrics
		RechargeCreated:    factory.Counter("wallet.recharge.created"),
		RechargeSettled:    factory.Counter("wallet.recharge.settled"),
		RechargeFailed:     factory.Counter("wallet.recharge.failed"),
		SettlementReplayed: factory.Counter("wallet.settlement.replayed"),
		SignatureRejected:  factory.Counter("wallet.signature.rejected"),

		// Concurrency metrics
		ContentionExhausted: factory.Counter("wallet.contention.exhausted"),
		ContentionAttempts:  factory.Histogram("wallet.contention.attempts"),

		// Usage metrics
		UsageRecordsFlushed: factory.Counter("wallet.usage.records.flushed"),
		UsageBatchSize:      factory.Histogram("wallet.usage.batch.size"),
		UsageFlushLatency:   factory.Histogram("wallet.usage.flush.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Wallet lifecycle hooks
// ──────────────────────────────────────────────────

// OnWalletCreated implements plugin.OnWalletCreated.
func (m *MetricsExtension) OnWalletCreated(_ context.Context, _ interface{}) error {
	m.WalletCreated.Inc()
	return nil
}

// OnWalletCredited implements plugin.OnWalletCredited.
func (m *MetricsExtension) OnWalletCredited(_ context.Context, _ interface{}, _ string) error {
	m.WalletCredited.Inc()
	return nil
}

// OnWalletDebited implements plugin.OnWalletDebited.
func (m *MetricsExtension) OnWalletDebited(_ context.Context, _ interface{}, _ string) error {
	m.WalletDebited.Inc()
	return nil
}

// OnWalletFrozen implements plugin.OnWalletFrozen.
func (m *MetricsExtension) OnWalletFrozen(_ context.Context, _ string, frozen bool) error {
	if frozen {
		m.WalletFrozen.Inc()
	} else {
		m.WalletUnfrozen.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Member credit hooks
// ──────────────────────────────────────────────────

// OnMemberJoined implements plugin.OnMemberJoined.
func (m *MetricsExtension) OnMemberJoined(_ context.Context, _ interface{}) error {
	m.MemberJoined.Inc()
	return nil
}

// OnMemberLeft implements plugin.OnMemberLeft.
func (m *MetricsExtension) OnMemberLeft(_ context.Context, _ interface{}) error {
	m.MemberLeft.Inc()
	return nil
}

// OnCreditAllocated implements plugin.OnCreditAllocated.
func (m *MetricsExtension) OnCreditAllocated(_ context.Context, _ interface{}, _ string) error {
	m.CreditAllocated.Inc()
	return nil
}

// OnCreditReleased implements plugin.OnCreditReleased.
func (m *MetricsExtension) OnCreditReleased(_ context.Context, _ interface{}, _ string) error {
	m.CreditReleased.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Recharge lifecycle hooks
// ──────────────────────────────────────────────────

// OnRechargeCreated implements plugin.OnRechargeCreated.
func (m *MetricsExtension) OnRechargeCreated(_ context.Context, _ interface{}) error {
	m.RechargeCreated.Inc()
	return nil
}

// OnRechargeSettled implements plugin.OnRechargeSettled.
func (m *MetricsExtension) OnRechargeSettled(_ context.Context, _ interface{}) error {
	m.RechargeSettled.Inc()
	return nil
}

// OnRechargeFailed implements plugin.OnRechargeFailed.
func (m *MetricsExtension) OnRechargeFailed(_ context.Context, _ interface{}, _ string) error {
	m.RechargeFailed.Inc()
	return nil
}

// OnSettlementReplayed implements plugin.OnSettlementReplayed.
func (m *MetricsExtension) OnSettlementReplayed(_ context.Context, _ string) error {
	m.SettlementReplayed.Inc()
	return nil
}

// OnSignatureRejected implements plugin.OnSignatureRejected.
func (m *MetricsExtension) OnSignatureRejected(_ context.Context, _ string, _ string) error {
	m.SignatureRejected.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Concurrency / usage hooks
// ──────────────────────────────────────────────────

// OnContention implements plugin.OnContention.
func (m *MetricsExtension) OnContention(_ context.Context, _ string, attempts int) error {
	m.ContentionExhausted.Inc()
	m.ContentionAttempts.Observe(float64(attempts))
	return nil
}

// OnUsageFlushed implements plugin.OnUsageFlushed.
func (m *MetricsExtension) OnUsageFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.UsageRecordsFlushed.Add(float64(count))
	m.UsageBatchSize.Observe(float64(count))
	m.UsageFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

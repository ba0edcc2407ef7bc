// Package audithook bridges wallet lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter that bridges
// to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kadxy/wallet/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnWalletCreated      = (*Extension)(nil)
	_ plugin.OnWalletCredited     = (*Extension)(nil)
	_ plugin.OnWalletDebited      = (*Extension)(nil)
	_ plugin.OnWalletFrozen       = (*Extension)(nil)
	_ plugin.OnMemberJoined       = (*Extension)(nil)
	_ plugin.OnMemberLeft         = (*Extension)(nil)
	_ plugin.OnCreditAllocated    = (*Extension)(nil)
	_ plugin.OnCreditReleased     = (*Extension)(nil)
	_ plugin.OnRechargeCreated    = (*Extension)(nil)
	_ plugin.OnRechargeSettled    = (*Extension)(nil)
	_ plugin.OnRechargeFailed     = (*Extension)(nil)
	_ plugin.OnSettlementReplayed = (*Extension)(nil)
	_ plugin.OnSignatureRejected  = (*Extension)(nil)
	_ plugin.OnContention         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not import the
// backend directly; callers inject the concrete recorder at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges wallet lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Wallet lifecycle hooks
// ──────────────────────────────────────────────────

// OnWalletCreated implements plugin.OnWalletCreated.
func (e *Extension) OnWalletCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionWalletCreated, SeverityInfo, OutcomeSuccess,
		ResourceWallet, "", CategoryLedger, nil,
		"event", "wallet_created",
	)
}

// OnWalletCredited implements plugin.OnWalletCredited.
func (e *Extension) OnWalletCredited(ctx context.Context, _ interface{}, amount string) error {
	return e.record(ctx, ActionWalletCredited, SeverityInfo, OutcomeSuccess,
		ResourceWallet, "", CategoryLedger, nil,
		"event", "wallet_credited",
		"amount", amount,
	)
}

// OnWalletDebited implements plugin.OnWalletDebited.
func (e *Extension) OnWalletDebited(ctx context.Context, _ interface{}, amount string) error {
	return e.record(ctx, ActionWalletDebited, SeverityInfo, OutcomeSuccess,
		ResourceWallet, "", CategoryLedger, nil,
		"event", "wallet_debited",
		"amount", amount,
	)
}

// OnWalletFrozen implements plugin.OnWalletFrozen.
func (e *Extension) OnWalletFrozen(ctx context.Context, walletID string, frozen bool) error {
	action := ActionWalletFrozen
	severity := SeverityWarning
	if !frozen {
		action = ActionWalletUnfrozen
		severity = SeverityInfo
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceWallet, walletID, CategoryLedger, nil,
		"wallet_id", walletID,
	)
}

// ──────────────────────────────────────────────────
// Member credit hooks
// ──────────────────────────────────────────────────

// OnMemberJoined implements plugin.OnMemberJoined.
func (e *Extension) OnMemberJoined(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionMemberJoined, SeverityInfo, OutcomeSuccess,
		ResourceMember, "", CategoryMembership, nil,
		"event", "member_joined",
	)
}

// OnMemberLeft implements plugin.OnMemberLeft.
func (e *Extension) OnMemberLeft(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionMemberLeft, SeverityInfo, OutcomeSuccess,
		ResourceMember, "", CategoryMembership, nil,
		"event", "member_left",
	)
}

// OnCreditAllocated implements plugin.OnCreditAllocated.
func (e *Extension) OnCreditAllocated(ctx context.Context, _ interface{}, amount string) error {
	return e.record(ctx, ActionCreditAllocated, SeverityInfo, OutcomeSuccess,
		ResourceMember, "", CategoryMembership, nil,
		"event", "credit_allocated",
		"amount", amount,
	)
}

// OnCreditReleased implements plugin.OnCreditReleased.
func (e *Extension) OnCreditReleased(ctx context.Context, _ interface{}, amount string) error {
	return e.record(ctx, ActionCreditReleased, SeverityInfo, OutcomeSuccess,
		ResourceMember, "", CategoryMembership, nil,
		"event", "credit_released",
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Recharge lifecycle hooks
// ──────────────────────────────────────────────────

// OnRechargeCreated implements plugin.OnRechargeCreated.
func (e *Extension) OnRechargeCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionRechargeCreated, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, "", CategoryPayment, nil,
		"event", "recharge_created",
	)
}

// OnRechargeSettled implements plugin.OnRechargeSettled.
func (e *Extension) OnRechargeSettled(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionRechargeSettled, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, "", CategoryPayment, nil,
		"event", "recharge_settled",
	)
}

// OnRechargeFailed implements plugin.OnRechargeFailed.
func (e *Extension) OnRechargeFailed(ctx context.Context, _ interface{}, reason string) error {
	return e.record(ctx, ActionRechargeFailed, SeverityWarning, OutcomeFailure,
		ResourceTransaction, "", CategoryPayment, nil,
		"event", "recharge_failed",
		"fail_reason", reason,
	)
}

// OnSettlementReplayed implements plugin.OnSettlementReplayed.
func (e *Extension) OnSettlementReplayed(ctx context.Context, businessID string) error {
	return e.record(ctx, ActionSettlementReplayed, SeverityInfo, OutcomeSuccess,
		ResourceSettlement, businessID, CategoryPayment, nil,
		"business_id", businessID,
	)
}

// OnSignatureRejected implements plugin.OnSignatureRejected.
func (e *Extension) OnSignatureRejected(ctx context.Context, businessID, signType string) error {
	return e.record(ctx, ActionSignatureRejected, SeverityCritical, OutcomeFailure,
		ResourceSettlement, businessID, CategorySecurity, nil,
		"business_id", businessID,
		"sign_type", signType,
	)
}

// ──────────────────────────────────────────────────
// Concurrency hooks
// ──────────────────────────────────────────────────

// OnContention implements plugin.OnContention.
func (e *Extension) OnContention(ctx context.Context, entityID string, attempts int) error {
	return e.record(ctx, ActionContention, SeverityWarning, OutcomeFailure,
		ResourceWallet, entityID, CategoryLedger, nil,
		"entity_id", entityID,
		"attempts", attempts,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

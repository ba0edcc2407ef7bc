package audithook

// Action constants for audit events.
const (
	// Wallet actions
	ActionWalletCreated  = "wallet.created"
	ActionWalletCredited = "wallet.credited"
	ActionWalletDebited  = "wallet.debited"
	ActionWalletFrozen   = "wallet.frozen"
	ActionWalletUnfrozen = "wallet.unfrozen"

	// Member actions
	ActionMemberJoined    = "member.joined"
	ActionMemberLeft      = "member.left"
	ActionCreditAllocated = "credit.allocated"
	ActionCreditReleased  = "credit.released"

	// Recharge actions
	ActionRechargeCreated    = "recharge.created"
	ActionRechargeSettled    = "recharge.settled"
	ActionRechargeFailed     = "recharge.failed"
	ActionSettlementReplayed = "settlement.replayed"
	ActionSignatureRejected  = "signature.rejected"

	// Concurrency actions
	ActionContention = "contention.exhausted"
)

// Resource constants for audit events.
const (
	ResourceWallet      = "wallet"
	ResourceMember      = "member"
	ResourceTransaction = "transaction"
	ResourceSettlement  = "settlement"
)

// Category constants for audit events.
const (
	CategoryLedger     = "ledger"
	CategoryMembership = "membership"
	CategoryPayment    = "payment"
	CategorySecurity   = "security"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

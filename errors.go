package wallet

import (
	"errors"
	"fmt"

	"github.com/kadxy/wallet/gateway"
	"github.com/kadxy/wallet/pricing"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("wallet: not found")
	ErrAlreadyExists = errors.New("wallet: already exists")
	ErrInvalidInput  = errors.New("wallet: invalid input")

	// Wallet account errors
	ErrWalletNotFound    = errors.New("wallet: account not found")
	ErrWalletFrozen      = errors.New("wallet: account is frozen")
	ErrInvalidAmount     = errors.New("wallet: amount must be positive")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")

	// Concurrency errors
	ErrVersionConflict = errors.New("wallet: version conflict")
	ErrContention      = errors.New("wallet: too much contention, retries exhausted")

	// Member / credit sub-ledger errors
	ErrMemberNotFound      = errors.New("wallet: member not found")
	ErrMemberExists        = errors.New("wallet: member already active")
	ErrMemberInactive      = errors.New("wallet: member has left the wallet")
	ErrCreditLimitExceeded = errors.New("wallet: credit limit exceeded")

	// Pricing errors. The sentinel lives in the pricing package so the
	// engine stays importable on its own.
	ErrInvalidQuantity = pricing.ErrInvalidQuantity

	// Transaction / settlement errors
	ErrTransactionNotFound   = errors.New("wallet: transaction not found")
	ErrDuplicateBusinessID   = errors.New("wallet: duplicate business id")
	ErrTransactionNotPending = errors.New("wallet: transaction is not pending")
	ErrSignatureInvalid      = gateway.ErrSignatureInvalid
	ErrGatewayDeclined       = errors.New("wallet: gateway reported failure")
	ErrAmountMismatch        = errors.New("wallet: notification amount mismatch")

	// API key errors
	ErrAPIKeyNotFound = errors.New("wallet: api key not found")
	ErrAPIKeyRevoked  = errors.New("wallet: api key revoked")

	// Store errors
	ErrStoreNotReady = errors.New("wallet: store not ready")
	ErrStoreClosed   = errors.New("wallet: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("wallet: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrAPIKeyNotFound)
}

// IsLedgerViolation returns true if the error is a balance or credit
// invariant rejection. These are always surfaced to the immediate caller
// and never retried internally.
func IsLedgerViolation(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrCreditLimitExceeded) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried by the caller. Version conflicts are retried internally and
// surface as ErrContention only after the bounded retry loop is exhausted.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention) ||
		errors.Is(err, ErrStoreNotReady)
}

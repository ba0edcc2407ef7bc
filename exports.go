package wallet

import "github.com/kadxy/wallet/types"

// Re-export common types for convenience so users don't have to import types package.

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export amount helpers
var (
	ParseAmount   = types.ParseAmount
	MustAmount    = types.MustAmount
	RoundUpAmount = types.RoundUpAmount
	FormatAmount  = types.FormatAmount
)

// Re-export Entity constructor
var NewEntity = types.NewEntity

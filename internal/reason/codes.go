// Package reason defines the closed set of stable rejection codes returned by
// the intent pipeline, and the classifier that normalizes free-text provider
// errors onto it.
package reason

// Code is a stable, machine-readable rejection identifier. The set is closed:
// callers can rely on every rejection carrying one of these values.
type Code string

const (
	PolicyRejected                  Code = "POLICY_REJECTED"
	PolicyInvalidAgentID            Code = "POLICY_INVALID_AGENT_ID"
	PolicyInvalidAmount             Code = "POLICY_INVALID_AMOUNT"
	PolicyMaxPerTxExceeded          Code = "POLICY_MAX_PER_TX_EXCEEDED"
	PolicyDailyCapExceeded          Code = "POLICY_DAILY_CAP_EXCEEDED"
	PolicySwapMintRequired          Code = "POLICY_SWAP_MINT_REQUIRED"
	PolicyActionNotAllowed          Code = "POLICY_ACTION_NOT_ALLOWED"
	PolicyMintNotAllowed            Code = "POLICY_MINT_NOT_ALLOWED"
	PolicySwapSlippageRequired      Code = "POLICY_SWAP_SLIPPAGE_REQUIRED"
	PolicyMaxSlippageExceeded       Code = "POLICY_MAX_SLIPPAGE_EXCEEDED"
	PolicyRuleNotSupported          Code = "POLICY_RULE_NOT_SUPPORTED"
	PolicyRecipientNotAllowed       Code = "POLICY_RECIPIENT_NOT_ALLOWED"
	PolicyRecipientBlocked          Code = "POLICY_RECIPIENT_BLOCKED"
	PolicySwapPairNotAllowed        Code = "POLICY_SWAP_PAIR_NOT_ALLOWED"
	PolicySwapProtocolNotAllowed    Code = "POLICY_SWAP_PROTOCOL_NOT_ALLOWED"
	PolicyDslMaxPerTxExceeded       Code = "POLICY_DSL_MAX_PER_TX_EXCEEDED"
	PolicyDslDailyActionCapExceeded Code = "POLICY_DSL_DAILY_ACTION_CAP_EXCEEDED"
	PolicyDslMaxPerActionTxExceeded Code = "POLICY_DSL_MAX_PER_ACTION_TX_EXCEEDED"
	PolicyDslMaxPerMintTxExceeded   Code = "POLICY_DSL_MAX_PER_MINT_TX_EXCEEDED"
	PolicyRPCSimulationUnavailable  Code = "POLICY_RPC_SIMULATION_UNAVAILABLE"
	PolicyRPCSimulationFailed       Code = "POLICY_RPC_SIMULATION_FAILED"
	TransferRecipientRequired       Code = "TRANSFER_RECIPIENT_REQUIRED"
	TransferAssetRequired           Code = "TRANSFER_ASSET_REQUIRED"
	TransferSelfNotAllowed          Code = "TRANSFER_SELF_NOT_ALLOWED"
	TransferMintRequired            Code = "TRANSFER_MINT_REQUIRED"
	WalletAddressUnavailable        Code = "WALLET_ADDRESS_UNAVAILABLE"
	SwapProtocolUnavailable         Code = "SWAP_PROTOCOL_UNAVAILABLE"
	TxBuildFailed                   Code = "TX_BUILD_FAILED"
	SigningFailed                   Code = "SIGNING_FAILED"
	InsufficientFunds               Code = "INSUFFICIENT_FUNDS"
	TokenAccountNotFound            Code = "TOKEN_ACCOUNT_NOT_FOUND"
)

var known = map[Code]struct{}{
	PolicyRejected:                  {},
	PolicyInvalidAgentID:            {},
	PolicyInvalidAmount:             {},
	PolicyMaxPerTxExceeded:          {},
	PolicyDailyCapExceeded:          {},
	PolicySwapMintRequired:          {},
	PolicyActionNotAllowed:          {},
	PolicyMintNotAllowed:            {},
	PolicySwapSlippageRequired:      {},
	PolicyMaxSlippageExceeded:       {},
	PolicyRuleNotSupported:          {},
	PolicyRecipientNotAllowed:       {},
	PolicyRecipientBlocked:          {},
	PolicySwapPairNotAllowed:        {},
	PolicySwapProtocolNotAllowed:    {},
	PolicyDslMaxPerTxExceeded:       {},
	PolicyDslDailyActionCapExceeded: {},
	PolicyDslMaxPerActionTxExceeded: {},
	PolicyDslMaxPerMintTxExceeded:   {},
	PolicyRPCSimulationUnavailable:  {},
	PolicyRPCSimulationFailed:       {},
	TransferRecipientRequired:       {},
	TransferAssetRequired:           {},
	TransferSelfNotAllowed:          {},
	TransferMintRequired:            {},
	WalletAddressUnavailable:        {},
	SwapProtocolUnavailable:         {},
	TxBuildFailed:                   {},
	SigningFailed:                   {},
	InsufficientFunds:               {},
	TokenAccountNotFound:            {},
}

// IsKnown reports whether s is exactly one of the stable codes. Used to let
// builder errors that already carry a code propagate verbatim.
func IsKnown(s string) bool {
	_, ok := known[Code(s)]
	return ok
}

package policy

import (
	"math/big"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

// BaselineLimits are the platform-wide caps applied to every intent,
// independent of assigned policies. A wallet owner cannot disable them.
type BaselineLimits struct {
	MaxLamportsPerTx string
	DailyLamportsCap string
}

const selfTransferDetail = "Recipient address must be different from the agent wallet address."

func baselineReject(code reason.Code, detail string, checks []string) types.PolicyDecision {
	return types.PolicyDecision{Allowed: false, ReasonCode: string(code), ReasonDetail: detail, Checks: checks}
}

// EvaluateBaseline runs the always-on platform guard. currentDailySpent is the
// persisted spend snapshot for the agent's current UTC day.
func EvaluateBaseline(intent *types.ExecutionIntent, limits BaselineLimits, currentDailySpent string) types.PolicyDecision {
	checks := []string{"intent_shape"}

	if intent.AgentID == "" {
		return baselineReject(reason.PolicyInvalidAgentID, "", checks)
	}

	amount := types.ParsePositiveLamports(intent.AmountAtomic)
	if amount == nil {
		return baselineReject(reason.PolicyInvalidAmount, "", checks)
	}

	checks = append(checks, "max_per_tx")
	if maxPerTx := types.ParseLamports(limits.MaxLamportsPerTx); maxPerTx != nil && amount.Cmp(maxPerTx) > 0 {
		return baselineReject(reason.PolicyMaxPerTxExceeded, "", checks)
	}

	if intent.Action == types.ActionSwap {
		checks = append(checks, "token_allowlist")
		if intent.FromMint == "" || intent.ToMint == "" {
			return baselineReject(reason.PolicySwapMintRequired, "", checks)
		}
	}

	if intent.Action == types.ActionTransfer {
		checks = append(checks, "transfer_shape")
		if intent.RecipientAddress == "" {
			return baselineReject(reason.TransferRecipientRequired, "", checks)
		}
		if intent.TransferAsset == "" {
			return baselineReject(reason.TransferAssetRequired, "", checks)
		}
		if intent.WalletAddress != "" && intent.RecipientAddress == intent.WalletAddress {
			return baselineReject(reason.TransferSelfNotAllowed, selfTransferDetail, checks)
		}
		if intent.TransferAsset == types.TransferAssetSPL && intent.MintAddress == "" {
			return baselineReject(reason.TransferMintRequired, "", checks)
		}
	}

	checks = append(checks, "daily_cap")
	spent := types.ParseLamports(currentDailySpent)
	if spent == nil {
		spent = big.NewInt(0)
	}
	projected := new(big.Int).Add(spent, amount)
	if dailyCap := types.ParseLamports(limits.DailyLamportsCap); dailyCap != nil && projected.Cmp(dailyCap) > 0 {
		return baselineReject(reason.PolicyDailyCapExceeded, "", checks)
	}

	return types.PolicyDecision{Allowed: true, Checks: checks}
}

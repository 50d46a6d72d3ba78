package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

func defaultLimits() BaselineLimits {
	return BaselineLimits{
		MaxLamportsPerTx: "1000000000",
		DailyLamportsCap: "5000000000",
	}
}

func TestBaselineAllows(t *testing.T) {
	decision := EvaluateBaseline(transferIntent(nil), defaultLimits(), "0")
	assert.True(t, decision.Allowed)
	assert.Equal(t, []string{"intent_shape", "max_per_tx", "transfer_shape", "daily_cap"}, decision.Checks)
}

func TestBaselineInvalidAgent(t *testing.T) {
	decision := EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
		i.AgentID = ""
	}), defaultLimits(), "0")
	assert.Equal(t, string(reason.PolicyInvalidAgentID), decision.ReasonCode)
}

func TestBaselineInvalidAmount(t *testing.T) {
	for _, amount := range []string{"", "0", "-5", "12.5", "abc"} {
		decision := EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
			i.AmountAtomic = amount
		}), defaultLimits(), "0")
		assert.Equal(t, string(reason.PolicyInvalidAmount), decision.ReasonCode, amount)
	}
}

func TestBaselineMaxPerTx(t *testing.T) {
	limits := defaultLimits()
	limits.MaxLamportsPerTx = "100"
	decision := EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "101"
	}), limits, "0")
	assert.Equal(t, string(reason.PolicyMaxPerTxExceeded), decision.ReasonCode)
}

func TestBaselineSwapRequiresMints(t *testing.T) {
	decision := EvaluateBaseline(swapIntent(func(i *types.ExecutionIntent) {
		i.ToMint = ""
	}), defaultLimits(), "0")
	assert.Equal(t, string(reason.PolicySwapMintRequired), decision.ReasonCode)
}

func TestBaselineTransferShape(t *testing.T) {
	decision := EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
		i.RecipientAddress = ""
	}), defaultLimits(), "0")
	assert.Equal(t, string(reason.TransferRecipientRequired), decision.ReasonCode)

	decision = EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
		i.TransferAsset = ""
	}), defaultLimits(), "0")
	assert.Equal(t, string(reason.TransferAssetRequired), decision.ReasonCode)

	decision = EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
		i.TransferAsset = types.TransferAssetSPL
	}), defaultLimits(), "0")
	assert.Equal(t, string(reason.TransferMintRequired), decision.ReasonCode)
}

func TestBaselineSelfTransfer(t *testing.T) {
	wallet := "8YfZ6E8wHcQW1E6x4jES8m7fVt4P8Jho7W4g7a7v1e2L"
	decision := EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
		i.WalletAddress = wallet
		i.RecipientAddress = wallet
	}), defaultLimits(), "0")
	assert.Equal(t, string(reason.TransferSelfNotAllowed), decision.ReasonCode)
	assert.Equal(t, "Recipient address must be different from the agent wallet address.", decision.ReasonDetail)
}

func TestBaselineDailyCapUsesPersistedSpend(t *testing.T) {
	limits := defaultLimits()
	limits.DailyLamportsCap = "100"

	decision := EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "60"
	}), limits, "50")
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyDailyCapExceeded), decision.ReasonCode)

	// S+A == C is still within the cap.
	decision = EvaluateBaseline(transferIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "50"
	}), limits, "50")
	assert.True(t, decision.Allowed)
}

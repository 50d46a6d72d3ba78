package policy

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

const (
	solMint  = "So11111111111111111111111111111111111111112"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func swapIntent(overrides func(*types.ExecutionIntent)) *types.ExecutionIntent {
	intent := &types.ExecutionIntent{
		AgentID:        "agent-1",
		Action:         types.ActionSwap,
		AmountAtomic:   "1000000",
		FromMint:       solMint,
		ToMint:         usdcMint,
		MaxSlippageBps: 100,
		HasSlippage:    true,
	}
	if overrides != nil {
		overrides(intent)
	}
	return intent
}

func transferIntent(overrides func(*types.ExecutionIntent)) *types.ExecutionIntent {
	intent := &types.ExecutionIntent{
		AgentID:          "agent-1",
		Action:           types.ActionTransfer,
		AmountAtomic:     "1000000",
		TransferAsset:    types.TransferAssetNative,
		RecipientAddress: "recipient-1",
	}
	if overrides != nil {
		overrides(intent)
	}
	return intent
}

func activePolicy(t *testing.T, dsl string) types.PolicyRecord {
	t.Helper()
	require.True(t, json.Valid([]byte(dsl)))
	return types.PolicyRecord{
		ID:           uuid.New(),
		OwnerAgentID: "agent-1",
		Name:         "default",
		Status:       types.PolicyStatusActive,
		DSL:          json.RawMessage(dsl),
	}
}

func TestEvaluateAssignedNoPolicies(t *testing.T) {
	decision := EvaluateAssigned(swapIntent(nil), nil, Context{})
	assert.True(t, decision.Allowed)
	assert.Contains(t, decision.Checks, "assigned_policies:none")
}

func TestEvaluateAssignedInactiveSkipped(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v1","rules":[{"kind":"allowed_actions","actions":["transfer"]}]}`)
	record.Status = types.PolicyStatusDisabled

	decision := EvaluateAssigned(swapIntent(nil), []types.PolicyRecord{record}, Context{})
	assert.True(t, decision.Allowed)
	assert.Contains(t, decision.Checks, "policy:"+record.ID.String()+":inactive")
}

func TestEvaluateAssignedActionNotAllowed(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v1","rules":[{"kind":"allowed_actions","actions":["swap"]}]}`)

	decision := EvaluateAssigned(transferIntent(nil), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyActionNotAllowed), decision.ReasonCode)
	require.NotNil(t, decision.Match)
	assert.Equal(t, record.ID.String(), decision.Match.PolicyID)
	assert.Equal(t, "allowed_actions", decision.Match.RuleKind)
	assert.Equal(t, map[string]any{"actions": []types.IntentAction{types.ActionSwap}}, decision.Match.RuleConfig)
}

func TestEvaluateAssignedMaxPerTxExceeded(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v1","rules":[{"kind":"max_lamports_per_tx","lteLamports":"500"}]}`)

	decision := EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "1000"
	}), []types.PolicyRecord{record}, Context{})

	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyDslMaxPerTxExceeded), decision.ReasonCode)
	require.NotNil(t, decision.Match)
	assert.Equal(t, "max_lamports_per_tx", decision.Match.RuleKind)
	assert.Equal(t, map[string]any{"lteLamports": "500"}, decision.Match.RuleConfig)
}

func TestEvaluateAssignedMintAllowlist(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v1","rules":[{"kind":"allowed_mints","mints":["`+solMint+`"]}]}`)

	decision := EvaluateAssigned(swapIntent(nil), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyMintNotAllowed), decision.ReasonCode)

	// Same rule applies to SPL transfer mints.
	decision = EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.TransferAsset = types.TransferAssetSPL
		i.MintAddress = "Mint111111111111111111111111111111111111111"
	}), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyMintNotAllowed), decision.ReasonCode)

	// Native transfers carry no mint and pass through.
	decision = EvaluateAssigned(transferIntent(nil), []types.PolicyRecord{record}, Context{})
	assert.True(t, decision.Allowed)
}

func TestEvaluateAssignedSlippage(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v1","rules":[{"kind":"max_slippage_bps","lteBps":100}]}`)

	decision := EvaluateAssigned(swapIntent(func(i *types.ExecutionIntent) {
		i.HasSlippage = false
		i.MaxSlippageBps = 0
	}), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicySwapSlippageRequired), decision.ReasonCode)
	require.NotNil(t, decision.Match)
	assert.Equal(t, map[string]any{"lteBps": 100}, decision.Match.RuleConfig)

	decision = EvaluateAssigned(swapIntent(func(i *types.ExecutionIntent) {
		i.MaxSlippageBps = 250
	}), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyMaxSlippageExceeded), decision.ReasonCode)
}

func TestEvaluateAssignedRecipientRules(t *testing.T) {
	allowed := activePolicy(t, `{"version":"aegis.policy.v2","rules":[{"kind":"allowed_recipients","addresses":["recipient-1"]}]}`)
	decision := EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.RecipientAddress = "recipient-2"
	}), []types.PolicyRecord{allowed}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyRecipientNotAllowed), decision.ReasonCode)
	assert.Equal(t, "allowed_recipients", decision.Match.RuleKind)

	blocked := activePolicy(t, `{"version":"aegis.policy.v2","rules":[{"kind":"blocked_recipients","addresses":["blocked-recipient"]}]}`)
	decision = EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.RecipientAddress = "blocked-recipient"
	}), []types.PolicyRecord{blocked}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyRecipientBlocked), decision.ReasonCode)
}

func TestEvaluateAssignedSwapPairs(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v2","rules":[{"kind":"allowed_swap_pairs","pairs":[{"fromMint":"`+solMint+`","toMint":"OtherMint11111111111111111111111111111111111"}]}]}`)

	decision := EvaluateAssigned(swapIntent(nil), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicySwapPairNotAllowed), decision.ReasonCode)
}

func TestEvaluateAssignedSwapProtocols(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v2","rules":[{"kind":"allowed_swap_protocols","protocols":["orca"]}]}`)

	decision := EvaluateAssigned(swapIntent(func(i *types.ExecutionIntent) {
		i.SwapProtocol = types.SwapProtocolRaydium
	}), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicySwapProtocolNotAllowed), decision.ReasonCode)

	// Resolved protocol from context wins over "auto" on the intent.
	decision = EvaluateAssigned(swapIntent(func(i *types.ExecutionIntent) {
		i.SwapProtocol = types.SwapProtocolAuto
	}), []types.PolicyRecord{record}, Context{ResolvedSwapProtocol: types.SwapProtocolOrca})
	assert.True(t, decision.Allowed)
}

func TestEvaluateAssignedDailyActionCap(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v2","rules":[{"kind":"max_lamports_per_day_by_action","action":"transfer","lteLamports":"500"}]}`)

	decision := EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "200"
	}), []types.PolicyRecord{record}, Context{
		CurrentDailySpentLamports: "0",
		CurrentDailySpentByAction: map[types.IntentAction]string{types.ActionTransfer: "400"},
	})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyDslDailyActionCapExceeded), decision.ReasonCode)
	assert.Equal(t, "max_lamports_per_day_by_action", decision.Match.RuleKind)

	// Under the cap it passes.
	decision = EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "100"
	}), []types.PolicyRecord{record}, Context{
		CurrentDailySpentByAction: map[types.IntentAction]string{types.ActionTransfer: "400"},
	})
	assert.True(t, decision.Allowed)
}

func TestEvaluateAssignedPerActionTxCap(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v2","rules":[{"kind":"max_lamports_per_tx_by_action","action":"swap","lteLamports":"1000"}]}`)

	decision := EvaluateAssigned(swapIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "2000"
	}), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyDslMaxPerActionTxExceeded), decision.ReasonCode)

	// Other actions are unaffected.
	decision = EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "2000"
	}), []types.PolicyRecord{record}, Context{})
	assert.True(t, decision.Allowed)
}

func TestEvaluateAssignedPerMintTxCap(t *testing.T) {
	mint := "Mint111111111111111111111111111111111111111"
	record := activePolicy(t, `{"version":"aegis.policy.v2","rules":[{"kind":"max_lamports_per_tx_by_mint","mint":"`+mint+`","lteLamports":"1000"}]}`)

	decision := EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.TransferAsset = types.TransferAssetSPL
		i.MintAddress = mint
		i.AmountAtomic = "2000"
	}), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyDslMaxPerMintTxExceeded), decision.ReasonCode)
}

func TestEvaluateAssignedUnknownRuleFailsClosed(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v2","rules":[{"kind":"totally_new_rule"}]}`)

	decision := EvaluateAssigned(swapIntent(nil), []types.PolicyRecord{record}, Context{})
	assert.False(t, decision.Allowed)
	assert.Equal(t, string(reason.PolicyRuleNotSupported), decision.ReasonCode)
}

func TestEvaluateAssignedFailFastFirstRuleWins(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v1","rules":[
		{"kind":"max_lamports_per_tx","lteLamports":"500"},
		{"kind":"allowed_actions","actions":["swap"]}
	]}`)

	decision := EvaluateAssigned(transferIntent(func(i *types.ExecutionIntent) {
		i.AmountAtomic = "1000"
	}), []types.PolicyRecord{record}, Context{})

	// Both rules fail; the first in declaration order names the match.
	assert.False(t, decision.Allowed)
	assert.Equal(t, "max_lamports_per_tx", decision.Match.RuleKind)
}

func TestEvaluateAssignedAllRulesPass(t *testing.T) {
	record := activePolicy(t, `{"version":"aegis.policy.v1","rules":[
		{"kind":"allowed_actions","actions":["swap"]},
		{"kind":"max_lamports_per_tx","lteLamports":"5000000"},
		{"kind":"allowed_mints","mints":["`+solMint+`","`+usdcMint+`"]},
		{"kind":"max_slippage_bps","lteBps":1000}
	]}`)

	decision := EvaluateAssigned(swapIntent(nil), []types.PolicyRecord{record}, Context{})
	assert.True(t, decision.Allowed)
	assert.Nil(t, decision.Match)
}

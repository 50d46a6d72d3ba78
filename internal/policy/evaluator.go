package policy

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

// Context carries the caller-supplied running totals the day-scoped rules
// evaluate against, plus the swap protocol the builder resolved for the
// intent. Totals are persisted snapshots read before evaluation; the check is
// best-effort, not linearizable.
type Context struct {
	CurrentDailySpentLamports string
	CurrentDailySpentByAction map[types.IntentAction]string
	ResolvedSwapProtocol      types.SwapProtocol
}

func (c Context) spentFor(action types.IntentAction) *big.Int {
	raw, ok := c.CurrentDailySpentByAction[action]
	if !ok {
		return big.NewInt(0)
	}
	if spent := types.ParseLamports(raw); spent != nil {
		return spent
	}
	return big.NewInt(0)
}

func (c Context) protocolFor(intent *types.ExecutionIntent) types.SwapProtocol {
	if c.ResolvedSwapProtocol != "" && c.ResolvedSwapProtocol != types.SwapProtocolAuto {
		return c.ResolvedSwapProtocol
	}
	return intent.SwapProtocol
}

func rejectRule(record types.PolicyRecord, rule Rule, code reason.Code, checks []string) types.PolicyDecision {
	return types.PolicyDecision{
		Allowed:    false,
		ReasonCode: string(code),
		Checks:     checks,
		Match: &types.PolicyMatchInfo{
			PolicyID:   record.ID.String(),
			PolicyName: record.Name,
			RuleKind:   string(rule.Kind),
			RuleConfig: rule.Config(),
		},
	}
}

// EvaluateAssigned evaluates every rule of every active assigned policy
// against the intent. Policies are conjunctive: the first failing rule in
// iteration order rejects the intent. Zero assigned policies pass by default.
func EvaluateAssigned(intent *types.ExecutionIntent, policies []types.PolicyRecord, evalCtx Context) types.PolicyDecision {
	checks := []string{"assigned_policies"}

	if len(policies) == 0 {
		checks = append(checks, "assigned_policies:none")
		return types.PolicyDecision{Allowed: true, Checks: checks}
	}

	amount := types.ParsePositiveLamports(intent.AmountAtomic)
	if amount == nil {
		return types.PolicyDecision{Allowed: false, ReasonCode: string(reason.PolicyInvalidAmount), Checks: checks}
	}

	for _, record := range policies {
		if record.Status != types.PolicyStatusActive {
			checks = append(checks, fmt.Sprintf("policy:%s:inactive", record.ID))
			continue
		}
		checks = append(checks, fmt.Sprintf("policy:%s:active", record.ID))

		var doc Document
		if err := json.Unmarshal(record.DSL, &doc); err != nil {
			// Fail closed on undecodable documents rather than skipping them.
			return types.PolicyDecision{
				Allowed:      false,
				ReasonCode:   string(reason.PolicyRejected),
				ReasonDetail: fmt.Sprintf("policy %s document is not decodable", record.ID),
				Checks:       checks,
			}
		}

		for _, rule := range doc.Rules {
			checks = append(checks, fmt.Sprintf("rule:%s:%s", rule.Kind, record.ID))

			switch rule.Kind {
			case RuleAllowedActions:
				if !containsAction(rule.Actions, intent.Action) {
					return rejectRule(record, rule, reason.PolicyActionNotAllowed, checks)
				}

			case RuleMaxLamportsPerTx:
				max := types.ParseLamports(rule.LteLamports)
				if max == nil || amount.Cmp(max) > 0 {
					return rejectRule(record, rule, reason.PolicyDslMaxPerTxExceeded, checks)
				}

			case RuleAllowedMints:
				if intent.Action == types.ActionSwap {
					if !contains(rule.Mints, intent.FromMint) || !contains(rule.Mints, intent.ToMint) {
						return rejectRule(record, rule, reason.PolicyMintNotAllowed, checks)
					}
				}
				if intent.Action == types.ActionTransfer && intent.TransferAsset == types.TransferAssetSPL {
					if !contains(rule.Mints, intent.MintAddress) {
						return rejectRule(record, rule, reason.PolicyMintNotAllowed, checks)
					}
				}

			case RuleMaxSlippageBps:
				if intent.Action == types.ActionSwap {
					if !intent.HasSlippage {
						return rejectRule(record, rule, reason.PolicySwapSlippageRequired, checks)
					}
					if intent.MaxSlippageBps > rule.LteBps {
						return rejectRule(record, rule, reason.PolicyMaxSlippageExceeded, checks)
					}
				}

			case RuleAllowedRecipients:
				if intent.Action == types.ActionTransfer && !contains(rule.Addresses, intent.RecipientAddress) {
					return rejectRule(record, rule, reason.PolicyRecipientNotAllowed, checks)
				}

			case RuleBlockedRecipients:
				if intent.Action == types.ActionTransfer && contains(rule.Addresses, intent.RecipientAddress) {
					return rejectRule(record, rule, reason.PolicyRecipientBlocked, checks)
				}

			case RuleAllowedSwapPairs:
				if intent.Action == types.ActionSwap && !containsPair(rule.Pairs, intent.FromMint, intent.ToMint) {
					return rejectRule(record, rule, reason.PolicySwapPairNotAllowed, checks)
				}

			case RuleAllowedSwapProtocols:
				if intent.Action == types.ActionSwap {
					resolved := evalCtx.protocolFor(intent)
					if !containsProtocol(rule.Protocols, resolved) {
						return rejectRule(record, rule, reason.PolicySwapProtocolNotAllowed, checks)
					}
				}

			case RuleMaxLamportsPerDayByAction:
				if intent.Action == rule.Action {
					dayCap := types.ParseLamports(rule.LteLamports)
					projected := new(big.Int).Add(evalCtx.spentFor(intent.Action), amount)
					if dayCap == nil || projected.Cmp(dayCap) > 0 {
						return rejectRule(record, rule, reason.PolicyDslDailyActionCapExceeded, checks)
					}
				}

			case RuleMaxLamportsPerTxByAction:
				if intent.Action == rule.Action {
					max := types.ParseLamports(rule.LteLamports)
					if max == nil || amount.Cmp(max) > 0 {
						return rejectRule(record, rule, reason.PolicyDslMaxPerActionTxExceeded, checks)
					}
				}

			case RuleMaxLamportsPerTxByMint:
				if intent.Action == types.ActionTransfer &&
					intent.TransferAsset == types.TransferAssetSPL &&
					intent.MintAddress == rule.Mint {
					max := types.ParseLamports(rule.LteLamports)
					if max == nil || amount.Cmp(max) > 0 {
						return rejectRule(record, rule, reason.PolicyDslMaxPerMintTxExceeded, checks)
					}
				}

			default:
				// Unknown kinds reach here only through externally-supplied
				// documents; they must reject, never be skipped.
				return rejectRule(record, rule, reason.PolicyRuleNotSupported, checks)
			}
		}
	}

	return types.PolicyDecision{Allowed: true, Checks: checks}
}

func contains(values []string, value string) bool {
	if value == "" {
		return false
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func containsAction(actions []types.IntentAction, action types.IntentAction) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

func containsProtocol(protocols []types.SwapProtocol, protocol types.SwapProtocol) bool {
	for _, p := range protocols {
		if p == protocol {
			return true
		}
	}
	return false
}

func containsPair(pairs []SwapPair, fromMint, toMint string) bool {
	if fromMint == "" || toMint == "" {
		return false
	}
	for _, pair := range pairs {
		if pair.FromMint == fromMint && pair.ToMint == toMint {
			return true
		}
	}
	return false
}

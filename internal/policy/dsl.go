// Package policy implements the owner-configurable rule DSL and the two
// evaluation tiers that gate intent execution: wallet-assigned policies and
// the always-on platform baseline.
package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

const (
	VersionV1 = "aegis.policy.v1"
	VersionV2 = "aegis.policy.v2"
)

type RuleKind string

const (
	RuleAllowedActions            RuleKind = "allowed_actions"
	RuleMaxLamportsPerTx          RuleKind = "max_lamports_per_tx"
	RuleAllowedMints              RuleKind = "allowed_mints"
	RuleMaxSlippageBps            RuleKind = "max_slippage_bps"
	RuleAllowedRecipients         RuleKind = "allowed_recipients"
	RuleBlockedRecipients         RuleKind = "blocked_recipients"
	RuleAllowedSwapPairs          RuleKind = "allowed_swap_pairs"
	RuleAllowedSwapProtocols      RuleKind = "allowed_swap_protocols"
	RuleMaxLamportsPerDayByAction RuleKind = "max_lamports_per_day_by_action"
	RuleMaxLamportsPerTxByAction  RuleKind = "max_lamports_per_tx_by_action"
	RuleMaxLamportsPerTxByMint    RuleKind = "max_lamports_per_tx_by_mint"
)

var v1Kinds = map[RuleKind]struct{}{
	RuleAllowedActions:   {},
	RuleMaxLamportsPerTx: {},
	RuleAllowedMints:     {},
	RuleMaxSlippageBps:   {},
}

var v2Kinds = map[RuleKind]struct{}{
	RuleAllowedActions:            {},
	RuleMaxLamportsPerTx:          {},
	RuleAllowedMints:              {},
	RuleMaxSlippageBps:            {},
	RuleAllowedRecipients:         {},
	RuleBlockedRecipients:         {},
	RuleAllowedSwapPairs:          {},
	RuleAllowedSwapProtocols:      {},
	RuleMaxLamportsPerDayByAction: {},
	RuleMaxLamportsPerTxByAction:  {},
	RuleMaxLamportsPerTxByMint:    {},
}

type SwapPair struct {
	FromMint string `json:"fromMint"`
	ToMint   string `json:"toMint"`
}

// Rule is one self-contained restriction. Kind selects which of the config
// fields apply; the rest stay at their zero value. Unknown kinds are rejected
// at parse time and again at evaluation time (fail closed).
type Rule struct {
	Kind        RuleKind             `json:"kind"`
	Actions     []types.IntentAction `json:"actions,omitempty"`
	LteLamports string               `json:"lteLamports,omitempty"`
	Mints       []string             `json:"mints,omitempty"`
	LteBps      int                  `json:"lteBps,omitempty"`
	Addresses   []string             `json:"addresses,omitempty"`
	Pairs       []SwapPair           `json:"pairs,omitempty"`
	Protocols   []types.SwapProtocol `json:"protocols,omitempty"`
	Action      types.IntentAction   `json:"action,omitempty"`
	Mint        string               `json:"mint,omitempty"`
}

// Config returns the kind-relevant fields of the rule, used to populate
// PolicyMatchInfo on rejection.
func (r Rule) Config() map[string]any {
	switch r.Kind {
	case RuleAllowedActions:
		return map[string]any{"actions": r.Actions}
	case RuleMaxLamportsPerTx:
		return map[string]any{"lteLamports": r.LteLamports}
	case RuleAllowedMints:
		return map[string]any{"mints": r.Mints}
	case RuleMaxSlippageBps:
		return map[string]any{"lteBps": r.LteBps}
	case RuleAllowedRecipients, RuleBlockedRecipients:
		return map[string]any{"addresses": r.Addresses}
	case RuleAllowedSwapPairs:
		return map[string]any{"pairs": r.Pairs}
	case RuleAllowedSwapProtocols:
		return map[string]any{"protocols": r.Protocols}
	case RuleMaxLamportsPerDayByAction, RuleMaxLamportsPerTxByAction:
		return map[string]any{"action": r.Action, "lteLamports": r.LteLamports}
	case RuleMaxLamportsPerTxByMint:
		return map[string]any{"mint": r.Mint, "lteLamports": r.LteLamports}
	}
	return map[string]any{"kind": string(r.Kind)}
}

// Document is a parsed, validated policy DSL document.
type Document struct {
	Version string `json:"version"`
	Rules   []Rule `json:"rules"`
}

// ValidationError collects every field issue found while parsing a document.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "policy dsl validation failed: " + strings.Join(e.Issues, "; ")
}

// Parse decodes and validates a DSL document. It runs at policy create and
// update time, so the evaluation path never sees a malformed document.
func Parse(raw json.RawMessage) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("fail to decode policy dsl, err: %w", err)
	}

	var issues []string
	var allowed map[RuleKind]struct{}
	switch doc.Version {
	case VersionV1:
		allowed = v1Kinds
	case VersionV2:
		allowed = v2Kinds
	default:
		issues = append(issues, fmt.Sprintf("unknown version %q", doc.Version))
	}

	for i, rule := range doc.Rules {
		if allowed != nil {
			if _, ok := allowed[rule.Kind]; !ok {
				issues = append(issues, fmt.Sprintf("rules[%d]: kind %q not supported in %s", i, rule.Kind, doc.Version))
				continue
			}
		}
		issues = append(issues, validateRule(i, rule)...)
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return &doc, nil
}

func validRuleAction(action types.IntentAction) bool {
	return action == types.ActionSwap || action == types.ActionTransfer
}

func validateRule(i int, rule Rule) []string {
	var issues []string
	field := func(name string) string { return fmt.Sprintf("rules[%d].%s", i, name) }

	switch rule.Kind {
	case RuleAllowedActions:
		if len(rule.Actions) == 0 {
			issues = append(issues, field("actions")+": must not be empty")
		}
		for _, action := range rule.Actions {
			if !validRuleAction(action) {
				issues = append(issues, field("actions")+": invalid action "+string(action))
			}
		}
	case RuleMaxLamportsPerTx:
		if types.ParseLamports(rule.LteLamports) == nil {
			issues = append(issues, field("lteLamports")+": must be a non-negative integer string")
		}
	case RuleAllowedMints:
		if len(rule.Mints) == 0 {
			issues = append(issues, field("mints")+": must not be empty")
		}
	case RuleMaxSlippageBps:
		if rule.LteBps < 0 || rule.LteBps > 10000 {
			issues = append(issues, field("lteBps")+": must be within [0,10000]")
		}
	case RuleAllowedRecipients, RuleBlockedRecipients:
		if len(rule.Addresses) == 0 {
			issues = append(issues, field("addresses")+": must not be empty")
		}
	case RuleAllowedSwapPairs:
		if len(rule.Pairs) == 0 {
			issues = append(issues, field("pairs")+": must not be empty")
		}
		for _, pair := range rule.Pairs {
			if pair.FromMint == "" || pair.ToMint == "" {
				issues = append(issues, field("pairs")+": fromMint and toMint are required")
			}
		}
	case RuleAllowedSwapProtocols:
		if len(rule.Protocols) == 0 {
			issues = append(issues, field("protocols")+": must not be empty")
		}
	case RuleMaxLamportsPerDayByAction, RuleMaxLamportsPerTxByAction:
		if !validRuleAction(rule.Action) {
			issues = append(issues, field("action")+": must be swap or transfer")
		}
		if types.ParseLamports(rule.LteLamports) == nil {
			issues = append(issues, field("lteLamports")+": must be a non-negative integer string")
		}
	case RuleMaxLamportsPerTxByMint:
		if rule.Mint == "" {
			issues = append(issues, field("mint")+": required")
		}
		if types.ParseLamports(rule.LteLamports) == nil {
			issues = append(issues, field("lteLamports")+": must be a non-negative integer string")
		}
	}
	return issues
}

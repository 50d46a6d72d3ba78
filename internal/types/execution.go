package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ExecutionStatus string

const (
	ExecutionApproved ExecutionStatus = "approved"
	ExecutionRejected ExecutionStatus = "rejected"
)

// PolicyMatchInfo names the exact assigned-policy rule that caused a
// rejection, for caller diagnostics.
type PolicyMatchInfo struct {
	PolicyID   string         `json:"policyId"`
	PolicyName string         `json:"policyName,omitempty"`
	RuleKind   string         `json:"ruleKind"`
	RuleConfig map[string]any `json:"ruleConfig"`
}

// PolicyDecision is the outcome of one evaluation stage.
type PolicyDecision struct {
	Allowed      bool
	ReasonCode   string
	ReasonDetail string
	Checks       []string
	Match        *PolicyMatchInfo
}

// SignatureResult is what the custody provider returns after a successful
// sign-and-broadcast.
type SignatureResult struct {
	TxSignature  string   `json:"txSignature"`
	TxSignatures []string `json:"txSignatures,omitempty"`
	Provider     string   `json:"provider"`
}

// ExecutionResult is the wire-stable outcome of one pipeline run. The JSON
// shape is a de facto contract for existing HTTP callers.
type ExecutionResult struct {
	Status       ExecutionStatus  `json:"status"`
	Provider     string           `json:"provider,omitempty"`
	TxSignature  string           `json:"txSignature,omitempty"`
	TxSignatures []string         `json:"txSignatures,omitempty"`
	ReasonCode   string           `json:"reasonCode,omitempty"`
	ReasonDetail string           `json:"reasonDetail,omitempty"`
	PolicyChecks []string         `json:"policyChecks"`
	PolicyMatch  *PolicyMatchInfo `json:"policyMatch,omitempty"`
}

// Encode serializes the result for idempotency storage. The output is the
// same JSON shape returned to HTTP callers.
func (r *ExecutionResult) Encode() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(raw)
}

// DecodeExecutionResult parses a stored idempotency payload. A nil result
// means the payload is undecodable and must be treated as absent.
func DecodeExecutionResult(raw string) *ExecutionResult {
	var result ExecutionResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}
	switch result.Status {
	case ExecutionApproved:
		if result.TxSignature == "" || result.Provider == "" {
			return nil
		}
	case ExecutionRejected:
		if result.ReasonCode == "" {
			return nil
		}
	default:
		return nil
	}
	if result.PolicyChecks == nil {
		result.PolicyChecks = []string{}
	}
	return &result
}

type ExecutionLog struct {
	ID           uuid.UUID       `json:"id"`
	AgentID      string          `json:"agent_id"`
	Status       ExecutionStatus `json:"status"`
	ReasonCode   string          `json:"reason_code,omitempty"`
	Provider     string          `json:"provider,omitempty"`
	TxSignature  string          `json:"tx_signature,omitempty"`
	PolicyChecks []string        `json:"policy_checks"`
	CreatedAt    time.Time       `json:"created_at"`
}

type IntentIdempotencyRecord struct {
	ID             uuid.UUID `json:"id"`
	AgentID        string    `json:"agent_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	ResultJSON     string    `json:"result_json"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PolicyStatus string

const (
	PolicyStatusActive   PolicyStatus = "active"
	PolicyStatusDisabled PolicyStatus = "disabled"
	PolicyStatusArchived PolicyStatus = "archived"
)

// PolicyRecord is an owner-authored, versioned rule document restricting
// allowed intents for a wallet. Archived policies are permanently inert;
// disabled policies remain attached but are skipped during evaluation.
type PolicyRecord struct {
	ID           uuid.UUID       `json:"id"`
	OwnerAgentID string          `json:"owner_agent_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Status       PolicyStatus    `json:"status"`
	DSL          json.RawMessage `json:"dsl"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// WalletPolicyAssignment attaches a policy to an agent wallet. Priority is
// used only for presentation order, never for evaluation precedence.
type WalletPolicyAssignment struct {
	ID        uuid.UUID `json:"id"`
	AgentID   string    `json:"agent_id"`
	PolicyID  uuid.UUID `json:"policy_id"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

const DefaultAssignmentPriority = 100

// WalletBinding maps an agent to its custodial wallet.
type WalletBinding struct {
	AgentID       string    `json:"agent_id"`
	WalletRef     string    `json:"wallet_ref"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	Provider      string    `json:"provider"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DailySpendCounter tracks approved spend per agent per UTC day. The value is
// monotonically non-decreasing within a day; rollover happens implicitly when
// the day key changes.
type DailySpendCounter struct {
	AgentID       string    `json:"agent_id"`
	DayKey        string    `json:"day_key"`
	SpentLamports string    `json:"spent_lamports"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type DailyActionSpendCounter struct {
	AgentID       string       `json:"agent_id"`
	DayKey        string       `json:"day_key"`
	Action        IntentAction `json:"action"`
	SpentLamports string       `json:"spent_lamports"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// DayKey returns the UTC day bucket used by the spend counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

type AgentAPIKey struct {
	ID         uuid.UUID `json:"id"`
	AgentID    string    `json:"agent_id"`
	KeyHash    string    `json:"key_hash"`
	Label      string    `json:"label,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

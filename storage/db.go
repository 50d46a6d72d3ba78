package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

// ErrNotFound marks a lookup that matched no record, as opposed to a
// failed read. Callers that fall back to creation must check for it.
var ErrNotFound = errors.New("record not found")

type DatabaseStorage interface {
	Close() error

	GetPolicy(ctx context.Context, id uuid.UUID) (types.PolicyRecord, error)
	GetPoliciesByOwner(ctx context.Context, ownerAgentID string) ([]types.PolicyRecord, error)
	InsertPolicy(ctx context.Context, policy types.PolicyRecord) (types.PolicyRecord, error)
	UpdatePolicy(ctx context.Context, policy types.PolicyRecord) (types.PolicyRecord, error)

	AssignPolicy(ctx context.Context, assignment types.WalletPolicyAssignment) (types.WalletPolicyAssignment, error)
	UnassignPolicy(ctx context.Context, agentID string, policyID uuid.UUID) error
	GetAssignedPolicies(ctx context.Context, agentID string) ([]types.PolicyRecord, error)
	GetAssignments(ctx context.Context, agentID string) ([]types.WalletPolicyAssignment, error)
	GetPolicyAssignedAgents(ctx context.Context, policyID uuid.UUID) ([]string, error)

	GetWalletBinding(ctx context.Context, agentID string) (types.WalletBinding, error)
	UpsertWalletBinding(ctx context.Context, binding types.WalletBinding) (types.WalletBinding, error)

	GetDailySpend(ctx context.Context, agentID, dayKey string) (string, error)
	GetDailyActionSpend(ctx context.Context, agentID, dayKey string, action types.IntentAction) (string, error)
	AddDailySpend(ctx context.Context, agentID, dayKey, lamports string) error
	AddDailyActionSpend(ctx context.Context, agentID, dayKey string, action types.IntentAction, lamports string) error

	FindIdempotencyRecord(ctx context.Context, agentID, idempotencyKey string) (*types.IntentIdempotencyRecord, error)
	SaveIdempotencyRecord(ctx context.Context, agentID, idempotencyKey, resultJSON string) error

	InsertExecutionLog(ctx context.Context, log types.ExecutionLog) (types.ExecutionLog, error)
	GetExecutionLog(ctx context.Context, id uuid.UUID) (types.ExecutionLog, error)
	GetExecutionLogs(ctx context.Context, agentID string, take, skip int) ([]types.ExecutionLog, error)

	GetAgentAPIKeyByHash(ctx context.Context, keyHash string) (types.AgentAPIKey, error)
	InsertAgentAPIKey(ctx context.Context, key types.AgentAPIKey) (types.AgentAPIKey, error)

	Pool() *pgxpool.Pool
}

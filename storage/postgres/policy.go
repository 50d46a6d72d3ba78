package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

func (p *PostgresBackend) InsertPolicy(ctx context.Context, policy types.PolicyRecord) (types.PolicyRecord, error) {
	if p.pool == nil {
		return types.PolicyRecord{}, fmt.Errorf("database pool is nil")
	}

	query := `INSERT INTO policies
	(id, owner_agent_id, name, description, status, dsl)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, owner_agent_id, name, description, status, dsl, created_at, updated_at
	`

	var inserted types.PolicyRecord
	err := p.pool.QueryRow(ctx, query, policy.ID, policy.OwnerAgentID, policy.Name, policy.Description, policy.Status, policy.DSL).Scan(
		&inserted.ID,
		&inserted.OwnerAgentID,
		&inserted.Name,
		&inserted.Description,
		&inserted.Status,
		&inserted.DSL,
		&inserted.CreatedAt,
		&inserted.UpdatedAt,
	)
	if err != nil {
		return types.PolicyRecord{}, err
	}

	return inserted, nil
}

func (p *PostgresBackend) UpdatePolicy(ctx context.Context, policy types.PolicyRecord) (types.PolicyRecord, error) {
	if p.pool == nil {
		return types.PolicyRecord{}, fmt.Errorf("database pool is nil")
	}

	query := `UPDATE policies
	SET name = $2, description = $3, status = $4, dsl = $5, updated_at = now()
	WHERE id = $1
	RETURNING id, owner_agent_id, name, description, status, dsl, created_at, updated_at
	`

	var updated types.PolicyRecord
	err := p.pool.QueryRow(ctx, query, policy.ID, policy.Name, policy.Description, policy.Status, policy.DSL).Scan(
		&updated.ID,
		&updated.OwnerAgentID,
		&updated.Name,
		&updated.Description,
		&updated.Status,
		&updated.DSL,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	if err != nil {
		return types.PolicyRecord{}, err
	}

	return updated, nil
}

func (p *PostgresBackend) GetPolicy(ctx context.Context, id uuid.UUID) (types.PolicyRecord, error) {
	if p.pool == nil {
		return types.PolicyRecord{}, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT id, owner_agent_id, name, description, status, dsl, created_at, updated_at
        FROM policies
        WHERE id = $1`

	var policy types.PolicyRecord
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&policy.ID,
		&policy.OwnerAgentID,
		&policy.Name,
		&policy.Description,
		&policy.Status,
		&policy.DSL,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		return types.PolicyRecord{}, fmt.Errorf("failed to get policy: %w", err)
	}

	return policy, nil
}

func (p *PostgresBackend) GetPoliciesByOwner(ctx context.Context, ownerAgentID string) ([]types.PolicyRecord, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT id, owner_agent_id, name, description, status, dsl, created_at, updated_at
        FROM policies
        WHERE owner_agent_id = $1
        ORDER BY created_at`

	rows, err := p.pool.Query(ctx, query, ownerAgentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []types.PolicyRecord
	for rows.Next() {
		var policy types.PolicyRecord
		err := rows.Scan(
			&policy.ID,
			&policy.OwnerAgentID,
			&policy.Name,
			&policy.Description,
			&policy.Status,
			&policy.DSL,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}

	return policies, nil
}

func (p *PostgresBackend) AssignPolicy(ctx context.Context, assignment types.WalletPolicyAssignment) (types.WalletPolicyAssignment, error) {
	if p.pool == nil {
		return types.WalletPolicyAssignment{}, fmt.Errorf("database pool is nil")
	}

	query := `INSERT INTO wallet_policy_assignments
	(id, agent_id, policy_id, priority)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (agent_id, policy_id) DO UPDATE SET priority = EXCLUDED.priority
	RETURNING id, agent_id, policy_id, priority, created_at
	`

	var saved types.WalletPolicyAssignment
	err := p.pool.QueryRow(ctx, query, assignment.ID, assignment.AgentID, assignment.PolicyID, assignment.Priority).Scan(
		&saved.ID,
		&saved.AgentID,
		&saved.PolicyID,
		&saved.Priority,
		&saved.CreatedAt,
	)
	if err != nil {
		return types.WalletPolicyAssignment{}, err
	}

	return saved, nil
}

func (p *PostgresBackend) UnassignPolicy(ctx context.Context, agentID string, policyID uuid.UUID) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	_, err := p.pool.Exec(ctx, `
		DELETE FROM wallet_policy_assignments
		WHERE agent_id = $1 AND policy_id = $2
	`, agentID, policyID)
	if err != nil {
		return fmt.Errorf("failed to unassign policy: %w", err)
	}

	return nil
}

// GetAssignedPolicies loads every policy attached to an agent wallet,
// archived ones excluded. Ordering follows assignment priority and is for
// presentation only.
func (p *PostgresBackend) GetAssignedPolicies(ctx context.Context, agentID string) ([]types.PolicyRecord, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT p.id, p.owner_agent_id, p.name, p.description, p.status, p.dsl, p.created_at, p.updated_at
        FROM policies p
        JOIN wallet_policy_assignments a ON a.policy_id = p.id
        WHERE a.agent_id = $1
        AND p.status != 'archived'
        ORDER BY a.priority, a.created_at`

	rows, err := p.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []types.PolicyRecord
	for rows.Next() {
		var policy types.PolicyRecord
		err := rows.Scan(
			&policy.ID,
			&policy.OwnerAgentID,
			&policy.Name,
			&policy.Description,
			&policy.Status,
			&policy.DSL,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}

	return policies, nil
}

func (p *PostgresBackend) GetAssignments(ctx context.Context, agentID string) ([]types.WalletPolicyAssignment, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT id, agent_id, policy_id, priority, created_at
        FROM wallet_policy_assignments
        WHERE agent_id = $1
        ORDER BY priority, created_at`

	rows, err := p.pool.Query(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []types.WalletPolicyAssignment
	for rows.Next() {
		var assignment types.WalletPolicyAssignment
		err := rows.Scan(
			&assignment.ID,
			&assignment.AgentID,
			&assignment.PolicyID,
			&assignment.Priority,
			&assignment.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	return assignments, nil
}

func (p *PostgresBackend) GetPolicyAssignedAgents(ctx context.Context, policyID uuid.UUID) ([]string, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT DISTINCT agent_id
        FROM wallet_policy_assignments
        WHERE policy_id = $1`

	rows, err := p.pool.Query(ctx, query, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agentIDs []string
	for rows.Next() {
		var agentID string
		if err := rows.Scan(&agentID); err != nil {
			return nil, err
		}
		agentIDs = append(agentIDs, agentID)
	}

	return agentIDs, nil
}

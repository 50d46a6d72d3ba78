package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

func (p *PostgresBackend) InsertExecutionLog(ctx context.Context, log types.ExecutionLog) (types.ExecutionLog, error) {
	if p.pool == nil {
		return types.ExecutionLog{}, fmt.Errorf("database pool is nil")
	}

	checksJSON, err := json.Marshal(log.PolicyChecks)
	if err != nil {
		return types.ExecutionLog{}, fmt.Errorf("failed to marshal policy checks: %w", err)
	}

	query := `INSERT INTO execution_logs
	(id, agent_id, status, reason_code, provider, tx_signature, policy_checks)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, agent_id, status, reason_code, provider, tx_signature, policy_checks, created_at
	`

	var saved types.ExecutionLog
	var savedChecks []byte
	err = p.pool.QueryRow(ctx, query, log.ID, log.AgentID, log.Status, log.ReasonCode, log.Provider, log.TxSignature, checksJSON).Scan(
		&saved.ID,
		&saved.AgentID,
		&saved.Status,
		&saved.ReasonCode,
		&saved.Provider,
		&saved.TxSignature,
		&savedChecks,
		&saved.CreatedAt,
	)
	if err != nil {
		return types.ExecutionLog{}, err
	}
	if err := json.Unmarshal(savedChecks, &saved.PolicyChecks); err != nil {
		return types.ExecutionLog{}, fmt.Errorf("failed to unmarshal policy checks: %w", err)
	}

	return saved, nil
}

func (p *PostgresBackend) GetExecutionLog(ctx context.Context, id uuid.UUID) (types.ExecutionLog, error) {
	if p.pool == nil {
		return types.ExecutionLog{}, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT id, agent_id, status, reason_code, provider, tx_signature, policy_checks, created_at
        FROM execution_logs
        WHERE id = $1`

	var log types.ExecutionLog
	var checksJSON []byte
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&log.ID,
		&log.AgentID,
		&log.Status,
		&log.ReasonCode,
		&log.Provider,
		&log.TxSignature,
		&checksJSON,
		&log.CreatedAt,
	)
	if err != nil {
		return types.ExecutionLog{}, fmt.Errorf("failed to get execution log: %w", err)
	}
	if err := json.Unmarshal(checksJSON, &log.PolicyChecks); err != nil {
		return types.ExecutionLog{}, fmt.Errorf("failed to unmarshal policy checks: %w", err)
	}

	return log, nil
}

func (p *PostgresBackend) GetExecutionLogs(ctx context.Context, agentID string, take, skip int) ([]types.ExecutionLog, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT id, agent_id, status, reason_code, provider, tx_signature, policy_checks, created_at
        FROM execution_logs
        WHERE agent_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := p.pool.Query(ctx, query, agentID, take, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []types.ExecutionLog
	for rows.Next() {
		var log types.ExecutionLog
		var checksJSON []byte
		err := rows.Scan(
			&log.ID,
			&log.AgentID,
			&log.Status,
			&log.ReasonCode,
			&log.Provider,
			&log.TxSignature,
			&checksJSON,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(checksJSON, &log.PolicyChecks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy checks: %w", err)
		}
		logs = append(logs, log)
	}

	return logs, nil
}

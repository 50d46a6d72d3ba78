package postgres

import (
	"context"
	"fmt"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

func (p *PostgresBackend) GetAgentAPIKeyByHash(ctx context.Context, keyHash string) (types.AgentAPIKey, error) {
	if p.pool == nil {
		return types.AgentAPIKey{}, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT id, agent_id, key_hash, label, status, created_at, COALESCE(last_used_at, 'epoch'::timestamptz)
        FROM agent_api_keys
        WHERE key_hash = $1 AND status = 'active'`

	var key types.AgentAPIKey
	err := p.pool.QueryRow(ctx, query, keyHash).Scan(
		&key.ID,
		&key.AgentID,
		&key.KeyHash,
		&key.Label,
		&key.Status,
		&key.CreatedAt,
		&key.LastUsedAt,
	)
	if err != nil {
		return types.AgentAPIKey{}, fmt.Errorf("failed to get agent api key: %w", err)
	}

	// best effort, lookups must not fail on this
	_, _ = p.pool.Exec(ctx, `UPDATE agent_api_keys SET last_used_at = now() WHERE id = $1`, key.ID)

	return key, nil
}

func (p *PostgresBackend) InsertAgentAPIKey(ctx context.Context, key types.AgentAPIKey) (types.AgentAPIKey, error) {
	if p.pool == nil {
		return types.AgentAPIKey{}, fmt.Errorf("database pool is nil")
	}

	query := `INSERT INTO agent_api_keys
	(id, agent_id, key_hash, label, status)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, agent_id, key_hash, label, status, created_at
	`

	var saved types.AgentAPIKey
	err := p.pool.QueryRow(ctx, query, key.ID, key.AgentID, key.KeyHash, key.Label, key.Status).Scan(
		&saved.ID,
		&saved.AgentID,
		&saved.KeyHash,
		&saved.Label,
		&saved.Status,
		&saved.CreatedAt,
	)
	if err != nil {
		return types.AgentAPIKey{}, err
	}

	return saved, nil
}

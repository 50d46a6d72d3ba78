package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

func (p *PostgresBackend) FindIdempotencyRecord(ctx context.Context, agentID, idempotencyKey string) (*types.IntentIdempotencyRecord, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT id, agent_id, idempotency_key, result_json, created_at, updated_at
        FROM intent_idempotency_records
        WHERE agent_id = $1 AND idempotency_key = $2`

	var record types.IntentIdempotencyRecord
	err := p.pool.QueryRow(ctx, query, agentID, idempotencyKey).Scan(
		&record.ID,
		&record.AgentID,
		&record.IdempotencyKey,
		&record.ResultJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find idempotency record: %w", err)
	}

	return &record, nil
}

// SaveIdempotencyRecord stores the terminal result for a key, replacing any
// earlier (possibly undecodable) payload.
func (p *PostgresBackend) SaveIdempotencyRecord(ctx context.Context, agentID, idempotencyKey, resultJSON string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO intent_idempotency_records (id, agent_id, idempotency_key, result_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (agent_id, idempotency_key) DO UPDATE
		SET result_json = EXCLUDED.result_json,
		    updated_at = now()
	`, uuid.New(), agentID, idempotencyKey, resultJSON)
	if err != nil {
		return fmt.Errorf("failed to save idempotency record: %w", err)
	}

	return nil
}

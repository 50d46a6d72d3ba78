package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

// GetDailySpend returns the lamports already approved for the agent in the
// given UTC day, "0" when no counter exists yet.
func (p *PostgresBackend) GetDailySpend(ctx context.Context, agentID, dayKey string) (string, error) {
	if p.pool == nil {
		return "", fmt.Errorf("database pool is nil")
	}

	var spent string
	err := p.pool.QueryRow(ctx, `
        SELECT spent_lamports::text
        FROM daily_spend_counters
        WHERE agent_id = $1 AND day_key = $2`, agentID, dayKey).Scan(&spent)
	if errors.Is(err, pgx.ErrNoRows) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get daily spend: %w", err)
	}

	return spent, nil
}

func (p *PostgresBackend) GetDailyActionSpend(ctx context.Context, agentID, dayKey string, action types.IntentAction) (string, error) {
	if p.pool == nil {
		return "", fmt.Errorf("database pool is nil")
	}

	var spent string
	err := p.pool.QueryRow(ctx, `
        SELECT spent_lamports::text
        FROM daily_action_spend_counters
        WHERE agent_id = $1 AND day_key = $2 AND action = $3`, agentID, dayKey, action).Scan(&spent)
	if errors.Is(err, pgx.ErrNoRows) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get daily action spend: %w", err)
	}

	return spent, nil
}

// AddDailySpend increments the per-day counter in a single statement so
// concurrent commits never lose an update.
func (p *PostgresBackend) AddDailySpend(ctx context.Context, agentID, dayKey, lamports string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO daily_spend_counters (agent_id, day_key, spent_lamports, updated_at)
		VALUES ($1, $2, $3::numeric, now())
		ON CONFLICT (agent_id, day_key) DO UPDATE
		SET spent_lamports = daily_spend_counters.spent_lamports + EXCLUDED.spent_lamports,
		    updated_at = now()
	`, agentID, dayKey, lamports)
	if err != nil {
		return fmt.Errorf("failed to add daily spend: %w", err)
	}

	return nil
}

func (p *PostgresBackend) AddDailyActionSpend(ctx context.Context, agentID, dayKey string, action types.IntentAction, lamports string) error {
	if p.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO daily_action_spend_counters (agent_id, day_key, action, spent_lamports, updated_at)
		VALUES ($1, $2, $3, $4::numeric, now())
		ON CONFLICT (agent_id, day_key, action) DO UPDATE
		SET spent_lamports = daily_action_spend_counters.spent_lamports + EXCLUDED.spent_lamports,
		    updated_at = now()
	`, agentID, dayKey, action, lamports)
	if err != nil {
		return fmt.Errorf("failed to add daily action spend: %w", err)
	}

	return nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"
)

func (p *PostgresBackend) GetWalletBinding(ctx context.Context, agentID string) (types.WalletBinding, error) {
	if p.pool == nil {
		return types.WalletBinding{}, fmt.Errorf("database pool is nil")
	}

	query := `
        SELECT agent_id, wallet_ref, wallet_address, provider, updated_at
        FROM wallet_bindings
        WHERE agent_id = $1`

	var binding types.WalletBinding
	err := p.pool.QueryRow(ctx, query, agentID).Scan(
		&binding.AgentID,
		&binding.WalletRef,
		&binding.WalletAddress,
		&binding.Provider,
		&binding.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.WalletBinding{}, fmt.Errorf("wallet binding for agent %s: %w", agentID, storage.ErrNotFound)
	}
	if err != nil {
		return types.WalletBinding{}, fmt.Errorf("failed to get wallet binding: %w", err)
	}

	return binding, nil
}

func (p *PostgresBackend) UpsertWalletBinding(ctx context.Context, binding types.WalletBinding) (types.WalletBinding, error) {
	if p.pool == nil {
		return types.WalletBinding{}, fmt.Errorf("database pool is nil")
	}

	query := `INSERT INTO wallet_bindings
	(agent_id, wallet_ref, wallet_address, provider, updated_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (agent_id) DO UPDATE
	SET wallet_ref = EXCLUDED.wallet_ref,
	    wallet_address = EXCLUDED.wallet_address,
	    provider = EXCLUDED.provider,
	    updated_at = now()
	RETURNING agent_id, wallet_ref, wallet_address, provider, updated_at
	`

	var saved types.WalletBinding
	err := p.pool.QueryRow(ctx, query, binding.AgentID, binding.WalletRef, binding.WalletAddress, binding.Provider).Scan(
		&saved.AgentID,
		&saved.WalletRef,
		&saved.WalletAddress,
		&saved.Provider,
		&saved.UpdatedAt,
	)
	if err != nil {
		return types.WalletBinding{}, err
	}

	return saved, nil
}

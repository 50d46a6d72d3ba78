package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fido1hn/agentic-autonomous-wallets/config"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

const (
	walletBindingCacheTTL  = 5 * time.Minute
	assignedPolicyCacheTTL = 30 * time.Second
)

// RedisStorage caches wallet bindings and assigned-policy lists in front of
// postgres. A cache miss is never an error; callers fall through to the
// database.
type RedisStorage struct {
	cfg    config.Config
	client *redis.Client
}

func NewRedisStorage(cfg config.Config) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	status := client.Ping(context.Background())
	if status.Err() != nil {
		return nil, status.Err()
	}
	return &RedisStorage{
		cfg:    cfg,
		client: client,
	}, nil
}

func walletBindingKey(agentID string) string {
	return "wallet_binding:" + agentID
}

func assignedPoliciesKey(agentID string) string {
	return "assigned_policies:" + agentID
}

func (r *RedisStorage) SetWalletBinding(ctx context.Context, binding types.WalletBinding) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	bindingJSON, err := json.Marshal(binding)
	if err != nil {
		return fmt.Errorf("fail to serialize wallet binding to json, err: %w", err)
	}
	return r.client.Set(ctx, walletBindingKey(binding.AgentID), string(bindingJSON), walletBindingCacheTTL).Err()
}

func (r *RedisStorage) GetWalletBinding(ctx context.Context, agentID string) (*types.WalletBinding, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	bindingJSON, err := r.client.Get(ctx, walletBindingKey(agentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to get wallet binding cache item, err: %w", err)
	}
	var binding types.WalletBinding
	if err := json.Unmarshal([]byte(bindingJSON), &binding); err != nil {
		return nil, fmt.Errorf("fail to deserialize wallet binding, err: %w", err)
	}
	return &binding, nil
}

func (r *RedisStorage) SetAssignedPolicies(ctx context.Context, agentID string, policies []types.PolicyRecord) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	policiesJSON, err := json.Marshal(policies)
	if err != nil {
		return fmt.Errorf("fail to serialize assigned policies to json, err: %w", err)
	}
	return r.client.Set(ctx, assignedPoliciesKey(agentID), string(policiesJSON), assignedPolicyCacheTTL).Err()
}

func (r *RedisStorage) GetAssignedPolicies(ctx context.Context, agentID string) ([]types.PolicyRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	policiesJSON, err := r.client.Get(ctx, assignedPoliciesKey(agentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("fail to get assigned policies cache item, err: %w", err)
	}
	var policies []types.PolicyRecord
	if err := json.Unmarshal([]byte(policiesJSON), &policies); err != nil {
		return nil, fmt.Errorf("fail to deserialize assigned policies, err: %w", err)
	}
	return policies, nil
}

// InvalidateAgent drops every cached entry for an agent after a policy or
// assignment write.
func (r *RedisStorage) InvalidateAgent(ctx context.Context, agentID string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return r.client.Del(ctx, walletBindingKey(agentID), assignedPoliciesKey(agentID)).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

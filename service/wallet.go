package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"
)

// WalletProvisioner creates a custodial wallet for an agent. Implemented by
// the custody provider.
type WalletProvisioner interface {
	Name() string
	CreateWallet(ctx context.Context, agentID string) (walletRef, walletAddress string, err error)
}

// BindingCache is the optional read-through cache for wallet bindings.
type BindingCache interface {
	GetWalletBinding(ctx context.Context, agentID string) (*types.WalletBinding, error)
	SetWalletBinding(ctx context.Context, binding types.WalletBinding) error
}

type Wallet interface {
	GetOrCreateWallet(ctx context.Context, agentID string) (types.WalletBinding, error)
}

type WalletService struct {
	db          storage.DatabaseStorage
	cache       BindingCache
	provisioner WalletProvisioner
	logger      *logrus.Logger
}

func NewWalletService(db storage.DatabaseStorage, cache BindingCache, provisioner WalletProvisioner, logger *logrus.Logger) (*WalletService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	if provisioner == nil {
		return nil, fmt.Errorf("wallet provisioner cannot be nil")
	}
	return &WalletService{
		db:          db,
		cache:       cache,
		provisioner: provisioner,
		logger:      logger,
	}, nil
}

// GetOrCreateWallet returns the agent's wallet binding, provisioning one
// through the custody provider when none exists yet. Provider-side
// idempotency makes concurrent first calls converge on the same wallet.
func (s *WalletService) GetOrCreateWallet(ctx context.Context, agentID string) (types.WalletBinding, error) {
	if agentID == "" {
		return types.WalletBinding{}, fmt.Errorf("agent id is required")
	}

	if s.cache != nil {
		if cached, err := s.cache.GetWalletBinding(ctx, agentID); err == nil && cached != nil {
			return *cached, nil
		}
	}

	binding, err := s.db.GetWalletBinding(ctx, agentID)
	if err == nil {
		s.cacheBinding(ctx, binding)
		return binding, nil
	}
	// Only a confirmed miss falls through to provisioning. A failed read
	// must not overwrite a binding that may exist.
	if !errors.Is(err, storage.ErrNotFound) {
		return types.WalletBinding{}, fmt.Errorf("failed to get wallet binding: %w", err)
	}

	walletRef, walletAddress, err := s.provisioner.CreateWallet(ctx, agentID)
	if err != nil {
		return types.WalletBinding{}, fmt.Errorf("failed to provision wallet: %w", err)
	}

	binding, err = s.db.UpsertWalletBinding(ctx, types.WalletBinding{
		AgentID:       agentID,
		WalletRef:     walletRef,
		WalletAddress: walletAddress,
		Provider:      s.provisioner.Name(),
	})
	if err != nil {
		return types.WalletBinding{}, fmt.Errorf("failed to save wallet binding: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"agent_id":   agentID,
		"wallet_ref": walletRef,
		"provider":   s.provisioner.Name(),
	}).Info("wallet provisioned")

	s.cacheBinding(ctx, binding)
	return binding, nil
}

func (s *WalletService) cacheBinding(ctx context.Context, binding types.WalletBinding) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetWalletBinding(ctx, binding); err != nil {
		s.logger.WithField("agent_id", binding.AgentID).WithError(err).Warn("fail to cache wallet binding")
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/policy"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"
)

// PolicyCache is the optional read-through cache in front of the assigned
// policy lookups. All methods are best effort.
type PolicyCache interface {
	GetAssignedPolicies(ctx context.Context, agentID string) ([]types.PolicyRecord, error)
	SetAssignedPolicies(ctx context.Context, agentID string, policies []types.PolicyRecord) error
	InvalidateAgent(ctx context.Context, agentID string) error
}

type Policy interface {
	CreatePolicy(ctx context.Context, ownerAgentID, name, description string, dsl json.RawMessage) (types.PolicyRecord, error)
	UpdatePolicy(ctx context.Context, id uuid.UUID, name, description string, status types.PolicyStatus, dsl json.RawMessage) (types.PolicyRecord, error)
	ArchivePolicy(ctx context.Context, id uuid.UUID) error
	GetPolicy(ctx context.Context, id uuid.UUID) (types.PolicyRecord, error)
	ListPolicies(ctx context.Context, ownerAgentID string) ([]types.PolicyRecord, error)
	AssignPolicy(ctx context.Context, agentID string, policyID uuid.UUID, priority int) (types.WalletPolicyAssignment, error)
	UnassignPolicy(ctx context.Context, agentID string, policyID uuid.UUID) error
	ListAgentWalletPolicies(ctx context.Context, agentID string) ([]types.PolicyRecord, error)
	ListAssignments(ctx context.Context, agentID string) ([]types.WalletPolicyAssignment, error)
}

type PolicyService struct {
	db     storage.DatabaseStorage
	cache  PolicyCache
	logger *logrus.Logger
}

func NewPolicyService(db storage.DatabaseStorage, cache PolicyCache, logger *logrus.Logger) (*PolicyService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	return &PolicyService{
		db:     db,
		cache:  cache,
		logger: logger,
	}, nil
}

// CreatePolicy validates the DSL document before anything touches the
// database, so the evaluation path never sees a malformed document.
func (s *PolicyService) CreatePolicy(ctx context.Context, ownerAgentID, name, description string, dsl json.RawMessage) (types.PolicyRecord, error) {
	if ownerAgentID == "" {
		return types.PolicyRecord{}, fmt.Errorf("owner agent id is required")
	}
	if name == "" {
		return types.PolicyRecord{}, fmt.Errorf("policy name is required")
	}
	if _, err := policy.Parse(dsl); err != nil {
		return types.PolicyRecord{}, fmt.Errorf("invalid policy document: %w", err)
	}

	record := types.PolicyRecord{
		ID:           uuid.New(),
		OwnerAgentID: ownerAgentID,
		Name:         name,
		Description:  description,
		Status:       types.PolicyStatusActive,
		DSL:          dsl,
	}

	created, err := s.db.InsertPolicy(ctx, record)
	if err != nil {
		return types.PolicyRecord{}, fmt.Errorf("failed to insert policy: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"policy_id": created.ID,
		"owner":     ownerAgentID,
	}).Info("policy created")

	return created, nil
}

func (s *PolicyService) UpdatePolicy(ctx context.Context, id uuid.UUID, name, description string, status types.PolicyStatus, dsl json.RawMessage) (types.PolicyRecord, error) {
	existing, err := s.db.GetPolicy(ctx, id)
	if err != nil {
		return types.PolicyRecord{}, fmt.Errorf("failed to get policy: %w", err)
	}
	if existing.Status == types.PolicyStatusArchived {
		return types.PolicyRecord{}, fmt.Errorf("archived policies cannot be updated")
	}

	switch status {
	case types.PolicyStatusActive, types.PolicyStatusDisabled, types.PolicyStatusArchived:
	case "":
		status = existing.Status
	default:
		return types.PolicyRecord{}, fmt.Errorf("unknown policy status %q", status)
	}

	if name == "" {
		name = existing.Name
	}
	if dsl == nil {
		dsl = existing.DSL
	} else if _, err := policy.Parse(dsl); err != nil {
		return types.PolicyRecord{}, fmt.Errorf("invalid policy document: %w", err)
	}

	existing.Name = name
	existing.Description = description
	existing.Status = status
	existing.DSL = dsl

	updated, err := s.db.UpdatePolicy(ctx, existing)
	if err != nil {
		return types.PolicyRecord{}, fmt.Errorf("failed to update policy: %w", err)
	}

	s.invalidatePolicyCaches(ctx, updated.OwnerAgentID, updated.ID)
	return updated, nil
}

// ArchivePolicy makes a policy permanently inert. Assignments are kept so
// history remains traceable, but the evaluation path excludes archived
// policies.
func (s *PolicyService) ArchivePolicy(ctx context.Context, id uuid.UUID) error {
	existing, err := s.db.GetPolicy(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get policy: %w", err)
	}
	existing.Status = types.PolicyStatusArchived
	if _, err := s.db.UpdatePolicy(ctx, existing); err != nil {
		return fmt.Errorf("failed to archive policy: %w", err)
	}
	s.invalidatePolicyCaches(ctx, existing.OwnerAgentID, existing.ID)
	return nil
}

func (s *PolicyService) GetPolicy(ctx context.Context, id uuid.UUID) (types.PolicyRecord, error) {
	return s.db.GetPolicy(ctx, id)
}

func (s *PolicyService) ListPolicies(ctx context.Context, ownerAgentID string) ([]types.PolicyRecord, error) {
	return s.db.GetPoliciesByOwner(ctx, ownerAgentID)
}

func (s *PolicyService) AssignPolicy(ctx context.Context, agentID string, policyID uuid.UUID, priority int) (types.WalletPolicyAssignment, error) {
	record, err := s.db.GetPolicy(ctx, policyID)
	if err != nil {
		return types.WalletPolicyAssignment{}, fmt.Errorf("failed to get policy: %w", err)
	}
	if record.Status == types.PolicyStatusArchived {
		return types.WalletPolicyAssignment{}, fmt.Errorf("archived policies cannot be assigned")
	}
	if priority == 0 {
		priority = types.DefaultAssignmentPriority
	}

	assignment, err := s.db.AssignPolicy(ctx, types.WalletPolicyAssignment{
		ID:       uuid.New(),
		AgentID:  agentID,
		PolicyID: policyID,
		Priority: priority,
	})
	if err != nil {
		return types.WalletPolicyAssignment{}, fmt.Errorf("failed to assign policy: %w", err)
	}

	s.invalidateAgentCache(ctx, agentID)
	return assignment, nil
}

func (s *PolicyService) UnassignPolicy(ctx context.Context, agentID string, policyID uuid.UUID) error {
	if err := s.db.UnassignPolicy(ctx, agentID, policyID); err != nil {
		return err
	}
	s.invalidateAgentCache(ctx, agentID)
	return nil
}

// ListAgentWalletPolicies returns the non-archived policies attached to an
// agent wallet, cache first.
func (s *PolicyService) ListAgentWalletPolicies(ctx context.Context, agentID string) ([]types.PolicyRecord, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetAssignedPolicies(ctx, agentID); err == nil {
			return cached, nil
		}
	}

	policies, err := s.db.GetAssignedPolicies(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assigned policies: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetAssignedPolicies(ctx, agentID, policies); err != nil {
			s.logger.WithField("agent_id", agentID).WithError(err).Warn("fail to cache assigned policies")
		}
	}

	return policies, nil
}

func (s *PolicyService) ListAssignments(ctx context.Context, agentID string) ([]types.WalletPolicyAssignment, error) {
	return s.db.GetAssignments(ctx, agentID)
}

func (s *PolicyService) invalidateAgentCache(ctx context.Context, agentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAgent(ctx, agentID); err != nil {
		s.logger.WithField("agent_id", agentID).WithError(err).Warn("fail to invalidate agent cache")
	}
}

// invalidatePolicyCaches drops cached assigned-policy lists for the owner
// and for every agent the changed policy is attached to.
func (s *PolicyService) invalidatePolicyCaches(ctx context.Context, ownerAgentID string, policyID uuid.UUID) {
	s.invalidateAgentCache(ctx, ownerAgentID)

	agentIDs, err := s.db.GetPolicyAssignedAgents(ctx, policyID)
	if err != nil {
		s.logger.WithField("policy_id", policyID).WithError(err).Warn("fail to list assigned agents for cache invalidation")
		return
	}
	for _, agentID := range agentIDs {
		if agentID == ownerAgentID {
			continue
		}
		s.invalidateAgentCache(ctx, agentID)
	}
}

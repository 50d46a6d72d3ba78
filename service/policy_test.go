package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"
)

const validPolicyDSL = `{"version":"aegis.policy.v1","rules":[{"kind":"max_lamports_per_tx","lteLamports":"1000000"}]}`

type policyMemDB struct {
	storage.DatabaseStorage

	policies    map[uuid.UUID]types.PolicyRecord
	assignments map[string][]types.WalletPolicyAssignment
}

func newPolicyMemDB() *policyMemDB {
	return &policyMemDB{
		policies:    map[uuid.UUID]types.PolicyRecord{},
		assignments: map[string][]types.WalletPolicyAssignment{},
	}
}

func (m *policyMemDB) GetPolicy(_ context.Context, id uuid.UUID) (types.PolicyRecord, error) {
	record, ok := m.policies[id]
	if !ok {
		return types.PolicyRecord{}, fmt.Errorf("policy %s not found", id)
	}
	return record, nil
}

func (m *policyMemDB) GetPoliciesByOwner(_ context.Context, ownerAgentID string) ([]types.PolicyRecord, error) {
	var records []types.PolicyRecord
	for _, record := range m.policies {
		if record.OwnerAgentID == ownerAgentID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (m *policyMemDB) InsertPolicy(_ context.Context, record types.PolicyRecord) (types.PolicyRecord, error) {
	m.policies[record.ID] = record
	return record, nil
}

func (m *policyMemDB) UpdatePolicy(_ context.Context, record types.PolicyRecord) (types.PolicyRecord, error) {
	if _, ok := m.policies[record.ID]; !ok {
		return types.PolicyRecord{}, fmt.Errorf("policy %s not found", record.ID)
	}
	m.policies[record.ID] = record
	return record, nil
}

func (m *policyMemDB) AssignPolicy(_ context.Context, assignment types.WalletPolicyAssignment) (types.WalletPolicyAssignment, error) {
	m.assignments[assignment.AgentID] = append(m.assignments[assignment.AgentID], assignment)
	return assignment, nil
}

func (m *policyMemDB) UnassignPolicy(_ context.Context, agentID string, policyID uuid.UUID) error {
	kept := m.assignments[agentID][:0]
	for _, assignment := range m.assignments[agentID] {
		if assignment.PolicyID != policyID {
			kept = append(kept, assignment)
		}
	}
	m.assignments[agentID] = kept
	return nil
}

func (m *policyMemDB) GetAssignedPolicies(_ context.Context, agentID string) ([]types.PolicyRecord, error) {
	var records []types.PolicyRecord
	for _, assignment := range m.assignments[agentID] {
		record, ok := m.policies[assignment.PolicyID]
		if !ok || record.Status == types.PolicyStatusArchived {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (m *policyMemDB) GetAssignments(_ context.Context, agentID string) ([]types.WalletPolicyAssignment, error) {
	return m.assignments[agentID], nil
}

func (m *policyMemDB) GetPolicyAssignedAgents(_ context.Context, policyID uuid.UUID) ([]string, error) {
	var agentIDs []string
	for agentID, assignments := range m.assignments {
		for _, assignment := range assignments {
			if assignment.PolicyID == policyID {
				agentIDs = append(agentIDs, agentID)
				break
			}
		}
	}
	return agentIDs, nil
}

type memPolicyCache struct {
	entries     map[string][]types.PolicyRecord
	invalidated []string
}

func newMemPolicyCache() *memPolicyCache {
	return &memPolicyCache{entries: map[string][]types.PolicyRecord{}}
}

func (c *memPolicyCache) GetAssignedPolicies(_ context.Context, agentID string) ([]types.PolicyRecord, error) {
	records, ok := c.entries[agentID]
	if !ok {
		return nil, fmt.Errorf("cache miss")
	}
	return records, nil
}

func (c *memPolicyCache) SetAssignedPolicies(_ context.Context, agentID string, policies []types.PolicyRecord) error {
	c.entries[agentID] = policies
	return nil
}

func (c *memPolicyCache) InvalidateAgent(_ context.Context, agentID string) error {
	delete(c.entries, agentID)
	c.invalidated = append(c.invalidated, agentID)
	return nil
}

func newPolicyTestService(t *testing.T) (*PolicyService, *policyMemDB, *memPolicyCache) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	db := newPolicyMemDB()
	cache := newMemPolicyCache()
	svc, err := NewPolicyService(db, cache, logger)
	require.NoError(t, err)
	return svc, db, cache
}

func TestCreatePolicy(t *testing.T) {
	svc, db, _ := newPolicyTestService(t)

	created, err := svc.CreatePolicy(context.Background(), "owner-1", "conservative", "caps per-tx size", json.RawMessage(validPolicyDSL))
	require.NoError(t, err)

	assert.Equal(t, types.PolicyStatusActive, created.Status)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Contains(t, db.policies, created.ID)
}

func TestCreatePolicyRejectsInvalidDocument(t *testing.T) {
	svc, _, _ := newPolicyTestService(t)

	cases := map[string]string{
		"bad version":  `{"version":"aegis.policy.v9","rules":[]}`,
		"unknown kind": `{"version":"aegis.policy.v1","rules":[{"kind":"max_gas"}]}`,
		"not json":     `{{`,
	}
	for name, dsl := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreatePolicy(context.Background(), "owner-1", "bad", "", json.RawMessage(dsl))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid policy document")
		})
	}
}

func TestUpdatePolicyArchivedIsImmutable(t *testing.T) {
	svc, db, _ := newPolicyTestService(t)

	created, err := svc.CreatePolicy(context.Background(), "owner-1", "p", "", json.RawMessage(validPolicyDSL))
	require.NoError(t, err)
	require.NoError(t, svc.ArchivePolicy(context.Background(), created.ID))
	assert.Equal(t, types.PolicyStatusArchived, db.policies[created.ID].Status)

	_, err = svc.UpdatePolicy(context.Background(), created.ID, "renamed", "", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archived policies cannot be updated")
}

func TestAssignPolicy(t *testing.T) {
	svc, _, cache := newPolicyTestService(t)

	created, err := svc.CreatePolicy(context.Background(), "owner-1", "p", "", json.RawMessage(validPolicyDSL))
	require.NoError(t, err)

	assignment, err := svc.AssignPolicy(context.Background(), "agent-1", created.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultAssignmentPriority, assignment.Priority)
	assert.Contains(t, cache.invalidated, "agent-1")
}

func TestAssignPolicyRejectsArchived(t *testing.T) {
	svc, _, _ := newPolicyTestService(t)

	created, err := svc.CreatePolicy(context.Background(), "owner-1", "p", "", json.RawMessage(validPolicyDSL))
	require.NoError(t, err)
	require.NoError(t, svc.ArchivePolicy(context.Background(), created.ID))

	_, err = svc.AssignPolicy(context.Background(), "agent-1", created.ID, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archived policies cannot be assigned")
}

func TestListAgentWalletPoliciesCacheFirst(t *testing.T) {
	svc, db, cache := newPolicyTestService(t)

	created, err := svc.CreatePolicy(context.Background(), "owner-1", "p", "", json.RawMessage(validPolicyDSL))
	require.NoError(t, err)
	_, err = svc.AssignPolicy(context.Background(), "agent-1", created.ID, 10)
	require.NoError(t, err)

	// First read misses the cache and fills it.
	policies, err := svc.ListAgentWalletPolicies(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Contains(t, cache.entries, "agent-1")

	// Second read is served from the cache even if the database changes
	// underneath it.
	delete(db.policies, created.ID)
	policies, err = svc.ListAgentWalletPolicies(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Len(t, policies, 1)
}

func TestArchivePolicyInvalidatesAssignedAgentCaches(t *testing.T) {
	svc, _, cache := newPolicyTestService(t)

	created, err := svc.CreatePolicy(context.Background(), "owner-1", "p", "", json.RawMessage(validPolicyDSL))
	require.NoError(t, err)
	_, err = svc.AssignPolicy(context.Background(), "agent-2", created.ID, 10)
	require.NoError(t, err)

	// Warm agent-2's cache with the active policy.
	policies, err := svc.ListAgentWalletPolicies(context.Background(), "agent-2")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	require.Contains(t, cache.entries, "agent-2")

	// Archiving must evict every assigned agent's cache, not just the
	// owner's, so the policy stops applying immediately.
	require.NoError(t, svc.ArchivePolicy(context.Background(), created.ID))
	assert.Contains(t, cache.invalidated, "agent-2")
	assert.NotContains(t, cache.entries, "agent-2")

	policies, err = svc.ListAgentWalletPolicies(context.Background(), "agent-2")
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestUpdatePolicyInvalidatesAssignedAgentCaches(t *testing.T) {
	svc, _, cache := newPolicyTestService(t)

	created, err := svc.CreatePolicy(context.Background(), "owner-1", "p", "", json.RawMessage(validPolicyDSL))
	require.NoError(t, err)
	_, err = svc.AssignPolicy(context.Background(), "agent-2", created.ID, 10)
	require.NoError(t, err)

	_, err = svc.ListAgentWalletPolicies(context.Background(), "agent-2")
	require.NoError(t, err)
	require.Contains(t, cache.entries, "agent-2")

	tightened := `{"version":"aegis.policy.v1","rules":[{"kind":"max_lamports_per_tx","lteLamports":"1"}]}`
	_, err = svc.UpdatePolicy(context.Background(), created.ID, "", "", "", json.RawMessage(tightened))
	require.NoError(t, err)
	assert.NotContains(t, cache.entries, "agent-2")
}

func TestUnassignPolicyInvalidatesCache(t *testing.T) {
	svc, _, cache := newPolicyTestService(t)

	created, err := svc.CreatePolicy(context.Background(), "owner-1", "p", "", json.RawMessage(validPolicyDSL))
	require.NoError(t, err)
	_, err = svc.AssignPolicy(context.Background(), "agent-1", created.ID, 10)
	require.NoError(t, err)

	_, err = svc.ListAgentWalletPolicies(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Contains(t, cache.entries, "agent-1")

	require.NoError(t, svc.UnassignPolicy(context.Background(), "agent-1", created.ID))
	assert.NotContains(t, cache.entries, "agent-1")

	policies, err := svc.ListAgentWalletPolicies(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Empty(t, policies)
}

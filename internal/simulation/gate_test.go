package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
)

type fakeSimulator struct {
	calls []string
	errs  map[string]error
}

func (f *fakeSimulator) SimulateTransaction(_ context.Context, serializedTx string) error {
	f.calls = append(f.calls, serializedTx)
	return f.errs[serializedTx]
}

func TestGateNotRequired(t *testing.T) {
	sim := &fakeSimulator{}
	gate := NewGate(sim, false)

	outcome := gate.Check(context.Background(), []string{"tx1"})
	assert.Nil(t, outcome)
	assert.Empty(t, sim.calls, "gate should not touch the RPC when disabled")
}

func TestGateMissingSimulator(t *testing.T) {
	gate := NewGate(nil, true)

	outcome := gate.Check(context.Background(), []string{"tx1"})
	require.NotNil(t, outcome)
	assert.Equal(t, reason.PolicyRPCSimulationUnavailable, outcome.ReasonCode)
}

func TestGateAllPayloadsPass(t *testing.T) {
	sim := &fakeSimulator{}
	gate := NewGate(sim, true)

	outcome := gate.Check(context.Background(), []string{"tx1", "tx2"})
	assert.Nil(t, outcome)
	assert.Equal(t, []string{"tx1", "tx2"}, sim.calls)
}

func TestGateStopsAtFirstFailure(t *testing.T) {
	sim := &fakeSimulator{
		errs: map[string]error{"tx2": errors.New("simulation failed: Custom(6001)")},
	}
	gate := NewGate(sim, true)

	outcome := gate.Check(context.Background(), []string{"tx1", "tx2", "tx3"})
	require.NotNil(t, outcome)
	assert.Equal(t, reason.PolicyRPCSimulationFailed, outcome.ReasonCode)
	assert.Equal(t, "Transaction simulation failed.", outcome.ReasonDetail)
	assert.Equal(t, []string{"tx1", "tx2"}, sim.calls)
}

func TestGateClassifiesKnownFailures(t *testing.T) {
	sim := &fakeSimulator{
		errs: map[string]error{"tx1": errors.New("Transfer: insufficient lamports 100, need 200")},
	}
	gate := NewGate(sim, true)

	outcome := gate.Check(context.Background(), []string{"tx1"})
	require.NotNil(t, outcome)
	assert.Equal(t, reason.InsufficientFunds, outcome.ReasonCode)
}

// Package simulation gates signing behind a dry run of every built
// transaction payload.
package simulation

import (
	"context"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
)

// Simulator is implemented by the Solana RPC client.
type Simulator interface {
	SimulateTransaction(ctx context.Context, serializedTx string) error
}

type Gate struct {
	simulator Simulator
	require   bool
}

func NewGate(simulator Simulator, require bool) *Gate {
	return &Gate{
		simulator: simulator,
		require:   require,
	}
}

// Outcome is the gate's verdict. A nil Outcome from Check means the
// payloads may proceed to signing.
type Outcome struct {
	ReasonCode   reason.Code
	ReasonDetail string
}

// Check simulates each payload in order and stops at the first failure.
// When simulation is not required the gate passes everything through.
func (g *Gate) Check(ctx context.Context, serializedTxs []string) *Outcome {
	if !g.require {
		return nil
	}
	if g.simulator == nil {
		return &Outcome{
			ReasonCode:   reason.PolicyRPCSimulationUnavailable,
			ReasonDetail: "Transaction simulation is required but no RPC endpoint is configured.",
		}
	}
	for _, tx := range serializedTxs {
		if err := g.simulator.SimulateTransaction(ctx, tx); err != nil {
			classified := reason.Classify(err, reason.PolicyRPCSimulationFailed, "Transaction simulation failed.")
			return &Outcome{
				ReasonCode:   classified.Code,
				ReasonDetail: classified.Detail,
			}
		}
	}
	return nil
}

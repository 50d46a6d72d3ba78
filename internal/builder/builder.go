// Package builder turns validated execution intents into unsigned serialized
// transactions, one builder per (action, asset/protocol) combination.
package builder

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

const defaultSlippageBps = 100

// ChainReader is the subset of the Solana RPC surface the builders read from.
type ChainReader interface {
	LatestBlockhash(ctx context.Context) (string, error)
	AccountExists(ctx context.Context, address string) (bool, error)
	MintDecimals(ctx context.Context, mint string) (uint8, error)
}

// TransactionBuilder produces one or more base64-serialized unsigned
// transactions for an intent. Multi-payload outputs are signed and sent in
// order.
type TransactionBuilder interface {
	Build(ctx context.Context, intent *types.ExecutionIntent) ([]string, error)
}

// Options carries the protocol endpoints and the mock switch.
type Options struct {
	AllowMock       bool
	JupiterQuoteURL string
	JupiterSwapURL  string
	RaydiumQuoteURL string
	RaydiumBuildURL string
	OrcaSwapURL     string
}

// Registry selects a builder for an intent whose swap protocol has already
// been resolved away from "auto".
type Registry struct {
	native  TransactionBuilder
	spl     TransactionBuilder
	jupiter TransactionBuilder
	raydium TransactionBuilder
	orca    TransactionBuilder
}

func NewRegistry(logger *logrus.Logger, chain ChainReader, opts Options) *Registry {
	return &Registry{
		native:  NewNativeTransferBuilder(chain),
		spl:     NewSPLTransferBuilder(chain),
		jupiter: NewJupiterBuilder(logger, opts),
		raydium: NewRaydiumBuilder(logger, chain, opts),
		orca:    NewOrcaBuilder(logger, opts),
	}
}

// For maps the intent to its builder. Selection depends only on the action,
// the transfer asset, and the resolved swap protocol.
func (r *Registry) For(intent *types.ExecutionIntent) (TransactionBuilder, error) {
	switch intent.Action {
	case types.ActionTransfer:
		switch intent.TransferAsset {
		case types.TransferAssetNative:
			return r.native, nil
		case types.TransferAssetSPL:
			return r.spl, nil
		}
		return nil, reason.CodeError(reason.TransferAssetRequired)
	case types.ActionSwap:
		switch intent.SwapProtocol {
		case types.SwapProtocolJupiter:
			return r.jupiter, nil
		case types.SwapProtocolRaydium:
			return r.raydium, nil
		case types.SwapProtocolOrca:
			return r.orca, nil
		}
		return nil, reason.CodeError(reason.SwapProtocolUnavailable)
	}
	return nil, reason.Errorf(reason.TxBuildFailed, "unsupported action %q", intent.Action)
}

func slippageBps(intent *types.ExecutionIntent) int {
	if intent.HasSlippage {
		return intent.MaxSlippageBps
	}
	return defaultSlippageBps
}

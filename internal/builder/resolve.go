package builder

import (
	"github.com/fido1hn/agentic-autonomous-wallets/internal/solana"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

// ResolveProtocol pins an explicit protocol choice, or picks one from the
// configured cluster when the intent says auto. Orca has no testnet
// deployment; testnet falls back to Raydium.
func ResolveProtocol(requested types.SwapProtocol, cluster solana.Cluster) types.SwapProtocol {
	switch requested {
	case types.SwapProtocolJupiter, types.SwapProtocolRaydium, types.SwapProtocolOrca:
		return requested
	}
	if cluster == solana.ClusterTestnet {
		return types.SwapProtocolRaydium
	}
	return types.SwapProtocolOrca
}

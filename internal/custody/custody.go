// Package custody holds the external signer integration. Keys never enter
// this process; the provider signs and this package broadcasts.
package custody

import (
	"context"
	"fmt"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

// SignRequest carries everything a provider needs to sign one serialized
// transaction on behalf of an agent wallet.
type SignRequest struct {
	AgentID      string
	WalletRef    string
	SerializedTx string
}

// Provider signs a built transaction with the custodial key and broadcasts
// it, returning the on-chain signature.
type Provider interface {
	Name() string
	SignAndSend(ctx context.Context, req SignRequest) (types.SignatureResult, error)
}

// ForName resolves the configured provider implementation.
func ForName(name string, privy *PrivyProvider) (Provider, error) {
	switch name {
	case "", "privy":
		return privy, nil
	}
	return nil, fmt.Errorf("unknown custody provider %q", name)
}

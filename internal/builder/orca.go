package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

// OrcaBuilder builds a whirlpool swap through an Orca swap-build service.
// When no endpoint is configured or the call fails, mock mode produces a
// placeholder payload instead.
type OrcaBuilder struct {
	logger    *logrus.Logger
	client    *http.Client
	swapURL   string
	allowMock bool
}

func NewOrcaBuilder(logger *logrus.Logger, opts Options) *OrcaBuilder {
	return &OrcaBuilder{
		logger:    logger,
		client:    &http.Client{Timeout: builderTimeout},
		swapURL:   opts.OrcaSwapURL,
		allowMock: opts.AllowMock,
	}
}

func (b *OrcaBuilder) Build(ctx context.Context, intent *types.ExecutionIntent) ([]string, error) {
	if intent.WalletAddress == "" {
		return nil, reason.CodeError(reason.WalletAddressUnavailable)
	}
	if intent.FromMint == "" || intent.ToMint == "" {
		return nil, reason.CodeError(reason.PolicySwapMintRequired)
	}

	tx, err := b.buildViaAPI(ctx, intent)
	if err != nil {
		if !b.allowMock {
			return nil, reason.Errorf(reason.TxBuildFailed, "%v", err)
		}
		b.logger.WithFields(logrus.Fields{
			"agent_id": intent.AgentID,
			"error":    err.Error(),
		}).Warn("orca build failed, returning mock payload")
		return []string{mockSwapPayload("orca", intent)}, nil
	}
	return []string{tx}, nil
}

func (b *OrcaBuilder) buildViaAPI(ctx context.Context, intent *types.ExecutionIntent) (string, error) {
	if b.swapURL == "" {
		return "", fmt.Errorf("no orca swap endpoint configured")
	}

	body, err := json.Marshal(map[string]any{
		"wallet":         intent.WalletAddress,
		"inputMint":      intent.FromMint,
		"outputMint":     intent.ToMint,
		"amount":         intent.AmountAtomic,
		"maxSlippageBps": slippageBps(intent),
	})
	if err != nil {
		return "", fmt.Errorf("fail to marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.swapURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fail to create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fail to build orca swap: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("orca build failed with status %d", resp.StatusCode)
	}

	var built struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&built); err != nil {
		return "", fmt.Errorf("fail to decode orca build response: %w", err)
	}
	if built.SwapTransaction == "" {
		return "", fmt.Errorf("missing swapTransaction in orca response")
	}
	return built.SwapTransaction, nil
}

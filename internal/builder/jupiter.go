package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

const builderTimeout = 20 * time.Second

// JupiterBuilder quotes and builds a swap through the Jupiter aggregator API.
// When the API is unreachable and mock mode is on it falls back to a mock
// payload so non-production environments keep flowing.
type JupiterBuilder struct {
	logger    *logrus.Logger
	client    *http.Client
	quoteURL  string
	swapURL   string
	allowMock bool
}

func NewJupiterBuilder(logger *logrus.Logger, opts Options) *JupiterBuilder {
	return &JupiterBuilder{
		logger:    logger,
		client:    &http.Client{Timeout: builderTimeout},
		quoteURL:  opts.JupiterQuoteURL,
		swapURL:   opts.JupiterSwapURL,
		allowMock: opts.AllowMock,
	}
}

func mockSwapPayload(protocol string, intent *types.ExecutionIntent) string {
	payload, _ := json.Marshal(map[string]any{
		"protocol":       protocol,
		"mode":           "mock",
		"action":         intent.Action,
		"walletAddress":  intent.WalletAddress,
		"fromMint":       intent.FromMint,
		"toMint":         intent.ToMint,
		"amountAtomic":   intent.AmountAtomic,
		"maxSlippageBps": slippageBps(intent),
	})
	return string(payload)
}

func (b *JupiterBuilder) Build(ctx context.Context, intent *types.ExecutionIntent) ([]string, error) {
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
		}).Warn("jupiter build failed, returning mock payload")
		return []string{mockSwapPayload("jupiter", intent)}, nil
	}
	return []string{tx}, nil
}

func (b *JupiterBuilder) buildViaAPI(ctx context.Context, intent *types.ExecutionIntent) (string, error) {
	params := url.Values{}
	params.Set("inputMint", intent.FromMint)
	params.Set("outputMint", intent.ToMint)
	params.Set("amount", intent.AmountAtomic)
	params.Set("slippageBps", strconv.Itoa(slippageBps(intent)))

	quoteReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.quoteURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("fail to create quote request: %w", err)
	}
	quoteResp, err := b.client.Do(quoteReq)
	if err != nil {
		return "", fmt.Errorf("fail to fetch quote: %w", err)
	}
	defer quoteResp.Body.Close()
	if quoteResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("quote failed with status %d", quoteResp.StatusCode)
	}
	quote, err := io.ReadAll(quoteResp.Body)
	if err != nil {
		return "", fmt.Errorf("fail to read quote response: %w", err)
	}

	swapBody, err := json.Marshal(map[string]any{
		"quoteResponse":           json.RawMessage(quote),
		"userPublicKey":           intent.WalletAddress,
		"wrapAndUnwrapSol":        true,
		"dynamicComputeUnitLimit": true,
	})
	if err != nil {
		return "", fmt.Errorf("fail to marshal swap request: %w", err)
	}

	swapReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.swapURL, bytes.NewReader(swapBody))
	if err != nil {
		return "", fmt.Errorf("fail to create swap request: %w", err)
	}
	swapReq.Header.Set("Content-Type", "application/json")
	swapResp, err := b.client.Do(swapReq)
	if err != nil {
		return "", fmt.Errorf("fail to build swap: %w", err)
	}
	defer swapResp.Body.Close()
	if swapResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("swap build failed with status %d", swapResp.StatusCode)
	}

	var swapData struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(swapResp.Body).Decode(&swapData); err != nil {
		return "", fmt.Errorf("fail to decode swap response: %w", err)
	}
	if swapData.SwapTransaction == "" {
		return "", fmt.Errorf("missing swapTransaction in jupiter response")
	}
	return swapData.SwapTransaction, nil
}

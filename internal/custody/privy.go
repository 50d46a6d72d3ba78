package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

const (
	defaultPrivyBaseURL = "https://api.privy.io"
	privyTimeout        = 30 * time.Second
)

// Broadcaster pushes a signed transaction to the network. Implemented by the
// Solana RPC client.
type Broadcaster interface {
	SendTransaction(ctx context.Context, signedTx string) (string, error)
}

// PrivyProvider signs through the Privy wallet API and broadcasts through
// the configured RPC endpoint.
type PrivyProvider struct {
	logger      *logrus.Logger
	client      *http.Client
	broadcaster Broadcaster
	baseURL     string
	appID       string
	appSecret   string
}

type PrivyOptions struct {
	BaseURL   string
	AppID     string
	AppSecret string
}

func NewPrivyProvider(logger *logrus.Logger, broadcaster Broadcaster, opts PrivyOptions) *PrivyProvider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultPrivyBaseURL
	}
	return &PrivyProvider{
		logger:      logger,
		client:      &http.Client{Timeout: privyTimeout},
		broadcaster: broadcaster,
		baseURL:     baseURL,
		appID:       opts.AppID,
		appSecret:   opts.AppSecret,
	}
}

func (p *PrivyProvider) Name() string {
	return "privy"
}

func (p *PrivyProvider) SignAndSend(ctx context.Context, req SignRequest) (types.SignatureResult, error) {
	if req.AgentID == "" {
		return types.SignatureResult{}, reason.Errorf(reason.SigningFailed, "missing agent id")
	}
	if req.WalletRef == "" {
		return types.SignatureResult{}, reason.Errorf(reason.SigningFailed, "missing wallet ref")
	}
	if req.SerializedTx == "" {
		return types.SignatureResult{}, reason.Errorf(reason.SigningFailed, "empty serialized transaction")
	}

	signedTx, err := p.signTransaction(ctx, req.WalletRef, req.SerializedTx)
	if err != nil {
		classified := reason.Classify(err, reason.SigningFailed, "Provider signing or broadcast failed.")
		return types.SignatureResult{}, reason.Errorf(classified.Code, "%s", classified.Detail)
	}

	txSignature, err := p.broadcaster.SendTransaction(ctx, signedTx)
	if err != nil {
		classified := reason.Classify(err, reason.SigningFailed, "Provider signing or broadcast failed.")
		return types.SignatureResult{}, reason.Errorf(classified.Code, "%s", classified.Detail)
	}

	p.logger.WithFields(logrus.Fields{
		"agent_id":     req.AgentID,
		"wallet_ref":   req.WalletRef,
		"tx_signature": txSignature,
	}).Info("transaction signed and broadcast")

	return types.SignatureResult{
		TxSignature: txSignature,
		Provider:    p.Name(),
	}, nil
}

// CreateWallet provisions a custodial Solana wallet for an agent. The
// provider-side idempotency key makes repeated calls for the same agent
// return the same wallet.
func (p *PrivyProvider) CreateWallet(ctx context.Context, agentID string) (string, string, error) {
	body, err := json.Marshal(map[string]any{
		"chain_type": "solana",
	})
	if err != nil {
		return "", "", fmt.Errorf("fail to marshal create wallet request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/wallets", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("fail to create wallet request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("privy-app-id", p.appID)
	httpReq.Header.Set("privy-idempotency-key", "aegis-wallet-"+agentID)
	httpReq.SetBasicAuth(p.appID, p.appSecret)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("fail to call privy: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("fail to read privy response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", fmt.Errorf("privy create wallet failed with status %d: %s", resp.StatusCode, raw)
	}

	var wallet struct {
		ID      string `json:"id"`
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &wallet); err != nil {
		return "", "", fmt.Errorf("fail to decode privy response: %w", err)
	}
	if wallet.ID == "" {
		return "", "", fmt.Errorf("missing wallet id in privy response")
	}
	return wallet.ID, strings.TrimSpace(wallet.Address), nil
}

func (p *PrivyProvider) signTransaction(ctx context.Context, walletRef, serializedTx string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"method": "signTransaction",
		"params": map[string]any{
			"transaction": serializedTx,
			"encoding":    "base64",
		},
	})
	if err != nil {
		return "", fmt.Errorf("fail to marshal sign request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/wallets/%s/rpc", p.baseURL, walletRef)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fail to create sign request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("privy-app-id", p.appID)
	httpReq.SetBasicAuth(p.appID, p.appSecret)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fail to call privy: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fail to read privy response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("privy sign failed with status %d: %s", resp.StatusCode, raw)
	}

	var decoded struct {
		Data struct {
			SignedTransaction string `json:"signed_transaction"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("fail to decode privy response: %w", err)
	}
	if decoded.Data.SignedTransaction == "" {
		return "", fmt.Errorf("missing signed transaction in privy response")
	}
	return decoded.Data.SignedTransaction, nil
}

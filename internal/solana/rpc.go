// Package solana is a thin JSON-RPC client covering the two methods the
// gateway needs: pre-signing simulation and raw transaction broadcast.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

type Cluster string

const (
	ClusterMainnetBeta Cluster = "mainnet-beta"
	ClusterDevnet      Cluster = "devnet"
	ClusterTestnet     Cluster = "testnet"
	ClusterUnknown     Cluster = "unknown"
)

// ResolveCluster derives the cluster from explicit configuration first, then
// from the RPC endpoint hostname.
func ResolveCluster(explicit, rpcURL string) Cluster {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "mainnet", "mainnet-beta":
		return ClusterMainnetBeta
	case "devnet":
		return ClusterDevnet
	case "testnet":
		return ClusterTestnet
	}

	rpc := strings.ToLower(strings.TrimSpace(rpcURL))
	switch {
	case strings.Contains(rpc, "devnet"):
		return ClusterDevnet
	case strings.Contains(rpc, "testnet"):
		return ClusterTestnet
	case strings.Contains(rpc, "mainnet"):
		return ClusterMainnetBeta
	}
	return ClusterUnknown
}

type RPCClient struct {
	endpoint string
	client   *http.Client
}

func NewRPCClient(endpoint string) *RPCClient {
	return &RPCClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("fail to marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("fail to create rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fail to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fail to read rpc response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s returned status %d: %s", method, resp.StatusCode, body)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return fmt.Errorf("fail to decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("fail to decode %s result: %w", method, err)
		}
	}
	return nil
}

type simulateResult struct {
	Value struct {
		Err  json.RawMessage `json:"err"`
		Logs []string        `json:"logs"`
	} `json:"value"`
}

// SimulateTransaction dry-runs a base64-serialized transaction against
// current network state without producing a signature.
func (c *RPCClient) SimulateTransaction(ctx context.Context, serializedTx string) error {
	var result simulateResult
	err := c.call(ctx, "simulateTransaction", []any{
		serializedTx,
		map[string]any{"encoding": "base64", "sigVerify": false, "replaceRecentBlockhash": true},
	}, &result)
	if err != nil {
		return err
	}
	if len(result.Value.Err) > 0 && string(result.Value.Err) != "null" {
		return fmt.Errorf("simulation failed: %s; logs: %s", result.Value.Err, strings.Join(result.Value.Logs, " | "))
	}
	return nil
}

type latestBlockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

// LatestBlockhash fetches a recent blockhash for transaction assembly.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (string, error) {
	var result latestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", []any{
		map[string]any{"commitment": "confirmed"},
	}, &result)
	if err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", fmt.Errorf("empty blockhash in rpc response")
	}
	return result.Value.Blockhash, nil
}

type accountInfoResult struct {
	Value json.RawMessage `json:"value"`
}

// AccountExists reports whether the address has account data on chain.
func (c *RPCClient) AccountExists(ctx context.Context, address string) (bool, error) {
	var result accountInfoResult
	err := c.call(ctx, "getAccountInfo", []any{
		address,
		map[string]any{"encoding": "base64", "commitment": "confirmed"},
	}, &result)
	if err != nil {
		return false, err
	}
	return len(result.Value) > 0 && string(result.Value) != "null", nil
}

type tokenSupplyResult struct {
	Value struct {
		Decimals uint8 `json:"decimals"`
	} `json:"value"`
}

// MintDecimals reads the decimal precision of an SPL mint.
func (c *RPCClient) MintDecimals(ctx context.Context, mint string) (uint8, error) {
	var result tokenSupplyResult
	err := c.call(ctx, "getTokenSupply", []any{mint}, &result)
	if err != nil {
		return 0, err
	}
	return result.Value.Decimals, nil
}

// SendTransaction broadcasts a base64-serialized signed transaction and
// returns its signature.
func (c *RPCClient) SendTransaction(ctx context.Context, signedTx string) (string, error) {
	var signature string
	err := c.call(ctx, "sendTransaction", []any{
		signedTx,
		map[string]any{"encoding": "base64"},
	}, &signature)
	if err != nil {
		return "", err
	}
	return signature, nil
}

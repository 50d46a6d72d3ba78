package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/solana"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

const raydiumTxVersion = "LEGACY"

// RaydiumBuilder builds a swap through the Raydium transaction API. When the
// output token account does not exist yet it prepends a create-account
// transaction so the payloads land in order.
type RaydiumBuilder struct {
	logger   *logrus.Logger
	client   *http.Client
	chain    ChainReader
	quoteURL string
	buildURL string
}

func NewRaydiumBuilder(logger *logrus.Logger, chain ChainReader, opts Options) *RaydiumBuilder {
	return &RaydiumBuilder{
		logger:   logger,
		client:   &http.Client{Timeout: builderTimeout},
		chain:    chain,
		quoteURL: opts.RaydiumQuoteURL,
		buildURL: opts.RaydiumBuildURL,
	}
}

func (b *RaydiumBuilder) Build(ctx context.Context, intent *types.ExecutionIntent) ([]string, error) {
	if intent.WalletAddress == "" {
		return nil, reason.CodeError(reason.WalletAddressUnavailable)
	}
	if intent.FromMint == "" || intent.ToMint == "" {
		return nil, reason.CodeError(reason.PolicySwapMintRequired)
	}
	owner, err := solana.ParseAddress(intent.WalletAddress)
	if err != nil {
		return nil, reason.CodeError(reason.WalletAddressUnavailable)
	}

	var prepend []string
	var outputAccount string
	if intent.ToMint != solana.NativeMint {
		mint, err := solana.ParseAddress(intent.ToMint)
		if err != nil {
			return nil, reason.CodeError(reason.PolicySwapMintRequired)
		}
		ata, err := solana.AssociatedTokenAddress(owner, mint)
		if err != nil {
			return nil, reason.Errorf(reason.TxBuildFailed, "%v", err)
		}
		outputAccount = ata.String()
		exists, err := b.chain.AccountExists(ctx, outputAccount)
		if err != nil {
			return nil, reason.Errorf(reason.TxBuildFailed, "fail to check output token account: %v", err)
		}
		if !exists {
			createTx, err := b.buildCreateAtaTransaction(ctx, owner, mint, ata)
			if err != nil {
				return nil, err
			}
			prepend = append(prepend, createTx)
		}
	}

	transactions, err := b.buildViaAPI(ctx, intent, outputAccount)
	if err != nil {
		return nil, err
	}
	return append(prepend, transactions...), nil
}

func (b *RaydiumBuilder) buildCreateAtaTransaction(ctx context.Context, owner, mint, ata solana.PublicKey) (string, error) {
	blockhash, err := b.chain.LatestBlockhash(ctx)
	if err != nil {
		return "", reason.Errorf(reason.TxBuildFailed, "fail to fetch blockhash: %v", err)
	}
	tx, err := solana.BuildUnsignedTransaction(owner, blockhash, []solana.Instruction{
		solana.NewCreateAssociatedTokenAccount(owner, ata, owner, mint),
	})
	if err != nil {
		return "", reason.Errorf(reason.TxBuildFailed, "%v", err)
	}
	return tx, nil
}

func (b *RaydiumBuilder) buildViaAPI(ctx context.Context, intent *types.ExecutionIntent, outputAccount string) ([]string, error) {
	params := url.Values{}
	params.Set("inputMint", intent.FromMint)
	params.Set("outputMint", intent.ToMint)
	params.Set("amount", intent.AmountAtomic)
	params.Set("slippageBps", strconv.Itoa(slippageBps(intent)))
	params.Set("txVersion", raydiumTxVersion)

	quoteReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.quoteURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to create quote request: %v", err)
	}
	quoteResp, err := b.client.Do(quoteReq)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to fetch raydium quote: %v", err)
	}
	defer quoteResp.Body.Close()
	if quoteResp.StatusCode != http.StatusOK {
		return nil, reason.Errorf(reason.TxBuildFailed, "raydium quote failed with status %d", quoteResp.StatusCode)
	}
	quote, err := io.ReadAll(quoteResp.Body)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to read raydium quote: %v", err)
	}

	buildPayload := map[string]any{
		"txVersion":                     raydiumTxVersion,
		"wallet":                        intent.WalletAddress,
		"swapResponse":                  json.RawMessage(quote),
		"computeUnitPriceMicroLamports": "0",
		"wrapSol":                       intent.FromMint == solana.NativeMint,
		"unwrapSol":                     intent.ToMint == solana.NativeMint,
	}
	if outputAccount != "" {
		buildPayload["outputAccount"] = outputAccount
	}
	if intent.FromMint != solana.NativeMint {
		owner, _ := solana.ParseAddress(intent.WalletAddress)
		mint, err := solana.ParseAddress(intent.FromMint)
		if err != nil {
			return nil, reason.CodeError(reason.PolicySwapMintRequired)
		}
		inputAta, err := solana.AssociatedTokenAddress(owner, mint)
		if err != nil {
			return nil, reason.Errorf(reason.TxBuildFailed, "%v", err)
		}
		buildPayload["inputAccount"] = inputAta.String()
	}

	body, err := json.Marshal(buildPayload)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to marshal build request: %v", err)
	}

	buildReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.buildURL, bytes.NewReader(body))
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to create build request: %v", err)
	}
	buildReq.Header.Set("Content-Type", "application/json")
	buildResp, err := b.client.Do(buildReq)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to build raydium swap: %v", err)
	}
	defer buildResp.Body.Close()
	if buildResp.StatusCode != http.StatusOK {
		return nil, reason.Errorf(reason.TxBuildFailed, "raydium build failed with status %d", buildResp.StatusCode)
	}

	var built struct {
		Data []struct {
			Transaction string `json:"transaction"`
		} `json:"data"`
	}
	if err := json.NewDecoder(buildResp.Body).Decode(&built); err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to decode raydium build response: %v", err)
	}

	var transactions []string
	for _, item := range built.Data {
		if item.Transaction != "" {
			transactions = append(transactions, item.Transaction)
		}
	}
	if len(transactions) == 0 {
		return nil, reason.Errorf(reason.TxBuildFailed, "missing transaction payload in raydium response")
	}
	return transactions, nil
}

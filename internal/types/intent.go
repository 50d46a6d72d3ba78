package types

import (
	"math/big"
	"strings"
)

type IntentAction string

const (
	ActionSwap     IntentAction = "swap"
	ActionTransfer IntentAction = "transfer"
)

type TransferAsset string

const (
	TransferAssetNative TransferAsset = "native"
	TransferAssetSPL    TransferAsset = "spl"
)

type SwapProtocol string

const (
	SwapProtocolAuto    SwapProtocol = "auto"
	SwapProtocolJupiter SwapProtocol = "jupiter"
	SwapProtocolRaydium SwapProtocol = "raydium"
	SwapProtocolOrca    SwapProtocol = "orca"
)

// ExecutionIntent is the fully-typed wallet action produced at the trust
// boundary. It is immutable once validated; the pipeline never sees a
// partially valid value.
type ExecutionIntent struct {
	AgentID          string        `json:"agent_id"`
	Action           IntentAction  `json:"action"`
	AmountAtomic     string        `json:"amount_atomic"`
	WalletAddress    string        `json:"wallet_address,omitempty"`
	SwapProtocol     SwapProtocol  `json:"swap_protocol,omitempty"`
	TransferAsset    TransferAsset `json:"transfer_asset,omitempty"`
	RecipientAddress string        `json:"recipient_address,omitempty"`
	MintAddress      string        `json:"mint_address,omitempty"`
	FromMint         string        `json:"from_mint,omitempty"`
	ToMint           string        `json:"to_mint,omitempty"`
	MaxSlippageBps   int           `json:"max_slippage_bps,omitempty"`
	HasSlippage      bool          `json:"-"`
	IdempotencyKey   string        `json:"idempotency_key,omitempty"`
}

// ExecutionIntentRequest is the untrusted inbound payload.
type ExecutionIntentRequest struct {
	AgentID          string `json:"agentId"`
	Action           string `json:"action"`
	AmountAtomic     string `json:"amountAtomic"`
	WalletAddress    string `json:"walletAddress,omitempty"`
	SwapProtocol     string `json:"swapProtocol,omitempty"`
	TransferAsset    string `json:"transferAsset,omitempty"`
	RecipientAddress string `json:"recipientAddress,omitempty"`
	MintAddress      string `json:"mintAddress,omitempty"`
	FromMint         string `json:"fromMint,omitempty"`
	ToMint           string `json:"toMint,omitempty"`
	MaxSlippageBps   *int   `json:"maxSlippageBps,omitempty"`
	IdempotencyKey   string `json:"idempotencyKey,omitempty"`
}

// Field error codes returned by ValidateExecutionIntent. These are
// shape-validation identifiers, distinct from pipeline reason codes.
const (
	FieldErrAgentIDRequired       = "AGENT_ID_REQUIRED"
	FieldErrActionInvalid         = "ACTION_INVALID"
	FieldErrAmountAtomicInvalid   = "AMOUNT_ATOMIC_INVALID"
	FieldErrTransferAssetInvalid  = "TRANSFER_ASSET_INVALID"
	FieldErrSwapProtocolInvalid   = "SWAP_PROTOCOL_INVALID"
	FieldErrMaxSlippageBpsInvalid = "MAX_SLIPPAGE_BPS_INVALID"
	FieldErrFromMintRequired      = "FROM_MINT_REQUIRED_FOR_SWAP"
	FieldErrToMintRequired        = "TO_MINT_REQUIRED_FOR_SWAP"
	FieldErrRecipientRequired     = "RECIPIENT_ADDRESS_REQUIRED_FOR_TRANSFER"
	FieldErrTransferAssetRequired = "TRANSFER_ASSET_REQUIRED"
	FieldErrMintRequiredForSPL    = "MINT_ADDRESS_REQUIRED_FOR_SPL_TRANSFER"
)

// ParseLamports parses a non-negative integer amount string. Returns nil when
// the value is not a valid base-10 integer or is negative.
func ParseLamports(value string) *big.Int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil
	}
	return amount
}

// ParsePositiveLamports is like ParseLamports but also rejects zero.
func ParsePositiveLamports(value string) *big.Int {
	amount := ParseLamports(value)
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	return amount
}

func parseAction(value string) (IntentAction, bool) {
	switch IntentAction(value) {
	case ActionSwap, ActionTransfer:
		return IntentAction(value), true
	}
	return "", false
}

func parseTransferAsset(value string) (TransferAsset, bool) {
	switch TransferAsset(value) {
	case TransferAssetNative, TransferAssetSPL:
		return TransferAsset(value), true
	}
	return "", false
}

func parseSwapProtocol(value string) (SwapProtocol, bool) {
	switch SwapProtocol(value) {
	case SwapProtocolAuto, SwapProtocolJupiter, SwapProtocolRaydium, SwapProtocolOrca:
		return SwapProtocol(value), true
	}
	return "", false
}

// ValidateExecutionIntent is the parse-don't-validate boundary: it produces
// either a fully-typed ExecutionIntent or the list of field errors, never a
// partially valid value.
func ValidateExecutionIntent(req ExecutionIntentRequest) (*ExecutionIntent, []string) {
	var errs []string

	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		errs = append(errs, FieldErrAgentIDRequired)
	}

	action, actionOK := parseAction(req.Action)
	if !actionOK {
		errs = append(errs, FieldErrActionInvalid)
	}

	var amountAtomic string
	if amount := ParsePositiveLamports(req.AmountAtomic); amount != nil {
		amountAtomic = amount.String()
	} else {
		errs = append(errs, FieldErrAmountAtomicInvalid)
	}

	var transferAsset TransferAsset
	if req.TransferAsset != "" {
		parsed, ok := parseTransferAsset(req.TransferAsset)
		if !ok {
			errs = append(errs, FieldErrTransferAssetInvalid)
		}
		transferAsset = parsed
	}

	var swapProtocol SwapProtocol
	if req.SwapProtocol != "" {
		parsed, ok := parseSwapProtocol(req.SwapProtocol)
		if !ok {
			errs = append(errs, FieldErrSwapProtocolInvalid)
		}
		swapProtocol = parsed
	}

	var maxSlippageBps int
	hasSlippage := false
	if req.MaxSlippageBps != nil {
		if *req.MaxSlippageBps < 1 || *req.MaxSlippageBps > 10000 {
			errs = append(errs, FieldErrMaxSlippageBpsInvalid)
		} else {
			maxSlippageBps = *req.MaxSlippageBps
			hasSlippage = true
		}
	}

	fromMint := strings.TrimSpace(req.FromMint)
	toMint := strings.TrimSpace(req.ToMint)
	recipient := strings.TrimSpace(req.RecipientAddress)
	mintAddress := strings.TrimSpace(req.MintAddress)

	if actionOK && action == ActionSwap {
		if fromMint == "" {
			errs = append(errs, FieldErrFromMintRequired)
		}
		if toMint == "" {
			errs = append(errs, FieldErrToMintRequired)
		}
	}

	if actionOK && action == ActionTransfer {
		if recipient == "" {
			errs = append(errs, FieldErrRecipientRequired)
		}
		if transferAsset == "" {
			errs = append(errs, FieldErrTransferAssetRequired)
		}
		if transferAsset == TransferAssetSPL && mintAddress == "" {
			errs = append(errs, FieldErrMintRequiredForSPL)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &ExecutionIntent{
		AgentID:          agentID,
		Action:           action,
		AmountAtomic:     amountAtomic,
		WalletAddress:    strings.TrimSpace(req.WalletAddress),
		SwapProtocol:     swapProtocol,
		TransferAsset:    transferAsset,
		RecipientAddress: recipient,
		MintAddress:      mintAddress,
		FromMint:         fromMint,
		ToMint:           toMint,
		MaxSlippageBps:   maxSlippageBps,
		HasSlippage:      hasSlippage,
		IdempotencyKey:   strings.TrimSpace(req.IdempotencyKey),
	}, nil
}

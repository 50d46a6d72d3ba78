package builder

import (
	"context"
	"math/big"

	"github.com/fido1hn/agentic-autonomous-wallets/internal/reason"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/solana"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/types"
)

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

func atomicAmount(value string) (uint64, error) {
	amount := types.ParsePositiveLamports(value)
	if amount == nil || amount.Cmp(maxUint64) > 0 {
		return 0, reason.CodeError(reason.PolicyInvalidAmount)
	}
	return amount.Uint64(), nil
}

func walletKey(intent *types.ExecutionIntent) (solana.PublicKey, error) {
	key, err := solana.ParseAddress(intent.WalletAddress)
	if err != nil {
		return solana.PublicKey{}, reason.CodeError(reason.WalletAddressUnavailable)
	}
	return key, nil
}

// NativeTransferBuilder assembles a SOL system transfer.
type NativeTransferBuilder struct {
	chain ChainReader
}

func NewNativeTransferBuilder(chain ChainReader) *NativeTransferBuilder {
	return &NativeTransferBuilder{chain: chain}
}

func (b *NativeTransferBuilder) Build(ctx context.Context, intent *types.ExecutionIntent) ([]string, error) {
	owner, err := walletKey(intent)
	if err != nil {
		return nil, err
	}
	recipient, err := solana.ParseAddress(intent.RecipientAddress)
	if err != nil {
		return nil, reason.CodeError(reason.TransferRecipientRequired)
	}
	lamports, err := atomicAmount(intent.AmountAtomic)
	if err != nil {
		return nil, err
	}

	blockhash, err := b.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to fetch blockhash: %v", err)
	}

	tx, err := solana.BuildUnsignedTransaction(owner, blockhash, []solana.Instruction{
		solana.NewSystemTransfer(owner, recipient, lamports),
	})
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "%v", err)
	}
	return []string{tx}, nil
}

// SPLTransferBuilder assembles a checked token transfer between associated
// token accounts, creating the recipient's account when it does not exist.
type SPLTransferBuilder struct {
	chain ChainReader
}

func NewSPLTransferBuilder(chain ChainReader) *SPLTransferBuilder {
	return &SPLTransferBuilder{chain: chain}
}

func (b *SPLTransferBuilder) Build(ctx context.Context, intent *types.ExecutionIntent) ([]string, error) {
	owner, err := walletKey(intent)
	if err != nil {
		return nil, err
	}
	recipient, err := solana.ParseAddress(intent.RecipientAddress)
	if err != nil {
		return nil, reason.CodeError(reason.TransferRecipientRequired)
	}
	mint, err := solana.ParseAddress(intent.MintAddress)
	if err != nil {
		return nil, reason.CodeError(reason.TransferMintRequired)
	}
	amount, err := atomicAmount(intent.AmountAtomic)
	if err != nil {
		return nil, err
	}

	senderAta, err := solana.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "%v", err)
	}
	recipientAta, err := solana.AssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "%v", err)
	}

	decimals, err := b.chain.MintDecimals(ctx, intent.MintAddress)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to read mint decimals: %v", err)
	}

	recipientAtaExists, err := b.chain.AccountExists(ctx, recipientAta.String())
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to check recipient token account: %v", err)
	}

	blockhash, err := b.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "fail to fetch blockhash: %v", err)
	}

	var instructions []solana.Instruction
	if !recipientAtaExists {
		instructions = append(instructions, solana.NewCreateAssociatedTokenAccount(owner, recipientAta, recipient, mint))
	}
	instructions = append(instructions, solana.NewTokenTransferChecked(senderAta, mint, recipientAta, owner, amount, decimals))

	tx, err := solana.BuildUnsignedTransaction(owner, blockhash, instructions)
	if err != nil {
		return nil, reason.Errorf(reason.TxBuildFailed, "%v", err)
	}
	return []string{tx}, nil
}

package solana

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerAddr     = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	recipientAddr = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	usdcMint      = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestParseAddressRoundtrip(t *testing.T) {
	key, err := ParseAddress(ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, key.String())

	_, err = ParseAddress("too-short")
	assert.Error(t, err)
	_, err = ParseAddress("")
	assert.Error(t, err)
	// 0, O, I, l are outside the base58 alphabet
	_, err = ParseAddress("0OIl111111111111111111111111111111111111111")
	assert.Error(t, err)
}

func TestAssociatedTokenAddressDeterministic(t *testing.T) {
	owner := mustAddress(ownerAddr)
	mint := mustAddress(usdcMint)

	first, err := AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	second, err := AssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := AssociatedTokenAddress(mustAddress(recipientAddr), mint)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	// derived addresses must sit off the ed25519 curve
	assert.False(t, onCurve(first[:]))
}

func TestResolveCluster(t *testing.T) {
	assert.Equal(t, ClusterDevnet, ResolveCluster("devnet", ""))
	assert.Equal(t, ClusterMainnetBeta, ResolveCluster("mainnet", ""))
	assert.Equal(t, ClusterMainnetBeta, ResolveCluster("mainnet-beta", ""))
	assert.Equal(t, ClusterTestnet, ResolveCluster("testnet", ""))
	assert.Equal(t, ClusterDevnet, ResolveCluster("", "https://api.devnet.solana.com"))
	assert.Equal(t, ClusterTestnet, ResolveCluster("", "https://api.testnet.solana.com"))
	assert.Equal(t, ClusterMainnetBeta, ResolveCluster("", "https://api.mainnet-beta.solana.com"))
	assert.Equal(t, ClusterUnknown, ResolveCluster("", "https://rpc.example.com"))
}

func TestBuildUnsignedTransactionLayout(t *testing.T) {
	owner := mustAddress(ownerAddr)
	recipient := mustAddress(recipientAddr)

	encoded, err := BuildUnsignedTransaction(owner, recipientAddr, []Instruction{
		NewSystemTransfer(owner, recipient, 5000),
	})
	require.NoError(t, err)

	wire, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	require.Greater(t, len(wire), 65)
	assert.Equal(t, byte(1), wire[0], "one signature slot")
	for _, sigByte := range wire[1 : 1+64] {
		assert.Zero(t, sigByte, "unsigned transaction carries a zeroed signature")
	}

	message := wire[65:]
	assert.Equal(t, byte(1), message[0], "numRequiredSignatures")
	assert.Equal(t, byte(0), message[1], "numReadonlySignedAccounts")
	assert.Equal(t, byte(1), message[2], "numReadonlyUnsignedAccounts")
	assert.Equal(t, byte(3), message[3], "owner, recipient, system program")

	// fee payer is the first account key
	assert.Equal(t, owner[:], message[4:36])
}

func TestBuildUnsignedTransactionRejectsBadBlockhash(t *testing.T) {
	owner := mustAddress(ownerAddr)
	_, err := BuildUnsignedTransaction(owner, "nope", nil)
	assert.Error(t, err)
}

func TestCompactU16(t *testing.T) {
	assert.Equal(t, []byte{0x00}, appendCompactU16(nil, 0))
	assert.Equal(t, []byte{0x7f}, appendCompactU16(nil, 127))
	assert.Equal(t, []byte{0x80, 0x01}, appendCompactU16(nil, 128))
	assert.Equal(t, []byte{0xff, 0x7f}, appendCompactU16(nil, 16383))
}

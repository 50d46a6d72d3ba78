package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcutil/base58"
)

const (
	SystemProgramID           = "11111111111111111111111111111111"
	TokenProgramID            = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID  = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	NativeMint                = "So11111111111111111111111111111111111111112"
	pdaMarker                 = "ProgramDerivedAddress"
	systemTransferInstruction = 2
	tokenTransferChecked      = 12
)

type PublicKey [32]byte

func ParseAddress(s string) (PublicKey, error) {
	decoded := base58.Decode(s)
	if len(decoded) != 32 {
		return PublicKey{}, fmt.Errorf("invalid solana address %q", s)
	}
	var key PublicKey
	copy(key[:], decoded)
	return key, nil
}

func mustAddress(s string) PublicKey {
	key, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return key
}

func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// onCurve reports whether the bytes decompress to a valid ed25519 point.
// Program derived addresses must not be on the curve.
func onCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// FindProgramAddress derives the canonical PDA for seeds under programID,
// walking the bump seed down from 255.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID[:])
		h.Write([]byte(pdaMarker))
		digest := h.Sum(nil)
		if !onCurve(digest) {
			var key PublicKey
			copy(key[:], digest)
			return key, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, fmt.Errorf("fail to derive program address")
}

// AssociatedTokenAddress derives the SPL associated token account for an
// owner and mint.
func AssociatedTokenAddress(owner, mint PublicKey) (PublicKey, error) {
	tokenProgram := mustAddress(TokenProgramID)
	ataProgram := mustAddress(AssociatedTokenProgramID)
	key, _, err := FindProgramAddress([][]byte{owner[:], tokenProgram[:], mint[:]}, ataProgram)
	return key, err
}

type accountMeta struct {
	key      PublicKey
	signer   bool
	writable bool
}

type Instruction struct {
	programID PublicKey
	accounts  []accountMeta
	data      []byte
}

// NewSystemTransfer moves lamports between two system accounts.
func NewSystemTransfer(from, to PublicKey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferInstruction)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return Instruction{
		programID: mustAddress(SystemProgramID),
		accounts: []accountMeta{
			{key: from, signer: true, writable: true},
			{key: to, writable: true},
		},
		data: data,
	}
}

// NewTokenTransferChecked moves SPL tokens between associated token accounts,
// verifying mint and decimals on chain.
func NewTokenTransferChecked(source, mint, destination, owner PublicKey, amount uint64, decimals uint8) Instruction {
	data := make([]byte, 10)
	data[0] = tokenTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals
	return Instruction{
		programID: mustAddress(TokenProgramID),
		accounts: []accountMeta{
			{key: source, writable: true},
			{key: mint},
			{key: destination, writable: true},
			{key: owner, signer: true},
		},
		data: data,
	}
}

// NewCreateAssociatedTokenAccount creates the owner's ATA for mint, funded by
// payer.
func NewCreateAssociatedTokenAccount(payer, ata, owner, mint PublicKey) Instruction {
	return Instruction{
		programID: mustAddress(AssociatedTokenProgramID),
		accounts: []accountMeta{
			{key: payer, signer: true, writable: true},
			{key: ata, writable: true},
			{key: owner},
			{key: mint},
			{key: mustAddress(SystemProgramID)},
			{key: mustAddress(TokenProgramID)},
		},
		data: nil,
	}
}

func appendCompactU16(out []byte, n int) []byte {
	for {
		if n < 0x80 {
			return append(out, byte(n))
		}
		out = append(out, byte(n&0x7f)|0x80)
		n >>= 7
	}
}

type compiledAccount struct {
	key      PublicKey
	signer   bool
	writable bool
}

// BuildUnsignedTransaction compiles instructions into a legacy wire
// transaction with zeroed signature slots and returns it base64 encoded.
// The fee payer occupies the first account slot.
func BuildUnsignedTransaction(feePayer PublicKey, recentBlockhash string, instructions []Instruction) (string, error) {
	blockhash, err := ParseAddress(recentBlockhash)
	if err != nil {
		return "", fmt.Errorf("invalid recent blockhash: %w", err)
	}

	accounts := []compiledAccount{{key: feePayer, signer: true, writable: true}}
	index := map[PublicKey]int{feePayer: 0}
	upsert := func(key PublicKey, signer, writable bool) {
		if i, ok := index[key]; ok {
			accounts[i].signer = accounts[i].signer || signer
			accounts[i].writable = accounts[i].writable || writable
			return
		}
		index[key] = len(accounts)
		accounts = append(accounts, compiledAccount{key: key, signer: signer, writable: writable})
	}
	for _, ix := range instructions {
		for _, meta := range ix.accounts {
			upsert(meta.key, meta.signer, meta.writable)
		}
		upsert(ix.programID, false, false)
	}

	// writable signers, readonly signers, writable non-signers, readonly
	// non-signers, with the fee payer pinned first
	var ordered []compiledAccount
	appendClass := func(signer, writable bool) {
		for _, acc := range accounts {
			if acc.key == feePayer {
				continue
			}
			if acc.signer == signer && acc.writable == writable {
				ordered = append(ordered, acc)
			}
		}
	}
	ordered = append(ordered, accounts[0])
	appendClass(true, true)
	appendClass(true, false)
	appendClass(false, true)
	appendClass(false, false)

	position := make(map[PublicKey]int, len(ordered))
	var numSigners, numReadonlySigned, numReadonlyUnsigned int
	for i, acc := range ordered {
		position[acc.key] = i
		if acc.signer {
			numSigners++
			if !acc.writable {
				numReadonlySigned++
			}
		} else if !acc.writable {
			numReadonlyUnsigned++
		}
	}

	var message []byte
	message = append(message, byte(numSigners), byte(numReadonlySigned), byte(numReadonlyUnsigned))
	message = appendCompactU16(message, len(ordered))
	for _, acc := range ordered {
		message = append(message, acc.key[:]...)
	}
	message = append(message, blockhash[:]...)
	message = appendCompactU16(message, len(instructions))
	for _, ix := range instructions {
		message = append(message, byte(position[ix.programID]))
		message = appendCompactU16(message, len(ix.accounts))
		for _, meta := range ix.accounts {
			message = append(message, byte(position[meta.key]))
		}
		message = appendCompactU16(message, len(ix.data))
		message = append(message, ix.data...)
	}

	var wire []byte
	wire = appendCompactU16(wire, numSigners)
	wire = append(wire, make([]byte, 64*numSigners)...)
	wire = append(wire, message...)
	return base64.StdEncoding.EncodeToString(wire), nil
}

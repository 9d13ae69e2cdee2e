package decode

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elly-po/pumpsniper/internal/model"
)

func programDataLine(buf []byte) string {
	return "Program data: " + base64.StdEncoding.EncodeToString(buf)
}

func TestBondingCurveOffset8(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("6mDT8DLcYwSrrzZHf1EXM7mEr6QLmkEHK1uKM4xCpump")
	buf := make([]byte, 40)
	copy(buf[8:], mint.Bytes())

	dec := NewBondingCurveDecoder()
	ev, err := dec.Decode(context.Background(), nil, []string{programDataLine(buf)})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.Mint.Equals(mint))
	assert.InDelta(t, 0.94, ev.Confidence, 1e-9)
}

func TestBondingCurveSlideScanFallback(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("8VfUQdY8S5DFnCPXUbP8hTxdEM1wWYbYoU9p1aoPpump")
	// Mint bytes placed at offset 5, not the fixed offset 8, forcing the
	// sliding-window fallback.
	buf := make([]byte, 37)
	copy(buf[5:], mint.Bytes())

	dec := NewBondingCurveDecoder()
	ev, err := dec.Decode(context.Background(), nil, []string{programDataLine(buf)})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.Mint.Equals(mint))
}

func TestBondingCurveStructuredCreate(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	bondingCurve := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()

	body := make([]byte, structuredCreateFieldBytes)
	off := 0
	copy(body[off:off+32], []byte("mytoken\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"))
	off += 32
	copy(body[off:off+4], []byte("MTK\x00"))
	off += 4
	off += 200 // uri left zeroed
	copy(body[off:off+32], mint.Bytes())
	off += 32
	copy(body[off:off+32], bondingCurve.Bytes())
	off += 32
	copy(body[off:off+32], user.Bytes())

	buf := append(make([]byte, 8), body...)

	dec := NewBondingCurveDecoder()
	ev, err := dec.Decode(context.Background(), nil, []string{programDataLine(buf)})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.Mint.Equals(mint))
	assert.Equal(t, "mytoken", ev.Metadata["name"])
	assert.Equal(t, "MTK", ev.Metadata["symbol"])
	assert.Equal(t, bondingCurve.String(), ev.PoolData["bondingCurve"])
}

func TestBondingCurveMintNotFound(t *testing.T) {
	dec := NewBondingCurveDecoder()
	_, err := dec.Decode(context.Background(), nil, []string{"Program log: nothing interesting here"})
	require.Error(t, err)
}

func TestAMMInitPoolBalanceDiff(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	amt := 1.0
	tx := &model.TransactionInfo{
		Meta: &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				{AccountIndex: 0},
			},
			PostTokenBalances: []rpc.TokenBalance{
				{AccountIndex: 0},
				{AccountIndex: 1, Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: &amt}},
			},
		},
	}
	dec := NewAMMInitPoolDecoder()
	ev, err := dec.Decode(context.Background(), tx, nil)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.Mint.Equals(mint))
}

func TestAMMInitPoolInnerInstructionFallback(t *testing.T) {
	candidate := solana.NewWallet().PublicKey()
	tx := &model.TransactionInfo{
		Accounts: []solana.PublicKey{solana.TokenProgramID, candidate},
		Meta: &rpc.TransactionMeta{
			InnerInstructions: []rpc.InnerInstruction{
				{Index: 0, Instructions: []solana.CompiledInstruction{
					{ProgramIDIndex: 0, Accounts: []uint16{1}},
				}},
			},
		},
	}
	dec := NewAMMInitPoolDecoder()
	ev, err := dec.Decode(context.Background(), tx, nil)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.Mint.Equals(candidate))
}

func TestVirtualPoolPositiveBalance(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	amt := 42.0
	tx := &model.TransactionInfo{
		Meta: &rpc.TransactionMeta{
			PostTokenBalances: []rpc.TokenBalance{
				{AccountIndex: 0, Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{UiAmount: &amt}},
			},
		},
	}
	lines := []string{`pool: Abc123`, `vault: Def456`, `liquidity: 12.5`, `name:"Meteora Token"`, `symbol:"MTR"`}
	dec := NewVirtualPoolDecoder()
	ev, err := dec.Decode(context.Background(), tx, lines)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.Mint.Equals(mint))
	assert.Equal(t, "Meteora Token", ev.Metadata["name"])
	assert.Equal(t, "Abc123", ev.PoolData["pool"])
}

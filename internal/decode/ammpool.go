// AMM-initPool decoder (§4.6 "AMM-initPool decoder"): recovers the mint of
// a freshly initialized AMM pool (Raydium-class) from the balance diff
// between pre/post token balances, falling back to an inner-instruction
// scan. Grounded on other_examples/evanjia6666-solanaswap-go__parser.go's
// PreTokenBalances/PostTokenBalances/InnerInstructions field access and
// other_examples/P-HOW-solana-swap-decode__parser.go's getInnerInstructions
// walk.
package decode

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/model"
)

// AMMInitPoolDecoder decodes Raydium-style initPool events.
type AMMInitPoolDecoder struct{}

// NewAMMInitPoolDecoder constructs an AMMInitPoolDecoder.
func NewAMMInitPoolDecoder() *AMMInitPoolDecoder { return &AMMInitPoolDecoder{} }

// Decode implements Decoder.
func (d *AMMInitPoolDecoder) Decode(_ context.Context, tx *model.TransactionInfo, _ []string) (*DecodedEvent, error) {
	if tx == nil || tx.Meta == nil {
		return nil, errkind.New(errkind.MalformedTransaction, "amm-initpool: missing transaction meta")
	}

	preIndices := make(map[uint16]bool, len(tx.Meta.PreTokenBalances))
	for _, b := range tx.Meta.PreTokenBalances {
		preIndices[b.AccountIndex] = true
	}
	for _, b := range tx.Meta.PostTokenBalances {
		if preIndices[b.AccountIndex] {
			continue
		}
		if b.UiTokenAmount == nil || b.UiTokenAmount.UiAmount == nil || *b.UiTokenAmount.UiAmount <= 0 {
			continue
		}
		return &DecodedEvent{Mint: b.Mint, Confidence: 1.0}, nil
	}

	if mint, ok := firstNonAllowlistedTokenAccount(tx); ok {
		return &DecodedEvent{Mint: mint, Confidence: 0.6}, nil
	}

	return nil, errkind.New(errkind.MintNotFound, "amm-initpool: no new token balance and no inner-instruction fallback")
}

// firstNonAllowlistedTokenAccount walks compiled + inner instructions for
// ones whose program id equals the token program, returning the first
// account (index 0) not in nonMintAllowlist (§4.6 "As a fallback...").
func firstNonAllowlistedTokenAccount(tx *model.TransactionInfo) (solana.PublicKey, bool) {
	all := append([]solana.CompiledInstruction{}, tx.Instructions...)
	if tx.Meta != nil {
		for _, inner := range tx.Meta.InnerInstructions {
			all = append(all, inner.Instructions...)
		}
	}
	for _, ix := range all {
		if int(ix.ProgramIDIndex) >= len(tx.Accounts) {
			continue
		}
		progID := tx.Accounts[ix.ProgramIDIndex]
		if !progID.Equals(solana.TokenProgramID) {
			continue
		}
		if len(ix.Accounts) == 0 {
			continue
		}
		acctIdx := ix.Accounts[0]
		if int(acctIdx) >= len(tx.Accounts) {
			continue
		}
		candidate := tx.Accounts[acctIdx]
		if nonMintAllowlist[candidate.String()] {
			continue
		}
		return candidate, true
	}
	return solana.PublicKey{}, false
}

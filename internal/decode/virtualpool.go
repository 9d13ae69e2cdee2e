// Virtual-pool (Meteora-class) decoder (§4.6 "Virtual-pool decoder"):
// recovers the mint from any post-token-balance with positive amount, then
// heuristically scrapes pool metadata from log lines with simple regular
// expressions. No pack repo implements this exact family, so the
// postTokenBalances scan generalizes the same rpc.TokenBalance field
// access other_examples/evanjia6666-solanaswap-go__parser.go and
// other_examples/P-HOW-solana-swap-decode__parser.go use.
package decode

import (
	"context"
	"regexp"

	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/model"
)

// VirtualPoolDecoder decodes Meteora-style virtual-pool initialization events.
type VirtualPoolDecoder struct{}

// NewVirtualPoolDecoder constructs a VirtualPoolDecoder.
func NewVirtualPoolDecoder() *VirtualPoolDecoder { return &VirtualPoolDecoder{} }

var (
	poolRe      = regexp.MustCompile(`(?i)pool:\s*([A-Za-z0-9]+)`)
	vaultRe     = regexp.MustCompile(`(?i)vault:\s*([A-Za-z0-9]+)`)
	liquidityRe = regexp.MustCompile(`(?i)liquidity:\s*([0-9.]+)`)
	nameRe      = regexp.MustCompile(`(?i)name:\s*"([^"]*)"`)
	symbolRe    = regexp.MustCompile(`(?i)symbol:\s*"([^"]*)"`)
)

// Decode implements Decoder.
func (d *VirtualPoolDecoder) Decode(_ context.Context, tx *model.TransactionInfo, lines []string) (*DecodedEvent, error) {
	if tx == nil || tx.Meta == nil {
		return nil, errkind.New(errkind.MalformedTransaction, "virtual-pool: missing transaction meta")
	}

	for _, b := range tx.Meta.PostTokenBalances {
		if b.UiTokenAmount == nil || b.UiTokenAmount.UiAmount == nil || *b.UiTokenAmount.UiAmount <= 0 {
			continue
		}
		return &DecodedEvent{
			Mint:       b.Mint,
			Confidence: 0.85,
			PoolData:   scrapePoolData(lines),
			Metadata:   scrapeMetadata(lines),
		}, nil
	}

	return nil, errkind.New(errkind.MintNotFound, "virtual-pool: no positive post-token-balance found")
}

func scrapePoolData(lines []string) map[string]string {
	out := map[string]string{}
	for _, line := range lines {
		if m := poolRe.FindStringSubmatch(line); m != nil {
			out["pool"] = m[1]
		}
		if m := vaultRe.FindStringSubmatch(line); m != nil {
			out["vault"] = m[1]
		}
		if m := liquidityRe.FindStringSubmatch(line); m != nil {
			out["liquidity"] = m[1]
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func scrapeMetadata(lines []string) map[string]string {
	out := map[string]string{}
	for _, line := range lines {
		if m := nameRe.FindStringSubmatch(line); m != nil {
			out["name"] = m[1]
		}
		if m := symbolRe.FindStringSubmatch(line); m != nil {
			out["symbol"] = m[1]
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

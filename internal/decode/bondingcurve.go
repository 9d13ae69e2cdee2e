// Bonding-curve launch decoder (§4.6 "Bonding-curve launch decoder"):
// recovers the mint of a newly launched bonding-curve token from the
// program's "create" event, emitted as a base64 "Program data:" frame.
// Grounded on other_examples/trb0110-b46__program-subscribe.go's
// ParseCreateInstruction (offset-8 field walk) and
// other_examples/trb0110-b46__get-pumpfun-token-info.go's PDA/ATA helpers;
// the fixed-width field layout and the offset-8-then-scan fallback order
// are this module's own generalization per spec Open Question 1/3.
package decode

import (
	"bytes"
	"context"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/launchpad"
	"github.com/elly-po/pumpsniper/internal/model"
)

// structuredCreateFieldBytes is the byte length of the fixed-width create
// event layout after the 8-byte discriminator:
// name[32] || symbol[4] || uri[200] || mint[32] || bondingCurve[32] || user[32].
const structuredCreateFieldBytes = 32 + 4 + 200 + 32 + 32 + 32 // 332, per spec Open Question 3

// BondingCurveDecoder is the pump.fun-style "create" event decoder.
type BondingCurveDecoder struct{}

// NewBondingCurveDecoder constructs a BondingCurveDecoder.
func NewBondingCurveDecoder() *BondingCurveDecoder { return &BondingCurveDecoder{} }

// Decode implements Decoder.
func (d *BondingCurveDecoder) Decode(_ context.Context, _ *model.TransactionInfo, lines []string) (*DecodedEvent, error) {
	frames := ProgramDataFrames(lines)
	for _, buf := range frames {
		if ev := parseStructuredCreate(buf); ev != nil {
			return ev, nil
		}
	}
	for _, buf := range frames {
		if len(buf) < 32 {
			continue
		}
		if mint, ok := offset8MintCandidate(buf); ok {
			return &DecodedEvent{Mint: mint, Confidence: 0.94}, nil
		}
	}
	for _, buf := range frames {
		if mint, ok := slideScanMintCandidate(buf); ok {
			return &DecodedEvent{Mint: mint, Confidence: 0.94}, nil
		}
	}
	return nil, errkind.New(errkind.MintNotFound, "bonding-curve: no mint candidate in program-data frames")
}

// offset8MintCandidate tests the candidate address at the fixed offset 8
// (§4.6 step 1). Prefer the structured parse when the buffer is long
// enough (Open Question 3); this is the legacy fallback for shorter frames.
func offset8MintCandidate(buf []byte) (solana.PublicKey, bool) {
	if len(buf) < 40 {
		return solana.PublicKey{}, false
	}
	return mintFromWindow(buf[8:40])
}

// slideScanMintCandidate slides a 32-byte window from offset 0 to len-32
// and returns the first address whose base58 form matches the launchpad's
// mint-address suffix convention (§4.6 step 2).
func slideScanMintCandidate(buf []byte) (solana.PublicKey, bool) {
	for off := 0; off+32 <= len(buf); off++ {
		if pk, ok := mintFromWindow(buf[off : off+32]); ok {
			return pk, true
		}
	}
	return solana.PublicKey{}, false
}

func mintFromWindow(window []byte) (solana.PublicKey, bool) {
	addr := base58.Encode(window)
	if !strings.HasSuffix(strings.ToLower(addr), strings.ToLower(launchpad.MintSuffixHint)) {
		return solana.PublicKey{}, false
	}
	var pk solana.PublicKey
	copy(pk[:], window)
	return pk, true
}

// parseStructuredCreate attempts the richer fixed-width layout (§4.6
// "richer decode path"): name[32] || symbol[4] || uri[200] || mint[32] ||
// bondingCurve[32] || user[32], available once the buffer is long enough
// to hold every field (Open Question 3 prefers this path over the legacy
// offset-8/scan heuristics whenever the size contract permits it).
func parseStructuredCreate(buf []byte) *DecodedEvent {
	const discriminatorLen = 8
	if len(buf) < discriminatorLen+structuredCreateFieldBytes {
		return nil
	}
	body := buf[discriminatorLen:]

	off := 0
	name := trimNUL(body[off : off+32])
	off += 32
	symbol := trimNUL(body[off : off+4])
	off += 4
	uri := trimNUL(body[off : off+200])
	off += 200
	mintBytes := body[off : off+32]
	off += 32
	bondingCurveBytes := body[off : off+32]
	off += 32
	userBytes := body[off : off+32]

	var mint, bondingCurve, user solana.PublicKey
	copy(mint[:], mintBytes)
	copy(bondingCurve[:], bondingCurveBytes)
	copy(user[:], userBytes)

	bondingCurveATA, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	poolData := map[string]string{
		"bondingCurve": bondingCurve.String(),
	}
	if err == nil {
		poolData["bondingCurveAta"] = bondingCurveATA.String()
	}

	return &DecodedEvent{
		Mint:       mint,
		Confidence: 0.94,
		PoolData:   poolData,
		Metadata: map[string]string{
			"name":   name,
			"symbol": symbol,
			"uri":    uri,
			"user":   user.String(),
		},
	}
}

func trimNUL(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

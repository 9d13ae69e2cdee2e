// Package decode implements the three mint-extraction decoders (§4.6): one
// per family (bonding-curve launch, AMM initPool, virtual-pool), plus the
// shared transaction-flattening helpers they all start from. Account-key
// flattening and inner-instruction access mirror
// other_examples/evanjia6666-solanaswap-go__parser.go's
// NewTransactionParserFromTransaction (AccountKeys ∪ LoadedAddresses.Writable
// ∪ LoadedAddresses.ReadOnly) and getInnerInstructions.
package decode

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/model"
)

// DecodedEvent is what a decoder recovers from a transaction (§2 "Decoders").
type DecodedEvent struct {
	Mint       solana.PublicKey
	Confidence float64
	PoolData   map[string]string
	Metadata   map[string]string
}

// Decoder is the single capability the three families implement (§9
// "Polymorphism" — a small interface with a registry keyed by tag, rather
// than a tagged-variant union).
type Decoder interface {
	Decode(ctx context.Context, tx *model.TransactionInfo, lines []string) (*DecodedEvent, error)
}

// OptionalDecoder is the explicit optional-dependency interface the
// original spec's lazily-loaded provider SDK is redesigned into (§9
// "Dynamic imports"). The core never constructs a concrete implementation;
// its absence is simply treated as a decoder fallback to nil, exactly like
// the three built-in decoders' own "return null on failure" contract.
type OptionalDecoder interface {
	Decoder
	Name() string
}

// Registry maps a classification Tag to the Decoder that can recover its
// mint, built once at orchestrator-construction time (§4.6 "Decoder
// registry").
type Registry map[model.Tag]Decoder

// FlattenAccountKeys assembles the flat account-key set a transaction
// references: static keys ∪ writable loaded addresses ∪ readonly loaded
// addresses, in that order.
func FlattenAccountKeys(tx *solana.Transaction, meta *rpc.TransactionMeta) []solana.PublicKey {
	if tx == nil {
		return nil
	}
	keys := append([]solana.PublicKey{}, tx.Message.AccountKeys...)
	if meta != nil {
		keys = append(keys, meta.LoadedAddresses.Writable...)
		keys = append(keys, meta.LoadedAddresses.ReadOnly...)
	}
	return keys
}

// ProgramDataFrames base64-decodes every "Program data: <b64>" log line
// into its raw byte buffer, in log order. Lines that fail to decode are
// skipped (§4.6 "Scans log lines for the marker Program data:").
func ProgramDataFrames(lines []string) [][]byte {
	const marker = "Program data:"
	var out [][]byte
	for _, line := range lines {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		encoded := strings.TrimSpace(line[idx+len(marker):])
		if encoded == "" {
			continue
		}
		buf, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		out = append(out, buf)
	}
	return out
}

// FetchTransaction normalizes a confirmed transaction fetch into the
// model's wire-agnostic TransactionInfo, the shape every decoder consumes.
func FetchTransaction(ctx context.Context, res *rpc.GetTransactionResult, sig solana.Signature) (*model.TransactionInfo, []string, error) {
	if res == nil || res.Transaction == nil {
		return nil, nil, errkind.New(errkind.MalformedTransaction, "empty getTransaction result")
	}
	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, nil, errkind.Wrap(errkind.MalformedTransaction, "decode transaction envelope", err)
	}
	var lines []string
	if res.Meta != nil {
		lines = res.Meta.LogMessages
	}
	return &model.TransactionInfo{
		Slot:         res.Slot,
		Meta:         res.Meta,
		Accounts:     FlattenAccountKeys(tx, res.Meta),
		Instructions: tx.Message.Instructions,
		Signature:    sig,
	}, lines, nil
}

// nonMintAllowlist holds well-known addresses the AMM decoder's
// inner-instruction fallback must never mistake for a freshly minted token
// (§4.6 "a small allow-list of known non-mint addresses").
var nonMintAllowlist = map[string]bool{
	solana.WrappedSol.String():                         true,
	solana.SystemProgramID.String():                    true,
	solana.TokenProgramID.String():                     true,
	solana.SysVarRentPubkey.String():                   true,
	solana.SPLAssociatedTokenAccountProgramID.String(): true,
}

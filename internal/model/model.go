// Package model holds the wire-agnostic data entities shared across the
// pipeline, grounded on the shapes rgetmane-sniper and
// evanjia6666-solanaswap-go pull out of gagliardetto/solana-go's rpc package.
package model

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ProgramAlias names a configured subscription target (e.g. "pumpfun",
// "raydium_amm").
type ProgramAlias string

// Tag is a classification label produced by the fingerprint matcher.
type Tag string

const (
	TagPumpfunCreate     Tag = "pumpfun_create"
	TagRaydiumInitPool   Tag = "raydium_initPool"
	TagMeteoraInitPool   Tag = "meteora_initPool"
	TagSplMintInit       Tag = "spl_mint_init"
	TagScoreOnlyFallback Tag = "score_only_fallback"
)

// ProgramDescriptor is a configuration-time subscription target and
// telemetry key.
type ProgramDescriptor struct {
	ID      int64 // subscription id, assigned once subscribed
	Label   ProgramAlias
	Address solana.PublicKey
}

// LogMessage is produced by ingest and consumed by the classifier.
// Signature may be synthetic ("slot-<slot>") when the feed lacks one.
type LogMessage struct {
	Signature     string
	Slot          uint64
	SourceProgram ProgramAlias
	Lines         []string
	ReceivedAt    time.Time
}

// MatchSource records which stage produced a TagResult.
type MatchSource string

const (
	SourceDecoder       MatchSource = "decoder"
	SourceFingerprint   MatchSource = "fingerprint"
	SourceScoreFallback MatchSource = "score_fallback"
)

// TagResult is the classifier's output. A nil *TagResult is a valid
// "no classification" return.
type TagResult struct {
	Tag        Tag
	Confidence float64
	Mint       string // base58 address, or "" for UNKNOWN
	Source     MatchSource
}

// TransactionInfo is the normalized view of a fetched confirmed
// transaction, retaining the raw meta for downstream decoders.
type TransactionInfo struct {
	Slot         uint64
	BlockTime    *time.Time
	Meta         *rpc.TransactionMeta
	Accounts     []solana.PublicKey
	Instructions []solana.CompiledInstruction
	Signature    solana.Signature
}

// MintCandidate is memoized by address in the validator's cache.
type MintCandidate struct {
	Address   string
	Confirmed bool
}

// BuyOrder is the input to the snipe executor.
type BuyOrder struct {
	PayerSecret         solana.PrivateKey
	Mint                solana.PublicKey
	AmountNative        uint64
	MaxSlippageSentinel int64
}

// DefaultMaxSlippageSentinel is the all-ones sentinel the launchpad's buy
// instruction is documented to accept (Open Question: whether the target
// program reads this as "no cap" or as a maximum allowance — see
// DESIGN.md).
const DefaultMaxSlippageSentinel int64 = -1

// Package launchpad holds the PDA seed literals and well-known account
// roles used by the snipe executor and the bonding-curve decoder, narrowed
// to the single launchpad family this module executes against. The
// launchpad program id itself is configuration, not a compiled-in constant.
package launchpad

import "github.com/gagliardetto/solana-go"

// Seed literals for the two PDAs the buy instruction needs (§4.8, §6).
const (
	SeedGlobal       = "global"
	SeedBondingCurve = "bonding-curve"
)

// MintSuffixHint is the case-insensitive suffix the bonding-curve decoder
// tests candidate addresses against (§4.6 "ends with 'pump'").
const MintSuffixHint = "pump"

// Well-known system accounts referenced by the buy instruction's fixed
// 12-account list (§4.8) that are not configuration-time values.
const (
	SystemProgramBase58 = "11111111111111111111111111111111"
	TokenProgramBase58  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	RentSysvarBase58    = "SysvarRent111111111111111111111111111111111"
)

// SystemProgram, TokenProgram, and RentSysvar are the parsed forms of the
// base58 constants above, wired into BuildInstruction's fixed account
// slots directly rather than through solana-go's own well-known-address
// globals, so the launchpad package stays the single source of truth for
// every non-configuration account this executor references.
var (
	SystemProgram = solana.MustPublicKeyFromBase58(SystemProgramBase58)
	TokenProgram  = solana.MustPublicKeyFromBase58(TokenProgramBase58)
	RentSysvar    = solana.MustPublicKeyFromBase58(RentSysvarBase58)
)

package launchpad

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// §3 invariant — PDA seeds are literal byte strings "global" and
// "bonding-curve" || mint_bytes.
func TestSeedLiteralsMatchWireFormat(t *testing.T) {
	assert.Equal(t, "global", SeedGlobal)
	assert.Equal(t, "bonding-curve", SeedBondingCurve)
}

func TestWellKnownAddressesAreValidBase58(t *testing.T) {
	for _, addr := range []string{SystemProgramBase58, TokenProgramBase58, RentSysvarBase58} {
		_, err := solana.PublicKeyFromBase58(addr)
		require.NoError(t, err, addr)
	}
}

func TestMintSuffixHintIsLowercasePump(t *testing.T) {
	assert.Equal(t, "pump", MintSuffixHint)
}

package mintvalidate

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elly-po/pumpsniper/internal/rpcclient"
)

type stubFetcher struct {
	calls int32
	info  *rpcclient.AccountInfo
	err   error
}

func (s *stubFetcher) GetAccountInfoJSONParsed(_ context.Context, _ solana.PublicKey) (*rpcclient.AccountInfo, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.info, s.err
}

func TestValidateCachesAfterFirstCall(t *testing.T) {
	tokenProgram := solana.TokenProgramID
	stub := &stubFetcher{info: &rpcclient.AccountInfo{
		Exists: true,
		Owner:  tokenProgram.String(),
	}}
	stub.info.Parsed.Type = "mint"

	v := New(stub, 100, tokenProgram)
	addr := solana.NewWallet().PublicKey()

	for i := 0; i < 5; i++ {
		ok, err := v.Validate(context.Background(), addr)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&stub.calls))
}

func TestValidateRejectsWrongOwner(t *testing.T) {
	tokenProgram := solana.TokenProgramID
	stub := &stubFetcher{info: &rpcclient.AccountInfo{
		Exists: true,
		Owner:  solana.SystemProgramID.String(),
	}}
	stub.info.Parsed.Type = "mint"

	v := New(stub, 100, tokenProgram)
	ok, err := v.Validate(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateAbsentAccount(t *testing.T) {
	tokenProgram := solana.TokenProgramID
	stub := &stubFetcher{info: &rpcclient.AccountInfo{Exists: false}}

	v := New(stub, 100, tokenProgram)
	ok, err := v.Validate(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

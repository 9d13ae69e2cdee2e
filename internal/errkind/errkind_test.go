package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(GatewayTransient, "getSlot", cause)
	require.ErrorIs(t, err, cause)
	k, ok := Of(err)
	require.True(t, ok)
	assert.Equal(t, GatewayTransient, k)
}

func TestIsRetriable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{New(RateLimited, "x"), true},
		{New(Timeout, "x"), true},
		{New(GatewayTransient, "x"), true},
		{New(MintNotFound, "x"), false},
		{New(ConfigInvalid, "x"), false},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("bad gateway"), true},
		{errors.New("invalid signature"), false},
		{nil, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsRetriable(c.err), "%v", c.err)
	}
}

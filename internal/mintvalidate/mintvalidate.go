// Package mintvalidate implements the mint validator: an RPC-backed,
// rate-limited, memoized check that a candidate address is a real SPL mint.
// Per-address memoization and the "at most one in-flight getAccountInfo per
// address" guarantee use golang.org/x/sync/singleflight.Group rather than a
// hand-rolled mutex and in-flight map.
package mintvalidate

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/singleflight"

	"github.com/elly-po/pumpsniper/internal/ratelimit"
	"github.com/elly-po/pumpsniper/internal/rpcclient"
)

// AccountInfoFetcher is the subset of rpcclient.Client the validator needs,
// narrowed to ease testing with a stub.
type AccountInfoFetcher interface {
	GetAccountInfoJSONParsed(ctx context.Context, addr solana.PublicKey) (*rpcclient.AccountInfo, error)
}

// Validator memoizes mint validity for process lifetime (§3 "Lifecycle").
type Validator struct {
	rpc          AccountInfoFetcher
	bucket       *ratelimit.Bucket
	tokenProgram solana.PublicKey

	sf singleflight.Group

	mu    sync.RWMutex
	cache map[string]bool
}

// New constructs a Validator against rpc, rate-limited at ratePerSecond
// for the dedicated mint-validation endpoint (§4.1).
func New(rpc AccountInfoFetcher, ratePerSecond float64, tokenProgram solana.PublicKey) *Validator {
	return &Validator{
		rpc:          rpc,
		bucket:       ratelimit.New(ratePerSecond, int(ratePerSecond)+1),
		tokenProgram: tokenProgram,
		cache:        make(map[string]bool),
	}
}

// Validate reports whether addr is a real SPL mint: owner == token program
// and parsed.type == "mint" (§4.7). Validation is advisory — callers may
// proceed even on false when the classifier's confidence is high (§4.7).
func (v *Validator) Validate(ctx context.Context, addr solana.PublicKey) (bool, error) {
	key := addr.String()

	v.mu.RLock()
	cached, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err, _ := v.sf.Do(key, func() (interface{}, error) {
		v.mu.RLock()
		cached, ok := v.cache[key]
		v.mu.RUnlock()
		if ok {
			return cached, nil
		}

		if err := v.bucket.Acquire(ctx, 1); err != nil {
			return false, err
		}
		info, err := v.rpc.GetAccountInfoJSONParsed(ctx, addr)
		if err != nil {
			return false, err
		}
		valid := info.Exists && info.Owner == v.tokenProgram.String() && info.Parsed.Type == "mint"

		v.mu.Lock()
		v.cache[key] = valid
		v.mu.Unlock()
		return valid, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

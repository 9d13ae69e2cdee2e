package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elly-po/pumpsniper/internal/metrics"
	"github.com/elly-po/pumpsniper/internal/model"
)

type stubSlots struct {
	slot uint64
	err  error
}

func (s *stubSlots) GetSlot(context.Context) (uint64, error) { return s.slot, s.err }

func newTestIngest(staleThresh uint64, slot uint64) *Ingest {
	descriptors := []model.ProgramDescriptor{{Label: "pumpfun"}}
	return New(descriptors, "wss://example.invalid", &stubSlots{slot: slot}, 1000, staleThresh, metrics.New())
}

// S1 — dedup: the same signature observed twice within the TTL is only
// processed once.
func TestIsDuplicateRejectsSecondObservation(t *testing.T) {
	in := newTestIngest(50, 1000)
	assert.False(t, in.isDuplicate("sig-A"), "first observation must not be a duplicate")
	assert.True(t, in.isDuplicate("sig-A"), "second observation within TTL must be a duplicate")
}

func TestSweepLoopEvictsExpiredEntries(t *testing.T) {
	in := newTestIngest(50, 1000)
	in.mu.Lock()
	in.dedup["old-sig"] = time.Now().Add(-dedupTTL - time.Second)
	in.dedup["fresh-sig"] = time.Now()
	in.mu.Unlock()

	in.sweepOnce()

	in.mu.Lock()
	_, oldStillThere := in.dedup["old-sig"]
	_, freshStillThere := in.dedup["fresh-sig"]
	in.mu.Unlock()

	assert.False(t, oldStillThere, "entries older than the TTL must be swept")
	assert.True(t, freshStillThere, "fresh entries must survive a sweep")
}

// S2 — stale drop: a message far behind the cached current slot is
// treated as stale.
func TestIsStaleDropsWhenBeyondThreshold(t *testing.T) {
	in := newTestIngest(50, 1000)
	assert.True(t, in.isStale(context.Background(), 1000-500))
}

func TestIsStaleAllowsWithinThreshold(t *testing.T) {
	in := newTestIngest(50, 1000)
	assert.False(t, in.isStale(context.Background(), 1000-10))
}

func TestIsStaleAllowsFutureSlot(t *testing.T) {
	in := newTestIngest(50, 1000)
	assert.False(t, in.isStale(context.Background(), 1000+5))
}

func TestStateTransitionsStartAtDisconnected(t *testing.T) {
	in := newTestIngest(50, 1000)
	assert.Equal(t, Disconnected, in.State())
	in.setState(Connecting)
	assert.Equal(t, Connecting, in.State())
}

func TestItoa(t *testing.T) {
	require.Equal(t, "0", itoa(0))
	require.Equal(t, "123456", itoa(123456))
}

// Package ingest implements the persistent multi-program websocket
// subscriber (§4.4): one goroutine owns the socket and read loop per
// subscription, deduplicates by signature, drops stale/throttled messages,
// and reconnects with capped jittered backoff. Directly generalizes the
// teacher's monitorPump/subscribeAndListen/processCreate loop (single
// pump.fun subscription, no dedup, no staleness gate, no throttle) to N
// configured subscriptions with the pipeline's full drop discipline.
package ingest

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"golang.org/x/sync/errgroup"

	"github.com/elly-po/pumpsniper/internal/metrics"
	"github.com/elly-po/pumpsniper/internal/model"
	"github.com/elly-po/pumpsniper/internal/ratelimit"
)

// State is the ingest connection state machine (§4.4 "State machine").
type State int32

const (
	Disconnected State = iota
	Connecting
	Open
	Streaming
	Closing
)

const (
	dedupTTL         = 60 * time.Second
	dedupSweepPeriod = 10 * time.Second
	reconnectBase    = 1 * time.Second
	reconnectCap     = 30 * time.Second
	slotRefreshMax   = 1 * time.Second
)

// SlotSource supplies the current confirmed slot, refreshed on demand
// (§4.4 "Staleness"). Implemented by rpcclient.Client in production.
type SlotSource interface {
	GetSlot(ctx context.Context) (uint64, error)
}

// Ingest owns N websocket subscriptions and emits retained messages on Out.
type Ingest struct {
	descriptors []model.ProgramDescriptor
	wsURL       string
	slots       SlotSource
	msgBucket   *ratelimit.Bucket
	metrics     *metrics.Registry
	staleThresh uint64

	Out chan model.LogMessage

	mu          sync.Mutex
	dedup       map[string]time.Time
	cachedSlot  uint64
	slotAt      time.Time

	state int32 // atomic State
}

// State returns the current connection state.
func (in *Ingest) State() State { return State(atomic.LoadInt32(&in.state)) }

func (in *Ingest) setState(s State) { atomic.StoreInt32(&in.state, int32(s)) }

// New constructs an Ingest ready to Run.
func New(descriptors []model.ProgramDescriptor, wsURL string, slots SlotSource, msgRatePerSecond float64, staleThresh uint64, m *metrics.Registry) *Ingest {
	return &Ingest{
		descriptors: descriptors,
		wsURL:       wsURL,
		slots:       slots,
		msgBucket:   ratelimit.New(msgRatePerSecond, int(msgRatePerSecond)+1),
		metrics:     m,
		staleThresh: staleThresh,
		Out:         make(chan model.LogMessage, 256),
		dedup:       make(map[string]time.Time),
	}
}

// Run dials the websocket, subscribes to every configured program (spaced
// ≥500ms apart per §4.4), and blocks until ctx is cancelled. It owns
// reconnection: on any subscription error it reconnects the whole client
// with capped jittered backoff (§4.4 "Reconnect").
func (in *Ingest) Run(ctx context.Context) error {
	go in.sweepLoop(ctx)

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			in.setState(Closing)
			close(in.Out)
			return nil
		default:
		}

		in.setState(Connecting)
		err := in.connectAndStream(ctx, &attempt)
		if ctx.Err() != nil {
			in.setState(Closing)
			close(in.Out)
			return nil
		}
		in.setState(Disconnected)
		if err == nil {
			continue
		}

		delay := reconnectBase * time.Duration(1<<uint(minInt(attempt, 5)))
		if delay > reconnectCap {
			delay = reconnectCap
		}
		delay += time.Duration(rand.Int63n(int64(time.Second)))
		attempt++

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			close(in.Out)
			return nil
		case <-timer.C:
		}
	}
}

// connectAndStream dials once and streams until every subscription ends.
// attempt is reset to 0 as soon as the dial succeeds (§4.4 "on successful
// open, reset attempt count and base delay"), not on return, since a
// clean return here only ever means ctx was cancelled.
func (in *Ingest) connectAndStream(ctx context.Context, attempt *int) error {
	client, err := ws.Connect(ctx, in.wsURL)
	if err != nil {
		return err
	}
	defer client.Close()
	in.setState(Open)
	*attempt = 0

	g, gctx := errgroup.WithContext(ctx)
	for i, desc := range in.descriptors {
		desc := desc
		spacing := time.Duration(i) * 500 * time.Millisecond
		g.Go(func() error {
			timer := time.NewTimer(spacing)
			defer timer.Stop()
			select {
			case <-gctx.Done():
				return nil
			case <-timer.C:
			}
			return in.subscribeOne(gctx, client, desc)
		})
	}
	return g.Wait()
}

func (in *Ingest) subscribeOne(ctx context.Context, client *ws.Client, desc model.ProgramDescriptor) error {
	sub, err := client.LogsSubscribeMentions(desc.Address, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := sub.Recv(ctx)
		if err != nil {
			return err
		}
		if msg == nil || msg.Value.Err != nil {
			continue
		}

		if !in.msgBucket.TryAcquire(1) {
			in.metrics.SocketMessagesDropped.WithLabelValues(string(desc.Label), "throttled").Inc()
			continue
		}

		in.metrics.SocketMessagesReceived.WithLabelValues(string(desc.Label)).Inc()

		sig := msg.Value.Signature.String()
		if sig == "" {
			sig = "slot-" + strconv.FormatUint(uint64(msg.Context.Slot), 10)
		}
		if in.isDuplicate(sig) {
			in.metrics.SocketMessagesDropped.WithLabelValues(string(desc.Label), "duplicate").Inc()
			continue
		}

		slot := uint64(msg.Context.Slot)
		if in.isStale(ctx, slot) {
			in.metrics.SocketMessagesDropped.WithLabelValues(string(desc.Label), "stale").Inc()
			continue
		}

		lm := model.LogMessage{
			Signature:     sig,
			Slot:          slot,
			SourceProgram: desc.Label,
			Lines:         msg.Value.Logs,
			ReceivedAt:    time.Now(),
		}
		select {
		case in.Out <- lm:
		case <-ctx.Done():
			return nil
		default:
			// backpressure is shed, not queued (§2)
			in.metrics.SocketMessagesDropped.WithLabelValues(string(desc.Label), "backpressure").Inc()
		}
	}
}

func (in *Ingest) isDuplicate(sig string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, ok := in.dedup[sig]; ok {
		return true
	}
	in.dedup[sig] = time.Now()
	return false
}

func (in *Ingest) isStale(ctx context.Context, msgSlot uint64) bool {
	in.mu.Lock()
	needsRefresh := time.Since(in.slotAt) > slotRefreshMax
	cached := in.cachedSlot
	in.mu.Unlock()

	if needsRefresh {
		if s, err := in.slots.GetSlot(ctx); err == nil {
			in.mu.Lock()
			in.cachedSlot = s
			in.slotAt = time.Now()
			cached = s
			in.mu.Unlock()
		}
	}
	if cached == 0 {
		return false
	}
	if cached < msgSlot {
		return false
	}
	return cached-msgSlot > in.staleThresh
}

func (in *Ingest) sweepLoop(ctx context.Context) {
	t := time.NewTicker(dedupSweepPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			in.sweepOnce()
		}
	}
}

// sweepOnce deletes dedup entries older than dedupTTL (§4.4 "Periodic
// (every 10s) sweep deletes entries older than 60s").
func (in *Ingest) sweepOnce() {
	cutoff := time.Now().Add(-dedupTTL)
	in.mu.Lock()
	defer in.mu.Unlock()
	for sig, at := range in.dedup {
		if at.Before(cutoff) {
			delete(in.dedup, sig)
		}
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

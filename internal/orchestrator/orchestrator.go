// Package orchestrator wires ingest -> score/classify -> decode -> validate
// -> execute and owns the per-source counters and periodic reporting. It is
// the process's DAG root: ingest, decoders, the validator, and the executor
// are constructed here and handed to each other by reference, never through
// package-level singletons.
package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elly-po/pumpsniper/internal/config"
	"github.com/elly-po/pumpsniper/internal/decode"
	"github.com/elly-po/pumpsniper/internal/errkind"
	"github.com/elly-po/pumpsniper/internal/fingerprint"
	"github.com/elly-po/pumpsniper/internal/ingest"
	"github.com/elly-po/pumpsniper/internal/ledger"
	"github.com/elly-po/pumpsniper/internal/metrics"
	"github.com/elly-po/pumpsniper/internal/mintvalidate"
	"github.com/elly-po/pumpsniper/internal/model"
	"github.com/elly-po/pumpsniper/internal/rpcclient"
	"github.com/elly-po/pumpsniper/internal/score"
	"github.com/elly-po/pumpsniper/internal/snipe"
)

const (
	reportInterval = 10 * time.Second
	pruneInterval  = 1 * time.Hour
	ledgerRetain   = 7 * 24 * time.Hour
)

// sourceCounters is the in-memory SourceCounters entity (§3 "Additional
// entities"), one per configured program alias, guarded by the
// Orchestrator's single mutex rather than atomics since all four fields
// are read together for reporting.
type sourceCounters struct {
	received   uint64
	matches    uint64
	unresolved uint64
	failures   uint64
}

// Orchestrator is the process's DAG root: ingest feeds it LogMessages, it
// classifies and executes, and it owns the per-source counters that feed
// both Prometheus and the ledger's periodic snapshots.
type Orchestrator struct {
	cfg *config.Config
	log *zap.SugaredLogger

	ingest    *ingest.Ingest
	rpc       *rpcclient.Client
	matcher   *fingerprint.Matcher
	decoders  decode.Registry
	validator *mintvalidate.Validator
	executor  *snipe.Executor
	metrics   *metrics.Registry
	ledger    *ledger.Ledger

	addrByAlias map[model.ProgramAlias]string

	mu       sync.Mutex
	counters map[model.ProgramAlias]*sourceCounters
}

// New constructs every subsystem from cfg and wires them into an
// Orchestrator ready to Run.
func New(cfg *config.Config, m *metrics.Registry, led *ledger.Ledger, log *zap.SugaredLogger) (*Orchestrator, error) {
	rpc := rpcclient.New(cfg.RPCURL, cfg.RPCRateLimit, cfg.RPCMaxRetries, time.Duration(cfg.RPCRetryDelayMS)*time.Millisecond, m)

	fps := make([]fingerprint.Fingerprint, 0, len(cfg.Fingerprints))
	for _, fs := range cfg.Fingerprints {
		fps = append(fps, fingerprint.Fingerprint{
			Tag:                  model.Tag(fs.Tag),
			RequiredInstructions: fs.RequiredInstructions,
			RequiredPrograms:     fs.RequiredPrograms,
			Logic:                fingerprint.Logic(fs.Logic),
			MinScore:             fs.MinScore,
			Confidence:           fs.Confidence,
		})
	}
	matcher, err := fingerprint.New(fps)
	if err != nil {
		return nil, err
	}

	in := ingest.New(cfg.ProgramSubscriptions, cfg.SocketURL, rpc, cfg.SocketMessageRateLimit, cfg.StaleSlotThreshold, m)

	exec := snipe.New(rpc, cfg.LaunchpadProgramID, cfg.GlobalFeeVault, cfg.ConfigAuthority, cfg.BuyDiscriminator)

	addrByAlias := make(map[model.ProgramAlias]string, len(cfg.ProgramSubscriptions))
	counters := make(map[model.ProgramAlias]*sourceCounters, len(cfg.ProgramSubscriptions))
	for _, d := range cfg.ProgramSubscriptions {
		addrByAlias[d.Label] = d.Address.String()
		counters[d.Label] = &sourceCounters{}
	}

	return &Orchestrator{
		cfg:         cfg,
		log:         log,
		ingest:      in,
		rpc:         rpc,
		matcher:     matcher,
		decoders:    decode.NewRegistry(),
		validator:   mintvalidate.New(rpc, cfg.RPCRateLimit, solana.TokenProgramID),
		executor:    exec,
		metrics:     m,
		ledger:      led,
		addrByAlias: addrByAlias,
		counters:    counters,
	}, nil
}

// Run blocks until ctx is cancelled (§5 "Cancellation" — SIGINT initiates
// a one-way shutdown; in-flight per-message tasks are allowed to
// complete, no new inbound messages are dispatched once ingest closes
// Out).
func (o *Orchestrator) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return o.ingest.Run(gctx) })
	g.Go(func() error { return o.dispatchLoop(gctx) })
	g.Go(func() error { return o.reportLoop(gctx) })
	g.Go(func() error { return o.pruneLoop(gctx) })

	return g.Wait()
}

// dispatchLoop spawns one short-lived goroutine per retained message
// (§5 "Concurrency & Resource Model" (b)), stopping once ingest.Out
// closes.
func (o *Orchestrator) dispatchLoop(ctx context.Context) error {
	var wg errgroup.Group
	for {
		select {
		case <-ctx.Done():
			return wg.Wait()
		case msg, ok := <-o.ingest.Out:
			if !ok {
				return wg.Wait()
			}
			m := msg
			wg.Go(func() error {
				o.processMessage(ctx, m)
				return nil
			})
		}
	}
}

// processMessage runs the strictly sequential score -> fingerprint ->
// decode -> validate -> execute pipeline for one retained message (§5
// "Ordering" — dedup/stale already happened in ingest before this
// message reached Out).
func (o *Orchestrator) processMessage(ctx context.Context, msg model.LogMessage) {
	o.bump(msg.SourceProgram, func(c *sourceCounters) { c.received++ })

	sc := score.Score(msg.Lines, o.cfg.SignalWeights)
	instrNames := fingerprint.InstructionNames(msg.Lines)
	programAddr := o.addrByAlias[msg.SourceProgram]

	match := o.matcher.Match(msg.Lines, programAddr, instrNames)

	result := o.classify(match, sc)
	if result == nil {
		return
	}
	o.bump(msg.SourceProgram, func(c *sourceCounters) { c.matches++ })
	o.metrics.SocketMessagesMatched.WithLabelValues(string(msg.SourceProgram)).Inc()

	if result.Source != model.SourceScoreFallback {
		o.decodeAndExecute(ctx, msg, result)
	}
}

// classify turns a fingerprint match (or its absence) plus the scalar
// score into a TagResult, applying the score-only fallback path (§4.5,
// §3 "score_fallback").
func (o *Orchestrator) classify(match *fingerprint.Match, sc float64) *model.TagResult {
	if match != nil {
		return &model.TagResult{
			Tag:        match.Tag,
			Confidence: match.Confidence,
			Source:     model.SourceFingerprint,
		}
	}
	if sc >= o.cfg.ScoreThreshold {
		confidence := sc / (sc + o.cfg.ScoreThreshold)
		if confidence > 1 {
			confidence = 1
		}
		return &model.TagResult{
			Tag:        model.TagScoreOnlyFallback,
			Confidence: confidence,
			Source:     model.SourceScoreFallback,
		}
	}
	return nil
}

// decodeAndExecute fetches the transaction, decodes the mint, validates
// it advisorially, and — on sufficient confidence — dispatches a buy
// (§5 steps 5-7).
func (o *Orchestrator) decodeAndExecute(ctx context.Context, msg model.LogMessage, result *model.TagResult) {
	decoder, ok := o.decoders[result.Tag]
	if !ok {
		o.unresolved(msg.SourceProgram)
		return
	}

	sig, err := solana.SignatureFromBase58(msg.Signature)
	if err != nil {
		o.log.Warnw("synthetic or malformed signature, cannot fetch transaction", "signature", msg.Signature)
		o.unresolved(msg.SourceProgram)
		return
	}

	txRes, err := o.rpc.GetTransaction(ctx, sig)
	if err != nil {
		o.log.Warnw("getTransaction failed", "signature", msg.Signature, "err", err)
		o.unresolved(msg.SourceProgram)
		return
	}
	txInfo, lines, err := decode.FetchTransaction(ctx, txRes, sig)
	if err != nil {
		o.unresolved(msg.SourceProgram)
		return
	}
	if len(lines) > 0 {
		msg.Lines = lines
	}

	event, err := decoder.Decode(ctx, txInfo, msg.Lines)
	if err != nil || event == nil {
		o.log.Infow("decode failed, dropping message", "signature", msg.Signature, "tag", result.Tag, "err", err)
		o.unresolved(msg.SourceProgram)
		return
	}
	result.Mint = event.Mint.String()

	valid, verr := o.validator.Validate(ctx, event.Mint)
	if verr != nil {
		o.log.Warnw("mint validation rpc failed", "mint", result.Mint, "err", verr)
	} else if !valid {
		o.log.Warnw("mint validation returned false, proceeding on classifier confidence", "mint", result.Mint, "confidence", result.Confidence)
	}

	o.log.Infow("classification resolved", "signature", msg.Signature, "tag", result.Tag, "confidence", result.Confidence, "mint", result.Mint)

	if result.Confidence < o.cfg.ConfidenceThreshold {
		return
	}

	o.execute(ctx, msg, *result, event.Mint)
}

// execute dispatches the buy transaction and records the outcome to the
// ledger (§4.8, §7 "Every dispatch attempt ... is logged").
func (o *Orchestrator) execute(ctx context.Context, msg model.LogMessage, result model.TagResult, mint solana.PublicKey) {
	o.metrics.ExecutorDispatched.WithLabelValues(string(result.Tag)).Inc()

	order := model.BuyOrder{
		PayerSecret:         o.cfg.PayerSecret,
		Mint:                mint,
		AmountNative:        o.cfg.AmountInNative,
		MaxSlippageSentinel: model.DefaultMaxSlippageSentinel,
	}

	sig, err := o.executor.Buy(ctx, order)
	if err != nil {
		kind, _ := errkind.Of(err)
		o.metrics.ExecutorFailed.WithLabelValues(string(result.Tag), string(kind)).Inc()
		o.bump(msg.SourceProgram, func(c *sourceCounters) { c.failures++ })
		o.metrics.SocketMessagesFailed.WithLabelValues(string(msg.SourceProgram)).Inc()
		o.log.Errorw("buy dispatch failed", "signature", msg.Signature, "tag", result.Tag, "mint", result.Mint, "err", err)

		outcome := ledger.OutcomeProviderError
		switch kind {
		case errkind.SimulationRejected:
			outcome = ledger.OutcomeSimulationRejected
		case errkind.NotConfirmed:
			outcome = ledger.OutcomeNotConfirmed
		}
		if lerr := o.ledger.RecordDispatch(ctx, result, outcome, msg.Signature, sig.String(), err.Error()); lerr != nil {
			o.log.Warnw("ledger write failed", "err", lerr)
		}
		return
	}

	o.metrics.ExecutorSucceeded.WithLabelValues(string(result.Tag)).Inc()
	o.log.Infow("buy dispatched", "signature", msg.Signature, "tag", result.Tag, "mint", result.Mint, "submitted", sig.String())
	if lerr := o.ledger.RecordDispatch(ctx, result, ledger.OutcomeSent, msg.Signature, sig.String(), ""); lerr != nil {
		o.log.Warnw("ledger write failed", "err", lerr)
	}
}

// unresolved bumps both the in-memory counter and the matching Prometheus
// counter for a message that matched but could not be decoded.
func (o *Orchestrator) unresolved(alias model.ProgramAlias) {
	o.bump(alias, func(c *sourceCounters) { c.unresolved++ })
	o.metrics.SocketMessagesUnresolved.WithLabelValues(string(alias)).Inc()
}

// bump applies fn to the counters for alias under the orchestrator's
// mutex (§5 "Shared-state discipline" — lock held only across map
// mutations, never across I/O).
func (o *Orchestrator) bump(alias model.ProgramAlias, fn func(*sourceCounters)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counters[alias]
	if !ok {
		c = &sourceCounters{}
		o.counters[alias] = c
	}
	fn(c)
}

// reportLoop emits per-program counters at a fixed 10s interval (§7
// "User-visible behavior") to both the structured logger and the
// ledger's counter_snapshots table, ordered by cfg.DEXPriority so the
// operator's configured tie-break order is reflected in the log stream.
func (o *Orchestrator) reportLoop(ctx context.Context) error {
	t := time.NewTicker(reportInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			o.emitReport(ctx)
		}
	}
}

func (o *Orchestrator) emitReport(ctx context.Context) {
	o.mu.Lock()
	snapshot := make(map[model.ProgramAlias]sourceCounters, len(o.counters))
	for alias, c := range o.counters {
		snapshot[alias] = *c
	}
	o.mu.Unlock()

	aliases := make([]model.ProgramAlias, 0, len(snapshot))
	for alias := range snapshot {
		aliases = append(aliases, alias)
	}
	sort.Slice(aliases, func(i, j int) bool {
		return dexPriorityRank(o.cfg.DEXPriority, aliases[i]) < dexPriorityRank(o.cfg.DEXPriority, aliases[j])
	})

	for _, alias := range aliases {
		c := snapshot[alias]
		o.log.Infow("source counters", "source", alias, "received", c.received, "matches", c.matches, "unresolved", c.unresolved, "failures", c.failures)
		if err := o.ledger.RecordCounterSnapshot(ctx, ledger.CounterSnapshot{
			Source: alias, Received: c.received, Matches: c.matches, Unresolved: c.unresolved, Failures: c.failures,
		}); err != nil {
			o.log.Warnw("counter snapshot write failed", "err", err)
		}
	}
}

// pruneLoop bounds the ledger's growth for long-running processes,
// deleting dispatch records and counter snapshots older than ledgerRetain.
func (o *Orchestrator) pruneLoop(ctx context.Context) error {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := o.ledger.PruneOlderThan(ctx, ledgerRetain); err != nil {
				o.log.Warnw("ledger prune failed", "err", err)
			}
		}
	}
}

func dexPriorityRank(priority []string, alias model.ProgramAlias) int {
	for i, p := range priority {
		if p == string(alias) {
			return i
		}
	}
	return len(priority)
}
